// Package github implements a connector that indexes issues and pull
// requests from GitHub repositories.
//
// The connector supports full loads, incremental polling via the
// issues "since" parameter, and cheap live listings for pruning.
// API calls are throttled with a dual-strategy rate limiter that
// combines proactive token-bucket throttling with reactive checks of
// the X-RateLimit headers.
package github
