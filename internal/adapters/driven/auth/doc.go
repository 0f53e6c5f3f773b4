// Package auth provides TokenProvider implementations backed by the
// credential store.
//
// OAuth credentials are refreshed automatically ahead of expiry and the
// refreshed payload is written back to the store before the new token is
// handed out. Concurrent callers share a single in-flight refresh per
// credential.
package auth
