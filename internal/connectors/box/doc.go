// Package box implements a connector that indexes files from Box.
//
// It walks the configured folder tree through the Box v2 REST API and
// emits one item per file. Listings are paginated with offsets and
// throttled with a token bucket. Watch is not supported; pruning uses
// a lightweight listing that skips file metadata the sync path needs.
package box
