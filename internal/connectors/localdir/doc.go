// Package localdir implements a connector that indexes files from a
// local directory tree.
//
// It requires no authentication, supports incremental polling by file
// modification time, cheap live listings for pruning, and real-time
// change events via fsnotify.
package localdir
