// Package memory provides in-memory implementations of the metadata
// store interfaces. Used in tests and for ephemeral runs where nothing
// should touch disk.
package memory
