// Package sqlite provides a unified SQLite-backed implementation of the
// metadata store interfaces: connectors, credentials, pairs, documents,
// index attempts and scheduler state.
//
// A single database file holds everything. Schema changes are applied
// through embedded, versioned migrations at open time.
package sqlite
