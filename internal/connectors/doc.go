// Package connectors provides implementations of the Connector interface
// for various document sources. Each connector knows how to fetch items
// from a specific source type (box, github, localdir).
//
// Connectors are registered with the Factory at startup.
package connectors
