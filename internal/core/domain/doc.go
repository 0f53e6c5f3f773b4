// Package domain defines the core business entities for quarry.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Connector: A configured source integration
//   - Credential: Authentication material for a source
//   - CCPair: A connector-credential pairing, the unit of scheduling
//   - Document: The canonical representation of one source item
//   - IndexAttempt: One orchestration run for a CCPair
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
