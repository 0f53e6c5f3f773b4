// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - Connector: Pulls items from an external source
//   - ConnectorFactory: Creates connectors from configuration
//   - ConnectorStore / CredentialStore / CCPairStore: Entity persistence
//   - DocumentStore: Document and association persistence
//   - AttemptStore: Index attempt lifecycle and claim
//   - SearchIndex: Receives document upsert/delete events
//
// # Optional Interfaces
//
//   - SchedulerStore: Only required when the background scheduler runs.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or connector package
package driven
