// Package services contains the application core: the sync orchestrator,
// the pruning path, the scheduler loop and the admin surface. Services
// depend only on the port interfaces, never on concrete adapters.
package services
