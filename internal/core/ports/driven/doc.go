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
//   - DocumentLoader: Reads the knowledge directory into Documents
//   - Normaliser: Turns one file into one or more Documents
//   - PostProcessor: Splits a Document into Chunks
//   - EmbeddingProvider: Turns chunk and query text into vectors
//   - IndexStore: Persists and loads the index artifact
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - BuildHistoryStore: Records build attempts. Without it, status shows only the artifact.
//   - ChangeSource: Streams corpus changes. Only the watch loop needs it.
//   - EmbeddingValidator: Pings a provider before settings are saved.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or normaliser package
package driven
