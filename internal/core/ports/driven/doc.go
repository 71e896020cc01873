// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - EmbeddingService: Turns text into fixed-dimension vectors
//   - DocumentStore: Transactional document + chunk persistence with filtered vector search
//   - VectorIndex: Approximate nearest-neighbour index owned by a DocumentStore
//   - PostProcessor / PostProcessorPipeline: Chunking and chunk stamping
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
//   - IngestJobStore: Batch ingestion bookkeeping
//   - Connector, Normaliser, NormaliserRegistry: directory ingestion
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or normaliser package
package driven
