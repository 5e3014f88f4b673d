// Package core provides the foundational domain types and contracts used by
// memorybench. It defines:
//
//   - Conversations, segments and turns loaded from the LoCoMo dataset
//   - Role-labeled messages submitted to memory backends
//   - Retrieval shapes (ranked memories, relations, graph facts and entities)
//   - Evaluation items and the result records produced by answering them
//   - Backend contracts (MemoryWriter, RankedMemoryBackend, GraphMemoryBackend)
//   - The error taxonomy shared by ingestion and answering
//
// The package keeps implementation concerns (HTTP clients, persistence,
// orchestration) out of scope so that backends and pipelines can be swapped
// or faked in tests.
package core
