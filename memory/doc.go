// Package memory contains the memory backends exercised by the benchmark.
// The backend contracts live in the core package; select an implementation
// at wiring time:
//
//   - InMemoryStore (this package): process-local ranked store for dry runs
//   - mem0: Mem0 platform client, ranked memories and graph relations
//   - zep: Zep Cloud client, knowledge graph facts and entities
package memory
