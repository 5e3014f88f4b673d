// Package logging provides a minimal logging interface and adapters for memorybench.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that pipelines and backend clients use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - BenchLogger with component / run context and remote call helpers
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	pipeline := ingest.New(backend, func(o *ingest.Options) { o.Logger = logger })
package logging
