// Package results provides the incremental result store of a benchmark run.
//
// Every appended record triggers a rewrite of the whole document through a
// Sink, so a crash or a late remote failure never loses completed work. The
// document is a JSON object keyed by conversation index, in numeric order,
// indented by four spaces.
//
// Sinks:
//   - FileSink: local file written through a temp file and rename
//   - MemorySink: process-local buffer for tests and dry runs
//   - s3.Sink (sub-package): object in an S3 bucket
package results
