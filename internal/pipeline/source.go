// internal/pipeline/source.go
package pipeline

import "bqtools/internal/record"

// Source is the minimal capability the pipeline needs from a record source.
// Next must be safe for concurrent callers, must hand each batch to exactly
// one caller, and must report false (not block) once exhausted.
type Source interface {
	Next() (*record.Batch, bool, error)
}

// Processor is one worker's private state. Process accumulates into
// worker-local buffers; Flush hands them to the shared sink.
type Processor interface {
	Process(b *record.Batch) error
	Flush() error
}
