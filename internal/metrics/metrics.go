// Package metrics defines the minimal backend interface the preparation
// pipeline emits against. Backends live in subpackages; the core depends
// only on this interface.
package metrics

import (
	"context"
	"time"
)

// Backend receives counters and duration samples from the pipeline.
//
// Implementations must be safe for concurrent use; the pipeline itself is
// single-threaded but callers may share one backend across runs.
type Backend interface {
	// IncCounter adds delta to a named counter.
	IncCounter(name string, delta float64, tags ...string)

	// ObserveDuration records one duration sample for a named stage.
	ObserveDuration(name string, d time.Duration, tags ...string)

	// Flush submits buffered metrics.
	Flush(ctx context.Context) error

	// Close flushes one final time and releases resources.
	Close(ctx context.Context) error
}

// Nop is the default backend; it drops everything.
type Nop struct{}

func (Nop) IncCounter(string, float64, ...string)             {}
func (Nop) ObserveDuration(string, time.Duration, ...string)  {}
func (Nop) Flush(context.Context) error                       { return nil }
func (Nop) Close(context.Context) error                       { return nil }
