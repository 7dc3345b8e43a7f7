// Package sampler declares the collaborator contracts this module's
// payload is prepared for. Compilation and inference live outside this
// repository; the preparer only needs the shapes to hand off to.
package sampler

import (
	"context"
	"fmt"

	"bayesprep/internal/standata"
)

// Artifact is a handle to a compiled, runnable model.
type Artifact interface {
	// Path locates the runnable artifact for the runner.
	Path() string
}

// Compiler turns probabilistic-program source into a runnable artifact.
type Compiler interface {
	Compile(ctx context.Context, src string, includePaths []string) (Artifact, error)
}

// FitResult is the opaque outcome of one inference run.
type FitResult struct {
	// Draws holds posterior draws per parameter name.
	Draws map[string][]float64

	// Diagnostics holds sampler diagnostics (divergences, rhat, ...).
	Diagnostics map[string]float64
}

// Runner fits a compiled model against a flat data payload.
type Runner interface {
	Run(ctx context.Context, artifact Artifact, data standata.Record) (*FitResult, error)
}

// Fit compiles src and runs it against data in one step.
func Fit(ctx context.Context, c Compiler, r Runner, src string, includePaths []string, data standata.Record) (*FitResult, error) {
	artifact, err := c.Compile(ctx, src, includePaths)
	if err != nil {
		return nil, fmt.Errorf("sampler: compile: %w", err)
	}
	return r.Run(ctx, artifact, data)
}
