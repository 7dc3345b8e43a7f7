// Package pipeline wires the preparation flow end to end: feature
// derivation, fixed/random matrix construction, effect classification,
// serialization, and prior merging, producing the flat payload handed to
// the external sampler.
package pipeline

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"bayesprep/internal/design"
	"bayesprep/internal/effects"
	"bayesprep/internal/encode"
	"bayesprep/internal/formula"
	"bayesprep/internal/metrics"
	"bayesprep/internal/priors"
	"bayesprep/internal/standata"
	"bayesprep/internal/table"
)

// Logger is the minimal logging interface used by the preparer.
// *log.Logger satisfies this interface.
type Logger interface {
	Printf(format string, v ...any)
}

// OneHotField requests one-hot derivation before matrix construction.
type OneHotField struct {
	Field     string
	Contrasts bool
}

// CumulativeField requests cumulative-membership derivation before matrix
// construction.
type CumulativeField struct {
	Field string
	Group string
}

// PoolTag configures one pooling-tag pass over the random-effect metadata.
// Exactly one selector should be set; Prefix wins, then Pattern, then
// Names.
type PoolTag struct {
	Tag     string
	Prefix  string
	Pattern string
	Names   []string
}

// Config describes one preparation run.
type Config struct {
	// Model is the source formula specification, e.g. "y ~ x + (1|region)".
	// Grouping terms derive the random-effects formula.
	Model string

	// Prefix names the serialized component fields.
	Prefix string

	// Dense disables row deduplication of the fixed design matrix.
	Dense bool

	// FullIndicators / AllFullIndicators forward contrast suppression to
	// the matrix builder.
	FullIndicators    []string
	AllFullIndicators bool

	// OneHot and Cumulative derive feature columns before the build.
	OneHot     []OneHotField
	Cumulative []CumulativeField

	// PoolTags layer pooling groups onto the random-effect metadata. When
	// empty, each grouping factor gets the default "sd" tag by name
	// prefix.
	PoolTags []PoolTag

	// Priors are the model's default prior rows; Overrides replace
	// matching defaults by variable name.
	Priors    []priors.Prior
	Overrides []priors.Prior

	// InPlace lets feature derivation append to the caller's table
	// instead of a copy.
	InPlace bool

	// ExcludeIntercept forwards the serializer's intercept exclusion for
	// intercept-free fixed formulas whose first column is a reference.
	ExcludeIntercept bool
}

// Result carries the payload plus the intermediate products callers
// inspect or test against.
type Result struct {
	Data    standata.Record
	Fixed   *design.Matrix
	Random  *design.Matrix
	Effects *table.Table
	Priors  []priors.Prior
}

// Preparer runs preparation flows. Zero value works: logging is dropped
// and metrics are no-ops.
type Preparer struct {
	Logger  Logger
	Metrics metrics.Backend
}

// Prepare executes the full flow over an observation table.
//
// All errors are fatal to this call and carry the offending column or
// term; the input table is never mutated unless cfg.InPlace is set.
func (p *Preparer) Prepare(t *table.Table, cfg Config) (*Result, error) {
	logf := p.logf()
	backend := p.backend()
	run := uuid.NewString()

	work, err := p.deriveFeatures(t, cfg)
	if err != nil {
		return nil, err
	}

	pair, err := formula.Derive(cfg.Model)
	if err != nil {
		return nil, err
	}

	spec := design.BuildSpec{
		Dense:             cfg.Dense,
		FullIndicators:    cfg.FullIndicators,
		AllFullIndicators: cfg.AllFullIndicators,
		Verify:            true,
	}

	start := time.Now()
	fixed, err := design.Build(pair.Fixed, work, spec)
	if err != nil {
		return nil, err
	}
	logf("run=%s stage=build_fixed ok rows=%d unique=%d cols=%d duration=%s",
		run, fixed.FullRows, fixed.NumRows(), fixed.NumCols(), durMS(start))
	backend.ObserveDuration("bayesprep.stage.duration_seconds", time.Since(start), "stage:build_fixed")
	backend.IncCounter("bayesprep.rows.total", float64(fixed.FullRows))
	backend.IncCounter("bayesprep.rows.unique", float64(fixed.NumRows()))

	start = time.Now()
	random, err := design.Build(pair.Random, work, spec)
	if err != nil {
		return nil, err
	}
	logf("run=%s stage=build_random ok cols=%d duration=%s", run, random.NumCols(), durMS(start))
	backend.ObserveDuration("bayesprep.stage.duration_seconds", time.Since(start), "stage:build_random")

	start = time.Now()
	meta, err := p.classify(random, pair, cfg)
	if err != nil {
		return nil, err
	}
	logf("run=%s stage=classify ok effects=%d duration=%s", run, meta.NumRows(), durMS(start))

	start = time.Now()
	data := standata.Serialize(fixedOrNil(pair.Fixed, fixed), fixedOrNil(pair.Random, random), standata.SerializeSpec{
		Prefix:           cfg.Prefix,
		ExcludeIntercept: cfg.ExcludeIntercept,
	})
	merged := priors.Merge(cfg.Priors, cfg.Overrides)
	priors.Flatten(merged, data)
	logf("run=%s stage=serialize ok fields=%d priors=%d duration=%s", run, len(data), len(merged), durMS(start))

	return &Result{
		Data:    data,
		Fixed:   fixed,
		Random:  random,
		Effects: meta,
		Priors:  merged,
	}, nil
}

func (p *Preparer) deriveFeatures(t *table.Table, cfg Config) (*table.Table, error) {
	work := t
	inPlace := cfg.InPlace

	for _, oh := range cfg.OneHot {
		derived, err := encode.OneHot(work, encode.OneHotSpec{
			Field:     oh.Field,
			Contrasts: oh.Contrasts,
			InPlace:   inPlace || work != t,
		})
		if err != nil {
			return nil, err
		}
		work = derived
	}
	for _, cm := range cfg.Cumulative {
		derived, err := encode.Cumulative(work, encode.CumulativeSpec{
			Field:   cm.Field,
			Group:   cm.Group,
			InPlace: inPlace || work != t,
		})
		if err != nil {
			return nil, err
		}
		work = derived
	}
	return work, nil
}

// classify builds the effect metadata for the random design matrix and
// layers the configured pooling tags (or the per-group defaults).
func (p *Preparer) classify(random *design.Matrix, pair formula.Pair, cfg Config) (*table.Table, error) {
	meta := effects.Classify(random.Names)

	tags := cfg.PoolTags
	if len(tags) == 0 && !pair.Random.Empty() {
		for _, g := range pair.Random.GroupFactors {
			tags = append(tags, PoolTag{Prefix: g + "_"})
		}
	}

	for _, pt := range tags {
		spec := effects.PoolSpec{Tag: pt.Tag, InPlace: true}
		switch {
		case pt.Prefix != "":
			spec.Match = effects.PrefixMatch
			spec.Config = effects.MatchConfig{Prefix: pt.Prefix}
		case pt.Pattern != "":
			spec.Match = effects.RegexMatch
			spec.Config = effects.MatchConfig{Pattern: pt.Pattern}
		case len(pt.Names) > 0:
			spec.Match = effects.SetMatch
			spec.Config = effects.MatchConfig{Names: pt.Names}
		default:
			return nil, fmt.Errorf("pipeline: pool tag %q has no selector", pt.Tag)
		}
		if _, err := effects.ApplyPooling(meta, spec); err != nil {
			return nil, err
		}
	}
	return meta, nil
}

// fixedOrNil maps an empty formula to the nil matrix so the serializer
// emits the all-empty default record for the absent component.
func fixedOrNil(f *formula.Formula, m *design.Matrix) *design.Matrix {
	if f.Empty() {
		return nil
	}
	return m
}

func (p *Preparer) logf() func(format string, v ...any) {
	if p.Logger == nil {
		return func(string, ...any) {}
	}
	return p.Logger.Printf
}

func (p *Preparer) backend() metrics.Backend {
	if p.Metrics == nil {
		return metrics.Nop{}
	}
	return p.Metrics
}

func durMS(start time.Time) time.Duration { return time.Since(start).Truncate(time.Millisecond) }
