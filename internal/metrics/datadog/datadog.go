// Package datadog implements a Datadog backend for the internal/metrics
// package.
//
// Data-preparation runs are short-lived, so the backend buffers metrics
// in-memory, flushes on a ticker for long batch jobs, and flushes one
// final time on Close. Buffers are snapshot+reset under a mutex and
// submitted out-of-lock.
package datadog

import (
	"context"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	dd "github.com/DataDog/datadog-api-client-go/v2/api/datadog"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"
)

// Options controls backend configuration.
type Options struct {
	// JobName becomes tag "job:<name>" on every metric. Defaults to
	// "bayesprep".
	JobName string

	// Tags are extra Datadog tags (e.g. []string{"env:prod"}).
	Tags []string

	// FlushEvery controls submission cadence. Defaults to 60 seconds.
	FlushEvery time.Duration

	// Unexported test seams. Production never sets them; unit tests use
	// them to avoid real submission and nondeterministic clocks.
	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker
	submitter metricsSubmitter
}

// metricsSubmitter is the minimal surface needed to submit metrics. The
// SDK exposes a concrete *datadogV2.MetricsApi; depending on this private
// interface instead keeps the backend testable without HTTP.
type metricsSubmitter interface {
	SubmitMetrics(ctx context.Context, body datadogV2.MetricPayload, params ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error)
}

// Backend implements metrics.Backend for Datadog.
type Backend struct {
	api      metricsSubmitter
	ctx      context.Context
	baseTags []string

	flushEvery time.Duration
	stopCh     chan struct{}
	doneCh     chan struct{}

	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker

	mu       sync.Mutex
	counts   map[string]float64   // "name|tag,tag" -> total
	duration map[string][]float64 // "name|tag,tag" -> seconds samples
}

// New constructs a Datadog backend using the official client and starts
// the periodic flush loop.
func New(parent context.Context, opts Options) (*Backend, error) {
	job := opts.JobName
	if job == "" {
		job = "bayesprep"
	}
	flushEvery := opts.FlushEvery
	if flushEvery <= 0 {
		flushEvery = 60 * time.Second
	}

	baseTags := append([]string{resolveEnvTag(), "job:" + job}, opts.Tags...)

	nowFn := opts.now
	if nowFn == nil {
		nowFn = time.Now
	}
	tickerFn := opts.newTicker
	if tickerFn == nil {
		tickerFn = time.NewTicker
	}
	submitter := opts.submitter
	if submitter == nil {
		client := dd.NewAPIClient(dd.NewConfiguration())
		submitter = datadogV2.NewMetricsApi(client)
	}

	b := &Backend{
		api:        submitter,
		ctx:        dd.NewDefaultContext(parent),
		baseTags:   baseTags,
		flushEvery: flushEvery,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
		now:        nowFn,
		newTicker:  tickerFn,
		counts:     make(map[string]float64),
		duration:   make(map[string][]float64),
	}
	go b.loop()
	return b, nil
}

func resolveEnvTag() string {
	if v := strings.TrimSpace(os.Getenv("ENV")); v != "" {
		return "env:" + v
	}
	if v := strings.TrimSpace(os.Getenv("DD_ENV")); v != "" {
		return "env:" + v
	}
	return "env:unknown"
}

func (b *Backend) loop() {
	defer close(b.doneCh)
	t := b.newTicker(b.flushEvery)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			_ = b.Flush(b.ctx)
		case <-b.stopCh:
			return
		}
	}
}

// IncCounter implements metrics.Backend.
func (b *Backend) IncCounter(name string, delta float64, tags ...string) {
	if delta <= 0 {
		return
	}
	k := bufferKey(name, tags)
	b.mu.Lock()
	b.counts[k] += delta
	b.mu.Unlock()
}

// ObserveDuration implements metrics.Backend.
func (b *Backend) ObserveDuration(name string, d time.Duration, tags ...string) {
	if d < 0 {
		return
	}
	k := bufferKey(name, tags)
	b.mu.Lock()
	b.duration[k] = append(b.duration[k], d.Seconds())
	b.mu.Unlock()
}

// Flush submits buffered metrics and resets buffers. Buffers are reset
// even when submission fails, to keep preparation runs from blocking on a
// metrics outage.
func (b *Backend) Flush(ctx context.Context) error {
	counts, durations := b.snapshotAndReset()
	if len(counts) == 0 && len(durations) == 0 {
		return nil
	}

	series := buildSeries(b.baseTags, counts, durations, b.now().Unix())
	payload := datadogV2.MetricPayload{Series: series}

	_, _, err := b.api.SubmitMetrics(b.ctx, payload, *datadogV2.NewSubmitMetricsOptionalParameters())
	return err
}

// Close stops the flush loop and performs one final Flush. Close-once
// semantics: a second Close panics on the closed channel.
func (b *Backend) Close(ctx context.Context) error {
	close(b.stopCh)
	<-b.doneCh
	return b.Flush(ctx)
}

func (b *Backend) snapshotAndReset() (map[string]float64, map[string][]float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	counts, durations := b.counts, b.duration
	b.counts = make(map[string]float64)
	b.duration = make(map[string][]float64)
	return counts, durations
}

// buildSeries is pure (no locks, clocks, network), so it carries the
// naming/tagging contract and is unit-testable in isolation.
func buildSeries(baseTags []string, counts map[string]float64, durations map[string][]float64, nowUnix int64) []datadogV2.MetricSeries {
	series := make([]datadogV2.MetricSeries, 0, len(counts)+len(durations)*3)

	for k, v := range counts {
		if v == 0 {
			continue
		}
		name, tags := splitBufferKey(k)
		series = append(series, countSeries(name, v, append(append([]string(nil), baseTags...), tags...), nowUnix))
	}

	for k, samples := range durations {
		if len(samples) == 0 {
			continue
		}
		name, tags := splitBufferKey(k)
		full := append(append([]string(nil), baseTags...), tags...)

		cp := append([]float64(nil), samples...)
		sort.Float64s(cp)
		series = append(series,
			gaugeSeries(name+".p50", percentileNearestRank(cp, 0.50), full, nowUnix),
			gaugeSeries(name+".p95", percentileNearestRank(cp, 0.95), full, nowUnix),
			gaugeSeries(name+".max", cp[len(cp)-1], full, nowUnix),
			gaugeSeries(name+".samples", float64(len(cp)), full, nowUnix),
		)
	}
	return series
}

func countSeries(metric string, value float64, tags []string, nowUnix int64) datadogV2.MetricSeries {
	return datadogV2.MetricSeries{
		Metric: metric,
		Type:   datadogV2.METRICINTAKETYPE_COUNT.Ptr(),
		Points: []datadogV2.MetricPoint{
			{Timestamp: dd.PtrInt64(nowUnix), Value: dd.PtrFloat64(value)},
		},
		Tags: tags,
	}
}

func gaugeSeries(metric string, value float64, tags []string, nowUnix int64) datadogV2.MetricSeries {
	return datadogV2.MetricSeries{
		Metric: metric,
		Type:   datadogV2.METRICINTAKETYPE_GAUGE.Ptr(),
		Points: []datadogV2.MetricPoint{
			{Timestamp: dd.PtrInt64(nowUnix), Value: dd.PtrFloat64(value)},
		},
		Tags: tags,
	}
}

func bufferKey(name string, tags []string) string {
	if len(tags) == 0 {
		return name
	}
	sorted := append([]string(nil), tags...)
	sort.Strings(sorted)
	return name + "|" + strings.Join(sorted, ",")
}

func splitBufferKey(k string) (name string, tags []string) {
	name, rest, found := strings.Cut(k, "|")
	if !found || rest == "" {
		return name, nil
	}
	return name, strings.Split(rest, ",")
}

// percentileNearestRank returns the nearest-rank percentile of sorted
// samples.
func percentileNearestRank(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(q*float64(len(sorted)) + 0.5)
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}
