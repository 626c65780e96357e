package observability

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"
)

// ---------------------------------------------------------------------------
// Metrics — in-process counters, gauges and histograms for the detection
// pipeline, exposed via the Prometheus text exporter
// ---------------------------------------------------------------------------

// Counter is a monotonically increasing counter. The value is stored as
// int64 * 1000 so fractional increments stay lock-free via atomics.
type Counter struct {
	name  string
	help  string
	value atomic.Int64
}

// Inc increments the counter by 1.
func (c *Counter) Inc() {
	c.value.Add(1000)
}

// Add increments the counter by delta. Negative deltas are ignored.
func (c *Counter) Add(delta float64) {
	if delta < 0 {
		return
	}
	c.value.Add(int64(math.Round(delta * 1000)))
}

// Value returns the current counter value.
func (c *Counter) Value() float64 {
	return float64(c.value.Load()) / 1000.0
}

// Gauge can go up and down.
type Gauge struct {
	name string
	help string
	mu   sync.Mutex
	v    float64
}

// Set sets the gauge to the given value.
func (g *Gauge) Set(v float64) {
	g.mu.Lock()
	g.v = v
	g.mu.Unlock()
}

// Add adds delta to the gauge (may be negative).
func (g *Gauge) Add(delta float64) {
	g.mu.Lock()
	g.v += delta
	g.mu.Unlock()
}

// Value returns the current gauge value.
func (g *Gauge) Value() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.v
}

// Histogram tracks value distributions in cumulative buckets.
// Buckets are upper-bound inclusive: a value <= buckets[i] increments counts[i].
type Histogram struct {
	name    string
	help    string
	mu      sync.Mutex
	buckets []float64 // sorted upper bounds
	counts  []int64
	sum     float64
	count   int64
}

// Observe records a value into the histogram.
func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sum += v
	h.count++
	for i, b := range h.buckets {
		if v <= b {
			h.counts[i]++
		}
	}
}

// Count returns the total number of observations.
func (h *Histogram) Count() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

// Sum returns the sum of all observed values.
func (h *Histogram) Sum() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sum
}

// BucketCounts returns a snapshot of (upper-bound, cumulative-count) pairs
// plus the running sum and count. Used by the Prometheus exporter.
func (h *Histogram) BucketCounts() (buckets []float64, counts []int64, sum float64, count int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	b := make([]float64, len(h.buckets))
	c := make([]int64, len(h.counts))
	copy(b, h.buckets)
	copy(c, h.counts)
	return b, c, h.sum, h.count
}

// Registry manages all metrics. It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	counters   map[string]*Counter
	gauges     map[string]*Gauge
	histograms map[string]*Histogram
}

// NewRegistry creates an empty metric registry.
func NewRegistry() *Registry {
	return &Registry{
		counters:   make(map[string]*Counter),
		gauges:     make(map[string]*Gauge),
		histograms: make(map[string]*Histogram),
	}
}

// NewCounter registers and returns a counter. Registering an existing name
// returns the existing metric.
func (r *Registry) NewCounter(name, help string) *Counter {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.counters[name]; ok {
		return existing
	}
	c := &Counter{name: name, help: help}
	r.counters[name] = c
	return c
}

// NewGauge registers and returns a gauge. Registering an existing name
// returns the existing metric.
func (r *Registry) NewGauge(name, help string) *Gauge {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.gauges[name]; ok {
		return existing
	}
	g := &Gauge{name: name, help: help}
	r.gauges[name] = g
	return g
}

// NewHistogram registers and returns a histogram with the given bucket
// upper bounds. Registering an existing name returns the existing metric.
func (r *Registry) NewHistogram(name, help string, buckets []float64) *Histogram {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.histograms[name]; ok {
		return existing
	}
	sorted := make([]float64, len(buckets))
	copy(sorted, buckets)
	sort.Float64s(sorted)

	h := &Histogram{
		name:    name,
		help:    help,
		buckets: sorted,
		counts:  make([]int64, len(sorted)),
	}
	r.histograms[name] = h
	return h
}

// GetCounter returns a registered counter or nil.
func (r *Registry) GetCounter(name string) *Counter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.counters[name]
}

// GetGauge returns a registered gauge or nil.
func (r *Registry) GetGauge(name string) *Gauge {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.gauges[name]
}

// GetHistogram returns a registered histogram or nil.
func (r *Registry) GetHistogram(name string) *Histogram {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.histograms[name]
}

// DefaultLatencyBuckets for latency histograms (in milliseconds).
var DefaultLatencyBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}

// Standard metric names used by the pipeline and server.
const (
	MetricRunsTotal         = "amld_analysis_runs_total"
	MetricRunFailuresTotal  = "amld_analysis_failures_total"
	MetricRowsIngestedTotal = "amld_rows_ingested_total"
	MetricRowErrorsTotal    = "amld_row_errors_total"
	MetricCycleRings        = "amld_cycle_rings_total"
	MetricSmurfingRings     = "amld_smurfing_rings_total"
	MetricLayeringRings     = "amld_layering_rings_total"
	MetricFlaggedAccounts   = "amld_flagged_accounts_last_run"
	MetricGraphAccounts     = "amld_graph_accounts_last_run"
	MetricAnalysisLatency   = "amld_analysis_latency_ms"
)

// PipelineMetrics creates a registry pre-populated with the standard
// detection pipeline metrics.
func PipelineMetrics() *Registry {
	r := NewRegistry()

	r.NewCounter(MetricRunsTotal, "Total analysis runs completed")
	r.NewCounter(MetricRunFailuresTotal, "Total analysis runs that failed")
	r.NewCounter(MetricRowsIngestedTotal, "Total CSV rows accepted")
	r.NewCounter(MetricRowErrorsTotal, "Total CSV rows rejected")
	r.NewCounter(MetricCycleRings, "Total cycle rings detected")
	r.NewCounter(MetricSmurfingRings, "Total smurfing rings detected")
	r.NewCounter(MetricLayeringRings, "Total layering rings detected")

	r.NewGauge(MetricFlaggedAccounts, "Suspicious accounts flagged in the last run")
	r.NewGauge(MetricGraphAccounts, "Accounts in the graph of the last run")

	r.NewHistogram(MetricAnalysisLatency, "End-to-end analysis latency in milliseconds", DefaultLatencyBuckets)

	return r
}

// sortedKeys returns sorted keys for any map[string]V.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
