package observability

import (
	"fmt"
	"math"
	"net/http"
	"strings"
)

// PrometheusExporter serves metrics in Prometheus text exposition format.
type PrometheusExporter struct {
	registry *Registry
}

// NewPrometheusExporter creates a new exporter backed by the given registry.
func NewPrometheusExporter(registry *Registry) *PrometheusExporter {
	return &PrometheusExporter{registry: registry}
}

// ServeHTTP implements http.Handler for the /metrics endpoint.
func (e *PrometheusExporter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(e.Format()))
}

// Format returns all metrics in Prometheus text exposition format.
//
//	# HELP <name> <help>
//	# TYPE <name> <type>
//	<name> <value>
func (e *PrometheusExporter) Format() string {
	var b strings.Builder

	e.registry.mu.RLock()
	defer e.registry.mu.RUnlock()

	for _, name := range sortedKeys(e.registry.counters) {
		c := e.registry.counters[name]
		fmt.Fprintf(&b, "# HELP %s %s\n", c.name, c.help)
		fmt.Fprintf(&b, "# TYPE %s counter\n", c.name)
		fmt.Fprintf(&b, "%s %s\n\n", c.name, formatFloat(c.Value()))
	}

	for _, name := range sortedKeys(e.registry.gauges) {
		g := e.registry.gauges[name]
		fmt.Fprintf(&b, "# HELP %s %s\n", g.name, g.help)
		fmt.Fprintf(&b, "# TYPE %s gauge\n", g.name)
		fmt.Fprintf(&b, "%s %s\n\n", g.name, formatFloat(g.Value()))
	}

	for _, name := range sortedKeys(e.registry.histograms) {
		h := e.registry.histograms[name]
		buckets, counts, sum, count := h.BucketCounts()

		fmt.Fprintf(&b, "# HELP %s %s\n", h.name, h.help)
		fmt.Fprintf(&b, "# TYPE %s histogram\n", h.name)
		for i, bound := range buckets {
			fmt.Fprintf(&b, "%s_bucket{le=%q} %d\n", h.name, formatFloat(bound), counts[i])
		}
		fmt.Fprintf(&b, "%s_bucket{le=\"+Inf\"} %d\n", h.name, count)
		fmt.Fprintf(&b, "%s_sum %s\n", h.name, formatFloat(sum))
		fmt.Fprintf(&b, "%s_count %d\n\n", h.name, count)
	}

	return b.String()
}

// formatFloat formats a float64 for Prometheus output.
func formatFloat(v float64) string {
	if math.IsInf(v, 1) {
		return "+Inf"
	}
	if math.IsInf(v, -1) {
		return "-Inf"
	}
	if math.IsNaN(v) {
		return "NaN"
	}
	return fmt.Sprintf("%g", v)
}
