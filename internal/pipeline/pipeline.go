package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Gautam825406/Finance-crime-detection/internal/detect"
	"github.com/Gautam825406/Finance-crime-detection/internal/graph"
	"github.com/Gautam825406/Finance-crime-detection/internal/observability"
	"github.com/Gautam825406/Finance-crime-detection/internal/report"
	"github.com/Gautam825406/Finance-crime-detection/internal/score"
)

// ---------------------------------------------------------------------------
// Analysis Pipeline — batch orchestration
// build graph -> cycles -> smurfing -> layering -> score -> report
// ---------------------------------------------------------------------------

// Runner executes one full analysis over a transaction batch. A Runner is
// stateless between runs; the same instance can serve sequential requests.
type Runner struct {
	cfg     detect.Config
	metrics *observability.Registry
	health  *observability.Health
}

// New creates a Runner. metrics and health may be nil (e.g. in the CLI).
func New(cfg detect.Config, metrics *observability.Registry, health *observability.Health) *Runner {
	return &Runner{cfg: cfg, metrics: metrics, health: health}
}

// Run analyzes a batch of validated transactions and returns the report.
// The context bounds the whole run; detectors are checked between stages, so
// cancellation takes effect at stage boundaries.
func (r *Runner) Run(ctx context.Context, txs []graph.Transaction) (*report.Report, error) {
	start := time.Now()

	g := graph.Build(txs)
	log.Info().
		Int("transactions", len(txs)).
		Int("accounts", len(g.Nodes)).
		Msg("pipeline: graph built")

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// One counter across all detectors so ring ids never collide.
	rc := &detect.RingCounter{}

	cycles := detect.NewCycleDetector(r.cfg).Detect(g, rc)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	smurfs := detect.NewSmurfingDetector(r.cfg).Detect(g, rc)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	layers := detect.NewLayeringDetector(r.cfg).Detect(g, rc)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	accounts := score.Score(g, cycles, smurfs, layers)

	elapsed := time.Since(start)
	rep := report.Assemble(g, accounts, cycles, smurfs, layers, elapsed.Seconds())
	if err := rep.Validate(); err != nil {
		r.recordFailure(err)
		return nil, err
	}

	r.recordSuccess(rep, g, cycles, smurfs, layers, elapsed)

	log.Info().
		Str("run_id", rep.RunID).
		Int("cycles", len(cycles)).
		Int("smurfing", len(smurfs)).
		Int("layering", len(layers)).
		Int("flagged", len(accounts)).
		Dur("elapsed", elapsed).
		Msg("pipeline: run complete")
	return rep, nil
}

func (r *Runner) recordSuccess(rep *report.Report, g *graph.Graph,
	cycles []detect.CycleRing, smurfs []detect.SmurfingRing, layers []detect.LayeringRing,
	elapsed time.Duration) {

	if r.health != nil {
		r.health.RecordRun(rep.RunID)
	}
	if r.metrics == nil {
		return
	}
	r.metrics.GetCounter(observability.MetricRunsTotal).Inc()
	r.metrics.GetCounter(observability.MetricCycleRings).Add(float64(len(cycles)))
	r.metrics.GetCounter(observability.MetricSmurfingRings).Add(float64(len(smurfs)))
	r.metrics.GetCounter(observability.MetricLayeringRings).Add(float64(len(layers)))
	r.metrics.GetGauge(observability.MetricFlaggedAccounts).Set(float64(len(rep.SuspiciousAccounts)))
	r.metrics.GetGauge(observability.MetricGraphAccounts).Set(float64(len(g.Nodes)))
	r.metrics.GetHistogram(observability.MetricAnalysisLatency).Observe(float64(elapsed.Milliseconds()))
}

func (r *Runner) recordFailure(err error) {
	if r.health != nil {
		r.health.RecordFailure(err)
	}
	if r.metrics != nil {
		r.metrics.GetCounter(observability.MetricRunFailuresTotal).Inc()
	}
	log.Error().Err(err).Msg("pipeline: run failed validation")
}
