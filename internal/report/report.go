package report

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Gautam825406/Finance-crime-detection/internal/detect"
	"github.com/Gautam825406/Finance-crime-detection/internal/graph"
	"github.com/Gautam825406/Finance-crime-detection/internal/score"
)

// ---------------------------------------------------------------------------
// Fraud Report — the single JSON artifact an analysis run produces
// ---------------------------------------------------------------------------

// FraudRing is one detected pattern instance in report form. RiskScore
// shares score.Value's one-decimal JSON rendering, so 60 serializes as 60.0.
type FraudRing struct {
	RingID      string      `json:"ring_id"`
	Members     []string    `json:"member_accounts"`
	PatternType string      `json:"pattern_type"`
	RiskScore   score.Value `json:"risk_score"`
}

// Seconds is a duration serialized with exactly two decimal digits.
type Seconds float64

// MarshalJSON renders the duration as a number with two decimals (e.g. 0.12).
func (s Seconds) MarshalJSON() ([]byte, error) {
	rounded := math.Round(float64(s)*100) / 100
	return []byte(strconv.FormatFloat(rounded, 'f', 2, 64)), nil
}

// Pattern types for FraudRing.PatternType.
const (
	PatternCycle    = "cycle"
	PatternSmurfing = "smurfing"
	PatternLayering = "layering"
)

// Summary carries run-level aggregates.
type Summary struct {
	TotalAccountsAnalyzed     int     `json:"total_accounts_analyzed"`
	SuspiciousAccountsFlagged int     `json:"suspicious_accounts_flagged"`
	FraudRingsDetected        int     `json:"fraud_rings_detected"`
	ProcessingTimeSeconds     Seconds `json:"processing_time_seconds"`
	TotalVolume               string  `json:"total_volume"`
}

// Report is the complete output of one analysis run.
type Report struct {
	RunID              string                    `json:"run_id"`
	SuspiciousAccounts []score.SuspiciousAccount `json:"suspicious_accounts"`
	FraudRings         []FraudRing               `json:"fraud_rings"`
	Summary            Summary                   `json:"summary"`
}

// Assemble builds a report from the detector and scorer outputs.
// Ring order follows ring id allocation order: cycles, smurfing, layering.
func Assemble(g *graph.Graph, accounts []score.SuspiciousAccount,
	cycles []detect.CycleRing, smurfs []detect.SmurfingRing, layers []detect.LayeringRing,
	elapsedSeconds float64) *Report {

	rings := make([]FraudRing, 0, len(cycles)+len(smurfs)+len(layers))
	for _, r := range cycles {
		rings = append(rings, FraudRing{
			RingID:      r.RingID,
			Members:     r.Members,
			PatternType: PatternCycle,
			RiskScore:   score.Value(r.RiskScore),
		})
	}
	for _, r := range smurfs {
		rings = append(rings, FraudRing{
			RingID:      r.RingID,
			Members:     r.Members,
			PatternType: PatternSmurfing,
			RiskScore:   score.Value(r.RiskScore),
		})
	}
	for _, r := range layers {
		rings = append(rings, FraudRing{
			RingID:      r.RingID,
			Members:     r.Members,
			PatternType: PatternLayering,
			RiskScore:   score.Value(r.RiskScore),
		})
	}

	volume := decimal.Zero
	for _, id := range g.AccountIDs() {
		for _, tx := range g.Nodes[id].Outgoing {
			volume = volume.Add(decimal.NewFromFloat(tx.Amount))
		}
	}

	return &Report{
		RunID:              uuid.NewString(),
		SuspiciousAccounts: accounts,
		FraudRings:         rings,
		Summary: Summary{
			TotalAccountsAnalyzed:     len(g.Nodes),
			SuspiciousAccountsFlagged: len(accounts),
			FraudRingsDetected:        len(rings),
			ProcessingTimeSeconds:     Seconds(math.Round(elapsedSeconds*100) / 100),
			TotalVolume:               volume.StringFixed(2),
		},
	}
}

// Validate checks the report's structural invariants and fails loudly on the
// first violation. A report that fails validation must not be served.
func (r *Report) Validate() error {
	if _, err := uuid.Parse(r.RunID); err != nil {
		return fmt.Errorf("report: run_id %q is not a uuid: %w", r.RunID, err)
	}

	prev := math.Inf(1)
	prevID := ""
	for i, a := range r.SuspiciousAccounts {
		s := float64(a.SuspicionScore)
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return fmt.Errorf("report: account %s has non-finite score", a.AccountID)
		}
		if s < 0 || s > 100 {
			return fmt.Errorf("report: account %s score %.1f out of range", a.AccountID, s)
		}
		if s > prev || (s == prev && a.AccountID < prevID) {
			return fmt.Errorf("report: suspicious_accounts out of order at index %d", i)
		}
		prev, prevID = s, a.AccountID
		if len(a.Patterns) == 0 {
			return fmt.Errorf("report: account %s has no patterns", a.AccountID)
		}
		if !sort.StringsAreSorted(a.Patterns) {
			return fmt.Errorf("report: account %s patterns not sorted", a.AccountID)
		}
		for _, p := range a.Patterns {
			if !score.Labels[p] {
				return fmt.Errorf("report: account %s has unknown pattern %q", a.AccountID, p)
			}
		}
	}

	seen := make(map[string]bool, len(r.FraudRings))
	for _, ring := range r.FraudRings {
		if seen[ring.RingID] {
			return fmt.Errorf("report: duplicate ring id %s", ring.RingID)
		}
		seen[ring.RingID] = true
		if len(ring.Members) == 0 {
			return fmt.Errorf("report: ring %s has no members", ring.RingID)
		}
		switch ring.PatternType {
		case PatternCycle, PatternSmurfing, PatternLayering:
		default:
			return fmt.Errorf("report: ring %s has unknown pattern type %q", ring.RingID, ring.PatternType)
		}
		rs := float64(ring.RiskScore)
		if math.IsNaN(rs) || rs < 0 || rs > 100 {
			return fmt.Errorf("report: ring %s risk score %.1f out of range", ring.RingID, rs)
		}
	}

	if r.Summary.FraudRingsDetected != len(r.FraudRings) {
		return fmt.Errorf("report: summary ring count %d != %d", r.Summary.FraudRingsDetected, len(r.FraudRings))
	}
	if r.Summary.SuspiciousAccountsFlagged != len(r.SuspiciousAccounts) {
		return fmt.Errorf("report: summary account count %d != %d", r.Summary.SuspiciousAccountsFlagged, len(r.SuspiciousAccounts))
	}
	return nil
}
