package detect

import (
	"math"

	"github.com/Gautam825406/Finance-crime-detection/internal/graph"
)

// ---------------------------------------------------------------------------
// False-Positive Profile — legitimate-activity heuristics per account
// Merchants, payroll runs and stable recurring relationships trip the same
// volume thresholds as launderers; these profiles tell them apart.
// ---------------------------------------------------------------------------

const (
	merchantMinInDegree = 20
	merchantMinActivity = 200 // exclusive
	merchantMinIncoming = 10
	merchantMaxCV       = 0.4
	merchantDegreeRatio = 3

	payrollMinOutDegree  = 5
	payrollMinOutgoing   = 5
	payrollTightShare    = 0.70
	payrollAmountCV      = 0.10
	payrollRelaxedShare  = 0.50
	payrollPeriodicShare = 0.50
	payrollGapCV         = 0.3

	stableMinActivity = 6
	stableShare       = 0.60
	stableRepeats     = 3
)

// Profile marks an account as likely-legitimate along three independent axes.
type Profile struct {
	MerchantLike    bool `json:"is_merchant_like"`
	PayrollLike     bool `json:"is_payroll_like"`
	StableRecurring bool `json:"is_stable_recurring"`
}

// ProfileAccount computes the false-positive profile for one account node.
// Pure function of the node; recomputed on demand, never persisted.
func ProfileAccount(n *graph.AccountNode) Profile {
	if n == nil {
		return Profile{}
	}
	return Profile{
		MerchantLike:    merchantLike(n),
		PayrollLike:     payrollLike(n),
		StableRecurring: stableRecurring(n),
	}
}

// merchantLike: high inbound volume with uniform amounts and inbound dominance.
func merchantLike(n *graph.AccountNode) bool {
	if n.InDegree < merchantMinInDegree && n.Activity() <= merchantMinActivity {
		return false
	}
	if len(n.Incoming) < merchantMinIncoming {
		return false
	}
	amounts := make([]float64, 0, len(n.Incoming))
	for _, tx := range n.Incoming {
		amounts = append(amounts, tx.Amount)
	}
	cv, ok := CoefVariation(amounts)
	if !ok || cv >= merchantMaxCV {
		return false
	}
	return n.InDegree > merchantDegreeRatio*n.OutDegree
}

// payrollLike: many receivers paid near-identical amounts, optionally on a
// regular schedule. Receivers paid a single time never count toward the
// tight or periodic numerators (one payment has no amount or cadence
// consistency to measure) but stay in the denominator, so an account that
// pays every counterparty exactly once cannot profile as payroll. Relaxing
// this would suppress every one-shot fan-out hub. See DESIGN.md.
func payrollLike(n *graph.AccountNode) bool {
	if n.OutDegree < payrollMinOutDegree || len(n.Outgoing) < payrollMinOutgoing {
		return false
	}

	byReceiver := make(map[string][]*graph.Transaction)
	for _, tx := range n.Outgoing {
		byReceiver[tx.Receiver] = append(byReceiver[tx.Receiver], tx)
	}
	if len(byReceiver) == 0 {
		return false
	}

	tight := 0
	periodic := 0
	for _, txs := range byReceiver {
		// A single payment carries no consistency evidence either way.
		if len(txs) < 2 {
			continue
		}
		amounts := make([]float64, 0, len(txs))
		gaps := make([]float64, 0, len(txs)-1)
		for i, tx := range txs {
			amounts = append(amounts, tx.Amount)
			if i > 0 {
				gaps = append(gaps, float64(tx.Timestamp-txs[i-1].Timestamp))
			}
		}
		if cv, ok := CoefVariation(amounts); ok && cv < payrollAmountCV {
			tight++
		}
		if cv, ok := CoefVariation(gaps); ok && cv < payrollGapCV {
			periodic++
		}
	}

	total := float64(len(byReceiver))
	tightShare := float64(tight) / total
	if tightShare >= payrollTightShare {
		return true
	}
	return tightShare >= payrollRelaxedShare && float64(periodic)/total >= payrollPeriodicShare
}

// stableRecurring: most counterparties are repeat counterparties.
func stableRecurring(n *graph.AccountNode) bool {
	if n.Activity() < stableMinActivity {
		return false
	}
	counts := make(map[string]int)
	for _, tx := range n.Incoming {
		counts[tx.Sender]++
	}
	for _, tx := range n.Outgoing {
		counts[tx.Receiver]++
	}
	if len(counts) == 0 {
		return false
	}
	repeated := 0
	for _, c := range counts {
		if c >= stableRepeats {
			repeated++
		}
	}
	return float64(repeated)/float64(len(counts)) >= stableShare
}

// CoefVariation returns stddev/mean. ok is false when the series is empty or
// its mean is zero, so callers never divide by zero.
func CoefVariation(xs []float64) (cv float64, ok bool) {
	if len(xs) == 0 {
		return 0, false
	}
	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	if mean == 0 {
		return 0, false
	}
	variance := 0.0
	for _, x := range xs {
		d := x - mean
		variance += d * d
	}
	variance /= float64(len(xs))
	return math.Sqrt(variance) / mean, true
}
