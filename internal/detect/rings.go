package detect

import (
	"fmt"
	"math"
)

// ---------------------------------------------------------------------------
// Ring types — one value per detected pattern instance, immutable once built
// ---------------------------------------------------------------------------

// Direction classifies which side of a smurfing hub is flagged.
type Direction string

const (
	DirectionFanIn  Direction = "fan_in"
	DirectionFanOut Direction = "fan_out"
	DirectionBoth   Direction = "both"
)

// CycleRing is a closed loop of fund flow, 3 to 5 accounts long.
type CycleRing struct {
	RingID            string   `json:"ring_id"`
	Members           []string `json:"member_accounts"` // in cycle order, canonical rotation
	Length            int      `json:"cycle_length"`
	RiskScore         float64  `json:"risk_score"`
	TemporalProximity bool     `json:"temporal_proximity"`
	AmountSimilarity  bool     `json:"amount_similarity"`
}

// SmurfingRing is an aggregation/distribution hub with its counterparties.
type SmurfingRing struct {
	RingID         string    `json:"ring_id"`
	Members        []string  `json:"member_accounts"` // hub first, counterparties sorted
	Hub            string    `json:"hub_account"`
	Direction      Direction `json:"direction"`
	Velocity       float64   `json:"velocity_ratio"`
	Redistribution bool      `json:"redistribution"`
	RiskScore      float64   `json:"risk_score"`
}

// LayeringRing is a pass-through chain dominated by shell intermediaries.
type LayeringRing struct {
	RingID             string   `json:"ring_id"`
	Members            []string `json:"member_accounts"` // chain order
	HopCount           int      `json:"hop_count"`
	ShellCount         int      `json:"shell_count"`
	TemporalContinuity bool     `json:"temporal_continuity"`
	AmountPreservation bool     `json:"amount_preservation"`
	RiskScore          float64  `json:"risk_score"`
}

// RingCounter hands out globally unique ring ids. One counter is threaded
// through all three detectors so ids never collide within a run.
type RingCounter struct {
	n int
}

// Next allocates the next ring id.
func (c *RingCounter) Next() string {
	c.n++
	return fmt.Sprintf("RING_%03d", c.n)
}

// Count returns how many ids have been allocated.
func (c *RingCounter) Count() int {
	return c.n
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
