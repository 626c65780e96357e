package score

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/Gautam825406/Finance-crime-detection/internal/detect"
	"github.com/Gautam825406/Finance-crime-detection/internal/graph"
)

// ---------------------------------------------------------------------------
// Suspicion Scorer — merges detector outputs into one 0-100 score per account
// Best ring per pattern family counts once; families sum; legitimate-activity
// profiles deduct.
// ---------------------------------------------------------------------------

// Pattern labels. The vocabulary is closed; report validation rejects
// anything outside it.
const (
	LabelCycle3       = "cycle_length_3"
	LabelCycle4       = "cycle_length_4"
	LabelCycle5       = "cycle_length_5"
	LabelFanIn        = "fan_in"
	LabelFanOut       = "fan_out"
	LabelHighVelocity = "high_velocity"
	LabelLayeredShell = "layered_shell"
)

// Labels is the full closed vocabulary.
var Labels = map[string]bool{
	LabelCycle3:       true,
	LabelCycle4:       true,
	LabelCycle5:       true,
	LabelFanIn:        true,
	LabelFanOut:       true,
	LabelHighVelocity: true,
	LabelLayeredShell: true,
}

// Per-ring member contributions. Smurfing and layering contributions
// deliberately exclude the redistribution/evidence bonuses that only feed the
// ring's own risk score.
const (
	cycleBaseShort    = 40.0
	cycleBaseLong     = 30.0
	cycleEvidenceBump = 10.0
	smurfFanBump      = 35.0
	smurfVelocityBump = 15.0
	layerBase         = 25.0
	layerDepthBump    = 10.0

	merchantDeduction   = 30.0
	payrollDeduction    = 30.0
	recurringDeduction  = 15.0
	highVolumeDeduction = 40.0
	highVolumeActivity  = 200 // exclusive
	highVolumeCV        = 0.3
	velocityThreshold   = 0.70
)

// Value is a score serialized with exactly one decimal digit.
type Value float64

// MarshalJSON renders the score as a number with one decimal (e.g. 60.0).
// Rounds half away from zero, same as Score does, so 37.25 renders 37.3.
func (v Value) MarshalJSON() ([]byte, error) {
	rounded := math.Round(float64(v)*10) / 10
	return []byte(strconv.FormatFloat(rounded, 'f', 1, 64)), nil
}

// SuspiciousAccount is one entry of the ranked output. Recomputed fresh on
// every scoring pass, never stored on the graph.
type SuspiciousAccount struct {
	AccountID      string   `json:"account_id"`
	SuspicionScore Value    `json:"suspicion_score"`
	Patterns       []string `json:"detected_patterns"`
	RingID         string   `json:"ring_id"`
}

type accountEvidence struct {
	bestCycle float64
	bestSmurf float64
	bestLayer float64
	inCycle   bool
	labels    map[string]bool
	ringID    string
}

// Score aggregates the three detectors' rings into suspicious accounts,
// sorted descending by score with account id as the tie-break.
func Score(g *graph.Graph, cycles []detect.CycleRing, smurfs []detect.SmurfingRing, layers []detect.LayeringRing) []SuspiciousAccount {
	evidence := make(map[string]*accountEvidence)

	get := func(id string) *accountEvidence {
		ev, ok := evidence[id]
		if !ok {
			ev = &accountEvidence{labels: make(map[string]bool)}
			evidence[id] = ev
		}
		return ev
	}

	for _, ring := range cycles {
		contribution := cycleBaseLong
		if ring.Length == 3 {
			contribution = cycleBaseShort
		}
		if ring.TemporalProximity {
			contribution += cycleEvidenceBump
		}
		if ring.AmountSimilarity {
			contribution += cycleEvidenceBump
		}
		label := fmt.Sprintf("cycle_length_%d", ring.Length)
		for _, member := range ring.Members {
			ev := get(member)
			ev.inCycle = true
			if contribution > ev.bestCycle {
				ev.bestCycle = contribution
			}
			ev.labels[label] = true
			if ev.ringID == "" {
				ev.ringID = ring.RingID
			}
		}
	}

	for _, ring := range smurfs {
		contribution := 0.0
		fanIn := ring.Direction == detect.DirectionFanIn || ring.Direction == detect.DirectionBoth
		fanOut := ring.Direction == detect.DirectionFanOut || ring.Direction == detect.DirectionBoth
		if fanIn {
			contribution += smurfFanBump
		}
		if fanOut {
			contribution += smurfFanBump
		}
		fastVelocity := ring.Velocity >= velocityThreshold
		if fastVelocity {
			contribution += smurfVelocityBump
		}
		for _, member := range ring.Members {
			ev := get(member)
			if contribution > ev.bestSmurf {
				ev.bestSmurf = contribution
			}
			if fanIn {
				ev.labels[LabelFanIn] = true
			}
			if fanOut {
				ev.labels[LabelFanOut] = true
			}
			if fastVelocity {
				ev.labels[LabelHighVelocity] = true
			}
			if ev.ringID == "" {
				ev.ringID = ring.RingID
			}
		}
	}

	for _, ring := range layers {
		contribution := layerBase
		if ring.HopCount > 3 {
			contribution += layerDepthBump
		}
		for _, member := range ring.Members {
			ev := get(member)
			if contribution > ev.bestLayer {
				ev.bestLayer = contribution
			}
			ev.labels[LabelLayeredShell] = true
			if ev.ringID == "" {
				ev.ringID = ring.RingID
			}
		}
	}

	accounts := make([]SuspiciousAccount, 0, len(evidence))
	for id, ev := range evidence {
		total := ev.bestCycle + ev.bestSmurf + ev.bestLayer
		total -= deductions(g.Nodes[id], ev.inCycle)
		if total <= 0 {
			continue
		}
		if total > 100 {
			total = 100
		}

		labels := make([]string, 0, len(ev.labels))
		for l := range ev.labels {
			labels = append(labels, l)
		}
		sort.Strings(labels)

		accounts = append(accounts, SuspiciousAccount{
			AccountID:      id,
			SuspicionScore: Value(math.Round(total*10) / 10),
			Patterns:       labels,
			RingID:         ev.ringID,
		})
	}

	sort.Slice(accounts, func(i, j int) bool {
		if accounts[i].SuspicionScore != accounts[j].SuspicionScore {
			return accounts[i].SuspicionScore > accounts[j].SuspicionScore
		}
		return accounts[i].AccountID < accounts[j].AccountID
	})

	log.Debug().Int("accounts", len(accounts)).Msg("score: scoring complete")
	return accounts
}

// deductions applies the false-positive profile and the high-volume-merchant
// override. Cycle membership is never safe to dismiss, so the override only
// applies outside cycles.
func deductions(node *graph.AccountNode, inCycle bool) float64 {
	if node == nil {
		return 0
	}

	d := 0.0
	profile := detect.ProfileAccount(node)
	if profile.MerchantLike {
		d += merchantDeduction
	}
	if profile.PayrollLike {
		d += payrollDeduction
	}
	if profile.StableRecurring {
		d += recurringDeduction
	}

	if node.Activity() > highVolumeActivity && !inCycle {
		if cv, ok := detect.CoefVariation(node.AllAmounts()); ok && cv < highVolumeCV {
			d += highVolumeDeduction
		}
	}
	return d
}
