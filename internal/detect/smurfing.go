package detect

import (
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/Gautam825406/Finance-crime-detection/internal/graph"
)

// ---------------------------------------------------------------------------
// Smurfing Detector — sliding-window fan-in/fan-out analysis per account
// A hub aggregating from (or distributing to) many counterparties inside a
// short window is flagged, unless it profiles as a merchant or payroll run.
// ---------------------------------------------------------------------------

// SmurfingDetector finds aggregation/distribution hubs.
type SmurfingDetector struct {
	cfg Config
}

// NewSmurfingDetector creates a smurfing detector with the given thresholds.
func NewSmurfingDetector(cfg Config) *SmurfingDetector {
	return &SmurfingDetector{cfg: cfg}
}

// windowStats summarizes one candidate time window around a hub.
type windowStats struct {
	start, end int64
	fanIn      int
	fanOut     int
	inSum      float64
	outSum     float64
	senders    map[string]bool
	receivers  map[string]bool
}

// Detect scans every account in sorted order and returns up to MaxSmurfing
// rings. Accounts whose profile is merchant-like or payroll-like are hard
// suppressed at detection time, not merely down-scored.
func (d *SmurfingDetector) Detect(g *graph.Graph, rc *RingCounter) []SmurfingRing {
	var rings []SmurfingRing

	for _, id := range g.AccountIDs() {
		if len(rings) >= d.cfg.MaxSmurfing {
			log.Warn().Int("patterns", len(rings)).Msg("smurfing: result cap reached, stopping scan")
			break
		}
		node := g.Nodes[id]
		if node.Activity() == 0 {
			continue
		}
		if ring, ok := d.analyzeAccount(node, rc); ok {
			rings = append(rings, ring)
		}
	}

	log.Debug().Int("patterns", len(rings)).Msg("smurfing: detection complete")
	return rings
}

func (d *SmurfingDetector) analyzeAccount(node *graph.AccountNode, rc *RingCounter) (SmurfingRing, bool) {
	window := int64(d.cfg.SmurfWindowHours) * hourMillis

	var (
		bestFanIn   *windowStats
		bestFanOut  *windowStats
		maxVelocity float64
	)
	for _, start := range d.candidateStarts(node) {
		ws := d.windowStats(node, start, start+window)

		if bestFanIn == nil || ws.fanIn > bestFanIn.fanIn {
			bestFanIn = ws
		}
		if bestFanOut == nil || ws.fanOut > bestFanOut.fanOut {
			bestFanOut = ws
		}
		velocity := 0.0
		if ws.inSum > 0 {
			velocity = ws.outSum / ws.inSum
			if velocity > 1.0 {
				velocity = 1.0
			}
		}
		if velocity > maxVelocity {
			maxVelocity = velocity
		}
	}

	fanInFlag := bestFanIn != nil && bestFanIn.fanIn >= d.cfg.FanThreshold
	fanOutFlag := bestFanOut != nil && bestFanOut.fanOut >= d.cfg.FanThreshold
	if !fanInFlag && !fanOutFlag {
		return SmurfingRing{}, false
	}

	// Redistribution: funds leaving shortly after the fan-in window, or
	// arriving shortly before the fan-out window. Evidence only, not a gate.
	redistribution := false
	if fanInFlag && bestFanIn.inSum > 0 {
		outAfter := d.sumOutgoing(node, bestFanIn.start, bestFanIn.end+window)
		if outAfter >= d.cfg.RedistributionRatio*bestFanIn.inSum {
			redistribution = true
		}
	}
	if !redistribution && fanOutFlag && bestFanOut.outSum > 0 {
		inBefore := d.sumIncoming(node, bestFanOut.start-window, bestFanOut.end)
		if inBefore >= d.cfg.RedistributionRatio*bestFanOut.outSum {
			redistribution = true
		}
	}

	// Merchants and payroll runs fan in/out legitimately.
	profile := ProfileAccount(node)
	if profile.MerchantLike || profile.PayrollLike {
		log.Debug().Str("account", node.ID).Msg("smurfing: hub suppressed by false-positive profile")
		return SmurfingRing{}, false
	}

	direction := DirectionBoth
	switch {
	case fanInFlag && !fanOutFlag:
		direction = DirectionFanIn
	case fanOutFlag && !fanInFlag:
		direction = DirectionFanOut
	}

	memberSet := make(map[string]bool)
	if fanInFlag {
		for s := range bestFanIn.senders {
			memberSet[s] = true
		}
	}
	if fanOutFlag {
		for r := range bestFanOut.receivers {
			memberSet[r] = true
		}
	}
	delete(memberSet, node.ID)
	counterparties := make([]string, 0, len(memberSet))
	for m := range memberSet {
		counterparties = append(counterparties, m)
	}
	sort.Strings(counterparties)
	members := append([]string{node.ID}, counterparties...)

	score := 0.0
	if fanInFlag {
		score += 35
	}
	if fanOutFlag {
		score += 35
	}
	if maxVelocity >= d.cfg.VelocityThreshold {
		score += 15
	}
	if redistribution {
		score += 10
	}

	return SmurfingRing{
		RingID:         rc.Next(),
		Members:        members,
		Hub:            node.ID,
		Direction:      direction,
		Velocity:       maxVelocity,
		Redistribution: redistribution,
		RiskScore:      round1(clampScore(score)),
	}, true
}

// candidateStarts opens one window per transaction across both directions,
// deduped by hour bucket so pathological accounts stay bounded.
func (d *SmurfingDetector) candidateStarts(node *graph.AccountNode) []int64 {
	merged := make([]int64, 0, node.Activity())
	for _, tx := range node.Incoming {
		merged = append(merged, tx.Timestamp)
	}
	for _, tx := range node.Outgoing {
		merged = append(merged, tx.Timestamp)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i] < merged[j] })

	seenHours := make(map[int64]bool)
	starts := make([]int64, 0, len(merged))
	for _, ts := range merged {
		bucket := ts / hourMillis
		if seenHours[bucket] {
			continue
		}
		seenHours[bucket] = true
		starts = append(starts, ts)
	}
	return starts
}

func (d *SmurfingDetector) windowStats(node *graph.AccountNode, start, end int64) *windowStats {
	ws := &windowStats{
		start:     start,
		end:       end,
		senders:   make(map[string]bool),
		receivers: make(map[string]bool),
	}
	for _, tx := range node.Incoming {
		if tx.Timestamp < start || tx.Timestamp > end {
			continue
		}
		ws.senders[tx.Sender] = true
		ws.inSum += tx.Amount
	}
	for _, tx := range node.Outgoing {
		if tx.Timestamp < start || tx.Timestamp > end {
			continue
		}
		ws.receivers[tx.Receiver] = true
		ws.outSum += tx.Amount
	}
	ws.fanIn = len(ws.senders)
	ws.fanOut = len(ws.receivers)
	return ws
}

func (d *SmurfingDetector) sumOutgoing(node *graph.AccountNode, start, end int64) float64 {
	sum := 0.0
	for _, tx := range node.Outgoing {
		if tx.Timestamp >= start && tx.Timestamp <= end {
			sum += tx.Amount
		}
	}
	return sum
}

func (d *SmurfingDetector) sumIncoming(node *graph.AccountNode, start, end int64) float64 {
	sum := 0.0
	for _, tx := range node.Incoming {
		if tx.Timestamp >= start && tx.Timestamp <= end {
			sum += tx.Amount
		}
	}
	return sum
}
