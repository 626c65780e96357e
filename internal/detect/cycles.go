package detect

import (
	"math"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/Gautam825406/Finance-crime-detection/internal/graph"
)

// ---------------------------------------------------------------------------
// Cycle Detector — bounded iterative DFS for directed cycles of length 3-5
// Each cycle is a closed loop of fund flow; rotations dedupe to one finding.
// ---------------------------------------------------------------------------

// CycleDetector finds simple directed cycles within the configured length
// bounds using an explicit work stack, so depth is bounded by data rather
// than by the host call stack.
type CycleDetector struct {
	cfg Config
}

// NewCycleDetector creates a cycle detector with the given thresholds.
func NewCycleDetector(cfg Config) *CycleDetector {
	return &CycleDetector{cfg: cfg}
}

// cycleFrame is one DFS state. Path and visited are copied on branch so
// sibling expansions never share mutable state.
type cycleFrame struct {
	node    string
	path    []string
	visited map[string]bool
}

// Detect returns every distinct cycle of MinCycleLength..MaxCycleLength
// nodes, up to MaxCycles. The set of canonical keys is identical across runs
// for a fixed graph: seeds and neighbors are iterated in sorted order.
func (d *CycleDetector) Detect(g *graph.Graph, rc *RingCounter) []CycleRing {
	var rings []CycleRing
	seen := make(map[string]bool)

	for _, start := range g.AccountIDs() {
		succs := g.Successors(start)
		if len(succs) == 0 {
			continue
		}

		for _, first := range succs {
			if first == start {
				continue // self-loop cannot seed a qualifying cycle
			}
			stack := []cycleFrame{{
				node:    first,
				path:    []string{start, first},
				visited: map[string]bool{start: true, first: true},
			}}

			for len(stack) > 0 {
				frame := stack[len(stack)-1]
				stack = stack[:len(stack)-1]

				if len(frame.path) >= d.cfg.MinCycleLength && g.HasEdge(frame.node, start) {
					members := frame.path
					key := canonicalKey(members)
					if !seen[key] {
						seen[key] = true
						rings = append(rings, d.buildRing(g, members, rc))
					}
				}

				if len(frame.path) >= d.cfg.MaxCycleLength {
					continue
				}
				for _, next := range g.Successors(frame.node) {
					if next == start || frame.visited[next] {
						continue
					}
					path := make([]string, len(frame.path), len(frame.path)+1)
					copy(path, frame.path)
					visited := make(map[string]bool, len(frame.visited)+1)
					for k := range frame.visited {
						visited[k] = true
					}
					visited[next] = true
					stack = append(stack, cycleFrame{
						node:    next,
						path:    append(path, next),
						visited: visited,
					})
				}
			}
		}

		// Hard ceiling against pathological graphs, checked per seed node.
		if len(rings) >= d.cfg.MaxCycles {
			log.Warn().Int("cycles", len(rings)).Msg("cycles: result cap reached, stopping search")
			break
		}
	}

	log.Debug().Int("cycles", len(rings)).Msg("cycles: detection complete")
	return rings
}

func (d *CycleDetector) buildRing(g *graph.Graph, members []string, rc *RingCounter) CycleRing {
	canonical := rotateToSmallest(members)
	temporal, similar := d.cycleEvidence(g, canonical)

	score := 30.0
	if len(canonical) == 3 {
		score = 40.0
	}
	if temporal {
		score += 10
	}
	if similar {
		score += 10
	}

	return CycleRing{
		RingID:            rc.Next(),
		Members:           canonical,
		Length:            len(canonical),
		RiskScore:         round1(clampScore(score)),
		TemporalProximity: temporal,
		AmountSimilarity:  similar,
	}
}

// cycleEvidence computes the two boolean evidence signals over every edge
// bucket on the cycle, including the closing edge.
func (d *CycleDetector) cycleEvidence(g *graph.Graph, members []string) (temporal, similar bool) {
	var (
		minTS    = int64(math.MaxInt64)
		maxTS    = int64(math.MinInt64)
		hopAvgs  []float64
		totalAvg float64
	)

	for i := range members {
		from := members[i]
		to := members[(i+1)%len(members)]
		txs := g.EdgeTxs(from, to)
		if len(txs) == 0 {
			return false, false
		}
		sum := 0.0
		for _, tx := range txs {
			sum += tx.Amount
			if tx.Timestamp < minTS {
				minTS = tx.Timestamp
			}
			if tx.Timestamp > maxTS {
				maxTS = tx.Timestamp
			}
		}
		avg := sum / float64(len(txs))
		hopAvgs = append(hopAvgs, avg)
		totalAvg += avg
	}

	temporal = maxTS-minTS <= int64(d.cfg.CycleWindowHours)*hourMillis

	mean := totalAvg / float64(len(hopAvgs))
	if mean == 0 {
		return temporal, false
	}
	similar = true
	for _, avg := range hopAvgs {
		if math.Abs(avg-mean) > d.cfg.AmountTolerance*mean {
			similar = false
			break
		}
	}
	return temporal, similar
}

// rotateToSmallest rotates the cycle so its lexicographically smallest member
// leads. Every rotation of the same cycle yields the same result.
func rotateToSmallest(members []string) []string {
	smallest := 0
	for i, m := range members {
		if m < members[smallest] {
			smallest = i
		}
	}
	rotated := make([]string, 0, len(members))
	for i := range members {
		rotated = append(rotated, members[(smallest+i)%len(members)])
	}
	return rotated
}

func canonicalKey(members []string) string {
	return strings.Join(rotateToSmallest(members), "->")
}
