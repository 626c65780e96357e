package detect

import (
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/Gautam825406/Finance-crime-detection/internal/graph"
)

// ---------------------------------------------------------------------------
// Layering Detector — bounded DFS for chains through shell-like accounts
// A shell is an account with minimal total activity (2-3 transactions),
// suspected of being a disposable pass-through.
// ---------------------------------------------------------------------------

// LayeringDetector finds multi-hop pass-through chains.
type LayeringDetector struct {
	cfg Config
}

// NewLayeringDetector creates a layering detector with the given thresholds.
func NewLayeringDetector(cfg Config) *LayeringDetector {
	return &LayeringDetector{cfg: cfg}
}

type layerFrame struct {
	node    string
	path    []string
	visited map[string]bool
}

// Detect returns up to MaxLayering chains. Unlike cycles, chains are deduped
// by the literal ordered path: directionality and start point matter.
func (d *LayeringDetector) Detect(g *graph.Graph, rc *RingCounter) []LayeringRing {
	shells := d.classifyShells(g)

	var rings []LayeringRing
	seen := make(map[string]bool)

	for _, seed := range g.AccountIDs() {
		if len(rings) >= d.cfg.MaxLayering {
			log.Warn().Int("patterns", len(rings)).Msg("layering: result cap reached, stopping search")
			break
		}
		if shells[seed] || !d.leadsToShell(g, seed, shells) {
			continue
		}

		stack := []layerFrame{{
			node:    seed,
			path:    []string{seed},
			visited: map[string]bool{seed: true},
		}}

		for len(stack) > 0 && len(rings) < d.cfg.MaxLayering {
			frame := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if len(frame.path) >= 4 && d.shellDominated(frame.path, shells) {
				key := strings.Join(frame.path, "->")
				if !seen[key] {
					seen[key] = true
					if ring, ok := d.buildRing(g, frame.path, shells, rc); ok {
						rings = append(rings, ring)
					}
				}
			}

			if len(frame.path)-1 >= d.cfg.MaxLayeringDepth {
				continue
			}
			for _, next := range g.Successors(frame.node) {
				if frame.visited[next] {
					continue
				}
				path := make([]string, len(frame.path), len(frame.path)+1)
				copy(path, frame.path)
				visited := make(map[string]bool, len(frame.visited)+1)
				for k := range frame.visited {
					visited[k] = true
				}
				visited[next] = true
				stack = append(stack, layerFrame{
					node:    next,
					path:    append(path, next),
					visited: visited,
				})
			}
		}
	}

	log.Debug().Int("patterns", len(rings)).Msg("layering: detection complete")
	return rings
}

func (d *LayeringDetector) classifyShells(g *graph.Graph) map[string]bool {
	shells := make(map[string]bool)
	for id, node := range g.Nodes {
		deg := node.TotalDegree()
		if deg >= d.cfg.ShellMinDegree && deg <= d.cfg.ShellMaxDegree {
			shells[id] = true
		}
	}
	return shells
}

func (d *LayeringDetector) leadsToShell(g *graph.Graph, id string, shells map[string]bool) bool {
	for _, succ := range g.Successors(id) {
		if shells[succ] {
			return true
		}
	}
	return false
}

// shellDominated reports whether enough of the chain's intermediate nodes
// (endpoints excluded) are shells.
func (d *LayeringDetector) shellDominated(path []string, shells map[string]bool) bool {
	intermediates := path[1 : len(path)-1]
	if len(intermediates) == 0 {
		return false
	}
	count := 0
	for _, id := range intermediates {
		if shells[id] {
			count++
		}
	}
	return float64(count)/float64(len(intermediates)) >= d.cfg.ShellRatio
}

// buildRing evaluates the gating evidence. A chain is reported only if
// temporal continuity or amount preservation holds.
func (d *LayeringDetector) buildRing(g *graph.Graph, path []string, shells map[string]bool, rc *RingCounter) (LayeringRing, bool) {
	temporal := d.temporalContinuity(g, path)
	preserved := d.amountPreservation(g, path)
	if !temporal && !preserved {
		return LayeringRing{}, false
	}

	shellCount := 0
	for _, id := range path[1 : len(path)-1] {
		if shells[id] {
			shellCount++
		}
	}

	hops := len(path) - 1
	score := 25.0
	if hops > 3 {
		score += 10
	}
	if shellCount >= 2 {
		score += 15
	}
	if temporal {
		score += 10
	}
	if preserved {
		score += 10
	}

	members := make([]string, len(path))
	copy(members, path)

	return LayeringRing{
		RingID:             rc.Next(),
		Members:            members,
		HopCount:           hops,
		ShellCount:         shellCount,
		TemporalContinuity: temporal,
		AmountPreservation: preserved,
		RiskScore:          round1(clampScore(score)),
	}, true
}

// temporalContinuity: no hop starts more than LayeringStepHours before the
// previous hop's latest transaction, and the whole chain fits inside
// LayeringSpanHours.
func (d *LayeringDetector) temporalContinuity(g *graph.Graph, path []string) bool {
	step := int64(d.cfg.LayeringStepHours) * hourMillis
	span := int64(d.cfg.LayeringSpanHours) * hourMillis

	var chainMin, chainMax, prevMax int64
	for i := 0; i < len(path)-1; i++ {
		txs := g.EdgeTxs(path[i], path[i+1])
		if len(txs) == 0 {
			return false
		}
		edgeMin, edgeMax := txs[0].Timestamp, txs[0].Timestamp
		for _, tx := range txs[1:] {
			if tx.Timestamp < edgeMin {
				edgeMin = tx.Timestamp
			}
			if tx.Timestamp > edgeMax {
				edgeMax = tx.Timestamp
			}
		}
		if i == 0 {
			chainMin, chainMax = edgeMin, edgeMax
		} else {
			if edgeMin < prevMax-step {
				return false
			}
			if edgeMin < chainMin {
				chainMin = edgeMin
			}
			if edgeMax > chainMax {
				chainMax = edgeMax
			}
		}
		prevMax = edgeMax
	}
	return chainMax-chainMin <= span
}

// amountPreservation: the spread between the largest and smallest per-hop
// totals, relative to the largest, stays within SpreadTolerance.
func (d *LayeringDetector) amountPreservation(g *graph.Graph, path []string) bool {
	var minTotal, maxTotal float64
	for i := 0; i < len(path)-1; i++ {
		txs := g.EdgeTxs(path[i], path[i+1])
		if len(txs) == 0 {
			return false
		}
		total := 0.0
		for _, tx := range txs {
			total += tx.Amount
		}
		if i == 0 {
			minTotal, maxTotal = total, total
			continue
		}
		if total < minTotal {
			minTotal = total
		}
		if total > maxTotal {
			maxTotal = total
		}
	}
	if maxTotal == 0 {
		return false
	}
	return (maxTotal-minTotal)/maxTotal <= d.cfg.SpreadTolerance
}
