package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gautam825406/Finance-crime-detection/internal/graph"
)

const (
	hourMS = int64(3600 * 1000)
	baseTS = int64(1_700_000_000_000)
)

func tx(id, from, to string, amount float64, ts int64) graph.Transaction {
	return graph.Transaction{ID: id, Sender: from, Receiver: to, Amount: amount, Timestamp: ts}
}

func TestCycleDetector_ThreeCycle(t *testing.T) {
	g := graph.Build([]graph.Transaction{
		tx("t1", "A", "B", 1000, baseTS),
		tx("t2", "B", "C", 1000, baseTS+1*hourMS),
		tx("t3", "C", "A", 1000, baseTS+2*hourMS),
	})

	var rc RingCounter
	rings := NewCycleDetector(DefaultConfig()).Detect(g, &rc)

	require.Len(t, rings, 1)
	ring := rings[0]
	assert.Equal(t, "RING_001", ring.RingID)
	assert.Equal(t, []string{"A", "B", "C"}, ring.Members)
	assert.Equal(t, 3, ring.Length)
	assert.True(t, ring.TemporalProximity)
	assert.True(t, ring.AmountSimilarity)
	assert.Equal(t, 60.0, ring.RiskScore)
}

func TestCycleDetector_FourCycleNoEvidence(t *testing.T) {
	// Amounts diverge wildly and the loop takes a week to close.
	g := graph.Build([]graph.Transaction{
		tx("t1", "A", "B", 10000, baseTS),
		tx("t2", "B", "C", 100, baseTS+80*hourMS),
		tx("t3", "C", "D", 9000, baseTS+120*hourMS),
		tx("t4", "D", "A", 50, baseTS+168*hourMS),
	})

	var rc RingCounter
	rings := NewCycleDetector(DefaultConfig()).Detect(g, &rc)

	require.Len(t, rings, 1)
	ring := rings[0]
	assert.Equal(t, 4, ring.Length)
	assert.False(t, ring.TemporalProximity)
	assert.False(t, ring.AmountSimilarity)
	assert.Equal(t, 30.0, ring.RiskScore)
}

func TestCycleDetector_RotationsCollapse(t *testing.T) {
	// Every node seeds a DFS, but the three rotations of the same loop must
	// produce exactly one finding.
	g := graph.Build([]graph.Transaction{
		tx("t1", "B", "C", 500, baseTS),
		tx("t2", "C", "A", 500, baseTS+1*hourMS),
		tx("t3", "A", "B", 500, baseTS+2*hourMS),
	})

	var rc RingCounter
	rings := NewCycleDetector(DefaultConfig()).Detect(g, &rc)

	require.Len(t, rings, 1)
	assert.Equal(t, []string{"A", "B", "C"}, rings[0].Members)
}

func TestCanonicalKey_RotationInvariant(t *testing.T) {
	want := canonicalKey([]string{"A", "B", "C"})
	assert.Equal(t, want, canonicalKey([]string{"B", "C", "A"}))
	assert.Equal(t, want, canonicalKey([]string{"C", "A", "B"}))
	// Reversed direction is a different cycle.
	assert.NotEqual(t, want, canonicalKey([]string{"A", "C", "B"}))
}

func TestCycleDetector_DepthCap(t *testing.T) {
	// A six-node loop exceeds the depth bound and must not be reported.
	g := graph.Build([]graph.Transaction{
		tx("t1", "A", "B", 100, baseTS),
		tx("t2", "B", "C", 100, baseTS),
		tx("t3", "C", "D", 100, baseTS),
		tx("t4", "D", "E", 100, baseTS),
		tx("t5", "E", "F", 100, baseTS),
		tx("t6", "F", "A", 100, baseTS),
	})

	var rc RingCounter
	rings := NewCycleDetector(DefaultConfig()).Detect(g, &rc)
	assert.Empty(t, rings)
}

func TestCycleDetector_TwoNodeLoopIgnored(t *testing.T) {
	g := graph.Build([]graph.Transaction{
		tx("t1", "A", "B", 100, baseTS),
		tx("t2", "B", "A", 100, baseTS),
	})

	var rc RingCounter
	rings := NewCycleDetector(DefaultConfig()).Detect(g, &rc)
	assert.Empty(t, rings)
}

func TestCycleDetector_SelfLoopIgnored(t *testing.T) {
	g := graph.Build([]graph.Transaction{tx("t1", "A", "A", 100, baseTS)})

	var rc RingCounter
	rings := NewCycleDetector(DefaultConfig()).Detect(g, &rc)
	assert.Empty(t, rings)
}

func TestCycleDetector_ResultCap(t *testing.T) {
	// Two disjoint loops, cap of one: the search stops after the seed node
	// that produced the first finding.
	g := graph.Build([]graph.Transaction{
		tx("t1", "A", "B", 100, baseTS),
		tx("t2", "B", "C", 100, baseTS),
		tx("t3", "C", "A", 100, baseTS),
		tx("t4", "X", "Y", 100, baseTS),
		tx("t5", "Y", "Z", 100, baseTS),
		tx("t6", "Z", "X", 100, baseTS),
	})

	cfg := DefaultConfig()
	cfg.MaxCycles = 1
	var rc RingCounter
	rings := NewCycleDetector(cfg).Detect(g, &rc)
	assert.Len(t, rings, 1)
}

func TestCycleDetector_RingIDsContinue(t *testing.T) {
	g := graph.Build([]graph.Transaction{
		tx("t1", "A", "B", 100, baseTS),
		tx("t2", "B", "C", 100, baseTS),
		tx("t3", "C", "A", 100, baseTS),
	})

	rc := RingCounter{}
	rc.Next() // pretend an earlier detector already produced one ring
	rings := NewCycleDetector(DefaultConfig()).Detect(g, &rc)

	require.Len(t, rings, 1)
	assert.Equal(t, "RING_002", rings[0].RingID)
	assert.Equal(t, 2, rc.Count())
}
