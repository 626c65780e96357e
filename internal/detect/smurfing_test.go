package detect

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gautam825406/Finance-crime-detection/internal/graph"
)

func TestSmurfingDetector_FanIn(t *testing.T) {
	// Twelve distinct senders funnel into H inside ten hours, nothing leaves.
	var txs []graph.Transaction
	for i := 0; i < 12; i++ {
		txs = append(txs, tx(
			fmt.Sprintf("t%02d", i),
			fmt.Sprintf("S%02d", i),
			"H", 100, baseTS+int64(i)*hourMS, // one tx per hour bucket
		))
	}
	g := graph.Build(txs)

	var rc RingCounter
	rings := NewSmurfingDetector(DefaultConfig()).Detect(g, &rc)

	require.Len(t, rings, 1)
	ring := rings[0]
	assert.Equal(t, "H", ring.Hub)
	assert.Equal(t, DirectionFanIn, ring.Direction)
	assert.Equal(t, 0.0, ring.Velocity)
	assert.False(t, ring.Redistribution)
	assert.Equal(t, 35.0, ring.RiskScore)
	assert.Len(t, ring.Members, 13) // hub + 12 senders
	assert.Equal(t, "H", ring.Members[0])
}

func TestSmurfingDetector_FanOutWithRedistribution(t *testing.T) {
	// H receives one lump sum, then sprays it across twelve receivers.
	txs := []graph.Transaction{tx("t00", "P", "H", 12000, baseTS)}
	for i := 0; i < 12; i++ {
		txs = append(txs, tx(
			fmt.Sprintf("t%02d", i+1),
			"H",
			fmt.Sprintf("R%02d", i),
			500+float64(i)*100, baseTS+int64(i+1)*hourMS,
		))
	}
	g := graph.Build(txs)

	var rc RingCounter
	rings := NewSmurfingDetector(DefaultConfig()).Detect(g, &rc)

	require.Len(t, rings, 1)
	ring := rings[0]
	assert.Equal(t, "H", ring.Hub)
	assert.Equal(t, DirectionFanOut, ring.Direction)
	assert.True(t, ring.Redistribution)
	assert.Equal(t, 1.0, ring.Velocity)
	// 35 fan-out + 15 velocity + 10 redistribution.
	assert.Equal(t, 60.0, ring.RiskScore)
}

func TestSmurfingDetector_BothDirections(t *testing.T) {
	var txs []graph.Transaction
	for i := 0; i < 10; i++ {
		txs = append(txs, tx(fmt.Sprintf("in%02d", i), fmt.Sprintf("S%02d", i), "H", 100, baseTS+int64(i)*hourMS))
	}
	for i := 0; i < 10; i++ {
		txs = append(txs, tx(fmt.Sprintf("out%02d", i), "H", fmt.Sprintf("R%02d", i), 95, baseTS+int64(10+i)*hourMS))
	}
	g := graph.Build(txs)

	var rc RingCounter
	rings := NewSmurfingDetector(DefaultConfig()).Detect(g, &rc)

	require.Len(t, rings, 1)
	ring := rings[0]
	assert.Equal(t, DirectionBoth, ring.Direction)
	assert.Len(t, ring.Members, 21)
	// 35 + 35 fan both ways, +15 velocity (950/1000), +10 redistribution.
	assert.Equal(t, 95.0, ring.RiskScore)
}

func TestSmurfingDetector_BelowThreshold(t *testing.T) {
	var txs []graph.Transaction
	for i := 0; i < 9; i++ {
		txs = append(txs, tx(fmt.Sprintf("t%02d", i), fmt.Sprintf("S%02d", i), "H", 100, baseTS+int64(i)*hourMS))
	}
	g := graph.Build(txs)

	var rc RingCounter
	rings := NewSmurfingDetector(DefaultConfig()).Detect(g, &rc)
	assert.Empty(t, rings)
}

func TestSmurfingDetector_MerchantSuppressed(t *testing.T) {
	// A storefront: 30 customers paying near-identical amounts, no outflow.
	// Fan-in far exceeds the threshold but the hub must be discarded.
	var txs []graph.Transaction
	for i := 0; i < 30; i++ {
		txs = append(txs, tx(fmt.Sprintf("t%02d", i), fmt.Sprintf("C%02d", i), "SHOP", 99.90, baseTS+int64(i)*hourMS))
	}
	g := graph.Build(txs)

	var rc RingCounter
	rings := NewSmurfingDetector(DefaultConfig()).Detect(g, &rc)
	assert.Empty(t, rings)
	assert.Equal(t, 0, rc.Count(), "suppressed hub must not consume a ring id")
}

func TestSmurfingDetector_WindowBoundary(t *testing.T) {
	// Ten senders inside one 72h window, two more far outside it: the best
	// window still clears the threshold on its own.
	var txs []graph.Transaction
	for i := 0; i < 10; i++ {
		txs = append(txs, tx(fmt.Sprintf("t%02d", i), fmt.Sprintf("S%02d", i), "H", 100, baseTS+int64(i)*hourMS))
	}
	txs = append(txs,
		tx("late1", "L1", "H", 100, baseTS+500*hourMS),
		tx("late2", "L2", "H", 100, baseTS+700*hourMS),
	)
	g := graph.Build(txs)

	var rc RingCounter
	rings := NewSmurfingDetector(DefaultConfig()).Detect(g, &rc)

	require.Len(t, rings, 1)
	// Only the winning window's senders become members.
	assert.Len(t, rings[0].Members, 11)
	assert.NotContains(t, rings[0].Members, "L1")
}

func TestSmurfingDetector_ResultCap(t *testing.T) {
	var txs []graph.Transaction
	for _, hub := range []string{"H1", "H2"} {
		for i := 0; i < 10; i++ {
			txs = append(txs, tx(fmt.Sprintf("%s-%02d", hub, i), fmt.Sprintf("%s-S%02d", hub, i), hub, 100, baseTS+int64(i)*hourMS))
		}
	}
	g := graph.Build(txs)

	cfg := DefaultConfig()
	cfg.MaxSmurfing = 1
	var rc RingCounter
	rings := NewSmurfingDetector(cfg).Detect(g, &rc)
	assert.Len(t, rings, 1)
}
