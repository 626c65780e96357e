package score

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gautam825406/Finance-crime-detection/internal/detect"
	"github.com/Gautam825406/Finance-crime-detection/internal/graph"
)

const (
	hourMS = int64(3600 * 1000)
	baseTS = int64(1_700_000_000_000)
)

func tx(id, from, to string, amount float64, ts int64) graph.Transaction {
	return graph.Transaction{ID: id, Sender: from, Receiver: to, Amount: amount, Timestamp: ts}
}

func cycleGraph() *graph.Graph {
	return graph.Build([]graph.Transaction{
		tx("t1", "A", "B", 1000, baseTS),
		tx("t2", "B", "C", 1000, baseTS+1*hourMS),
		tx("t3", "C", "A", 1000, baseTS+2*hourMS),
	})
}

func TestScore_SingleCycle(t *testing.T) {
	g := cycleGraph()
	cycles := []detect.CycleRing{{
		RingID:            "RING_001",
		Members:           []string{"A", "B", "C"},
		Length:            3,
		RiskScore:         60.0,
		TemporalProximity: true,
		AmountSimilarity:  true,
	}}

	accounts := Score(g, cycles, nil, nil)

	require.Len(t, accounts, 3)
	for _, acct := range accounts {
		assert.Equal(t, Value(60.0), acct.SuspicionScore)
		assert.Equal(t, []string{"cycle_length_3"}, acct.Patterns)
		assert.Equal(t, "RING_001", acct.RingID)
	}
	// Equal scores tie-break by account id ascending.
	assert.Equal(t, "A", accounts[0].AccountID)
	assert.Equal(t, "B", accounts[1].AccountID)
	assert.Equal(t, "C", accounts[2].AccountID)
}

func TestScore_BestRingPerFamily(t *testing.T) {
	g := cycleGraph()
	cycles := []detect.CycleRing{
		{RingID: "RING_001", Members: []string{"A", "B", "C"}, Length: 4},
		{RingID: "RING_002", Members: []string{"A", "B", "C"}, Length: 3, TemporalProximity: true, AmountSimilarity: true},
	}

	accounts := Score(g, cycles, nil, nil)

	require.Len(t, accounts, 3)
	// Only the best cycle counts: 40+10+10, not 30 + that.
	assert.Equal(t, Value(60.0), accounts[0].SuspicionScore)
	// The first ring seen is kept even when a later ring scores higher.
	assert.Equal(t, "RING_001", accounts[0].RingID)
	assert.ElementsMatch(t, []string{"cycle_length_3", "cycle_length_4"}, accounts[0].Patterns)
}

func TestScore_FamiliesSum(t *testing.T) {
	g := graph.Build([]graph.Transaction{
		tx("t1", "A", "B", 1000, baseTS),
		tx("t2", "B", "C", 1000, baseTS+1*hourMS),
		tx("t3", "C", "A", 1000, baseTS+2*hourMS),
	})
	cycles := []detect.CycleRing{{RingID: "RING_001", Members: []string{"A", "B", "C"}, Length: 3, TemporalProximity: true, AmountSimilarity: true}}
	smurfs := []detect.SmurfingRing{{RingID: "RING_002", Members: []string{"A"}, Hub: "A", Direction: detect.DirectionFanIn, Velocity: 0.9}}
	layers := []detect.LayeringRing{{RingID: "RING_003", Members: []string{"A", "X", "Y", "Z"}, HopCount: 4}}

	accounts := Score(g, cycles, smurfs, layers)

	require.NotEmpty(t, accounts)
	top := accounts[0]
	assert.Equal(t, "A", top.AccountID)
	// 60 cycle + 35+15 smurf + 25+10 layer = 145, clamped to 100.
	assert.Equal(t, Value(100.0), top.SuspicionScore)
	assert.Equal(t,
		[]string{"cycle_length_3", "fan_in", "high_velocity", "layered_shell"},
		top.Patterns, "labels deduped and sorted")
	assert.Equal(t, "RING_001", top.RingID)
}

func TestScore_ProfileDeductions(t *testing.T) {
	// A payroll-looking account that still landed in a layering chain:
	// 25 base - 30 payroll leaves nothing.
	const month = 30 * 24 * hourMS
	var txs []graph.Transaction
	n := 0
	for e := 0; e < 6; e++ {
		for m := 0; m < 3; m++ {
			txs = append(txs, tx(fmt.Sprintf("t%02d", n), "CORP", fmt.Sprintf("E%02d", e), 3000, baseTS+int64(m)*month))
			n++
		}
	}
	g := graph.Build(txs)
	layers := []detect.LayeringRing{{RingID: "RING_001", Members: []string{"CORP", "S1", "S2", "B"}, HopCount: 3}}

	accounts := Score(g, nil, nil, layers)

	for _, acct := range accounts {
		assert.NotEqual(t, "CORP", acct.AccountID, "deductions must push CORP to zero")
	}
	// Chain members with no node data keep the raw contribution.
	require.Len(t, accounts, 3)
	assert.Equal(t, Value(25.0), accounts[0].SuspicionScore)
}

func TestScore_HighVolumeOverride(t *testing.T) {
	// 250 uniform transactions, not in any cycle: smurfing contribution of
	// 35 is wiped out by -30 merchant and -40 high-volume override.
	var txs []graph.Transaction
	for i := 0; i < 250; i++ {
		txs = append(txs, tx(fmt.Sprintf("t%03d", i), fmt.Sprintf("C%03d", i), "MEGA", 50, baseTS+int64(i)*hourMS))
	}
	g := graph.Build(txs)
	smurfs := []detect.SmurfingRing{{RingID: "RING_001", Members: []string{"MEGA"}, Hub: "MEGA", Direction: detect.DirectionFanIn}}

	accounts := Score(g, nil, smurfs, nil)
	assert.Empty(t, accounts)
}

func TestScore_CycleMembershipBlocksOverride(t *testing.T) {
	// Same heavy uniform traffic, but the account also sits in a cycle: the
	// high-volume override must not apply.
	var txs []graph.Transaction
	for i := 0; i < 250; i++ {
		txs = append(txs, tx(fmt.Sprintf("t%03d", i), fmt.Sprintf("C%03d", i), "MEGA", 50, baseTS+int64(i)*hourMS))
	}
	txs = append(txs,
		tx("c1", "MEGA", "B", 50, baseTS),
		tx("c2", "B", "C", 50, baseTS+1*hourMS),
		tx("c3", "C", "MEGA", 50, baseTS+2*hourMS),
	)
	g := graph.Build(txs)
	cycles := []detect.CycleRing{{RingID: "RING_001", Members: []string{"B", "C", "MEGA"}, Length: 3}}

	accounts := Score(g, cycles, nil, nil)

	var mega *SuspiciousAccount
	for i := range accounts {
		if accounts[i].AccountID == "MEGA" {
			mega = &accounts[i]
		}
	}
	require.NotNil(t, mega, "cycle member survives despite merchant-like traffic")
	// 40 cycle base - 30 merchant; the -40 override is blocked by the cycle.
	assert.Equal(t, Value(10.0), mega.SuspicionScore)
}

func TestScore_NoRingsNoAccounts(t *testing.T) {
	accounts := Score(graph.Build(nil), nil, nil, nil)
	assert.Empty(t, accounts)
}

func TestScore_SortedDescending(t *testing.T) {
	g := cycleGraph()
	cycles := []detect.CycleRing{{RingID: "RING_001", Members: []string{"A", "B", "C"}, Length: 3}}
	smurfs := []detect.SmurfingRing{{RingID: "RING_002", Members: []string{"A"}, Hub: "A", Direction: detect.DirectionFanIn}}

	accounts := Score(g, cycles, smurfs, nil)

	require.Len(t, accounts, 3)
	for i := 1; i < len(accounts); i++ {
		assert.GreaterOrEqual(t, float64(accounts[i-1].SuspicionScore), float64(accounts[i].SuspicionScore))
	}
	assert.Equal(t, "A", accounts[0].AccountID)
}

func TestValue_MarshalsOneDecimal(t *testing.T) {
	b, err := json.Marshal(Value(60))
	require.NoError(t, err)
	assert.Equal(t, "60.0", string(b))

	// half rounds away from zero, not to even
	b, err = json.Marshal(Value(37.25))
	require.NoError(t, err)
	assert.Equal(t, "37.3", string(b))

	b, err = json.Marshal(Value(10.75))
	require.NoError(t, err)
	assert.Equal(t, "10.8", string(b))
}
