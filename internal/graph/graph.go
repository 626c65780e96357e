package graph

import (
	"sort"
)

// ---------------------------------------------------------------------------
// Transaction Graph — directed multigraph over a validated transaction batch
// Built once per analysis run, read-only afterwards
// ---------------------------------------------------------------------------

// Transaction is one validated ledger entry. Immutable after ingest.
type Transaction struct {
	ID        string  `json:"id"`
	Sender    string  `json:"sender_id"`
	Receiver  string  `json:"receiver_id"`
	Amount    float64 `json:"amount"`
	Timestamp int64   `json:"timestamp"` // unix milliseconds
}

// AccountNode aggregates everything known about one account. The incoming
// and outgoing lists are sorted ascending by timestamp once Build finishes.
type AccountNode struct {
	ID        string
	InDegree  int
	OutDegree int
	TotalIn   float64
	TotalOut  float64
	Incoming  []*Transaction
	Outgoing  []*Transaction
}

// TotalDegree returns in-degree plus out-degree.
func (n *AccountNode) TotalDegree() int {
	return n.InDegree + n.OutDegree
}

// Activity returns the total transaction count across both directions.
func (n *AccountNode) Activity() int {
	return len(n.Incoming) + len(n.Outgoing)
}

// AllAmounts returns every amount the account touched, incoming then outgoing.
func (n *AccountNode) AllAmounts() []float64 {
	amounts := make([]float64, 0, len(n.Incoming)+len(n.Outgoing))
	for _, tx := range n.Incoming {
		amounts = append(amounts, tx.Amount)
	}
	for _, tx := range n.Outgoing {
		amounts = append(amounts, tx.Amount)
	}
	return amounts
}

// Graph owns the account nodes plus forward and reverse adjacency. Parallel
// transactions between the same ordered pair share one edge bucket.
type Graph struct {
	Nodes  map[string]*AccountNode
	AdjOut map[string]map[string][]*Transaction // sender -> receiver -> txs
	AdjIn  map[string]map[string][]*Transaction // receiver -> sender -> txs
}

// Build folds a validated transaction batch into a Graph in one pass, then
// finalizes every account's transaction lists by timestamp. Self-loops and
// duplicate edges are legal input.
func Build(txs []Transaction) *Graph {
	g := &Graph{
		Nodes:  make(map[string]*AccountNode),
		AdjOut: make(map[string]map[string][]*Transaction),
		AdjIn:  make(map[string]map[string][]*Transaction),
	}

	for i := range txs {
		tx := &txs[i]
		sender := g.ensureNode(tx.Sender)
		receiver := g.ensureNode(tx.Receiver)

		sender.OutDegree++
		sender.TotalOut += tx.Amount
		sender.Outgoing = append(sender.Outgoing, tx)

		receiver.InDegree++
		receiver.TotalIn += tx.Amount
		receiver.Incoming = append(receiver.Incoming, tx)

		if g.AdjOut[tx.Sender] == nil {
			g.AdjOut[tx.Sender] = make(map[string][]*Transaction)
		}
		g.AdjOut[tx.Sender][tx.Receiver] = append(g.AdjOut[tx.Sender][tx.Receiver], tx)

		if g.AdjIn[tx.Receiver] == nil {
			g.AdjIn[tx.Receiver] = make(map[string][]*Transaction)
		}
		g.AdjIn[tx.Receiver][tx.Sender] = append(g.AdjIn[tx.Receiver][tx.Sender], tx)
	}

	// Finalize: temporal queries later assume sorted per-account logs.
	for _, node := range g.Nodes {
		sortByTime(node.Incoming)
		sortByTime(node.Outgoing)
	}

	return g
}

func (g *Graph) ensureNode(id string) *AccountNode {
	node, ok := g.Nodes[id]
	if !ok {
		node = &AccountNode{ID: id}
		g.Nodes[id] = node
	}
	return node
}

func sortByTime(txs []*Transaction) {
	sort.Slice(txs, func(i, j int) bool {
		if txs[i].Timestamp != txs[j].Timestamp {
			return txs[i].Timestamp < txs[j].Timestamp
		}
		return txs[i].ID < txs[j].ID
	})
}

// AccountIDs returns every account id in ascending order. Detectors iterate
// this for run-to-run determinism.
func (g *Graph) AccountIDs() []string {
	ids := make([]string, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Successors returns the receivers reachable from id in ascending order.
func (g *Graph) Successors(id string) []string {
	out := g.AdjOut[id]
	if len(out) == 0 {
		return nil
	}
	succs := make([]string, 0, len(out))
	for to := range out {
		succs = append(succs, to)
	}
	sort.Strings(succs)
	return succs
}

// EdgeTxs returns the transactions on the (from, to) edge bucket, or nil.
func (g *Graph) EdgeTxs(from, to string) []*Transaction {
	return g.AdjOut[from][to]
}

// HasEdge reports whether at least one transaction flows from -> to.
func (g *Graph) HasEdge(from, to string) bool {
	return len(g.AdjOut[from][to]) > 0
}
