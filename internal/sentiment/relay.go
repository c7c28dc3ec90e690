package sentiment

import (
	"sync"

	"github.com/indranet/indra/internal/ids"
)

// Edge is one relayed sentiment edge: a relayer reports its own opinion of
// contact. Relayed sentiment is always {-1,+1} — a neutral 0 carries no
// signal worth propagating, per spec.md §4.6.
type Edge struct {
	Contact   ids.MemberId
	Sentiment int8
}

// RelayableEdges returns self's own {-1,+1} sentiment edges for contacts
// marked Relayable, the view a neighbor is entitled to receive and
// further relay per spec.md §4.6.
func (b *Book) RelayableEdges() []Edge {
	var out []Edge
	for member, e := range b.All() {
		if !e.Relayable || e.Sentiment == 0 {
			continue
		}
		out = append(out, Edge{Contact: member, Sentiment: e.Sentiment})
	}
	return out
}

// TrustGraph accumulates relayed sentiment edges from neighbors, each
// attenuated by hop distance. It is purely local bookkeeping: spec.md
// §4.6 is explicit that relayed sentiment is "never aggregated across the
// network" into a shared score — only consumed locally, hop by hop, by
// whichever replica chooses to compute a trust-weighted value from it.
type TrustGraph struct {
	mu    sync.Mutex
	edges map[ids.MemberId]map[ids.MemberId]float64 // relayer -> contact -> attenuated weight
}

// NewTrustGraph builds an empty trust graph.
func NewTrustGraph() *TrustGraph {
	return &TrustGraph{edges: make(map[ids.MemberId]map[ids.MemberId]float64)}
}

// Ingest records relayer's edges, each weighted by sentiment*attenuation.
// attenuation should already reflect the hop count at which these edges
// were received (e.g. 0.5 for a direct neighbor's own opinions, smaller
// for edges that neighbor itself relayed from further out).
func (g *TrustGraph) Ingest(relayer ids.MemberId, edges []Edge, attenuation float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	m, ok := g.edges[relayer]
	if !ok {
		m = make(map[ids.MemberId]float64)
		g.edges[relayer] = m
	}
	for _, e := range edges {
		m[e.Contact] = float64(e.Sentiment) * attenuation
	}
}

// TrustWeighted computes a local-only aggregate opinion of target by
// summing every relayer's attenuated edge toward it. This value is never
// exposed as a single network-wide score (spec.md §4.6) — it is this
// replica's private computation over its own trust graph.
func (g *TrustGraph) TrustWeighted(target ids.MemberId) float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	var sum float64
	for _, m := range g.edges {
		sum += m[target]
	}
	return sum
}

// Forget drops every edge relayer has reported, used when relayer is
// blocked or its relay is no longer trusted.
func (g *TrustGraph) Forget(relayer ids.MemberId) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.edges, relayer)
}
