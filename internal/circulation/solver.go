package circulation

import (
	"container/heap"
	"math"

	"railshunt/internal/apierr"
)

// solve runs the lower-bound-feasibility phase followed by the min-cost
// optimization phase over bt, both via the successive-shortest
// augmenting-path method with Johnson potentials (§4.5's "minimum-cost
// feasible vehicle assignment").
//
// Plain Dijkstra is unsound here: once a unit of flow is pushed across a
// positive-cost arc, its reverse residual arc carries negative cost and
// becomes enterable, and a Dijkstra that finalizes a node's distance the
// moment it is popped can miss a later, cheaper relaxation through that
// arc. Johnson's technique avoids this by maintaining a potential h(v)
// per node such that every residual arc's reduced cost
// c(u,v)+h(u)-h(v) is non-negative; Dijkstra over reduced costs is then
// valid regardless of the raw arc's sign, and each round's own Dijkstra
// distances are folded back into h so the invariant holds for the next
// round. h is seeded by a one-time Bellman-Ford from a virtual
// zero-cost source before any flow exists, when every admissible arc's
// raw cost is already non-negative by construction.
func solve(bt *built) error {
	g := bt.g
	n := g.n + 2
	ss, tt := g.n, g.n+1
	g.adj = append(g.adj, make([][]int, 2)...)
	g.n = n

	totalRequired := 0
	for v, ex := range g.excess {
		if ex > 0 {
			g.addArc(ss, v, ex, 0)
			totalRequired += ex
		} else if ex < 0 {
			g.addArc(v, tt, -ex, 0)
		}
	}

	// g.source and g.sink otherwise sit outside the excess bookkeeping
	// entirely — closing sink back to source turns the network into a
	// true circulation so a deficit anchored at a start-depot node (which
	// only ever receives real inflow from g.source) can actually be
	// reached by a surplus anchored at an end-depot node, without this
	// bridge every instance with a depot-adjacent lower bound is
	// unsatisfiable on paper even though real capacity exists to cover it.
	g.addArc(g.sink, g.source, totalRequired+1, 0)

	h := seedPotentials(g)

	if totalRequired > 0 {
		sent := augmentAll(g, ss, tt, h)
		if sent < totalRequired {
			return apierr.New(apierr.CirculationInfeasible, "lower bounds unsatisfiable: routed %d of %d required units", sent, totalRequired)
		}
	}

	// Beyond the mandatory lower-bound flow, optimize cost along the
	// graph's real source/sink: additional flow is only ever taken while
	// it strictly decreases total cost (spawning another vehicle is never
	// free), so this loop typically terminates immediately once the
	// lower bounds are met.
	for {
		realDist, prevArc, ok := shortestPath(g, g.source, g.sink, h)
		if !ok || realDist >= 0 {
			break
		}
		augmentPath(g, g.sink, prevArc, 1)
	}

	return nil
}

// seedPotentials runs Bellman-Ford once from a virtual node joined to
// every real node by a zero-cost edge, relaxing only admissible (cap>0)
// arcs — at this point every such arc is an original forward arc (no
// flow has been pushed yet, so every reverse residual still has cap 0),
// so the result already satisfies Johnson's non-negative-reduced-cost
// invariant ahead of the first round of augmentation.
func seedPotentials(g *graph) []float64 {
	h := make([]float64, g.n)
	for iter := 0; iter < g.n; iter++ {
		changed := false
		for u := 0; u < g.n; u++ {
			for _, ai := range g.adj[u] {
				a := g.arcs[ai]
				if a.cap-a.flow <= 0 {
					continue
				}
				if h[u]+a.cost < h[a.to] {
					h[a.to] = h[u] + a.cost
					changed = true
				}
			}
		}
		if !changed {
			break
		}
	}
	return h
}

// augmentAll pushes successive shortest (by reduced cost) augmenting
// paths from s to t until no more residual path exists, returning total
// flow sent.
func augmentAll(g *graph, s, t int, h []float64) int {
	sent := 0
	for {
		_, prevArc, ok := shortestPath(g, s, t, h)
		if !ok {
			break
		}
		sent += augmentPath(g, t, prevArc, math.MaxInt32)
	}
	return sent
}

// shortestPath runs Dijkstra from s over reduced costs
// c(u,v)+h[u]-h[v], which the caller's maintained potentials guarantee
// are non-negative for every admissible residual arc. It returns the
// real (unreduced) shortest distance from s to t, and — as a side
// effect — advances h by each reached node's reduced-cost distance, the
// standard update that keeps the invariant valid after this round's
// augmentation changes the residual graph.
func shortestPath(g *graph, s, t int, h []float64) (realDistToT float64, prevArc []int, reached bool) {
	dist := make([]float64, g.n)
	prevArc = make([]int, g.n)
	visited := make([]bool, g.n)
	for i := range dist {
		dist[i] = math.Inf(1)
		prevArc[i] = -1
	}
	dist[s] = 0
	pq := &pqueue{{node: s, dist: 0}}
	for pq.Len() > 0 {
		top := heap.Pop(pq).(pqitem)
		u := top.node
		if visited[u] {
			continue
		}
		visited[u] = true
		for _, ai := range g.adj[u] {
			a := g.arcs[ai]
			if a.cap-a.flow <= 0 {
				continue
			}
			reduced := a.cost + h[u] - h[a.to]
			nd := dist[u] + reduced
			if nd < dist[a.to] {
				dist[a.to] = nd
				prevArc[a.to] = ai
				heap.Push(pq, pqitem{node: a.to, dist: nd})
			}
		}
	}
	if math.IsInf(dist[t], 1) {
		return 0, prevArc, false
	}
	realDistToT = dist[t] + h[t] - h[s]
	for v := 0; v < g.n; v++ {
		if !math.IsInf(dist[v], 1) {
			h[v] += dist[v]
		}
	}
	return realDistToT, prevArc, true
}

func augmentPath(g *graph, sink int, prevArc []int, limit int) int {
	bottleneck := limit
	for v := sink; prevArc[v] != -1; {
		ai := prevArc[v]
		a := g.arcs[ai]
		if rem := a.cap - a.flow; rem < bottleneck {
			bottleneck = rem
		}
		v = arcFrom(g, ai)
	}
	for v := sink; prevArc[v] != -1; {
		ai := prevArc[v]
		g.arcs[ai].flow += bottleneck
		g.arcs[ai^1].flow -= bottleneck
		v = arcFrom(g, ai)
	}
	return bottleneck
}

// arcFrom recovers an arc's tail. Arcs are always added in forward/reverse
// pairs at consecutive indices, and the reverse arc's `to` is the
// forward arc's tail.
func arcFrom(g *graph, arcIdx int) int {
	return g.arcs[arcIdx^1].to
}

type pqitem struct {
	node int
	dist float64
}

type pqueue []pqitem

func (p pqueue) Len() int            { return len(p) }
func (p pqueue) Less(i, j int) bool  { return p[i].dist < p[j].dist }
func (p pqueue) Swap(i, j int)       { p[i], p[j] = p[j], p[i] }
func (p *pqueue) Push(x any)         { *p = append(*p, x.(pqitem)) }
func (p *pqueue) Pop() any {
	old := *p
	n := len(old)
	item := old[n-1]
	*p = old[:n-1]
	return item
}
