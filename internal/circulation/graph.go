// Package circulation builds and solves the time–space min-cost flow
// network of §4.5: given the instance and the vehicle type under
// consideration, it finds the minimum-cost way to cover every service
// trip's required formation and decodes the resulting flow into vehicle
// paths from start-depot to end-depot.
package circulation

import (
	"railshunt/internal/model"
	"railshunt/internal/network"
)

// arc is a directed edge in the residual-capacity sense: Cap is the
// arc's upper bound, Cost is per-unit cost, and Flow tracks units
// currently routed (only meaningful on forward arcs; residual reverse
// arcs are synthesized by the solver). An arc built with a lower bound
// starts with Flow already at that bound rather than zero, so its
// remaining forward residual (Cap-Flow) is the room above the bound,
// and its reverse residual stays zero until flow is pushed past it —
// flow can never be walked back down below the mandatory minimum.
type arc struct {
	to   int
	cap  int
	cost float64
	flow int
}

// graph is a plain adjacency-list min-cost flow network over a small
// local node-index space built fresh per vehicle type per circulation
// call.
type graph struct {
	n      int
	arcs   []arc
	adj    [][]int // node -> arc indices (both forward and their paired reverse)
	source int
	sink   int
	excess []int // pre-lower-bound-folding excess per node; source/sink synthesized from this
}

func newGraph(n int) *graph {
	return &graph{n: n, adj: make([][]int, n), excess: make([]int, n)}
}

func (g *graph) addArc(u, v int, cap int, cost float64) int {
	fwd := arc{to: v, cap: cap, cost: cost}
	rev := arc{to: u, cap: 0, cost: -cost}
	fi := len(g.arcs)
	g.arcs = append(g.arcs, fwd)
	g.adj[u] = append(g.adj[u], fi)
	ri := len(g.arcs)
	g.arcs = append(g.arcs, rev)
	g.adj[v] = append(g.adj[v], ri)
	return fi
}

// addLowerBoundArc adds an arc with a lower bound, folding the mandatory
// flow into node excess per the standard lower-bound-to-supply transform
// and seeding the arc itself with lower units of flow already routed
// from u to v — decode walks Flow directly, and a tight arc (cap==lower)
// would otherwise never show any flow at all despite always carrying
// its mandatory units.
func (g *graph) addLowerBoundArc(u, v, lower, cap int, cost float64) int {
	if lower < 0 {
		lower = 0
	}
	if cap < lower {
		cap = lower
	}
	g.excess[u] -= lower
	g.excess[v] += lower
	fi := g.addArc(u, v, cap, cost)
	g.arcs[fi].flow = lower
	return fi
}

// nodeRole tags what a local graph node index represents, for decoding.
type nodeRole struct {
	kind        model.NodeKind
	instanceIdx int // -1 for source/sink
}

// build constructs the per-vehicle-type flow network: a super-source and
// super-sink (distinct from the lower-bound balancing source/sink added
// by the solver), one local node per compatible start-depot / end-depot /
// service-trip / maintenance instance node, and arcs along reachability
// edges restricted to this vehicle type.
type built struct {
	g        *graph
	roles    []nodeRole
	byInst   map[int]int // instance node idx -> local node idx
	source   int
	sink     int
}

func build(inst *model.Instance, net *network.Network, vehicleTypeIdx int, relaxed bool) *built {
	var roles []nodeRole
	byInst := map[int]int{}

	localOf := func(instIdx int, kind model.NodeKind) int {
		if li, ok := byInst[instIdx]; ok {
			return li
		}
		li := len(roles)
		roles = append(roles, nodeRole{kind: kind, instanceIdx: instIdx})
		byInst[instIdx] = li
		return li
	}

	for _, n := range inst.Nodes {
		switch n.Kind {
		case model.NodeStartDepot, model.NodeEndDepot:
			if n.VehicleTypeIdx == vehicleTypeIdx {
				localOf(n.Idx, n.Kind)
			}
		case model.NodeServiceTrip:
			if n.VehicleTypeIdx == vehicleTypeIdx {
				localOf(n.Idx, n.Kind)
			}
		case model.NodeMaintenance:
			localOf(n.Idx, n.Kind)
		}
	}

	source := len(roles)
	roles = append(roles, nodeRole{instanceIdx: -1})
	sink := len(roles)
	roles = append(roles, nodeRole{instanceIdx: -1})

	g := newGraph(len(roles))

	for instIdx, li := range byInst {
		n := inst.Nodes[instIdx]
		switch n.Kind {
		case model.NodeStartDepot:
			depot := inst.Depots[n.DepotIdx]
			g.addArc(source, li, depot.CapacityFor(vehicleTypeIdx), 0)
		case model.NodeEndDepot:
			depot := inst.Depots[n.DepotIdx]
			g.addArc(li, sink, depot.CapacityFor(vehicleTypeIdx), 0)
		}
	}

	for instIdx, uLi := range byInst {
		u := inst.Nodes[instIdx]
		for _, vIdx := range net.Successors(instIdx) {
			vLi, ok := byInst[vIdx]
			if !ok {
				continue
			}
			v := inst.Nodes[vIdx]
			cost := transitionCost(inst, net, u, v)
			cap, lower := arcBounds(inst, v)
			if relaxed {
				lower = 0
			}
			g.addLowerBoundArc(uLi, vLi, lower, cap, cost)
		}
		if u.Kind != model.NodeStartDepot {
			_, uLower := arcBounds(inst, u)
			if relaxed {
				uLower = 0
			}
			depotLowerLeft := uLower
			for _, sIdx := range net.CompatibleStartDepots(instIdx) {
				if inst.Nodes[sIdx].VehicleTypeIdx != vehicleTypeIdx {
					continue
				}
				sLi, ok := byInst[sIdx]
				if !ok {
					continue
				}
				dcap := inst.Depots[inst.Nodes[sIdx].DepotIdx].CapacityFor(vehicleTypeIdx)
				// A trip's coverage requirement must enter g.excess exactly once even
				// though several compatible start depots can each reach it directly;
				// the first depot arc absorbs the whole lower bound, the rest stay
				// plain capacity so solve's feasibility phase isn't over-credited.
				lower := 0
				if depotLowerLeft > 0 {
					lower = depotLowerLeft
					depotLowerLeft = 0
				}
				g.addLowerBoundArc(sLi, uLi, lower, dcap, 0)
			}
		}
		if u.Kind != model.NodeEndDepot {
			for _, eIdx := range net.CompatibleEndDepots(instIdx) {
				if inst.Nodes[eIdx].VehicleTypeIdx != vehicleTypeIdx {
					continue
				}
				eLi, ok := byInst[eIdx]
				if !ok {
					continue
				}
				g.addArc(uLi, eLi, inst.Depots[inst.Nodes[eIdx].DepotIdx].CapacityFor(vehicleTypeIdx), 0)
			}
		}
	}

	g.source, g.sink = source, sink
	return &built{g: g, roles: roles, byInst: byInst, source: source, sink: sink}
}

// arcBounds returns the (capacity, lowerBound) pair for flow arriving at
// v: service-trip nodes require at least the formation needed to cover
// demand, capped at the vehicle type's maximal formation count;
// maintenance nodes take up to their track count and every other node
// (depots) one unit, all with no lower bound.
func arcBounds(inst *model.Instance, v model.Node) (cap, lower int) {
	switch v.Kind {
	case model.NodeServiceTrip:
		capSeats := inst.VehicleTypes[v.VehicleTypeIdx].Capacity
		need := 0
		if capSeats > 0 {
			need = (v.Demand + capSeats - 1) / capSeats
		}
		m := inst.MaxFormationFor(v)
		if m <= 0 {
			m = need
			if m == 0 {
				m = 1
			}
		}
		if need > m {
			need = m
		}
		return m, need
	case model.NodeMaintenance:
		return v.TrackCount, 0
	default:
		return 1, 0
	}
}

func transitionCost(inst *model.Instance, net *network.Network, u, v model.Node) float64 {
	c := inst.Parameters.Costs
	cost := 0.0
	endLoc := inst.EndLocationOf(u)
	startLoc := inst.LocationOf(v)
	transition := net.ShuntingTransition(u, v)
	if endLoc != startLoc {
		cost += c.DeadHeadTripPerSecond * float64(transition.Seconds())
	}
	gap := v.Start.SubOrZero(u.End)
	if idle := gap.Seconds() - transition.Seconds(); idle > 0 {
		cost += c.IdlePerSecond * float64(idle)
	}
	if v.Kind == model.NodeServiceTrip {
		cost += c.ServiceTripPerSecond * float64(v.End.SubOrZero(v.Start).Seconds())
		cost += c.StaffPerSecond * float64(v.End.SubOrZero(v.Start).Seconds())
	}
	if v.Kind == model.NodeMaintenance {
		cost += c.MaintenancePerSecond * float64(v.End.SubOrZero(v.Start).Seconds())
	}
	return cost
}
