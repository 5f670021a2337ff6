// Package network builds the reachability relation over an instance's
// nodes (§4.1): for each non-depot node, which start-depot nodes can
// precede it, which end-depot nodes can follow it, and the general
// node-to-node reachability adjacency used by tour operations and the
// min-cost circulation builder.
package network

import (
	"railshunt/internal/model"
	"railshunt/internal/railtime"
)

// Network is built once per Instance and never mutated afterward; every
// Schedule sharing the Instance also shares this Network.
type Network struct {
	inst *model.Instance

	successors   [][]int // nodeIdx -> reachable non-depot successors (end depots are in endDepotsFor)
	predecessors [][]int

	startDepotsFor [][]int // nodeIdx -> compatible start-depot node idxs
	endDepotsFor   [][]int
}

func (net *Network) Successors(nodeIdx int) []int   { return net.successors[nodeIdx] }
func (net *Network) Predecessors(nodeIdx int) []int { return net.predecessors[nodeIdx] }
func (net *Network) CompatibleStartDepots(nodeIdx int) []int { return net.startDepotsFor[nodeIdx] }
func (net *Network) CompatibleEndDepots(nodeIdx int) []int   { return net.endDepotsFor[nodeIdx] }

// CanReach implements the reachability predicate of §3: u reaches v iff
// there is a feasible transition between them, subject to type
// compatibility and the structural start/end-depot rules.
func (net *Network) CanReach(u, v model.Node) bool {
	if v.Kind == model.NodeStartDepot {
		return false // a start-depot can only be first in a tour
	}
	if u.Kind == model.NodeEndDepot {
		return false // an end-depot can only be last in a tour
	}
	if tu, okU := vehicleTypeOf(u); okU {
		if tv, okV := vehicleTypeOf(v); okV && tu != tv {
			return false
		}
	}
	endLoc := net.inst.EndLocationOf(u)
	startLoc := net.inst.LocationOf(v)
	if endLoc != startLoc && net.inst.Parameters.ForbidDeadHeadTrips {
		return false
	}
	transition := net.inst.Parameters.Shunting.MinimalDuration.Add(net.inst.DeadHead.Duration(endLoc, startLoc))
	arrival := u.End.Add(transition)
	return !v.Start.Before(arrival)
}

func vehicleTypeOf(n model.Node) (int, bool) {
	switch n.Kind {
	case model.NodeStartDepot, model.NodeEndDepot, model.NodeServiceTrip:
		return n.VehicleTypeIdx, true
	default:
		return 0, false
	}
}

// Build constructs the reachability adjacency for an instance. Nodes are
// bucketed by location first so that under forbidDeadHeadTrips (where
// cross-location transitions are never reachable) the scan only compares
// a node ending at a location with the nodes starting there, cutting the constant factor of the
// otherwise-quadratic scan; with dead-head trips allowed every pair must
// still be considered, since a transition between any two locations is
// potentially feasible.
func Build(inst *model.Instance) *Network {
	n := len(inst.Nodes)
	net := &Network{
		inst:           inst,
		successors:     make([][]int, n),
		predecessors:   make([][]int, n),
		startDepotsFor: make([][]int, n),
		endDepotsFor:   make([][]int, n),
	}

	var nonDepot []int
	var startDepots []int
	var endDepots []int
	byEndLocation := map[int][]int{}
	byStartLocation := map[int][]int{}
	for idx, nd := range inst.Nodes {
		switch nd.Kind {
		case model.NodeStartDepot:
			startDepots = append(startDepots, idx)
		case model.NodeEndDepot:
			endDepots = append(endDepots, idx)
		default:
			nonDepot = append(nonDepot, idx)
			byEndLocation[inst.EndLocationOf(nd)] = append(byEndLocation[inst.EndLocationOf(nd)], idx)
			byStartLocation[inst.LocationOf(nd)] = append(byStartLocation[inst.LocationOf(nd)], idx)
		}
	}

	compare := func(uIdx, vIdx int) bool {
		return net.CanReach(inst.Nodes[uIdx], inst.Nodes[vIdx])
	}

	if inst.Parameters.ForbidDeadHeadTrips {
		for loc, us := range byEndLocation {
			scanPairs(net, us, byStartLocation[loc], compare)
		}
	} else {
		scanPairs(net, nonDepot, nonDepot, compare)
	}

	for _, vIdx := range nonDepot {
		for _, sIdx := range startDepots {
			if compare(sIdx, vIdx) {
				net.startDepotsFor[vIdx] = append(net.startDepotsFor[vIdx], sIdx)
			}
		}
		for _, eIdx := range endDepots {
			if compare(vIdx, eIdx) {
				net.endDepotsFor[vIdx] = append(net.endDepotsFor[vIdx], eIdx)
			}
		}
	}

	return net
}

func scanPairs(net *Network, us, vs []int, compare func(int, int) bool) {
	for _, u := range us {
		for _, v := range vs {
			if u == v {
				continue
			}
			if compare(u, v) {
				net.successors[u] = append(net.successors[u], v)
				net.predecessors[v] = append(net.predecessors[v], u)
			}
		}
	}
}

// ShuntingTransition returns the minimum duration that must elapse
// between the end of u and the start of v for the transition to be
// feasible, independent of whether it is actually feasible (used by tour
// aggregate recomputation, which needs the duration even for adjacent
// pairs it already knows are reachable).
func (net *Network) ShuntingTransition(u, v model.Node) railtime.Duration {
	endLoc := net.inst.EndLocationOf(u)
	startLoc := net.inst.LocationOf(v)
	return net.inst.Parameters.Shunting.MinimalDuration.Add(net.inst.DeadHead.Duration(endLoc, startLoc))
}
