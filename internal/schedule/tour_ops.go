package schedule

import (
	"railshunt/internal/apierr"
	"railshunt/internal/model"
	"railshunt/internal/network"
	"railshunt/internal/railtime"
)

// ReplaceStartDepot substitutes the tour's start-depot endpoint,
// returning the removed (old) depot node. Fails InfeasibleModification if
// the new depot is not type-compatible and reachable into the tour's
// first real node.
func ReplaceStartDepot(inst *model.Instance, net *network.Network, t Tour, newDepotNode int) (Tour, []int, error) {
	return replaceEndpoint(inst, net, t, newDepotNode, true)
}

// ReplaceEndDepot substitutes the tour's end-depot endpoint.
func ReplaceEndDepot(inst *model.Instance, net *network.Network, t Tour, newDepotNode int) (Tour, []int, error) {
	return replaceEndpoint(inst, net, t, newDepotNode, false)
}

func replaceEndpoint(inst *model.Instance, net *network.Network, t Tour, newDepotNode int, start bool) (Tour, []int, error) {
	nd := inst.Node(newDepotNode)
	if start && nd.Kind != model.NodeStartDepot || !start && nd.Kind != model.NodeEndDepot {
		return Tour{}, nil, apierr.New(apierr.InfeasibleModification, "node %d is not a matching depot endpoint", newDepotNode)
	}
	if nd.VehicleTypeIdx != t.VehicleTypeIdx {
		return Tour{}, nil, apierr.New(apierr.InfeasibleModification, "depot %d vehicle type mismatch", newDepotNode)
	}
	removed := []int{}
	nodes := append([]int{}, t.Nodes...)
	if start {
		removed = append(removed, nodes[0])
		if len(nodes) > 1 && !net.CanReach(nd, inst.Node(nodes[1])) {
			return Tour{}, nil, apierr.New(apierr.InfeasibleModification, "new start depot %d cannot reach tour", newDepotNode)
		}
		nodes[0] = newDepotNode
	} else {
		last := len(nodes) - 1
		removed = append(removed, nodes[last])
		if last > 0 && !net.CanReach(inst.Node(nodes[last-1]), nd) {
			return Tour{}, nil, apierr.New(apierr.InfeasibleModification, "new end depot %d unreachable from tour", newDepotNode)
		}
		nodes[last] = newDepotNode
	}
	return recompute(inst, net, t.VehicleTypeIdx, nodes), removed, nil
}

// RemoveSegment removes the closed interval [from, to] of node indices
// from the tour (both must be present, from before to), requiring the
// remaining prefix to still reach the remaining suffix. Returns the
// removed middle path.
func RemoveSegment(inst *model.Instance, net *network.Network, t Tour, from, to int) (Tour, []int, error) {
	fi, ok1 := indexOf(t.Nodes, from)
	ti, ok2 := indexOf(t.Nodes, to)
	if !ok1 || !ok2 || fi > ti || fi == 0 || ti == len(t.Nodes)-1 {
		return Tour{}, nil, apierr.New(apierr.InfeasibleModification, "remove_segment: bad bounds [%d,%d]", from, to)
	}
	prefix := t.Nodes[:fi]
	suffix := t.Nodes[ti+1:]
	removed := append([]int{}, t.Nodes[fi:ti+1]...)
	if len(prefix) > 0 && len(suffix) > 0 {
		if !net.CanReach(inst.Node(prefix[len(prefix)-1]), inst.Node(suffix[0])) {
			return Tour{}, nil, apierr.New(apierr.InfeasibleModification, "remove_segment: remaining prefix cannot reach suffix")
		}
	}
	newNodes := append(append([]int{}, prefix...), suffix...)
	return recompute(inst, net, t.VehicleTypeIdx, newNodes), removed, nil
}

// InsertPath finds the unique splice point in t where p (a reachable path
// of non-depot nodes) fits, evicting any tour nodes whose time interval
// overlaps p's convex time hull. Ties break toward the earliest feasible
// splice position.
func InsertPath(inst *model.Instance, net *network.Network, t Tour, p []int) (Tour, []int, error) {
	if len(p) == 0 {
		return t, nil, nil
	}
	pStart := inst.Node(p[0]).Start
	pEnd := inst.Node(p[len(p)-1]).End

	for i := 0; i < len(t.Nodes)-1; i++ {
		left := inst.Node(t.Nodes[i])
		if !net.CanReach(left, inst.Node(p[0])) {
			continue
		}
		// Find how far right the eviction window must extend: every
		// node whose interval intersects [pStart, pEnd].
		j := i + 1
		for j < len(t.Nodes)-1 && intervalsOverlap(inst.Node(t.Nodes[j]).Start, inst.Node(t.Nodes[j]).End, pStart, pEnd) {
			j++
		}
		right := inst.Node(t.Nodes[j])
		if !net.CanReach(inst.Node(p[len(p)-1]), right) {
			continue
		}
		removed := append([]int{}, t.Nodes[i+1:j]...)
		newNodes := append(append(append([]int{}, t.Nodes[:i+1]...), p...), t.Nodes[j:]...)
		return recompute(inst, net, t.VehicleTypeIdx, newNodes), removed, nil
	}
	return Tour{}, nil, apierr.New(apierr.InfeasibleModification, "insert_path: no feasible splice point")
}

func intervalsOverlap(aStart, aEnd, bStart, bEnd railtime.Instant) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd) || aStart == bStart
}

func indexOf(nodes []int, v int) (int, bool) {
	for i, n := range nodes {
		if n == v {
			return i, true
		}
	}
	return 0, false
}
