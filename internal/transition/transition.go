// Package transition builds the next-day vehicle cycle mapping (§3):
// a set of disjoint directed cycles over all real vehicles, preserving
// vehicle type, where the successor's start depot equals the
// predecessor's end depot.
//
// The construction is a bipartite perfect matching per vehicle type: real
// vehicles of that type appear on both sides of a bipartite graph, with
// an edge (u -> v) iff u's tour ends at the depot where v's tour starts.
// A matching that pairs every vehicle decomposes into the cycles §3
// requires. This is the one place in the engine that needs a "does a
// valid assignment exist" subroutine distinct from the min-cost
// circulation, and it is grounded on a real graph-algorithms dependency
// rather than a hand-rolled matcher.
package transition

import (
	"context"
	"fmt"
	"sort"

	"github.com/katalvlaran/lvlath/core"
	"github.com/katalvlaran/lvlath/flow"

	"railshunt/internal/model"
	"railshunt/internal/schedule"
)

// ErrNoPerfectMatching reports that a vehicle type's tours have no
// depot-consistent successor assignment at all (some vehicle's end depot
// matches no vehicle's start depot of the same type). The caller may
// fall back to leaving those vehicles as singleton self-cycles; this is
// an operational-output concern, not a constraint the solver enforces
// within a single /solve call.
var ErrNoPerfectMatching = fmt.Errorf("transition: no depot-consistent perfect matching exists")

// Build computes the full next-day cycle mapping for every vehicle in s,
// grouped by vehicle type.
func Build(ctx context.Context, inst *model.Instance, s *schedule.Schedule) (map[schedule.VehicleID]schedule.VehicleID, error) {
	byType := map[int][]schedule.VehicleID{}
	for id, v := range s.Vehicles {
		byType[v.VehicleTypeIdx] = append(byType[v.VehicleTypeIdx], id)
	}

	mapping := map[schedule.VehicleID]schedule.VehicleID{}
	for _, ids := range byType {
		m, err := matchOne(ctx, inst, s, ids)
		if err != nil {
			// Fall back to self-cycles for this vehicle type rather than
			// failing the whole solve; vehicleCycles is informational
			// output, and a partial mapping is preferable to none.
			for _, id := range ids {
				mapping[id] = id
			}
			continue
		}
		for k, v := range m {
			mapping[k] = v
		}
	}
	return mapping, nil
}

// DecomposeCycles splits a successor mapping (as produced by Build, or
// read back from Schedule.CycleMapping) into its disjoint cycles, each
// listed starting from its lexicographically smallest member so output
// is deterministic across otherwise-equivalent schedules.
func DecomposeCycles(mapping map[schedule.VehicleID]schedule.VehicleID) [][]schedule.VehicleID {
	visited := map[schedule.VehicleID]bool{}
	var cycles [][]schedule.VehicleID
	for start := range mapping {
		if visited[start] {
			continue
		}
		var cycle []schedule.VehicleID
		for v := start; !visited[v]; v = mapping[v] {
			visited[v] = true
			cycle = append(cycle, v)
		}
		cycles = append(cycles, rotateToMin(cycle))
	}
	sort.Slice(cycles, func(i, j int) bool { return cycles[i][0] < cycles[j][0] })
	return cycles
}

func rotateToMin(cycle []schedule.VehicleID) []schedule.VehicleID {
	minIdx := 0
	for i, v := range cycle {
		if v < cycle[minIdx] {
			minIdx = i
		}
	}
	out := make([]schedule.VehicleID, len(cycle))
	copy(out, cycle[minIdx:])
	copy(out[len(cycle)-minIdx:], cycle[:minIdx])
	return out
}

func matchOne(ctx context.Context, inst *model.Instance, s *schedule.Schedule, ids []schedule.VehicleID) (map[schedule.VehicleID]schedule.VehicleID, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	g := core.NewGraph(true, true)
	g.AddVertex(&core.Vertex{ID: "src"})
	g.AddVertex(&core.Vertex{ID: "sink"})
	for _, id := range ids {
		g.AddVertex(&core.Vertex{ID: "L_" + string(id)})
		g.AddVertex(&core.Vertex{ID: "R_" + string(id)})
		g.AddEdge("src", "L_"+string(id), 1)
		g.AddEdge("R_"+string(id), "sink", 1)
	}
	for _, u := range ids {
		uEndDepot := inst.Nodes[s.Tours[u].EndDepotNode()].DepotIdx
		for _, v := range ids {
			vStartDepot := inst.Nodes[s.Tours[v].StartDepotNode()].DepotIdx
			if uEndDepot == vStartDepot {
				g.AddEdge("L_"+string(u), "R_"+string(v), 1)
			}
		}
	}

	maxFlow, residual, err := flow.EdmondsKarp(ctx, g, "src", "sink", nil)
	if err != nil {
		return nil, err
	}
	if int(maxFlow) != len(ids) {
		return nil, ErrNoPerfectMatching
	}

	mapping := map[schedule.VehicleID]schedule.VehicleID{}
	for _, u := range ids {
		lNode := "L_" + string(u)
		matched := false
		for _, v := range ids {
			rNode := "R_" + string(v)
			for _, e := range residual.AdjacencyList()[rNode][lNode] {
				if e.Weight > 0 {
					mapping[u] = v
					matched = true
				}
			}
		}
		if !matched {
			return nil, ErrNoPerfectMatching
		}
	}
	return mapping, nil
}
