package schedule

import (
	"railshunt/internal/model"
	"railshunt/internal/network"
)

// recompute rebuilds a Tour's cached aggregates from scratch given its
// node list. Tour operations call it over the whole new node list after
// every structural change.
func recompute(inst *model.Instance, net *network.Network, vehicleTypeIdx int, nodes []int) Tour {
	t := Tour{VehicleTypeIdx: vehicleTypeIdx, Nodes: nodes}
	sinceMaintenance := 0.0
	for i := 0; i < len(nodes); i++ {
		n := inst.Node(nodes[i])
		switch n.Kind {
		case model.NodeServiceTrip:
			sinceMaintenance += n.Distance
			t.CostContribution += inst.Parameters.Costs.ServiceTripPerSecond * float64(n.End.SubOrZero(n.Start).Seconds())
		case model.NodeMaintenance:
			if inst.Parameters.Costs.MaintenancePerSecond != 0 {
				t.CostContribution += inst.Parameters.Costs.MaintenancePerSecond * float64(n.End.SubOrZero(n.Start).Seconds())
			}
			sinceMaintenance = 0
		}
		if i+1 < len(nodes) {
			next := inst.Node(nodes[i+1])
			fromLoc := inst.EndLocationOf(n)
			toLoc := inst.LocationOf(next)
			transition := net.ShuntingTransition(n, next)
			if fromLoc != toLoc {
				dist := inst.DeadHead.Distance(fromLoc, toLoc)
				t.DeadHeadDistance += dist
				sinceMaintenance += dist
				t.CostContribution += inst.Parameters.Costs.DeadHeadTripPerSecond * float64(transition.Seconds())
			}
			gap := next.Start.SubOrZero(n.End)
			idle := gap.Seconds() - transition.Seconds()
			if idle > 0 {
				t.CostContribution += inst.Parameters.Costs.IdlePerSecond * float64(idle)
			}
		}
	}
	t.DistanceSinceMaintenance = sinceMaintenance
	if len(nodes) > 0 {
		t.CostContribution += inst.Parameters.Costs.StaffPerSecond * float64(staffSeconds(inst, nodes))
	}
	return t
}

// staffSeconds is the total wall-clock span of the tour's service-trip
// coverage, counted once per formation regardless of formation size
// (§4.4 level 4: "staff ... once per formation"). nodes[0] and
// nodes[len-1] are always the tour's start/end depot, whose Start/End
// are the ±∞ sentinels (§3, model/load.go) — the span must be measured
// between the first and last non-depot node instead, or every Sub below
// fails on an infinite operand and staff cost is silently zero.
func staffSeconds(inst *model.Instance, nodes []int) int64 {
	if len(nodes) < 3 {
		return 0
	}
	middle := nodes[1 : len(nodes)-1]
	first := inst.Node(middle[0])
	last := inst.Node(middle[len(middle)-1])
	d, err := last.End.Sub(first.Start)
	if err != nil {
		return 0
	}
	return d.Seconds()
}
