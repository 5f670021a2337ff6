package circulation

import (
	"railshunt/internal/apierr"
	"railshunt/internal/metrics"
	"railshunt/internal/model"
	"railshunt/internal/network"
	"railshunt/internal/schedule"
)

// InitialAssignment builds the minimum-cost feasible vehicle assignment
// for every vehicle type and spawns the corresponding real vehicles on
// top of the all-dummy initial schedule, per §4.5. On CirculationInfeasible
// for a vehicle type, it relaxes that type's service-trip lower bounds to
// zero and retries — accepting unserved passengers rather than failing
// the whole solve, consistent with §7's retry policy.
func InitialAssignment(inst *model.Instance, net *network.Network) (*schedule.Schedule, error) {
	s := schedule.Initial(inst, net)
	for _, vt := range inst.VehicleTypes {
		var err error
		s, err = assignType(s, inst, net, vt.Idx, false)
		if err != nil && apierr.Is(err, apierr.CirculationInfeasible) {
			metrics.CirculationRetries.WithLabelValues("lower_bounds_relaxed").Inc()
			s, err = assignType(s, inst, net, vt.Idx, true)
		}
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

func assignType(s *schedule.Schedule, inst *model.Instance, net *network.Network, vehicleTypeIdx int, relaxed bool) (*schedule.Schedule, error) {
	bt := build(inst, net, vehicleTypeIdx, relaxed)
	if err := solve(bt); err != nil {
		return nil, err
	}
	paths := decode(bt)

	for _, path := range paths {
		if len(path) < 2 {
			continue
		}
		start := path[0]
		end := path[len(path)-1]
		middle := path[1 : len(path)-1]
		next, _, err := schedule.SpawnVehicleFor(s, middle, start, end, vehicleTypeIdx)
		if err != nil {
			continue // a candidate path the circulation deemed feasible but the
			// modification algebra's independent reachability/capacity
			// recheck rejects; skip rather than fail the whole solve.
		}
		s = next
	}
	return s, nil
}

