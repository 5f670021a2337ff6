package model

import (
	"time"

	"railshunt/internal/apierr"
	"railshunt/internal/railtime"
)

const unboundedCapacity = 1 << 30

// Load validates an InputJSON and builds the immutable Instance it
// describes. Any schema or semantic violation returns an *apierr.Error of
// kind InvalidInstance (§4.1). defaults, when non-nil, supplies a
// fallback for any CostsJSON field the request body leaves at zero
// (CONFIG_FILE's defaultCosts block, threaded in by the caller); pass
// nil to apply the request's costs exactly as given.
func Load(in InputJSON, defaults *CostDefaults) (*Instance, error) {
	inst := &Instance{
		StartDepotsOf:     map[int][]int{},
		EndDepotsOf:       map[int][]int{},
		DepartureSegments: map[string][]int{},
	}

	vtIdx := map[string]int{}
	for i, v := range in.VehicleTypes {
		if v.ID == "" {
			return nil, apierr.New(apierr.InvalidInstance, "vehicleTypes[%d]: missing id", i)
		}
		if _, dup := vtIdx[v.ID]; dup {
			return nil, apierr.New(apierr.InvalidInstance, "vehicleTypes: duplicate id %q", v.ID)
		}
		vtIdx[v.ID] = i
		inst.VehicleTypes = append(inst.VehicleTypes, VehicleType{
			Idx: i, ID: v.ID, Name: v.Name, Seats: v.Seats, Capacity: v.Capacity,
			MaximalFormationCount: v.MaximalFormationCount,
		})
	}

	locIdx := map[string]int{}
	for i, l := range in.Locations {
		if l.ID == "" {
			return nil, apierr.New(apierr.InvalidInstance, "locations[%d]: missing id", i)
		}
		if _, dup := locIdx[l.ID]; dup {
			return nil, apierr.New(apierr.InvalidInstance, "locations: duplicate id %q", l.ID)
		}
		locIdx[l.ID] = i
		inst.Locations = append(inst.Locations, Location{Idx: i, ID: l.ID, Name: l.Name, DayLimit: l.DayLimit})
	}

	if err := loadDepots(inst, in, locIdx, vtIdx); err != nil {
		return nil, err
	}
	if err := loadDeadHeadTable(inst, in, locIdx); err != nil {
		return nil, err
	}

	inst.Parameters = loadParameters(in.Parameters, defaults)

	routes := map[string]RouteJSON{}
	routeVT := map[string]int{}
	for _, r := range in.Routes {
		if r.ID == "" {
			return nil, apierr.New(apierr.InvalidInstance, "routes: missing id")
		}
		if _, dup := routes[r.ID]; dup {
			return nil, apierr.New(apierr.InvalidInstance, "routes: duplicate id %q", r.ID)
		}
		vt, ok := vtIdx[r.VehicleType]
		if !ok {
			return nil, apierr.New(apierr.InvalidInstance, "routes[%s]: unknown vehicleType %q", r.ID, r.VehicleType)
		}
		for i, seg := range r.Segments {
			if _, ok := locIdx[seg.Origin]; !ok {
				return nil, apierr.New(apierr.InvalidInstance, "routes[%s].segments[%d]: unknown origin %q", r.ID, i, seg.Origin)
			}
			if _, ok := locIdx[seg.Destination]; !ok {
				return nil, apierr.New(apierr.InvalidInstance, "routes[%s].segments[%d]: unknown destination %q", r.ID, i, seg.Destination)
			}
			if i > 0 && r.Segments[i-1].Destination != seg.Origin {
				return nil, apierr.New(apierr.InvalidInstance,
					"routes[%s]: segment chain broken at %d (%q != %q)", r.ID, i, r.Segments[i-1].Destination, seg.Origin)
			}
		}
		routes[r.ID] = r
		routeVT[r.ID] = vt
	}

	for di, dep := range in.Departures {
		route, ok := routes[dep.Route]
		if !ok {
			return nil, apierr.New(apierr.InvalidInstance, "departures[%d]: unknown route %q", di, dep.Route)
		}
		if len(dep.Segments) != len(route.Segments) {
			return nil, apierr.New(apierr.InvalidInstance,
				"departures[%s]: segment count %d does not match route %q's %d",
				dep.ID, len(dep.Segments), dep.Route, len(route.Segments))
		}
		var nodeIdxs []int
		for i, seg := range dep.Segments {
			routeSeg := route.Segments[i]
			start, err := time.Parse(time.RFC3339, seg.Departure)
			if err != nil {
				return nil, apierr.New(apierr.InvalidInstance, "departures[%s].segments[%d]: bad departure timestamp: %v", dep.ID, i, err)
			}
			startInstant := railtime.FromUnix(start.Unix())
			endInstant := startInstant.Add(railtime.Seconds(routeSeg.Duration))
			idx := len(inst.Nodes)
			inst.Nodes = append(inst.Nodes, Node{
				Idx:            idx,
				Kind:           NodeServiceTrip,
				VehicleTypeIdx: routeVT[dep.Route],
				LocationIdx:    locIdx[routeSeg.Origin],
				DestinationIdx: locIdx[routeSeg.Destination],
				DepartureID:    dep.ID,
				RouteID:        dep.Route,
				SegmentOrder:   seg.Order,
				Demand:         seg.Passengers,
				SeatedDemand:   seg.Seated,
				Distance:       routeSeg.Distance,
				MaxFormation:   routeSeg.MaximalFormationCount,
				Start:          startInstant,
				End:            endInstant,
			})
			nodeIdxs = append(nodeIdxs, idx)
		}
		inst.DepartureSegments[dep.ID] = nodeIdxs
	}

	for mi, m := range in.MaintenanceSlots {
		loc, ok := locIdx[m.Location]
		if !ok {
			return nil, apierr.New(apierr.InvalidInstance, "maintenanceSlots[%d]: unknown location %q", mi, m.Location)
		}
		start, err := time.Parse(time.RFC3339, m.Start)
		if err != nil {
			return nil, apierr.New(apierr.InvalidInstance, "maintenanceSlots[%d]: bad start timestamp: %v", mi, err)
		}
		end, err := time.Parse(time.RFC3339, m.End)
		if err != nil {
			return nil, apierr.New(apierr.InvalidInstance, "maintenanceSlots[%d]: bad end timestamp: %v", mi, err)
		}
		trackCount := m.TrackCount
		if trackCount <= 0 {
			trackCount = 1
		}
		inst.Nodes = append(inst.Nodes, Node{
			Idx:           len(inst.Nodes),
			Kind:          NodeMaintenance,
			LocationIdx:   loc,
			MaintenanceID: m.ID,
			TrackCount:    trackCount,
			Start:         railtime.FromUnix(start.Unix()),
			End:           railtime.FromUnix(end.Unix()),
		})
	}

	for _, d := range inst.Depots {
		for vtIdx, cap := range d.PerType {
			if cap <= 0 {
				continue
			}
			startIdx := len(inst.Nodes)
			inst.Nodes = append(inst.Nodes, Node{
				Idx: startIdx, Kind: NodeStartDepot, DepotIdx: d.Idx, VehicleTypeIdx: vtIdx,
				Start: railtime.MinusInfinity, End: railtime.MinusInfinity,
			})
			endIdx := len(inst.Nodes)
			inst.Nodes = append(inst.Nodes, Node{
				Idx: endIdx, Kind: NodeEndDepot, DepotIdx: d.Idx, VehicleTypeIdx: vtIdx,
				Start: railtime.PlusInfinity, End: railtime.PlusInfinity,
			})
			inst.StartDepotsOf[vtIdx] = append(inst.StartDepotsOf[vtIdx], startIdx)
			inst.EndDepotsOf[vtIdx] = append(inst.EndDepotsOf[vtIdx], endIdx)
		}
	}

	return inst, nil
}

func loadDepots(inst *Instance, in InputJSON, locIdx, vtIdx map[string]int) error {
	if len(in.Depots) == 0 {
		// Absent depots: every location is an unbounded depot for every
		// vehicle type.
		for li := range inst.Locations {
			perType := map[int]int{}
			for vi := range inst.VehicleTypes {
				perType[vi] = unboundedCapacity
			}
			inst.Depots = append(inst.Depots, Depot{
				Idx: li, ID: inst.Locations[li].ID, LocationIdx: li,
				Capacity: unboundedCapacity, PerType: perType,
			})
		}
		return nil
	}
	for i, d := range in.Depots {
		li, ok := locIdx[d.Location]
		if !ok {
			return apierr.New(apierr.InvalidInstance, "depots[%d]: unknown location %q", i, d.Location)
		}
		perType := map[int]int{}
		for _, at := range d.AllowedTypes {
			vi, ok := vtIdx[at.VehicleType]
			if !ok {
				return apierr.New(apierr.InvalidInstance, "depots[%s]: unknown vehicleType %q", d.ID, at.VehicleType)
			}
			perType[vi] = at.Capacity
		}
		inst.Depots = append(inst.Depots, Depot{
			Idx: i, ID: d.ID, LocationIdx: li, Capacity: d.Capacity, PerType: perType,
		})
	}
	return nil
}

func loadDeadHeadTable(inst *Instance, in InputJSON, locIdx map[string]int) error {
	n := len(inst.Locations)
	dh := in.DeadHeadTrips
	if len(dh.Indices) != n || len(dh.Durations) != n || len(dh.Distances) != n {
		return apierr.New(apierr.InvalidInstance, "deadHeadTrips: matrix is not N x N over the declared locations (N=%d)", n)
	}
	perm := make([]int, n)
	seen := map[string]bool{}
	for i, id := range dh.Indices {
		li, ok := locIdx[id]
		if !ok {
			return apierr.New(apierr.InvalidInstance, "deadHeadTrips.indices[%d]: unknown location %q", i, id)
		}
		if seen[id] {
			return apierr.New(apierr.InvalidInstance, "deadHeadTrips.indices: duplicate location %q", id)
		}
		seen[id] = true
		perm[i] = li
	}
	if len(seen) != n {
		return apierr.New(apierr.InvalidInstance, "deadHeadTrips.indices: must cover every declared location exactly once")
	}
	durations := make([][]railtime.Duration, n)
	distances := make([][]float64, n)
	for i := range durations {
		durations[i] = make([]railtime.Duration, n)
		distances[i] = make([]float64, n)
	}
	for i, row := range dh.Durations {
		if len(row) != n {
			return apierr.New(apierr.InvalidInstance, "deadHeadTrips.durations[%d]: row length %d != %d", i, len(row), n)
		}
		for j, v := range row {
			durations[perm[i]][perm[j]] = railtime.Seconds(v)
		}
	}
	for i, row := range dh.Distances {
		if len(row) != n {
			return apierr.New(apierr.InvalidInstance, "deadHeadTrips.distances[%d]: row length %d != %d", i, len(row), n)
		}
		for j, v := range row {
			distances[perm[i]][perm[j]] = v
		}
	}
	inst.DeadHead = DeadHeadTable{Durations: durations, Distances: distances}
	return nil
}

func loadParameters(p ParametersJSON, defaults *CostDefaults) Parameters {
	return Parameters{
		ForbidDeadHeadTrips: p.ForbidDeadHeadTrips,
		DayLimitThreshold:   p.DayLimitThreshold,
		Shunting: ShuntingParams{
			MinimalDuration:      railtime.Seconds(p.Shunting.MinimalDuration),
			DeadHeadTripDuration: railtime.Seconds(p.Shunting.DeadHeadTripDuration),
			CouplingDuration:     railtime.Seconds(p.Shunting.CouplingDuration),
		},
		MaximalDistance: p.Maintenance.MaximalDistance,
		Costs:           loadCosts(p.Costs, defaults),
	}
}

// loadCosts applies defaults field by field to whichever of the
// request's cost coefficients were left at zero. A request that
// genuinely wants a zero-cost term still gets it overridden by a
// configured default in that case — the wire format has no way to say
// "explicitly zero" that differs from "omitted."
func loadCosts(c CostsJSON, defaults *CostDefaults) Costs {
	out := Costs{
		StaffPerSecond:        c.StaffPerSecond,
		ServiceTripPerSecond:  c.ServiceTripPerSecond,
		MaintenancePerSecond:  c.MaintenancePerSecond,
		DeadHeadTripPerSecond: c.DeadHeadTripPerSecond,
		IdlePerSecond:         c.IdlePerSecond,
	}
	if defaults == nil {
		return out
	}
	if out.StaffPerSecond == 0 && defaults.StaffPerSecond != nil {
		out.StaffPerSecond = *defaults.StaffPerSecond
	}
	if out.ServiceTripPerSecond == 0 && defaults.ServiceTripPerSecond != nil {
		out.ServiceTripPerSecond = *defaults.ServiceTripPerSecond
	}
	if out.MaintenancePerSecond == 0 && defaults.MaintenancePerSecond != nil {
		out.MaintenancePerSecond = *defaults.MaintenancePerSecond
	}
	if out.DeadHeadTripPerSecond == 0 && defaults.DeadHeadTripPerSecond != nil {
		out.DeadHeadTripPerSecond = *defaults.DeadHeadTripPerSecond
	}
	if out.IdlePerSecond == 0 && defaults.IdlePerSecond != nil {
		out.IdlePerSecond = *defaults.IdlePerSecond
	}
	return out
}
