package api

import (
	"os"
	"sort"
	"time"

	"railshunt/internal/model"
	"railshunt/internal/objective"
	"railshunt/internal/railtime"
	"railshunt/internal/schedule"
	"railshunt/internal/transition"
)

// OutputJSON is the /solve response body (spec.md §6's "output JSON
// essentials"): an info block, the objective vector, the schedule
// grouped by vehicle, and three trip-perspective views of the same
// schedule, each carrying its formation front-to-tail.
type OutputJSON struct {
	Info              OutputInfo               `json:"info"`
	ObjectiveValue    OutputObjectiveValue     `json:"objectiveValue"`
	Schedule          OutputSchedule           `json:"schedule"`
	DepartureSegments []OutputDepartureSegment `json:"departureSegments"`
	MaintenanceSlots  []OutputMaintenanceSlot  `json:"maintenanceSlots"`
	DeadHeadTrips     []OutputDeadHeadTrip     `json:"deadHeadTrips"`
}

type OutputInfo struct {
	RunningTimeMs   int64  `json:"runningTimeMs"`
	NumberOfThreads int    `json:"numberOfThreads"`
	Timestamp       string `json:"timestamp"`
	Hostname        string `json:"hostname"`
	Policy          string `json:"policy"`
	CacheHit        bool   `json:"cacheHit,omitempty"`
}

type OutputObjectiveValue struct {
	UnservedPassengers   int64 `json:"unservedPassengers"`
	MaintenanceViolation int64 `json:"maintenanceViolation"`
	VehicleCount         int64 `json:"vehicleCount"`
	OperatingCost        int64 `json:"operatingCost"`
}

type OutputSchedule struct {
	DepotLoads []OutputDepotLoad  `json:"depotLoads"`
	Fleet      []OutputFleetGroup `json:"fleet"`
}

type OutputDepotLoad struct {
	DepotID        string `json:"depotId"`
	VehicleTypeID  string `json:"vehicleTypeId"`
	StartCount     int    `json:"startCount"`
	EndCount       int    `json:"endCount"`
}

type OutputFleetGroup struct {
	VehicleTypeID string          `json:"vehicleTypeId"`
	Vehicles      []OutputVehicle `json:"vehicles"`
	VehicleCycles [][]string      `json:"vehicleCycles"`
}

type OutputVehicle struct {
	VehicleID         string                   `json:"vehicleId"`
	StartDepotID      string                   `json:"startDepotId"`
	EndDepotID        string                   `json:"endDepotId"`
	DepartureSegments []OutputDepartureSegment `json:"departureSegments"`
	MaintenanceSlots  []OutputMaintenanceSlot  `json:"maintenanceSlots"`
	DeadHeadTrips     []OutputDeadHeadTrip     `json:"deadHeadTrips"`
}

type OutputDepartureSegment struct {
	DepartureID  string   `json:"departureId"`
	RouteID      string   `json:"routeId"`
	SegmentOrder int      `json:"segmentOrder"`
	Formation    []string `json:"formation"`
}

type OutputMaintenanceSlot struct {
	MaintenanceID string   `json:"maintenanceId"`
	Formation     []string `json:"formation"`
}

type OutputDeadHeadTrip struct {
	VehicleID       string  `json:"vehicleId"`
	FromLocationID  string  `json:"fromLocationId"`
	ToLocationID    string  `json:"toLocationId"`
	DurationSeconds int64   `json:"durationSeconds"`
	Formation       []string `json:"formation"`
}

// buildOutput assembles the response for a completed solve. start marks
// when the request began processing, used for Info.RunningTimeMs.
func buildOutput(inst *model.Instance, s *schedule.Schedule, value objective.ObjectiveValue, policy string, poolSize int, start time.Time, cacheHit bool) OutputJSON {
	hostname, _ := os.Hostname()

	out := OutputJSON{
		Info: OutputInfo{
			RunningTimeMs:   time.Since(start).Milliseconds(),
			NumberOfThreads: poolSize,
			Timestamp:       time.Now().UTC().Format(time.RFC3339),
			Hostname:        hostname,
			Policy:          policy,
			CacheHit:        cacheHit,
		},
		ObjectiveValue: OutputObjectiveValue{
			UnservedPassengers:   value.Values[0].Int,
			MaintenanceViolation: value.Values[1].Int,
			VehicleCount:         value.Values[2].Int,
			OperatingCost:        value.Values[3].Int,
		},
	}

	out.Schedule.DepotLoads = depotLoads(inst, s)
	out.Schedule.Fleet = fleetGroups(inst, s)
	out.DepartureSegments, out.MaintenanceSlots, out.DeadHeadTrips = tripViews(inst, s)
	return out
}

func depotLoads(inst *model.Instance, s *schedule.Schedule) []OutputDepotLoad {
	var out []OutputDepotLoad
	for depotIdx, depot := range inst.Depots {
		for vtIdx := range inst.VehicleTypes {
			start := s.Ledger.Start[depotIdx][vtIdx]
			end := s.Ledger.End[depotIdx][vtIdx]
			if start == 0 && end == 0 {
				continue
			}
			out = append(out, OutputDepotLoad{
				DepotID:       depot.ID,
				VehicleTypeID: inst.VehicleTypes[vtIdx].ID,
				StartCount:    start,
				EndCount:      end,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DepotID != out[j].DepotID {
			return out[i].DepotID < out[j].DepotID
		}
		return out[i].VehicleTypeID < out[j].VehicleTypeID
	})
	return out
}

func fleetGroups(inst *model.Instance, s *schedule.Schedule) []OutputFleetGroup {
	byType := map[int][]schedule.VehicleID{}
	for id, v := range s.Vehicles {
		byType[v.VehicleTypeIdx] = append(byType[v.VehicleTypeIdx], id)
	}

	cycles := transition.DecomposeCycles(s.CycleMapping)

	var out []OutputFleetGroup
	for vtIdx, vt := range inst.VehicleTypes {
		ids := byType[vtIdx]
		if len(ids) == 0 {
			continue
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		group := OutputFleetGroup{VehicleTypeID: vt.ID}
		for _, id := range ids {
			group.Vehicles = append(group.Vehicles, vehicleView(inst, s, id))
		}
		for _, cyc := range cycles {
			if len(cyc) == 0 || s.Vehicles[cyc[0]].VehicleTypeIdx != vtIdx {
				continue
			}
			strs := make([]string, len(cyc))
			for i, v := range cyc {
				strs[i] = string(v)
			}
			group.VehicleCycles = append(group.VehicleCycles, strs)
		}
		out = append(out, group)
	}
	return out
}

func vehicleView(inst *model.Instance, s *schedule.Schedule, id schedule.VehicleID) OutputVehicle {
	t := s.Tours[id]
	v := OutputVehicle{
		VehicleID:    string(id),
		StartDepotID: inst.Depots[inst.Nodes[t.StartDepotNode()].DepotIdx].ID,
		EndDepotID:   inst.Depots[inst.Nodes[t.EndDepotNode()].DepotIdx].ID,
	}

	prevLoc := -1
	prevEnd := railtime.Instant(0)
	for i, ni := range t.Nodes {
		n := inst.Node(ni)
		switch n.Kind {
		case model.NodeServiceTrip:
			v.DepartureSegments = append(v.DepartureSegments, OutputDepartureSegment{
				DepartureID: n.DepartureID, RouteID: n.RouteID, SegmentOrder: n.SegmentOrder,
				Formation: formationStrings(s, ni),
			})
		case model.NodeMaintenance:
			v.MaintenanceSlots = append(v.MaintenanceSlots, OutputMaintenanceSlot{
				MaintenanceID: n.MaintenanceID, Formation: formationStrings(s, ni),
			})
		}
		if i > 0 {
			loc := inst.LocationOf(n)
			if prevLoc >= 0 && prevLoc != loc {
				v.DeadHeadTrips = append(v.DeadHeadTrips, OutputDeadHeadTrip{
					VehicleID:       string(id),
					FromLocationID:  inst.Locations[prevLoc].ID,
					ToLocationID:    inst.Locations[loc].ID,
					DurationSeconds: n.Start.SubOrZero(prevEnd).Seconds(),
					Formation:       []string{string(id)},
				})
			}
		}
		prevLoc = inst.EndLocationOf(n)
		prevEnd = n.End
	}
	return v
}

func formationStrings(s *schedule.Schedule, nodeIdx int) []string {
	f := s.Formations[nodeIdx]
	out := make([]string, len(f))
	for i, v := range f {
		out[i] = string(v)
	}
	return out
}

// tripViews produces the dual trip-perspective lists: every departure
// segment, maintenance slot and dead-head leg across the whole fleet,
// each carrying the formation assigned to it.
func tripViews(inst *model.Instance, s *schedule.Schedule) ([]OutputDepartureSegment, []OutputMaintenanceSlot, []OutputDeadHeadTrip) {
	var departures []OutputDepartureSegment
	var maintenance []OutputMaintenanceSlot
	var deadHeads []OutputDeadHeadTrip

	for _, n := range inst.Nodes {
		switch n.Kind {
		case model.NodeServiceTrip:
			departures = append(departures, OutputDepartureSegment{
				DepartureID: n.DepartureID, RouteID: n.RouteID, SegmentOrder: n.SegmentOrder,
				Formation: formationStrings(s, n.Idx),
			})
		case model.NodeMaintenance:
			maintenance = append(maintenance, OutputMaintenanceSlot{
				MaintenanceID: n.MaintenanceID, Formation: formationStrings(s, n.Idx),
			})
		}
	}
	sort.Slice(departures, func(i, j int) bool {
		if departures[i].RouteID != departures[j].RouteID {
			return departures[i].RouteID < departures[j].RouteID
		}
		return departures[i].SegmentOrder < departures[j].SegmentOrder
	})
	sort.Slice(maintenance, func(i, j int) bool { return maintenance[i].MaintenanceID < maintenance[j].MaintenanceID })

	ids := make([]schedule.VehicleID, 0, len(s.Tours))
	for id := range s.Tours {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		deadHeads = append(deadHeads, vehicleView(inst, s, id).DeadHeadTrips...)
	}
	return departures, maintenance, deadHeads
}
