package schedule_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"railshunt/internal/model"
	"railshunt/internal/network"
	"railshunt/internal/railtime"
	"railshunt/internal/schedule"
)

// roundTripInstance builds a single vehicle type shuttling A->B then
// B->A and returning to its starting depot, with a 200s idle gap
// between the two trips. Costs only carry a per-second staff rate, so
// any non-zero CostContribution observed below is attributable to
// staffSeconds alone.
func roundTripInstance(staffPerSecond float64) *model.Instance {
	inst := &model.Instance{
		VehicleTypes: []model.VehicleType{{Idx: 0, ID: "dmu", Capacity: 50}},
		Locations:    []model.Location{{Idx: 0, ID: "A"}, {Idx: 1, ID: "B"}},
		Depots: []model.Depot{
			{Idx: 0, ID: "depotA", LocationIdx: 0, Capacity: 2, PerType: map[int]int{0: 2}},
		},
		DeadHead: model.DeadHeadTable{
			Durations: [][]railtime.Duration{{railtime.Seconds(0), railtime.Seconds(0)}, {railtime.Seconds(0), railtime.Seconds(0)}},
			Distances: [][]float64{{0, 0}, {0, 0}},
		},
		Parameters: model.Parameters{Costs: model.Costs{StaffPerSecond: staffPerSecond}},
	}
	inst.Nodes = []model.Node{
		{Idx: 0, Kind: model.NodeStartDepot, DepotIdx: 0, VehicleTypeIdx: 0, Start: railtime.MinusInfinity, End: railtime.MinusInfinity},
		{Idx: 1, Kind: model.NodeEndDepot, DepotIdx: 0, VehicleTypeIdx: 0, Start: railtime.PlusInfinity, End: railtime.PlusInfinity},
		{Idx: 2, Kind: model.NodeServiceTrip, VehicleTypeIdx: 0, LocationIdx: 0, DestinationIdx: 1, Distance: 100, Demand: 5,
			Start: railtime.FromUnix(1000), End: railtime.FromUnix(1600)},
		{Idx: 3, Kind: model.NodeServiceTrip, VehicleTypeIdx: 0, LocationIdx: 1, DestinationIdx: 0, Distance: 80, Demand: 5,
			Start: railtime.FromUnix(1800), End: railtime.FromUnix(2400)},
	}
	return inst
}

func TestStaffSecondsMeasuresSpanBetweenFirstAndLastServiceNode(t *testing.T) {
	inst := roundTripInstance(1)
	net := network.Build(inst)
	s := schedule.Initial(inst, net)

	s, _, err := schedule.SpawnVehicleFor(s, []int{2, 3}, 0, 1, 0)
	require.NoError(t, err)

	var tour schedule.Tour
	for _, tr := range s.Tours {
		tour = tr
	}
	require.Equal(t, 1400.0, tour.CostContribution,
		"staff cost should span from trip 2's start (1000) to trip 3's end (2400), not collapse to zero against the depot sentinels")
}

func TestStaffSecondsIsZeroWithoutStaffCost(t *testing.T) {
	inst := roundTripInstance(0)
	net := network.Build(inst)
	s := schedule.Initial(inst, net)

	s, _, err := schedule.SpawnVehicleFor(s, []int{2, 3}, 0, 1, 0)
	require.NoError(t, err)

	for _, tr := range s.Tours {
		require.Zero(t, tr.CostContribution)
	}
}

// singleTripInstance is a lone A->B trip with depots colocated with the
// trip's own endpoints, so no dead-head distance enters the picture:
// DistanceSinceMaintenance should equal exactly the trip's distance.
func singleTripInstance() *model.Instance {
	inst := &model.Instance{
		VehicleTypes: []model.VehicleType{{Idx: 0, ID: "dmu", Capacity: 50}},
		Locations:    []model.Location{{Idx: 0, ID: "A"}, {Idx: 1, ID: "B"}},
		Depots: []model.Depot{
			{Idx: 0, ID: "depotA", LocationIdx: 0, Capacity: 1, PerType: map[int]int{0: 1}},
			{Idx: 1, ID: "depotB", LocationIdx: 1, Capacity: 1, PerType: map[int]int{0: 1}},
		},
		DeadHead: model.DeadHeadTable{
			Durations: [][]railtime.Duration{{railtime.Seconds(0), railtime.Seconds(0)}, {railtime.Seconds(0), railtime.Seconds(0)}},
			Distances: [][]float64{{0, 0}, {0, 0}},
		},
		Parameters: model.Parameters{MaximalDistance: 0},
	}
	inst.Nodes = []model.Node{
		{Idx: 0, Kind: model.NodeStartDepot, DepotIdx: 0, VehicleTypeIdx: 0, Start: railtime.MinusInfinity, End: railtime.MinusInfinity},
		{Idx: 1, Kind: model.NodeEndDepot, DepotIdx: 1, VehicleTypeIdx: 0, Start: railtime.PlusInfinity, End: railtime.PlusInfinity},
		{Idx: 2, Kind: model.NodeServiceTrip, VehicleTypeIdx: 0, LocationIdx: 0, DestinationIdx: 1, Distance: 100, Demand: 5,
			Start: railtime.FromUnix(1000), End: railtime.FromUnix(1600)},
	}
	return inst
}

func TestDistanceSinceMaintenanceEqualsServiceTripDistanceWithoutDeadHead(t *testing.T) {
	inst := singleTripInstance()
	net := network.Build(inst)
	s := schedule.Initial(inst, net)

	s, _, err := schedule.SpawnVehicleFor(s, []int{2}, 0, 1, 0)
	require.NoError(t, err)

	for _, tr := range s.Tours {
		require.Equal(t, 100.0, tr.DistanceSinceMaintenance,
			"with maximalDistance=0 and no dead-head legs, distance since maintenance equals the single trip's own distance")
		require.Zero(t, tr.DeadHeadDistance)
	}
}

// deadHeadSlackInstance has one trip ending at B and the next starting
// back at A, with a 1000s gap between them but only a 300s dead-head
// transition: the remaining 700s must still be charged as idle on top
// of the dead-head charge, not dropped.
func deadHeadSlackInstance() *model.Instance {
	inst := &model.Instance{
		VehicleTypes: []model.VehicleType{{Idx: 0, ID: "dmu", Capacity: 50}},
		Locations:    []model.Location{{Idx: 0, ID: "A"}, {Idx: 1, ID: "B"}},
		Depots: []model.Depot{
			{Idx: 0, ID: "depotA", LocationIdx: 0, Capacity: 2, PerType: map[int]int{0: 2}},
		},
		DeadHead: model.DeadHeadTable{
			Durations: [][]railtime.Duration{{railtime.Seconds(0), railtime.Seconds(0)}, {railtime.Seconds(300), railtime.Seconds(0)}},
			Distances: [][]float64{{0, 50}, {50, 0}},
		},
		Parameters: model.Parameters{Costs: model.Costs{DeadHeadTripPerSecond: 1, IdlePerSecond: 2}},
	}
	inst.Nodes = []model.Node{
		{Idx: 0, Kind: model.NodeStartDepot, DepotIdx: 0, VehicleTypeIdx: 0, Start: railtime.MinusInfinity, End: railtime.MinusInfinity},
		{Idx: 1, Kind: model.NodeEndDepot, DepotIdx: 0, VehicleTypeIdx: 0, Start: railtime.PlusInfinity, End: railtime.PlusInfinity},
		{Idx: 2, Kind: model.NodeServiceTrip, VehicleTypeIdx: 0, LocationIdx: 0, DestinationIdx: 1, Distance: 100, Demand: 5,
			Start: railtime.FromUnix(1000), End: railtime.FromUnix(1600)},
		{Idx: 3, Kind: model.NodeServiceTrip, VehicleTypeIdx: 0, LocationIdx: 0, DestinationIdx: 1, Distance: 100, Demand: 5,
			Start: railtime.FromUnix(2600), End: railtime.FromUnix(3200)},
	}
	return inst
}

func TestCostContributionChargesIdleOnTopOfDeadHeadSlack(t *testing.T) {
	inst := deadHeadSlackInstance()
	net := network.Build(inst)
	s := schedule.Initial(inst, net)

	s, _, err := schedule.SpawnVehicleFor(s, []int{2, 3}, 0, 1, 0)
	require.NoError(t, err)

	var tour schedule.Tour
	for _, tr := range s.Tours {
		tour = tr
	}
	require.Equal(t, 100.0, tour.DeadHeadDistance, "B->A between the trips plus B->A back to depotA, 50 each")
	require.Equal(t, 2000.0, tour.CostContribution,
		"300s dead-head at 1/s (300) plus the remaining 700s of the 1000s gap as idle at 2/s (1400), plus the 300s dead-head back to depotA (300)")
}

func TestSpawnVehicleForRejectsSwappedDepotEndpoints(t *testing.T) {
	inst := singleTripInstance()
	net := network.Build(inst)
	s := schedule.Initial(inst, net)

	_, _, err := schedule.SpawnVehicleFor(s, []int{2}, 1, 0, 0)
	require.Error(t, err, "depot 1 is an end depot, not a start depot, so the path's endpoints are invalid")
}

func TestSpawnVehicleForRejectsDepotOverCapacity(t *testing.T) {
	inst := singleTripInstance()
	inst.Depots[0].Capacity = 0
	inst.Depots[0].PerType[0] = 0
	net := network.Build(inst)
	s := schedule.Initial(inst, net)

	_, _, err := schedule.SpawnVehicleFor(s, []int{2}, 0, 1, 0)
	require.Error(t, err)
}

func TestDeleteVehicleReturnsServiceTripsToDummyTours(t *testing.T) {
	inst := singleTripInstance()
	net := network.Build(inst)
	s := schedule.Initial(inst, net)

	s, id, err := schedule.SpawnVehicleFor(s, []int{2}, 0, 1, 0)
	require.NoError(t, err)
	require.Len(t, s.Vehicles, 1)
	before := len(s.DummyTours)

	s, err = schedule.DeleteVehicle(s, id)
	require.NoError(t, err)
	require.Empty(t, s.Vehicles)
	require.Len(t, s.DummyTours, before+1, "deleting the vehicle mints a fresh dummy tour for its freed service trip")
}
