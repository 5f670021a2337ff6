package localsearch_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"railshunt/internal/localsearch"
	"railshunt/internal/model"
	"railshunt/internal/network"
	"railshunt/internal/objective"
	"railshunt/internal/schedule"
)

func load(t *testing.T, in model.InputJSON) *model.Instance {
	t.Helper()
	inst, err := model.Load(in, nil)
	require.NoError(t, err)
	return inst
}

func deadHead(indices []string, durations [][]int64, distances [][]float64) model.DeadHeadTripsJSON {
	return model.DeadHeadTripsJSON{Indices: indices, Durations: durations, Distances: distances}
}

// twoTripInstance has a single depot (capacity 2) and two independently
// reachable A->B departures, far enough apart in time that a single
// vehicle could serve both sequentially but neither needs the other.
func twoTripInstance() model.InputJSON {
	return model.InputJSON{
		VehicleTypes: []model.VehicleTypeJSON{{ID: "dmu", Seats: 50, Capacity: 50, MaximalFormationCount: 1}},
		Locations:    []model.LocationJSON{{ID: "A"}, {ID: "B"}},
		Depots: []model.DepotJSON{
			{ID: "depotA", Location: "A", Capacity: 2, AllowedTypes: []model.AllowedTypeJSON{{VehicleType: "dmu", Capacity: 2}}},
		},
		Routes: []model.RouteJSON{
			{ID: "out", VehicleType: "dmu", Segments: []model.RouteSegmentJSON{
				{Order: 0, Origin: "A", Destination: "B", Distance: 10, Duration: 600},
			}},
		},
		Departures: []model.DepartureJSON{
			{ID: "dep1", Route: "out", Segments: []model.DepartureSegmentJSON{
				{Order: 0, Departure: "2026-01-05T08:00:00Z", Passengers: 20, Seated: 20},
			}},
			{ID: "dep2", Route: "out", Segments: []model.DepartureSegmentJSON{
				{Order: 0, Departure: "2026-01-05T12:00:00Z", Passengers: 20, Seated: 20},
			}},
		},
		DeadHeadTrips: deadHead([]string{"A", "B"}, [][]int64{{0, 300}, {300, 0}}, [][]float64{{0, 5}, {5, 0}}),
	}
}

func nodesOfKind(inst *model.Instance, kind model.NodeKind) []int {
	var out []int
	for _, n := range inst.Nodes {
		if n.Kind == kind {
			out = append(out, n.Idx)
		}
	}
	return out
}

func TestEnumerateProducesOnlySpawnCandidatesFromAnAllDummySchedule(t *testing.T) {
	inst := load(t, twoTripInstance())
	net := network.Build(inst)
	s := schedule.Initial(inst, net)

	cands := localsearch.Enumerate(s)
	require.NotEmpty(t, cands, "each dummy tour must offer at least one spawn candidate")
	for _, c := range cands {
		require.Contains(t, c.Label, "spawn:", "no vehicles exist yet, so reassign/delete candidates must be absent")
	}
}

func TestEnumerateAddsReassignAndDeleteCandidatesOnceVehiclesExist(t *testing.T) {
	inst := load(t, twoTripInstance())
	net := network.Build(inst)
	s := schedule.Initial(inst, net)

	trips := nodesOfKind(inst, model.NodeServiceTrip)
	require.Len(t, trips, 2)
	starts := nodesOfKind(inst, model.NodeStartDepot)
	ends := nodesOfKind(inst, model.NodeEndDepot)
	require.Len(t, starts, 1)
	require.Len(t, ends, 1)

	var err error
	s, _, err = schedule.SpawnVehicleFor(s, []int{trips[0]}, starts[0], ends[0], 0)
	require.NoError(t, err)
	s, _, err = schedule.SpawnVehicleFor(s, []int{trips[1]}, starts[0], ends[0], 0)
	require.NoError(t, err)
	require.Len(t, s.Vehicles, 2)
	require.Empty(t, s.DummyTours)

	cands := localsearch.Enumerate(s)

	var reassign, deletes int
	for _, c := range cands {
		switch {
		case len(c.Label) >= 13 && c.Label[:13] == "fit_reassign:":
			reassign++
		case len(c.Label) >= 18 && c.Label[:18] == "override_reassign:":
			reassign++
		case len(c.Label) >= 7 && c.Label[:7] == "delete:":
			deletes++
		}
	}
	require.Equal(t, 4, reassign, "two vehicles, one service trip each: fit+override in both directions")
	require.Equal(t, 2, deletes, "one delete candidate per real vehicle")
}

func TestRunMinimizerSpawnsFromAllDummyToZeroUnserved(t *testing.T) {
	inst := load(t, twoTripInstance())
	net := network.Build(inst)
	start := schedule.Initial(inst, net)
	obj := objective.Default(inst)

	result := localsearch.Run(context.Background(), obj, start, localsearch.Config{Policy: localsearch.Minimizer})

	require.False(t, result.TimedOut)
	require.Zero(t, result.Value.Values[0].Int, "both departures fit within a single vehicle's capacity, so the minimum is zero unserved")
	require.Len(t, result.Schedule.Vehicles, 2)
	require.Empty(t, result.Schedule.DummyTours)
}

func TestRunTakeFirstSpawnsFromAllDummyToZeroUnserved(t *testing.T) {
	inst := load(t, twoTripInstance())
	net := network.Build(inst)
	start := schedule.Initial(inst, net)
	obj := objective.Default(inst)

	result := localsearch.Run(context.Background(), obj, start, localsearch.Config{Policy: localsearch.TakeFirst})

	require.False(t, result.TimedOut)
	require.Zero(t, result.Value.Values[0].Int)
	require.Len(t, result.Schedule.Vehicles, 2)
}

func TestRunTakeAnyConvergesDeterministicallyForAFixedSeed(t *testing.T) {
	inst := load(t, twoTripInstance())
	net := network.Build(inst)
	obj := objective.Default(inst)

	cfg := localsearch.Config{Policy: localsearch.TakeAny, Seed: 7, PoolSize: 2}

	first := localsearch.Run(context.Background(), obj, schedule.Initial(inst, net), cfg)
	second := localsearch.Run(context.Background(), obj, schedule.Initial(inst, net), cfg)

	require.False(t, first.TimedOut)
	require.Zero(t, first.Value.Values[0].Int)
	require.Equal(t, first.Value, second.Value, "the same seed over the same starting schedule must reach the same objective")
	require.Equal(t, len(first.Schedule.Vehicles), len(second.Schedule.Vehicles))
}

func TestRunStopsAtMaxIterations(t *testing.T) {
	inst := load(t, twoTripInstance())
	net := network.Build(inst)
	start := schedule.Initial(inst, net)
	obj := objective.Default(inst)

	result := localsearch.Run(context.Background(), obj, start, localsearch.Config{Policy: localsearch.Minimizer, MaxIterations: 1})

	require.True(t, result.TimedOut)
	require.LessOrEqual(t, result.Iterations, 1)
}
