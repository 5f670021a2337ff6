package model_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"railshunt/internal/apierr"
	"railshunt/internal/model"
)

// minimalInput builds a one-route, one-departure instance: a single
// vehicle type shuttling between two locations with depots at the
// origin, enough to exercise Load's full field-by-field construction
// without pulling in circulation or network.
func minimalInput() model.InputJSON {
	return model.InputJSON{
		VehicleTypes: []model.VehicleTypeJSON{
			{ID: "dmu", Name: "DMU", Seats: 50, Capacity: 50, MaximalFormationCount: 2},
		},
		Locations: []model.LocationJSON{
			{ID: "A"}, {ID: "B"},
		},
		Depots: []model.DepotJSON{
			{ID: "depotA", Location: "A", Capacity: 3, AllowedTypes: []model.AllowedTypeJSON{{VehicleType: "dmu", Capacity: 3}}},
		},
		Routes: []model.RouteJSON{
			{
				ID: "R1", VehicleType: "dmu",
				Segments: []model.RouteSegmentJSON{
					{Order: 0, Origin: "A", Destination: "B", Distance: 10, Duration: 600},
				},
			},
		},
		Departures: []model.DepartureJSON{
			{
				ID: "dep1", Route: "R1",
				Segments: []model.DepartureSegmentJSON{
					{Order: 0, Departure: "2026-01-05T08:00:00Z", Passengers: 20, Seated: 20},
				},
			},
		},
		DeadHeadTrips: model.DeadHeadTripsJSON{
			Indices:   []string{"A", "B"},
			Durations: [][]int64{{0, 300}, {300, 0}},
			Distances: [][]float64{{0, 5}, {5, 0}},
		},
		Parameters: model.ParametersJSON{
			Costs: model.CostsJSON{ServiceTripPerSecond: 1},
		},
	}
}

func TestLoadBuildsInstanceFromValidInput(t *testing.T) {
	inst, err := model.Load(minimalInput(), nil)
	require.NoError(t, err)
	require.Len(t, inst.VehicleTypes, 1)
	require.Len(t, inst.Locations, 2)

	var serviceTrips, startDepots, endDepots int
	for _, n := range inst.Nodes {
		switch n.Kind {
		case model.NodeServiceTrip:
			serviceTrips++
		case model.NodeStartDepot:
			startDepots++
			require.False(t, n.Start.IsFinite(), "start-depot node should carry the minus-infinity sentinel")
		case model.NodeEndDepot:
			endDepots++
			require.False(t, n.End.IsFinite(), "end-depot node should carry the plus-infinity sentinel")
		}
	}
	require.Equal(t, 1, serviceTrips)
	require.Equal(t, 1, startDepots)
	require.Equal(t, 1, endDepots)
	require.Contains(t, inst.DepartureSegments, "dep1")
}

func TestLoadDefaultDepotsWhenAbsent(t *testing.T) {
	in := minimalInput()
	in.Depots = nil
	inst, err := model.Load(in, nil)
	require.NoError(t, err)
	require.Len(t, inst.Depots, len(inst.Locations), "every location becomes an unbounded depot when depots is absent")
	for _, d := range inst.Depots {
		require.Positive(t, d.CapacityFor(0))
	}
}

func TestLoadRejectsUnknownRouteVehicleType(t *testing.T) {
	in := minimalInput()
	in.Routes[0].VehicleType = "does-not-exist"
	_, err := model.Load(in, nil)
	require.True(t, apierr.Is(err, apierr.InvalidInstance))
}

func TestLoadRejectsDuplicateLocationID(t *testing.T) {
	in := minimalInput()
	in.Locations = append(in.Locations, model.LocationJSON{ID: "A"})
	_, err := model.Load(in, nil)
	require.True(t, apierr.Is(err, apierr.InvalidInstance))
}

func TestLoadRejectsMismatchedDeadHeadDimensions(t *testing.T) {
	in := minimalInput()
	in.DeadHeadTrips.Durations = [][]int64{{0}}
	_, err := model.Load(in, nil)
	require.True(t, apierr.Is(err, apierr.InvalidInstance))
}

func TestLoadRejectsUnknownDepartureRoute(t *testing.T) {
	in := minimalInput()
	in.Departures[0].Route = "missing"
	_, err := model.Load(in, nil)
	require.True(t, apierr.Is(err, apierr.InvalidInstance))
}

func TestLoadAppliesCostDefaultsOnlyToZeroFields(t *testing.T) {
	in := minimalInput()
	in.Parameters.Costs = model.CostsJSON{ServiceTripPerSecond: 2} // everything else left at zero
	staff := 0.5
	idle := 0.1
	defaults := &model.CostDefaults{
		StaffPerSecond: &staff,
		IdlePerSecond:  &idle,
	}
	inst, err := model.Load(in, defaults)
	require.NoError(t, err)
	require.Equal(t, 0.5, inst.Parameters.Costs.StaffPerSecond, "zero request field should fall back to the configured default")
	require.Equal(t, 0.1, inst.Parameters.Costs.IdlePerSecond)
	require.Equal(t, 2.0, inst.Parameters.Costs.ServiceTripPerSecond, "non-zero request field should win over any default")
	require.Zero(t, inst.Parameters.Costs.MaintenancePerSecond, "a field absent from both request and defaults stays zero")
}

func TestLoadWithNilDefaultsKeepsRequestCostsVerbatim(t *testing.T) {
	in := minimalInput()
	inst, err := model.Load(in, nil)
	require.NoError(t, err)
	require.Equal(t, 1.0, inst.Parameters.Costs.ServiceTripPerSecond)
	require.Zero(t, inst.Parameters.Costs.StaffPerSecond)
}
