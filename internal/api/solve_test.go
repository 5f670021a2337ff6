package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"railshunt/internal/api"
	"railshunt/internal/config"
)

func newTestServer(t *testing.T) *api.Server {
	t.Helper()
	s, err := api.NewServer(&config.Runtime{PoolSize: 2, DefaultPolicy: "minimizer"})
	require.NoError(t, err)
	return s
}

func TestSolveHandlerRejectsEmptyBodyAsInvalidInstance(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/solve", bytes.NewReader(nil))
	rec := httptest.NewRecorder()

	s.SolveHandler(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var problem api.Problem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	require.Equal(t, "InvalidInstance", problem.Kind)
}

func TestSolveHandlerRejectsNonPostMethod(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/solve", nil)
	rec := httptest.NewRecorder()

	s.SolveHandler(rec, req)

	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

// smallInstanceJSON is a one-depot, one-departure instance solvable with a
// single vehicle.
const smallInstanceJSON = `{
	"vehicleTypes": [{"id": "dmu", "seats": 50, "capacity": 50, "maximalFormationCount": 1}],
	"locations": [{"id": "A"}, {"id": "B"}],
	"depots": [{"id": "depotA", "location": "A", "capacity": 2, "allowedTypes": [{"vehicleType": "dmu", "capacity": 2}]}],
	"routes": [{"id": "out", "vehicleType": "dmu", "segments": [{"order": 0, "origin": "A", "destination": "B", "distance": 10, "duration": 600}]}],
	"departures": [{"id": "dep1", "route": "out", "segments": [{"order": 0, "departure": "2026-01-05T08:00:00Z", "passengers": 20, "seated": 20}]}],
	"deadHeadTrips": {"indices": ["A", "B"], "durations": [[0, 300], [300, 0]], "distances": [[0, 5], [5, 0]]}
}`

func TestSolveHandlerServesASmallInstanceEndToEnd(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/solve", bytes.NewReader([]byte(smallInstanceJSON)))
	rec := httptest.NewRecorder()

	s.SolveHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var out api.OutputJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Zero(t, out.ObjectiveValue.UnservedPassengers, "the only departure fits within one vehicle's capacity")
	require.Equal(t, int64(1), out.ObjectiveValue.VehicleCount)
	require.Len(t, out.Schedule.Fleet, 1)
	require.Len(t, out.Schedule.Fleet[0].Vehicles, 1)
	require.Len(t, out.DepartureSegments, 1)
	require.NotEmpty(t, out.DepartureSegments[0].Formation)
}

func TestSolveHandlerCachesRepeatedRequests(t *testing.T) {
	s := newTestServer(t)

	first := httptest.NewRequest(http.MethodPost, "/solve", bytes.NewReader([]byte(smallInstanceJSON)))
	firstRec := httptest.NewRecorder()
	s.SolveHandler(firstRec, first)
	require.Equal(t, http.StatusOK, firstRec.Code)

	var firstOut api.OutputJSON
	require.NoError(t, json.Unmarshal(firstRec.Body.Bytes(), &firstOut))
	require.False(t, firstOut.Info.CacheHit)

	second := httptest.NewRequest(http.MethodPost, "/solve", bytes.NewReader([]byte(smallInstanceJSON)))
	secondRec := httptest.NewRecorder()
	s.SolveHandler(secondRec, second)
	require.Equal(t, http.StatusOK, secondRec.Code)

	var secondOut api.OutputJSON
	require.NoError(t, json.Unmarshal(secondRec.Body.Bytes(), &secondOut))
	require.True(t, secondOut.Info.CacheHit, "an identical request body and policy must hit the result cache")
	require.Equal(t, firstOut.ObjectiveValue, secondOut.ObjectiveValue)
}

func TestSolveHandlerNeverCachesTakeAnyRuns(t *testing.T) {
	s := newTestServer(t)

	url := "/solve?policy=takeAny"

	first := httptest.NewRequest(http.MethodPost, url, bytes.NewReader([]byte(smallInstanceJSON)))
	firstRec := httptest.NewRecorder()
	s.SolveHandler(firstRec, first)
	require.Equal(t, http.StatusOK, firstRec.Code)

	var firstOut api.OutputJSON
	require.NoError(t, json.Unmarshal(firstRec.Body.Bytes(), &firstOut))
	require.False(t, firstOut.Info.CacheHit)

	second := httptest.NewRequest(http.MethodPost, url, bytes.NewReader([]byte(smallInstanceJSON)))
	secondRec := httptest.NewRecorder()
	s.SolveHandler(secondRec, second)
	require.Equal(t, http.StatusOK, secondRec.Code)

	var secondOut api.OutputJSON
	require.NoError(t, json.Unmarshal(secondRec.Body.Bytes(), &secondOut))
	require.False(t, secondOut.Info.CacheHit, "takeAny's non-deterministic output must never be served from or written to the result cache")
}

func TestSolveHandlerRejectsMalformedJSON(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/solve", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()

	s.SolveHandler(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
