package api

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"railshunt/internal/apierr"
	"railshunt/internal/audit"
	"railshunt/internal/circulation"
	"railshunt/internal/localsearch"
	"railshunt/internal/metrics"
	"railshunt/internal/model"
	"railshunt/internal/network"
	"railshunt/internal/objective"
	"railshunt/internal/transition"
)

// maxRequestBody bounds a single /solve body; a rolling-stock instance's
// dead-head matrix grows with the square of its location count.
const maxRequestBody = 64 << 20

// solveDeadline bounds how long a single /solve call's local search may
// run before returning its best schedule so far; the result's TimedOut
// flag is then set and written to the audit record.
const solveDeadline = 25 * time.Second

const cacheTTL = 10 * time.Minute

// SolveHandler answers POST /solve per spec.md §6: loads the instance,
// builds its initial feasible assignment via min-cost circulation,
// improves it with local search under the requested acceptance policy,
// and returns the resulting schedule alongside its next-day cycles.
func (s *Server) SolveHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeProblem(w, http.StatusMethodNotAllowed, "", "Method Not Allowed", "", r.URL.Path)
		return
	}
	start := time.Now()
	ctx := r.Context()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, string(apierr.InvalidInstance), "Invalid Instance", "reading request body: "+err.Error(), r.URL.Path)
		return
	}

	policy := r.URL.Query().Get("policy")
	if policy == "" {
		policy = s.Runtime.DefaultPolicy
	}
	searchPolicy := policyFromString(policy)
	// TakeAny's parallel races make its result depend on scheduling, not
	// just the input, so it is never a pure function of the request and
	// must never be read from or written to the result cache.
	cacheable := searchPolicy != localsearch.TakeAny

	fingerprint := fingerprintOf(body, policy)
	if cacheable {
		if cached, ok, err := s.Cache.Get(ctx, fingerprint); err == nil && ok {
			metrics.CacheResults.WithLabelValues("hit").Inc()
			var out OutputJSON
			if json.Unmarshal(cached, &out) == nil {
				out.Info.RunningTimeMs = time.Since(start).Milliseconds()
				out.Info.CacheHit = true
				writeJSON(w, http.StatusOK, out)
				return
			}
		}
		metrics.CacheResults.WithLabelValues("miss").Inc()
	}

	var in model.InputJSON
	if err := json.Unmarshal(body, &in); err != nil {
		writeProblem(w, http.StatusBadRequest, string(apierr.InvalidInstance), "Invalid Instance", err.Error(), r.URL.Path)
		return
	}

	inst, err := model.Load(in, s.Runtime.DefaultCosts)
	if err != nil {
		writeAPIErr(w, r, err)
		return
	}

	net := network.Build(inst)

	sched, err := circulation.InitialAssignment(inst, net)
	if err != nil {
		writeAPIErr(w, r, err)
		return
	}

	obj := objective.Default(inst)
	cfg := localsearch.Config{
		Policy:        searchPolicy,
		PoolSize:      s.Runtime.PoolSize,
		Seed:          seedFromFingerprint(fingerprint),
		MaxIterations: 10000,
		Deadline:      start.Add(solveDeadline),
	}

	result := localsearch.Run(ctx, obj, sched, cfg)
	metrics.SolveDuration.WithLabelValues(policy).Observe(time.Since(start).Seconds())
	metrics.SolveIterations.WithLabelValues(policy).Observe(float64(result.Iterations))

	mapping, _ := transition.Build(ctx, inst, result.Schedule)
	result.Schedule.CycleMapping = mapping

	out := buildOutput(inst, result.Schedule, result.Value, policy, cfg.PoolSize, start, false)

	if cacheable {
		if encoded, err := json.Marshal(out); err == nil {
			_ = s.Cache.Set(ctx, fingerprint, encoded, cacheTTL)
		}
	}

	_ = s.Audit.RecordSolve(ctx, audit.Record{
		ID:                   fingerprint,
		InstanceFingerprint:  fingerprint,
		Policy:               policy,
		UnservedPassengers:   out.ObjectiveValue.UnservedPassengers,
		MaintenanceViolation: out.ObjectiveValue.MaintenanceViolation,
		VehicleCount:         out.ObjectiveValue.VehicleCount,
		OperatingCost:        out.ObjectiveValue.OperatingCost,
		WallClock:            time.Since(start),
		TimedOut:             result.TimedOut,
		At:                   time.Now().UTC(),
	})

	writeJSON(w, http.StatusOK, out)
}

// writeAPIErr maps an *apierr.Error to its HTTP status per §7:
// InvalidInstance and Unsolvable reach the client as 400/422; everything
// else is either caught internally upstream or a programmer error, and
// surfaces as 500 rather than leaking an internal kind.
func writeAPIErr(w http.ResponseWriter, r *http.Request, err error) {
	e, ok := err.(*apierr.Error)
	if !ok {
		writeProblem(w, http.StatusInternalServerError, string(apierr.Internal), "Internal Server Error", err.Error(), r.URL.Path)
		return
	}
	switch e.Kind {
	case apierr.InvalidInstance:
		writeProblem(w, http.StatusBadRequest, string(e.Kind), "Invalid Instance", e.Msg, r.URL.Path)
	case apierr.Unsolvable:
		writeProblem(w, http.StatusUnprocessableEntity, string(e.Kind), "Unsolvable", e.Msg, r.URL.Path)
	default:
		writeProblem(w, http.StatusInternalServerError, string(apierr.Internal), "Internal Server Error", e.Msg, r.URL.Path)
	}
}

func fingerprintOf(body []byte, policy string) string {
	h := sha256.New()
	h.Write([]byte(policy))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// seedFromFingerprint derives TakeAny's tie-break seed from the request
// fingerprint so identical requests explore candidates in the same
// order, keeping §8's determinism property across repeated calls.
func seedFromFingerprint(fp string) int64 {
	var n int64
	for i := 0; i < 8 && i < len(fp); i++ {
		n = n<<8 | int64(fp[i])
	}
	return n
}

func policyFromString(p string) localsearch.Policy {
	switch p {
	case "takeFirst":
		return localsearch.TakeFirst
	case "takeAny":
		return localsearch.TakeAny
	default:
		return localsearch.Minimizer
	}
}
