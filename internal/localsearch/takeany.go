package localsearch

import (
	"context"
	"hash/fnv"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"railshunt/internal/objective"
	"railshunt/internal/schedule"
)

// runTakeAny evaluates the neighborhood in parallel across cfg.PoolSize
// workers (default runtime.NumCPU(), matching RAYON_NUM_THREADS's
// fallback). The first worker to observe a strictly improving candidate
// cancels its peers, but peers already mid-evaluation may still publish
// their own improvement before the cancellation lands, so every
// improvement observed in the batch is collected and the seeded
// tie-break in pickWinner decides among them. §9's open question is
// resolved unconditionally: the chosen winner's schedule is re-evaluated
// before being committed, and rejected if that re-evaluation no longer
// improves on the running best.
func runTakeAny(ctx context.Context, obj objective.HierarchicalObjective, start *schedule.Schedule, cfg Config) Result {
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = runtime.NumCPU()
	}

	current := evaluate(obj, start)
	iterations := 0
	for {
		if err := ctx.Err(); err != nil {
			return Result{Schedule: current.schedule, Value: current.value, Iterations: iterations, TimedOut: true}
		}
		if budgetExpired(cfg, iterations) {
			return Result{Schedule: current.schedule, Value: current.value, Iterations: iterations, TimedOut: true}
		}

		candidates := Enumerate(current.schedule)
		winner, ok := evaluateBatch(ctx, obj, candidates, current, poolSize, cfg.Seed+int64(iterations))
		iterations++
		if !ok {
			return Result{Schedule: current.schedule, Value: current.value, Iterations: iterations}
		}

		// Monotonicity guard (§9): re-evaluate the winner's schedule and
		// commit it only if it still beats the running best.
		recomputed := evaluate(obj, winner.schedule)
		if !recomputed.value.Less(current.value) {
			continue
		}
		current = recomputed
	}
}

// evaluateBatch runs one round of parallel neighborhood evaluation,
// returning the tie-broken winner among every improvement found before
// cancellation, or ok=false if none improved.
func evaluateBatch(ctx context.Context, obj objective.HierarchicalObjective, candidates []Candidate, base evaluated, poolSize int, seed int64) (evaluated, bool) {
	batchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	broker := newImprovementBroker()
	collector := broker.subscribe(len(candidates) + 1)
	defer broker.unsubscribe(collector)

	eg, egCtx := errgroup.WithContext(batchCtx)
	eg.SetLimit(poolSize)

	for i, c := range candidates {
		idx, cand := i, c
		eg.Go(func() error {
			select {
			case <-egCtx.Done():
				return nil
			default:
			}
			next, err := cand.Apply()
			if err != nil {
				return nil
			}
			ev := evaluate(obj, next)
			if !ev.value.Less(base.value) {
				return nil
			}
			broker.publish(improvementEvent{workerIdx: idx, candidate: cand, result: &ev})
			cancel()
			return nil
		})
	}

	done := make(chan error, 1)
	go func() { done <- eg.Wait() }()

	var found []improvementEvent
	for {
		select {
		case evt := <-collector:
			found = append(found, evt)
		case <-done:
			// drain anything published in the brief window between the
			// last worker publishing and eg.Wait returning.
			for {
				select {
				case evt := <-collector:
					found = append(found, evt)
				default:
					return pickWinner(found, seed)
				}
			}
		}
	}
}

func pickWinner(found []improvementEvent, seed int64) (evaluated, bool) {
	if len(found) == 0 {
		return evaluated{}, false
	}
	sort.Slice(found, func(i, j int) bool {
		return tieBreakScore(found[i], seed) < tieBreakScore(found[j], seed)
	})
	return *found[0].result, true
}

// tieBreakScore mixes the seed into a deterministic hash of the
// candidate's label, so repeated /solve calls with the same seed over
// the same instance make the same tie-break among concurrently-found
// improvements, per §4.6's "a seed selects tie-break order."
func tieBreakScore(evt improvementEvent, seed int64) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(evt.candidate.Label))
	var seedBytes [8]byte
	for i := range seedBytes {
		seedBytes[i] = byte(seed >> (8 * i))
	}
	_, _ = h.Write(seedBytes[:])
	return h.Sum64()
}
