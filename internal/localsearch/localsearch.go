// Package localsearch implements the local-search meta-heuristic of §4.6:
// neighborhood enumeration over the rolling-stock modification algebra,
// three acceptance policies (Minimizer, TakeFirst, TakeAny), and the
// termination/cancellation rules of §5.
package localsearch

import (
	"context"
	"time"

	"railshunt/internal/objective"
	"railshunt/internal/schedule"
)

// Policy selects one of the three acceptance strategies of §4.6.
type Policy int

const (
	Minimizer Policy = iota
	TakeFirst
	TakeAny
)

// Config configures a single driver run. PoolSize and Seed only matter
// for TakeAny; MaxIterations and Deadline bound every policy (zero value
// of each means unbounded — Minimizer/TakeFirst then run to a true local
// minimum, matching §4.6's termination rule).
type Config struct {
	Policy        Policy
	PoolSize      int
	Seed          int64
	MaxIterations int
	Deadline      time.Time
}

// evaluated pairs a candidate schedule with its objective vector, the
// unit of comparison every policy operates on.
type evaluated struct {
	schedule *schedule.Schedule
	value    objective.ObjectiveValue
}

func evaluate(obj objective.HierarchicalObjective, s *schedule.Schedule) evaluated {
	es := obj.Evaluate(s)
	return evaluated{schedule: es.Schedule, value: es.Value}
}

// Result is what Run returns: the best schedule found, its objective
// vector, the number of accepted moves, and whether a deadline or
// iteration budget cut the run short (soft Timeout, §7 — never an error).
type Result struct {
	Schedule      *schedule.Schedule
	Value         objective.ObjectiveValue
	Iterations    int
	TimedOut      bool
}

// Run drives obj's neighborhood over start until no candidate strictly
// improves (Minimizer/TakeFirst) or the budget in cfg expires (TakeAny,
// and as a safety net for the other two policies as well).
func Run(ctx context.Context, obj objective.HierarchicalObjective, start *schedule.Schedule, cfg Config) Result {
	switch cfg.Policy {
	case TakeFirst:
		return runTakeFirst(ctx, obj, start, cfg)
	case TakeAny:
		return runTakeAny(ctx, obj, start, cfg)
	default:
		return runMinimizer(ctx, obj, start, cfg)
	}
}

func budgetExpired(cfg Config, iterations int) bool {
	if cfg.MaxIterations > 0 && iterations >= cfg.MaxIterations {
		return true
	}
	if !cfg.Deadline.IsZero() && !time.Now().Before(cfg.Deadline) {
		return true
	}
	return false
}

func runMinimizer(ctx context.Context, obj objective.HierarchicalObjective, start *schedule.Schedule, cfg Config) Result {
	current := evaluate(obj, start)
	iterations := 0
	for {
		if err := ctx.Err(); err != nil {
			return Result{Schedule: current.schedule, Value: current.value, Iterations: iterations, TimedOut: true}
		}
		if budgetExpired(cfg, iterations) {
			return Result{Schedule: current.schedule, Value: current.value, Iterations: iterations, TimedOut: true}
		}
		best := current
		improved := false
		for _, c := range Enumerate(current.schedule) {
			next, err := c.Apply()
			if err != nil {
				continue
			}
			cand := evaluate(obj, next)
			if cand.value.Less(best.value) {
				best, improved = cand, true
			}
		}
		iterations++
		if !improved {
			return Result{Schedule: current.schedule, Value: current.value, Iterations: iterations}
		}
		current = best
	}
}

func runTakeFirst(ctx context.Context, obj objective.HierarchicalObjective, start *schedule.Schedule, cfg Config) Result {
	current := evaluate(obj, start)
	iterations := 0
	for {
		if err := ctx.Err(); err != nil {
			return Result{Schedule: current.schedule, Value: current.value, Iterations: iterations, TimedOut: true}
		}
		if budgetExpired(cfg, iterations) {
			return Result{Schedule: current.schedule, Value: current.value, Iterations: iterations, TimedOut: true}
		}
		found := false
		for _, c := range Enumerate(current.schedule) {
			next, err := c.Apply()
			if err != nil {
				continue
			}
			cand := evaluate(obj, next)
			if cand.value.Less(current.value) {
				current, found = cand, true
				break
			}
		}
		iterations++
		if !found {
			return Result{Schedule: current.schedule, Value: current.value, Iterations: iterations}
		}
	}
}
