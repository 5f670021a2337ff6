// Package objective implements the hierarchical objective framework of
// §4.4: indicators producing base values of a single numeric kind,
// levels combining indicators linearly, and a hierarchical objective
// comparing level vectors lexicographically.
package objective

import (
	"math"

	"railshunt/internal/railtime"
	"railshunt/internal/schedule"
)

type Kind int

const (
	Integer Kind = iota
	Float
	DurationKind
)

// BaseValue is a single numeric measurement of one of the three kinds.
// Comparing or combining values of different kinds is a programmer error
// (callers never mix kinds within one level by construction).
type BaseValue struct {
	Kind Kind
	Int  int64
	F    float64
	Dur  railtime.Duration
}

func IntValue(n int64) BaseValue      { return BaseValue{Kind: Integer, Int: n} }
func FloatValue(f float64) BaseValue  { return BaseValue{Kind: Float, F: f} }
func DurValue(d railtime.Duration) BaseValue { return BaseValue{Kind: DurationKind, Dur: d} }

func (b BaseValue) Add(o BaseValue) BaseValue {
	switch b.Kind {
	case Integer:
		return IntValue(b.Int + o.Int)
	case Float:
		return FloatValue(b.F + o.F)
	default:
		return DurValue(b.Dur.Add(o.Dur))
	}
}

// Compare returns -1, 0, 1 as b is less than, equal to, or greater than o.
func (b BaseValue) Compare(o BaseValue) int {
	switch b.Kind {
	case Integer:
		switch {
		case b.Int < o.Int:
			return -1
		case b.Int > o.Int:
			return 1
		default:
			return 0
		}
	case Float:
		switch {
		case b.F < o.F:
			return -1
		case b.F > o.F:
			return 1
		default:
			return 0
		}
	default:
		switch {
		case b.Dur.Less(o.Dur):
			return -1
		case o.Dur.Less(b.Dur):
			return 1
		default:
			return 0
		}
	}
}

// Indicator maps a schedule to a base value of one numeric kind.
type Indicator interface {
	Name() string
	Kind() Kind
	Evaluate(s *schedule.Schedule) BaseValue
}

// Level is a finite linear combination of indicators of one kind. For the
// duration kind the indicators are summed as they are and Coefficients is
// not used.
type Level struct {
	Name         string
	Kind         Kind
	Indicators   []Indicator
	Coefficients []float64
}

func (lv Level) Evaluate(s *schedule.Schedule) BaseValue {
	switch lv.Kind {
	case Integer:
		var total int64
		for i, ind := range lv.Indicators {
			total += int64(lv.Coefficients[i]) * ind.Evaluate(s).Int
		}
		return IntValue(total)
	case Float:
		var total float64
		for i, ind := range lv.Indicators {
			total += lv.Coefficients[i] * ind.Evaluate(s).F
		}
		return FloatValue(total)
	default:
		var total railtime.Duration
		for _, ind := range lv.Indicators {
			total = total.Add(ind.Evaluate(s).Dur)
		}
		return DurValue(total)
	}
}

// HierarchicalObjective is an ordered sequence of levels compared
// lexicographically.
type HierarchicalObjective struct {
	Levels []Level
}

type ObjectiveValue struct {
	Values []BaseValue
}

// Compare implements lexicographic ordering: the first level whose values
// differ decides the comparison.
func (v ObjectiveValue) Compare(o ObjectiveValue) int {
	for i := range v.Values {
		if c := v.Values[i].Compare(o.Values[i]); c != 0 {
			return c
		}
	}
	return 0
}

func (v ObjectiveValue) Less(o ObjectiveValue) bool { return v.Compare(o) < 0 }

// EvaluatedSchedule bundles a schedule with its evaluated objective
// vector.
type EvaluatedSchedule struct {
	Schedule *schedule.Schedule
	Value    ObjectiveValue
}

func (h HierarchicalObjective) Evaluate(s *schedule.Schedule) EvaluatedSchedule {
	vals := make([]BaseValue, len(h.Levels))
	for i, lv := range h.Levels {
		vals[i] = lv.Evaluate(s)
	}
	return EvaluatedSchedule{Schedule: s, Value: ObjectiveValue{Values: vals}}
}

// round64 rounds a float cost to the nearest integer base value, since
// §4.4 specifies operating cost as an integer level even though its
// summands are per-second rate multiplications.
func round64(f float64) int64 { return int64(math.Round(f)) }
