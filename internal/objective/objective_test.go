package objective

import (
	"testing"

	"railshunt/internal/schedule"
)

func TestBaseValueCompareInteger(t *testing.T) {
	if IntValue(3).Compare(IntValue(5)) != -1 {
		t.Fatalf("3 should compare less than 5")
	}
	if IntValue(5).Compare(IntValue(3)) != 1 {
		t.Fatalf("5 should compare greater than 3")
	}
	if IntValue(5).Compare(IntValue(5)) != 0 {
		t.Fatalf("5 should compare equal to 5")
	}
}

func TestObjectiveValueCompareIsLexicographic(t *testing.T) {
	// First level differs: second level is irrelevant.
	a := ObjectiveValue{Values: []BaseValue{IntValue(1), IntValue(100)}}
	b := ObjectiveValue{Values: []BaseValue{IntValue(2), IntValue(0)}}
	if !a.Less(b) {
		t.Fatalf("a should be less than b on the first differing level")
	}

	// First level ties: second level decides.
	c := ObjectiveValue{Values: []BaseValue{IntValue(1), IntValue(5)}}
	d := ObjectiveValue{Values: []BaseValue{IntValue(1), IntValue(6)}}
	if !c.Less(d) {
		t.Fatalf("c should be less than d once the first level ties")
	}
	if d.Less(c) {
		t.Fatalf("d should not be less than c")
	}
}

func TestLevelEvaluateSumsCoefficients(t *testing.T) {
	lv := Level{
		Kind:         Integer,
		Indicators:   []Indicator{constIndicator{3}, constIndicator{4}},
		Coefficients: []float64{1, 2},
	}
	got := lv.Evaluate(nil)
	if got.Int != 11 {
		t.Fatalf("got %d, want 11 (3*1 + 4*2)", got.Int)
	}
}

type constIndicator struct{ v int64 }

func (constIndicator) Name() string { return "const" }
func (constIndicator) Kind() Kind   { return Integer }
func (c constIndicator) Evaluate(_ *schedule.Schedule) BaseValue {
	return IntValue(c.v)
}
