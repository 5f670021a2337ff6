package objective

import (
	"railshunt/internal/model"
	"railshunt/internal/schedule"
)

// Default builds the concrete rolling-stock objective of §4.4: unserved
// passengers, then maintenance violation, then vehicle count, then
// operating cost, each its own single-indicator level.
func Default(inst *model.Instance) HierarchicalObjective {
	return HierarchicalObjective{Levels: []Level{
		{Name: "unservedPassengers", Kind: Integer, Indicators: []Indicator{unservedPassengers{inst}}, Coefficients: []float64{1}},
		{Name: "maintenanceViolation", Kind: Integer, Indicators: []Indicator{maintenanceViolation{inst}}, Coefficients: []float64{1}},
		{Name: "vehicleCount", Kind: Integer, Indicators: []Indicator{vehicleCount{}}, Coefficients: []float64{1}},
		{Name: "operatingCost", Kind: Integer, Indicators: []Indicator{operatingCost{inst}}, Coefficients: []float64{1}},
	}}
}

type unservedPassengers struct{ inst *model.Instance }

func (unservedPassengers) Name() string { return "unservedPassengers" }
func (unservedPassengers) Kind() Kind   { return Integer }

func (u unservedPassengers) Evaluate(s *schedule.Schedule) BaseValue {
	var total int64
	for _, n := range u.inst.Nodes {
		if n.Kind != model.NodeServiceTrip {
			continue
		}
		served := 0
		for _, v := range s.Formations[n.Idx] {
			served += u.inst.VehicleTypes[s.Vehicles[v].VehicleTypeIdx].Capacity
		}
		if gap := n.Demand - served; gap > 0 {
			total += int64(gap)
		}
	}
	return IntValue(total)
}

type maintenanceViolation struct{ inst *model.Instance }

func (maintenanceViolation) Name() string { return "maintenanceViolation" }
func (maintenanceViolation) Kind() Kind   { return Integer }

func (m maintenanceViolation) Evaluate(s *schedule.Schedule) BaseValue {
	var total int64
	for _, t := range s.Tours {
		if over := t.DistanceSinceMaintenance - m.inst.Parameters.MaximalDistance; over > 0 {
			total += round64(over)
		}
	}
	return IntValue(total)
}

type vehicleCount struct{}

func (vehicleCount) Name() string { return "vehicleCount" }
func (vehicleCount) Kind() Kind   { return Integer }

func (vehicleCount) Evaluate(s *schedule.Schedule) BaseValue {
	return IntValue(int64(len(s.Vehicles)))
}

type operatingCost struct{ inst *model.Instance }

func (operatingCost) Name() string { return "operatingCost" }
func (operatingCost) Kind() Kind   { return Integer }

func (o operatingCost) Evaluate(s *schedule.Schedule) BaseValue {
	var total float64
	for _, t := range s.Tours {
		total += t.CostContribution
	}
	return IntValue(round64(total))
}
