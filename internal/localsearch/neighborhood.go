package localsearch

import (
	"sort"

	"railshunt/internal/model"
	"railshunt/internal/schedule"
)

// Candidate is one lazily-applicable move. Apply produces the resulting
// schedule or an error if the modification algebra rejects it (a rejected
// candidate is simply skipped by every acceptance policy, never an error
// that aborts the run).
type Candidate struct {
	Label string
	Apply func() (*schedule.Schedule, error)
}

// Enumerate builds the rolling-stock neighborhood of §4.6: fit/override
// reassign pairs over every (provider, receiver, segment) triple, spawn
// moves turning a dummy tour into a real vehicle, and delete moves for
// every real vehicle. Order is deterministic (vehicle/dummy ids sorted)
// so Minimizer and TakeFirst are reproducible given a fixed schedule.
func Enumerate(s *schedule.Schedule) []Candidate {
	var out []Candidate
	out = append(out, reassignCandidates(s)...)
	out = append(out, spawnCandidates(s)...)
	out = append(out, deleteCandidates(s)...)
	return out
}

func sortedVehicleIDs(s *schedule.Schedule) []schedule.VehicleID {
	ids := make([]schedule.VehicleID, 0, len(s.Vehicles))
	for id := range s.Vehicles {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func sortedDummyIDs(s *schedule.Schedule) []schedule.DummyID {
	ids := make([]schedule.DummyID, 0, len(s.DummyTours))
	for id := range s.DummyTours {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// reassignCandidates enumerates, for every ordered pair of real vehicles
// and every segment of the provider's tour bounded by two service-trip
// nodes, the fit_reassign and override_reassign candidates.
func reassignCandidates(s *schedule.Schedule) []Candidate {
	ids := sortedVehicleIDs(s)
	var out []Candidate
	for _, provider := range ids {
		middle := s.Tours[provider].Middle()
		serviceIdx := make([]int, 0, len(middle))
		for i, ni := range middle {
			if s.Instance.Node(ni).Kind == model.NodeServiceTrip {
				serviceIdx = append(serviceIdx, i)
			}
		}
		for _, receiver := range ids {
			if receiver == provider {
				continue
			}
			for a := 0; a < len(serviceIdx); a++ {
				for b := a; b < len(serviceIdx); b++ {
					segment := middle[serviceIdx[a] : serviceIdx[b]+1]
					seg := append([]int{}, segment...)
					p, r := provider, receiver
					out = append(out,
						Candidate{
							Label: "fit_reassign:" + string(p) + "->" + string(r),
							Apply: func() (*schedule.Schedule, error) {
								return schedule.FitReassign(s, p, r, seg)
							},
						},
						Candidate{
							Label: "override_reassign:" + string(p) + "->" + string(r),
							Apply: func() (*schedule.Schedule, error) {
								return schedule.OverrideReassign(s, p, r, seg)
							},
						},
					)
				}
			}
		}
	}
	return out
}

// spawnCandidates turns each dummy tour into candidate real vehicles, one
// per start/end depot pair of the service trip's vehicle type; a pair
// that is unreachable or out of capacity fails when its candidate is
// applied.
func spawnCandidates(s *schedule.Schedule) []Candidate {
	var out []Candidate
	for _, did := range sortedDummyIDs(s) {
		dt := s.DummyTours[did]
		if len(dt.Nodes) == 0 {
			continue
		}
		vehicleTypeIdx := s.Instance.Node(dt.Nodes[0]).VehicleTypeIdx
		path := append([]int{}, dt.Nodes...)
		for _, startNode := range s.Instance.StartDepotsOf[vehicleTypeIdx] {
			for _, endNode := range s.Instance.EndDepotsOf[vehicleTypeIdx] {
				sn, en, vt := startNode, endNode, vehicleTypeIdx
				out = append(out, Candidate{
					Label: "spawn:" + string(did),
					Apply: func() (*schedule.Schedule, error) {
						next, _, err := schedule.SpawnVehicleFor(s, path, sn, en, vt)
						return next, err
					},
				})
			}
		}
	}
	return out
}

func deleteCandidates(s *schedule.Schedule) []Candidate {
	var out []Candidate
	for _, id := range sortedVehicleIDs(s) {
		v := id
		out = append(out, Candidate{
			Label: "delete:" + string(v),
			Apply: func() (*schedule.Schedule, error) {
				return schedule.DeleteVehicle(s, v)
			},
		})
	}
	return out
}
