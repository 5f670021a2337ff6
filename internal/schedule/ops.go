package schedule

import (
	"github.com/google/uuid"

	"railshunt/internal/apierr"
	"railshunt/internal/model"
)

// SpawnVehicleFor mints a fresh vehicle and builds a tour
// [startDepot, path..., endDepot], verifying reachability and depot
// capacity. Fails DepotFull or InfeasibleModification.
func SpawnVehicleFor(s *Schedule, path []int, startDepotNode, endDepotNode int, vehicleTypeIdx int) (*Schedule, VehicleID, error) {
	startN := s.Instance.Node(startDepotNode)
	endN := s.Instance.Node(endDepotNode)
	if startN.Kind != model.NodeStartDepot || endN.Kind != model.NodeEndDepot {
		return nil, "", apierr.New(apierr.InfeasibleModification, "spawn: endpoints are not a start/end depot pair")
	}
	depot := s.Instance.Depots[startN.DepotIdx]
	capacity := depot.CapacityFor(vehicleTypeIdx)
	used := s.Ledger.Start[startN.DepotIdx][vehicleTypeIdx]
	if used >= capacity {
		return nil, "", apierr.New(apierr.DepotFull, "depot %d has no remaining capacity for vehicle type %d", startN.DepotIdx, vehicleTypeIdx)
	}
	endDepot := s.Instance.Depots[endN.DepotIdx]
	endCap := endDepot.CapacityFor(vehicleTypeIdx)
	if s.Ledger.End[endN.DepotIdx][vehicleTypeIdx] >= endCap {
		return nil, "", apierr.New(apierr.DepotFull, "depot %d has no remaining end capacity for vehicle type %d", endN.DepotIdx, vehicleTypeIdx)
	}

	nodes := make([]int, 0, len(path)+2)
	nodes = append(nodes, startDepotNode)
	nodes = append(nodes, path...)
	nodes = append(nodes, endDepotNode)
	for i := 0; i+1 < len(nodes); i++ {
		if !s.Network.CanReach(s.Instance.Node(nodes[i]), s.Instance.Node(nodes[i+1])) {
			return nil, "", apierr.New(apierr.InfeasibleModification, "spawn: path is not reachable end-to-end")
		}
	}

	id := VehicleID(uuid.NewString())
	out := s.clone()
	out.Vehicles[id] = Vehicle{ID: id, VehicleTypeIdx: vehicleTypeIdx}
	out.Tours[id] = recompute(s.Instance, s.Network, vehicleTypeIdx, nodes)
	out.Ledger.bump(out.Ledger.Start, startN.DepotIdx, vehicleTypeIdx, 1)
	out.Ledger.bump(out.Ledger.End, endN.DepotIdx, vehicleTypeIdx, 1)
	for _, ni := range path {
		addToFormation(out, ni, id)
	}
	// The path's trips are now served, so they leave the dummy tours
	// that held them.
	for did, dt := range out.DummyTours {
		rest := make([]int, 0, len(dt.Nodes))
		for _, ni := range dt.Nodes {
			if _, onPath := indexOf(path, ni); !onPath {
				rest = append(rest, ni)
			}
		}
		if len(rest) == 0 {
			delete(out.DummyTours, did)
		} else if len(rest) < len(dt.Nodes) {
			out.DummyTours[did] = DummyTour{Nodes: rest}
		}
	}
	out.CycleMapping[id] = id
	return out, id, nil
}

// DeleteVehicle removes v: its service-trip nodes become individual
// dummy tours, its maintenance-node formation memberships disappear, and
// the depot ledger decrements.
func DeleteVehicle(s *Schedule, v VehicleID) (*Schedule, error) {
	t, ok := s.Tours[v]
	if !ok {
		return nil, apierr.New(apierr.Internal, "delete_vehicle: unknown vehicle %s", v)
	}
	startN := s.Instance.Node(t.StartDepotNode())
	endN := s.Instance.Node(t.EndDepotNode())

	out := s.clone()
	delete(out.Vehicles, v)
	delete(out.Tours, v)
	delete(out.CycleMapping, v)
	for other, succ := range out.CycleMapping {
		if succ == v {
			if self, ok := out.CycleMapping[v]; ok && self != v {
				out.CycleMapping[other] = self
			} else {
				out.CycleMapping[other] = other
			}
		}
	}
	out.Ledger.bump(out.Ledger.Start, startN.DepotIdx, t.VehicleTypeIdx, -1)
	out.Ledger.bump(out.Ledger.End, endN.DepotIdx, t.VehicleTypeIdx, -1)

	for _, ni := range t.Middle() {
		n := s.Instance.Node(ni)
		removeFromFormation(out, ni, v)
		if n.Kind == model.NodeServiceTrip {
			id := DummyID(itoa(out.nextDummy))
			out.nextDummy++
			out.DummyTours[id] = DummyTour{Nodes: []int{ni}}
		}
	}
	return out, nil
}

// AddPathToTour delegates to InsertPath; evicted nodes become new dummy
// tours.
func AddPathToTour(s *Schedule, v VehicleID, path []int) (*Schedule, error) {
	t, ok := s.Tours[v]
	if !ok {
		return nil, apierr.New(apierr.Internal, "add_path_to_tour: unknown vehicle %s", v)
	}
	newTour, removed, err := InsertPath(s.Instance, s.Network, t, path)
	if err != nil {
		return nil, err
	}
	out := s.clone()
	out.Tours[v] = newTour
	for _, ni := range path {
		addToFormation(out, ni, v)
	}
	for _, ni := range removed {
		removeFromFormation(out, ni, v)
		if s.Instance.Node(ni).Kind == model.NodeServiceTrip {
			id := DummyID(itoa(out.nextDummy))
			out.nextDummy++
			out.DummyTours[id] = DummyTour{Nodes: []int{ni}}
		}
	}
	return out, nil
}

// FitReassign moves the longest prefix of provider's segment that
// insert_path can place on receiver without evicting any receiver node.
// Nodes outside that prefix remain on provider; sub-sequences that are
// not a prefix of the segment are not tried.
func FitReassign(s *Schedule, provider, receiver VehicleID, segment []int) (*Schedule, error) {
	pt, ok := s.Tours[provider]
	if !ok {
		return nil, apierr.New(apierr.Internal, "fit_reassign: unknown provider %s", provider)
	}
	rt, ok := s.Tours[receiver]
	if !ok {
		return nil, apierr.New(apierr.Internal, "fit_reassign: unknown receiver %s", receiver)
	}
	fit := largestNonEvictingPrefix(s, rt, segment)
	if len(fit) == 0 {
		return nil, apierr.New(apierr.InfeasibleModification, "fit_reassign: no sub-segment fits receiver without eviction")
	}
	newReceiver, evicted, err := InsertPath(s.Instance, s.Network, rt, fit)
	if err != nil {
		return nil, err
	}
	if len(evicted) != 0 {
		return nil, apierr.New(apierr.InfeasibleModification, "fit_reassign: receiver eviction occurred despite fit check")
	}
	newProvider, _, err := removeNodesFromTour(s, pt, fit)
	if err != nil {
		return nil, err
	}
	out := s.clone()
	out.Tours[receiver] = newReceiver
	out.Tours[provider] = newProvider
	for _, ni := range fit {
		removeFromFormation(out, ni, provider)
		addToFormation(out, ni, receiver)
	}
	return out, nil
}

// OverrideReassign inserts the entire segment into receiver's tour;
// receiver's evicted nodes go to provider at the same splice, or become
// dummy if provider cannot absorb them.
func OverrideReassign(s *Schedule, provider, receiver VehicleID, segment []int) (*Schedule, error) {
	pt, ok := s.Tours[provider]
	if !ok {
		return nil, apierr.New(apierr.Internal, "override_reassign: unknown provider %s", provider)
	}
	rt, ok := s.Tours[receiver]
	if !ok {
		return nil, apierr.New(apierr.Internal, "override_reassign: unknown receiver %s", receiver)
	}
	newReceiver, evicted, err := InsertPath(s.Instance, s.Network, rt, segment)
	if err != nil {
		return nil, err
	}
	newProvider, _, err := removeNodesFromTour(s, pt, segment)
	if err != nil {
		return nil, err
	}
	out := s.clone()
	out.Tours[receiver] = newReceiver
	for _, ni := range segment {
		removeFromFormation(out, ni, provider)
		addToFormation(out, ni, receiver)
	}
	if len(evicted) > 0 {
		for _, ni := range evicted {
			removeFromFormation(out, ni, receiver)
		}
		if absorbed, _, err := InsertPath(s.Instance, s.Network, newProvider, evicted); err == nil {
			newProvider = absorbed
			for _, ni := range evicted {
				addToFormation(out, ni, provider)
			}
		} else {
			for _, ni := range evicted {
				if s.Instance.Node(ni).Kind == model.NodeServiceTrip {
					id := DummyID(itoa(out.nextDummy))
					out.nextDummy++
					out.DummyTours[id] = DummyTour{Nodes: []int{ni}}
				}
			}
		}
	}
	out.Tours[provider] = newProvider
	return out, nil
}

// largestNonEvictingPrefix returns the longest contiguous prefix of
// segment that InsertPath into rt evicts nothing for.
func largestNonEvictingPrefix(s *Schedule, rt Tour, segment []int) []int {
	for n := len(segment); n > 0; n-- {
		candidate := segment[:n]
		_, evicted, err := InsertPath(s.Instance, s.Network, rt, candidate)
		if err == nil && len(evicted) == 0 {
			return candidate
		}
	}
	return nil
}

// removeNodesFromTour removes a contiguous run of nodes from a tour via
// RemoveSegment.
func removeNodesFromTour(s *Schedule, t Tour, nodes []int) (Tour, []int, error) {
	if len(nodes) == 0 {
		return t, nil, nil
	}
	return RemoveSegment(s.Instance, s.Network, t, nodes[0], nodes[len(nodes)-1])
}

func addToFormation(s *Schedule, nodeIdx int, v VehicleID) {
	s.Formations[nodeIdx] = append(append(Formation{}, s.Formations[nodeIdx]...), v)
}

func removeFromFormation(s *Schedule, nodeIdx int, v VehicleID) {
	cur := s.Formations[nodeIdx]
	next := make(Formation, 0, len(cur))
	for _, id := range cur {
		if id != v {
			next = append(next, id)
		}
	}
	if len(next) == 0 {
		delete(s.Formations, nodeIdx)
	} else {
		s.Formations[nodeIdx] = next
	}
}
