// Package schedule implements the mutable-by-replacement solution layer
// of §3: tours, train formations, the depot load ledger, the next-day
// cycle mapping, and dummy tours for unserved demand.
//
// Persistence is implemented Go-style rather than via a hand-rolled
// persistent trie: every modification shallow-copies all of the
// schedule's top-level maps (O(size-of-map), not the O(log n) of a true persistent
// structure) and installs newly built values into the clone, leaving
// every Tour, Formation and DummyTour value itself untouched and shared
// by reference with the parent Schedule. This trades the asymptotic
// bound spec.md's design note aims for against a much smaller,
// idiomatic-Go implementation; see DESIGN.md.
package schedule

import (
	"railshunt/internal/model"
	"railshunt/internal/network"
)

// VehicleID identifies a real vehicle. Minted fresh per spawn via UUID so
// identities never collide across schedule branches explored
// concurrently by TakeAny.
type VehicleID string

// DummyID identifies a dummy tour (unserved demand placeholder).
type DummyID string

type Vehicle struct {
	ID             VehicleID
	VehicleTypeIdx int
}

// Tour is the temporally ordered activity list of one real vehicle:
// Nodes[0] is a start-depot node, Nodes[len-1] an end-depot node, and
// everything between is service-trip or maintenance nodes.
type Tour struct {
	VehicleTypeIdx int
	Nodes          []int

	// Cached aggregates (§3); rebuilt from scratch by recompute whenever
	// a tour operation produces a new node list.
	DeadHeadDistance         float64
	CostContribution         float64
	DistanceSinceMaintenance float64
}

func (t Tour) StartDepotNode() int { return t.Nodes[0] }
func (t Tour) EndDepotNode() int   { return t.Nodes[len(t.Nodes)-1] }

// Middle returns the non-depot nodes of the tour, in order.
func (t Tour) Middle() []int {
	if len(t.Nodes) <= 2 {
		return nil
	}
	return t.Nodes[1 : len(t.Nodes)-1]
}

// DummyTour is an ordered sequence of service-trip nodes not yet assigned
// to a real vehicle.
type DummyTour struct {
	Nodes []int
}

// Formation is the ordered set of vehicles coupled at one non-depot node,
// index 0 front.
type Formation []VehicleID

// DepotLedger tallies, per depot and vehicle type, how many tours start
// and end there.
type DepotLedger struct {
	Start map[int]map[int]int // depotIdx -> vehicleTypeIdx -> count
	End   map[int]map[int]int
}

func newLedger() DepotLedger {
	return DepotLedger{Start: map[int]map[int]int{}, End: map[int]map[int]int{}}
}

func (l DepotLedger) clone() DepotLedger {
	out := newLedger()
	for d, m := range l.Start {
		mc := make(map[int]int, len(m))
		for k, v := range m {
			mc[k] = v
		}
		out.Start[d] = mc
	}
	for d, m := range l.End {
		mc := make(map[int]int, len(m))
		for k, v := range m {
			mc[k] = v
		}
		out.End[d] = mc
	}
	return out
}

func (l DepotLedger) bump(m map[int]map[int]int, depotIdx, vehicleTypeIdx, delta int) {
	row := m[depotIdx]
	if row == nil {
		row = map[int]int{}
		m[depotIdx] = row
	}
	row[vehicleTypeIdx] += delta
}

// Schedule is the immutable solution value. Every field is either shared
// by reference with parent schedules or freshly cloned by the operation
// that produced this value.
type Schedule struct {
	Instance *model.Instance
	Network  *network.Network

	Vehicles map[VehicleID]Vehicle
	Tours    map[VehicleID]Tour

	DummyTours map[DummyID]DummyTour
	nextDummy  int // monotonically increasing counter for synthetic dummy ids

	Formations map[int]Formation // nodeIdx -> formation

	Ledger DepotLedger

	// CycleMapping is the next-day permutation: v -> the vehicle that
	// "becomes" v's tour the following day. Absent entries mean the
	// trivial self-mapping (maintenance-less schedules per §3).
	CycleMapping map[VehicleID]VehicleID
}

// Initial builds the starting schedule for an instance: every service
// trip in its own dummy tour, no real vehicles.
func Initial(inst *model.Instance, net *network.Network) *Schedule {
	s := &Schedule{
		Instance:     inst,
		Network:      net,
		Vehicles:     map[VehicleID]Vehicle{},
		Tours:        map[VehicleID]Tour{},
		DummyTours:   map[DummyID]DummyTour{},
		Formations:   map[int]Formation{},
		Ledger:       newLedger(),
		CycleMapping: map[VehicleID]VehicleID{},
	}
	for _, n := range inst.Nodes {
		if n.Kind != model.NodeServiceTrip {
			continue
		}
		id := DummyID(itoa(s.nextDummy))
		s.nextDummy++
		s.DummyTours[id] = DummyTour{Nodes: []int{n.Idx}}
	}
	return s
}

// clone produces a shallow copy of the schedule's top-level maps, ready
// for an operation to install its changes into without perturbing the
// receiver. Unchanged Tour/Formation/DummyTour values are shared by
// reference with the parent.
func (s *Schedule) clone() *Schedule {
	out := &Schedule{
		Instance:     s.Instance,
		Network:      s.Network,
		Vehicles:     make(map[VehicleID]Vehicle, len(s.Vehicles)),
		Tours:        make(map[VehicleID]Tour, len(s.Tours)),
		DummyTours:   make(map[DummyID]DummyTour, len(s.DummyTours)),
		nextDummy:    s.nextDummy,
		Formations:   make(map[int]Formation, len(s.Formations)),
		Ledger:       s.Ledger.clone(),
		CycleMapping: make(map[VehicleID]VehicleID, len(s.CycleMapping)),
	}
	for k, v := range s.Vehicles {
		out.Vehicles[k] = v
	}
	for k, v := range s.Tours {
		out.Tours[k] = v
	}
	for k, v := range s.DummyTours {
		out.DummyTours[k] = v
	}
	for k, v := range s.Formations {
		out.Formations[k] = v
	}
	for k, v := range s.CycleMapping {
		out.CycleMapping[k] = v
	}
	return out
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
