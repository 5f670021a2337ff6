package localsearch

import "sync"

// improvementBroker is the teacher's SSE route-event broker
// (internal/api/broker.go) adapted from publishing route events to
// subscribers into publishing "a worker found an improving candidate"
// signals to a single in-process collector, per §4.6b. There is exactly
// one topic per TakeAny batch rather than one per route id.
type improvementBroker struct {
	mu   sync.Mutex
	subs map[chan improvementEvent]struct{}
}

type improvementEvent struct {
	workerIdx int
	candidate Candidate
	result    *evaluated
}

func newImprovementBroker() *improvementBroker {
	return &improvementBroker{subs: map[chan improvementEvent]struct{}{}}
}

// subscribe buffers generously: the worst case is every worker in the
// batch publishing an improvement before the cancellation they triggered
// lands, and none should be silently dropped.
func (b *improvementBroker) subscribe(capacity int) chan improvementEvent {
	ch := make(chan improvementEvent, capacity)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *improvementBroker) unsubscribe(ch chan improvementEvent) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
}

func (b *improvementBroker) publish(evt improvementEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}
