package server

import (
	"sync"

	"github.com/weavelane/llmflow/pkg/types"
)

// runState tracks one in-flight or completed /api/v1/run request so
// /api/v1/run/{id}/events can replay its progress to any number of SSE
// subscribers, including ones that connect after the run has already
// started.
type runState struct {
	mu          sync.Mutex
	subscribers map[int]chan types.QueueStats
	nextSub     int
	latest      *types.QueueStats
	done        bool
	summary     types.RunSummary
	err         error
}

func newRunState() *runState {
	return &runState{subscribers: make(map[int]chan types.QueueStats)}
}

// publish fans stats out to every live subscriber and remembers it as the
// latest snapshot for subscribers that connect later.
func (rs *runState) publish(stats types.QueueStats) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	snapshot := stats
	rs.latest = &snapshot
	for _, ch := range rs.subscribers {
		select {
		case ch <- stats:
		default:
			// Slow subscriber: drop the intermediate snapshot rather than
			// block the run. The final "complete" event still lands since
			// finish() closes subscriber channels after setting rs.done.
		}
	}
}

// finish records the run's terminal outcome and releases every subscriber.
func (rs *runState) finish(summary types.RunSummary, err error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.done = true
	rs.summary = summary
	rs.err = err
	for _, ch := range rs.subscribers {
		close(ch)
	}
}

// subscribe registers a new listener channel and returns it along with the
// subscriber id to pass to unsubscribe. If the run has already finished,
// the returned channel is nil and ok is false; the caller reads the
// outcome through snapshot().
func (rs *runState) subscribe() (ch chan types.QueueStats, id int, ok bool) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.done {
		return nil, 0, false
	}
	ch = make(chan types.QueueStats, 16)
	id = rs.nextSub
	rs.nextSub++
	rs.subscribers[id] = ch
	return ch, id, true
}

func (rs *runState) unsubscribe(id int) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if ch, ok := rs.subscribers[id]; ok {
		delete(rs.subscribers, id)
		_ = ch
	}
}

func (rs *runState) snapshot() (types.RunSummary, error, bool) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.summary, rs.err, rs.done
}

// runRegistry holds every run this server process has started, keyed by
// run ID, for the lifetime of the process (spec.md Non-goals exclude
// persistent queues, so this is deliberately in-memory only).
type runRegistry struct {
	mu   sync.RWMutex
	runs map[string]*runState
}

func newRunRegistry() *runRegistry {
	return &runRegistry{runs: make(map[string]*runState)}
}

func (r *runRegistry) create(id string) *runState {
	rs := newRunState()
	r.mu.Lock()
	r.runs[id] = rs
	r.mu.Unlock()
	return rs
}

func (r *runRegistry) get(id string) (*runState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rs, ok := r.runs[id]
	return rs, ok
}
