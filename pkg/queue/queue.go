// Package queue implements the engine's scheduling loop: a priority
// queue of QueueItems, a fixed pool of worker slots, cascade-failure on
// dependency breakage, and fail-fast-to-conserve-compute stop semantics
// (spec.md §4.5). Adapted from the teacher's pkg/observer Manager
// (fan-out notification under a mutex) and pkg/executor's Registry
// dispatch pattern, re-targeted onto the scheduler's own state machine.
package queue

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/weavelane/llmflow/pkg/execctx"
	"github.com/weavelane/llmflow/pkg/executor"
	"github.com/weavelane/llmflow/pkg/types"
)

// MaxWorkers is the hard cap on worker slots a Manager will honor,
// regardless of what NewManager is asked for (spec.md §4.6: "capped at
// 25").
const MaxWorkers = 25

// Listener receives a QueueStats snapshot on every state change, and at
// ~10Hz while any worker is active (spec.md §4.5's progress contract).
type Listener func(types.QueueStats)

// Manager is the engine's scheduler: one priority queue of QueueItems, a
// fixed worker-slot pool, and the promote/admit/run_item loop.
type Manager struct {
	mu sync.Mutex

	items      map[string]*types.QueueItem // keyed by NodeID
	order      []string                    // insertion order, for added-at tie-breaks
	maxWorkers int
	freeSlots  []int // stack of free worker slot ids

	completed map[string]bool
	failed    map[string]bool

	stopFlag        bool
	shouldStopFlow  bool
	flowStartMS     int64
	flowStarted     bool
	activeExecs     int
	totalExecDurMS  int64
	totalExecCount  int

	registry *executor.Registry
	ectx     execctx.Context

	listeners []Listener
	done      chan struct{} // closed when a run_item completes, to wake the loop

	progressTicker *time.Ticker
	tickerDone     chan struct{}
}

// NewManager builds a Manager with maxWorkers worker slots (clamped to
// [1, MaxWorkers]).
func NewManager(registry *executor.Registry, ectx execctx.Context, maxWorkers int) *Manager {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if maxWorkers > MaxWorkers {
		maxWorkers = MaxWorkers
	}
	freeSlots := make([]int, maxWorkers)
	for i := range freeSlots {
		freeSlots[i] = maxWorkers - 1 - i // pop lowest-numbered first
	}
	return &Manager{
		items:      make(map[string]*types.QueueItem),
		maxWorkers: maxWorkers,
		freeSlots:  freeSlots,
		completed:  make(map[string]bool),
		failed:     make(map[string]bool),
		registry:   registry,
		ectx:       ectx,
		done:       make(chan struct{}, 1),
	}
}

// Subscribe registers listener to receive QueueStats snapshots.
func (m *Manager) Subscribe(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// Enqueue adds a node as a waiting item with the given priority and
// dependency list. SeedCompleted marks a node as already completed
// (incremental re-run support, spec.md §4.5) instead of enqueueing it.
func (m *Manager) Enqueue(node types.Node, priority int, dependencies []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item := &types.QueueItem{
		ID:           node.ID,
		NodeID:       node.ID,
		NodeLabel:    node.Label,
		NodeKind:     node.Kind,
		Priority:     priority,
		Status:       types.StatusWaiting,
		Dependencies: dependencies,
		AddedAt:      time.Now(),
	}
	m.items[node.ID] = item
	m.order = append(m.order, node.ID)
}

// SeedCompleted marks nodeID as already completed from a prior run,
// so the scheduler skips it rather than re-executing (spec.md §4.6 step
// 3, "incremental re-runs").
func (m *Manager) SeedCompleted(nodeID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completed[nodeID] = true
}

// Stop requests the scheduler halt all pending work (spec.md §5, "user
// stop is equivalent to firing the cancellation handle").
func (m *Manager) Stop() {
	m.mu.Lock()
	m.stopFlag = true
	m.mu.Unlock()
	m.wake()
}

func (m *Manager) wake() {
	select {
	case m.done <- struct{}{}:
	default:
	}
}

// Run drives the scheduling loop to quiescence: promote, admit up to
// free-slot capacity, wait for a completion, repeat (spec.md §4.5).
func (m *Manager) Run(ctx context.Context) types.RunSummary {
	m.startProgressTicker()
	defer m.stopProgressTicker()

	for {
		if m.handleStopConditions() {
			break
		}

		m.promote()
		started := m.admit(ctx)

		m.mu.Lock()
		anyActive := m.activeExecs > 0
		anyWaitingOrQueued := m.anyWaitingOrQueuedLocked()
		stopped := m.stopFlag || m.shouldStopFlow
		m.mu.Unlock()

		if !started && anyActive {
			if stopped {
				// Already unwinding: ctx.Done() (if any) has already
				// fired and would otherwise make this a busy spin.
				<-m.done
			} else {
				select {
				case <-m.done:
				case <-ctx.Done():
					m.mu.Lock()
					m.stopFlag = true
					m.mu.Unlock()
				}
			}
			continue
		}
		if !started && !anyActive {
			if !anyWaitingOrQueued {
				break
			}
			// Nothing admittable and nothing active: dependencies can
			// never resolve (a cycle slipped past the planner). Fail
			// everything left rather than spin.
			m.mu.Lock()
			m.failAllPendingLocked("Dependency cycle or unresolvable dependency")
			m.mu.Unlock()
			m.notify()
			continue
		}
	}

	return m.summary()
}

// handleStopConditions implements step 1 of spec.md §4.5: on
// cancellation or user stop, fail every waiting/queued item and report
// done.
func (m *Manager) handleStopConditions() (shouldExit bool) {
	m.mu.Lock()
	stop := m.stopFlag || m.shouldStopFlow
	if stop {
		m.failAllPendingLocked("Flow stopped by user")
	}
	m.mu.Unlock()
	if stop {
		m.notify()
	}
	return stop && m.noActiveWorkers()
}

func (m *Manager) noActiveWorkers() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeExecs == 0
}

// failAllPendingLocked marks every waiting/queued item failed with
// reason. Caller holds m.mu.
func (m *Manager) failAllPendingLocked(reason string) {
	for _, id := range m.order {
		item := m.items[id]
		if item.Status == types.StatusWaiting || item.Status == types.StatusQueued {
			item.Status = types.StatusFailed
			item.Error = reason
			item.CompletedAt = time.Now()
			m.failed[id] = true
		}
	}
}

// promote implements step 2 of spec.md §4.5: cascade-fail items whose
// dependency failed, queue items whose dependencies are all satisfied.
func (m *Manager) promote() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range m.order {
		item := m.items[id]
		if item.Status != types.StatusWaiting {
			continue
		}

		var failedDeps []string
		allCompleted := true
		for _, dep := range item.Dependencies {
			if m.failed[dep] {
				failedDeps = append(failedDeps, dep)
			}
			if !m.completed[dep] {
				allCompleted = false
			}
		}

		if len(failedDeps) > 0 {
			item.Status = types.StatusFailed
			item.Error = fmt.Sprintf("Dependency failed: %v", failedDeps)
			item.CompletedAt = time.Now()
			m.failed[id] = true
			continue
		}

		if allCompleted {
			item.Status = types.StatusQueued
		}
	}
}

// admit implements step 3 of spec.md §4.5: while queued items and free
// slots exist, launch the highest-priority one. Returns whether
// anything was started.
func (m *Manager) admit(ctx context.Context) bool {
	started := false
	for {
		m.mu.Lock()
		if len(m.freeSlots) == 0 {
			m.mu.Unlock()
			return started
		}

		next := m.pickNextQueuedLocked()
		if next == nil {
			m.mu.Unlock()
			return started
		}

		slot := m.freeSlots[len(m.freeSlots)-1]
		m.freeSlots = m.freeSlots[:len(m.freeSlots)-1]

		next.Status = types.StatusExecuting
		next.WorkerID = slot
		next.HasWorker = true
		next.StartedAt = time.Now()
		if !m.flowStarted {
			m.flowStartMS = next.StartedAt.UnixMilli()
			m.flowStarted = true
		}
		next.RelativeStartMS = next.StartedAt.UnixMilli() - m.flowStartMS
		m.activeExecs++

		nodeID := next.NodeID
		m.mu.Unlock()

		node, ok := m.ectx.GetNode(nodeID)
		if !ok {
			node = nodeFromItem(next)
		}

		m.ectx.UpdateNodeData(node.ID, map[string]interface{}{"queueStatus": types.StatusExecuting})
		m.notify()

		started = true
		go m.runItem(ctx, node, next, slot)
	}
}

// pickNextQueuedLocked returns the queued item with highest priority
// (ties broken by earliest AddedAt). Caller holds m.mu.
func (m *Manager) pickNextQueuedLocked() *types.QueueItem {
	var candidates []*types.QueueItem
	for _, id := range m.order {
		item := m.items[id]
		if item.Status == types.StatusQueued {
			candidates = append(candidates, item)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Priority != candidates[j].Priority {
			return candidates[i].Priority > candidates[j].Priority
		}
		return candidates[i].AddedAt.Before(candidates[j].AddedAt)
	})
	return candidates[0]
}

// runItem is the run_item protocol (spec.md §4.5): execute through the
// registry, inspect the written ExecutionResult, and finalize the item.
func (m *Manager) runItem(ctx context.Context, node types.Node, item *types.QueueItem, slot int) {
	defer func() {
		m.mu.Lock()
		m.freeSlots = append(m.freeSlots, slot)
		m.activeExecs--
		item.CompletedAt = time.Now()
		item.RelativeEndMS = item.CompletedAt.UnixMilli() - m.flowStartMS
		m.totalExecDurMS += item.CompletedAt.Sub(item.StartedAt).Milliseconds()
		m.totalExecCount++
		m.mu.Unlock()

		m.ectx.UpdateNodeData(node.ID, map[string]interface{}{"queueStatus": item.Status})
		m.notify()
		m.wake()
	}()
	defer func() {
		if r := recover(); r != nil {
			m.mu.Lock()
			item.Status = types.StatusFailed
			item.Error = fmt.Sprintf("unexpected: %v", r)
			m.failed[node.ID] = true
			m.shouldStopFlow = true
			m.mu.Unlock()
		}
	}()

	err := m.registry.Execute(ctx, m.ectx, node)

	result, hasResult := m.ectx.GetResult(node.ID)

	m.mu.Lock()
	switch {
	case err != nil:
		item.Status = types.StatusFailed
		item.Error = err.Error()
		m.failed[node.ID] = true
		m.shouldStopFlow = true
	case !hasResult:
		item.Status = types.StatusFailed
		item.Error = fmt.Sprintf("executor for %s wrote no result", node.ID)
		m.failed[node.ID] = true
		m.shouldStopFlow = true
	case !result.Success:
		item.Status = types.StatusFailed
		item.Error = result.Error
		m.failed[node.ID] = true
		m.shouldStopFlow = true
	default:
		item.Status = types.StatusCompleted
		item.Output = result.Output
		item.Stats = result.Stats
		m.completed[node.ID] = true
	}
	m.mu.Unlock()
}

func nodeFromItem(item *types.QueueItem) types.Node {
	return types.Node{ID: item.NodeID, Kind: item.NodeKind, Label: item.NodeLabel}
}

func (m *Manager) anyWaitingOrQueuedLocked() bool {
	for _, id := range m.order {
		s := m.items[id].Status
		if s == types.StatusWaiting || s == types.StatusQueued {
			return true
		}
	}
	return false
}

// Stats returns the current QueueStats snapshot.
func (m *Manager) Stats() types.QueueStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statsLocked()
}

func (m *Manager) statsLocked() types.QueueStats {
	stats := types.QueueStats{MaxWorkers: m.maxWorkers, ActiveWorkers: m.activeExecs}
	for _, id := range m.order {
		switch m.items[id].Status {
		case types.StatusWaiting:
			stats.Waiting++
		case types.StatusQueued:
			stats.TotalQueued++
		case types.StatusExecuting:
			stats.Executing++
		case types.StatusCompleted:
			stats.Completed++
		case types.StatusFailed:
			stats.Failed++
		}
	}
	if m.totalExecCount > 0 {
		stats.AverageExecutionMS = float64(m.totalExecDurMS) / float64(m.totalExecCount)
	}
	return stats
}

func (m *Manager) notify() {
	m.mu.Lock()
	stats := m.statsLocked()
	listeners := append([]Listener(nil), m.listeners...)
	m.mu.Unlock()

	for _, l := range listeners {
		l(stats)
	}
}

// startProgressTicker drives the ~10Hz tick spec.md §4.5 requires while
// any worker is active.
func (m *Manager) startProgressTicker() {
	m.tickerDone = make(chan struct{})
	m.progressTicker = time.NewTicker(100 * time.Millisecond)
	go func() {
		for {
			select {
			case <-m.progressTicker.C:
				m.mu.Lock()
				active := m.activeExecs > 0
				m.mu.Unlock()
				if active {
					m.notify()
				}
			case <-m.tickerDone:
				return
			}
		}
	}()
}

func (m *Manager) stopProgressTicker() {
	m.progressTicker.Stop()
	close(m.tickerDone)
}

func (m *Manager) summary() types.RunSummary {
	m.mu.Lock()
	defer m.mu.Unlock()

	results := make(map[string]types.ExecutionResult, len(m.order))
	skipped := 0
	for _, id := range m.order {
		item := m.items[id]
		switch item.Status {
		case types.StatusCompleted:
			results[id] = types.ExecutionResult{Success: true, Output: item.Output, Stats: item.Stats, DurationMS: item.RelativeEndMS - item.RelativeStartMS}
		case types.StatusFailed:
			results[id] = types.ExecutionResult{Success: false, Error: item.Error}
		default:
			skipped++
		}
	}

	return types.RunSummary{
		Success:          len(m.failed) == 0,
		Executed:         len(m.completed),
		Failed:           len(m.failed),
		Skipped:          skipped,
		DurationMS:       time.Now().UnixMilli() - m.flowStartMS,
		ExecutionResults: results,
	}
}
