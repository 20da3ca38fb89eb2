// Package observer provides an event-driven observer pattern for workflow execution.
//
// # Overview
//
// The observer package implements the observer pattern to enable monitoring,
// logging, and reacting to workflow execution events. Observers receive
// lifecycle events without coupling to the engine implementation.
//
// # Features
//
//   - Event-driven: React to workflow and node events
//   - Multiple observers: Register multiple observers with one Manager
//   - Asynchronous delivery: Each notification runs in its own goroutine
//   - Panic isolation: A panicking observer does not affect the caller
//
// # Observer Interface
//
//	type Observer interface {
//	    OnEvent(ctx context.Context, event Event)
//	}
//
// Every event is an Event value. Its Type is one of EventWorkflowStart,
// EventWorkflowEnd, EventNodeStart, EventNodeEnd, EventNodeSuccess, or
// EventNodeFailure, and its Status is one of StatusStarted, StatusSuccess,
// StatusFailure, or StatusCompleted. The remaining fields (ExecutionID,
// WorkflowID, NodeID, NodeKind, StartTime, ElapsedTime, Result, Error,
// Metadata) are filled in as they apply to the event.
//
// # Basic Usage
//
//	import "github.com/weavelane/llmflow/pkg/observer"
//
//	// Create a manager and register an observer
//	mgr := observer.NewManager()
//	mgr.Register(observer.NewConsoleObserver())
//
//	// Emit an event
//	mgr.Notify(ctx, observer.Event{
//	    Type:        observer.EventWorkflowStart,
//	    Status:      observer.StatusStarted,
//	    ExecutionID: executionID,
//	    Timestamp:   time.Now(),
//	})
//
// # Custom Observer Example
//
//	type CountingObserver struct {
//	    mu       sync.Mutex
//	    failures int
//	}
//
//	func (o *CountingObserver) OnEvent(ctx context.Context, event observer.Event) {
//	    if event.Type == observer.EventNodeFailure {
//	        o.mu.Lock()
//	        o.failures++
//	        o.mu.Unlock()
//	    }
//	}
//
// # Built-in Observers
//
// NoOpObserver:
//   - Ignores every event
//
// ConsoleObserver (NewConsoleObserver, NewConsoleObserverWithLogger):
//   - Logs each event through a Logger
//   - Workflow ends carrying an error are logged at error level, node
//     failures at warn level, other node events at debug level
//
// # Observer Composition
//
// Multiple observers can be registered on one Manager (nil observers are
// ignored), or passed at construction with NewManagerWithObservers:
//
//	mgr.Register(consoleObserver)
//	mgr.Register(countingObserver)
//
// Every registered observer receives every event. Notify starts one
// goroutine per observer and returns without waiting, so the order in
// which observers run, and the order in which one observer sees
// successive events, is not defined.
//
// # Error Handling
//
// A panic inside an observer is recovered in that observer's goroutine and
// discarded; execution continues and the other observers still receive
// the event.
//
// # Use Cases
//
//   - Logging and auditing
//   - Metrics collection and monitoring
//   - Real-time dashboards
//   - Debugging and troubleshooting
//   - Performance profiling
//   - Event streaming to external systems
//   - Workflow analytics
//   - Alerting and notifications
//
// # Testing
//
// For testing, use a mock observer:
//
//	type MockObserver struct {
//	    mu     sync.Mutex
//	    events []observer.Event
//	}
//
//	func (o *MockObserver) OnEvent(ctx context.Context, event observer.Event) {
//	    o.mu.Lock()
//	    o.events = append(o.events, event)
//	    o.mu.Unlock()
//	}
//
// # Best Practices
//
//   - Keep observer logic simple and fast
//   - Use async processing for expensive operations
//   - Don't modify workflow or node state
//   - Handle errors gracefully (don't panic)
//   - Use structured logging for consistency
//   - Consider observer overhead in production
//
// # Thread Safety
//
// Observer methods may be called concurrently from multiple goroutines.
// Implementations must be thread-safe using appropriate synchronization.
package observer
