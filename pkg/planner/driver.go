// Package planner is the headless driver spec.md §4.6 describes: it wires
// pkg/graph, pkg/queue, pkg/execctx, pkg/executor, and pkg/variables into
// one Run call that takes a node/edge payload to quiescence and returns a
// types.RunSummary. Nothing here replaces the queue manager's scheduling
// loop (pkg/queue owns promote/admit/run_item) — the driver's job is
// construction order and priority assignment, once, before handing off.
package planner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/weavelane/llmflow/pkg/config"
	"github.com/weavelane/llmflow/pkg/execctx"
	"github.com/weavelane/llmflow/pkg/graph"
	"github.com/weavelane/llmflow/pkg/logging"
	"github.com/weavelane/llmflow/pkg/observer"
	"github.com/weavelane/llmflow/pkg/queue"
	"github.com/weavelane/llmflow/pkg/telemetry"
	"github.com/weavelane/llmflow/pkg/types"
	"github.com/weavelane/llmflow/pkg/variables"
)

// RunRequest describes one workflow execution request (spec.md §4.6 step
// 1-3): the graph, any seed variables, and whether to reuse results from a
// prior run (an incremental re-run) instead of clearing them.
type RunRequest struct {
	WorkflowID string
	Nodes      []types.Node
	Edges      []types.Edge

	// Variables seeds the workflow-scoped variable store before any node
	// runs (spec.md §6's workflow variable shape).
	Variables map[string]string

	// ClearResults, when false, replays PriorResults into the new run:
	// every node ID present there is marked completed and skipped,
	// exactly as SeedCompleted describes (spec.md §4.6 step 3).
	ClearResults bool
	PriorResults map[string]types.ExecutionResult

	// Listener receives QueueStats snapshots during the run, if set
	// (spec.md §4.5's progress contract).
	Listener queue.Listener
}

// Driver owns the engine configuration and cross-cutting collaborators
// (observers, telemetry, logging) a Run needs but a RunRequest does not
// carry itself.
type Driver struct {
	config    *config.Config
	observers *observer.Manager
	telemetry *telemetry.Provider
	logger    *logging.Logger
}

// Option configures a Driver at construction time.
type Option func(*Driver)

// WithObserver registers obs on the driver's observer.Manager.
func WithObserver(obs observer.Observer) Option {
	return func(d *Driver) { d.observers.Register(obs) }
}

// WithTelemetry attaches a telemetry.Provider; when set, its
// TelemetryObserver is registered automatically so every run emits spans
// and metrics without the caller wiring observer.Event plumbing by hand.
func WithTelemetry(provider *telemetry.Provider) Option {
	return func(d *Driver) {
		d.telemetry = provider
		if provider != nil {
			d.observers.Register(telemetry.NewTelemetryObserver(provider))
		}
	}
}

// WithLogger overrides the driver's structured logger (default: a plain
// info-level JSON logger to stdout, per pkg/logging's default config).
func WithLogger(logger *logging.Logger) Option {
	return func(d *Driver) { d.logger = logger }
}

// New builds a Driver from an engine configuration.
func New(cfg *config.Config, opts ...Option) (*Driver, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	d := &Driver{
		config:    cfg,
		observers: observer.NewManager(),
		logger:    logging.New(logging.DefaultConfig()),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Run drives req to quiescence per spec.md §4.6's nine steps: build the
// execution context and queue manager, seed prior results for incremental
// re-runs, compute connected/isolated priorities, enqueue in that order,
// run to completion, and return the merged summary.
func (d *Driver) Run(ctx context.Context, req RunRequest) (types.RunSummary, error) {
	executionID := uuid.NewString()
	log := d.logger.WithWorkflowID(req.WorkflowID).WithExecutionID(executionID)
	startTime := time.Now()

	d.notifyWorkflowStart(ctx, executionID, req.WorkflowID, startTime)
	log.Info("workflow execution started")

	// Step 1: ExecutionContext over a seeded variable store.
	vars := variables.New()
	for name, value := range req.Variables {
		vars.AddWorkflow(name, value, "", "")
	}
	ectx := execctx.NewStandalone(req.Nodes, req.Edges, vars)

	clients, err := buildClients(d.config)
	if err != nil {
		log.WithError(err).Error("failed to build http clients")
		d.notifyWorkflowEnd(ctx, executionID, req.WorkflowID, startTime, err)
		return types.RunSummary{}, fmt.Errorf("build http clients: %w", err)
	}

	registry, err := buildExecutorRegistry(d.config, ectx, clients)
	if err != nil {
		log.WithError(err).Error("failed to build executor registry")
		d.notifyWorkflowEnd(ctx, executionID, req.WorkflowID, startTime, err)
		return types.RunSummary{}, fmt.Errorf("build executor registry: %w", err)
	}

	// Step 2: QueueManager with default 1 worker, capped at 25.
	qm := queue.NewManager(registry, ectx, d.config.ClampWorkers())
	if req.Listener != nil {
		qm.Subscribe(req.Listener)
	}

	ectx.SetExecutor(&queueExecutor{registry: registry, ectx: ectx})

	// Step 3: seed completed_node_ids for incremental re-runs.
	if !req.ClearResults {
		for id, result := range req.PriorResults {
			qm.SeedCompleted(id)
			ectx.SetResults(map[string]types.ExecutionResult{id: result})
		}
	}

	// Steps 4-6: build the graph, compute connected/isolated priorities
	// and the enqueue order (pkg/planner's own job per spec.md §4.5).
	g := graph.New(req.Nodes, req.Edges)
	priorities, order := ComputePriorities(g)

	// Step 7: enqueue connected nodes first, then isolated ones, skipping
	// anything already seeded as completed.
	for _, id := range order {
		if !req.ClearResults {
			if _, seeded := req.PriorResults[id]; seeded {
				continue
			}
		}
		node := g.GetNode(id)
		if node == nil {
			continue
		}
		qm.Enqueue(*node, priorities[id], g.Dependencies(id))
	}

	// Step 8: await quiescence.
	summary := qm.Run(ctx)

	// Merge seeded prior results back in: queue.Manager's summary only
	// knows about nodes that passed through its own item map, so a
	// skip-completed resume's carried-over results would otherwise vanish
	// from the response.
	if !req.ClearResults && len(req.PriorResults) > 0 {
		if summary.ExecutionResults == nil {
			summary.ExecutionResults = make(map[string]types.ExecutionResult, len(req.PriorResults))
		}
		for id, result := range req.PriorResults {
			if _, present := summary.ExecutionResults[id]; !present {
				summary.ExecutionResults[id] = result
			}
		}
	}

	var runErr error
	if !summary.Success {
		runErr = fmt.Errorf("workflow execution failed: %d node(s) failed", summary.Failed)
	}

	log.WithField("duration_ms", summary.DurationMS).
		WithField("executed", summary.Executed).
		WithField("failed", summary.Failed).
		Info("workflow execution completed")

	// Step 9: cancellation mid-run surfaces as ctx.Err() alongside
	// whatever partial summary the queue manager had already produced.
	if ctx.Err() != nil {
		runErr = ctx.Err()
	}

	d.notifyWorkflowEnd(ctx, executionID, req.WorkflowID, startTime, runErr)
	return summary, runErr
}

// queueExecutor satisfies execctx.Executor so a Standalone context can
// recursively invoke a node via ExecuteNode (spec.md §4.1: "in practice
// rarely needed since the queue manager drives execution" — the queue
// manager itself does not implement ExecuteNode, since its own run loop
// never needs to call back into it).
type queueExecutor struct {
	registry interface {
		Execute(ctx context.Context, ectx execctx.Context, node types.Node) error
	}
	ectx execctx.Context
}

func (e *queueExecutor) ExecuteNode(ctx context.Context, id string) error {
	node, ok := e.ectx.GetNode(id)
	if !ok {
		return fmt.Errorf("unknown node: %s", id)
	}
	return e.registry.Execute(ctx, e.ectx, node)
}

func (d *Driver) notifyWorkflowStart(ctx context.Context, executionID, workflowID string, startTime time.Time) {
	if !d.observers.HasObservers() {
		return
	}
	d.observers.Notify(ctx, observer.Event{
		Type:        observer.EventWorkflowStart,
		Status:      observer.StatusStarted,
		Timestamp:   startTime,
		ExecutionID: executionID,
		WorkflowID:  workflowID,
		StartTime:   startTime,
	})
}

func (d *Driver) notifyWorkflowEnd(ctx context.Context, executionID, workflowID string, startTime time.Time, err error) {
	if !d.observers.HasObservers() {
		return
	}
	status := observer.StatusSuccess
	if err != nil {
		status = observer.StatusFailure
	}
	d.observers.Notify(ctx, observer.Event{
		Type:        observer.EventWorkflowEnd,
		Status:      status,
		Timestamp:   time.Now(),
		ExecutionID: executionID,
		WorkflowID:  workflowID,
		StartTime:   startTime,
		ElapsedTime: time.Since(startTime),
		Error:       err,
	})
}
