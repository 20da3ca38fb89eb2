// Package types provides shared type definitions for the workflow execution
// engine. Core data structures used across packages live here to avoid
// circular dependencies between the executor, queue, and planner packages.
package types

import "time"

// NodeKind identifies a node's semantic class. The engine treats kinds it
// does not recognize as inert: no executor is invoked and the queue
// manager trivially succeeds the task.
type NodeKind string

const (
	KindTrigger       NodeKind = "trigger"
	KindNote          NodeKind = "note"
	KindModelProvider NodeKind = "modelProvider"
	KindLLMChain      NodeKind = "basicLLMChain"
	KindOutputSender  NodeKind = "outputSender"
)

// Node is opaque to the engine except for its id, kind tag, optional label
// (used as a default output variable name), and a kind-specific data blob.
// The data blob is treated as structured JSON; executors only read the
// fields they document and never assume closed-world typing.
type Node struct {
	ID    string                 `json:"id"`
	Kind  NodeKind               `json:"type"`
	Label string                 `json:"label,omitempty"`
	Data  map[string]interface{} `json:"data"`
}

// Edge is a directed dependency: Source must complete before Target may
// start. Multigraphs are tolerated but collapse to one dependency per
// distinct (source, target) pair.
type Edge struct {
	ID     string `json:"id,omitempty"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// Stats carries token accounting for a single LLM call.
type Stats struct {
	PromptTokens     int       `json:"prompt_tokens,omitempty"`
	CompletionTokens int       `json:"completion_tokens,omitempty"`
	TotalTokens      int       `json:"total_tokens,omitempty"`
	Timestamp        time.Time `json:"timestamp,omitempty"`
}

// ExecutionResult is the per-node outcome written by an executor through
// ExecutionContext.SetResults. Results accumulate keyed by node id; late
// writes merge into the results map, they never replace it wholesale.
type ExecutionResult struct {
	Success    bool        `json:"success"`
	Output     interface{} `json:"output,omitempty"`
	Error      string      `json:"error,omitempty"`
	DurationMS int64       `json:"duration_ms"`
	Stats      *Stats      `json:"stats,omitempty"`
}

// VariableType is auto-detected from a variable's string value.
type VariableType string

const (
	VarString  VariableType = "string"
	VarNumber  VariableType = "number"
	VarBoolean VariableType = "boolean"
	VarJSON    VariableType = "json"
	VarArray   VariableType = "array"
)

// Variable is a named value in the VariableStore. Two namespaces share one
// store: global (bare name) and workflow-runtime (name prefixed
// "workflow:"), see pkg/variables.
type Variable struct {
	Name        string       `json:"name"`
	Value       string       `json:"value"`
	Type        VariableType `json:"type"`
	Description string       `json:"description,omitempty"`
	Folder      string       `json:"folder,omitempty"`
}

// QueueStatus is a QueueItem's position in the scheduler's status machine.
type QueueStatus string

const (
	StatusWaiting   QueueStatus = "waiting"
	StatusQueued    QueueStatus = "queued"
	StatusExecuting QueueStatus = "executing"
	StatusCompleted QueueStatus = "completed"
	StatusFailed    QueueStatus = "failed"
)

// QueueItem is one scheduler-visible unit of work bound to a single graph
// node. It is created on enqueue, mutated only by the queue manager, and
// retained after reaching a terminal state for reporting.
type QueueItem struct {
	ID           string
	NodeID       string
	NodeLabel    string
	NodeKind     NodeKind
	Priority     int
	Status       QueueStatus
	Dependencies []string

	AddedAt     time.Time
	StartedAt   time.Time
	CompletedAt time.Time
	WorkerID    int
	HasWorker   bool

	Output interface{}
	Stats  *Stats
	Error  string

	RelativeStartMS int64
	RelativeEndMS   int64
}

// QueueStats is the progress snapshot pushed to subscribers.
type QueueStats struct {
	TotalQueued        int
	Executing          int
	Completed          int
	Failed             int
	Waiting            int
	ActiveWorkers      int
	MaxWorkers         int
	AverageExecutionMS float64
}

// ProgressEvent is the shape of a structured per-node progress event. No
// package in this module builds or emits one: queue listeners receive
// QueueStats snapshots.
type ProgressEvent struct {
	Timestamp  time.Time   `json:"timestamp"`
	NodeID     string      `json:"nodeId"`
	NodeLabel  string      `json:"nodeLabel"`
	Status     QueueStatus `json:"status"`
	DurationMS int64       `json:"duration_ms,omitempty"`
	Error      string      `json:"error,omitempty"`
	Progress   Progress    `json:"progress"`
}

// Progress is the running-total fraction attached to every ProgressEvent.
type Progress struct {
	Completed  int     `json:"completed"`
	Failed     int     `json:"failed"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

// RunSummary is returned by the planner once a run reaches quiescence.
type RunSummary struct {
	Success          bool
	Executed         int
	Failed           int
	Skipped          int
	DurationMS       int64
	ExecutionResults map[string]ExecutionResult
}
