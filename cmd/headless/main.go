// Command headless runs a single workflow to quiescence with no HTTP
// surface: it reads a JSON payload of nodes/edges/variables from a file or
// stdin, drives it through a planner.Driver, and prints the run summary.
//
// Usage:
//
//	headless -payload workflow.json
//	cat workflow.json | headless
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/weavelane/llmflow/pkg/config"
	"github.com/weavelane/llmflow/pkg/planner"
	"github.com/weavelane/llmflow/pkg/types"
)

type headlessPayload struct {
	WorkflowID string             `json:"workflow_id,omitempty"`
	Nodes      []types.Node       `json:"nodes"`
	Edges      []types.Edge       `json:"edges"`
	Variables  map[string]string  `json:"variables,omitempty"`
}

func main() {
	payloadPath := flag.String("payload", "", "path to a JSON workflow payload (default: read from stdin)")
	maxWorkers := flag.Int("max-workers", 4, "maximum concurrent node executions")
	timeout := flag.Duration("timeout", 5*time.Minute, "maximum wall-clock time for the run")
	flag.Parse()

	data, err := readPayload(*payloadPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read payload: %v\n", err)
		os.Exit(1)
	}

	var payload headlessPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		fmt.Fprintf(os.Stderr, "failed to parse payload: %v\n", err)
		os.Exit(1)
	}
	if len(payload.Nodes) == 0 {
		fmt.Fprintln(os.Stderr, "payload must declare at least one node")
		os.Exit(1)
	}

	cfg := config.Production()
	cfg.MaxWorkers = *maxWorkers

	driver, err := planner.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build driver: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	summary, runErr := driver.Run(ctx, planner.RunRequest{
		WorkflowID:   payload.WorkflowID,
		Nodes:        payload.Nodes,
		Edges:        payload.Edges,
		Variables:    payload.Variables,
		ClearResults: true,
		Listener:     printProgress,
	})

	encoded, encErr := json.MarshalIndent(summary, "", "  ")
	if encErr != nil {
		fmt.Fprintf(os.Stderr, "failed to encode summary: %v\n", encErr)
		os.Exit(1)
	}
	fmt.Println(string(encoded))

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "run failed: %v\n", runErr)
		os.Exit(1)
	}
}

func printProgress(stats types.QueueStats) {
	fmt.Fprintf(os.Stderr, "progress: completed=%d failed=%d executing=%d waiting=%d\n",
		stats.Completed, stats.Failed, stats.Executing, stats.Waiting)
}

func readPayload(path string) ([]byte, error) {
	if path == "" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}
