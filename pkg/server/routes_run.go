package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/weavelane/llmflow/pkg/planner"
	"github.com/weavelane/llmflow/pkg/types"
)

// startRunRequest is the wire shape of POST /api/v1/run: a JSON payload of
// nodes/edges/variables (SPEC_FULL §4 item 4).
type startRunRequest struct {
	WorkflowID   string                            `json:"workflow_id,omitempty"`
	Nodes        []types.Node                      `json:"nodes"`
	Edges        []types.Edge                      `json:"edges"`
	Variables    map[string]string                 `json:"variables,omitempty"`
	ClearResults bool                               `json:"clear_results,omitempty"`
	PriorResults map[string]types.ExecutionResult   `json:"prior_results,omitempty"`
}

type startRunResponse struct {
	RunID     string `json:"run_id"`
	EventsURL string `json:"events_url"`
}

// handleStartRun accepts a workflow payload, starts it running in the
// background against the server's planner.Driver, and returns a run ID
// immediately; progress and the final summary are available by subscribing
// to /api/v1/run/{id}/events.
func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := s.readBody(w, r)
	if err != nil {
		s.writeErrorResponse(w, "Failed to read request body", http.StatusBadRequest, err)
		return
	}

	var reqBody startRunRequest
	if err := json.Unmarshal(body, &reqBody); err != nil {
		s.writeErrorResponse(w, "Invalid request body", http.StatusBadRequest, err)
		return
	}
	if len(reqBody.Nodes) == 0 {
		s.writeErrorResponse(w, "Invalid request body", http.StatusBadRequest, fmt.Errorf("nodes must not be empty"))
		return
	}

	runID := uuid.NewString()
	rs := s.runs.create(runID)

	req := planner.RunRequest{
		WorkflowID:   reqBody.WorkflowID,
		Nodes:        reqBody.Nodes,
		Edges:        reqBody.Edges,
		Variables:    reqBody.Variables,
		ClearResults: reqBody.ClearResults,
		PriorResults: reqBody.PriorResults,
		Listener:     rs.publish,
	}

	go func() {
		summary, err := s.driver.Run(context.Background(), req)
		rs.finish(summary, err)
	}()

	s.writeJSONResponse(w, http.StatusAccepted, startRunResponse{
		RunID:     runID,
		EventsURL: fmt.Sprintf("/api/v1/run/%s/events", runID),
	})
}

// runEvent is one Server-Sent-Event payload: either a progress snapshot or
// the terminal "complete"/"error" event.
type runEvent struct {
	Event   string             `json:"event"`
	Stats   *types.QueueStats  `json:"stats,omitempty"`
	Summary *types.RunSummary  `json:"summary,omitempty"`
	Error   string             `json:"error,omitempty"`
}

// handleRunEvents streams QueueStats progress for runID as Server-Sent
// Events until the run reaches quiescence or the client disconnects.
func (s *Server) handleRunEvents(w http.ResponseWriter, r *http.Request, runID string) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rs, ok := s.runs.get(runID)
	if !ok {
		http.NotFound(w, r)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeErrorResponse(w, "Streaming unsupported", http.StatusInternalServerError, fmt.Errorf("response writer does not support flushing"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if summary, err, done := rs.snapshot(); done {
		s.writeEvent(w, flusher, terminalEvent(summary, err))
		return
	}

	ch, subID, ok := rs.subscribe()
	if !ok {
		summary, err, _ := rs.snapshot()
		s.writeEvent(w, flusher, terminalEvent(summary, err))
		return
	}
	defer rs.unsubscribe(subID)

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case stats, open := <-ch:
			if !open {
				summary, err, _ := rs.snapshot()
				s.writeEvent(w, flusher, terminalEvent(summary, err))
				return
			}
			statsCopy := stats
			s.writeEvent(w, flusher, runEvent{Event: "progress", Stats: &statsCopy})
		case <-heartbeat.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func terminalEvent(summary types.RunSummary, err error) runEvent {
	if err != nil {
		return runEvent{Event: "error", Summary: &summary, Error: err.Error()}
	}
	return runEvent{Event: "complete", Summary: &summary}
}

func (s *Server) writeEvent(w http.ResponseWriter, flusher http.Flusher, ev runEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		s.logger.WithError(err).Error("failed to encode run event")
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Event, data)
	flusher.Flush()
}
