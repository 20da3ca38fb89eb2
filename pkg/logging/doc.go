// Package logging provides structured logging capabilities for the workflow engine.
//
// # Overview
//
// The logging package is a thin wrapper over the standard library log/slog
// with JSON and text output, log levels, and builder-style fields for
// workflow, execution, and node identifiers.
//
// # Features
//
//   - Structured logging: JSON (default) and text (Config.Pretty) formats
//   - Log levels: debug, info, warn, error (minimum level set by name)
//   - Identifier fields: WithWorkflowID, WithExecutionID, WithNodeID, WithNodeKind
//   - Context propagation: WithContext stores a Logger, FromContext retrieves it
//   - Thread-safe: Safe for concurrent use
//   - Flexible output: Write to any io.Writer
//
// # Log Levels
//
// The package supports standard log levels:
//
//   - DEBUG: Detailed diagnostic information
//   - INFO: General informational messages
//   - WARN: Warning messages for potential issues
//   - ERROR: Error messages for failures
//
// # Basic Usage
//
//	import "github.com/weavelane/llmflow/pkg/logging"
//
//	// Create logger
//	logger := logging.New(logging.Config{
//	    Level:  "info",
//	    Output: os.Stdout,
//	})
//
//	// Log messages; fields are attached with the With* builders
//	logger.WithWorkflowID("wf-123").
//	    WithField("node_count", 42).
//	    Info("Workflow started")
//
//	logger.WithError(err).WithNodeID("node-5").Error("Execution failed")
//
// # Context Integration
//
// A Logger can be stored in and retrieved from a context.Context:
//
//	ctx = logger.WithContext(ctx)
//	logging.FromContext(ctx).Info("Node executing")
//
// FromContext returns a logger built from DefaultConfig when ctx holds none.
//
// # Structured Fields
//
// WithFields attaches several fields at once:
//
//	logger.WithFields(map[string]interface{}{
//	    "method":      "GET",
//	    "url":         "https://api.example.com",
//	    "status":      200,
//	    "duration_ms": 145,
//	}).Info("HTTP request completed")
//
// # Output Formats
//
// JSON format (default), as written by slog's JSON handler:
//
//	{"time":"2024-01-15T10:30:00Z","level":"INFO","msg":"Workflow started","workflow_id":"wf-123","execution_id":"exec-456"}
//
// Text format (Config.Pretty = true), as written by slog's text handler:
//
//	time=2024-01-15T10:30:00Z level=INFO msg="Workflow started" workflow_id=wf-123 execution_id=exec-456
//
// # Configuration
//
// Logger configuration options:
//
//	config := logging.Config{
//	    Level:         "debug",   // Minimum level: debug, info, warn (or warning), error
//	    Output:        os.Stdout, // Where to write logs (nil means os.Stdout)
//	    Pretty:        false,     // true selects the text handler
//	    IncludeCaller: true,      // Include source file:line
//	}
//
// An unrecognized Level falls back to info.
//
// # Common Logging Patterns
//
// Workflow execution:
//
//	logger.WithWorkflowID(workflowID).
//	    WithField("node_count", len(nodes)).
//	    Info("Workflow execution started")
//
// Node execution:
//
//	logger.WithNodeID(node.ID).WithNodeKind(node.Kind).Debug("Node executing")
//
// Error logging:
//
//	logger.WithNodeID(node.ID).WithError(err).Error("Node execution failed")
//
// Performance metrics:
//
//	logger.WithField("duration_ms", elapsed.Milliseconds()).
//	    WithField("executed", count).
//	    Info("Workflow completed")
//
// Formatted messages use Debugf, Infof, Warnf, and Errorf; Fatal and
// Fatalf log at error level and then exit the process.
//
// # Best Practices
//
//   - Use structured fields instead of string formatting
//   - Include execution context (workflow_id, node_id, etc.)
//   - Log at appropriate levels (avoid debug in production)
//   - Add timing information for performance analysis
//   - Include error context (not just error message)
//   - Use consistent field names across the codebase
//
// # Thread Safety
//
// All logger operations are thread-safe and can be used concurrently
// from multiple goroutines without additional synchronization.
//
// # Testing
//
// For testing, use a logger with a buffer:
//
//	buf := &bytes.Buffer{}
//	logger := logging.New(logging.Config{
//	    Level:  "info",
//	    Output: buf,
//	})
//
//	// Execute code
//	// Verify log output
//	if !strings.Contains(buf.String(), "expected message") {
//	    t.Errorf("missing log line, got %s", buf.String())
//	}
package logging
