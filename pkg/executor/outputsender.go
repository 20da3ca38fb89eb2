package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/weavelane/llmflow/pkg/execctx"
	"github.com/weavelane/llmflow/pkg/expression"
	"github.com/weavelane/llmflow/pkg/httpclient"
	"github.com/weavelane/llmflow/pkg/retry"
	"github.com/weavelane/llmflow/pkg/types"
)

// fixedReportFilenames maps well-known report names to their batch-mode
// output filenames (spec.md §4.3's OutputSender batch mode). Anything
// else is slugified.
var fixedReportFilenames = map[string]string{
	"Adapted Report":          "adapted.md",
	"Professional Report":     "professional.md",
	"Aggregate Score Profile": "scores.md",
}

// OutputSenderExecutor publishes a run's final reports, in batch mode (file
// writes under output_dir) or HTTP mode (PATCH to a job-status endpoint),
// chosen by which variables are present at run time.
type OutputSenderExecutor struct {
	Client *httpclient.Client
	Retry  *retry.Policy
}

func (e *OutputSenderExecutor) CanExecute(node types.Node) bool {
	return node.Kind == types.KindOutputSender
}

func (e *OutputSenderExecutor) Execute(ctx context.Context, ectx execctx.Context, node types.Node) error {
	start := time.Now()

	if autoSend, ok := node.Data["autoSend"].(bool); ok && !autoSend {
		writeResult(ectx, node, types.ExecutionResult{
			Success:    true,
			Output:     map[string]interface{}{"status": "disabled"},
			DurationMS: time.Since(start).Milliseconds(),
		})
		return nil
	}

	vars := ectx.GetVariables()

	if batchID, hasBatch := vars["batch_id"]; hasBatch {
		if outputDir, hasDir := vars["output_dir"]; hasDir {
			err := e.sendBatch(node, vars, batchID.Value, outputDir.Value)
			if err != nil {
				writeResult(ectx, node, withDuration(types.ExecutionResult{Success: false, Error: err.Error()}, start))
				return nil
			}
			writeResult(ectx, node, types.ExecutionResult{
				Success:    true,
				Output:     map[string]interface{}{"mode": "batch", "outputDir": outputDir.Value},
				DurationMS: time.Since(start).Milliseconds(),
			})
			return nil
		}
	}

	policy := e.Retry
	if policy == nil {
		policy = retry.New(retry.HTTPEnvelope())
	}

	label := node.ID
	if node.Label != "" {
		label = node.Label
	}

	_, err := policy.Do(ctx, label, func(ctx context.Context) (interface{}, error) {
		return nil, e.sendHTTP(ctx, node, vars)
	})
	if err != nil {
		writeResult(ectx, node, withDuration(types.ExecutionResult{Success: false, Error: err.Error()}, start))
		return nil
	}

	writeResult(ectx, node, types.ExecutionResult{
		Success:    true,
		Output:     map[string]interface{}{"mode": "http"},
		DurationMS: time.Since(start).Milliseconds(),
	})
	return nil
}

// reportFilename resolves a configured report's name to its batch-mode
// filename, falling back to a slugified name for anything not in the
// fixed mapping.
func reportFilename(name string) string {
	if fixed, ok := fixedReportFilenames[name]; ok {
		return fixed
	}
	return slugify(name) + ".md"
}

var lowerCaser = cases.Lower(language.Und)

// slugify lowercases name (via x/text/cases) and keeps only ASCII a-z and
// 0-9; every other run of characters, non-ASCII letters included, collapses
// into a single dash.
func slugify(name string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range lowerCaser.String(name) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash && b.Len() > 0 {
				b.WriteRune('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

// sendBatch writes each configured report (node.Data["reports"], a list of
// {name, variable} pairs) to outputDir.
func (e *OutputSenderExecutor) sendBatch(node types.Node, vars map[string]types.Variable, batchID, outputDir string) error {
	reports, _ := node.Data["reports"].([]interface{})
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	for _, item := range reports {
		r, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		name, _ := r["name"].(string)
		varName, _ := r["variable"].(string)
		if name == "" || varName == "" {
			continue
		}
		v, ok := vars[varName]
		if !ok {
			continue
		}
		path := filepath.Join(outputDir, reportFilename(name))
		if err := os.WriteFile(path, []byte(v.Value), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	return nil
}

// sendHTTP PATCHes the run's status and reports to
// <base_url>/api/external/jobs/<job_id> (spec.md §4.3 OutputSender HTTP
// mode).
func (e *OutputSenderExecutor) sendHTTP(ctx context.Context, node types.Node, vars map[string]types.Variable) error {
	baseURL, _ := node.Data["baseUrl"].(string)
	jobID, _ := node.Data["jobId"].(string)
	if jobID == "" {
		if v, ok := vars["job_id"]; ok {
			jobID = v.Value
		}
	}
	if baseURL == "" || jobID == "" {
		return fmt.Errorf("outputsender is misconfigured: missing baseUrl or jobId")
	}

	status := "completed"
	if v, ok := node.Data["jobStatus"].(string); ok && v != "" {
		status = v
	}

	payload := map[string]interface{}{
		"jobId":       jobID,
		"status":      status,
		"completedAt": time.Now().UTC().Format(time.RFC3339),
	}
	if v, ok := vars["session_id"]; ok {
		payload["sessionId"] = v.Value
	}

	if reportMappings, ok := node.Data["reports"].([]interface{}); ok {
		reports := make(map[string]interface{})
		for _, item := range reportMappings {
			r, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			name, _ := r["name"].(string)
			varName, _ := r["variable"].(string)
			if v, ok := vars[varName]; ok {
				reports[name] = v.Value
			}
		}
		if len(reports) > 0 {
			payload["reports"] = reports
		}
	}

	if customFields, ok := node.Data["customFields"].([]interface{}); ok {
		for _, item := range customFields {
			cf, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			fieldName, _ := cf["name"].(string)
			path, _ := cf["path"].(string)
			if fieldName == "" || path == "" {
				continue
			}
			value, err := resolveCustomField(path, vars)
			if err != nil {
				continue
			}
			payload[fieldName] = value
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode output payload: %w", err)
	}

	url := strings.TrimSuffix(baseURL, "/") + "/api/external/jobs/" + jobID
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("content-type", "application/json")
	if secret, ok := node.Data["backendSecret"].(string); ok && secret != "" {
		req.Header.Set("x-backend-secret", secret)
	}

	resp, err := e.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("outputsender PATCH failed: %d", resp.StatusCode)
	}
	return nil
}

// resolveCustomField walks a dotted path into a json-typed variable's
// decoded value, via expr-lang (spec.md §6, grounded on
// pkg/expression's ExprEngine adapter).
func resolveCustomField(path string, vars map[string]types.Variable) (interface{}, error) {
	parts := strings.SplitN(path, ".", 2)
	root := parts[0]
	v, ok := vars[root]
	if !ok {
		return nil, fmt.Errorf("variable %q not found", root)
	}
	if len(parts) == 1 {
		return v.Value, nil
	}

	var decoded interface{}
	if err := json.Unmarshal([]byte(v.Value), &decoded); err != nil {
		return nil, fmt.Errorf("variable %q is not valid json: %w", root, err)
	}

	fields, ok := decoded.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("variable %q is not a json object", root)
	}

	return expression.EvaluateExpression(parts[1], decoded, &expression.Context{
		Variables: fields,
	})
}
