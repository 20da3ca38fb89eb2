// Package variables provides the engine's variable table: a mapping from
// variable name to value, type, description, and folder, shared by global
// and per-run (workflow) namespaces in one store.
package variables

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/weavelane/llmflow/pkg/types"
)

// workflowPrefix namespaces ephemeral per-run variables so they can never
// collide with global ones in the underlying map (spec.md invariant 7).
const workflowPrefix = "workflow:"

// Store is the engine's variable table. Reads and writes are key-scoped
// and safe for concurrent use: executors running on different worker
// slots read and write variables without any lock crossing an executor
// boundary.
type Store struct {
	mu   sync.RWMutex
	vars map[string]types.Variable
}

// New creates an empty Store.
func New() *Store {
	return &Store{vars: make(map[string]types.Variable)}
}

// WorkflowKey returns the namespaced key for a workflow-runtime variable.
func WorkflowKey(name string) string {
	return workflowPrefix + name
}

// Add inserts or overwrites a global variable, auto-detecting its type
// from the string value.
func (s *Store) Add(name, value string, description, folder string) {
	s.set(name, value, description, folder)
}

// AddWorkflow inserts or overwrites a workflow-runtime variable.
func (s *Store) AddWorkflow(name, value string, description, folder string) {
	s.set(WorkflowKey(name), value, description, folder)
}

func (s *Store) set(key, value, description, folder string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.vars[key]
	if ok && folder == "" {
		// Preserve the existing folder on in-place updates (spec.md
		// §4.3 LLMChain auto-naming: "update in place, keep its folder").
		folder = existing.Folder
	}
	if ok && description == "" {
		description = existing.Description
	}

	s.vars[key] = types.Variable{
		Name:        displayName(key),
		Value:       value,
		Type:        detectType(value),
		Description: description,
		Folder:      folder,
	}
}

func displayName(key string) string {
	return strings.TrimPrefix(key, workflowPrefix)
}

// Get resolves name first in the workflow namespace, then global, per
// spec.md §4.2's interpolation resolution order.
func (s *Store) Get(name string) (types.Variable, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if v, ok := s.vars[WorkflowKey(name)]; ok {
		return v, true
	}
	v, ok := s.vars[name]
	return v, ok
}

// Exists reports whether name resolves in either namespace.
func (s *Store) Exists(name string) bool {
	_, ok := s.Get(name)
	return ok
}

// All returns a snapshot of every variable across both namespaces, keyed
// by their display name (without the workflow: prefix duplicated — a name
// present in both namespaces appears once, with the workflow-scoped value
// winning, matching Get's resolution order).
func (s *Store) All() map[string]types.Variable {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]types.Variable, len(s.vars))
	// Globals first, then workflow-scoped entries overwrite by display
	// name, matching Get's resolution order deterministically regardless
	// of map iteration order.
	for k, v := range s.vars {
		if strings.HasPrefix(k, workflowPrefix) {
			continue
		}
		out[displayName(k)] = v
	}
	for k, v := range s.vars {
		if !strings.HasPrefix(k, workflowPrefix) {
			continue
		}
		out[displayName(k)] = v
	}
	return out
}

// ClearWorkflow purges every workflow-namespaced variable as a set,
// leaving globals untouched (spec.md: "workflow variables are considered
// ephemeral and may be purged as a set").
func (s *Store) ClearWorkflow() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k := range s.vars {
		if strings.HasPrefix(k, workflowPrefix) {
			delete(s.vars, k)
		}
	}
}

// Delete removes a global variable.
func (s *Store) Delete(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.vars, name)
}

// detectType infers a Variable's type from its string representation.
// Order matters: booleans and numbers are unambiguous literals, so they
// are checked before the more permissive JSON/array probes.
func detectType(value string) types.VariableType {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return types.VarString
	}

	if trimmed == "true" || trimmed == "false" {
		return types.VarBoolean
	}

	if _, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return types.VarNumber
	}

	if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
		return types.VarArray
	}

	if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
		return types.VarJSON
	}

	return types.VarString
}

// MustValue is a convenience used by executors that already know a
// variable exists (e.g. reading back a value this same executor wrote).
func (s *Store) MustValue(name string) string {
	v, ok := s.Get(name)
	if !ok {
		panic(fmt.Sprintf("variables: %q not found", name))
	}
	return v.Value
}
