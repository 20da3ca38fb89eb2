// Package interpolate replaces "{{name}}" placeholders in a template with
// values from a variable store. It never errors: unresolved placeholders
// are preserved verbatim.
package interpolate

import (
	"regexp"
	"strings"

	"github.com/weavelane/llmflow/pkg/types"
)

// Resolver looks up a variable's current value by name. *variables.Store
// satisfies this via a thin adapter so this package never imports it
// directly, keeping the dependency direction one way.
type Resolver interface {
	Get(name string) (types.Variable, bool)
}

var placeholder = regexp.MustCompile(`\{\{\s*([^{}]+?)\s*\}\}`)

// Interpolate substitutes every "{{name}}" occurrence in text using
// store. Name is trimmed of surrounding whitespace by the regex itself.
//
// Required optimization (spec.md §4.2, §8 property 6): templates with no
// "{{" are returned unchanged without touching the store at all. Otherwise
// the template is scanned once to collect the distinct names it
// references, each is resolved at most once, and a single replacement
// pass produces the result — this matters because very large templates
// against variable stores holding thousands of entries are common.
func Interpolate(text string, store Resolver) string {
	if !strings.Contains(text, "{{") {
		return text
	}

	resolved := make(map[string]string)
	looked := make(map[string]bool)
	for _, match := range placeholder.FindAllStringSubmatch(text, -1) {
		name := match[1]
		if looked[name] {
			continue
		}
		looked[name] = true
		if v, ok := store.Get(name); ok {
			resolved[name] = v.Value
		}
	}

	return placeholder.ReplaceAllStringFunc(text, func(match string) string {
		sub := placeholder.FindStringSubmatch(match)
		name := sub[1]
		if value, ok := resolved[name]; ok {
			return value
		}
		// Unresolved: preserve the original literal, never emit empty.
		return match
	})
}

// CountingResolver wraps a Resolver and counts calls to Get, used by
// tests to verify the at-most-once-per-distinct-name resolution contract
// (spec.md §8 scenario S6).
type CountingResolver struct {
	Resolver
	Calls int
}

// Get implements Resolver while counting invocations.
func (c *CountingResolver) Get(name string) (types.Variable, bool) {
	c.Calls++
	return c.Resolver.Get(name)
}
