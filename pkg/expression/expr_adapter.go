package expression

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// ExprEngine wraps expr-lang/expr with the environment and program cache
// EvaluateExpression needs.
type ExprEngine struct {
	programCache map[string]*vm.Program
}

// NewExprEngine creates a new expression engine using expr-lang/expr
func NewExprEngine() *ExprEngine {
	return &ExprEngine{
		programCache: make(map[string]*vm.Program),
	}
}

// EvaluateValue compiles (or reuses a cached compile of) expr and runs it
// against the environment built from input and ctx.
func (e *ExprEngine) EvaluateValue(expr0 string, input interface{}, ctx *Context) (interface{}, error) {
	if ctx == nil {
		ctx = &Context{Variables: make(map[string]interface{})}
	}

	compiled := convertSyntax(expr0)
	env := e.buildEnvironment(input, ctx)

	program, exists := e.programCache[compiled]
	if !exists {
		var err error
		program, err = expr.Compile(compiled, expr.Env(env))
		if err != nil {
			return nil, fmt.Errorf("expression compilation failed: %w", err)
		}
		e.programCache[compiled] = program
	}

	output, err := expr.Run(program, env)
	if err != nil {
		return nil, fmt.Errorf("expression execution failed: %w", err)
	}
	return output, nil
}

// buildEnvironment creates the execution environment with all variables and functions
func (e *ExprEngine) buildEnvironment(input interface{}, ctx *Context) map[string]interface{} {
	env := make(map[string]interface{})
	e.addCustomFunctions(env)

	if ctx.NodeResults != nil {
		env["node"] = ctx.NodeResults
	}
	if ctx.Variables != nil {
		env["variables"] = ctx.Variables
		for k, v := range ctx.Variables {
			if k != "node" && k != "variables" && k != "context" {
				env[k] = v
			}
		}
	}
	if ctx.ContextVars != nil {
		env["context"] = ctx.ContextVars
	}
	if input != nil {
		env["item"] = input
		env["input"] = input
	}

	return env
}

// addCustomFunctions adds the string/aggregate/null-handling builtins a
// custom field expression can call; expr-lang's own builtins (len, abs,
// round, floor, ceil, sum, min, max over a single array argument, ...)
// cover everything else.
func (e *ExprEngine) addCustomFunctions(env map[string]interface{}) {
	env["contains"] = func(s, substr string) bool { return strings.Contains(s, substr) }
	env["startsWith"] = func(s, prefix string) bool { return strings.HasPrefix(s, prefix) }
	env["endsWith"] = func(s, suffix string) bool { return strings.HasSuffix(s, suffix) }
	env["upper"] = strings.ToUpper
	env["lower"] = strings.ToLower
	env["trim"] = strings.TrimSpace
	env["join"] = func(arr []interface{}, sep string) string {
		parts := make([]string, len(arr))
		for i, v := range arr {
			parts[i] = fmt.Sprintf("%v", v)
		}
		return strings.Join(parts, sep)
	}

	// avg has no expr-lang builtin equivalent; sum/min/max are overridden
	// here only to additionally accept variadic numeric args rather than
	// just a single array, matching how a custom field is likely written
	// ("avg(a, b, c)" alongside "avg(scores)").
	env["avg"] = func(args ...interface{}) float64 {
		nums := toFloat64s(args)
		if len(nums) == 0 {
			return 0
		}
		return sumFloat64s(nums) / float64(len(nums))
	}
	env["sum"] = func(args ...interface{}) float64 {
		return sumFloat64s(toFloat64s(args))
	}
	env["min"] = func(args ...interface{}) (float64, error) {
		nums := toFloat64s(args)
		if len(nums) == 0 {
			return 0, fmt.Errorf("min() requires at least 1 numeric argument")
		}
		m := nums[0]
		for _, n := range nums[1:] {
			if n < m {
				m = n
			}
		}
		return m, nil
	}
	env["max"] = func(args ...interface{}) (float64, error) {
		nums := toFloat64s(args)
		if len(nums) == 0 {
			return 0, fmt.Errorf("max() requires at least 1 numeric argument")
		}
		m := nums[0]
		for _, n := range nums[1:] {
			if n > m {
				m = n
			}
		}
		return m, nil
	}

	env["isNull"] = func(v interface{}) bool { return v == nil }
	env["coalesce"] = func(args ...interface{}) interface{} {
		for _, arg := range args {
			if arg != nil {
				return arg
			}
		}
		return nil
	}
}

// toFloat64s flattens a single array argument or a variadic numeric
// argument list into plain float64s, skipping values that don't convert.
func toFloat64s(args []interface{}) []float64 {
	if len(args) == 1 {
		if arr, ok := args[0].([]interface{}); ok {
			args = arr
		}
	}
	nums := make([]float64, 0, len(args))
	for _, v := range args {
		if n, ok := toFloat64(v); ok {
			nums = append(nums, n)
		}
	}
	return nums
}

func sumFloat64s(nums []float64) float64 {
	var total float64
	for _, n := range nums {
		total += n
	}
	return total
}

// toFloat64 converts a value to float64
func toFloat64(val interface{}) (float64, bool) {
	switch v := val.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	case uint32:
		return float64(v), true
	case string:
		var f float64
		if _, err := fmt.Sscanf(v, "%f", &f); err == nil {
			return f, true
		}
	}
	return 0, false
}
