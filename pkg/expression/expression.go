package expression

import "sync"

// Context carries the data an expression can reference: the decoded
// fields of the variable the custom field is rooted at (Variables), plus
// node/context maps for parity with the rest of the engine's vocabulary.
type Context struct {
	NodeResults map[string]interface{}
	Variables   map[string]interface{}
	ContextVars map[string]interface{}
}

var (
	globalEngine *ExprEngine
	engineOnce   sync.Once
)

func getEngine() *ExprEngine {
	engineOnce.Do(func() {
		globalEngine = NewExprEngine()
	})
	return globalEngine
}

// EvaluateExpression evaluates expr against ctx and returns its value.
// input, when non-nil, is additionally bound as "item" and "input" so a
// custom field can reference the decoded value directly rather than only
// through ctx.Variables.
func EvaluateExpression(expr string, input interface{}, ctx *Context) (interface{}, error) {
	if ctx == nil {
		ctx = &Context{Variables: make(map[string]interface{})}
	}
	return getEngine().EvaluateValue(expr, input, ctx)
}
