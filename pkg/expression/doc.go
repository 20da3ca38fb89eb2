// Package expression resolves OutputSender custom-field expressions
// (spec.md §6) against a decoded JSON variable, via expr-lang/expr.
//
// A custom field is a dotted path rooted at a variable name, e.g.
// "report.scores.length" or "report.summary". The caller (OutputSender's
// resolveCustomField) decodes the variable's JSON value once and hands the
// decoded value to EvaluateExpression, which evaluates the remainder of the
// path as an expr-lang program, so a handful of aggregate/string builtins
// (avg, sum, upper, contains, ...) are available alongside plain field
// access without this package having to implement its own parser.
package expression
