package expression

import "regexp"

// lengthRe rewrites the dotted ".length" property OutputSender custom
// fields use for array/string length (e.g. "scores.length") into
// expr-lang's len() call, since expr-lang has no such property.
var lengthRe = regexp.MustCompile(`(\w+(?:\.\w+|\[\d+\])*?)\.length\b`)

// convertSyntax rewrites the narrow custom-field extension this engine
// supports on top of plain expr-lang syntax.
func convertSyntax(expr string) string {
	return lengthRe.ReplaceAllString(expr, "len($1)")
}
