package harness

import (
	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/jaisnan/kanimcp/internal/syntax"
)

// entryPoints are the harness-framework calls recognized by invocation-based
// detection. Matching is syntactic only; a local function that happens to
// share a spelling will match.
var entryPoints = map[string]bool{
	"kani::check":   true,
	"bolero::check": true,
}

// candidate pairs a harness function node with how it was recognized.
// A function matching both strategies counts as attribute-based, which
// carries the richer metadata.
type candidate struct {
	fn          *sitter.Node
	attrs       []*sitter.Node
	byAttribute bool
	callee      string
}

// findCandidates walks the root's items, descending into module bodies, and
// returns harness candidates in document order.
func findCandidates(root *sitter.Node, src []byte) []candidate {
	var out []candidate
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		for _, item := range syntax.NamedChildren(n) {
			switch item.Kind() {
			case "mod_item":
				if body := item.ChildByFieldName("body"); body != nil {
					walk(body)
				}
			case "function_item":
				if c, ok := evaluateFunction(item, src); ok {
					out = append(out, c)
				}
			}
		}
	}
	walk(root)
	return out
}

// evaluateFunction applies both detection strategies to a single function
// item, attribute-based first.
func evaluateFunction(fn *sitter.Node, src []byte) (candidate, bool) {
	attrs := syntax.AttributesOf(fn)
	for _, a := range attrs {
		if isProofMarker(syntax.AttributePath(a, src), syntax.AttributeArguments(a, src)) {
			return candidate{fn: fn, attrs: attrs, byAttribute: true}, true
		}
	}

	for _, callee := range syntax.CalleeNames(fn, src) {
		if entryPoints[callee] {
			return candidate{fn: fn, attrs: attrs, callee: callee}, true
		}
	}

	return candidate{}, false
}

// entryPointCalls counts harness entry-point invocations in the function
// body.
func entryPointCalls(fn *sitter.Node, src []byte) int {
	count := 0
	for _, callee := range syntax.CalleeNames(fn, src) {
		if entryPoints[callee] {
			count++
		}
	}
	return count
}

// hasTestAttribute reports whether the function carries the standard #[test]
// marker.
func hasTestAttribute(attrs []*sitter.Node, src []byte) bool {
	for _, a := range attrs {
		if syntax.AttributePath(a, src) == "test" {
			return true
		}
	}
	return false
}
