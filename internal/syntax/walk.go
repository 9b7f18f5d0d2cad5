package syntax

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// The walking primitives below are deliberately tolerant: editors call the
// analyzer on every keystroke, so a node that does not have the expected
// shape yields an empty result instead of an error.

// IsKind reports whether n matches the given grammar rule kind.
func IsKind(n *sitter.Node, kind string) bool {
	return n != nil && n.Kind() == kind
}

// Text returns the source slice covered by n, or "" for a nil or
// out-of-range node.
func Text(n *sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	start, end := n.StartByte(), n.EndByte()
	if start > end || int(end) > len(src) {
		return ""
	}
	return string(src[start:end])
}

// StartLine returns the 1-based line on which n starts, or 0 for nil.
func StartLine(n *sitter.Node) int {
	if n == nil {
		return 0
	}
	return int(n.StartPosition().Row) + 1
}

// NamedChildren returns the named children of n in document order.
// Whitespace and punctuation nodes are excluded by the grammar.
func NamedChildren(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	children := make([]*sitter.Node, 0, n.NamedChildCount())
	for i := range n.NamedChildCount() {
		if c := n.NamedChild(i); c != nil {
			children = append(children, c)
		}
	}
	return children
}

// AttributesOf returns the outer attribute items attached to an item node
// (function, module, ...) in source order. In the Rust grammar attributes are
// preceding siblings of the item they annotate, possibly interleaved with
// doc comments.
func AttributesOf(item *sitter.Node) []*sitter.Node {
	if item == nil {
		return nil
	}

	var attrs []*sitter.Node
scan:
	for prev := item.PrevNamedSibling(); prev != nil; prev = prev.PrevNamedSibling() {
		switch prev.Kind() {
		case "attribute_item":
			attrs = append(attrs, prev)
		case "line_comment", "block_comment":
			// doc comments sit between attributes and their item
		default:
			break scan
		}
	}

	// Collected back-to-front; restore source order.
	for i, j := 0, len(attrs)-1; i < j; i, j = i+1, j-1 {
		attrs[i], attrs[j] = attrs[j], attrs[i]
	}
	return attrs
}

// AttributePath returns the path text of an attribute item, e.g. "kani::proof"
// for #[kani::proof] or "cfg_attr" for #[cfg_attr(kani, ...)].
func AttributePath(attrItem *sitter.Node, src []byte) string {
	attr := childOfKind(attrItem, "attribute")
	if attr == nil {
		return ""
	}
	for _, c := range NamedChildren(attr) {
		if c.Kind() == "token_tree" {
			continue
		}
		return Text(c, src)
	}
	return ""
}

// AttributeArguments extracts the raw argument texts of an attribute item:
// the contents of its parenthesized token tree, split on top-level commas,
// each trimmed only at the outer boundary. Attributes without an argument
// list yield nil.
func AttributeArguments(attrItem *sitter.Node, src []byte) []string {
	attr := childOfKind(attrItem, "attribute")
	tt := childOfKind(attr, "token_tree")
	if tt == nil {
		return nil
	}
	return splitArguments(trimDelimiters(Text(tt, src)))
}

// FunctionName returns the declared identifier of a function item, or "".
func FunctionName(fn *sitter.Node, src []byte) string {
	if !IsKind(fn, "function_item") {
		return ""
	}
	return Text(fn.ChildByFieldName("name"), src)
}

// CalleeNames collects the callee path text of every call expression and
// macro invocation inside a function body, depth-first. Resolution is purely
// textual; imports are not consulted.
func CalleeNames(fn *sitter.Node, src []byte) []string {
	if !IsKind(fn, "function_item") {
		return nil
	}
	body := fn.ChildByFieldName("body")
	if body == nil {
		return nil
	}

	var names []string
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		switch n.Kind() {
		case "call_expression":
			if callee := Text(n.ChildByFieldName("function"), src); callee != "" {
				names = append(names, callee)
			}
		case "macro_invocation":
			if callee := Text(n.ChildByFieldName("macro"), src); callee != "" {
				names = append(names, callee)
			}
		}
		for _, c := range NamedChildren(n) {
			walk(c)
		}
	}
	walk(body)
	return names
}

func childOfKind(n *sitter.Node, kind string) *sitter.Node {
	if n == nil {
		return nil
	}
	for i := range n.ChildCount() {
		if c := n.Child(i); c != nil && c.Kind() == kind {
			return c
		}
	}
	return nil
}

// trimDelimiters strips one matching pair of outer (), [] or {} from a token
// tree's text.
func trimDelimiters(s string) string {
	if len(s) < 2 {
		return s
	}
	open, close := s[0], s[len(s)-1]
	switch {
	case open == '(' && close == ')',
		open == '[' && close == ']',
		open == '{' && close == '}':
		return s[1 : len(s)-1]
	}
	return s
}

// splitArguments splits an argument list on commas that are not nested inside
// brackets or string literals. Whitespace inside an argument is preserved.
func splitArguments(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}

	var (
		args     []string
		depth    int
		inString bool
		start    int
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inString:
			if c == '\\' {
				i++
			} else if c == '"' {
				inString = false
			}
		case c == '"':
			inString = true
		case c == '(' || c == '[' || c == '{':
			depth++
		case c == ')' || c == ']' || c == '}':
			depth--
		case c == ',' && depth == 0:
			args = append(args, strings.TrimSpace(s[start:i]))
			start = i + 1
		}
	}
	args = append(args, strings.TrimSpace(s[start:]))
	return args
}
