package syntax

import (
	"reflect"
	"testing"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// --- helpers ---

func parseSource(t *testing.T, src string) *Tree {
	t.Helper()
	tree, err := Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	t.Cleanup(tree.Close)
	return tree
}

// findFunction returns the first function item with the given name, searching
// the whole tree.
func findFunction(t *testing.T, tree *Tree, name string) *sitter.Node {
	t.Helper()
	var found *sitter.Node
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if found != nil {
			return
		}
		if IsKind(n, "function_item") && FunctionName(n, tree.Source) == name {
			found = n
			return
		}
		for _, c := range NamedChildren(n) {
			walk(c)
		}
	}
	walk(tree.Root())
	if found == nil {
		t.Fatalf("function %q not found", name)
	}
	return found
}

// --- tests ---

func TestIsKind(t *testing.T) {
	tree := parseSource(t, "fn main() {}")
	if !IsKind(tree.Root(), "source_file") {
		t.Error("root should be source_file")
	}
	if IsKind(tree.Root(), "function_item") {
		t.Error("root should not match function_item")
	}
	if IsKind(nil, "source_file") {
		t.Error("nil node should never match")
	}
}

func TestFunctionName(t *testing.T) {
	tree := parseSource(t, "fn check_insert(x: u32) -> bool { true }")
	fn := findFunction(t, tree, "check_insert")
	if got := FunctionName(fn, tree.Source); got != "check_insert" {
		t.Errorf("FunctionName = %q, want check_insert", got)
	}
	// Non-function nodes degrade to empty, not panic.
	if got := FunctionName(tree.Root(), tree.Source); got != "" {
		t.Errorf("FunctionName on source_file = %q, want empty", got)
	}
	if got := FunctionName(nil, tree.Source); got != "" {
		t.Errorf("FunctionName on nil = %q, want empty", got)
	}
}

func TestAttributesOf(t *testing.T) {
	src := `#[kani::proof]
#[kani::unwind(3)]
/// a doc comment between attribute and item
fn check_pop() {}

fn plain() {}
`
	tree := parseSource(t, src)

	fn := findFunction(t, tree, "check_pop")
	attrs := AttributesOf(fn)
	if len(attrs) != 2 {
		t.Fatalf("got %d attributes, want 2", len(attrs))
	}
	// Source order is preserved.
	if got := AttributePath(attrs[0], tree.Source); got != "kani::proof" {
		t.Errorf("first attribute = %q, want kani::proof", got)
	}
	if got := AttributePath(attrs[1], tree.Source); got != "kani::unwind" {
		t.Errorf("second attribute = %q, want kani::unwind", got)
	}

	if attrs := AttributesOf(findFunction(t, tree, "plain")); len(attrs) != 0 {
		t.Errorf("plain function should have no attributes, got %d", len(attrs))
	}

	if attrs := AttributesOf(nil); attrs != nil {
		t.Error("nil node should yield nil attributes")
	}
}

func TestAttributePath(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"scoped", "#[kani::proof]\nfn f() {}", "kani::proof"},
		{"bare", "#[test]\nfn f() {}", "test"},
		{"with args", "#[cfg_attr(kani, kani::proof)]\nfn f() {}", "cfg_attr"},
		{"nested path", "#[kani::stub(mem::swap, mock_swap)]\nfn f() {}", "kani::stub"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := parseSource(t, tt.src)
			attrs := AttributesOf(findFunction(t, tree, "f"))
			if len(attrs) != 1 {
				t.Fatalf("got %d attributes, want 1", len(attrs))
			}
			if got := AttributePath(attrs[0], tree.Source); got != tt.want {
				t.Errorf("AttributePath = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAttributeArguments(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{"no args", "#[kani::proof]\nfn f() {}", nil},
		{"single", "#[kani::unwind(3)]\nfn f() {}", []string{"3"}},
		{"pair", "#[kani::stub(mem::swap, mock_swap)]\nfn f() {}", []string{"mem::swap", "mock_swap"}},
		{"nested commas", "#[custom(outer(1, 2), three)]\nfn f() {}", []string{"outer(1, 2)", "three"}},
		{"string with comma", `#[doc("a, b")]` + "\nfn f() {}", []string{`"a, b"`}},
		// Interior whitespace survives; only the outer boundary is trimmed.
		{"inner whitespace", "#[custom(  a  b , c )]\nfn f() {}", []string{"a  b", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := parseSource(t, tt.src)
			attrs := AttributesOf(findFunction(t, tree, "f"))
			if len(attrs) != 1 {
				t.Fatalf("got %d attributes, want 1", len(attrs))
			}
			got := AttributeArguments(attrs[0], tree.Source)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("AttributeArguments = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestCalleeNames(t *testing.T) {
	src := `fn function_abc() {
    let input = setup();
    kani::check(input);
    assert!(input > 0);
}
`
	tree := parseSource(t, src)
	names := CalleeNames(findFunction(t, tree, "function_abc"), tree.Source)

	wantContained := []string{"setup", "kani::check", "assert"}
	for _, want := range wantContained {
		found := false
		for _, n := range names {
			if n == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("CalleeNames = %v, missing %q", names, want)
		}
	}
}

func TestStartLine(t *testing.T) {
	src := "// comment\n\nfn late_function() {}\n"
	tree := parseSource(t, src)
	fn := findFunction(t, tree, "late_function")
	if got := StartLine(fn); got != 3 {
		t.Errorf("StartLine = %d, want 3", got)
	}
	if got := StartLine(nil); got != 0 {
		t.Errorf("StartLine(nil) = %d, want 0", got)
	}
}

func TestTextOutOfRange(t *testing.T) {
	tree := parseSource(t, "fn f() {}")
	fn := findFunction(t, tree, "f")
	// A truncated source slice must not panic the text accessor.
	if got := Text(fn, []byte("fn")); got != "" {
		t.Errorf("Text with short src = %q, want empty", got)
	}
	if got := Text(nil, tree.Source); got != "" {
		t.Errorf("Text(nil) = %q, want empty", got)
	}
}

func TestSplitArguments(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"   ", nil},
		{"a", []string{"a"}},
		{"a, b", []string{"a", "b"}},
		{"f(a, b), c", []string{"f(a, b)", "c"}},
		{"[1, 2], 3", []string{"[1, 2]", "3"}},
		{`"x, y", z`, []string{`"x, y"`, "z"}},
	}
	for _, tt := range tests {
		if got := splitArguments(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitArguments(%q) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
}
