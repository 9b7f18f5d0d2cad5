package harness

import (
	"sort"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/jaisnan/kanimcp/internal/syntax"
)

// Concrete playback rewrites counterexamples into unit tests named
// kani_concrete_playback_<harness>_<hash> whose body is a thin wrapper
// calling kani::concrete_playback_run(vals, harness).
const (
	playbackPrefix = "kani_concrete_playback_"
	playbackCall   = "concrete_playback_run"
)

// GeneratedTest records one generated replay test found in a file. Harness is
// a back-reference by name, not a pointer into any metadata map.
type GeneratedTest struct {
	Name    string `json:"name"`
	Harness string `json:"harness"`
	Line    int    `json:"line"`
}

// ExtractGeneratedTests scans the source for generated replay tests and
// returns them ordered by ascending line, so a caller can splice them into a
// displayed outline in source order. Zero matches is the common case; one
// harness can yield several replays.
func ExtractGeneratedTests(src []byte) ([]GeneratedTest, error) {
	if len(src) == 0 {
		return nil, nil
	}

	tree, err := syntax.Parse(src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	var out []GeneratedTest
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if syntax.IsKind(n, "function_item") {
			name := syntax.FunctionName(n, src)
			if strings.HasPrefix(name, playbackPrefix) {
				harnessName := playbackTarget(n, src)
				if harnessName == "" {
					harnessName = harnessFromTestName(name)
				}
				out = append(out, GeneratedTest{
					Name:    name,
					Harness: harnessName,
					Line:    syntax.StartLine(n),
				})
			}
			return
		}
		for _, c := range syntax.NamedChildren(n) {
			walk(c)
		}
	}
	if root := tree.Root(); root != nil {
		walk(root)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Line < out[j].Line })
	return out, nil
}

// playbackTarget extracts the harness argument from the wrapper's
// concrete_playback_run call, which names the originating harness directly.
func playbackTarget(fn *sitter.Node, src []byte) string {
	body := fn.ChildByFieldName("body")
	if body == nil {
		return ""
	}

	var target string
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if target != "" {
			return
		}
		if syntax.IsKind(n, "call_expression") {
			callee := syntax.Text(n.ChildByFieldName("function"), src)
			if strings.HasSuffix(callee, playbackCall) {
				args := syntax.NamedChildren(n.ChildByFieldName("arguments"))
				if len(args) >= 2 {
					target = syntax.Text(args[1], src)
					return
				}
			}
		}
		for _, c := range syntax.NamedChildren(n) {
			walk(c)
		}
	}
	walk(body)
	return target
}

// harnessFromTestName recovers the harness name from the generated test name
// when the wrapper body could not be inspected: strip the prefix and, if the
// last segment looks like a hash, drop it.
func harnessFromTestName(name string) string {
	rest := strings.TrimPrefix(name, playbackPrefix)
	if i := strings.LastIndex(rest, "_"); i > 0 && isHashSegment(rest[i+1:]) {
		return rest[:i]
	}
	return rest
}

func isHashSegment(s string) bool {
	if len(s) < 4 {
		return false
	}
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		default:
			return false
		}
	}
	return true
}
