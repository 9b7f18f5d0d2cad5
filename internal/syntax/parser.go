package syntax

import (
	"errors"
	"fmt"
	"sync"

	sitter "github.com/tree-sitter/go-tree-sitter"
	rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
)

// ErrParserUnavailable is returned when the Rust grammar could not be loaded.
// Callers should treat it as a process-level condition, not a property of the
// input text; a later call may retry the load.
var ErrParserUnavailable = errors.New("rust grammar unavailable")

var (
	langMu sync.Mutex
	lang   *sitter.Language
)

// Language returns the shared Rust grammar handle. Loading the grammar is
// comparatively expensive, so the handle is memoized process-wide; concurrent
// callers block on the same initialization instead of loading twice. A failed
// load is not cached, so the next call retries.
func Language() (*sitter.Language, error) {
	langMu.Lock()
	defer langMu.Unlock()

	if lang != nil {
		return lang, nil
	}

	ptr := rust.Language()
	if ptr == nil {
		return nil, fmt.Errorf("%w: tree-sitter-rust returned a nil grammar", ErrParserUnavailable)
	}

	l := sitter.NewLanguage(ptr)
	if l == nil {
		return nil, fmt.Errorf("%w: grammar handle construction failed", ErrParserUnavailable)
	}

	lang = l
	return lang, nil
}

// Tree owns a parsed syntax tree together with the source it was built from.
// Nodes handed out by Root are only valid until Close is called.
type Tree struct {
	inner *sitter.Tree

	// Source is the text the tree was parsed from; node spans index into it.
	Source []byte
}

// Parse builds a syntax tree for the given Rust source. Parsers are cheap and
// not shareable across goroutines, so each call constructs its own; only the
// grammar is shared. The only error condition is ErrParserUnavailable —
// syntactically broken input still yields a (partially errored) tree.
func Parse(src []byte) (*Tree, error) {
	l, err := Language()
	if err != nil {
		return nil, err
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(l)

	t := parser.Parse(src, nil)
	if t == nil {
		return nil, fmt.Errorf("%w: parser produced no tree", ErrParserUnavailable)
	}

	return &Tree{inner: t, Source: src}, nil
}

// Root returns the root node of the tree, or nil for a nil/closed tree.
func (t *Tree) Root() *sitter.Node {
	if t == nil || t.inner == nil {
		return nil
	}
	return t.inner.RootNode()
}

// Close releases the underlying tree. Safe to call on nil.
func (t *Tree) Close() {
	if t != nil && t.inner != nil {
		t.inner.Close()
		t.inner = nil
	}
}
