package harness

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/jaisnan/kanimcp/internal/syntax"
)

// AttrKind classifies an attribute against the fixed set of Kani attributes
// the analyzer models. Anything outside the set is AttrUnsupported; such
// attributes are still reported so a caller can warn about options the
// verifier understands but this tool does not.
type AttrKind string

const (
	AttrProof            AttrKind = "proof"
	AttrProofForContract AttrKind = "proof_for_contract"
	AttrStub             AttrKind = "stub"
	AttrStubVerified     AttrKind = "stub_verified"
	AttrUnwind           AttrKind = "unwind"
	AttrSolver           AttrKind = "solver"
	AttrCfgKani          AttrKind = "cfg_kani"
	AttrUnsupported      AttrKind = "unsupported"
)

// Attribute describes one attribute attached to a harness function. Args
// holds the raw argument texts verbatim; no semantic parsing is done on them
// since consumers only display or pass them through.
type Attribute struct {
	Name      string   `json:"name"`
	Args      []string `json:"args,omitempty"`
	Kind      AttrKind `json:"kind"`
	Supported bool     `json:"supported"`
}

// classifyAttribute maps an attribute path and its raw arguments to a typed
// descriptor.
func classifyAttribute(name string, args []string) Attribute {
	kind := AttrUnsupported
	switch name {
	case "kani::proof", "proof":
		kind = AttrProof
	case "kani::proof_for_contract":
		kind = AttrProofForContract
	case "kani::stub":
		kind = AttrStub
	case "kani::stub_verified":
		kind = AttrStubVerified
	case "kani::unwind":
		kind = AttrUnwind
	case "kani::solver":
		kind = AttrSolver
	case "cfg_attr":
		// #[cfg_attr(kani, ...)] is the conditional/coverage spelling.
		if len(args) > 0 && args[0] == "kani" {
			kind = AttrCfgKani
		}
	}
	return Attribute{Name: name, Args: args, Kind: kind, Supported: kind != AttrUnsupported}
}

// classifyAttributes builds descriptors for every attribute node, in source
// order.
func classifyAttributes(attrs []*sitter.Node, src []byte) []Attribute {
	if len(attrs) == 0 {
		return nil
	}
	out := make([]Attribute, 0, len(attrs))
	for _, a := range attrs {
		name := syntax.AttributePath(a, src)
		if name == "" {
			continue
		}
		out = append(out, classifyAttribute(name, syntax.AttributeArguments(a, src)))
	}
	return out
}

// isProofMarker reports whether an attribute declares a proof harness: the
// plain marker, the contract variant, or a cfg_attr(kani, ...) wrapping one.
func isProofMarker(name string, args []string) bool {
	switch name {
	case "kani::proof", "proof", "kani::proof_for_contract":
		return true
	case "cfg_attr":
		if len(args) < 2 || args[0] != "kani" {
			return false
		}
		for _, a := range args[1:] {
			if a == "proof" || strings.HasPrefix(a, "kani::proof") {
				return true
			}
		}
	}
	return false
}
