package harness

import (
	"log"
	"strings"

	"github.com/jaisnan/kanimcp/internal/syntax"
)

// Kind distinguishes proof harnesses from harnesses wrapped inside ordinary
// unit tests.
type Kind string

const (
	KindProof    Kind = "proof"
	KindUnitTest Kind = "unit_test"
)

// Metadata is the resolved record for one harness in a file.
type Metadata struct {
	Name       string      `json:"name"`
	Kind       Kind        `json:"kind"`
	StartLine  int         `json:"start_line"`
	Attributes []Attribute `json:"attributes,omitempty"`

	// TotalProofs is the count of proof-kind harnesses in the whole file,
	// stamped on every record for the caller's convenience.
	TotalProofs int `json:"total_proofs"`
}

// MetadataMap maps harness names to their metadata while preserving discovery
// order (depth-first, top-to-bottom document order). It is built once per
// analysis call and never mutated afterwards by the analyzer.
type MetadataMap struct {
	order []string
	items map[string]Metadata
}

// NewMetadataMap returns an empty map.
func NewMetadataMap() *MetadataMap {
	return &MetadataMap{items: make(map[string]Metadata)}
}

// Put inserts or replaces a record. A duplicate name (possible with nested
// modules) keeps its original position but takes the later value.
func (m *MetadataMap) Put(md Metadata) {
	if _, exists := m.items[md.Name]; exists {
		log.Printf("[harness] duplicate harness name %q, later definition wins", md.Name)
	} else {
		m.order = append(m.order, md.Name)
	}
	m.items[md.Name] = md
}

// Get returns the record for the given harness name.
func (m *MetadataMap) Get(name string) (Metadata, bool) {
	md, ok := m.items[name]
	return md, ok
}

// Len returns the number of harnesses in the map.
func (m *MetadataMap) Len() int {
	return len(m.order)
}

// Names returns the harness names in discovery order.
func (m *MetadataMap) Names() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// All returns the records in discovery order.
func (m *MetadataMap) All() []Metadata {
	out := make([]Metadata, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, m.items[name])
	}
	return out
}

// BuildMetadataMap parses the source and aggregates every detected harness
// into an ordered map. Unparseable or empty input yields an empty map; the
// only error condition is syntax.ErrParserUnavailable.
func BuildMetadataMap(src []byte) (*MetadataMap, error) {
	m := NewMetadataMap()
	if len(src) == 0 {
		return m, nil
	}

	tree, err := syntax.Parse(src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	root := tree.Root()
	if root == nil {
		return m, nil
	}

	for _, c := range findCandidates(root, src) {
		name := syntax.FunctionName(c.fn, src)
		if name == "" {
			continue
		}
		m.Put(Metadata{
			Name:       name,
			Kind:       harnessKind(c, src),
			StartLine:  syntax.StartLine(c.fn),
			Attributes: classifyAttributes(c.attrs, src),
		})
	}

	stampTotalProofs(m)
	return m, nil
}

// harnessKind computes the kind for a candidate: Proof, unless the function
// is a standard test wrapper containing exactly one harness invocation.
func harnessKind(c candidate, src []byte) Kind {
	if hasTestAttribute(c.attrs, src) && entryPointCalls(c.fn, src) == 1 {
		return KindUnitTest
	}
	return KindProof
}

func stampTotalProofs(m *MetadataMap) {
	total := 0
	for _, name := range m.order {
		if m.items[name].Kind == KindProof {
			total++
		}
	}
	for _, name := range m.order {
		md := m.items[name]
		md.TotalProofs = total
		m.items[name] = md
	}
}

// proofMarkers are the textual signals scanned by CheckFileForProofs. The
// bare "kani::proof" spelling also covers the proof_for_contract variant.
var proofMarkers = []string{
	"kani::proof",
	"#[proof]",
	"kani::check",
	"bolero::check",
}

// CheckFileForProofs is a cheap pre-check: it reports whether the text
// contains a proof marker or a harness entry-point spelling anywhere, without
// building a tree. Callers use it to decide whether full extraction is worth
// running at all.
func CheckFileForProofs(src []byte) bool {
	if len(src) == 0 {
		return false
	}
	text := string(src)
	for _, marker := range proofMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}
