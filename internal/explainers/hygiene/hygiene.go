// Package hygiene derives advisory findings about harness declarations:
// proofs without an unwind bound and harness names declared more than once.
package hygiene

import (
	"context"
	"fmt"
	"sort"

	"github.com/jaisnan/kanimcp/internal/harness"
	"github.com/jaisnan/kanimcp/internal/report"
)

// Explainer checks harness declarations for common hygiene problems.
type Explainer struct{}

// New creates a new Explainer.
func New() *Explainer {
	return &Explainer{}
}

func (e *Explainer) Name() string {
	return "hygiene"
}

// Explain analyzes the report store and returns hygiene insights.
func (e *Explainer) Explain(ctx context.Context, store *report.Store) ([]report.Insight, error) {
	var insights []report.Insight

	if unbounded := e.findUnboundedProofs(store); unbounded != nil {
		insights = append(insights, *unbounded)
	}
	insights = append(insights, e.findDuplicateNames(store)...)

	return insights, nil
}

// findUnboundedProofs reports proof harnesses that carry no unwind bound.
// Such proofs can run until the solver gives up on loops.
func (e *Explainer) findUnboundedProofs(store *report.Store) *report.Insight {
	var evidence []report.Evidence
	for _, fr := range store.All() {
		for _, h := range fr.Harnesses {
			if h.Kind != harness.KindProof {
				continue
			}
			if hasAttr(h, harness.AttrUnwind) {
				continue
			}
			evidence = append(evidence, report.Evidence{
				File:    fr.Path,
				Harness: h.Name,
				Detail:  fmt.Sprintf("proof harness %q has no #[kani::unwind(...)] bound", h.Name),
			})
		}
	}

	if len(evidence) == 0 {
		return nil
	}

	return &report.Insight{
		Title:       "Proof harnesses without unwind bounds",
		Description: fmt.Sprintf("%d proof harness(es) declare no unwind bound. Verification of code with loops may not terminate without one.", len(evidence)),
		Confidence:  0.7,
		Evidence:    evidence,
		Actions: []string{
			"Add #[kani::unwind(N)] to harnesses exercising loops",
		},
	}
}

// findDuplicateNames reports harness names declared in more than one place.
// The per-file metadata map keeps only the later declaration, so duplicates
// shadow each other.
func (e *Explainer) findDuplicateNames(store *report.Store) []report.Insight {
	occurrences := make(map[string][]report.Evidence)
	for _, fr := range store.All() {
		for _, h := range fr.Harnesses {
			occurrences[h.Name] = append(occurrences[h.Name], report.Evidence{
				File:    fr.Path,
				Harness: h.Name,
				Detail:  fmt.Sprintf("declared at line %d", h.StartLine),
			})
		}
	}

	var names []string
	for name, occ := range occurrences {
		if len(occ) > 1 {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var insights []report.Insight
	for _, name := range names {
		occ := occurrences[name]
		insights = append(insights, report.Insight{
			Title:       fmt.Sprintf("Duplicate harness name: %s", name),
			Description: fmt.Sprintf("Harness %q is declared %d times. Results keyed by harness name will shadow each other.", name, len(occ)),
			Confidence:  0.9,
			Evidence:    occ,
			Actions: []string{
				"Rename the harnesses so each has a unique name",
			},
		})
	}
	return insights
}

func hasAttr(h harness.Metadata, kind harness.AttrKind) bool {
	for _, attr := range h.Attributes {
		if attr.Kind == kind {
			return true
		}
	}
	return false
}
