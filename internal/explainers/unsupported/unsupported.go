// Package unsupported flags attributes the verifier understands but this
// tool does not model, so a caller can surface a warning instead of silently
// dropping them.
package unsupported

import (
	"context"
	"fmt"
	"strings"

	"github.com/jaisnan/kanimcp/internal/report"
)

// Explainer reports harness attributes outside the supported set.
type Explainer struct{}

// New creates a new Explainer.
func New() *Explainer {
	return &Explainer{}
}

func (e *Explainer) Name() string {
	return "unsupported"
}

// Explain produces one insight per file that carries unsupported attributes.
func (e *Explainer) Explain(ctx context.Context, store *report.Store) ([]report.Insight, error) {
	var insights []report.Insight

	for _, fr := range store.All() {
		var evidence []report.Evidence
		for _, h := range fr.Harnesses {
			for _, attr := range h.Attributes {
				if attr.Supported {
					continue
				}
				detail := "#[" + attr.Name
				if len(attr.Args) > 0 {
					detail += "(" + strings.Join(attr.Args, ", ") + ")"
				}
				detail += "]"
				evidence = append(evidence, report.Evidence{
					File:    fr.Path,
					Harness: h.Name,
					Detail:  detail,
				})
			}
		}

		if len(evidence) == 0 {
			continue
		}

		insights = append(insights, report.Insight{
			Title:       fmt.Sprintf("Unsupported attributes in %s", fr.Path),
			Description: fmt.Sprintf("%d attribute(s) on harnesses in this file are not modeled by the analyzer. They are preserved verbatim but their semantics are not interpreted.", len(evidence)),
			Confidence:  1.0,
			Evidence:    evidence,
			Actions: []string{
				"Check whether the attribute is a typo of a supported Kani attribute",
				"Verify the attribute behaves as expected when the harness runs",
			},
		})
	}

	return insights, nil
}
