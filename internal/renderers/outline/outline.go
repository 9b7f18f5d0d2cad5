// Package outline renders the harness snapshot as a markdown outline: one
// section per file, one bullet per harness with its attribute badges, and
// generated playback tests nested under the harness they replay.
package outline

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jaisnan/kanimcp/internal/harness"
	"github.com/jaisnan/kanimcp/internal/report"
)

// Renderer produces the outline.md artifact.
type Renderer struct {
	maxChars int
}

// New creates a new Renderer with the given character budget.
func New(maxChars int) *Renderer {
	if maxChars <= 0 {
		maxChars = 64000
	}
	return &Renderer{maxChars: maxChars}
}

func (r *Renderer) Name() string {
	return "outline"
}

// Render produces the outline artifact. Files are emitted in scan order and
// truncated with a notice once the character budget runs out.
func (r *Renderer) Render(ctx context.Context, snapshot *report.Snapshot) ([]report.Artifact, error) {
	header := fmt.Sprintf("# Harness Outline\n\n%d harness(es), %d proof(s) across %d file(s).\n\n",
		snapshot.Meta.HarnessCount, snapshot.Meta.ProofCount, snapshot.Meta.FileCount)

	var sb strings.Builder
	sb.WriteString(header)
	remaining := r.maxChars - len(header)

	for i, fr := range snapshot.Files {
		section := renderFile(fr)
		if len(section) > remaining {
			var omitted []string
			for _, rest := range snapshot.Files[i:] {
				omitted = append(omitted, rest.Path)
			}
			sb.WriteString(fmt.Sprintf("\n---\n*[Omitted: %s]*\n", strings.Join(omitted, ", ")))
			break
		}
		sb.WriteString(section)
		remaining -= len(section)
	}

	return []report.Artifact{
		{Name: "outline.md", Content: []byte(sb.String()), Type: "text/markdown"},
	}, nil
}

func renderFile(fr report.FileReport) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## %s\n\n", fr.Path))

	// Playback tests indexed by originating harness; leftovers without a
	// discovered harness are listed at the end of the section.
	byHarness := make(map[string][]harness.GeneratedTest)
	for _, pt := range fr.PlaybackTests {
		byHarness[pt.Harness] = append(byHarness[pt.Harness], pt)
	}

	for _, h := range fr.Harnesses {
		sb.WriteString(fmt.Sprintf("- `%s` (line %d) — %s%s\n",
			h.Name, h.StartLine, kindBadge(h.Kind), attrBadges(h.Attributes)))
		for _, pt := range byHarness[h.Name] {
			sb.WriteString(fmt.Sprintf("  - `%s` (line %d) — replay\n", pt.Name, pt.Line))
		}
		delete(byHarness, h.Name)
	}

	if len(byHarness) > 0 {
		var orphans []harness.GeneratedTest
		for _, pts := range byHarness {
			orphans = append(orphans, pts...)
		}
		sortByLine(orphans)
		for _, pt := range orphans {
			sb.WriteString(fmt.Sprintf("- `%s` (line %d) — replay of `%s` (not in this file)\n",
				pt.Name, pt.Line, pt.Harness))
		}
	}

	sb.WriteString("\n")
	return sb.String()
}

func kindBadge(k harness.Kind) string {
	if k == harness.KindUnitTest {
		return "unit test"
	}
	return "proof"
}

func attrBadges(attrs []harness.Attribute) string {
	var badges []string
	for _, a := range attrs {
		badge := a.Name
		if len(a.Args) > 0 {
			badge += "(" + strings.Join(a.Args, ", ") + ")"
		}
		badge = "`" + badge + "`"
		if !a.Supported {
			badge += " (unsupported)"
		}
		badges = append(badges, badge)
	}
	if len(badges) == 0 {
		return ""
	}
	return " " + strings.Join(badges, " ")
}

func sortByLine(pts []harness.GeneratedTest) {
	sort.Slice(pts, func(i, j int) bool { return pts[i].Line < pts[j].Line })
}
