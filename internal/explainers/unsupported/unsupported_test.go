package unsupported

import (
	"context"
	"strings"
	"testing"

	"github.com/jaisnan/kanimcp/internal/harness"
	"github.com/jaisnan/kanimcp/internal/report"
)

func TestUnsupportedAttributes(t *testing.T) {
	store := report.NewStore()
	store.Add(report.FileReport{
		Path: "src/lib.rs",
		Harnesses: []harness.Metadata{
			{
				Name: "check_insert",
				Kind: harness.KindProof,
				Attributes: []harness.Attribute{
					{Name: "kani::proof", Kind: harness.AttrProof, Supported: true},
					{Name: "my_tool::magic", Args: []string{"on"}, Kind: harness.AttrUnsupported, Supported: false},
				},
			},
		},
	})
	store.Add(report.FileReport{
		Path: "src/clean.rs",
		Harnesses: []harness.Metadata{
			{
				Name: "check_clean",
				Kind: harness.KindProof,
				Attributes: []harness.Attribute{
					{Name: "kani::proof", Kind: harness.AttrProof, Supported: true},
				},
			},
		},
	})

	insights, err := New().Explain(context.Background(), store)
	if err != nil {
		t.Fatalf("Explain: %v", err)
	}

	// Only the file with unsupported attributes produces an insight.
	if len(insights) != 1 {
		t.Fatalf("got %d insights, want 1", len(insights))
	}

	ins := insights[0]
	if !strings.Contains(ins.Title, "src/lib.rs") {
		t.Errorf("title = %q, want the file path", ins.Title)
	}
	if len(ins.Evidence) != 1 {
		t.Fatalf("got %d evidence entries, want 1", len(ins.Evidence))
	}
	if want := "#[my_tool::magic(on)]"; ins.Evidence[0].Detail != want {
		t.Errorf("detail = %q, want %q", ins.Evidence[0].Detail, want)
	}
}

func TestNoUnsupportedAttributes(t *testing.T) {
	store := report.NewStore()
	store.Add(report.FileReport{
		Path: "src/lib.rs",
		Harnesses: []harness.Metadata{
			{
				Name: "check_insert",
				Kind: harness.KindProof,
				Attributes: []harness.Attribute{
					{Name: "kani::proof", Kind: harness.AttrProof, Supported: true},
				},
			},
		},
	})

	insights, err := New().Explain(context.Background(), store)
	if err != nil {
		t.Fatalf("Explain: %v", err)
	}
	if len(insights) != 0 {
		t.Errorf("got %d insights, want 0", len(insights))
	}
}
