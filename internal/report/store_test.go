package report

import (
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"github.com/jaisnan/kanimcp/internal/harness"
)

// --- helpers ---

func sampleReport(path string, names ...string) FileReport {
	fr := FileReport{Path: path}
	for i, name := range names {
		fr.Harnesses = append(fr.Harnesses, harness.Metadata{
			Name:      name,
			Kind:      harness.KindProof,
			StartLine: (i + 1) * 10,
		})
	}
	fr.TotalProofs = len(fr.Harnesses)
	return fr
}

// --- tests ---

func TestStoreAddAndLookup(t *testing.T) {
	s := NewStore()
	s.Add(sampleReport("src/lib.rs", "check_insert", "check_remove"))
	s.Add(sampleReport("src/queue.rs", "check_pop"))

	if s.Count() != 2 {
		t.Errorf("Count = %d, want 2", s.Count())
	}
	if s.HarnessCount() != 3 {
		t.Errorf("HarnessCount = %d, want 3", s.HarnessCount())
	}
	if s.ProofCount() != 3 {
		t.Errorf("ProofCount = %d, want 3", s.ProofCount())
	}

	fr, ok := s.ByPath("src/lib.rs")
	if !ok {
		t.Fatal("src/lib.rs not found")
	}
	if len(fr.Harnesses) != 2 {
		t.Errorf("got %d harnesses, want 2", len(fr.Harnesses))
	}

	entries := s.ByHarness("check_pop")
	if len(entries) != 1 || entries[0].File != "src/queue.rs" {
		t.Errorf("ByHarness(check_pop) = %v", entries)
	}
}

func TestStoreReplaceSamePath(t *testing.T) {
	s := NewStore()
	s.Add(sampleReport("src/lib.rs", "old_harness"))
	s.Add(sampleReport("src/lib.rs", "new_harness"))

	if s.Count() != 1 {
		t.Fatalf("Count = %d, want 1 after replace", s.Count())
	}
	if entries := s.ByHarness("old_harness"); len(entries) != 0 {
		t.Errorf("stale index entry survived replace: %v", entries)
	}
	if entries := s.ByHarness("new_harness"); len(entries) != 1 {
		t.Errorf("ByHarness(new_harness) = %v, want 1 entry", entries)
	}
}

func TestStoreQuery(t *testing.T) {
	s := NewStore()
	s.Add(FileReport{
		Path: "src/lib.rs",
		Harnesses: []harness.Metadata{
			{Name: "check_insert", Kind: harness.KindProof},
			{Name: "wraps_check", Kind: harness.KindUnitTest},
		},
	})
	s.Add(sampleReport("src/queue.rs", "check_pop"))

	tests := []struct {
		name      string
		path      string
		substr    string
		kind      harness.Kind
		wantCount int
	}{
		{"all", "", "", "", 3},
		{"by path", "src/lib.rs", "", "", 2},
		{"by name substring", "", "check", "", 3},
		{"by narrower substring", "", "check_", "", 2},
		{"by kind", "", "", harness.KindUnitTest, 1},
		{"combined", "src/lib.rs", "check", harness.KindProof, 1},
		{"no match", "src/lib.rs", "pop", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Query(tt.path, tt.substr, tt.kind)
			if len(got) != tt.wantCount {
				t.Errorf("Query = %d entries, want %d", len(got), tt.wantCount)
			}
		})
	}
}

func TestStoreJSONLRoundTrip(t *testing.T) {
	s := NewStore()
	s.Add(FileReport{
		Path:        "src/lib.rs",
		TotalProofs: 1,
		Harnesses: []harness.Metadata{
			{
				Name:      "check_insert",
				Kind:      harness.KindProof,
				StartLine: 4,
				Attributes: []harness.Attribute{
					{Name: "kani::proof", Kind: harness.AttrProof, Supported: true},
					{Name: "kani::unwind", Args: []string{"3"}, Kind: harness.AttrUnwind, Supported: true},
				},
				TotalProofs: 1,
			},
		},
		PlaybackTests: []harness.GeneratedTest{
			{Name: "kani_concrete_playback_check_insert_1234abcd", Harness: "check_insert", Line: 20},
		},
	})

	path := filepath.Join(t.TempDir(), "harnesses.jsonl")
	if err := s.WriteJSONLFile(path); err != nil {
		t.Fatalf("WriteJSONLFile: %v", err)
	}

	loaded := NewStore()
	if err := loaded.ReadJSONLFile(path); err != nil {
		t.Fatalf("ReadJSONLFile: %v", err)
	}

	if !reflect.DeepEqual(s.All(), loaded.All()) {
		t.Errorf("round trip mismatch:\n got %#v\nwant %#v", loaded.All(), s.All())
	}
	if loaded.HarnessCount() != 1 {
		t.Errorf("loaded HarnessCount = %d, want 1", loaded.HarnessCount())
	}
}

func TestStoreClear(t *testing.T) {
	s := NewStore()
	s.Add(sampleReport("src/lib.rs", "check_insert"))
	s.Clear()

	if s.Count() != 0 || s.HarnessCount() != 0 {
		t.Error("store not empty after Clear")
	}
	if entries := s.ByHarness("check_insert"); len(entries) != 0 {
		t.Error("index survived Clear")
	}
}

func TestStoreConcurrentReads(t *testing.T) {
	s := NewStore()
	for _, path := range []string{"a.rs", "b.rs", "c.rs"} {
		s.Add(sampleReport(path, "check_"+path))
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				_ = s.All()
				_ = s.Query("", "check", "")
				_, _ = s.ByPath("a.rs")
			}
		}()
	}
	wg.Wait()
}
