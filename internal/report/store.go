package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/jaisnan/kanimcp/internal/harness"
)

// Store provides in-memory storage and querying of per-file harness reports
// with JSONL persistence. Safe for concurrent readers.
type Store struct {
	mu    sync.RWMutex
	files []FileReport

	byPath    map[string]int   // path -> index into files
	byHarness map[string][]int // harness name -> indices into files
}

// NewStore creates an empty report store.
func NewStore() *Store {
	return &Store{
		byPath:    make(map[string]int),
		byHarness: make(map[string][]int),
	}
}

// Add inserts a file report, replacing any previous report for the same path.
func (s *Store) Add(fr FileReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.add(fr)
}

func (s *Store) add(fr FileReport) {
	if idx, ok := s.byPath[fr.Path]; ok {
		s.files[idx] = fr
		s.reindex()
		return
	}
	idx := len(s.files)
	s.files = append(s.files, fr)
	s.byPath[fr.Path] = idx
	for _, h := range fr.Harnesses {
		s.byHarness[h.Name] = append(s.byHarness[h.Name], idx)
	}
}

func (s *Store) reindex() {
	s.byPath = make(map[string]int, len(s.files))
	s.byHarness = make(map[string][]int)
	for i, fr := range s.files {
		s.byPath[fr.Path] = i
		for _, h := range fr.Harnesses {
			s.byHarness[h.Name] = append(s.byHarness[h.Name], i)
		}
	}
}

// Clear removes all reports.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = nil
	s.byPath = make(map[string]int)
	s.byHarness = make(map[string][]int)
}

// All returns all file reports in insertion order.
func (s *Store) All() []FileReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]FileReport, len(s.files))
	copy(out, s.files)
	return out
}

// Count returns the number of file reports.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.files)
}

// HarnessCount returns the total number of harnesses across all files.
func (s *Store) HarnessCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, fr := range s.files {
		n += len(fr.Harnesses)
	}
	return n
}

// ProofCount returns the number of proof-kind harnesses across all files.
func (s *Store) ProofCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, fr := range s.files {
		for _, h := range fr.Harnesses {
			if h.Kind == harness.KindProof {
				n++
			}
		}
	}
	return n
}

// ByPath returns the report for the given file path.
func (s *Store) ByPath(path string) (FileReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.byPath[path]
	if !ok {
		return FileReport{}, false
	}
	return s.files[idx], true
}

// ByHarness returns every entry whose harness name matches exactly.
func (s *Store) ByHarness(name string) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Entry
	for _, idx := range s.byHarness[name] {
		for _, h := range s.files[idx].Harnesses {
			if h.Name == name {
				out = append(out, Entry{File: s.files[idx].Path, Harness: h})
			}
		}
	}
	return out
}

// Query returns entries matching all provided filters. Empty filter values
// are ignored; name matches by substring, path and kind exactly.
func (s *Store) Query(path, name string, kind harness.Kind) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Entry
	for _, fr := range s.files {
		if path != "" && fr.Path != path {
			continue
		}
		for _, h := range fr.Harnesses {
			if name != "" && !strings.Contains(h.Name, name) {
				continue
			}
			if kind != "" && h.Kind != kind {
				continue
			}
			out = append(out, Entry{File: fr.Path, Harness: h})
		}
	}
	return out
}

// WriteJSONL writes every file report as one JSON object per line.
func (s *Store) WriteJSONL(w io.Writer) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for _, fr := range s.files {
		if err := enc.Encode(fr); err != nil {
			return fmt.Errorf("encoding report for %s: %w", fr.Path, err)
		}
	}
	return bw.Flush()
}

// WriteJSONLFile writes the store to a JSONL file.
func (s *Store) WriteJSONLFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()
	return s.WriteJSONL(f)
}

// ReadJSONLFile loads file reports from a JSONL file, replacing the store's
// contents.
func (s *Store) ReadJSONLFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = nil
	s.byPath = make(map[string]int)
	s.byHarness = make(map[string][]int)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var fr FileReport
		if err := json.Unmarshal([]byte(line), &fr); err != nil {
			return fmt.Errorf("parsing %s line %d: %w", path, lineNo, err)
		}
		s.add(fr)
	}
	return scanner.Err()
}
