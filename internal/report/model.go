package report

import "github.com/jaisnan/kanimcp/internal/harness"

// FileReport holds everything the analyzer extracted from one Rust file.
type FileReport struct {
	Path          string                  `json:"path"`
	TotalProofs   int                     `json:"total_proofs"`
	Harnesses     []harness.Metadata      `json:"harnesses"`
	PlaybackTests []harness.GeneratedTest `json:"playback_tests,omitempty"`
}

// Insight represents a finding an explainer derived from the harness reports.
type Insight struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Confidence  float64    `json:"confidence"` // 0.0 - 1.0
	Evidence    []Evidence `json:"evidence"`
	Actions     []string   `json:"suggested_actions,omitempty"`
}

// Evidence links an insight back to a concrete file/harness.
type Evidence struct {
	File    string `json:"file,omitempty"`
	Harness string `json:"harness,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// Artifact represents a generated output file.
type Artifact struct {
	Name    string `json:"name"` // e.g. "outline.md"
	Content []byte `json:"-"`    // Raw content
	Type    string `json:"type"` // MIME type hint
}

// Snapshot holds the complete result of a workspace scan.
type Snapshot struct {
	Meta      SnapshotMeta `json:"meta"`
	Files     []FileReport `json:"files"`
	Insights  []Insight    `json:"insights"`
	Artifacts []Artifact   `json:"artifacts"`
}

// SnapshotMeta describes how and when a snapshot was generated.
type SnapshotMeta struct {
	RepoPath     string     `json:"repo_path"`
	GeneratedAt  string     `json:"generated_at"`
	Duration     string     `json:"duration"`
	Explainers   []string   `json:"explainers"`
	Renderers    []string   `json:"renderers"`
	FileHashes   []FileHash `json:"file_hashes,omitempty"`
	FileCount    int        `json:"file_count"`
	HarnessCount int        `json:"harness_count"`
	ProofCount   int        `json:"proof_count"`
	InsightCount int        `json:"insight_count"`
}

// FileHash records the content hash of an analyzed file.
type FileHash struct {
	Path    string `json:"path"`
	Hash    string `json:"hash"`
	ModTime string `json:"mod_time,omitempty"`
}

// Entry is a flattened view of one harness with its containing file, used by
// store queries.
type Entry struct {
	File    string           `json:"file"`
	Harness harness.Metadata `json:"harness"`
}
