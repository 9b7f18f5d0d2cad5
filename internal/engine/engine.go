package engine

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jaisnan/kanimcp/internal/config"
	"github.com/jaisnan/kanimcp/internal/explainers"
	"github.com/jaisnan/kanimcp/internal/harness"
	"github.com/jaisnan/kanimcp/internal/renderers"
	"github.com/jaisnan/kanimcp/internal/report"
	"github.com/jaisnan/kanimcp/internal/syntax"
)

// Engine orchestrates the workspace scan pipeline: walk the repo, analyze
// each Rust file for harnesses, run explainers, render artifacts.
type Engine struct {
	cfg        *config.Config
	explainers *explainers.Registry
	renderers  *renderers.Registry
	store      *report.Store
	snapshot   *report.Snapshot
	prevHashes map[string]string // file -> sha256 hash from previous run
}

// New creates a new Engine with the given config.
// Explainers and renderers must be registered after creation.
func New(cfg *config.Config) (*Engine, error) {
	return &Engine{
		cfg:        cfg,
		explainers: explainers.NewRegistry(),
		renderers:  renderers.NewRegistry(),
		store:      report.NewStore(),
	}, nil
}

// RegisterExplainer adds an explainer to the engine.
func (e *Engine) RegisterExplainer(exp explainers.Explainer) {
	e.explainers.Register(exp)
}

// RegisterRenderer adds a renderer to the engine.
func (e *Engine) RegisterRenderer(rnd renderers.Renderer) {
	e.renderers.Register(rnd)
}

// Store returns the report store.
func (e *Engine) Store() *report.Store {
	return e.store
}

// Snapshot returns the last generated snapshot, or nil.
func (e *Engine) Snapshot() *report.Snapshot {
	return e.snapshot
}

// SetSnapshot sets the current snapshot (used when reloading from disk).
func (e *Engine) SetSnapshot(s *report.Snapshot) {
	e.snapshot = s
}

// Config returns the engine config.
func (e *Engine) Config() *config.Config {
	return e.cfg
}

// Scan runs the full pipeline: walk -> analyze -> explain -> render.
func (e *Engine) Scan(ctx context.Context, repoPath string) (*report.Snapshot, error) {
	start := time.Now()

	if repoPath == "" {
		repoPath = e.cfg.Repo
	}

	absRepo, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, fmt.Errorf("resolving repo path: %w", err)
	}

	// Hashes from the previous run, for change reporting
	e.loadPreviousHashes(absRepo)

	// Clear previous state
	e.store.Clear()

	// 1. Walk repository and collect Rust files
	files, err := e.walkRepo(absRepo)
	if err != nil {
		return nil, fmt.Errorf("walking repo: %w", err)
	}
	log.Printf("[engine] found %d Rust files in %s", len(files), absRepo)

	// 2. Compute hashes for the snapshot meta
	currentHashes, changedFiles := e.filterChangedFiles(absRepo, files)
	log.Printf("[engine] %d of %d files changed since last run", len(changedFiles), len(files))

	// 3. Analyze each file
	if err := e.analyzeFiles(ctx, absRepo, files); err != nil {
		return nil, fmt.Errorf("analysis: %w", err)
	}
	log.Printf("[engine] found %d harnesses (%d proofs) in %d files",
		e.store.HarnessCount(), e.store.ProofCount(), e.store.Count())

	// 4. Run explainers
	allInsights, usedExplainers, err := e.runExplainers(ctx)
	if err != nil {
		return nil, fmt.Errorf("explanation: %w", err)
	}
	log.Printf("[engine] produced %d insights using %d explainers", len(allInsights), len(usedExplainers))

	// 5. Build file hashes for the snapshot meta
	var fileHashes []report.FileHash
	for path, hash := range currentHashes {
		fileHashes = append(fileHashes, report.FileHash{
			Path:    path,
			Hash:    hash,
			ModTime: fileModTime(filepath.Join(absRepo, path)),
		})
	}

	// 6. Build snapshot
	duration := time.Since(start)
	snapshot := &report.Snapshot{
		Meta: report.SnapshotMeta{
			RepoPath:     absRepo,
			GeneratedAt:  time.Now().UTC().Format(time.RFC3339),
			Duration:     duration.String(),
			Explainers:   usedExplainers,
			Renderers:    []string{},
			FileHashes:   fileHashes,
			FileCount:    e.store.Count(),
			HarnessCount: e.store.HarnessCount(),
			ProofCount:   e.store.ProofCount(),
			InsightCount: len(allInsights),
		},
		Files:    e.store.All(),
		Insights: allInsights,
	}

	// 7. Run renderers
	usedRenderers, err := e.runRenderers(ctx, snapshot)
	if err != nil {
		return nil, fmt.Errorf("rendering: %w", err)
	}
	snapshot.Meta.Renderers = usedRenderers
	log.Printf("[engine] produced %d artifacts using %d renderers", len(snapshot.Artifacts), len(usedRenderers))

	e.snapshot = snapshot
	log.Printf("[engine] scan finished in %s", duration)
	return snapshot, nil
}

// analyzeFiles runs the harness analyzer over every collected file. Files
// without any proof marker are skipped cheaply; per-file failures are logged
// and skipped, except a missing grammar which aborts the scan.
func (e *Engine) analyzeFiles(ctx context.Context, repoPath string, files []string) error {
	for _, relFile := range files {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		absFile := filepath.Join(repoPath, relFile)
		src, err := os.ReadFile(absFile)
		if err != nil {
			log.Printf("[engine] error reading %s: %v", relFile, err)
			continue
		}

		hasPlayback := strings.Contains(string(src), "kani_concrete_playback")
		if !harness.CheckFileForProofs(src) && !hasPlayback {
			continue
		}

		metadata, err := harness.BuildMetadataMap(src)
		if err != nil {
			if errors.Is(err, syntax.ErrParserUnavailable) {
				return err
			}
			log.Printf("[engine] error analyzing %s: %v", relFile, err)
			continue
		}

		playback, err := harness.ExtractGeneratedTests(src)
		if err != nil {
			log.Printf("[engine] error locating playback tests in %s: %v", relFile, err)
		}

		harnesses := metadata.All()
		if len(harnesses) == 0 && len(playback) == 0 {
			continue
		}

		totalProofs := 0
		if len(harnesses) > 0 {
			totalProofs = harnesses[0].TotalProofs
		}

		e.store.Add(report.FileReport{
			Path:          relFile,
			TotalProofs:   totalProofs,
			Harnesses:     harnesses,
			PlaybackTests: playback,
		})
	}
	return nil
}

// walkRepo collects all Rust files in the repo, applying ignore patterns.
func (e *Engine) walkRepo(repoPath string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(repoPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(repoPath, path)
		if err != nil {
			return err
		}

		// Skip ignored paths
		if e.isIgnored(relPath, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.IsDir() && strings.HasSuffix(relPath, ".rs") {
			files = append(files, relPath)
		}
		return nil
	})
	return files, err
}

// isIgnored checks whether a path matches any ignore pattern.
func (e *Engine) isIgnored(relPath string, isDir bool) bool {
	// Normalize to forward slashes for matching
	relPath = filepath.ToSlash(relPath)

	for _, pattern := range e.cfg.Ignore {
		// Handle directory-only patterns
		if strings.HasSuffix(pattern, "/**") {
			dirPrefix := strings.TrimSuffix(pattern, "/**")
			if relPath == dirPrefix || strings.HasPrefix(relPath, dirPrefix+"/") {
				return true
			}
		}

		// Standard glob match
		matched, err := filepath.Match(pattern, relPath)
		if err == nil && matched {
			return true
		}

		// Also try matching just the filename for patterns like **/*.rs
		if strings.HasPrefix(pattern, "**/") {
			subPattern := strings.TrimPrefix(pattern, "**/")
			matched, err = filepath.Match(subPattern, filepath.Base(relPath))
			if err == nil && matched {
				return true
			}
			// Also try the full relative path
			matched, err = filepath.Match(subPattern, relPath)
			if err == nil && matched {
				return true
			}
		}
	}
	return false
}

// runExplainers runs all enabled explainers.
func (e *Engine) runExplainers(ctx context.Context) ([]report.Insight, []string, error) {
	var allInsights []report.Insight
	var usedNames []string

	for _, exp := range e.explainers.All() {
		if !e.cfg.IsExplainerEnabled(exp.Name()) {
			continue
		}

		log.Printf("[engine] running explainer: %s", exp.Name())
		insights, err := exp.Explain(ctx, e.store)
		if err != nil {
			log.Printf("[engine] explainer %s error: %v", exp.Name(), err)
			continue
		}

		allInsights = append(allInsights, insights...)
		usedNames = append(usedNames, exp.Name())
		log.Printf("[engine] explainer %s: produced %d insights", exp.Name(), len(insights))
	}

	return allInsights, usedNames, nil
}

// runRenderers runs all enabled renderers.
func (e *Engine) runRenderers(ctx context.Context, snapshot *report.Snapshot) ([]string, error) {
	var usedNames []string

	for _, rnd := range e.renderers.All() {
		if !e.cfg.IsRendererEnabled(rnd.Name()) {
			continue
		}

		log.Printf("[engine] running renderer: %s", rnd.Name())
		artifacts, err := rnd.Render(ctx, snapshot)
		if err != nil {
			log.Printf("[engine] renderer %s error: %v", rnd.Name(), err)
			continue
		}

		snapshot.Artifacts = append(snapshot.Artifacts, artifacts...)
		usedNames = append(usedNames, rnd.Name())
	}

	return usedNames, nil
}

// WriteArtifacts writes all snapshot artifacts to the output directory,
// including harnesses.jsonl, insights.json, and snapshot.meta.json.
func (e *Engine) WriteArtifacts(repoPath string) error {
	if e.snapshot == nil {
		return fmt.Errorf("no snapshot generated")
	}

	outDir := filepath.Join(repoPath, e.cfg.Output.Dir)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	// Write renderer artifacts (e.g. outline.md)
	for _, a := range e.snapshot.Artifacts {
		path := filepath.Join(outDir, a.Name)
		if err := os.WriteFile(path, a.Content, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", a.Name, err)
		}
		log.Printf("[engine] wrote %s (%d bytes)", path, len(a.Content))
	}

	// Write harnesses.jsonl
	reportsPath := filepath.Join(outDir, "harnesses.jsonl")
	if err := e.store.WriteJSONLFile(reportsPath); err != nil {
		return fmt.Errorf("writing harnesses.jsonl: %w", err)
	}
	log.Printf("[engine] wrote %s", reportsPath)

	// Write insights.json
	insightsJSON, err := json.MarshalIndent(e.snapshot.Insights, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling insights: %w", err)
	}
	insightsPath := filepath.Join(outDir, "insights.json")
	if err := os.WriteFile(insightsPath, insightsJSON, 0o644); err != nil {
		return fmt.Errorf("writing insights.json: %w", err)
	}
	log.Printf("[engine] wrote %s (%d bytes)", insightsPath, len(insightsJSON))

	// Write snapshot.meta.json
	metaJSON, err := json.MarshalIndent(e.snapshot.Meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling meta: %w", err)
	}
	metaPath := filepath.Join(outDir, "snapshot.meta.json")
	if err := os.WriteFile(metaPath, metaJSON, 0o644); err != nil {
		return fmt.Errorf("writing snapshot.meta.json: %w", err)
	}
	log.Printf("[engine] wrote %s (%d bytes)", metaPath, len(metaJSON))

	return nil
}

// GetArtifact returns the content of a named artifact, or the generated JSONL/JSON files.
func (e *Engine) GetArtifact(name string) ([]byte, error) {
	if e.snapshot == nil {
		return nil, fmt.Errorf("no snapshot generated")
	}

	switch name {
	case "harnesses.jsonl":
		var buf bytes.Buffer
		if err := e.store.WriteJSONL(&buf); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case "insights.json":
		return json.MarshalIndent(e.snapshot.Insights, "", "  ")
	case "snapshot.meta.json":
		return json.MarshalIndent(e.snapshot.Meta, "", "  ")
	default:
		for _, a := range e.snapshot.Artifacts {
			if a.Name == name {
				return a.Content, nil
			}
		}
		return nil, fmt.Errorf("artifact %q not found", name)
	}
}

// loadPreviousHashes reads file hashes from the previous snapshot.meta.json.
func (e *Engine) loadPreviousHashes(repoPath string) {
	metaPath := filepath.Join(repoPath, e.cfg.Output.Dir, "snapshot.meta.json")
	data, err := os.ReadFile(metaPath)
	if err != nil {
		e.prevHashes = nil
		return
	}

	var meta report.SnapshotMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		e.prevHashes = nil
		return
	}

	e.prevHashes = make(map[string]string, len(meta.FileHashes))
	for _, fh := range meta.FileHashes {
		e.prevHashes[fh.Path] = fh.Hash
	}
	log.Printf("[engine] loaded %d file hashes from previous snapshot", len(e.prevHashes))
}

// filterChangedFiles computes SHA-256 hashes for all files and returns
// the current hash map and the list of files that have changed since the previous run.
func (e *Engine) filterChangedFiles(repoPath string, files []string) (map[string]string, []string) {
	currentHashes := make(map[string]string, len(files))
	var changed []string

	for _, relFile := range files {
		absFile := filepath.Join(repoPath, relFile)
		data, err := os.ReadFile(absFile)
		if err != nil {
			// Can't hash, treat as changed
			changed = append(changed, relFile)
			continue
		}

		h := sha256.Sum256(data)
		hash := hex.EncodeToString(h[:])
		currentHashes[relFile] = hash

		if prevHash, ok := e.prevHashes[relFile]; !ok || prevHash != hash {
			changed = append(changed, relFile)
		}
	}

	return currentHashes, changed
}

// fileModTime returns the modification time of a file as an RFC3339 string.
func fileModTime(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return ""
	}
	return info.ModTime().UTC().Format(time.RFC3339)
}
