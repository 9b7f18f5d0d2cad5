package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/jaisnan/kanimcp/internal/config"
	"github.com/jaisnan/kanimcp/internal/engine"
	"github.com/jaisnan/kanimcp/internal/explainers/hygiene"
	"github.com/jaisnan/kanimcp/internal/explainers/unsupported"
	"github.com/jaisnan/kanimcp/internal/renderers/outline"
	"github.com/jaisnan/kanimcp/internal/report"
	"github.com/jaisnan/kanimcp/internal/server"
)

func main() {
	// Ensure log output goes to stderr, never stdout (MCP uses stdout for JSON-RPC)
	log.SetOutput(os.Stderr)

	ctx := context.Background()

	// Check for --scan flag
	scanMode := false
	cfgPath := "kanimcp.yaml"
	for _, arg := range os.Args[1:] {
		if arg == "--scan" {
			scanMode = true
		} else {
			cfgPath = arg
		}
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		// If config file doesn't exist, use defaults
		fmt.Fprintf(os.Stderr, "warning: %v, using defaults\n", err)
		cfg = config.Default()
	}

	eng, err := engine.New(cfg)
	if err != nil {
		log.Fatalf("failed to create engine: %v", err)
	}

	// Register explainers
	eng.RegisterExplainer(unsupported.New())
	eng.RegisterExplainer(hygiene.New())

	// Register renderers
	eng.RegisterRenderer(outline.New(cfg.Output.MaxOutlineChars))

	// One-shot scan mode
	if scanMode {
		repoPath, err := filepath.Abs(cfg.Repo)
		if err != nil {
			log.Fatalf("failed to resolve repo path: %v", err)
		}

		snapshot, err := eng.Scan(ctx, repoPath)
		if err != nil {
			log.Fatalf("scan failed: %v", err)
		}

		if err := eng.WriteArtifacts(repoPath); err != nil {
			log.Fatalf("failed to write artifacts: %v", err)
		}

		fmt.Fprintf(os.Stderr, "\nScan complete:\n")
		fmt.Fprintf(os.Stderr, "  Repository:  %s\n", snapshot.Meta.RepoPath)
		fmt.Fprintf(os.Stderr, "  Files:       %d\n", snapshot.Meta.FileCount)
		fmt.Fprintf(os.Stderr, "  Harnesses:   %d\n", snapshot.Meta.HarnessCount)
		fmt.Fprintf(os.Stderr, "  Proofs:      %d\n", snapshot.Meta.ProofCount)
		fmt.Fprintf(os.Stderr, "  Insights:    %d\n", snapshot.Meta.InsightCount)
		fmt.Fprintf(os.Stderr, "  Duration:    %s\n", snapshot.Meta.Duration)
		fmt.Fprintf(os.Stderr, "  Output:      %s\n", filepath.Join(snapshot.Meta.RepoPath, cfg.Output.Dir))
		os.Exit(0)
	}

	// Auto-load an existing snapshot if available, so queries work immediately
	// without requiring a scan_workspace call first.
	if repoPath, err := filepath.Abs(cfg.Repo); err == nil {
		reportsPath := filepath.Join(repoPath, cfg.Output.Dir, "harnesses.jsonl")
		if _, err := os.Stat(reportsPath); err == nil {
			log.Printf("[main] loading existing snapshot from %s", reportsPath)
			if err := eng.Store().ReadJSONLFile(reportsPath); err != nil {
				log.Printf("[main] warning: failed to load existing reports: %v", err)
			} else {
				eng.SetSnapshot(&report.Snapshot{
					Meta: report.SnapshotMeta{RepoPath: repoPath},
				})
				log.Printf("[main] loaded %d file reports from existing snapshot", eng.Store().Count())
			}
		}
	}

	// MCP server mode (default)
	srv, err := server.New(eng, cfg)
	if err != nil {
		log.Fatalf("failed to create server: %v", err)
	}

	if err := srv.Run(ctx); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
