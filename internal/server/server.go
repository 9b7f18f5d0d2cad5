package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/jaisnan/kanimcp/internal/config"
	"github.com/jaisnan/kanimcp/internal/engine"
	"github.com/jaisnan/kanimcp/internal/harness"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server wraps the MCP server and connects it to the scan engine.
type Server struct {
	mcp *mcp.Server
	eng *engine.Engine
	cfg *config.Config
}

// New creates a new MCP server wired to the given engine.
func New(eng *engine.Engine, cfg *config.Config) (*Server, error) {
	s := &Server{
		eng: eng,
		cfg: cfg,
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    "kanimcp",
		Version: "0.1.0",
	}, nil)

	s.mcp = mcpServer
	s.registerResources()
	s.registerTools()

	return s, nil
}

// Run starts the MCP server on the stdio transport.
func (s *Server) Run(ctx context.Context) error {
	log.Println("[server] starting MCP server on stdio transport")
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

// registerResources adds MCP resources for snapshot artifacts.
func (s *Server) registerResources() {
	// Resource: harness outline (the main human/LLM-readable summary)
	s.mcp.AddResource(&mcp.Resource{
		URI:         "kani://snapshot/outline",
		Name:        "Harness Outline",
		Description: "Markdown outline of every Kani harness in the workspace with lines, kinds, and attributes",
		MIMEType:    "text/markdown",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		content, err := s.eng.GetArtifact("outline.md")
		if err != nil {
			return nil, fmt.Errorf("no snapshot available: %w (run scan_workspace first)", err)
		}
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{
				{URI: req.Params.URI, Text: string(content), MIMEType: "text/markdown"},
			},
		}, nil
	})

	// Resource: harness reports
	s.mcp.AddResource(&mcp.Resource{
		URI:         "kani://snapshot/harnesses",
		Name:        "Harness Reports",
		Description: "Per-file harness metadata in JSONL format",
		MIMEType:    "application/jsonl",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		content, err := s.eng.GetArtifact("harnesses.jsonl")
		if err != nil {
			return nil, fmt.Errorf("no snapshot available: %w (run scan_workspace first)", err)
		}
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{
				{URI: req.Params.URI, Text: string(content), MIMEType: "application/jsonl"},
			},
		}, nil
	})

	// Resource: insights
	s.mcp.AddResource(&mcp.Resource{
		URI:         "kani://snapshot/insights",
		Name:        "Harness Insights",
		Description: "Hygiene findings and unsupported-attribute warnings",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		content, err := s.eng.GetArtifact("insights.json")
		if err != nil {
			return nil, fmt.Errorf("no snapshot available: %w (run scan_workspace first)", err)
		}
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{
				{URI: req.Params.URI, Text: string(content), MIMEType: "application/json"},
			},
		}, nil
	})

	// Resource: meta
	s.mcp.AddResource(&mcp.Resource{
		URI:         "kani://snapshot/meta",
		Name:        "Snapshot Metadata",
		Description: "Metadata about the last workspace scan",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		content, err := s.eng.GetArtifact("snapshot.meta.json")
		if err != nil {
			return nil, fmt.Errorf("no snapshot available: %w (run scan_workspace first)", err)
		}
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{
				{URI: req.Params.URI, Text: string(content), MIMEType: "application/json"},
			},
		}, nil
	})
}

// registerTools adds MCP tools for scanning and harness querying.
func (s *Server) registerTools() {
	// Tool: scan_workspace
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "scan_workspace",
		Description: "Scan a Rust workspace for Kani verification harnesses. Parses every Rust file, extracts harness metadata, derives insights, and produces a markdown outline.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args scanWorkspaceArgs) (*mcp.CallToolResult, any, error) {
		repoPath := args.RepoPath
		if repoPath == "" {
			repoPath = s.cfg.Repo
		}

		absRepo, err := filepath.Abs(repoPath)
		if err != nil {
			return errorResult(fmt.Sprintf("invalid repo path: %v", err)), nil, nil
		}

		snapshot, err := s.eng.Scan(ctx, absRepo)
		if err != nil {
			return errorResult(fmt.Sprintf("scan failed: %v", err)), nil, nil
		}

		// Write artifacts to disk
		if err := s.eng.WriteArtifacts(absRepo); err != nil {
			log.Printf("[server] warning: failed to write artifacts: %v", err)
		}

		summary := fmt.Sprintf(
			"Scan complete.\n\n"+
				"- Repository: %s\n"+
				"- Files with harnesses: %d\n"+
				"- Harnesses: %d\n"+
				"- Proofs: %d\n"+
				"- Insights: %d\n"+
				"- Duration: %s\n\n"+
				"Use the kani://snapshot/outline resource to read the harness outline.",
			snapshot.Meta.RepoPath,
			snapshot.Meta.FileCount,
			snapshot.Meta.HarnessCount,
			snapshot.Meta.ProofCount,
			snapshot.Meta.InsightCount,
			snapshot.Meta.Duration,
		)

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: summary},
			},
		}, nil, nil
	})

	// Tool: query_harnesses
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "query_harnesses",
		Description: "Query discovered harnesses by file, name, or kind. Returns matching harnesses as JSON.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args queryHarnessesArgs) (*mcp.CallToolResult, any, error) {
		store := s.eng.Store()
		if store.Count() == 0 {
			return errorResult("No harnesses available. Run scan_workspace first."), nil, nil
		}

		results := store.Query(args.File, args.Name, harness.Kind(args.Kind))

		// Limit output
		truncated := false
		if len(results) > 100 {
			results = results[:100]
			truncated = true
		}

		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return errorResult(fmt.Sprintf("failed to marshal results: %v", err)), nil, nil
		}

		text := string(data)
		if truncated {
			text += fmt.Sprintf("\n\n... (showing 100 of %d harnesses, refine your query)", store.HarnessCount())
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: text},
			},
		}, nil, nil
	})

	// Tool: check_file
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "check_file",
		Description: "Cheaply check whether a Rust file contains any Kani proof marker or harness invocation, without full analysis.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args checkFileArgs) (*mcp.CallToolResult, any, error) {
		if args.Path == "" {
			return errorResult("path is required"), nil, nil
		}

		absFile := args.Path
		if !filepath.IsAbs(absFile) {
			absFile = filepath.Join(s.cfg.Repo, args.Path)
		}

		src, err := os.ReadFile(absFile)
		if err != nil {
			return errorResult(fmt.Sprintf("could not read %s: %v", args.Path, err)), nil, nil
		}

		text := fmt.Sprintf("%s: no proof markers found", args.Path)
		if harness.CheckFileForProofs(src) {
			text = fmt.Sprintf("%s: contains proof markers", args.Path)
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: text},
			},
		}, nil, nil
	})

	// Tool: list_playback_tests
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_playback_tests",
		Description: "List generated concrete-playback unit tests found in the last scan, grouped by originating harness.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args listPlaybackArgs) (*mcp.CallToolResult, any, error) {
		store := s.eng.Store()
		if store.Count() == 0 {
			return errorResult("No harnesses available. Run scan_workspace first."), nil, nil
		}

		var sb strings.Builder
		total := 0
		for _, fr := range store.All() {
			for _, pt := range fr.PlaybackTests {
				if args.Harness != "" && pt.Harness != args.Harness {
					continue
				}
				sb.WriteString(fmt.Sprintf("%s:%d %s (replays %s)\n", fr.Path, pt.Line, pt.Name, pt.Harness))
				total++
			}
		}

		if total == 0 {
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					&mcp.TextContent{Text: "No playback tests found."},
				},
			}, nil, nil
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: sb.String()},
			},
		}, nil, nil
	})

	// Tool: show_harness
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "show_harness",
		Description: "Show source code for a harness found in the last scan. Returns the actual implementation with surrounding context lines.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args showHarnessArgs) (*mcp.CallToolResult, any, error) {
		snapshot := s.eng.Snapshot()
		if snapshot == nil {
			return errorResult("No snapshot available. Run scan_workspace first."), nil, nil
		}

		store := s.eng.Store()
		if store.Count() == 0 {
			return errorResult("No harnesses available. Run scan_workspace first."), nil, nil
		}

		if args.Name == "" {
			return errorResult("name is required"), nil, nil
		}

		results := store.Query("", args.Name, "")
		if len(results) == 0 {
			return errorResult(fmt.Sprintf("No harnesses matching %q", args.Name)), nil, nil
		}

		contextLines := args.ContextLines
		if contextLines <= 0 {
			contextLines = 30
		}

		// Limit to 5 results
		if len(results) > 5 {
			results = results[:5]
		}

		repoPath := snapshot.Meta.RepoPath
		var sb strings.Builder

		for i, entry := range results {
			if i > 0 {
				sb.WriteString("\n---\n\n")
			}

			h := entry.Harness
			sb.WriteString(fmt.Sprintf("### %s\n", h.Name))
			sb.WriteString(fmt.Sprintf("File: %s  Line: %d  Kind: %s\n\n", entry.File, h.StartLine, h.Kind))

			absFile := filepath.Join(repoPath, entry.File)
			source, err := readSourceWindow(absFile, h.StartLine, contextLines)
			if err != nil {
				sb.WriteString(fmt.Sprintf("_Could not read source: %v_\n", err))
				continue
			}

			sb.WriteString(fmt.Sprintf("```rust\n%s\n```\n", source))
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: sb.String()},
			},
		}, nil, nil
	})
}

// scanWorkspaceArgs are the arguments for the scan_workspace tool.
type scanWorkspaceArgs struct {
	RepoPath string `json:"repo_path,omitempty" jsonschema:"Path to the Rust workspace to scan (defaults to the configured repo)"`
}

// queryHarnessesArgs are the arguments for the query_harnesses tool.
type queryHarnessesArgs struct {
	File string `json:"file,omitempty" jsonschema:"Exact file path filter (relative to the repo root)"`
	Name string `json:"name,omitempty" jsonschema:"Harness name filter (substring match)"`
	Kind string `json:"kind,omitempty" jsonschema:"Harness kind filter: proof or unit_test"`
}

// checkFileArgs are the arguments for the check_file tool.
type checkFileArgs struct {
	Path string `json:"path" jsonschema:"required,Rust file to check (absolute or relative to the repo root)"`
}

// listPlaybackArgs are the arguments for the list_playback_tests tool.
type listPlaybackArgs struct {
	Harness string `json:"harness,omitempty" jsonschema:"Only list playback tests replaying this harness"`
}

// showHarnessArgs are the arguments for the show_harness tool.
type showHarnessArgs struct {
	Name         string `json:"name" jsonschema:"required,Harness name to look up (substring match)"`
	ContextLines int    `json:"context_lines,omitempty" jsonschema:"Number of source lines to show around the harness (default 30)"`
}

// readSourceWindow reads lines from a file centered around the given line number.
func readSourceWindow(absFile string, centerLine, contextLines int) (string, error) {
	data, err := os.ReadFile(absFile)
	if err != nil {
		return "", err
	}

	lines := strings.Split(string(data), "\n")
	startLine := centerLine - contextLines/2
	if startLine < 1 {
		startLine = 1
	}
	endLine := centerLine + contextLines/2
	if endLine > len(lines) {
		endLine = len(lines)
	}

	var sb strings.Builder
	for i := startLine; i <= endLine; i++ {
		sb.WriteString(fmt.Sprintf("%4d│ %s\n", i, lines[i-1]))
	}
	return sb.String(), nil
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
		IsError: true,
	}
}
