package mcp

import (
	"context"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mvp-joe/docfill/internal/annotate"
	"github.com/mvp-joe/docfill/internal/discovery"
	mcputils "github.com/mvp-joe/docfill/internal/mcp-utils"
	"github.com/mvp-joe/docfill/internal/runner"
)

// toolHandler matches server.ToolHandlerFunc.
type toolHandler = func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

// project is what the tools need to resolve and rewrite files.
type project struct {
	root      string
	discovery *discovery.FileDiscovery
	runner    *runner.Runner
}

// AddAnnotateTool registers the docfill_annotate tool with an MCP server.
func AddAnnotateTool(s *server.MCPServer, p *project) {
	tool := mcp.NewTool(
		"docfill_annotate",
		mcp.WithDescription("Insert /// <summary> blocks above public constructors, async Task methods and properties that have none. Pass either source text in 'content' or a project-relative 'path'. Returns the annotated text and the members that received a block."),
		mcp.WithString("content",
			mcp.Description("Source text to annotate")),
		mcp.WithString("path",
			mcp.Description("Source file path relative to the project root (alternative to content)")),
		mcp.WithBoolean("write",
			mcp.Description("With 'path': write the annotated text back to the file (default: false)")),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
	)

	s.AddTool(tool, createAnnotateHandler(p))
}

// AddCheckTool registers the docfill_check tool with an MCP server.
func AddCheckTool(s *server.MCPServer, p *project) {
	tool := mcp.NewTool(
		"docfill_check",
		mcp.WithDescription("List public constructors, async Task methods and properties that have no preceding /// documentation block. Pass either source text in 'content' or a project-relative 'path'."),
		mcp.WithString("content",
			mcp.Description("Source text to check")),
		mcp.WithString("path",
			mcp.Description("Source file path relative to the project root (alternative to content)")),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	s.AddTool(tool, createCheckHandler(p))
}

// createAnnotateHandler creates the handler function for docfill_annotate.
func createAnnotateHandler(p *project) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if _, ok := request.GetRawArguments().(map[string]any); !ok {
			return mcp.NewToolResultError("invalid arguments format"), nil
		}

		var req AnnotateRequest
		if err := mcputils.CoerceBindArguments(request, &req); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments: %v", err)), nil
		}
		if errResult := validateSource(req.Content, req.Path); errResult != nil {
			return errResult, nil
		}
		if req.Write && req.Path == "" {
			return mcp.NewToolResultError("write requires path"), nil
		}

		if req.Path == "" {
			text, inserted := annotate.AnnotateText(req.Content)
			return marshalToolResponse(&AnnotateResponse{
				Content:  text,
				Inserted: toMembers(inserted),
				Total:    len(inserted),
			})
		}

		abs, content, err := p.readSource(req.Path)
		if err != nil {
			if isUserError(err) {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return nil, err
		}

		text, inserted := annotate.AnnotateText(content)
		resp := &AnnotateResponse{
			Path:     req.Path,
			Content:  text,
			Inserted: toMembers(inserted),
			Total:    len(inserted),
		}

		if req.Write && len(inserted) > 0 {
			if _, err := p.runner.Run(ctx, []string{abs}); err != nil {
				return nil, fmt.Errorf("failed to write %s: %w", req.Path, err)
			}
			resp.Written = true
		}

		return marshalToolResponse(resp)
	}
}

// createCheckHandler creates the handler function for docfill_check.
func createCheckHandler(p *project) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if _, ok := request.GetRawArguments().(map[string]any); !ok {
			return mcp.NewToolResultError("invalid arguments format"), nil
		}

		var req CheckRequest
		if err := mcputils.CoerceBindArguments(request, &req); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments: %v", err)), nil
		}
		if errResult := validateSource(req.Content, req.Path); errResult != nil {
			return errResult, nil
		}

		content := req.Content
		if req.Path != "" {
			var err error
			if _, content, err = p.readSource(req.Path); err != nil {
				if isUserError(err) {
					return mcp.NewToolResultError(err.Error()), nil
				}
				return nil, err
			}
		}

		findings := annotate.Scan(annotate.SplitLines(content))
		return marshalToolResponse(&CheckResponse{
			Path:     req.Path,
			Findings: toMembers(findings),
			Total:    len(findings),
		})
	}
}

// validateSource requires exactly one of content and path.
func validateSource(content, path string) *mcp.CallToolResult {
	switch {
	case content == "" && path == "":
		return mcp.NewToolResultError("either content or path is required")
	case content != "" && path != "":
		return mcp.NewToolResultError("content and path are mutually exclusive")
	}
	return nil
}

// readSource resolves path inside the project and returns its absolute form
// and content. Only regular files the discovery rules select can be read, and
// a symlinked directory may not lead outside the root.
func (p *project) readSource(path string) (string, string, error) {
	abs, err := resolveProjectPath(p.root, path)
	if err != nil {
		return "", "", err
	}
	if !p.discovery.Matches(abs) {
		return "", "", fmt.Errorf("%w: %s", errNotSource, path)
	}

	info, err := os.Lstat(abs)
	if err != nil {
		return "", "", fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return "", "", fmt.Errorf("%w: %s", runner.ErrNotRegular, path)
	}
	if err := checkRealPath(p.root, abs); err != nil {
		return "", "", fmt.Errorf("%w: %s", err, path)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return "", "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return abs, string(data), nil
}
