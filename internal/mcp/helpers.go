package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mvp-joe/docfill/internal/runner"
)

var (
	// errOutsideRoot is returned for paths that escape the project root.
	errOutsideRoot = errors.New("path is outside project root")

	// errNotSource is returned for paths the discovery rules do not select.
	errNotSource = errors.New("path is not a source file")
)

// marshalToolResponse marshals a response object to JSON and returns it as an MCP tool result.
func marshalToolResponse(response any) (*mcp.CallToolResult, error) {
	jsonData, err := json.Marshal(response)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}

// resolveProjectPath turns a client-supplied path into an absolute path
// inside root.
func resolveProjectPath(root, path string) (string, error) {
	var abs string
	if filepath.IsAbs(path) {
		abs = filepath.Clean(path)
	} else {
		abs = filepath.Join(root, path)
	}

	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", errOutsideRoot, path)
	}
	return abs, nil
}

// checkRealPath reports errOutsideRoot when abs, with symlinks resolved, is
// not inside root with symlinks resolved.
func checkRealPath(root, abs string) error {
	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return err
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return err
	}
	if _, err := resolveProjectPath(realRoot, real); err != nil {
		return errOutsideRoot
	}
	return nil
}

// isUserError reports whether err should be shown to the client as a tool
// error rather than failing the call.
func isUserError(err error) bool {
	return errors.Is(err, errOutsideRoot) ||
		errors.Is(err, errNotSource) ||
		errors.Is(err, runner.ErrNotRegular) ||
		errors.Is(err, os.ErrNotExist)
}
