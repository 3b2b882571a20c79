package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/docfill/internal/config"
)

// Test Plan for docfill MCP tools:
// - NewServer registers both tools
// - annotate with content returns annotated text and inserted members
// - annotate on already documented content returns it unchanged with total 0
// - annotate with path reads the file; write=false leaves it untouched
// - annotate with path and write=true rewrites the file
// - check with content or path lists undocumented members with one-based lines
// - validation: non-map arguments, neither/both of content and path, write without path
// - user errors: path outside root, non-source path, missing file
// - symlinked files and symlinked directories leading outside the root are refused,
//   and write=true leaves the link and its target untouched

const widgetSource = `public class Widget
{
    public Widget()
    {
    }

    public int Count { get; }

    public async Task ListenAsync()
    {
    }
}
`

func newTestProject(t *testing.T) (*Server, string) {
	t.Helper()
	root := t.TempDir()
	s, err := NewServer(ServerConfig{ProjectRoot: root, Config: config.Default()})
	require.NoError(t, err)
	return s, root
}

func callTool(t *testing.T, handler toolHandler, args any) *mcp.CallToolResult {
	t.Helper()
	result, err := handler(context.Background(), mcp.CallToolRequest{
		Params: mcp.CallToolParams{Arguments: args},
	})
	require.NoError(t, err, "should not return system error")
	require.NotNil(t, result)
	return result
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok, "should be text content")
	return text.Text
}

func decodeResult[T any](t *testing.T, result *mcp.CallToolResult) T {
	t.Helper()
	require.False(t, result.IsError, resultText(t, result))
	var out T
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &out))
	return out
}

func TestNewServer_RegistersTools(t *testing.T) {
	t.Parallel()

	s, _ := newTestProject(t)
	tools := s.mcp.ListTools()
	assert.Contains(t, tools, "docfill_annotate")
	assert.Contains(t, tools, "docfill_check")
}

func TestAnnotateHandler_Content(t *testing.T) {
	t.Parallel()

	s, _ := newTestProject(t)
	result := callTool(t, createAnnotateHandler(s.project), map[string]any{"content": widgetSource})
	resp := decodeResult[AnnotateResponse](t, result)

	assert.Equal(t, 3, resp.Total)
	assert.False(t, resp.Written)
	require.Len(t, resp.Inserted, 3)
	assert.Equal(t, Member{
		Kind:    "constructor",
		Name:    "Widget",
		Line:    3,
		Summary: `Initializes a new instance of the <see cref="Widget"/> class.`,
	}, resp.Inserted[0])
	assert.Equal(t, "Count", resp.Inserted[1].Name)
	assert.Equal(t, "Gets the Count.", resp.Inserted[1].Summary)
	assert.Equal(t, "Listens for updates.", resp.Inserted[2].Summary)

	assert.Contains(t, resp.Content, "    /// <summary>\n    /// Gets the Count.\n    /// </summary>\n    public int Count { get; }\n")
}

func TestAnnotateHandler_AlreadyDocumented(t *testing.T) {
	t.Parallel()

	s, _ := newTestProject(t)
	handler := createAnnotateHandler(s.project)

	first := decodeResult[AnnotateResponse](t, callTool(t, handler, map[string]any{"content": widgetSource}))
	second := decodeResult[AnnotateResponse](t, callTool(t, handler, map[string]any{"content": first.Content}))

	assert.Equal(t, first.Content, second.Content)
	assert.Equal(t, 0, second.Total)
	assert.Empty(t, second.Inserted)
}

func TestAnnotateHandler_PathWithoutWrite(t *testing.T) {
	t.Parallel()

	s, root := newTestProject(t)
	path := filepath.Join(root, "src", "Widget.cs")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(widgetSource), 0644))

	result := callTool(t, createAnnotateHandler(s.project), map[string]any{"path": "src/Widget.cs"})
	resp := decodeResult[AnnotateResponse](t, result)

	assert.Equal(t, "src/Widget.cs", resp.Path)
	assert.Equal(t, 3, resp.Total)
	assert.False(t, resp.Written)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, widgetSource, string(data))
}

func TestAnnotateHandler_PathWithWrite(t *testing.T) {
	t.Parallel()

	s, root := newTestProject(t)
	path := filepath.Join(root, "Widget.cs")
	require.NoError(t, os.WriteFile(path, []byte(widgetSource), 0644))

	// Clients that stringify every argument are accepted.
	result := callTool(t, createAnnotateHandler(s.project), map[string]any{"path": "Widget.cs", "write": "true"})
	resp := decodeResult[AnnotateResponse](t, result)

	assert.True(t, resp.Written)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, resp.Content, string(data))
}

func TestCheckHandler(t *testing.T) {
	t.Parallel()

	s, root := newTestProject(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "Widget.cs"), []byte(widgetSource), 0644))
	handler := createCheckHandler(s.project)

	t.Run("content", func(t *testing.T) {
		resp := decodeResult[CheckResponse](t, callTool(t, handler, map[string]any{"content": widgetSource}))
		assert.Equal(t, 3, resp.Total)
		assert.Equal(t, []int{3, 7, 9}, []int{resp.Findings[0].Line, resp.Findings[1].Line, resp.Findings[2].Line})
		assert.Equal(t, "method", resp.Findings[2].Kind)
		assert.Equal(t, "ListenAsync", resp.Findings[2].Name)
	})

	t.Run("path", func(t *testing.T) {
		resp := decodeResult[CheckResponse](t, callTool(t, handler, map[string]any{"path": "Widget.cs"}))
		assert.Equal(t, "Widget.cs", resp.Path)
		assert.Equal(t, 3, resp.Total)
	})

	t.Run("clean content", func(t *testing.T) {
		resp := decodeResult[CheckResponse](t, callTool(t, handler, map[string]any{"content": "public class Empty {}\n"}))
		assert.Equal(t, 0, resp.Total)
		assert.NotNil(t, resp.Findings)
	})
}

func TestHandlers_Validation(t *testing.T) {
	t.Parallel()

	s, root := newTestProject(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("public int X { get; }"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "obj"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "obj", "Gen.cs"), []byte(widgetSource), 0644))

	tests := []struct {
		name    string
		handler toolHandler
		args    any
		wantMsg string
	}{
		{"annotate non-map args", createAnnotateHandler(s.project), "invalid string instead of map", "invalid arguments format"},
		{"check non-map args", createCheckHandler(s.project), []any{"x"}, "invalid arguments format"},
		{"annotate no source", createAnnotateHandler(s.project), map[string]any{}, "either content or path is required"},
		{"check both sources", createCheckHandler(s.project), map[string]any{"content": "x", "path": "Widget.cs"}, "mutually exclusive"},
		{"write without path", createAnnotateHandler(s.project), map[string]any{"content": widgetSource, "write": true}, "write requires path"},
		{"outside root", createAnnotateHandler(s.project), map[string]any{"path": "../Widget.cs"}, "outside project root"},
		{"absolute outside root", createCheckHandler(s.project), map[string]any{"path": "/etc/passwd"}, "outside project root"},
		{"not a source file", createCheckHandler(s.project), map[string]any{"path": "notes.txt"}, "not a source file"},
		{"excluded dir", createAnnotateHandler(s.project), map[string]any{"path": "obj/Gen.cs"}, "not a source file"},
		{"missing file", createCheckHandler(s.project), map[string]any{"path": "Missing.cs"}, "Missing.cs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := callTool(t, tt.handler, tt.args)
			assert.True(t, result.IsError, "should be error result")
			assert.Contains(t, resultText(t, result), tt.wantMsg)
		})
	}
}

func TestResolveProjectPath(t *testing.T) {
	t.Parallel()

	root := filepath.Join(string(filepath.Separator), "repo")

	got, err := resolveProjectPath(root, "src/Widget.cs")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "src", "Widget.cs"), got)

	got, err = resolveProjectPath(root, filepath.Join(root, "A.cs"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "A.cs"), got)

	// A sibling directory sharing the prefix is still outside.
	_, err = resolveProjectPath(root, filepath.Join(string(filepath.Separator), "repo-other", "A.cs"))
	assert.ErrorIs(t, err, errOutsideRoot)

	_, err = resolveProjectPath(root, "src/../../etc")
	assert.ErrorIs(t, err, errOutsideRoot)

	// "..name" is a legal file name, not a parent reference.
	_, err = resolveProjectPath(root, "..Widget.cs")
	assert.NoError(t, err)
}

func TestHandlers_Symlinks(t *testing.T) {
	t.Parallel()

	s, root := newTestProject(t)
	outsideDir := t.TempDir()
	secret := filepath.Join(outsideDir, "Secret.cs")
	require.NoError(t, os.WriteFile(secret, []byte(widgetSource), 0644))
	require.NoError(t, os.Symlink(secret, filepath.Join(root, "Link.cs")))
	require.NoError(t, os.Symlink(outsideDir, filepath.Join(root, "Shared")))

	tests := []struct {
		name    string
		handler toolHandler
		args    map[string]any
		wantMsg string
	}{
		{"annotate file link", createAnnotateHandler(s.project), map[string]any{"path": "Link.cs"}, "not a regular file"},
		{"write file link", createAnnotateHandler(s.project), map[string]any{"path": "Link.cs", "write": true}, "not a regular file"},
		{"check file link", createCheckHandler(s.project), map[string]any{"path": "Link.cs"}, "not a regular file"},
		{"directory link", createAnnotateHandler(s.project), map[string]any{"path": "Shared/Secret.cs", "write": true}, "outside project root"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := callTool(t, tt.handler, tt.args)
			assert.True(t, result.IsError, "should be error result")
			assert.Contains(t, resultText(t, result), tt.wantMsg)
		})
	}

	info, err := os.Lstat(filepath.Join(root, "Link.cs"))
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&os.ModeSymlink, "link must survive")

	data, err := os.ReadFile(secret)
	require.NoError(t, err)
	assert.Equal(t, widgetSource, string(data))
}
