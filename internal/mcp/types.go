package mcp

import "github.com/mvp-joe/docfill/internal/annotate"

// AnnotateRequest is the input of the docfill_annotate tool.
// Exactly one of Content and Path is set.
type AnnotateRequest struct {
	Content string `json:"content,omitempty"`
	Path    string `json:"path,omitempty"`  // relative to the project root
	Write   bool   `json:"write,omitempty"` // path mode only: write the result back
}

// AnnotateResponse is the output of the docfill_annotate tool.
type AnnotateResponse struct {
	Path     string   `json:"path,omitempty"`
	Content  string   `json:"content"`
	Inserted []Member `json:"inserted"`
	Total    int      `json:"total"`
	Written  bool     `json:"written"`
}

// CheckRequest is the input of the docfill_check tool.
type CheckRequest struct {
	Content string `json:"content,omitempty"`
	Path    string `json:"path,omitempty"`
}

// CheckResponse is the output of the docfill_check tool.
type CheckResponse struct {
	Path     string   `json:"path,omitempty"`
	Findings []Member `json:"findings"`
	Total    int      `json:"total"`
}

// Member describes one undocumented declaration.
type Member struct {
	Kind    string `json:"kind"`
	Name    string `json:"name"`
	Line    int    `json:"line"` // one-based, in the input text
	Summary string `json:"summary"`
}

func toMembers(candidates []annotate.Candidate) []Member {
	members := make([]Member, 0, len(candidates))
	for _, c := range candidates {
		members = append(members, Member{
			Kind:    c.Kind.String(),
			Name:    c.Name,
			Line:    c.Line + 1,
			Summary: annotate.Summary(c),
		})
	}
	return members
}
