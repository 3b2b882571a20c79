package annotate

import (
	"regexp"
	"strings"
)

// Kind identifies what a public declaration line declares.
type Kind int

const (
	// KindNone means the line is left untouched.
	KindNone Kind = iota
	KindConstructor
	KindMethod
	KindProperty
)

func (k Kind) String() string {
	switch k {
	case KindConstructor:
		return "constructor"
	case KindMethod:
		return "method"
	case KindProperty:
		return "property"
	default:
		return "none"
	}
}

// Candidate is the classification result for a single original line.
type Candidate struct {
	Kind      Kind   `json:"kind"`
	Name      string `json:"name"`
	Line      int    `json:"line"` // zero-based index into the original lines
	Indent    int    `json:"indent"`
	ClassName string `json:"class_name,omitempty"` // constructors only
	HasSetter bool   `json:"has_setter,omitempty"` // properties only
}

// publicPrefix is the visibility keyword every candidate line starts with.
const publicPrefix = "public "

// classLookback bounds how far above a constructor the enclosing class is searched.
const classLookback = 20

var (
	constructorRe  = regexp.MustCompile(`public\s+(\w+)\s*\(`)
	classDeclRe    = regexp.MustCompile(`(?:public|internal)\s+(?:sealed\s+)?class\s+(\w+)`)
	asyncMethodRe  = regexp.MustCompile(`public\s+(?:async\s+)?Task<?([^>]*?)>?\s+(\w+)`)
	propertyGateRe = regexp.MustCompile(`public\s+\w+(<[^>]+>)?\s+\w+\s*\{\s*get`)
	propertyNameRe = regexp.MustCompile(`public\s+\w+(?:<[^>]+>)?\s+(\w+)`)
	setterRe       = regexp.MustCompile(`\bset\b`)
)

// isPublicDecl reports whether line starts a publicly visible declaration.
func isPublicDecl(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), publicPrefix)
}

// Classify decides what the public declaration at lines[index] declares.
//
// Gates are tried in order: constructor, async method, property. Once a gate
// accepts the line, a failed extraction yields KindNone rather than trying
// the next gate. Callers are expected to have checked HasPrecedingDoc.
func Classify(lines []string, index int) Candidate {
	line := lines[index]
	trimmed := strings.TrimSpace(line)
	c := Candidate{Kind: KindNone, Line: index, Indent: Indent(line)}
	if !strings.HasPrefix(trimmed, publicPrefix) {
		return c
	}

	switch {
	case constructorRe.MatchString(trimmed) && !strings.Contains(trimmed, "class "):
		className, ok := ResolveClass(lines, index)
		if !ok {
			return c
		}
		m := constructorRe.FindStringSubmatch(trimmed)
		if m == nil || m[1] != className {
			return c
		}
		c.Kind = KindConstructor
		c.Name = m[1]
		c.ClassName = className

	case strings.Contains(trimmed, "Task") && strings.Contains(trimmed, "("):
		name, ok := methodName(trimmed)
		if !ok {
			return c
		}
		c.Kind = KindMethod
		c.Name = name

	case propertyGateRe.MatchString(trimmed):
		m := propertyNameRe.FindStringSubmatch(trimmed)
		if m == nil {
			return c
		}
		c.Kind = KindProperty
		c.Name = m[1]
		c.HasSetter = hasSetter(trimmed)
	}
	return c
}

// methodName extracts the declared name of an async method.
//
// Group 2 is used whenever it participated in the match, group 1 otherwise.
// Known issue: for nested generic results such as Task<Dictionary<string, int>>
// this picks up a type argument ("int") instead of the method name.
func methodName(trimmed string) (string, bool) {
	idx := asyncMethodRe.FindStringSubmatchIndex(trimmed)
	if idx == nil {
		return "", false
	}
	if idx[4] >= 0 {
		return trimmed[idx[4]:idx[5]], true
	}
	if idx[2] >= 0 {
		return trimmed[idx[2]:idx[3]], true
	}
	return "", false
}

// hasSetter reports whether the accessor region of a property line contains
// the set keyword. Identifiers such as _settings or reset do not count.
func hasSetter(trimmed string) bool {
	brace := strings.IndexByte(trimmed, '{')
	if brace < 0 {
		return false
	}
	return setterRe.MatchString(trimmed[brace:])
}

// ResolveClass finds the nearest class declaration above lines[index].
// At most classLookback preceding lines are examined.
func ResolveClass(lines []string, index int) (string, bool) {
	stop := max(0, index-classLookback)
	for i := index - 1; i >= stop; i-- {
		if m := classDeclRe.FindStringSubmatch(lines[i]); m != nil {
			return m[1], true
		}
	}
	return "", false
}
