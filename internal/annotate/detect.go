package annotate

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// DocMarker starts every documentation line.
	DocMarker = "///"

	// AttributeMarker starts an attribute line such as [HttpGet] or [Obsolete("x")].
	AttributeMarker = "["
)

// Indent returns the number of leading whitespace characters in line.
// Line terminators are not counted.
func Indent(line string) int {
	return utf8.RuneCountInString(indentPrefix(line))
}

// indentPrefix returns the leading whitespace of line as written.
func indentPrefix(line string) string {
	rest := strings.TrimLeftFunc(line, isIndentSpace)
	return line[:len(line)-len(rest)]
}

func isIndentSpace(r rune) bool {
	return r != '\n' && r != '\r' && unicode.IsSpace(r)
}

// HasPrecedingDoc reports whether the line at index is already documented.
//
// It walks upward from index-1, skipping blank lines and attribute lines, and
// returns true only if the first other line is a documentation line. Reaching
// the top of the file yields false.
func HasPrecedingDoc(lines []string, index int) bool {
	for i := index - 1; i >= 0; i-- {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, AttributeMarker) {
			continue
		}
		return strings.HasPrefix(trimmed, DocMarker)
	}
	return false
}
