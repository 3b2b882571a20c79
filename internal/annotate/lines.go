package annotate

import "strings"

// SplitLines splits text into lines that keep their own terminators.
// The final line has no terminator when the text does not end with one.
// JoinLines(SplitLines(s)) == s for every s.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := make([]string, 0, strings.Count(text, "\n")+1)
	for len(text) > 0 {
		i := strings.IndexByte(text, '\n')
		if i < 0 {
			lines = append(lines, text)
			break
		}
		lines = append(lines, text[:i+1])
		text = text[i+1:]
	}
	return lines
}

// JoinLines concatenates lines produced by SplitLines or Rewrite.
func JoinLines(lines []string) string {
	var b strings.Builder
	n := 0
	for _, l := range lines {
		n += len(l)
	}
	b.Grow(n)
	for _, l := range lines {
		b.WriteString(l)
	}
	return b.String()
}

// lineEnding returns the terminator of line, or "\n" if it has none.
func lineEnding(line string) string {
	switch {
	case strings.HasSuffix(line, "\r\n"):
		return "\r\n"
	case strings.HasSuffix(line, "\n"):
		return "\n"
	default:
		return "\n"
	}
}

// blockEnding returns the terminator for a block inserted above lines[i].
// An unterminated last line borrows the terminator of the line before it.
func blockEnding(lines []string, i int) string {
	if i > 0 && !strings.HasSuffix(lines[i], "\n") {
		return lineEnding(lines[i-1])
	}
	return lineEnding(lines[i])
}
