// Package annotate inserts placeholder documentation blocks above public
// constructors, async methods, and properties that have none.
//
// The package works on lines of text with bounded regular-expression scans.
// It is not a parser: declarations it does not recognise are left alone.
package annotate

// Result is the outcome of rewriting one file's lines.
type Result struct {
	Lines    []string
	Inserted []Candidate
	Modified bool
}

// BlocksInserted returns the number of documentation blocks added.
func (r Result) BlocksInserted() int {
	return len(r.Inserted)
}

// Rewrite returns lines with a documentation block spliced in above every
// undocumented candidate. The input slice is never modified; every original
// line appears exactly once and in order in the output.
func Rewrite(lines []string) Result {
	out := make([]string, 0, len(lines))
	var inserted []Candidate

	for i, line := range lines {
		if c, ok := candidateAt(lines, i); ok {
			out = append(out, NewBlock(c, indentPrefix(line), blockEnding(lines, i)).Lines()...)
			inserted = append(inserted, c)
		}
		out = append(out, line)
	}

	return Result{
		Lines:    out,
		Inserted: inserted,
		Modified: len(inserted) > 0,
	}
}

// Scan reports the candidates Rewrite would document, without rewriting.
func Scan(lines []string) []Candidate {
	var found []Candidate
	for i := range lines {
		if c, ok := candidateAt(lines, i); ok {
			found = append(found, c)
		}
	}
	return found
}

// AnnotateText is Rewrite over a whole text.
func AnnotateText(text string) (string, []Candidate) {
	res := Rewrite(SplitLines(text))
	if !res.Modified {
		return text, nil
	}
	return JoinLines(res.Lines), res.Inserted
}

func candidateAt(lines []string, i int) (Candidate, bool) {
	if !isPublicDecl(lines[i]) || HasPrecedingDoc(lines, i) {
		return Candidate{}, false
	}
	c := Classify(lines, i)
	return c, c.Kind != KindNone
}
