package annotate

import "strings"

// VerbPrefix maps a member-name prefix to a canned summary sentence.
type VerbPrefix struct {
	Prefix   string
	Sentence string
}

// VerbPrefixes is checked in order; the first case-sensitive prefix match wins.
var VerbPrefixes = []VerbPrefix{
	{"Get", "Gets the requested data."},
	{"Set", "Sets the requested data."},
	{"Fetch", "Fetches the requested data."},
	{"Parse", "Parses the provided data."},
	{"Build", "Builds the requested object."},
	{"Refresh", "Refreshes the data."},
	{"Search", "Searches for the requested data."},
	{"Lookup", "Looks up the requested data."},
	{"Screen", "Screens for matching items."},
	{"Listen", "Listens for updates."},
	{"Repair", "Repairs the provided data."},
	{"Convert", "Converts the provided data."},
	{"Fix", "Fixes the provided data."},
}

// Summary returns the body sentence for a classified candidate.
// It returns "" for KindNone.
func Summary(c Candidate) string {
	switch c.Kind {
	case KindConstructor:
		return `Initializes a new instance of the <see cref="` + c.ClassName + `"/> class.`
	case KindMethod:
		return methodSummary(c.Name)
	case KindProperty:
		if c.HasSetter {
			return "Gets or sets the " + c.Name + "."
		}
		return "Gets the " + c.Name + "."
	default:
		return ""
	}
}

func methodSummary(name string) string {
	for _, vp := range VerbPrefixes {
		if strings.HasPrefix(name, vp.Prefix) {
			return vp.Sentence
		}
	}
	return "Performs the " + name + " operation."
}

// Block is a three-line documentation comment ready to splice into a file.
type Block struct {
	Open  string
	Body  string
	Close string
}

// NewBlock renders the documentation block for c. Each line starts with
// indent and ends with eol.
func NewBlock(c Candidate, indent, eol string) Block {
	return Block{
		Open:  indent + DocMarker + " <summary>" + eol,
		Body:  indent + DocMarker + " " + Summary(c) + eol,
		Close: indent + DocMarker + " </summary>" + eol,
	}
}

// Lines returns the block in output order.
func (b Block) Lines() []string {
	return []string{b.Open, b.Body, b.Close}
}
