package insight

import "strings"

// SectionTitlePrefix opens the first line of a titled block.
const SectionTitlePrefix = "## "

// Section is one part of a narrative. Title is empty for text that precedes the
// first titled block.
type Section struct {
	Title string `json:"title,omitempty"`
	Body  string `json:"body"`
}

// ParseSections splits narrative text on blank lines. A block whose first line starts
// with "## " opens a new section; other blocks belong to the section before them.
func ParseSections(text string) []Section {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var (
		out    []Section
		blocks []string
		cur    []string
	)
	flush := func() {
		if len(cur) > 0 {
			blocks = append(blocks, strings.Join(cur, "\n"))
			cur = nil
		}
	}
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		cur = append(cur, strings.TrimRight(line, " \t"))
	}
	flush()

	for _, b := range blocks {
		first, rest, _ := strings.Cut(b, "\n")
		if strings.HasPrefix(first, SectionTitlePrefix) {
			out = append(out, Section{
				Title: strings.TrimSpace(strings.TrimPrefix(first, SectionTitlePrefix)),
				Body:  rest,
			})
			continue
		}
		if len(out) == 0 {
			out = append(out, Section{})
		}
		last := &out[len(out)-1]
		if last.Body == "" {
			last.Body = b
		} else {
			last.Body += "\n\n" + b
		}
	}
	return out
}

// JoinSections renders sections back into the delimited text form.
func JoinSections(sections []Section) string {
	parts := make([]string, 0, len(sections))
	for _, s := range sections {
		switch {
		case s.Title == "":
			parts = append(parts, s.Body)
		case s.Body == "":
			parts = append(parts, SectionTitlePrefix+s.Title)
		default:
			parts = append(parts, SectionTitlePrefix+s.Title+"\n"+s.Body)
		}
	}
	return strings.Join(parts, "\n\n")
}
