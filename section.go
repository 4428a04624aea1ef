package scrollfollow

import (
	"sort"

	"github.com/yuin/goldmark/ast"
)

// Section is a contiguous, inclusive range of source lines that starts at a
// heading (or standalone image) boundary.
type Section struct {
	Start int
	End   int

	// PreviewElement is the rendered group for this section, a *SectionBlock
	// once SectionMatch has run for the current list. It is nil before that.
	PreviewElement ast.Node
}

// Contains reports whether line falls inside the section range.
func (s *Section) Contains(line int) bool {
	return line >= s.Start && line <= s.End
}

// LineSource is the editor's line buffer.
type LineSource interface {
	LineCount() int
	Line(i int) string
	// Revision increases on every document change.
	Revision() uint64
}

func sourceLines(src LineSource) []string {
	n := src.LineCount()
	lines := make([]string, n)
	for i := 0; i < n; i++ {
		lines[i] = src.Line(i)
	}
	return lines
}

// BuildSections partitions lines into sections. The result is empty only when
// every line is blank.
func BuildSections(lines []string) []*Section {
	states := ClassifyLines(lines)
	if len(states) == 0 {
		return nil
	}

	first := states[0].Line
	sections := []*Section{{Start: first, End: first}}
	for _, ls := range states {
		// The default section already starts on the first content line.
		if !ls.Section || ls.Line == first {
			continue
		}
		sections[len(sections)-1].End = ls.Line - 1
		sections = append(sections, &Section{Start: ls.Line, End: ls.Line})
	}
	sections[len(sections)-1].End = len(lines) - 1

	return sections
}

// findSection returns the section owning line. Lines past the end clamp to the
// last section. Lines before the first section return nil.
func findSection(sections []*Section, line int) *Section {
	if i := sectionIndex(sections, line); i >= 0 {
		return sections[i]
	}
	return nil
}

// sectionIndex is findSection returning a position in sections, or -1.
func sectionIndex(sections []*Section, line int) int {
	if len(sections) == 0 || line < sections[0].Start {
		return -1
	}

	i := sort.Search(len(sections), func(i int) bool {
		return sections[i].End >= line
	})
	if i == len(sections) {
		return len(sections) - 1
	}
	return i
}
