package scrollfollow

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoRender is returned by SectionMatch before the renderer has
	// produced any tree.
	ErrNoRender = errors.New("no rendered preview available")

	// ErrStaleRender is returned when the rendered tree and the section list
	// were produced from different document revisions.
	ErrStaleRender = errors.New("rendered preview does not match section list revision")
)

// ConsistencyError reports that the rendered tree and the source classifier
// disagree on how many sections the document has.
type ConsistencyError struct {
	File     string // Source file path, if known
	Revision uint64 // Document revision both sides were built from
	Sections int    // Sections built from the source lines
	Groups   int    // Groups found in the rendered tree
	Line     int    // Start line of the first section without a group, -1 if unknown
	Lines    []int  // Start line of each section
	Hint     string // Helpful suggestion
}

// Error implements the error interface.
func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("section mismatch at revision %d: %d source sections, %d preview groups",
		e.Revision, e.Sections, e.Groups)
}

// Format returns a readable report of the mismatch.
func (e *ConsistencyError) Format() string {
	var b strings.Builder

	if e.File != "" {
		b.WriteString(fmt.Sprintf("❌ Section mismatch in %s\n\n", e.File))
	} else {
		b.WriteString("❌ Section mismatch\n\n")
	}

	b.WriteString(fmt.Sprintf("Revision %d: %d source sections, %d preview groups\n",
		e.Revision, e.Sections, e.Groups))

	if e.Line >= 0 && len(e.Lines) > 0 {
		b.WriteString(fmt.Sprintf("First unmatched section starts at line %d\n", e.Line+1))
	}

	if len(e.Lines) > 0 {
		starts := make([]string, len(e.Lines))
		for i, l := range e.Lines {
			starts[i] = fmt.Sprintf("%d", l+1)
		}
		b.WriteString(fmt.Sprintf("Section starts (1-indexed): %s\n", strings.Join(starts, ", ")))
	}

	if e.Hint != "" {
		b.WriteString(fmt.Sprintf("\n💡 Tip: %s\n", e.Hint))
	}

	return b.String()
}

// newConsistencyError builds the error for sections the preview could not
// pair with a group, starting at line.
func newConsistencyError(revision uint64, sections []*Section, groups, line int, hint string) *ConsistencyError {
	lines := make([]int, len(sections))
	for i, s := range sections {
		lines[i] = s.Start
	}
	return &ConsistencyError{
		Revision: revision,
		Sections: len(sections),
		Groups:   groups,
		Line:     line,
		Lines:    lines,
		Hint:     hint,
	}
}

// WithFile attaches the source file path to the error.
func (e *ConsistencyError) WithFile(file string) *ConsistencyError {
	e.File = file
	return e
}
