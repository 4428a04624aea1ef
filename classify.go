package scrollfollow

import (
	"regexp"
	"strings"
)

// LineKind is the role a content line plays in the scan.
type LineKind int

const (
	KindBlank LineKind = iota
	KindParagraph
	KindHeading
	KindSetextUnderline
	KindFence
	KindCode
	KindTable
	KindImage
	KindListItem
	KindListBody
	KindQuote
	KindThematicBreak
)

var kindNames = [...]string{
	KindBlank:           "blank",
	KindParagraph:       "paragraph",
	KindHeading:         "heading",
	KindSetextUnderline: "underline",
	KindFence:           "fence",
	KindCode:            "code",
	KindTable:           "table",
	KindImage:           "image",
	KindListItem:        "list",
	KindListBody:        "list-body",
	KindQuote:           "quote",
	KindThematicBreak:   "break",
}

func (k LineKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// LineState is the classification of one content line.
type LineState struct {
	Line    int
	Kind    LineKind
	Section bool // the line opens a new section
}

var (
	atxHeaderPattern   = regexp.MustCompile(`^ {0,3}#{1,6}[ \t]+\S`)
	setextPattern      = regexp.MustCompile(`^ {0,3}(=+|-+)\s*$`)
	fencePattern       = regexp.MustCompile("^ {0,3}(`{3,}|~{3,})")
	tableRowPattern    = regexp.MustCompile(`(^\s*\|)|(\|\s*$)`)
	tableAlignPattern  = regexp.MustCompile(`^\s*\|?\s*:?-+:?\s*(\|\s*:?-+:?\s*)*\|?\s*$`)
	listItemPattern    = regexp.MustCompile(`^ {0,3}([*+-]|\d{1,9}[.)])([ \t]|$)`)
	quotePattern       = regexp.MustCompile(`^ {0,3}>`)
	breakPattern       = regexp.MustCompile(`^ {0,3}(([*][ \t]*){3,}|([-][ \t]*){3,}|([_][ \t]*){3,})$`)
	standaloneImagePat = regexp.MustCompile(`^!\[[^\]]*\]\([^)]*\)(\s*<br\s*/?>)*$`)
)

// scanState is threaded through the forward pass. It is a value: step returns
// the state for the next line and never mutates the receiver.
type scanState struct {
	started    bool
	inCode     bool
	fenceChar  byte
	fenceLen   int
	inTable    bool
	inList     bool
	prev       LineKind
	afterImage bool
}

// stepResult is what one line contributes to the scan.
type stepResult struct {
	kind         LineKind
	section      bool
	markPrevious bool // setext underline: the previous line is the boundary
}

// ClassifyLines classifies every line from the first non-blank line on. The
// returned states are ordered and LineState.Line holds the absolute index;
// leading blank lines get no state at all.
func ClassifyLines(lines []string) []LineState {
	var (
		st  scanState
		out []LineState
	)
	for i, line := range lines {
		if !st.started {
			if isBlank(line) {
				continue
			}
			st.started = true
			st.prev = KindBlank
		}

		next, hasNext := "", i+1 < len(lines)
		if hasNext {
			next = lines[i+1]
		}

		var res stepResult
		st, res = st.step(line, next, hasNext, len(out) == 0)
		if res.markPrevious && len(out) > 0 {
			out[len(out)-1].Section = true
		}
		out = append(out, LineState{Line: i, Kind: res.kind, Section: res.section})
	}
	return out
}

// EachLineState walks the source and reports, for every content line, whether
// it opens a section. Lines before the first content line are not reported.
func EachLineState(src LineSource, fn func(isSection bool, line int)) {
	for _, ls := range ClassifyLines(sourceLines(src)) {
		fn(ls.Section, ls.Line)
	}
}

func (s scanState) step(line, next string, hasNext, first bool) (scanState, stepResult) {
	if s.inCode {
		if s.closesFence(line) {
			s.inCode = false
			return s.with(KindFence), stepResult{kind: KindFence}
		}
		return s.with(KindCode), stepResult{kind: KindCode}
	}

	if isBlank(line) {
		s.inTable = false
		return s.with(KindBlank), stepResult{kind: KindBlank}
	}

	// Every non-blank line outside code consumes a pending after-image flag.
	tail := s.afterImage
	s.afterImage = false

	if s.inTable {
		if tableRowPattern.MatchString(line) {
			return s.with(KindTable), stepResult{kind: KindTable, section: tail}
		}
		s.inTable = false
	}

	// Indented code cannot interrupt a paragraph, so it only starts after a
	// block that has ended.
	if !s.inList && leadingSpaces(line) >= 4 && s.prev.endsBlock() {
		return s.with(KindCode), stepResult{kind: KindCode, section: tail}
	}

	if m := fencePattern.FindStringSubmatch(line); m != nil {
		s.inCode = true
		s.fenceChar = m[1][0]
		s.fenceLen = len(m[1])
		return s.with(KindFence), stepResult{kind: KindFence, section: tail}
	}

	if atxHeaderPattern.MatchString(line) {
		s.inList = false
		return s.with(KindHeading), stepResult{kind: KindHeading, section: true}
	}

	if setextPattern.MatchString(line) && s.prev == KindParagraph {
		return s.with(KindSetextUnderline), stepResult{kind: KindSetextUnderline, markPrevious: true}
	}

	if hasNext && tableRowPattern.MatchString(line) && isTableAligner(next) {
		s.inTable = true
		return s.with(KindTable), stepResult{kind: KindTable, section: tail}
	}

	if breakPattern.MatchString(line) {
		return s.with(KindThematicBreak), stepResult{kind: KindThematicBreak, section: tail}
	}

	if listItemPattern.MatchString(line) {
		s.inList = true
		return s.with(KindListItem), stepResult{kind: KindListItem, section: tail}
	}

	if quotePattern.MatchString(line) || (s.prev == KindQuote && !interruptsParagraph(line)) {
		return s.with(KindQuote), stepResult{kind: KindQuote, section: tail}
	}

	indent := leadingSpaces(line)
	if s.inList {
		if indent > 0 || s.prev != KindBlank {
			return s.with(KindListBody), stepResult{kind: KindListBody, section: tail}
		}
		s.inList = false
	}

	if indent <= 3 && isStandaloneImage(line) && (first || s.prev == KindBlank) {
		s.afterImage = true
		return s.with(KindImage), stepResult{kind: KindImage, section: true}
	}

	return s.with(KindParagraph), stepResult{kind: KindParagraph, section: tail}
}

// endsBlock reports whether a line of this kind leaves no paragraph open for
// the next line to continue.
func (k LineKind) endsBlock() bool {
	switch k {
	case KindBlank, KindHeading, KindSetextUnderline, KindFence, KindCode, KindThematicBreak:
		return true
	}
	return false
}

func (s scanState) with(kind LineKind) scanState {
	s.prev = kind
	return s
}

func (s scanState) closesFence(line string) bool {
	if leadingSpaces(line) > 3 {
		return false
	}
	trimmed := strings.TrimSpace(line)
	if len(trimmed) < s.fenceLen {
		return false
	}
	for i := 0; i < len(trimmed); i++ {
		if trimmed[i] != s.fenceChar {
			return false
		}
	}
	return true
}

// interruptsParagraph reports whether the line would start a new block rather
// than continue the previous one lazily.
func interruptsParagraph(line string) bool {
	return atxHeaderPattern.MatchString(line) ||
		fencePattern.MatchString(line) ||
		breakPattern.MatchString(line) ||
		listItemPattern.MatchString(line)
}

func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}

func isTableAligner(line string) bool {
	return strings.Contains(line, "|") && tableAlignPattern.MatchString(line)
}

func isStandaloneImage(line string) bool {
	return standaloneImagePat.MatchString(strings.TrimSpace(line))
}

func leadingSpaces(line string) int {
	n := 0
	for _, r := range line {
		switch r {
		case ' ':
			n++
		case '\t':
			n += 4 - n%4
		default:
			return n
		}
	}
	return n
}
