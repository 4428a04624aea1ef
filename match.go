package scrollfollow

import (
	"sort"
	"strings"

	"github.com/yuin/goldmark/ast"
)

// Rendered is the output of one preview render pass.
type Rendered struct {
	Document ast.Node // goldmark document node
	Source   []byte   // markdown the document was parsed from
	Revision uint64   // document revision of Source
}

// RenderSource exposes the renderer's most recent output.
type RenderSource interface {
	Rendered() *Rendered
}

// blockGroup is the run of top-level blocks owned by one source section.
type blockGroup struct {
	start  int // first line of the owning section
	blocks []ast.Node
}

// GroupBlocks partitions the top-level blocks of a rendered document by the
// section boundaries the line classifier finds in the same source. Each block
// joins the section owning the line it starts on, so a section whose lines the
// renderer folded into an earlier block gets no group of its own.
func GroupBlocks(r *Rendered) [][]ast.Node {
	groups := groupBlocks(r, newLineIndex(r.Source))
	if len(groups) == 0 {
		return nil
	}
	out := make([][]ast.Node, len(groups))
	for i, g := range groups {
		out[i] = g.blocks
	}
	return out
}

func groupBlocks(r *Rendered, x *lineIndex) []blockGroup {
	blocks := topLevelBlocks(r.Document)
	owners := BuildSections(x.lines)
	if len(blocks) == 0 || len(owners) == 0 {
		return nil
	}

	var (
		groups []blockGroup
		cursor = -1
	)
	for _, b := range blocks {
		first, last := x.blockSpan(b, cursor)
		if last > cursor {
			cursor = last
		}

		owner := findSection(owners, first)
		if owner == nil {
			owner = owners[0]
		}
		if n := len(groups); n > 0 && groups[n-1].start >= owner.Start {
			groups[n-1].blocks = append(groups[n-1].blocks, b)
			continue
		}
		groups = append(groups, blockGroup{start: owner.Start, blocks: []ast.Node{b}})
	}
	return groups
}

// MatchSections wraps each rendered group in a SectionBlock and attaches it to
// the section with the same index. The tree is left untouched when any
// section has no group of its own.
func MatchSections(sections []*Section, r *Rendered) error {
	x := newLineIndex(r.Source)
	groups := groupBlocks(r, x)
	if at := divergence(sections, groups); at >= 0 {
		return newConsistencyError(r.Revision, sections, len(groups), at, x.hint(at))
	}

	doc := r.Document
	doc.RemoveChildren(doc)
	for i, group := range groups {
		wrapper := NewSectionBlock(i)
		for _, b := range group.blocks {
			wrapper.AppendChild(wrapper, b)
		}
		doc.AppendChild(doc, wrapper)
		sections[i].PreviewElement = wrapper
	}
	return nil
}

// divergence returns the start line of the first section that has no matching
// group, or -1 when sections and groups pair up one to one.
func divergence(sections []*Section, groups []blockGroup) int {
	for i := 0; i < len(sections) || i < len(groups); i++ {
		switch {
		case i >= len(groups):
			return sections[i].Start
		case i >= len(sections):
			return groups[i].start
		case sections[i].Start != groups[i].start:
			return min(sections[i].Start, groups[i].start)
		}
	}
	return -1
}

// topLevelBlocks lists the document's direct children, looking through
// SectionBlock wrappers left by an earlier match.
func topLevelBlocks(doc ast.Node) []ast.Node {
	var blocks []ast.Node
	for c := doc.FirstChild(); c != nil; c = c.NextSibling() {
		if _, ok := c.(*SectionBlock); ok {
			for gc := c.FirstChild(); gc != nil; gc = gc.NextSibling() {
				blocks = append(blocks, gc)
			}
			continue
		}
		blocks = append(blocks, c)
	}
	return blocks
}

// lineIndex maps byte offsets of the rendered source back to line numbers.
type lineIndex struct {
	lines  []string
	starts []int
	kinds  []LineKind // classifier kind per line, KindBlank before content
}

func newLineIndex(source []byte) *lineIndex {
	lines := strings.Split(string(source), "\n")
	starts := make([]int, len(lines))
	off := 0
	for i, l := range lines {
		starts[i] = off
		off += len(l) + 1
	}

	kinds := make([]LineKind, len(lines))
	for _, ls := range ClassifyLines(lines) {
		kinds[ls.Line] = ls.Kind
	}
	return &lineIndex{lines: lines, starts: starts, kinds: kinds}
}

func (x *lineIndex) lineOf(offset int) int {
	return sort.Search(len(x.starts), func(i int) bool {
		return x.starts[i] > offset
	}) - 1
}

func (x *lineIndex) kind(line int) LineKind {
	if line < 0 || line >= len(x.kinds) {
		return KindBlank
	}
	return x.kinds[line]
}

// nextContent returns the first non-blank line after line, or -1.
func (x *lineIndex) nextContent(line int) int {
	for i := line + 1; i < len(x.lines); i++ {
		if !isBlank(x.lines[i]) {
			return i
		}
	}
	return -1
}

// blockSpan returns the first and last source lines of a top-level block.
// Blocks that carry no source segments, such as thematic breaks or empty
// headings, sit on the first non-blank line after cursor.
func (x *lineIndex) blockSpan(n ast.Node, cursor int) (int, int) {
	first, last := x.segmentSpan(n)

	if fc, ok := n.(*ast.FencedCodeBlock); ok {
		switch {
		case fc.Info != nil:
			first = x.lineOf(fc.Info.Segment.Start)
		case first >= 0:
			first--
		}
		if last < first {
			last = first
		}
	}
	if first < 0 {
		first = x.nextContent(cursor)
		last = first
	}
	if first < 0 {
		return -1, cursor
	}

	// Setext underlines and closing fences carry no segment of their own.
	switch x.kind(last + 1) {
	case KindSetextUnderline:
		last++
	case KindFence:
		if _, ok := n.(*ast.FencedCodeBlock); ok {
			last++
		}
	}
	return first, last
}

// segmentSpan returns the lines of the first and last source segments found
// in the block's subtree, or -1, -1 when there are none.
func (x *lineIndex) segmentSpan(n ast.Node) (int, int) {
	lo, hi := -1, -1
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || c.Type() != ast.TypeBlock {
			return ast.WalkContinue, nil
		}
		lines := c.Lines()
		if lines.Len() == 0 {
			return ast.WalkContinue, nil
		}
		start := lines.At(0).Start
		stop := lines.At(lines.Len() - 1).Stop
		if stop > start {
			stop--
		}
		if lo < 0 || start < lo {
			lo = start
		}
		if stop > hi {
			hi = stop
		}
		return ast.WalkContinue, nil
	})
	if lo < 0 {
		return -1, -1
	}
	return x.lineOf(lo), x.lineOf(hi)
}

// hint explains why the section starting at line got no rendered block.
func (x *lineIndex) hint(line int) string {
	switch {
	case line < 0 || line >= len(x.lines):
		return "the document changed between classification and rendering; render it again"
	case x.kind(line) == KindParagraph && x.kind(line+1) == KindSetextUnderline:
		return "a setext underline below a multi-line paragraph turns the whole paragraph into one heading; add a blank line above the heading text"
	case line > 0 && x.kind(line-1) == KindImage:
		return "text directly below a standalone image renders in the image's paragraph; add a blank line after the image"
	case x.kind(line) == KindHeading:
		return "the heading renders inside the block above it; add a blank line before it"
	default:
		return "this line starts a section but the preview folds it into a neighbouring block; separate it with a blank line"
	}
}
