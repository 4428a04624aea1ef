package scrollfollow

import (
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
)

// KindSectionBlock is the NodeKind of SectionBlock.
var KindSectionBlock = ast.NewNodeKind("SectionBlock")

// SectionClassPrefix prefixes the per-index class of a section container.
const SectionClassPrefix = "content-id-"

// SectionClass returns the marker class for section index i.
func SectionClass(i int) string {
	return fmt.Sprintf("%s%d", SectionClassPrefix, i)
}

// SectionBlock wraps the top-level rendered blocks that belong to one section.
type SectionBlock struct {
	ast.BaseBlock
	Index int
}

// NewSectionBlock returns a container for section index i, tagged with its
// marker class.
func NewSectionBlock(i int) *SectionBlock {
	n := &SectionBlock{Index: i}
	n.SetAttributeString("class", []byte(SectionClass(i)))
	return n
}

// Kind implements ast.Node.Kind.
func (n *SectionBlock) Kind() ast.NodeKind {
	return KindSectionBlock
}

// Dump implements ast.Node.Dump.
func (n *SectionBlock) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{
		"Index": fmt.Sprintf("%d", n.Index),
	}, nil)
}

// sectionBlockRenderer renders a SectionBlock as a div carrying its class.
type sectionBlockRenderer struct{}

// RegisterFuncs implements renderer.NodeRenderer.
func (r *sectionBlockRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindSectionBlock, r.renderSectionBlock)
}

func (r *sectionBlockRenderer) renderSectionBlock(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		_, _ = w.WriteString("<div")
		html.RenderAttributes(w, node, html.GlobalAttributeFilter)
		_, _ = w.WriteString(">\n")
	} else {
		_, _ = w.WriteString("</div>\n")
	}
	return ast.WalkContinue, nil
}

type sectionExtension struct{}

// SectionExtension teaches a goldmark renderer to write SectionBlock nodes.
var SectionExtension goldmark.Extender = &sectionExtension{}

// Extend implements goldmark.Extender.
func (e *sectionExtension) Extend(m goldmark.Markdown) {
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(&sectionBlockRenderer{}, 500),
	))
}
