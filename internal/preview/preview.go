// Package preview renders a document to a goldmark tree and HTML.
package preview

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"

	"github.com/livetemplate/scrollfollow"
	"github.com/livetemplate/scrollfollow/pkg/eventmanager"
)

const namespace = "preview"

// Options selects markdown features.
type Options struct {
	GFM       bool
	Unsafe    bool
	HardWraps bool
}

// Snapshotter is the document side of the renderer.
type Snapshotter interface {
	Snapshot() (string, uint64)
}

// Renderer turns the current document text into a goldmark tree.
type Renderer struct {
	mu       sync.RWMutex
	md       goldmark.Markdown
	doc      Snapshotter
	em       *eventmanager.EventManager
	rendered *scrollfollow.Rendered
}

var _ scrollfollow.RenderSource = (*Renderer)(nil)

// New creates a renderer for doc. em may be nil, in which case Render emits
// nothing and HTML skips the conversion hook.
func New(doc Snapshotter, em *eventmanager.EventManager, opts Options) *Renderer {
	return &Renderer{
		md:  newMarkdown(opts),
		doc: doc,
		em:  em,
	}
}

func newMarkdown(opts Options) goldmark.Markdown {
	extensions := []goldmark.Extender{scrollfollow.SectionExtension}
	if opts.GFM {
		extensions = append(extensions, extension.GFM)
	}

	var rendererOpts []renderer.Option
	if opts.Unsafe {
		rendererOpts = append(rendererOpts, html.WithUnsafe())
	}
	if opts.HardWraps {
		rendererOpts = append(rendererOpts, html.WithHardWraps())
	}

	return goldmark.New(
		goldmark.WithExtensions(extensions...),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(rendererOpts...),
	)
}

// Attach makes the renderer re-render on every document change.
func (r *Renderer) Attach(em *eventmanager.EventManager) error {
	err := em.Listen(scrollfollow.EventChange+"."+namespace, func(args ...any) any {
		if err := r.Render(); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("attach preview: %w", err)
	}
	return nil
}

// Detach removes the handler registered by Attach.
func (r *Renderer) Detach(em *eventmanager.EventManager) {
	em.RemoveEventHandler("." + namespace)
}

// Render parses the current document text, publishes the tree and emits
// previewRenderAfter. Errors returned by its handlers are joined.
func (r *Renderer) Render() error {
	content, revision := r.doc.Snapshot()
	source := []byte(content)
	node := r.md.Parser().Parse(text.NewReader(source))

	rendered := &scrollfollow.Rendered{
		Document: node,
		Source:   source,
		Revision: revision,
	}
	r.mu.Lock()
	r.rendered = rendered
	r.mu.Unlock()

	if r.em == nil {
		return nil
	}
	var errs []error
	for _, res := range r.em.Emit(scrollfollow.EventPreviewRenderAfter, rendered) {
		if err, ok := res.(error); ok {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Rendered implements scrollfollow.RenderSource.
func (r *Renderer) Rendered() *scrollfollow.Rendered {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rendered
}

// HTML renders the latest tree, section wrappers included, and passes the
// result through the HTML conversion hook.
func (r *Renderer) HTML() ([]byte, error) {
	rd := r.Rendered()
	if rd == nil {
		return nil, scrollfollow.ErrNoRender
	}

	var buf bytes.Buffer
	if err := r.md.Renderer().Render(&buf, rd.Source, rd.Document); err != nil {
		return nil, fmt.Errorf("failed to render HTML: %w", err)
	}

	out := buf.String()
	if r.em != nil {
		if s, ok := r.em.EmitReduce(scrollfollow.EventHTMLConverted, out, rd.Revision).(string); ok {
			out = s
		}
	}
	return []byte(out), nil
}
