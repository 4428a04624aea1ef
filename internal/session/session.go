// Package session wires one document to its renderer, section manager and
// preview cache.
package session

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/livetemplate/scrollfollow"
	"github.com/livetemplate/scrollfollow/internal/cache"
	"github.com/livetemplate/scrollfollow/internal/config"
	"github.com/livetemplate/scrollfollow/internal/document"
	"github.com/livetemplate/scrollfollow/internal/preview"
	"github.com/livetemplate/scrollfollow/pkg/eventmanager"
)

const namespace = "session"

// Session owns the change, rebuild, render and match chain for one document.
// Updates are serialized so a rebuild never interleaves with another.
type Session struct {
	mu       sync.Mutex
	cfg      *config.Config
	events   *eventmanager.EventManager
	doc      *document.Document
	renderer *preview.Renderer
	sections *scrollfollow.SectionManager
	cache    *cache.MemoryCache // nil when caching is disabled
	lastErr  error
}

// Open loads path and builds the initial sections and preview. A section
// mismatch in the initial render is logged, not returned.
func Open(path string, cfg *config.Config) (*Session, error) {
	s, err := newSession(cfg, func(em *eventmanager.EventManager) *document.Document {
		return document.NewFile(path, em)
	})
	if err != nil {
		return nil, err
	}

	var ce *scrollfollow.ConsistencyError
	if err := s.Reload(); err != nil && !errors.As(err, &ce) {
		s.Close()
		return nil, err
	}
	return s, nil
}

// NewFromText creates a session over an in-memory document.
func NewFromText(text string, cfg *config.Config) (*Session, error) {
	s, err := newSession(cfg, document.New)
	if err != nil {
		return nil, err
	}
	_ = s.Update(text)
	return s, nil
}

func newSession(cfg *config.Config, newDoc func(*eventmanager.EventManager) *document.Document) (*Session, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	events, err := eventmanager.NewWithTypes(scrollfollow.EventTypes...)
	if err != nil {
		return nil, err
	}

	s := &Session{cfg: cfg, events: events, doc: newDoc(events)}
	s.renderer = preview.New(s.doc, events, preview.Options{
		GFM:       cfg.Preview.GFM,
		Unsafe:    cfg.Preview.Unsafe,
		HardWraps: cfg.Preview.HardWraps,
	})
	s.sections = scrollfollow.New(s.doc, s.renderer)

	// Sections must be rebuilt before the renderer runs, so attach order matters.
	if err := s.sections.Attach(events); err != nil {
		return nil, err
	}
	if err := s.renderer.Attach(events); err != nil {
		return nil, err
	}
	if err := events.Listen(scrollfollow.EventPreviewRenderAfter+"."+namespace, s.onRenderAfter); err != nil {
		return nil, fmt.Errorf("attach session: %w", err)
	}
	if err := events.Listen(scrollfollow.EventHTMLConverted+"."+namespace, s.wrapHTML); err != nil {
		return nil, fmt.Errorf("attach session: %w", err)
	}

	if ttl := cfg.Cache.GetTTL(); ttl > 0 {
		s.cache = cache.NewMemoryCache(ttl)
	}
	return s, nil
}

// onRenderAfter logs each completed render in verbose mode.
func (s *Session) onRenderAfter(args ...any) any {
	if !config.IsVerbose() {
		return nil
	}
	if rd, ok := args[0].(*scrollfollow.Rendered); ok {
		log.Printf("[Session] Rendered revision %d (%d blocks)", rd.Revision, rd.Document.ChildCount())
	}
	return nil
}

func (s *Session) wrapHTML(args ...any) any {
	html, _ := args[0].(string)
	return fmt.Sprintf("<article class=\"markdown-body\" data-revision=\"%v\">\n%s</article>\n", args[1], html)
}

// Update replaces the document text and runs the full chain.
func (s *Session) Update(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record(s.doc.SetValue(text))
}

// Reload rereads the document file and runs the full chain.
func (s *Session) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record(s.doc.Reload())
}

func (s *Session) record(err error) error {
	s.lastErr = err
	if err == nil {
		return nil
	}

	var ce *scrollfollow.ConsistencyError
	if errors.As(err, &ce) {
		ce.WithFile(s.doc.Path())
		if config.IsVerbose() {
			log.Printf("[Session] %s", ce.Format())
		} else {
			log.Printf("[Session] %v", ce)
		}
		return err
	}
	log.Printf("[Session] Update failed: %v", err)
	return err
}

// Err returns the error of the most recent update, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Path returns the document file path, empty for in-memory sessions.
func (s *Session) Path() string {
	return s.doc.Path()
}

// Revision returns the revision the current section list was built from.
func (s *Session) Revision() uint64 {
	return s.sections.Revision()
}

// Lines returns the document lines.
func (s *Session) Lines() []string {
	return s.doc.Lines()
}

// Sections returns the current section list.
func (s *Session) Sections() []*scrollfollow.Section {
	return s.sections.SectionList()
}

// SectionByLine returns the section owning line and its index, or nil and -1.
func (s *Session) SectionByLine(line int) (*scrollfollow.Section, int) {
	return s.sections.Lookup(line)
}

// HTML returns the rendered preview for the current revision.
func (s *Session) HTML() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := cache.Key(s.doc.Path(), s.sections.Revision())
	if s.cache != nil {
		if entry, ok := s.cache.Get(key); ok {
			return entry.HTML, nil
		}
	}

	html, err := s.renderer.HTML()
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(key, html, s.cfg.Cache.GetTTL())
	}
	return html, nil
}

// Events exposes the session's event registry for extra hooks.
func (s *Session) Events() *eventmanager.EventManager {
	return s.events
}

// Close releases background resources.
func (s *Session) Close() {
	s.sections.Detach(s.events)
	s.renderer.Detach(s.events)
	s.events.RemoveEventHandler("." + namespace)
	if s.cache != nil {
		s.cache.Stop()
	}
}
