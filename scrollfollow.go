// Package scrollfollow splits a markdown document into heading-aligned line
// sections and keeps each section matched with its block group in the
// rendered preview, so an editor and its preview can scroll together.
package scrollfollow

import (
	"fmt"
	"sync"

	"github.com/livetemplate/scrollfollow/pkg/eventmanager"
)

// Event types exchanged between the editor components.
const (
	EventChange             = "change"
	EventPreviewRenderAfter = "previewRenderAfter"
	EventHTMLConverted      = "convertorAfterMarkdownToHtmlConverted"
)

// EventTypes lists every event type the components listen to or emit.
var EventTypes = []string{EventChange, EventPreviewRenderAfter, EventHTMLConverted}

const namespace = "scrollFollow"

// SectionManager owns the section list of one document.
type SectionManager struct {
	mu       sync.RWMutex
	src      LineSource
	preview  RenderSource
	sections []*Section
	revision uint64
}

// New creates a SectionManager reading lines from src and rendered trees from
// preview. The preview may be nil when only line queries are needed.
func New(src LineSource, preview RenderSource) *SectionManager {
	return &SectionManager{
		src:     src,
		preview: preview,
	}
}

// MakeSectionList rebuilds the section list from the whole document. The new
// list replaces the old one in a single step.
func (m *SectionManager) MakeSectionList() {
	revision := m.src.Revision()
	sections := BuildSections(sourceLines(m.src))

	m.mu.Lock()
	m.sections = sections
	m.revision = revision
	m.mu.Unlock()
}

// SectionList returns the current section list. A published list is never
// modified afterwards; matching publishes a new one.
func (m *SectionManager) SectionList() []*Section {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sections
}

// Revision returns the document revision the current list was built from.
func (m *SectionManager) Revision() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.revision
}

// SectionByLine returns the section that owns line. A line past the end of
// the document returns the last section; a line inside the leading blank
// lines, or any line of an empty list, returns nil.
func (m *SectionManager) SectionByLine(line int) *Section {
	s, _ := m.Lookup(line)
	return s
}

// SectionIndex is SectionByLine returning the section's position, or -1.
func (m *SectionManager) SectionIndex(line int) int {
	_, i := m.Lookup(line)
	return i
}

// Lookup returns the section owning line and its position, both taken from
// the same list. It returns nil and -1 where SectionByLine returns nil.
func (m *SectionManager) Lookup(line int) (*Section, int) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i := sectionIndex(m.sections, line)
	if i < 0 {
		return nil, -1
	}
	return m.sections[i], i
}

// SectionMatch attaches the groups of the latest rendered tree to the current
// section list. The render must come from the same document revision as the
// list. The matched sections replace the current list as a whole.
func (m *SectionManager) SectionMatch() error {
	if m.preview == nil {
		return ErrNoRender
	}
	r := m.preview.Rendered()
	if r == nil || r.Document == nil {
		return ErrNoRender
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if r.Revision != m.revision {
		return fmt.Errorf("%w: sections at %d, render at %d", ErrStaleRender, m.revision, r.Revision)
	}

	matched := make([]*Section, len(m.sections))
	for i, s := range m.sections {
		matched[i] = &Section{Start: s.Start, End: s.End}
	}
	if err := MatchSections(matched, r); err != nil {
		return err
	}
	m.sections = matched
	return nil
}

// Attach subscribes the manager to document changes and render completion.
// Handlers are namespaced so Detach removes only this manager's handlers.
func (m *SectionManager) Attach(em *eventmanager.EventManager) error {
	if err := em.Listen(EventChange+"."+namespace, func(args ...any) any {
		m.MakeSectionList()
		return nil
	}); err != nil {
		return fmt.Errorf("attach section manager: %w", err)
	}

	if err := em.Listen(EventPreviewRenderAfter+"."+namespace, func(args ...any) any {
		if err := m.SectionMatch(); err != nil {
			return err
		}
		return nil
	}); err != nil {
		return fmt.Errorf("attach section manager: %w", err)
	}
	return nil
}

// Detach removes the handlers registered by Attach.
func (m *SectionManager) Detach(em *eventmanager.EventManager) {
	em.RemoveEventHandler("." + namespace)
}
