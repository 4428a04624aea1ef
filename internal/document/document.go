// Package document holds the markdown text being edited or watched.
package document

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/livetemplate/scrollfollow"
	"github.com/livetemplate/scrollfollow/pkg/eventmanager"
)

// Document is a line buffer with a revision counter. Every SetValue bumps
// the revision and emits a change event.
type Document struct {
	mu       sync.RWMutex
	path     string
	lines    []string
	revision uint64
	em       *eventmanager.EventManager
}

var _ scrollfollow.LineSource = (*Document)(nil)

// New creates an empty document that announces changes on em. em may be nil.
func New(em *eventmanager.EventManager) *Document {
	return &Document{
		lines: []string{""},
		em:    em,
	}
}

// NewFile creates an empty document bound to path. Call Reload to read it.
func NewFile(path string, em *eventmanager.EventManager) *Document {
	d := New(em)
	d.path = path
	return d
}

// Load reads a markdown file into a new document.
func Load(path string, em *eventmanager.EventManager) (*Document, error) {
	d := NewFile(path, em)
	if err := d.Reload(); err != nil {
		return nil, err
	}
	return d, nil
}

// Reload rereads the document's file.
func (d *Document) Reload() error {
	if d.path == "" {
		return errors.New("document has no file")
	}
	data, err := os.ReadFile(d.path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", d.path, err)
	}
	return d.SetValue(string(data))
}

// Path returns the file the document was loaded from, if any.
func (d *Document) Path() string {
	return d.path
}

// SetValue replaces the whole text and emits a change event. Errors returned
// by change handlers are joined and returned.
func (d *Document) SetValue(text string) error {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	d.mu.Lock()
	d.lines = strings.Split(text, "\n")
	d.revision++
	revision := d.revision
	d.mu.Unlock()

	if d.em == nil {
		return nil
	}
	var errs []error
	for _, res := range d.em.Emit(scrollfollow.EventChange, revision) {
		if err, ok := res.(error); ok {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Value returns the whole text.
func (d *Document) Value() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return strings.Join(d.lines, "\n")
}

// Snapshot returns the text together with the revision it belongs to.
func (d *Document) Snapshot() (string, uint64) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return strings.Join(d.lines, "\n"), d.revision
}

// LineCount implements scrollfollow.LineSource.
func (d *Document) LineCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.lines)
}

// Line implements scrollfollow.LineSource. Out of range lines are empty.
func (d *Document) Line(i int) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if i < 0 || i >= len(d.lines) {
		return ""
	}
	return d.lines[i]
}

// Lines returns a copy of all lines.
func (d *Document) Lines() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]string(nil), d.lines...)
}

// Revision implements scrollfollow.LineSource.
func (d *Document) Revision() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.revision
}
