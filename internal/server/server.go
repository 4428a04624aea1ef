package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/livetemplate/scrollfollow"
	"github.com/livetemplate/scrollfollow/internal/assets"
	"github.com/livetemplate/scrollfollow/internal/config"
	"github.com/livetemplate/scrollfollow/internal/session"
)

// Scroll queries arrive once per animation frame while the user scrolls.
const (
	scrollRPS   = 60
	scrollBurst = 120
)

// Server serves the preview of one document and answers scroll queries.
type Server struct {
	session      *session.Session
	config       *config.Config
	debug        bool
	connections  map[*wsClient]bool // Track connected WebSocket clients
	connMu       sync.RWMutex
	watcher      *Watcher
	scrollLimits *limiterPool
}

// New creates a server for sess.
func New(sess *session.Session, cfg *config.Config) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Server{
		session:      sess,
		config:       cfg,
		debug:        cfg.Server.Debug || config.IsVerbose(),
		connections:  make(map[*wsClient]bool),
		scrollLimits: newLimiterPool(scrollRPS, scrollBurst, 0),
	}
}

// Handler returns the server wrapped in its middleware chain. Background
// goroutines stop when ctx is cancelled.
func (s *Server) Handler(ctx context.Context) http.Handler {
	limit, _ := RateLimitMiddleware(ctx, s.config.RateLimit.GetRPS(), s.config.RateLimit.GetBurst(), 0)
	s.scrollLimits.run(ctx, 5*time.Minute, 10*time.Minute)

	var h http.Handler = s
	h = WithCompression(h)
	h = limit(h)
	h = SecurityHeadersMiddleware()(h)
	return h
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/ws":
		s.serveWebSocket(w, r)
	case strings.HasPrefix(r.URL.Path, "/assets/"):
		s.serveAsset(w, r)
	case r.URL.Path == "/sections":
		s.serveSections(w, r)
	case r.URL.Path == "/":
		s.servePage(w, r)
	default:
		http.NotFound(w, r)
	}
}

// serveAsset serves embedded client assets.
func (s *Server) serveAsset(w http.ResponseWriter, r *http.Request) {
	var (
		data        []byte
		err         error
		contentType string
	)
	switch strings.TrimPrefix(r.URL.Path, "/assets/") {
	case "scrollfollow.js":
		data, err = assets.GetClientJS()
		contentType = "application/javascript"
	case "scrollfollow.css":
		data, err = assets.GetClientCSS()
		contentType = "text/css"
	default:
		http.NotFound(w, r)
		return
	}
	if err != nil {
		http.Error(w, "Asset not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// SectionInfo is one entry of the /sections listing.
type SectionInfo struct {
	Index   int    `json:"index"`
	ID      string `json:"id"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
	Matched bool   `json:"matched"`
}

// SectionsResponse is the /sections payload.
type SectionsResponse struct {
	Revision uint64        `json:"revision"`
	Sections []SectionInfo `json:"sections"`
	Error    string        `json:"error,omitempty"`
}

func (s *Server) serveSections(w http.ResponseWriter, r *http.Request) {
	resp := SectionsResponse{
		Revision: s.session.Revision(),
		Sections: make([]SectionInfo, 0),
	}
	for i, sec := range s.session.Sections() {
		resp.Sections = append(resp.Sections, SectionInfo{
			Index:   i,
			ID:      scrollfollow.SectionClass(i),
			Start:   sec.Start,
			End:     sec.End,
			Matched: sec.PreviewElement != nil,
		})
	}
	if err := s.session.Err(); err != nil {
		resp.Error = err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("[Server] Failed to encode sections: %v", err)
	}
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<link rel="stylesheet" href="/assets/scrollfollow.css">
</head>
<body>
<div class="sf-layout">
<pre id="sf-source">{{range $i, $line := .Lines}}<span data-line="{{$i}}">{{$line}}</span>{{end}}</pre>
<div id="sf-preview">{{.Preview}}</div>
</div>
<script src="/assets/scrollfollow.js"></script>
</body>
</html>
`))

type pageData struct {
	Title   string
	Lines   []string
	Preview template.HTML
}

func (s *Server) servePage(w http.ResponseWriter, r *http.Request) {
	html, err := s.session.HTML()
	if err != nil {
		log.Printf("[Server] Failed to render preview: %v", err)
		http.Error(w, "Failed to render preview", http.StatusInternalServerError)
		return
	}

	title := s.config.Title
	if p := s.session.Path(); p != "" {
		title = fmt.Sprintf("%s - %s", p, title)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, pageData{
		Title:   title,
		Lines:   s.session.Lines(),
		Preview: template.HTML(html),
	}); err != nil {
		log.Printf("[Server] Failed to write page: %v", err)
	}
}

// RegisterConnection adds a WebSocket connection to the tracked connections.
func (s *Server) RegisterConnection(c *wsClient) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	s.connections[c] = true
	log.Printf("[Server] WebSocket connection registered: %d active connections", len(s.connections))
}

// UnregisterConnection removes a WebSocket connection from tracked connections.
func (s *Server) UnregisterConnection(c *wsClient) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	delete(s.connections, c)
	log.Printf("[Server] WebSocket connection unregistered: %d active connections", len(s.connections))
}

// ConnectionCount returns the number of connected clients.
func (s *Server) ConnectionCount() int {
	s.connMu.RLock()
	defer s.connMu.RUnlock()
	return len(s.connections)
}

// broadcast sends v to every connected client.
func (s *Server) broadcast(v any) {
	s.connMu.RLock()
	defer s.connMu.RUnlock()

	for c := range s.connections {
		if err := c.send(v); err != nil {
			log.Printf("[Server] Failed to send to connection: %v", err)
		}
	}
}

// BroadcastReload tells all connected clients to fetch the new revision.
func (s *Server) BroadcastReload(revision uint64) {
	log.Printf("[Server] Broadcasting reload of revision %d to %d connections", revision, s.ConnectionCount())
	s.broadcast(ReloadMessage{Action: ActionReload, Revision: revision})
}

// BroadcastError reports a fault to all connected clients.
func (s *Server) BroadcastError(err error) {
	s.broadcast(ErrorMessage{Action: ActionError, Message: err.Error()})
}

// Refresh rereads the document and notifies clients. A section mismatch
// still reloads the clients; they get the unsectioned preview.
func (s *Server) Refresh() error {
	err := s.session.Reload()

	var ce *scrollfollow.ConsistencyError
	switch {
	case err == nil:
		s.BroadcastReload(s.session.Revision())
	case errors.As(err, &ce):
		s.BroadcastReload(s.session.Revision())
		s.BroadcastError(err)
	default:
		s.BroadcastError(err)
		return fmt.Errorf("failed to reload document: %w", err)
	}
	return nil
}

// EnableWatch enables file watching for live reload.
func (s *Server) EnableWatch() error {
	path := s.session.Path()
	if path == "" {
		return errors.New("document has no file to watch")
	}

	watcher, err := NewWatcher(path, s.config.Watch.GetDebounce(), func(string) error {
		return s.Refresh()
	}, s.debug)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	s.watcher = watcher
	s.watcher.Start()

	log.Printf("[Watch] File watcher started for %s", path)
	return nil
}

// StopWatch stops the file watcher if it's running.
func (s *Server) StopWatch() error {
	if s.watcher != nil {
		return s.watcher.Stop()
	}
	return nil
}
