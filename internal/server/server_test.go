package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livetemplate/scrollfollow/internal/config"
	"github.com/livetemplate/scrollfollow/internal/session"
)

const testDoc = "intro\n# First\nbody <b>\n\n![logo](http://example.com/logo.png)\n\n## Second\ntext\n"

// newTestServer writes testDoc to a temp file and serves it.
func newTestServer(t *testing.T, content string) (*Server, *httptest.Server, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "doc.md")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg := config.DefaultConfig()
	cfg.Watch.Debounce = "10ms"
	sess, err := session.Open(path, cfg)
	require.NoError(t, err)
	t.Cleanup(sess.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	srv := New(sess, cfg)
	ts := httptest.NewServer(srv.Handler(ctx))
	t.Cleanup(ts.Close)
	t.Cleanup(func() { srv.StopWatch() })
	return srv, ts, path
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestServePage(t *testing.T) {
	_, ts, _ := newTestServer(t, testDoc)

	resp, body := get(t, ts.URL+"/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))

	assert.Contains(t, body, `<span data-line="1"># First</span>`)
	assert.Contains(t, body, "body &lt;b&gt;", "source lines are escaped")
	assert.NotContains(t, body, "content-id-4")
	for _, class := range []string{"content-id-0", "content-id-1", "content-id-2", "content-id-3"} {
		assert.Contains(t, body, `<div class="`+class+`">`)
	}
	assert.Contains(t, body, `data-revision="1"`)
	assert.Contains(t, body, `<script src="/assets/scrollfollow.js"></script>`)
}

func TestServeSections(t *testing.T) {
	_, ts, _ := newTestServer(t, testDoc)

	resp, body := get(t, ts.URL+"/sections")
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var got SectionsResponse
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	assert.Equal(t, uint64(1), got.Revision)
	assert.Empty(t, got.Error)

	want := []SectionInfo{
		{Index: 0, ID: "content-id-0", Start: 0, End: 0, Matched: true},
		{Index: 1, ID: "content-id-1", Start: 1, End: 3, Matched: true},
		{Index: 2, ID: "content-id-2", Start: 4, End: 5, Matched: true},
		{Index: 3, ID: "content-id-3", Start: 6, End: 8, Matched: true},
	}
	assert.Equal(t, want, got.Sections)
}

func TestServeSectionsReportsMismatch(t *testing.T) {
	_, ts, _ := newTestServer(t, "para a\npara b\n-----\n")

	_, body := get(t, ts.URL+"/sections")
	var got SectionsResponse
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	assert.Contains(t, got.Error, "section mismatch")
	for _, s := range got.Sections {
		assert.False(t, s.Matched)
	}
}

func TestServeAssets(t *testing.T) {
	_, ts, _ := newTestServer(t, testDoc)

	resp, body := get(t, ts.URL+"/assets/scrollfollow.js")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/javascript", resp.Header.Get("Content-Type"))
	assert.Contains(t, body, "WebSocket")

	resp, _ = get(t, ts.URL+"/assets/scrollfollow.css")
	assert.Equal(t, "text/css", resp.Header.Get("Content-Type"))

	resp, _ = get(t, ts.URL+"/assets/missing.js")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = get(t, ts.URL+"/nowhere")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServePageIsCompressed(t *testing.T) {
	_, ts, _ := newTestServer(t, testDoc)

	// The default transport adds Accept-Encoding and decompresses
	// transparently, reporting the original encoding as Uncompressed.
	resp, body := get(t, ts.URL+"/")
	assert.True(t, resp.Uncompressed)
	assert.True(t, strings.HasPrefix(body, "<!DOCTYPE html>"))
}
