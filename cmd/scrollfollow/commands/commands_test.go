package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the CLI with args and returns its output.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCommand("test")
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeDoc(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.md")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "scrollfollow version test\n", out)
}

func TestSectionsTable(t *testing.T) {
	path := writeDoc(t, "intro\n# 見出し heading\nbody\n\n## Second\ntext\n")

	out, err := run(t, "sections", path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 5, "header, separator and one row per section")
	assert.True(t, strings.HasPrefix(lines[0], "#  ID"))
	assert.Contains(t, lines[2], "content-id-0")
	assert.Contains(t, lines[2], "1-1")
	assert.Contains(t, lines[3], "2-4")
	assert.Contains(t, lines[3], "# 見出し heading")
	assert.Contains(t, lines[4], "5-7")

	// Columns line up by display width.
	assert.Equal(t, strings.Index(lines[2], "content-id-"), strings.Index(lines[4], "content-id-"))
}

func TestSectionsTruncatesLongText(t *testing.T) {
	path := writeDoc(t, "# "+strings.Repeat("long ", 30))

	out, err := run(t, "sections", path)
	require.NoError(t, err)
	assert.Contains(t, out, "...")
	assert.NotContains(t, out, strings.Repeat("long ", 30))
}

func TestSectionsJSON(t *testing.T) {
	path := writeDoc(t, "a\n# b\n")

	out, err := run(t, "sections", "--format", "json", path)
	require.NoError(t, err)

	var rows []sectionRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	assert.Equal(t, []sectionRow{
		{Index: 0, ID: "content-id-0", Start: 0, End: 0, Text: "a"},
		{Index: 1, ID: "content-id-1", Start: 1, End: 2, Text: "# b"},
	}, rows)
}

func TestSectionsErrors(t *testing.T) {
	_, err := run(t, "sections")
	assert.Error(t, err, "file argument is required")

	_, err = run(t, "sections", filepath.Join(t.TempDir(), "missing.md"))
	assert.Error(t, err)

	_, err = run(t, "sections", "--format", "xml", writeDoc(t, "x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}

func TestSectionsBlankDocument(t *testing.T) {
	out, err := run(t, "sections", writeDoc(t, "\n\n"))
	require.NoError(t, err)
	assert.Contains(t, out, "No sections")
}

func TestMatch(t *testing.T) {
	path := writeDoc(t, "intro\n# a\n\n![x](http://x/y.png)\n\nafter\n")

	out, err := run(t, "match", "--html", path)
	require.NoError(t, err)
	assert.Contains(t, out, "✅ 4 sections matched")
	assert.Contains(t, out, `<div class="content-id-3">`)
}

func TestMatchReportsMismatch(t *testing.T) {
	path := writeDoc(t, "para a\npara b\n-----\n")

	out, err := run(t, "match", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "section mismatch")
	assert.Contains(t, out, "❌ Section mismatch in "+path)
	assert.Contains(t, out, "2 source sections, 1 preview groups")
}

func TestConfigFlag(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("preview:\n  gfm: false\n"), 0644))
	path := writeDoc(t, "| a |\n| - |\n| 1 |\n")

	out, err := run(t, "match", "--html", "-c", cfgPath, path)
	require.NoError(t, err)
	assert.NotContains(t, out, "<table>")

	out, err = run(t, "match", "--html", path)
	require.NoError(t, err)
	assert.Contains(t, out, "<table>")
}
