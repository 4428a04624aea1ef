package scrollfollow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type span struct{ start, end int }

func spans(sections []*Section) []span {
	out := make([]span, len(sections))
	for i, s := range sections {
		out[i] = span{s.Start, s.End}
	}
	return out
}

func TestBuildSections(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  []span
	}{
		{
			name:  "headers split",
			lines: []string{"paragraph", "# header1", "paragraph", "## header2", "paragraph"},
			want:  []span{{0, 0}, {1, 2}, {3, 4}},
		},
		{
			name:  "section line info",
			lines: []string{"paragraph", "# header1", "paragraph", "paragraph", "## header2", "paragraph"},
			want:  []span{{0, 0}, {1, 3}, {4, 5}},
		},
		{
			name:  "header without space",
			lines: []string{"paragraph", "# header1", "paragraph", "##not header", "paragraph"},
			want:  []span{{0, 0}, {1, 4}},
		},
		{
			name:  "default section only",
			lines: []string{" ", "***", "paragraph"},
			want:  []span{{1, 2}},
		},
		{
			name:  "leading header absorbed",
			lines: []string{"# header", "***", "paragraph"},
			want:  []span{{0, 2}},
		},
		{
			name:  "setext headers",
			lines: []string{"paragraph", "header1", "=======", "paragraph", "header2", "------", "paragraph"},
			want:  []span{{0, 0}, {1, 3}, {4, 6}},
		},
		{
			name:  "dash line after blank",
			lines: []string{"paragraph", "header1", "=======", "paragraph", " ", "------", "paragraph"},
			want:  []span{{0, 0}, {1, 6}},
		},
		{
			name:  "dash line after table",
			lines: []string{"paragraph", "header1", "=======", "paragraph", "| th | th |", "| -- | -- |", "| td | td |", "------", "paragraph"},
			want:  []span{{0, 0}, {1, 8}},
		},
		{
			name:  "table at bottom",
			lines: []string{"paragraph", "header1", "=======", "paragraph", "| th | th |", "| -- | -- |", "| td | td |"},
			want:  []span{{0, 0}, {1, 6}},
		},
		{
			name:  "indented table",
			lines: []string{"paragraph", "header1", "=======", "paragraph", "  | th | th |", "| -- | -- |", "| td | td |"},
			want:  []span{{0, 0}, {1, 6}},
		},
		{
			name:  "dash line after code block",
			lines: []string{"paragraph", "header1", "=======", "``` javascript", "const mm = 1;", "```", "------", "paragraph"},
			want:  []span{{0, 0}, {1, 7}},
		},
		{
			name:  "trailing blank lines belong to last section",
			lines: []string{"", "", "intro", "# h", "", ""},
			want:  []span{{2, 2}, {3, 5}},
		},
		{
			name:  "all blank",
			lines: []string{"", "  ", "\t"},
			want:  []span{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, spans(BuildSections(tt.lines)))
		})
	}
}

func TestBuildSectionsIsContiguous(t *testing.T) {
	docs := [][]string{
		{"a", "# b", "c", "", "![x](y)", "", "d", "e", "===", "f"},
		{"", "", "```", "# x", "```", "## y", "| a |", "| - |", "---"},
		{"one"},
	}

	for _, lines := range docs {
		sections := BuildSections(lines)
		require.NotEmpty(t, sections)
		assert.Equal(t, len(lines)-1, sections[len(sections)-1].End)
		for i := 1; i < len(sections); i++ {
			assert.Equal(t, sections[i-1].End+1, sections[i].Start, "sections %d and %d", i-1, i)
			assert.LessOrEqual(t, sections[i].Start, sections[i].End)
		}
	}
}

func TestBuildSectionsImages(t *testing.T) {
	t.Run("root level image", func(t *testing.T) {
		sections := BuildSections([]string{
			"paragraph",
			"# header1",
			"paragraph",
			"paragraph",
			"",
			"![nhnent](http://www.nhnent.com)",
			"",
			"## header2",
			"paragraph",
		})
		assert.Equal(t, []span{{0, 0}, {1, 4}, {5, 6}, {7, 8}}, spans(sections))
	})

	t.Run("image after code blocks", func(t *testing.T) {
		sections := BuildSections([]string{
			"``` js",
			"var a = 10;",
			"```",
			"``` js",
			"var b = 20;",
			"```",
			"",
			"![nhnent](http://www.nhnent.com)",
			"",
		})
		assert.Equal(t, []span{{0, 6}, {7, 8}}, spans(sections))
	})

	t.Run("image with trailing blank only", func(t *testing.T) {
		sections := BuildSections([]string{"![nhnent](http://www.nhnent.com)", ""})
		assert.Equal(t, []span{{0, 1}}, spans(sections))
	})

	t.Run("image at end without trailing blank", func(t *testing.T) {
		sections := BuildSections([]string{"intro", "", "![nhnent](http://www.nhnent.com)"})
		assert.Equal(t, []span{{0, 1}, {2, 2}}, spans(sections))
	})

	t.Run("two independent images", func(t *testing.T) {
		sections := BuildSections([]string{
			" ![nhnent](http://www.nhnent.com)",
			"",
			"  ![nhnent](http://www.nhnent.com)",
			"",
		})
		assert.Equal(t, []span{{0, 1}, {2, 3}}, spans(sections))
	})

	t.Run("sequential images", func(t *testing.T) {
		sections := BuildSections([]string{
			"![nhnent](http://www.nhnent.com)",
			"",
			"![nhnent](http://www.nhnent.com)",
			"",
			"",
			"",
			"![nhnent](http://www.nhnent.com)",
			"",
			"",
			"",
			"![nhnent](http://www.nhnent.com)",
			"",
			"",
			"![nhnent](http://www.nhnent.com)<br>",
			"<br>",
			"![nhnent](http://www.nhnent.com)",
			"",
			"",
			"# heading",
			"",
			"",
		})
		assert.Equal(t, []span{{0, 1}, {2, 5}, {6, 9}, {10, 12}, {13, 13}, {14, 17}, {18, 20}}, spans(sections))
	})

	t.Run("text directly below an image", func(t *testing.T) {
		sections := BuildSections([]string{"para", "", "![a](b)", "text after"})
		assert.Equal(t, []span{{0, 1}, {2, 2}, {3, 3}}, spans(sections))
	})

	t.Run("inline images", func(t *testing.T) {
		sections := BuildSections([]string{
			"This is ![nhnent](http://www.nhnent.com) official logo.",
			"",
			"And here is too ![nhnent](http://www.nhnent.com).",
			"",
		})
		assert.Equal(t, []span{{0, 3}}, spans(sections))
	})
}

func TestFindSection(t *testing.T) {
	sections := BuildSections([]string{"", "paragraph", "# header1", "paragraph", "paragraph", "## header2", "paragraph"})
	require.Len(t, sections, 3)

	tests := []struct {
		line int
		want *Section
	}{
		{0, nil},
		{-5, nil},
		{1, sections[0]},
		{2, sections[1]},
		{4, sections[1]},
		{5, sections[2]},
		{6, sections[2]},
		{99999, sections[2]},
	}
	for _, tt := range tests {
		assert.Same(t, tt.want, findSection(sections, tt.line), "line %d", tt.line)
	}

	assert.Nil(t, findSection(nil, 3))
	assert.True(t, sections[1].Contains(3))
	assert.False(t, sections[1].Contains(5))
}
