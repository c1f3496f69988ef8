package extract

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/syllabus/core"
	"github.com/poiesic/syllabus/ingestion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func texts(units []ingestion.DocumentUnit) []string {
	out := make([]string, len(units))
	for i, u := range units {
		out[i] = u.Text
	}
	return out
}

func pages(units []ingestion.DocumentUnit) []int {
	out := make([]int, len(units))
	for i, u := range units {
		out[i] = *u.PageNumber
	}
	return out
}

func TestSplitText(t *testing.T) {
	input := "a\n\n  b  \nc\nd\n\t\ne\nf\ng\n"
	units := SplitText(input)
	assert.Equal(t, []string{"a\nb\nc\nd\ne", "f\ng"}, texts(units))
	assert.Equal(t, []int{1, 2}, pages(units))
}

func TestSplitText_Empty(t *testing.T) {
	assert.Empty(t, SplitText("\n \n\t"))
}

func TestSplitMarkdown(t *testing.T) {
	input := "intro line\n\n# Heading One\nbody one\n\n## Heading Two\n```go\n# not a heading\n\n  indented\n```\nafter fence\n"
	units := SplitMarkdown(input)
	assert.Equal(t, []string{
		"intro line",
		"# Heading One\nbody one",
		"## Heading Two\n# not a heading\n\n  indented\nafter fence",
	}, texts(units))
	assert.Equal(t, []int{1, 2, 3}, pages(units))
}

func TestSplitMarkdown_HeadingOnlyDocument(t *testing.T) {
	units := SplitMarkdown("# A\n# B\r\n")
	assert.Equal(t, []string{"# A", "# B"}, texts(units))
}

func TestSplitPages(t *testing.T) {
	units := SplitPages("first page\f\f  third page \f")
	assert.Equal(t, []string{"first page", "third page"}, texts(units))
	assert.Equal(t, []int{1, 3}, pages(units))
}

func TestParsers_ReadFiles(t *testing.T) {
	dir := t.TempDir()
	txt := filepath.Join(dir, "notes.txt")
	md := filepath.Join(dir, "notes.md")
	require.NoError(t, os.WriteFile(txt, []byte("one\ntwo\n"), 0o644))
	require.NoError(t, os.WriteFile(md, []byte("# Title\ntext\n"), 0o644))

	units, err := TextParser{}.Parse(context.Background(), txt)
	require.NoError(t, err)
	assert.Equal(t, []string{"one\ntwo"}, texts(units))

	units, err = MarkdownParser{}.Parse(context.Background(), md)
	require.NoError(t, err)
	assert.Equal(t, []string{"# Title\ntext"}, texts(units))

	_, err = TextParser{}.Parse(context.Background(), filepath.Join(dir, "missing.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestNewRegistry(t *testing.T) {
	registry := NewRegistry()
	assert.Equal(t, []core.ResourceType{core.ResourceTypeMarkdown, core.ResourceTypePDF, core.ResourceTypePPT, core.ResourceTypeText}, registry.Types())
	parser, err := registry.Lookup(core.ResourceTypePPT)
	require.NoError(t, err)
	assert.IsType(t, PPTXParser{}, parser)
	_, err = registry.Lookup(core.ResourceTypeVideo)
	assert.ErrorIs(t, err, ingestion.ErrNoParser)
}

func TestFileFetcher_Local(t *testing.T) {
	src := filepath.Join(t.TempDir(), "talk.mp4")
	require.NoError(t, os.WriteFile(src, []byte("media"), 0o644))
	dir := t.TempDir()

	got, err := FileFetcher{}.Fetch(context.Background(), src, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "source.mp4"), got)
	data, err := os.ReadFile(got)
	require.NoError(t, err)
	assert.Equal(t, "media", string(data))
}

func TestFileFetcher_HTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v/lecture.mp4" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("remote media"))
	}))
	defer srv.Close()
	dir := t.TempDir()

	got, err := FileFetcher{Client: srv.Client()}.Fetch(context.Background(), srv.URL+"/v/lecture.mp4", dir)
	require.NoError(t, err)
	data, err := os.ReadFile(got)
	require.NoError(t, err)
	assert.Equal(t, "remote media", string(data))

	_, err = FileFetcher{Client: srv.Client()}.Fetch(context.Background(), srv.URL+"/missing.mp4", dir)
	assert.ErrorContains(t, err, "status 404")
}

func TestFileFetcher_UnsupportedScheme(t *testing.T) {
	_, err := FileFetcher{}.Fetch(context.Background(), "ftp://host/file.mp4", t.TempDir())
	assert.ErrorContains(t, err, "unsupported source url scheme")
}
