package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/curiouscoder/blogcms/internal/content"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDocument = `{
  "time": 1700000000000,
  "version": "2.28.0",
  "blocks": [
    {"type": "header", "data": {"text": "Intro", "level": 2}},
    {"type": "paragraph", "data": {"text": "Go is a <b>simple</b> language"}},
    {"type": "video", "data": {"src": "movie.mp4"}}
  ]
}`

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestRender_Stdin(t *testing.T) {
	stdout, stderr, err := execute(t, testDocument, "render")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, `<h2 id="intro">Intro</h2>`, lines[0])
	assert.Contains(t, lines[1], "<b>simple</b>")
	assert.Contains(t, lines[2], `data-block-type="video"`)
	assert.Contains(t, stderr, "unsupported block type")
}

func TestRender_FileAsJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	require.NoError(t, os.WriteFile(path, []byte(testDocument), 0o600))

	stdout, _, err := execute(t, "", "render", "--json", path)
	require.NoError(t, err)

	var rendered content.Rendered
	require.NoError(t, json.Unmarshal([]byte(stdout), &rendered))
	require.Len(t, rendered.Blocks, 3)
	assert.Equal(t, content.TypeHeader, rendered.Blocks[0].Type)
	require.Len(t, rendered.Diagnostics, 1)
	assert.Equal(t, 2, rendered.Diagnostics[0].Index)
	assert.Equal(t, "video", rendered.Diagnostics[0].Type)
}

func TestRender_Errors(t *testing.T) {
	_, _, err := execute(t, "{not json", "render")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse document")

	_, _, err = execute(t, "", "render", filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read document")

	_, _, err = execute(t, "", "render", "a.json", "b.json")
	assert.Error(t, err)
}

func TestStats(t *testing.T) {
	stdout, _, err := execute(t, testDocument, "stats", "--excerpt-chars", "10")
	require.NoError(t, err)

	var stats documentStats
	require.NoError(t, json.Unmarshal([]byte(stdout), &stats))
	assert.Equal(t, 3, stats.Blocks)
	assert.Equal(t, 6, stats.Words)
	assert.Equal(t, 1, stats.ReadingTime)
	assert.Equal(t, "Go is a si...", stats.Excerpt)
	assert.Equal(t, []content.TOCEntry{{ID: "intro", Text: "Intro", Level: 2}}, stats.TOC)
}

func TestSlug(t *testing.T) {
	stdout, _, err := execute(t, "", "slug", "Héllo,", "World!")
	require.NoError(t, err)
	assert.Equal(t, "hello-world\n", stdout)

	_, _, err = execute(t, "", "slug", "!!!")
	assert.Error(t, err)

	_, _, err = execute(t, "", "slug")
	assert.Error(t, err)
}

func TestReadDocument_Dash(t *testing.T) {
	doc, err := readDocument(io.NopCloser(strings.NewReader(testDocument)), []string{"-"})
	require.NoError(t, err)
	assert.Len(t, doc.Blocks, 3)
	assert.Equal(t, "2.28.0", doc.Version)
}
