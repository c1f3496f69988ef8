package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/poiesic/syllabus"
	"github.com/poiesic/syllabus/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
	"gopkg.in/natefinch/lumberjack.v2"
)

type cliEnv struct {
	db      string
	workDir string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Chdir(t.TempDir())
	return &cliEnv{
		db:      filepath.Join(t.TempDir(), "db"),
		workDir: t.TempDir(),
	}
}

// run executes one CLI invocation and returns what it wrote to stdout.
func (e *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = io.Discard
	full := append([]string{"syllabus", "--db", e.db, "--work-dir", e.workDir}, args...)
	err := app.Run(full)
	return out.String(), err
}

func (e *cliEnv) mustRun(t *testing.T, out any, args ...string) {
	t.Helper()
	stdout, err := e.run(t, args...)
	require.NoError(t, err, stdout)
	if out != nil {
		require.NoError(t, json.Unmarshal([]byte(stdout), out), stdout)
	}
}

func writeNotes(t *testing.T) string {
	var b strings.Builder
	for i := range 15 {
		fmt.Fprintf(&b, "line %02d %s\n", i, strings.Repeat(string(rune('a'+i)), 52))
	}
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func findFlag[T cli.Flag](flags []cli.Flag, name string) T {
	var zero T
	for _, flag := range flags {
		if f, ok := flag.(T); ok {
			for _, n := range f.Names() {
				if n == name {
					return f
				}
			}
		}
	}
	return zero
}

func TestApp_Commands(t *testing.T) {
	app := newApp()
	var names []string
	for _, cmd := range app.Commands {
		names = append(names, cmd.Name)
	}
	assert.Equal(t, []string{"course", "resource", "process", "assemble", "embed", "status", "outline", "chunks", "validate", "search", "collections"}, names)

	t.Run("chunks limit defaults to the page size", func(t *testing.T) {
		chunks := app.Command("chunks")
		require.NotNil(t, chunks)
		limit := findFlag[*cli.IntFlag](chunks.Flags, "limit")
		require.NotNil(t, limit)
		assert.Equal(t, syllabus.DefaultChunkPageSize, limit.Value)
	})

	t.Run("search top-k defaults to five", func(t *testing.T) {
		topK := findFlag[*cli.IntFlag](app.Command("search").Flags, "top-k")
		require.NotNil(t, topK)
		assert.Equal(t, 5, topK.Value)
	})
}

func TestApp_RequiredFlags(t *testing.T) {
	e := newCLIEnv(t)

	_, err := e.run(t, "course", "create")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name")

	_, err = e.run(t, "search", "--course", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query")
}

func TestApp_InvalidOverride(t *testing.T) {
	e := newCLIEnv(t)
	_, err := e.run(t, "--vector-backend", "bogus", "course", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VectorBackend")
}

func TestApp_LogFile(t *testing.T) {
	e := newCLIEnv(t)
	logPath := filepath.Join(t.TempDir(), "syllabus.log")

	app := newApp()
	app.Writer = io.Discard
	app.ErrWriter = io.Discard
	require.NoError(t, app.Run([]string{"syllabus", "--db", e.db, "--log-file", logPath, "course", "list"}))

	rotator, ok := app.Metadata[metaLogFile].(*lumberjack.Logger)
	require.True(t, ok)
	assert.Equal(t, logPath, rotator.Filename)
}

func TestApp_IngestWorkflow(t *testing.T) {
	e := newCLIEnv(t)

	var course core.Course
	e.mustRun(t, &course, "course", "create", "--name", "Signals")
	require.NotZero(t, course.ID)
	assert.Equal(t, "Signals", course.Name)
	courseArg := fmt.Sprint(course.ID)

	var courses []core.Course
	e.mustRun(t, &courses, "course", "list")
	require.Len(t, courses, 1)

	var res core.Resource
	e.mustRun(t, &res, "resource", "add", "--course", courseArg, "--type", "TEXT", "--source", writeNotes(t), "--language", "en")
	assert.Equal(t, core.ResourceTypeText, res.Type)
	assert.Equal(t, core.ResourceStatusPending, res.Status)
	assert.Equal(t, "notes.txt", res.OriginalFilename)

	var processed core.Resource
	e.mustRun(t, &processed, "process", "--resource", fmt.Sprint(res.ID))
	assert.Equal(t, core.ResourceStatusSucceeded, processed.Status)
	assert.Equal(t, core.StageDone, processed.Stage)

	var page syllabus.ChunkPage
	e.mustRun(t, &page, "chunks", "--course", courseArg)
	require.NotZero(t, page.Total)
	assert.Equal(t, "en", page.Items[0].Language)

	var report struct {
		OK bool `json:"ok"`
	}
	e.mustRun(t, &report, "validate", "--course", courseArg)
	assert.True(t, report.OK)

	var status syllabus.EmbeddingStatusReport
	e.mustRun(t, &status, "status", "--course", courseArg)
	assert.Equal(t, core.EmbeddingNotStarted, status.Status)

	var resources []core.Resource
	e.mustRun(t, &resources, "resource", "list", "--course", courseArg)
	require.Len(t, resources, 1)

	_, err := e.run(t, "resource", "retry", "--resource", fmt.Sprint(res.ID))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not in failed state")
}

func TestApp_ProcessFailureReported(t *testing.T) {
	e := newCLIEnv(t)

	var course core.Course
	e.mustRun(t, &course, "course", "create", "--name", "Optics")

	var res core.Resource
	e.mustRun(t, &res, "resource", "add", "--course", fmt.Sprint(course.ID), "--type", "text",
		"--source", filepath.Join(t.TempDir(), "missing.txt"))

	out, err := e.run(t, "process", "--resource", fmt.Sprint(res.ID))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "document path does not exist")

	var failed core.Resource
	require.NoError(t, json.Unmarshal([]byte(out), &failed))
	assert.Equal(t, core.ResourceStatusFailed, failed.Status)
	assert.Equal(t, 1, failed.RetryCount)
}
