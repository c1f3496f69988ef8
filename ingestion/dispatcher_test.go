package ingestion

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/poiesic/syllabus/assembly"
	"github.com/poiesic/syllabus/core"
	"github.com/poiesic/syllabus/storage/badger"
	"github.com/poiesic/syllabus/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeParser struct {
	units []DocumentUnit
	err   error
	paths []string
}

func (p *fakeParser) Parse(_ context.Context, path string) ([]DocumentUnit, error) {
	p.paths = append(p.paths, path)
	return p.units, p.err
}

type fakeFetcher struct{ err error }

func (f fakeFetcher) Fetch(_ context.Context, _ string, dir string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return filepath.Join(dir, "download.m4a"), nil
}

type fakeConverter struct{ rate int }

func (c *fakeConverter) ToMonoWAV(_ context.Context, _, _ string, sampleRate int) error {
	c.rate = sampleRate
	return nil
}

type fakeTranscriber struct{ segments []TranscriptSegment }

func (t fakeTranscriber) Transcribe(context.Context, string) ([]TranscriptSegment, error) {
	return t.segments, nil
}

type rejectingValidator struct{}

func (rejectingValidator) ValidateCourse(context.Context, core.ID) (validation.Report, error) {
	return validation.Report{
		OK:      false,
		Checked: 1,
		Issues:  []validation.Issue{{ChunkID: 7, Errors: []string{"text is too short"}}},
	}, nil
}

type env struct {
	store  *badger.Store
	course *core.Course
	dir    string
}

func newEnv(t *testing.T) *env {
	store, backend, err := badger.NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
		backend.Close()
	})
	course, err := store.CreateCourse(context.Background(), &core.Course{Name: "线性代数"})
	require.NoError(t, err)
	return &env{store: store, course: course, dir: t.TempDir()}
}

func (e *env) resource(t *testing.T, typ core.ResourceType, sourceURL string) *core.Resource {
	ctx := context.Background()
	lecture, err := e.store.CreateLecture(ctx, &core.Lecture{CourseID: e.course.ID, Title: "Lecture 1", OrderIndex: 1})
	require.NoError(t, err)
	res, err := e.store.CreateResource(ctx, &core.Resource{
		CourseID:  e.course.ID,
		LectureID: lecture.ID,
		Type:      typ,
		SourceURL: sourceURL,
		Status:    core.ResourceStatusQueued,
		Stage:     core.StageWaiting,
	})
	require.NoError(t, err)
	return res
}

func (e *env) dispatcher(t *testing.T, validator ChunkValidator, opts ...Option) *Dispatcher {
	asm, err := assembly.New(e.store)
	require.NoError(t, err)
	if validator == nil {
		gate, err := validation.NewGate(e.store)
		require.NoError(t, err)
		validator = gate
	}
	opts = append([]Option{WithWorkDir(e.dir)}, opts...)
	d, err := NewDispatcher(e.store, asm, validator, opts...)
	require.NoError(t, err)
	return d
}

func (e *env) writeFile(t *testing.T, name string) string {
	path := filepath.Join(e.dir, name)
	require.NoError(t, os.WriteFile(path, []byte("placeholder"), 0o644))
	return path
}

func page(n int) *int { return &n }

func TestNewDispatcher_RequiresCollaborators(t *testing.T) {
	e := newEnv(t)
	asm, err := assembly.New(e.store)
	require.NoError(t, err)
	gate, err := validation.NewGate(e.store)
	require.NoError(t, err)

	_, err = NewDispatcher(nil, asm, gate)
	assert.ErrorIs(t, err, ErrStoreRequired)
	_, err = NewDispatcher(e.store, nil, gate)
	assert.ErrorIs(t, err, ErrAssemblerRequired)
	_, err = NewDispatcher(e.store, asm, nil)
	assert.ErrorIs(t, err, ErrValidatorRequired)
	_, err = NewDispatcher(e.store, asm, gate, WithSampleRate(0))
	assert.Error(t, err)
}

func TestProcessResource_Document(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	path := e.writeFile(t, "notes.pdf")
	res := e.resource(t, core.ResourceTypePDF, path)

	parser := &fakeParser{units: []DocumentUnit{
		{PageNumber: page(1), Text: strings.Repeat("矩", 300)},
		{PageNumber: page(2), Text: "   "},
		{PageNumber: page(3), Text: strings.Repeat("阵", 300)},
	}}
	registry := NewParserRegistry()
	require.NoError(t, registry.Register(core.ResourceTypePDF, parser))

	d := e.dispatcher(t, nil, WithParserRegistry(registry))
	require.NoError(t, d.ProcessResource(ctx, res.ID))

	got, err := e.store.GetResource(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, core.ResourceStatusSucceeded, got.Status)
	assert.Equal(t, core.StageDone, got.Stage)
	assert.Zero(t, got.RetryCount)
	assert.Empty(t, got.ErrorMessage)
	assert.Equal(t, []string{path}, parser.paths)

	pieces, err := e.store.ListContentPiecesByResource(ctx, res.ID)
	require.NoError(t, err)
	require.Len(t, pieces, 2)
	assert.Equal(t, core.SourceTypePDF, pieces[0].SourceType)
	assert.Equal(t, 1, *pieces[0].PageNumber)
	assert.Equal(t, 3, *pieces[1].PageNumber)
	assert.Equal(t, 0, pieces[0].OrderInResource)
	assert.Equal(t, 1, pieces[1].OrderInResource)
	assert.NotZero(t, pieces[0].SectionID)

	chunks, err := e.store.ListChunks(ctx, e.course.ID)
	require.NoError(t, err)
	assert.Len(t, chunks, 2)
}

func TestProcessResource_DocumentPrefersLocalPath(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	path := e.writeFile(t, "slides.md")
	res := e.resource(t, core.ResourceTypeMarkdown, "https://example.com/slides.md")
	res.Meta = map[string]any{"local_path": path}
	require.NoError(t, e.store.UpdateResource(ctx, res))

	parser := &fakeParser{units: []DocumentUnit{{Text: strings.Repeat("a", 300)}}}
	registry := NewParserRegistry()
	require.NoError(t, registry.Register(core.ResourceTypeMarkdown, parser))

	d := e.dispatcher(t, nil, WithParserRegistry(registry))
	require.NoError(t, d.ProcessResource(ctx, res.ID))
	assert.Equal(t, []string{path}, parser.paths)
}

func TestProcessResource_DocumentMissingFile(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	missing := filepath.Join(e.dir, "gone.pdf")
	res := e.resource(t, core.ResourceTypePDF, missing)

	d := e.dispatcher(t, nil)
	err := d.ProcessResource(ctx, res.ID)
	require.Error(t, err)

	got, err := e.store.GetResource(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, core.ResourceStatusFailed, got.Status)
	assert.Equal(t, core.StageDocParsing, got.Stage)
	assert.Equal(t, "document path does not exist: "+missing, got.ErrorMessage)
	assert.Equal(t, 1, got.RetryCount)
}

func TestProcessResource_DocumentWithoutParser(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	res := e.resource(t, core.ResourceTypePPT, e.writeFile(t, "deck.pptx"))

	d := e.dispatcher(t, nil)
	err := d.ProcessResource(ctx, res.ID)
	assert.ErrorIs(t, err, ErrNoParser)

	got, err := e.store.GetResource(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, core.ResourceStatusFailed, got.Status)
}

func TestProcessResource_Video(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	res := e.resource(t, core.ResourceTypeVideo, "https://example.com/lecture.mp4")

	converter := &fakeConverter{}
	transcriber := fakeTranscriber{segments: []TranscriptSegment{
		{Start: 0, End: 4.5, Text: strings.Repeat("特", 120)},
		{Start: 4.5, End: 9, Text: "  "},
		{Start: 9, End: 15, Text: strings.Repeat("征", 120)},
		{Start: 15, End: 21, Text: strings.Repeat("值", 120)},
	}}
	d := e.dispatcher(t, nil, WithVideoPipeline(fakeFetcher{}, converter, transcriber))
	require.NoError(t, d.ProcessResource(ctx, res.ID))
	assert.Equal(t, DefaultSampleRate, converter.rate)

	got, err := e.store.GetResource(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, core.ResourceStatusSucceeded, got.Status)
	assert.Equal(t, core.StageDone, got.Stage)
	assert.NotEmpty(t, got.Meta["download_path"])
	assert.NotEmpty(t, got.Meta["audio_path"])

	pieces, err := e.store.ListContentPiecesByResource(ctx, res.ID)
	require.NoError(t, err)
	require.Len(t, pieces, 3)
	for _, p := range pieces {
		assert.Equal(t, core.SourceTypeTranscript, p.SourceType)
		assert.Equal(t, core.DefaultLanguage, p.Language)
		require.NotNil(t, p.StartTime)
		require.NotNil(t, p.EndTime)
	}
	// Order follows the segment index, blank segments included.
	assert.Equal(t, []int{0, 2, 3}, []int{pieces[0].OrderInResource, pieces[1].OrderInResource, pieces[2].OrderInResource})

	count, err := e.store.CountChunks(ctx, e.course.ID)
	require.NoError(t, err)
	assert.Positive(t, count)
}

func TestProcessResource_VideoMissingSourceURL(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	res := e.resource(t, core.ResourceTypeVideo, "")

	d := e.dispatcher(t, nil)
	require.Error(t, d.ProcessResource(ctx, res.ID))

	got, err := e.store.GetResource(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, core.ResourceStatusFailed, got.Status)
	assert.Equal(t, core.StageDownloading, got.Stage)
	assert.Equal(t, "video resource missing source_url", got.ErrorMessage)
	assert.Equal(t, 1, got.RetryCount)
}

func TestProcessResource_VideoFetchFailure(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	res := e.resource(t, core.ResourceTypeVideo, "https://example.com/lecture.mp4")

	d := e.dispatcher(t, nil, WithVideoPipeline(fakeFetcher{err: errors.New("403 forbidden")}, &fakeConverter{}, fakeTranscriber{}))
	require.Error(t, d.ProcessResource(ctx, res.ID))

	got, err := e.store.GetResource(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, core.ResourceStatusFailed, got.Status)
	assert.Equal(t, core.StageDownloading, got.Stage)
	assert.Contains(t, got.ErrorMessage, "403 forbidden")
}

func TestProcessResource_WaitsForOtherResources(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	res := e.resource(t, core.ResourceTypePDF, e.writeFile(t, "a.pdf"))
	e.resource(t, core.ResourceTypePDF, e.writeFile(t, "b.pdf"))

	registry := NewParserRegistry()
	require.NoError(t, registry.Register(core.ResourceTypePDF, &fakeParser{units: []DocumentUnit{{Text: strings.Repeat("x", 300)}}}))

	d := e.dispatcher(t, nil, WithParserRegistry(registry))
	require.NoError(t, d.ProcessResource(ctx, res.ID))

	got, err := e.store.GetResource(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, core.ResourceStatusSucceeded, got.Status)
	assert.Equal(t, core.StageDone, got.Stage)

	count, err := e.store.CountChunks(ctx, e.course.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestProcessResource_ValidationGateFailure(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	res := e.resource(t, core.ResourceTypeText, e.writeFile(t, "notes.txt"))

	registry := NewParserRegistry()
	require.NoError(t, registry.Register(core.ResourceTypeText, &fakeParser{units: []DocumentUnit{{Text: strings.Repeat("y", 300)}}}))

	d := e.dispatcher(t, rejectingValidator{}, WithParserRegistry(registry))
	err := d.ProcessResource(ctx, res.ID)
	require.Error(t, err)

	got, err := e.store.GetResource(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, core.ResourceStatusFailed, got.Status)
	assert.Equal(t, core.StageChunking, got.Stage)
	assert.Equal(t, 1, got.RetryCount)
	want := fmt.Sprintf("chunk schema validation failed for course %d: [chunk 7: text is too short]", e.course.ID)
	assert.Equal(t, want, got.ErrorMessage)
}

func TestProcessResource_RejectsResourceNotQueued(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	res := e.resource(t, core.ResourceTypePDF, "x.pdf")
	res.Status = core.ResourceStatusPending
	require.NoError(t, e.store.UpdateResource(ctx, res))

	d := e.dispatcher(t, nil)
	err := d.ProcessResource(ctx, res.ID)
	assert.ErrorIs(t, err, core.ErrInvalidTransition)

	got, err := e.store.GetResource(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, core.ResourceStatusPending, got.Status)
	assert.Zero(t, got.RetryCount)
}

func TestDocumentPieces_SourceTypes(t *testing.T) {
	units := []DocumentUnit{{Text: "slide one"}}
	tests := map[core.ResourceType]core.SourceType{
		core.ResourceTypePPT:      core.SourceTypeSlide,
		core.ResourceTypePDF:      core.SourceTypePDF,
		core.ResourceTypeMarkdown: core.SourceTypeMarkdown,
		core.ResourceTypeText:     core.SourceTypeText,
	}
	for typ, want := range tests {
		t.Run(string(typ), func(t *testing.T) {
			res := &core.Resource{ID: 3, CourseID: 1, LectureID: 2, Type: typ, Meta: map[string]any{"language": "en"}}
			pieces := DocumentPieces(res, units)
			require.Len(t, pieces, 1)
			assert.Equal(t, want, pieces[0].SourceType)
			assert.Equal(t, "en", pieces[0].Language)
			assert.Equal(t, core.ID(2), pieces[0].LectureID)
		})
	}
}

func TestTranscriptPieces_Duration(t *testing.T) {
	res := &core.Resource{ID: 1, CourseID: 1, LectureID: 1, Type: core.ResourceTypeVideo}
	pieces := TranscriptPieces(res, []TranscriptSegment{{Start: 1.5, End: 4, Text: " hello "}})
	require.Len(t, pieces, 1)
	assert.Equal(t, "hello", pieces[0].Text)
	assert.InDelta(t, 2.5, pieces[0].Meta["duration"], 1e-9)
}
