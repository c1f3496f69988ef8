package assembly

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/poiesic/syllabus/core"
	"github.com/poiesic/syllabus/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type courseFixture struct {
	store    *badger.Store
	course   *core.Course
	lectures []*core.Lecture
	res      []*core.Resource
}

func newStore(t *testing.T) *badger.Store {
	store, backend, err := badger.NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
		backend.Close()
	})
	return store
}

// seed creates a course with two lectures (created in reverse order) and one
// resource per lecture, each with the given piece lengths.
func seed(t *testing.T, status core.ResourceStatus, lengths ...int) *courseFixture {
	ctx := context.Background()
	store := newStore(t)

	course, err := store.CreateCourse(ctx, &core.Course{Name: "概率论"})
	require.NoError(t, err)

	second, err := store.CreateLecture(ctx, &core.Lecture{CourseID: course.ID, Title: "Lecture 2", OrderIndex: 2})
	require.NoError(t, err)
	first, err := store.CreateLecture(ctx, &core.Lecture{CourseID: course.ID, Title: "Lecture 1", OrderIndex: 1})
	require.NoError(t, err)

	fx := &courseFixture{store: store, course: course, lectures: []*core.Lecture{first, second}}
	for _, lecture := range fx.lectures {
		res, err := store.CreateResource(ctx, &core.Resource{
			CourseID:  course.ID,
			LectureID: lecture.ID,
			Type:      core.ResourceTypeVideo,
			Status:    status,
		})
		require.NoError(t, err)
		fx.res = append(fx.res, res)

		var pieces []*core.ContentPiece
		for i, n := range lengths {
			start := float64(i * 10)
			end := start + 10
			pieces = append(pieces, &core.ContentPiece{
				ResourceID:      res.ID,
				LectureID:       lecture.ID,
				CourseID:        course.ID,
				SourceType:      core.SourceTypeTranscript,
				Text:            strings.Repeat("学", n),
				StartTime:       &start,
				EndTime:         &end,
				OrderInResource: len(lengths) - i, // stored out of order
			})
		}
		pieces = append(pieces, &core.ContentPiece{
			ResourceID: res.ID, LectureID: lecture.ID, CourseID: course.ID,
			SourceType: core.SourceTypeTranscript, Text: "   ", OrderInResource: 99,
		})
		_, err = store.AddContentPieces(ctx, pieces...)
		require.NoError(t, err)
	}
	return fx
}

func newAssembler(t *testing.T, store *badger.Store) *Assembler {
	a, err := New(store)
	require.NoError(t, err)
	return a
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrStoreRequired)

	store := newStore(t)
	_, err = New(store, WithSectionBounds(Bounds{Min: 10, Max: 5}))
	assert.Error(t, err)
	_, err = New(store, WithChunkBounds(Bounds{Min: 0, Max: 5}))
	assert.Error(t, err)
}

func TestAssembleCourseIfReady_NotReadyWritesNothing(t *testing.T) {
	fx := seed(t, core.ResourceStatusSucceeded, 300, 300)
	ctx := context.Background()

	fx.res[1].Status = core.ResourceStatusRunning
	require.NoError(t, fx.store.UpdateResource(ctx, fx.res[1]))

	ran, err := newAssembler(t, fx.store).AssembleCourseIfReady(ctx, fx.course.ID)
	require.NoError(t, err)
	assert.False(t, ran)

	count, err := fx.store.CountChunks(ctx, fx.course.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
	sections, err := fx.store.ListSectionsByLecture(ctx, fx.lectures[0].ID)
	require.NoError(t, err)
	assert.Empty(t, sections)
}

func TestAssembleCourseIfReady_NoResources(t *testing.T) {
	store := newStore(t)
	course, err := store.CreateCourse(context.Background(), &core.Course{Name: "empty"})
	require.NoError(t, err)

	ran, err := newAssembler(t, store).AssembleCourseIfReady(context.Background(), course.ID)
	require.NoError(t, err)
	assert.False(t, ran)
}

func TestAssembleCourseIfReady_BuildsSectionsAndChunks(t *testing.T) {
	fx := seed(t, core.ResourceStatusSucceeded, 150, 150, 300, 40)
	ctx := context.Background()

	ran, err := newAssembler(t, fx.store).AssembleCourseIfReady(ctx, fx.course.ID)
	require.NoError(t, err)
	require.True(t, ran)

	for _, lecture := range fx.lectures {
		sections, err := fx.store.ListSectionsByLecture(ctx, lecture.ID)
		require.NoError(t, err)
		// pieces sorted by order: 40, 300, 150, 150 -> [40,300] [150,150]
		require.Len(t, sections, 2)
		assert.Equal(t, lecture.Title+" - Section 1", sections[0].Title)
		assert.Equal(t, 2, sections[0].Meta.ContentPieceCount)
		assert.Equal(t, 341, sections[0].Meta.TotalChars)
	}

	chunks, err := fx.store.ListChunks(ctx, fx.course.ID)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.GreaterOrEqual(t, core.CharCount(c.Text), MinChunkChars)
		assert.NotZero(t, c.SectionID)
	}

	pieces, err := fx.store.ListContentPiecesByCourse(ctx, fx.course.ID)
	require.NoError(t, err)
	for _, p := range pieces {
		if strings.TrimSpace(p.Text) == "" {
			assert.Zero(t, p.SectionID, "blank pieces are not assigned")
		} else {
			assert.NotZero(t, p.SectionID)
		}
	}
}

func TestAssembleCourseIfReady_Idempotent(t *testing.T) {
	fx := seed(t, core.ResourceStatusSucceeded, 120, 260, 90, 500, 15)
	ctx := context.Background()
	a := newAssembler(t, fx.store)

	texts := func() []string {
		chunks, err := fx.store.ListChunks(ctx, fx.course.ID)
		require.NoError(t, err)
		var out []string
		for _, c := range chunks {
			out = append(out, c.Text)
		}
		return out
	}

	_, err := a.AssembleCourseIfReady(ctx, fx.course.ID)
	require.NoError(t, err)
	firstRun := texts()

	_, err = a.AssembleCourseIfReady(ctx, fx.course.ID)
	require.NoError(t, err)
	secondRun := texts()

	assert.Equal(t, firstRun, secondRun)
	for _, lecture := range fx.lectures {
		sections, err := fx.store.ListSectionsByLecture(ctx, lecture.ID)
		require.NoError(t, err)
		for i, s := range sections {
			assert.Equal(t, i+1, s.OrderIndex, "old sections were removed")
		}
	}
}

func TestRebuild_ConcurrentCallsDoNotDuplicate(t *testing.T) {
	fx := seed(t, core.ResourceStatusSucceeded, 260, 260, 260, 260)
	ctx := context.Background()
	a := newAssembler(t, fx.store)

	want, err := a.Rebuild(ctx, fx.course.ID)
	require.NoError(t, err)
	require.NotZero(t, want.Chunks)

	for range 20 {
		var wg sync.WaitGroup
		for range 2 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := a.Rebuild(ctx, fx.course.ID)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		count, err := fx.store.CountChunks(ctx, fx.course.ID)
		require.NoError(t, err)
		require.Equal(t, want.Chunks, count)
	}
}

// chunkFailStore fails the nth AddChunks call.
type chunkFailStore struct {
	*badger.Store
	failOn int
	calls  int
}

func (s *chunkFailStore) AddChunks(ctx context.Context, chunks ...*core.Chunk) ([]*core.Chunk, error) {
	s.calls++
	if s.calls == s.failOn {
		return nil, errors.New("disk full")
	}
	return s.Store.AddChunks(ctx, chunks...)
}

func TestRebuild_FailureKeepsPreviousAssembly(t *testing.T) {
	fx := seed(t, core.ResourceStatusSucceeded, 300, 300)
	ctx := context.Background()

	first, err := newAssembler(t, fx.store).Rebuild(ctx, fx.course.ID)
	require.NoError(t, err)
	before, err := fx.store.ListChunks(ctx, fx.course.ID)
	require.NoError(t, err)

	failing := &chunkFailStore{Store: fx.store, failOn: 2}
	a, err := New(failing)
	require.NoError(t, err)
	_, err = a.Rebuild(ctx, fx.course.ID)
	require.ErrorContains(t, err, "disk full")

	after, err := fx.store.ListChunks(ctx, fx.course.ID)
	require.NoError(t, err)
	assert.Len(t, after, first.Chunks)
	assert.Equal(t, before, after)
}

func TestRebuild_Result(t *testing.T) {
	fx := seed(t, core.ResourceStatusSucceeded, 300)
	result, err := newAssembler(t, fx.store).Rebuild(context.Background(), fx.course.ID)
	require.NoError(t, err)
	assert.Equal(t, Result{Lectures: 2, Sections: 2, Chunks: 2}, result)
}

func TestOutline(t *testing.T) {
	fx := seed(t, core.ResourceStatusSucceeded, 300)
	ctx := context.Background()
	a := newAssembler(t, fx.store)

	_, err := a.AssembleCourseIfReady(ctx, fx.course.ID)
	require.NoError(t, err)

	outline, err := a.Outline(ctx, fx.course.ID)
	require.NoError(t, err)
	assert.Equal(t, fx.course.ID, outline.Course.ID)
	require.Len(t, outline.Lectures, 2)
	assert.Equal(t, "Lecture 1", outline.Lectures[0].Lecture.Title, "lectures ordered by index")
	assert.Equal(t, "Lecture 2", outline.Lectures[1].Lecture.Title)
	assert.Len(t, outline.Lectures[0].Sections, 1)
}
