package badger

import (
	"context"
	"testing"

	"github.com/poiesic/syllabus/core"
	"github.com/poiesic/syllabus/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCourseCRUD(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	course, err := store.CreateCourse(ctx, &core.Course{Name: "Linear Algebra"})
	require.NoError(t, err)
	assert.NotZero(t, course.ID)
	assert.Equal(t, core.EmbeddingNotStarted, course.EmbeddingStatus)
	assert.False(t, course.CreatedAt.IsZero())

	course.EmbeddingProgress = 50
	require.NoError(t, store.UpdateCourse(ctx, course))

	got, err := store.GetCourse(ctx, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 50.0, got.EmbeddingProgress)

	_, err = store.GetCourse(ctx, 999)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, store.UpdateCourse(ctx, &core.Course{ID: 999}), storage.ErrNotFound)

	second, err := store.CreateCourse(ctx, &core.Course{Name: "Calculus"})
	require.NoError(t, err)
	all, err := store.ListCourses(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, course.ID, all[0].ID)
	assert.Equal(t, second.ID, all[1].ID)
}

func TestListLecturesOrderedByIndex(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	course, err := store.CreateCourse(ctx, &core.Course{Name: "c"})
	require.NoError(t, err)
	other, err := store.CreateCourse(ctx, &core.Course{Name: "other"})
	require.NoError(t, err)

	for _, l := range []*core.Lecture{
		{CourseID: course.ID, Title: "third", OrderIndex: 3},
		{CourseID: course.ID, Title: "first", OrderIndex: 1},
		{CourseID: other.ID, Title: "elsewhere", OrderIndex: 0},
		{CourseID: course.ID, Title: "second", OrderIndex: 2},
	} {
		_, err := store.CreateLecture(ctx, l)
		require.NoError(t, err)
	}

	lectures, err := store.ListLectures(ctx, course.ID)
	require.NoError(t, err)
	require.Len(t, lectures, 3)
	assert.Equal(t, "first", lectures[0].Title)
	assert.Equal(t, "second", lectures[1].Title)
	assert.Equal(t, "third", lectures[2].Title)
}

func TestResourceUpdateKeepsCourseBinding(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	res, err := store.CreateResource(ctx, &core.Resource{CourseID: 1, Type: core.ResourceTypePDF, Status: core.ResourceStatusPending})
	require.NoError(t, err)

	res.CourseID = 2
	res.Status = core.ResourceStatusQueued
	require.NoError(t, store.UpdateResource(ctx, res))

	got, err := store.GetResource(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, core.ID(1), got.CourseID)
	assert.Equal(t, core.ResourceStatusQueued, got.Status)

	list, err := store.ListResources(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	list, err = store.ListResources(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestContentPieces(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	pieces := []*core.ContentPiece{
		{CourseID: 1, ResourceID: 10, Text: "b", OrderInResource: 2},
		{CourseID: 1, ResourceID: 10, Text: "a", OrderInResource: 1},
		{CourseID: 1, ResourceID: 11, Text: "other", OrderInResource: 0},
	}
	_, err := store.AddContentPieces(ctx, pieces...)
	require.NoError(t, err)
	assert.Equal(t, core.DefaultLanguage, pieces[0].Language)

	byRes, err := store.ListContentPiecesByResource(ctx, 10)
	require.NoError(t, err)
	require.Len(t, byRes, 2)
	assert.Equal(t, "a", byRes[0].Text)
	assert.Equal(t, "b", byRes[1].Text)

	byRes[0].SectionID = 77
	require.NoError(t, store.UpdateContentPieces(ctx, byRes[0]))
	require.NoError(t, store.ClearSectionAssignments(ctx, 1))
	byCourse, err := store.ListContentPiecesByCourse(ctx, 1)
	require.NoError(t, err)
	require.Len(t, byCourse, 3)
	for _, p := range byCourse {
		assert.Zero(t, p.SectionID)
	}

	n, err := store.DeleteContentPiecesByResource(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	byCourse, err = store.ListContentPiecesByCourse(ctx, 1)
	require.NoError(t, err)
	require.Len(t, byCourse, 1)
	assert.Equal(t, "other", byCourse[0].Text)

	assert.ErrorIs(t, store.UpdateContentPieces(ctx, &core.ContentPiece{ID: 12345}), storage.ErrNotFound)
}

func TestSectionsAndChunksDeleteByCourse(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	secs, err := store.AddSections(ctx,
		&core.Section{CourseID: 1, LectureID: 5, Title: "s2", OrderIndex: 2},
		&core.Section{CourseID: 1, LectureID: 5, Title: "s1", OrderIndex: 1},
		&core.Section{CourseID: 2, LectureID: 6, Title: "keep", OrderIndex: 1},
	)
	require.NoError(t, err)

	listed, err := store.ListSectionsByLecture(ctx, 5)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "s1", listed[0].Title)

	listed[0].Title = "renamed"
	listed[0].OrderIndex = 99
	require.NoError(t, store.UpdateSection(ctx, listed[0]))
	got, err := store.GetSection(ctx, listed[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Title)
	assert.Equal(t, 1, got.OrderIndex)

	_, err = store.AddChunks(ctx,
		&core.Chunk{CourseID: 1, SectionID: secs[1].ID, OrderInSection: 2, Text: "second"},
		&core.Chunk{CourseID: 1, SectionID: secs[1].ID, OrderInSection: 1, Text: "first"},
		&core.Chunk{CourseID: 1, SectionID: secs[0].ID, OrderInSection: 1, Text: "earlier section"},
		&core.Chunk{CourseID: 2, SectionID: secs[2].ID, OrderInSection: 1, Text: "keep"},
	)
	require.NoError(t, err)

	chunks, err := store.ListChunks(ctx, 1)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, "earlier section", chunks[0].Text)
	assert.Equal(t, "first", chunks[1].Text)
	assert.Equal(t, "second", chunks[2].Text)

	count, err := store.CountChunks(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	n, err := store.DeleteChunksByCourse(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	n, err = store.DeleteSectionsByCourse(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	count, err = store.CountChunks(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, count)
	listed, err = store.ListSectionsByLecture(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, listed)

	count, err = store.CountChunks(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	listed, err = store.ListSectionsByLecture(ctx, 6)
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}

func TestDeleteInsideTransaction(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.AddChunks(ctx, &core.Chunk{CourseID: 3, SectionID: 1, OrderInSection: 1})
	require.NoError(t, err)

	err = store.WithTransaction(ctx, func(ctx context.Context) error {
		n, err := store.DeleteChunksByCourse(ctx, 3)
		if err != nil {
			return err
		}
		assert.Equal(t, 1, n)
		count, err := store.CountChunks(ctx, 3)
		assert.Zero(t, count)
		return err
	})
	require.NoError(t, err)
}
