package syllabus

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/poiesic/syllabus/assembly"
	"github.com/poiesic/syllabus/core"
	"github.com/poiesic/syllabus/scheduler"
	"github.com/poiesic/syllabus/search"
	"github.com/poiesic/syllabus/validation"
)

// Paging and search limits.
const (
	DefaultChunkPageSize = 50
	MaxChunkPageSize     = 500
	MaxSearchTopK        = search.MaxTopK
)

// EmbeddingStatusReport is the embedding state of a course.
type EmbeddingStatusReport struct {
	CourseID core.ID              `json:"course_id"`
	Status   core.EmbeddingStatus `json:"status"`
	Progress float64              `json:"progress"`
	Error    string               `json:"error,omitempty"`
}

// NewResource describes a resource to register.
type NewResource struct {
	CourseID         core.ID
	Type             core.ResourceType
	DisplayName      string
	SourceURL        string
	OriginalFilename string
	Meta             map[string]any
}

// ChunkPage is one page of a course's chunks.
type ChunkPage struct {
	Total int           `json:"total"`
	Items []*core.Chunk `json:"items"`
}

// SearchResult is one chunk matched by SearchCourse.
type SearchResult = search.Result

// CreateCourse stores a new course.
func (e *Engine) CreateCourse(ctx context.Context, course *core.Course) (*core.Course, error) {
	if err := core.ValidateCourse(course); err != nil {
		return nil, err
	}
	course.Name = strings.TrimSpace(course.Name)
	return e.store.CreateCourse(ctx, course)
}

// GetCourse returns a course.
func (e *Engine) GetCourse(ctx context.Context, courseID core.ID) (*core.Course, error) {
	return e.store.GetCourse(ctx, courseID)
}

// ListCourses returns every course.
func (e *Engine) ListCourses(ctx context.Context) ([]*core.Course, error) {
	return e.store.ListCourses(ctx)
}

// CreateResource registers a pending resource and binds it to a lecture.
//
// A video opens a new lecture titled with its display name, or "Lecture N"
// where N is the next lecture position. Other resources join the course's
// last lecture, creating "Lecture 1 (Auto)" when the course has none.
func (e *Engine) CreateResource(ctx context.Context, in NewResource) (*core.Resource, error) {
	res := &core.Resource{
		CourseID:         in.CourseID,
		Type:             in.Type,
		DisplayName:      strings.TrimSpace(in.DisplayName),
		SourceURL:        strings.TrimSpace(in.SourceURL),
		OriginalFilename: in.OriginalFilename,
		Status:           core.ResourceStatusPending,
		Stage:            core.StageWaiting,
		Meta:             in.Meta,
	}
	if err := core.ValidateResource(res); err != nil {
		return nil, err
	}

	err := e.store.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := e.store.GetCourse(ctx, in.CourseID); err != nil {
			return err
		}
		lecture, err := e.bindLecture(ctx, res)
		if err != nil {
			return err
		}
		res.LectureID = lecture.ID
		_, err = e.store.CreateResource(ctx, res)
		return err
	})
	if err != nil {
		return nil, storeErr(err)
	}
	e.logger.Info("resource created", "resource", res.ID, "course", res.CourseID, "lecture", res.LectureID, "type", res.Type)
	return res, nil
}

func (e *Engine) bindLecture(ctx context.Context, res *core.Resource) (*core.Lecture, error) {
	lectures, err := e.store.ListLectures(ctx, res.CourseID)
	if err != nil {
		return nil, err
	}
	var last *core.Lecture
	for _, l := range lectures {
		if last == nil || l.OrderIndex >= last.OrderIndex {
			last = l
		}
	}
	next := 1
	if last != nil {
		next = last.OrderIndex + 1
	}

	var title string
	switch {
	case res.IsVideo():
		title = cmp.Or(res.DisplayName, fmt.Sprintf("Lecture %d", next))
	case last != nil:
		return last, nil
	default:
		title = "Lecture 1 (Auto)"
	}
	return e.store.CreateLecture(ctx, &core.Lecture{CourseID: res.CourseID, Title: title, OrderIndex: next})
}

// GetResource returns a resource.
func (e *Engine) GetResource(ctx context.Context, resourceID core.ID) (*core.Resource, error) {
	return e.store.GetResource(ctx, resourceID)
}

// ListResources returns the resources of a course.
func (e *Engine) ListResources(ctx context.Context, courseID core.ID) ([]*core.Resource, error) {
	return e.store.ListResources(ctx, courseID)
}

// EnqueueResourceProcessing marks a resource queued and schedules it.
// A resource that is already queued or running yields ErrConflict, as does a
// failed one, which only RetryResource can requeue.
func (e *Engine) EnqueueResourceProcessing(ctx context.Context, resourceID core.ID) error {
	err := e.store.WithTransaction(ctx, func(ctx context.Context) error {
		res, err := e.store.GetResource(ctx, resourceID)
		if err != nil {
			return err
		}
		if res.Status == core.ResourceStatusFailed {
			return conflict(errors.New("resource failed; requeue it with RetryResource"))
		}
		if err := res.TransitionTo(core.ResourceStatusQueued, core.StageWaiting); err != nil {
			return conflict(err)
		}
		return e.store.UpdateResource(ctx, res)
	})
	if err != nil {
		return storeErr(err)
	}
	return e.scheduler.Enqueue(scheduler.NewJob(scheduler.KindProcessResource, resourceID))
}

// RetryResource requeues a failed resource with its retry count reset.
func (e *Engine) RetryResource(ctx context.Context, resourceID core.ID) (*core.Resource, error) {
	var res *core.Resource
	err := e.store.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		res, err = e.store.GetResource(ctx, resourceID)
		if err != nil {
			return err
		}
		if res.Status != core.ResourceStatusFailed {
			return conflict(errors.New("resource is not in failed state"))
		}
		if err := res.TransitionTo(core.ResourceStatusQueued, core.StageWaiting); err != nil {
			return conflict(err)
		}
		res.RetryCount = 0
		res.ErrorMessage = ""
		return e.store.UpdateResource(ctx, res)
	})
	if err != nil {
		return nil, storeErr(err)
	}
	if err := e.scheduler.Enqueue(scheduler.NewJob(scheduler.KindProcessResource, resourceID)); err != nil {
		return nil, err
	}
	return res, nil
}

// EnqueueCourseEmbedding marks the course embedding pending and schedules it.
// An embedding that is already pending or running yields ErrConflict.
func (e *Engine) EnqueueCourseEmbedding(ctx context.Context, courseID core.ID) (*EmbeddingStatusReport, error) {
	var course *core.Course
	err := e.store.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		course, err = e.store.GetCourse(ctx, courseID)
		if err != nil {
			return err
		}
		if course.EmbeddingStatus.InFlight() {
			return conflict(errors.New("embedding_already_running"))
		}
		count, err := e.store.CountChunks(ctx, courseID)
		if err != nil {
			return err
		}
		if count == 0 {
			return ErrNoChunks
		}
		if err := course.TransitionEmbedding(core.EmbeddingPending); err != nil {
			return conflict(err)
		}
		course.EmbeddingProgress = 0
		course.EmbeddingError = ""
		return e.store.UpdateCourse(ctx, course)
	})
	if err != nil {
		return nil, storeErr(err)
	}
	if err := e.scheduler.Enqueue(scheduler.NewJob(scheduler.KindEmbedCourse, courseID)); err != nil {
		return nil, err
	}
	return statusReport(course), nil
}

// GetEmbeddingStatus returns the embedding state of a course.
func (e *Engine) GetEmbeddingStatus(ctx context.Context, courseID core.ID) (*EmbeddingStatusReport, error) {
	course, err := e.store.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return statusReport(course), nil
}

func statusReport(course *core.Course) *EmbeddingStatusReport {
	return &EmbeddingStatusReport{
		CourseID: course.ID,
		Status:   cmp.Or(course.EmbeddingStatus, core.EmbeddingNotStarted),
		Progress: course.EmbeddingProgress,
		Error:    course.EmbeddingError,
	}
}

// CourseOutline returns the course with its lectures and sections.
func (e *Engine) CourseOutline(ctx context.Context, courseID core.ID) (*assembly.CourseOutline, error) {
	return e.assembler.Outline(ctx, courseID)
}

// ListChunks returns a page of chunks ordered by section and position.
// A limit of zero selects DefaultChunkPageSize; larger limits are capped at MaxChunkPageSize.
func (e *Engine) ListChunks(ctx context.Context, courseID core.ID, limit, offset int) (*ChunkPage, error) {
	if limit <= 0 {
		limit = DefaultChunkPageSize
	}
	limit = min(limit, MaxChunkPageSize)
	offset = max(offset, 0)

	if _, err := e.store.GetCourse(ctx, courseID); err != nil {
		return nil, err
	}
	chunks, err := e.store.ListChunks(ctx, courseID)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(chunks, func(a, b *core.Chunk) int {
		return cmp.Or(cmp.Compare(a.SectionID, b.SectionID), cmp.Compare(a.OrderInSection, b.OrderInSection))
	})

	page := &ChunkPage{Total: len(chunks), Items: []*core.Chunk{}}
	if offset < len(chunks) {
		page.Items = chunks[offset:min(offset+limit, len(chunks))]
	}
	return page, nil
}

// AssembleCourse rebuilds sections and chunks, then validates them.
// The rebuild runs as a job on the worker, behind any jobs already queued,
// and AssembleCourse waits for it.
// Returns ErrNotReady unless every resource of the course has succeeded.
func (e *Engine) AssembleCourse(ctx context.Context, courseID core.ID) (*assembly.CourseOutline, error) {
	if _, err := e.store.GetCourse(ctx, courseID); err != nil {
		return nil, err
	}
	if err := e.scheduler.Submit(ctx, scheduler.NewJob(scheduler.KindAssembleCourse, courseID)); err != nil {
		return nil, err
	}
	return e.assembler.Outline(ctx, courseID)
}

// UpdateSection changes the title and/or summary of a section.
// Nil arguments leave the field unchanged.
func (e *Engine) UpdateSection(ctx context.Context, sectionID core.ID, title, summary *string) (*core.Section, error) {
	var section *core.Section
	err := e.store.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		section, err = e.store.GetSection(ctx, sectionID)
		if err != nil {
			return err
		}
		if title != nil {
			section.Title = *title
		}
		if summary != nil {
			section.Summary = *summary
		}
		return e.store.UpdateSection(ctx, section)
	})
	if err != nil {
		return nil, storeErr(err)
	}
	return section, nil
}

// SearchCourse embeds query and returns the closest chunks of the course.
// Nil filter values are ignored. topK is clamped to [1, MaxSearchTopK],
// with zero selecting vectorstore.DefaultTopK.
func (e *Engine) SearchCourse(ctx context.Context, courseID core.ID, query string, topK int, filter map[string]any) ([]SearchResult, error) {
	course, err := e.store.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if course.EmbeddingStatus != core.EmbeddingDone {
		return nil, ErrEmbeddingNotReady
	}
	return e.searcher.Search(ctx, courseID, query, topK, filter)
}

// VectorCount returns the number of stored vectors of a course.
func (e *Engine) VectorCount(ctx context.Context, courseID core.ID) (int, error) {
	return e.vectors.Count(ctx, courseID)
}

// ListCollections returns the names of all vector collections.
func (e *Engine) ListCollections(ctx context.Context) ([]string, error) {
	return e.vectors.ListCollections(ctx)
}

// ValidateCourse checks the stored chunks of one course.
func (e *Engine) ValidateCourse(ctx context.Context, courseID core.ID) (validation.Report, error) {
	if _, err := e.store.GetCourse(ctx, courseID); err != nil {
		return validation.Report{}, err
	}
	return e.gate.ValidateCourse(ctx, courseID)
}

// ValidateAll checks the stored chunks of every course.
func (e *Engine) ValidateAll(ctx context.Context) (validation.Report, error) {
	return e.gate.ValidateAll(ctx)
}
