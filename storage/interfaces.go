package storage

import (
	"context"

	"github.com/poiesic/syllabus/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// Repository calls made with the context passed to fn join the transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed; a concurrent write to the
	// same keys makes the commit fail with ErrConflict.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close releases resources held by the repository.
	Close() error
}

// CourseRepository provides operations for managing courses.
type CourseRepository interface {
	// CreateCourse stores a new course, assigning ID and timestamps.
	CreateCourse(ctx context.Context, course *core.Course) (*core.Course, error)

	// GetCourse retrieves a course by ID.
	// Returns ErrNotFound if the course doesn't exist.
	GetCourse(ctx context.Context, id core.ID) (*core.Course, error)

	// UpdateCourse overwrites an existing course.
	// Returns ErrNotFound if the course doesn't exist.
	UpdateCourse(ctx context.Context, course *core.Course) error

	// ListCourses returns all courses ordered by ID.
	ListCourses(ctx context.Context) ([]*core.Course, error)
}

// LectureRepository provides operations for managing lectures.
type LectureRepository interface {
	// CreateLecture stores a new lecture, assigning ID and timestamps.
	CreateLecture(ctx context.Context, lecture *core.Lecture) (*core.Lecture, error)

	// GetLecture retrieves a lecture by ID.
	// Returns ErrNotFound if the lecture doesn't exist.
	GetLecture(ctx context.Context, id core.ID) (*core.Lecture, error)

	// ListLectures returns the lectures of a course ordered by (OrderIndex, ID).
	ListLectures(ctx context.Context, courseID core.ID) ([]*core.Lecture, error)
}

// ResourceRepository provides operations for managing resources.
type ResourceRepository interface {
	// CreateResource stores a new resource, assigning ID and timestamps.
	CreateResource(ctx context.Context, resource *core.Resource) (*core.Resource, error)

	// GetResource retrieves a resource by ID.
	// Returns ErrNotFound if the resource doesn't exist.
	GetResource(ctx context.Context, id core.ID) (*core.Resource, error)

	// UpdateResource overwrites an existing resource.
	// Returns ErrNotFound if the resource doesn't exist.
	UpdateResource(ctx context.Context, resource *core.Resource) error

	// ListResources returns the resources of a course ordered by ID.
	ListResources(ctx context.Context, courseID core.ID) ([]*core.Resource, error)
}

// ContentPieceRepository provides operations for managing content pieces.
type ContentPieceRepository interface {
	// AddContentPieces stores new pieces, assigning IDs.
	AddContentPieces(ctx context.Context, pieces ...*core.ContentPiece) ([]*core.ContentPiece, error)

	// UpdateContentPieces overwrites existing pieces.
	// Returns ErrNotFound if any piece doesn't exist.
	UpdateContentPieces(ctx context.Context, pieces ...*core.ContentPiece) error

	// ListContentPiecesByResource returns the pieces of a resource ordered by (OrderInResource, ID).
	ListContentPiecesByResource(ctx context.Context, resourceID core.ID) ([]*core.ContentPiece, error)

	// ListContentPiecesByCourse returns all pieces of a course ordered by ID.
	ListContentPiecesByCourse(ctx context.Context, courseID core.ID) ([]*core.ContentPiece, error)

	// DeleteContentPiecesByResource removes all pieces of a resource and returns how many were removed.
	DeleteContentPiecesByResource(ctx context.Context, resourceID core.ID) (int, error)

	// ClearSectionAssignments resets SectionID on every piece of a course.
	ClearSectionAssignments(ctx context.Context, courseID core.ID) error
}

// SectionRepository provides operations for managing sections.
type SectionRepository interface {
	// AddSections stores new sections, assigning IDs.
	AddSections(ctx context.Context, sections ...*core.Section) ([]*core.Section, error)

	// GetSection retrieves a section by ID.
	// Returns ErrNotFound if the section doesn't exist.
	GetSection(ctx context.Context, id core.ID) (*core.Section, error)

	// UpdateSection overwrites an existing section.
	// Returns ErrNotFound if the section doesn't exist.
	UpdateSection(ctx context.Context, section *core.Section) error

	// ListSectionsByLecture returns the sections of a lecture ordered by (OrderIndex, ID).
	ListSectionsByLecture(ctx context.Context, lectureID core.ID) ([]*core.Section, error)

	// DeleteSectionsByCourse removes all sections of a course and returns how many were removed.
	DeleteSectionsByCourse(ctx context.Context, courseID core.ID) (int, error)
}

// ChunkRepository provides operations for managing chunks.
type ChunkRepository interface {
	// AddChunks stores new chunks, assigning IDs.
	AddChunks(ctx context.Context, chunks ...*core.Chunk) ([]*core.Chunk, error)

	// ListChunks returns the chunks of a course ordered by (SectionID, OrderInSection, ID).
	ListChunks(ctx context.Context, courseID core.ID) ([]*core.Chunk, error)

	// CountChunks returns the number of chunks of a course.
	CountChunks(ctx context.Context, courseID core.ID) (int, error)

	// DeleteChunksByCourse removes all chunks of a course and returns how many were removed.
	DeleteChunksByCourse(ctx context.Context, courseID core.ID) (int, error)
}

// Store aggregates every repository of one storage backend.
type Store interface {
	Repository
	CourseRepository
	LectureRepository
	ResourceRepository
	ContentPieceRepository
	SectionRepository
	ChunkRepository
}
