package syllabus

import (
	"errors"
	"fmt"

	"github.com/poiesic/syllabus/search"
	"github.com/poiesic/syllabus/storage"
)

var (
	// ErrNotFound is returned when a course, resource or section does not exist.
	ErrNotFound = storage.ErrNotFound

	// ErrConflict is returned when a request does not fit the current state,
	// such as enqueuing a resource that is already queued.
	ErrConflict = errors.New("conflict")

	// ErrNotReady is returned by AssembleCourse while some resources have not succeeded.
	ErrNotReady = errors.New("course resources not ready for assembly")

	// ErrNoChunks is returned when embedding is requested for a course without chunks.
	ErrNoChunks = errors.New("course has no chunks")

	// ErrEmbeddingNotReady is returned when searching a course whose embedding is not done.
	ErrEmbeddingNotReady = errors.New("embedding_not_ready")

	// ErrEmptyQuery is returned when a search query is blank.
	ErrEmptyQuery = search.ErrEmptyQuery

	// ErrEmbeddingUnavailable wraps an embedder failure during search.
	ErrEmbeddingUnavailable = search.ErrEmbeddingUnavailable

	// ErrValidationFailed is returned when assembled chunks fail the schema gate.
	ErrValidationFailed = errors.New("chunk schema validation failed")
)

// conflict wraps err with ErrConflict.
func conflict(err error) error {
	return fmt.Errorf("%w: %w", ErrConflict, err)
}

// storeErr maps storage errors onto engine errors.
func storeErr(err error) error {
	if errors.Is(err, storage.ErrConflict) && !errors.Is(err, ErrConflict) {
		return conflict(err)
	}
	return err
}
