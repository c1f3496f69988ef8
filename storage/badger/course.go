package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/syllabus/core"
	"github.com/poiesic/syllabus/storage"
)

// CreateCourse stores a new course.
func (s *Store) CreateCourse(ctx context.Context, course *core.Course) (*core.Course, error) {
	err := s.backend.update(ctx, func(tx *badger.Txn) error {
		id, err := nextID(s.courseSeq)
		if err != nil {
			return err
		}
		course.ID = id
		course.CreatedAt = time.Now().UTC()
		course.UpdatedAt = course.CreatedAt
		if course.EmbeddingStatus == "" {
			course.EmbeddingStatus = core.EmbeddingNotStarted
		}
		return writeRecord(tx, makeCourseKey(course.ID), course)
	})
	if err != nil {
		return nil, err
	}
	return course, nil
}

// GetCourse retrieves a course by ID.
func (s *Store) GetCourse(ctx context.Context, id core.ID) (*core.Course, error) {
	var result *core.Course
	err := s.backend.view(ctx, func(tx *badger.Txn) error {
		var err error
		result, err = readRecord[core.Course](tx, makeCourseKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	})
	return result, err
}

// UpdateCourse overwrites an existing course.
func (s *Store) UpdateCourse(ctx context.Context, course *core.Course) error {
	return s.backend.update(ctx, func(tx *badger.Txn) error {
		key := makeCourseKey(course.ID)
		old, err := readRecord[core.Course](tx, key)
		if err != nil {
			return err
		}
		if old == nil {
			return storage.ErrNotFound
		}
		course.CreatedAt = old.CreatedAt
		course.UpdatedAt = time.Now().UTC()
		return writeRecord(tx, key, course)
	})
}

// ListCourses returns all courses ordered by ID.
func (s *Store) ListCourses(ctx context.Context) ([]*core.Course, error) {
	var results []*core.Course
	err := s.backend.view(ctx, func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(coursePrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var course *core.Course
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				course, err = storage.UnmarshalRecord[core.Course](val)
				return err
			}); err != nil {
				return err
			}
			results = append(results, course)
		}
		return nil
	})
	return results, err
}
