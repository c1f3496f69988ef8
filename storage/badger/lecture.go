package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/syllabus/core"
	"github.com/poiesic/syllabus/storage"
)

// CreateLecture stores a new lecture and its course index entry.
func (s *Store) CreateLecture(ctx context.Context, lecture *core.Lecture) (*core.Lecture, error) {
	err := s.backend.update(ctx, func(tx *badger.Txn) error {
		id, err := nextID(s.lectureSeq)
		if err != nil {
			return err
		}
		lecture.ID = id
		lecture.CreatedAt = time.Now().UTC()
		lecture.UpdatedAt = lecture.CreatedAt

		if err := writeRecord(tx, makeLectureKey(lecture.ID), lecture); err != nil {
			return err
		}
		return tx.Set(makeLectureCourseKey(lecture), storage.MarshalID(lecture.ID))
	})
	if err != nil {
		return nil, err
	}
	return lecture, nil
}

// GetLecture retrieves a lecture by ID.
func (s *Store) GetLecture(ctx context.Context, id core.ID) (*core.Lecture, error) {
	var result *core.Lecture
	err := s.backend.view(ctx, func(tx *badger.Txn) error {
		var err error
		result, err = readRecord[core.Lecture](tx, makeLectureKey(id))
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

// ListLectures returns the lectures of a course ordered by (OrderIndex, ID).
func (s *Store) ListLectures(ctx context.Context, courseID core.ID) ([]*core.Lecture, error) {
	var results []*core.Lecture
	err := s.backend.view(ctx, func(tx *badger.Txn) error {
		return scanIndex(tx, makeKey(lectureCoursePrefix, uint64(courseID)), func(_ []byte, id core.ID) error {
			lecture, err := readRecord[core.Lecture](tx, makeLectureKey(id))
			if err != nil {
				return err
			}
			if lecture != nil {
				results = append(results, lecture)
			}
			return nil
		})
	})
	return results, err
}
