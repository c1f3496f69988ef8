package badger

import (
	"context"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/syllabus/core"
	"github.com/poiesic/syllabus/storage"
)

// AddSections stores new sections and their lecture and course index entries.
func (s *Store) AddSections(ctx context.Context, sections ...*core.Section) ([]*core.Section, error) {
	err := s.backend.update(ctx, func(tx *badger.Txn) error {
		for _, section := range sections {
			id, err := nextID(s.sectionSeq)
			if err != nil {
				return err
			}
			section.ID = id

			if err := writeRecord(tx, makeSectionKey(section.ID), section); err != nil {
				return err
			}
			value := storage.MarshalID(section.ID)
			if err := tx.Set(makeSectionLectureKey(section), value); err != nil {
				return err
			}
			if err := tx.Set(makeSectionCourseKey(section.CourseID, section.ID), value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sections, nil
}

// GetSection retrieves a section by ID.
func (s *Store) GetSection(ctx context.Context, id core.ID) (*core.Section, error) {
	var result *core.Section
	err := s.backend.view(ctx, func(tx *badger.Txn) error {
		var err error
		result, err = readRecord[core.Section](tx, makeSectionKey(id))
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

// UpdateSection overwrites an existing section.
// Lecture binding and order are fixed by assembly, so the indexes are kept.
func (s *Store) UpdateSection(ctx context.Context, section *core.Section) error {
	return s.backend.update(ctx, func(tx *badger.Txn) error {
		key := makeSectionKey(section.ID)
		old, err := readRecord[core.Section](tx, key)
		if err != nil {
			return err
		}
		if old == nil {
			return storage.ErrNotFound
		}
		section.CourseID = old.CourseID
		section.LectureID = old.LectureID
		section.OrderIndex = old.OrderIndex
		return writeRecord(tx, key, section)
	})
}

// ListSectionsByLecture returns the sections of a lecture ordered by (OrderIndex, ID).
func (s *Store) ListSectionsByLecture(ctx context.Context, lectureID core.ID) ([]*core.Section, error) {
	var results []*core.Section
	err := s.backend.view(ctx, func(tx *badger.Txn) error {
		return scanIndex(tx, makeKey(sectionLecturePrefix, uint64(lectureID)), func(_ []byte, id core.ID) error {
			section, err := readRecord[core.Section](tx, makeSectionKey(id))
			if err != nil {
				return err
			}
			if section != nil {
				results = append(results, section)
			}
			return nil
		})
	})
	return results, err
}

// DeleteSectionsByCourse removes all sections of a course.
func (s *Store) DeleteSectionsByCourse(ctx context.Context, courseID core.ID) (int, error) {
	var keys [][]byte
	count := 0
	err := s.backend.view(ctx, func(tx *badger.Txn) error {
		return scanIndex(tx, makeKey(sectionCoursePrefix, uint64(courseID)), func(indexKey []byte, id core.ID) error {
			keys = append(keys, indexKey)
			section, err := readRecord[core.Section](tx, makeSectionKey(id))
			if err != nil {
				return err
			}
			if section == nil {
				return nil
			}
			keys = append(keys, makeSectionKey(id), makeSectionLectureKey(section))
			count++
			return nil
		})
	})
	if err != nil {
		return 0, err
	}
	if err := s.backend.deleteKeys(ctx, keys); err != nil {
		return 0, err
	}
	return count, nil
}
