package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/syllabus/core"
	"github.com/poiesic/syllabus/storage"
)

// CreateResource stores a new resource and its course index entry.
func (s *Store) CreateResource(ctx context.Context, resource *core.Resource) (*core.Resource, error) {
	err := s.backend.update(ctx, func(tx *badger.Txn) error {
		id, err := nextID(s.resSeq)
		if err != nil {
			return err
		}
		resource.ID = id
		resource.CreatedAt = time.Now().UTC()
		resource.UpdatedAt = resource.CreatedAt

		if err := writeRecord(tx, makeResourceKey(resource.ID), resource); err != nil {
			return err
		}
		return tx.Set(makeResourceCourseKey(resource.CourseID, resource.ID), storage.MarshalID(resource.ID))
	})
	if err != nil {
		return nil, err
	}
	return resource, nil
}

// GetResource retrieves a resource by ID.
func (s *Store) GetResource(ctx context.Context, id core.ID) (*core.Resource, error) {
	var result *core.Resource
	err := s.backend.view(ctx, func(tx *badger.Txn) error {
		var err error
		result, err = readRecord[core.Resource](tx, makeResourceKey(id))
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

// UpdateResource overwrites an existing resource.
// The course binding is fixed at creation and is not re-indexed.
func (s *Store) UpdateResource(ctx context.Context, resource *core.Resource) error {
	return s.backend.update(ctx, func(tx *badger.Txn) error {
		key := makeResourceKey(resource.ID)
		old, err := readRecord[core.Resource](tx, key)
		if err != nil {
			return err
		}
		if old == nil {
			return storage.ErrNotFound
		}
		resource.CourseID = old.CourseID
		resource.CreatedAt = old.CreatedAt
		resource.UpdatedAt = time.Now().UTC()
		return writeRecord(tx, key, resource)
	})
}

// ListResources returns the resources of a course ordered by ID.
func (s *Store) ListResources(ctx context.Context, courseID core.ID) ([]*core.Resource, error) {
	var results []*core.Resource
	err := s.backend.view(ctx, func(tx *badger.Txn) error {
		return scanIndex(tx, makeKey(resourceCoursePrefix, uint64(courseID)), func(_ []byte, id core.ID) error {
			resource, err := readRecord[core.Resource](tx, makeResourceKey(id))
			if err != nil {
				return err
			}
			if resource != nil {
				results = append(results, resource)
			}
			return nil
		})
	})
	return results, err
}
