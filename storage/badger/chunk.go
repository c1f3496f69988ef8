package badger

import (
	"context"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/syllabus/core"
	"github.com/poiesic/syllabus/storage"
)

// AddChunks stores new chunks and their course index entries.
func (s *Store) AddChunks(ctx context.Context, chunks ...*core.Chunk) ([]*core.Chunk, error) {
	err := s.backend.update(ctx, func(tx *badger.Txn) error {
		for _, chunk := range chunks {
			id, err := nextID(s.chunkSeq)
			if err != nil {
				return err
			}
			chunk.ID = id

			if err := writeRecord(tx, makeChunkKey(chunk.ID), chunk); err != nil {
				return err
			}
			if err := tx.Set(makeChunkCourseKey(chunk), storage.MarshalID(chunk.ID)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return chunks, nil
}

// ListChunks returns the chunks of a course ordered by (SectionID, OrderInSection, ID).
func (s *Store) ListChunks(ctx context.Context, courseID core.ID) ([]*core.Chunk, error) {
	var results []*core.Chunk
	err := s.backend.view(ctx, func(tx *badger.Txn) error {
		return scanIndex(tx, makeKey(chunkCoursePrefix, uint64(courseID)), func(_ []byte, id core.ID) error {
			chunk, err := readRecord[core.Chunk](tx, makeChunkKey(id))
			if err != nil {
				return err
			}
			if chunk != nil {
				results = append(results, chunk)
			}
			return nil
		})
	})
	return results, err
}

// CountChunks returns the number of chunks of a course without decoding them.
func (s *Store) CountChunks(ctx context.Context, courseID core.ID) (int, error) {
	count := 0
	err := s.backend.view(ctx, func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = makeKey(chunkCoursePrefix, uint64(courseID))
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// DeleteChunksByCourse removes all chunks of a course.
func (s *Store) DeleteChunksByCourse(ctx context.Context, courseID core.ID) (int, error) {
	var keys [][]byte
	count := 0
	err := s.backend.view(ctx, func(tx *badger.Txn) error {
		return scanIndex(tx, makeKey(chunkCoursePrefix, uint64(courseID)), func(indexKey []byte, id core.ID) error {
			keys = append(keys, indexKey, makeChunkKey(id))
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
