package badger

import (
	"context"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/syllabus/core"
	"github.com/poiesic/syllabus/storage"
)

// AddContentPieces stores new pieces and their resource and course index entries.
func (s *Store) AddContentPieces(ctx context.Context, pieces ...*core.ContentPiece) ([]*core.ContentPiece, error) {
	err := s.backend.update(ctx, func(tx *badger.Txn) error {
		for _, piece := range pieces {
			id, err := nextID(s.pieceSeq)
			if err != nil {
				return err
			}
			piece.ID = id
			if piece.Language == "" {
				piece.Language = core.DefaultLanguage
			}

			if err := writeRecord(tx, makePieceKey(piece.ID), piece); err != nil {
				return err
			}
			value := storage.MarshalID(piece.ID)
			if err := tx.Set(makePieceResourceKey(piece), value); err != nil {
				return err
			}
			if err := tx.Set(makePieceCourseKey(piece.CourseID, piece.ID), value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pieces, nil
}

// UpdateContentPieces overwrites existing pieces.
// Only the section back-reference is expected to change, so indexes are left alone.
func (s *Store) UpdateContentPieces(ctx context.Context, pieces ...*core.ContentPiece) error {
	return s.backend.update(ctx, func(tx *badger.Txn) error {
		for _, piece := range pieces {
			key := makePieceKey(piece.ID)
			old, err := readRecord[core.ContentPiece](tx, key)
			if err != nil {
				return err
			}
			if old == nil {
				return storage.ErrNotFound
			}
			if err := writeRecord(tx, key, piece); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListContentPiecesByResource returns the pieces of a resource ordered by (OrderInResource, ID).
func (s *Store) ListContentPiecesByResource(ctx context.Context, resourceID core.ID) ([]*core.ContentPiece, error) {
	return s.listPieces(ctx, makeKey(pieceResourcePrefix, uint64(resourceID)))
}

// ListContentPiecesByCourse returns all pieces of a course ordered by ID.
func (s *Store) ListContentPiecesByCourse(ctx context.Context, courseID core.ID) ([]*core.ContentPiece, error) {
	return s.listPieces(ctx, makeKey(pieceCoursePrefix, uint64(courseID)))
}

// DeleteContentPiecesByResource removes all pieces of a resource.
func (s *Store) DeleteContentPiecesByResource(ctx context.Context, resourceID core.ID) (int, error) {
	pieces, err := s.ListContentPiecesByResource(ctx, resourceID)
	if err != nil {
		return 0, err
	}
	keys := make([][]byte, 0, len(pieces)*3)
	for _, piece := range pieces {
		keys = append(keys,
			makePieceKey(piece.ID),
			makePieceResourceKey(piece),
			makePieceCourseKey(piece.CourseID, piece.ID),
		)
	}
	if err := s.backend.deleteKeys(ctx, keys); err != nil {
		return 0, err
	}
	return len(pieces), nil
}

// ClearSectionAssignments resets SectionID on every piece of a course.
func (s *Store) ClearSectionAssignments(ctx context.Context, courseID core.ID) error {
	pieces, err := s.ListContentPiecesByCourse(ctx, courseID)
	if err != nil {
		return err
	}
	var assigned []*core.ContentPiece
	for _, piece := range pieces {
		if piece.SectionID != 0 {
			piece.SectionID = 0
			assigned = append(assigned, piece)
		}
	}
	if len(assigned) == 0 {
		return nil
	}
	return s.UpdateContentPieces(ctx, assigned...)
}

func (s *Store) listPieces(ctx context.Context, prefix []byte) ([]*core.ContentPiece, error) {
	var results []*core.ContentPiece
	err := s.backend.view(ctx, func(tx *badger.Txn) error {
		return scanIndex(tx, prefix, func(_ []byte, id core.ID) error {
			piece, err := readRecord[core.ContentPiece](tx, makePieceKey(id))
			if err != nil {
				return err
			}
			if piece != nil {
				results = append(results, piece)
			}
			return nil
		})
	})
	return results, err
}
