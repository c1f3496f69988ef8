// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package badger

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/syllabus/storage"
)

// Store implements storage.Store for BadgerDB.
// Each entity type draws IDs from its own sequence.
type Store struct {
	backend    *Backend
	courseSeq  *badger.Sequence
	lectureSeq *badger.Sequence
	resSeq     *badger.Sequence
	pieceSeq   *badger.Sequence
	sectionSeq *badger.Sequence
	chunkSeq   *badger.Sequence
}

var _ storage.Store = (*Store)(nil)

// NewStore creates a Store on top of an open backend.
func NewStore(backend *Backend) (*Store, error) {
	s := &Store{backend: backend}
	seqs := []struct {
		name string
		dst  **badger.Sequence
	}{
		{courseIDSeq, &s.courseSeq},
		{lectureIDSeq, &s.lectureSeq},
		{resourceIDSeq, &s.resSeq},
		{pieceIDSeq, &s.pieceSeq},
		{sectionIDSeq, &s.sectionSeq},
		{chunkIDSeq, &s.chunkSeq},
	}
	for _, seq := range seqs {
		allocated, err := backend.GetSequence(seq.name)
		if err != nil {
			s.Close()
			return nil, err
		}
		*seq.dst = allocated
	}
	return s, nil
}

// Close releases the ID sequences. The backend stays open.
func (s *Store) Close() error {
	var errs []error
	for _, seq := range []*badger.Sequence{s.courseSeq, s.lectureSeq, s.resSeq, s.pieceSeq, s.sectionSeq, s.chunkSeq} {
		if seq == nil {
			continue
		}
		if err := seq.Release(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WithTransaction delegates to the backend.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.backend.WithTransaction(ctx, fn)
}
