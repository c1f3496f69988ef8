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

package assembly

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/poiesic/syllabus/core"
	"github.com/poiesic/syllabus/storage"
)

// ErrStoreRequired is returned when no storage is provided.
var ErrStoreRequired = errors.New("store required")

// Result counts what one assembly run produced.
type Result struct {
	Lectures int
	Sections int
	Chunks   int
}

// Assembler rebuilds sections and chunks for courses whose resources have all succeeded.
type Assembler struct {
	repo          storage.Store
	sectionBounds Bounds
	chunkBounds   Bounds
	minChunkChars int
	logger        *slog.Logger

	rebuildMu sync.Mutex
}

// Option configures an Assembler.
type Option func(*Assembler) error

// WithSectionBounds overrides DefaultSectionBounds.
func WithSectionBounds(b Bounds) Option {
	return func(a *Assembler) error {
		if b.Min < 1 || b.Max < b.Min {
			return fmt.Errorf("invalid section bounds [%d, %d]", b.Min, b.Max)
		}
		a.sectionBounds = b
		return nil
	}
}

// WithChunkBounds overrides DefaultChunkBounds.
func WithChunkBounds(b Bounds) Option {
	return func(a *Assembler) error {
		if b.Min < 1 || b.Max < b.Min {
			return fmt.Errorf("invalid chunk bounds [%d, %d]", b.Min, b.Max)
		}
		a.chunkBounds = b
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(a *Assembler) error {
		if logger == nil {
			logger = slog.Default()
		}
		a.logger = logger
		return nil
	}
}

// New creates an Assembler.
func New(repo storage.Store, opts ...Option) (*Assembler, error) {
	if repo == nil {
		return nil, ErrStoreRequired
	}
	a := &Assembler{
		repo:          repo,
		sectionBounds: DefaultSectionBounds,
		chunkBounds:   DefaultChunkBounds,
		minChunkChars: MinChunkChars,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}
	a.logger = a.logger.With("component", "assembly")
	return a, nil
}

// Ready reports whether the course has resources and all of them succeeded.
func (a *Assembler) Ready(ctx context.Context, courseID core.ID) (bool, error) {
	resources, err := a.repo.ListResources(ctx, courseID)
	if err != nil {
		return false, err
	}
	if len(resources) == 0 {
		return false, nil
	}
	for _, r := range resources {
		if r.Status != core.ResourceStatusSucceeded {
			return false, nil
		}
	}
	return true, nil
}

// AssembleCourseIfReady rebuilds the course's sections and chunks when it is Ready.
// Returns false without writing anything otherwise.
func (a *Assembler) AssembleCourseIfReady(ctx context.Context, courseID core.ID) (bool, error) {
	ready, err := a.Ready(ctx, courseID)
	if err != nil || !ready {
		return false, err
	}
	if _, err := a.Rebuild(ctx, courseID); err != nil {
		return true, err
	}
	return true, nil
}

// Rebuild discards the course's sections and chunks and regenerates them
// from its content pieces. Clearing and regenerating commit as one
// transaction, and rebuilds through the same Assembler run one at a time.
func (a *Assembler) Rebuild(ctx context.Context, courseID core.ID) (Result, error) {
	a.rebuildMu.Lock()
	defer a.rebuildMu.Unlock()

	var result Result
	err := a.repo.WithTransaction(ctx, func(ctx context.Context) error {
		result = Result{}
		return a.rebuild(ctx, courseID, &result)
	})
	if err != nil {
		return Result{}, err
	}
	a.logger.Info("course assembled", "course", courseID, "lectures", result.Lectures, "sections", result.Sections, "chunks", result.Chunks)
	return result, nil
}

func (a *Assembler) rebuild(ctx context.Context, courseID core.ID, result *Result) error {
	pieces, err := a.repo.ListContentPiecesByCourse(ctx, courseID)
	if err != nil {
		return err
	}
	if err := a.clear(ctx, courseID); err != nil {
		return fmt.Errorf("clearing course %d: %w", courseID, err)
	}

	lectures, err := a.repo.ListLectures(ctx, courseID)
	if err != nil {
		return err
	}

	byLecture := make(map[core.ID][]*core.ContentPiece)
	for _, piece := range pieces {
		if strings.TrimSpace(piece.Text) == "" {
			continue
		}
		piece.SectionID = 0
		byLecture[piece.LectureID] = append(byLecture[piece.LectureID], piece)
	}

	for _, lecture := range lectures {
		lecturePieces := byLecture[lecture.ID]
		if len(lecturePieces) == 0 {
			continue
		}
		slices.SortStableFunc(lecturePieces, func(x, y *core.ContentPiece) int {
			return cmp.Or(cmp.Compare(x.OrderInResource, y.OrderInResource), cmp.Compare(x.ID, y.ID))
		})

		sections, chunks, err := a.assembleLecture(ctx, lecture, lecturePieces)
		if err != nil {
			return fmt.Errorf("assembling lecture %d: %w", lecture.ID, err)
		}
		result.Lectures++
		result.Sections += sections
		result.Chunks += chunks
	}
	return nil
}

func (a *Assembler) clear(ctx context.Context, courseID core.ID) error {
	if err := a.repo.ClearSectionAssignments(ctx, courseID); err != nil {
		return err
	}
	if _, err := a.repo.DeleteChunksByCourse(ctx, courseID); err != nil {
		return err
	}
	_, err := a.repo.DeleteSectionsByCourse(ctx, courseID)
	return err
}

func (a *Assembler) assembleLecture(ctx context.Context, lecture *core.Lecture, pieces []*core.ContentPiece) (int, int, error) {
	var assigned []*core.ContentPiece
	sectionCount, chunkCount := 0, 0

	for i, group := range GroupSections(pieces, a.sectionBounds) {
		section := NewSection(lecture, i+1, group)
		if section == nil {
			continue
		}
		if _, err := a.repo.AddSections(ctx, section); err != nil {
			return 0, 0, err
		}
		sectionCount++

		for _, piece := range group {
			piece.SectionID = section.ID
		}
		assigned = append(assigned, group...)

		chunks := BuildChunks(section, group, a.chunkBounds, a.minChunkChars)
		if len(chunks) == 0 {
			continue
		}
		if _, err := a.repo.AddChunks(ctx, chunks...); err != nil {
			return 0, 0, err
		}
		chunkCount += len(chunks)
	}

	if len(assigned) > 0 {
		if err := a.repo.UpdateContentPieces(ctx, assigned...); err != nil {
			return 0, 0, err
		}
	}
	return sectionCount, chunkCount, nil
}
