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

package validation

import (
	"context"
	"errors"
	"log/slog"
	"runtime"

	"github.com/poiesic/syllabus/core"
	"github.com/poiesic/syllabus/storage"
	"golang.org/x/sync/errgroup"
)

// ErrStoreRequired is returned when no storage is provided.
var ErrStoreRequired = errors.New("store required")

// Repository is the storage the gate reads chunks from.
type Repository interface {
	ListCourses(ctx context.Context) ([]*core.Course, error)
	ListChunks(ctx context.Context, courseID core.ID) ([]*core.Chunk, error)
}

var _ Repository = (storage.Store)(nil)

// Gate validates the persisted chunks of courses.
type Gate struct {
	repo        Repository
	validator   *Validator
	concurrency int
	logger      *slog.Logger
}

// Option configures a Gate.
type Option func(*Gate) error

// WithConcurrency bounds how many courses ValidateAll checks at once.
// Default is runtime.NumCPU().
func WithConcurrency(n int) Option {
	return func(g *Gate) error {
		if n < 1 {
			n = 1
		}
		g.concurrency = n
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) error {
		if logger == nil {
			logger = slog.Default()
		}
		g.logger = logger
		return nil
	}
}

// NewGate creates a validation gate.
func NewGate(repo Repository, opts ...Option) (*Gate, error) {
	if repo == nil {
		return nil, ErrStoreRequired
	}
	g := &Gate{
		repo:        repo,
		validator:   NewValidator(),
		concurrency: runtime.NumCPU(),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, err
		}
	}
	g.logger = g.logger.With("component", "validation")
	return g, nil
}

// ValidateCourse checks every chunk of a course.
func (g *Gate) ValidateCourse(ctx context.Context, courseID core.ID) (Report, error) {
	chunks, err := g.repo.ListChunks(ctx, courseID)
	if err != nil {
		return Report{}, err
	}
	report := g.validator.Validate(chunks)
	if !report.OK {
		g.logger.Warn("chunk validation failed", "course", courseID, "checked", report.Checked, "issues", len(report.Issues))
	}
	return report, nil
}

// ValidateAll checks the chunks of every course, several courses at a time.
// Issues are reported in course order.
func (g *Gate) ValidateAll(ctx context.Context) (Report, error) {
	courses, err := g.repo.ListCourses(ctx)
	if err != nil {
		return Report{}, err
	}

	reports := make([]Report, len(courses))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.concurrency)
	for i, course := range courses {
		eg.Go(func() error {
			report, err := g.ValidateCourse(egCtx, course.ID)
			if err != nil {
				return err
			}
			reports[i] = report
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return Report{}, err
	}

	total := Report{OK: true}
	for _, report := range reports {
		total.merge(report)
	}
	return total, nil
}
