package search

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/poiesic/syllabus/ai"
	"github.com/poiesic/syllabus/core"
	"github.com/poiesic/syllabus/embedding"
	"github.com/poiesic/syllabus/vectorstore"
)

// MaxTopK caps the number of results of one query.
const MaxTopK = 20

// Result is one chunk matched by a query.
type Result struct {
	ChunkID  core.ID        `json:"chunk_id"`
	Score    float32        `json:"score"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
	// Verbatim is set when every significant query word appears in Text.
	Verbatim bool `json:"verbatim"`
}

// Searcher runs semantic queries over course collections.
type Searcher struct {
	embedder ai.Embedder
	vectors  vectorstore.Store
	logger   *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(embedder ai.Embedder, vectors vectorstore.Store, opts ...Option) (*Searcher, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if vectors == nil {
		return nil, ErrVectorStoreRequired
	}

	s := &Searcher{
		embedder: embedder,
		vectors:  vectors,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "searcher")
	return s, nil
}

// ClampTopK maps topK into [1, MaxTopK], with zero or less selecting vectorstore.DefaultTopK.
func ClampTopK(topK int) int {
	if topK <= 0 {
		return vectorstore.DefaultTopK
	}
	return min(topK, MaxTopK)
}

// Search returns the chunks of a course closest to query.
// Nil filter values are ignored.
func (s *Searcher) Search(ctx context.Context, courseID core.ID, query string, topK int, filter map[string]any) ([]Result, error) {
	return s.SearchWithMonitor(ctx, courseID, query, topK, filter, nil)
}

// SearchWithMonitor is Search with callbacks at each stage.
func (s *Searcher) SearchWithMonitor(ctx context.Context, courseID core.ID, query string, topK int, filter map[string]any, monitor SearchMonitor) ([]Result, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	topK = ClampTopK(topK)
	monitor.Start(courseID, query)

	vector, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		s.logger.Error("error generating embedding for query", "course", courseID, "err", err)
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingUnavailable, err)
	}
	monitor.AfterEmbedding(len(vector))

	filter = vectorstore.CleanFilter(filter)
	hits, err := s.vectors.Query(ctx, courseID, embedding.NormalizeVector(vector), topK, filter)
	if err != nil {
		s.logger.Error("error querying vector store", "course", courseID, "err", err)
		return nil, fmt.Errorf("%w: %w", embedding.ErrVectorStore, err)
	}
	monitor.AfterVectorQuery(hits)

	results := make([]Result, 0, len(hits))
	for _, hit := range hits {
		id, err := strconv.ParseUint(hit.ID, 10, 64)
		if err != nil {
			s.logger.Warn("skipping hit with non-numeric id", "course", courseID, "id", hit.ID)
			monitor.SkippedHit(hit)
			continue
		}
		results = append(results, Result{
			ChunkID:  core.ID(id),
			Score:    hit.Score,
			Text:     hit.Text,
			Metadata: hit.Metadata,
			Verbatim: containsAllQueryWords(hit.Text, query),
		})
	}
	monitor.Finish(results)

	s.logger.Info("search", "course", courseID, "top_k", topK, "filters", filter, "hits", len(results))
	return results, nil
}
