package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/poiesic/syllabus/ai"
	"github.com/poiesic/syllabus/core"
	"github.com/poiesic/syllabus/vectorstore"
)

// BatchProcessor embeds one batch of chunks and writes the vectors to the course collection.
// It remembers the vector size of the first batch and rejects later batches of a different size.
type BatchProcessor struct {
	embedder    ai.Embedder
	vectors     vectorstore.Store
	maxAttempts int
	retryDelay  time.Duration
	logger      *slog.Logger
	dimension   int
}

// NewBatchProcessor creates a new batch processor.
// maxAttempts: total provider calls per batch before giving up
// retryDelay: fixed pause between attempts
func NewBatchProcessor(embedder ai.Embedder, vectors vectorstore.Store, maxAttempts int, retryDelay time.Duration, logger *slog.Logger) *BatchProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchProcessor{
		embedder:    embedder,
		vectors:     vectors,
		maxAttempts: maxAttempts,
		retryDelay:  retryDelay,
		logger:      logger,
	}
}

// Dimension returns the vector size seen so far, or 0 before the first batch.
func (bp *BatchProcessor) Dimension() int {
	return bp.dimension
}

// Process embeds the chunks and upserts them into the collection of courseID.
// Provider errors are retried; a size mismatch or a vector store error is returned immediately.
// The returned error wraps ErrEmbeddingFailed or ErrVectorStore.
func (bp *BatchProcessor) Process(ctx context.Context, courseID core.ID, chunks []*core.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	var vectors [][]float32
	err := RetryWithDelay(ctx, bp.logger, bp.maxAttempts, bp.retryDelay, func(attempt int) error {
		var err error
		vectors, err = bp.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return err
		}
		if len(vectors) != len(texts) {
			return fmt.Errorf("embedding count mismatch: expected %d, got %d", len(texts), len(vectors))
		}
		dim, err := CheckDimensions(vectors, bp.dimension)
		if err != nil {
			return Permanent(err)
		}
		bp.dimension = dim
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return 0, err
		}
		return 0, fmt.Errorf("%w: %w", ErrEmbeddingFailed, err)
	}

	items := make([]vectorstore.Item, len(chunks))
	for i, chunk := range chunks {
		items[i] = vectorstore.Item{
			ID:       strconv.FormatUint(uint64(chunk.ID), 10),
			Text:     chunk.Text,
			Vector:   NormalizeVector(vectors[i]),
			Metadata: ItemMetadata(chunk),
		}
	}

	written, err := bp.vectors.Upsert(ctx, courseID, items)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrVectorStore, err)
	}
	return written, nil
}

// ItemMetadata returns the searchable metadata of a chunk, omitting unset values.
func ItemMetadata(chunk *core.Chunk) map[string]any {
	metadata := map[string]any{}
	if chunk.CourseID != 0 {
		metadata["course_id"] = uint64(chunk.CourseID)
	}
	if chunk.LectureID != 0 {
		metadata["lecture_id"] = uint64(chunk.LectureID)
	}
	if chunk.SectionID != 0 {
		metadata["section_id"] = uint64(chunk.SectionID)
	}
	if chunk.SourceType != "" {
		metadata["source_type"] = string(chunk.SourceType)
	}
	if chunk.Language != "" {
		metadata["language"] = chunk.Language
	}
	if chunk.OrderInSection != 0 {
		metadata["order_in_section"] = chunk.OrderInSection
	}
	return metadata
}
