package embedding

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrNoChunks is returned when a course has nothing to embed.
	ErrNoChunks = errors.New("no chunks available for embedding")

	// ErrEmbeddingFailed wraps the last provider error once retries are exhausted.
	ErrEmbeddingFailed = errors.New("embedding_batch_failed")

	// ErrDimensionMismatch is returned when the provider returns vectors of inconsistent size.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrVectorStore wraps a vector store upsert failure.
	ErrVectorStore = errors.New("vector_store_error")

	// ErrStoreRequired is returned when no storage is provided.
	ErrStoreRequired = errors.New("store required")

	// ErrEmbedderRequired is returned when no embedder is provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrVectorStoreRequired is returned when no vector store is provided.
	ErrVectorStoreRequired = errors.New("vector store required")
)
