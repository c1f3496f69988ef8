package search

import "errors"

var (
	// ErrEmbedderRequired is returned when no embedder is provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrVectorStoreRequired is returned when no vector store is provided.
	ErrVectorStoreRequired = errors.New("vector store required")

	// ErrEmptyQuery is returned when a search query is blank.
	ErrEmptyQuery = errors.New("query must not be empty")

	// ErrEmbeddingUnavailable wraps an embedder failure during search.
	ErrEmbeddingUnavailable = errors.New("embedding_service_unavailable")
)
