package ai

import "context"

// Embedder turns text into vectors. Implementations are safe for concurrent use.
type Embedder interface {
	// EmbedText embeds a single search query.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts embeds a batch of chunk texts, one vector per text in input order.
	// Errors are treated as transient by the embedding pipeline.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// ModelDescriber is implemented by embedders that know which model serves them.
type ModelDescriber interface {
	Model() string
}

// ModelName returns the model behind e, or "" when e does not say.
func ModelName(e Embedder) string {
	if d, ok := e.(ModelDescriber); ok {
		return d.Model()
	}
	return ""
}

// AIProvider owns an Embedder. Close invalidates it.
type AIProvider interface {
	Embedder() Embedder
	Close() error
}
