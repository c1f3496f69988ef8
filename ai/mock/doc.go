// Package mock provides test double implementations of AI service interfaces.
//
// MockEmbedder returns deterministic vectors derived from a text hash unless
// a custom function is injected:
//
//	embedder := mock.NewMockEmbedder().
//	    WithEmbedTextsFunc(func(ctx context.Context, texts []string) ([][]float32, error) {
//	        return nil, errors.New("provider down")
//	    })
//
//	count := embedder.CallCount()
package mock
