package ai

import "context"

type nopEmbedder struct{}

func (nopEmbedder) EmbedText(context.Context, string) ([]float32, error) { return nil, nil }

func (nopEmbedder) EmbedTexts(context.Context, []string) ([][]float32, error) { return nil, nil }
