package services

import "context"

// Embedder turns memory text into vectors for the store.
type Embedder interface {
	EmbedDocument(ctx context.Context, text string) ([]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

type geminiEmbedder struct {
	gemini *GeminiClient
}

func NewGeminiEmbedder(gemini *GeminiClient) Embedder {
	return &geminiEmbedder{gemini: gemini}
}

func (e *geminiEmbedder) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	return e.gemini.EmbedContent(ctx, text, "RETRIEVAL_DOCUMENT")
}

func (e *geminiEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return e.gemini.EmbedContent(ctx, text, "RETRIEVAL_QUERY")
}
