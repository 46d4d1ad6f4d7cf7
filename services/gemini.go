package services

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

// GeminiClient wraps the genai client with the models Memento uses.
type GeminiClient struct {
	client         *genai.Client
	chatModel      string
	embeddingModel string
}

type GeminiOption func(*GeminiClient)

func WithChatModel(model string) GeminiOption {
	return func(g *GeminiClient) {
		if model != "" {
			g.chatModel = model
		}
	}
}

func WithEmbeddingModel(model string) GeminiOption {
	return func(g *GeminiClient) {
		if model != "" {
			g.embeddingModel = model
		}
	}
}

func NewGeminiClient(ctx context.Context, apiKey string, opts ...GeminiOption) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, goerr.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create genai client")
	}

	g := &GeminiClient{
		client:         client,
		chatModel:      "gemini-1.5-flash",
		embeddingModel: "text-embedding-004",
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

func (g *GeminiClient) GenerateContent(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.chatModel, contents, config)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate content", goerr.V("model", g.chatModel))
	}
	return resp, nil
}

func (g *GeminiClient) CreateChat(ctx context.Context, config *genai.GenerateContentConfig, history []*genai.Content) (*genai.Chat, error) {
	chat, err := g.client.Chats.Create(ctx, g.chatModel, config, history)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create gemini chat", goerr.V("model", g.chatModel))
	}
	return chat, nil
}

func (g *GeminiClient) EmbedContent(ctx context.Context, text, taskType string) ([]float32, error) {
	resp, err := g.client.Models.EmbedContent(ctx, g.embeddingModel, genai.Text(text), &genai.EmbedContentConfig{
		TaskType: taskType,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed content", goerr.V("model", g.embeddingModel))
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, goerr.New("empty embedding response", goerr.V("model", g.embeddingModel))
	}
	return resp.Embeddings[0].Values, nil
}
