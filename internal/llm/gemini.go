// Package llm wraps the Gemini API behind small text and embedding
// interfaces so the rest of the service never touches the SDK directly.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/theadiisingh/finpol/internal/logging"
)

// Default model names, overridable via config.
const (
	DefaultGenerativeModel = "gemini-2.0-flash"
	DefaultEmbeddingModel  = "text-embedding-004"
)

var errEmptyResponse = errors.New("empty model response")

// Client talks to the Gemini API for text generation and embeddings.
// It is safe for concurrent use; Generate builds a per-call model so no
// request state is shared between goroutines.
type Client struct {
	client    *genai.Client
	genModel  string
	embedding *genai.EmbeddingModel
}

// NewClient creates a Gemini client. An empty API key returns (nil, nil):
// callers treat a nil client as "LLM not configured" and degrade to
// fallback behavior rather than failing startup.
func NewClient(ctx context.Context, apiKey, generativeModel, embeddingModel string) (*Client, error) {
	if apiKey == "" {
		return nil, nil
	}
	if generativeModel == "" {
		generativeModel = DefaultGenerativeModel
	}
	if embeddingModel == "" {
		embeddingModel = DefaultEmbeddingModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &Client{
		client:    client,
		genModel:  generativeModel,
		embedding: client.EmbeddingModel(embeddingModel),
	}, nil
}

// Generate produces text for the given system instruction and prompt.
func (c *Client) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	model := c.client.GenerativeModel(c.genModel)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPrompt)}}

	resp, err := model.GenerateContent(ctx, genai.Text(userPrompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", errEmptyResponse
	}

	part := resp.Candidates[0].Content.Parts[0]
	text, ok := part.(genai.Text)
	if !ok {
		return "", fmt.Errorf("unexpected response part type: %T", part)
	}

	logging.L(ctx).Debug("generated text", "chars", len(text))
	return string(text), nil
}

// Embed returns the embedding vector for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.embedding.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("failed to embed content: %w", err)
	}
	if resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
		return nil, errEmptyResponse
	}
	return resp.Embedding.Values, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.client.Close()
}
