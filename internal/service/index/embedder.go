package index

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"

	openai "github.com/meguminnnnnnnnn/go-openai"

	"github.com/hualaowei/chatbot/backend/internal/fault"
)

// Embedder turns text into dense vectors for similarity search.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// OpenAIEmbedder calls an OpenAI-compatible embeddings endpoint.
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
}

// NewOpenAIEmbedder builds the embedding client. baseURL may point at any
// OpenAI-compatible server; empty selects the official endpoint.
func NewOpenAIEmbedder(apiKey, model, baseURL string) *OpenAIEmbedder {
	if model == "" {
		model = "text-embedding-3-small"
	}

	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}

	return &OpenAIEmbedder{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

// Embed embeds a single text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fault.New(fault.EmptyResult, "index.embed", fmt.Errorf("no embedding returned"))
	}
	return vectors[0], nil
}

// EmbedBatch embeds texts in one request, preserving input order.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fault.Wrap("index.embed", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fault.New(fault.Malformed, "index.embed",
			fmt.Errorf("embedding count mismatch: got %d, want %d", len(resp.Data), len(texts)))
	}

	vectors := make([][]float32, len(texts))
	for _, data := range resp.Data {
		if data.Index < 0 || data.Index >= len(vectors) {
			return nil, fault.New(fault.Malformed, "index.embed", fmt.Errorf("embedding index %d out of range", data.Index))
		}
		vectors[data.Index] = data.Embedding
	}
	return vectors, nil
}

// encodeVector serializes a vector as little-endian float32s.
func encodeVector(vector []float32) []byte {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, vector); err != nil {
		panic(fmt.Sprintf("failed to encode vector: %v", err))
	}
	return buf.Bytes()
}

// decodeVector reverses encodeVector.
func decodeVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid vector data length: %d", len(data))
	}

	vector := make([]float32, len(data)/4)
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &vector); err != nil {
		return nil, fmt.Errorf("failed to decode vector: %w", err)
	}
	return vector, nil
}
