package embedder

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/raven-ai/assistant/pkg/httpclient"
)

type openAIEmbedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// OpenAIEmbedder implements Provider against OpenAI's embeddings endpoint,
// grounded on the teacher's pkg/embedders/openai.go.
type OpenAIEmbedder struct {
	apiKey    string
	baseURL   string
	model     string
	dimension int
	maxChars  int
	http      *httpclient.Client
}

func NewOpenAIEmbedder(apiKey, baseURL, modelName string, dimension, maxChars int) *OpenAIEmbedder {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if modelName == "" {
		modelName = "text-embedding-3-small"
	}
	if dimension <= 0 {
		dimension = 1536
	}
	if maxChars <= 0 {
		maxChars = 4000
	}
	return &OpenAIEmbedder{
		apiKey:    apiKey,
		baseURL:   baseURL,
		model:     modelName,
		dimension: dimension,
		maxChars:  maxChars,
		http: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{Timeout: 20 * time.Second}),
			httpclient.WithMaxRetries(0), // spec.md §4.5: no retry on embed failure
		),
	}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) []float32 {
	text = Truncate(text, e.maxChars)
	if text == "" {
		return nil
	}

	body, err := json.Marshal(openAIEmbedRequest{Model: e.model, Input: text})
	if err != nil {
		slog.Warn("embedder: marshal request failed", "error", err)
		return nil
	}

	resp, err := e.http.PostJSON(ctx, e.baseURL+"/embeddings", body, map[string]string{
		"Authorization": "Bearer " + e.apiKey,
	})
	if err != nil {
		slog.Warn("embedder: request failed", "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Warn("embedder: non-2xx response", "status", resp.StatusCode)
		return nil
	}

	var parsed openAIEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		slog.Warn("embedder: decode response failed", "error", err)
		return nil
	}
	if len(parsed.Data) == 0 {
		return nil
	}
	return parsed.Data[0].Embedding
}

func (e *OpenAIEmbedder) Dimension() int   { return e.dimension }
func (e *OpenAIEmbedder) ModelName() string { return e.model }

// StubEmbedder is a deterministic, dependency-free embedder for tests and
// deployments without an embedding vendor configured.
type StubEmbedder struct {
	dim int
}

func NewStubEmbedder(dim int) *StubEmbedder {
	if dim <= 0 {
		dim = 16
	}
	return &StubEmbedder{dim: dim}
}

// Embed hashes text into a fixed-size pseudo-embedding so cosine similarity
// between similar strings is higher than between dissimilar ones, sufficient
// for tests that don't need true semantic embeddings.
func (e *StubEmbedder) Embed(ctx context.Context, text string) []float32 {
	text = Truncate(text, 4000)
	if text == "" {
		return nil
	}
	vec := make([]float32, e.dim)
	for i, r := range text {
		vec[i%e.dim] += float32(r%31) / 31.0
	}
	return vec
}

func (e *StubEmbedder) Dimension() int    { return e.dim }
func (e *StubEmbedder) ModelName() string { return "stub" }
