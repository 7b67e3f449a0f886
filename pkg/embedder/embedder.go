// Package embedder implements the Embedding Provider (spec.md §4.5, C5):
// text to dense vector, for retrieval and merge scoring.
package embedder

import (
	"context"
	"strings"
)

// Provider embeds text for retrieval and merge scoring. Embed returns
// nil on failure per spec.md §4.5 ("failures log and return none;
// no retry") — callers treat a nil vector as a miss, not an error.
type Provider interface {
	Embed(ctx context.Context, text string) []float32
	Dimension() int
	ModelName() string
}

// Truncate trims and caps input text to maxChars (spec.md §4.5, default
// ~4000 characters), applied before every embed call.
func Truncate(text string, maxChars int) string {
	text = strings.TrimSpace(text)
	if maxChars <= 0 || len(text) <= maxChars {
		return text
	}
	return text[:maxChars]
}
