// Package retriever implements the Retriever (spec.md §4.6, C6): given a
// user's request, find the closest existing skill and decide whether it's
// close enough to reuse.
package retriever

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/raven-ai/assistant/pkg/config"
	"github.com/raven-ai/assistant/pkg/embedder"
	"github.com/raven-ai/assistant/pkg/skill"
	"github.com/raven-ai/assistant/pkg/skillstore"
)

// Match is a retrieval hit: the candidate skill plus the similarity score
// that cleared the threshold.
type Match struct {
	Skill      *skill.Skill
	Similarity float64
}

// Retriever embeds the incoming request and looks up the nearest skill in
// the user's catalogue.
type Retriever struct {
	Embedder   embedder.Provider
	Store      skillstore.Store
	Thresholds config.Thresholds
}

func New(e embedder.Provider, store skillstore.Store, thresholds config.Thresholds) *Retriever {
	return &Retriever{Embedder: e, Store: store, Thresholds: thresholds}
}

// Find embeds input and returns the closest skill for userID if its
// derived similarity clears MatchSimilarity — computed as cosine similarity
// when the candidate's embedding was retained, or converted from the
// vector index's distance otherwise. A nil embedder, a failed embedding, a
// miss from the store, or a below-threshold candidate are all reported as
// found=false, not an error (spec.md §4.6). An error from the store's
// FindNearest is returned to the caller.
func (r *Retriever) Find(ctx context.Context, userID, input string) (Match, bool, error) {
	if r.Embedder == nil {
		return Match{}, false, nil
	}
	queryEmbedding := r.Embedder.Embed(ctx, input)
	if queryEmbedding == nil {
		slog.Warn("retriever: embedding failed, skipping retrieval", "userId", userID)
		return Match{}, false, nil
	}

	candidate, distance, found, err := r.Store.FindNearest(ctx, userID, queryEmbedding)
	if err != nil {
		return Match{}, false, fmt.Errorf("retriever: find nearest: %w", err)
	}
	if !found || candidate == nil {
		return Match{}, false, nil
	}

	var similarity, threshold float64
	if len(candidate.Embedding) > 0 {
		// Full embedding available: compare cosine similarity directly
		// against MATCH_SIMILARITY_THRESHOLD (spec.md §6).
		similarity = embedder.CosineSimilarity(queryEmbedding, candidate.Embedding)
		threshold = r.Thresholds.MatchSimilarity
	} else {
		// Only the vector index's distance came back (similarity isn't
		// computable): derive similarity from distance, but still gate on
		// MATCH_SIMILARITY_THRESHOLD like the cosine path above — the
		// distance-scale threshold was only ever meant for this rarer
		// no-embedding case, not as a stricter substitute (spec.md §4.6
		// step 4).
		threshold = r.Thresholds.MatchSimilarity
		similarity = embedder.SimilarityFromDistance(distance)
	}
	if similarity < threshold {
		return Match{}, false, nil
	}
	return Match{Skill: candidate, Similarity: similarity}, true, nil
}
