package skillstore

import "context"

// VectorIndex is the nearest-neighbour backend behind FindNearest. A
// deployment without vector indexing wires in NoopIndex, per spec.md §9's
// "Nearest-neighbour without vector index" note: the retriever then always
// misses, while the Learner still computes merge-candidate similarity from
// stored embeddings loaded by other means.
type VectorIndex interface {
	Upsert(ctx context.Context, userID, skillID string, embedding []float32) error
	Delete(ctx context.Context, skillID string) error
	// Nearest returns the closest skill id for userID and the backend's
	// distance metric value, or found=false if the catalogue is empty.
	Nearest(ctx context.Context, userID string, embedding []float32) (skillID string, distance float64, found bool, err error)
	Available() bool
}

// NoopIndex always misses. Used when no vector backend is configured.
type NoopIndex struct{}

func (NoopIndex) Upsert(ctx context.Context, userID, skillID string, embedding []float32) error {
	return nil
}
func (NoopIndex) Delete(ctx context.Context, skillID string) error { return nil }
func (NoopIndex) Nearest(ctx context.Context, userID string, embedding []float32) (string, float64, bool, error) {
	return "", 0, false, nil
}
func (NoopIndex) Available() bool { return false }
