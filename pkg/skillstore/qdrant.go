package skillstore

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
)

// QdrantIndex is a VectorIndex backed by a qdrant collection, one point per
// skill keyed by skill id, filtered by a "user_id" payload field scoped to
// the per-user catalogue (spec.md §4.4), grounded on the teacher's
// pkg/databases/qdrant.go upsert/search pattern.
type QdrantIndex struct {
	client         *qdrant.Client
	collection     string
	dimension      uint64
	collectionEnsured bool
}

func NewQdrantIndex(host string, port int, apiKey string, collection string, dimension int) (*QdrantIndex, error) {
	client, err := qdrant.NewClient(&qdrant.Config{Host: host, Port: port, APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("skillstore: qdrant client: %w", err)
	}
	return &QdrantIndex{client: client, collection: collection, dimension: uint64(dimension)}, nil
}

func (q *QdrantIndex) Available() bool { return q.client != nil }

func (q *QdrantIndex) ensureCollection(ctx context.Context) error {
	if q.collectionEnsured {
		return nil
	}
	exists, err := q.client.CollectionExists(ctx, q.collection)
	if err != nil {
		return fmt.Errorf("skillstore: qdrant collection check: %w", err)
	}
	if !exists {
		err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: q.collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     q.dimension,
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("skillstore: qdrant create collection: %w", err)
		}
	}
	q.collectionEnsured = true
	return nil
}

func (q *QdrantIndex) Upsert(ctx context.Context, userID, skillID string, embedding []float32) error {
	if err := q.ensureCollection(ctx); err != nil {
		return err
	}
	userVal, err := qdrant.NewValue(userID)
	if err != nil {
		return fmt.Errorf("skillstore: qdrant payload value: %w", err)
	}
	point := &qdrant.PointStruct{
		Id:      qdrant.NewID(skillID),
		Vectors: qdrant.NewVectors(embedding...),
		Payload: map[string]*qdrant.Value{"user_id": userVal},
	}
	_, err = q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return fmt.Errorf("skillstore: qdrant upsert: %w", err)
	}
	return nil
}

func (q *QdrantIndex) Delete(ctx context.Context, skillID string) error {
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collection,
		Points:         qdrant.NewPointsSelector(qdrant.NewID(skillID)),
	})
	return err
}

func (q *QdrantIndex) Nearest(ctx context.Context, userID string, embedding []float32) (string, float64, bool, error) {
	if err := q.ensureCollection(ctx); err != nil {
		return "", 0, false, err
	}
	userVal, err := qdrant.NewValue(userID)
	if err != nil {
		return "", 0, false, err
	}
	result, err := q.client.GetPointsClient().Search(ctx, &qdrant.SearchPoints{
		CollectionName: q.collection,
		Vector:         embedding,
		Limit:          1,
		Filter: &qdrant.Filter{Must: []*qdrant.Condition{{
			ConditionOneOf: &qdrant.Condition_Field{Field: &qdrant.FieldCondition{
				Key:   "user_id",
				Match: &qdrant.Match{MatchValue: &qdrant.Match_Keyword{Keyword: userVal.GetStringValue()}},
			}},
		}}},
	})
	if err != nil {
		return "", 0, false, fmt.Errorf("skillstore: qdrant search: %w", err)
	}
	if len(result.Result) == 0 {
		return "", 0, false, nil
	}
	top := result.Result[0]
	var id string
	if num, ok := top.Id.PointIdOptions.(*qdrant.PointId_Uuid); ok {
		id = num.Uuid
	}
	// qdrant scores are similarity under Distance_Cosine; convert to a
	// distance so callers apply the same d-based threshold uniformly.
	distance := 1 - float64(top.Score)
	return id, distance, true, nil
}
