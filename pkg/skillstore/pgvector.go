package skillstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

// PGVectorIndex is a VectorIndex backed by postgres + the pgvector
// extension, grounded on the teacher's pattern of checking pg_extension at
// startup and using the <-> nearest-neighbour operator (SPEC_FULL.md §11).
// It shares the Skill Store's *sql.DB and keeps the embedding in the same
// assistant_skills row rather than a separate table.
type PGVectorIndex struct {
	db        *sql.DB
	available bool
}

// NewPGVectorIndex probes pg_extension once at startup; Available() then
// reflects a process-wide flag set once, per spec.md §5.
func NewPGVectorIndex(ctx context.Context, db *sql.DB) (*PGVectorIndex, error) {
	idx := &PGVectorIndex{db: db}
	var count int
	err := db.QueryRowContext(ctx, `SELECT count(*) FROM pg_extension WHERE extname = 'vector'`).Scan(&count)
	if err != nil {
		return idx, nil // extension check failing just means unavailable, not fatal
	}
	idx.available = count > 0
	return idx, nil
}

func (p *PGVectorIndex) Available() bool { return p.available }

func (p *PGVectorIndex) Upsert(ctx context.Context, userID, skillID string, embedding []float32) error {
	if !p.available {
		return nil
	}
	_, err := p.db.ExecContext(ctx,
		`UPDATE assistant_skills SET embedding = $1::vector WHERE id = $2 AND user_id = $3`,
		vectorLiteral(embedding), skillID, userID)
	if err != nil {
		return fmt.Errorf("pgvector: upsert: %w", err)
	}
	return nil
}

func (p *PGVectorIndex) Delete(ctx context.Context, skillID string) error {
	if !p.available {
		return nil
	}
	_, err := p.db.ExecContext(ctx, `UPDATE assistant_skills SET embedding = NULL WHERE id = $1`, skillID)
	return err
}

func (p *PGVectorIndex) Nearest(ctx context.Context, userID string, embedding []float32) (string, float64, bool, error) {
	if !p.available {
		return "", 0, false, nil
	}
	row := p.db.QueryRowContext(ctx,
		`SELECT id, embedding::vector <-> $1::vector AS distance FROM assistant_skills
		 WHERE user_id = $2 AND embedding IS NOT NULL
		 ORDER BY embedding::vector <-> $1::vector LIMIT 1`,
		vectorLiteral(embedding), userID)

	var id string
	var distance float64
	if err := row.Scan(&id, &distance); err != nil {
		if err == sql.ErrNoRows {
			return "", 0, false, nil
		}
		return "", 0, false, fmt.Errorf("pgvector: nearest: %w", err)
	}
	return id, distance, true, nil
}

// vectorLiteral renders a pgvector literal "[v1,v2,...]".
func vectorLiteral(v []float32) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = strconv.FormatFloat(float64(x), 'f', -1, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
