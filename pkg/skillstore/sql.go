package skillstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	// Database drivers, blank-imported for database/sql's registry, the
	// way the teacher's pkg/agent/task_service_sql.go pulls in all three.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/raven-ai/assistant/pkg/skill"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS assistant_skills (
	id VARCHAR(64) PRIMARY KEY,
	user_id VARCHAR(255) NOT NULL,
	name VARCHAR(255) NOT NULL,
	description TEXT,
	entrypoint_text TEXT,
	active_version_id VARCHAR(64),
	embedding TEXT,
	parameters TEXT,
	preconditions TEXT,
	success_criteria TEXT,
	examples TEXT,
	generalization_score REAL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_assistant_skills_user ON assistant_skills(user_id);

CREATE TABLE IF NOT EXISTS assistant_skill_versions (
	id VARCHAR(64) PRIMARY KEY,
	skill_id VARCHAR(64) NOT NULL,
	version INTEGER NOT NULL,
	steps TEXT,
	base_prompt TEXT,
	created_at TIMESTAMP NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_assistant_skill_versions_unique ON assistant_skill_versions(skill_id, version);

CREATE TABLE IF NOT EXISTS assistant_skill_runs (
	id VARCHAR(64) PRIMARY KEY,
	skill_id VARCHAR(64),
	skill_version_id VARCHAR(64),
	user_id VARCHAR(255) NOT NULL,
	thread_id VARCHAR(255),
	session_id VARCHAR(255),
	input TEXT,
	step_results TEXT,
	feedback_rating VARCHAR(16),
	feedback_text TEXT,
	feedback_at TIMESTAMP,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_assistant_skill_runs_user ON assistant_skill_runs(user_id);
`

// SQLStore implements Store over database/sql against postgres, mysql, or
// sqlite, grounded on the teacher's pkg/agent/task_service_sql.go
// three-dialect pattern. Vector-index-backed retrieval is delegated to a
// VectorIndex. InsertSkill and SaveMerge always store the embedding as JSON
// in the embedding column, whatever the index; PGVectorIndex (which shares
// this *sql.DB) rewrites that column as a pgvector value.
type SQLStore struct {
	db      *sql.DB
	dialect string
	index   VectorIndex
}

// Open opens db (already sql.Open'd by the caller per its DSN), validates
// dialect, creates the schema if absent, and wires in index (use NoopIndex
// when no vector backend is configured).
func Open(ctx context.Context, db *sql.DB, dialect string, index VectorIndex) (*SQLStore, error) {
	switch dialect {
	case "postgres", "mysql", "sqlite":
	default:
		return nil, fmt.Errorf("skillstore: unsupported dialect %q", dialect)
	}
	if index == nil {
		index = NoopIndex{}
	}
	s := &SQLStore{db: db, dialect: dialect, index: index}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return nil, fmt.Errorf("skillstore: init schema: %w", err)
	}
	return s, nil
}

// OpenFromConfig mirrors the teacher's NewSQLTaskServiceFromConfig: maps the
// sqlite dialect name onto its driver name, opens the pool, configures it,
// and pings with a bounded timeout before handing back a ready Store.
func OpenFromConfig(ctx context.Context, dialect, dsn string, maxOpenConns, maxIdleConns int, index VectorIndex) (*SQLStore, func() error, error) {
	driverName := dialect
	if dialect == "sqlite" {
		driverName = "sqlite3"
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("skillstore: open %s: %w", dialect, err)
	}
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}
	if maxIdleConns > 0 {
		db.SetMaxIdleConns(maxIdleConns)
	}
	db.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("skillstore: ping %s: %w", dialect, err)
	}

	store, err := Open(ctx, db, dialect, index)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return store, db.Close, nil
}

func (s *SQLStore) ph(n int) string {
	if s.dialect == "postgres" {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func (s *SQLStore) FindNearest(ctx context.Context, userID string, embedding []float32) (*skill.Skill, float64, bool, error) {
	if !s.index.Available() {
		return nil, 0, false, nil
	}
	id, distance, found, err := s.index.Nearest(ctx, userID, embedding)
	if err != nil || !found {
		return nil, 0, false, err
	}
	sk, err := s.LoadSkill(ctx, id, userID)
	if err != nil {
		return nil, 0, false, err
	}
	return sk, distance, true, nil
}

func (s *SQLStore) LoadSkill(ctx context.Context, id, userID string) (*skill.Skill, error) {
	query := fmt.Sprintf(`SELECT id, user_id, name, description, entrypoint_text, active_version_id, embedding,
		parameters, preconditions, success_criteria, examples, generalization_score, created_at, updated_at
		FROM assistant_skills WHERE id = %s AND user_id = %s`, s.ph(1), s.ph(2))

	var sk skill.Skill
	var embeddingJSON sql.NullString
	var paramsJSON, preJSON, successJSON, exJSON string
	err := s.db.QueryRowContext(ctx, query, id, userID).Scan(
		&sk.ID, &sk.UserID, &sk.Name, &sk.Description, &sk.EntrypointText, &sk.ActiveVersionID, &embeddingJSON,
		&paramsJSON, &preJSON, &successJSON, &exJSON, &sk.GeneralizationScore, &sk.CreatedAt, &sk.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("skillstore: load skill: %w", err)
	}
	// Retaining the embedding here is what lets retriever.Find run the
	// cosine-similarity path against MatchSimilarity instead of falling
	// back to the distance-only threshold (spec.md §4.6 step 4).
	decodeJSON(embeddingJSON.String, &sk.Embedding)
	decodeJSON(paramsJSON, &sk.Parameters)
	decodeJSON(preJSON, &sk.Preconditions)
	decodeJSON(successJSON, &sk.SuccessCriteria)
	decodeJSON(exJSON, &sk.Examples)
	return &sk, nil
}

func (s *SQLStore) LoadVersion(ctx context.Context, versionID string) (*skill.Version, error) {
	query := fmt.Sprintf(`SELECT id, skill_id, version, steps, base_prompt, created_at
		FROM assistant_skill_versions WHERE id = %s`, s.ph(1))

	var v skill.Version
	var stepsJSON string
	var basePrompt sql.NullString
	err := s.db.QueryRowContext(ctx, query, versionID).Scan(&v.ID, &v.SkillID, &v.Version, &stepsJSON, &basePrompt, &v.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("skillstore: load version: %w", err)
	}
	v.BasePrompt = basePrompt.String
	decodeJSON(stepsJSON, &v.Steps)
	return &v, nil
}

func (s *SQLStore) InsertSkill(ctx context.Context, userID string, def skill.Definition, embedding []float32) (*skill.Skill, *skill.Version, error) {
	now := time.Now().UTC()
	skillID := uuid.NewString()
	versionID := uuid.NewString()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("skillstore: begin tx: %w", err)
	}
	defer tx.Rollback()

	insertSkill := fmt.Sprintf(`INSERT INTO assistant_skills
		(id, user_id, name, description, entrypoint_text, active_version_id, embedding, parameters, preconditions, success_criteria, examples, generalization_score, created_at, updated_at)
		VALUES (%s,%s,%s,%s,%s,%s,%s,%s,%s,%s,%s,%s,%s,%s)`,
		s.ph(1), s.ph(2), s.ph(3), s.ph(4), s.ph(5), s.ph(6), s.ph(7), s.ph(8), s.ph(9), s.ph(10), s.ph(11), s.ph(12), s.ph(13), s.ph(14))
	if _, err := tx.ExecContext(ctx, insertSkill,
		skillID, userID, def.Name, def.Description, def.Entrypoint, versionID, encodeJSON(embedding),
		encodeJSON(def.Parameters), encodeJSON(def.Preconditions), encodeJSON(def.SuccessCriteria), encodeJSON(def.Examples),
		def.GeneralizationScore, now, now,
	); err != nil {
		return nil, nil, fmt.Errorf("skillstore: insert skill: %w", err)
	}

	insertVersion := fmt.Sprintf(`INSERT INTO assistant_skill_versions (id, skill_id, version, steps, base_prompt, created_at)
		VALUES (%s,%s,%s,%s,%s,%s)`, s.ph(1), s.ph(2), s.ph(3), s.ph(4), s.ph(5), s.ph(6))
	if _, err := tx.ExecContext(ctx, insertVersion, versionID, skillID, 1, encodeJSON(def.Steps), "", now); err != nil {
		return nil, nil, fmt.Errorf("skillstore: insert version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("skillstore: commit: %w", err)
	}

	if len(embedding) > 0 {
		if err := s.index.Upsert(ctx, userID, skillID, embedding); err != nil {
			return nil, nil, fmt.Errorf("skillstore: index upsert: %w", err)
		}
	}

	sk := &skill.Skill{
		ID: skillID, UserID: userID, Name: def.Name, Description: def.Description, EntrypointText: def.Entrypoint,
		ActiveVersionID: versionID, Parameters: def.Parameters, Preconditions: def.Preconditions,
		SuccessCriteria: def.SuccessCriteria, Examples: def.Examples, GeneralizationScore: def.GeneralizationScore,
		Embedding: embedding, CreatedAt: now, UpdatedAt: now,
	}
	v := &skill.Version{ID: versionID, SkillID: skillID, Version: 1, Steps: def.Steps, CreatedAt: now}
	return sk, v, nil
}

func (s *SQLStore) SaveMerge(ctx context.Context, skillID string, def skill.Definition, embedding []float32) (*skill.Skill, *skill.Version, error) {
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("skillstore: begin tx: %w", err)
	}
	defer tx.Rollback()

	// Row lock on the skill row serialises concurrent merges (spec.md §4.4,
	// §5): postgres/mysql honour FOR UPDATE; sqlite's single-writer lock
	// achieves the same effect without needing the clause.
	lockQuery := fmt.Sprintf(`SELECT user_id FROM assistant_skills WHERE id = %s`, s.ph(1))
	if s.dialect != "sqlite" {
		lockQuery += " FOR UPDATE"
	}
	var userID string
	if err := tx.QueryRowContext(ctx, lockQuery, skillID).Scan(&userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("skillstore: lock skill: %w", err)
	}

	var maxVersion int
	maxQuery := fmt.Sprintf(`SELECT COALESCE(MAX(version), 0) FROM assistant_skill_versions WHERE skill_id = %s`, s.ph(1))
	if err := tx.QueryRowContext(ctx, maxQuery, skillID).Scan(&maxVersion); err != nil {
		return nil, nil, fmt.Errorf("skillstore: max version: %w", err)
	}
	newVersion := maxVersion + 1
	versionID := uuid.NewString()

	insertVersion := fmt.Sprintf(`INSERT INTO assistant_skill_versions (id, skill_id, version, steps, base_prompt, created_at)
		VALUES (%s,%s,%s,%s,%s,%s)`, s.ph(1), s.ph(2), s.ph(3), s.ph(4), s.ph(5), s.ph(6))
	if _, err := tx.ExecContext(ctx, insertVersion, versionID, skillID, newVersion, encodeJSON(def.Steps), "", now); err != nil {
		return nil, nil, fmt.Errorf("skillstore: insert merged version: %w", err)
	}

	updateSkill := fmt.Sprintf(`UPDATE assistant_skills SET name=%s, description=%s, entrypoint_text=%s,
		active_version_id=%s, embedding=%s, parameters=%s, preconditions=%s, success_criteria=%s, examples=%s,
		generalization_score=%s, updated_at=%s WHERE id=%s`,
		s.ph(1), s.ph(2), s.ph(3), s.ph(4), s.ph(5), s.ph(6), s.ph(7), s.ph(8), s.ph(9), s.ph(10), s.ph(11), s.ph(12))
	if _, err := tx.ExecContext(ctx, updateSkill,
		def.Name, def.Description, def.Entrypoint, versionID, encodeJSON(embedding),
		encodeJSON(def.Parameters), encodeJSON(def.Preconditions), encodeJSON(def.SuccessCriteria), encodeJSON(def.Examples),
		def.GeneralizationScore, now, skillID,
	); err != nil {
		return nil, nil, fmt.Errorf("skillstore: update merged skill: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("skillstore: commit: %w", err)
	}

	if len(embedding) > 0 {
		if err := s.index.Upsert(ctx, userID, skillID, embedding); err != nil {
			return nil, nil, fmt.Errorf("skillstore: index upsert: %w", err)
		}
	}

	sk, err := s.LoadSkill(ctx, skillID, userID)
	if err != nil {
		return nil, nil, err
	}
	v := &skill.Version{ID: versionID, SkillID: skillID, Version: newVersion, Steps: def.Steps, CreatedAt: now}
	return sk, v, nil
}

func (s *SQLStore) SaveFix(ctx context.Context, skillID string, steps []skill.Step) (*skill.Version, error) {
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("skillstore: begin tx: %w", err)
	}
	defer tx.Rollback()

	lockQuery := fmt.Sprintf(`SELECT id FROM assistant_skills WHERE id = %s`, s.ph(1))
	if s.dialect != "sqlite" {
		lockQuery += " FOR UPDATE"
	}
	if err := tx.QueryRowContext(ctx, lockQuery, skillID).Scan(new(string)); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("skillstore: lock skill: %w", err)
	}

	var maxVersion int
	maxQuery := fmt.Sprintf(`SELECT COALESCE(MAX(version), 0) FROM assistant_skill_versions WHERE skill_id = %s`, s.ph(1))
	if err := tx.QueryRowContext(ctx, maxQuery, skillID).Scan(&maxVersion); err != nil {
		return nil, fmt.Errorf("skillstore: max version: %w", err)
	}
	newVersion := maxVersion + 1
	versionID := uuid.NewString()

	insertVersion := fmt.Sprintf(`INSERT INTO assistant_skill_versions (id, skill_id, version, steps, base_prompt, created_at)
		VALUES (%s,%s,%s,%s,%s,%s)`, s.ph(1), s.ph(2), s.ph(3), s.ph(4), s.ph(5), s.ph(6))
	if _, err := tx.ExecContext(ctx, insertVersion, versionID, skillID, newVersion, encodeJSON(steps), "", now); err != nil {
		return nil, fmt.Errorf("skillstore: insert fixed version: %w", err)
	}

	updateActive := fmt.Sprintf(`UPDATE assistant_skills SET active_version_id=%s, updated_at=%s WHERE id=%s`,
		s.ph(1), s.ph(2), s.ph(3))
	if _, err := tx.ExecContext(ctx, updateActive, versionID, now, skillID); err != nil {
		return nil, fmt.Errorf("skillstore: update active version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("skillstore: commit: %w", err)
	}

	return &skill.Version{ID: versionID, SkillID: skillID, Version: newVersion, Steps: steps, CreatedAt: now}, nil
}

func (s *SQLStore) InsertRun(ctx context.Context, run *skill.Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	run.CreatedAt, run.UpdatedAt = now, now

	query := fmt.Sprintf(`INSERT INTO assistant_skill_runs
		(id, skill_id, skill_version_id, user_id, thread_id, session_id, input, step_results, created_at, updated_at)
		VALUES (%s,%s,%s,%s,%s,%s,%s,%s,%s,%s)`,
		s.ph(1), s.ph(2), s.ph(3), s.ph(4), s.ph(5), s.ph(6), s.ph(7), s.ph(8), s.ph(9), s.ph(10))

	_, err := s.db.ExecContext(ctx, query,
		run.ID, nullableString(run.SkillID), nullableString(run.SkillVersionID), run.UserID,
		run.ThreadID, run.SessionID, run.Input, encodeJSON(run.StepResults), now, now,
	)
	if err != nil {
		return fmt.Errorf("skillstore: insert run: %w", err)
	}
	return nil
}

func (s *SQLStore) PatchRunSkill(ctx context.Context, runID, userID, skillID, versionID string) error {
	query := fmt.Sprintf(`UPDATE assistant_skill_runs SET skill_id=%s, skill_version_id=%s, updated_at=%s
		WHERE id=%s AND user_id=%s`, s.ph(1), s.ph(2), s.ph(3), s.ph(4), s.ph(5))
	res, err := s.db.ExecContext(ctx, query, skillID, versionID, time.Now().UTC(), runID, userID)
	if err != nil {
		return fmt.Errorf("skillstore: patch run skill: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) GetRun(ctx context.Context, runID, userID string) (*skill.Run, error) {
	query := fmt.Sprintf(`SELECT id, skill_id, skill_version_id, user_id, thread_id, session_id, input,
		step_results, feedback_rating, feedback_text, feedback_at, created_at, updated_at
		FROM assistant_skill_runs WHERE id=%s AND user_id=%s`, s.ph(1), s.ph(2))

	var run skill.Run
	var skillID, versionID, threadID, sessionID, stepResultsJSON sql.NullString
	var feedbackRating, feedbackText sql.NullString
	var feedbackAt sql.NullTime
	err := s.db.QueryRowContext(ctx, query, runID, userID).Scan(
		&run.ID, &skillID, &versionID, &run.UserID, &threadID, &sessionID, &run.Input,
		&stepResultsJSON, &feedbackRating, &feedbackText, &feedbackAt, &run.CreatedAt, &run.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("skillstore: get run: %w", err)
	}
	if skillID.Valid {
		run.SkillID = &skillID.String
	}
	if versionID.Valid {
		run.SkillVersionID = &versionID.String
	}
	run.ThreadID = threadID.String
	run.SessionID = sessionID.String
	decodeJSON(stepResultsJSON.String, &run.StepResults)
	run.FeedbackRating = skill.FeedbackRating(feedbackRating.String)
	run.FeedbackText = feedbackText.String
	if feedbackAt.Valid {
		t := feedbackAt.Time
		run.FeedbackAt = &t
	}
	return &run, nil
}

func (s *SQLStore) UpdateRunFeedback(ctx context.Context, runID, userID string, rating skill.FeedbackRating, text string) error {
	now := time.Now().UTC()
	query := fmt.Sprintf(`UPDATE assistant_skill_runs SET feedback_rating=%s, feedback_text=%s, feedback_at=%s, updated_at=%s
		WHERE id=%s AND user_id=%s`, s.ph(1), s.ph(2), s.ph(3), s.ph(4), s.ph(5), s.ph(6))
	res, err := s.db.ExecContext(ctx, query, string(rating), text, now, now, runID, userID)
	if err != nil {
		return fmt.Errorf("skillstore: update run feedback: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) ListSkills(ctx context.Context, userID string) ([]*skill.Skill, error) {
	query := fmt.Sprintf(`SELECT id, user_id, name, description, entrypoint_text, active_version_id,
		parameters, preconditions, success_criteria, examples, generalization_score, created_at, updated_at
		FROM assistant_skills WHERE user_id = %s ORDER BY created_at ASC`, s.ph(1))

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("skillstore: list skills: %w", err)
	}
	defer rows.Close()

	var out []*skill.Skill
	for rows.Next() {
		var sk skill.Skill
		var paramsJSON, preJSON, successJSON, exJSON string
		if err := rows.Scan(
			&sk.ID, &sk.UserID, &sk.Name, &sk.Description, &sk.EntrypointText, &sk.ActiveVersionID,
			&paramsJSON, &preJSON, &successJSON, &exJSON, &sk.GeneralizationScore, &sk.CreatedAt, &sk.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("skillstore: scan skill: %w", err)
		}
		decodeJSON(paramsJSON, &sk.Parameters)
		decodeJSON(preJSON, &sk.Preconditions)
		decodeJSON(successJSON, &sk.SuccessCriteria)
		decodeJSON(exJSON, &sk.Examples)
		out = append(out, &sk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("skillstore: list skills: %w", err)
	}
	return out, nil
}

func (s *SQLStore) DeleteSkill(ctx context.Context, skillID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("skillstore: begin tx: %w", err)
	}
	defer tx.Rollback()

	delVersions := fmt.Sprintf(`DELETE FROM assistant_skill_versions WHERE skill_id = %s`, s.ph(1))
	if _, err := tx.ExecContext(ctx, delVersions, skillID); err != nil {
		return fmt.Errorf("skillstore: delete versions: %w", err)
	}
	delSkill := fmt.Sprintf(`DELETE FROM assistant_skills WHERE id = %s`, s.ph(1))
	if _, err := tx.ExecContext(ctx, delSkill, skillID); err != nil {
		return fmt.Errorf("skillstore: delete skill: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("skillstore: commit: %w", err)
	}
	if err := s.index.Delete(ctx, skillID); err != nil {
		return fmt.Errorf("skillstore: index delete: %w", err)
	}
	return nil
}

// RepointRuns rewrites every run currently tied to one of fromSkillIDs so
// reprocessing's merge of several skills into one doesn't orphan run
// history (mirrors the merge-then-repoint-then-delete order the reference
// reprocessing script follows).
func (s *SQLStore) RepointRuns(ctx context.Context, fromSkillIDs []string, toSkillID, toVersionID string) error {
	if len(fromSkillIDs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("skillstore: begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, fromID := range fromSkillIDs {
		query := fmt.Sprintf(`UPDATE assistant_skill_runs SET skill_id=%s, skill_version_id=%s, updated_at=%s
			WHERE skill_id=%s`, s.ph(1), s.ph(2), s.ph(3), s.ph(4))
		if _, err := tx.ExecContext(ctx, query, toSkillID, toVersionID, time.Now().UTC(), fromID); err != nil {
			return fmt.Errorf("skillstore: repoint runs: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("skillstore: commit: %w", err)
	}
	return nil
}

func encodeJSON(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(raw)
}

func decodeJSON(raw string, out any) {
	if raw == "" {
		return
	}
	_ = json.Unmarshal([]byte(raw), out)
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
