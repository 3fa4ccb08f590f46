package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/jmoiron/sqlx"

	"vpcstats/domain/core"
	"vpcstats/domain/vpc"
	apperrors "vpcstats/internal/errors"
	"vpcstats/ports"
)

// RunRepositoryImpl implements RunRepository for PostgreSQL
type RunRepositoryImpl struct {
	db *sqlx.DB
}

// NewRunRepository creates a new PostgreSQL run repository
func NewRunRepository(db *sqlx.DB) ports.RunRepository {
	return &RunRepositoryImpl{db: db}
}

// Migrate creates the runs table if it does not exist
func Migrate(db *sqlx.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS vpc_runs (
			id         TEXT PRIMARY KEY,
			result     JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		return apperrors.Wrap(err, "failed to create vpc_runs table")
	}
	return nil
}

// Save stores a computed run
func (r *RunRepositoryImpl) Save(ctx context.Context, result *vpc.Result) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return apperrors.Wrap(err, "failed to encode run result")
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO vpc_runs (id, result, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET result = EXCLUDED.result
	`, result.RunID.String(), payload, result.CreatedAt)
	if err != nil {
		return apperrors.Wrap(err, "failed to save run")
	}
	return nil
}

// Get retrieves a run by id
func (r *RunRepositoryImpl) Get(ctx context.Context, id core.RunID) (*vpc.Result, error) {
	var payload []byte
	err := r.db.GetContext(ctx, &payload, `
		SELECT result FROM vpc_runs WHERE id = $1
	`, id.String())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrRunNotFound
	}
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to load run")
	}
	var result vpc.Result
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, apperrors.Wrap(err, "failed to decode run result")
	}
	return &result, nil
}

// List returns the most recent runs, newest first
func (r *RunRepositoryImpl) List(ctx context.Context, limit int) ([]*vpc.Result, error) {
	if limit <= 0 {
		limit = 20
	}
	var payloads [][]byte
	err := r.db.SelectContext(ctx, &payloads, `
		SELECT result FROM vpc_runs ORDER BY created_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list runs")
	}
	out := make([]*vpc.Result, 0, len(payloads))
	for _, payload := range payloads {
		var result vpc.Result
		if err := json.Unmarshal(payload, &result); err != nil {
			return nil, apperrors.Wrap(err, "failed to decode run result")
		}
		out = append(out, &result)
	}
	return out, nil
}
