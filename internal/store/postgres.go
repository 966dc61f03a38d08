package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/parcoursmaker/parcoursmaker/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Extraction runs ---

var validRunTransitions = map[string][]string{
	models.RunStatusPending: {models.RunStatusRunning, models.RunStatusFailed},
	models.RunStatusRunning: {models.RunStatusCompleted, models.RunStatusFailed},
}

func (s *PostgresStore) CreateRun(ctx context.Context, run *models.ExtractionRun) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO extraction_runs (id, listing_url, status, degraded, room_count, image_count, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		run.ID, run.ListingURL, run.Status, run.Degraded, run.RoomCount, run.ImageCount, run.CreatedAt, run.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create extraction run: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, id uuid.UUID) (*models.ExtractionRun, error) {
	var r models.ExtractionRun
	err := s.pool.QueryRow(ctx,
		`SELECT id, listing_url, status, degraded, room_count, image_count, error_message,
		        started_at, completed_at, created_at, updated_at
		 FROM extraction_runs WHERE id = $1`, id,
	).Scan(&r.ID, &r.ListingURL, &r.Status, &r.Degraded, &r.RoomCount, &r.ImageCount, &r.ErrorMessage,
		&r.StartedAt, &r.CompletedAt, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get extraction run: %w", err)
	}
	return &r, nil
}

func (s *PostgresStore) UpdateRunStatus(ctx context.Context, id uuid.UUID, status string, opts ...RunUpdateOption) error {
	var params runUpdateParams
	for _, opt := range opts {
		opt(&params)
	}

	var currentStatus string
	err := s.pool.QueryRow(ctx, `SELECT status FROM extraction_runs WHERE id = $1`, id).Scan(&currentStatus)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get run status: %w", err)
	}

	allowed := validRunTransitions[currentStatus]
	valid := false
	for _, a := range allowed {
		if a == status {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("invalid run status transition: %s -> %s", currentStatus, status)
	}

	now := time.Now().UTC()
	query := `UPDATE extraction_runs SET status = $2, updated_at = $3`
	args := []any{id, status, now}
	argIdx := 4

	if status == models.RunStatusRunning {
		query += fmt.Sprintf(", started_at = $%d", argIdx)
		args = append(args, now)
		argIdx++
	}
	if status == models.RunStatusCompleted || status == models.RunStatusFailed {
		query += fmt.Sprintf(", completed_at = $%d", argIdx)
		args = append(args, now)
		argIdx++
	}
	if params.ErrorMessage != nil {
		query += fmt.Sprintf(", error_message = $%d", argIdx)
		args = append(args, *params.ErrorMessage)
		argIdx++
	}
	if params.RoomCount != nil {
		query += fmt.Sprintf(", room_count = $%d", argIdx)
		args = append(args, *params.RoomCount)
		argIdx++
	}
	if params.ImageCount != nil {
		query += fmt.Sprintf(", image_count = $%d", argIdx)
		args = append(args, *params.ImageCount)
		argIdx++
	}
	if params.Degraded != nil {
		query += fmt.Sprintf(", degraded = $%d", argIdx)
		args = append(args, *params.Degraded)
		argIdx++
	}

	query += " WHERE id = $1"

	_, err = s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update run status: %w", err)
	}
	return nil
}

// --- Parcours commits ---

func (s *PostgresStore) CreateCommit(ctx context.Context, commit *models.ParcoursCommit) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO parcours_commits (id, logement_id, parcour_id, environment, success_count, error_count, total_count, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		commit.ID, commit.LogementID, commit.ParcourID, commit.Environment,
		commit.SuccessCount, commit.ErrorCount, commit.TotalCount, commit.CreatedAt)
	if err != nil {
		return fmt.Errorf("create parcours commit: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListCommits(ctx context.Context, limit int) ([]*models.ParcoursCommit, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, logement_id, parcour_id, environment, success_count, error_count, total_count, created_at
		 FROM parcours_commits ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list parcours commits: %w", err)
	}
	defer rows.Close()

	var commits []*models.ParcoursCommit
	for rows.Next() {
		var c models.ParcoursCommit
		if err := rows.Scan(&c.ID, &c.LogementID, &c.ParcourID, &c.Environment,
			&c.SuccessCount, &c.ErrorCount, &c.TotalCount, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan parcours commit: %w", err)
		}
		commits = append(commits, &c)
	}
	return commits, rows.Err()
}
