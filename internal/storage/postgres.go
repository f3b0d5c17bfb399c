package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/your-org/skycam/internal/config"
	"github.com/your-org/skycam/internal/models"
)

// PostgresStore records capture results, bracket groups, and fused
// back-references. The fused/source relation is a lookup by stable id,
// not an ownership edge: sources keep existing whether or not the fused
// row does.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(cfg config.DatabaseConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// RecordResult inserts one capture result (bracket member, single
// exposure, or fused output).
func (s *PostgresStore) RecordResult(ctx context.Context, r *models.CaptureResult) error {
	settings, err := json.Marshal(r.Settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	sourceIDs, err := json.Marshal(r.SourceIDs)
	if err != nil {
		return fmt.Errorf("marshal source ids: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO capture_results
			(id, schedule_name, profile_id, file_path, settings, duration_ms,
			 success, message, bracket_group, bracket_index, is_fused, source_ids, captured_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		r.ID, r.ScheduleName, r.ProfileID, r.FilePath, settings,
		r.Duration.Milliseconds(), r.Success, r.Message,
		r.BracketGroup, r.BracketIndex, r.IsFused, sourceIDs, r.CapturedAt)
	if err != nil {
		return fmt.Errorf("record result: %w", err)
	}
	return nil
}

// LinkFused stamps the fused id onto every source of a bracket group.
func (s *PostgresStore) LinkFused(ctx context.Context, bracketGroup, fusedID uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE capture_results SET fused_id = $1
		 WHERE bracket_group = $2 AND NOT is_fused`,
		fusedID, bracketGroup)
	if err != nil {
		return fmt.Errorf("link fused result: %w", err)
	}
	return nil
}

// BracketGroup returns a group's results ordered by bracket index, the
// fused row (if any) last.
func (s *PostgresStore) BracketGroup(ctx context.Context, group uuid.UUID) ([]models.CaptureResult, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, schedule_name, profile_id, file_path, settings, duration_ms,
		        success, message, bracket_group, bracket_index, is_fused, source_ids, fused_id, captured_at
		 FROM capture_results
		 WHERE bracket_group = $1
		 ORDER BY is_fused, bracket_index`,
		group)
	if err != nil {
		return nil, fmt.Errorf("query bracket group: %w", err)
	}
	defer rows.Close()
	return scanResults(rows)
}

// RecentResults lists the newest results, optionally filtered by
// schedule.
func (s *PostgresStore) RecentResults(ctx context.Context, scheduleName string, limit int) ([]models.CaptureResult, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, schedule_name, profile_id, file_path, settings, duration_ms,
	                 success, message, bracket_group, bracket_index, is_fused, source_ids, fused_id, captured_at
	          FROM capture_results`
	args := []interface{}{}
	if scheduleName != "" {
		query += ` WHERE schedule_name = $1`
		args = append(args, scheduleName)
	}
	query += fmt.Sprintf(` ORDER BY captured_at DESC LIMIT %d`, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recent results: %w", err)
	}
	defer rows.Close()
	return scanResults(rows)
}

func scanResults(rows pgx.Rows) ([]models.CaptureResult, error) {
	var out []models.CaptureResult
	for rows.Next() {
		var (
			r          models.CaptureResult
			settings   []byte
			durationMs int64
			sourceIDs  []byte
			fusedID    *uuid.UUID
		)
		if err := rows.Scan(&r.ID, &r.ScheduleName, &r.ProfileID, &r.FilePath,
			&settings, &durationMs, &r.Success, &r.Message,
			&r.BracketGroup, &r.BracketIndex, &r.IsFused, &sourceIDs, &fusedID,
			&r.CapturedAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		if err := json.Unmarshal(settings, &r.Settings); err != nil {
			return nil, fmt.Errorf("unmarshal settings: %w", err)
		}
		if len(sourceIDs) > 0 {
			if err := json.Unmarshal(sourceIDs, &r.SourceIDs); err != nil {
				return nil, fmt.Errorf("unmarshal source ids: %w", err)
			}
		}
		r.FusedID = fusedID
		r.Duration = durationFromMs(durationMs)
		out = append(out, r)
	}
	return out, rows.Err()
}

func durationFromMs(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
