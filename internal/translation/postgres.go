package translation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema is the SQL DDL for the translation_records table.
const Schema = `
CREATE TABLE IF NOT EXISTS translation_records (
    id                BIGSERIAL PRIMARY KEY,
    user_id           TEXT NOT NULL,
    direction         TEXT NOT NULL,
    input_type        TEXT NOT NULL DEFAULT '',
    output_type       TEXT NOT NULL DEFAULT '',
    status            TEXT NOT NULL DEFAULT 'pending',
    input_text        TEXT NOT NULL DEFAULT '',
    output_text       TEXT NOT NULL DEFAULT '',
    output_media_url  TEXT NOT NULL DEFAULT '',
    source_language   TEXT NOT NULL DEFAULT '',
    mode              TEXT NOT NULL DEFAULT 'batch',
    created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
    started_at        TIMESTAMPTZ,
    completed_at      TIMESTAMPTZ,
    error_message     TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_translation_records_user ON translation_records(user_id);
`

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore is a [Store] backed by PostgreSQL.
type PostgresStore struct {
	db DB
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a new [PostgresStore]. The caller is responsible
// for calling [PostgresStore.Migrate] before issuing queries.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate executes the [Schema] DDL.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("translation: migrate: %w", err)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, rec *Record) error {
	const query = `
		INSERT INTO translation_records (
			user_id, direction, input_type, output_type, status,
			input_text, source_language, mode, started_at
		) VALUES ($1,$2,$3,$4,'processing',$5,$6,$7, now())
		RETURNING id, created_at, started_at`

	err := s.db.QueryRow(ctx, query,
		rec.UserID, string(rec.Direction), rec.InputType, rec.OutputType,
		rec.InputText, rec.SourceLanguage, string(rec.Mode),
	).Scan(&rec.ID, &rec.CreatedAt, &rec.StartedAt)
	if err != nil {
		return fmt.Errorf("translation: create: %w", err)
	}
	rec.Status = StatusProcessing
	return nil
}

func (s *PostgresStore) Complete(ctx context.Context, id int64, outputText, outputMediaURL string) error {
	const query = `
		UPDATE translation_records
		SET status = 'completed', output_text = $2, output_media_url = $3, completed_at = now()
		WHERE id = $1
		RETURNING id`

	var returnedID int64
	err := s.db.QueryRow(ctx, query, id, outputText, outputMediaURL).Scan(&returnedID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("translation: complete: record %d not found", id)
		}
		return fmt.Errorf("translation: complete: %w", err)
	}
	return nil
}

func (s *PostgresStore) Fail(ctx context.Context, id int64, errMsg string) error {
	const query = `
		UPDATE translation_records
		SET status = 'failed', error_message = $2, completed_at = now()
		WHERE id = $1
		RETURNING id`

	var returnedID int64
	err := s.db.QueryRow(ctx, query, id, errMsg).Scan(&returnedID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("translation: fail: record %d not found", id)
		}
		return fmt.Errorf("translation: fail: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id int64) (*Record, error) {
	const query = `
		SELECT id, user_id, direction, input_type, output_type, status,
		       input_text, output_text, output_media_url, source_language, mode,
		       created_at, started_at, completed_at, error_message
		FROM translation_records
		WHERE id = $1`

	var rec Record
	var direction, mode string
	var startedAt, completedAt *time.Time

	err := s.db.QueryRow(ctx, query, id).Scan(
		&rec.ID, &rec.UserID, &direction, &rec.InputType, &rec.OutputType, &rec.Status,
		&rec.InputText, &rec.OutputText, &rec.OutputMediaURL, &rec.SourceLanguage, &mode,
		&rec.CreatedAt, &startedAt, &completedAt, &rec.ErrorMessage,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("translation: get %d: %w", id, err)
	}
	rec.Direction = Direction(direction)
	rec.Mode = Mode(mode)
	if startedAt != nil {
		rec.StartedAt = *startedAt
	}
	if completedAt != nil {
		rec.CompletedAt = *completedAt
	}
	return &rec, nil
}
