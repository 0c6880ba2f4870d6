package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tafahom/tafahom-stream/internal/observe"
)

// Schema is the SQL DDL for the wallets and credit_transactions tables.
// Execute it via [PostgresStore.Migrate] or apply it manually during
// deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS wallets (
    user_id           TEXT PRIMARY KEY,
    plan              TEXT NOT NULL DEFAULT 'free',
    credits_per_month INTEGER NOT NULL DEFAULT 0,
    credits_used      INTEGER NOT NULL DEFAULT 0,
    bonus_credits     INTEGER NOT NULL DEFAULT 0,
    last_reset_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
    created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS credit_transactions (
    id         BIGSERIAL PRIMARY KEY,
    user_id    TEXT NOT NULL REFERENCES wallets(user_id),
    kind       TEXT NOT NULL,
    amount     INTEGER NOT NULL,
    reason     TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_credit_transactions_user ON credit_transactions(user_id);
`

// DB is the database interface used by [PostgresStore]. *pgxpool.Pool
// satisfies this interface.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresStore is a [Store] backed by PostgreSQL. Every mutating operation
// runs inside one transaction that takes a `SELECT ... FOR UPDATE` row lock
// on the wallet, so reset-if-needed, the affordability check, and the
// transaction-log append are all atomic under concurrent callers.
type PostgresStore struct {
	db      DB
	metrics *observe.Metrics
}

var _ Store = (*PostgresStore)(nil)

// Option configures a PostgresStore.
type Option func(*PostgresStore)

// WithMetrics attaches the application's metrics recorder, so every Consume
// and Reward call is counted in [observe.Metrics.WalletConsumed] /
// WalletRewarded. A nil Metrics (the default) disables recording.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *PostgresStore) { s.metrics = m }
}

// NewPostgresStore creates a new [PostgresStore]. The caller is responsible
// for calling [PostgresStore.Migrate] before issuing queries.
func NewPostgresStore(db DB, opts ...Option) *PostgresStore {
	s := &PostgresStore{db: db}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Migrate executes the [Schema] DDL, creating the wallets and
// credit_transactions tables and indexes if they do not already exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("wallet: migrate: %w", err)
	}
	return nil
}

func (s *PostgresStore) Remaining(ctx context.Context, userID string) (int, error) {
	w, err := s.withLockedWallet(ctx, userID, func(context.Context, pgx.Tx, *Wallet) error { return nil })
	if err != nil {
		return 0, err
	}
	return w.Remaining(), nil
}

func (s *PostgresStore) CanConsume(ctx context.Context, userID string, n int) (bool, error) {
	remaining, err := s.Remaining(ctx, userID)
	if err != nil {
		return false, err
	}
	return remaining >= n, nil
}

func (s *PostgresStore) Consume(ctx context.Context, userID string, n int, reason string) error {
	_, err := s.withLockedWallet(ctx, userID, func(ctx context.Context, tx pgx.Tx, w *Wallet) error {
		if w.Remaining() < n {
			return ErrInsufficientCredits
		}
		if _, err := tx.Exec(ctx, `UPDATE wallets SET credits_used = credits_used + $2, updated_at = now() WHERE user_id = $1`, userID, n); err != nil {
			return fmt.Errorf("wallet: consume update: %w", err)
		}
		if err := appendTransaction(ctx, tx, userID, TransactionUsed, n, reason); err != nil {
			return err
		}
		w.CreditsUsed += n
		return nil
	})
	if err == nil && s.metrics != nil {
		s.metrics.RecordWalletConsumed(ctx, int64(n), reason)
	}
	return err
}

func (s *PostgresStore) Reward(ctx context.Context, userID string, n int, reason string) error {
	_, err := s.withLockedWallet(ctx, userID, func(ctx context.Context, tx pgx.Tx, w *Wallet) error {
		if _, err := tx.Exec(ctx, `UPDATE wallets SET bonus_credits = bonus_credits + $2, updated_at = now() WHERE user_id = $1`, userID, n); err != nil {
			return fmt.Errorf("wallet: reward update: %w", err)
		}
		if err := appendTransaction(ctx, tx, userID, TransactionEarned, n, reason); err != nil {
			return err
		}
		w.BonusCredits += n
		return nil
	})
	if err == nil && s.metrics != nil {
		s.metrics.RecordWalletRewarded(ctx, int64(n), reason)
	}
	return err
}

func (s *PostgresStore) GetOrProvision(ctx context.Context, userID string) (*Wallet, error) {
	return s.withLockedWallet(ctx, userID, func(context.Context, pgx.Tx, *Wallet) error { return nil })
}

// withLockedWallet begins a transaction, provisions the wallet row if
// missing, locks it with SELECT ... FOR UPDATE, applies reset-if-needed, runs
// mutate against the locked wallet, then commits. mutate is responsible for
// issuing any additional writes (mutate's in-memory edits to w are for the
// caller's benefit only; they are not re-read from the database).
func (s *PostgresStore) withLockedWallet(ctx context.Context, userID string, mutate func(ctx context.Context, tx pgx.Tx, w *Wallet) error) (*Wallet, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("wallet: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		INSERT INTO wallets (user_id, plan, credits_per_month)
		VALUES ($1, 'free', $2)
		ON CONFLICT (user_id) DO NOTHING`, userID, FreePlanCreditsPerMonth); err != nil {
		return nil, fmt.Errorf("wallet: provision: %w", err)
	}

	w, err := lockWallet(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	if time.Since(w.LastResetAt) >= ResetInterval {
		if _, err := tx.Exec(ctx, `UPDATE wallets SET credits_used = 0, last_reset_at = now(), updated_at = now() WHERE user_id = $1`, userID); err != nil {
			return nil, fmt.Errorf("wallet: reset: %w", err)
		}
		w.CreditsUsed = 0
		w.LastResetAt = time.Now()
	}

	if err := mutate(ctx, tx, w); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("wallet: commit: %w", err)
	}
	return w, nil
}

// lockWallet reads a wallet row with FOR UPDATE so concurrent callers for the
// same user serialize on this transaction.
func lockWallet(ctx context.Context, tx pgx.Tx, userID string) (*Wallet, error) {
	const query = `
		SELECT user_id, plan, credits_per_month, credits_used, bonus_credits,
		       last_reset_at, created_at, updated_at
		FROM wallets
		WHERE user_id = $1
		FOR UPDATE`

	var w Wallet
	err := tx.QueryRow(ctx, query, userID).Scan(
		&w.UserID, &w.Plan, &w.CreditsPerMonth, &w.CreditsUsed, &w.BonusCredits,
		&w.LastResetAt, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("wallet: lock %q: row missing after provision", userID)
		}
		return nil, fmt.Errorf("wallet: lock %q: %w", userID, err)
	}
	return &w, nil
}

func appendTransaction(ctx context.Context, tx pgx.Tx, userID string, kind TransactionKind, amount int, reason string) error {
	const query = `
		INSERT INTO credit_transactions (user_id, kind, amount, reason)
		VALUES ($1, $2, $3, $4)`
	if _, err := tx.Exec(ctx, query, userID, string(kind), amount, reason); err != nil {
		return fmt.Errorf("wallet: append transaction: %w", err)
	}
	return nil
}
