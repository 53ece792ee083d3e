package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dubbot/internal/core/domain"
)

// Store implements ports.UserStore on PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to databaseURL and creates the schema if needed.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open DB pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}
	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) migrate(ctx context.Context) error {
	const q = `
		CREATE TABLE IF NOT EXISTS users (
			user_id BIGINT PRIMARY KEY,
			username TEXT,
			last_used DATE,
			translations_today INTEGER NOT NULL DEFAULT 0,
			is_premium BOOLEAN NOT NULL DEFAULT FALSE
		);
		CREATE TABLE IF NOT EXISTS history (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL,
			username TEXT,
			video_url TEXT NOT NULL,
			translation_mode TEXT NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_history_user_id ON history(user_id);
	`
	if _, err := s.pool.Exec(ctx, q); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}
	return nil
}

// AddUserIfAbsent registers the user unless already known.
func (s *Store) AddUserIfAbsent(ctx context.Context, id int64, name string) error {
	const q = `
		INSERT INTO users (user_id, username, last_used, translations_today, is_premium)
		VALUES ($1, $2, NULL, 0, FALSE)
		ON CONFLICT (user_id) DO NOTHING
	`
	if _, err := s.pool.Exec(ctx, q, id, name); err != nil {
		return fmt.Errorf("adding user %d: %w", id, err)
	}
	return nil
}

// AppendHistory records one completed job.
func (s *Store) AppendHistory(ctx context.Context, rec domain.HistoryRecord) error {
	const q = `INSERT INTO history (user_id, username, video_url, translation_mode) VALUES ($1, $2, $3, $4)`
	if _, err := s.pool.Exec(ctx, q, rec.UserID, rec.Name, rec.SourceURL, string(rec.Mode)); err != nil {
		return fmt.Errorf("recording history for user %d: %w", rec.UserID, err)
	}
	return nil
}

// GetStats returns the user's job count and premium flag, nil for unknown users.
func (s *Store) GetStats(ctx context.Context, id int64) (*domain.Stats, error) {
	const q = `
		SELECT u.is_premium, (SELECT COUNT(*) FROM history h WHERE h.user_id = u.user_id)
		FROM users u
		WHERE u.user_id = $1
	`
	var stats domain.Stats
	if err := s.pool.QueryRow(ctx, q, id).Scan(&stats.IsPremium, &stats.TotalJobs); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch stats for user %d: %w", id, err)
	}
	return &stats, nil
}

// GetUser returns the user, nil when unknown.
func (s *Store) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	return getUser(ctx, s.pool, id, "")
}

// CanTranslate reports whether the user may start a job on today.
func (s *Store) CanTranslate(ctx context.Context, id int64, today string, dailyLimit int) (bool, error) {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return false, err
	}
	if u == nil {
		return false, nil
	}
	return u.CanTranslate(today, dailyLimit), nil
}

// RecordSuccess locks the user row inside a serializable transaction and writes
// the day-aware counter.
func (s *Store) RecordSuccess(ctx context.Context, id int64, today string) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("starting transaction for user %d: %w", id, err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	u, err := getUser(ctx, tx, id, "FOR UPDATE")
	if err != nil {
		return err
	}
	if u == nil {
		return fmt.Errorf("recording success: user %d not found", id)
	}
	next := u.AfterSuccess(today)

	const q = `UPDATE users SET last_used = $2::date, translations_today = $3 WHERE user_id = $1`
	if _, err := tx.Exec(ctx, q, id, next.LastUsedDate, next.TranslationsToday); err != nil {
		return fmt.Errorf("updating usage for user %d: %w", id, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing usage for user %d: %w", id, err)
	}
	return nil
}

// IsPremium reports the user's premium flag; unknown users are not premium.
func (s *Store) IsPremium(ctx context.Context, id int64) (bool, error) {
	var premium bool
	err := s.pool.QueryRow(ctx, `SELECT is_premium FROM users WHERE user_id = $1`, id).Scan(&premium)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("fetch premium status for user %d: %w", id, err)
	}
	return premium, nil
}

// SetPremium sets the premium flag of a known user.
func (s *Store) SetPremium(ctx context.Context, id int64, premium bool) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET is_premium = $2 WHERE user_id = $1`, id, premium)
	if err != nil {
		return fmt.Errorf("set premium for user %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("set premium: user %d not found", id)
	}
	return nil
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getUser(ctx context.Context, db querier, id int64, lock string) (*domain.User, error) {
	q := `
		SELECT user_id, COALESCE(username, ''), COALESCE(to_char(last_used, 'YYYY-MM-DD'), ''),
		       translations_today, is_premium
		FROM users
		WHERE user_id = $1 ` + lock
	var u domain.User
	err := db.QueryRow(ctx, q, id).Scan(&u.ID, &u.Name, &u.LastUsedDate, &u.TranslationsToday, &u.IsPremium)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch user %d: %w", id, err)
	}
	return &u, nil
}
