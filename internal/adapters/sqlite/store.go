package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"dubbot/internal/core/domain"
)

// Store implements ports.UserStore on SQLite.
type Store struct {
	conn *sql.DB
}

// New opens the database at dbPath and runs migrations.
func New(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with a single connection; it also serializes writers.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	s := &Store{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id INTEGER PRIMARY KEY,
			username TEXT,
			last_used TEXT,
			translations_today INTEGER NOT NULL DEFAULT 0,
			is_premium BOOLEAN NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			username TEXT,
			video_url TEXT NOT NULL,
			translation_mode TEXT NOT NULL,
			timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_history_user_id ON history(user_id)`,
	}

	for _, migration := range migrations {
		if _, err := s.conn.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, migration)
		}
	}
	return nil
}

// AddUserIfAbsent registers the user unless already known.
func (s *Store) AddUserIfAbsent(ctx context.Context, id int64, name string) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT OR IGNORE INTO users (user_id, username, last_used, translations_today, is_premium)
		VALUES (?, ?, NULL, 0, 0)
	`, id, name)
	if err != nil {
		return fmt.Errorf("failed to add user %d: %w", id, err)
	}
	return nil
}

// AppendHistory records one completed job.
func (s *Store) AppendHistory(ctx context.Context, rec domain.HistoryRecord) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO history (user_id, username, video_url, translation_mode)
		VALUES (?, ?, ?, ?)
	`, rec.UserID, rec.Name, rec.SourceURL, string(rec.Mode))
	if err != nil {
		return fmt.Errorf("failed to log translation for user %d: %w", rec.UserID, err)
	}
	return nil
}

// GetStats returns the user's job count and premium flag, nil for unknown users.
func (s *Store) GetStats(ctx context.Context, id int64) (*domain.Stats, error) {
	premium, found, err := s.premium(ctx, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	stats := &domain.Stats{IsPremium: premium}
	err = s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM history WHERE user_id = ?`, id).Scan(&stats.TotalJobs)
	if err != nil {
		return nil, fmt.Errorf("failed to count translations for user %d: %w", id, err)
	}
	return stats, nil
}

// GetUser returns the user, nil when unknown.
func (s *Store) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	var u domain.User
	var name, lastUsed sql.NullString
	err := s.conn.QueryRowContext(ctx, `
		SELECT user_id, username, last_used, translations_today, is_premium
		FROM users WHERE user_id = ?
	`, id).Scan(&u.ID, &name, &lastUsed, &u.TranslationsToday, &u.IsPremium)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}
	u.Name = name.String
	u.LastUsedDate = lastUsed.String
	return &u, nil
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

// RecordSuccess bumps the counter for today in one statement; a counter from an
// earlier day restarts at 1.
func (s *Store) RecordSuccess(ctx context.Context, id int64, today string) error {
	res, err := s.conn.ExecContext(ctx, `
		UPDATE users
		SET translations_today = CASE WHEN last_used = ? THEN translations_today + 1 ELSE 1 END,
		    last_used = ?
		WHERE user_id = ?
	`, today, today, id)
	if err != nil {
		return fmt.Errorf("failed to record translation for user %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("failed to record translation: user %d not found", id)
	}
	return nil
}

// IsPremium reports the user's premium flag; unknown users are not premium.
func (s *Store) IsPremium(ctx context.Context, id int64) (bool, error) {
	premium, _, err := s.premium(ctx, id)
	return premium, err
}

// SetPremium sets the premium flag of a known user.
func (s *Store) SetPremium(ctx context.Context, id int64, premium bool) error {
	res, err := s.conn.ExecContext(ctx, `UPDATE users SET is_premium = ? WHERE user_id = ?`, premium, id)
	if err != nil {
		return fmt.Errorf("failed to set premium for user %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("failed to set premium: user %d not found", id)
	}
	return nil
}

func (s *Store) premium(ctx context.Context, id int64) (premium, found bool, err error) {
	err = s.conn.QueryRowContext(ctx, `SELECT is_premium FROM users WHERE user_id = ?`, id).Scan(&premium)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, false, nil
		}
		return false, false, fmt.Errorf("failed to get premium status for user %d: %w", id, err)
	}
	return premium, true, nil
}
