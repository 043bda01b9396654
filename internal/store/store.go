// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/verte-zerg/zonecalc/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// SettingMode stores the active mode.
const SettingMode = "mode"

// Usage is a persisted counter window.
type Usage struct {
	Count   int
	ResetAt time.Time
}

// Store wraps SQLite access for tracked sequences.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS records (
			machine INTEGER NOT NULL,
			position INTEGER NOT NULL,
			id TEXT NOT NULL,
			game_count TEXT NOT NULL,
			bonus_type TEXT NOT NULL,
			is_separator INTEGER NOT NULL,
			PRIMARY KEY (machine, position)
		);`,
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS usage (
			name TEXT PRIMARY KEY,
			count INTEGER NOT NULL,
			reset_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_records_id ON records(id);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// GetSequence returns the stored records of a machine in order. A machine
// that was never saved yields a nil slice. Derived fields are left zero.
func (s *Store) GetSequence(ctx context.Context, machine model.Machine) ([]model.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, game_count, bonus_type, is_separator
		 FROM records
		 WHERE machine = ?
		 ORDER BY position ASC`, int(machine))
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.Record
	for rows.Next() {
		var rec model.Record
		var bonus string
		var separator int
		if err := rows.Scan(&rec.ID, &rec.GameCount, &bonus, &separator); err != nil {
			return nil, err
		}
		rec.BonusType, _ = model.ParseBonusType(bonus)
		rec.IsSeparator = separator != 0
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// HasSequence reports whether a machine has been saved before.
func (s *Store) HasSequence(ctx context.Context, machine model.Machine) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records WHERE machine = ?`, int(machine)).Scan(&n)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}
	_, ok, err := s.GetSetting(ctx, savedKey(machine))
	return ok, err
}

// SetSequence replaces the stored records of a machine.
func (s *Store) SetSequence(ctx context.Context, machine model.Machine, records []model.Record) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM records WHERE machine = ?`, int(machine)); err != nil {
		return err
	}
	if len(records) > 0 {
		stmt, perr := tx.PrepareContext(ctx,
			`INSERT INTO records (machine, position, id, game_count, bonus_type, is_separator)
			 VALUES (?, ?, ?, ?, ?, ?)`)
		if perr != nil {
			err = perr
			return err
		}
		defer func() {
			if cerr := stmt.Close(); cerr != nil {
				// Best-effort statement close.
				_ = cerr
			}
		}()
		for i, rec := range records {
			separator := 0
			if rec.IsSeparator {
				separator = 1
			}
			if _, err = stmt.ExecContext(ctx, int(machine), i, rec.ID, rec.GameCount, rec.BonusType.String(), separator); err != nil {
				return err
			}
		}
	}
	// An explicitly emptied machine must not be re-seeded on next load.
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, '1')
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, savedKey(machine)); err != nil {
		return err
	}

	err = tx.Commit()
	return err
}

// GetSetting returns a stored setting and whether it exists.
func (s *Store) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// SetSetting stores a setting.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

// GetUsage returns a usage window. A missing window is the zero Usage.
func (s *Store) GetUsage(ctx context.Context, name string) (Usage, error) {
	var usage Usage
	var resetAt string
	err := s.db.QueryRowContext(ctx, `SELECT count, reset_at FROM usage WHERE name = ?`, name).Scan(&usage.Count, &resetAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Usage{}, nil
	}
	if err != nil {
		return Usage{}, err
	}
	parsed, err := time.Parse(time.RFC3339Nano, resetAt)
	if err != nil {
		return Usage{}, err
	}
	usage.ResetAt = parsed
	return usage, nil
}

// SaveUsage stores a usage window.
func (s *Store) SaveUsage(ctx context.Context, name string, usage Usage) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO usage (name, count, reset_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET count = excluded.count, reset_at = excluded.reset_at`,
		name, usage.Count, usage.ResetAt.UTC().Format(time.RFC3339Nano))
	return err
}

func savedKey(machine model.Machine) string {
	return "saved." + strconv.Itoa(int(machine))
}
