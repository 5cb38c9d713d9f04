package session

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements Store on a local SQLite database. It is the
// default backend: sessions survive restarts without any external service.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dbPath and runs
// migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite is single-writer by design. Keep a single shared connection so
	// concurrent callers are serialized by database/sql instead of fighting
	// for write locks across multiple underlying connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	store := &SQLiteStore{db: db}
	if err := store.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, sender string) (Session, error) {
	var sess Session
	var step, jobs string
	err := s.db.QueryRowContext(ctx, `
		SELECT step, customer, jobs, job_name FROM sessions WHERE sender = ?
	`, sender).Scan(&step, &sess.Customer, &jobs, &sess.JobName)
	if err == sql.ErrNoRows {
		return Session{}, nil
	}
	if err != nil {
		return Session{}, fmt.Errorf("failed to get session: %w", err)
	}

	sess.Step = Step(step)
	if err := json.Unmarshal([]byte(jobs), &sess.Jobs); err != nil {
		return Session{}, fmt.Errorf("failed to decode stored jobs: %w", err)
	}
	return sess, nil
}

// Set implements Store. The merge is a read-modify-write; with a single
// shared connection writes for one sender are serialized, matching the
// last-writer-wins contract.
func (s *SQLiteStore) Set(ctx context.Context, sender string, fields Fields) error {
	current, err := s.Get(ctx, sender)
	if err != nil {
		return err
	}
	return s.write(ctx, sender, merge(current, fields))
}

// Clear implements Store.
func (s *SQLiteStore) Clear(ctx context.Context, sender string) error {
	return s.write(ctx, sender, Session{})
}

func (s *SQLiteStore) write(ctx context.Context, sender string, sess Session) error {
	jobs, err := json.Marshal(sess.Jobs)
	if err != nil {
		return fmt.Errorf("failed to encode jobs: %w", err)
	}

	now := time.Now()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (sender, step, customer, jobs, job_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(sender) DO UPDATE SET
			step = excluded.step,
			customer = excluded.customer,
			jobs = excluded.jobs,
			job_name = excluded.job_name,
			updated_at = excluded.updated_at
	`, sender, string(sess.Step), sess.Customer, string(jobs), sess.JobName, now, now)
	if err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

// RecordExchange implements Store.
func (s *SQLiteStore) RecordExchange(ctx context.Context, sender, inbound, reply string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO exchanges (sender, inbound, reply, created_at) VALUES (?, ?, ?, ?)
	`, sender, inbound, reply, time.Now())
	if err != nil {
		return fmt.Errorf("failed to record exchange: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations applies all pending migrations from the embedded directory.
func (s *SQLiteStore) runMigrations() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			description TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	var currentVersion int
	err = s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		// Extract version from filename (e.g. "0001_init.sql" -> 1).
		parts := strings.SplitN(entry.Name(), "_", 2)
		if len(parts) < 2 {
			continue
		}
		var version int
		if _, err := fmt.Sscanf(parts[0], "%d", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}
		description := strings.TrimSuffix(parts[1], ".sql")

		content, err := migrationsFS.ReadFile(filepath.Join("migrations", entry.Name()))
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", version, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to execute migration %d: %w", version, err)
		}
		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, applied_at, description) VALUES (?, ?, ?)",
			version, time.Now(), description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", version, err)
		}

		slog.Info("applied migration", "version", fmt.Sprintf("%04d", version), "description", description)
	}

	return nil
}
