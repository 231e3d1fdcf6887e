// Package sqlite persists user allergy profiles and the alert history
// written after each assessment. The database is a local file; the service
// runs fine without one, it just loses profile lookups and history.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pollenguard/allergy-risk/internal/domain"
)

const schemaVersion = "001_initial"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL DEFAULT '',
	allergies TEXT NOT NULL DEFAULT '[]',
	sensitivity_level INTEGER NOT NULL DEFAULT 5,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS alert_logs (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	location TEXT NOT NULL,
	risk_level TEXT NOT NULL,
	aqi_snapshot TEXT NOT NULL DEFAULT '{}',
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_alert_logs_user_time ON alert_logs (user_id, created_at DESC);
`

// Store wraps the SQLite connection used for profiles and alert logs.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens the database at path and applies the schema.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE version = ?", schemaVersion).Scan(&count); err != nil {
		return fmt.Errorf("check migration status: %w", err)
	}
	if count > 0 {
		return nil
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	if _, err := db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record migration: %w", err)
	}
	return nil
}

// Ping reports whether the database is reachable. Used by the readiness probe.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetUserProfile loads one user's stored profile. A missing user returns
// (nil, nil) so callers can fall back to request-supplied allergies without
// treating the lookup as a failure.
func (s *Store) GetUserProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, email, allergies, sensitivity_level FROM users WHERE id = ?", userID)

	var (
		profile      domain.UserProfile
		allergiesRaw string
	)
	err := row.Scan(&profile.ID, &profile.Email, &allergiesRaw, &profile.SensitivityLevel)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query user %s: %w", userID, err)
	}

	// Stored allergies are a JSON array. A corrupt value degrades to an empty
	// list rather than failing the whole assessment.
	if err := json.Unmarshal([]byte(allergiesRaw), &profile.Allergies); err != nil {
		s.logger.Warn("corrupt allergies column, treating as empty",
			"user_id", userID,
			"error", err)
		profile.Allergies = nil
	}
	return &profile, nil
}

// UpsertUserProfile creates or replaces a user's stored profile. A missing ID
// is filled with a fresh UUID and a zero sensitivity falls back to the
// default; the completed profile is returned.
func (s *Store) UpsertUserProfile(ctx context.Context, profile domain.UserProfile) (domain.UserProfile, error) {
	if profile.ID == "" {
		profile.ID = uuid.New().String()
	}
	if profile.SensitivityLevel == 0 {
		profile.SensitivityLevel = domain.DefaultSensitivity
	}

	allergies := []byte("[]")
	if profile.Allergies != nil {
		var err error
		allergies, err = json.Marshal(profile.Allergies)
		if err != nil {
			return profile, fmt.Errorf("serialize allergies: %w", err)
		}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, allergies, sensitivity_level) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET email = excluded.email, allergies = excluded.allergies, sensitivity_level = excluded.sensitivity_level`,
		profile.ID, profile.Email, string(allergies), profile.SensitivityLevel)
	if err != nil {
		return profile, fmt.Errorf("upsert user %s: %w", profile.ID, err)
	}

	s.logger.Debug("profile stored", "user_id", profile.ID, "allergies", len(profile.Allergies))
	return profile, nil
}

// LogAlert records one assessment outcome. Missing ID and CreatedAt fields
// are filled in, and the completed entry is returned.
func (s *Store) LogAlert(ctx context.Context, entry domain.AlertEntry) (domain.AlertEntry, error) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = domain.Now().UTC()
	}

	snapshot, err := json.Marshal(entry.Snapshot)
	if err != nil {
		return entry, fmt.Errorf("serialize snapshot: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO alert_logs (id, user_id, location, risk_level, aqi_snapshot, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		entry.ID, entry.UserID, entry.Location, entry.RiskLevel, string(snapshot), entry.CreatedAt)
	if err != nil {
		return entry, fmt.Errorf("insert alert log: %w", err)
	}

	s.logger.Debug("alert logged", "user_id", entry.UserID, "location", entry.Location, "risk_level", entry.RiskLevel)
	return entry, nil
}

// ListAlerts returns a user's most recent alert entries, newest first. A
// non-positive limit defaults to 10.
func (s *Store) ListAlerts(ctx context.Context, userID string, limit int) ([]domain.AlertEntry, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, user_id, location, risk_level, aqi_snapshot, created_at FROM alert_logs WHERE user_id = ? ORDER BY created_at DESC LIMIT ?",
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query alert logs: %w", err)
	}
	defer rows.Close()

	var entries []domain.AlertEntry
	for rows.Next() {
		var (
			entry       domain.AlertEntry
			snapshotRaw string
		)
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.Location, &entry.RiskLevel, &snapshotRaw, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan alert log: %w", err)
		}
		if err := json.Unmarshal([]byte(snapshotRaw), &entry.Snapshot); err != nil {
			s.logger.Warn("corrupt snapshot column, returning empty snapshot",
				"alert_id", entry.ID,
				"error", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alert logs: %w", err)
	}
	return entries, nil
}

// PruneAlerts deletes alert entries older than the cutoff and reports how
// many were removed.
func (s *Store) PruneAlerts(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM alert_logs WHERE created_at < ?", olderThan.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune alert logs: %w", err)
	}
	pruned, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count pruned rows: %w", err)
	}
	return pruned, nil
}
