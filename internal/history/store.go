package history

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"dashcam/internal/config"
)

// Session is one arm/disarm cycle.
type Session struct {
	ID           string
	BaseFilename string
	ArmedAt      time.Time
	DisarmedAt   *time.Time
	Recordings   int
}

// Recording is one stream's output within a session.
type Recording struct {
	ID           int64
	SessionID    string
	Stream       string
	OutputPrefix string
	StartedAt    time.Time
	EndedAt      *time.Time
	Outcome      string
}

// Store manages session persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database and applies migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.LogDir, "history.db")
	// Pragmas set via Exec only apply to the pool connection that ran them;
	// the DSN form applies them to every connection database/sql opens.
	dsn := "file:" + dbPath + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// StartSession records a new armed cycle and returns its identifier.
func (s *Store) StartSession(ctx context.Context, baseFilename string) (string, error) {
	id := uuid.NewString()
	armedAt := time.Now().UTC().Format(time.RFC3339Nano)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, base_filename, armed_at) VALUES (?, ?, ?)`,
		id, baseFilename, armedAt)
	if err != nil {
		return "", fmt.Errorf("insert session: %w", err)
	}
	return id, nil
}

// EndSession stamps the disarm time on a session.
func (s *Store) EndSession(ctx context.Context, sessionID string) error {
	disarmedAt := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET disarmed_at = ? WHERE id = ?`,
		disarmedAt, sessionID)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("session %s not found", sessionID)
	}
	return nil
}

// AddRecording records a stream recording launched within a session.
func (s *Store) AddRecording(ctx context.Context, sessionID, stream, outputPrefix string) error {
	startedAt := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO recordings (session_id, stream, output_prefix, started_at)
         VALUES (?, ?, ?, ?)`,
		sessionID, stream, outputPrefix, startedAt)
	if err != nil {
		return fmt.Errorf("insert recording: %w", err)
	}
	return nil
}

// FinishRecording stamps the end time and outcome on the open recording row
// matching the output prefix. Finishing an unknown recording is a no-op so a
// late process exit after a crash-cleaned session does not error.
func (s *Store) FinishRecording(ctx context.Context, outputPrefix, outcome string) error {
	endedAt := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		`UPDATE recordings SET ended_at = ?, outcome = ?
         WHERE output_prefix = ? AND ended_at IS NULL`,
		endedAt, outcome, outputPrefix)
	if err != nil {
		return fmt.Errorf("finish recording: %w", err)
	}
	return nil
}

// RecentSessions returns the newest sessions first, with recording counts.
func (s *Store) RecentSessions(ctx context.Context, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.id, s.base_filename, s.armed_at, s.disarmed_at,
                (SELECT COUNT(1) FROM recordings r WHERE r.session_id = s.id)
         FROM sessions s
         ORDER BY s.armed_at DESC, s.rowid DESC
         LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var (
			session    Session
			armedAt    string
			disarmedAt sql.NullString
		)
		if err := rows.Scan(&session.ID, &session.BaseFilename, &armedAt, &disarmedAt, &session.Recordings); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		session.ArmedAt, err = parseTimestamp(armedAt)
		if err != nil {
			return nil, err
		}
		if disarmedAt.Valid {
			parsed, err := parseTimestamp(disarmedAt.String)
			if err != nil {
				return nil, err
			}
			session.DisarmedAt = &parsed
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// SessionRecordings returns all recordings of one session in start order.
func (s *Store) SessionRecordings(ctx context.Context, sessionID string) ([]Recording, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, stream, output_prefix, started_at, ended_at, outcome
         FROM recordings
         WHERE session_id = ?
         ORDER BY started_at, id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query recordings: %w", err)
	}
	defer rows.Close()

	var recordings []Recording
	for rows.Next() {
		var (
			rec       Recording
			startedAt string
			endedAt   sql.NullString
			outcome   sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.Stream, &rec.OutputPrefix, &startedAt, &endedAt, &outcome); err != nil {
			return nil, fmt.Errorf("scan recording: %w", err)
		}
		rec.StartedAt, err = parseTimestamp(startedAt)
		if err != nil {
			return nil, err
		}
		if endedAt.Valid {
			parsed, err := parseTimestamp(endedAt.String)
			if err != nil {
				return nil, err
			}
			rec.EndedAt = &parsed
		}
		rec.Outcome = outcome.String
		recordings = append(recordings, rec)
	}
	return recordings, rows.Err()
}

func parseTimestamp(value string) (time.Time, error) {
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", value, err)
	}
	return parsed, nil
}
