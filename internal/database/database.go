package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// DB wraps sql.DB for the marketplace entity store.
type DB struct {
	*sql.DB
	path   string
	logger *zerolog.Logger
}

var (
	ErrNotFound               = errors.New("not found")
	ErrNotAvailable           = errors.New("not available")
	ErrConcurrentModification = errors.New("concurrent modification")
	ErrDuplicate              = errors.New("already exists")
	ErrInvalidState           = errors.New("invalid state")
)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// NewDB opens the database at path and runs migrations.
func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// WAL for concurrent readers; immediate transactions so writers queue on
	// busy_timeout instead of failing on lock upgrade.
	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on&_txlock=immediate"
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	db := &DB{DB: sqlDB, path: path, logger: logger}
	if err := db.createTables(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("database initialized")
	return db, nil
}

func (db *DB) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL DEFAULT '',
			email TEXT UNIQUE NOT NULL COLLATE NOCASE,
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL,
			is_verified BOOLEAN NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS interviewers (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER UNIQUE NOT NULL,
			bio TEXT NOT NULL DEFAULT '',
			years_of_experience INTEGER NOT NULL DEFAULT 0,
			hourly_rate_cents INTEGER NOT NULL DEFAULT 0,
			document_url TEXT NOT NULL DEFAULT '',
			document_status TEXT NOT NULL DEFAULT 'NOT_SUBMITTED',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS interviewees (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER UNIQUE NOT NULL,
			current_role TEXT NOT NULL DEFAULT '',
			target_role TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS skills (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT UNIQUE NOT NULL COLLATE NOCASE
		)`,
		`CREATE TABLE IF NOT EXISTS interviewer_skills (
			interviewer_id INTEGER NOT NULL,
			skill_id INTEGER NOT NULL,
			PRIMARY KEY (interviewer_id, skill_id),
			FOREIGN KEY (interviewer_id) REFERENCES interviewers(id) ON DELETE CASCADE,
			FOREIGN KEY (skill_id) REFERENCES skills(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS interviewee_skills (
			interviewee_id INTEGER NOT NULL,
			skill_id INTEGER NOT NULL,
			PRIMARY KEY (interviewee_id, skill_id),
			FOREIGN KEY (interviewee_id) REFERENCES interviewees(id) ON DELETE CASCADE,
			FOREIGN KEY (skill_id) REFERENCES skills(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS availabilities (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			interviewer_id INTEGER NOT NULL,
			date TEXT NOT NULL,
			start_time TEXT NOT NULL,
			end_time TEXT NOT NULL,
			timezone TEXT NOT NULL DEFAULT 'UTC',
			starts_at INTEGER NOT NULL,
			ends_at INTEGER NOT NULL,
			status TEXT NOT NULL DEFAULT 'AVAILABLE',
			version INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			CHECK (ends_at > starts_at),
			FOREIGN KEY (interviewer_id) REFERENCES interviewers(id)
		)`,
		`CREATE TABLE IF NOT EXISTS bookings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			interviewee_id INTEGER NOT NULL,
			availability_id INTEGER NOT NULL,
			booking_date TEXT NOT NULL,
			total_price_cents INTEGER NOT NULL CHECK (total_price_cents > 0),
			payment_status TEXT NOT NULL DEFAULT 'PENDING',
			transaction_id TEXT NOT NULL DEFAULT '',
			cancellation_reason TEXT NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT '',
			version INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			FOREIGN KEY (interviewee_id) REFERENCES interviewees(id),
			FOREIGN KEY (availability_id) REFERENCES availabilities(id)
		)`,
		`CREATE TABLE IF NOT EXISTS interviews (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			interviewee_id INTEGER NOT NULL,
			interviewer_id INTEGER NOT NULL,
			booking_id INTEGER UNIQUE NOT NULL,
			date TEXT NOT NULL,
			start_time TEXT NOT NULL,
			duration_minutes INTEGER NOT NULL,
			end_time TEXT NOT NULL,
			timezone TEXT NOT NULL DEFAULT 'UTC',
			starts_at INTEGER NOT NULL,
			ends_at INTEGER NOT NULL,
			interview_link TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'BOOKED',
			cancellation_reason TEXT NOT NULL DEFAULT '',
			actual_start_time DATETIME,
			actual_end_time DATETIME,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			FOREIGN KEY (booking_id) REFERENCES bookings(id),
			FOREIGN KEY (interviewee_id) REFERENCES interviewees(id),
			FOREIGN KEY (interviewer_id) REFERENCES interviewers(id)
		)`,
		`CREATE TABLE IF NOT EXISTS payments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			booking_id INTEGER NOT NULL,
			transaction_id TEXT UNIQUE NOT NULL,
			payment_date DATETIME,
			amount_cents INTEGER NOT NULL CHECK (amount_cents > 0),
			currency TEXT NOT NULL,
			payment_method TEXT NOT NULL DEFAULT '',
			refund_amount_cents INTEGER NOT NULL DEFAULT 0,
			payment_status TEXT NOT NULL DEFAULT 'PENDING',
			interview_id INTEGER,
			checkout_url TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			FOREIGN KEY (booking_id) REFERENCES bookings(id),
			FOREIGN KEY (interview_id) REFERENCES interviews(id)
		)`,
		`CREATE TABLE IF NOT EXISTS feedback (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			interview_id INTEGER NOT NULL,
			giver_id INTEGER NOT NULL,
			receiver_id INTEGER NOT NULL,
			rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
			comments TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL,
			UNIQUE (interview_id, giver_id),
			FOREIGN KEY (interview_id) REFERENCES interviews(id),
			FOREIGN KEY (giver_id) REFERENCES users(id),
			FOREIGN KEY (receiver_id) REFERENCES users(id)
		)`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			type TEXT NOT NULL,
			message TEXT NOT NULL,
			is_read BOOLEAN NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS verifications (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			otp TEXT NOT NULL,
			expires_at DATETIME NOT NULL,
			verified BOOLEAN NOT NULL DEFAULT 0,
			attempts INTEGER NOT NULL DEFAULT 0,
			revoked BOOLEAN NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		)`,

		// At most one active booking per slot.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_bookings_active_slot ON bookings(availability_id)
			WHERE payment_status IN ('PENDING', 'CONFIRMED')`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_interviewee ON bookings(interviewee_id)`,
		`CREATE INDEX IF NOT EXISTS idx_availabilities_interviewer ON availabilities(interviewer_id, starts_at)`,
		`CREATE INDEX IF NOT EXISTS idx_availabilities_status_end ON availabilities(status, ends_at)`,
		`CREATE INDEX IF NOT EXISTS idx_interviews_status_end ON interviews(status, ends_at)`,
		`CREATE INDEX IF NOT EXISTS idx_payments_booking ON payments(booking_id)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, is_read)`,
		`CREATE INDEX IF NOT EXISTS idx_verifications_user ON verifications(user_id, created_at)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("exec migration %s: %w", trimSQL(q), err)
		}
	}
	return db.ensureNewColumns()
}

// ensureNewColumns adds columns introduced after the first schema version.
func (db *DB) ensureNewColumns() error {
	migrations := []string{
		`ALTER TABLE interviews ADD COLUMN cancellation_reason TEXT NOT NULL DEFAULT ''`,
		`ALTER TABLE payments ADD COLUMN checkout_url TEXT NOT NULL DEFAULT ''`,
	}

	for _, m := range migrations {
		_, err := db.Exec(m)
		if err != nil && !strings.Contains(strings.ToLower(err.Error()), "duplicate column") {
			return fmt.Errorf("migration %s: %w", trimSQL(m), err)
		}
	}
	return nil
}

func trimSQL(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}

// Path returns the database file location.
func (db *DB) Path() string { return db.path }

func (db *DB) Close() error {
	return db.DB.Close()
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func notFound(entity string, id any) error {
	return fmt.Errorf("%s %v %w", entity, id, ErrNotFound)
}

func exists(ctx context.Context, q querier, table string, id int64) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, fmt.Sprintf("SELECT 1 FROM %s WHERE id = ?", table), id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func now() time.Time {
	return time.Now().UTC()
}
