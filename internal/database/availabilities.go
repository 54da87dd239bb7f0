package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"interviewhub/internal/models"
)

const availabilityColumns = `id, interviewer_id, date, start_time, end_time, timezone, starts_at, ends_at, status, version, created_at, updated_at`

func scanAvailability(row interface{ Scan(...any) error }) (*models.Availability, error) {
	var a models.Availability
	var startsAt, endsAt int64
	var status string
	if err := row.Scan(&a.ID, &a.InterviewerID, &a.Date, &a.StartTime, &a.EndTime, &a.Timezone,
		&startsAt, &endsAt, &status, &a.Version, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.StartsAt = time.Unix(startsAt, 0).UTC()
	a.EndsAt = time.Unix(endsAt, 0).UTC()
	a.Status = models.AvailabilityStatus(status)
	return &a, nil
}

func getAvailability(ctx context.Context, q querier, id int64) (*models.Availability, error) {
	a, err := scanAvailability(q.QueryRowContext(ctx, `SELECT `+availabilityColumns+` FROM availabilities WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("availability", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get availability: %w", err)
	}
	return a, nil
}

func (db *DB) GetAvailability(ctx context.Context, id int64) (*models.Availability, error) {
	return getAvailability(ctx, db, id)
}

// hasOverlap reports whether the interviewer already offers a live slot intersecting a.
func hasOverlap(ctx context.Context, q querier, a *models.Availability) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM availabilities
		WHERE interviewer_id = ? AND id != ? AND status != ?
		  AND starts_at < ? AND ends_at > ?`,
		a.InterviewerID, a.ID, string(models.AvailabilityExpired), a.EndsAt.Unix(), a.StartsAt.Unix()).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check overlap: %w", err)
	}
	return n > 0, nil
}

// CreateAvailability inserts a resolved slot in status AVAILABLE.
func (db *DB) CreateAvailability(ctx context.Context, a *models.Availability) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := insertAvailability(ctx, tx, a); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// CreateAvailabilities inserts a batch of slots, skipping ones that overlap.
// It returns the created slots.
func (db *DB) CreateAvailabilities(ctx context.Context, slots []*models.Availability) ([]*models.Availability, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	created := make([]*models.Availability, 0, len(slots))
	for _, a := range slots {
		err := insertAvailability(ctx, tx, a)
		if errors.Is(err, ErrDuplicate) {
			continue
		}
		if err != nil {
			return nil, err
		}
		created = append(created, a)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return created, nil
}

func insertAvailability(ctx context.Context, tx *sql.Tx, a *models.Availability) error {
	ok, err := exists(ctx, tx, "interviewers", a.InterviewerID)
	if err != nil {
		return fmt.Errorf("check interviewer: %w", err)
	}
	if !ok {
		return notFound("interviewer", a.InterviewerID)
	}
	overlap, err := hasOverlap(ctx, tx, a)
	if err != nil {
		return err
	}
	if overlap {
		return fmt.Errorf("overlapping availability %s %s-%s %w", a.Date, a.StartTime, a.EndTime, ErrDuplicate)
	}

	ts := now()
	a.Status = models.AvailabilityAvailable
	a.Version = 1
	res, err := tx.ExecContext(ctx, `
		INSERT INTO availabilities (interviewer_id, date, start_time, end_time, timezone, starts_at, ends_at, status, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.InterviewerID, a.Date, a.StartTime, a.EndTime, a.Timezone, a.StartsAt.Unix(), a.EndsAt.Unix(),
		string(a.Status), a.Version, ts, ts)
	if err != nil {
		return fmt.Errorf("insert availability: %w", err)
	}
	a.ID, _ = res.LastInsertId()
	a.CreatedAt, a.UpdatedAt = ts, ts
	return nil
}

// UpdateAvailability saves a modified slot guarded by its version.
func (db *DB) UpdateAvailability(ctx context.Context, a *models.Availability) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if a.Status != models.AvailabilityExpired {
		overlap, err := hasOverlap(ctx, tx, a)
		if err != nil {
			return err
		}
		if overlap {
			return fmt.Errorf("overlapping availability %s %s-%s %w", a.Date, a.StartTime, a.EndTime, ErrDuplicate)
		}
	}

	ts := now()
	res, err := tx.ExecContext(ctx, `
		UPDATE availabilities
		SET date = ?, start_time = ?, end_time = ?, timezone = ?, starts_at = ?, ends_at = ?,
		    status = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		a.Date, a.StartTime, a.EndTime, a.Timezone, a.StartsAt.Unix(), a.EndsAt.Unix(),
		string(a.Status), ts, a.ID, a.Version)
	if err != nil {
		return fmt.Errorf("update availability: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := getAvailability(ctx, tx, a.ID); err != nil {
			return err
		}
		return fmt.Errorf("availability %d: %w", a.ID, ErrConcurrentModification)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	a.Version++
	a.UpdatedAt = ts
	return nil
}

// reserve flips AVAILABLE to BOOKED. ErrNotAvailable means someone else won.
func reserve(ctx context.Context, q querier, id int64) error {
	res, err := q.ExecContext(ctx, `
		UPDATE availabilities SET status = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND status = ?`,
		string(models.AvailabilityBooked), now(), id, string(models.AvailabilityAvailable))
	if err != nil {
		return fmt.Errorf("reserve availability: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("availability %d is %w", id, ErrNotAvailable)
	}
	return nil
}

// ReserveAvailability atomically moves a slot from AVAILABLE to BOOKED.
func (db *DB) ReserveAvailability(ctx context.Context, id int64) (*models.Availability, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := getAvailability(ctx, tx, id); err != nil {
		return nil, err
	}
	if err := reserve(ctx, tx, id); err != nil {
		return nil, err
	}
	a, err := getAvailability(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return a, nil
}

// ListAvailabilities returns an interviewer's slots, optionally filtered by status.
func (db *DB) ListAvailabilities(ctx context.Context, interviewerID int64, status *models.AvailabilityStatus) ([]models.Availability, error) {
	query := `SELECT ` + availabilityColumns + ` FROM availabilities WHERE interviewer_id = ?`
	args := []any{interviewerID}
	if status != nil {
		query += ` AND status = ?`
		args = append(args, string(*status))
	}
	query += ` ORDER BY starts_at`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list availabilities: %w", err)
	}
	defer rows.Close()

	out := make([]models.Availability, 0)
	for rows.Next() {
		a, err := scanAvailability(rows)
		if err != nil {
			return nil, fmt.Errorf("scan availability: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// MarkExpiredAvailabilities expires AVAILABLE slots that ended before now.
func (db *DB) MarkExpiredAvailabilities(ctx context.Context, at time.Time) (int64, error) {
	res, err := db.ExecContext(ctx, `
		UPDATE availabilities SET status = ?, version = version + 1, updated_at = ?
		WHERE status = ? AND ends_at < ?`,
		string(models.AvailabilityExpired), now(), string(models.AvailabilityAvailable), at.Unix())
	if err != nil {
		return 0, fmt.Errorf("expire availabilities: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
