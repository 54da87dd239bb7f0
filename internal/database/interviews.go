package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"interviewhub/internal/models"
)

const interviewColumns = `id, interviewee_id, interviewer_id, booking_id, date, start_time, duration_minutes, end_time,
	timezone, starts_at, ends_at, interview_link, status, cancellation_reason, actual_start_time, actual_end_time,
	created_at, updated_at`

func scanInterview(row interface{ Scan(...any) error }) (*models.Interview, error) {
	var iv models.Interview
	var startsAt, endsAt int64
	var status string
	var actualStart, actualEnd sql.NullTime
	if err := row.Scan(&iv.ID, &iv.IntervieweeID, &iv.InterviewerID, &iv.BookingID, &iv.Date, &iv.StartTime,
		&iv.Duration, &iv.EndTime, &iv.Timezone, &startsAt, &endsAt, &iv.InterviewLink, &status,
		&iv.CancellationReason, &actualStart, &actualEnd, &iv.CreatedAt, &iv.UpdatedAt); err != nil {
		return nil, err
	}
	iv.StartsAt = time.Unix(startsAt, 0).UTC()
	iv.EndsAt = time.Unix(endsAt, 0).UTC()
	iv.Status = models.InterviewStatus(status)
	iv.ActualStartTime = timePtr(actualStart)
	iv.ActualEndTime = timePtr(actualEnd)
	return &iv, nil
}

func getInterview(ctx context.Context, q querier, id int64) (*models.Interview, error) {
	iv, err := scanInterview(q.QueryRowContext(ctx, `SELECT `+interviewColumns+` FROM interviews WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("interview", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get interview: %w", err)
	}
	return iv, nil
}

func getInterviewByBooking(ctx context.Context, q querier, bookingID int64) (*models.Interview, error) {
	iv, err := scanInterview(q.QueryRowContext(ctx, `SELECT `+interviewColumns+` FROM interviews WHERE booking_id = ?`, bookingID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("interview for booking", bookingID)
	}
	if err != nil {
		return nil, fmt.Errorf("get interview by booking: %w", err)
	}
	return iv, nil
}

func (db *DB) GetInterview(ctx context.Context, id int64) (*models.Interview, error) {
	return getInterview(ctx, db, id)
}

func (db *DB) GetInterviewByBooking(ctx context.Context, bookingID int64) (*models.Interview, error) {
	return getInterviewByBooking(ctx, db, bookingID)
}

// createInterviewFromBooking inserts the interview for a CONFIRMED booking.
// ErrDuplicate means the booking already has one.
func createInterviewFromBooking(ctx context.Context, q querier, bookingID int64) (*models.Interview, error) {
	b, err := getBooking(ctx, q, bookingID)
	if err != nil {
		return nil, err
	}
	if b.PaymentStatus != models.BookingConfirmed {
		return nil, fmt.Errorf("booking %d is %s, not CONFIRMED: %w", bookingID, b.PaymentStatus, ErrInvalidState)
	}
	slot, err := getAvailability(ctx, q, b.AvailabilityID)
	if err != nil {
		return nil, err
	}
	iv, err := models.InterviewFromSlot(b, slot)
	if err != nil {
		return nil, fmt.Errorf("build interview: %w", err)
	}

	ts := now()
	res, err := q.ExecContext(ctx, `
		INSERT INTO interviews (interviewee_id, interviewer_id, booking_id, date, start_time, duration_minutes, end_time,
			timezone, starts_at, ends_at, interview_link, status, cancellation_reason, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, '', ?, '', ?, ?)`,
		iv.IntervieweeID, iv.InterviewerID, iv.BookingID, iv.Date, iv.StartTime, iv.Duration, iv.EndTime,
		iv.Timezone, iv.StartsAt.Unix(), iv.EndsAt.Unix(), string(iv.Status), ts, ts)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("interview for booking %d %w", bookingID, ErrDuplicate)
		}
		return nil, fmt.Errorf("insert interview: %w", err)
	}
	iv.ID, _ = res.LastInsertId()
	iv.CreatedAt, iv.UpdatedAt = ts, ts
	return iv, nil
}

// CreateInterviewFromBooking schedules the interview of a confirmed booking.
func (db *DB) CreateInterviewFromBooking(ctx context.Context, bookingID int64) (*models.Interview, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	iv, err := createInterviewFromBooking(ctx, tx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return iv, nil
}

// UpdateInterview persists schedule fields. The caller recomputes end time.
func (db *DB) UpdateInterview(ctx context.Context, iv *models.Interview) error {
	ts := now()
	res, err := db.ExecContext(ctx, `
		UPDATE interviews
		SET date = ?, start_time = ?, duration_minutes = ?, end_time = ?, timezone = ?, starts_at = ?, ends_at = ?,
		    interview_link = ?, actual_start_time = ?, actual_end_time = ?, updated_at = ?
		WHERE id = ?`,
		iv.Date, iv.StartTime, iv.Duration, iv.EndTime, iv.Timezone, iv.StartsAt.Unix(), iv.EndsAt.Unix(),
		iv.InterviewLink, nullTime(iv.ActualStartTime), nullTime(iv.ActualEndTime), ts, iv.ID)
	if err != nil {
		return fmt.Errorf("update interview: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("interview", iv.ID)
	}
	iv.UpdatedAt = ts
	return nil
}

// SetInterviewLink stores the meeting link.
func (db *DB) SetInterviewLink(ctx context.Context, id int64, link string) error {
	_, err := db.ExecContext(ctx, `UPDATE interviews SET interview_link = ?, updated_at = ? WHERE id = ?`, link, now(), id)
	if err != nil {
		return fmt.Errorf("set interview link: %w", err)
	}
	return nil
}

// CancelInterview moves BOOKED to CANCELLED. Cancelling twice returns the
// stored interview; a completed interview is ErrInvalidState.
func (db *DB) CancelInterview(ctx context.Context, id int64, reason string) (*models.Interview, bool, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	iv, err := getInterview(ctx, tx, id)
	if err != nil {
		return nil, false, err
	}
	switch iv.Status {
	case models.InterviewCancelled:
		return iv, false, nil
	case models.InterviewCompleted:
		return nil, false, fmt.Errorf("interview %d is completed: %w", id, ErrInvalidState)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE interviews SET status = ?, cancellation_reason = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(models.InterviewCancelled), reason, now(), id, string(models.InterviewBooked)); err != nil {
		return nil, false, fmt.Errorf("cancel interview: %w", err)
	}
	if iv, err = getInterview(ctx, tx, id); err != nil {
		return nil, false, err
	}
	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit: %w", err)
	}
	return iv, true, nil
}

// CompleteOverdueInterviews marks BOOKED interviews that ended before at as
// COMPLETED and returns their ids.
func (db *DB) CompleteOverdueInterviews(ctx context.Context, at time.Time) ([]int64, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `SELECT id FROM interviews WHERE status = ? AND ends_at < ?`,
		string(models.InterviewBooked), at.Unix())
	if err != nil {
		return nil, fmt.Errorf("find overdue interviews: %w", err)
	}
	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan interview id: %w", err)
		}
		ids = append(ids, id)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return ids, nil
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE interviews SET status = ?, updated_at = ? WHERE status = ? AND ends_at < ?`,
		string(models.InterviewCompleted), now(), string(models.InterviewBooked), at.Unix()); err != nil {
		return nil, fmt.Errorf("complete interviews: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return ids, nil
}
