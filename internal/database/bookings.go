package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"interviewhub/internal/models"
)

const bookingColumns = `id, interviewee_id, availability_id, booking_date, total_price_cents, payment_status,
	transaction_id, cancellation_reason, notes, version, created_at, updated_at`

func scanBooking(row interface{ Scan(...any) error }) (*models.Booking, error) {
	var b models.Booking
	var price int64
	var status string
	if err := row.Scan(&b.ID, &b.IntervieweeID, &b.AvailabilityID, &b.BookingDate, &price, &status,
		&b.TransactionID, &b.CancellationReason, &b.Notes, &b.Version, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	b.TotalPrice = models.Money(price)
	b.PaymentStatus = models.BookingStatus(status)
	return &b, nil
}

func getBooking(ctx context.Context, q querier, id int64) (*models.Booking, error) {
	b, err := scanBooking(q.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("booking", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return b, nil
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	return getBooking(ctx, db, id)
}

// CreateBookingWithReservation reserves the slot and inserts a PENDING booking
// in one transaction. Either both happen or neither does.
func (db *DB) CreateBookingWithReservation(ctx context.Context, b *models.Booking) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	ok, err := exists(ctx, tx, "interviewees", b.IntervieweeID)
	if err != nil {
		return fmt.Errorf("check interviewee: %w", err)
	}
	if !ok {
		return notFound("interviewee", b.IntervieweeID)
	}
	if _, err := getAvailability(ctx, tx, b.AvailabilityID); err != nil {
		return err
	}
	if err := reserve(ctx, tx, b.AvailabilityID); err != nil {
		return err
	}

	ts := now()
	b.PaymentStatus = models.BookingPending
	b.Version = 1
	res, err := tx.ExecContext(ctx, `
		INSERT INTO bookings (interviewee_id, availability_id, booking_date, total_price_cents, payment_status,
			transaction_id, cancellation_reason, notes, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, '', '', ?, ?, ?, ?)`,
		b.IntervieweeID, b.AvailabilityID, b.BookingDate, int64(b.TotalPrice), string(b.PaymentStatus),
		b.Notes, b.Version, ts, ts)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("availability %d is %w", b.AvailabilityID, ErrNotAvailable)
		}
		return fmt.Errorf("insert booking: %w", err)
	}
	b.ID, _ = res.LastInsertId()
	b.CreatedAt, b.UpdatedAt = ts, ts

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// confirmBooking moves PENDING to CONFIRMED for txID. Re-confirming with the
// same txID is a no-op; any other state is ErrInvalidState.
func confirmBooking(ctx context.Context, q querier, id int64, txID string) (*models.Booking, error) {
	b, err := getBooking(ctx, q, id)
	if err != nil {
		return nil, err
	}
	switch b.PaymentStatus {
	case models.BookingConfirmed:
		if b.TransactionID == txID {
			return b, nil
		}
		return nil, fmt.Errorf("booking %d already confirmed by another transaction: %w", id, ErrInvalidState)
	case models.BookingCancelled:
		return nil, fmt.Errorf("booking %d is cancelled: %w", id, ErrInvalidState)
	}

	res, err := q.ExecContext(ctx, `
		UPDATE bookings SET payment_status = ?, transaction_id = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND payment_status = ?`,
		string(models.BookingConfirmed), txID, now(), id, string(models.BookingPending))
	if err != nil {
		return nil, fmt.Errorf("confirm booking: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("booking %d: %w", id, ErrConcurrentModification)
	}
	return getBooking(ctx, q, id)
}

// CancelResult describes what a booking cancellation touched.
type CancelResult struct {
	Booking            *models.Booking
	AlreadyCancelled   bool
	SlotReleased       bool
	CancelledInterview *int64
}

// CancelBooking cancels a booking, releases its slot and cancels a scheduled
// interview in one transaction. Pending checkouts for the booking fail.
func (db *DB) CancelBooking(ctx context.Context, id int64, reason string) (*CancelResult, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	b, err := getBooking(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if b.PaymentStatus == models.BookingCancelled {
		return &CancelResult{Booking: b, AlreadyCancelled: true}, nil
	}

	ts := now()
	res, err := tx.ExecContext(ctx, `
		UPDATE bookings SET payment_status = ?, cancellation_reason = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		string(models.BookingCancelled), reason, ts, id, b.Version)
	if err != nil {
		return nil, fmt.Errorf("cancel booking: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("booking %d: %w", id, ErrConcurrentModification)
	}

	result := &CancelResult{}
	res, err = tx.ExecContext(ctx, `
		UPDATE availabilities SET status = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND status = ?`,
		string(models.AvailabilityAvailable), ts, b.AvailabilityID, string(models.AvailabilityBooked))
	if err != nil {
		return nil, fmt.Errorf("release availability: %w", err)
	}
	n, _ := res.RowsAffected()
	result.SlotReleased = n > 0

	var interviewID int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM interviews WHERE booking_id = ? AND status = ?`,
		id, string(models.InterviewBooked)).Scan(&interviewID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("find interview: %w", err)
	default:
		if _, err := tx.ExecContext(ctx, `
			UPDATE interviews SET status = ?, cancellation_reason = ?, updated_at = ? WHERE id = ?`,
			string(models.InterviewCancelled), reason, ts, interviewID); err != nil {
			return nil, fmt.Errorf("cancel interview: %w", err)
		}
		result.CancelledInterview = &interviewID
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE payments SET payment_status = ?, updated_at = ? WHERE booking_id = ? AND payment_status = ?`,
		string(models.PaymentFailed), ts, id, string(models.PaymentPending)); err != nil {
		return nil, fmt.Errorf("fail pending payments: %w", err)
	}

	if result.Booking, err = getBooking(ctx, tx, id); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return result, nil
}

// ListBookingsByInterviewee returns an interviewee's bookings, newest first.
func (db *DB) ListBookingsByInterviewee(ctx context.Context, intervieweeID int64) ([]models.Booking, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE interviewee_id = ? ORDER BY id DESC`, intervieweeID)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	out := make([]models.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// Participant is a user on one side of a booking.
type Participant struct {
	UserID int64
	Name   string
	Email  string
}

// Participants names both sides of a booking.
type Participants struct {
	BookingID   int64
	Interviewee Participant
	Interviewer Participant
}

// GetBookingParticipants resolves the users behind a booking.
func (db *DB) GetBookingParticipants(ctx context.Context, bookingID int64) (*Participants, error) {
	p := Participants{BookingID: bookingID}
	var eeFirst, eeLast, erFirst, erLast string
	err := db.QueryRowContext(ctx, `
		SELECT ue.id, ue.first_name, ue.last_name, ue.email,
		       ur.id, ur.first_name, ur.last_name, ur.email
		FROM bookings b
		JOIN interviewees ie ON ie.id = b.interviewee_id
		JOIN users ue ON ue.id = ie.user_id
		JOIN availabilities a ON a.id = b.availability_id
		JOIN interviewers ir ON ir.id = a.interviewer_id
		JOIN users ur ON ur.id = ir.user_id
		WHERE b.id = ?`, bookingID).
		Scan(&p.Interviewee.UserID, &eeFirst, &eeLast, &p.Interviewee.Email,
			&p.Interviewer.UserID, &erFirst, &erLast, &p.Interviewer.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("booking", bookingID)
	}
	if err != nil {
		return nil, fmt.Errorf("get booking participants: %w", err)
	}
	p.Interviewee.Name = (&models.User{FirstName: eeFirst, LastName: eeLast}).FullName()
	p.Interviewer.Name = (&models.User{FirstName: erFirst, LastName: erLast}).FullName()
	return &p, nil
}
