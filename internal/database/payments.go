package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"interviewhub/internal/models"
)

const paymentColumns = `id, booking_id, transaction_id, payment_date, amount_cents, currency, payment_method,
	refund_amount_cents, payment_status, interview_id, checkout_url, created_at, updated_at`

func scanPayment(row interface{ Scan(...any) error }) (*models.Payment, error) {
	var p models.Payment
	var paidAt sql.NullTime
	var amount, refund int64
	var status string
	var interviewID sql.NullInt64
	if err := row.Scan(&p.ID, &p.BookingID, &p.TransactionID, &paidAt, &amount, &p.Currency, &p.PaymentMethod,
		&refund, &status, &interviewID, &p.CheckoutURL, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.PaymentDate = timePtr(paidAt)
	p.Amount = models.Money(amount)
	p.RefundAmount = models.Money(refund)
	p.Status = models.PaymentStatus(status)
	p.InterviewID = int64Ptr(interviewID)
	return &p, nil
}

func getPaymentWhere(ctx context.Context, q querier, where string, arg any) (*models.Payment, error) {
	p, err := scanPayment(q.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE `+where, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("payment", arg)
	}
	if err != nil {
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return p, nil
}

func (db *DB) GetPayment(ctx context.Context, id int64) (*models.Payment, error) {
	return getPaymentWhere(ctx, db, "id = ?", id)
}

func (db *DB) GetPaymentByTransaction(ctx context.Context, txID string) (*models.Payment, error) {
	return getPaymentWhere(ctx, db, "transaction_id = ?", txID)
}

// CreatePendingPayment stores a checkout keyed by its provider transaction id.
// The booking must exist and still be PENDING, and it may have only one open
// checkout at a time.
func (db *DB) CreatePendingPayment(ctx context.Context, p *models.Payment) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	b, err := getBooking(ctx, tx, p.BookingID)
	if err != nil {
		return err
	}
	if b.PaymentStatus != models.BookingPending {
		return fmt.Errorf("booking %d is %s: %w", b.ID, b.PaymentStatus, ErrInvalidState)
	}
	var open int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM payments WHERE booking_id = ? AND payment_status = ?`,
		b.ID, string(models.PaymentPending)).Scan(&open); err != nil {
		return fmt.Errorf("count pending payments: %w", err)
	}
	if open > 0 {
		return fmt.Errorf("booking %d already has a pending checkout: %w", b.ID, ErrDuplicate)
	}

	ts := now()
	p.Status = models.PaymentPending
	res, err := tx.ExecContext(ctx, `
		INSERT INTO payments (booking_id, transaction_id, amount_cents, currency, payment_method,
			refund_amount_cents, payment_status, checkout_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 0, ?, ?, ?, ?)`,
		p.BookingID, p.TransactionID, int64(p.Amount), p.Currency, p.PaymentMethod, string(p.Status),
		p.CheckoutURL, ts, ts)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("payment %s %w", p.TransactionID, ErrDuplicate)
		}
		return fmt.Errorf("insert payment: %w", err)
	}
	p.ID, _ = res.LastInsertId()
	p.CreatedAt, p.UpdatedAt = ts, ts

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ConfirmResult is the outcome of ConfirmPayment.
type ConfirmResult struct {
	Payment   *models.Payment
	Booking   *models.Booking
	Interview *models.Interview
	// Applied is false when the transaction had already been confirmed.
	Applied bool
}

// ConfirmPayment marks the payment PAID, confirms its booking and schedules the
// interview in a single transaction. Replays of the same txID return the
// stored result without side effects. A FAILED payment can still be settled,
// since the provider is the authority on whether money was taken.
func (db *DB) ConfirmPayment(ctx context.Context, txID, method string, paidAt time.Time) (*ConfirmResult, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	p, err := getPaymentWhere(ctx, tx, "transaction_id = ?", txID)
	if err != nil {
		return nil, err
	}

	switch p.Status {
	case models.PaymentPaid, models.PaymentRefunded:
		b, err := getBooking(ctx, tx, p.BookingID)
		if err != nil {
			return nil, err
		}
		res := &ConfirmResult{Payment: p, Booking: b}
		if iv, err := getInterviewByBooking(ctx, tx, p.BookingID); err == nil {
			res.Interview = iv
		} else if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return res, nil
	}

	b, err := confirmBooking(ctx, tx, p.BookingID, txID)
	if err != nil {
		return nil, err
	}

	iv, err := getInterviewByBooking(ctx, tx, b.ID)
	if errors.Is(err, ErrNotFound) {
		iv, err = createInterviewFromBooking(ctx, tx, b.ID)
	}
	if err != nil {
		return nil, err
	}

	if method == "" {
		method = p.PaymentMethod
	}
	res, err := tx.ExecContext(ctx, `
		UPDATE payments SET payment_status = ?, payment_date = ?, payment_method = ?, interview_id = ?, updated_at = ?
		WHERE id = ? AND payment_status = ?`,
		string(models.PaymentPaid), paidAt.UTC(), method, iv.ID, now(), p.ID, string(p.Status))
	if err != nil {
		return nil, fmt.Errorf("mark payment paid: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("payment %s: %w", txID, ErrConcurrentModification)
	}
	if p, err = getPaymentWhere(ctx, tx, "id = ?", p.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return &ConfirmResult{Payment: p, Booking: b, Interview: iv, Applied: true}, nil
}

// FailPayment moves a PENDING payment to FAILED. Other states are left alone.
func (db *DB) FailPayment(ctx context.Context, txID string) (*models.Payment, bool, error) {
	res, err := db.ExecContext(ctx, `
		UPDATE payments SET payment_status = ?, updated_at = ? WHERE transaction_id = ? AND payment_status = ?`,
		string(models.PaymentFailed), now(), txID, string(models.PaymentPending))
	if err != nil {
		return nil, false, fmt.Errorf("fail payment: %w", err)
	}
	n, _ := res.RowsAffected()
	p, err := db.GetPaymentByTransaction(ctx, txID)
	if err != nil {
		return nil, false, err
	}
	return p, n > 0, nil
}

// RecordRefund adds amount to the refunded total of a paid payment.
func (db *DB) RecordRefund(ctx context.Context, id int64, amount models.Money) (*models.Payment, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	p, err := getPaymentWhere(ctx, tx, "id = ?", id)
	if err != nil {
		return nil, err
	}
	if p.Status != models.PaymentPaid && p.Status != models.PaymentRefunded {
		return nil, fmt.Errorf("payment %d is %s: %w", id, p.Status, ErrInvalidState)
	}
	if amount <= 0 || amount > p.Refundable() {
		return nil, fmt.Errorf("refund %s exceeds refundable %s: %w", amount, p.Refundable(), ErrInvalidState)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE payments SET refund_amount_cents = refund_amount_cents + ?, payment_status = ?, updated_at = ?
		WHERE id = ?`,
		int64(amount), string(models.PaymentRefunded), now(), id); err != nil {
		return nil, fmt.Errorf("record refund: %w", err)
	}
	if p, err = getPaymentWhere(ctx, tx, "id = ?", id); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return p, nil
}

func (db *DB) ListPaymentsByBooking(ctx context.Context, bookingID int64) ([]models.Payment, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE booking_id = ? ORDER BY id`, bookingID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	out := make([]models.Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// ListEarningsLines returns settled payments where the user paid (as an
// interviewee) or received money (as the slot's interviewer).
func (db *DB) ListEarningsLines(ctx context.Context, userID int64) ([]models.EarningsLine, error) {
	paid, err := db.earningsLines(ctx, models.SidePaid, `
		JOIN interviewees e ON e.id = b.interviewee_id
		WHERE e.user_id = ?`, userID)
	if err != nil {
		return nil, err
	}
	received, err := db.earningsLines(ctx, models.SideReceived, `
		JOIN availabilities a ON a.id = b.availability_id
		JOIN interviewers i ON i.id = a.interviewer_id
		WHERE i.user_id = ?`, userID)
	if err != nil {
		return nil, err
	}
	return append(paid, received...), nil
}

func (db *DB) earningsLines(ctx context.Context, side, join string, userID int64) ([]models.EarningsLine, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT p.id, p.booking_id, p.transaction_id, p.payment_date, p.amount_cents, p.refund_amount_cents,
		       p.currency, p.payment_status
		FROM payments p
		JOIN bookings b ON b.id = p.booking_id`+join+`
		  AND p.payment_status IN (?, ?)
		ORDER BY p.id`,
		userID, string(models.PaymentPaid), string(models.PaymentRefunded))
	if err != nil {
		return nil, fmt.Errorf("list %s earnings: %w", side, err)
	}
	defer rows.Close()

	out := make([]models.EarningsLine, 0)
	for rows.Next() {
		l := models.EarningsLine{Side: side}
		var paidAt sql.NullTime
		var amount, refund int64
		var status string
		if err := rows.Scan(&l.PaymentID, &l.BookingID, &l.TransactionID, &paidAt, &amount, &refund,
			&l.Currency, &status); err != nil {
			return nil, fmt.Errorf("scan earnings line: %w", err)
		}
		l.PaymentDate = timePtr(paidAt)
		l.Amount = models.Money(amount)
		l.RefundAmount = models.Money(refund)
		l.Status = models.PaymentStatus(status)
		out = append(out, l)
	}
	return out, rows.Err()
}
