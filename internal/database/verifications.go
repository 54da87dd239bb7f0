package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"interviewhub/internal/models"
)

// CreateVerification revokes the user's open codes and stores a new one.
func (db *DB) CreateVerification(ctx context.Context, v *models.Verification) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	ok, err := exists(ctx, tx, "users", v.UserID)
	if err != nil {
		return fmt.Errorf("check user: %w", err)
	}
	if !ok {
		return notFound("user", v.UserID)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE verifications SET revoked = 1 WHERE user_id = ? AND verified = 0`, v.UserID); err != nil {
		return fmt.Errorf("revoke verifications: %w", err)
	}

	ts := now()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO verifications (user_id, otp, expires_at, verified, attempts, revoked, created_at)
		VALUES (?, ?, ?, 0, 0, 0, ?)`,
		v.UserID, v.OTP, v.ExpiresAt.UTC(), ts)
	if err != nil {
		return fmt.Errorf("insert verification: %w", err)
	}
	v.ID, _ = res.LastInsertId()
	v.CreatedAt = ts

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// GetActiveVerification returns the user's latest unrevoked, unverified code.
func (db *DB) GetActiveVerification(ctx context.Context, userID int64) (*models.Verification, error) {
	var v models.Verification
	err := db.QueryRowContext(ctx, `
		SELECT id, user_id, otp, expires_at, verified, attempts, created_at
		FROM verifications
		WHERE user_id = ? AND revoked = 0 AND verified = 0
		ORDER BY id DESC LIMIT 1`, userID).
		Scan(&v.ID, &v.UserID, &v.OTP, &v.ExpiresAt, &v.Verified, &v.Attempts, &v.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("pending verification for user", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("get verification: %w", err)
	}
	return &v, nil
}

// RecordFailedAttempt increments the attempt counter and returns the new value.
func (db *DB) RecordFailedAttempt(ctx context.Context, id int64) (int, error) {
	var attempts int
	err := db.QueryRowContext(ctx, `
		UPDATE verifications SET attempts = attempts + 1 WHERE id = ? RETURNING attempts`, id).Scan(&attempts)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, notFound("verification", id)
	}
	if err != nil {
		return 0, fmt.Errorf("record attempt: %w", err)
	}
	return attempts, nil
}

// CompleteVerification marks the code used and the user verified.
func (db *DB) CompleteVerification(ctx context.Context, id, userID int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `UPDATE verifications SET verified = 1 WHERE id = ? AND verified = 0 AND revoked = 0`, id)
	if err != nil {
		return fmt.Errorf("mark verification used: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("verification %d: %w", id, ErrConcurrentModification)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE users SET is_verified = 1, updated_at = ? WHERE id = ?`, now(), userID); err != nil {
		return fmt.Errorf("mark user verified: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
