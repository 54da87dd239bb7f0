package database

import (
	"context"
	"fmt"

	"interviewhub/internal/models"
)

func (db *DB) CreateFeedback(ctx context.Context, f *models.Feedback) error {
	ts := now()
	res, err := db.ExecContext(ctx, `
		INSERT INTO feedback (interview_id, giver_id, receiver_id, rating, comments, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		f.InterviewID, f.GiverID, f.ReceiverID, f.Rating, f.Comments, ts)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("feedback from user %d for interview %d %w", f.GiverID, f.InterviewID, ErrDuplicate)
		}
		return fmt.Errorf("insert feedback: %w", err)
	}
	f.ID, _ = res.LastInsertId()
	f.CreatedAt = ts
	return nil
}

func (db *DB) ListFeedbackByInterview(ctx context.Context, interviewID int64) ([]models.Feedback, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, interview_id, giver_id, receiver_id, rating, comments, created_at
		FROM feedback WHERE interview_id = ? ORDER BY id`, interviewID)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	defer rows.Close()

	out := make([]models.Feedback, 0)
	for rows.Next() {
		var f models.Feedback
		if err := rows.Scan(&f.ID, &f.InterviewID, &f.GiverID, &f.ReceiverID, &f.Rating, &f.Comments, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
