package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"interviewhub/internal/models"
)

const userColumns = `id, first_name, last_name, email, password_hash, role, is_verified, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	var role string
	if err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash, &role,
		&u.IsVerified, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Role = models.Role(role)
	return &u, nil
}

// CreateUser inserts a user. ErrDuplicate is returned for a taken email.
func (db *DB) CreateUser(ctx context.Context, u *models.User) error {
	ts := now()
	res, err := db.ExecContext(ctx, `
		INSERT INTO users (first_name, last_name, email, password_hash, role, is_verified, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.FirstName, u.LastName, u.Email, u.PasswordHash, string(u.Role), u.IsVerified, ts, ts)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user with email %s %w", u.Email, ErrDuplicate)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	u.ID, _ = res.LastInsertId()
	u.CreatedAt, u.UpdatedAt = ts, ts
	return nil
}

func (db *DB) GetUser(ctx context.Context, id int64) (*models.User, error) {
	u, err := scanUser(db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("user", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("user", email)
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

const interviewerColumns = `id, user_id, bio, years_of_experience, hourly_rate_cents, document_url, document_status, created_at, updated_at`

func scanInterviewer(row interface{ Scan(...any) error }) (*models.Interviewer, error) {
	var iv models.Interviewer
	var rate int64
	var status string
	if err := row.Scan(&iv.ID, &iv.UserID, &iv.Bio, &iv.YearsOfExperience, &rate, &iv.DocumentURL,
		&status, &iv.CreatedAt, &iv.UpdatedAt); err != nil {
		return nil, err
	}
	iv.HourlyRate = models.Money(rate)
	iv.DocumentStatus = models.DocumentStatus(status)
	return &iv, nil
}

// CreateInterviewer inserts an interviewer profile for an existing user.
func (db *DB) CreateInterviewer(ctx context.Context, iv *models.Interviewer) error {
	ok, err := exists(ctx, db, "users", iv.UserID)
	if err != nil {
		return fmt.Errorf("check user: %w", err)
	}
	if !ok {
		return notFound("user", iv.UserID)
	}

	if iv.DocumentStatus == "" {
		iv.DocumentStatus = models.DocumentNotSubmitted
	}
	ts := now()
	res, err := db.ExecContext(ctx, `
		INSERT INTO interviewers (user_id, bio, years_of_experience, hourly_rate_cents, document_url, document_status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		iv.UserID, iv.Bio, iv.YearsOfExperience, int64(iv.HourlyRate), iv.DocumentURL, string(iv.DocumentStatus), ts, ts)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("interviewer profile for user %d %w", iv.UserID, ErrDuplicate)
		}
		return fmt.Errorf("insert interviewer: %w", err)
	}
	iv.ID, _ = res.LastInsertId()
	iv.CreatedAt, iv.UpdatedAt = ts, ts
	return nil
}

func (db *DB) GetInterviewer(ctx context.Context, id int64) (*models.Interviewer, error) {
	iv, err := scanInterviewer(db.QueryRowContext(ctx, `SELECT `+interviewerColumns+` FROM interviewers WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("interviewer", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get interviewer: %w", err)
	}
	if iv.Skills, err = db.listSkills(ctx, `
		SELECT s.id, s.name FROM skills s
		JOIN interviewer_skills j ON j.skill_id = s.id
		WHERE j.interviewer_id = ? ORDER BY s.name`, id); err != nil {
		return nil, err
	}
	return iv, nil
}

// GetInterviewerByUserID returns the interviewer profile owned by a user.
func (db *DB) GetInterviewerByUserID(ctx context.Context, userID int64) (*models.Interviewer, error) {
	iv, err := scanInterviewer(db.QueryRowContext(ctx, `SELECT `+interviewerColumns+` FROM interviewers WHERE user_id = ?`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("interviewer for user", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("get interviewer by user: %w", err)
	}
	return iv, nil
}

// UpdateInterviewerDocument sets the verification document and its review status.
func (db *DB) UpdateInterviewerDocument(ctx context.Context, id int64, url string, status models.DocumentStatus) error {
	res, err := db.ExecContext(ctx, `
		UPDATE interviewers SET document_url = ?, document_status = ?, updated_at = ? WHERE id = ?`,
		url, string(status), now(), id)
	if err != nil {
		return fmt.Errorf("update interviewer document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("interviewer", id)
	}
	return nil
}

const intervieweeColumns = `id, user_id, current_role, target_role, created_at, updated_at`

func scanInterviewee(row interface{ Scan(...any) error }) (*models.Interviewee, error) {
	var ie models.Interviewee
	if err := row.Scan(&ie.ID, &ie.UserID, &ie.CurrentRole, &ie.TargetRole, &ie.CreatedAt, &ie.UpdatedAt); err != nil {
		return nil, err
	}
	return &ie, nil
}

func (db *DB) CreateInterviewee(ctx context.Context, ie *models.Interviewee) error {
	ok, err := exists(ctx, db, "users", ie.UserID)
	if err != nil {
		return fmt.Errorf("check user: %w", err)
	}
	if !ok {
		return notFound("user", ie.UserID)
	}

	ts := now()
	res, err := db.ExecContext(ctx, `
		INSERT INTO interviewees (user_id, current_role, target_role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		ie.UserID, ie.CurrentRole, ie.TargetRole, ts, ts)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("interviewee profile for user %d %w", ie.UserID, ErrDuplicate)
		}
		return fmt.Errorf("insert interviewee: %w", err)
	}
	ie.ID, _ = res.LastInsertId()
	ie.CreatedAt, ie.UpdatedAt = ts, ts
	return nil
}

func (db *DB) GetInterviewee(ctx context.Context, id int64) (*models.Interviewee, error) {
	ie, err := scanInterviewee(db.QueryRowContext(ctx, `SELECT `+intervieweeColumns+` FROM interviewees WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("interviewee", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get interviewee: %w", err)
	}
	if ie.Skills, err = db.listSkills(ctx, `
		SELECT s.id, s.name FROM skills s
		JOIN interviewee_skills j ON j.skill_id = s.id
		WHERE j.interviewee_id = ? ORDER BY s.name`, id); err != nil {
		return nil, err
	}
	return ie, nil
}

func (db *DB) GetIntervieweeByUserID(ctx context.Context, userID int64) (*models.Interviewee, error) {
	ie, err := scanInterviewee(db.QueryRowContext(ctx, `SELECT `+intervieweeColumns+` FROM interviewees WHERE user_id = ?`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("interviewee for user", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("get interviewee by user: %w", err)
	}
	return ie, nil
}
