package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"interviewhub/internal/models"
)

func (db *DB) CreateSkill(ctx context.Context, s *models.Skill) error {
	res, err := db.ExecContext(ctx, `INSERT INTO skills (name) VALUES (?)`, s.Name)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("skill %q %w", s.Name, ErrDuplicate)
		}
		return fmt.Errorf("insert skill: %w", err)
	}
	s.ID, _ = res.LastInsertId()
	return nil
}

func (db *DB) GetSkill(ctx context.Context, id int64) (*models.Skill, error) {
	var s models.Skill
	err := db.QueryRowContext(ctx, `SELECT id, name FROM skills WHERE id = ?`, id).Scan(&s.ID, &s.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("skill", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get skill: %w", err)
	}
	return &s, nil
}

func (db *DB) ListSkills(ctx context.Context) ([]models.Skill, error) {
	return db.listSkills(ctx, `SELECT id, name FROM skills ORDER BY name`)
}

func (db *DB) listSkills(ctx context.Context, query string, args ...any) ([]models.Skill, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list skills: %w", err)
	}
	defer rows.Close()

	skills := make([]models.Skill, 0)
	for rows.Next() {
		var s models.Skill
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, fmt.Errorf("scan skill: %w", err)
		}
		skills = append(skills, s)
	}
	return skills, rows.Err()
}

// AddInterviewerSkill links a skill to an interviewer. Linking twice is a no-op.
func (db *DB) AddInterviewerSkill(ctx context.Context, interviewerID, skillID int64) error {
	return db.addSkill(ctx, "interviewers", "interviewer_skills", "interviewer_id", interviewerID, skillID)
}

// AddIntervieweeSkill links a skill to an interviewee. Linking twice is a no-op.
func (db *DB) AddIntervieweeSkill(ctx context.Context, intervieweeID, skillID int64) error {
	return db.addSkill(ctx, "interviewees", "interviewee_skills", "interviewee_id", intervieweeID, skillID)
}

func (db *DB) addSkill(ctx context.Context, ownerTable, joinTable, ownerColumn string, ownerID, skillID int64) error {
	ok, err := exists(ctx, db, ownerTable, ownerID)
	if err != nil {
		return fmt.Errorf("check %s: %w", ownerTable, err)
	}
	if !ok {
		return notFound(ownerTable[:len(ownerTable)-1], ownerID)
	}
	if ok, err = exists(ctx, db, "skills", skillID); err != nil {
		return fmt.Errorf("check skill: %w", err)
	}
	if !ok {
		return notFound("skill", skillID)
	}

	q := fmt.Sprintf(`INSERT OR IGNORE INTO %s (%s, skill_id) VALUES (?, ?)`, joinTable, ownerColumn)
	if _, err := db.ExecContext(ctx, q, ownerID, skillID); err != nil {
		return fmt.Errorf("link skill: %w", err)
	}
	return nil
}
