package models

import "time"

type User struct {
	ID           int64     `json:"id"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	IsVerified   bool      `json:"isVerified"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

type Interviewer struct {
	ID                int64          `json:"id"`
	UserID            int64          `json:"userId"`
	Bio               string         `json:"bio,omitempty"`
	YearsOfExperience int            `json:"yearsOfExperience"`
	HourlyRate        Money          `json:"hourlyRate"`
	DocumentURL       string         `json:"documentUrl,omitempty"`
	DocumentStatus    DocumentStatus `json:"documentStatus"`
	Skills            []Skill        `json:"skills,omitempty"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
}

type Interviewee struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"userId"`
	CurrentRole string    `json:"currentRole,omitempty"`
	TargetRole  string    `json:"targetRole,omitempty"`
	Skills      []Skill   `json:"skills,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Skill struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
