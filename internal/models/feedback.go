package models

import "time"

type Feedback struct {
	ID          int64     `json:"id"`
	InterviewID int64     `json:"interviewId"`
	GiverID     int64     `json:"giverId"`
	ReceiverID  int64     `json:"receiverId"`
	Rating      int       `json:"rating"`
	Comments    string    `json:"comments,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Notification struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"isRead"`
	CreatedAt time.Time `json:"createdAt"`
}
