package models

import "time"

// Subscription links a Telegram chat to a student's events of one type.
type Subscription struct {
	ID             int64     `db:"id"`
	ChatID         int64     `db:"chat_id"`
	StudentID      int64     `db:"student_id"`
	StudentName    string    `db:"student_name"`
	OrganizationID int64     `db:"organization_id"`
	EventType      EventType `db:"event_type"`
	CreatedAt      time.Time `db:"created_at"`
}
