package models

import "time"

// Event is a scheduled club event members check into with a session code.
type Event struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	Location    string    `db:"location" json:"location"`
	StartsAt    time.Time `db:"starts_at" json:"starts_at"`
	EndsAt      time.Time `db:"ends_at" json:"ends_at"`
	SessionCode string    `db:"session_code" json:"session_code"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// ClubClass is a recurring tutoring class with its own check-in code.
type ClubClass struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Schedule    string    `db:"schedule" json:"schedule"`
	SessionCode string    `db:"session_code" json:"session_code"`
	TutorID     *string   `db:"tutor_id" json:"tutor_id,omitempty"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
