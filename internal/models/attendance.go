package models

import "time"

// AttendanceType distinguishes event check-ins from class check-ins.
type AttendanceType string

const (
	AttendanceTypeEvent AttendanceType = "EVENT"
	AttendanceTypeClass AttendanceType = "CLASS"
)

// Attendance is an append-only record of one check-in. Exactly one of
// EventID/ClassName is set depending on Type.
type Attendance struct {
	ID          string         `db:"id" json:"id"`
	UserID      string         `db:"user_id" json:"user_id"`
	EventID     *string        `db:"event_id" json:"event_id,omitempty"`
	ClassName   *string        `db:"class_name" json:"class_name,omitempty"`
	SessionCode string         `db:"session_code" json:"session_code"`
	Type        AttendanceType `db:"type" json:"type"`
	CheckedInAt time.Time      `db:"checked_in_at" json:"checked_in_at"`
}

// AttendanceFilter captures list criteria for attendance records.
type AttendanceFilter struct {
	UserID    string
	EventID   string
	ClassName string
	Type      *AttendanceType
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}

// CheckInResult describes a successful check-in along with the resolved target.
type CheckInResult struct {
	Attendance Attendance `json:"attendance"`
	Target     string     `json:"target"`
}
