package models

import "time"

// ProgressionOutcome names the terminal state of one review cycle.
type ProgressionOutcome string

const (
	// OutcomePromoted: tutor approved and the student had room to grow.
	OutcomePromoted ProgressionOutcome = "PROMOTED"
	// OutcomeRetained: tutor rejected; the level is unchanged.
	OutcomeRetained ProgressionOutcome = "RETAINED"
	// OutcomeMaxLevel: approval at level 5 is a reporting no-op, not an error.
	OutcomeMaxLevel ProgressionOutcome = "MAX_LEVEL"
)

// LevelVerification is the append-only decision record written once per
// tutor review. On approval below the cap, ToLevel = FromLevel + 1;
// otherwise ToLevel = FromLevel.
type LevelVerification struct {
	ID         string    `db:"id" json:"id"`
	StudentID  string    `db:"student_id" json:"student_id"`
	FromLevel  int       `db:"from_level" json:"from_level"`
	ToLevel    int       `db:"to_level" json:"to_level"`
	Approved   bool      `db:"approved" json:"approved"`
	TutorID    string    `db:"tutor_id" json:"tutor_id"`
	TutorNotes string    `db:"tutor_notes" json:"tutor_notes"`
	VerifiedAt time.Time `db:"verified_at" json:"verified_at"`
}

// Certificate is awarded once per completed level. Its level field is the
// level the student finished, not the one they advanced into.
type Certificate struct {
	ID          string    `db:"id" json:"id"`
	StudentID   string    `db:"student_id" json:"student_id"`
	Level       int       `db:"level" json:"level"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	IssuedAt    time.Time `db:"issued_at" json:"issued_at"`
}

// ProgressionResult is returned by the level-up workflow.
type ProgressionResult struct {
	Outcome      ProgressionOutcome `json:"outcome"`
	FromLevel    int                `json:"from_level"`
	ToLevel      int                `json:"to_level"`
	Certificate  *Certificate       `json:"certificate,omitempty"`
	Verification *LevelVerification `json:"verification,omitempty"`
	Message      string             `json:"message"`
}
