package models

import "time"

// AssessmentType enumerates the graded assessment kinds.
type AssessmentType string

const (
	AssessmentAssignment AssessmentType = "ASSIGNMENT"
	AssessmentQuiz       AssessmentType = "QUIZ"
	AssessmentProject    AssessmentType = "PROJECT"
	AssessmentExam       AssessmentType = "EXAM"
)

// Valid reports whether the assessment type is one of the four kinds.
func (t AssessmentType) Valid() bool {
	switch t {
	case AssessmentAssignment, AssessmentQuiz, AssessmentProject, AssessmentExam:
		return true
	}
	return false
}

// Grade is an append-only record of one graded assessment. Grades are
// informational: they never trigger a level change on their own.
type Grade struct {
	ID             string         `db:"id" json:"id"`
	StudentID      string         `db:"student_id" json:"student_id"`
	TutorID        string         `db:"tutor_id" json:"tutor_id"`
	AssessmentType AssessmentType `db:"assessment_type" json:"assessment_type"`
	Grade          float64        `db:"grade" json:"grade"`
	Level          int            `db:"level" json:"level"`
	Comments       string         `db:"comments" json:"comments"`
	GradedAt       time.Time      `db:"graded_at" json:"graded_at"`
}

// GradeFilter captures list criteria for grades.
type GradeFilter struct {
	StudentID string
	TutorID   string
	Level     *int
}

// LevelGradeSummary aggregates a student's grades at one level.
type LevelGradeSummary struct {
	Level    int     `db:"level" json:"level"`
	Count    int     `db:"count" json:"count"`
	Average  float64 `db:"average" json:"average"`
	PassRate float64 `db:"pass_rate" json:"pass_rate"`
}

// StudentGradeReport bundles grade rows with per-level summaries.
type StudentGradeReport struct {
	StudentID string              `json:"student_id"`
	Grades    []Grade             `json:"grades"`
	Summaries []LevelGradeSummary `json:"summaries"`
}
