package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Sumiong13/kbm-corner-api/internal/models"
)

// GradeRepository provides database access for assessment grades.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository creates a new instance of GradeRepository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

// Create inserts a new grade record.
func (r *GradeRepository) Create(ctx context.Context, grade *models.Grade) error {
	if grade.ID == "" {
		grade.ID = uuid.NewString()
	}
	if grade.GradedAt.IsZero() {
		grade.GradedAt = time.Now().UTC()
	}
	const query = `INSERT INTO grades (id, student_id, tutor_id, assessment_type, grade, level, comments, graded_at)
        VALUES (:id, :student_id, :tutor_id, :assessment_type, :grade, :level, :comments, :graded_at)`
	if _, err := r.db.NamedExecContext(ctx, query, grade); err != nil {
		return fmt.Errorf("create grade: %w", err)
	}
	return nil
}

// List returns grades matching the filter, oldest first so transcripts read
// chronologically.
func (r *GradeRepository) List(ctx context.Context, filter models.GradeFilter) ([]models.Grade, error) {
	baseQuery := `SELECT id, student_id, tutor_id, assessment_type, grade, level, comments, graded_at FROM grades WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.TutorID != "" {
		conditions = append(conditions, fmt.Sprintf("tutor_id = $%d", len(args)+1))
		args = append(args, filter.TutorID)
	}
	if filter.Level != nil {
		conditions = append(conditions, fmt.Sprintf("level = $%d", len(args)+1))
		args = append(args, *filter.Level)
	}

	query := baseQuery
	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY graded_at ASC"

	var grades []models.Grade
	if err := r.db.SelectContext(ctx, &grades, query, args...); err != nil {
		return nil, fmt.Errorf("list grades: %w", err)
	}
	return grades, nil
}

// SummarizeByLevel aggregates a student's grades per level. The pass rate is
// computed against the given threshold.
func (r *GradeRepository) SummarizeByLevel(ctx context.Context, studentID string, passThreshold float64) ([]models.LevelGradeSummary, error) {
	const query = `SELECT level,
        COUNT(*) AS count,
        AVG(grade) AS average,
        AVG(CASE WHEN grade >= $2 THEN 1.0 ELSE 0.0 END) AS pass_rate
        FROM grades WHERE student_id = $1 GROUP BY level ORDER BY level ASC`

	var summaries []models.LevelGradeSummary
	if err := r.db.SelectContext(ctx, &summaries, query, studentID, passThreshold); err != nil {
		return nil, fmt.Errorf("summarize grades: %w", err)
	}
	return summaries, nil
}
