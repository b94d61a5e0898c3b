package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Sumiong13/kbm-corner-api/internal/models"
	"github.com/Sumiong13/kbm-corner-api/pkg/config"
	appErrors "github.com/Sumiong13/kbm-corner-api/pkg/errors"
)

type gradeRepository interface {
	Create(ctx context.Context, grade *models.Grade) error
	List(ctx context.Context, filter models.GradeFilter) ([]models.Grade, error)
	SummarizeByLevel(ctx context.Context, studentID string, passThreshold float64) ([]models.LevelGradeSummary, error)
}

type gradeSnapshotStore interface {
	StoreSnapshot(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	LoadSnapshot(ctx context.Context, key string, dest interface{}) error
}

// GradeRequest records one assessment score for a student.
type GradeRequest struct {
	StudentID      string  `json:"student_id" validate:"required"`
	AssessmentType string  `json:"assessment_type" validate:"required"`
	Grade          float64 `json:"grade" validate:"min=0,max=100"`
	Comments       string  `json:"comments"`
}

// GradingService implements tutor grading and the student transcript read
// path. Transcripts are the one read that degrades to a cached snapshot when
// the database is unreachable.
type GradingService struct {
	grades    gradeRepository
	authz     *Authorizer
	snapshots gradeSnapshotStore
	probe     readinessProbe
	validator *validator.Validate
	logger    *zap.Logger
	cfg       config.GradingConfig
	fallback  config.FallbackConfig
}

// NewGradingService constructs a GradingService.
func NewGradingService(grades gradeRepository, authz *Authorizer, snapshots gradeSnapshotStore, probe readinessProbe, validate *validator.Validate, logger *zap.Logger, cfg config.GradingConfig, fallback config.FallbackConfig) *GradingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &GradingService{grades: grades, authz: authz, snapshots: snapshots, probe: probe, validator: validate, logger: logger, cfg: cfg, fallback: fallback}
}

// GradeStudent records an assessment score. The grade row captures the
// student's current level; grades never change a level on their own.
func (s *GradingService) GradeStudent(ctx context.Context, tutorID string, req GradeRequest) (*models.Grade, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}

	assessment := models.AssessmentType(req.AssessmentType)
	if !assessment.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown assessment type")
	}

	if s.probe != nil && !s.probe.Ready(ctx) {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "grading is temporarily unavailable, please retry")
	}

	tutor, err := s.authz.Require(ctx, tutorID, models.RoleTutor, models.RoleAdmin)
	if err != nil {
		return nil, err
	}

	student, err := s.authz.Require(ctx, req.StudentID)
	if err != nil {
		if appErr, ok := err.(*appErrors.Error); ok && appErr.Code == appErrors.ErrProfileNotFound.Code {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, err
	}
	if student.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrValidation, "grades can only be recorded for students")
	}

	grade := &models.Grade{
		StudentID:      student.ID,
		TutorID:        tutor.ID,
		AssessmentType: assessment,
		Grade:          req.Grade,
		Level:          student.MembershipLevel,
		Comments:       req.Comments,
		GradedAt:       time.Now().UTC(),
	}
	if err := s.grades.Create(ctx, grade); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record grade")
	}

	s.logger.Info("grade recorded",
		zap.String("student_id", student.ID),
		zap.String("tutor_id", tutor.ID),
		zap.String("assessment", string(assessment)),
		zap.Float64("grade", req.Grade),
		zap.Int("level", grade.Level))

	return grade, nil
}

// StudentGrades returns a student's transcript with per-level summaries. The
// second return value reports whether the data came from the stale fallback
// snapshot rather than the database.
func (s *GradingService) StudentGrades(ctx context.Context, studentID string, level *int) (*models.StudentGradeReport, bool, error) {
	report, err := s.loadReport(ctx, studentID, level)
	if err == nil {
		if s.fallback.Enabled && s.snapshots != nil && level == nil {
			if snapErr := s.snapshots.StoreSnapshot(ctx, gradeSnapshotKey(studentID), report, s.fallback.SnapshotTTL); snapErr != nil {
				s.logger.Warn("failed to store grade snapshot", zap.Error(snapErr))
			}
		}
		return report, false, nil
	}

	if !s.fallback.Enabled || s.snapshots == nil {
		return nil, false, err
	}

	var cached models.StudentGradeReport
	if snapErr := s.snapshots.LoadSnapshot(ctx, gradeSnapshotKey(studentID), &cached); snapErr != nil {
		if errors.Is(snapErr, appErrors.ErrCacheMiss) {
			return nil, false, appErrors.Clone(appErrors.ErrUnavailable, "grades are temporarily unavailable, please retry")
		}
		s.logger.Warn("failed to load grade snapshot", zap.Error(snapErr))
		return nil, false, err
	}

	s.logger.Warn("serving stale grade snapshot", zap.String("student_id", studentID))
	return &cached, true, nil
}

func (s *GradingService) loadReport(ctx context.Context, studentID string, level *int) (*models.StudentGradeReport, error) {
	if s.probe != nil && !s.probe.Ready(ctx) {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "database is unreachable")
	}

	grades, err := s.grades.List(ctx, models.GradeFilter{StudentID: studentID, Level: level})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grades")
	}

	summaries, err := s.grades.SummarizeByLevel(ctx, studentID, s.cfg.PassThreshold)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to summarize grades")
	}

	return &models.StudentGradeReport{
		StudentID: studentID,
		Grades:    grades,
		Summaries: summaries,
	}, nil
}

func gradeSnapshotKey(studentID string) string {
	return "grades:" + studentID
}
