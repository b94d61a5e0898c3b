package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Sumiong13/kbm-corner-api/internal/models"
	appErrors "github.com/Sumiong13/kbm-corner-api/pkg/errors"
)

type progressionRepository interface {
	CreateVerification(ctx context.Context, v *models.LevelVerification) error
	ListVerifications(ctx context.Context, studentID string) ([]models.LevelVerification, error)
	CreateCertificate(ctx context.Context, cert *models.Certificate) error
	FindCertificate(ctx context.Context, id string) (*models.Certificate, error)
	ListCertificates(ctx context.Context, studentID string) ([]models.Certificate, error)
	HasCertificateForLevel(ctx context.Context, studentID string, level int) (bool, error)
}

type progressionProfileRepository interface {
	FindByID(ctx context.Context, id string) (*models.UserProfile, error)
	PromoteLevel(ctx context.Context, id string, fromLevel, toLevel int) (bool, error)
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// LevelVerificationRequest carries a tutor's promotion decision.
type LevelVerificationRequest struct {
	StudentID  string `json:"student_id" validate:"required"`
	Approved   bool   `json:"approved"`
	TutorNotes string `json:"tutor_notes"`
}

// ProgressionService implements the tutor-driven level-up review: one
// decision record per review, a certificate per completed level, and a
// conditional level bump that loses cleanly when two reviewers race.
type ProgressionService struct {
	progressions progressionRepository
	profiles     progressionProfileRepository
	authz        *Authorizer
	probe        readinessProbe
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewProgressionService constructs a ProgressionService.
func NewProgressionService(progressions progressionRepository, profiles progressionProfileRepository, authz *Authorizer, probe readinessProbe, validate *validator.Validate, logger *zap.Logger) *ProgressionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ProgressionService{progressions: progressions, profiles: profiles, authz: authz, probe: probe, validator: validate, logger: logger}
}

// VerifyLevelUp applies a tutor's promotion decision.
//
// Approval below the cap promotes the student one level and issues a
// certificate for the level they completed. Rejection records the decision
// and leaves the level untouched. Approval at level 5 succeeds as a no-op:
// no decision row, no certificate, no level change.
func (s *ProgressionService) VerifyLevelUp(ctx context.Context, tutorID string, req LevelVerificationRequest) (*models.ProgressionResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid verification payload")
	}

	if s.probe != nil && !s.probe.Ready(ctx) {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "level verification is temporarily unavailable, please retry")
	}

	tutor, err := s.authz.Require(ctx, tutorID, models.RoleTutor, models.RoleAdmin)
	if err != nil {
		return nil, err
	}

	student, err := s.profiles.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrValidation, "level verification only applies to students")
	}

	now := time.Now().UTC()

	if !req.Approved {
		verification := &models.LevelVerification{
			StudentID:  student.ID,
			FromLevel:  student.MembershipLevel,
			ToLevel:    student.MembershipLevel,
			Approved:   false,
			TutorID:    tutor.ID,
			TutorNotes: req.TutorNotes,
			VerifiedAt: now,
		}
		if err := s.progressions.CreateVerification(ctx, verification); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record decision")
		}
		s.auditDecision(ctx, tutor.ID, student.ID, verification)

		return &models.ProgressionResult{
			Outcome:      models.OutcomeRetained,
			FromLevel:    student.MembershipLevel,
			ToLevel:      student.MembershipLevel,
			Verification: verification,
			Message:      "student retained at current level",
		}, nil
	}

	if student.MembershipLevel >= models.MaxMembershipLevel {
		return &models.ProgressionResult{
			Outcome:   models.OutcomeMaxLevel,
			FromLevel: student.MembershipLevel,
			ToLevel:   student.MembershipLevel,
			Message:   "student is already at the highest level",
		}, nil
	}

	fromLevel := student.MembershipLevel
	toLevel := fromLevel + 1

	promoted, err := s.profiles.PromoteLevel(ctx, student.ID, fromLevel, toLevel)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to promote student")
	}
	if !promoted {
		// Another reviewer moved the level between our read and write.
		return nil, appErrors.Clone(appErrors.ErrConflict, "student level changed during review, please re-check")
	}

	verification := &models.LevelVerification{
		StudentID:  student.ID,
		FromLevel:  fromLevel,
		ToLevel:    toLevel,
		Approved:   true,
		TutorID:    tutor.ID,
		TutorNotes: req.TutorNotes,
		VerifiedAt: now,
	}
	if err := s.progressions.CreateVerification(ctx, verification); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record decision")
	}

	var certificate *models.Certificate
	already, err := s.progressions.HasCertificateForLevel(ctx, student.ID, fromLevel)
	if err != nil {
		s.logger.Warn("failed to check existing certificate", zap.Error(err))
	}
	if err == nil && !already {
		certificate = &models.Certificate{
			StudentID:   student.ID,
			Level:       fromLevel,
			Title:       fmt.Sprintf("Level %d Completion", fromLevel),
			Description: fmt.Sprintf("Awarded to %s for completing membership level %d.", student.FullName, fromLevel),
			IssuedAt:    now,
		}
		if err := s.progressions.CreateCertificate(ctx, certificate); err != nil {
			// The promotion already happened; surface the award failure in
			// logs but do not roll the student back.
			s.logger.Error("failed to issue certificate", zap.Error(err), zap.String("student_id", student.ID))
			certificate = nil
		}
	}

	s.auditDecision(ctx, tutor.ID, student.ID, verification)
	s.logger.Info("student promoted",
		zap.String("student_id", student.ID),
		zap.Int("from_level", fromLevel),
		zap.Int("to_level", toLevel),
		zap.String("tutor_id", tutor.ID))

	return &models.ProgressionResult{
		Outcome:      models.OutcomePromoted,
		FromLevel:    fromLevel,
		ToLevel:      toLevel,
		Certificate:  certificate,
		Verification: verification,
		Message:      fmt.Sprintf("student promoted to level %d", toLevel),
	}, nil
}

// History returns a student's review decisions and certificates.
func (s *ProgressionService) History(ctx context.Context, studentID string) ([]models.LevelVerification, []models.Certificate, error) {
	verifications, err := s.progressions.ListVerifications(ctx, studentID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list verifications")
	}
	certificates, err := s.progressions.ListCertificates(ctx, studentID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list certificates")
	}
	return verifications, certificates, nil
}

// GetCertificate returns one certificate by identifier.
func (s *ProgressionService) GetCertificate(ctx context.Context, id string) (*models.Certificate, error) {
	cert, err := s.progressions.FindCertificate(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "certificate not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load certificate")
	}
	return cert, nil
}

func (s *ProgressionService) auditDecision(ctx context.Context, tutorID, studentID string, v *models.LevelVerification) {
	if err := s.profiles.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &tutorID,
		Action:     models.AuditActionLevelDecision,
		Resource:   "level_verification",
		ResourceID: &v.ID,
		NewValues:  []byte(fmt.Sprintf(`{"student_id":%q,"approved":%t,"from":%d,"to":%d}`, studentID, v.Approved, v.FromLevel, v.ToLevel)),
	}); err != nil {
		s.logger.Warn("failed to record decision audit log", zap.Error(err))
	}
}
