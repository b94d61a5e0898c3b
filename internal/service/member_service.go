package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Sumiong13/kbm-corner-api/internal/models"
	appErrors "github.com/Sumiong13/kbm-corner-api/pkg/errors"
)

type memberProfileRepository interface {
	FindByID(ctx context.Context, id string) (*models.UserProfile, error)
	List(ctx context.Context, filter models.ProfileFilter) ([]models.UserProfile, int, error)
	SetVerification(ctx context.Context, id string, status models.VerificationStatus, verified bool) error
	AssignClass(ctx context.Context, id string, classID *string) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type memberDirectoryRepository interface {
	FindClassByID(ctx context.Context, id string) (*models.ClubClass, error)
	SetClassTutor(ctx context.Context, id string, tutorID *string) error
}

type memberSnapshotStore interface {
	StoreSnapshot(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	LoadSnapshot(ctx context.Context, key string, dest interface{}) error
}

// MemberService implements member directory reads and the admin account
// workflows: verification decisions and tutor class assignment.
type MemberService struct {
	profiles  memberProfileRepository
	directory memberDirectoryRepository
	snapshots memberSnapshotStore
	probe     readinessProbe
	logger    *zap.Logger
	fallback  fallbackSettings
}

type fallbackSettings struct {
	Enabled     bool
	SnapshotTTL time.Duration
}

// NewMemberService constructs a MemberService.
func NewMemberService(profiles memberProfileRepository, directory memberDirectoryRepository, snapshots memberSnapshotStore, probe readinessProbe, logger *zap.Logger, fallbackEnabled bool, snapshotTTL time.Duration) *MemberService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemberService{
		profiles:  profiles,
		directory: directory,
		snapshots: snapshots,
		probe:     probe,
		logger:    logger,
		fallback:  fallbackSettings{Enabled: fallbackEnabled, SnapshotTTL: snapshotTTL},
	}
}

// GetMember returns one member profile. The second return value reports
// whether the data came from the stale fallback snapshot.
func (s *MemberService) GetMember(ctx context.Context, id string) (*models.UserProfile, bool, error) {
	if s.probe == nil || s.probe.Ready(ctx) {
		profile, err := s.profiles.FindByID(ctx, id)
		if err == nil {
			if s.fallback.Enabled && s.snapshots != nil {
				if snapErr := s.snapshots.StoreSnapshot(ctx, memberSnapshotKey(id), profile, s.fallback.SnapshotTTL); snapErr != nil {
					s.logger.Warn("failed to store member snapshot", zap.Error(snapErr))
				}
			}
			return profile, false, nil
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, "member not found")
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load member")
	}

	if !s.fallback.Enabled || s.snapshots == nil {
		return nil, false, appErrors.Clone(appErrors.ErrUnavailable, "member data is temporarily unavailable, please retry")
	}

	var cached models.UserProfile
	if err := s.snapshots.LoadSnapshot(ctx, memberSnapshotKey(id), &cached); err != nil {
		return nil, false, appErrors.Clone(appErrors.ErrUnavailable, "member data is temporarily unavailable, please retry")
	}
	s.logger.Warn("serving stale member snapshot", zap.String("member_id", id))
	return &cached, true, nil
}

// ListMembers returns members matching the filter with pagination metadata.
func (s *MemberService) ListMembers(ctx context.Context, filter models.ProfileFilter) ([]models.UserProfile, int, error) {
	members, total, err := s.profiles.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list members")
	}
	return members, total, nil
}

// VerifyAccount applies an admin decision on a pending committee or tutor
// account. Approval unlocks login; rejection keeps it locked.
func (s *MemberService) VerifyAccount(ctx context.Context, actorID, memberID string, approve bool) (*models.UserProfile, error) {
	if s.probe != nil && !s.probe.Ready(ctx) {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "verification is temporarily unavailable, please retry")
	}

	profile, err := s.profiles.FindByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "member not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load member")
	}

	if profile.VerificationStatus != models.VerificationPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "account is not awaiting verification")
	}

	status := models.VerificationRejected
	if approve {
		status = models.VerificationApproved
	}
	if err := s.profiles.SetVerification(ctx, memberID, status, approve); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "member not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store verification decision")
	}

	profile.VerificationStatus = status
	profile.Verified = approve

	if err := s.profiles.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     models.AuditActionAccountVerify,
		Resource:   "profile",
		ResourceID: &memberID,
		NewValues:  []byte(fmt.Sprintf(`{"status":%q}`, status)),
	}); err != nil {
		s.logger.Warn("failed to record verification audit log", zap.Error(err))
	}

	return profile, nil
}

// AssignClass links a tutor to the class they lead. Both sides of the link
// are updated so the class roster and the tutor profile agree.
func (s *MemberService) AssignClass(ctx context.Context, actorID, tutorID, classID string) error {
	if s.probe != nil && !s.probe.Ready(ctx) {
		return appErrors.Clone(appErrors.ErrUnavailable, "class assignment is temporarily unavailable, please retry")
	}

	tutor, err := s.profiles.FindByID(ctx, tutorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "tutor not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tutor")
	}
	if tutor.Role != models.RoleTutor {
		return appErrors.Clone(appErrors.ErrValidation, "only tutors can be assigned to classes")
	}

	class, err := s.directory.FindClassByID(ctx, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	if err := s.profiles.AssignClass(ctx, tutor.ID, &class.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign class")
	}
	if err := s.directory.SetClassTutor(ctx, class.ID, &tutor.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class tutor")
	}

	if err := s.profiles.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     models.AuditActionClassAssign,
		Resource:   "class",
		ResourceID: &class.ID,
		NewValues:  []byte(fmt.Sprintf(`{"tutor_id":%q}`, tutor.ID)),
	}); err != nil {
		s.logger.Warn("failed to record class assignment audit log", zap.Error(err))
	}

	return nil
}

func memberSnapshotKey(id string) string {
	return "member:" + id
}
