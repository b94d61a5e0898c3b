package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Sumiong13/kbm-corner-api/internal/models"
	appErrors "github.com/Sumiong13/kbm-corner-api/pkg/errors"
)

type attendanceRepository interface {
	Create(ctx context.Context, attendance *models.Attendance) error
	ExistsForEvent(ctx context.Context, userID, eventID string) (bool, error)
	ExistsForClassOnDay(ctx context.Context, userID, className string, day time.Time) (bool, error)
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.Attendance, int, error)
}

type attendanceDirectoryRepository interface {
	FindActiveEventByCode(ctx context.Context, sessionCode string) (*models.Event, error)
	FindActiveClassByCode(ctx context.Context, sessionCode string) (*models.ClubClass, error)
}

type attendanceProfileRepository interface {
	FindByID(ctx context.Context, id string) (*models.UserProfile, error)
}

// AttendanceService implements QR session-code check-in for events and
// classes.
type AttendanceService struct {
	attendances attendanceRepository
	directory   attendanceDirectoryRepository
	profiles    attendanceProfileRepository
	probe       readinessProbe
	logger      *zap.Logger
}

// NewAttendanceService constructs an AttendanceService.
func NewAttendanceService(attendances attendanceRepository, directory attendanceDirectoryRepository, profiles attendanceProfileRepository, probe readinessProbe, logger *zap.Logger) *AttendanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{attendances: attendances, directory: directory, profiles: profiles, probe: probe, logger: logger}
}

// CheckIn records a check-in against the session code printed on the QR.
// Codes are matched case-insensitively. An event match wins over a class
// match when a code is ever reused across the two.
func (s *AttendanceService) CheckIn(ctx context.Context, userID, sessionCode string) (*models.CheckInResult, error) {
	code := strings.ToUpper(strings.TrimSpace(sessionCode))
	if code == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "session code is required")
	}

	if s.probe != nil && !s.probe.Ready(ctx) {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "check-in is temporarily unavailable, please retry")
	}

	profile, err := s.profiles.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrProfileNotFound, "profile not found, please sign in again")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load profile")
	}

	now := time.Now().UTC()
	if !profile.MembershipActive(now) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "membership has expired, please renew before checking in")
	}

	event, err := s.directory.FindActiveEventByCode(ctx, code)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve session code")
	}

	if event != nil {
		return s.checkInEvent(ctx, profile, event, code, now)
	}

	class, err := s.directory.FindActiveClassByCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrInvalidCode
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve session code")
	}

	return s.checkInClass(ctx, profile, class, code, now)
}

func (s *AttendanceService) checkInEvent(ctx context.Context, profile *models.UserProfile, event *models.Event, code string, now time.Time) (*models.CheckInResult, error) {
	exists, err := s.attendances.ExistsForEvent(ctx, profile.ID, event.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check prior attendance")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrDuplicateCheckIn, "you already checked in to this event")
	}

	attendance := &models.Attendance{
		UserID:      profile.ID,
		EventID:     &event.ID,
		SessionCode: code,
		Type:        models.AttendanceTypeEvent,
		CheckedInAt: now,
	}
	if err := s.attendances.Create(ctx, attendance); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record check-in")
	}

	s.logger.Info("event check-in",
		zap.String("user_id", profile.ID),
		zap.String("event_id", event.ID),
		zap.String("session_code", code))

	return &models.CheckInResult{Attendance: *attendance, Target: event.Title}, nil
}

func (s *AttendanceService) checkInClass(ctx context.Context, profile *models.UserProfile, class *models.ClubClass, code string, now time.Time) (*models.CheckInResult, error) {
	// Class check-ins reset per calendar day; the same student can attend
	// the same class again tomorrow.
	exists, err := s.attendances.ExistsForClassOnDay(ctx, profile.ID, class.Name, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check prior attendance")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrDuplicateCheckIn, "you already checked in to this class today")
	}

	attendance := &models.Attendance{
		UserID:      profile.ID,
		ClassName:   &class.Name,
		SessionCode: code,
		Type:        models.AttendanceTypeClass,
		CheckedInAt: now,
	}
	if err := s.attendances.Create(ctx, attendance); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record check-in")
	}

	s.logger.Info("class check-in",
		zap.String("user_id", profile.ID),
		zap.String("class_name", class.Name),
		zap.String("session_code", code))

	return &models.CheckInResult{Attendance: *attendance, Target: class.Name}, nil
}

// ListAttendance returns attendance history matching the filter.
func (s *AttendanceService) ListAttendance(ctx context.Context, filter models.AttendanceFilter) ([]models.Attendance, int, error) {
	records, total, err := s.attendances.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	return records, total, nil
}
