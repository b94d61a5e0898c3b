package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Sumiong13/kbm-corner-api/internal/models"
	appErrors "github.com/Sumiong13/kbm-corner-api/pkg/errors"
)

type directoryRepository interface {
	CreateEvent(ctx context.Context, event *models.Event) error
	FindEventByID(ctx context.Context, id string) (*models.Event, error)
	FindActiveEventByCode(ctx context.Context, sessionCode string) (*models.Event, error)
	ListEvents(ctx context.Context, activeOnly bool) ([]models.Event, error)
	SetEventActive(ctx context.Context, id string, active bool) error
	CreateClass(ctx context.Context, class *models.ClubClass) error
	FindActiveClassByCode(ctx context.Context, sessionCode string) (*models.ClubClass, error)
	ListClasses(ctx context.Context, activeOnly bool) ([]models.ClubClass, error)
}

// EventRequest creates a new club event.
type EventRequest struct {
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	StartsAt    time.Time `json:"starts_at" validate:"required"`
	EndsAt      time.Time `json:"ends_at" validate:"required,gtfield=StartsAt"`
	SessionCode string    `json:"session_code"`
}

// ClassRequest creates a new recurring club class.
type ClassRequest struct {
	Name        string `json:"name" validate:"required"`
	Schedule    string `json:"schedule" validate:"required"`
	SessionCode string `json:"session_code"`
}

// DirectoryService manages the check-in directory of events and classes and
// owns session code generation.
type DirectoryService struct {
	directory directoryRepository
	probe     readinessProbe
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDirectoryService constructs a DirectoryService.
func NewDirectoryService(directory directoryRepository, probe readinessProbe, validate *validator.Validate, logger *zap.Logger) *DirectoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &DirectoryService{directory: directory, probe: probe, validator: validate, logger: logger}
}

// sessionCodeAlphabet excludes 0/O and 1/I so printed QR fallback codes can
// be typed without ambiguity.
const sessionCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const sessionCodeLength = 8

// GenerateSessionCode returns a fresh uppercase session code.
func GenerateSessionCode() (string, error) {
	buf := make([]byte, sessionCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i := range buf {
		buf[i] = sessionCodeAlphabet[int(buf[i])%len(sessionCodeAlphabet)]
	}
	return string(buf), nil
}

// CreateEvent creates an event. A missing session code is generated; a given
// one is normalized to uppercase and checked for collisions.
func (s *DirectoryService) CreateEvent(ctx context.Context, req EventRequest) (*models.Event, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event payload")
	}

	if s.probe != nil && !s.probe.Ready(ctx) {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "event creation is temporarily unavailable, please retry")
	}

	code, err := s.resolveSessionCode(ctx, req.SessionCode)
	if err != nil {
		return nil, err
	}

	event := &models.Event{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Location:    req.Location,
		StartsAt:    req.StartsAt.UTC(),
		EndsAt:      req.EndsAt.UTC(),
		SessionCode: code,
		Active:      true,
	}
	if err := s.directory.CreateEvent(ctx, event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create event")
	}

	s.logger.Info("event created", zap.String("event_id", event.ID), zap.String("session_code", code))
	return event, nil
}

// ListEvents returns the event directory.
func (s *DirectoryService) ListEvents(ctx context.Context, activeOnly bool) ([]models.Event, error) {
	events, err := s.directory.ListEvents(ctx, activeOnly)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list events")
	}
	return events, nil
}

// SetEventActive opens or closes an event for check-in.
func (s *DirectoryService) SetEventActive(ctx context.Context, id string, active bool) error {
	if err := s.directory.SetEventActive(ctx, id, active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update event")
	}
	return nil
}

// CreateClass creates a recurring class with its own check-in code.
func (s *DirectoryService) CreateClass(ctx context.Context, req ClassRequest) (*models.ClubClass, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}

	if s.probe != nil && !s.probe.Ready(ctx) {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "class creation is temporarily unavailable, please retry")
	}

	code, err := s.resolveSessionCode(ctx, req.SessionCode)
	if err != nil {
		return nil, err
	}

	class := &models.ClubClass{
		Name:        strings.TrimSpace(req.Name),
		Schedule:    req.Schedule,
		SessionCode: code,
		Active:      true,
	}
	if err := s.directory.CreateClass(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}

	s.logger.Info("class created", zap.String("class_id", class.ID), zap.String("session_code", code))
	return class, nil
}

// ListClasses returns the class directory.
func (s *DirectoryService) ListClasses(ctx context.Context, activeOnly bool) ([]models.ClubClass, error) {
	classes, err := s.directory.ListClasses(ctx, activeOnly)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	return classes, nil
}

func (s *DirectoryService) resolveSessionCode(ctx context.Context, requested string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(requested))
	if code == "" {
		generated, err := GenerateSessionCode()
		if err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate session code")
		}
		return generated, nil
	}

	if _, err := s.directory.FindActiveEventByCode(ctx, code); err == nil {
		return "", appErrors.Clone(appErrors.ErrConflict, "session code is already in use")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check session code")
	}
	if _, err := s.directory.FindActiveClassByCode(ctx, code); err == nil {
		return "", appErrors.Clone(appErrors.ErrConflict, "session code is already in use")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check session code")
	}

	return code, nil
}
