package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumiong13/kbm-corner-api/internal/models"
	appErrors "github.com/Sumiong13/kbm-corner-api/pkg/errors"
)

type fakeAttendanceStore struct {
	created       []models.Attendance
	eventDupe     bool
	classDupeDays map[string]bool
}

func (s *fakeAttendanceStore) Create(_ context.Context, attendance *models.Attendance) error {
	if attendance.ID == "" {
		attendance.ID = "att-1"
	}
	s.created = append(s.created, *attendance)
	return nil
}

func (s *fakeAttendanceStore) ExistsForEvent(context.Context, string, string) (bool, error) {
	return s.eventDupe, nil
}

func (s *fakeAttendanceStore) ExistsForClassOnDay(_ context.Context, _ string, className string, day time.Time) (bool, error) {
	return s.classDupeDays[className+day.Format("2006-01-02")], nil
}

func (s *fakeAttendanceStore) List(context.Context, models.AttendanceFilter) ([]models.Attendance, int, error) {
	return s.created, len(s.created), nil
}

type fakeDirectoryStore struct {
	events  map[string]*models.Event
	classes map[string]*models.ClubClass
}

func (s *fakeDirectoryStore) FindActiveEventByCode(_ context.Context, code string) (*models.Event, error) {
	if e, ok := s.events[code]; ok {
		return e, nil
	}
	return nil, errNoRows()
}

func (s *fakeDirectoryStore) FindActiveClassByCode(_ context.Context, code string) (*models.ClubClass, error) {
	if c, ok := s.classes[code]; ok {
		return c, nil
	}
	return nil, errNoRows()
}

func newCheckInFixture(t *testing.T, profile *models.UserProfile) (*AttendanceService, *fakeAttendanceStore, *fakeDirectoryStore) {
	t.Helper()
	attendances := &fakeAttendanceStore{classDupeDays: map[string]bool{}}
	directory := &fakeDirectoryStore{
		events: map[string]*models.Event{
			"TECHTALK": {ID: "ev-1", Title: "Tech Talk Night", SessionCode: "TECHTALK", Active: true},
		},
		classes: map[string]*models.ClubClass{
			"ENGA2": {ID: "cl-1", Name: "Beginner English", SessionCode: "ENGA2", Active: true},
		},
	}
	profiles := newFakeProfileStore(profile)
	svc := NewAttendanceService(attendances, directory, profiles, &fakeProbe{ready: true}, nil)
	return svc, attendances, directory
}

func TestCheckInEventNormalizesCode(t *testing.T) {
	svc, attendances, _ := newCheckInFixture(t, studentProfile("s1", 1, time.Now().UTC().AddDate(0, 1, 0)))

	result, err := svc.CheckIn(context.Background(), "s1", "  techtalk ")
	require.NoError(t, err)
	assert.Equal(t, "Tech Talk Night", result.Target)
	assert.Equal(t, models.AttendanceTypeEvent, result.Attendance.Type)
	assert.Equal(t, "TECHTALK", result.Attendance.SessionCode)
	require.Len(t, attendances.created, 1)
	require.NotNil(t, attendances.created[0].EventID)
	assert.Equal(t, "ev-1", *attendances.created[0].EventID)
}

func TestCheckInEventDuplicateRejected(t *testing.T) {
	svc, attendances, _ := newCheckInFixture(t, studentProfile("s1", 1, time.Now().UTC().AddDate(0, 1, 0)))
	attendances.eventDupe = true

	_, err := svc.CheckIn(context.Background(), "s1", "TECHTALK")
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrDuplicateCheckIn.Code, appErr.Code)
	assert.Empty(t, attendances.created)
}

func TestCheckInClassOncePerDay(t *testing.T) {
	svc, attendances, _ := newCheckInFixture(t, studentProfile("s1", 2, time.Now().UTC().AddDate(0, 1, 0)))

	result, err := svc.CheckIn(context.Background(), "s1", "enga2")
	require.NoError(t, err)
	assert.Equal(t, "Beginner English", result.Target)
	assert.Equal(t, models.AttendanceTypeClass, result.Attendance.Type)

	attendances.classDupeDays["Beginner English"+time.Now().UTC().Format("2006-01-02")] = true
	_, err = svc.CheckIn(context.Background(), "s1", "ENGA2")
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrDuplicateCheckIn.Code, appErr.Code)
}

func TestCheckInEventWinsOverClassOnSharedCode(t *testing.T) {
	svc, _, directory := newCheckInFixture(t, studentProfile("s1", 1, time.Now().UTC().AddDate(0, 1, 0)))
	directory.classes["TECHTALK"] = &models.ClubClass{ID: "cl-9", Name: "Shadowed Class", SessionCode: "TECHTALK", Active: true}

	result, err := svc.CheckIn(context.Background(), "s1", "TECHTALK")
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceTypeEvent, result.Attendance.Type)
}

func TestCheckInUnknownCode(t *testing.T) {
	svc, _, _ := newCheckInFixture(t, studentProfile("s1", 1, time.Now().UTC().AddDate(0, 1, 0)))

	_, err := svc.CheckIn(context.Background(), "s1", "NOSUCH")
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrInvalidCode.Code, appErr.Code)
}

func TestCheckInExpiredMembershipRejected(t *testing.T) {
	svc, attendances, _ := newCheckInFixture(t, studentProfile("s1", 1, time.Now().UTC().Add(-time.Hour)))

	_, err := svc.CheckIn(context.Background(), "s1", "TECHTALK")
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
	assert.Empty(t, attendances.created)
}

func TestCheckInAdminNeverExpires(t *testing.T) {
	admin := studentProfile("a1", 1, time.Now().UTC().Add(-time.Hour))
	admin.Role = models.RoleAdmin
	svc, _, _ := newCheckInFixture(t, admin)

	_, err := svc.CheckIn(context.Background(), "a1", "TECHTALK")
	require.NoError(t, err)
}

func TestCheckInUnavailableWhenDatabaseDown(t *testing.T) {
	attendances := &fakeAttendanceStore{classDupeDays: map[string]bool{}}
	directory := &fakeDirectoryStore{}
	profiles := newFakeProfileStore(studentProfile("s1", 1, time.Now().UTC().AddDate(0, 1, 0)))
	svc := NewAttendanceService(attendances, directory, profiles, &fakeProbe{ready: false}, nil)

	_, err := svc.CheckIn(context.Background(), "s1", "TECHTALK")
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrUnavailable.Code, appErr.Code)
}
