package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumiong13/kbm-corner-api/internal/models"
)

func TestCreateAttendance(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectExec("INSERT INTO attendances").WillReturnResult(sqlmock.NewResult(1, 1))

	eventID := "ev-1"
	att := &models.Attendance{UserID: "u1", EventID: &eventID, SessionCode: "TECH24", Type: models.AttendanceTypeEvent}
	err := repo.Create(context.Background(), att)
	require.NoError(t, err)
	assert.NotEmpty(t, att.ID)
	assert.False(t, att.CheckedInAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExistsForEvent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	rows := sqlmock.NewRows([]string{"exists"}).AddRow(true)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM attendances WHERE user_id = $1 AND event_id = $2)")).
		WithArgs("u1", "ev-1").
		WillReturnRows(rows)

	exists, err := repo.ExistsForEvent(context.Background(), "u1", "ev-1")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExistsForClassOnDayBounds(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	day := time.Date(2026, 3, 14, 15, 30, 0, 0, time.UTC)
	dayStart := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.AddDate(0, 0, 1)

	rows := sqlmock.NewRows([]string{"exists"}).AddRow(false)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM attendances WHERE user_id = $1 AND class_name = $2 AND checked_in_at >= $3 AND checked_in_at < $4)")).
		WithArgs("u1", "Beginner English", dayStart, dayEnd).
		WillReturnRows(rows)

	exists, err := repo.ExistsForClassOnDay(context.Background(), "u1", "Beginner English", day)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}
