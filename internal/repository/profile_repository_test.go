package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumiong13/kbm-corner-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func profileRows(now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "email", "password_hash", "full_name", "role", "membership_level", "membership_expiry", "verified", "verification_status", "assigned_class_id", "active", "last_login", "created_at", "updated_at"}).
		AddRow("1", "member@example.com", "hash", "Member", string(models.RoleStudent), 1, now, true, string(models.VerificationApproved), nil, true, now, now, now)
}

func TestFindProfileByEmail(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProfileRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM user_profiles WHERE email = $1 LIMIT 1")).
		WithArgs("member@example.com").
		WillReturnRows(profileRows(now))

	profile, err := repo.FindByEmail(context.Background(), "member@example.com")
	require.NoError(t, err)
	assert.Equal(t, "member@example.com", profile.Email)
	assert.Equal(t, models.RoleStudent, profile.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListProfiles(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProfileRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM user_profiles WHERE 1=1 ORDER BY created_at DESC LIMIT 20 OFFSET 0")).
		WillReturnRows(profileRows(now))

	countRows := sqlmock.NewRows([]string{"count"}).AddRow(1)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM user_profiles WHERE 1=1")).WillReturnRows(countRows)

	profiles, total, err := repo.List(context.Background(), models.ProfileFilter{})
	require.NoError(t, err)
	assert.Len(t, profiles, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExtendExpiryConditional(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProfileRepository(db)

	expected := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newExpiry := expected.AddDate(0, 4, 0)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE user_profiles SET membership_expiry = $2, updated_at = $3 WHERE id = $1 AND membership_expiry = $4")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	updated, err := repo.ExtendExpiry(context.Background(), "1", newExpiry, expected)
	require.NoError(t, err)
	assert.True(t, updated)

	// A second writer already moved the expiry; the guarded update matches
	// zero rows and the caller must retry against fresh state.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE user_profiles SET membership_expiry = $2, updated_at = $3 WHERE id = $1 AND membership_expiry = $4")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	updated, err = repo.ExtendExpiry(context.Background(), "1", newExpiry, expected)
	require.NoError(t, err)
	assert.False(t, updated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPromoteLevelConditional(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProfileRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE user_profiles SET membership_level = $2, updated_at = $3 WHERE id = $1 AND membership_level = $4")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	updated, err := repo.PromoteLevel(context.Background(), "1", 2, 3)
	require.NoError(t, err)
	assert.False(t, updated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResetMembershipsExcludesAdmins(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProfileRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE user_profiles SET membership_expiry = $1, updated_at = $2 WHERE role <> $3")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), models.RoleAdmin).
		WillReturnResult(sqlmock.NewResult(0, 42))

	affected, err := repo.ResetMemberships(context.Background(), time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, int64(42), affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}
