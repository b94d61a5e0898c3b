package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Sumiong13/kbm-corner-api/internal/models"
	appErrors "github.com/Sumiong13/kbm-corner-api/pkg/errors"
)

type fakeAuthStore struct {
	*fakeProfileStore
	byEmail       map[string]*models.UserProfile
	refreshTokens map[string]*models.RefreshToken
}

func newFakeAuthStore(profiles ...*models.UserProfile) *fakeAuthStore {
	store := &fakeAuthStore{
		fakeProfileStore: newFakeProfileStore(profiles...),
		byEmail:          map[string]*models.UserProfile{},
		refreshTokens:    map[string]*models.RefreshToken{},
	}
	for _, p := range profiles {
		store.byEmail[p.Email] = p
	}
	return store
}

func (s *fakeAuthStore) FindByEmail(_ context.Context, email string) (*models.UserProfile, error) {
	if p, ok := s.byEmail[email]; ok {
		clone := *p
		return &clone, nil
	}
	return nil, errNoRows()
}

func (s *fakeAuthStore) Create(_ context.Context, profile *models.UserProfile) error {
	s.profiles[profile.ID] = profile
	s.byEmail[profile.Email] = profile
	return nil
}

func (s *fakeAuthStore) UpdateLastLogin(context.Context, string, time.Time) error { return nil }

func (s *fakeAuthStore) UpdatePassword(_ context.Context, id, hash string, _ time.Time) error {
	s.profiles[id].PasswordHash = hash
	return nil
}

func (s *fakeAuthStore) RevokeUserRefreshTokens(_ context.Context, userID string) error {
	for _, rt := range s.refreshTokens {
		if rt.UserID == userID {
			rt.Revoked = true
		}
	}
	return nil
}

func (s *fakeAuthStore) CreateRefreshToken(_ context.Context, token *models.RefreshToken) error {
	s.refreshTokens[token.Token] = token
	return nil
}

func (s *fakeAuthStore) FindRefreshToken(_ context.Context, token string) (*models.RefreshToken, error) {
	if rt, ok := s.refreshTokens[token]; ok {
		return rt, nil
	}
	return nil, errNoRows()
}

func (s *fakeAuthStore) RevokeRefreshToken(_ context.Context, id string, revokedAt time.Time) error {
	for _, rt := range s.refreshTokens {
		if rt.ID == id {
			rt.Revoked = true
			rt.RevokedAt = &revokedAt
		}
	}
	return nil
}

func hashedProfile(t *testing.T, id, email, password string, role models.UserRole) *models.UserProfile {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.UserProfile{
		ID:                 id,
		Email:              email,
		PasswordHash:       string(hash),
		FullName:           "Member " + id,
		Role:               role,
		MembershipLevel:    1,
		MembershipExpiry:   time.Now().UTC().AddDate(0, 4, 0),
		Verified:           true,
		VerificationStatus: models.VerificationApproved,
		Active:             true,
	}
}

func newAuthFixture(t *testing.T, profiles ...*models.UserProfile) (*AuthService, *fakeAuthStore) {
	t.Helper()
	store := newFakeAuthStore(profiles...)
	svc := NewAuthService(store, nil, nil, AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "kbm-corner",
	})
	return svc, store
}

func TestSignupStudentStartsVerifiedButExpired(t *testing.T) {
	svc, store := newAuthFixture(t)

	profile, err := svc.Signup(context.Background(), models.SignupRequest{
		Email:    "new@example.com",
		Password: "secret1",
		FullName: "New Student",
		Role:     "student",
	})
	require.NoError(t, err)

	assert.Equal(t, models.RoleStudent, profile.Role)
	assert.True(t, profile.Verified)
	assert.Equal(t, models.VerificationApproved, profile.VerificationStatus)
	assert.Equal(t, models.MinMembershipLevel, profile.MembershipLevel)
	// Membership starts expired: the first payment activates it.
	assert.False(t, profile.MembershipActive(time.Now().UTC().Add(time.Second)))
	assert.NotNil(t, store.profiles[profile.ID])
}

func TestSignupTutorAwaitsVerification(t *testing.T) {
	svc, _ := newAuthFixture(t)

	profile, err := svc.Signup(context.Background(), models.SignupRequest{
		Email:    "tutor@example.com",
		Password: "secret1",
		FullName: "New Tutor",
		Role:     "TUTOR",
	})
	require.NoError(t, err)
	assert.False(t, profile.Verified)
	assert.Equal(t, models.VerificationPending, profile.VerificationStatus)
}

func TestSignupRejectsAdminRole(t *testing.T) {
	svc, _ := newAuthFixture(t)

	_, err := svc.Signup(context.Background(), models.SignupRequest{
		Email:    "boss@example.com",
		Password: "secret1",
		FullName: "Wannabe Admin",
		Role:     "ADMIN",
	})
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestSignupDuplicateEmail(t *testing.T) {
	existing := hashedProfile(t, "u1", "taken@example.com", "secret1", models.RoleStudent)
	svc, _ := newAuthFixture(t, existing)

	_, err := svc.Signup(context.Background(), models.SignupRequest{
		Email:    "Taken@Example.com",
		Password: "secret1",
		FullName: "Copy Cat",
		Role:     "STUDENT",
	})
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestLoginSuccessIssuesTokens(t *testing.T) {
	profile := hashedProfile(t, "u1", "member@example.com", "secret1", models.RoleStudent)
	svc, store := newAuthFixture(t, profile)

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "member@example.com",
		Password: "secret1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "u1", resp.User.ID)
	assert.Len(t, store.refreshTokens, 1)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)
}

func TestLoginWrongPassword(t *testing.T) {
	profile := hashedProfile(t, "u1", "member@example.com", "secret1", models.RoleStudent)
	svc, _ := newAuthFixture(t, profile)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "member@example.com",
		Password: "wrong",
	})
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestLoginUnverifiedTutorBlocked(t *testing.T) {
	profile := hashedProfile(t, "u1", "tutor@example.com", "secret1", models.RoleTutor)
	profile.Verified = false
	profile.VerificationStatus = models.VerificationPending
	svc, _ := newAuthFixture(t, profile)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "tutor@example.com",
		Password: "secret1",
	})
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrUnverifiedAccount.Code, appErr.Code)
}

func TestLoginExpiredMembershipStillAllowed(t *testing.T) {
	profile := hashedProfile(t, "u1", "member@example.com", "secret1", models.RoleStudent)
	profile.MembershipExpiry = time.Now().UTC().Add(-time.Hour)
	svc, _ := newAuthFixture(t, profile)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "member@example.com",
		Password: "secret1",
	})
	require.NoError(t, err)
}

func TestRefreshTokenRotation(t *testing.T) {
	profile := hashedProfile(t, "u1", "member@example.com", "secret1", models.RoleStudent)
	svc, store := newAuthFixture(t, profile)

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "member@example.com",
		Password: "secret1",
	})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{
		RefreshToken: login.RefreshToken,
	})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)
	assert.True(t, store.refreshTokens[login.RefreshToken].Revoked)

	// The used token cannot be replayed.
	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{
		RefreshToken: login.RefreshToken,
	})
	require.Error(t, err)
}
