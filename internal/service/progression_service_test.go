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

type fakeProgressionStore struct {
	verifications []models.LevelVerification
	certificates  []models.Certificate
	hasCert       map[int]bool
}

func (s *fakeProgressionStore) CreateVerification(_ context.Context, v *models.LevelVerification) error {
	if v.ID == "" {
		v.ID = "ver-1"
	}
	s.verifications = append(s.verifications, *v)
	return nil
}

func (s *fakeProgressionStore) ListVerifications(context.Context, string) ([]models.LevelVerification, error) {
	return s.verifications, nil
}

func (s *fakeProgressionStore) CreateCertificate(_ context.Context, cert *models.Certificate) error {
	if cert.ID == "" {
		cert.ID = "cert-1"
	}
	s.certificates = append(s.certificates, *cert)
	return nil
}

func (s *fakeProgressionStore) FindCertificate(_ context.Context, id string) (*models.Certificate, error) {
	for i := range s.certificates {
		if s.certificates[i].ID == id {
			return &s.certificates[i], nil
		}
	}
	return nil, errNoRows()
}

func (s *fakeProgressionStore) ListCertificates(context.Context, string) ([]models.Certificate, error) {
	return s.certificates, nil
}

func (s *fakeProgressionStore) HasCertificateForLevel(_ context.Context, _ string, level int) (bool, error) {
	return s.hasCert[level], nil
}

func tutorProfile(id string) *models.UserProfile {
	return &models.UserProfile{
		ID:                 id,
		Email:              id + "@example.com",
		FullName:           "Tutor " + id,
		Role:               models.RoleTutor,
		MembershipLevel:    1,
		Verified:           true,
		VerificationStatus: models.VerificationApproved,
		Active:             true,
	}
}

func newProgressionFixture(t *testing.T, student *models.UserProfile) (*ProgressionService, *fakeProgressionStore, *fakeProfileStore) {
	t.Helper()
	progressions := &fakeProgressionStore{hasCert: map[int]bool{}}
	profiles := newFakeProfileStore(student, tutorProfile("t1"))
	authz := NewAuthorizer(profiles)
	svc := NewProgressionService(progressions, profiles, authz, &fakeProbe{ready: true}, nil, nil)
	return svc, progressions, profiles
}

func TestVerifyLevelUpApprovalPromotesAndAwards(t *testing.T) {
	student := studentProfile("s1", 2, time.Now().UTC().AddDate(0, 1, 0))
	svc, progressions, profiles := newProgressionFixture(t, student)

	result, err := svc.VerifyLevelUp(context.Background(), "t1", LevelVerificationRequest{
		StudentID: "s1", Approved: true, TutorNotes: "solid progress",
	})
	require.NoError(t, err)

	assert.Equal(t, models.OutcomePromoted, result.Outcome)
	assert.Equal(t, 2, result.FromLevel)
	assert.Equal(t, 3, result.ToLevel)
	assert.Equal(t, 3, profiles.profiles["s1"].MembershipLevel)

	require.Len(t, progressions.verifications, 1)
	assert.True(t, progressions.verifications[0].Approved)
	assert.Equal(t, 2, progressions.verifications[0].FromLevel)
	assert.Equal(t, 3, progressions.verifications[0].ToLevel)

	// Certificate is for the level the student finished, not the new one.
	require.NotNil(t, result.Certificate)
	assert.Equal(t, 2, result.Certificate.Level)
}

func TestVerifyLevelUpRejectionRetains(t *testing.T) {
	student := studentProfile("s1", 3, time.Now().UTC().AddDate(0, 1, 0))
	svc, progressions, profiles := newProgressionFixture(t, student)

	result, err := svc.VerifyLevelUp(context.Background(), "t1", LevelVerificationRequest{
		StudentID: "s1", Approved: false, TutorNotes: "needs another term",
	})
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeRetained, result.Outcome)
	assert.Equal(t, 3, profiles.profiles["s1"].MembershipLevel)
	require.Len(t, progressions.verifications, 1)
	assert.False(t, progressions.verifications[0].Approved)
	assert.Equal(t, progressions.verifications[0].FromLevel, progressions.verifications[0].ToLevel)
	assert.Nil(t, result.Certificate)
}

func TestVerifyLevelUpAtMaxLevelIsNoOp(t *testing.T) {
	student := studentProfile("s1", models.MaxMembershipLevel, time.Now().UTC().AddDate(0, 1, 0))
	svc, progressions, profiles := newProgressionFixture(t, student)

	result, err := svc.VerifyLevelUp(context.Background(), "t1", LevelVerificationRequest{
		StudentID: "s1", Approved: true,
	})
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeMaxLevel, result.Outcome)
	assert.Equal(t, models.MaxMembershipLevel, profiles.profiles["s1"].MembershipLevel)
	// No decision row and no certificate for the cap no-op.
	assert.Empty(t, progressions.verifications)
	assert.Empty(t, progressions.certificates)
}

func TestVerifyLevelUpConflictWhenLevelMoved(t *testing.T) {
	student := studentProfile("s1", 2, time.Now().UTC().AddDate(0, 1, 0))
	svc, progressions, profiles := newProgressionFixture(t, student)

	// Another reviewer lands between the read and the conditional write.
	profiles.failPromotes = 1

	_, err := svc.VerifyLevelUp(context.Background(), "t1", LevelVerificationRequest{
		StudentID: "s1", Approved: true,
	})
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	// A lost race writes no decision row and no certificate.
	assert.Empty(t, progressions.verifications)
	assert.Empty(t, progressions.certificates)
}

func TestVerifyLevelUpNonTutorForbidden(t *testing.T) {
	student := studentProfile("s1", 2, time.Now().UTC().AddDate(0, 1, 0))
	svc, _, _ := newProgressionFixture(t, student)

	_, err := svc.VerifyLevelUp(context.Background(), "s1", LevelVerificationRequest{
		StudentID: "s1", Approved: true,
	})
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestVerifyLevelUpSkipsDuplicateCertificate(t *testing.T) {
	student := studentProfile("s1", 2, time.Now().UTC().AddDate(0, 1, 0))
	svc, progressions, _ := newProgressionFixture(t, student)
	progressions.hasCert[2] = true

	result, err := svc.VerifyLevelUp(context.Background(), "t1", LevelVerificationRequest{
		StudentID: "s1", Approved: true,
	})
	require.NoError(t, err)
	assert.Equal(t, models.OutcomePromoted, result.Outcome)
	assert.Nil(t, result.Certificate)
	assert.Empty(t, progressions.certificates)
}
