package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumiong13/kbm-corner-api/internal/models"
	"github.com/Sumiong13/kbm-corner-api/pkg/config"
	appErrors "github.com/Sumiong13/kbm-corner-api/pkg/errors"
)

type fakeProbe struct {
	ready bool
}

func (p *fakeProbe) Ready(context.Context) bool { return p.ready }

type fakeProfileStore struct {
	profiles     map[string]*models.UserProfile
	extendCalls  int
	failExtends  int
	resetCount   int64
	promoteCalls int
	failPromotes int
	auditLogs    []models.AuditLog
}

func newFakeProfileStore(profiles ...*models.UserProfile) *fakeProfileStore {
	store := &fakeProfileStore{profiles: map[string]*models.UserProfile{}}
	for _, p := range profiles {
		store.profiles[p.ID] = p
	}
	return store
}

func (s *fakeProfileStore) FindByID(_ context.Context, id string) (*models.UserProfile, error) {
	if p, ok := s.profiles[id]; ok {
		copy := *p
		return &copy, nil
	}
	return nil, errNoRows()
}

func (s *fakeProfileStore) ExtendExpiry(_ context.Context, id string, newExpiry, expected time.Time) (bool, error) {
	s.extendCalls++
	if s.failExtends > 0 {
		s.failExtends--
		// Simulate a concurrent writer landing between read and write.
		s.profiles[id].MembershipExpiry = s.profiles[id].MembershipExpiry.Add(time.Minute)
		return false, nil
	}
	p, ok := s.profiles[id]
	if !ok || !p.MembershipExpiry.Equal(expected) {
		return false, nil
	}
	p.MembershipExpiry = newExpiry
	return true, nil
}

func (s *fakeProfileStore) PromoteLevel(_ context.Context, id string, fromLevel, toLevel int) (bool, error) {
	s.promoteCalls++
	if s.failPromotes > 0 {
		s.failPromotes--
		return false, nil
	}
	p, ok := s.profiles[id]
	if !ok || p.MembershipLevel != fromLevel {
		return false, nil
	}
	p.MembershipLevel = toLevel
	return true, nil
}

func (s *fakeProfileStore) ResetMemberships(_ context.Context, expiredAt time.Time) (int64, error) {
	for _, p := range s.profiles {
		if p.Role != models.RoleAdmin {
			p.MembershipExpiry = expiredAt
			s.resetCount++
		}
	}
	return s.resetCount, nil
}

func (s *fakeProfileStore) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	s.auditLogs = append(s.auditLogs, *log)
	return nil
}

type fakePaymentStore struct {
	created []models.Payment
}

func (s *fakePaymentStore) Create(_ context.Context, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = "pay-1"
	}
	s.created = append(s.created, *payment)
	return nil
}

func (s *fakePaymentStore) List(context.Context, models.PaymentFilter) ([]models.Payment, int, error) {
	return s.created, len(s.created), nil
}

func studentProfile(id string, level int, expiry time.Time) *models.UserProfile {
	return &models.UserProfile{
		ID:                 id,
		Email:              id + "@example.com",
		FullName:           "Student " + id,
		Role:               models.RoleStudent,
		MembershipLevel:    level,
		MembershipExpiry:   expiry,
		Verified:           true,
		VerificationStatus: models.VerificationApproved,
		Active:             true,
	}
}

func TestPaymentExtendsExpiredMembershipFromNow(t *testing.T) {
	expired := time.Now().UTC().Add(-30 * 24 * time.Hour)
	profiles := newFakeProfileStore(studentProfile("s1", 2, expired))
	payments := &fakePaymentStore{}
	svc := NewMembershipService(profiles, payments, &fakeProbe{ready: true}, nil, nil, config.MembershipConfig{})

	receipt, err := svc.RecordPayment(context.Background(), "admin-1", PaymentRequest{
		UserID:        "s1",
		Amount:        50000,
		PaymentMethod: string(models.PaymentMethodCash),
	})
	require.NoError(t, err)

	// Expired membership extends from now, not from the old expiry.
	expectedLow := time.Now().UTC().AddDate(0, 4, 0).Add(-time.Minute)
	expectedHigh := time.Now().UTC().AddDate(0, 4, 0).Add(time.Minute)
	assert.True(t, receipt.NewExpiry.After(expectedLow) && receipt.NewExpiry.Before(expectedHigh))
	assert.Equal(t, 2, receipt.NewLevel)
	require.Len(t, payments.created, 1)
	assert.Equal(t, 2, payments.created[0].Level)
	assert.Equal(t, models.PaymentStatusConfirmed, payments.created[0].Status)
}

func TestPaymentStacksOnActiveMembership(t *testing.T) {
	active := time.Now().UTC().AddDate(0, 2, 0)
	profiles := newFakeProfileStore(studentProfile("s1", 1, active))
	svc := NewMembershipService(profiles, &fakePaymentStore{}, &fakeProbe{ready: true}, nil, nil, config.MembershipConfig{})

	receipt, err := svc.ProcessPayment(context.Background(), "s1", PaymentRequest{
		Amount:        50000,
		PaymentMethod: string(models.PaymentMethodEWallet),
	})
	require.NoError(t, err)

	// Early renewal keeps the remaining two months.
	assert.True(t, receipt.NewExpiry.Equal(active.AddDate(0, 4, 0)))
}

func TestPaymentAdvancesLevelFlag(t *testing.T) {
	t.Run("disabled leaves level unchanged", func(t *testing.T) {
		profiles := newFakeProfileStore(studentProfile("s1", 3, time.Now().UTC()))
		svc := NewMembershipService(profiles, &fakePaymentStore{}, &fakeProbe{ready: true}, nil, nil, config.MembershipConfig{PaymentAdvancesLevel: false})

		receipt, err := svc.RecordPayment(context.Background(), "admin-1", PaymentRequest{
			UserID: "s1", Amount: 50000, PaymentMethod: string(models.PaymentMethodCash),
		})
		require.NoError(t, err)
		assert.Equal(t, 3, receipt.NewLevel)
		assert.Equal(t, 0, profiles.promoteCalls)
	})

	t.Run("enabled bumps one level below the cap", func(t *testing.T) {
		profiles := newFakeProfileStore(studentProfile("s1", 3, time.Now().UTC()))
		svc := NewMembershipService(profiles, &fakePaymentStore{}, &fakeProbe{ready: true}, nil, nil, config.MembershipConfig{PaymentAdvancesLevel: true})

		receipt, err := svc.RecordPayment(context.Background(), "admin-1", PaymentRequest{
			UserID: "s1", Amount: 50000, PaymentMethod: string(models.PaymentMethodCash),
		})
		require.NoError(t, err)
		assert.Equal(t, 4, receipt.NewLevel)
		assert.Equal(t, 4, profiles.profiles["s1"].MembershipLevel)
	})

	t.Run("enabled never passes the cap", func(t *testing.T) {
		profiles := newFakeProfileStore(studentProfile("s1", models.MaxMembershipLevel, time.Now().UTC()))
		svc := NewMembershipService(profiles, &fakePaymentStore{}, &fakeProbe{ready: true}, nil, nil, config.MembershipConfig{PaymentAdvancesLevel: true})

		receipt, err := svc.RecordPayment(context.Background(), "admin-1", PaymentRequest{
			UserID: "s1", Amount: 50000, PaymentMethod: string(models.PaymentMethodCash),
		})
		require.NoError(t, err)
		assert.Equal(t, models.MaxMembershipLevel, receipt.NewLevel)
		assert.Equal(t, 0, profiles.promoteCalls)
	})
}

func TestPaymentRetriesOnExpiryRace(t *testing.T) {
	profiles := newFakeProfileStore(studentProfile("s1", 1, time.Now().UTC()))
	profiles.failExtends = 1
	svc := NewMembershipService(profiles, &fakePaymentStore{}, &fakeProbe{ready: true}, nil, nil, config.MembershipConfig{})

	_, err := svc.RecordPayment(context.Background(), "admin-1", PaymentRequest{
		UserID: "s1", Amount: 50000, PaymentMethod: string(models.PaymentMethodCash),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, profiles.extendCalls)
}

func TestPaymentConflictAfterExhaustedRetries(t *testing.T) {
	profiles := newFakeProfileStore(studentProfile("s1", 1, time.Now().UTC()))
	profiles.failExtends = expiryCASAttempts
	svc := NewMembershipService(profiles, &fakePaymentStore{}, &fakeProbe{ready: true}, nil, nil, config.MembershipConfig{})

	_, err := svc.RecordPayment(context.Background(), "admin-1", PaymentRequest{
		UserID: "s1", Amount: 50000, PaymentMethod: string(models.PaymentMethodCash),
	})
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestPaymentUnavailableWhenDatabaseDown(t *testing.T) {
	profiles := newFakeProfileStore(studentProfile("s1", 1, time.Now().UTC()))
	svc := NewMembershipService(profiles, &fakePaymentStore{}, &fakeProbe{ready: false}, nil, nil, config.MembershipConfig{})

	_, err := svc.RecordPayment(context.Background(), "admin-1", PaymentRequest{
		UserID: "s1", Amount: 50000, PaymentMethod: string(models.PaymentMethodCash),
	})
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrUnavailable.Code, appErr.Code)
	assert.Equal(t, 0, profiles.extendCalls)
}

func TestPaymentRejectsUnknownMethod(t *testing.T) {
	profiles := newFakeProfileStore(studentProfile("s1", 1, time.Now().UTC()))
	svc := NewMembershipService(profiles, &fakePaymentStore{}, &fakeProbe{ready: true}, nil, nil, config.MembershipConfig{})

	_, err := svc.RecordPayment(context.Background(), "admin-1", PaymentRequest{
		UserID: "s1", Amount: 50000, PaymentMethod: "CRYPTO",
	})
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestResetAllMembershipsSkipsAdmins(t *testing.T) {
	admin := studentProfile("a1", 1, time.Now().UTC().AddDate(1, 0, 0))
	admin.Role = models.RoleAdmin
	profiles := newFakeProfileStore(
		studentProfile("s1", 1, time.Now().UTC().AddDate(0, 3, 0)),
		studentProfile("s2", 4, time.Now().UTC().AddDate(0, 1, 0)),
		admin,
	)
	svc := NewMembershipService(profiles, &fakePaymentStore{}, &fakeProbe{ready: true}, nil, nil, config.MembershipConfig{})

	affected, err := svc.ResetAllMemberships(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)
	assert.True(t, profiles.profiles["a1"].MembershipExpiry.After(time.Now()))
	assert.False(t, profiles.profiles["s1"].MembershipExpiry.After(time.Now()))
}
