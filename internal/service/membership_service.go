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
	"github.com/Sumiong13/kbm-corner-api/pkg/config"
	appErrors "github.com/Sumiong13/kbm-corner-api/pkg/errors"
)

// readinessProbe gates write workflows on database availability. Write paths
// never fall back to the cache tier; they fail fast with a retryable status.
type readinessProbe interface {
	Ready(ctx context.Context) bool
}

type membershipProfileRepository interface {
	FindByID(ctx context.Context, id string) (*models.UserProfile, error)
	ExtendExpiry(ctx context.Context, id string, newExpiry, expected time.Time) (bool, error)
	PromoteLevel(ctx context.Context, id string, fromLevel, toLevel int) (bool, error)
	ResetMemberships(ctx context.Context, expiredAt time.Time) (int64, error)
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type membershipPaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, int, error)
}

// PaymentRequest records one membership fee transaction.
type PaymentRequest struct {
	UserID          string  `json:"user_id" validate:"required"`
	Amount          float64 `json:"amount" validate:"required,gt=0"`
	PaymentMethod   string  `json:"payment_method" validate:"required"`
	ReferenceNumber string  `json:"reference_number"`
}

// MembershipService implements the paid membership lifecycle: recording
// payments, extending expiry and the start-of-term reset.
type MembershipService struct {
	profiles  membershipProfileRepository
	payments  membershipPaymentRepository
	probe     readinessProbe
	validator *validator.Validate
	logger    *zap.Logger
	cfg       config.MembershipConfig
}

// NewMembershipService constructs a MembershipService.
func NewMembershipService(profiles membershipProfileRepository, payments membershipPaymentRepository, probe readinessProbe, validate *validator.Validate, logger *zap.Logger, cfg config.MembershipConfig) *MembershipService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &MembershipService{profiles: profiles, payments: payments, probe: probe, validator: validate, logger: logger, cfg: cfg}
}

// expiryCASAttempts bounds the retry loop when two payments for the same
// member race on the expiry column.
const expiryCASAttempts = 3

// RecordPayment records a payment on behalf of a member. Used by committee
// and admin staff for cash collected at the desk.
func (s *MembershipService) RecordPayment(ctx context.Context, actorID string, req PaymentRequest) (*models.PaymentReceipt, error) {
	return s.applyPayment(ctx, actorID, req)
}

// ProcessPayment records a self-service payment by the member themselves.
// The target user is forced to the caller regardless of the payload.
func (s *MembershipService) ProcessPayment(ctx context.Context, callerID string, req PaymentRequest) (*models.PaymentReceipt, error) {
	req.UserID = callerID
	return s.applyPayment(ctx, callerID, req)
}

func (s *MembershipService) applyPayment(ctx context.Context, actorID string, req PaymentRequest) (*models.PaymentReceipt, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}

	method := models.PaymentMethod(req.PaymentMethod)
	if !method.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown payment method")
	}

	if s.probe != nil && !s.probe.Ready(ctx) {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "payments are temporarily unavailable, please retry")
	}

	var profile *models.UserProfile
	var newExpiry time.Time

	// Expiry extension is additive from whichever is later, now or the
	// current expiry. A member renewing early keeps their remaining time.
	for attempt := 0; attempt < expiryCASAttempts; attempt++ {
		var err error
		profile, err = s.profiles.FindByID(ctx, req.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				if actorID == req.UserID {
					return nil, appErrors.ErrProfileNotFound
				}
				return nil, appErrors.Clone(appErrors.ErrNotFound, "member not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load member")
		}

		now := time.Now().UTC()
		base := now
		if profile.MembershipExpiry.After(now) {
			base = profile.MembershipExpiry
		}
		newExpiry = base.AddDate(0, config.MembershipPeriodMonths, 0)

		updated, err := s.profiles.ExtendExpiry(ctx, profile.ID, newExpiry, profile.MembershipExpiry)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to extend membership")
		}
		if updated {
			break
		}
		if attempt == expiryCASAttempts-1 {
			return nil, appErrors.Clone(appErrors.ErrConflict, "membership was updated concurrently, please retry")
		}
	}

	payment := &models.Payment{
		UserID:          profile.ID,
		Amount:          req.Amount,
		Level:           profile.MembershipLevel,
		PaymentMethod:   method,
		ReferenceNumber: req.ReferenceNumber,
		Status:          models.PaymentStatusConfirmed,
		PaidAt:          time.Now().UTC(),
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record payment")
	}

	newLevel := profile.MembershipLevel
	if s.cfg.PaymentAdvancesLevel && profile.MembershipLevel < models.MaxMembershipLevel {
		promoted, err := s.profiles.PromoteLevel(ctx, profile.ID, profile.MembershipLevel, profile.MembershipLevel+1)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to advance level")
		}
		if promoted {
			newLevel = profile.MembershipLevel + 1
		} else {
			s.logger.Warn("level changed concurrently during payment, skipping advance",
				zap.String("user_id", profile.ID))
		}
	}

	if err := s.profiles.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     models.AuditActionPaymentRecord,
		Resource:   "payment",
		ResourceID: &payment.ID,
		NewValues:  []byte(fmt.Sprintf(`{"user_id":%q,"amount":%.2f,"method":%q}`, profile.ID, req.Amount, method)),
	}); err != nil {
		s.logger.Warn("failed to record payment audit log", zap.Error(err))
	}

	s.logger.Info("payment recorded",
		zap.String("user_id", profile.ID),
		zap.Float64("amount", req.Amount),
		zap.Time("new_expiry", newExpiry))

	return &models.PaymentReceipt{
		Payment:   *payment,
		NewExpiry: newExpiry,
		NewLevel:  newLevel,
	}, nil
}

// ListPayments returns payment history matching the filter.
func (s *MembershipService) ListPayments(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, int, error) {
	payments, total, err := s.payments.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payments")
	}
	return payments, total, nil
}

// ResetAllMemberships expires every non-admin membership at the start of a
// term. Members keep their level and history; only the expiry moves.
func (s *MembershipService) ResetAllMemberships(ctx context.Context, actorID string) (int64, error) {
	if s.probe != nil && !s.probe.Ready(ctx) {
		return 0, appErrors.Clone(appErrors.ErrUnavailable, "reset is temporarily unavailable, please retry")
	}

	affected, err := s.profiles.ResetMemberships(ctx, time.Now().UTC())
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset memberships")
	}

	if err := s.profiles.CreateAuditLog(ctx, &models.AuditLog{
		UserID:    &actorID,
		Action:    models.AuditActionMembershipReset,
		Resource:  "membership",
		NewValues: []byte(fmt.Sprintf(`{"affected":%d}`, affected)),
	}); err != nil {
		s.logger.Warn("failed to record reset audit log", zap.Error(err))
	}

	s.logger.Info("memberships reset", zap.Int64("affected", affected), zap.String("actor_id", actorID))
	return affected, nil
}
