package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Sumiong13/kbm-corner-api/internal/models"
	appErrors "github.com/Sumiong13/kbm-corner-api/pkg/errors"
)

type authzProfileRepository interface {
	FindByID(ctx context.Context, id string) (*models.UserProfile, error)
}

// Authorizer is the single policy point for workflow entry checks. It always
// fetches the profile fresh from the store: the role claim baked into a JWT
// may be hours stale, and a demoted or deactivated account must lose access
// immediately, not at token expiry.
type Authorizer struct {
	repo authzProfileRepository
}

// NewAuthorizer constructs an Authorizer.
func NewAuthorizer(repo authzProfileRepository) *Authorizer {
	return &Authorizer{repo: repo}
}

// Require loads the caller's profile and checks it is active, verified and
// holds one of the allowed roles. It returns the fresh profile so callers can
// reuse it without a second fetch.
func (a *Authorizer) Require(ctx context.Context, userID string, roles ...models.UserRole) (*models.UserProfile, error) {
	profile, err := a.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrProfileNotFound, "profile not found, please sign in again")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load profile")
	}

	if !profile.Active {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "account is inactive")
	}
	if !profile.Verified {
		return nil, appErrors.Clone(appErrors.ErrUnverifiedAccount, "account is awaiting admin verification")
	}

	if len(roles) == 0 {
		return profile, nil
	}
	for _, role := range roles {
		if profile.Role == role {
			return profile, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrForbidden, "role is not allowed to perform this action")
}
