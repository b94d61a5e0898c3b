package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Sumiong13/kbm-corner-api/internal/models"
)

const profileColumns = `id, email, password_hash, full_name, role, membership_level, membership_expiry, verified, verification_status, assigned_class_id, active, last_login, created_at, updated_at`

// ProfileRepository provides database access for member profiles, refresh
// tokens and the audit trail.
type ProfileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository creates a new instance of ProfileRepository.
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// FindByEmail returns a profile by email address.
func (r *ProfileRepository) FindByEmail(ctx context.Context, email string) (*models.UserProfile, error) {
	query := fmt.Sprintf(`SELECT %s FROM user_profiles WHERE email = $1 LIMIT 1`, profileColumns)
	var profile models.UserProfile
	if err := r.db.GetContext(ctx, &profile, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find profile by email: %w", err)
	}
	return &profile, nil
}

// FindByID returns a profile by identifier.
func (r *ProfileRepository) FindByID(ctx context.Context, id string) (*models.UserProfile, error) {
	query := fmt.Sprintf(`SELECT %s FROM user_profiles WHERE id = $1 LIMIT 1`, profileColumns)
	var profile models.UserProfile
	if err := r.db.GetContext(ctx, &profile, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find profile by id: %w", err)
	}
	return &profile, nil
}

// Create inserts a new profile.
func (r *ProfileRepository) Create(ctx context.Context, profile *models.UserProfile) error {
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now

	const query = `INSERT INTO user_profiles (id, email, password_hash, full_name, role, membership_level, membership_expiry, verified, verification_status, assigned_class_id, active, created_at, updated_at)
        VALUES (:id, :email, :password_hash, :full_name, :role, :membership_level, :membership_expiry, :verified, :verification_status, :assigned_class_id, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}

// List returns profiles based on filters with total count.
func (r *ProfileRepository) List(ctx context.Context, filter models.ProfileFilter) ([]models.UserProfile, int, error) {
	baseQuery := `FROM user_profiles WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Role != nil {
		conditions = append(conditions, fmt.Sprintf("role = $%d", len(args)+1))
		args = append(args, *filter.Role)
	}
	if filter.Level != nil {
		conditions = append(conditions, fmt.Sprintf("membership_level = $%d", len(args)+1))
		args = append(args, *filter.Level)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Expired != nil {
		op := "<"
		if !*filter.Expired {
			op = ">="
		}
		conditions = append(conditions, fmt.Sprintf("membership_expiry %s $%d", op, len(args)+1))
		args = append(args, time.Now().UTC())
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(email) LIKE $%d OR LOWER(full_name) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"email":             true,
		"full_name":         true,
		"membership_level":  true,
		"membership_expiry": true,
		"created_at":        true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "created_at"
	}

	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", profileColumns, baseQuery, sortBy, sortOrder, pageSize, offset)

	var profiles []models.UserProfile
	if err := r.db.SelectContext(ctx, &profiles, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list profiles: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count profiles: %w", err)
	}

	return profiles, total, nil
}

// UpdateLastLogin updates the last_login timestamp for a profile.
func (r *ProfileRepository) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	const query = `UPDATE user_profiles SET last_login = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, ts, ts); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

// UpdatePassword replaces the stored password hash.
func (r *ProfileRepository) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	const query = `UPDATE user_profiles SET password_hash = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, passwordHash, updatedAt); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// SetVerification records the admin decision on a committee/tutor account.
func (r *ProfileRepository) SetVerification(ctx context.Context, id string, status models.VerificationStatus, verified bool) error {
	const query = `UPDATE user_profiles SET verification_status = $2, verified = $3, updated_at = $4 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, status, verified, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set verification: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// AssignClass links a tutor profile to a class. Passing nil clears the link.
func (r *ProfileRepository) AssignClass(ctx context.Context, id string, classID *string) error {
	const query = `UPDATE user_profiles SET assigned_class_id = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, classID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("assign class: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ExtendExpiry conditionally replaces the membership expiry. The update only
// applies when the stored expiry still equals expected, which makes concurrent
// payment recording safe; the returned bool reports whether the row changed.
func (r *ProfileRepository) ExtendExpiry(ctx context.Context, id string, newExpiry, expected time.Time) (bool, error) {
	const query = `UPDATE user_profiles SET membership_expiry = $2, updated_at = $3 WHERE id = $1 AND membership_expiry = $4`
	res, err := r.db.ExecContext(ctx, query, id, newExpiry, time.Now().UTC(), expected)
	if err != nil {
		return false, fmt.Errorf("extend expiry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("extend expiry result: %w", err)
	}
	return affected == 1, nil
}

// PromoteLevel conditionally raises the membership level. The update only
// applies when the stored level still equals fromLevel, so two concurrent
// tutor approvals cannot both promote the same student.
func (r *ProfileRepository) PromoteLevel(ctx context.Context, id string, fromLevel, toLevel int) (bool, error) {
	const query = `UPDATE user_profiles SET membership_level = $2, updated_at = $3 WHERE id = $1 AND membership_level = $4`
	res, err := r.db.ExecContext(ctx, query, id, toLevel, time.Now().UTC(), fromLevel)
	if err != nil {
		return false, fmt.Errorf("promote level: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("promote level result: %w", err)
	}
	return affected == 1, nil
}

// ResetMemberships expires every non-admin membership and returns the number
// of affected rows. Admin accounts are excluded by the WHERE clause, not by
// caller-side filtering.
func (r *ProfileRepository) ResetMemberships(ctx context.Context, expiredAt time.Time) (int64, error) {
	const query = `UPDATE user_profiles SET membership_expiry = $1, updated_at = $2 WHERE role <> $3`
	res, err := r.db.ExecContext(ctx, query, expiredAt, time.Now().UTC(), models.RoleAdmin)
	if err != nil {
		return 0, fmt.Errorf("reset memberships: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reset memberships result: %w", err)
	}
	return affected, nil
}

// CreateRefreshToken persists a refresh token entry.
func (r *ProfileRepository) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO refresh_tokens (id, user_id, token, expires_at, created_at, revoked, revoked_at, ip_address, user_agent) VALUES (:id, :user_id, :token, :expires_at, :created_at, :revoked, :revoked_at, :ip_address, :user_agent)`
	if _, err := r.db.NamedExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}
	return nil
}

// FindRefreshToken returns a refresh token by token string.
func (r *ProfileRepository) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	const query = `SELECT id, user_id, token, expires_at, created_at, revoked, revoked_at, ip_address, user_agent FROM refresh_tokens WHERE token = $1 LIMIT 1`
	var rt models.RefreshToken
	if err := r.db.GetContext(ctx, &rt, query, token); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	return &rt, nil
}

// RevokeRefreshToken marks a token as revoked.
func (r *ProfileRepository) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	const query = `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, revokedAt); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// RevokeUserRefreshTokens revokes all refresh tokens for a user.
func (r *ProfileRepository) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	const query = `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE user_id = $1 AND revoked = FALSE`
	if _, err := r.db.ExecContext(ctx, query, userID, time.Now().UTC()); err != nil {
		return fmt.Errorf("revoke user refresh tokens: %w", err)
	}
	return nil
}

// CreateAuditLog stores an audit log entry.
func (r *ProfileRepository) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_logs (id, user_id, action, resource, resource_id, old_values, new_values, ip_address, user_agent, created_at) VALUES (:id, :user_id, :action, :resource, :resource_id, :old_values, :new_values, :ip_address, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}
