package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin     UserRole = "ADMIN"
	RoleCommittee UserRole = "COMMITTEE"
	RoleTutor     UserRole = "TUTOR"
	RoleStudent   UserRole = "STUDENT"
)

// Valid reports whether the role is one of the defined roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleCommittee, RoleTutor, RoleStudent:
		return true
	}
	return false
}

// VerificationStatus tracks admin approval of committee/tutor accounts.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "PENDING"
	VerificationApproved VerificationStatus = "APPROVED"
	VerificationRejected VerificationStatus = "REJECTED"
)

// Membership level bounds. Levels only move up through tutor-approved
// progression, never through payment or grading.
const (
	MinMembershipLevel = 1
	MaxMembershipLevel = 5
)

// UserProfile represents a club member stored in the user_profiles table.
type UserProfile struct {
	ID                 string             `db:"id" json:"id"`
	Email              string             `db:"email" json:"email"`
	PasswordHash       string             `db:"password_hash" json:"-"`
	FullName           string             `db:"full_name" json:"full_name"`
	Role               UserRole           `db:"role" json:"role"`
	MembershipLevel    int                `db:"membership_level" json:"membership_level"`
	MembershipExpiry   time.Time          `db:"membership_expiry" json:"membership_expiry"`
	Verified           bool               `db:"verified" json:"verified"`
	VerificationStatus VerificationStatus `db:"verification_status" json:"verification_status"`
	AssignedClassID    *string            `db:"assigned_class_id" json:"assigned_class_id,omitempty"`
	Active             bool               `db:"active" json:"active"`
	LastLogin          *time.Time         `db:"last_login" json:"last_login,omitempty"`
	CreatedAt          time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time          `db:"updated_at" json:"updated_at"`
}

// MembershipActive reports whether the paid membership is current.
// Admin accounts never expire.
func (p *UserProfile) MembershipActive(now time.Time) bool {
	if p.Role == RoleAdmin {
		return true
	}
	return now.Before(p.MembershipExpiry)
}

// ProfileFilter captures filtering criteria for listing members.
type ProfileFilter struct {
	Role      *UserRole
	Level     *int
	Active    *bool
	Expired   *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
