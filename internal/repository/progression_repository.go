package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Sumiong13/kbm-corner-api/internal/models"
)

// ProgressionRepository provides database access for level verification
// decisions and certificates.
type ProgressionRepository struct {
	db *sqlx.DB
}

// NewProgressionRepository creates a new instance of ProgressionRepository.
func NewProgressionRepository(db *sqlx.DB) *ProgressionRepository {
	return &ProgressionRepository{db: db}
}

// CreateVerification inserts a level verification decision record.
func (r *ProgressionRepository) CreateVerification(ctx context.Context, v *models.LevelVerification) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.VerifiedAt.IsZero() {
		v.VerifiedAt = time.Now().UTC()
	}
	const query = `INSERT INTO level_verifications (id, student_id, from_level, to_level, approved, tutor_id, tutor_notes, verified_at)
        VALUES (:id, :student_id, :from_level, :to_level, :approved, :tutor_id, :tutor_notes, :verified_at)`
	if _, err := r.db.NamedExecContext(ctx, query, v); err != nil {
		return fmt.Errorf("create level verification: %w", err)
	}
	return nil
}

// ListVerifications returns a student's review history, newest first.
func (r *ProgressionRepository) ListVerifications(ctx context.Context, studentID string) ([]models.LevelVerification, error) {
	const query = `SELECT id, student_id, from_level, to_level, approved, tutor_id, tutor_notes, verified_at FROM level_verifications WHERE student_id = $1 ORDER BY verified_at DESC`
	var verifications []models.LevelVerification
	if err := r.db.SelectContext(ctx, &verifications, query, studentID); err != nil {
		return nil, fmt.Errorf("list level verifications: %w", err)
	}
	return verifications, nil
}

// ListAllVerifications returns every review decision, newest first. Used by
// the reporting exports.
func (r *ProgressionRepository) ListAllVerifications(ctx context.Context) ([]models.LevelVerification, error) {
	const query = `SELECT id, student_id, from_level, to_level, approved, tutor_id, tutor_notes, verified_at FROM level_verifications ORDER BY verified_at DESC`
	var verifications []models.LevelVerification
	if err := r.db.SelectContext(ctx, &verifications, query); err != nil {
		return nil, fmt.Errorf("list level verifications: %w", err)
	}
	return verifications, nil
}

// CreateCertificate inserts a certificate record.
func (r *ProgressionRepository) CreateCertificate(ctx context.Context, cert *models.Certificate) error {
	if cert.ID == "" {
		cert.ID = uuid.NewString()
	}
	if cert.IssuedAt.IsZero() {
		cert.IssuedAt = time.Now().UTC()
	}
	const query = `INSERT INTO certificates (id, student_id, level, title, description, issued_at)
        VALUES (:id, :student_id, :level, :title, :description, :issued_at)`
	if _, err := r.db.NamedExecContext(ctx, query, cert); err != nil {
		return fmt.Errorf("create certificate: %w", err)
	}
	return nil
}

// FindCertificate returns a certificate by identifier.
func (r *ProgressionRepository) FindCertificate(ctx context.Context, id string) (*models.Certificate, error) {
	const query = `SELECT id, student_id, level, title, description, issued_at FROM certificates WHERE id = $1 LIMIT 1`
	var cert models.Certificate
	if err := r.db.GetContext(ctx, &cert, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find certificate: %w", err)
	}
	return &cert, nil
}

// ListCertificates returns a student's certificates, lowest level first.
func (r *ProgressionRepository) ListCertificates(ctx context.Context, studentID string) ([]models.Certificate, error) {
	const query = `SELECT id, student_id, level, title, description, issued_at FROM certificates WHERE student_id = $1 ORDER BY level ASC`
	var certs []models.Certificate
	if err := r.db.SelectContext(ctx, &certs, query, studentID); err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	return certs, nil
}

// HasCertificateForLevel reports whether a certificate for the level was
// already issued to the student. Guards against duplicate awards on retried
// approvals.
func (r *ProgressionRepository) HasCertificateForLevel(ctx context.Context, studentID string, level int) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM certificates WHERE student_id = $1 AND level = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, studentID, level); err != nil {
		return false, fmt.Errorf("check certificate: %w", err)
	}
	return exists, nil
}
