package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Sumiong13/kbm-corner-api/internal/models"
	appErrors "github.com/Sumiong13/kbm-corner-api/pkg/errors"
	"github.com/Sumiong13/kbm-corner-api/pkg/export"
	"github.com/Sumiong13/kbm-corner-api/pkg/storage"
)

type reportProfileRepository interface {
	List(ctx context.Context, filter models.ProfileFilter) ([]models.UserProfile, int, error)
}

type reportPaymentRepository interface {
	List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, int, error)
	SumByMethod(ctx context.Context, from, to time.Time) (map[models.PaymentMethod]float64, error)
}

type reportAttendanceRepository interface {
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.Attendance, int, error)
}

type reportGradeRepository interface {
	List(ctx context.Context, filter models.GradeFilter) ([]models.Grade, error)
}

type reportProgressionRepository interface {
	ListAllVerifications(ctx context.Context) ([]models.LevelVerification, error)
}

type certificateLookup interface {
	FindCertificate(ctx context.Context, id string) (*models.Certificate, error)
}

type certificateProfileLookup interface {
	FindByID(ctx context.Context, id string) (*models.UserProfile, error)
}

// ExportResult describes a generated report file.
type ExportResult struct {
	ExportID  string    `json:"export_id"`
	Filename  string    `json:"filename"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
	RowCount  int       `json:"row_count"`
}

// ReportDownload aggregates resolved download data.
type ReportDownload struct {
	File     *os.File
	Filename string
}

// ReportService generates CSV exports synchronously, stores them on disk and
// hands out signed download URLs. Certificate PDFs are rendered on demand
// and never stored.
type ReportService struct {
	profiles     reportProfileRepository
	payments     reportPaymentRepository
	attendances  reportAttendanceRepository
	grades       reportGradeRepository
	progressions reportProgressionRepository
	certificates certificateLookup
	certOwners   certificateProfileLookup
	csv          *export.CSVExporter
	certPDF      *export.CertificatePDF
	store        *storage.LocalStorage
	signer       *storage.SignedURLSigner
	probe        readinessProbe
	logger       *zap.Logger
	downloadBase string
}

// NewReportService constructs a ReportService. downloadBase is the public
// path prefix signed tokens are appended to.
func NewReportService(profiles reportProfileRepository, payments reportPaymentRepository, attendances reportAttendanceRepository, grades reportGradeRepository, progressions reportProgressionRepository, certificates certificateLookup, certOwners certificateProfileLookup, csv *export.CSVExporter, certPDF *export.CertificatePDF, store *storage.LocalStorage, signer *storage.SignedURLSigner, probe readinessProbe, logger *zap.Logger, downloadBase string) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if downloadBase == "" {
		downloadBase = "/api/v1/reports/download"
	}
	return &ReportService{
		profiles:     profiles,
		payments:     payments,
		attendances:  attendances,
		grades:       grades,
		progressions: progressions,
		certificates: certificates,
		certOwners:   certOwners,
		csv:          csv,
		certPDF:      certPDF,
		store:        store,
		signer:       signer,
		probe:        probe,
		logger:       logger,
		downloadBase: downloadBase,
	}
}

// exportPageSize caps rows pulled per page while building an export.
const exportPageSize = 100

// ExportMembers produces a CSV of the member directory.
func (s *ReportService) ExportMembers(ctx context.Context, filter models.ProfileFilter) (*ExportResult, error) {
	if s.probe != nil && !s.probe.Ready(ctx) {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "exports are temporarily unavailable, please retry")
	}

	headers := []string{"email", "full_name", "role", "membership_level", "membership_expiry", "verified", "active"}
	var rows []map[string]string

	filter.PageSize = exportPageSize
	for page := 1; ; page++ {
		filter.Page = page
		members, total, err := s.profiles.List(ctx, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list members for export")
		}
		for _, m := range members {
			rows = append(rows, map[string]string{
				"email":             m.Email,
				"full_name":         m.FullName,
				"role":              string(m.Role),
				"membership_level":  strconv.Itoa(m.MembershipLevel),
				"membership_expiry": m.MembershipExpiry.Format(time.RFC3339),
				"verified":          strconv.FormatBool(m.Verified),
				"active":            strconv.FormatBool(m.Active),
			})
		}
		if page*exportPageSize >= total || len(members) == 0 {
			break
		}
	}

	return s.finishExport(ctx, "members", export.Dataset{Headers: headers, Rows: rows})
}

// ExportPayments produces a financial CSV for the period, with per-method
// totals appended as summary rows.
func (s *ReportService) ExportPayments(ctx context.Context, from, to time.Time) (*ExportResult, error) {
	if s.probe != nil && !s.probe.Ready(ctx) {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "exports are temporarily unavailable, please retry")
	}

	headers := []string{"user_id", "amount", "level", "payment_method", "reference_number", "status", "paid_at"}
	var rows []map[string]string

	filter := models.PaymentFilter{From: &from, To: &to, PageSize: exportPageSize, SortOrder: "ASC"}
	for page := 1; ; page++ {
		filter.Page = page
		payments, total, err := s.payments.List(ctx, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payments for export")
		}
		for _, p := range payments {
			rows = append(rows, map[string]string{
				"user_id":          p.UserID,
				"amount":           fmt.Sprintf("%.2f", p.Amount),
				"level":            strconv.Itoa(p.Level),
				"payment_method":   string(p.PaymentMethod),
				"reference_number": p.ReferenceNumber,
				"status":           string(p.Status),
				"paid_at":          p.PaidAt.Format(time.RFC3339),
			})
		}
		if page*exportPageSize >= total || len(payments) == 0 {
			break
		}
	}

	totals, err := s.payments.SumByMethod(ctx, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to total payments for export")
	}
	for _, method := range []models.PaymentMethod{models.PaymentMethodCash, models.PaymentMethodTransfer, models.PaymentMethodEWallet} {
		if total, ok := totals[method]; ok {
			rows = append(rows, map[string]string{
				"user_id":        "TOTAL",
				"amount":         fmt.Sprintf("%.2f", total),
				"payment_method": string(method),
			})
		}
	}

	return s.finishExport(ctx, "payments", export.Dataset{Headers: headers, Rows: rows})
}

// ExportAttendance produces a CSV of check-in records.
func (s *ReportService) ExportAttendance(ctx context.Context, filter models.AttendanceFilter) (*ExportResult, error) {
	if s.probe != nil && !s.probe.Ready(ctx) {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "exports are temporarily unavailable, please retry")
	}

	headers := []string{"user_id", "type", "event_id", "class_name", "session_code", "checked_in_at"}
	var rows []map[string]string

	filter.PageSize = exportPageSize
	for page := 1; ; page++ {
		filter.Page = page
		records, total, err := s.attendances.List(ctx, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance for export")
		}
		for _, a := range records {
			row := map[string]string{
				"user_id":       a.UserID,
				"type":          string(a.Type),
				"session_code":  a.SessionCode,
				"checked_in_at": a.CheckedInAt.Format(time.RFC3339),
			}
			if a.EventID != nil {
				row["event_id"] = *a.EventID
			}
			if a.ClassName != nil {
				row["class_name"] = *a.ClassName
			}
			rows = append(rows, row)
		}
		if page*exportPageSize >= total || len(records) == 0 {
			break
		}
	}

	return s.finishExport(ctx, "attendance", export.Dataset{Headers: headers, Rows: rows})
}

// ExportGrades produces a CSV of grade records.
func (s *ReportService) ExportGrades(ctx context.Context, filter models.GradeFilter) (*ExportResult, error) {
	if s.probe != nil && !s.probe.Ready(ctx) {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "exports are temporarily unavailable, please retry")
	}

	headers := []string{"student_id", "tutor_id", "assessment_type", "grade", "level", "comments", "graded_at"}

	grades, err := s.grades.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grades for export")
	}

	rows := make([]map[string]string, 0, len(grades))
	for _, g := range grades {
		rows = append(rows, map[string]string{
			"student_id":      g.StudentID,
			"tutor_id":        g.TutorID,
			"assessment_type": string(g.AssessmentType),
			"grade":           fmt.Sprintf("%.2f", g.Grade),
			"level":           strconv.Itoa(g.Level),
			"comments":        g.Comments,
			"graded_at":       g.GradedAt.Format(time.RFC3339),
		})
	}

	return s.finishExport(ctx, "grades", export.Dataset{Headers: headers, Rows: rows})
}

// ExportProgressions produces a CSV of every level review decision.
func (s *ReportService) ExportProgressions(ctx context.Context) (*ExportResult, error) {
	if s.probe != nil && !s.probe.Ready(ctx) {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "exports are temporarily unavailable, please retry")
	}

	headers := []string{"student_id", "from_level", "to_level", "approved", "tutor_id", "tutor_notes", "verified_at"}

	verifications, err := s.progressions.ListAllVerifications(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list level verifications for export")
	}

	rows := make([]map[string]string, 0, len(verifications))
	for _, v := range verifications {
		rows = append(rows, map[string]string{
			"student_id":  v.StudentID,
			"from_level":  strconv.Itoa(v.FromLevel),
			"to_level":    strconv.Itoa(v.ToLevel),
			"approved":    strconv.FormatBool(v.Approved),
			"tutor_id":    v.TutorID,
			"tutor_notes": v.TutorNotes,
			"verified_at": v.VerifiedAt.Format(time.RFC3339),
		})
	}

	return s.finishExport(ctx, "progressions", export.Dataset{Headers: headers, Rows: rows})
}

// RenderCertificate produces the PDF bytes for one certificate.
func (s *ReportService) RenderCertificate(ctx context.Context, certificateID string) ([]byte, string, error) {
	cert, err := s.certificates.FindCertificate(ctx, certificateID)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "certificate not found")
	}
	owner, err := s.certOwners.FindByID(ctx, cert.StudentID)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load certificate owner")
	}

	pdf, err := s.certPDF.Render(export.CertificateData{
		MemberName:  owner.FullName,
		Level:       cert.Level,
		Title:       cert.Title,
		Description: cert.Description,
		IssuedAt:    cert.IssuedAt,
	})
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render certificate")
	}

	filename := fmt.Sprintf("certificate-level-%d-%s.pdf", cert.Level, cert.ID)
	return pdf, filename, nil
}

// ResolveDownload validates a signed token and opens the stored export file.
func (s *ReportService) ResolveDownload(token string) (*ReportDownload, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	file, err := s.store.Open(relPath)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export file no longer exists")
	}
	return &ReportDownload{File: file, Filename: filepath.Base(relPath)}, nil
}

// Cleanup deletes export files older than the TTL.
func (s *ReportService) Cleanup(ttl time.Duration) {
	deleted, err := s.store.CleanupOlderThan(ttl)
	if err != nil {
		s.logger.Warn("export cleanup failed", zap.Error(err))
		return
	}
	if len(deleted) > 0 {
		s.logger.Info("expired exports removed", zap.Int("count", len(deleted)))
	}
}

func (s *ReportService) finishExport(ctx context.Context, kind string, dataset export.Dataset) (*ExportResult, error) {
	payload, err := s.csv.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	exportID := uuid.NewString()
	filename := fmt.Sprintf("%s-%s-%s.csv", kind, time.Now().UTC().Format("20060102-150405"), exportID[:8])
	relPath, err := s.store.Save(filename, payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}

	token, expiresAt, err := s.signer.Generate(exportID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export url")
	}

	s.logger.Info("export generated",
		zap.String("kind", kind),
		zap.String("export_id", exportID),
		zap.Int("rows", len(dataset.Rows)))

	return &ExportResult{
		ExportID:  exportID,
		Filename:  filename,
		URL:       fmt.Sprintf("%s/%s", s.downloadBase, token),
		ExpiresAt: expiresAt,
		RowCount:  len(dataset.Rows),
	}, nil
}
