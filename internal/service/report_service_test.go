package service

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumiong13/kbm-corner-api/internal/models"
	appErrors "github.com/Sumiong13/kbm-corner-api/pkg/errors"
	"github.com/Sumiong13/kbm-corner-api/pkg/export"
	"github.com/Sumiong13/kbm-corner-api/pkg/storage"
)

type fakeReportPayments struct {
	payments []models.Payment
	totals   map[models.PaymentMethod]float64
}

func (f *fakeReportPayments) List(_ context.Context, filter models.PaymentFilter) ([]models.Payment, int, error) {
	if filter.Page > 1 {
		return nil, len(f.payments), nil
	}
	return f.payments, len(f.payments), nil
}

func (f *fakeReportPayments) SumByMethod(context.Context, time.Time, time.Time) (map[models.PaymentMethod]float64, error) {
	return f.totals, nil
}

type fakeReportGrades struct {
	grades []models.Grade
}

func (f *fakeReportGrades) List(context.Context, models.GradeFilter) ([]models.Grade, error) {
	return f.grades, nil
}

type emptyReportProfiles struct{}

func (emptyReportProfiles) List(context.Context, models.ProfileFilter) ([]models.UserProfile, int, error) {
	return nil, 0, nil
}

type emptyReportAttendance struct{}

func (emptyReportAttendance) List(context.Context, models.AttendanceFilter) ([]models.Attendance, int, error) {
	return nil, 0, nil
}

type emptyReportProgressions struct{}

func (emptyReportProgressions) ListAllVerifications(context.Context) ([]models.LevelVerification, error) {
	return nil, nil
}

func newReportFixture(t *testing.T, payments *fakeReportPayments, grades *fakeReportGrades, probe *fakeProbe) *ReportService {
	t.Helper()

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)

	return NewReportService(
		emptyReportProfiles{}, payments, emptyReportAttendance{}, grades, emptyReportProgressions{},
		nil, nil,
		export.NewCSVExporter(), export.NewCertificatePDF("Test Club"),
		store, signer, probe, nil, "/api/v1/reports/download")
}

func TestExportPaymentsIncludesMethodTotals(t *testing.T) {
	payments := &fakeReportPayments{
		payments: []models.Payment{
			{UserID: "u1", Amount: 50, Level: 2, PaymentMethod: models.PaymentMethodCash, Status: models.PaymentStatusConfirmed, PaidAt: time.Now().UTC()},
			{UserID: "u2", Amount: 75, Level: 1, PaymentMethod: models.PaymentMethodTransfer, Status: models.PaymentStatusConfirmed, PaidAt: time.Now().UTC()},
		},
		totals: map[models.PaymentMethod]float64{
			models.PaymentMethodCash:     50,
			models.PaymentMethodTransfer: 75,
		},
	}
	svc := newReportFixture(t, payments, &fakeReportGrades{}, &fakeProbe{ready: true})

	from := time.Now().UTC().AddDate(0, -4, 0)
	to := time.Now().UTC()
	result, err := svc.ExportPayments(context.Background(), from, to)
	require.NoError(t, err)
	assert.Equal(t, 4, result.RowCount)
	assert.Contains(t, result.URL, "/api/v1/reports/download/")

	token := strings.TrimPrefix(result.URL, "/api/v1/reports/download/")
	download, err := svc.ResolveDownload(token)
	require.NoError(t, err)
	defer download.File.Close()

	content, err := io.ReadAll(download.File)
	require.NoError(t, err)
	csv := string(content)
	assert.Contains(t, csv, "user_id,amount,level,payment_method,reference_number,status,paid_at")
	assert.Contains(t, csv, "TOTAL,50.00")
	assert.Contains(t, csv, "TOTAL,75.00")
}

func TestExportGradesStableHeaders(t *testing.T) {
	grades := &fakeReportGrades{grades: []models.Grade{
		{StudentID: "s1", TutorID: "t1", AssessmentType: models.AssessmentQuiz, Grade: 88, Level: 3, GradedAt: time.Now().UTC()},
	}}
	svc := newReportFixture(t, &fakeReportPayments{}, grades, &fakeProbe{ready: true})

	result, err := svc.ExportGrades(context.Background(), models.GradeFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.RowCount)

	token := strings.TrimPrefix(result.URL, "/api/v1/reports/download/")
	download, err := svc.ResolveDownload(token)
	require.NoError(t, err)
	defer download.File.Close()

	content, err := io.ReadAll(download.File)
	require.NoError(t, err)
	assert.Contains(t, string(content), "student_id,tutor_id,assessment_type,grade,level,comments,graded_at")
	assert.Contains(t, string(content), "s1,t1,QUIZ,88.00,3")
}

func TestExportRefusedWhenDatabaseDown(t *testing.T) {
	svc := newReportFixture(t, &fakeReportPayments{}, &fakeReportGrades{}, &fakeProbe{ready: false})

	_, err := svc.ExportMembers(context.Background(), models.ProfileFilter{})
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrUnavailable.Code, appErr.Code)
}

func TestResolveDownloadRejectsBadToken(t *testing.T) {
	svc := newReportFixture(t, &fakeReportPayments{}, &fakeReportGrades{}, &fakeProbe{ready: true})

	_, err := svc.ResolveDownload("not-a-real-token")
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}
