package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumiong13/kbm-corner-api/internal/models"
	"github.com/Sumiong13/kbm-corner-api/pkg/config"
	appErrors "github.com/Sumiong13/kbm-corner-api/pkg/errors"
)

type fakeGradeStore struct {
	grades  []models.Grade
	listErr error
}

func (s *fakeGradeStore) Create(_ context.Context, grade *models.Grade) error {
	if grade.ID == "" {
		grade.ID = "gr-1"
	}
	s.grades = append(s.grades, *grade)
	return nil
}

func (s *fakeGradeStore) List(_ context.Context, filter models.GradeFilter) ([]models.Grade, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []models.Grade
	for _, g := range s.grades {
		if filter.StudentID != "" && g.StudentID != filter.StudentID {
			continue
		}
		if filter.Level != nil && g.Level != *filter.Level {
			continue
		}
		out = append(out, g)
	}
	return out, nil
}

func (s *fakeGradeStore) SummarizeByLevel(_ context.Context, studentID string, passThreshold float64) ([]models.LevelGradeSummary, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	byLevel := map[int][]float64{}
	for _, g := range s.grades {
		if g.StudentID == studentID {
			byLevel[g.Level] = append(byLevel[g.Level], g.Grade)
		}
	}
	var out []models.LevelGradeSummary
	for level, scores := range byLevel {
		var sum, passed float64
		for _, score := range scores {
			sum += score
			if score >= passThreshold {
				passed++
			}
		}
		out = append(out, models.LevelGradeSummary{
			Level:    level,
			Count:    len(scores),
			Average:  sum / float64(len(scores)),
			PassRate: passed / float64(len(scores)),
		})
	}
	return out, nil
}

type fakeSnapshotStore struct {
	data map[string][]byte
}

func newFakeSnapshotStore() *fakeSnapshotStore {
	return &fakeSnapshotStore{data: map[string][]byte{}}
}

func (s *fakeSnapshotStore) StoreSnapshot(_ context.Context, key string, value interface{}, _ time.Duration) error {
	payload, err := jsonMarshal(value)
	if err != nil {
		return err
	}
	s.data[key] = payload
	return nil
}

func (s *fakeSnapshotStore) LoadSnapshot(_ context.Context, key string, dest interface{}) error {
	raw, ok := s.data[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return jsonUnmarshal(raw, dest)
}

func newGradingFixture(t *testing.T, probe *fakeProbe, snapshots gradeSnapshotStore) (*GradingService, *fakeGradeStore, *fakeProfileStore) {
	t.Helper()
	grades := &fakeGradeStore{}
	profiles := newFakeProfileStore(
		studentProfile("s1", 2, time.Now().UTC().AddDate(0, 1, 0)),
		tutorProfile("t1"),
	)
	authz := NewAuthorizer(profiles)
	svc := NewGradingService(grades, authz, snapshots, probe, nil, nil,
		config.GradingConfig{PassThreshold: 60},
		config.FallbackConfig{Enabled: snapshots != nil, SnapshotTTL: time.Hour})
	return svc, grades, profiles
}

func TestGradeStudentCapturesCurrentLevel(t *testing.T) {
	svc, grades, _ := newGradingFixture(t, &fakeProbe{ready: true}, nil)

	grade, err := svc.GradeStudent(context.Background(), "t1", GradeRequest{
		StudentID:      "s1",
		AssessmentType: string(models.AssessmentQuiz),
		Grade:          85,
		Comments:       "good",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, grade.Level)
	assert.Equal(t, "t1", grade.TutorID)
	require.Len(t, grades.grades, 1)
}

func TestGradeStudentRejectsInvalidScore(t *testing.T) {
	svc, _, _ := newGradingFixture(t, &fakeProbe{ready: true}, nil)

	_, err := svc.GradeStudent(context.Background(), "t1", GradeRequest{
		StudentID:      "s1",
		AssessmentType: string(models.AssessmentQuiz),
		Grade:          120,
	})
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestGradeStudentRejectsUnknownAssessment(t *testing.T) {
	svc, _, _ := newGradingFixture(t, &fakeProbe{ready: true}, nil)

	_, err := svc.GradeStudent(context.Background(), "t1", GradeRequest{
		StudentID:      "s1",
		AssessmentType: "VIBES",
		Grade:          80,
	})
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestGradeStudentRequiresTutorRole(t *testing.T) {
	svc, _, _ := newGradingFixture(t, &fakeProbe{ready: true}, nil)

	_, err := svc.GradeStudent(context.Background(), "s1", GradeRequest{
		StudentID:      "s1",
		AssessmentType: string(models.AssessmentExam),
		Grade:          70,
	})
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestStudentGradesComputesSummaries(t *testing.T) {
	svc, grades, _ := newGradingFixture(t, &fakeProbe{ready: true}, nil)
	grades.grades = []models.Grade{
		{ID: "g1", StudentID: "s1", Level: 2, Grade: 80},
		{ID: "g2", StudentID: "s1", Level: 2, Grade: 40},
	}

	report, stale, err := svc.StudentGrades(context.Background(), "s1", nil)
	require.NoError(t, err)
	assert.False(t, stale)
	assert.Len(t, report.Grades, 2)
	require.Len(t, report.Summaries, 1)
	assert.Equal(t, 60.0, report.Summaries[0].Average)
	assert.Equal(t, 0.5, report.Summaries[0].PassRate)
}

func TestStudentGradesFallsBackToSnapshot(t *testing.T) {
	snapshots := newFakeSnapshotStore()
	probe := &fakeProbe{ready: true}
	svc, grades, _ := newGradingFixture(t, probe, snapshots)
	grades.grades = []models.Grade{{ID: "g1", StudentID: "s1", Level: 2, Grade: 75}}

	// Warm the snapshot with a healthy read.
	_, stale, err := svc.StudentGrades(context.Background(), "s1", nil)
	require.NoError(t, err)
	assert.False(t, stale)

	// Database goes away; the read degrades to the snapshot.
	probe.ready = false
	report, stale, err := svc.StudentGrades(context.Background(), "s1", nil)
	require.NoError(t, err)
	assert.True(t, stale)
	assert.Len(t, report.Grades, 1)
}

func TestStudentGradesUnavailableWithoutSnapshot(t *testing.T) {
	snapshots := newFakeSnapshotStore()
	svc, _, _ := newGradingFixture(t, &fakeProbe{ready: false}, snapshots)

	_, _, err := svc.StudentGrades(context.Background(), "s1", nil)
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrUnavailable.Code, appErr.Code)
}

func TestStudentGradesSurfacesRealErrors(t *testing.T) {
	svc, grades, _ := newGradingFixture(t, &fakeProbe{ready: true}, nil)
	grades.listErr = errors.New("boom")

	_, _, err := svc.StudentGrades(context.Background(), "s1", nil)
	require.Error(t, err)
}
