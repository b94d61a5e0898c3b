package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Sumiong13/kbm-corner-api/internal/models"
)

// AttendanceRepository provides database access for check-in records.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository creates a new instance of AttendanceRepository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Create inserts a new attendance record.
func (r *AttendanceRepository) Create(ctx context.Context, attendance *models.Attendance) error {
	if attendance.ID == "" {
		attendance.ID = uuid.NewString()
	}
	if attendance.CheckedInAt.IsZero() {
		attendance.CheckedInAt = time.Now().UTC()
	}
	const query = `INSERT INTO attendances (id, user_id, event_id, class_name, session_code, type, checked_in_at)
        VALUES (:id, :user_id, :event_id, :class_name, :session_code, :type, :checked_in_at)`
	if _, err := r.db.NamedExecContext(ctx, query, attendance); err != nil {
		return fmt.Errorf("create attendance: %w", err)
	}
	return nil
}

// ExistsForEvent reports whether the member already checked into the event.
// One check-in per member per event, regardless of day.
func (r *AttendanceRepository) ExistsForEvent(ctx context.Context, userID, eventID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM attendances WHERE user_id = $1 AND event_id = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, userID, eventID); err != nil {
		return false, fmt.Errorf("check event attendance: %w", err)
	}
	return exists, nil
}

// ExistsForClassOnDay reports whether the member already checked into the
// class on the given calendar day. Class check-ins reset daily.
func (r *AttendanceRepository) ExistsForClassOnDay(ctx context.Context, userID, className string, day time.Time) (bool, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.AddDate(0, 0, 1)
	const query = `SELECT EXISTS (SELECT 1 FROM attendances WHERE user_id = $1 AND class_name = $2 AND checked_in_at >= $3 AND checked_in_at < $4)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, userID, className, dayStart, dayEnd); err != nil {
		return false, fmt.Errorf("check class attendance: %w", err)
	}
	return exists, nil
}

// List returns attendance records based on filters with total count.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.Attendance, int, error) {
	baseQuery := `FROM attendances WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.EventID != "" {
		conditions = append(conditions, fmt.Sprintf("event_id = $%d", len(args)+1))
		args = append(args, filter.EventID)
	}
	if filter.ClassName != "" {
		conditions = append(conditions, fmt.Sprintf("class_name = $%d", len(args)+1))
		args = append(args, filter.ClassName)
	}
	if filter.Type != nil {
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)+1))
		args = append(args, *filter.Type)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("checked_in_at >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("checked_in_at <= $%d", len(args)+1))
		args = append(args, *filter.To)
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
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

	listQuery := fmt.Sprintf("SELECT id, user_id, event_id, class_name, session_code, type, checked_in_at %s ORDER BY checked_in_at DESC LIMIT %d OFFSET %d", baseQuery, pageSize, offset)

	var records []models.Attendance
	if err := r.db.SelectContext(ctx, &records, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list attendances: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count attendances: %w", err)
	}

	return records, total, nil
}
