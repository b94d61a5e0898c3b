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

// DirectoryRepository provides database access for the check-in directory:
// club events and recurring classes, each carrying a session code.
type DirectoryRepository struct {
	db *sqlx.DB
}

// NewDirectoryRepository creates a new instance of DirectoryRepository.
func NewDirectoryRepository(db *sqlx.DB) *DirectoryRepository {
	return &DirectoryRepository{db: db}
}

// CreateEvent inserts a new event.
func (r *DirectoryRepository) CreateEvent(ctx context.Context, event *models.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	event.UpdatedAt = now
	const query = `INSERT INTO events (id, title, description, location, starts_at, ends_at, session_code, active, created_at, updated_at)
        VALUES (:id, :title, :description, :location, :starts_at, :ends_at, :session_code, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// FindEventByID returns an event by identifier.
func (r *DirectoryRepository) FindEventByID(ctx context.Context, id string) (*models.Event, error) {
	const query = `SELECT id, title, description, location, starts_at, ends_at, session_code, active, created_at, updated_at FROM events WHERE id = $1 LIMIT 1`
	var event models.Event
	if err := r.db.GetContext(ctx, &event, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find event: %w", err)
	}
	return &event, nil
}

// FindActiveEventByCode resolves a session code to an active event. Events
// are checked before classes by the check-in workflow.
func (r *DirectoryRepository) FindActiveEventByCode(ctx context.Context, sessionCode string) (*models.Event, error) {
	const query = `SELECT id, title, description, location, starts_at, ends_at, session_code, active, created_at, updated_at FROM events WHERE session_code = $1 AND active = TRUE LIMIT 1`
	var event models.Event
	if err := r.db.GetContext(ctx, &event, query, sessionCode); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find event by code: %w", err)
	}
	return &event, nil
}

// ListEvents returns events, optionally restricted to active ones, upcoming
// first.
func (r *DirectoryRepository) ListEvents(ctx context.Context, activeOnly bool) ([]models.Event, error) {
	query := `SELECT id, title, description, location, starts_at, ends_at, session_code, active, created_at, updated_at FROM events`
	if activeOnly {
		query += ` WHERE active = TRUE`
	}
	query += ` ORDER BY starts_at DESC`

	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, query); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// SetEventActive toggles an event's active flag.
func (r *DirectoryRepository) SetEventActive(ctx context.Context, id string, active bool) error {
	const query = `UPDATE events SET active = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, active, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set event active: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CreateClass inserts a new club class.
func (r *DirectoryRepository) CreateClass(ctx context.Context, class *models.ClubClass) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if class.CreatedAt.IsZero() {
		class.CreatedAt = now
	}
	class.UpdatedAt = now
	const query = `INSERT INTO club_classes (id, name, schedule, session_code, tutor_id, active, created_at, updated_at)
        VALUES (:id, :name, :schedule, :session_code, :tutor_id, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// FindClassByID returns a class by identifier.
func (r *DirectoryRepository) FindClassByID(ctx context.Context, id string) (*models.ClubClass, error) {
	const query = `SELECT id, name, schedule, session_code, tutor_id, active, created_at, updated_at FROM club_classes WHERE id = $1 LIMIT 1`
	var class models.ClubClass
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find class: %w", err)
	}
	return &class, nil
}

// FindActiveClassByCode resolves a session code to an active class.
func (r *DirectoryRepository) FindActiveClassByCode(ctx context.Context, sessionCode string) (*models.ClubClass, error) {
	const query = `SELECT id, name, schedule, session_code, tutor_id, active, created_at, updated_at FROM club_classes WHERE session_code = $1 AND active = TRUE LIMIT 1`
	var class models.ClubClass
	if err := r.db.GetContext(ctx, &class, query, sessionCode); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find class by code: %w", err)
	}
	return &class, nil
}

// ListClasses returns classes, optionally restricted to active ones.
func (r *DirectoryRepository) ListClasses(ctx context.Context, activeOnly bool) ([]models.ClubClass, error) {
	query := `SELECT id, name, schedule, session_code, tutor_id, active, created_at, updated_at FROM club_classes`
	if activeOnly {
		query += ` WHERE active = TRUE`
	}
	query += ` ORDER BY name ASC`

	var classes []models.ClubClass
	if err := r.db.SelectContext(ctx, &classes, query); err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return classes, nil
}

// SetClassTutor assigns or clears the tutor leading a class.
func (r *DirectoryRepository) SetClassTutor(ctx context.Context, id string, tutorID *string) error {
	const query = `UPDATE club_classes SET tutor_id = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, tutorID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set class tutor: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
