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

// PaymentRepository provides database access for membership fee payments.
// Payments are append-only; there is no update or delete path.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository creates a new instance of PaymentRepository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create inserts a new payment record.
func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	if payment.PaidAt.IsZero() {
		payment.PaidAt = time.Now().UTC()
	}
	const query = `INSERT INTO payments (id, user_id, amount, level, payment_method, reference_number, status, paid_at)
        VALUES (:id, :user_id, :amount, :level, :payment_method, :reference_number, :status, :paid_at)`
	if _, err := r.db.NamedExecContext(ctx, query, payment); err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

// List returns payments based on filters with total count, newest first by
// default.
func (r *PaymentRepository) List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, int, error) {
	baseQuery := `FROM payments WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.Method != nil {
		conditions = append(conditions, fmt.Sprintf("payment_method = $%d", len(args)+1))
		args = append(args, *filter.Method)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("paid_at >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("paid_at <= $%d", len(args)+1))
		args = append(args, *filter.To)
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
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

	listQuery := fmt.Sprintf("SELECT id, user_id, amount, level, payment_method, reference_number, status, paid_at %s ORDER BY paid_at %s LIMIT %d OFFSET %d", baseQuery, sortOrder, pageSize, offset)

	var payments []models.Payment
	if err := r.db.SelectContext(ctx, &payments, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list payments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count payments: %w", err)
	}

	return payments, total, nil
}

// SumByMethod aggregates confirmed payment totals per method within a range.
// Used by the financial report export.
func (r *PaymentRepository) SumByMethod(ctx context.Context, from, to time.Time) (map[models.PaymentMethod]float64, error) {
	const query = `SELECT payment_method, COALESCE(SUM(amount), 0) AS total FROM payments WHERE status = $1 AND paid_at >= $2 AND paid_at <= $3 GROUP BY payment_method`
	rows, err := r.db.QueryxContext(ctx, query, models.PaymentStatusConfirmed, from, to)
	if err != nil {
		return nil, fmt.Errorf("sum payments by method: %w", err)
	}
	defer rows.Close()

	totals := make(map[models.PaymentMethod]float64)
	for rows.Next() {
		var method models.PaymentMethod
		var total float64
		if err := rows.Scan(&method, &total); err != nil {
			return nil, fmt.Errorf("scan payment total: %w", err)
		}
		totals[method] = total
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payment totals: %w", err)
	}
	return totals, nil
}
