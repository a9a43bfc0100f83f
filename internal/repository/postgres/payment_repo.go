package postgres

import (
	"context"
	"database/sql"
	"errors"

	"inscribo/internal/domain"
)

type paymentRepository struct {
	DB *sql.DB
}

func NewPaymentRepository(db *sql.DB) domain.PaymentRepository {
	return &paymentRepository{
		DB: db,
	}
}

func (r *paymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (enrollment_id, amount, method, state, paid_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query,
		payment.EnrollmentID, payment.Amount, payment.Method, string(payment.State), payment.PaidAt, payment.CreatedAt).
		Scan(&payment.ID)
}

func (r *paymentRepository) ListByEnrollment(ctx context.Context, enrollmentID int64) ([]*domain.Payment, error) {
	query := `
		SELECT id, enrollment_id, amount, method, state, paid_at, created_at
		FROM payments
		WHERE enrollment_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.DB.QueryContext(ctx, query, enrollmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []*domain.Payment
	for rows.Next() {
		p := &domain.Payment{}
		if err := rows.Scan(&p.ID, &p.EnrollmentID, &p.Amount, &p.Method, &p.State, &p.PaidAt, &p.CreatedAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if payments == nil {
		payments = []*domain.Payment{}
	}
	return payments, nil
}

func (r *paymentRepository) HasCompleted(ctx context.Context, enrollmentID int64) (bool, error) {
	var id int64
	err := r.DB.QueryRowContext(ctx, `
		SELECT id FROM payments
		WHERE enrollment_id = $1 AND state = 'completed'
		LIMIT 1
	`, enrollmentID).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *paymentRepository) SummaryByEvent(ctx context.Context, eventID string) (*domain.RevenueSummary, error) {
	query := `
		SELECT
			COALESCE(SUM(p.amount), 0),
			COALESCE(SUM(p.amount) FILTER (WHERE p.state = 'completed'), 0),
			COUNT(p.id)
		FROM payments p
		JOIN enrollments e ON p.enrollment_id = e.id
		WHERE e.event_id = $1
	`
	s := &domain.RevenueSummary{}
	err := r.DB.QueryRowContext(ctx, query, eventID).
		Scan(&s.TotalAmount, &s.CompletedAmount, &s.PaymentCount)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *paymentRepository) UpdateState(ctx context.Context, id int64, state domain.PaymentState) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE payments SET state = $2
		WHERE id = $1
	`, id, string(state))
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
