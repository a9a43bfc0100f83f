package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"inscribo/internal/domain"
)

type enrollmentRepository struct {
	DB *sql.DB
}

func NewEnrollmentRepository(db *sql.DB) domain.EnrollmentRepository {
	return &enrollmentRepository{
		DB: db,
	}
}

// Admit runs the capacity and duplicate checks and the insert inside one
// transaction that first takes a per-event advisory lock. Two concurrent
// admissions for the same event are serialized at this lock; admissions for
// different events proceed in parallel. The lock is released on COMMIT or
// ROLLBACK, so an abandoned request (context cancellation) never leaves a
// half-written row.
func (r *enrollmentRepository) Admit(ctx context.Context, enrollment *domain.Enrollment, capacity *int64) (int64, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, enrollment.EventID); err != nil {
		return 0, fmt.Errorf("acquire admission lock: %w", err)
	}

	var active int64
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM enrollments
		WHERE event_id = $1 AND state <> 'cancelled'
	`, enrollment.EventID).Scan(&active)
	if err != nil {
		return 0, err
	}
	if capacity != nil && active >= *capacity {
		return 0, domain.ErrCapacityExceeded
	}

	var existingID int64
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM enrollments
		WHERE user_id = $1 AND event_id = $2 AND state <> 'cancelled'
	`, enrollment.UserID, enrollment.EventID).Scan(&existingID)
	if err == nil {
		return 0, domain.ErrDuplicateEnrollment
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO enrollments (user_id, event_id, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, enrollment.UserID, enrollment.EventID, string(enrollment.State), enrollment.CreatedAt, enrollment.UpdatedAt).
		Scan(&enrollment.ID)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return active + 1, nil
}

func (r *enrollmentRepository) GetByID(ctx context.Context, id int64) (*domain.Enrollment, error) {
	query := `
		SELECT id, user_id, event_id, state, created_at, updated_at
		FROM enrollments
		WHERE id = $1
	`
	e := &domain.Enrollment{}
	err := r.DB.QueryRowContext(ctx, query, id).
		Scan(&e.ID, &e.UserID, &e.EventID, &e.State, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *enrollmentRepository) List(ctx context.Context, params domain.PaginationParams) ([]*domain.Enrollment, int, error) {
	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM enrollments`).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, user_id, event_id, state, created_at, updated_at
		FROM enrollments
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.DB.QueryContext(ctx, query, params.PageSize, params.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	enrollments, err := scanEnrollments(rows)
	if err != nil {
		return nil, 0, err
	}
	return enrollments, total, nil
}

func (r *enrollmentRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Enrollment, error) {
	query := `
		SELECT id, user_id, event_id, state, created_at, updated_at
		FROM enrollments
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEnrollments(rows)
}

func scanEnrollments(rows *sql.Rows) ([]*domain.Enrollment, error) {
	var enrollments []*domain.Enrollment
	for rows.Next() {
		e := &domain.Enrollment{}
		if err := rows.Scan(&e.ID, &e.UserID, &e.EventID, &e.State, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		enrollments = append(enrollments, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if enrollments == nil {
		enrollments = []*domain.Enrollment{}
	}
	return enrollments, nil
}

func (r *enrollmentRepository) CountActive(ctx context.Context, eventID string) (int64, error) {
	var count int64
	err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM enrollments
		WHERE event_id = $1 AND state <> 'cancelled'
	`, eventID).Scan(&count)
	return count, err
}

func (r *enrollmentRepository) CountConfirmed(ctx context.Context, eventID string) (int64, error) {
	var count int64
	err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM enrollments
		WHERE event_id = $1 AND state = 'confirmed'
	`, eventID).Scan(&count)
	return count, err
}

func (r *enrollmentRepository) CountsByEvent(ctx context.Context, eventID string) (*domain.EnrollmentCounts, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE state = 'confirmed'),
			COUNT(*) FILTER (WHERE state = 'pending'),
			COUNT(*) FILTER (WHERE state = 'cancelled')
		FROM enrollments
		WHERE event_id = $1
	`
	c := &domain.EnrollmentCounts{}
	err := r.DB.QueryRowContext(ctx, query, eventID).
		Scan(&c.Total, &c.Confirmed, &c.Pending, &c.Cancelled)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ConfirmWithPayment flips pending -> confirmed and records the payment in
// one ledger transaction. The conditional UPDATE is the per-row
// serialization point: a concurrent transition on the same enrollment sees
// zero rows affected and fails.
func (r *enrollmentRepository) ConfirmWithPayment(ctx context.Context, enrollmentID int64, payment *domain.Payment) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE enrollments SET state = 'confirmed', updated_at = $2
		WHERE id = $1 AND state = 'pending'
	`, enrollmentID, payment.CreatedAt)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrInvalidStateTransition
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO payments (enrollment_id, amount, method, state, paid_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, payment.EnrollmentID, payment.Amount, payment.Method, string(payment.State), payment.PaidAt, payment.CreatedAt).
		Scan(&payment.ID)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// CancelWithPayments marks the enrollment cancelled and voids its pending
// and completed payments in one ledger transaction. Cancelled rows are
// never transitioned again.
func (r *enrollmentRepository) CancelWithPayments(ctx context.Context, enrollmentID int64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE enrollments SET state = 'cancelled', updated_at = NOW()
		WHERE id = $1 AND state <> 'cancelled'
	`, enrollmentID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrInvalidStateTransition
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE payments SET state = 'void'
		WHERE enrollment_id = $1 AND state IN ('pending', 'completed')
	`, enrollmentID)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// UpdateState is a conditional write, like ConfirmWithPayment and
// CancelWithPayments: the state predicate is the per-row serialization
// point. A transition that committed after the caller's read makes the
// predicate miss, so a cancelled enrollment is never overwritten.
func (r *enrollmentRepository) UpdateState(ctx context.Context, id int64, from, to domain.EnrollmentState) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE enrollments SET state = $3, updated_at = NOW()
		WHERE id = $1 AND state = $2
	`, id, string(from), string(to))
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrInvalidStateTransition
	}
	return nil
}

func (r *enrollmentRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM payments WHERE enrollment_id = $1`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM enrollments WHERE id = $1`, id)
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
	return tx.Commit()
}

// DeleteByEvent locks the event's ledger rows and re-checks the
// no-confirmed precondition before purging. A payment confirming an
// enrollment between the caller's check and the purge either commits
// first (the re-check sees it and aborts) or blocks on the row lock and
// finds the row gone.
func (r *enrollmentRepository) DeleteByEvent(ctx context.Context, eventID string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT state FROM enrollments WHERE event_id = $1 FOR UPDATE
	`, eventID)
	if err != nil {
		return err
	}
	confirmed := false
	for rows.Next() {
		var state string
		if err := rows.Scan(&state); err != nil {
			rows.Close()
			return err
		}
		if state == string(domain.EnrollmentConfirmed) {
			confirmed = true
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	if err := rows.Close(); err != nil {
		return err
	}
	if confirmed {
		return domain.ErrEventHasConfirmed
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM payments USING enrollments
		WHERE payments.enrollment_id = enrollments.id AND enrollments.event_id = $1
	`, eventID)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM enrollments WHERE event_id = $1`, eventID); err != nil {
		return err
	}
	return tx.Commit()
}
