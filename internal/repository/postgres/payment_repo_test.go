package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"inscribo/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestPaymentRepository_Create(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO payments`).
		WithArgs(int64(5), decimal.NewFromInt(100), "card", "completed", &now, now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	p := &domain.Payment{
		EnrollmentID: 5,
		Amount:       decimal.NewFromInt(100),
		Method:       domain.MethodCard,
		State:        domain.PaymentCompleted,
		PaidAt:       &now,
		CreatedAt:    now,
	}
	repo := NewPaymentRepository(db)
	require.NoError(t, repo.Create(ctx, p))
	require.Equal(t, int64(7), p.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepository_HasCompleted(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		mock func(mock sqlmock.Sqlmock)
		want bool
	}{
		{
			name: "completed payment exists",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT id FROM payments`).
					WithArgs(int64(5)).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
			},
			want: true,
		},
		{
			name: "no completed payment",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT id FROM payments`).
					WithArgs(int64(5)).
					WillReturnError(sql.ErrNoRows)
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			repo := NewPaymentRepository(db)
			got, err := repo.HasCompleted(ctx, 5)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPaymentRepository_SummaryByEvent(t *testing.T) {
	ctx := context.Background()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT(.|\n)*FROM payments p(.|\n)*JOIN enrollments e`).
		WithArgs("ev-1").
		WillReturnRows(sqlmock.NewRows([]string{"total", "completed", "count"}).
			AddRow("3500", "3000", 70))

	repo := NewPaymentRepository(db)
	s, err := repo.SummaryByEvent(ctx, "ev-1")
	require.NoError(t, err)
	require.True(t, s.TotalAmount.Equal(decimal.NewFromInt(3500)))
	require.True(t, s.CompletedAmount.Equal(decimal.NewFromInt(3000)))
	require.Equal(t, int64(70), s.PaymentCount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepository_ListByEnrollment(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT id, enrollment_id, amount, method, state, paid_at, created_at`).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "enrollment_id", "amount", "method", "state", "paid_at", "created_at"}).
			AddRow(1, 5, "100.00", "card", "completed", now, now).
			AddRow(2, 5, "50.00", "cash", "void", nil, now))

	repo := NewPaymentRepository(db)
	payments, err := repo.ListByEnrollment(ctx, 5)
	require.NoError(t, err)
	require.Len(t, payments, 2)
	require.True(t, payments[0].Amount.Equal(decimal.NewFromInt(100)))
	require.Equal(t, domain.PaymentVoid, payments[1].State)
	require.Nil(t, payments[1].PaidAt)
	require.NoError(t, mock.ExpectationsWereMet())
}
