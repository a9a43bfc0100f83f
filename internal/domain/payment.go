package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentState is the settlement state of a payment.
type PaymentState string

const (
	PaymentPending   PaymentState = "pending"
	PaymentCompleted PaymentState = "completed"
	PaymentFailed    PaymentState = "failed"
	// PaymentVoid marks payments of a cancelled enrollment as awaiting
	// refund handling. Terminal; downstream refund processing happens
	// outside this system.
	PaymentVoid PaymentState = "void"
)

// Valid reports whether s is one of the defined states.
func (s PaymentState) Valid() bool {
	switch s {
	case PaymentPending, PaymentCompleted, PaymentFailed, PaymentVoid:
		return true
	}
	return false
}

// Payment methods accepted by the platform.
const (
	MethodCard     = "card"
	MethodCash     = "cash"
	MethodTransfer = "transfer"
)

// Payment is a ledger row referencing exactly one enrollment. The reference
// is an ownership one: deleting the enrollment cascades to its payments.
// swagger:model Payment
type Payment struct {
	ID           int64           `json:"id"`
	EnrollmentID int64           `json:"enrollment_id"`
	Amount       decimal.Decimal `json:"amount"`
	Method       string          `json:"method"`
	State        PaymentState    `json:"state"`
	PaidAt       *time.Time      `json:"paid_at"`
	CreatedAt    time.Time       `json:"created_at"`
}

// RevenueSummary aggregates payments for one event, joined through the
// enrollment ledger.
type RevenueSummary struct {
	TotalAmount     decimal.Decimal `json:"total_amount"`
	CompletedAmount decimal.Decimal `json:"completed_amount"`
	PaymentCount    int64           `json:"payment_count"`
}

// PaymentRepository is the payment ledger.
type PaymentRepository interface {
	Create(ctx context.Context, payment *Payment) error
	ListByEnrollment(ctx context.Context, enrollmentID int64) ([]*Payment, error)
	// HasCompleted reports whether the enrollment has at least one
	// completed payment.
	HasCompleted(ctx context.Context, enrollmentID int64) (bool, error)
	SummaryByEvent(ctx context.Context, eventID string) (*RevenueSummary, error)
	UpdateState(ctx context.Context, id int64, state PaymentState) error
}
