package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// EnrollmentState is the lifecycle state of an enrollment.
type EnrollmentState string

const (
	EnrollmentPending   EnrollmentState = "pending"
	EnrollmentConfirmed EnrollmentState = "confirmed"
	EnrollmentCancelled EnrollmentState = "cancelled"
)

// Valid reports whether s is one of the defined states.
func (s EnrollmentState) Valid() bool {
	switch s {
	case EnrollmentPending, EnrollmentConfirmed, EnrollmentCancelled:
		return true
	}
	return false
}

// Active reports whether the state counts toward capacity and the
// one-active-enrollment-per-user rule.
func (s EnrollmentState) Active() bool {
	return s == EnrollmentPending || s == EnrollmentConfirmed
}

// Enrollment is a ledger row recording one admission decision. EventID is a
// lookup key into the catalog, not an ownership reference; the catalog may
// delete the event independently.
// swagger:model Enrollment
type Enrollment struct {
	ID        int64           `json:"id"`
	UserID    string          `json:"user_id"`
	EventID   string          `json:"event_id"`
	State     EnrollmentState `json:"state"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewEnrollment returns an Enrollment in the given initial state. ID is set
// by the ledger on insert.
func NewEnrollment(userID, eventID string, state EnrollmentState, now time.Time) *Enrollment {
	return &Enrollment{
		UserID:    userID,
		EventID:   eventID,
		State:     state,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// EnrollmentCounts aggregates ledger rows for one event by state.
type EnrollmentCounts struct {
	Total     int64 `json:"total"`
	Confirmed int64 `json:"confirmed"`
	Pending   int64 `json:"pending"`
	Cancelled int64 `json:"cancelled"`
}

// EnrollmentWithEvent bundles an enrollment with its catalog document,
// which may be nil when the event has since been deleted.
type EnrollmentWithEvent struct {
	Enrollment *Enrollment `json:"enrollment"`
	Event      *Event      `json:"event"`
}

// EnrollmentRepository is the enrollment ledger. Admit is the per-event
// critical section: it must serialize the active-count check, the duplicate
// check, and the insert against concurrent admissions for the same event.
type EnrollmentRepository interface {
	// Admit inserts the enrollment after re-checking capacity and the
	// duplicate rule under a per-event lock. capacity nil means unlimited.
	// Returns the number of active enrollments for the event including the
	// new row. Fails with ErrCapacityExceeded or ErrDuplicateEnrollment.
	Admit(ctx context.Context, enrollment *Enrollment, capacity *int64) (int64, error)
	GetByID(ctx context.Context, id int64) (*Enrollment, error)
	List(ctx context.Context, params PaginationParams) ([]*Enrollment, int, error)
	ListByUser(ctx context.Context, userID string) ([]*Enrollment, error)
	CountActive(ctx context.Context, eventID string) (int64, error)
	CountConfirmed(ctx context.Context, eventID string) (int64, error)
	CountsByEvent(ctx context.Context, eventID string) (*EnrollmentCounts, error)
	// ConfirmWithPayment records the completed payment and moves the
	// enrollment from pending to confirmed in a single ledger transaction.
	ConfirmWithPayment(ctx context.Context, enrollmentID int64, payment *Payment) error
	// CancelWithPayments marks the enrollment cancelled and voids its
	// payments in a single ledger transaction.
	CancelWithPayments(ctx context.Context, enrollmentID int64) error
	// UpdateState moves the enrollment from the expected current state to
	// the target in one conditional write. When a concurrent transition has
	// already changed the row, the write affects nothing and fails with
	// ErrInvalidStateTransition.
	UpdateState(ctx context.Context, id int64, from, to EnrollmentState) error
	// Delete hard-deletes the enrollment and cascades to its payments.
	Delete(ctx context.Context, id int64) error
	// DeleteByEvent purges all enrollments and payments for the event. It
	// re-checks inside the purge transaction that no confirmed enrollment
	// remains and fails with ErrEventHasConfirmed otherwise.
	DeleteByEvent(ctx context.Context, eventID string) error
}

// AdmissionService decides whether a new enrollment is admitted against the
// capacity limit and the duplicate rule.
type AdmissionService interface {
	// RequestEnrollment admits userID into eventID. The returned int64 is
	// the remaining capacity after admission, nil when unlimited.
	RequestEnrollment(ctx context.Context, userID, eventID string) (*Enrollment, *int64, error)
}

// PaymentInput carries caller-supplied payment details for confirmation.
type PaymentInput struct {
	Amount decimal.Decimal
	Method string
}

// EnrollmentService drives enrollment state transitions and reads.
// Transition legality is enforced here, not in callers.
type EnrollmentService interface {
	Get(ctx context.Context, id int64) (*EnrollmentWithEvent, []*Payment, error)
	List(ctx context.Context, params PaginationParams) ([]*Enrollment, int, error)
	ListMine(ctx context.Context, userID string) ([]*EnrollmentWithEvent, error)
	// ConfirmViaPayment records a completed payment and confirms the
	// pending enrollment.
	ConfirmViaPayment(ctx context.Context, enrollmentID int64, in PaymentInput) (*Enrollment, error)
	// Cancel cancels the enrollment. Regular users may only cancel their
	// own enrollments and only while more than the cancellation window
	// remains before the event date; admins bypass both restrictions.
	Cancel(ctx context.Context, enrollmentID int64, actorID string, role Role) (*Enrollment, error)
	// UpdateState applies an explicit state change, admin path. Targets
	// outside the legal transition table fail with
	// ErrInvalidStateTransition.
	UpdateState(ctx context.Context, enrollmentID int64, target EnrollmentState) (*Enrollment, error)
	// AdminDelete hard-deletes the enrollment and its payments.
	AdminDelete(ctx context.Context, enrollmentID int64) error
}
