package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"inscribo/internal/domain"
)

// cancellationWindow is how long before the event date regular users may
// still cancel their own enrollment. Administrators are not bound by it.
const cancellationWindow = 24 * time.Hour

type enrollmentService struct {
	catalog     domain.EventCatalog
	enrollments domain.EnrollmentRepository
	payments    domain.PaymentRepository
	users       domain.UserRepository
	email       domain.EmailService
	logger      *slog.Logger
}

// NewEnrollmentService creates the EnrollmentService that drives the
// enrollment state machine. email may be nil; confirmation notices are
// best-effort and never fail the transition.
func NewEnrollmentService(
	catalog domain.EventCatalog,
	enrollments domain.EnrollmentRepository,
	payments domain.PaymentRepository,
	users domain.UserRepository,
	email domain.EmailService,
	logger *slog.Logger,
) domain.EnrollmentService {
	return &enrollmentService{
		catalog:     catalog,
		enrollments: enrollments,
		payments:    payments,
		users:       users,
		email:       email,
		logger:      logger,
	}
}

func (s *enrollmentService) Get(ctx context.Context, id int64) (*domain.EnrollmentWithEvent, []*domain.Payment, error) {
	enrollment, err := s.enrollments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, domain.ErrNotFound
		}
		return nil, nil, fmt.Errorf("get enrollment: %w", err)
	}

	// The event reference is weak; the catalog document may be gone.
	event, err := s.catalog.GetByID(ctx, enrollment.EventID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, nil, fmt.Errorf("get event for enrollment: %w", err)
	}

	payments, err := s.payments.ListByEnrollment(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("list payments: %w", err)
	}
	return &domain.EnrollmentWithEvent{Enrollment: enrollment, Event: event}, payments, nil
}

func (s *enrollmentService) List(ctx context.Context, params domain.PaginationParams) ([]*domain.Enrollment, int, error) {
	enrollments, total, err := s.enrollments.List(ctx, params)
	if err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}
	return enrollments, total, nil
}

func (s *enrollmentService) ListMine(ctx context.Context, userID string) ([]*domain.EnrollmentWithEvent, error) {
	enrollments, err := s.enrollments.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}

	// Fetch events one by one with a small cache; users rarely hold
	// enrollments across many distinct events.
	eventsByID := make(map[string]*domain.Event)
	result := make([]*domain.EnrollmentWithEvent, 0, len(enrollments))
	for _, enrollment := range enrollments {
		event, ok := eventsByID[enrollment.EventID]
		if !ok {
			event, err = s.catalog.GetByID(ctx, enrollment.EventID)
			if err != nil {
				if !errors.Is(err, domain.ErrNotFound) {
					return nil, fmt.Errorf("get event for enrollment: %w", err)
				}
				event = nil
			}
			eventsByID[enrollment.EventID] = event
		}
		result = append(result, &domain.EnrollmentWithEvent{Enrollment: enrollment, Event: event})
	}
	return result, nil
}

// ConfirmViaPayment records a completed payment against a pending
// enrollment and confirms it. Both writes happen in one ledger
// transaction, so a confirmed enrollment always has its completed payment.
func (s *enrollmentService) ConfirmViaPayment(ctx context.Context, enrollmentID int64, in domain.PaymentInput) (*domain.Enrollment, error) {
	enrollment, err := s.enrollments.GetByID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get enrollment: %w", err)
	}
	if enrollment.State != domain.EnrollmentPending {
		return nil, domain.ErrInvalidStateTransition
	}
	if !in.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: payment amount must be positive", domain.ErrInvalidInput)
	}
	method := in.Method
	if method == "" {
		method = domain.MethodCard
	}

	now := time.Now()
	payment := &domain.Payment{
		EnrollmentID: enrollmentID,
		Amount:       in.Amount,
		Method:       method,
		State:        domain.PaymentCompleted,
		PaidAt:       &now,
		CreatedAt:    now,
	}
	if err := s.enrollments.ConfirmWithPayment(ctx, enrollmentID, payment); err != nil {
		if errors.Is(err, domain.ErrInvalidStateTransition) {
			return nil, domain.ErrInvalidStateTransition
		}
		return nil, fmt.Errorf("confirm enrollment: %w", err)
	}
	enrollment.State = domain.EnrollmentConfirmed
	enrollment.UpdatedAt = now

	s.notifyConfirmed(ctx, enrollment, payment)
	return enrollment, nil
}

// notifyConfirmed sends the confirmation email. Failures are logged, never
// propagated: the ledger transaction has already committed.
func (s *enrollmentService) notifyConfirmed(ctx context.Context, enrollment *domain.Enrollment, payment *domain.Payment) {
	if s.email == nil {
		return
	}
	user, err := s.users.GetByID(ctx, enrollment.UserID)
	if err != nil {
		s.logger.WarnContext(ctx, "confirmation email skipped", "enrollment_id", enrollment.ID, "err", err)
		return
	}
	event, err := s.catalog.GetByID(ctx, enrollment.EventID)
	if err != nil {
		s.logger.WarnContext(ctx, "confirmation email skipped", "enrollment_id", enrollment.ID, "err", err)
		return
	}
	data := &domain.EnrollmentConfirmedEmailData{
		Email:      user.Email,
		Name:       user.Name,
		EventTitle: event.Title,
		EventDate:  event.Date,
		Venue:      event.Venue,
		Amount:     payment.Amount,
	}
	if err := s.email.SendEnrollmentConfirmed(ctx, data); err != nil {
		s.logger.WarnContext(ctx, "confirmation email failed", "enrollment_id", enrollment.ID, "err", err)
	}
}

// Cancel cancels an enrollment. Regular users may only cancel their own,
// and only while more than the cancellation window remains before the
// event; administrators bypass both restrictions. Cancelled is terminal.
func (s *enrollmentService) Cancel(ctx context.Context, enrollmentID int64, actorID string, role domain.Role) (*domain.Enrollment, error) {
	enrollment, err := s.enrollments.GetByID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get enrollment: %w", err)
	}
	if role != domain.RoleAdmin && enrollment.UserID != actorID {
		return nil, domain.ErrForbidden
	}
	if enrollment.State == domain.EnrollmentCancelled {
		return nil, domain.ErrInvalidStateTransition
	}

	if role != domain.RoleAdmin {
		event, err := s.catalog.GetByID(ctx, enrollment.EventID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("get event: %w", err)
		}
		// No window to enforce when the event document is gone.
		if event != nil && time.Until(event.Date) <= cancellationWindow {
			return nil, domain.ErrCancellationWindowClosed
		}
	}

	if err := s.enrollments.CancelWithPayments(ctx, enrollmentID); err != nil {
		if errors.Is(err, domain.ErrInvalidStateTransition) {
			return nil, domain.ErrInvalidStateTransition
		}
		return nil, fmt.Errorf("cancel enrollment: %w", err)
	}
	enrollment.State = domain.EnrollmentCancelled
	enrollment.UpdatedAt = time.Now()
	return enrollment, nil
}

// UpdateState applies an explicit admin state change. The transition table
// is enforced here: pending -> confirmed (with the payment rule for paid
// events), and pending/confirmed -> cancelled. Everything else fails.
func (s *enrollmentService) UpdateState(ctx context.Context, enrollmentID int64, target domain.EnrollmentState) (*domain.Enrollment, error) {
	if !target.Valid() {
		return nil, domain.ErrInvalidStateTransition
	}
	enrollment, err := s.enrollments.GetByID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get enrollment: %w", err)
	}
	if !legalTransition(enrollment.State, target) {
		return nil, domain.ErrInvalidStateTransition
	}

	switch target {
	case domain.EnrollmentConfirmed:
		event, err := s.catalog.GetByID(ctx, enrollment.EventID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.ErrNotFound
			}
			return nil, fmt.Errorf("get event: %w", err)
		}
		if !event.Free() {
			completed, err := s.payments.HasCompleted(ctx, enrollmentID)
			if err != nil {
				return nil, fmt.Errorf("check payments: %w", err)
			}
			if !completed {
				return nil, domain.ErrInvalidStateTransition
			}
		}
		// The write re-checks the current state; a cancel committing after
		// the legality check above makes it fail instead of resurrecting
		// the enrollment.
		if err := s.enrollments.UpdateState(ctx, enrollmentID, enrollment.State, target); err != nil {
			if errors.Is(err, domain.ErrInvalidStateTransition) {
				return nil, domain.ErrInvalidStateTransition
			}
			return nil, fmt.Errorf("update enrollment state: %w", err)
		}
	case domain.EnrollmentCancelled:
		if err := s.enrollments.CancelWithPayments(ctx, enrollmentID); err != nil {
			if errors.Is(err, domain.ErrInvalidStateTransition) {
				return nil, domain.ErrInvalidStateTransition
			}
			return nil, fmt.Errorf("cancel enrollment: %w", err)
		}
	}

	enrollment.State = target
	enrollment.UpdatedAt = time.Now()
	return enrollment, nil
}

// legalTransition encodes the enrollment state machine. Cancelled has no
// outgoing transitions.
func legalTransition(from, to domain.EnrollmentState) bool {
	switch from {
	case domain.EnrollmentPending:
		return to == domain.EnrollmentConfirmed || to == domain.EnrollmentCancelled
	case domain.EnrollmentConfirmed:
		return to == domain.EnrollmentCancelled
	}
	return false
}

// AdminDelete hard-deletes the enrollment and its payments. This is a
// data-management purge, not a lifecycle transition; it applies to
// cancelled rows too.
func (s *enrollmentService) AdminDelete(ctx context.Context, enrollmentID int64) error {
	if err := s.enrollments.Delete(ctx, enrollmentID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("delete enrollment: %w", err)
	}
	return nil
}
