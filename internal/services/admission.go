package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"inscribo/internal/domain"
)

type admissionService struct {
	catalog     domain.EventCatalog
	enrollments domain.EnrollmentRepository
}

// NewAdmissionService creates an AdmissionService backed by the event
// catalog and the enrollment ledger.
func NewAdmissionService(catalog domain.EventCatalog, enrollments domain.EnrollmentRepository) domain.AdmissionService {
	return &admissionService{
		catalog:     catalog,
		enrollments: enrollments,
	}
}

// RequestEnrollment admits userID into eventID. Preconditions are checked
// in order: event exists and is open for enrollment, event date is in the
// future, capacity has room, and the user has no active enrollment. The
// capacity and duplicate checks run inside the ledger's per-event critical
// section (EnrollmentRepository.Admit), so no write ever happens when a
// precondition fails.
func (s *admissionService) RequestEnrollment(ctx context.Context, userID, eventID string) (*domain.Enrollment, *int64, error) {
	event, err := s.catalog.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, domain.ErrNotFound
		}
		return nil, nil, fmt.Errorf("get event: %w", err)
	}
	if event.Status != domain.EventActive {
		// Cancelled/finished/postponed events are not open for enrollment;
		// callers see the same answer as for a missing event.
		return nil, nil, domain.ErrNotFound
	}

	now := time.Now()
	if event.Occurred(now) {
		return nil, nil, domain.ErrEventFinished
	}

	state := domain.EnrollmentPending
	if event.Free() {
		state = domain.EnrollmentConfirmed
	}
	enrollment := domain.NewEnrollment(userID, eventID, state, now)

	active, err := s.enrollments.Admit(ctx, enrollment, event.Capacity)
	if err != nil {
		if errors.Is(err, domain.ErrCapacityExceeded) || errors.Is(err, domain.ErrDuplicateEnrollment) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("admit enrollment: %w", err)
	}

	var remaining *int64
	if event.Capacity != nil {
		r := *event.Capacity - active
		remaining = &r
	}
	return enrollment, remaining, nil
}
