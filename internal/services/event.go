package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"inscribo/internal/domain"
)

const (
	minTitleLen       = 5
	maxTitleLen       = 100
	minDescriptionLen = 20
)

type eventService struct {
	catalog     domain.EventCatalog
	enrollments domain.EnrollmentRepository
}

// NewEventService creates the EventService managing catalog documents. It
// holds the enrollment ledger too: event deletion is the one catalog
// operation that must consult and purge ledger rows.
func NewEventService(catalog domain.EventCatalog, enrollments domain.EnrollmentRepository) domain.EventService {
	return &eventService{
		catalog:     catalog,
		enrollments: enrollments,
	}
}

func (s *eventService) Create(ctx context.Context, organizerID string, event *domain.Event) (*domain.Event, error) {
	event.Title = strings.TrimSpace(event.Title)
	event.Description = strings.TrimSpace(event.Description)
	event.Venue = strings.TrimSpace(event.Venue)
	if event.Category == "" {
		event.Category = domain.CategoryOther
	}
	if event.Status == "" {
		event.Status = domain.EventActive
	}

	if err := validateEvent(event); err != nil {
		return nil, err
	}

	now := time.Now()
	event.OrganizerID = organizerID
	event.CreatedAt = now
	event.UpdatedAt = now
	if err := s.catalog.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	return event, nil
}

func validateEvent(event *domain.Event) error {
	if len(event.Title) < minTitleLen || len(event.Title) > maxTitleLen {
		return fmt.Errorf("%w: title must be between %d and %d characters", domain.ErrInvalidInput, minTitleLen, maxTitleLen)
	}
	if len(event.Description) < minDescriptionLen {
		return fmt.Errorf("%w: description must be at least %d characters", domain.ErrInvalidInput, minDescriptionLen)
	}
	if event.Venue == "" {
		return fmt.Errorf("%w: venue is required", domain.ErrInvalidInput)
	}
	if !event.Date.After(time.Now()) {
		return fmt.Errorf("%w: date must be in the future", domain.ErrInvalidInput)
	}
	if event.Capacity != nil && *event.Capacity < 1 {
		return fmt.Errorf("%w: capacity must be at least 1", domain.ErrInvalidInput)
	}
	if event.Price.IsNegative() {
		return fmt.Errorf("%w: price cannot be negative", domain.ErrInvalidInput)
	}
	if !event.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", domain.ErrInvalidInput, event.Category)
	}
	if !event.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, event.Status)
	}
	if event.DurationMinutes < 0 {
		return fmt.Errorf("%w: duration cannot be negative", domain.ErrInvalidInput)
	}
	return nil
}

func (s *eventService) Get(ctx context.Context, id string) (*domain.EventWithAvailability, error) {
	event, err := s.catalog.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}

	enrolled, err := s.enrollments.CountActive(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("count active enrollments: %w", err)
	}
	var available *int64
	if event.Capacity != nil {
		a := *event.Capacity - enrolled
		if a < 0 {
			a = 0
		}
		available = &a
	}
	return &domain.EventWithAvailability{
		Event:          event,
		Enrolled:       enrolled,
		AvailableSpots: available,
	}, nil
}

func (s *eventService) List(ctx context.Context, filter domain.EventFilter) ([]*domain.Event, error) {
	events, err := s.catalog.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

func (s *eventService) Update(ctx context.Context, id, actorID string, role domain.Role, upd domain.EventUpdate) (*domain.Event, error) {
	event, err := s.catalog.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if role != domain.RoleAdmin && event.OrganizerID != actorID {
		return nil, domain.ErrForbidden
	}

	if upd.Title != nil {
		event.Title = strings.TrimSpace(*upd.Title)
	}
	if upd.Description != nil {
		event.Description = strings.TrimSpace(*upd.Description)
	}
	if upd.Date != nil {
		event.Date = *upd.Date
	}
	if upd.Venue != nil {
		event.Venue = strings.TrimSpace(*upd.Venue)
	}
	if upd.ImageURL != nil {
		event.ImageURL = *upd.ImageURL
	}
	if upd.Category != nil {
		event.Category = *upd.Category
	}
	if upd.Status != nil {
		event.Status = *upd.Status
	}
	if upd.Requirements != nil {
		event.Requirements = *upd.Requirements
	}
	if upd.DurationMinutes != nil {
		event.DurationMinutes = *upd.DurationMinutes
	}

	if err := validateEventUpdate(event); err != nil {
		return nil, err
	}
	event.UpdatedAt = time.Now()
	if err := s.catalog.Update(ctx, event); err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	return event, nil
}

// validateEventUpdate relaxes the future-date rule: postponed or finished
// events legitimately carry past dates.
func validateEventUpdate(event *domain.Event) error {
	if len(event.Title) < minTitleLen || len(event.Title) > maxTitleLen {
		return fmt.Errorf("%w: title must be between %d and %d characters", domain.ErrInvalidInput, minTitleLen, maxTitleLen)
	}
	if len(event.Description) < minDescriptionLen {
		return fmt.Errorf("%w: description must be at least %d characters", domain.ErrInvalidInput, minDescriptionLen)
	}
	if event.Venue == "" {
		return fmt.Errorf("%w: venue is required", domain.ErrInvalidInput)
	}
	if !event.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", domain.ErrInvalidInput, event.Category)
	}
	if !event.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, event.Status)
	}
	if event.DurationMinutes < 0 {
		return fmt.Errorf("%w: duration cannot be negative", domain.ErrInvalidInput)
	}
	return nil
}

// Delete removes an event. It refuses while confirmed enrollments exist.
// The purge is ordered so that a failure between the two stores leaves a
// consistent, retryable state: ledger rows go first; if the catalog delete
// then fails, the event simply remains with zero enrollments.
func (s *eventService) Delete(ctx context.Context, id, actorID string, role domain.Role) error {
	event, err := s.catalog.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("get event: %w", err)
	}
	if role != domain.RoleAdmin && event.OrganizerID != actorID {
		return domain.ErrForbidden
	}

	// Fast precondition check; the purge re-checks it under row locks, so
	// a payment confirming in between still aborts the delete.
	confirmed, err := s.enrollments.CountConfirmed(ctx, id)
	if err != nil {
		return fmt.Errorf("count confirmed enrollments: %w", err)
	}
	if confirmed > 0 {
		return domain.ErrEventHasConfirmed
	}

	if err := s.enrollments.DeleteByEvent(ctx, id); err != nil {
		if errors.Is(err, domain.ErrEventHasConfirmed) {
			return domain.ErrEventHasConfirmed
		}
		return fmt.Errorf("purge enrollments: %w", err)
	}
	if err := s.catalog.Delete(ctx, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}
