package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inscribo/internal/domain"
)

func validEventInput() *domain.Event {
	return &domain.Event{
		Title:       "Go Conference 2026",
		Description: "Two days of talks about building services in Go.",
		Date:        time.Now().Add(30 * 24 * time.Hour),
		Venue:       "Main Hall",
		Capacity:    int64Ptr(200),
		Price:       priced(75),
	}
}

func TestEventCreate_Defaults(t *testing.T) {
	svc := NewEventService(newFakeCatalog(), newFakeEnrollmentRepo())

	got, err := svc.Create(context.Background(), "org-1", validEventInput())
	require.NoError(t, err)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "org-1", got.OrganizerID)
	assert.Equal(t, domain.CategoryOther, got.Category)
	assert.Equal(t, domain.EventActive, got.Status)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestEventCreate_Validation(t *testing.T) {
	svc := NewEventService(newFakeCatalog(), newFakeEnrollmentRepo())

	cases := []struct {
		name   string
		mutate func(*domain.Event)
	}{
		{"short title", func(e *domain.Event) { e.Title = "Go" }},
		{"short description", func(e *domain.Event) { e.Description = "Talks." }},
		{"missing venue", func(e *domain.Event) { e.Venue = "  " }},
		{"past date", func(e *domain.Event) { e.Date = time.Now().Add(-time.Hour) }},
		{"zero capacity", func(e *domain.Event) { e.Capacity = int64Ptr(0) }},
		{"negative price", func(e *domain.Event) { e.Price = priced(-1) }},
		{"unknown category", func(e *domain.Event) { e.Category = domain.EventCategory("circus") }},
		{"negative duration", func(e *domain.Event) { e.DurationMinutes = -10 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			event := validEventInput()
			tc.mutate(event)
			_, err := svc.Create(context.Background(), "org-1", event)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestEventGet_ReportsAvailability(t *testing.T) {
	catalog := newFakeCatalog()
	require.NoError(t, catalog.Create(context.Background(), activeEvent("ev-1", int64Ptr(10), decimal.Zero)))
	enrollments := newFakeEnrollmentRepo()
	for i := 0; i < 4; i++ {
		enrollments.put(domain.NewEnrollment("u", "ev-1", domain.EnrollmentConfirmed, time.Now()))
	}
	enrollments.put(domain.NewEnrollment("u", "ev-1", domain.EnrollmentCancelled, time.Now()))

	svc := NewEventService(catalog, enrollments)
	got, err := svc.Get(context.Background(), "ev-1")
	require.NoError(t, err)
	assert.Equal(t, int64(4), got.Enrolled)
	require.NotNil(t, got.AvailableSpots)
	assert.Equal(t, int64(6), *got.AvailableSpots)
}

func TestEventGet_UnlimitedHasNoSpots(t *testing.T) {
	catalog := newFakeCatalog()
	require.NoError(t, catalog.Create(context.Background(), activeEvent("ev-1", nil, decimal.Zero)))

	svc := NewEventService(catalog, newFakeEnrollmentRepo())
	got, err := svc.Get(context.Background(), "ev-1")
	require.NoError(t, err)
	assert.Nil(t, got.AvailableSpots)
}

func TestEventUpdate_OwnerOnly(t *testing.T) {
	catalog := newFakeCatalog()
	require.NoError(t, catalog.Create(context.Background(), activeEvent("ev-1", nil, decimal.Zero)))
	svc := NewEventService(catalog, newFakeEnrollmentRepo())

	title := "Go Conference 2026, extended edition"
	_, err := svc.Update(context.Background(), "ev-1", "someone-else", domain.RoleOrganizer, domain.EventUpdate{Title: &title})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	got, err := svc.Update(context.Background(), "ev-1", "org-1", domain.RoleOrganizer, domain.EventUpdate{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, got.Title)

	status := domain.EventPostponed
	got, err = svc.Update(context.Background(), "ev-1", "admin-1", domain.RoleAdmin, domain.EventUpdate{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, domain.EventPostponed, got.Status)
}

func TestEventDelete_RefusesWithConfirmed(t *testing.T) {
	catalog := newFakeCatalog()
	require.NoError(t, catalog.Create(context.Background(), activeEvent("ev-1", nil, decimal.Zero)))
	enrollments := newFakeEnrollmentRepo()
	enrollments.put(domain.NewEnrollment("u-1", "ev-1", domain.EnrollmentConfirmed, time.Now()))

	svc := NewEventService(catalog, enrollments)
	err := svc.Delete(context.Background(), "ev-1", "org-1", domain.RoleOrganizer)
	assert.ErrorIs(t, err, domain.ErrEventHasConfirmed)

	// Event must still be in the catalog.
	_, err = catalog.GetByID(context.Background(), "ev-1")
	require.NoError(t, err)
}

// staleCountEnrollmentRepo reports zero confirmed enrollments even when one
// exists, simulating a payment that confirms between the count and the purge.
type staleCountEnrollmentRepo struct {
	*fakeEnrollmentRepo
}

func (r *staleCountEnrollmentRepo) CountConfirmed(ctx context.Context, eventID string) (int64, error) {
	return 0, nil
}

func TestEventDelete_ConfirmationDuringPurgeAborts(t *testing.T) {
	catalog := newFakeCatalog()
	require.NoError(t, catalog.Create(context.Background(), activeEvent("ev-1", nil, decimal.Zero)))
	enrollments := &staleCountEnrollmentRepo{fakeEnrollmentRepo: newFakeEnrollmentRepo()}
	enrollments.put(domain.NewEnrollment("u-1", "ev-1", domain.EnrollmentConfirmed, time.Now()))

	svc := NewEventService(catalog, enrollments)
	err := svc.Delete(context.Background(), "ev-1", "org-1", domain.RoleOrganizer)
	assert.ErrorIs(t, err, domain.ErrEventHasConfirmed)

	_, err = catalog.GetByID(context.Background(), "ev-1")
	require.NoError(t, err)
	counts, err := enrollments.CountsByEvent(context.Background(), "ev-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts.Confirmed)
}

func TestEventDelete_PurgesLedgerRows(t *testing.T) {
	catalog := newFakeCatalog()
	require.NoError(t, catalog.Create(context.Background(), activeEvent("ev-1", nil, decimal.Zero)))
	enrollments := newFakeEnrollmentRepo()
	enrollments.put(domain.NewEnrollment("u-1", "ev-1", domain.EnrollmentPending, time.Now()))
	enrollments.put(domain.NewEnrollment("u-2", "ev-1", domain.EnrollmentCancelled, time.Now()))

	svc := NewEventService(catalog, enrollments)
	require.NoError(t, svc.Delete(context.Background(), "ev-1", "org-1", domain.RoleOrganizer))

	_, err := catalog.GetByID(context.Background(), "ev-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	counts, err := enrollments.CountsByEvent(context.Background(), "ev-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), counts.Total)
}

func TestEventDelete_NotOwnerForbidden(t *testing.T) {
	catalog := newFakeCatalog()
	require.NoError(t, catalog.Create(context.Background(), activeEvent("ev-1", nil, decimal.Zero)))

	svc := NewEventService(catalog, newFakeEnrollmentRepo())
	err := svc.Delete(context.Background(), "ev-1", "someone-else", domain.RoleOrganizer)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}
