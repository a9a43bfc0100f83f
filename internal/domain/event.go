package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// EventStatus is the publication status of an event in the catalog.
type EventStatus string

const (
	EventActive    EventStatus = "active"
	EventCancelled EventStatus = "cancelled"
	EventFinished  EventStatus = "finished"
	EventPostponed EventStatus = "postponed"
)

// Valid reports whether s is one of the defined statuses.
func (s EventStatus) Valid() bool {
	switch s {
	case EventActive, EventCancelled, EventFinished, EventPostponed:
		return true
	}
	return false
}

// EventCategory classifies an event for listing filters.
type EventCategory string

const (
	CategoryConference EventCategory = "conference"
	CategoryWorkshop   EventCategory = "workshop"
	CategorySeminar    EventCategory = "seminar"
	CategoryCultural   EventCategory = "cultural"
	CategorySports     EventCategory = "sports"
	CategoryOther      EventCategory = "other"
)

// Valid reports whether c is one of the defined categories.
func (c EventCategory) Valid() bool {
	switch c {
	case CategoryConference, CategoryWorkshop, CategorySeminar, CategoryCultural, CategorySports, CategoryOther:
		return true
	}
	return false
}

// Event is a catalog document. The catalog owns the event lifecycle;
// enrollments reference events by ID only (weak reference). Capacity nil
// means unlimited, and once set it is never changed by the enrollment core.
// swagger:model Event
type Event struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	Date            time.Time       `json:"date"`
	Venue           string          `json:"venue"`
	Capacity        *int64          `json:"capacity"`
	Price           decimal.Decimal `json:"price"`
	ImageURL        string          `json:"image_url,omitempty"`
	Category        EventCategory   `json:"category"`
	Status          EventStatus     `json:"status"`
	OrganizerID     string          `json:"organizer_id"`
	Requirements    string          `json:"requirements,omitempty"`
	DurationMinutes int             `json:"duration_minutes,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Free reports whether enrolling in the event requires no payment.
func (e *Event) Free() bool {
	return e.Price.IsZero()
}

// Occurred reports whether the event date has passed at the given instant.
func (e *Event) Occurred(now time.Time) bool {
	return !e.Date.After(now)
}

// EventFilter narrows catalog listing queries. Nil/zero fields are ignored.
type EventFilter struct {
	Status       *EventStatus
	Category     *EventCategory
	Search       string
	From         *time.Time
	To           *time.Time
	UpcomingOnly bool
}

// EventCatalog is the document store holding events. It is independent of
// the enrollment ledger: no transaction ever spans both stores.
type EventCatalog interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	List(ctx context.Context, filter EventFilter) ([]*Event, error)
	Update(ctx context.Context, event *Event) error
	Delete(ctx context.Context, id string) error
}

// EventUpdate carries optional event fields for partial updates. Nil fields
// are left unchanged. Capacity is deliberately absent: once set it is not
// edited through this path.
type EventUpdate struct {
	Title           *string
	Description     *string
	Date            *time.Time
	Venue           *string
	ImageURL        *string
	Category        *EventCategory
	Status          *EventStatus
	Requirements    *string
	DurationMinutes *int
}

// EventWithAvailability bundles an event with its current enrollment load.
// AvailableSpots is nil for unlimited events.
type EventWithAvailability struct {
	Event          *Event `json:"event"`
	Enrolled       int64  `json:"enrolled"`
	AvailableSpots *int64 `json:"available_spots"`
}

// EventService defines catalog management operations. Delete refuses to
// remove an event that still has confirmed enrollments, and purges the
// event's ledger rows before removing the catalog document.
type EventService interface {
	Create(ctx context.Context, organizerID string, event *Event) (*Event, error)
	Get(ctx context.Context, id string) (*EventWithAvailability, error)
	List(ctx context.Context, filter EventFilter) ([]*Event, error)
	Update(ctx context.Context, id, actorID string, role Role, upd EventUpdate) (*Event, error)
	Delete(ctx context.Context, id, actorID string, role Role) error
}
