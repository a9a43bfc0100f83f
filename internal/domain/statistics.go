package domain

import "context"

// OccupancyUnlimited is the occupancy string reported for events without a
// capacity limit. Kept verbatim from the platform's public contract.
const OccupancyUnlimited = "Sin límite"

// EventStatistics joins the catalog document with ledger aggregates.
// Occupancy is confirmed/capacity as a percentage with two decimals
// ("70.00%"), or OccupancyUnlimited when capacity is nil.
// swagger:model EventStatistics
type EventStatistics struct {
	Event       *Event           `json:"event"`
	Enrollments EnrollmentCounts `json:"enrollments"`
	Revenue     RevenueSummary   `json:"revenue"`
	Occupancy   string           `json:"occupancy"`
}

// StatisticsService derives occupancy and revenue reporting for an event.
// Reads are not serialized with writes; a slightly stale but internally
// consistent snapshot is acceptable.
type StatisticsService interface {
	EventStatistics(ctx context.Context, eventID string) (*EventStatistics, error)
}
