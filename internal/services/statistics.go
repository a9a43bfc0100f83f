package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"inscribo/internal/domain"
)

var oneHundred = decimal.NewFromInt(100)

type statisticsService struct {
	catalog     domain.EventCatalog
	enrollments domain.EnrollmentRepository
	payments    domain.PaymentRepository
}

// NewStatisticsService creates the StatisticsService joining the catalog
// with both ledgers.
func NewStatisticsService(catalog domain.EventCatalog, enrollments domain.EnrollmentRepository, payments domain.PaymentRepository) domain.StatisticsService {
	return &statisticsService{
		catalog:     catalog,
		enrollments: enrollments,
		payments:    payments,
	}
}

func (s *statisticsService) EventStatistics(ctx context.Context, eventID string) (*domain.EventStatistics, error) {
	event, err := s.catalog.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}

	counts, err := s.enrollments.CountsByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("count enrollments: %w", err)
	}
	revenue, err := s.payments.SummaryByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("summarize payments: %w", err)
	}

	return &domain.EventStatistics{
		Event:       event,
		Enrollments: *counts,
		Revenue:     *revenue,
		Occupancy:   occupancy(counts.Confirmed, event.Capacity),
	}, nil
}

// occupancy renders confirmed/capacity as a percentage with two decimals,
// or the unlimited marker when no capacity is set.
func occupancy(confirmed int64, capacity *int64) string {
	if capacity == nil {
		return domain.OccupancyUnlimited
	}
	ratio := decimal.NewFromInt(confirmed).Mul(oneHundred).Div(decimal.NewFromInt(*capacity))
	return ratio.StringFixed(2) + "%"
}
