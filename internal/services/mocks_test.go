package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"inscribo/internal/domain"
)

// fakeCatalog is an in-memory EventCatalog for tests.
type fakeCatalog struct {
	byID   map[string]*domain.Event
	nextID int
	err    error // if set, every method returns this error
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		byID:   make(map[string]*domain.Event),
		nextID: 1,
	}
}

func (f *fakeCatalog) Create(ctx context.Context, e *domain.Event) error {
	if f.err != nil {
		return f.err
	}
	if e.ID == "" {
		e.ID = fmt.Sprintf("ev-%d", f.nextID)
		f.nextID++
	}
	f.byID[e.ID] = e
	return nil
}

func (f *fakeCatalog) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	if e, ok := f.byID[id]; ok {
		return e, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeCatalog) List(ctx context.Context, filter domain.EventFilter) ([]*domain.Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*domain.Event
	for _, e := range f.byID {
		if filter.Status != nil && e.Status != *filter.Status {
			continue
		}
		if filter.Category != nil && e.Category != *filter.Category {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeCatalog) Update(ctx context.Context, e *domain.Event) error {
	if f.err != nil {
		return f.err
	}
	if _, ok := f.byID[e.ID]; !ok {
		return domain.ErrNotFound
	}
	f.byID[e.ID] = e
	return nil
}

func (f *fakeCatalog) Delete(ctx context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	if _, ok := f.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

// fakeEnrollmentRepo is an in-memory enrollment ledger. Admit takes a real
// mutex so concurrent admissions exercise the same serialization the
// Postgres advisory lock provides.
type fakeEnrollmentRepo struct {
	mu     sync.Mutex
	byID   map[int64]*domain.Enrollment
	nextID int64
	err    error // if set, every method returns this error
}

func newFakeEnrollmentRepo() *fakeEnrollmentRepo {
	return &fakeEnrollmentRepo{
		byID:   make(map[int64]*domain.Enrollment),
		nextID: 1,
	}
}

func (f *fakeEnrollmentRepo) put(e *domain.Enrollment) *domain.Enrollment {
	f.mu.Lock()
	defer f.mu.Unlock()
	e.ID = f.nextID
	f.nextID++
	f.byID[e.ID] = e
	return e
}

func (f *fakeEnrollmentRepo) Admit(ctx context.Context, enrollment *domain.Enrollment, capacity *int64) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	var active int64
	for _, e := range f.byID {
		if e.EventID != enrollment.EventID || !e.State.Active() {
			continue
		}
		if e.UserID == enrollment.UserID {
			return 0, domain.ErrDuplicateEnrollment
		}
		active++
	}
	if capacity != nil && active >= *capacity {
		return 0, domain.ErrCapacityExceeded
	}
	enrollment.ID = f.nextID
	f.nextID++
	f.byID[enrollment.ID] = enrollment
	return active + 1, nil
}

func (f *fakeEnrollmentRepo) GetByID(ctx context.Context, id int64) (*domain.Enrollment, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.byID[id]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeEnrollmentRepo) List(ctx context.Context, params domain.PaginationParams) ([]*domain.Enrollment, int, error) {
	if f.err != nil {
		return nil, 0, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Enrollment
	for _, e := range f.byID {
		out = append(out, e)
	}
	return out, len(out), nil
}

func (f *fakeEnrollmentRepo) ListByUser(ctx context.Context, userID string) ([]*domain.Enrollment, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Enrollment
	for _, e := range f.byID {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeEnrollmentRepo) CountActive(ctx context.Context, eventID string) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, e := range f.byID {
		if e.EventID == eventID && e.State.Active() {
			n++
		}
	}
	return n, nil
}

func (f *fakeEnrollmentRepo) CountConfirmed(ctx context.Context, eventID string) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, e := range f.byID {
		if e.EventID == eventID && e.State == domain.EnrollmentConfirmed {
			n++
		}
	}
	return n, nil
}

func (f *fakeEnrollmentRepo) CountsByEvent(ctx context.Context, eventID string) (*domain.EnrollmentCounts, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := &domain.EnrollmentCounts{}
	for _, e := range f.byID {
		if e.EventID != eventID {
			continue
		}
		counts.Total++
		switch e.State {
		case domain.EnrollmentConfirmed:
			counts.Confirmed++
		case domain.EnrollmentPending:
			counts.Pending++
		case domain.EnrollmentCancelled:
			counts.Cancelled++
		}
	}
	return counts, nil
}

func (f *fakeEnrollmentRepo) ConfirmWithPayment(ctx context.Context, enrollmentID int64, payment *domain.Payment) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.byID[enrollmentID]
	if !ok {
		return domain.ErrNotFound
	}
	if e.State != domain.EnrollmentPending {
		return domain.ErrInvalidStateTransition
	}
	e.State = domain.EnrollmentConfirmed
	return nil
}

func (f *fakeEnrollmentRepo) CancelWithPayments(ctx context.Context, enrollmentID int64) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.byID[enrollmentID]
	if !ok {
		return domain.ErrNotFound
	}
	if e.State == domain.EnrollmentCancelled {
		return domain.ErrInvalidStateTransition
	}
	e.State = domain.EnrollmentCancelled
	return nil
}

func (f *fakeEnrollmentRepo) UpdateState(ctx context.Context, id int64, from, to domain.EnrollmentState) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	if e.State != from {
		return domain.ErrInvalidStateTransition
	}
	e.State = to
	return nil
}

func (f *fakeEnrollmentRepo) Delete(ctx context.Context, id int64) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeEnrollmentRepo) DeleteByEvent(ctx context.Context, eventID string) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.byID {
		if e.EventID == eventID && e.State == domain.EnrollmentConfirmed {
			return domain.ErrEventHasConfirmed
		}
	}
	for id, e := range f.byID {
		if e.EventID == eventID {
			delete(f.byID, id)
		}
	}
	return nil
}

// fakePaymentRepo is an in-memory payment ledger.
type fakePaymentRepo struct {
	byID    map[int64]*domain.Payment
	byEvent map[string]*domain.RevenueSummary
	nextID  int64
	err     error
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{
		byID:    make(map[int64]*domain.Payment),
		byEvent: make(map[string]*domain.RevenueSummary),
		nextID:  1,
	}
}

func (f *fakePaymentRepo) Create(ctx context.Context, p *domain.Payment) error {
	if f.err != nil {
		return f.err
	}
	p.ID = f.nextID
	f.nextID++
	f.byID[p.ID] = p
	return nil
}

func (f *fakePaymentRepo) ListByEnrollment(ctx context.Context, enrollmentID int64) ([]*domain.Payment, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*domain.Payment
	for _, p := range f.byID {
		if p.EnrollmentID == enrollmentID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePaymentRepo) HasCompleted(ctx context.Context, enrollmentID int64) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	for _, p := range f.byID {
		if p.EnrollmentID == enrollmentID && p.State == domain.PaymentCompleted {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakePaymentRepo) SummaryByEvent(ctx context.Context, eventID string) (*domain.RevenueSummary, error) {
	if f.err != nil {
		return nil, f.err
	}
	if s, ok := f.byEvent[eventID]; ok {
		return s, nil
	}
	return &domain.RevenueSummary{}, nil
}

func (f *fakePaymentRepo) UpdateState(ctx context.Context, id int64, state domain.PaymentState) error {
	if f.err != nil {
		return f.err
	}
	p, ok := f.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.State = state
	return nil
}

// fakeUserRepo is an in-memory UserRepository.
type fakeUserRepo struct {
	byID   map[string]*domain.User
	nextID int
	err    error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byID:   make(map[string]*domain.User),
		nextID: 1,
	}
}

func (f *fakeUserRepo) Create(ctx context.Context, u *domain.User) error {
	if f.err != nil {
		return f.err
	}
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return domain.ErrDuplicateEmail
		}
	}
	u.ID = fmt.Sprintf("u-%d", f.nextID)
	f.nextID++
	f.byID[u.ID] = u
	return nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeUserRepo) UpdateProfile(ctx context.Context, id string, name *string) (*domain.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if name != nil {
		u.Name = *name
	}
	u.UpdatedAt = time.Now()
	return u, nil
}

// fakeEmailService records sends instead of delivering them.
type fakeEmailService struct {
	welcomes  []*domain.WelcomeEmailData
	confirmed []*domain.EnrollmentConfirmedEmailData
	err       error
}

func (f *fakeEmailService) SendWelcomeMessage(ctx context.Context, data *domain.WelcomeEmailData) error {
	if f.err != nil {
		return f.err
	}
	f.welcomes = append(f.welcomes, data)
	return nil
}

func (f *fakeEmailService) SendEnrollmentConfirmed(ctx context.Context, data *domain.EnrollmentConfirmedEmailData) error {
	if f.err != nil {
		return f.err
	}
	f.confirmed = append(f.confirmed, data)
	return nil
}

func int64Ptr(v int64) *int64 { return &v }

func priced(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

// activeEvent returns a catalog event open for enrollment tomorrow.
func activeEvent(id string, capacity *int64, price decimal.Decimal) *domain.Event {
	return &domain.Event{
		ID:          id,
		Title:       "Go Conference 2026",
		Description: "Two days of talks about building services in Go.",
		Date:        time.Now().Add(48 * time.Hour),
		Venue:       "Main Hall",
		Capacity:    capacity,
		Price:       price,
		Category:    domain.CategoryConference,
		Status:      domain.EventActive,
		OrganizerID: "org-1",
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
}
