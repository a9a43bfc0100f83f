package controllers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"

	"inscribo/internal/delivery/http/middleware"
	"inscribo/internal/domain"
)

// testLogger is a no-op logger for controller tests so we don't assert on log output.
var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

// authedRequest builds a request carrying an authenticated identity and any
// path values the handler reads.
func authedRequest(method, target, body, userID string, role domain.Role, pathValues map[string]string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, "http://test"+target, reader)
	if userID != "" {
		req = req.WithContext(middleware.SetIdentity(req.Context(), userID, role))
	}
	for k, v := range pathValues {
		req.SetPathValue(k, v)
	}
	return req
}

// fakeAuthService implements domain.AuthService for handler tests.
type fakeAuthService struct {
	user       *domain.User
	token      string
	signUpErr  error
	loginErr   error
	profileErr error
}

func (f *fakeAuthService) SignUp(ctx context.Context, email, password, name string, role domain.Role) (*domain.User, string, error) {
	if f.signUpErr != nil {
		return nil, "", f.signUpErr
	}
	return f.user, f.token, nil
}

func (f *fakeAuthService) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	if f.loginErr != nil {
		return nil, "", f.loginErr
	}
	return f.user, f.token, nil
}

func (f *fakeAuthService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	return f.user, nil
}

func (f *fakeAuthService) UpdateProfile(ctx context.Context, userID string, name *string) (*domain.User, error) {
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	if name != nil {
		f.user.Name = *name
	}
	return f.user, nil
}

// fakeEventService implements domain.EventService for handler tests.
type fakeEventService struct {
	event       *domain.Event
	withAvail   *domain.EventWithAvailability
	events      []*domain.Event
	err         error
	lastActorID string
	lastRole    domain.Role
	lastFilter  domain.EventFilter
}

func (f *fakeEventService) Create(ctx context.Context, organizerID string, event *domain.Event) (*domain.Event, error) {
	f.lastActorID = organizerID
	if f.err != nil {
		return nil, f.err
	}
	return f.event, nil
}

func (f *fakeEventService) Get(ctx context.Context, id string) (*domain.EventWithAvailability, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.withAvail, nil
}

func (f *fakeEventService) List(ctx context.Context, filter domain.EventFilter) ([]*domain.Event, error) {
	f.lastFilter = filter
	if f.err != nil {
		return nil, f.err
	}
	return f.events, nil
}

func (f *fakeEventService) Update(ctx context.Context, id, actorID string, role domain.Role, upd domain.EventUpdate) (*domain.Event, error) {
	f.lastActorID, f.lastRole = actorID, role
	if f.err != nil {
		return nil, f.err
	}
	return f.event, nil
}

func (f *fakeEventService) Delete(ctx context.Context, id, actorID string, role domain.Role) error {
	f.lastActorID, f.lastRole = actorID, role
	return f.err
}

// fakeStatisticsService implements domain.StatisticsService for handler tests.
type fakeStatisticsService struct {
	stats *domain.EventStatistics
	err   error
}

func (f *fakeStatisticsService) EventStatistics(ctx context.Context, eventID string) (*domain.EventStatistics, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.stats, nil
}

// fakeAdmissionService implements domain.AdmissionService for handler tests.
type fakeAdmissionService struct {
	enrollment *domain.Enrollment
	remaining  *int64
	err        error
	lastUserID string
	lastEvent  string
}

func (f *fakeAdmissionService) RequestEnrollment(ctx context.Context, userID, eventID string) (*domain.Enrollment, *int64, error) {
	f.lastUserID, f.lastEvent = userID, eventID
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.enrollment, f.remaining, nil
}

// fakeEnrollmentService implements domain.EnrollmentService for handler tests.
type fakeEnrollmentService struct {
	withEvent   *domain.EnrollmentWithEvent
	payments    []*domain.Payment
	enrollment  *domain.Enrollment
	enrollments []*domain.Enrollment
	mine        []*domain.EnrollmentWithEvent
	total       int
	getErr      error
	err         error
}

func (f *fakeEnrollmentService) Get(ctx context.Context, id int64) (*domain.EnrollmentWithEvent, []*domain.Payment, error) {
	if f.getErr != nil {
		return nil, nil, f.getErr
	}
	return f.withEvent, f.payments, nil
}

func (f *fakeEnrollmentService) List(ctx context.Context, params domain.PaginationParams) ([]*domain.Enrollment, int, error) {
	if f.err != nil {
		return nil, 0, f.err
	}
	return f.enrollments, f.total, nil
}

func (f *fakeEnrollmentService) ListMine(ctx context.Context, userID string) ([]*domain.EnrollmentWithEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.mine, nil
}

func (f *fakeEnrollmentService) ConfirmViaPayment(ctx context.Context, enrollmentID int64, in domain.PaymentInput) (*domain.Enrollment, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.enrollment, nil
}

func (f *fakeEnrollmentService) Cancel(ctx context.Context, enrollmentID int64, actorID string, role domain.Role) (*domain.Enrollment, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.enrollment, nil
}

func (f *fakeEnrollmentService) UpdateState(ctx context.Context, enrollmentID int64, target domain.EnrollmentState) (*domain.Enrollment, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.enrollment, nil
}

func (f *fakeEnrollmentService) AdminDelete(ctx context.Context, enrollmentID int64) error {
	return f.err
}
