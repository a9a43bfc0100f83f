package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	h "inscribo/internal/delivery/http/helpers"
	"inscribo/internal/delivery/http/middleware"
	"inscribo/internal/domain"
)

// CreateEventRequest is the request body for POST /events.
type CreateEventRequest struct {
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	Date            time.Time       `json:"date"`
	Venue           string          `json:"venue"`
	Capacity        *int64          `json:"capacity"`
	Price           decimal.Decimal `json:"price"`
	ImageURL        string          `json:"image_url"`
	Category        string          `json:"category"`
	Requirements    string          `json:"requirements"`
	DurationMinutes int             `json:"duration_minutes"`
}

// Validate implements Validator. Full validation happens in the service;
// this catches the obviously malformed requests early.
func (c CreateEventRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(c.Title) == "" {
		errs = append(errs, "title is required")
	}
	if strings.TrimSpace(c.Description) == "" {
		errs = append(errs, "description is required")
	}
	if c.Date.IsZero() {
		errs = append(errs, "date is required")
	}
	if strings.TrimSpace(c.Venue) == "" {
		errs = append(errs, "venue is required")
	}
	return errs
}

// UpdateEventRequest is the request body for PATCH /events/{eventID}.
// All fields optional; omitted fields are unchanged. Capacity cannot be
// changed after creation.
type UpdateEventRequest struct {
	Title           *string    `json:"title"`
	Description     *string    `json:"description"`
	Date            *time.Time `json:"date"`
	Venue           *string    `json:"venue"`
	ImageURL        *string    `json:"image_url"`
	Category        *string    `json:"category"`
	Status          *string    `json:"status"`
	Requirements    *string    `json:"requirements"`
	DurationMinutes *int       `json:"duration_minutes"`
}

// EventSuccessResponse is the success response envelope for event writes.
type EventSuccessResponse struct {
	Data  *domain.Event `json:"data"`
	Error *h.APIError   `json:"error"`
}

// EventDetailSuccessResponse is the success response envelope for GET /events/{eventID} (200).
type EventDetailSuccessResponse struct {
	Data  *domain.EventWithAvailability `json:"data"`
	Error *h.APIError                   `json:"error"`
}

// EventListSuccessResponse is the success response envelope for GET /events (200).
type EventListSuccessResponse struct {
	Data  []*domain.Event `json:"data"`
	Error *h.APIError     `json:"error"`
}

// EventStatisticsSuccessResponse is the success response envelope for GET /events/{eventID}/statistics (200).
type EventStatisticsSuccessResponse struct {
	Data  *domain.EventStatistics `json:"data"`
	Error *h.APIError             `json:"error"`
}

// EventController handles event catalog endpoints.
type EventController struct {
	Logger     *slog.Logger
	Service    domain.EventService
	Statistics domain.StatisticsService
}

func NewEventController(logger *slog.Logger, svc domain.EventService, stats domain.StatisticsService) *EventController {
	return &EventController{
		Logger:     logger,
		Service:    svc,
		Statistics: stats,
	}
}

// Create godoc
// @Summary Create a new event
// @Description Create an event in the catalog. The authenticated user becomes the organizer. Capacity omitted or null means unlimited; price 0 means free (enrollments confirm immediately).
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param event body CreateEventRequest true "Event data"
// @Success 201 {object} controllers.EventSuccessResponse "data contains the created event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [post]
func (c *EventController) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "unauthorized")
		return
	}
	event := &domain.Event{
		Title:           req.Title,
		Description:     req.Description,
		Date:            req.Date,
		Venue:           req.Venue,
		Capacity:        req.Capacity,
		Price:           req.Price,
		ImageURL:        req.ImageURL,
		Category:        domain.EventCategory(strings.ToLower(strings.TrimSpace(req.Category))),
		Requirements:    req.Requirements,
		DurationMinutes: req.DurationMinutes,
	}
	created, err := c.Service.Create(r.Context(), userID, event)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeBadRequest, err.Error())
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		h.WriteJSONError(w, http.StatusInternalServerError, h.ErrCodeInternalError, err.Error())
		return
	}
	h.WriteJSONSuccess(w, http.StatusCreated, created)
}

// List godoc
// @Summary List events
// @Description List catalog events, optionally filtered by status, category, free-text search, date range, or upcoming only.
// @Tags events
// @Produce json
// @Param status query string false "Filter by status (active, cancelled, finished, postponed)"
// @Param category query string false "Filter by category"
// @Param search query string false "Free-text search on title and description"
// @Param from query string false "Earliest event date (RFC3339)"
// @Param to query string false "Latest event date (RFC3339)"
// @Param upcoming query bool false "Only events with a future date"
// @Success 200 {object} controllers.EventListSuccessResponse "data contains events"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [get]
func (c *EventController) List(w http.ResponseWriter, r *http.Request) {
	var filter domain.EventFilter
	q := r.URL.Query()
	if s := q.Get("status"); s != "" {
		status := domain.EventStatus(strings.ToLower(s))
		if !status.Valid() {
			h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeBadRequest, "unknown status")
			return
		}
		filter.Status = &status
	}
	if s := q.Get("category"); s != "" {
		category := domain.EventCategory(strings.ToLower(s))
		if !category.Valid() {
			h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeBadRequest, "unknown category")
			return
		}
		filter.Category = &category
	}
	filter.Search = strings.TrimSpace(q.Get("search"))
	if s := q.Get("from"); s != "" {
		ts, err := time.Parse(time.RFC3339, s)
		if err != nil {
			h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeBadRequest, "from must be RFC3339")
			return
		}
		filter.From = &ts
	}
	if s := q.Get("to"); s != "" {
		ts, err := time.Parse(time.RFC3339, s)
		if err != nil {
			h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeBadRequest, "to must be RFC3339")
			return
		}
		filter.To = &ts
	}
	filter.UpcomingOnly = q.Get("upcoming") == "true"

	events, err := c.Service.List(r.Context(), filter)
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		h.WriteJSONError(w, http.StatusInternalServerError, h.ErrCodeInternalError, err.Error())
		return
	}
	if events == nil {
		events = []*domain.Event{}
	}
	h.WriteJSONSuccess(w, http.StatusOK, events)
}

// Get godoc
// @Summary Get an event by ID
// @Description Returns the event with its current enrollment count and remaining spots (null for unlimited events).
// @Tags events
// @Produce json
// @Param eventID path string true "Event ID"
// @Success 200 {object} controllers.EventDetailSuccessResponse "data contains the event and availability"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID} [get]
func (c *EventController) Get(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeBadRequest, "missing eventID")
		return
	}
	event, err := c.Service.Get(r.Context(), eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			h.WriteJSONError(w, http.StatusNotFound, h.ErrCodeNotFound, "event not found")
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		h.WriteJSONError(w, http.StatusInternalServerError, h.ErrCodeInternalError, err.Error())
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, event)
}

// Update godoc
// @Summary Update an event
// @Description Partially update an event. Only the organizer or an admin may update. Capacity cannot be changed.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Param event body UpdateEventRequest true "Fields to update"
// @Success 200 {object} controllers.EventSuccessResponse "data contains the updated event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID} [patch]
func (c *EventController) Update(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	var req UpdateEventRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, role, ok := identity(r)
	if !ok {
		h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "unauthorized")
		return
	}
	upd := domain.EventUpdate{
		Title:           req.Title,
		Description:     req.Description,
		Date:            req.Date,
		Venue:           req.Venue,
		ImageURL:        req.ImageURL,
		Requirements:    req.Requirements,
		DurationMinutes: req.DurationMinutes,
	}
	if req.Category != nil {
		category := domain.EventCategory(strings.ToLower(strings.TrimSpace(*req.Category)))
		upd.Category = &category
	}
	if req.Status != nil {
		status := domain.EventStatus(strings.ToLower(strings.TrimSpace(*req.Status)))
		upd.Status = &status
	}
	event, err := c.Service.Update(r.Context(), eventID, userID, role, upd)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			h.WriteJSONError(w, http.StatusNotFound, h.ErrCodeNotFound, "event not found")
		case errors.Is(err, domain.ErrForbidden):
			h.WriteJSONError(w, http.StatusForbidden, h.ErrCodeForbidden, "not the event organizer")
		case errors.Is(err, domain.ErrInvalidInput):
			h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeBadRequest, err.Error())
		default:
			c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
			h.WriteJSONError(w, http.StatusInternalServerError, h.ErrCodeInternalError, err.Error())
		}
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, event)
}

// Delete godoc
// @Summary Delete an event
// @Description Delete an event and purge its enrollments. Refused with 409 while the event has confirmed enrollments. Only the organizer or an admin may delete.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Success 200 {object} helpers.APIResponse "data contains a confirmation message"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID} [delete]
func (c *EventController) Delete(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	userID, role, ok := identity(r)
	if !ok {
		h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "unauthorized")
		return
	}
	if err := c.Service.Delete(r.Context(), eventID, userID, role); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			h.WriteJSONError(w, http.StatusNotFound, h.ErrCodeNotFound, "event not found")
		case errors.Is(err, domain.ErrForbidden):
			h.WriteJSONError(w, http.StatusForbidden, h.ErrCodeForbidden, "not the event organizer")
		case errors.Is(err, domain.ErrEventHasConfirmed):
			h.WriteJSONError(w, http.StatusConflict, h.ErrCodeConflict, "event has confirmed enrollments")
		default:
			c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
			h.WriteJSONError(w, http.StatusInternalServerError, h.ErrCodeInternalError, err.Error())
		}
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, map[string]string{"message": "event deleted"})
}

// GetStatistics godoc
// @Summary Get event statistics
// @Description Returns enrollment counts by state, revenue totals, and occupancy for an event. Occupancy is a percentage of capacity, or "Sin límite" for unlimited events. Organizer or admin only.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Success 200 {object} controllers.EventStatisticsSuccessResponse "data contains the statistics"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/statistics [get]
func (c *EventController) GetStatistics(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeBadRequest, "missing eventID")
		return
	}
	stats, err := c.Statistics.EventStatistics(r.Context(), eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			h.WriteJSONError(w, http.StatusNotFound, h.ErrCodeNotFound, "event not found")
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		h.WriteJSONError(w, http.StatusInternalServerError, h.ErrCodeInternalError, err.Error())
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, stats)
}

// identity reads the authenticated user ID and role from the request context.
func identity(r *http.Request) (string, domain.Role, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		return "", "", false
	}
	role, ok := middleware.RoleFromContext(r.Context())
	if !ok {
		return "", "", false
	}
	return userID, role, true
}
