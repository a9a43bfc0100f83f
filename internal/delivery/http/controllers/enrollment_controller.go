package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	h "inscribo/internal/delivery/http/helpers"
	"inscribo/internal/delivery/http/middleware"
	"inscribo/internal/domain"
)

// EnrollmentResponse is the enrollment payload returned by admission and
// lifecycle endpoints. RemainingCapacity is null for unlimited events and
// omitted where not applicable.
type EnrollmentResponse struct {
	Enrollment        *domain.Enrollment `json:"enrollment"`
	RemainingCapacity *int64             `json:"remaining_capacity,omitempty"`
}

// EnrollmentSuccessResponse is the success response envelope for enrollment writes.
type EnrollmentSuccessResponse struct {
	Data  EnrollmentResponse `json:"data"`
	Error *h.APIError        `json:"error"`
}

// EnrollmentDetailResponse is the response body for GET /enrollments/{enrollmentID}.
type EnrollmentDetailResponse struct {
	Enrollment *domain.Enrollment `json:"enrollment"`
	Event      *domain.Event      `json:"event"`
	Payments   []*domain.Payment  `json:"payments"`
}

// EnrollmentDetailSuccessResponse is the success response envelope for GET /enrollments/{enrollmentID} (200).
type EnrollmentDetailSuccessResponse struct {
	Data  EnrollmentDetailResponse `json:"data"`
	Error *h.APIError              `json:"error"`
}

// EnrollmentListResponse is the response body for GET /enrollments.
type EnrollmentListResponse struct {
	Enrollments []*domain.Enrollment `json:"enrollments"`
	Pagination  h.PaginationMeta     `json:"pagination"`
}

// EnrollmentListSuccessResponse is the success response envelope for GET /enrollments (200).
type EnrollmentListSuccessResponse struct {
	Data  EnrollmentListResponse `json:"data"`
	Error *h.APIError            `json:"error"`
}

// MyEnrollmentsSuccessResponse is the success response envelope for GET /users/me/enrollments (200).
type MyEnrollmentsSuccessResponse struct {
	Data  []*domain.EnrollmentWithEvent `json:"data"`
	Error *h.APIError                   `json:"error"`
}

// PayEnrollmentRequest is the request body for POST /enrollments/{enrollmentID}/payments.
type PayEnrollmentRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Method string          `json:"method"` // optional: card, cash, or transfer (defaults to card)
}

// Validate implements Validator.
func (p PayEnrollmentRequest) Validate() []string {
	var errs []string
	if !p.Amount.IsPositive() {
		errs = append(errs, "amount must be positive")
	}
	method := strings.TrimSpace(strings.ToLower(p.Method))
	switch method {
	case "", domain.MethodCard, domain.MethodCash, domain.MethodTransfer:
	default:
		errs = append(errs, "method must be card, cash, or transfer")
	}
	return errs
}

// PaymentListSuccessResponse is the success response envelope for GET /enrollments/{enrollmentID}/payments (200).
type PaymentListSuccessResponse struct {
	Data  []*domain.Payment `json:"data"`
	Error *h.APIError       `json:"error"`
}

// UpdateEnrollmentStateRequest is the request body for PATCH /enrollments/{enrollmentID}/state.
type UpdateEnrollmentStateRequest struct {
	State string `json:"state"`
}

// Validate implements Validator.
func (u UpdateEnrollmentStateRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(u.State) == "" {
		errs = append(errs, "state is required")
	}
	return errs
}

// EnrollmentController handles admission, lifecycle, and payment endpoints.
type EnrollmentController struct {
	Logger    *slog.Logger
	Admission domain.AdmissionService
	Service   domain.EnrollmentService
}

func NewEnrollmentController(logger *slog.Logger, admission domain.AdmissionService, svc domain.EnrollmentService) *EnrollmentController {
	return &EnrollmentController{
		Logger:    logger,
		Admission: admission,
		Service:   svc,
	}
}

// enrollmentIDFromPath parses the enrollmentID path segment. Writes a 400 and
// returns false when it is not a positive integer.
func enrollmentIDFromPath(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.PathValue("enrollmentID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeBadRequest, "invalid enrollmentID")
		return 0, false
	}
	return id, true
}

// RequestEnrollment godoc
// @Summary Enroll in an event
// @Description Request admission into an event. Free events confirm immediately; paid events start pending until a payment is recorded. Fails with 409 when the event is full or the user already has an active enrollment.
// @Tags enrollments
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Success 201 {object} controllers.EnrollmentSuccessResponse "data contains the enrollment and remaining capacity"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 422 {object} helpers.APIResponse "error.code: bad_request (event already finished)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/enrollments [post]
func (c *EnrollmentController) RequestEnrollment(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeBadRequest, "missing eventID")
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "unauthorized")
		return
	}
	enrollment, remaining, err := c.Admission.RequestEnrollment(r.Context(), userID, eventID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			h.WriteJSONError(w, http.StatusNotFound, h.ErrCodeNotFound, "event not found")
		case errors.Is(err, domain.ErrEventFinished):
			h.WriteJSONError(w, http.StatusUnprocessableEntity, h.ErrCodeBadRequest, "event already finished")
		case errors.Is(err, domain.ErrCapacityExceeded):
			h.WriteJSONError(w, http.StatusConflict, h.ErrCodeConflict, "event is full")
		case errors.Is(err, domain.ErrDuplicateEnrollment):
			h.WriteJSONError(w, http.StatusConflict, h.ErrCodeConflict, "already enrolled in this event")
		default:
			c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
			h.WriteJSONError(w, http.StatusInternalServerError, h.ErrCodeInternalError, err.Error())
		}
		return
	}
	h.WriteJSONSuccess(w, http.StatusCreated, EnrollmentResponse{Enrollment: enrollment, RemainingCapacity: remaining})
}

// ListMine godoc
// @Summary List the authenticated user's enrollments
// @Description Returns all enrollments for the authenticated user with their events. The event is null when it has since been deleted.
// @Tags enrollments
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.MyEnrollmentsSuccessResponse "data contains enrollments with events"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /users/me/enrollments [get]
func (c *EnrollmentController) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "unauthorized")
		return
	}
	enrollments, err := c.Service.ListMine(r.Context(), userID)
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		h.WriteJSONError(w, http.StatusInternalServerError, h.ErrCodeInternalError, err.Error())
		return
	}
	if enrollments == nil {
		enrollments = []*domain.EnrollmentWithEvent{}
	}
	h.WriteJSONSuccess(w, http.StatusOK, enrollments)
}

// List godoc
// @Summary List all enrollments
// @Description Paginated list of all enrollments. Admin only.
// @Tags enrollments
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} controllers.EnrollmentListSuccessResponse "data contains enrollments and pagination"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /enrollments [get]
func (c *EnrollmentController) List(w http.ResponseWriter, r *http.Request) {
	params := h.ParsePagination(r)
	enrollments, total, err := c.Service.List(r.Context(), params)
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		h.WriteJSONError(w, http.StatusInternalServerError, h.ErrCodeInternalError, err.Error())
		return
	}
	if enrollments == nil {
		enrollments = []*domain.Enrollment{}
	}
	h.WriteJSONSuccess(w, http.StatusOK, EnrollmentListResponse{
		Enrollments: enrollments,
		Pagination:  h.NewPaginationMeta(params.Page, params.PageSize, total),
	})
}

// Get godoc
// @Summary Get an enrollment by ID
// @Description Returns the enrollment, its event (null if deleted), and its payments. Users may only read their own enrollments; admins may read any.
// @Tags enrollments
// @Produce json
// @Security BearerAuth
// @Param enrollmentID path int true "Enrollment ID"
// @Success 200 {object} controllers.EnrollmentDetailSuccessResponse "data contains enrollment, event, and payments"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /enrollments/{enrollmentID} [get]
func (c *EnrollmentController) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := enrollmentIDFromPath(w, r)
	if !ok {
		return
	}
	userID, role, ok := identity(r)
	if !ok {
		h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "unauthorized")
		return
	}
	withEvent, payments, err := c.Service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			h.WriteJSONError(w, http.StatusNotFound, h.ErrCodeNotFound, "enrollment not found")
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		h.WriteJSONError(w, http.StatusInternalServerError, h.ErrCodeInternalError, err.Error())
		return
	}
	if role != domain.RoleAdmin && withEvent.Enrollment.UserID != userID {
		h.WriteJSONError(w, http.StatusForbidden, h.ErrCodeForbidden, "not your enrollment")
		return
	}
	if payments == nil {
		payments = []*domain.Payment{}
	}
	h.WriteJSONSuccess(w, http.StatusOK, EnrollmentDetailResponse{
		Enrollment: withEvent.Enrollment,
		Event:      withEvent.Event,
		Payments:   payments,
	})
}

// Pay godoc
// @Summary Record a payment for an enrollment
// @Description Records a completed payment and confirms the pending enrollment. The payment and the state change commit together. Users may only pay their own enrollments; admins may pay any.
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param enrollmentID path int true "Enrollment ID"
// @Param body body PayEnrollmentRequest true "Payment details"
// @Success 200 {object} controllers.EnrollmentSuccessResponse "data contains the confirmed enrollment"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (not pending)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /enrollments/{enrollmentID}/payments [post]
func (c *EnrollmentController) Pay(w http.ResponseWriter, r *http.Request) {
	id, ok := enrollmentIDFromPath(w, r)
	if !ok {
		return
	}
	var req PayEnrollmentRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, role, ok := identity(r)
	if !ok {
		h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "unauthorized")
		return
	}
	withEvent, _, err := c.Service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			h.WriteJSONError(w, http.StatusNotFound, h.ErrCodeNotFound, "enrollment not found")
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		h.WriteJSONError(w, http.StatusInternalServerError, h.ErrCodeInternalError, err.Error())
		return
	}
	if role != domain.RoleAdmin && withEvent.Enrollment.UserID != userID {
		h.WriteJSONError(w, http.StatusForbidden, h.ErrCodeForbidden, "not your enrollment")
		return
	}

	enrollment, err := c.Service.ConfirmViaPayment(r.Context(), id, domain.PaymentInput{
		Amount: req.Amount,
		Method: strings.TrimSpace(strings.ToLower(req.Method)),
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidStateTransition):
			h.WriteJSONError(w, http.StatusConflict, h.ErrCodeConflict, "enrollment is not pending")
		case errors.Is(err, domain.ErrInvalidInput):
			h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeBadRequest, err.Error())
		default:
			c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
			h.WriteJSONError(w, http.StatusInternalServerError, h.ErrCodeInternalError, err.Error())
		}
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, EnrollmentResponse{Enrollment: enrollment})
}

// ListPayments godoc
// @Summary List payments for an enrollment
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Param enrollmentID path int true "Enrollment ID"
// @Success 200 {object} controllers.PaymentListSuccessResponse "data contains payments"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /enrollments/{enrollmentID}/payments [get]
func (c *EnrollmentController) ListPayments(w http.ResponseWriter, r *http.Request) {
	id, ok := enrollmentIDFromPath(w, r)
	if !ok {
		return
	}
	userID, role, ok := identity(r)
	if !ok {
		h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "unauthorized")
		return
	}
	withEvent, payments, err := c.Service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			h.WriteJSONError(w, http.StatusNotFound, h.ErrCodeNotFound, "enrollment not found")
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		h.WriteJSONError(w, http.StatusInternalServerError, h.ErrCodeInternalError, err.Error())
		return
	}
	if role != domain.RoleAdmin && withEvent.Enrollment.UserID != userID {
		h.WriteJSONError(w, http.StatusForbidden, h.ErrCodeForbidden, "not your enrollment")
		return
	}
	if payments == nil {
		payments = []*domain.Payment{}
	}
	h.WriteJSONSuccess(w, http.StatusOK, payments)
}

// Cancel godoc
// @Summary Cancel an enrollment
// @Description Cancels the enrollment and voids its payments. Users may cancel their own enrollments until 24 hours before the event; admins may cancel any enrollment at any time. Cancelled is terminal.
// @Tags enrollments
// @Produce json
// @Security BearerAuth
// @Param enrollmentID path int true "Enrollment ID"
// @Success 200 {object} controllers.EnrollmentSuccessResponse "data contains the cancelled enrollment"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (already cancelled)"
// @Failure 422 {object} helpers.APIResponse "error.code: bad_request (cancellation window closed)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /enrollments/{enrollmentID}/cancel [post]
func (c *EnrollmentController) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := enrollmentIDFromPath(w, r)
	if !ok {
		return
	}
	userID, role, ok := identity(r)
	if !ok {
		h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "unauthorized")
		return
	}
	enrollment, err := c.Service.Cancel(r.Context(), id, userID, role)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			h.WriteJSONError(w, http.StatusNotFound, h.ErrCodeNotFound, "enrollment not found")
		case errors.Is(err, domain.ErrForbidden):
			h.WriteJSONError(w, http.StatusForbidden, h.ErrCodeForbidden, "not your enrollment")
		case errors.Is(err, domain.ErrInvalidStateTransition):
			h.WriteJSONError(w, http.StatusConflict, h.ErrCodeConflict, "enrollment already cancelled")
		case errors.Is(err, domain.ErrCancellationWindowClosed):
			h.WriteJSONError(w, http.StatusUnprocessableEntity, h.ErrCodeBadRequest, "cancellation window closed")
		default:
			c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
			h.WriteJSONError(w, http.StatusInternalServerError, h.ErrCodeInternalError, err.Error())
		}
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, EnrollmentResponse{Enrollment: enrollment})
}

// UpdateState godoc
// @Summary Update enrollment state
// @Description Explicitly move an enrollment to a new state. Admin only. Confirming a paid event's enrollment requires a completed payment. Illegal transitions fail with 409.
// @Tags enrollments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param enrollmentID path int true "Enrollment ID"
// @Param body body UpdateEnrollmentStateRequest true "Target state"
// @Success 200 {object} controllers.EnrollmentSuccessResponse "data contains the updated enrollment"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (illegal transition)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /enrollments/{enrollmentID}/state [patch]
func (c *EnrollmentController) UpdateState(w http.ResponseWriter, r *http.Request) {
	id, ok := enrollmentIDFromPath(w, r)
	if !ok {
		return
	}
	var req UpdateEnrollmentStateRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	target := domain.EnrollmentState(strings.TrimSpace(strings.ToLower(req.State)))
	enrollment, err := c.Service.UpdateState(r.Context(), id, target)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			h.WriteJSONError(w, http.StatusNotFound, h.ErrCodeNotFound, "enrollment not found")
		case errors.Is(err, domain.ErrInvalidStateTransition):
			h.WriteJSONError(w, http.StatusConflict, h.ErrCodeConflict, "illegal state transition")
		default:
			c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
			h.WriteJSONError(w, http.StatusInternalServerError, h.ErrCodeInternalError, err.Error())
		}
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, EnrollmentResponse{Enrollment: enrollment})
}

// Delete godoc
// @Summary Delete an enrollment
// @Description Hard-delete an enrollment and its payments. Admin only.
// @Tags enrollments
// @Produce json
// @Security BearerAuth
// @Param enrollmentID path int true "Enrollment ID"
// @Success 200 {object} helpers.APIResponse "data contains a confirmation message"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /enrollments/{enrollmentID} [delete]
func (c *EnrollmentController) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := enrollmentIDFromPath(w, r)
	if !ok {
		return
	}
	if err := c.Service.AdminDelete(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			h.WriteJSONError(w, http.StatusNotFound, h.ErrCodeNotFound, "enrollment not found")
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		h.WriteJSONError(w, http.StatusInternalServerError, h.ErrCodeInternalError, err.Error())
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, map[string]string{"message": "enrollment deleted"})
}
