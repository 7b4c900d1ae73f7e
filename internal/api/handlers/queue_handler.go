package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/zatekoja/Clinicqueuedesign/internal/application/services"
	"github.com/zatekoja/Clinicqueuedesign/internal/domain/entities"
	apperrors "github.com/zatekoja/Clinicqueuedesign/pkg/errors"
)

// BookingCoordinator defines the interface for token issuance and booking reads
type BookingCoordinator interface {
	IssueToken(ctx context.Context, request services.IssueTokenRequest) (*entities.Token, *entities.Booking, error)
	GetBooking(ctx context.Context, bookingID string) (*entities.Booking, error)
	ListPatientBookings(ctx context.Context, patientID string, limit, offset int) ([]*entities.Booking, error)
}

// TokenLifecycle defines the interface for token state-machine operations
type TokenLifecycle interface {
	CallToken(ctx context.Context, request services.TransitionRequest) (*entities.Token, error)
	MarkVisited(ctx context.Context, request services.TransitionRequest) (*entities.Token, error)
	CompleteToken(ctx context.Context, request services.TransitionRequest) (*entities.Token, error)
	SkipToken(ctx context.Context, request services.TransitionRequest) (*entities.Token, error)
	RecallToken(ctx context.Context, request services.TransitionRequest) (*entities.Token, error)
	MarkNoShow(ctx context.Context, request services.TransitionRequest) (*entities.Token, error)
	CancelToken(ctx context.Context, request services.TransitionRequest) (*entities.Token, error)
	GetToken(ctx context.Context, tokenID string) (*entities.Token, error)
}

// QueueStateReader defines the interface for queue state queries
type QueueStateReader interface {
	GetSessionState(ctx context.Context, sessionID string) (*entities.QueueState, error)
}

// QueueHandler handles token issuance, lifecycle, and queue state requests
type QueueHandler struct {
	booking   BookingCoordinator
	lifecycle TokenLifecycle
	state     QueueStateReader
}

// NewQueueHandler creates a new queue handler
func NewQueueHandler(booking BookingCoordinator, lifecycle TokenLifecycle, state QueueStateReader) *QueueHandler {
	return &QueueHandler{
		booking:   booking,
		lifecycle: lifecycle,
		state:     state,
	}
}

type issueTokenPayload struct {
	PatientID            string `json:"patient_id"`
	Priority             int    `json:"priority"`
	PriorityReason       string `json:"priority_reason"`
	DynamicBufferMinutes int    `json:"dynamic_buffer_minutes"`
	PaymentReference     string `json:"payment_reference"`
	Notes                string `json:"notes"`
	ActorID              string `json:"actor_id"`
	ActorRole            string `json:"actor_role"`
}

type transitionPayload struct {
	ActorID   string `json:"actor_id"`
	ActorRole string `json:"actor_role"`
	Notes     string `json:"notes"`
}

// IssueToken handles POST /api/sessions/{id}/tokens
func (h *QueueHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	if sessionID == "" {
		respondWithError(w, http.StatusBadRequest, "session ID is required")
		return
	}

	var payload issueTokenPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	token, booking, err := h.booking.IssueToken(r.Context(), services.IssueTokenRequest{
		SessionID:            sessionID,
		PatientID:            payload.PatientID,
		Priority:             payload.Priority,
		PriorityReason:       payload.PriorityReason,
		DynamicBufferMinutes: payload.DynamicBufferMinutes,
		PaymentReference:     payload.PaymentReference,
		Notes:                payload.Notes,
		ActorID:              payload.ActorID,
		ActorRole:            payload.ActorRole,
	})
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"token":   token,
		"booking": booking,
	})
}

// GetBooking handles GET /api/bookings/{id}
func (h *QueueHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	bookingID := r.PathValue("id")
	if bookingID == "" {
		respondWithError(w, http.StatusBadRequest, "booking ID is required")
		return
	}

	booking, err := h.booking.GetBooking(r.Context(), bookingID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, booking)
}

// ListPatientBookings handles GET /api/patients/{id}/bookings
func (h *QueueHandler) ListPatientBookings(w http.ResponseWriter, r *http.Request) {
	patientID := r.PathValue("id")
	if patientID == "" {
		respondWithError(w, http.StatusBadRequest, "patient ID is required")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	bookings, err := h.booking.ListPatientBookings(r.Context(), patientID, limit, offset)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"bookings": bookings,
		"count":    len(bookings),
	})
}

// GetToken handles GET /api/tokens/{id}
func (h *QueueHandler) GetToken(w http.ResponseWriter, r *http.Request) {
	tokenID := r.PathValue("id")
	if tokenID == "" {
		respondWithError(w, http.StatusBadRequest, "token ID is required")
		return
	}

	token, err := h.lifecycle.GetToken(r.Context(), tokenID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, token)
}

// GetSessionState handles GET /api/sessions/{id}/queue
func (h *QueueHandler) GetSessionState(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	if sessionID == "" {
		respondWithError(w, http.StatusBadRequest, "session ID is required")
		return
	}

	state, err := h.state.GetSessionState(r.Context(), sessionID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, state)
}

// CallToken handles POST /api/tokens/{id}/call
func (h *QueueHandler) CallToken(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.lifecycle.CallToken)
}

// MarkVisited handles POST /api/tokens/{id}/visit
func (h *QueueHandler) MarkVisited(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.lifecycle.MarkVisited)
}

// CompleteToken handles POST /api/tokens/{id}/complete
func (h *QueueHandler) CompleteToken(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.lifecycle.CompleteToken)
}

// SkipToken handles POST /api/tokens/{id}/skip
func (h *QueueHandler) SkipToken(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.lifecycle.SkipToken)
}

// RecallToken handles POST /api/tokens/{id}/recall
func (h *QueueHandler) RecallToken(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.lifecycle.RecallToken)
}

// MarkNoShow handles POST /api/tokens/{id}/no-show
func (h *QueueHandler) MarkNoShow(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.lifecycle.MarkNoShow)
}

// CancelToken handles POST /api/tokens/{id}/cancel
func (h *QueueHandler) CancelToken(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.lifecycle.CancelToken)
}

func (h *QueueHandler) transition(w http.ResponseWriter, r *http.Request, apply func(context.Context, services.TransitionRequest) (*entities.Token, error)) {
	tokenID := r.PathValue("id")
	if tokenID == "" {
		respondWithError(w, http.StatusBadRequest, "token ID is required")
		return
	}

	var payload transitionPayload
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid request payload")
			return
		}
	}

	token, err := apply(r.Context(), services.TransitionRequest{
		TokenID:   tokenID,
		ActorID:   payload.ActorID,
		ActorRole: payload.ActorRole,
		Notes:     payload.Notes,
	})
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, token)
}

// Helper functions
func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

// respondWithServiceError relays the stable AppError message verbatim and
// maps the error type to a status code
func respondWithServiceError(w http.ResponseWriter, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	switch appErr.Type {
	case apperrors.ErrorTypeNotFound:
		respondWithError(w, http.StatusNotFound, appErr.Message)
	case apperrors.ErrorTypeValidation:
		respondWithError(w, http.StatusBadRequest, appErr.Message)
	case apperrors.ErrorTypeInvalidState:
		respondWithError(w, http.StatusUnprocessableEntity, appErr.Message)
	case apperrors.ErrorTypeConflict:
		respondWithError(w, http.StatusConflict, appErr.Message)
	case apperrors.ErrorTypePaymentInvalid:
		respondWithError(w, http.StatusPaymentRequired, appErr.Message)
	case apperrors.ErrorTypeForbidden:
		respondWithError(w, http.StatusForbidden, appErr.Message)
	case apperrors.ErrorTypeExternal:
		respondWithError(w, http.StatusBadGateway, appErr.Message)
	default:
		respondWithError(w, http.StatusInternalServerError, appErr.Message)
	}
}
