package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/zatekoja/Clinicqueuedesign/internal/application/services"
	"github.com/zatekoja/Clinicqueuedesign/internal/domain/entities"
	"github.com/zatekoja/Clinicqueuedesign/internal/domain/repositories"
)

// SessionControls defines the interface for session lifecycle operations
type SessionControls interface {
	CreateSession(ctx context.Context, request services.CreateSessionRequest) (*entities.Session, error)
	GetSession(ctx context.Context, sessionID string) (*entities.Session, error)
	ListProviderSessions(ctx context.Context, providerID string, filter repositories.SessionFilter) ([]*entities.Session, error)
	StartSession(ctx context.Context, sessionID string) (*entities.Session, error)
	PauseSession(ctx context.Context, sessionID, reason string, resumeAt *time.Time) error
	ResumeSession(ctx context.Context, sessionID string) error
	UpdateAverageServiceMinutes(ctx context.Context, sessionID string, minutes int) (*entities.Session, error)
	CompleteSession(ctx context.Context, sessionID string) (*entities.Session, error)
	CancelSession(ctx context.Context, sessionID, actorID, actorRole, reason string) error
}

// SessionHandler handles session management requests
type SessionHandler struct {
	sessions SessionControls
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions SessionControls) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

type createSessionPayload struct {
	ProviderID        string    `json:"provider_id"`
	LocationID        string    `json:"location_id"`
	StartTime         time.Time `json:"start_time"`
	EndTime           time.Time `json:"end_time"`
	AvgServiceMinutes int       `json:"avg_service_minutes"`
	BufferMinutes     int       `json:"buffer_minutes"`
	CapacityOverride  int       `json:"capacity_override"`
	ConsultationFee   float64   `json:"consultation_fee"`
	Currency          string    `json:"currency"`
}

type pauseSessionPayload struct {
	Reason   string     `json:"reason"`
	ResumeAt *time.Time `json:"resume_at"`
}

type updatePacePayload struct {
	AvgServiceMinutes int `json:"avg_service_minutes"`
}

type cancelSessionPayload struct {
	ActorID   string `json:"actor_id"`
	ActorRole string `json:"actor_role"`
	Reason    string `json:"reason"`
}

// CreateSession handles POST /api/sessions
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var payload createSessionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	session, err := h.sessions.CreateSession(r.Context(), services.CreateSessionRequest{
		ProviderID:        payload.ProviderID,
		LocationID:        payload.LocationID,
		StartTime:         payload.StartTime,
		EndTime:           payload.EndTime,
		AvgServiceMinutes: payload.AvgServiceMinutes,
		BufferMinutes:     payload.BufferMinutes,
		CapacityOverride:  payload.CapacityOverride,
		ConsultationFee:   payload.ConsultationFee,
		Currency:          payload.Currency,
	})
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, session)
}

// GetSession handles GET /api/sessions/{id}
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	if sessionID == "" {
		respondWithError(w, http.StatusBadRequest, "session ID is required")
		return
	}

	session, err := h.sessions.GetSession(r.Context(), sessionID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, session)
}

// ListProviderSessions handles GET /api/providers/{id}/sessions
func (h *SessionHandler) ListProviderSessions(w http.ResponseWriter, r *http.Request) {
	providerID := r.PathValue("id")
	if providerID == "" {
		respondWithError(w, http.StatusBadRequest, "provider ID is required")
		return
	}

	filter := repositories.SessionFilter{
		Status: entities.SessionStatus(r.URL.Query().Get("status")),
		Limit:  20,
	}
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && limit > 0 && limit <= 100 {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && offset > 0 {
		filter.Offset = offset
	}
	if from, err := time.Parse(time.RFC3339, r.URL.Query().Get("from")); err == nil {
		filter.From = &from
	}
	if to, err := time.Parse(time.RFC3339, r.URL.Query().Get("to")); err == nil {
		filter.To = &to
	}

	sessions, err := h.sessions.ListProviderSessions(r.Context(), providerID, filter)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// StartSession handles POST /api/sessions/{id}/start
func (h *SessionHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	if sessionID == "" {
		respondWithError(w, http.StatusBadRequest, "session ID is required")
		return
	}

	session, err := h.sessions.StartSession(r.Context(), sessionID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, session)
}

// PauseSession handles POST /api/sessions/{id}/pause
func (h *SessionHandler) PauseSession(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	if sessionID == "" {
		respondWithError(w, http.StatusBadRequest, "session ID is required")
		return
	}

	var payload pauseSessionPayload
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid request payload")
			return
		}
	}

	if err := h.sessions.PauseSession(r.Context(), sessionID, payload.Reason, payload.ResumeAt); err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{
		"status": string(entities.SessionStatusPaused),
	})
}

// ResumeSession handles POST /api/sessions/{id}/resume
func (h *SessionHandler) ResumeSession(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	if sessionID == "" {
		respondWithError(w, http.StatusBadRequest, "session ID is required")
		return
	}

	if err := h.sessions.ResumeSession(r.Context(), sessionID); err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{
		"status": string(entities.SessionStatusLive),
	})
}

// UpdatePace handles PATCH /api/sessions/{id}/pace
func (h *SessionHandler) UpdatePace(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	if sessionID == "" {
		respondWithError(w, http.StatusBadRequest, "session ID is required")
		return
	}

	var payload updatePacePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	session, err := h.sessions.UpdateAverageServiceMinutes(r.Context(), sessionID, payload.AvgServiceMinutes)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, session)
}

// CompleteSession handles POST /api/sessions/{id}/complete
func (h *SessionHandler) CompleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	if sessionID == "" {
		respondWithError(w, http.StatusBadRequest, "session ID is required")
		return
	}

	session, err := h.sessions.CompleteSession(r.Context(), sessionID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, session)
}

// CancelSession handles POST /api/sessions/{id}/cancel
func (h *SessionHandler) CancelSession(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	if sessionID == "" {
		respondWithError(w, http.StatusBadRequest, "session ID is required")
		return
	}

	var payload cancelSessionPayload
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid request payload")
			return
		}
	}

	if err := h.sessions.CancelSession(r.Context(), sessionID, payload.ActorID, payload.ActorRole, payload.Reason); err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{
		"status": string(entities.SessionStatusCancelled),
	})
}
