package routes

import (
	"net/http"

	"github.com/zatekoja/Clinicqueuedesign/internal/api/handlers"
	"github.com/zatekoja/Clinicqueuedesign/internal/api/middleware"
	"github.com/zatekoja/Clinicqueuedesign/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	sessionHandler *handlers.SessionHandler
	queueHandler   *handlers.QueueHandler
	streamHandler  *handlers.StreamHandler

	metrics *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(
	sessionHandler *handlers.SessionHandler,
	queueHandler *handlers.QueueHandler,
	streamHandler *handlers.StreamHandler,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux: http.NewServeMux(),

		sessionHandler: sessionHandler,
		queueHandler:   queueHandler,
		streamHandler:  streamHandler,

		metrics: metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Health check endpoint
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Session endpoints
	r.mux.HandleFunc("POST /api/sessions", r.sessionHandler.CreateSession)
	r.mux.HandleFunc("GET /api/sessions/{id}", r.sessionHandler.GetSession)
	r.mux.HandleFunc("POST /api/sessions/{id}/start", r.sessionHandler.StartSession)
	r.mux.HandleFunc("POST /api/sessions/{id}/pause", r.sessionHandler.PauseSession)
	r.mux.HandleFunc("POST /api/sessions/{id}/resume", r.sessionHandler.ResumeSession)
	r.mux.HandleFunc("PATCH /api/sessions/{id}/pace", r.sessionHandler.UpdatePace)
	r.mux.HandleFunc("POST /api/sessions/{id}/complete", r.sessionHandler.CompleteSession)
	r.mux.HandleFunc("POST /api/sessions/{id}/cancel", r.sessionHandler.CancelSession)

	r.mux.HandleFunc("GET /api/providers/{id}/sessions", r.sessionHandler.ListProviderSessions)

	// Token issuance and queue state
	r.mux.HandleFunc("POST /api/sessions/{id}/tokens", r.queueHandler.IssueToken)
	r.mux.HandleFunc("GET /api/sessions/{id}/queue", r.queueHandler.GetSessionState)

	// Booking reads
	r.mux.HandleFunc("GET /api/bookings/{id}", r.queueHandler.GetBooking)
	r.mux.HandleFunc("GET /api/patients/{id}/bookings", r.queueHandler.ListPatientBookings)

	// Token lifecycle endpoints
	r.mux.HandleFunc("GET /api/tokens/{id}", r.queueHandler.GetToken)
	r.mux.HandleFunc("POST /api/tokens/{id}/call", r.queueHandler.CallToken)
	r.mux.HandleFunc("POST /api/tokens/{id}/visit", r.queueHandler.MarkVisited)
	r.mux.HandleFunc("POST /api/tokens/{id}/complete", r.queueHandler.CompleteToken)
	r.mux.HandleFunc("POST /api/tokens/{id}/skip", r.queueHandler.SkipToken)
	r.mux.HandleFunc("POST /api/tokens/{id}/recall", r.queueHandler.RecallToken)
	r.mux.HandleFunc("POST /api/tokens/{id}/no-show", r.queueHandler.MarkNoShow)
	r.mux.HandleFunc("POST /api/tokens/{id}/cancel", r.queueHandler.CancelToken)

	// Live queue updates over SSE
	if r.streamHandler != nil {
		r.mux.HandleFunc("GET /api/stream/sessions/{id}", r.streamHandler.StreamSessionUpdates)
	}

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)

	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)

	// HTTP performance optimizations (compression, ETag, cache headers)
	handler = middleware.ResponseOptimization(handler)

	// CORS wraps everything so headers are set on every response
	handler = middleware.CORSMiddleware(handler)

	return handler
}
