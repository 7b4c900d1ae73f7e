package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/zatekoja/Clinicqueuedesign/internal/api/handlers"
	"github.com/zatekoja/Clinicqueuedesign/internal/application/services"
	"github.com/zatekoja/Clinicqueuedesign/internal/domain/entities"
	apperrors "github.com/zatekoja/Clinicqueuedesign/pkg/errors"
)

type MockBookingCoordinator struct {
	mock.Mock
}

func (m *MockBookingCoordinator) IssueToken(ctx context.Context, request services.IssueTokenRequest) (*entities.Token, *entities.Booking, error) {
	args := m.Called(ctx, request)
	var token *entities.Token
	var booking *entities.Booking
	if args.Get(0) != nil {
		token = args.Get(0).(*entities.Token)
	}
	if args.Get(1) != nil {
		booking = args.Get(1).(*entities.Booking)
	}
	return token, booking, args.Error(2)
}

func (m *MockBookingCoordinator) GetBooking(ctx context.Context, bookingID string) (*entities.Booking, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Booking), args.Error(1)
}

func (m *MockBookingCoordinator) ListPatientBookings(ctx context.Context, patientID string, limit, offset int) ([]*entities.Booking, error) {
	args := m.Called(ctx, patientID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Booking), args.Error(1)
}

type MockTokenLifecycle struct {
	mock.Mock
}

func (m *MockTokenLifecycle) transition(ctx context.Context, method string, request services.TransitionRequest) (*entities.Token, error) {
	args := m.MethodCalled(method, ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Token), args.Error(1)
}

func (m *MockTokenLifecycle) CallToken(ctx context.Context, request services.TransitionRequest) (*entities.Token, error) {
	return m.transition(ctx, "CallToken", request)
}

func (m *MockTokenLifecycle) MarkVisited(ctx context.Context, request services.TransitionRequest) (*entities.Token, error) {
	return m.transition(ctx, "MarkVisited", request)
}

func (m *MockTokenLifecycle) CompleteToken(ctx context.Context, request services.TransitionRequest) (*entities.Token, error) {
	return m.transition(ctx, "CompleteToken", request)
}

func (m *MockTokenLifecycle) SkipToken(ctx context.Context, request services.TransitionRequest) (*entities.Token, error) {
	return m.transition(ctx, "SkipToken", request)
}

func (m *MockTokenLifecycle) RecallToken(ctx context.Context, request services.TransitionRequest) (*entities.Token, error) {
	return m.transition(ctx, "RecallToken", request)
}

func (m *MockTokenLifecycle) MarkNoShow(ctx context.Context, request services.TransitionRequest) (*entities.Token, error) {
	return m.transition(ctx, "MarkNoShow", request)
}

func (m *MockTokenLifecycle) CancelToken(ctx context.Context, request services.TransitionRequest) (*entities.Token, error) {
	return m.transition(ctx, "CancelToken", request)
}

func (m *MockTokenLifecycle) GetToken(ctx context.Context, tokenID string) (*entities.Token, error) {
	args := m.Called(ctx, tokenID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Token), args.Error(1)
}

type MockQueueStateReader struct {
	mock.Mock
}

func (m *MockQueueStateReader) GetSessionState(ctx context.Context, sessionID string) (*entities.QueueState, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.QueueState), args.Error(1)
}

func newQueueHandler() (*handlers.QueueHandler, *MockBookingCoordinator, *MockTokenLifecycle, *MockQueueStateReader) {
	booking := new(MockBookingCoordinator)
	lifecycle := new(MockTokenLifecycle)
	state := new(MockQueueStateReader)
	return handlers.NewQueueHandler(booking, lifecycle, state), booking, lifecycle, state
}

func TestQueueHandler_IssueToken(t *testing.T) {
	t.Run("issues a token", func(t *testing.T) {
		handler, booking, _, _ := newQueueHandler()

		payload := map[string]interface{}{
			"patient_id":        "patient-1",
			"payment_reference": "pay-1",
			"actor_id":          "patient-1",
			"actor_role":        "patient",
		}
		body, _ := json.Marshal(payload)
		req := httptest.NewRequest("POST", "/api/sessions/session-1/tokens", bytes.NewBuffer(body))
		req.SetPathValue("id", "session-1")
		w := httptest.NewRecorder()

		booking.On("IssueToken", mock.Anything, mock.MatchedBy(func(r services.IssueTokenRequest) bool {
			return r.SessionID == "session-1" && r.PatientID == "patient-1" && r.PaymentReference == "pay-1"
		})).Return(
			&entities.Token{ID: "token-1", TokenNumber: 1, Status: entities.TokenStatusWaiting},
			&entities.Booking{ID: "booking-1"},
			nil,
		)

		handler.IssueToken(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		booking.AssertExpectations(t)
	})

	t.Run("returns bad request for invalid payload", func(t *testing.T) {
		handler, _, _, _ := newQueueHandler()

		req := httptest.NewRequest("POST", "/api/sessions/session-1/tokens", bytes.NewBufferString("invalid-json"))
		req.SetPathValue("id", "session-1")
		w := httptest.NewRecorder()

		handler.IssueToken(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("maps payment failures to 402", func(t *testing.T) {
		handler, booking, _, _ := newQueueHandler()

		body, _ := json.Marshal(map[string]interface{}{"patient_id": "patient-1", "payment_reference": "pay-1"})
		req := httptest.NewRequest("POST", "/api/sessions/session-1/tokens", bytes.NewBuffer(body))
		req.SetPathValue("id", "session-1")
		w := httptest.NewRecorder()

		booking.On("IssueToken", mock.Anything, mock.Anything).
			Return(nil, nil, apperrors.NewPaymentInvalidError("Payment has not been completed"))

		handler.IssueToken(w, req)

		assert.Equal(t, http.StatusPaymentRequired, w.Code)
		var response map[string]string
		json.Unmarshal(w.Body.Bytes(), &response)
		assert.Equal(t, "Payment has not been completed", response["error"])
	})

	t.Run("maps full sessions to 409", func(t *testing.T) {
		handler, booking, _, _ := newQueueHandler()

		body, _ := json.Marshal(map[string]interface{}{"patient_id": "patient-1", "payment_reference": "pay-1"})
		req := httptest.NewRequest("POST", "/api/sessions/session-1/tokens", bytes.NewBuffer(body))
		req.SetPathValue("id", "session-1")
		w := httptest.NewRecorder()

		booking.On("IssueToken", mock.Anything, mock.Anything).
			Return(nil, nil, apperrors.NewConflictError("Session is fully booked"))

		handler.IssueToken(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestQueueHandler_Transitions(t *testing.T) {
	t.Run("calls a token with an empty body", func(t *testing.T) {
		handler, _, lifecycle, _ := newQueueHandler()

		req := httptest.NewRequest("POST", "/api/tokens/token-1/call", nil)
		req.SetPathValue("id", "token-1")
		w := httptest.NewRecorder()

		lifecycle.On("CallToken", mock.Anything, mock.MatchedBy(func(r services.TransitionRequest) bool {
			return r.TokenID == "token-1"
		})).Return(&entities.Token{ID: "token-1", Status: entities.TokenStatusCalled}, nil)

		handler.CallToken(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		lifecycle.AssertExpectations(t)
	})

	t.Run("passes the actor through", func(t *testing.T) {
		handler, _, lifecycle, _ := newQueueHandler()

		body, _ := json.Marshal(map[string]string{"actor_id": "provider-1", "actor_role": "provider"})
		req := httptest.NewRequest("POST", "/api/tokens/token-1/complete", bytes.NewBuffer(body))
		req.SetPathValue("id", "token-1")
		w := httptest.NewRecorder()

		lifecycle.On("CompleteToken", mock.Anything, mock.MatchedBy(func(r services.TransitionRequest) bool {
			return r.ActorID == "provider-1" && r.ActorRole == "provider"
		})).Return(&entities.Token{ID: "token-1", Status: entities.TokenStatusCompleted}, nil)

		handler.CompleteToken(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("maps invalid transitions to 422", func(t *testing.T) {
		handler, _, lifecycle, _ := newQueueHandler()

		req := httptest.NewRequest("POST", "/api/tokens/token-1/visit", nil)
		req.SetPathValue("id", "token-1")
		w := httptest.NewRecorder()

		lifecycle.On("MarkVisited", mock.Anything, mock.Anything).
			Return(nil, apperrors.NewInvalidStateError("Token cannot move from waiting to visited"))

		handler.MarkVisited(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("maps exhausted recalls to 409", func(t *testing.T) {
		handler, _, lifecycle, _ := newQueueHandler()

		req := httptest.NewRequest("POST", "/api/tokens/token-1/recall", nil)
		req.SetPathValue("id", "token-1")
		w := httptest.NewRecorder()

		lifecycle.On("RecallToken", mock.Anything, mock.Anything).
			Return(nil, apperrors.NewConflictError("Maximum recalls reached for this token"))

		handler.RecallToken(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("maps missing tokens to 404", func(t *testing.T) {
		handler, _, lifecycle, _ := newQueueHandler()

		req := httptest.NewRequest("GET", "/api/tokens/missing", nil)
		req.SetPathValue("id", "missing")
		w := httptest.NewRecorder()

		lifecycle.On("GetToken", mock.Anything, "missing").
			Return(nil, apperrors.NewNotFoundError("Token not found"))

		handler.GetToken(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestQueueHandler_GetBooking(t *testing.T) {
	t.Run("returns the booking", func(t *testing.T) {
		handler, booking, _, _ := newQueueHandler()

		req := httptest.NewRequest("GET", "/api/bookings/booking-1", nil)
		req.SetPathValue("id", "booking-1")
		w := httptest.NewRecorder()

		booking.On("GetBooking", mock.Anything, "booking-1").
			Return(&entities.Booking{ID: "booking-1", SessionID: "session-1"}, nil)

		handler.GetBooking(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var got entities.Booking
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, "booking-1", got.ID)
	})

	t.Run("maps missing bookings to 404", func(t *testing.T) {
		handler, booking, _, _ := newQueueHandler()

		req := httptest.NewRequest("GET", "/api/bookings/missing", nil)
		req.SetPathValue("id", "missing")
		w := httptest.NewRecorder()

		booking.On("GetBooking", mock.Anything, "missing").
			Return(nil, apperrors.NewNotFoundError("Booking not found"))

		handler.GetBooking(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestQueueHandler_ListPatientBookings(t *testing.T) {
	t.Run("lists bookings with paging from the query string", func(t *testing.T) {
		handler, booking, _, _ := newQueueHandler()

		req := httptest.NewRequest("GET", "/api/patients/patient-1/bookings?limit=5&offset=10", nil)
		req.SetPathValue("id", "patient-1")
		w := httptest.NewRecorder()

		booking.On("ListPatientBookings", mock.Anything, "patient-1", 5, 10).
			Return([]*entities.Booking{{ID: "booking-1"}}, nil)

		handler.ListPatientBookings(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var response struct {
			Bookings []*entities.Booking `json:"bookings"`
			Count    int                 `json:"count"`
		}
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, 1, response.Count)
		booking.AssertExpectations(t)
	})

	t.Run("requires a patient id", func(t *testing.T) {
		handler, booking, _, _ := newQueueHandler()

		req := httptest.NewRequest("GET", "/api/patients//bookings", nil)
		w := httptest.NewRecorder()

		handler.ListPatientBookings(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		booking.AssertNotCalled(t, "ListPatientBookings", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestQueueHandler_GetSessionState(t *testing.T) {
	t.Run("returns the queue snapshot", func(t *testing.T) {
		handler, _, _, state := newQueueHandler()

		req := httptest.NewRequest("GET", "/api/sessions/session-1/queue", nil)
		req.SetPathValue("id", "session-1")
		w := httptest.NewRecorder()

		state.On("GetSessionState", mock.Anything, "session-1").
			Return(&entities.QueueState{SessionID: "session-1", AvgServiceMinutes: 15}, nil)

		handler.GetSessionState(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var snapshot entities.QueueState
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &snapshot))
		assert.Equal(t, "session-1", snapshot.SessionID)
	})

	t.Run("requires a session id", func(t *testing.T) {
		handler, _, _, state := newQueueHandler()

		req := httptest.NewRequest("GET", "/api/sessions//queue", nil)
		w := httptest.NewRecorder()

		handler.GetSessionState(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		state.AssertNotCalled(t, "GetSessionState", mock.Anything, mock.Anything)
	})
}
