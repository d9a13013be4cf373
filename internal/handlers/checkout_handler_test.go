package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"kickstore/internal/apperror"
	"kickstore/internal/auth"
	"kickstore/internal/config"
	"kickstore/internal/logger"
	"kickstore/internal/models"

	"github.com/google/uuid"
)

func newTestLogger() *logger.Logger {
	return logger.New(&config.LoggerConfig{Level: "error", Format: "json"})
}

type stubCheckoutService struct {
	session *models.CheckoutSession
	err     error
	called  bool
}

func (s *stubCheckoutService) CreateSession(ctx context.Context, userID uuid.UUID, req *models.CreateCheckoutRequest) (*models.CheckoutSession, error) {
	s.called = true
	return s.session, s.err
}

type stubFinalizerService struct {
	order      *models.Order
	verifyErr  error
	webhookErr error
	sigHeader  string
}

func (s *stubFinalizerService) VerifyAndFinalize(ctx context.Context, sessionID string, userID uuid.UUID) (*models.Order, error) {
	return s.order, s.verifyErr
}

func (s *stubFinalizerService) HandleWebhookEvent(ctx context.Context, payload []byte, sigHeader string) error {
	s.sigHeader = sigHeader
	return s.webhookErr
}

func withIdentity(r *http.Request, userID uuid.UUID, isAdmin bool) *http.Request {
	return r.WithContext(auth.WithIdentity(r.Context(), &auth.Identity{UserID: userID, IsAdmin: isAdmin}))
}

func TestCheckoutHandler_CreateSession(t *testing.T) {
	checkout := &stubCheckoutService{session: &models.CheckoutSession{
		URL:       "https://checkout.example.com/cs_1",
		SessionID: "cs_1",
	}}
	h := NewCheckoutHandler(checkout, &stubFinalizerService{}, newTestLogger())

	body, _ := json.Marshal(models.CreateCheckoutRequest{
		Items: []models.CartItem{{ProductID: uuid.New(), Size: "42", Quantity: 1}},
	})
	req := withIdentity(httptest.NewRequest(http.MethodPost, "/api/stripe/create-checkout-session", bytes.NewReader(body)), uuid.New(), false)
	w := httptest.NewRecorder()

	h.CreateSession(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp models.CheckoutSession
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.SessionID != "cs_1" {
		t.Fatalf("expected session cs_1, got %s", resp.SessionID)
	}
}

func TestCheckoutHandler_CreateSession_Unauthenticated(t *testing.T) {
	checkout := &stubCheckoutService{}
	h := NewCheckoutHandler(checkout, &stubFinalizerService{}, newTestLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/stripe/create-checkout-session", bytes.NewReader([]byte("{}")))
	w := httptest.NewRecorder()

	h.CreateSession(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if checkout.called {
		t.Fatal("service must not be called without identity")
	}
}

func TestCheckoutHandler_CreateSession_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", apperror.Validation("cart is empty", nil), http.StatusBadRequest},
		{"missing product", apperror.NotFound("product not found", nil), http.StatusNotFound},
		{"provider down", apperror.Unavailable("payment provider is not available", nil), http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewCheckoutHandler(&stubCheckoutService{err: tt.err}, &stubFinalizerService{}, newTestLogger())

			req := withIdentity(httptest.NewRequest(http.MethodPost, "/api/stripe/create-checkout-session", bytes.NewReader([]byte("{}"))), uuid.New(), false)
			w := httptest.NewRecorder()

			h.CreateSession(w, req)

			if w.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestCheckoutHandler_VerifySession(t *testing.T) {
	orderID := uuid.New()
	finalizer := &stubFinalizerService{order: &models.Order{ID: orderID, Status: models.OrderStatusPaid}}
	h := NewCheckoutHandler(&stubCheckoutService{}, finalizer, newTestLogger())

	req := withIdentity(httptest.NewRequest(http.MethodGet, "/api/stripe/verify-session?session_id=cs_1", nil), uuid.New(), false)
	w := httptest.NewRecorder()

	h.VerifySession(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var order models.Order
	if err := json.NewDecoder(w.Body).Decode(&order); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if order.ID != orderID {
		t.Fatalf("expected order %s, got %s", orderID, order.ID)
	}
}

func TestCheckoutHandler_VerifySession_MissingSessionID(t *testing.T) {
	h := NewCheckoutHandler(&stubCheckoutService{}, &stubFinalizerService{}, newTestLogger())

	req := withIdentity(httptest.NewRequest(http.MethodGet, "/api/stripe/verify-session", nil), uuid.New(), false)
	w := httptest.NewRecorder()

	h.VerifySession(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestCheckoutHandler_VerifySession_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unpaid", apperror.PaymentRequired("payment has not been completed", nil), http.StatusPaymentRequired},
		{"foreign session", apperror.Forbidden("session does not belong to this user", nil), http.StatusForbidden},
		{"unknown session", apperror.NotFound("session not found", nil), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewCheckoutHandler(&stubCheckoutService{}, &stubFinalizerService{verifyErr: tt.err}, newTestLogger())

			req := withIdentity(httptest.NewRequest(http.MethodGet, "/api/stripe/verify-session?session_id=cs_1", nil), uuid.New(), false)
			w := httptest.NewRecorder()

			h.VerifySession(w, req)

			if w.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestCheckoutHandler_Webhook(t *testing.T) {
	finalizer := &stubFinalizerService{}
	h := NewCheckoutHandler(&stubCheckoutService{}, finalizer, newTestLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/stripe/webhook", bytes.NewReader([]byte(`{"type":"checkout.session.completed"}`)))
	req.Header.Set("Stripe-Signature", "t=1,v1=abc")
	w := httptest.NewRecorder()

	h.Webhook(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if finalizer.sigHeader != "t=1,v1=abc" {
		t.Fatalf("signature header not passed through, got %q", finalizer.sigHeader)
	}

	var resp map[string]bool
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp["received"] {
		t.Fatal("expected received:true acknowledgement")
	}
}

func TestCheckoutHandler_Webhook_BadSignature(t *testing.T) {
	finalizer := &stubFinalizerService{webhookErr: apperror.Unauthorized("invalid webhook signature", nil)}
	h := NewCheckoutHandler(&stubCheckoutService{}, finalizer, newTestLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/stripe/webhook", bytes.NewReader([]byte("{}")))
	w := httptest.NewRecorder()

	h.Webhook(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestCheckoutHandler_MethodNotAllowed(t *testing.T) {
	h := NewCheckoutHandler(&stubCheckoutService{}, &stubFinalizerService{}, newTestLogger())

	req := httptest.NewRequest(http.MethodDelete, "/api/stripe/create-checkout-session", nil)
	w := httptest.NewRecorder()

	h.CreateSession(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
}
