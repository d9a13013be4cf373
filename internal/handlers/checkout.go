package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"kickstore/internal/auth"
	"kickstore/internal/logger"
	"kickstore/internal/models"
)

// Вебхук-запросы больше мегабайта не читаем.
const maxWebhookBody = 1 << 20

// CheckoutHandler обрабатывает оформление заказа и платёжные колбэки.
type CheckoutHandler struct {
	checkout  CheckoutService
	finalizer FinalizerService
	log       *logger.Logger
}

// NewCheckoutHandler создаёт обработчик оформления заказа.
func NewCheckoutHandler(checkout CheckoutService, finalizer FinalizerService, log *logger.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		checkout:  checkout,
		finalizer: finalizer,
		log:       log,
	}
}

// CreateSession создаёт платёжную сессию для корзины пользователя.
func (h *CheckoutHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeErrorResponse(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req models.CreateCheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	session, err := h.checkout.CreateSession(r.Context(), identity.UserID, &req)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to create checkout session")
		return
	}

	writeJSONResponse(w, http.StatusOK, session)
}

// VerifySession подтверждает оплату сессии и возвращает заказ.
// Повторный вызов с тем же session_id возвращает тот же заказ.
func (h *CheckoutHandler) VerifySession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeErrorResponse(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		writeErrorResponse(w, http.StatusBadRequest, "session_id is required")
		return
	}

	order, err := h.finalizer.VerifyAndFinalize(r.Context(), sessionID, identity.UserID)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to verify checkout session")
		return
	}

	writeJSONResponse(w, http.StatusOK, order)
}

// Webhook принимает события платёжного провайдера. Ответ после
// успешной проверки подписи всегда 200: провайдер не должен
// ретраить события из-за внутренних сбоев.
func (h *CheckoutHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	if err := h.finalizer.HandleWebhookEvent(r.Context(), payload, r.Header.Get("Stripe-Signature")); err != nil {
		writeServiceError(w, h.log, err, "Failed to process webhook event")
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]bool{"received": true})
}
