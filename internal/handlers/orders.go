package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"kickstore/internal/auth"
	"kickstore/internal/logger"
	"kickstore/internal/models"
)

// OrderHandler обрабатывает запросы к заказам.
type OrderHandler struct {
	orderService OrderService
	log          *logger.Logger
}

// NewOrderHandler создаёт новый обработчик заказов.
func NewOrderHandler(orderService OrderService, log *logger.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		log:          log,
	}
}

// ListMyOrders возвращает историю заказов текущего пользователя.
func (h *OrderHandler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeErrorResponse(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	orders, err := h.orderService.ListUserOrders(r.Context(), identity.UserID)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to list orders")
		return
	}
	if orders == nil {
		orders = []*models.Order{}
	}

	writeJSONResponse(w, http.StatusOK, orders)
}

// GetOrder возвращает заказ текущего пользователя по ID.
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeErrorResponse(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	orderID, err := extractUUIDFromPath(r.URL.Path, "/api/orders/")
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	order, err := h.orderService.GetOrder(r.Context(), orderID, identity.UserID)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to get order")
		return
	}

	writeJSONResponse(w, http.StatusOK, order)
}

// ListOrders возвращает все заказы (административный эндпоинт).
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	limit, offset := paginationParams(r, 50, 200)

	orders, err := h.orderService.ListOrders(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to list orders")
		return
	}
	if orders == nil {
		orders = []*models.Order{}
	}

	writeJSONResponse(w, http.StatusOK, orders)
}

// UpdateOrderStatus меняет статус заказа (административный эндпоинт).
func (h *OrderHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if !strings.HasSuffix(r.URL.Path, "/status") {
		writeErrorResponse(w, http.StatusNotFound, "Not found")
		return
	}

	orderID, err := extractUUIDFromPath(r.URL.Path, "/api/admin/orders/")
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	var req models.UpdateOrderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	order, err := h.orderService.UpdateStatus(r.Context(), orderID, req.Status)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to update order status")
		return
	}

	writeJSONResponse(w, http.StatusOK, order)
}
