package handlers

import (
	"net/http"

	"kickstore/internal/logger"
	"kickstore/internal/models"
)

// ProductHandler обрабатывает запросы к каталогу товаров.
type ProductHandler struct {
	catalog CatalogService
	log     *logger.Logger
}

// NewProductHandler создаёт обработчик каталога.
func NewProductHandler(catalog CatalogService, log *logger.Logger) *ProductHandler {
	return &ProductHandler{
		catalog: catalog,
		log:     log,
	}
}

// ListProducts возвращает каталог с фильтрацией по категории и бренду.
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	filter := &models.ProductFilter{
		Category: r.URL.Query().Get("category"),
		Brand:    r.URL.Query().Get("brand"),
	}

	products, err := h.catalog.ListProducts(r.Context(), filter)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to list products")
		return
	}
	if products == nil {
		products = []*models.Product{}
	}

	writeJSONResponse(w, http.StatusOK, products)
}

// GetProduct возвращает товар по ID.
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	productID, err := extractUUIDFromPath(r.URL.Path, "/api/products/")
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	product, err := h.catalog.GetProduct(r.Context(), productID)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to get product")
		return
	}

	writeJSONResponse(w, http.StatusOK, product)
}
