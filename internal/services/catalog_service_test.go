package services

import (
	"context"
	"testing"
	"time"

	"kickstore/internal/apperror"
	"kickstore/internal/config"
	"kickstore/internal/models"
	"kickstore/internal/redis"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
)

func newTestRedis(t *testing.T) *redis.Client {
	mr := miniredis.RunT(t)
	client, err := redis.Connect(&config.RedisConfig{Host: mr.Host(), Port: mr.Port()}, newTestLogger())
	if err != nil {
		t.Fatalf("failed to connect to miniredis: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func productRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "brand", "category", "price", "image_url", "is_new", "created_at"})
}

func TestCatalogService_GetProduct_CachesResult(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	service := NewCatalogService(db, newTestRedis(t), newTestLogger(), &config.CatalogConfig{CacheTTLMinutes: 10})

	productID := uuid.New()
	mock.ExpectQuery("SELECT id, name, brand, category, price, image_url, is_new, created_at FROM products WHERE id").
		WithArgs(productID).
		WillReturnRows(productRows().AddRow(
			productID, "Air Zoom", "Nike", "running", 129.99, "https://cdn.example.com/air-zoom.jpg", true, time.Now()))

	first, err := service.GetProduct(context.Background(), productID)
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if first.Price != 129.99 {
		t.Fatalf("expected price 129.99, got %.2f", first.Price)
	}

	// Повторный вызов обслуживается из кэша: второго запроса к базе нет.
	second, err := service.GetProduct(context.Background(), productID)
	if err != nil {
		t.Fatalf("expected cached result, got error: %v", err)
	}
	if second.Name != first.Name {
		t.Fatalf("cached product differs: %q vs %q", second.Name, first.Name)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCatalogService_GetProduct_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	service := NewCatalogService(db, newTestRedis(t), newTestLogger(), &config.CatalogConfig{CacheTTLMinutes: 10})

	productID := uuid.New()
	mock.ExpectQuery("SELECT id, name, brand, category, price, image_url, is_new, created_at FROM products WHERE id").
		WithArgs(productID).
		WillReturnRows(productRows())

	_, err := service.GetProduct(context.Background(), productID)
	if !apperror.Is(err, apperror.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCatalogService_GetProductsByIDs_SkipsMissing(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	service := NewCatalogService(db, nil, newTestLogger(), &config.CatalogConfig{CacheTTLMinutes: 10})

	known := uuid.New()
	missing := uuid.New()
	mock.ExpectQuery("SELECT id, name, brand, category, price, image_url, is_new, created_at FROM products WHERE id = ANY").
		WillReturnRows(productRows().AddRow(
			known, "Classic Leather", "Reebok", "lifestyle", 89.90, "", false, time.Now()))

	products, err := service.GetProductsByIDs(context.Background(), []uuid.UUID{known, missing})
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if len(products) != 1 {
		t.Fatalf("expected 1 product, got %d", len(products))
	}
	if _, ok := products[known]; !ok {
		t.Fatalf("expected product %s in result", known)
	}
	if _, ok := products[missing]; ok {
		t.Fatalf("missing product must not appear in result")
	}
}

func TestCatalogService_GetProductsByIDs_Empty(t *testing.T) {
	db, _ := newMockDB(t)
	defer db.Close()

	service := NewCatalogService(db, nil, newTestLogger(), &config.CatalogConfig{CacheTTLMinutes: 10})

	products, err := service.GetProductsByIDs(context.Background(), nil)
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if len(products) != 0 {
		t.Fatalf("expected empty result, got %d products", len(products))
	}
}

func TestCatalogService_ListProducts_Filtered(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	service := NewCatalogService(db, newTestRedis(t), newTestLogger(), &config.CatalogConfig{CacheTTLMinutes: 10})

	mock.ExpectQuery("SELECT id, name, brand, category, price, image_url, is_new, created_at FROM products WHERE category").
		WithArgs("running", "Nike").
		WillReturnRows(productRows().AddRow(
			uuid.New(), "Pegasus", "Nike", "running", 119.99, "", false, time.Now()))

	products, err := service.ListProducts(context.Background(), &models.ProductFilter{Category: "running", Brand: "Nike"})
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if len(products) != 1 {
		t.Fatalf("expected 1 product, got %d", len(products))
	}

	// Та же комбинация фильтров отдаётся из кэша.
	if _, err := service.ListProducts(context.Background(), &models.ProductFilter{Category: "running", Brand: "Nike"}); err != nil {
		t.Fatalf("expected cached listing, got error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
