package handlers

import (
	"context"

	"kickstore/internal/models"

	"github.com/google/uuid"
)

// ----- Checkout -----

type CheckoutService interface {
	CreateSession(ctx context.Context, userID uuid.UUID, req *models.CreateCheckoutRequest) (*models.CheckoutSession, error)
}

type FinalizerService interface {
	VerifyAndFinalize(ctx context.Context, sessionID string, userID uuid.UUID) (*models.Order, error)
	HandleWebhookEvent(ctx context.Context, payload []byte, sigHeader string) error
}

// ----- Orders -----

type OrderService interface {
	GetOrder(ctx context.Context, orderID, userID uuid.UUID) (*models.Order, error)
	ListUserOrders(ctx context.Context, userID uuid.UUID) ([]*models.Order, error)
	ListOrders(ctx context.Context, limit, offset int) ([]*models.Order, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status models.OrderStatus) (*models.Order, error)
}

// ----- Promo -----

type PromoService interface {
	Validate(ctx context.Context, code string, orderTotal float64) (*models.PromoCode, error)
	CreatePromoCode(ctx context.Context, req *models.CreatePromoCodeRequest) (*models.PromoCode, error)
	GetPromoCode(ctx context.Context, code string) (*models.PromoCode, error)
	UpdatePromoCode(ctx context.Context, code string, req *models.UpdatePromoCodeRequest) (*models.PromoCode, error)
	DeletePromoCode(ctx context.Context, code string) error
	ListPromoCodes(ctx context.Context, limit, offset int) ([]*models.PromoCode, error)
}

// ----- Catalog -----

type CatalogService interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListProducts(ctx context.Context, filter *models.ProductFilter) ([]*models.Product, error)
}

// ----- Health -----

type DBHealth interface {
	Health() error
}

type RedisHealth interface {
	Health(ctx context.Context) error
}
