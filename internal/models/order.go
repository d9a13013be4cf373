package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus представляет статус заказа
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusPaid       OrderStatus = "paid"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// IsValidOrderStatus проверяет принадлежность статуса к допустимому набору.
// Переходы между статусами админкой не ограничиваются.
func IsValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusProcessing,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// ShippingAddress представляет адрес доставки заказа.
type ShippingAddress struct {
	Name       string `json:"name"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// Order представляет заказ в системе.
// StripeSessionID уникален и служит ключом идемпотентности финализации.
type Order struct {
	ID                  uuid.UUID   `json:"id" db:"id"`
	UserID              uuid.UUID   `json:"user_id" db:"user_id"`
	Total               float64     `json:"total" db:"total"`
	OriginalTotal       *float64    `json:"original_total,omitempty" db:"original_total"`
	PromoCode           *string     `json:"promo_code,omitempty" db:"promo_code"`
	DiscountAmount      *float64    `json:"discount_amount,omitempty" db:"discount_amount"`
	Status              OrderStatus `json:"status" db:"status"`
	ShippingName        string      `json:"shipping_name" db:"shipping_name"`
	ShippingAddress     string      `json:"shipping_address" db:"shipping_address"`
	ShippingCity        string      `json:"shipping_city" db:"shipping_city"`
	ShippingPostalCode  string      `json:"shipping_postal_code" db:"shipping_postal_code"`
	ShippingCountry     string      `json:"shipping_country" db:"shipping_country"`
	StripeSessionID     *string     `json:"stripe_session_id,omitempty" db:"stripe_session_id"`
	StripePaymentIntent *string     `json:"stripe_payment_intent,omitempty" db:"stripe_payment_intent"`
	Items               []OrderItem `json:"items"`
	CreatedAt           time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at" db:"updated_at"`
}

// OrderItem представляет товар в заказе.
// Хранит снапшот товара на момент покупки, независимый от каталога.
type OrderItem struct {
	ID           uuid.UUID `json:"id" db:"id"`
	OrderID      uuid.UUID `json:"order_id" db:"order_id"`
	ProductID    uuid.UUID `json:"product_id" db:"product_id"`
	ProductName  string    `json:"product_name" db:"product_name"`
	ProductBrand string    `json:"product_brand" db:"product_brand"`
	ProductImage string    `json:"product_image" db:"product_image"`
	Size         string    `json:"size" db:"size"`
	Quantity     int       `json:"quantity" db:"quantity"`
	Price        float64   `json:"price" db:"price"`
}

// CartItem представляет позицию корзины в запросе на оплату.
type CartItem struct {
	ProductID uuid.UUID `json:"product_id"`
	Size      string    `json:"size"`
	Quantity  int       `json:"quantity"`
}

// CreateCheckoutRequest представляет запрос на создание платёжной сессии.
type CreateCheckoutRequest struct {
	Items     []CartItem      `json:"items"`
	Shipping  ShippingAddress `json:"shipping"`
	Email     string          `json:"email,omitempty"`
	PromoCode string          `json:"promoCode,omitempty"`
}

// CheckoutSession возвращается клиенту после создания платёжной сессии.
type CheckoutSession struct {
	URL       string `json:"url"`
	SessionID string `json:"session_id"`
}

// UpdateOrderStatusRequest представляет запрос на обновление статуса заказа
type UpdateOrderStatusRequest struct {
	Status OrderStatus `json:"status"`
}
