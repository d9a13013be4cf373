package models

import (
	"time"

	"github.com/google/uuid"
)

// EventType описывает тип события в шине.
type EventType string

const (
	EventTypeOrderPaid     EventType = "order.paid"
	EventTypePromoRedeemed EventType = "promo.redeemed"
)

// Event представляет событие, публикуемое в Kafka.
type Event struct {
	ID        uuid.UUID   `json:"id"`
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// OrderPaidEvent — полезная нагрузка события order.paid.
type OrderPaidEvent struct {
	OrderID   uuid.UUID `json:"order_id"`
	UserID    uuid.UUID `json:"user_id"`
	Total     float64   `json:"total"`
	PromoCode *string   `json:"promo_code,omitempty"`
	ItemCount int       `json:"item_count"`
}

// PromoRedeemedEvent — полезная нагрузка события promo.redeemed.
type PromoRedeemedEvent struct {
	Code     string    `json:"code"`
	OrderID  uuid.UUID `json:"order_id"`
	Discount float64   `json:"discount"`
}
