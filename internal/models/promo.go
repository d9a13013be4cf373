package models

import (
	"time"

	"github.com/google/uuid"
)

// DiscountType описывает тип промокода.
type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFixed      DiscountType = "fixed"
)

// PromoCode представляет промокод в системе.
// Код хранится нормализованным (верхний регистр, без пробелов по краям).
type PromoCode struct {
	ID             uuid.UUID    `json:"id" db:"id"`
	Code           string       `json:"code" db:"code"`
	Type           DiscountType `json:"type" db:"type"`
	Value          float64      `json:"value" db:"value"`
	MinOrderAmount float64      `json:"min_order_amount" db:"min_order_amount"`
	MaxUses        *int         `json:"max_uses,omitempty" db:"max_uses"` // nil = безлимит
	CurrentUses    int          `json:"current_uses" db:"current_uses"`
	ExpiresAt      *time.Time   `json:"expires_at,omitempty" db:"expires_at"`
	IsActive       bool         `json:"is_active" db:"is_active"`
	CreatedAt      time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at" db:"updated_at"`
}

// CreatePromoCodeRequest описывает запрос на создание промокода.
type CreatePromoCodeRequest struct {
	Code           string       `json:"code"`
	Type           DiscountType `json:"type"`
	Value          float64      `json:"value"`
	MinOrderAmount float64      `json:"min_order_amount,omitempty"`
	MaxUses        *int         `json:"max_uses,omitempty"`
	ExpiresAt      *time.Time   `json:"expires_at,omitempty"`
	IsActive       bool         `json:"is_active"`
}

// UpdatePromoCodeRequest описывает запрос на обновление промокода.
type UpdatePromoCodeRequest struct {
	Type           DiscountType `json:"type"`
	Value          float64      `json:"value"`
	MinOrderAmount float64      `json:"min_order_amount,omitempty"`
	MaxUses        *int         `json:"max_uses,omitempty"`
	ExpiresAt      *time.Time   `json:"expires_at,omitempty"`
	IsActive       bool         `json:"is_active"`
}

// ValidatePromoRequest описывает запрос проверки промокода перед оплатой.
type ValidatePromoRequest struct {
	Code       string  `json:"code"`
	OrderTotal float64 `json:"orderTotal"`
}

// PromoValidationResponse возвращается публичным эндпоинтом проверки.
type PromoValidationResponse struct {
	Valid         bool          `json:"valid"`
	Promo         *PromoSummary `json:"promo,omitempty"`
	Discount      float64       `json:"discount,omitempty"`
	NewTotal      float64       `json:"newTotal,omitempty"`
	OriginalTotal float64       `json:"originalTotal,omitempty"`
}

// PromoSummary — усечённое представление промокода для клиента.
type PromoSummary struct {
	Code  string       `json:"code"`
	Type  DiscountType `json:"type"`
	Value float64      `json:"value"`
}
