package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"kickstore/internal/apperror"
	"kickstore/internal/database"
	"kickstore/internal/logger"
	"kickstore/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// PromoService управляет промокодами и расчётом скидок.
type PromoService struct {
	db  *database.DB
	log *logger.Logger
}

// NewPromoService создаёт сервис промокодов.
func NewPromoService(db *database.DB, log *logger.Logger) *PromoService {
	return &PromoService{
		db:  db,
		log: log,
	}
}

// NormalizeCode приводит промокод к каноническому виду.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate проверяет применимость промокода к заказу на указанную сумму.
// Проверка только читает данные: счётчик использования не изменяется.
func (s *PromoService) Validate(ctx context.Context, code string, orderTotal float64) (*models.PromoCode, error) {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return nil, apperror.Validation("promo code is required", nil)
	}

	promo, err := s.GetPromoCode(ctx, normalized)
	if err != nil {
		return nil, err
	}

	if err := checkPromoEligibility(promo, orderTotal, time.Now()); err != nil {
		return nil, err
	}

	return promo, nil
}

// checkPromoEligibility проверяет условия применимости в фиксированном порядке:
// активность, срок действия, лимит использования, минимальная сумма заказа.
func checkPromoEligibility(promo *models.PromoCode, orderTotal float64, now time.Time) error {
	if !promo.IsActive {
		return apperror.Conflict("promo code is not active", nil)
	}
	if promo.ExpiresAt != nil && promo.ExpiresAt.Before(now) {
		return apperror.Conflict("promo code has expired", nil)
	}
	if promo.MaxUses != nil && promo.CurrentUses >= *promo.MaxUses {
		return apperror.Conflict("promo code usage limit reached", nil)
	}
	if orderTotal < promo.MinOrderAmount {
		return apperror.Validation(
			fmt.Sprintf("order total must be at least %.2f to use this promo code", promo.MinOrderAmount), nil)
	}
	return nil
}

// CalculateDiscount возвращает размер скидки для заказа на указанную сумму.
// Скидка никогда не превышает сумму заказа.
func CalculateDiscount(promo *models.PromoCode, orderTotal float64) float64 {
	if orderTotal <= 0 {
		return 0
	}

	var discount float64
	switch promo.Type {
	case models.DiscountTypePercentage:
		discount = round2(orderTotal * promo.Value / 100.0)
	case models.DiscountTypeFixed:
		discount = round2(promo.Value)
	default:
		return 0
	}

	if discount < 0 {
		return 0
	}
	if discount > orderTotal {
		return round2(orderTotal)
	}
	return discount
}

// IncrementUsageTx атомарно увеличивает счётчик использования в рамках транзакции.
// Условие в WHERE повторяет проверку лимита, чтобы параллельные списания
// не превысили max_uses.
func (s *PromoService) IncrementUsageTx(ctx context.Context, tx *sql.Tx, code string) error {
	query := `
		UPDATE promo_codes
		SET current_uses = current_uses + 1, updated_at = $1
		WHERE code = $2
		  AND is_active = true
		  AND (max_uses IS NULL OR current_uses < max_uses)
	`

	result, err := tx.ExecContext(ctx, query, time.Now(), NormalizeCode(code))
	if err != nil {
		return fmt.Errorf("failed to increment promo usage: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.Conflict("promo code is no longer available", nil)
	}
	return nil
}

// CreatePromoCode создаёт новый промокод.
func (s *PromoService) CreatePromoCode(ctx context.Context, req *models.CreatePromoCodeRequest) (*models.PromoCode, error) {
	if err := validatePromoCodePayload(req.Type, req.Value, req.MinOrderAmount); err != nil {
		return nil, apperror.Validation(err.Error(), err)
	}

	code := NormalizeCode(req.Code)
	if code == "" {
		return nil, apperror.Validation("promo code is required", nil)
	}

	promo := &models.PromoCode{
		ID:             uuid.New(),
		Code:           code,
		Type:           req.Type,
		Value:          req.Value,
		MinOrderAmount: req.MinOrderAmount,
		MaxUses:        req.MaxUses,
		ExpiresAt:      req.ExpiresAt,
		IsActive:       req.IsActive,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}

	query := `
		INSERT INTO promo_codes (id, code, type, value, min_order_amount, max_uses, current_uses, expires_at, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 0, $7, $8, $9, $10)
	`

	_, err := s.db.ExecContext(ctx, query, promo.ID, promo.Code, promo.Type, promo.Value,
		promo.MinOrderAmount, promo.MaxUses, promo.ExpiresAt, promo.IsActive, promo.CreatedAt, promo.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, apperror.Conflict("promo code already exists", err)
		}
		return nil, fmt.Errorf("failed to create promo code: %w", err)
	}

	s.log.WithField("promo_code", promo.Code).Info("Promo code created")
	return promo, nil
}

// UpdatePromoCode обновляет параметры промокода.
func (s *PromoService) UpdatePromoCode(ctx context.Context, code string, req *models.UpdatePromoCodeRequest) (*models.PromoCode, error) {
	if err := validatePromoCodePayload(req.Type, req.Value, req.MinOrderAmount); err != nil {
		return nil, apperror.Validation(err.Error(), err)
	}

	normalized := NormalizeCode(code)
	query := `
		UPDATE promo_codes
		SET type = $1, value = $2, min_order_amount = $3, max_uses = $4, expires_at = $5, is_active = $6, updated_at = $7
		WHERE code = $8
	`

	result, err := s.db.ExecContext(ctx, query, req.Type, req.Value, req.MinOrderAmount,
		req.MaxUses, req.ExpiresAt, req.IsActive, time.Now(), normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to update promo code: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return nil, apperror.NotFound("promo code not found", nil)
	}

	return s.GetPromoCode(ctx, normalized)
}

// DeletePromoCode удаляет промокод.
func (s *PromoService) DeletePromoCode(ctx context.Context, code string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM promo_codes WHERE code = $1", NormalizeCode(code))
	if err != nil {
		return fmt.Errorf("failed to delete promo code: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("promo code not found", nil)
	}
	return nil
}

// GetPromoCode возвращает промокод по нормализованному коду.
func (s *PromoService) GetPromoCode(ctx context.Context, code string) (*models.PromoCode, error) {
	query := `
		SELECT id, code, type, value, min_order_amount, max_uses, current_uses, expires_at, is_active, created_at, updated_at
		FROM promo_codes
		WHERE code = $1
	`

	promo := &models.PromoCode{}
	if err := s.db.QueryRowContext(ctx, query, NormalizeCode(code)).Scan(
		&promo.ID, &promo.Code, &promo.Type, &promo.Value, &promo.MinOrderAmount,
		&promo.MaxUses, &promo.CurrentUses, &promo.ExpiresAt, &promo.IsActive,
		&promo.CreatedAt, &promo.UpdatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("promo code not found", err)
		}
		return nil, fmt.Errorf("failed to get promo code: %w", err)
	}
	return promo, nil
}

// ListPromoCodes возвращает список промокодов.
func (s *PromoService) ListPromoCodes(ctx context.Context, limit, offset int) ([]*models.PromoCode, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, code, type, value, min_order_amount, max_uses, current_uses, expires_at, is_active, created_at, updated_at
		FROM promo_codes
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list promo codes: %w", err)
	}
	defer rows.Close()

	var promos []*models.PromoCode
	for rows.Next() {
		p := &models.PromoCode{}
		if err := rows.Scan(&p.ID, &p.Code, &p.Type, &p.Value, &p.MinOrderAmount,
			&p.MaxUses, &p.CurrentUses, &p.ExpiresAt, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan promo code: %w", err)
		}
		promos = append(promos, p)
	}

	return promos, nil
}

func validatePromoCodePayload(discountType models.DiscountType, value, minOrderAmount float64) error {
	switch discountType {
	case models.DiscountTypeFixed:
		if value < 0 {
			return fmt.Errorf("value must be non-negative for fixed discount")
		}
	case models.DiscountTypePercentage:
		if value <= 0 || value > 100 {
			return fmt.Errorf("percentage value must be between 0 and 100")
		}
	default:
		return fmt.Errorf("invalid discount type")
	}
	if minOrderAmount < 0 {
		return fmt.Errorf("min_order_amount must be non-negative")
	}
	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
