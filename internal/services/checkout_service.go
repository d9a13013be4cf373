package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"kickstore/internal/apperror"
	"kickstore/internal/config"
	"kickstore/internal/logger"
	"kickstore/internal/models"
	"kickstore/internal/payment"

	"github.com/google/uuid"
)

// CheckoutService создаёт платёжные сессии у провайдера.
// Заказ в базе на этом этапе не создаётся: запись появляется только
// после подтверждения оплаты.
type CheckoutService struct {
	catalog     *CatalogService
	promo       *PromoService
	provider    payment.Provider
	log         *logger.Logger
	frontendURL string
}

// NewCheckoutService создаёт сервис оформления заказа.
func NewCheckoutService(catalog *CatalogService, promo *PromoService, provider payment.Provider, log *logger.Logger, cfg *config.StripeConfig) *CheckoutService {
	return &CheckoutService{
		catalog:     catalog,
		promo:       promo,
		provider:    provider,
		log:         log,
		frontendURL: cfg.FrontendURL,
	}
}

// CreateSession проверяет корзину по каталогу, применяет промокод и
// создаёт checkout-сессию. Цены берутся только из каталога, значения
// из запроса клиента не используются.
func (s *CheckoutService) CreateSession(ctx context.Context, userID uuid.UUID, req *models.CreateCheckoutRequest) (*models.CheckoutSession, error) {
	if err := validateCheckoutRequest(req); err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(req.Items))
	for _, item := range req.Items {
		ids = append(ids, item.ProductID)
	}

	products, err := s.catalog.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	// Сначала сверяем всю корзину: до обращения к провайдеру корзина
	// должна быть полностью валидной.
	var originalTotal float64
	for _, item := range req.Items {
		product, ok := products[item.ProductID]
		if !ok {
			return nil, apperror.NotFound(fmt.Sprintf("product %s not found", item.ProductID), nil)
		}
		originalTotal += product.Price * float64(item.Quantity)
	}
	originalTotal = round2(originalTotal)

	var discount float64
	var promoCode string
	if req.PromoCode != "" {
		// Неприменимый промокод прерывает оформление с той же ошибкой,
		// которую вернул бы эндпоинт предварительной проверки.
		promo, err := s.promo.Validate(ctx, req.PromoCode, originalTotal)
		if err != nil {
			return nil, err
		}
		discount = CalculateDiscount(promo, originalTotal)
		promoCode = promo.Code
	}

	// Скидка распределяется по позициям равномерным множителем,
	// чтобы сумма по строкам у провайдера сошлась с итогом заказа.
	multiplier := 1.0
	if discount > 0 && originalTotal > 0 {
		multiplier = 1.0 - discount/originalTotal
	}

	lineItems := make([]payment.LineItem, 0, len(req.Items))
	for _, item := range req.Items {
		product := products[item.ProductID]
		unitAmount := int64(math.Round(product.Price * multiplier * 100))
		lineItems = append(lineItems, payment.LineItem{
			Name:        product.DisplayName(),
			Description: fmt.Sprintf("Size %s", item.Size),
			ImageURL:    product.ImageURL,
			UnitAmount:  unitAmount,
			Quantity:    item.Quantity,
		})
	}

	itemsJSON, err := json.Marshal(req.Items)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cart items: %w", err)
	}
	shippingJSON, err := json.Marshal(req.Shipping)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal shipping address: %w", err)
	}

	metadata := map[string]string{
		"user_id":        userID.String(),
		"items":          string(itemsJSON),
		"shipping":       string(shippingJSON),
		"email":          req.Email,
		"original_total": strconv.FormatFloat(originalTotal, 'f', 2, 64),
	}
	if promoCode != "" {
		metadata["promo_code"] = promoCode
		metadata["discount_amount"] = strconv.FormatFloat(discount, 'f', 2, 64)
	}

	session, err := s.provider.CreateCheckoutSession(ctx, &payment.SessionParams{
		LineItems:     lineItems,
		SuccessURL:    s.frontendURL + "/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     s.frontendURL + "/checkout/cancel",
		CustomerEmail: req.Email,
		Metadata:      metadata,
	})
	if err != nil {
		return nil, err
	}

	s.log.WithField("session_id", session.ID).WithField("user_id", userID).Info("Checkout session created")

	return &models.CheckoutSession{
		URL:       session.URL,
		SessionID: session.ID,
	}, nil
}

func validateCheckoutRequest(req *models.CreateCheckoutRequest) error {
	if len(req.Items) == 0 {
		return apperror.Validation("cart is empty", nil)
	}
	for _, item := range req.Items {
		if item.ProductID == uuid.Nil {
			return apperror.Validation("product id is required", nil)
		}
		if item.Quantity <= 0 {
			return apperror.Validation("item quantity must be positive", nil)
		}
		if item.Size == "" {
			return apperror.Validation("item size is required", nil)
		}
	}
	if req.Email == "" {
		return apperror.Validation("email is required", nil)
	}
	sh := req.Shipping
	if sh.Name == "" || sh.Address == "" || sh.City == "" || sh.PostalCode == "" || sh.Country == "" {
		return apperror.Validation("shipping address is incomplete", nil)
	}
	return nil
}
