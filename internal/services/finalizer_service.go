package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"kickstore/internal/apperror"
	"kickstore/internal/database"
	"kickstore/internal/logger"
	"kickstore/internal/models"
	"kickstore/internal/payment"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// OrderEventPublisher публикует события о заказах после фиксации.
type OrderEventPublisher interface {
	PublishOrderPaid(order *models.Order) error
	PublishPromoRedeemed(code string, orderID uuid.UUID, discount float64) error
}

// FinalizerService превращает оплаченную платёжную сессию в заказ.
// Заказ по одной сессии создаётся ровно один раз, сколько бы
// подтверждений ни пришло и из какого бы канала.
type FinalizerService struct {
	db       *database.DB
	provider payment.Provider
	catalog  *CatalogService
	promo    *PromoService
	orders   *OrderService
	events   OrderEventPublisher
	log      *logger.Logger
}

// NewFinalizerService создаёт сервис финализации заказов.
func NewFinalizerService(db *database.DB, provider payment.Provider, catalog *CatalogService,
	promo *PromoService, orders *OrderService, events OrderEventPublisher, log *logger.Logger) *FinalizerService {
	return &FinalizerService{
		db:       db,
		provider: provider,
		catalog:  catalog,
		promo:    promo,
		orders:   orders,
		events:   events,
		log:      log,
	}
}

// VerifyAndFinalize проверяет сессию у провайдера и создаёт заказ.
// Вызывается со страницы успешной оплаты, поэтому сессия обязана
// принадлежать запрашивающему пользователю.
func (s *FinalizerService) VerifyAndFinalize(ctx context.Context, sessionID string, userID uuid.UUID) (*models.Order, error) {
	session, err := s.provider.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if session.Metadata["user_id"] != userID.String() {
		return nil, apperror.Forbidden("session does not belong to this user", nil)
	}

	existing, err := s.orders.FindBySessionID(ctx, sessionID)
	if err == nil {
		return existing, nil
	}
	if !apperror.Is(err, apperror.KindNotFound) {
		return nil, err
	}

	if session.PaymentStatus != payment.StatusPaid {
		return nil, apperror.PaymentRequired("payment has not been completed", nil)
	}

	return s.finalizeSession(ctx, session)
}

// HandleWebhookEvent обрабатывает событие провайдера. Подпись
// проверяется до чтения содержимого; событие с плохой подписью
// отбрасывается целиком. После успешной проверки обработчик всегда
// отвечает успехом: внутренние сбои логируются и не транслируются
// провайдеру.
func (s *FinalizerService) HandleWebhookEvent(ctx context.Context, payload []byte, sigHeader string) error {
	event, err := s.provider.VerifyWebhook(payload, sigHeader)
	if err != nil {
		return err
	}

	switch event.Type {
	case payment.EventCheckoutCompleted:
		s.handleCheckoutCompleted(ctx, event.Session)
	case payment.EventCheckoutExpired:
		s.log.WithField("session_id", event.Session.ID).Info("Checkout session expired")
	default:
		s.log.WithField("type", event.Type).Debug("Ignoring unhandled provider event")
	}

	return nil
}

func (s *FinalizerService) handleCheckoutCompleted(ctx context.Context, session *payment.Session) {
	existing, err := s.orders.FindBySessionID(ctx, session.ID)
	if err == nil {
		// Повторная доставка события или заказ уже создан со страницы
		// успеха. Зависший pending добиваем до paid.
		if existing.Status == models.OrderStatusPending {
			if _, err := s.orders.UpdateStatus(ctx, existing.ID, models.OrderStatusPaid); err != nil {
				s.log.WithError(err).WithField("order_id", existing.ID).Error("Failed to promote pending order")
			}
		}
		return
	}
	if !apperror.Is(err, apperror.KindNotFound) {
		s.log.WithError(err).WithField("session_id", session.ID).Error("Failed to look up order for webhook")
		return
	}

	if _, err := s.finalizeSession(ctx, session); err != nil {
		s.log.WithError(err).WithField("session_id", session.ID).Error("Failed to finalize order from webhook")
	}
}

// finalizeSession создаёт заказ по оплаченной сессии в одной транзакции:
// заказ, позиции и списание промокода фиксируются вместе. Гонку двух
// финализаций разрешает уникальный индекс по stripe_session_id:
// проигравший читает и возвращает заказ победителя.
func (s *FinalizerService) finalizeSession(ctx context.Context, session *payment.Session) (*models.Order, error) {
	meta, err := parseSessionMetadata(session)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(meta.items))
	for _, item := range meta.items {
		ids = append(ids, item.ProductID)
	}

	products, err := s.catalog.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	orderID := uuid.New()
	var orderItems []models.OrderItem
	var liveTotal float64
	for _, item := range meta.items {
		product, ok := products[item.ProductID]
		if !ok {
			// Товар сняли с продажи между оплатой и финализацией.
			s.log.WithField("product_id", item.ProductID).Warn("Skipping missing product during finalization")
			continue
		}
		liveTotal += product.Price * float64(item.Quantity)
		orderItems = append(orderItems, models.OrderItem{
			ID:           uuid.New(),
			OrderID:      orderID,
			ProductID:    product.ID,
			ProductName:  product.Name,
			ProductBrand: product.Brand,
			ProductImage: product.ImageURL,
			Size:         item.Size,
			Quantity:     item.Quantity,
			Price:        product.Price,
		})
	}

	total := round2(liveTotal - meta.discount)
	if total < 0 {
		total = 0
	}

	now := time.Now()
	order := &models.Order{
		ID:                  orderID,
		UserID:              meta.userID,
		Total:               total,
		Status:              models.OrderStatusPaid,
		ShippingName:        meta.shipping.Name,
		ShippingAddress:     meta.shipping.Address,
		ShippingCity:        meta.shipping.City,
		ShippingPostalCode:  meta.shipping.PostalCode,
		ShippingCountry:     meta.shipping.Country,
		StripeSessionID:     &session.ID,
		StripePaymentIntent: &session.PaymentIntent,
		Items:               orderItems,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if meta.promoCode != "" {
		originalTotal := round2(liveTotal)
		order.PromoCode = &meta.promoCode
		order.DiscountAmount = &meta.discount
		order.OriginalTotal = &originalTotal
	}

	if err := s.insertOrder(ctx, order, meta.promoCode); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			// Параллельная финализация успела первой.
			return s.orders.FindBySessionID(ctx, session.ID)
		}
		return nil, err
	}

	s.publishOrderEvents(order, meta.discount)

	s.log.WithField("order_id", order.ID).WithField("session_id", session.ID).Info("Order finalized")
	return order, nil
}

func (s *FinalizerService) insertOrder(ctx context.Context, order *models.Order, promoCode string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	orderQuery := `
		INSERT INTO orders (id, user_id, total, original_total, promo_code, discount_amount, status,
			shipping_name, shipping_address, shipping_city, shipping_postal_code, shipping_country,
			stripe_session_id, stripe_payment_intent, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err = tx.ExecContext(ctx, orderQuery, order.ID, order.UserID, order.Total,
		order.OriginalTotal, order.PromoCode, order.DiscountAmount, order.Status,
		order.ShippingName, order.ShippingAddress, order.ShippingCity, order.ShippingPostalCode,
		order.ShippingCountry, order.StripeSessionID, order.StripePaymentIntent,
		order.CreatedAt, order.UpdatedAt)
	if err != nil {
		return err
	}

	itemQuery := `
		INSERT INTO order_items (id, order_id, product_id, product_name, product_brand, product_image, size, quantity, price)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	for _, item := range order.Items {
		if _, err := tx.ExecContext(ctx, itemQuery, item.ID, item.OrderID, item.ProductID,
			item.ProductName, item.ProductBrand, item.ProductImage, item.Size, item.Quantity, item.Price); err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	if promoCode != "" {
		if err := s.promo.IncrementUsageTx(ctx, tx, promoCode); err != nil {
			// Оплата уже прошла, заказ важнее счётчика.
			if apperror.Is(err, apperror.KindConflict) {
				s.log.WithField("promo_code", promoCode).Warn("Promo usage limit hit during finalization")
			} else {
				return err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit order: %w", err)
	}
	return nil
}

// publishOrderEvents отправляет события после коммита. Сбой публикации
// не откатывает заказ.
func (s *FinalizerService) publishOrderEvents(order *models.Order, discount float64) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishOrderPaid(order); err != nil {
		s.log.WithError(err).WithField("order_id", order.ID).Warn("Failed to publish order.paid event")
	}
	if order.PromoCode != nil {
		if err := s.events.PublishPromoRedeemed(*order.PromoCode, order.ID, discount); err != nil {
			s.log.WithError(err).WithField("order_id", order.ID).Warn("Failed to publish promo.redeemed event")
		}
	}
}

type sessionMetadata struct {
	userID    uuid.UUID
	items     []models.CartItem
	shipping  models.ShippingAddress
	promoCode string
	discount  float64
}

func parseSessionMetadata(session *payment.Session) (*sessionMetadata, error) {
	meta := &sessionMetadata{}

	rawUser, ok := session.Metadata["user_id"]
	if !ok {
		return nil, apperror.Validation("session metadata is missing user_id", nil)
	}
	userID, err := uuid.Parse(rawUser)
	if err != nil {
		return nil, apperror.Validation("session metadata has invalid user_id", err)
	}
	meta.userID = userID

	if err := json.Unmarshal([]byte(session.Metadata["items"]), &meta.items); err != nil {
		return nil, apperror.Validation("session metadata has invalid items", err)
	}
	if len(meta.items) == 0 {
		return nil, apperror.Validation("session metadata has no items", nil)
	}
	if raw, ok := session.Metadata["shipping"]; ok {
		if err := json.Unmarshal([]byte(raw), &meta.shipping); err != nil {
			return nil, apperror.Validation("session metadata has invalid shipping", err)
		}
	}

	meta.promoCode = session.Metadata["promo_code"]
	if raw, ok := session.Metadata["discount_amount"]; ok && raw != "" {
		discount, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, apperror.Validation("session metadata has invalid discount_amount", err)
		}
		meta.discount = discount
	}

	return meta, nil
}
