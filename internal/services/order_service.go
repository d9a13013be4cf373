package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"kickstore/internal/apperror"
	"kickstore/internal/database"
	"kickstore/internal/logger"
	"kickstore/internal/models"

	"github.com/google/uuid"
)

// OrderService отвечает за хранение и выдачу заказов.
type OrderService struct {
	db  *database.DB
	log *logger.Logger
}

// NewOrderService создаёт сервис заказов.
func NewOrderService(db *database.DB, log *logger.Logger) *OrderService {
	return &OrderService{
		db:  db,
		log: log,
	}
}

const orderColumns = `id, user_id, total, original_total, promo_code, discount_amount, status,
		shipping_name, shipping_address, shipping_city, shipping_postal_code, shipping_country,
		stripe_session_id, stripe_payment_intent, created_at, updated_at`

// GetOrder возвращает заказ пользователя. Чужие заказы неотличимы
// от несуществующих.
func (s *OrderService) GetOrder(ctx context.Context, orderID, userID uuid.UUID) (*models.Order, error) {
	query := fmt.Sprintf("SELECT %s FROM orders WHERE id = $1 AND user_id = $2", orderColumns)

	order, err := s.scanOrder(s.db.QueryRowContext(ctx, query, orderID, userID))
	if err != nil {
		return nil, err
	}

	if err := s.loadItems(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// ListUserOrders возвращает историю заказов пользователя, новые первыми.
func (s *OrderService) ListUserOrders(ctx context.Context, userID uuid.UUID) ([]*models.Order, error) {
	query := fmt.Sprintf("SELECT %s FROM orders WHERE user_id = $1 ORDER BY created_at DESC", orderColumns)

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user orders: %w", err)
	}
	defer rows.Close()

	orders, err := s.collectOrders(rows)
	if err != nil {
		return nil, err
	}

	for _, order := range orders {
		if err := s.loadItems(ctx, order); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

// ListOrders возвращает все заказы для административного интерфейса.
func (s *OrderService) ListOrders(ctx context.Context, limit, offset int) ([]*models.Order, error) {
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf("SELECT %s FROM orders ORDER BY created_at DESC LIMIT $1 OFFSET $2", orderColumns)

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	return s.collectOrders(rows)
}

// FindBySessionID возвращает заказ по идентификатору платёжной сессии.
func (s *OrderService) FindBySessionID(ctx context.Context, sessionID string) (*models.Order, error) {
	query := fmt.Sprintf("SELECT %s FROM orders WHERE stripe_session_id = $1", orderColumns)

	order, err := s.scanOrder(s.db.QueryRowContext(ctx, query, sessionID))
	if err != nil {
		return nil, err
	}

	if err := s.loadItems(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// UpdateStatus меняет статус заказа.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, status models.OrderStatus) (*models.Order, error) {
	if !models.IsValidOrderStatus(status) {
		return nil, apperror.Validation(fmt.Sprintf("invalid order status: %s", status), nil)
	}

	query := `UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3`

	result, err := s.db.ExecContext(ctx, query, status, time.Now(), orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return nil, apperror.NotFound("order not found", nil)
	}

	s.log.WithField("order_id", orderID).WithField("status", status).Info("Order status updated")

	getQuery := fmt.Sprintf("SELECT %s FROM orders WHERE id = $1", orderColumns)
	order, err := s.scanOrder(s.db.QueryRowContext(ctx, getQuery, orderID))
	if err != nil {
		return nil, err
	}
	if err := s.loadItems(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (s *OrderService) scanOrder(row rowScanner) (*models.Order, error) {
	order := &models.Order{}
	err := row.Scan(
		&order.ID, &order.UserID, &order.Total, &order.OriginalTotal, &order.PromoCode,
		&order.DiscountAmount, &order.Status, &order.ShippingName, &order.ShippingAddress,
		&order.ShippingCity, &order.ShippingPostalCode, &order.ShippingCountry,
		&order.StripeSessionID, &order.StripePaymentIntent, &order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("order not found", err)
		}
		return nil, fmt.Errorf("failed to scan order: %w", err)
	}
	return order, nil
}

func (s *OrderService) collectOrders(rows *sql.Rows) ([]*models.Order, error) {
	var orders []*models.Order
	for rows.Next() {
		order, err := s.scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

func (s *OrderService) loadItems(ctx context.Context, order *models.Order) error {
	query := `
		SELECT id, order_id, product_id, product_name, product_brand, product_image, size, quantity, price
		FROM order_items
		WHERE order_id = $1
	`

	rows, err := s.db.QueryContext(ctx, query, order.ID)
	if err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		item := models.OrderItem{}
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName,
			&item.ProductBrand, &item.ProductImage, &item.Size, &item.Quantity, &item.Price); err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		order.Items = append(order.Items, item)
	}
	return rows.Err()
}
