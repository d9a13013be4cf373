package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"kickstore/internal/apperror"
	"kickstore/internal/config"
	"kickstore/internal/database"
	"kickstore/internal/logger"
	"kickstore/internal/models"
	"kickstore/internal/redis"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// CatalogService отдаёт товары каталога. Чтения кэшируются в Redis,
// база остаётся источником истины для цен.
type CatalogService struct {
	db       *database.DB
	redis    *redis.Client
	log      *logger.Logger
	cacheTTL time.Duration
}

// NewCatalogService создаёт сервис каталога.
func NewCatalogService(db *database.DB, redisClient *redis.Client, log *logger.Logger, cfg *config.CatalogConfig) *CatalogService {
	ttl := time.Duration(cfg.CacheTTLMinutes) * time.Minute
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CatalogService{
		db:       db,
		redis:    redisClient,
		log:      log,
		cacheTTL: ttl,
	}
}

const productColumns = "id, name, brand, category, price, image_url, is_new, created_at"

// GetProduct возвращает товар по ID, сначала проверяя кэш.
func (s *CatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	key := redis.GenerateKey(redis.KeyPrefixProduct, id.String())

	if s.redis != nil {
		var cached models.Product
		if err := s.redis.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	query := fmt.Sprintf("SELECT %s FROM products WHERE id = $1", productColumns)

	product := &models.Product{}
	if err := s.db.QueryRowContext(ctx, query, id).Scan(
		&product.ID, &product.Name, &product.Brand, &product.Category,
		&product.Price, &product.ImageURL, &product.IsNew, &product.CreatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound(fmt.Sprintf("product %s not found", id), err)
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	if s.redis != nil {
		if err := s.redis.Set(ctx, key, product, s.cacheTTL); err != nil {
			s.log.WithError(err).WithField("product_id", id).Warn("Failed to cache product")
		}
	}

	return product, nil
}

// GetProductsByIDs возвращает найденные товары по списку ID.
// Отсутствующие ID просто не попадают в результат, это решает вызывающий.
func (s *CatalogService) GetProductsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error) {
	result := make(map[uuid.UUID]*models.Product, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	strIDs := make([]string, len(ids))
	for i, id := range ids {
		strIDs[i] = id.String()
	}

	query := fmt.Sprintf("SELECT %s FROM products WHERE id = ANY($1)", productColumns)

	rows, err := s.db.QueryContext(ctx, query, pq.Array(strIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to get products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p := &models.Product{}
		if err := rows.Scan(&p.ID, &p.Name, &p.Brand, &p.Category, &p.Price, &p.ImageURL, &p.IsNew, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		result[p.ID] = p
	}

	return result, rows.Err()
}

// ListProducts возвращает товары каталога с фильтрацией по категории и бренду.
// Результат по каждой комбинации фильтров кэшируется на время TTL.
func (s *CatalogService) ListProducts(ctx context.Context, filter *models.ProductFilter) ([]*models.Product, error) {
	key := listCacheKey(filter)

	if s.redis != nil {
		var cached []*models.Product
		if err := s.redis.Get(ctx, key, &cached); err == nil {
			return cached, nil
		}
	}

	query := fmt.Sprintf("SELECT %s FROM products", productColumns)
	var conditions []string
	var args []interface{}

	if filter != nil && filter.Category != "" {
		args = append(args, filter.Category)
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter != nil && filter.Brand != "" {
		args = append(args, filter.Brand)
		conditions = append(conditions, fmt.Sprintf("brand = $%d", len(args)))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		p := &models.Product{}
		if err := rows.Scan(&p.ID, &p.Name, &p.Brand, &p.Category, &p.Price, &p.ImageURL, &p.IsNew, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read products: %w", err)
	}

	if s.redis != nil {
		if err := s.redis.Set(ctx, key, products, s.cacheTTL); err != nil {
			s.log.WithError(err).Warn("Failed to cache product listing")
		}
	}

	return products, nil
}

func listCacheKey(filter *models.ProductFilter) string {
	category, brand := "all", "all"
	if filter != nil {
		if filter.Category != "" {
			category = filter.Category
		}
		if filter.Brand != "" {
			brand = filter.Brand
		}
	}
	return redis.GenerateKey(redis.KeyPrefixCatalog, category+":"+brand)
}
