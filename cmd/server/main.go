package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"kickstore/internal/auth"
	"kickstore/internal/config"
	"kickstore/internal/database"
	"kickstore/internal/handlers"
	"kickstore/internal/kafka"
	"kickstore/internal/logger"
	"kickstore/internal/models"
	"kickstore/internal/payment"
	"kickstore/internal/redis"
	"kickstore/internal/services"
)

// Фабричные функции для подключения внешних сервисов (подменяемые в тестах).
var (
	dbConnect        = database.Connect
	redisConnect     = redis.Connect
	newKafkaProducer = kafka.NewProducer
	newKafkaConsumer = kafka.NewConsumer
	loadConfig       = config.Load
	newLogger        = logger.New
)

// application агрегирует собранные зависимости.
type application struct {
	cfg      *config.Config
	log      *logger.Logger
	db       *database.DB
	redis    *redis.Client
	producer *kafka.Producer
	consumer *kafka.Consumer
	mux      *http.ServeMux
	server   *http.Server
}

func main() {
	app, err := buildApplication()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build app: %v\n", err)
		os.Exit(1)
	}
	app.log.Info("Starting kickstore server...")

	go func() {
		app.log.WithField("address", app.server.Addr).Info("HTTP server starting")
		if err := app.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	app.log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = app.consumer.Stop()
	if err := app.server.Shutdown(ctx); err != nil {
		app.log.WithError(err).Error("Server forced to shutdown")
	}
	_ = app.producer.Close()
	_ = app.redis.Close()
	_ = app.db.Close()
	app.log.Info("Server exited")
}

// buildApplication создает все зависимости (подменяемые в тестах).
func buildApplication() (*application, error) {
	cfg := loadConfig()
	log := newLogger(&cfg.Logger)

	db, err := dbConnect(&cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}

	redisClient, err := redisConnect(&cfg.Redis, log)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("redis connect: %w", err)
	}

	producer, err := newKafkaProducer(&cfg.Kafka, log)
	if err != nil {
		_ = redisClient.Close()
		_ = db.Close()
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	consumer, err := newKafkaConsumer(&cfg.Kafka, log)
	if err != nil {
		_ = producer.Close()
		_ = redisClient.Close()
		_ = db.Close()
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}

	authManager, err := auth.NewManager(&cfg.Auth)
	if err != nil {
		_ = consumer.Stop()
		_ = producer.Close()
		_ = redisClient.Close()
		_ = db.Close()
		return nil, fmt.Errorf("auth manager: %w", err)
	}

	stripeClient := payment.NewStripeClient(&cfg.Stripe, log)

	promoService := services.NewPromoService(db, log)
	catalogService := services.NewCatalogService(db, redisClient, log, &cfg.Catalog)
	orderService := services.NewOrderService(db, log)
	checkoutService := services.NewCheckoutService(catalogService, promoService, stripeClient, log, &cfg.Stripe)
	finalizerService := services.NewFinalizerService(db, stripeClient, catalogService, promoService, orderService, producer, log)
	rateLimiter := services.NewRateLimiter(redisClient, log, &cfg.RateLimit)

	productHandler := handlers.NewProductHandler(catalogService, log)
	promoHandler := handlers.NewPromoHandler(promoService, log)
	orderHandler := handlers.NewOrderHandler(orderService, log)
	checkoutHandler := handlers.NewCheckoutHandler(checkoutService, finalizerService, log)
	healthHandler := handlers.NewHealthHandler(db, redisClient, cfg.Kafka.Brokers)

	registerEventHandlers(consumer, log)
	if err := consumer.Start(); err != nil {
		_ = consumer.Stop()
		_ = producer.Close()
		_ = redisClient.Close()
		_ = db.Close()
		return nil, fmt.Errorf("kafka consumer start: %w", err)
	}

	mux := setupRoutes(productHandler, promoHandler, orderHandler, checkoutHandler, healthHandler, authManager, rateLimiter, log)
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	return &application{
		cfg:      cfg,
		log:      log,
		db:       db,
		redis:    redisClient,
		producer: producer,
		consumer: consumer,
		mux:      mux,
		server:   server,
	}, nil
}

// setupRoutes настраивает маршруты HTTP сервера
func setupRoutes(productHandler *handlers.ProductHandler, promoHandler *handlers.PromoHandler,
	orderHandler *handlers.OrderHandler, checkoutHandler *handlers.CheckoutHandler,
	healthHandler *handlers.HealthHandler, authManager *auth.Manager,
	rateLimiter *services.RateLimiter, log *logger.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	public := func(h http.HandlerFunc) http.HandlerFunc {
		return corsMiddleware(handlers.RateLimitMiddleware(rateLimiter, log, h))
	}
	authed := func(h http.HandlerFunc) http.HandlerFunc {
		return public(handlers.AuthMiddleware(authManager, log, h))
	}
	admin := func(h http.HandlerFunc) http.HandlerFunc {
		return authed(handlers.AdminMiddleware(h))
	}

	// Health check endpoints
	mux.HandleFunc("/health", corsMiddleware(healthHandler.Health))
	mux.HandleFunc("/health/readiness", corsMiddleware(healthHandler.Readiness))
	mux.HandleFunc("/health/liveness", corsMiddleware(healthHandler.Liveness))

	// Catalog endpoints
	mux.HandleFunc("/api/products", public(productHandler.ListProducts))
	mux.HandleFunc("/api/products/", public(productHandler.GetProduct))

	// Promo validation (public) and admin CRUD
	mux.HandleFunc("/api/promo/validate", public(promoHandler.ValidatePromoCode))
	mux.HandleFunc("/api/admin/promo-codes", admin(handlePromoCodesRoute(promoHandler)))
	mux.HandleFunc("/api/admin/promo-codes/", admin(handlePromoCodeRoute(promoHandler)))

	// Checkout endpoints
	mux.HandleFunc("/api/stripe/create-checkout-session", authed(checkoutHandler.CreateSession))
	mux.HandleFunc("/api/stripe/verify-session", authed(checkoutHandler.VerifySession))

	// Вебхук аутентифицируется подписью провайдера, не токеном.
	mux.HandleFunc("/api/stripe/webhook", checkoutHandler.Webhook)

	// Order endpoints
	mux.HandleFunc("/api/orders", authed(orderHandler.ListMyOrders))
	mux.HandleFunc("/api/orders/", authed(orderHandler.GetOrder))
	mux.HandleFunc("/api/admin/orders", admin(orderHandler.ListOrders))
	mux.HandleFunc("/api/admin/orders/", admin(handleAdminOrderRoute(orderHandler)))

	return mux
}

// handlePromoCodesRoute обрабатывает коллекцию промокодов
func handlePromoCodesRoute(handler *handlers.PromoHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			handler.ListPromoCodes(w, r)
		case http.MethodPost:
			handler.CreatePromoCode(w, r)
		default:
			writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

// handlePromoCodeRoute обрабатывает отдельный промокод
func handlePromoCodeRoute(handler *handlers.PromoHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			handler.GetPromoCode(w, r)
		case http.MethodPut:
			handler.UpdatePromoCode(w, r)
		case http.MethodDelete:
			handler.DeletePromoCode(w, r)
		default:
			writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

// handleAdminOrderRoute обрабатывает маршруты отдельного заказа в админке
func handleAdminOrderRoute(handler *handlers.OrderHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/status") {
			if r.Method == http.MethodPut {
				handler.UpdateOrderStatus(w, r)
			} else {
				writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
			}
			return
		}
		writeErrorResponse(w, http.StatusNotFound, "Not found")
	}
}

// registerEventHandlers регистрирует обработчики событий Kafka
func registerEventHandlers(consumer *kafka.Consumer, log *logger.Logger) {
	consumer.RegisterHandler(models.EventTypeOrderPaid, func(ctx context.Context, event *models.Event) error {
		log.WithField("event_id", event.ID).Info("Processing order paid event")
		return nil
	})

	consumer.RegisterHandler(models.EventTypePromoRedeemed, func(ctx context.Context, event *models.Event) error {
		log.WithField("event_id", event.ID).Info("Processing promo redeemed event")
		return nil
	})
}

// corsMiddleware и другие helper функции
func corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Stripe-Signature")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

func writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	type errorResponse struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	})
}
