package payment

import "context"

// Статусы оплаты, которые сообщает провайдер по сессии.
const (
	StatusPaid   = "paid"
	StatusUnpaid = "unpaid"
)

// Типы событий вебхука, которые обрабатывает система.
const (
	EventCheckoutCompleted = "checkout.session.completed"
	EventCheckoutExpired   = "checkout.session.expired"
)

// LineItem — позиция платёжной сессии. UnitAmount в минорных единицах валюты.
type LineItem struct {
	Name        string
	Description string
	ImageURL    string
	UnitAmount  int64
	Quantity    int
}

// SessionParams — параметры создания hosted-сессии оплаты.
// Metadata — единственное долговременное хранилище корзины до создания заказа.
type SessionParams struct {
	LineItems     []LineItem
	SuccessURL    string
	CancelURL     string
	CustomerEmail string
	Metadata      map[string]string
}

// Session — состояние платёжной сессии на стороне провайдера.
type Session struct {
	ID            string            `json:"id"`
	URL           string            `json:"url"`
	PaymentStatus string            `json:"payment_status"`
	PaymentIntent string            `json:"payment_intent"`
	CustomerEmail string            `json:"customer_email"`
	Metadata      map[string]string `json:"metadata"`
}

// WebhookEvent — проверенное событие вебхука провайдера.
type WebhookEvent struct {
	Type    string
	Session *Session
}

// Provider описывает три операции платёжного провайдера, которые нужны
// системе. Любой провайдер с hosted checkout и подписанными вебхуками
// может быть подставлен вместо Stripe.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, params *SessionParams) (*Session, error)
	GetSession(ctx context.Context, sessionID string) (*Session, error)
	VerifyWebhook(payload []byte, sigHeader string) (*WebhookEvent, error)
}
