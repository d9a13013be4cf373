package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"kickstore/internal/apperror"
	"kickstore/internal/config"
	"kickstore/internal/logger"
)

// StripeClient реализует Provider поверх REST API Stripe.
// SDK не используется: нужны только три операции, и клиент ходит
// в API напрямую form-encoded запросами.
type StripeClient struct {
	secretKey     string
	webhookSecret string
	baseURL       string
	currency      string
	tolerance     time.Duration
	client        *http.Client
	log           *logger.Logger
	now           func() time.Time
}

// NewStripeClient создаёт клиента платёжного провайдера.
func NewStripeClient(cfg *config.StripeConfig, log *logger.Logger) *StripeClient {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	tolerance := time.Duration(cfg.ToleranceSeconds) * time.Second
	if tolerance <= 0 {
		tolerance = 5 * time.Minute
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.stripe.com"
	}
	currency := cfg.Currency
	if currency == "" {
		currency = "eur"
	}

	return &StripeClient{
		secretKey:     cfg.SecretKey,
		webhookSecret: cfg.WebhookSecret,
		baseURL:       strings.TrimRight(baseURL, "/"),
		currency:      currency,
		tolerance:     tolerance,
		client:        &http.Client{Timeout: timeout},
		log:           log,
		now:           time.Now,
	}
}

// Configured сообщает, задан ли API ключ провайдера.
func (c *StripeClient) Configured() bool {
	return c.secretKey != ""
}

// CreateCheckoutSession открывает hosted-сессию оплаты.
func (c *StripeClient) CreateCheckoutSession(ctx context.Context, params *SessionParams) (*Session, error) {
	if !c.Configured() {
		return nil, apperror.Unavailable("payment provider is not configured", nil)
	}

	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("payment_method_types[0]", "card")
	form.Set("success_url", params.SuccessURL)
	form.Set("cancel_url", params.CancelURL)
	if params.CustomerEmail != "" {
		form.Set("customer_email", params.CustomerEmail)
	}

	for i, item := range params.LineItems {
		prefix := fmt.Sprintf("line_items[%d]", i)
		form.Set(prefix+"[quantity]", strconv.Itoa(item.Quantity))
		form.Set(prefix+"[price_data][currency]", c.currency)
		form.Set(prefix+"[price_data][unit_amount]", strconv.FormatInt(item.UnitAmount, 10))
		form.Set(prefix+"[price_data][product_data][name]", item.Name)
		if item.Description != "" {
			form.Set(prefix+"[price_data][product_data][description]", item.Description)
		}
		if item.ImageURL != "" {
			form.Set(prefix+"[price_data][product_data][images][0]", item.ImageURL)
		}
	}

	for key, value := range params.Metadata {
		form.Set(fmt.Sprintf("metadata[%s]", key), value)
	}

	session := &Session{}
	if err := c.do(ctx, http.MethodPost, "/v1/checkout/sessions", form, session); err != nil {
		return nil, err
	}
	return session, nil
}

// GetSession запрашивает состояние сессии по её идентификатору.
func (c *StripeClient) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	if !c.Configured() {
		return nil, apperror.Unavailable("payment provider is not configured", nil)
	}
	if sessionID == "" {
		return nil, apperror.Validation("session id is required", nil)
	}

	session := &Session{}
	if err := c.do(ctx, http.MethodGet, "/v1/checkout/sessions/"+url.PathEscape(sessionID), nil, session); err != nil {
		return nil, err
	}
	return session, nil
}

// VerifyWebhook проверяет подпись вебхука (схема t=...,v1=... c HMAC-SHA256)
// и разбирает событие. Любая ошибка проверки отклоняет событие целиком.
func (c *StripeClient) VerifyWebhook(payload []byte, sigHeader string) (*WebhookEvent, error) {
	if c.webhookSecret == "" {
		return nil, apperror.Unavailable("webhook secret is not configured", nil)
	}

	timestamp, signatures, err := parseSignatureHeader(sigHeader)
	if err != nil {
		return nil, apperror.Unauthorized("invalid webhook signature", err)
	}

	age := c.now().Sub(time.Unix(timestamp, 0))
	if age > c.tolerance || age < -c.tolerance {
		return nil, apperror.Unauthorized("invalid webhook signature", fmt.Errorf("timestamp outside tolerance"))
	}

	mac := hmac.New(sha256.New, []byte(c.webhookSecret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := mac.Sum(nil)

	verified := false
	for _, sig := range signatures {
		decoded, decErr := hex.DecodeString(sig)
		if decErr != nil {
			continue
		}
		if hmac.Equal(decoded, expected) {
			verified = true
			break
		}
	}
	if !verified {
		return nil, apperror.Unauthorized("invalid webhook signature", nil)
	}

	var raw struct {
		Type string `json:"type"`
		Data struct {
			Object Session `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, apperror.Validation("invalid webhook payload", err)
	}

	return &WebhookEvent{Type: raw.Type, Session: &raw.Data.Object}, nil
}

// do выполняет запрос к API провайдера и декодирует ответ.
func (c *StripeClient) do(ctx context.Context, method, path string, form url.Values, dest interface{}) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return apperror.Unavailable("payment provider is unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return apperror.NotFound("payment session not found", nil)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error struct {
				Type    string `json:"type"`
				Message string `json:"message"`
			} `json:"error"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = json.Unmarshal(data, &apiErr)
		c.log.WithFields(map[string]interface{}{
			"status":  resp.StatusCode,
			"type":    apiErr.Error.Type,
			"message": apiErr.Error.Message,
		}).Error("Payment provider rejected request")
		// Детали ошибки провайдера остаются в логах и не доходят до клиента.
		return apperror.Unavailable("payment provider rejected the request", fmt.Errorf("provider status %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("failed to decode provider response: %w", err)
	}
	return nil
}

// parseSignatureHeader разбирает заголовок вида "t=1492774577,v1=abc,v1=def".
func parseSignatureHeader(header string) (int64, []string, error) {
	if header == "" {
		return 0, nil, fmt.Errorf("signature header is empty")
	}

	var timestamp int64 = -1
	var signatures []string

	for _, part := range strings.Split(header, ",") {
		pair := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(pair) != 2 {
			continue
		}
		switch pair[0] {
		case "t":
			ts, err := strconv.ParseInt(pair[1], 10, 64)
			if err != nil {
				return 0, nil, fmt.Errorf("invalid timestamp: %w", err)
			}
			timestamp = ts
		case "v1":
			signatures = append(signatures, pair[1])
		}
	}

	if timestamp < 0 {
		return 0, nil, fmt.Errorf("missing timestamp")
	}
	if len(signatures) == 0 {
		return 0, nil, fmt.Errorf("missing v1 signature")
	}
	return timestamp, signatures, nil
}
