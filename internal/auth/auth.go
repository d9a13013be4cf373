package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"kickstore/internal/apperror"
	"kickstore/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Identity — данные пользователя из проверенного токена.
// Передаётся явно через контекст запроса, без глобального состояния.
type Identity struct {
	UserID  uuid.UUID
	IsAdmin bool
}

type contextKey struct{}

// Manager проверяет и выпускает JWT токены (HS256).
type Manager struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

// NewManager создаёт менеджер токенов по конфигурации.
func NewManager(cfg *config.AuthConfig) (*Manager, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt secret is not configured")
	}
	ttl := time.Duration(cfg.TokenTTLHrs) * time.Hour
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{
		secret: []byte(cfg.JWTSecret),
		ttl:    ttl,
		issuer: cfg.TokenIssuer,
	}, nil
}

type claims struct {
	UserID  string `json:"user_id"`
	IsAdmin bool   `json:"is_admin,omitempty"`
	jwt.RegisteredClaims
}

// GenerateToken выпускает токен для пользователя.
func (m *Manager) GenerateToken(userID uuid.UUID, isAdmin bool) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		UserID:  userID.String(),
		IsAdmin: isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ParseToken проверяет подпись и срок действия токена.
func (m *Manager) ParseToken(tokenString string) (*Identity, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, apperror.Unauthorized("invalid or expired token", err)
	}

	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid {
		return nil, apperror.Unauthorized("invalid or expired token", nil)
	}

	userID, err := uuid.Parse(c.UserID)
	if err != nil {
		return nil, apperror.Unauthorized("invalid token subject", err)
	}

	return &Identity{UserID: userID, IsAdmin: c.IsAdmin}, nil
}

// WithIdentity кладёт identity в контекст запроса.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// IdentityFromContext достаёт identity из контекста запроса.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(*Identity)
	return id, ok
}

// TokenFromRequest извлекает bearer-токен из заголовка Authorization.
func TokenFromRequest(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return "", apperror.Unauthorized("missing bearer token", nil)
	}
	return strings.TrimPrefix(header, "Bearer "), nil
}
