package handlers

import (
	"net/http"

	"kickstore/internal/auth"
	"kickstore/internal/logger"
)

// TokenParser проверяет токен и возвращает личность пользователя.
type TokenParser interface {
	ParseToken(token string) (*auth.Identity, error)
}

// AuthMiddleware требует валидный Bearer-токен и кладёт личность
// пользователя в контекст запроса.
func AuthMiddleware(parser TokenParser, log *logger.Logger, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := auth.TokenFromRequest(r)
		if err != nil {
			writeErrorResponse(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		identity, err := parser.ParseToken(token)
		if err != nil {
			log.WithError(err).Debug("Rejected request with invalid token")
			writeErrorResponse(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		next(w, r.WithContext(auth.WithIdentity(r.Context(), identity)))
	}
}

// AdminMiddleware пропускает только администраторов. Ставится после
// AuthMiddleware.
func AdminMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := auth.IdentityFromContext(r.Context())
		if !ok {
			writeErrorResponse(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		if !identity.IsAdmin {
			writeErrorResponse(w, http.StatusForbidden, "Admin access required")
			return
		}
		next(w, r)
	}
}
