// Package middleware содержит gin middleware REST API магазина.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"example.com/shop-backend/pkg/jwt"
	"example.com/shop-backend/pkg/logger"
)

// Ключи gin.Context, которые заполняет AuthMiddleware.
const (
	ContextUserID = "user_id"
	ContextClaims = "claims"
)

// TokenVerifier проверяет access-токен. В проде это *jwt.Verifier.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*jwt.Claims, error)
}

// AuthMiddleware проверяет bearer-токен локально по публичному ключу
// и сверяет его с blacklist в Redis.
type AuthMiddleware struct {
	verifier TokenVerifier
}

// NewAuthMiddleware создаёт middleware аутентификации.
func NewAuthMiddleware(verifier TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// Handle требует валидный токен и кладёт claims в контекст.
func (m *AuthMiddleware) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		log := logger.FromContext(ctx)

		token := bearerToken(c)
		if token == "" {
			log.Debug().Msg("Отсутствует токен авторизации")
			abortUnauthorized(c, "Требуется авторизация")
			return
		}

		claims, err := m.verifier.Verify(ctx, token)
		switch {
		case errors.Is(err, jwt.ErrTokenRevoked):
			log.Debug().Msg("Токен отозван")
			abortUnauthorized(c, "Токен отозван")
			return
		case errors.Is(err, jwt.ErrInvalidToken):
			log.Debug().Err(err).Msg("Невалидный токен")
			abortUnauthorized(c, "Невалидный токен")
			return
		case err != nil:
			// Redis blacklist недоступен: пропускать непроверенный токен нельзя.
			log.Error().Err(err).Msg("Ошибка проверки токена")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error":   "service_unavailable",
				"message": "Не удалось проверить токен",
			})
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextClaims, claims)
		c.Request = c.Request.WithContext(logger.WithUserID(ctx, claims.UserID))

		c.Next()
	}
}

// RequireAdmin пропускает только пользователей с ролью admin.
// Ставится после Handle.
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFromContext(c)
		if !ok || !claims.IsAdmin() {
			log := logger.FromContext(c.Request.Context())
			log.Warn().Msg("Доступ к админскому маршруту без роли admin")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "forbidden",
				"message": "Недостаточно прав",
			})
			return
		}
		c.Next()
	}
}

// ClaimsFromContext возвращает claims аутентифицированного пользователя.
func ClaimsFromContext(c *gin.Context) (*jwt.Claims, bool) {
	v, ok := c.Get(ContextClaims)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*jwt.Claims)
	return claims, ok && claims != nil
}

// bearerToken достаёт токен из заголовка "Authorization: Bearer <token>".
// Префикс регистронезависимый.
func bearerToken(c *gin.Context) string {
	scheme, token, ok := strings.Cut(c.GetHeader("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":   "unauthorized",
		"message": message,
	})
}
