package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"example.com/shop-backend/pkg/jwt"
	"example.com/shop-backend/pkg/logger"
	"example.com/shop-backend/services/shop/internal/middleware"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type pageParams struct {
	page int
	size int
}

// parsePage читает page и page_size. Некорректные значения заменяются
// значениями по умолчанию, page_size ограничен сверху.
func parsePage(c *gin.Context) pageParams {
	p := pageParams{page: 1, size: defaultPageSize}
	if v, err := strconv.Atoi(c.Query("page")); err == nil && v > 0 {
		p.page = v
	}
	if v, err := strconv.Atoi(c.Query("page_size")); err == nil && v > 0 {
		p.size = min(v, maxPageSize)
	}
	return p
}

// currentUser возвращает claims из AuthMiddleware. Если их нет, отвечает 401.
func currentUser(c *gin.Context) (*jwt.Claims, bool) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		log := logger.FromContext(c.Request.Context())
		log.Warn().Msg("Claims не найдены в контексте")
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "Требуется авторизация",
		})
		return nil, false
	}
	return claims, true
}
