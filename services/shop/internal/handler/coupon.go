package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"example.com/shop-backend/services/shop/internal/service"
)

// CouponHandler — проверка купонов покупателем и управление купонами.
type CouponHandler struct {
	coupons service.CouponService
}

// NewCouponHandler создаёт обработчик купонов.
func NewCouponHandler(coupons service.CouponService) *CouponHandler {
	return &CouponHandler{coupons: coupons}
}

// Validate — POST /api/v1/coupons/validate. Неприменимый купон не ошибка:
// ответ 200 с valid=false и причиной для показа в корзине.
func (h *CouponHandler) Validate(c *gin.Context) {
	claims, ok := currentUser(c)
	if !ok {
		return
	}
	var req ValidateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Укажите код купона")
		return
	}

	check, err := h.coupons.ValidateForDisplay(c.Request.Context(), req.Code, claims.UserID, req.OrderAmount)
	if err != nil {
		HandleError(c, err, "ValidateCoupon")
		return
	}
	c.JSON(http.StatusOK, couponCheckToResponse(check))
}

// Create — POST /api/v1/admin/coupons
func (h *CouponHandler) Create(c *gin.Context) {
	var req CouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Невалидные данные купона")
		return
	}

	coupon := req.toDomain()
	if err := h.coupons.Create(c.Request.Context(), coupon); err != nil {
		HandleError(c, err, "CreateCoupon")
		return
	}

	c.JSON(http.StatusCreated, couponToResponse(coupon))
}

// List — GET /api/v1/admin/coupons
func (h *CouponHandler) List(c *gin.Context) {
	p := parsePage(c)
	coupons, total, err := h.coupons.List(c.Request.Context(), p.page, p.size)
	if err != nil {
		HandleError(c, err, "ListCoupons")
		return
	}

	items := make([]CouponResponse, len(coupons))
	for i, cp := range coupons {
		items[i] = couponToResponse(cp)
	}
	c.JSON(http.StatusOK, gin.H{
		"coupons":    items,
		"pagination": newPagination(p, total),
	})
}

// Deactivate — POST /api/v1/admin/coupons/:code/deactivate
func (h *CouponHandler) Deactivate(c *gin.Context) {
	code := c.Param("code")
	if err := h.coupons.Deactivate(c.Request.Context(), code); err != nil {
		HandleError(c, err, "DeactivateCoupon")
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": code, "is_active": false})
}
