package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"example.com/shop-backend/services/shop/internal/domain"
	"example.com/shop-backend/services/shop/internal/service"
)

// CartHandler — корзина текущего пользователя.
type CartHandler struct {
	carts    service.CartService
	currency string
}

// NewCartHandler создаёт обработчик корзины.
func NewCartHandler(carts service.CartService, currency string) *CartHandler {
	return &CartHandler{carts: carts, currency: currency}
}

// GetCart — GET /api/v1/cart
func (h *CartHandler) GetCart(c *gin.Context) {
	claims, ok := currentUser(c)
	if !ok {
		return
	}
	cart, err := h.carts.Get(c.Request.Context(), claims.UserID)
	h.respond(c, cart, err, "GetCart")
}

// AddItem — POST /api/v1/cart/items
func (h *CartHandler) AddItem(c *gin.Context) {
	claims, ok := currentUser(c)
	if !ok {
		return
	}
	var req CartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Укажите product_id и quantity больше нуля")
		return
	}
	cart, err := h.carts.AddItem(c.Request.Context(), claims.UserID, req.ProductID, req.Quantity)
	h.respond(c, cart, err, "AddCartItem")
}

// UpdateItem — PUT /api/v1/cart/items/:productId
func (h *CartHandler) UpdateItem(c *gin.Context) {
	claims, ok := currentUser(c)
	if !ok {
		return
	}
	var req CartQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "quantity должно быть больше нуля")
		return
	}
	cart, err := h.carts.UpdateItem(c.Request.Context(), claims.UserID, c.Param("productId"), req.Quantity)
	h.respond(c, cart, err, "UpdateCartItem")
}

// RemoveItem — DELETE /api/v1/cart/items/:productId
func (h *CartHandler) RemoveItem(c *gin.Context) {
	claims, ok := currentUser(c)
	if !ok {
		return
	}
	cart, err := h.carts.RemoveItem(c.Request.Context(), claims.UserID, c.Param("productId"))
	h.respond(c, cart, err, "RemoveCartItem")
}

// ClearCart — DELETE /api/v1/cart
func (h *CartHandler) ClearCart(c *gin.Context) {
	claims, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.carts.Clear(c.Request.Context(), claims.UserID); err != nil {
		HandleError(c, err, "ClearCart")
		return
	}
	c.JSON(http.StatusOK, cartToResponse(&domain.Cart{UserID: claims.UserID}, h.currency))
}

func (h *CartHandler) respond(c *gin.Context, cart *domain.Cart, err error, op string) {
	if err != nil {
		HandleError(c, err, op)
		return
	}
	c.JSON(http.StatusOK, cartToResponse(cart, h.currency))
}
