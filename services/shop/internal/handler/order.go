package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"example.com/shop-backend/pkg/logger"
	"example.com/shop-backend/services/shop/internal/domain"
	"example.com/shop-backend/services/shop/internal/middleware"
	"example.com/shop-backend/services/shop/internal/service"
)

// OrderHandler — заказы покупателя и административные операции с заказами.
type OrderHandler struct {
	orders   service.OrderService
	currency string
}

// NewOrderHandler создаёт обработчик заказов.
func NewOrderHandler(orders service.OrderService, currency string) *OrderHandler {
	return &OrderHandler{orders: orders, currency: currency}
}

// CreateOrder оформляет заказ из корзины или из позиций запроса.
// POST /api/v1/orders, заголовок Idempotency-Key защищает от двойного оформления.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	ctx := c.Request.Context()
	claims, ok := currentUser(c)
	if !ok {
		return
	}

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log := logger.FromContext(ctx)
		log.Debug().Err(err).Msg("Невалидный запрос на создание заказа")
		badRequest(c, "Невалидные данные запроса")
		return
	}

	key := strings.TrimSpace(c.GetHeader(middleware.HeaderIdempotencyKey))
	if key == "" {
		key = strings.TrimSpace(req.IdempotencyKey)
	}

	items := make([]domain.RequestedItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = domain.RequestedItem{ProductID: item.ProductID, Quantity: item.Quantity}
	}

	order, err := h.orders.Create(ctx, service.CreateOrderInput{
		Customer: domain.Customer{
			UserID: claims.UserID,
			Email:  claims.Email,
			Name:   claims.Name,
			Phone:  claims.Phone,
		},
		Items:           items,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  req.BillingAddress,
		PaymentMethod:   domain.PaymentMethod(strings.ToLower(req.PaymentMethod)),
		CouponCode:      req.CouponCode,
		GatewayOrderID:  req.GatewayOrderID,
		Notes:           req.Notes,
		IdempotencyKey:  key,
	})
	if err != nil {
		HandleError(c, err, "CreateOrder")
		return
	}

	c.JSON(http.StatusCreated, orderToResponse(order, h.currency))
}

// ListOrders — GET /api/v1/orders?status=&page=&page_size=
func (h *OrderHandler) ListOrders(c *gin.Context) {
	claims, ok := currentUser(c)
	if !ok {
		return
	}
	status, ok := h.statusFilter(c)
	if !ok {
		return
	}

	p := parsePage(c)
	orders, total, err := h.orders.ListByUser(c.Request.Context(), claims.UserID, status, p.page, p.size)
	if err != nil {
		HandleError(c, err, "ListOrders")
		return
	}
	c.JSON(http.StatusOK, ordersToResponse(orders, p, total))
}

// GetOrder — GET /api/v1/orders/:orderNumber. Чужой заказ выглядит как несуществующий.
func (h *OrderHandler) GetOrder(c *gin.Context) {
	claims, ok := currentUser(c)
	if !ok {
		return
	}
	order, err := h.orders.Get(c.Request.Context(), c.Param("orderNumber"), requester(claims.UserID, claims.IsAdmin()))
	if err != nil {
		HandleError(c, err, "GetOrder")
		return
	}
	c.JSON(http.StatusOK, orderToResponse(order, h.currency))
}

// CancelOrder — POST /api/v1/orders/:orderNumber/cancel
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	claims, ok := currentUser(c)
	if !ok {
		return
	}

	var req CancelOrderRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Невалидная причина отмены")
			return
		}
	}

	order, err := h.orders.Cancel(c.Request.Context(), c.Param("orderNumber"), req.Reason,
		requester(claims.UserID, claims.IsAdmin()))
	if err != nil {
		HandleError(c, err, "CancelOrder")
		return
	}
	c.JSON(http.StatusOK, orderToResponse(order, h.currency))
}

// VerifyPayment — POST /api/v1/orders/:orderNumber/payment/verify
func (h *OrderHandler) VerifyPayment(c *gin.Context) {
	claims, ok := currentUser(c)
	if !ok {
		return
	}

	var req VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Укажите payment_id и signature")
		return
	}

	order, err := h.orders.VerifyPayment(c.Request.Context(), c.Param("orderNumber"), service.VerifyPaymentInput{
		GatewayOrderID: req.GatewayOrderID,
		PaymentID:      req.PaymentID,
		Signature:      req.Signature,
	}, requester(claims.UserID, false))
	if err != nil {
		HandleError(c, err, "VerifyPayment")
		return
	}
	c.JSON(http.StatusOK, orderToResponse(order, h.currency))
}

// === Администрирование ===

// ListAllOrders — GET /api/v1/admin/orders?status=
func (h *OrderHandler) ListAllOrders(c *gin.Context) {
	status, ok := h.statusFilter(c)
	if !ok {
		return
	}

	p := parsePage(c)
	orders, total, err := h.orders.ListAll(c.Request.Context(), status, p.page, p.size)
	if err != nil {
		HandleError(c, err, "ListAllOrders")
		return
	}
	c.JSON(http.StatusOK, ordersToResponse(orders, p, total))
}

// UpdateStatus — PATCH /api/v1/admin/orders/:orderNumber/status
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Укажите новый статус")
		return
	}
	status := domain.OrderStatus(strings.ToLower(req.Status))
	if !status.Valid() {
		badRequest(c, "Неизвестный статус заказа: "+req.Status)
		return
	}

	order, err := h.orders.UpdateStatus(c.Request.Context(), c.Param("orderNumber"), domain.StatusUpdate{
		Status:         status,
		Note:           req.Note,
		TrackingNumber: req.TrackingNumber,
		Carrier:        req.Carrier,
	})
	if err != nil {
		HandleError(c, err, "UpdateOrderStatus")
		return
	}
	c.JSON(http.StatusOK, orderToResponse(order, h.currency))
}

// RecordPayment — POST /api/v1/admin/orders/:orderNumber/payment
func (h *OrderHandler) RecordPayment(c *gin.Context) {
	var req PaymentResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Укажите результат оплаты")
		return
	}
	if *req.Success && req.PaymentID == "" {
		badRequest(c, "Для успешной оплаты нужен payment_id")
		return
	}

	order, err := h.orders.RecordPaymentResult(c.Request.Context(), c.Param("orderNumber"), domain.PaymentResult{
		Success:        *req.Success,
		PaymentID:      req.PaymentID,
		GatewayOrderID: req.GatewayOrderID,
		FailureReason:  req.FailureReason,
	})
	if err != nil {
		HandleError(c, err, "RecordPayment")
		return
	}
	c.JSON(http.StatusOK, orderToResponse(order, h.currency))
}

// Refund — POST /api/v1/admin/orders/:orderNumber/refund
func (h *OrderHandler) Refund(c *gin.Context) {
	var req RefundRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Невалидная сумма возврата")
			return
		}
	}
	if req.Amount.IsNegative() {
		badRequest(c, "Сумма возврата не может быть отрицательной")
		return
	}

	order, err := h.orders.Refund(c.Request.Context(), c.Param("orderNumber"), req.Amount, req.Reason)
	if err != nil {
		HandleError(c, err, "RefundOrder")
		return
	}
	c.JSON(http.StatusOK, orderToResponse(order, h.currency))
}

// statusFilter разбирает ?status=. Пустое значение означает все статусы.
func (h *OrderHandler) statusFilter(c *gin.Context) (domain.OrderStatus, bool) {
	raw := strings.ToLower(c.Query("status"))
	if raw == "" {
		return "", true
	}
	status := domain.OrderStatus(raw)
	if !status.Valid() {
		badRequest(c, "Неизвестный статус заказа: "+raw)
		return "", false
	}
	return status, true
}

func requester(userID string, admin bool) service.Requester {
	return service.Requester{UserID: userID, Admin: admin}
}
