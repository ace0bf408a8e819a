package handler

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"example.com/shop-backend/services/shop/internal/domain"
	"example.com/shop-backend/services/shop/internal/service"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleOrder() *domain.Order {
	return &domain.Order{
		ID:          "internal-7f3a",
		OrderNumber: "12123456ABCDEF",
		UserID:      "user-1",
		Items: []domain.OrderItem{{
			ProductID:  "p1",
			Name:       "Кружка",
			SKU:        "MUG-1",
			Quantity:   2,
			Price:      decimal.RequireFromString("450"),
			TotalPrice: decimal.RequireFromString("900"),
		}},
		ShippingAddress: domain.Address{FullName: "Анна", Line1: "Ленина 1", City: "Москва", PostalCode: "101000"},
		PaymentMethod:   domain.PaymentMethodCard,
		PaymentStatus:   domain.PaymentStatusPending,
		OrderStatus:     domain.OrderStatusPending,
		Subtotal:        decimal.RequireFromString("900"),
		ShippingCharges: decimal.Zero,
		TaxAmount:       decimal.RequireFromString("45"),
		TotalAmount:     decimal.RequireFromString("945"),
		StatusHistory: []domain.StatusHistoryEntry{
			{Status: domain.OrderStatusPending, Timestamp: testNow, Note: "Заказ создан", UpdatedBy: domain.ActorCustomer},
		},
		CreatedAt: testNow,
		UpdatedAt: testNow,
	}
}

func validCreateBody() map[string]any {
	return map[string]any{
		"items": []map[string]any{{"product_id": "p1", "quantity": 2}},
		"shipping_address": map[string]any{
			"full_name": "Анна", "line1": "Ленина 1", "city": "Москва", "postal_code": "101000",
		},
		"payment_method": "CARD",
		"coupon_code":    "save10",
	}
}

func TestCreateOrder_Success(t *testing.T) {
	s := newTestServer(t, nil)

	s.orders.On("Create", mock.Anything, mock.MatchedBy(func(in service.CreateOrderInput) bool {
		return in.Customer.UserID == "user-1" &&
			in.Customer.Email == "anna@example.com" &&
			in.Customer.Phone == "+79990000000" &&
			in.IdempotencyKey == "key-1" &&
			in.PaymentMethod == domain.PaymentMethodCard &&
			in.CouponCode == "save10" &&
			len(in.Items) == 1 && in.Items[0] == domain.RequestedItem{ProductID: "p1", Quantity: 2}
	})).Return(sampleOrder(), nil).Once()

	w := s.do(t, http.MethodPost, "/api/v1/orders", customerToken, validCreateBody(), "Idempotency-Key", "key-1")

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decodeBody(t, w)
	assert.Equal(t, "12123456ABCDEF", body["order_number"])
	assert.Equal(t, "945.00", body["total"])
	assert.Equal(t, "45.00", body["tax"])
	assert.Equal(t, "INR", body["currency"])
	assert.Equal(t, "pending", body["status"])
	assert.NotContains(t, w.Body.String(), "internal-7f3a")
	assert.NotContains(t, body, "id")
}

func TestCreateOrder_IdempotencyKeyFromBody(t *testing.T) {
	s := newTestServer(t, nil)

	s.orders.On("Create", mock.Anything, mock.MatchedBy(func(in service.CreateOrderInput) bool {
		return in.IdempotencyKey == "body-key"
	})).Return(sampleOrder(), nil).Once()

	reqBody := validCreateBody()
	reqBody["idempotency_key"] = "body-key"
	w := s.do(t, http.MethodPost, "/api/v1/orders", customerToken, reqBody)

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestCreateOrder_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"пустой заказ", domain.ErrEmptyOrder, http.StatusUnprocessableEntity, "empty_order"},
		{"товар недоступен", &domain.ProductUnavailableError{ProductID: "p1"}, http.StatusUnprocessableEntity, "product_unavailable"},
		{"нет на складе", &domain.InsufficientInventoryError{ProductID: "p1", Name: "Кружка", Requested: 5, Available: 2}, http.StatusConflict, "insufficient_inventory"},
		{"купон", &domain.InvalidCouponError{Code: "SAVE10", Reason: domain.CouponExpired}, http.StatusUnprocessableEntity, "invalid_coupon"},
		{"адрес", domain.ErrInvalidAddress, http.StatusUnprocessableEntity, "validation_error"},
		{"сбой базы", errors.New("ошибка создания заказа: deadlock"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, nil)
			s.orders.On("Create", mock.Anything, mock.Anything).Return(nil, tt.err).Once()

			w := s.do(t, http.MethodPost, "/api/v1/orders", customerToken, validCreateBody())

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCode, decodeBody(t, w)["error"])
		})
	}
}

func TestCreateOrder_InsufficientInventoryDetails(t *testing.T) {
	s := newTestServer(t, nil)
	s.orders.On("Create", mock.Anything, mock.Anything).
		Return(nil, &domain.InsufficientInventoryError{ProductID: "p1", Name: "Кружка", Requested: 5, Available: 2}).Once()

	w := s.do(t, http.MethodPost, "/api/v1/orders", customerToken, validCreateBody())

	require.Equal(t, http.StatusConflict, w.Code)
	details := decodeBody(t, w)["details"].(map[string]any)
	assert.Equal(t, "p1", details["product_id"])
	assert.Equal(t, "Кружка", details["name"])
	assert.Equal(t, float64(5), details["requested"])
	assert.Equal(t, float64(2), details["available"])
}

func TestCreateOrder_InvalidBody(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodPost, "/api/v1/orders", customerToken, `{"items": [{"product_id": "p1", "quantity": 0}], "payment_method": "card"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/orders", customerToken, `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetOrder(t *testing.T) {
	s := newTestServer(t, nil)
	owner := service.Requester{UserID: "user-1"}

	s.orders.On("Get", mock.Anything, "12123456ABCDEF", owner).Return(sampleOrder(), nil).Once()
	s.orders.On("Get", mock.Anything, "ORD-OTHER", owner).Return(nil, domain.ErrOrderNotFound).Once()

	w := s.do(t, http.MethodGet, "/api/v1/orders/12123456ABCDEF", customerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	history := decodeBody(t, w)["status_history"].([]any)
	assert.Len(t, history, 1)

	w = s.do(t, http.MethodGet, "/api/v1/orders/ORD-OTHER", customerToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decodeBody(t, w)["error"])
}

func TestListOrders(t *testing.T) {
	s := newTestServer(t, nil)

	s.orders.On("ListByUser", mock.Anything, "user-1", domain.OrderStatusPending, 2, 10).
		Return([]*domain.Order{sampleOrder()}, int64(11), nil).Once()

	w := s.do(t, http.MethodGet, "/api/v1/orders?status=PENDING&page=2&page_size=10", customerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	orders := body["orders"].([]any)
	require.Len(t, orders, 1)
	assert.Equal(t, float64(2), orders[0].(map[string]any)["items_count"])
	pagination := body["pagination"].(map[string]any)
	assert.Equal(t, float64(2), pagination["total_pages"])

	w = s.do(t, http.MethodGet, "/api/v1/orders?status=lost", customerToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCancelOrder(t *testing.T) {
	s := newTestServer(t, nil)

	cancelled := sampleOrder()
	cancelled.OrderStatus = domain.OrderStatusCancelled
	cancelled.CancellationReason = "Передумал"

	s.orders.On("Cancel", mock.Anything, "12123456ABCDEF", "Передумал", service.Requester{UserID: "user-1"}).
		Return(cancelled, nil).Once()
	s.orders.On("Cancel", mock.Anything, "ORD-SHIPPED", "", service.Requester{UserID: "user-1"}).
		Return(nil, &domain.StateTransitionError{Operation: "cancel", From: "shipped", To: "cancelled"}).Once()

	w := s.do(t, http.MethodPost, "/api/v1/orders/12123456ABCDEF/cancel", customerToken, map[string]string{"reason": "Передумал"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cancelled", decodeBody(t, w)["status"])

	w = s.do(t, http.MethodPost, "/api/v1/orders/ORD-SHIPPED/cancel", customerToken, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "invalid_state_transition", body["error"])
	assert.Equal(t, "shipped", body["details"].(map[string]any)["from"])
}

func TestVerifyPayment(t *testing.T) {
	s := newTestServer(t, nil)
	in := service.VerifyPaymentInput{GatewayOrderID: "gw-1", PaymentID: "pay-1", Signature: "sig"}

	paid := sampleOrder()
	paid.PaymentStatus = domain.PaymentStatusPaid
	paid.OrderStatus = domain.OrderStatusConfirmed

	s.orders.On("VerifyPayment", mock.Anything, "ORD-1", in, service.Requester{UserID: "user-1"}).Return(paid, nil).Once()
	s.orders.On("VerifyPayment", mock.Anything, "ORD-2", in, service.Requester{UserID: "user-1"}).
		Return(nil, domain.ErrPaymentVerificationFailed).Once()
	s.orders.On("VerifyPayment", mock.Anything, "ORD-3", in, service.Requester{UserID: "user-1"}).
		Return(nil, domain.ErrPaymentInProgress).Once()

	body := map[string]string{"gateway_order_id": "gw-1", "payment_id": "pay-1", "signature": "sig"}

	w := s.do(t, http.MethodPost, "/api/v1/orders/ORD-1/payment/verify", customerToken, body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "paid", decodeBody(t, w)["payment_status"])

	w = s.do(t, http.MethodPost, "/api/v1/orders/ORD-2/payment/verify", customerToken, body)
	assert.Equal(t, http.StatusPaymentRequired, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/orders/ORD-3/payment/verify", customerToken, body)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/orders/ORD-1/payment/verify", customerToken, map[string]string{"payment_id": "pay-1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdmin_ListAllOrders(t *testing.T) {
	s := newTestServer(t, nil)

	s.orders.On("ListAll", mock.Anything, domain.OrderStatus(""), 1, 100).
		Return([]*domain.Order{}, int64(0), nil).Once()

	w := s.do(t, http.MethodGet, "/api/v1/admin/orders?page_size=500", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeBody(t, w)["orders"])
}

func TestAdmin_UpdateStatus(t *testing.T) {
	s := newTestServer(t, nil)

	shipped := sampleOrder()
	shipped.OrderStatus = domain.OrderStatusShipped
	shipped.TrackingNumber = "TRK-1"

	update := domain.StatusUpdate{Status: domain.OrderStatusShipped, TrackingNumber: "TRK-1", Carrier: "CDEK"}
	s.orders.On("UpdateStatus", mock.Anything, "ORD-1", update).Return(shipped, nil).Once()

	w := s.do(t, http.MethodPatch, "/api/v1/admin/orders/ORD-1/status", adminToken,
		map[string]string{"status": "Shipped", "tracking_number": "TRK-1", "carrier": "CDEK"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "TRK-1", decodeBody(t, w)["tracking_number"])

	w = s.do(t, http.MethodPatch, "/api/v1/admin/orders/ORD-1/status", adminToken, map[string]string{"status": "teleported"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdmin_Refund(t *testing.T) {
	s := newTestServer(t, nil)

	refunded := sampleOrder()
	refunded.PaymentStatus = domain.PaymentStatusPartiallyRefunded
	refunded.RefundStatus = domain.RefundStatusProcessed
	refunded.RefundAmount = decimal.RequireFromString("100.5")

	s.orders.On("Refund", mock.Anything, "ORD-1", mock.MatchedBy(func(d decimal.Decimal) bool {
		return d.Equal(decimal.RequireFromString("100.50"))
	}), "Брак").Return(refunded, nil).Once()
	s.orders.On("Refund", mock.Anything, "ORD-2", mock.MatchedBy(func(d decimal.Decimal) bool {
		return d.IsZero()
	}), "").Return(nil, &domain.StateTransitionError{Operation: "refund", From: "pending"}).Once()

	w := s.do(t, http.MethodPost, "/api/v1/admin/orders/ORD-1/refund", adminToken, `{"amount": "100.50", "reason": "Брак"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeBody(t, w)
	assert.Equal(t, "100.50", body["refund_amount"])
	assert.Equal(t, "partially_refunded", body["payment_status"])

	w = s.do(t, http.MethodPost, "/api/v1/admin/orders/ORD-2/refund", adminToken, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/admin/orders/ORD-3/refund", adminToken, `{"amount": -5}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdmin_RecordPayment(t *testing.T) {
	s := newTestServer(t, nil)

	paid := sampleOrder()
	paid.PaymentStatus = domain.PaymentStatusPaid
	paid.OrderStatus = domain.OrderStatusConfirmed

	s.orders.On("RecordPaymentResult", mock.Anything, "ORD-1",
		domain.PaymentResult{Success: true, PaymentID: "cod-1"}).Return(paid, nil).Once()
	s.orders.On("RecordPaymentResult", mock.Anything, "ORD-2",
		domain.PaymentResult{Success: false, FailureReason: "отказ банка"}).
		Return(nil, &domain.StateTransitionError{Operation: "record_payment", From: "cancelled/pending"}).Once()

	w := s.do(t, http.MethodPost, "/api/v1/admin/orders/ORD-1/payment", adminToken, `{"success": true, "payment_id": "cod-1"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "paid", decodeBody(t, w)["payment_status"])

	w = s.do(t, http.MethodPost, "/api/v1/admin/orders/ORD-2/payment", adminToken, `{"success": false, "failure_reason": "отказ банка"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/admin/orders/ORD-3/payment", adminToken, `{"success": true}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/admin/orders/ORD-3/payment", customerToken, `{"success": true, "payment_id": "x"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
