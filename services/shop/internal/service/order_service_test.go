package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"example.com/shop-backend/services/shop/internal/domain"
	"example.com/shop-backend/services/shop/internal/payment"
	"example.com/shop-backend/services/shop/internal/testutil"
)

type orderFixture struct {
	orders   *testutil.MockOrderRepository
	products *testutil.MockProductRepository
	carts    *testutil.MockCartRepository
	coupons  *testutil.MockCouponRepository
	outbox   *testutil.MockOutboxRepository
	gateway  *testutil.MockGateway
	lock     *testutil.StubLock
	svc      OrderService
}

func newOrderFixture() *orderFixture {
	f := &orderFixture{
		orders:   new(testutil.MockOrderRepository),
		products: new(testutil.MockProductRepository),
		carts:    new(testutil.MockCartRepository),
		coupons:  new(testutil.MockCouponRepository),
		outbox:   new(testutil.MockOutboxRepository),
		gateway:  new(testutil.MockGateway),
		lock:     &testutil.StubLock{},
	}
	f.svc = NewOrderService(OrderServiceDeps{
		Orders:   f.orders,
		Products: f.products,
		Carts:    f.carts,
		Coupons:  f.coupons,
		Outbox:   f.outbox,
		Tx:       testutil.NoopScope{},
		Gateway:  f.gateway,
		Lock:     f.lock,
		Policy:   domain.DefaultPricingPolicy(),
		Topic:    "shop.order-events",
		Currency: "INR",
		Clock:    fixedClock,
	})
	return f
}

func (f *orderFixture) expectEvents() {
	f.outbox.On("Append", mock.Anything, mock.Anything).Return(nil)
}

func createInput() CreateOrderInput {
	return CreateOrderInput{
		Customer:        domain.Customer{UserID: "u1", Email: "ivan@example.com", Name: "Иван"},
		ShippingAddress: testAddress(),
		PaymentMethod:   domain.PaymentMethodCard,
	}
}

func storedOrder(status domain.OrderStatus, paymentStatus domain.PaymentStatus) *domain.Order {
	return &domain.Order{
		ID:            "o-1",
		OrderNumber:   "12123456ABCDEF",
		UserID:        "u1",
		PaymentMethod: domain.PaymentMethodCard,
		OrderStatus:   status,
		PaymentStatus: paymentStatus,
		Items: []domain.OrderItem{
			{ProductID: "p1", Quantity: 2, Price: dec("500"), TotalPrice: dec("1000")},
			{ProductID: "p2", Quantity: 1, Price: dec("50"), TotalPrice: dec("50")},
		},
		Subtotal:    dec("1050"),
		TotalAmount: dec("1102.50"),
		Version:     1,
	}
}

// =============================================================================
// Create
// =============================================================================

func TestOrderService_Create_FromCartWithCoupon(t *testing.T) {
	f := newOrderFixture()
	cart := &domain.Cart{UserID: "u1", Items: []domain.CartItem{{ProductID: "p1", Quantity: 2, Price: dec("500")}}}

	f.orders.On("GetByIdempotencyKey", mock.Anything, "u1", "key-1").Return(nil, domain.ErrOrderNotFound)
	f.carts.On("FindByUser", mock.Anything, "u1").Return(cart, nil)
	f.products.On("FindActive", mock.Anything, "p1").Return(testProduct("p1", "500", 10), nil)
	f.coupons.On("FindByCode", mock.Anything, "SAVE10").Return(percentCoupon("SAVE10", "10", "80"), nil)
	f.coupons.On("CountUserUsages", mock.Anything, "SAVE10", "u1").Return(0, nil)
	f.orders.On("Create", mock.Anything, mock.AnythingOfType("*domain.Order")).Return(nil)
	f.products.On("DecrementInventory", mock.Anything, "p1", 2).Return(nil)
	f.coupons.On("IncrementUsage", mock.Anything, "SAVE10", "u1", mock.Anything, fixedNow).Return(nil)
	f.carts.On("Clear", mock.Anything, "u1").Return(nil)
	f.expectEvents()

	in := createInput()
	in.CouponCode = "save10"
	in.IdempotencyKey = "key-1"
	// позиции запроса игнорируются: корзина не пуста
	in.Items = []domain.RequestedItem{{ProductID: "other", Quantity: 1}}

	order, err := f.svc.Create(context.Background(), in)
	require.NoError(t, err)

	assertMoney(t, "1000.00", order.Subtotal)
	assertMoney(t, "80.00", order.DiscountAmount)
	assertMoney(t, "0.00", order.ShippingCharges)
	assertMoney(t, "46.00", order.TaxAmount)
	assertMoney(t, "966.00", order.TotalAmount)
	assert.Equal(t, "SAVE10", order.CouponCode)
	assert.Equal(t, domain.OrderStatusPending, order.OrderStatus)
	assert.Equal(t, domain.PaymentStatusPending, order.PaymentStatus)
	assert.True(t, domain.IsOrderNumber(order.OrderNumber))
	assert.Equal(t, order.ShippingAddress, order.BillingAddress)
	require.Len(t, order.StatusHistory, 1)
	assert.Equal(t, []string{domain.EventOrderCreated}, f.outbox.EventTypes())

	f.orders.AssertExpectations(t)
	f.products.AssertExpectations(t)
	f.coupons.AssertExpectations(t)
	f.carts.AssertExpectations(t)
	f.products.AssertNotCalled(t, "FindActive", mock.Anything, "other")
}

func TestOrderService_Create_FromExplicitItems(t *testing.T) {
	f := newOrderFixture()
	f.carts.On("FindByUser", mock.Anything, "u1").Return(&domain.Cart{UserID: "u1"}, nil)
	f.products.On("FindActive", mock.Anything, "p1").Return(testProduct("p1", "100", 10), nil)
	f.orders.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.products.On("DecrementInventory", mock.Anything, "p1", 3).Return(nil)
	f.carts.On("Clear", mock.Anything, "u1").Return(nil)
	f.expectEvents()

	in := createInput()
	in.Items = []domain.RequestedItem{{ProductID: "p1", Quantity: 3}}

	order, err := f.svc.Create(context.Background(), in)
	require.NoError(t, err)

	assertMoney(t, "300.00", order.Subtotal)
	assertMoney(t, "50.00", order.ShippingCharges)
	assertMoney(t, "15.00", order.TaxAmount)
	assertMoney(t, "365.00", order.TotalAmount)
	assert.Empty(t, order.CouponCode)
	f.coupons.AssertNotCalled(t, "IncrementUsage", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderService_Create_EmptyOrder(t *testing.T) {
	f := newOrderFixture()
	f.carts.On("FindByUser", mock.Anything, "u1").Return(&domain.Cart{UserID: "u1"}, nil)

	_, err := f.svc.Create(context.Background(), createInput())
	require.ErrorIs(t, err, domain.ErrEmptyOrder)
	f.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestOrderService_Create_Validation(t *testing.T) {
	f := newOrderFixture()

	in := createInput()
	in.PaymentMethod = "bitcoin"
	_, err := f.svc.Create(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrInvalidPaymentMethod)

	in = createInput()
	in.ShippingAddress.City = ""
	_, err = f.svc.Create(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrInvalidAddress)

	f.carts.AssertNotCalled(t, "FindByUser", mock.Anything, mock.Anything)
}

func TestOrderService_Create_IdempotentRepeat(t *testing.T) {
	f := newOrderFixture()
	existing := storedOrder(domain.OrderStatusPending, domain.PaymentStatusPending)
	f.orders.On("GetByIdempotencyKey", mock.Anything, "u1", "key-1").Return(existing, nil)

	in := createInput()
	in.IdempotencyKey = "key-1"

	order, err := f.svc.Create(context.Background(), in)
	require.NoError(t, err)
	assert.Same(t, existing, order)
	f.carts.AssertNotCalled(t, "FindByUser", mock.Anything, mock.Anything)
	f.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestOrderService_Create_ConcurrentDuplicateKey(t *testing.T) {
	f := newOrderFixture()
	existing := storedOrder(domain.OrderStatusPending, domain.PaymentStatusPending)

	f.orders.On("GetByIdempotencyKey", mock.Anything, "u1", "key-1").Return(nil, domain.ErrOrderNotFound).Once()
	f.carts.On("FindByUser", mock.Anything, "u1").Return(&domain.Cart{UserID: "u1"}, nil)
	f.products.On("FindActive", mock.Anything, "p1").Return(testProduct("p1", "100", 10), nil)
	f.orders.On("Create", mock.Anything, mock.Anything).Return(domain.ErrDuplicateOrder)
	f.orders.On("GetByIdempotencyKey", mock.Anything, "u1", "key-1").Return(existing, nil).Once()

	in := createInput()
	in.IdempotencyKey = "key-1"
	in.Items = []domain.RequestedItem{{ProductID: "p1", Quantity: 1}}

	order, err := f.svc.Create(context.Background(), in)
	require.NoError(t, err)
	assert.Same(t, existing, order)
	f.products.AssertNotCalled(t, "DecrementInventory", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderService_Create_RetriesOrderNumberCollision(t *testing.T) {
	f := newOrderFixture()
	f.carts.On("FindByUser", mock.Anything, "u1").Return(&domain.Cart{UserID: "u1"}, nil)
	f.products.On("FindActive", mock.Anything, "p1").Return(testProduct("p1", "100", 10), nil)
	f.orders.On("Create", mock.Anything, mock.Anything).Return(domain.ErrDuplicateOrderNumber).Once()
	f.orders.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
	f.products.On("DecrementInventory", mock.Anything, "p1", 1).Return(nil)
	f.carts.On("Clear", mock.Anything, "u1").Return(nil)
	f.expectEvents()

	in := createInput()
	in.Items = []domain.RequestedItem{{ProductID: "p1", Quantity: 1}}

	_, err := f.svc.Create(context.Background(), in)
	require.NoError(t, err)
	f.orders.AssertNumberOfCalls(t, "Create", 2)
}

func TestOrderService_Create_GivesUpAfterCollisions(t *testing.T) {
	f := newOrderFixture()
	f.carts.On("FindByUser", mock.Anything, "u1").Return(&domain.Cart{UserID: "u1"}, nil)
	f.products.On("FindActive", mock.Anything, "p1").Return(testProduct("p1", "100", 10), nil)
	f.orders.On("Create", mock.Anything, mock.Anything).Return(domain.ErrDuplicateOrderNumber)

	in := createInput()
	in.Items = []domain.RequestedItem{{ProductID: "p1", Quantity: 1}}

	_, err := f.svc.Create(context.Background(), in)
	require.ErrorIs(t, err, domain.ErrDuplicateOrderNumber)
	f.orders.AssertNumberOfCalls(t, "Create", maxOrderNumberAttempts)
}

func TestOrderService_Create_InventoryRaceRollsBack(t *testing.T) {
	f := newOrderFixture()
	f.carts.On("FindByUser", mock.Anything, "u1").Return(&domain.Cart{UserID: "u1"}, nil)
	f.products.On("FindActive", mock.Anything, "p1").Return(testProduct("p1", "100", 10), nil)
	f.orders.On("Create", mock.Anything, mock.Anything).Return(nil)
	// остаток закончился между проверкой и списанием
	f.products.On("DecrementInventory", mock.Anything, "p1", 5).
		Return(&domain.InsufficientInventoryError{ProductID: "p1", Name: "Товар p1", Requested: 5, Available: 2})

	in := createInput()
	in.Items = []domain.RequestedItem{{ProductID: "p1", Quantity: 5}}

	_, err := f.svc.Create(context.Background(), in)
	require.ErrorIs(t, err, domain.ErrInsufficientInventory)

	var insufficient *domain.InsufficientInventoryError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, 2, insufficient.Available)

	f.carts.AssertNotCalled(t, "Clear", mock.Anything, mock.Anything)
	f.outbox.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestOrderService_Create_InvalidCouponIsTerminal(t *testing.T) {
	f := newOrderFixture()
	f.carts.On("FindByUser", mock.Anything, "u1").Return(&domain.Cart{UserID: "u1"}, nil)
	f.products.On("FindActive", mock.Anything, "p1").Return(testProduct("p1", "100", 10), nil)
	f.coupons.On("FindByCode", mock.Anything, "GONE").Return(nil, domain.ErrCouponNotFound)

	in := createInput()
	in.CouponCode = "gone"
	in.Items = []domain.RequestedItem{{ProductID: "p1", Quantity: 1}}

	_, err := f.svc.Create(context.Background(), in)
	require.ErrorIs(t, err, domain.ErrInvalidCoupon)
	f.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

// =============================================================================
// Cancel / UpdateStatus
// =============================================================================

func TestOrderService_Cancel_PendingRestoresInventory(t *testing.T) {
	f := newOrderFixture()
	order := storedOrder(domain.OrderStatusPending, domain.PaymentStatusPending)
	f.orders.On("GetByNumber", mock.Anything, order.OrderNumber).Return(order, nil)
	f.orders.On("Update", mock.Anything, order).Return(nil)
	f.products.On("RestoreInventory", mock.Anything, "p1", 2).Return(true, nil)
	// товар удалён из каталога — пропускаем
	f.products.On("RestoreInventory", mock.Anything, "p2", 1).Return(false, nil)
	f.expectEvents()

	got, err := f.svc.Cancel(context.Background(), order.OrderNumber, "передумал", Requester{UserID: "u1"})
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusCancelled, got.OrderStatus)
	assert.Equal(t, "передумал", got.CancellationReason)
	last := got.StatusHistory[len(got.StatusHistory)-1]
	assert.Equal(t, domain.ActorCustomer, last.UpdatedBy)
	assert.Equal(t, []string{domain.EventOrderCancelled}, f.outbox.EventTypes())
	f.products.AssertExpectations(t)
}

func TestOrderService_Cancel_Rejections(t *testing.T) {
	t.Run("отправленный заказ", func(t *testing.T) {
		f := newOrderFixture()
		order := storedOrder(domain.OrderStatusShipped, domain.PaymentStatusPaid)
		f.orders.On("GetByNumber", mock.Anything, order.OrderNumber).Return(order, nil)

		_, err := f.svc.Cancel(context.Background(), order.OrderNumber, "", Requester{UserID: "u1"})
		require.ErrorIs(t, err, domain.ErrInvalidStateTransition)
		f.orders.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
		f.products.AssertNotCalled(t, "RestoreInventory", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("чужой заказ", func(t *testing.T) {
		f := newOrderFixture()
		order := storedOrder(domain.OrderStatusPending, domain.PaymentStatusPending)
		f.orders.On("GetByNumber", mock.Anything, order.OrderNumber).Return(order, nil)

		_, err := f.svc.Cancel(context.Background(), order.OrderNumber, "", Requester{UserID: "u2"})
		require.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("конкурентное изменение", func(t *testing.T) {
		f := newOrderFixture()
		order := storedOrder(domain.OrderStatusConfirmed, domain.PaymentStatusPaid)
		f.orders.On("GetByNumber", mock.Anything, order.OrderNumber).Return(order, nil)
		f.orders.On("Update", mock.Anything, order).Return(domain.ErrOrderConflict)

		_, err := f.svc.Cancel(context.Background(), order.OrderNumber, "", Requester{Admin: true})
		require.ErrorIs(t, err, domain.ErrOrderConflict)
		f.products.AssertNotCalled(t, "RestoreInventory", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestOrderService_UpdateStatus(t *testing.T) {
	t.Run("отгрузка с трек-номером", func(t *testing.T) {
		f := newOrderFixture()
		order := storedOrder(domain.OrderStatusProcessing, domain.PaymentStatusPaid)
		f.orders.On("GetByNumber", mock.Anything, order.OrderNumber).Return(order, nil)
		f.orders.On("Update", mock.Anything, order).Return(nil)
		f.expectEvents()

		got, err := f.svc.UpdateStatus(context.Background(), order.OrderNumber, domain.StatusUpdate{
			Status:         domain.OrderStatusShipped,
			TrackingNumber: "TRK-1",
			Carrier:        "CDEK",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatusShipped, got.OrderStatus)
		assert.Equal(t, "TRK-1", got.TrackingNumber)
		assert.Equal(t, domain.ActorAdmin, got.StatusHistory[len(got.StatusHistory)-1].UpdatedBy)
		assert.Equal(t, []string{domain.EventOrderStatusChanged}, f.outbox.EventTypes())
	})

	t.Run("доставка проставляет дату", func(t *testing.T) {
		f := newOrderFixture()
		order := storedOrder(domain.OrderStatusShipped, domain.PaymentStatusPaid)
		f.orders.On("GetByNumber", mock.Anything, order.OrderNumber).Return(order, nil)
		f.orders.On("Update", mock.Anything, order).Return(nil)
		f.expectEvents()

		got, err := f.svc.UpdateStatus(context.Background(), order.OrderNumber, domain.StatusUpdate{Status: domain.OrderStatusDelivered})
		require.NoError(t, err)
		require.NotNil(t, got.DeliveredAt)
		assert.True(t, got.DeliveredAt.Equal(fixedNow))
	})

	t.Run("недопустимый переход", func(t *testing.T) {
		f := newOrderFixture()
		order := storedOrder(domain.OrderStatusPending, domain.PaymentStatusPending)
		f.orders.On("GetByNumber", mock.Anything, order.OrderNumber).Return(order, nil)

		_, err := f.svc.UpdateStatus(context.Background(), order.OrderNumber, domain.StatusUpdate{Status: domain.OrderStatusShipped})
		require.ErrorIs(t, err, domain.ErrInvalidStateTransition)
		f.orders.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("отмена администратором возвращает товар", func(t *testing.T) {
		f := newOrderFixture()
		order := storedOrder(domain.OrderStatusConfirmed, domain.PaymentStatusPaid)
		f.orders.On("GetByNumber", mock.Anything, order.OrderNumber).Return(order, nil)
		f.orders.On("Update", mock.Anything, order).Return(nil)
		f.products.On("RestoreInventory", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
		f.expectEvents()

		got, err := f.svc.UpdateStatus(context.Background(), order.OrderNumber, domain.StatusUpdate{
			Status: domain.OrderStatusCancelled,
			Note:   "нет в наличии у поставщика",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatusCancelled, got.OrderStatus)
		f.products.AssertNumberOfCalls(t, "RestoreInventory", 2)
		assert.Equal(t, []string{domain.EventOrderCancelled}, f.outbox.EventTypes())
	})
}

// =============================================================================
// Оплата
// =============================================================================

func TestOrderService_VerifyPayment(t *testing.T) {
	t.Run("подпись верна", func(t *testing.T) {
		f := newOrderFixture()
		order := storedOrder(domain.OrderStatusPending, domain.PaymentStatusPending)
		order.GatewayOrderID = "gw_1"
		f.orders.On("GetByNumber", mock.Anything, order.OrderNumber).Return(order, nil)
		f.gateway.On("VerifySignature", "gw_1", "pay_1", "sig").Return(true)
		f.orders.On("Update", mock.Anything, order).Return(nil)
		f.expectEvents()

		got, err := f.svc.VerifyPayment(context.Background(), order.OrderNumber,
			VerifyPaymentInput{PaymentID: "pay_1", Signature: "sig"}, Requester{UserID: "u1"})
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusPaid, got.PaymentStatus)
		assert.Equal(t, domain.OrderStatusConfirmed, got.OrderStatus)
		assert.Equal(t, "pay_1", got.PaymentID)
		assert.Equal(t, 1, f.lock.Released)
		f.products.AssertNotCalled(t, "DecrementInventory", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("подпись неверна", func(t *testing.T) {
		f := newOrderFixture()
		order := storedOrder(domain.OrderStatusPending, domain.PaymentStatusPending)
		f.orders.On("GetByNumber", mock.Anything, order.OrderNumber).Return(order, nil)
		f.gateway.On("VerifySignature", order.OrderNumber, "pay_1", "bad").Return(false)
		f.orders.On("Update", mock.Anything, order).Return(nil)
		f.expectEvents()

		_, err := f.svc.VerifyPayment(context.Background(), order.OrderNumber,
			VerifyPaymentInput{PaymentID: "pay_1", Signature: "bad"}, Requester{UserID: "u1"})
		require.ErrorIs(t, err, domain.ErrPaymentVerificationFailed)
		assert.Equal(t, domain.PaymentStatusFailed, order.PaymentStatus)
		assert.Equal(t, domain.OrderStatusPending, order.OrderStatus)
	})

	t.Run("платёж уже обрабатывается", func(t *testing.T) {
		f := newOrderFixture()
		f.lock.Busy = true

		_, err := f.svc.VerifyPayment(context.Background(), "12123456ABCDEF",
			VerifyPaymentInput{PaymentID: "pay_1", Signature: "sig"}, Requester{UserID: "u1"})
		require.ErrorIs(t, err, domain.ErrPaymentInProgress)
		f.orders.AssertNotCalled(t, "GetByNumber", mock.Anything, mock.Anything)
	})

	t.Run("повторное подтверждение", func(t *testing.T) {
		f := newOrderFixture()
		order := storedOrder(domain.OrderStatusConfirmed, domain.PaymentStatusPaid)
		order.PaymentID = "pay_1"
		f.orders.On("GetByNumber", mock.Anything, order.OrderNumber).Return(order, nil)

		got, err := f.svc.VerifyPayment(context.Background(), order.OrderNumber,
			VerifyPaymentInput{PaymentID: "pay_1", Signature: "sig"}, Requester{UserID: "u1"})
		require.NoError(t, err)
		assert.Same(t, order, got)
		f.gateway.AssertNotCalled(t, "VerifySignature", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestOrderService_RecordPaymentResult_Failure(t *testing.T) {
	f := newOrderFixture()
	order := storedOrder(domain.OrderStatusPending, domain.PaymentStatusPending)
	f.orders.On("GetByNumber", mock.Anything, order.OrderNumber).Return(order, nil)
	f.orders.On("Update", mock.Anything, order).Return(nil)
	f.expectEvents()

	got, err := f.svc.RecordPaymentResult(context.Background(), order.OrderNumber,
		domain.PaymentResult{Success: false, FailureReason: "insufficient funds"})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusFailed, got.PaymentStatus)
	assert.Contains(t, got.StatusHistory[len(got.StatusHistory)-1].Note, "insufficient funds")
	assert.Equal(t, []string{domain.EventOrderPaymentRecorded}, f.outbox.EventTypes())
}

// =============================================================================
// Refund
// =============================================================================

func TestOrderService_Refund(t *testing.T) {
	t.Run("полный возврат", func(t *testing.T) {
		f := newOrderFixture()
		order := storedOrder(domain.OrderStatusDelivered, domain.PaymentStatusPaid)
		order.PaymentID = "pi_1"
		f.orders.On("GetByNumber", mock.Anything, order.OrderNumber).Return(order, nil)
		f.orders.On("Update", mock.Anything, order).Return(nil)
		f.gateway.On("Refund", mock.Anything, mock.MatchedBy(func(req payment.RefundRequest) bool {
			return req.PaymentID == "pi_1" && req.Amount.Equal(dec("1102.50")) && req.Currency == "INR"
		})).Return(&payment.RefundResult{RefundID: "re_1", Status: "succeeded", Provider: "stripe"}, nil)
		f.expectEvents()

		got, err := f.svc.Refund(context.Background(), order.OrderNumber, dec("0"), "брак")
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusRefunded, got.PaymentStatus)
		assert.Equal(t, domain.RefundStatusProcessed, got.RefundStatus)
		assertMoney(t, "1102.50", got.RefundAmount)
		f.orders.AssertNumberOfCalls(t, "Update", 2)
		assert.Equal(t, []string{domain.EventOrderRefunded}, f.outbox.EventTypes())
	})

	t.Run("частичный возврат", func(t *testing.T) {
		f := newOrderFixture()
		order := storedOrder(domain.OrderStatusDelivered, domain.PaymentStatusPaid)
		f.orders.On("GetByNumber", mock.Anything, order.OrderNumber).Return(order, nil)
		f.orders.On("Update", mock.Anything, order).Return(nil)
		f.gateway.On("Refund", mock.Anything, mock.Anything).
			Return(&payment.RefundResult{RefundID: "re_2", Provider: "stripe"}, nil)
		f.expectEvents()

		got, err := f.svc.Refund(context.Background(), order.OrderNumber, dec("100"), "")
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusPartiallyRefunded, got.PaymentStatus)
		assertMoney(t, "100.00", got.RefundAmount)
	})

	t.Run("сумма больше заказа", func(t *testing.T) {
		f := newOrderFixture()
		order := storedOrder(domain.OrderStatusDelivered, domain.PaymentStatusPaid)
		f.orders.On("GetByNumber", mock.Anything, order.OrderNumber).Return(order, nil)

		_, err := f.svc.Refund(context.Background(), order.OrderNumber, dec("5000"), "")
		require.ErrorIs(t, err, domain.ErrInvalidRefundAmount)
		f.orders.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("сумма меньше копейки", func(t *testing.T) {
		f := newOrderFixture()
		order := storedOrder(domain.OrderStatusDelivered, domain.PaymentStatusPaid)
		f.orders.On("GetByNumber", mock.Anything, order.OrderNumber).Return(order, nil)

		_, err := f.svc.Refund(context.Background(), order.OrderNumber, dec("0.004"), "")
		require.ErrorIs(t, err, domain.ErrInvalidRefundAmount)
		assert.Equal(t, domain.PaymentStatusPaid, order.PaymentStatus)
		assert.True(t, order.CanRefund())
		f.gateway.AssertNotCalled(t, "Refund", mock.Anything, mock.Anything)
		f.orders.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("заказ не оплачен", func(t *testing.T) {
		f := newOrderFixture()
		order := storedOrder(domain.OrderStatusPending, domain.PaymentStatusPending)
		f.orders.On("GetByNumber", mock.Anything, order.OrderNumber).Return(order, nil)

		_, err := f.svc.Refund(context.Background(), order.OrderNumber, dec("0"), "")
		require.ErrorIs(t, err, domain.ErrInvalidStateTransition)
	})

	t.Run("ошибка шлюза компенсируется", func(t *testing.T) {
		f := newOrderFixture()
		order := storedOrder(domain.OrderStatusDelivered, domain.PaymentStatusPaid)
		f.orders.On("GetByNumber", mock.Anything, order.OrderNumber).Return(order, nil)
		f.orders.On("Update", mock.Anything, order).Return(nil)
		f.gateway.On("Refund", mock.Anything, mock.Anything).Return(nil, errors.New("card_declined"))

		_, err := f.svc.Refund(context.Background(), order.OrderNumber, dec("0"), "брак")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "card_declined")

		assert.Equal(t, domain.RefundStatusFailed, order.RefundStatus)
		assert.Equal(t, domain.PaymentStatusPaid, order.PaymentStatus)
		assert.True(t, order.RefundAmount.IsZero())
		f.orders.AssertNumberOfCalls(t, "Update", 2)
		f.outbox.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
	})
}

// =============================================================================
// ExpireStale
// =============================================================================

func TestOrderService_ExpireStale(t *testing.T) {
	f := newOrderFixture()
	ttl := 24 * time.Hour
	stale := storedOrder(domain.OrderStatusPending, domain.PaymentStatusPending)
	failed := storedOrder(domain.OrderStatusPending, domain.PaymentStatusFailed)
	failed.OrderNumber = "12654321ZYXWVU"
	conflicted := storedOrder(domain.OrderStatusPending, domain.PaymentStatusPending)
	conflicted.OrderNumber = "12000000AAAAAA"

	f.orders.On("ListStalePending", mock.Anything, fixedNow.Add(-ttl), 50).
		Return([]*domain.Order{stale, failed, conflicted}, nil)
	f.orders.On("Update", mock.Anything, stale).Return(nil)
	f.orders.On("Update", mock.Anything, failed).Return(nil)
	f.orders.On("Update", mock.Anything, conflicted).Return(domain.ErrOrderConflict)
	f.products.On("RestoreInventory", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
	f.expectEvents()

	n, err := f.svc.ExpireStale(context.Background(), ttl, 50)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, domain.OrderStatusCancelled, stale.OrderStatus)
	assert.Equal(t, domain.ActorSystem, stale.StatusHistory[len(stale.StatusHistory)-1].UpdatedBy)
}
