// Package testutil содержит моки репозиториев и внешних зависимостей для
// unit-тестов сервисов и обработчиков.
package testutil

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"example.com/shop-backend/pkg/outbox"
	"example.com/shop-backend/services/shop/internal/domain"
	"example.com/shop-backend/services/shop/internal/payment"
)

// =============================================================================
// Транзакции
// =============================================================================

// NoopScope выполняет fn без транзакции. Подходит для тестов на моках.
type NoopScope struct{}

func (NoopScope) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// =============================================================================
// MockProductRepository
// =============================================================================

type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) FindActive(ctx context.Context, id string) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *MockProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *MockProductRepository) List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*domain.Product), args.Get(1).(int64), args.Error(2)
}

func (m *MockProductRepository) Create(ctx context.Context, p *domain.Product) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockProductRepository) Update(ctx context.Context, p *domain.Product) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockProductRepository) DecrementInventory(ctx context.Context, id string, quantity int) error {
	return m.Called(ctx, id, quantity).Error(0)
}

func (m *MockProductRepository) RestoreInventory(ctx context.Context, id string, quantity int) (bool, error) {
	args := m.Called(ctx, id, quantity)
	return args.Bool(0), args.Error(1)
}

func (m *MockProductRepository) RefreshRating(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

// =============================================================================
// MockCartRepository
// =============================================================================

type MockCartRepository struct {
	mock.Mock
}

func (m *MockCartRepository) FindByUser(ctx context.Context, userID string) (*domain.Cart, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cart), args.Error(1)
}

func (m *MockCartRepository) UpsertItem(ctx context.Context, userID string, item domain.CartItem) error {
	return m.Called(ctx, userID, item).Error(0)
}

func (m *MockCartRepository) UpdateQuantity(ctx context.Context, userID, productID string, quantity int) error {
	return m.Called(ctx, userID, productID, quantity).Error(0)
}

func (m *MockCartRepository) RemoveItem(ctx context.Context, userID, productID string) error {
	return m.Called(ctx, userID, productID).Error(0)
}

func (m *MockCartRepository) Clear(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

// =============================================================================
// MockCouponRepository
// =============================================================================

type MockCouponRepository struct {
	mock.Mock
}

func (m *MockCouponRepository) FindByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Coupon), args.Error(1)
}

func (m *MockCouponRepository) CountUserUsages(ctx context.Context, code, userID string) (int, error) {
	args := m.Called(ctx, code, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockCouponRepository) IncrementUsage(ctx context.Context, code, userID, orderID string, usedAt time.Time) error {
	return m.Called(ctx, code, userID, orderID, usedAt).Error(0)
}

func (m *MockCouponRepository) Create(ctx context.Context, c *domain.Coupon) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockCouponRepository) List(ctx context.Context, offset, limit int) ([]*domain.Coupon, int64, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*domain.Coupon), args.Get(1).(int64), args.Error(2)
}

func (m *MockCouponRepository) Deactivate(ctx context.Context, code string) error {
	return m.Called(ctx, code).Error(0)
}

// =============================================================================
// MockOrderRepository
// =============================================================================

type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	return m.Called(ctx, order).Error(0)
}

func (m *MockOrderRepository) GetByNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	args := m.Called(ctx, orderNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderRepository) GetByIdempotencyKey(ctx context.Context, userID, key string) (*domain.Order, error) {
	args := m.Called(ctx, userID, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderRepository) List(ctx context.Context, filter domain.OrderFilter) ([]*domain.Order, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*domain.Order), args.Get(1).(int64), args.Error(2)
}

func (m *MockOrderRepository) Update(ctx context.Context, order *domain.Order) error {
	return m.Called(ctx, order).Error(0)
}

func (m *MockOrderRepository) ListStalePending(ctx context.Context, before time.Time, limit int) ([]*domain.Order, error) {
	args := m.Called(ctx, before, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Order), args.Error(1)
}

func (m *MockOrderRepository) HasDeliveredProduct(ctx context.Context, userID, productID string) (bool, error) {
	args := m.Called(ctx, userID, productID)
	return args.Bool(0), args.Error(1)
}

// =============================================================================
// MockReviewRepository
// =============================================================================

type MockReviewRepository struct {
	mock.Mock
}

func (m *MockReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	return m.Called(ctx, review).Error(0)
}

func (m *MockReviewRepository) ListByProduct(ctx context.Context, productID string, offset, limit int) ([]*domain.Review, int64, error) {
	args := m.Called(ctx, productID, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*domain.Review), args.Get(1).(int64), args.Error(2)
}

// =============================================================================
// MockOutboxRepository
// =============================================================================

type MockOutboxRepository struct {
	mock.Mock
}

func (m *MockOutboxRepository) Append(ctx context.Context, e *outbox.Event) error {
	return m.Called(ctx, e).Error(0)
}

func (m *MockOutboxRepository) Pending(ctx context.Context, limit int) ([]*outbox.Event, error) {
	args := m.Called(ctx, limit)
	events, _ := args.Get(0).([]*outbox.Event)
	return events, args.Error(1)
}

func (m *MockOutboxRepository) MarkPublished(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockOutboxRepository) Reschedule(ctx context.Context, id string, cause error, next time.Time) error {
	return m.Called(ctx, id, cause, next).Error(0)
}

func (m *MockOutboxRepository) Purge(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

// EventTypes возвращает типы событий, записанных в outbox.
func (m *MockOutboxRepository) EventTypes() []string {
	var types []string
	for _, call := range m.Calls {
		if call.Method != "Append" {
			continue
		}
		if rec, ok := call.Arguments.Get(1).(*outbox.Event); ok {
			types = append(types, rec.EventType)
		}
	}
	return types
}

// =============================================================================
// Платёжный шлюз
// =============================================================================

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) VerifySignature(orderRef, paymentRef, signature string) bool {
	return m.Called(orderRef, paymentRef, signature).Bool(0)
}

func (m *MockGateway) Refund(ctx context.Context, req payment.RefundRequest) (*payment.RefundResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.RefundResult), args.Error(1)
}

// StubLock — блокировка в памяти: Busy имитирует занятый ключ.
type StubLock struct {
	Busy     bool
	Err      error
	Released int
}

func (l *StubLock) Acquire(_ context.Context, _ string) (func(), bool, error) {
	if l.Err != nil {
		return func() {}, false, l.Err
	}
	if l.Busy {
		return func() {}, false, nil
	}
	return func() { l.Released++ }, true, nil
}
