package handler

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"example.com/shop-backend/services/shop/internal/domain"
	"example.com/shop-backend/services/shop/internal/service"
)

type MockCatalogService struct{ mock.Mock }

func (m *MockCatalogService) List(ctx context.Context, f domain.ProductFilter, page, pageSize int) ([]*domain.Product, int64, error) {
	args := m.Called(ctx, f, page, pageSize)
	products, _ := args.Get(0).([]*domain.Product)
	return products, args.Get(1).(int64), args.Error(2)
}

func (m *MockCatalogService) Get(ctx context.Context, id string) (*domain.Product, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*domain.Product)
	return p, args.Error(1)
}

func (m *MockCatalogService) Create(ctx context.Context, p *domain.Product) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockCatalogService) Update(ctx context.Context, p *domain.Product) error {
	return m.Called(ctx, p).Error(0)
}

type MockReviewService struct{ mock.Mock }

func (m *MockReviewService) Create(ctx context.Context, in service.CreateReviewInput) (*domain.Review, error) {
	args := m.Called(ctx, in)
	r, _ := args.Get(0).(*domain.Review)
	return r, args.Error(1)
}

func (m *MockReviewService) List(ctx context.Context, productID string, page, pageSize int) ([]*domain.Review, int64, error) {
	args := m.Called(ctx, productID, page, pageSize)
	reviews, _ := args.Get(0).([]*domain.Review)
	return reviews, args.Get(1).(int64), args.Error(2)
}

type MockCartService struct{ mock.Mock }

func (m *MockCartService) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	args := m.Called(ctx, userID)
	c, _ := args.Get(0).(*domain.Cart)
	return c, args.Error(1)
}

func (m *MockCartService) AddItem(ctx context.Context, userID, productID string, quantity int) (*domain.Cart, error) {
	args := m.Called(ctx, userID, productID, quantity)
	c, _ := args.Get(0).(*domain.Cart)
	return c, args.Error(1)
}

func (m *MockCartService) UpdateItem(ctx context.Context, userID, productID string, quantity int) (*domain.Cart, error) {
	args := m.Called(ctx, userID, productID, quantity)
	c, _ := args.Get(0).(*domain.Cart)
	return c, args.Error(1)
}

func (m *MockCartService) RemoveItem(ctx context.Context, userID, productID string) (*domain.Cart, error) {
	args := m.Called(ctx, userID, productID)
	c, _ := args.Get(0).(*domain.Cart)
	return c, args.Error(1)
}

func (m *MockCartService) Clear(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

type MockCouponService struct{ mock.Mock }

func (m *MockCouponService) Evaluate(ctx context.Context, code, userID string, amount decimal.Decimal) (domain.CouponEvaluation, error) {
	args := m.Called(ctx, code, userID, amount)
	return args.Get(0).(domain.CouponEvaluation), args.Error(1)
}

func (m *MockCouponService) ValidateForDisplay(ctx context.Context, code, userID string, amount decimal.Decimal) (*domain.CouponCheck, error) {
	args := m.Called(ctx, code, userID, amount)
	c, _ := args.Get(0).(*domain.CouponCheck)
	return c, args.Error(1)
}

func (m *MockCouponService) Create(ctx context.Context, c *domain.Coupon) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockCouponService) List(ctx context.Context, page, pageSize int) ([]*domain.Coupon, int64, error) {
	args := m.Called(ctx, page, pageSize)
	coupons, _ := args.Get(0).([]*domain.Coupon)
	return coupons, args.Get(1).(int64), args.Error(2)
}

func (m *MockCouponService) Deactivate(ctx context.Context, code string) error {
	return m.Called(ctx, code).Error(0)
}

type MockOrderService struct{ mock.Mock }

func (m *MockOrderService) order(args mock.Arguments) (*domain.Order, error) {
	o, _ := args.Get(0).(*domain.Order)
	return o, args.Error(1)
}

func (m *MockOrderService) Create(ctx context.Context, in service.CreateOrderInput) (*domain.Order, error) {
	return m.order(m.Called(ctx, in))
}

func (m *MockOrderService) Get(ctx context.Context, orderNumber string, req service.Requester) (*domain.Order, error) {
	return m.order(m.Called(ctx, orderNumber, req))
}

func (m *MockOrderService) ListByUser(ctx context.Context, userID string, status domain.OrderStatus, page, pageSize int) ([]*domain.Order, int64, error) {
	args := m.Called(ctx, userID, status, page, pageSize)
	orders, _ := args.Get(0).([]*domain.Order)
	return orders, args.Get(1).(int64), args.Error(2)
}

func (m *MockOrderService) ListAll(ctx context.Context, status domain.OrderStatus, page, pageSize int) ([]*domain.Order, int64, error) {
	args := m.Called(ctx, status, page, pageSize)
	orders, _ := args.Get(0).([]*domain.Order)
	return orders, args.Get(1).(int64), args.Error(2)
}

func (m *MockOrderService) Cancel(ctx context.Context, orderNumber, reason string, req service.Requester) (*domain.Order, error) {
	return m.order(m.Called(ctx, orderNumber, reason, req))
}

func (m *MockOrderService) UpdateStatus(ctx context.Context, orderNumber string, u domain.StatusUpdate) (*domain.Order, error) {
	return m.order(m.Called(ctx, orderNumber, u))
}

func (m *MockOrderService) RecordPaymentResult(ctx context.Context, orderNumber string, r domain.PaymentResult) (*domain.Order, error) {
	return m.order(m.Called(ctx, orderNumber, r))
}

func (m *MockOrderService) VerifyPayment(ctx context.Context, orderNumber string, in service.VerifyPaymentInput, req service.Requester) (*domain.Order, error) {
	return m.order(m.Called(ctx, orderNumber, in, req))
}

func (m *MockOrderService) Refund(ctx context.Context, orderNumber string, amount decimal.Decimal, reason string) (*domain.Order, error) {
	return m.order(m.Called(ctx, orderNumber, amount, reason))
}

func (m *MockOrderService) ExpireStale(ctx context.Context, ttl time.Duration, limit int) (int, error) {
	args := m.Called(ctx, ttl, limit)
	return args.Int(0), args.Error(1)
}
