package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"example.com/shop-backend/services/shop/internal/domain"
)

// Суммы в ответах передаются строками с двумя знаками после запятой.
func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func moneyPtr(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := money(*d)
	return &s
}

// PaginationResponse — информация о странице списка.
type PaginationResponse struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

func newPagination(p pageParams, total int64) PaginationResponse {
	pages := 0
	if p.size > 0 {
		pages = int((total + int64(p.size) - 1) / int64(p.size))
	}
	return PaginationResponse{Page: p.page, PageSize: p.size, TotalItems: total, TotalPages: pages}
}

// === Каталог ===

// ProductRequest — создание или изменение товара администратором.
type ProductRequest struct {
	Name          string           `json:"name" binding:"required"`
	SKU           string           `json:"sku" binding:"required"`
	Description   string           `json:"description"`
	Category      string           `json:"category"`
	Price         decimal.Decimal  `json:"price"`
	DiscountPrice *decimal.Decimal `json:"discount_price"`
	Inventory     int              `json:"inventory" binding:"min=0"`
	IsActive      *bool            `json:"is_active"`
}

func (r ProductRequest) toDomain(id string) *domain.Product {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return &domain.Product{
		ID:            id,
		Name:          r.Name,
		SKU:           r.SKU,
		Description:   r.Description,
		Category:      r.Category,
		Price:         r.Price,
		DiscountPrice: r.DiscountPrice,
		Inventory:     r.Inventory,
		IsActive:      active,
	}
}

// ProductResponse — товар в ответе.
type ProductResponse struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	SKU            string  `json:"sku"`
	Description    string  `json:"description,omitempty"`
	Category       string  `json:"category,omitempty"`
	Price          string  `json:"price"`
	DiscountPrice  *string `json:"discount_price,omitempty"`
	EffectivePrice string  `json:"effective_price"`
	InStock        bool    `json:"in_stock"`
	Inventory      int     `json:"inventory"`
	IsActive       bool    `json:"is_active"`
	AverageRating  string  `json:"average_rating"`
	ReviewCount    int     `json:"review_count"`
}

func productToResponse(p *domain.Product) ProductResponse {
	return ProductResponse{
		ID:             p.ID,
		Name:           p.Name,
		SKU:            p.SKU,
		Description:    p.Description,
		Category:       p.Category,
		Price:          money(p.Price),
		DiscountPrice:  moneyPtr(p.DiscountPrice),
		EffectivePrice: money(p.EffectivePrice()),
		InStock:        p.Inventory > 0,
		Inventory:      p.Inventory,
		IsActive:       p.IsActive,
		AverageRating:  p.AverageRating.StringFixed(1),
		ReviewCount:    p.ReviewCount,
	}
}

// ReviewRequest — новый отзыв о товаре.
type ReviewRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Title   string `json:"title" binding:"max=200"`
	Comment string `json:"comment" binding:"max=5000"`
}

// ReviewResponse — отзыв в ответе.
type ReviewResponse struct {
	ID               string    `json:"id"`
	UserName         string    `json:"user_name"`
	Rating           int       `json:"rating"`
	Title            string    `json:"title,omitempty"`
	Comment          string    `json:"comment,omitempty"`
	VerifiedPurchase bool      `json:"verified_purchase"`
	CreatedAt        time.Time `json:"created_at"`
}

func reviewToResponse(r *domain.Review) ReviewResponse {
	return ReviewResponse{
		ID:               r.ID,
		UserName:         r.UserName,
		Rating:           r.Rating,
		Title:            r.Title,
		Comment:          r.Comment,
		VerifiedPurchase: r.VerifiedPurchase,
		CreatedAt:        r.CreatedAt,
	}
}

// === Корзина ===

// CartItemRequest — добавление товара в корзину.
type CartItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

// CartQuantityRequest — изменение количества позиции.
type CartQuantityRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1"`
}

// CartResponse — корзина с ценами на момент добавления.
type CartResponse struct {
	Items    []CartItemResponse `json:"items"`
	Total    string             `json:"total"`
	Currency string             `json:"currency"`
}

// CartItemResponse — позиция корзины.
type CartItemResponse struct {
	ProductID     string  `json:"product_id"`
	Quantity      int     `json:"quantity"`
	Price         string  `json:"price"`
	DiscountPrice *string `json:"discount_price,omitempty"`
	LineTotal     string  `json:"line_total"`
}

func cartToResponse(c *domain.Cart, currency string) CartResponse {
	resp := CartResponse{Items: []CartItemResponse{}, Total: money(decimal.Zero), Currency: currency}
	if c == nil {
		return resp
	}
	resp.Total = money(c.Total())
	for _, item := range c.Items {
		resp.Items = append(resp.Items, CartItemResponse{
			ProductID:     item.ProductID,
			Quantity:      item.Quantity,
			Price:         money(item.Price),
			DiscountPrice: moneyPtr(item.DiscountPrice),
			LineTotal:     money(domain.LineTotal(item.Price, item.DiscountPrice, item.Quantity)),
		})
	}
	return resp
}

// === Купоны ===

// ValidateCouponRequest — проверка купона для суммы корзины.
type ValidateCouponRequest struct {
	Code        string          `json:"code" binding:"required"`
	OrderAmount decimal.Decimal `json:"order_amount"`
}

// CouponCheckResponse — результат проверки купона для отображения.
type CouponCheckResponse struct {
	Code         string `json:"code"`
	Valid        bool   `json:"valid"`
	Reason       string `json:"reason,omitempty"`
	Message      string `json:"message"`
	Type         string `json:"type,omitempty"`
	Discount     string `json:"discount"`
	FreeShipping bool   `json:"free_shipping"`
}

func couponCheckToResponse(c *domain.CouponCheck) CouponCheckResponse {
	return CouponCheckResponse{
		Code:         c.Code,
		Valid:        c.Valid,
		Reason:       string(c.Reason),
		Message:      c.Message,
		Type:         string(c.Type),
		Discount:     money(c.Discount),
		FreeShipping: c.FreeShipping,
	}
}

// CouponRequest — создание купона администратором.
type CouponRequest struct {
	Code                  string           `json:"code" binding:"required"`
	Description           string           `json:"description"`
	Type                  string           `json:"type" binding:"required,oneof=percentage fixed free_shipping"`
	Value                 decimal.Decimal  `json:"value"`
	MinimumOrderAmount    decimal.Decimal  `json:"minimum_order_amount"`
	MaximumDiscountAmount *decimal.Decimal `json:"maximum_discount_amount"`
	UsageLimit            *int             `json:"usage_limit"`
	UserUsageLimit        int              `json:"user_usage_limit"`
	ValidFrom             time.Time        `json:"valid_from" binding:"required"`
	ValidUntil            time.Time        `json:"valid_until" binding:"required"`
}

func (r CouponRequest) toDomain() *domain.Coupon {
	perUser := r.UserUsageLimit
	if perUser == 0 {
		perUser = 1
	}
	return &domain.Coupon{
		Code:                  r.Code,
		Description:           r.Description,
		Type:                  domain.CouponType(r.Type),
		Value:                 r.Value,
		MinimumOrderAmount:    r.MinimumOrderAmount,
		MaximumDiscountAmount: r.MaximumDiscountAmount,
		UsageLimit:            r.UsageLimit,
		UserUsageLimit:        perUser,
		ValidFrom:             r.ValidFrom,
		ValidUntil:            r.ValidUntil,
		IsActive:              true,
	}
}

// CouponResponse — купон в админском ответе.
type CouponResponse struct {
	Code                  string    `json:"code"`
	Description           string    `json:"description,omitempty"`
	Type                  string    `json:"type"`
	Value                 string    `json:"value"`
	MinimumOrderAmount    string    `json:"minimum_order_amount"`
	MaximumDiscountAmount *string   `json:"maximum_discount_amount,omitempty"`
	UsageLimit            *int      `json:"usage_limit,omitempty"`
	UsedCount             int       `json:"used_count"`
	UserUsageLimit        int       `json:"user_usage_limit"`
	ValidFrom             time.Time `json:"valid_from"`
	ValidUntil            time.Time `json:"valid_until"`
	IsActive              bool      `json:"is_active"`
}

func couponToResponse(c *domain.Coupon) CouponResponse {
	return CouponResponse{
		Code:                  c.Code,
		Description:           c.Description,
		Type:                  string(c.Type),
		Value:                 c.Value.String(),
		MinimumOrderAmount:    money(c.MinimumOrderAmount),
		MaximumDiscountAmount: moneyPtr(c.MaximumDiscountAmount),
		UsageLimit:            c.UsageLimit,
		UsedCount:             c.UsedCount,
		UserUsageLimit:        c.UserUsageLimit,
		ValidFrom:             c.ValidFrom,
		ValidUntil:            c.ValidUntil,
		IsActive:              c.IsActive,
	}
}

// === Заказы ===

// CreateOrderRequest — оформление заказа. Позиции используются, только если
// корзина пуста.
type CreateOrderRequest struct {
	Items           []OrderItemRequest `json:"items" binding:"omitempty,dive"`
	ShippingAddress domain.Address     `json:"shipping_address"`
	BillingAddress  domain.Address     `json:"billing_address"`
	PaymentMethod   string             `json:"payment_method" binding:"required"`
	CouponCode      string             `json:"coupon_code"`
	GatewayOrderID  string             `json:"gateway_order_id"`
	Notes           string             `json:"notes" binding:"max=1000"`
	// IdempotencyKey можно передать в теле, если клиент не умеет ставить заголовок.
	IdempotencyKey string `json:"idempotency_key"`
}

// OrderItemRequest — позиция заказа без корзины.
type OrderItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

// CancelOrderRequest — причина отмены (необязательна).
type CancelOrderRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// VerifyPaymentRequest — данные платёжной формы шлюза.
type VerifyPaymentRequest struct {
	GatewayOrderID string `json:"gateway_order_id"`
	PaymentID      string `json:"payment_id" binding:"required"`
	Signature      string `json:"signature" binding:"required"`
}

// UpdateStatusRequest — административная смена статуса.
type UpdateStatusRequest struct {
	Status         string `json:"status" binding:"required"`
	Note           string `json:"note"`
	TrackingNumber string `json:"tracking_number"`
	Carrier        string `json:"carrier"`
}

// PaymentResultRequest — результат оплаты, внесённый вручную (приём наложенного
// платежа, сверка со шлюзом).
type PaymentResultRequest struct {
	Success        *bool  `json:"success" binding:"required"`
	PaymentID      string `json:"payment_id"`
	GatewayOrderID string `json:"gateway_order_id"`
	FailureReason  string `json:"failure_reason" binding:"max=500"`
}

// RefundRequest — возврат. Пустая или нулевая сумма означает полный возврат.
type RefundRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason" binding:"max=500"`
}

// OrderResponse — заказ в ответе. Внутренний идентификатор наружу не отдаётся.
type OrderResponse struct {
	OrderNumber        string                      `json:"order_number"`
	Status             string                      `json:"status"`
	PaymentStatus      string                      `json:"payment_status"`
	PaymentMethod      string                      `json:"payment_method"`
	Items              []OrderItemResponse         `json:"items"`
	ShippingAddress    domain.Address              `json:"shipping_address"`
	BillingAddress     domain.Address              `json:"billing_address"`
	Subtotal           string                      `json:"subtotal"`
	Discount           string                      `json:"discount"`
	ShippingCharges    string                      `json:"shipping_charges"`
	Tax                string                      `json:"tax"`
	Total              string                      `json:"total"`
	Currency           string                      `json:"currency"`
	CouponCode         string                      `json:"coupon_code,omitempty"`
	RefundAmount       *string                     `json:"refund_amount,omitempty"`
	RefundStatus       string                      `json:"refund_status,omitempty"`
	TrackingNumber     string                      `json:"tracking_number,omitempty"`
	Carrier            string                      `json:"carrier,omitempty"`
	CancellationReason string                      `json:"cancellation_reason,omitempty"`
	Notes              string                      `json:"notes,omitempty"`
	StatusHistory      []domain.StatusHistoryEntry `json:"status_history"`
	CreatedAt          time.Time                   `json:"created_at"`
	UpdatedAt          time.Time                   `json:"updated_at"`
	DeliveredAt        *time.Time                  `json:"delivered_at,omitempty"`
}

// OrderItemResponse — позиция заказа.
type OrderItemResponse struct {
	ProductID     string  `json:"product_id"`
	Name          string  `json:"name"`
	SKU           string  `json:"sku"`
	Quantity      int     `json:"quantity"`
	Price         string  `json:"price"`
	DiscountPrice *string `json:"discount_price,omitempty"`
	TotalPrice    string  `json:"total_price"`
}

// OrderSummaryResponse — строка списка заказов.
type OrderSummaryResponse struct {
	OrderNumber   string    `json:"order_number"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status"`
	ItemsCount    int       `json:"items_count"`
	Total         string    `json:"total"`
	CreatedAt     time.Time `json:"created_at"`
}

// ListOrdersResponse — страница заказов.
type ListOrdersResponse struct {
	Orders     []OrderSummaryResponse `json:"orders"`
	Pagination PaginationResponse     `json:"pagination"`
}

func orderToResponse(o *domain.Order, currency string) OrderResponse {
	items := make([]OrderItemResponse, len(o.Items))
	for i, item := range o.Items {
		items[i] = OrderItemResponse{
			ProductID:     item.ProductID,
			Name:          item.Name,
			SKU:           item.SKU,
			Quantity:      item.Quantity,
			Price:         money(item.Price),
			DiscountPrice: moneyPtr(item.DiscountPrice),
			TotalPrice:    money(item.TotalPrice),
		}
	}

	resp := OrderResponse{
		OrderNumber:        o.OrderNumber,
		Status:             string(o.OrderStatus),
		PaymentStatus:      string(o.PaymentStatus),
		PaymentMethod:      string(o.PaymentMethod),
		Items:              items,
		ShippingAddress:    o.ShippingAddress,
		BillingAddress:     o.BillingAddress,
		Subtotal:           money(o.Subtotal),
		Discount:           money(o.DiscountAmount),
		ShippingCharges:    money(o.ShippingCharges),
		Tax:                money(o.TaxAmount),
		Total:              money(o.TotalAmount),
		Currency:           currency,
		CouponCode:         o.CouponCode,
		RefundStatus:       string(o.RefundStatus),
		TrackingNumber:     o.TrackingNumber,
		Carrier:            o.Carrier,
		CancellationReason: o.CancellationReason,
		Notes:              o.Notes,
		StatusHistory:      o.StatusHistory,
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
		DeliveredAt:        o.DeliveredAt,
	}
	if o.RefundStatus != domain.RefundStatusNone {
		resp.RefundAmount = moneyPtr(&o.RefundAmount)
	}
	if resp.StatusHistory == nil {
		resp.StatusHistory = []domain.StatusHistoryEntry{}
	}
	return resp
}

func ordersToResponse(orders []*domain.Order, p pageParams, total int64) ListOrdersResponse {
	resp := ListOrdersResponse{
		Orders:     make([]OrderSummaryResponse, len(orders)),
		Pagination: newPagination(p, total),
	}
	for i, o := range orders {
		resp.Orders[i] = OrderSummaryResponse{
			OrderNumber:   o.OrderNumber,
			Status:        string(o.OrderStatus),
			PaymentStatus: string(o.PaymentStatus),
			ItemsCount:    o.TotalQuantity(),
			Total:         money(o.TotalAmount),
			CreatedAt:     o.CreatedAt,
		}
	}
	return resp
}
