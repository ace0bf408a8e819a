package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"example.com/shop-backend/pkg/txscope"
	"example.com/shop-backend/services/shop/internal/domain"
)

// Имена уникальных индексов orders, по ним различаются дубликаты.
const (
	idxOrderNumber      = "idx_orders_number"
	idxOrderIdempotency = "idx_orders_user_idempotency"
)

// OrderRepository — заказы и их позиции.
type OrderRepository interface {
	// Create сохраняет заказ с позициями. Занятый номер даёт
	// ErrDuplicateOrderNumber, повтор ключа идемпотентности — ErrDuplicateOrder.
	Create(ctx context.Context, order *domain.Order) error
	GetByNumber(ctx context.Context, orderNumber string) (*domain.Order, error)
	GetByIdempotencyKey(ctx context.Context, userID, key string) (*domain.Order, error)
	List(ctx context.Context, filter domain.OrderFilter) ([]*domain.Order, int64, error)

	// Update сохраняет изменяемые поля заказа с проверкой версии. При
	// конкурентном изменении возвращает ErrOrderConflict.
	Update(ctx context.Context, order *domain.Order) error

	// ListStalePending — неоплаченные заказы (кроме наложенного платежа),
	// созданные раньше before.
	ListStalePending(ctx context.Context, before time.Time, limit int) ([]*domain.Order, error)

	// HasDeliveredProduct — есть ли у пользователя доставленный заказ с товаром.
	HasDeliveredProduct(ctx context.Context, userID, productID string) (bool, error)
}

// OrderModel — GORM модель таблицы orders. Адреса и журнал статусов хранятся
// в JSON колонках.
type OrderModel struct {
	ID                 string          `gorm:"column:id;type:varchar(36);primaryKey"`
	OrderNumber        string          `gorm:"column:order_number;type:varchar(20);not null;uniqueIndex:idx_orders_number"`
	UserID             string          `gorm:"column:user_id;type:varchar(36);not null;index;uniqueIndex:idx_orders_user_idempotency,priority:1"`
	IdempotencyKey     *string         `gorm:"column:idempotency_key;type:varchar(64);uniqueIndex:idx_orders_user_idempotency,priority:2"`
	CustomerEmail      string          `gorm:"column:customer_email;type:varchar(255)"`
	CustomerName       string          `gorm:"column:customer_name;type:varchar(255)"`
	CustomerPhone      string          `gorm:"column:customer_phone;type:varchar(32)"`
	ShippingAddress    string          `gorm:"column:shipping_address;type:json;not null"`
	BillingAddress     string          `gorm:"column:billing_address;type:json;not null"`
	PaymentMethod      string          `gorm:"column:payment_method;type:varchar(20);not null"`
	PaymentStatus      string          `gorm:"column:payment_status;type:varchar(20);not null;index"`
	OrderStatus        string          `gorm:"column:order_status;type:varchar(20);not null;index"`
	Subtotal           decimal.Decimal `gorm:"column:subtotal;type:decimal(12,2);not null"`
	DiscountAmount     decimal.Decimal `gorm:"column:discount_amount;type:decimal(12,2);not null"`
	ShippingCharges    decimal.Decimal `gorm:"column:shipping_charges;type:decimal(12,2);not null"`
	TaxAmount          decimal.Decimal `gorm:"column:tax_amount;type:decimal(12,2);not null"`
	TotalAmount        decimal.Decimal `gorm:"column:total_amount;type:decimal(12,2);not null"`
	CouponCode         string          `gorm:"column:coupon_code;type:varchar(64)"`
	CouponDiscount     decimal.Decimal `gorm:"column:coupon_discount;type:decimal(12,2);not null"`
	StatusHistory      string          `gorm:"column:status_history;type:json;not null"`
	CancellationReason string          `gorm:"column:cancellation_reason;type:varchar(500)"`
	RefundAmount       decimal.Decimal `gorm:"column:refund_amount;type:decimal(12,2);not null"`
	RefundStatus       string          `gorm:"column:refund_status;type:varchar(20)"`
	PaymentID          string          `gorm:"column:payment_id;type:varchar(128)"`
	GatewayOrderID     string          `gorm:"column:gateway_order_id;type:varchar(128)"`
	TrackingNumber     string          `gorm:"column:tracking_number;type:varchar(128)"`
	Carrier            string          `gorm:"column:carrier;type:varchar(64)"`
	Notes              string          `gorm:"column:notes;type:text"`
	DeliveredAt        *time.Time      `gorm:"column:delivered_at"`
	Version            int             `gorm:"column:version;not null;default:1"`
	CreatedAt          time.Time       `gorm:"column:created_at;index"`
	UpdatedAt          time.Time       `gorm:"column:updated_at"`

	Items []OrderItemModel `gorm:"foreignKey:OrderID;references:ID"`
}

// TableName возвращает имя таблицы в БД.
func (OrderModel) TableName() string {
	return "orders"
}

// OrderItemModel — GORM модель таблицы order_items.
type OrderItemModel struct {
	ID            uint64           `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID       string           `gorm:"column:order_id;type:varchar(36);not null;index"`
	ProductID     string           `gorm:"column:product_id;type:varchar(36);not null;index"`
	Name          string           `gorm:"column:name;type:varchar(255);not null"`
	SKU           string           `gorm:"column:sku;type:varchar(64);not null"`
	Quantity      int              `gorm:"column:quantity;not null"`
	Price         decimal.Decimal  `gorm:"column:price;type:decimal(12,2);not null"`
	DiscountPrice *decimal.Decimal `gorm:"column:discount_price;type:decimal(12,2)"`
	TotalPrice    decimal.Decimal  `gorm:"column:total_price;type:decimal(12,2);not null"`
}

// TableName возвращает имя таблицы в БД.
func (OrderItemModel) TableName() string {
	return "order_items"
}

func (m *OrderModel) toDomain() (*domain.Order, error) {
	o := &domain.Order{
		ID:          m.ID,
		OrderNumber: m.OrderNumber,
		UserID:      m.UserID,
		Customer: domain.Customer{
			UserID: m.UserID,
			Email:  m.CustomerEmail,
			Name:   m.CustomerName,
			Phone:  m.CustomerPhone,
		},
		PaymentMethod:      domain.PaymentMethod(m.PaymentMethod),
		PaymentStatus:      domain.PaymentStatus(m.PaymentStatus),
		OrderStatus:        domain.OrderStatus(m.OrderStatus),
		Subtotal:           m.Subtotal,
		DiscountAmount:     m.DiscountAmount,
		ShippingCharges:    m.ShippingCharges,
		TaxAmount:          m.TaxAmount,
		TotalAmount:        m.TotalAmount,
		CouponCode:         m.CouponCode,
		CouponDiscount:     m.CouponDiscount,
		CancellationReason: m.CancellationReason,
		RefundAmount:       m.RefundAmount,
		RefundStatus:       domain.RefundStatus(m.RefundStatus),
		PaymentID:          m.PaymentID,
		GatewayOrderID:     m.GatewayOrderID,
		TrackingNumber:     m.TrackingNumber,
		Carrier:            m.Carrier,
		Notes:              m.Notes,
		DeliveredAt:        m.DeliveredAt,
		Version:            m.Version,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
		Items:              make([]domain.OrderItem, len(m.Items)),
	}
	if m.IdempotencyKey != nil {
		o.IdempotencyKey = *m.IdempotencyKey
	}

	if err := json.Unmarshal([]byte(m.ShippingAddress), &o.ShippingAddress); err != nil {
		return nil, fmt.Errorf("ошибка чтения адреса доставки заказа %s: %w", m.OrderNumber, err)
	}
	if err := json.Unmarshal([]byte(m.BillingAddress), &o.BillingAddress); err != nil {
		return nil, fmt.Errorf("ошибка чтения платёжного адреса заказа %s: %w", m.OrderNumber, err)
	}
	if err := json.Unmarshal([]byte(m.StatusHistory), &o.StatusHistory); err != nil {
		return nil, fmt.Errorf("ошибка чтения истории заказа %s: %w", m.OrderNumber, err)
	}

	for i, item := range m.Items {
		o.Items[i] = domain.OrderItem{
			ProductID:     item.ProductID,
			Name:          item.Name,
			SKU:           item.SKU,
			Quantity:      item.Quantity,
			Price:         item.Price,
			DiscountPrice: item.DiscountPrice,
			TotalPrice:    item.TotalPrice,
		}
	}
	return o, nil
}

// mutableColumns — поля, которые меняются после создания заказа.
func mutableColumns(o *domain.Order) (map[string]any, error) {
	history, err := json.Marshal(o.StatusHistory)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации истории заказа: %w", err)
	}
	return map[string]any{
		"payment_status":      string(o.PaymentStatus),
		"order_status":        string(o.OrderStatus),
		"status_history":      string(history),
		"cancellation_reason": o.CancellationReason,
		"refund_amount":       o.RefundAmount,
		"refund_status":       string(o.RefundStatus),
		"payment_id":          o.PaymentID,
		"gateway_order_id":    o.GatewayOrderID,
		"tracking_number":     o.TrackingNumber,
		"carrier":             o.Carrier,
		"delivered_at":        o.DeliveredAt,
		"updated_at":          o.UpdatedAt,
	}, nil
}

func orderModelFromDomain(o *domain.Order) (*OrderModel, error) {
	shipping, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации адреса доставки: %w", err)
	}
	billing, err := json.Marshal(o.BillingAddress)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации платёжного адреса: %w", err)
	}
	history, err := json.Marshal(o.StatusHistory)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации истории заказа: %w", err)
	}

	m := &OrderModel{
		ID:                 o.ID,
		OrderNumber:        o.OrderNumber,
		UserID:             o.UserID,
		CustomerEmail:      o.Customer.Email,
		CustomerName:       o.Customer.Name,
		CustomerPhone:      o.Customer.Phone,
		ShippingAddress:    string(shipping),
		BillingAddress:     string(billing),
		PaymentMethod:      string(o.PaymentMethod),
		PaymentStatus:      string(o.PaymentStatus),
		OrderStatus:        string(o.OrderStatus),
		Subtotal:           o.Subtotal,
		DiscountAmount:     o.DiscountAmount,
		ShippingCharges:    o.ShippingCharges,
		TaxAmount:          o.TaxAmount,
		TotalAmount:        o.TotalAmount,
		CouponCode:         o.CouponCode,
		CouponDiscount:     o.CouponDiscount,
		StatusHistory:      string(history),
		CancellationReason: o.CancellationReason,
		RefundAmount:       o.RefundAmount,
		RefundStatus:       string(o.RefundStatus),
		PaymentID:          o.PaymentID,
		GatewayOrderID:     o.GatewayOrderID,
		TrackingNumber:     o.TrackingNumber,
		Carrier:            o.Carrier,
		Notes:              o.Notes,
		DeliveredAt:        o.DeliveredAt,
		Version:            o.Version,
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
		Items:              make([]OrderItemModel, len(o.Items)),
	}
	if o.IdempotencyKey != "" {
		m.IdempotencyKey = &o.IdempotencyKey
	}
	if m.Version == 0 {
		m.Version = 1
	}

	for i, item := range o.Items {
		m.Items[i] = OrderItemModel{
			OrderID:       o.ID,
			ProductID:     item.ProductID,
			Name:          item.Name,
			SKU:           item.SKU,
			Quantity:      item.Quantity,
			Price:         item.Price,
			DiscountPrice: item.DiscountPrice,
			TotalPrice:    item.TotalPrice,
		}
	}
	return m, nil
}

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository создаёт репозиторий заказов.
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	model, err := orderModelFromDomain(order)
	if err != nil {
		return err
	}

	if err := txscope.DB(ctx, r.db).Create(model).Error; err != nil {
		switch {
		case violatesIndex(err, idxOrderIdempotency):
			return domain.ErrDuplicateOrder
		case violatesIndex(err, idxOrderNumber):
			return domain.ErrDuplicateOrderNumber
		}
		return fmt.Errorf("ошибка создания заказа: %w", err)
	}

	order.Version = model.Version
	return nil
}

func (r *orderRepository) GetByNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	return r.first(ctx, "order_number = ?", orderNumber)
}

func (r *orderRepository) GetByIdempotencyKey(ctx context.Context, userID, key string) (*domain.Order, error) {
	return r.first(ctx, "user_id = ? AND idempotency_key = ?", userID, key)
}

func (r *orderRepository) first(ctx context.Context, query string, args ...any) (*domain.Order, error) {
	var model OrderModel
	err := txscope.DB(ctx, r.db).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where(query, args...).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка получения заказа: %w", err)
	}
	return model.toDomain()
}

func (r *orderRepository) List(ctx context.Context, filter domain.OrderFilter) ([]*domain.Order, int64, error) {
	offset, limit := normalizePage(filter.Offset, filter.Limit)

	query := txscope.DB(ctx, r.db).Model(&OrderModel{})
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		query = query.Where("order_status = ?", string(filter.Status))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчёта заказов: %w", err)
	}

	var models []OrderModel
	if err := query.
		Preload("Items").
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("ошибка получения списка заказов: %w", err)
	}

	orders, err := toDomainOrders(models)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *orderRepository) Update(ctx context.Context, order *domain.Order) error {
	updates, err := mutableColumns(order)
	if err != nil {
		return err
	}
	updates["version"] = gorm.Expr("version + 1")

	result := txscope.DB(ctx, r.db).
		Model(&OrderModel{}).
		Where("id = ? AND version = ?", order.ID, order.Version).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("ошибка обновления заказа %s: %w", order.OrderNumber, result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrOrderConflict
	}

	order.Version++
	return nil
}

func (r *orderRepository) ListStalePending(ctx context.Context, before time.Time, limit int) ([]*domain.Order, error) {
	var models []OrderModel
	if err := txscope.DB(ctx, r.db).
		Preload("Items").
		Where("order_status = ? AND payment_status IN ? AND payment_method <> ? AND created_at < ?",
			string(domain.OrderStatusPending),
			[]string{string(domain.PaymentStatusPending), string(domain.PaymentStatusFailed)},
			string(domain.PaymentMethodCOD),
			before,
		).
		Order("created_at ASC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("ошибка поиска просроченных заказов: %w", err)
	}
	return toDomainOrders(models)
}

func (r *orderRepository) HasDeliveredProduct(ctx context.Context, userID, productID string) (bool, error) {
	var n int64
	if err := txscope.DB(ctx, r.db).
		Model(&OrderModel{}).
		Joins("JOIN order_items ON order_items.order_id = orders.id").
		Where("orders.user_id = ? AND orders.order_status = ? AND order_items.product_id = ?",
			userID, string(domain.OrderStatusDelivered), productID).
		Count(&n).Error; err != nil {
		return false, fmt.Errorf("ошибка проверки покупки: %w", err)
	}
	return n > 0, nil
}

func toDomainOrders(models []OrderModel) ([]*domain.Order, error) {
	orders := make([]*domain.Order, len(models))
	for i := range models {
		o, err := models[i].toDomain()
		if err != nil {
			return nil, err
		}
		orders[i] = o
	}
	return orders, nil
}
