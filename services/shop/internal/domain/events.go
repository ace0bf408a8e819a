package domain

import "time"

// Типы событий заказа, публикуемых через outbox.
const (
	EventOrderCreated         = "order.created"
	EventOrderCancelled       = "order.cancelled"
	EventOrderStatusChanged   = "order.status_changed"
	EventOrderPaymentRecorded = "order.payment_recorded"
	EventOrderRefunded        = "order.refunded"
)

// AggregateOrder — тип агрегата в outbox.
const AggregateOrder = "order"

// OrderEvent — полезная нагрузка события заказа. Содержит всё, что нужно для
// уведомления покупателя без обращения к БД.
type OrderEvent struct {
	Type          string    `json:"type"`
	OrderNumber   string    `json:"order_number"`
	UserID        string    `json:"user_id"`
	CustomerEmail string    `json:"customer_email,omitempty"`
	CustomerName  string    `json:"customer_name,omitempty"`
	CustomerPhone string    `json:"customer_phone,omitempty"`
	OrderStatus   string    `json:"order_status"`
	PaymentStatus string    `json:"payment_status"`
	TotalAmount   string    `json:"total_amount"`
	Currency      string    `json:"currency"`
	ItemCount     int       `json:"item_count"`
	Note          string    `json:"note,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// NewOrderEvent собирает событие из текущего состояния заказа.
func NewOrderEvent(eventType string, o *Order, currency, note string, now time.Time) OrderEvent {
	return OrderEvent{
		Type:          eventType,
		OrderNumber:   o.OrderNumber,
		UserID:        o.UserID,
		CustomerEmail: o.Customer.Email,
		CustomerName:  o.Customer.Name,
		CustomerPhone: o.Customer.Phone,
		OrderStatus:   string(o.OrderStatus),
		PaymentStatus: string(o.PaymentStatus),
		TotalAmount:   o.TotalAmount.StringFixed(2),
		Currency:      currency,
		ItemCount:     o.TotalQuantity(),
		Note:          note,
		OccurredAt:    now,
	}
}
