package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus — статус выполнения заказа.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusReturned   OrderStatus = "returned"
)

// Valid сообщает, известен ли статус.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled, OrderStatusReturned:
		return true
	}
	return false
}

// PaymentStatus — статус оплаты заказа.
type PaymentStatus string

const (
	PaymentStatusPending           PaymentStatus = "pending"
	PaymentStatusPaid              PaymentStatus = "paid"
	PaymentStatusFailed            PaymentStatus = "failed"
	PaymentStatusRefunded          PaymentStatus = "refunded"
	PaymentStatusPartiallyRefunded PaymentStatus = "partially_refunded"
)

// RefundStatus — статус возврата средств.
type RefundStatus string

const (
	RefundStatusNone      RefundStatus = ""
	RefundStatusPending   RefundStatus = "pending"
	RefundStatusProcessed RefundStatus = "processed"
	RefundStatusFailed    RefundStatus = "failed"
)

// PaymentMethod — способ оплаты.
type PaymentMethod string

const (
	PaymentMethodCOD    PaymentMethod = "cod"
	PaymentMethodCard   PaymentMethod = "card"
	PaymentMethodUPI    PaymentMethod = "upi"
	PaymentMethodWallet PaymentMethod = "wallet"
)

// Valid сообщает, поддерживается ли способ оплаты.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCOD, PaymentMethodCard, PaymentMethodUPI, PaymentMethodWallet:
		return true
	}
	return false
}

// Actor — кто выполнил действие с заказом (для истории статусов).
const (
	ActorCustomer = "customer"
	ActorAdmin    = "admin"
	ActorSystem   = "system"
	ActorPayment  = "payment"
)

// allowedTransitions — допустимые административные переходы статусов.
// Отмена проходит через Cancel, чтобы вернуть товар на склад.
var allowedTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusConfirmed, OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusConfirmed:  {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped},
	OrderStatusShipped:    {OrderStatusDelivered},
	OrderStatusDelivered:  {OrderStatusReturned},
}

// CanTransition сообщает, разрешён ли переход from -> to. Переход в тот же
// статус разрешён: это обновление трекинга или комментария.
func CanTransition(from, to OrderStatus) bool {
	if from == to {
		return true
	}
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Address — адрес доставки или плательщика.
type Address struct {
	FullName   string `json:"full_name"`
	Phone      string `json:"phone"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// IsZero сообщает, что адрес не заполнен.
func (a Address) IsZero() bool {
	return a == Address{}
}

// Validate проверяет обязательные поля адреса.
func (a Address) Validate() error {
	required := []struct{ name, value string }{
		{"full_name", a.FullName},
		{"line1", a.Line1},
		{"city", a.City},
		{"postal_code", a.PostalCode},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%w: не заполнено поле %s", ErrInvalidAddress, f.name)
		}
	}
	return nil
}

// OrderItem — снимок товара на момент оформления заказа.
type OrderItem struct {
	ProductID     string
	Name          string
	SKU           string
	Quantity      int
	Price         decimal.Decimal
	DiscountPrice *decimal.Decimal
	TotalPrice    decimal.Decimal
}

// StatusHistoryEntry — запись журнала изменений заказа. Журнал только дополняется.
type StatusHistoryEntry struct {
	Status    OrderStatus `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
	Note      string      `json:"note,omitempty"`
	UpdatedBy string      `json:"updated_by"`
}

// Customer — контакты покупателя для уведомлений.
type Customer struct {
	UserID string
	Email  string
	Name   string
	Phone  string
}

// Order — заказ. ID внутренний, наружу отдаётся только OrderNumber.
type Order struct {
	ID          string
	OrderNumber string
	UserID      string
	Customer    Customer

	Items           []OrderItem
	ShippingAddress Address
	BillingAddress  Address
	PaymentMethod   PaymentMethod
	PaymentStatus   PaymentStatus
	OrderStatus     OrderStatus

	Subtotal        decimal.Decimal
	DiscountAmount  decimal.Decimal
	ShippingCharges decimal.Decimal
	TaxAmount       decimal.Decimal
	TotalAmount     decimal.Decimal
	CouponCode      string
	CouponDiscount  decimal.Decimal

	StatusHistory      []StatusHistoryEntry
	CancellationReason string
	RefundAmount       decimal.Decimal
	RefundStatus       RefundStatus
	PaymentID          string
	GatewayOrderID     string
	TrackingNumber     string
	Carrier            string
	Notes              string
	DeliveredAt        *time.Time

	IdempotencyKey string
	Version        int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ApplyPricing переносит рассчитанные суммы и купон в заказ.
func (o *Order) ApplyPricing(p Pricing, coupon CouponEvaluation) {
	o.Subtotal = p.Subtotal
	o.DiscountAmount = p.Discount
	o.ShippingCharges = p.ShippingCharges
	o.TaxAmount = p.TaxAmount
	o.TotalAmount = p.TotalAmount
	o.CouponCode = coupon.Code()
	o.CouponDiscount = p.Discount
}

// TotalQuantity — количество единиц товара в заказе.
func (o *Order) TotalQuantity() int {
	n := 0
	for _, item := range o.Items {
		n += item.Quantity
	}
	return n
}

// CanBeCancelled — отменить можно только pending или confirmed заказ.
func (o *Order) CanBeCancelled() bool {
	return o.OrderStatus == OrderStatusPending || o.OrderStatus == OrderStatusConfirmed
}

// Cancel переводит заказ в cancelled. Возврат товара на склад делает сервис.
func (o *Order) Cancel(reason, actor string, now time.Time) error {
	if !o.CanBeCancelled() {
		return &StateTransitionError{Operation: "cancel", From: string(o.OrderStatus), To: string(OrderStatusCancelled)}
	}
	o.OrderStatus = OrderStatusCancelled
	o.CancellationReason = reason
	o.appendHistory(OrderStatusCancelled, reason, actor, now)
	return nil
}

// StatusUpdate — административное изменение статуса.
type StatusUpdate struct {
	Status         OrderStatus
	Note           string
	TrackingNumber string
	Carrier        string
}

// ApplyStatusUpdate применяет переход по таблице allowedTransitions. Переход в
// cancelled здесь не обрабатывается: для него есть Cancel.
func (o *Order) ApplyStatusUpdate(u StatusUpdate, actor string, now time.Time) error {
	if !u.Status.Valid() || u.Status == OrderStatusCancelled || !CanTransition(o.OrderStatus, u.Status) {
		return &StateTransitionError{Operation: "update_status", From: string(o.OrderStatus), To: string(u.Status)}
	}

	if u.TrackingNumber != "" {
		o.TrackingNumber = u.TrackingNumber
	}
	if u.Carrier != "" {
		o.Carrier = u.Carrier
	}
	if u.Status == OrderStatusDelivered && o.OrderStatus != OrderStatusDelivered {
		o.DeliveredAt = &now
	}
	o.OrderStatus = u.Status
	o.appendHistory(u.Status, u.Note, actor, now)
	return nil
}

// PaymentResult — результат оплаты от платёжного шлюза.
type PaymentResult struct {
	Success        bool
	PaymentID      string
	GatewayOrderID string
	FailureReason  string
}

// CanRecordPayment — оплату принимаем только по ожидающему заказу.
func (o *Order) CanRecordPayment() bool {
	return o.OrderStatus == OrderStatusPending &&
		(o.PaymentStatus == PaymentStatusPending || o.PaymentStatus == PaymentStatusFailed)
}

// RecordPayment фиксирует результат оплаты. Склад не трогается: товар
// зарезервирован при создании заказа.
func (o *Order) RecordPayment(r PaymentResult, actor string, now time.Time) error {
	if !o.CanRecordPayment() {
		return &StateTransitionError{Operation: "record_payment", From: string(o.OrderStatus) + "/" + string(o.PaymentStatus)}
	}
	if r.GatewayOrderID != "" {
		o.GatewayOrderID = r.GatewayOrderID
	}

	if !r.Success {
		o.PaymentStatus = PaymentStatusFailed
		o.appendHistory(o.OrderStatus, "Оплата не прошла: "+r.FailureReason, actor, now)
		return nil
	}

	o.PaymentStatus = PaymentStatusPaid
	o.PaymentID = r.PaymentID
	o.OrderStatus = OrderStatusConfirmed
	o.appendHistory(OrderStatusConfirmed, "Оплата подтверждена", actor, now)
	return nil
}

// RefundAmountFor возвращает сумму возврата: amount <= 0 означает полный возврат.
// Положительная сумма, которая после округления до копеек становится нулём,
// отклоняется.
func (o *Order) RefundAmountFor(amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return o.TotalAmount, nil
	}
	rounded := RoundMoney(amount)
	if !rounded.IsPositive() || rounded.GreaterThan(o.TotalAmount) {
		return decimal.Zero, ErrInvalidRefundAmount
	}
	return rounded, nil
}

// CanRefund — вернуть можно только оплаченный заказ без незавершённого возврата.
func (o *Order) CanRefund() bool {
	return o.PaymentStatus == PaymentStatusPaid && o.RefundStatus != RefundStatusPending
}

// StartRefund отмечает начало возврата.
func (o *Order) StartRefund(amount decimal.Decimal) error {
	if !o.CanRefund() {
		return &StateTransitionError{Operation: "refund", From: string(o.PaymentStatus)}
	}
	o.RefundAmount = amount
	o.RefundStatus = RefundStatusPending
	return nil
}

// FailRefund фиксирует неудачный возврат, оплата остаётся paid. Возврат
// начинается только с paid, поэтому до него ничего не было возвращено.
func (o *Order) FailRefund(reason, actor string, now time.Time) {
	o.RefundAmount = decimal.Zero
	o.RefundStatus = RefundStatusFailed
	o.appendHistory(o.OrderStatus, "Возврат не выполнен: "+reason, actor, now)
}

// CompleteRefund фиксирует успешный возврат.
func (o *Order) CompleteRefund(amount decimal.Decimal, note, actor string, now time.Time) {
	o.RefundAmount = amount
	o.RefundStatus = RefundStatusProcessed
	if amount.GreaterThanOrEqual(o.TotalAmount) {
		o.PaymentStatus = PaymentStatusRefunded
	} else {
		o.PaymentStatus = PaymentStatusPartiallyRefunded
	}
	msg := fmt.Sprintf("Возврат %s", amount.StringFixed(2))
	if note != "" {
		msg += ": " + note
	}
	o.appendHistory(o.OrderStatus, msg, actor, now)
}

// MarkCreated выставляет начальные статусы и первую запись журнала.
func (o *Order) MarkCreated(now time.Time) {
	o.OrderStatus = OrderStatusPending
	o.PaymentStatus = PaymentStatusPending
	if o.BillingAddress.IsZero() {
		o.BillingAddress = o.ShippingAddress
	}
	o.CreatedAt = now
	o.UpdatedAt = now
	o.appendHistory(OrderStatusPending, "Заказ создан", ActorCustomer, now)
}

func (o *Order) appendHistory(status OrderStatus, note, actor string, now time.Time) {
	o.StatusHistory = append(o.StatusHistory, StatusHistoryEntry{
		Status:    status,
		Timestamp: now,
		Note:      note,
		UpdatedBy: actor,
	})
	o.UpdatedAt = now
}

// OrderFilter — параметры выборки заказов.
type OrderFilter struct {
	UserID string
	Status OrderStatus
	Offset int
	Limit  int
}
