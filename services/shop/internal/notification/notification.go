// Package notification рассылает покупателям уведомления о заказах. События
// приходят из Kafka (outbox), ошибки отправки только логируются и считаются в
// метриках: на результат операции с заказом они не влияют.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"example.com/shop-backend/pkg/kafka"
	"example.com/shop-backend/pkg/logger"
	"example.com/shop-backend/pkg/metrics"
	"example.com/shop-backend/services/shop/internal/domain"
)

// Каналы доставки.
const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

// Message — готовое к отправке уведомление.
type Message struct {
	Recipient string
	Subject   string
	Body      string
}

// Sender доставляет уведомления по одному каналу.
type Sender interface {
	Channel() string
	Send(ctx context.Context, msg Message) error
}

// Dispatcher рендерит уведомление по событию и отдаёт его всем каналам.
type Dispatcher struct {
	senders []Sender
}

// NewDispatcher создаёт Dispatcher. Без отправителей события просто пропускаются.
func NewDispatcher(senders ...Sender) *Dispatcher {
	return &Dispatcher{senders: senders}
}

// HandleMessage — kafka.MessageHandler для топика событий заказов. Ошибку
// возвращает только для нечитаемого сообщения, чтобы оно ушло в DLQ.
func (d *Dispatcher) HandleMessage(ctx context.Context, msg *kafka.Message) error {
	var ev domain.OrderEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		return fmt.Errorf("ошибка разбора события заказа: %w", err)
	}
	if ev.Type == "" {
		ev.Type = msg.EventType()
	}

	d.Dispatch(ctx, ev)
	return nil
}

// Dispatch отправляет уведомление о событии.
func (d *Dispatcher) Dispatch(ctx context.Context, ev domain.OrderEvent) {
	switch ev.Type {
	case domain.EventOrderCreated:
		d.OnOrderCreated(ctx, ev)
	case domain.EventOrderCancelled, domain.EventOrderStatusChanged,
		domain.EventOrderPaymentRecorded, domain.EventOrderRefunded:
		d.OnOrderUpdated(ctx, ev)
	default:
		log := logger.FromContext(ctx)
		log.Debug().Str("event_type", ev.Type).Msg("Событие без уведомления")
	}
}

// OnOrderCreated — подтверждение оформления заказа.
func (d *Dispatcher) OnOrderCreated(ctx context.Context, ev domain.OrderEvent) {
	d.send(ctx, ev, Message{
		Subject: fmt.Sprintf("Заказ %s оформлен", ev.OrderNumber),
		Body: fmt.Sprintf("%s, спасибо за заказ!\nНомер: %s\nТоваров: %d\nСумма: %s %s",
			greetingName(ev), ev.OrderNumber, ev.ItemCount, ev.TotalAmount, ev.Currency),
	})
}

// OnOrderUpdated — изменение статуса, оплаты или возврата.
func (d *Dispatcher) OnOrderUpdated(ctx context.Context, ev domain.OrderEvent) {
	subject := fmt.Sprintf("Заказ %s: %s", ev.OrderNumber, eventTitle(ev.Type))

	var b strings.Builder
	fmt.Fprintf(&b, "%s, статус заказа %s: %s.", greetingName(ev), ev.OrderNumber, ev.OrderStatus)
	if ev.Type == domain.EventOrderPaymentRecorded || ev.Type == domain.EventOrderRefunded {
		fmt.Fprintf(&b, "\nОплата: %s.", ev.PaymentStatus)
	}
	if ev.Note != "" {
		fmt.Fprintf(&b, "\n%s", ev.Note)
	}

	d.send(ctx, ev, Message{Subject: subject, Body: b.String()})
}

func (d *Dispatcher) send(ctx context.Context, ev domain.OrderEvent, msg Message) {
	log := logger.FromContext(ctx)

	for _, sender := range d.senders {
		channel := sender.Channel()

		m := msg
		m.Recipient = recipient(channel, ev)
		if m.Recipient == "" {
			metrics.NotificationsSent.WithLabelValues(channel, "skipped").Inc()
			continue
		}

		if err := sender.Send(ctx, m); err != nil {
			metrics.NotificationsSent.WithLabelValues(channel, "failure").Inc()
			log.Warn().
				Err(err).
				Str("channel", channel).
				Str("order_number", ev.OrderNumber).
				Str("event_type", ev.Type).
				Msg("Не удалось отправить уведомление")
			continue
		}
		metrics.NotificationsSent.WithLabelValues(channel, "success").Inc()
	}
}

func recipient(channel string, ev domain.OrderEvent) string {
	switch channel {
	case ChannelEmail:
		return ev.CustomerEmail
	case ChannelSMS:
		return ev.CustomerPhone
	}
	return ""
}

func greetingName(ev domain.OrderEvent) string {
	if ev.CustomerName != "" {
		return ev.CustomerName
	}
	return "Здравствуйте"
}

func eventTitle(eventType string) string {
	switch eventType {
	case domain.EventOrderCancelled:
		return "отменён"
	case domain.EventOrderStatusChanged:
		return "новый статус"
	case domain.EventOrderPaymentRecorded:
		return "оплата"
	case domain.EventOrderRefunded:
		return "возврат средств"
	}
	return eventType
}
