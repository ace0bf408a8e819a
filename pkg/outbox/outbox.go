// Package outbox реализует transactional outbox: событие пишется в таблицу
// вместе с изменением заказа в одной транзакции, Worker публикует его в Kafka.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"

	"example.com/shop-backend/pkg/kafka"
	"example.com/shop-backend/pkg/logger"
)

// Event — событие, ожидающее публикации. Ключ сообщения в Kafka равен
// AggregateID, так что события одного заказа попадают в одну партицию.
type Event struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Topic         string
	Payload       []byte
	Headers       map[string]string
	Attempts      int
	LastError     string
	NextAttemptAt time.Time
	PublishedAt   *time.Time
	CreatedAt     time.Time
}

// NewEvent сериализует payload и готовит событие к записи.
func NewEvent(ctx context.Context, aggregateType, aggregateID, eventType, topic string, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации события %s: %w", eventType, err)
	}

	headers := map[string]string{
		kafka.HeaderEventType:     eventType,
		kafka.HeaderCorrelationID: aggregateID,
	}
	if traceID := logger.TraceIDFromContext(ctx); traceID != "" {
		headers[kafka.HeaderTraceID] = traceID
	}

	return &Event{
		ID:            uuid.NewString(),
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Topic:         topic,
		Payload:       data,
		Headers:       headers,
	}, nil
}

func (e *Event) message() *kafka.Message {
	return &kafka.Message{
		Topic:   e.Topic,
		Key:     []byte(e.AggregateID),
		Value:   e.Payload,
		Headers: maps.Clone(e.Headers),
	}
}
