// Package kafka — обёртки над segmentio/kafka-go для публикации событий заказов
// и их чтения подписчиками (уведомления).
package kafka

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"

	"example.com/shop-backend/pkg/logger"
)

// DLQSuffix добавляется к имени топика для сообщений, которые не удалось обработать.
const DLQSuffix = ".dlq"

// Заголовки сообщений.
const (
	HeaderTraceID       = "trace_id"
	HeaderCorrelationID = "correlation_id"
	HeaderEventType     = "event_type"
	HeaderTimestamp     = "timestamp"
)

// Config — настройки подключения.
type Config struct {
	Brokers []string
}

// Message — сообщение Kafka с заголовками в виде map.
type Message struct {
	Key       []byte
	Value     []byte
	Topic     string
	Partition int
	Offset    int64
	Headers   map[string]string
	Time      time.Time
}

// EventType возвращает тип события из заголовка event_type.
func (m *Message) EventType() string {
	return m.Headers[HeaderEventType]
}

func fromKafkaMessage(m kafka.Message) *Message {
	headers := make(map[string]string, len(m.Headers))
	for _, h := range m.Headers {
		headers[h.Key] = string(h.Value)
	}

	return &Message{
		Key:       m.Key,
		Value:     m.Value,
		Topic:     m.Topic,
		Partition: m.Partition,
		Offset:    m.Offset,
		Headers:   headers,
		Time:      m.Time,
	}
}

func (m *Message) toKafkaMessage() kafka.Message {
	headers := make([]kafka.Header, 0, len(m.Headers))
	for k, v := range m.Headers {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}

	return kafka.Message{
		Key:     m.Key,
		Value:   m.Value,
		Topic:   m.Topic,
		Headers: headers,
		Time:    m.Time,
	}
}

// enrichHeaders дописывает trace_id, correlation_id и timestamp, если их нет.
func enrichHeaders(ctx context.Context, headers map[string]string, now time.Time) map[string]string {
	if headers == nil {
		headers = make(map[string]string, 3)
	}

	if _, ok := headers[HeaderTraceID]; !ok {
		if v := logger.TraceIDFromContext(ctx); v != "" {
			headers[HeaderTraceID] = v
		}
	}
	if _, ok := headers[HeaderCorrelationID]; !ok {
		if v := logger.CorrelationIDFromContext(ctx); v != "" {
			headers[HeaderCorrelationID] = v
		}
	}
	if _, ok := headers[HeaderTimestamp]; !ok {
		headers[HeaderTimestamp] = now.UTC().Format(time.RFC3339Nano)
	}

	return headers
}

// contextFromMessage переносит trace_id и correlation_id из заголовков в контекст.
func contextFromMessage(ctx context.Context, msg *Message) context.Context {
	return logger.NewContextWithIDs(ctx, msg.Headers[HeaderTraceID], msg.Headers[HeaderCorrelationID])
}
