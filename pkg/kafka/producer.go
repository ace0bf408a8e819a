package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"example.com/shop-backend/pkg/logger"
)

// Producer синхронно пишет сообщения в Kafka.
type Producer struct {
	writer *kafka.Writer
}

// NewProducer создаёт Producer. Топик задаётся в каждом сообщении.
func NewProducer(cfg Config) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("не указаны брокеры Kafka")
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{}, // события одного заказа попадают в одну партицию
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}

	logger.Info().Strs("brokers", cfg.Brokers).Msg("Создан Kafka Producer")

	return &Producer{writer: writer}, nil
}

// SendMessage отправляет сообщение, дополняя заголовки трассировки из ctx.
func (p *Producer) SendMessage(ctx context.Context, msg *Message) error {
	msg.Headers = enrichHeaders(ctx, msg.Headers, time.Now())
	if msg.Time.IsZero() {
		msg.Time = time.Now()
	}

	if err := p.writer.WriteMessages(ctx, msg.toKafkaMessage()); err != nil {
		return fmt.Errorf("ошибка отправки в Kafka (topic=%s): %w", msg.Topic, err)
	}

	log := logger.FromContext(ctx)

	log.Debug().
		Str("topic", msg.Topic).
		Str("key", string(msg.Key)).
		Str("event_type", msg.EventType()).
		Msg("Сообщение отправлено в Kafka")

	return nil
}

// SendToDLQ пересылает сообщение в <topic>.dlq с описанием ошибки обработки.
func (p *Producer) SendToDLQ(ctx context.Context, original *Message, processingErr error) error {
	headers := make(map[string]string, len(original.Headers)+3)
	for k, v := range original.Headers {
		headers[k] = v
	}
	headers["dlq_error"] = processingErr.Error()
	headers["dlq_original_topic"] = original.Topic
	headers["dlq_original_offset"] = fmt.Sprintf("%d", original.Offset)

	return p.SendMessage(ctx, &Message{
		Topic:   original.Topic + DLQSuffix,
		Key:     original.Key,
		Value:   original.Value,
		Headers: headers,
	})
}

// Close сбрасывает буферы и закрывает соединения.
func (p *Producer) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("ошибка закрытия producer: %w", err)
	}
	logger.Info().Msg("Kafka Producer закрыт")
	return nil
}
