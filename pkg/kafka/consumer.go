package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"example.com/shop-backend/pkg/logger"
)

// MessageHandler обрабатывает одно сообщение. Контекст содержит trace_id и
// correlation_id из заголовков.
type MessageHandler func(ctx context.Context, msg *Message) error

// Consumer читает топик в составе consumer group.
type Consumer struct {
	reader *kafka.Reader
	dlq    *Producer
	topic  string
}

// NewConsumer создаёт Consumer для топика и группы.
func NewConsumer(cfg Config, topic, groupID string) (*Consumer, error) {
	switch {
	case len(cfg.Brokers) == 0:
		return nil, errors.New("не указаны брокеры Kafka")
	case topic == "":
		return nil, errors.New("не указан топик")
	case groupID == "":
		return nil, errors.New("не указан group ID")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       topic,
		GroupID:     groupID,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     250 * time.Millisecond,
		StartOffset: kafka.FirstOffset,
	})

	logger.Info().
		Strs("brokers", cfg.Brokers).
		Str("topic", topic).
		Str("group_id", groupID).
		Msg("Создан Kafka Consumer")

	return &Consumer{reader: reader, topic: topic}, nil
}

// SetDLQProducer включает пересылку необработанных сообщений в DLQ.
func (c *Consumer) SetDLQProducer(p *Producer) {
	c.dlq = p
}

// Consume читает сообщения до отмены ctx. Offset коммитится после каждого
// сообщения независимо от результата обработки: ошибочные уходят в DLQ.
func (c *Consumer) Consume(ctx context.Context, handler MessageHandler) error {
	logger.Info().Str("topic", c.topic).Msg("Запуск чтения сообщений из Kafka")

	for {
		km, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				logger.Info().Str("topic", c.topic).Msg("Остановка Kafka Consumer")
				return nil
			}
			logger.Error().Err(err).Str("topic", c.topic).Msg("Ошибка чтения сообщения из Kafka")
			continue
		}

		msg := fromKafkaMessage(km)
		msgCtx := contextFromMessage(ctx, msg)

		if err := handler(msgCtx, msg); err != nil {
			log := logger.FromContext(msgCtx)
			log.Error().
				Err(err).
				Str("topic", msg.Topic).
				Int("partition", msg.Partition).
				Int64("offset", msg.Offset).
				Msg("Ошибка обработки сообщения")

			if c.dlq != nil {
				if dlqErr := c.dlq.SendToDLQ(msgCtx, msg, err); dlqErr != nil {
					logger.Error().Err(dlqErr).Msg("Ошибка отправки в DLQ")
				}
			}
		}

		if err := c.reader.CommitMessages(ctx, km); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("Ошибка коммита offset")
		}
	}
}

// Close закрывает reader.
func (c *Consumer) Close() error {
	if err := c.reader.Close(); err != nil {
		return fmt.Errorf("ошибка закрытия consumer: %w", err)
	}
	return nil
}
