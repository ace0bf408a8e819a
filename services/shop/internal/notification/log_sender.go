package notification

import (
	"context"

	"example.com/shop-backend/pkg/logger"
)

// LogSender пишет уведомление в лог вместо реальной доставки. Подключение
// почтового или SMS-провайдера делается отдельной реализацией Sender.
type LogSender struct {
	channel string
}

// NewLogSender создаёт LogSender для канала.
func NewLogSender(channel string) *LogSender {
	return &LogSender{channel: channel}
}

// Channel возвращает канал отправителя.
func (s *LogSender) Channel() string { return s.channel }

// Send логирует отрендеренное сообщение.
func (s *LogSender) Send(ctx context.Context, msg Message) error {
	log := logger.FromContext(ctx)
	log.Info().
		Str("channel", s.channel).
		Str("recipient", msg.Recipient).
		Str("subject", msg.Subject).
		Str("body", msg.Body).
		Msg("Уведомление отправлено")
	return nil
}
