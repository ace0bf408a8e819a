// Package worker содержит фоновые задачи магазина.
package worker

import (
	"context"
	"time"

	"example.com/shop-backend/pkg/logger"
)

// OrderExpirer отменяет неоплаченные заказы старше ttl.
type OrderExpirer interface {
	ExpireStale(ctx context.Context, ttl time.Duration, limit int) (int, error)
}

// ExpiryWorkerConfig — настройки воркера просроченных заказов.
type ExpiryWorkerConfig struct {
	// PollInterval — интервал между проходами.
	PollInterval time.Duration

	// OrderTTL — сколько заказ может ждать оплаты. Наложенный платёж не отменяется.
	OrderTTL time.Duration

	// BatchSize — сколько заказов отменять за один проход.
	BatchSize int
}

// DefaultExpiryWorkerConfig возвращает конфигурацию по умолчанию.
func DefaultExpiryWorkerConfig() ExpiryWorkerConfig {
	return ExpiryWorkerConfig{
		PollInterval: 5 * time.Minute,
		OrderTTL:     24 * time.Hour,
		BatchSize:    50,
	}
}

// ExpiryWorker периодически отменяет заказы, которые так и не были оплачены,
// и возвращает зарезервированный товар на склад.
type ExpiryWorker struct {
	orders OrderExpirer
	cfg    ExpiryWorkerConfig
}

// NewExpiryWorker создаёт воркер.
func NewExpiryWorker(orders OrderExpirer, cfg ExpiryWorkerConfig) *ExpiryWorker {
	def := DefaultExpiryWorkerConfig()
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.OrderTTL <= 0 {
		cfg.OrderTTL = def.OrderTTL
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	return &ExpiryWorker{orders: orders, cfg: cfg}
}

// Run блокирует выполнение до отмены контекста.
func (w *ExpiryWorker) Run(ctx context.Context) {
	log := logger.FromContext(ctx)
	log.Info().
		Dur("poll_interval", w.cfg.PollInterval).
		Dur("order_ttl", w.cfg.OrderTTL).
		Int("batch_size", w.cfg.BatchSize).
		Msg("Запуск воркера просроченных заказов")

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Остановка воркера просроченных заказов")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// sweep отменяет пачки, пока они приходят полными.
func (w *ExpiryWorker) sweep(ctx context.Context) {
	log := logger.FromContext(ctx)

	total := 0
	for ctx.Err() == nil {
		n, err := w.orders.ExpireStale(ctx, w.cfg.OrderTTL, w.cfg.BatchSize)
		if err != nil {
			log.Error().Err(err).Msg("Ошибка отмены просроченных заказов")
			break
		}
		total += n
		if n < w.cfg.BatchSize {
			break
		}
	}

	if total > 0 {
		log.Info().Int("count", total).Msg("Просроченные заказы отменены")
	}
}
