package outbox

import (
	"context"
	"time"

	"example.com/shop-backend/pkg/kafka"
	"example.com/shop-backend/pkg/logger"
	"example.com/shop-backend/pkg/metrics"
)

// Publisher — отправка сообщения в брокер (kafka.Producer).
type Publisher interface {
	SendMessage(ctx context.Context, msg *kafka.Message) error
}

// WorkerConfig — настройки Worker.
type WorkerConfig struct {
	PollInterval time.Duration
	BatchSize    int
	// MaxAttempts — после стольких неудачных попыток событие больше не публикуется.
	MaxAttempts int
	// RetryBackoff удваивается с каждой попыткой, но не превышает MaxBackoff.
	RetryBackoff time.Duration
	MaxBackoff   time.Duration
	// Retention — сколько хранить опубликованные события.
	Retention       time.Duration
	CleanupInterval time.Duration
}

// DefaultWorkerConfig возвращает настройки по умолчанию.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		PollInterval:    time.Second,
		BatchSize:       100,
		MaxAttempts:     8,
		RetryBackoff:    2 * time.Second,
		MaxBackoff:      5 * time.Minute,
		Retention:       7 * 24 * time.Hour,
		CleanupInterval: time.Hour,
	}
}

// Worker публикует события outbox в Kafka (at-least-once).
type Worker struct {
	repo      Repository
	publisher Publisher
	cfg       WorkerConfig
	now       func() time.Time
}

// NewWorker создаёт Worker.
func NewWorker(repo Repository, publisher Publisher, cfg WorkerConfig) *Worker {
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Hour
	}
	return &Worker{repo: repo, publisher: publisher, cfg: cfg, now: time.Now}
}

// Run блокируется до отмены ctx.
func (w *Worker) Run(ctx context.Context) {
	logger.Info().
		Dur("poll_interval", w.cfg.PollInterval).
		Int("batch_size", w.cfg.BatchSize).
		Msg("Запуск Outbox Worker")

	poll := time.NewTicker(w.cfg.PollInterval)
	defer poll.Stop()
	cleanup := time.NewTicker(w.cfg.CleanupInterval)
	defer cleanup.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Остановка Outbox Worker")
			return
		case <-poll.C:
			w.drain(ctx)
		case <-cleanup.C:
			w.purge(ctx)
		}
	}
}

func (w *Worker) purge(ctx context.Context) {
	deleted, err := w.repo.Purge(ctx, w.now().Add(-w.cfg.Retention))
	if err != nil {
		logger.Error().Err(err).Msg("Ошибка очистки outbox")
		return
	}
	if deleted > 0 {
		logger.Info().Int64("deleted", deleted).Msg("Удалены опубликованные события outbox")
	}
}

// drain публикует одну пачку событий, готовых к отправке.
func (w *Worker) drain(ctx context.Context) {
	events, err := w.repo.Pending(ctx, w.cfg.BatchSize)
	if err != nil {
		logger.Error().Err(err).Msg("Ошибка чтения outbox")
		return
	}

	for _, e := range events {
		if ctx.Err() != nil {
			return
		}
		_ = w.Publish(ctx, e)
	}
}

// Publish отправляет одно событие и фиксирует результат в outbox.
func (w *Worker) Publish(ctx context.Context, e *Event) error {
	log := logger.FromContext(logger.WithCorrelationID(ctx, e.AggregateID)).With().
		Str("event_id", e.ID).
		Str("event_type", e.EventType).
		Logger()

	if err := w.publisher.SendMessage(ctx, e.message()); err != nil {
		attempt := e.Attempts + 1
		next := w.now().Add(w.backoff(attempt))
		status := "error"
		if attempt >= w.cfg.MaxAttempts {
			// Событие остаётся в таблице с last_error, но в Pending больше не попадает.
			next = farFuture
			status = "dead_letter"
			log.Warn().Err(err).Int("attempts", attempt).Msg("Событие снято с очереди: превышен лимит попыток")
		} else {
			log.Error().Err(err).Int("attempts", attempt).Time("next_attempt_at", next).Msg("Ошибка публикации события")
		}
		metrics.OutboxPublished.WithLabelValues(status).Inc()

		if markErr := w.repo.Reschedule(ctx, e.ID, err, next); markErr != nil {
			log.Error().Err(markErr).Msg("Ошибка переноса события outbox")
		}
		return err
	}

	metrics.OutboxPublished.WithLabelValues("success").Inc()
	if err := w.repo.MarkPublished(ctx, e.ID); err != nil {
		log.Error().Err(err).Msg("Ошибка пометки события как опубликованного")
		return err
	}

	log.Debug().Msg("Событие опубликовано")
	return nil
}

var farFuture = time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)

func (w *Worker) backoff(attempt int) time.Duration {
	d := w.cfg.RetryBackoff
	for i := 1; i < attempt && d < w.cfg.MaxBackoff; i++ {
		d *= 2
	}
	if w.cfg.MaxBackoff > 0 && d > w.cfg.MaxBackoff {
		d = w.cfg.MaxBackoff
	}
	return d
}
