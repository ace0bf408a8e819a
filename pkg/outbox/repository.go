package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"example.com/shop-backend/pkg/txscope"
)

// ErrEventNotFound — событие отсутствует в outbox.
var ErrEventNotFound = errors.New("событие outbox не найдено")

// purgeBatch ограничивает размер одного DELETE.
const purgeBatch = 1000

// Repository — хранилище событий outbox одного типа агрегата.
type Repository interface {
	// Append пишет событие; внутри txscope.Execute запись идёт в текущей транзакции.
	Append(ctx context.Context, e *Event) error
	// Pending возвращает неопубликованные события, время повтора которых наступило.
	Pending(ctx context.Context, limit int) ([]*Event, error)
	MarkPublished(ctx context.Context, id string) error
	// Reschedule увеличивает счётчик попыток и откладывает событие до next.
	Reschedule(ctx context.Context, id string, cause error, next time.Time) error
	Purge(ctx context.Context, publishedBefore time.Time) (int64, error)
}

type repository struct {
	db            *gorm.DB
	aggregateType string
	now           func() time.Time
}

// NewRepository создаёт репозиторий событий указанного типа агрегата.
func NewRepository(db *gorm.DB, aggregateType string) Repository {
	return &repository{db: db, aggregateType: aggregateType, now: time.Now}
}

func (r *repository) Append(ctx context.Context, e *Event) error {
	e.AggregateType = r.aggregateType
	if e.NextAttemptAt.IsZero() {
		e.NextAttemptAt = r.now().UTC()
	}

	row := rowFromEvent(e)
	if err := txscope.DB(ctx, r.db).Create(row).Error; err != nil {
		return fmt.Errorf("ошибка записи события %s в outbox: %w", e.EventType, err)
	}
	e.CreatedAt = row.CreatedAt
	return nil
}

func (r *repository) Pending(ctx context.Context, limit int) ([]*Event, error) {
	var rows []eventRow
	err := r.db.WithContext(ctx).
		Where("aggregate_type = ? AND published_at IS NULL AND next_attempt_at <= ?", r.aggregateType, r.now().UTC()).
		Order("next_attempt_at, created_at").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения outbox: %w", err)
	}

	events := make([]*Event, 0, len(rows))
	for i := range rows {
		events = append(events, rows[i].event())
	}
	return events, nil
}

func (r *repository) MarkPublished(ctx context.Context, id string) error {
	return r.update(ctx, id, map[string]any{"published_at": r.now().UTC()})
}

func (r *repository) Reschedule(ctx context.Context, id string, cause error, next time.Time) error {
	return r.update(ctx, id, map[string]any{
		"attempts":        gorm.Expr("attempts + 1"),
		"last_error":      cause.Error(),
		"next_attempt_at": next.UTC(),
	})
}

func (r *repository) update(ctx context.Context, id string, fields map[string]any) error {
	result := r.db.WithContext(ctx).Model(&eventRow{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return fmt.Errorf("ошибка обновления события outbox %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrEventNotFound
	}
	return nil
}

func (r *repository) Purge(ctx context.Context, publishedBefore time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("aggregate_type = ? AND published_at < ?", r.aggregateType, publishedBefore.UTC()).
		Limit(purgeBatch).
		Delete(&eventRow{})
	if result.Error != nil {
		return 0, fmt.Errorf("ошибка очистки outbox: %w", result.Error)
	}
	return result.RowsAffected, nil
}
