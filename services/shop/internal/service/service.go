// Package service содержит бизнес-логику магазина: каталог, корзину, купоны,
// сборку и жизненный цикл заказа, отзывы.
package service

import (
	"context"
	"fmt"
	"time"

	"example.com/shop-backend/pkg/outbox"
	"example.com/shop-backend/services/shop/internal/domain"
)

// Константы пагинации.
const (
	defaultPage     = 1
	defaultPageSize = 20
	maxPageSize     = 100
)

// Clock возвращает текущее время. В тестах подменяется фиксированным.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}

// normalizePage переводит номер страницы и размер в offset/limit.
func normalizePage(page, pageSize int) (offset, limit int) {
	if page < defaultPage {
		page = defaultPage
	}
	switch {
	case pageSize <= 0:
		pageSize = defaultPageSize
	case pageSize > maxPageSize:
		pageSize = maxPageSize
	}
	return (page - 1) * pageSize, pageSize
}

// eventWriter пишет события заказа в outbox. Внутри txscope.Execute запись
// попадает в ту же транзакцию, что и изменение заказа.
type eventWriter struct {
	repo     outbox.Repository
	topic    string
	currency string
}

func (w *eventWriter) write(ctx context.Context, eventType string, o *domain.Order, note string, now time.Time) error {
	payload := domain.NewOrderEvent(eventType, o, w.currency, note, now)

	record, err := outbox.NewEvent(ctx, domain.AggregateOrder, o.OrderNumber, eventType, w.topic, payload)
	if err != nil {
		return err
	}
	if err := w.repo.Append(ctx, record); err != nil {
		return fmt.Errorf("ошибка записи события %s: %w", eventType, err)
	}
	return nil
}
