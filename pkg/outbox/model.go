package outbox

import (
	"encoding/json"
	"time"
)

// eventRow — строка таблицы outbox_events.
type eventRow struct {
	ID            string     `gorm:"column:id;type:varchar(36);primaryKey"`
	AggregateType string     `gorm:"column:aggregate_type;type:varchar(32);not null;index:idx_outbox_pending,priority:1"`
	AggregateID   string     `gorm:"column:aggregate_id;type:varchar(64);not null"`
	EventType     string     `gorm:"column:event_type;type:varchar(64);not null"`
	Topic         string     `gorm:"column:topic;type:varchar(128);not null"`
	Payload       []byte     `gorm:"column:payload;type:json;not null"`
	Headers       []byte     `gorm:"column:headers;type:json"`
	Attempts      int        `gorm:"column:attempts;not null;default:0"`
	LastError     string     `gorm:"column:last_error;type:text"`
	NextAttemptAt time.Time  `gorm:"column:next_attempt_at;not null;index:idx_outbox_pending,priority:3"`
	PublishedAt   *time.Time `gorm:"column:published_at;index:idx_outbox_pending,priority:2"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (eventRow) TableName() string {
	return "outbox_events"
}

// Models возвращает модели пакета для AutoMigrate.
func Models() []any {
	return []any{&eventRow{}}
}

func rowFromEvent(e *Event) *eventRow {
	row := &eventRow{
		ID:            e.ID,
		AggregateType: e.AggregateType,
		AggregateID:   e.AggregateID,
		EventType:     e.EventType,
		Topic:         e.Topic,
		Payload:       e.Payload,
		Attempts:      e.Attempts,
		LastError:     e.LastError,
		NextAttemptAt: e.NextAttemptAt,
		PublishedAt:   e.PublishedAt,
	}
	if len(e.Headers) > 0 {
		row.Headers, _ = json.Marshal(e.Headers)
	}
	return row
}

func (r *eventRow) event() *Event {
	e := &Event{
		ID:            r.ID,
		AggregateType: r.AggregateType,
		AggregateID:   r.AggregateID,
		EventType:     r.EventType,
		Topic:         r.Topic,
		Payload:       r.Payload,
		Attempts:      r.Attempts,
		LastError:     r.LastError,
		NextAttemptAt: r.NextAttemptAt,
		PublishedAt:   r.PublishedAt,
		CreatedAt:     r.CreatedAt,
	}
	if len(r.Headers) > 0 {
		_ = json.Unmarshal(r.Headers, &e.Headers)
	}
	return e
}
