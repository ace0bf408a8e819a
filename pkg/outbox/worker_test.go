package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"example.com/shop-backend/pkg/kafka"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) Append(ctx context.Context, e *Event) error {
	return m.Called(ctx, e).Error(0)
}

func (m *mockRepository) Pending(ctx context.Context, limit int) ([]*Event, error) {
	args := m.Called(ctx, limit)
	events, _ := args.Get(0).([]*Event)
	return events, args.Error(1)
}

func (m *mockRepository) MarkPublished(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockRepository) Reschedule(ctx context.Context, id string, cause error, next time.Time) error {
	return m.Called(ctx, id, cause, next).Error(0)
}

func (m *mockRepository) Purge(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) SendMessage(ctx context.Context, msg *kafka.Message) error {
	return m.Called(ctx, msg).Error(0)
}

func orderEvent(id, orderNumber string, attempts int) *Event {
	return &Event{
		ID:          id,
		AggregateID: orderNumber,
		EventType:   "order.created",
		Topic:       "shop.order-events",
		Payload:     []byte(`{"order_number":"` + orderNumber + `"}`),
		Headers:     map[string]string{kafka.HeaderEventType: "order.created"},
		Attempts:    attempts,
	}
}

func newTestWorker(repo Repository, pub Publisher, now time.Time) *Worker {
	cfg := DefaultWorkerConfig()
	cfg.BatchSize = 10
	cfg.MaxAttempts = 3
	cfg.RetryBackoff = time.Second
	cfg.MaxBackoff = 10 * time.Second
	w := NewWorker(repo, pub, cfg)
	w.now = func() time.Time { return now }
	return w
}

func TestWorker_Publish_Success(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepository)
	pub := new(mockPublisher)
	worker := newTestWorker(repo, pub, time.Now())

	pub.On("SendMessage", ctx, mock.MatchedBy(func(msg *kafka.Message) bool {
		return msg.Topic == "shop.order-events" &&
			string(msg.Key) == "HH123456ABCDEF" &&
			msg.EventType() == "order.created"
	})).Return(nil)
	repo.On("MarkPublished", ctx, "evt-1").Return(nil)

	require.NoError(t, worker.Publish(ctx, orderEvent("evt-1", "HH123456ABCDEF", 0)))
	pub.AssertExpectations(t)
	repo.AssertExpectations(t)
}

func TestWorker_Publish_SendErrorReschedules(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := new(mockRepository)
	pub := new(mockPublisher)
	worker := newTestWorker(repo, pub, now)

	sendErr := errors.New("kafka unavailable")
	pub.On("SendMessage", ctx, mock.AnythingOfType("*kafka.Message")).Return(sendErr)
	// вторая неудачная попытка: 1s * 2
	repo.On("Reschedule", ctx, "evt-1", sendErr, now.Add(2*time.Second)).Return(nil)

	err := worker.Publish(ctx, orderEvent("evt-1", "HH123456ABCDEF", 1))

	assert.ErrorIs(t, err, sendErr)
	repo.AssertNotCalled(t, "MarkPublished", mock.Anything, mock.Anything)
	repo.AssertExpectations(t)
}

func TestWorker_Publish_LastAttemptParksEvent(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepository)
	pub := new(mockPublisher)
	worker := newTestWorker(repo, pub, time.Now())

	sendErr := errors.New("message too large")
	pub.On("SendMessage", ctx, mock.Anything).Return(sendErr)
	repo.On("Reschedule", ctx, "evt-dead", sendErr, farFuture).Return(nil)

	assert.Error(t, worker.Publish(ctx, orderEvent("evt-dead", "HH1", 2)))
	repo.AssertExpectations(t)
}

func TestWorker_Backoff(t *testing.T) {
	worker := newTestWorker(nil, nil, time.Now())

	assert.Equal(t, time.Second, worker.backoff(1))
	assert.Equal(t, 4*time.Second, worker.backoff(3))
	assert.Equal(t, 10*time.Second, worker.backoff(10))
}

func TestWorker_Drain_PublishesAll(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepository)
	pub := new(mockPublisher)
	worker := newTestWorker(repo, pub, time.Now())

	repo.On("Pending", ctx, 10).Return([]*Event{
		orderEvent("evt-1", "HH1", 0),
		orderEvent("evt-2", "HH2", 1),
	}, nil)
	pub.On("SendMessage", ctx, mock.AnythingOfType("*kafka.Message")).Return(nil).Times(2)
	repo.On("MarkPublished", ctx, "evt-1").Return(nil)
	repo.On("MarkPublished", ctx, "evt-2").Return(nil)

	worker.drain(ctx)

	repo.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestWorker_Purge(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)
	repo := new(mockRepository)
	worker := newTestWorker(repo, nil, now)

	repo.On("Purge", ctx, now.Add(-7*24*time.Hour)).Return(int64(12), nil)

	worker.purge(ctx)
	repo.AssertExpectations(t)
}

func TestWorker_Run_StopsOnCancel(t *testing.T) {
	repo := new(mockRepository)
	pub := new(mockPublisher)
	worker := NewWorker(repo, pub, WorkerConfig{PollInterval: 20 * time.Millisecond, BatchSize: 10, MaxAttempts: 5})

	repo.On("Pending", mock.Anything, 10).Return([]*Event{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		worker.Run(ctx)
		close(done)
	}()

	time.Sleep(60 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Worker не остановился после отмены context")
	}
}

func TestNewEvent(t *testing.T) {
	evt, err := NewEvent(context.Background(), "order", "HH123456ABCDEF", "order.cancelled", "shop.order-events",
		map[string]string{"reason": "передумал"})

	require.NoError(t, err)
	assert.NotEmpty(t, evt.ID)
	assert.Equal(t, "order.cancelled", evt.Headers[kafka.HeaderEventType])
	assert.Equal(t, "HH123456ABCDEF", evt.Headers[kafka.HeaderCorrelationID])
	assert.JSONEq(t, `{"reason":"передумал"}`, string(evt.Payload))

	msg := evt.message()
	assert.Equal(t, []byte("HH123456ABCDEF"), msg.Key)
	msg.Headers["extra"] = "x"
	assert.NotContains(t, evt.Headers, "extra")
}

func TestNewEvent_UnmarshalablePayload(t *testing.T) {
	_, err := NewEvent(context.Background(), "order", "HH1", "order.created", "t", make(chan int))
	assert.Error(t, err)
}
