package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeExpirer struct {
	mu      sync.Mutex
	results []int
	err     error
	calls   int
	ttl     time.Duration
}

func (f *fakeExpirer) ExpireStale(_ context.Context, ttl time.Duration, _ int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.ttl = ttl
	if f.err != nil {
		return 0, f.err
	}
	if len(f.results) == 0 {
		return 0, nil
	}
	n := f.results[0]
	f.results = f.results[1:]
	return n, nil
}

func (f *fakeExpirer) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestExpiryWorker_SweepDrainsFullBatches(t *testing.T) {
	exp := &fakeExpirer{results: []int{10, 10, 3}}
	w := NewExpiryWorker(exp, ExpiryWorkerConfig{PollInterval: time.Hour, OrderTTL: time.Hour, BatchSize: 10})

	w.sweep(context.Background())

	assert.Equal(t, 3, exp.Calls())
	assert.Equal(t, time.Hour, exp.ttl)
}

func TestExpiryWorker_SweepStopsOnError(t *testing.T) {
	exp := &fakeExpirer{err: errors.New("db down")}
	w := NewExpiryWorker(exp, ExpiryWorkerConfig{BatchSize: 10})

	w.sweep(context.Background())
	assert.Equal(t, 1, exp.Calls())
}

func TestExpiryWorker_Defaults(t *testing.T) {
	w := NewExpiryWorker(&fakeExpirer{}, ExpiryWorkerConfig{})
	assert.Equal(t, DefaultExpiryWorkerConfig(), w.cfg)
}

func TestExpiryWorker_RunStopsOnCancel(t *testing.T) {
	exp := &fakeExpirer{}
	w := NewExpiryWorker(exp, ExpiryWorkerConfig{PollInterval: 10 * time.Millisecond, OrderTTL: time.Hour, BatchSize: 10})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return exp.Calls() > 0 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("воркер не остановился после отмены контекста")
	}
}
