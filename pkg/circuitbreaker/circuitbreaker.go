// Package circuitbreaker защищает вызовы внешних систем (платёжный шлюз)
// от каскадных сбоев: при серии ошибок вызовы отклоняются сразу, без ожидания таймаута.
package circuitbreaker

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"

	"example.com/shop-backend/pkg/logger"
)

// ErrUnavailable возвращается, когда breaker открыт или полуоткрыт и лимит пробных запросов исчерпан.
var ErrUnavailable = errors.New("внешний сервис временно недоступен")

// Settings — настройки Circuit Breaker.
type Settings struct {
	MaxRequests  uint32        // пробных запросов в Half-Open
	Interval     time.Duration // сброс счётчиков в Closed
	Timeout      time.Duration // время в Open до Half-Open
	FailureRatio float64
	MinRequests  uint32

	// IsFailure решает, учитывается ли ошибка. По умолчанию учитываются все,
	// кроме отмены контекста вызывающей стороной.
	IsFailure func(err error) bool
}

// DefaultSettings возвращает настройки по умолчанию.
func DefaultSettings() Settings {
	return Settings{
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

// Breaker — gobreaker с логированием смены состояний.
type Breaker struct {
	cb        *gobreaker.CircuitBreaker[any]
	name      string
	isFailure func(error) bool
}

// New создаёт Breaker с настройками по умолчанию.
func New(name string) *Breaker {
	return NewWithSettings(name, DefaultSettings())
}

// NewWithSettings создаёт Breaker.
func NewWithSettings(name string, s Settings) *Breaker {
	isFailure := s.IsFailure
	if isFailure == nil {
		isFailure = defaultIsFailure
	}

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < s.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= s.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			ev := logger.Info()
			if to == gobreaker.StateOpen {
				ev = logger.Warn()
			}
			ev.Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Смена состояния Circuit Breaker")
		},
	})

	return &Breaker{cb: cb, name: name, isFailure: isFailure}
}

func defaultIsFailure(err error) bool {
	return !errors.Is(err, context.Canceled)
}

// State возвращает текущее состояние.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

// Name возвращает имя breaker.
func (b *Breaker) Name() string {
	return b.name
}

// Execute выполняет fn через breaker. Ошибки, для которых IsFailure
// возвращает false, пробрасываются вызывающему, но не открывают breaker.
func Execute[T any](ctx context.Context, b *Breaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var (
		result  T
		callErr error
	)

	_, cbErr := b.cb.Execute(func() (any, error) {
		result, callErr = fn(ctx)
		if callErr != nil && b.isFailure(callErr) {
			return nil, callErr
		}
		return nil, nil
	})

	if errors.Is(cbErr, gobreaker.ErrOpenState) || errors.Is(cbErr, gobreaker.ErrTooManyRequests) {
		var zero T
		return zero, ErrUnavailable
	}

	return result, callErr
}
