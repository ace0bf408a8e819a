// Package saga выполняет последовательность шагов с компенсациями: если шаг
// завершился ошибкой, уже выполненные шаги откатываются в обратном порядке.
// Используется там, где одна операция затрагивает БД и внешний сервис
// (например, возврат платежа), и общей транзакции быть не может.
package saga

import (
	"context"
	"errors"
	"fmt"

	"example.com/shop-backend/pkg/logger"
)

// Step — шаг саги. Compensate может быть nil, если шаг нечем откатить.
type Step struct {
	Name       string
	Execute    func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// Error описывает провал саги: какой шаг упал и какие компенсации не удались.
type Error struct {
	Saga             string
	Step             string
	Cause            error
	CompensationErrs []error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("сага %s: шаг %s: %v", e.Saga, e.Step, e.Cause)
	if len(e.CompensationErrs) > 0 {
		msg += fmt.Sprintf(" (ошибок компенсации: %d)", len(e.CompensationErrs))
	}
	return msg
}

// Unwrap позволяет errors.Is/As находить как причину, так и ошибки компенсаций.
func (e *Error) Unwrap() []error {
	return append([]error{e.Cause}, e.CompensationErrs...)
}

// Compensated сообщает, что все компенсации выполнены успешно.
func (e *Error) Compensated() bool {
	return len(e.CompensationErrs) == 0
}

// Run выполняет шаги по порядку. Компенсации получают контекст без отмены:
// откат должен завершиться, даже если запрос клиента уже оборван.
func Run(ctx context.Context, name string, steps ...Step) error {
	log := logger.FromContext(ctx).With().Str("saga", name).Logger()

	for i, step := range steps {
		if err := step.Execute(ctx); err != nil {
			log.Warn().Err(err).Str("step", step.Name).Msg("Шаг саги завершился ошибкой, запуск компенсаций")

			sagaErr := &Error{Saga: name, Step: step.Name, Cause: err}
			compCtx := context.WithoutCancel(ctx)

			for j := i - 1; j >= 0; j-- {
				done := steps[j]
				if done.Compensate == nil {
					continue
				}
				if cErr := done.Compensate(compCtx); cErr != nil {
					log.Error().Err(cErr).Str("step", done.Name).Msg("Ошибка компенсации шага саги")
					sagaErr.CompensationErrs = append(sagaErr.CompensationErrs, fmt.Errorf("компенсация %s: %w", done.Name, cErr))
				}
			}

			return sagaErr
		}

		log.Debug().Str("step", step.Name).Msg("Шаг саги выполнен")
	}

	return nil
}

// FailedStep возвращает имя упавшего шага, если err — ошибка саги.
func FailedStep(err error) (string, bool) {
	var sagaErr *Error
	if errors.As(err, &sagaErr) {
		return sagaErr.Step, true
	}
	return "", false
}
