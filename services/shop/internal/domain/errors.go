// Package domain содержит бизнес-сущности магазина, правила ценообразования,
// купонов и жизненного цикла заказа, а также доменные ошибки.
package domain

import (
	"errors"
	"fmt"
)

// Базовые доменные ошибки. Типизированные ошибки ниже разворачиваются в них,
// поэтому errors.Is работает для обоих вариантов.
var (
	ErrNotFound                  = errors.New("не найдено")
	ErrProductUnavailable        = errors.New("товар недоступен")
	ErrInsufficientInventory     = errors.New("недостаточно товара на складе")
	ErrEmptyOrder                = errors.New("заказ не содержит позиций")
	ErrInvalidCoupon             = errors.New("купон недействителен")
	ErrInvalidStateTransition    = errors.New("недопустимый переход статуса заказа")
	ErrPaymentVerificationFailed = errors.New("не удалось подтвердить оплату")
)

// Ошибки поиска по сущностям.
var (
	ErrOrderNotFound    = fmt.Errorf("заказ %w", ErrNotFound)
	ErrProductNotFound  = fmt.Errorf("товар %w", ErrNotFound)
	ErrCouponNotFound   = fmt.Errorf("купон %w", ErrNotFound)
	ErrCartItemNotFound = fmt.Errorf("позиция корзины %w", ErrNotFound)
)

// Ошибки валидации и конфликтов.
var (
	ErrInvalidQuantity         = errors.New("количество должно быть больше нуля")
	ErrInvalidProduct          = errors.New("некорректные данные товара")
	ErrInvalidCouponDefinition = errors.New("некорректное описание купона")
	ErrCouponExists            = errors.New("купон с таким кодом уже существует")
	ErrInvalidAddress          = errors.New("некорректный адрес доставки")
	ErrInvalidPaymentMethod    = errors.New("неподдерживаемый способ оплаты")
	ErrInvalidRefundAmount     = errors.New("сумма возврата превышает сумму заказа")
	ErrInvalidRating           = errors.New("оценка должна быть от 1 до 5")
	ErrDuplicateReview         = errors.New("пользователь уже оставил отзыв на этот товар")
	ErrDuplicateOrderNumber    = errors.New("номер заказа уже занят")
	ErrDuplicateOrder          = errors.New("заказ с таким ключом идемпотентности уже существует")
	ErrOrderConflict           = errors.New("заказ изменён параллельным запросом")
	ErrPaymentInProgress       = errors.New("платёж уже обрабатывается")
)

// ProductUnavailableError — товар не найден или снят с продажи.
type ProductUnavailableError struct {
	ProductID string
}

func (e *ProductUnavailableError) Error() string {
	return fmt.Sprintf("товар %s недоступен", e.ProductID)
}

func (e *ProductUnavailableError) Unwrap() error { return ErrProductUnavailable }

// InsufficientInventoryError — запрошено больше, чем есть на складе.
type InsufficientInventoryError struct {
	ProductID string
	Name      string
	Requested int
	Available int
}

func (e *InsufficientInventoryError) Error() string {
	return fmt.Sprintf("недостаточно товара %q: запрошено %d, доступно %d", e.Name, e.Requested, e.Available)
}

func (e *InsufficientInventoryError) Unwrap() error { return ErrInsufficientInventory }

// InvalidCouponError — купон не может быть применён, Reason объясняет почему.
type InvalidCouponError struct {
	Code   string
	Reason CouponRejection
}

func (e *InvalidCouponError) Error() string {
	return fmt.Sprintf("купон %s: %s", e.Code, e.Reason.Message())
}

func (e *InvalidCouponError) Unwrap() error { return ErrInvalidCoupon }

// StateTransitionError — операция недопустима в текущем статусе заказа.
type StateTransitionError struct {
	Operation string
	From      string
	To        string
}

func (e *StateTransitionError) Error() string {
	if e.To == "" {
		return fmt.Sprintf("операция %s недопустима в статусе %s", e.Operation, e.From)
	}
	return fmt.Sprintf("операция %s: переход %s -> %s запрещён", e.Operation, e.From, e.To)
}

func (e *StateTransitionError) Unwrap() error { return ErrInvalidStateTransition }
