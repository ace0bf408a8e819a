// Package payment — интеграция с платёжным шлюзом: проверка подписи
// подтверждения оплаты и возвраты (Stripe или ручные).
package payment

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"example.com/shop-backend/pkg/circuitbreaker"
	"example.com/shop-backend/pkg/logger"
	"example.com/shop-backend/services/shop/internal/domain"
)

// RefundRequest — запрос на возврат средств.
type RefundRequest struct {
	OrderNumber   string
	PaymentID     string
	PaymentMethod domain.PaymentMethod
	Amount        decimal.Decimal
	Currency      string
	Reason        string
}

// RefundResult — ответ провайдера.
type RefundResult struct {
	RefundID string
	Status   string
	Provider string
}

// Refunder выполняет возврат у конкретного провайдера.
type Refunder interface {
	Refund(ctx context.Context, req RefundRequest) (*RefundResult, error)
	Name() string
}

// Gateway — всё, что сервису заказов нужно от платёжного шлюза.
type Gateway interface {
	VerifySignature(orderRef, paymentRef, signature string) bool
	Refund(ctx context.Context, req RefundRequest) (*RefundResult, error)
}

type gateway struct {
	verifier *SignatureVerifier
	online   Refunder
	offline  Refunder
	breaker  *circuitbreaker.Breaker
}

// NewGateway собирает шлюз. Возвраты по наложенному платежу идут через
// offline, остальные через online под circuit breaker.
func NewGateway(verifier *SignatureVerifier, online, offline Refunder, breaker *circuitbreaker.Breaker) Gateway {
	return &gateway{
		verifier: verifier,
		online:   online,
		offline:  offline,
		breaker:  breaker,
	}
}

func (g *gateway) VerifySignature(orderRef, paymentRef, signature string) bool {
	return g.verifier.Verify(orderRef, paymentRef, signature)
}

func (g *gateway) Refund(ctx context.Context, req RefundRequest) (*RefundResult, error) {
	log := logger.FromContext(ctx)

	if req.PaymentMethod == domain.PaymentMethodCOD || g.online == nil {
		return g.offline.Refund(ctx, req)
	}

	result, err := circuitbreaker.Execute(ctx, g.breaker, func(ctx context.Context) (*RefundResult, error) {
		return g.online.Refund(ctx, req)
	})
	if err != nil {
		log.Error().
			Err(err).
			Str("order_number", req.OrderNumber).
			Str("provider", g.online.Name()).
			Msg("Ошибка возврата через платёжный шлюз")
		return nil, fmt.Errorf("ошибка возврата через %s: %w", g.online.Name(), err)
	}
	return result, nil
}

// minorUnits переводит сумму в копейки/пайсы для API провайдера.
func minorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
