package payment

import (
	"context"

	"github.com/google/uuid"

	"example.com/shop-backend/pkg/logger"
)

// ManualRefunder регистрирует возврат, который бухгалтерия проведёт вручную
// (наложенный платёж, оплата вне шлюза).
type ManualRefunder struct{}

// NewManualRefunder создаёт ManualRefunder.
func NewManualRefunder() *ManualRefunder {
	return &ManualRefunder{}
}

// Name возвращает имя провайдера.
func (ManualRefunder) Name() string { return "manual" }

// Refund выдаёт номер ручного возврата.
func (m ManualRefunder) Refund(ctx context.Context, req RefundRequest) (*RefundResult, error) {
	id := "manual_" + uuid.NewString()

	log := logger.FromContext(ctx)
	log.Info().
		Str("order_number", req.OrderNumber).
		Str("refund_id", id).
		Str("amount", req.Amount.StringFixed(2)).
		Msg("Зарегистрирован ручной возврат")

	return &RefundResult{RefundID: id, Status: "pending_manual", Provider: m.Name()}, nil
}
