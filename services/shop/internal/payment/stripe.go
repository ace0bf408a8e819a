package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"

	"example.com/shop-backend/pkg/logger"
)

type stripeRefundAPI interface {
	New(params *stripe.RefundParams) (*stripe.Refund, error)
}

// StripeRefunder делает возврат по PaymentIntent через Stripe API.
type StripeRefunder struct {
	refunds stripeRefundAPI
}

// NewStripeRefunder создаёт клиента Stripe. backends может быть nil.
func NewStripeRefunder(apiKey string, backends *stripe.Backends) (*StripeRefunder, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("не задан секретный ключ Stripe")
	}
	sc := client.New(apiKey, backends)
	return &StripeRefunder{refunds: sc.Refunds}, nil
}

func newStripeRefunderWithAPI(api stripeRefundAPI) *StripeRefunder {
	return &StripeRefunder{refunds: api}
}

// Name возвращает имя провайдера.
func (r *StripeRefunder) Name() string { return "stripe" }

// Refund создаёт возврат. Ключ идемпотентности строится из номера заказа и
// суммы, поэтому повтор после таймаута не вернёт деньги дважды.
func (r *StripeRefunder) Refund(ctx context.Context, req RefundRequest) (*RefundResult, error) {
	if req.PaymentID == "" {
		return nil, errors.New("у заказа нет идентификатора платежа")
	}

	amount := minorUnits(req.Amount)
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(req.PaymentID),
		Amount:        stripe.Int64(amount),
		Reason:        stripe.String(string(stripe.RefundReasonRequestedByCustomer)),
	}
	params.Context = ctx
	params.SetIdempotencyKey(fmt.Sprintf("refund-%s-%d", req.OrderNumber, amount))
	params.AddMetadata("order_number", req.OrderNumber)
	if req.Reason != "" {
		params.AddMetadata("reason", req.Reason)
	}

	refund, err := r.refunds.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: ошибка создания возврата: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("order_number", req.OrderNumber).
		Str("refund_id", refund.ID).
		Str("status", string(refund.Status)).
		Int64("amount", amount).
		Msg("Возврат создан в Stripe")

	if refund.Status == stripe.RefundStatusFailed || refund.Status == stripe.RefundStatusCanceled {
		return nil, fmt.Errorf("stripe: возврат %s в статусе %s", refund.ID, refund.Status)
	}

	return &RefundResult{RefundID: refund.ID, Status: string(refund.Status), Provider: r.Name()}, nil
}
