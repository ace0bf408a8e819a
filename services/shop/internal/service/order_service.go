package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"example.com/shop-backend/pkg/logger"
	"example.com/shop-backend/pkg/metrics"
	"example.com/shop-backend/pkg/outbox"
	"example.com/shop-backend/pkg/saga"
	"example.com/shop-backend/pkg/tracing"
	"example.com/shop-backend/pkg/txscope"
	"example.com/shop-backend/services/shop/internal/domain"
	"example.com/shop-backend/services/shop/internal/payment"
	"example.com/shop-backend/services/shop/internal/repository"
)

// maxOrderNumberAttempts — сколько раз генерировать номер при коллизии.
const maxOrderNumberAttempts = 3

// PaymentLock не даёт обрабатывать подтверждение одного платежа параллельно.
type PaymentLock interface {
	Acquire(ctx context.Context, key string) (release func(), acquired bool, err error)
}

// Requester — кто обращается к заказу. Покупатель видит только свои заказы.
type Requester struct {
	UserID string
	Admin  bool
}

func (r Requester) actor() string {
	if r.Admin {
		return domain.ActorAdmin
	}
	return domain.ActorCustomer
}

// CreateOrderInput — данные оформления заказа.
type CreateOrderInput struct {
	Customer        domain.Customer
	Items           []domain.RequestedItem
	ShippingAddress domain.Address
	BillingAddress  domain.Address
	PaymentMethod   domain.PaymentMethod
	CouponCode      string
	GatewayOrderID  string
	Notes           string
	IdempotencyKey  string
}

// VerifyPaymentInput — подтверждение оплаты от клиента после платёжной формы.
type VerifyPaymentInput struct {
	GatewayOrderID string
	PaymentID      string
	Signature      string
}

// OrderService — жизненный цикл заказа.
type OrderService interface {
	// Create оформляет заказ из корзины (если она не пуста) или из позиций
	// запроса. Заказ, списание склада, учёт купона, очистка корзины и событие
	// outbox выполняются в одной транзакции. Повтор IdempotencyKey возвращает
	// уже созданный заказ.
	Create(ctx context.Context, in CreateOrderInput) (*domain.Order, error)

	Get(ctx context.Context, orderNumber string, req Requester) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string, status domain.OrderStatus, page, pageSize int) ([]*domain.Order, int64, error)
	ListAll(ctx context.Context, status domain.OrderStatus, page, pageSize int) ([]*domain.Order, int64, error)

	// Cancel отменяет pending или confirmed заказ и возвращает товар на склад.
	Cancel(ctx context.Context, orderNumber, reason string, req Requester) (*domain.Order, error)

	// UpdateStatus — административная смена статуса по таблице переходов.
	UpdateStatus(ctx context.Context, orderNumber string, update domain.StatusUpdate) (*domain.Order, error)

	// RecordPaymentResult фиксирует результат оплаты. Склад не меняется.
	RecordPaymentResult(ctx context.Context, orderNumber string, result domain.PaymentResult) (*domain.Order, error)

	// VerifyPayment проверяет подпись шлюза и записывает результат оплаты.
	VerifyPayment(ctx context.Context, orderNumber string, in VerifyPaymentInput, req Requester) (*domain.Order, error)

	// Refund возвращает средства: amount <= 0 означает полный возврат.
	Refund(ctx context.Context, orderNumber string, amount decimal.Decimal, reason string) (*domain.Order, error)

	// ExpireStale отменяет неоплаченные заказы старше ttl. Возвращает число отменённых.
	ExpireStale(ctx context.Context, ttl time.Duration, limit int) (int, error)
}

// OrderServiceDeps — зависимости OrderService.
type OrderServiceDeps struct {
	Orders    repository.OrderRepository
	Products  repository.ProductRepository
	Carts     repository.CartRepository
	Coupons   repository.CouponRepository
	Outbox    outbox.Repository
	Tx        txscope.Scope
	Assembler *OrderAssembler
	Evaluator CouponService
	Gateway   payment.Gateway
	Lock      PaymentLock
	Policy    domain.PricingPolicy
	Topic     string
	Currency  string
	Clock     Clock
}

type orderService struct {
	orders    repository.OrderRepository
	products  repository.ProductRepository
	carts     repository.CartRepository
	coupons   repository.CouponRepository
	tx        txscope.Scope
	assembler *OrderAssembler
	evaluator CouponService
	gateway   payment.Gateway
	lock      PaymentLock
	policy    domain.PricingPolicy
	events    *eventWriter
	now       Clock
}

// NewOrderService создаёт сервис заказов.
func NewOrderService(d OrderServiceDeps) OrderService {
	clock := d.Clock
	if clock == nil {
		clock = systemClock
	}
	assembler := d.Assembler
	if assembler == nil {
		assembler = NewOrderAssembler(d.Products)
	}
	evaluator := d.Evaluator
	if evaluator == nil {
		evaluator = NewCouponService(d.Coupons, clock)
	}

	return &orderService{
		orders:    d.Orders,
		products:  d.Products,
		carts:     d.Carts,
		coupons:   d.Coupons,
		tx:        d.Tx,
		assembler: assembler,
		evaluator: evaluator,
		gateway:   d.Gateway,
		lock:      d.Lock,
		policy:    d.Policy,
		events:    &eventWriter{repo: d.Outbox, topic: d.Topic, currency: d.Currency},
		now:       clock,
	}
}

// =============================================================================
// Создание
// =============================================================================

func (s *orderService) Create(ctx context.Context, in CreateOrderInput) (order *domain.Order, err error) {
	ctx, span := tracing.StartSpan(ctx, "OrderService.Create", attribute.String("user_id", in.Customer.UserID))
	defer func() { tracing.EndSpan(span, err) }()

	log := logger.FromContext(ctx)
	userID := in.Customer.UserID

	if !in.PaymentMethod.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidPaymentMethod, in.PaymentMethod)
	}
	if err := in.ShippingAddress.Validate(); err != nil {
		return nil, err
	}

	// Проверяем идемпотентность — повтор запроса возвращает уже созданный заказ
	if in.IdempotencyKey != "" {
		existing, err := s.existingByKey(ctx, userID, in.IdempotencyKey)
		if err != nil || existing != nil {
			return existing, err
		}
	}

	cart, err := s.carts.FindByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения корзины: %w", err)
	}

	src, err := domain.ResolveOrderSource(cart, in.Items)
	if err != nil {
		s.reject(ctx, err)
		return nil, err
	}

	assembled, err := s.assembler.Assemble(ctx, src)
	if err != nil {
		s.reject(ctx, err)
		return nil, err
	}

	coupon, err := s.evaluator.Evaluate(ctx, in.CouponCode, userID, assembled.Subtotal)
	if err != nil {
		s.reject(ctx, err)
		return nil, err
	}

	pricing := s.policy.Price(assembled.Subtotal, coupon.Discount, coupon.FreeShipping)
	if pricing.FreeShippingIgnored {
		log.Warn().
			Str("coupon_code", coupon.Code()).
			Str("shipping_charges", pricing.ShippingCharges.StringFixed(2)).
			Msg("Купон free_shipping не снимает плату за доставку в текущей политике")
	}

	now := s.now()
	order = &domain.Order{
		ID:              uuid.NewString(),
		UserID:          userID,
		Customer:        in.Customer,
		Items:           assembled.Items,
		ShippingAddress: in.ShippingAddress,
		BillingAddress:  in.BillingAddress,
		PaymentMethod:   in.PaymentMethod,
		GatewayOrderID:  in.GatewayOrderID,
		Notes:           strings.TrimSpace(in.Notes),
		IdempotencyKey:  in.IdempotencyKey,
	}
	order.ApplyPricing(pricing, coupon)
	order.MarkCreated(now)

	for attempt := 1; ; attempt++ {
		order.OrderNumber, err = domain.NewOrderNumber(s.now())
		if err != nil {
			return nil, fmt.Errorf("ошибка генерации номера заказа: %w", err)
		}

		err = s.tx.Execute(ctx, func(ctx context.Context) error {
			return s.persistNew(ctx, order, coupon)
		})
		if errors.Is(err, domain.ErrDuplicateOrderNumber) && attempt < maxOrderNumberAttempts {
			log.Warn().
				Str("order_number", order.OrderNumber).
				Int("attempt", attempt).
				Msg("Коллизия номера заказа, генерируем новый")
			continue
		}
		break
	}

	if err != nil {
		// параллельный запрос с тем же ключом успел первым
		if errors.Is(err, domain.ErrDuplicateOrder) {
			return s.existingByKey(ctx, userID, in.IdempotencyKey)
		}
		s.reject(ctx, err)
		log.Error().
			Err(err).
			Str("user_id", userID).
			Str("idempotency_key", in.IdempotencyKey).
			Msg("Ошибка создания заказа")
		return nil, wrapOrderError("ошибка создания заказа", err)
	}

	metrics.OrdersCreated.WithLabelValues(src.Kind()).Inc()
	metrics.OrderValue.Observe(order.TotalAmount.InexactFloat64())
	if coupon.Applied() {
		metrics.CouponRedemptions.WithLabelValues(string(coupon.Coupon.Type)).Inc()
	}

	log.Info().
		Str("order_number", order.OrderNumber).
		Str("user_id", userID).
		Str("source", src.Kind()).
		Int("items", len(order.Items)).
		Str("total_amount", order.TotalAmount.StringFixed(2)).
		Str("coupon_code", order.CouponCode).
		Msg("Заказ создан")

	return order, nil
}

// persistNew выполняется внутри транзакции. Любая ошибка откатывает всё.
func (s *orderService) persistNew(ctx context.Context, order *domain.Order, coupon domain.CouponEvaluation) error {
	if err := s.orders.Create(ctx, order); err != nil {
		return err
	}

	for _, item := range order.Items {
		if err := s.products.DecrementInventory(ctx, item.ProductID, item.Quantity); err != nil {
			return err
		}
	}

	if coupon.Applied() {
		if err := s.coupons.IncrementUsage(ctx, coupon.Coupon.Code, order.UserID, order.ID, order.CreatedAt); err != nil {
			return err
		}
	}

	if err := s.carts.Clear(ctx, order.UserID); err != nil {
		return err
	}

	return s.events.write(ctx, domain.EventOrderCreated, order, "", order.CreatedAt)
}

func (s *orderService) existingByKey(ctx context.Context, userID, key string) (*domain.Order, error) {
	existing, err := s.orders.GetByIdempotencyKey(ctx, userID, key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("ошибка проверки идемпотентности: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("order_number", existing.OrderNumber).
		Str("idempotency_key", key).
		Msg("Возвращён существующий заказ по ключу идемпотентности")
	return existing, nil
}

// reject учитывает бизнес-отказы оформления в метриках.
func (s *orderService) reject(ctx context.Context, err error) {
	reason := ""
	switch {
	case errors.Is(err, domain.ErrEmptyOrder):
		reason = "empty_order"
	case errors.Is(err, domain.ErrProductUnavailable):
		reason = "product_unavailable"
	case errors.Is(err, domain.ErrInsufficientInventory):
		reason = "insufficient_inventory"
	case errors.Is(err, domain.ErrInvalidCoupon):
		reason = "invalid_coupon"
	default:
		return
	}
	metrics.OrderRejections.WithLabelValues(reason).Inc()

	log := logger.FromContext(ctx)
	log.Info().Err(err).Str("reason", reason).Msg("Заказ отклонён")
}

// =============================================================================
// Чтение
// =============================================================================

func (s *orderService) Get(ctx context.Context, orderNumber string, req Requester) (*domain.Order, error) {
	order, err := s.orders.GetByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	// чужой заказ неотличим от несуществующего
	if !req.Admin && order.UserID != req.UserID {
		return nil, domain.ErrOrderNotFound
	}
	return order, nil
}

func (s *orderService) ListByUser(ctx context.Context, userID string, status domain.OrderStatus, page, pageSize int) ([]*domain.Order, int64, error) {
	offset, limit := normalizePage(page, pageSize)
	return s.orders.List(ctx, domain.OrderFilter{UserID: userID, Status: status, Offset: offset, Limit: limit})
}

func (s *orderService) ListAll(ctx context.Context, status domain.OrderStatus, page, pageSize int) ([]*domain.Order, int64, error) {
	offset, limit := normalizePage(page, pageSize)
	return s.orders.List(ctx, domain.OrderFilter{Status: status, Offset: offset, Limit: limit})
}

// =============================================================================
// Отмена и смена статуса
// =============================================================================

func (s *orderService) Cancel(ctx context.Context, orderNumber, reason string, req Requester) (order *domain.Order, err error) {
	ctx, span := tracing.StartSpan(ctx, "OrderService.Cancel", attribute.String("order_number", orderNumber))
	defer func() { tracing.EndSpan(span, err) }()

	order, err = s.Get(ctx, orderNumber, req)
	if err != nil {
		return nil, err
	}
	if err := s.cancel(ctx, order, reason, req.actor()); err != nil {
		return nil, err
	}
	return order, nil
}

// cancel отменяет заказ и возвращает товар на склад в одной транзакции.
func (s *orderService) cancel(ctx context.Context, order *domain.Order, reason, actor string) error {
	log := logger.FromContext(ctx)

	if strings.TrimSpace(reason) == "" {
		reason = "Отменён по запросу"
	}
	from := order.OrderStatus
	if err := order.Cancel(reason, actor, s.now()); err != nil {
		return err
	}

	err := s.tx.Execute(ctx, func(ctx context.Context) error {
		if err := s.orders.Update(ctx, order); err != nil {
			return err
		}

		for _, item := range order.Items {
			restored, err := s.products.RestoreInventory(ctx, item.ProductID, item.Quantity)
			if err != nil {
				return err
			}
			if !restored {
				log.Warn().
					Str("order_number", order.OrderNumber).
					Str("product_id", item.ProductID).
					Int("quantity", item.Quantity).
					Msg("Товар удалён из каталога, остаток не восстановлен")
			}
		}

		return s.events.write(ctx, domain.EventOrderCancelled, order, reason, order.UpdatedAt)
	})
	if err != nil {
		return wrapOrderError("ошибка отмены заказа", err)
	}

	metrics.OrderTransitions.WithLabelValues(string(from), string(domain.OrderStatusCancelled)).Inc()
	log.Info().
		Str("order_number", order.OrderNumber).
		Str("actor", actor).
		Str("reason", reason).
		Msg("Заказ отменён")
	return nil
}

func (s *orderService) UpdateStatus(ctx context.Context, orderNumber string, update domain.StatusUpdate) (order *domain.Order, err error) {
	ctx, span := tracing.StartSpan(ctx, "OrderService.UpdateStatus",
		attribute.String("order_number", orderNumber),
		attribute.String("status", string(update.Status)),
	)
	defer func() { tracing.EndSpan(span, err) }()

	order, err = s.orders.GetByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}

	if update.Status == domain.OrderStatusCancelled {
		if err := s.cancel(ctx, order, update.Note, domain.ActorAdmin); err != nil {
			return nil, err
		}
		return order, nil
	}

	from := order.OrderStatus
	if err := order.ApplyStatusUpdate(update, domain.ActorAdmin, s.now()); err != nil {
		return nil, err
	}

	err = s.tx.Execute(ctx, func(ctx context.Context) error {
		if err := s.orders.Update(ctx, order); err != nil {
			return err
		}
		return s.events.write(ctx, domain.EventOrderStatusChanged, order, update.Note, order.UpdatedAt)
	})
	if err != nil {
		return nil, wrapOrderError("ошибка смены статуса заказа", err)
	}

	if from != order.OrderStatus {
		metrics.OrderTransitions.WithLabelValues(string(from), string(order.OrderStatus)).Inc()
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("order_number", order.OrderNumber).
		Str("from", string(from)).
		Str("to", string(order.OrderStatus)).
		Str("tracking_number", order.TrackingNumber).
		Msg("Статус заказа обновлён")
	return order, nil
}

// =============================================================================
// Оплата
// =============================================================================

func (s *orderService) RecordPaymentResult(ctx context.Context, orderNumber string, result domain.PaymentResult) (*domain.Order, error) {
	order, err := s.orders.GetByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if err := s.recordPayment(ctx, order, result); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *orderService) recordPayment(ctx context.Context, order *domain.Order, result domain.PaymentResult) error {
	from := order.OrderStatus
	if err := order.RecordPayment(result, domain.ActorPayment, s.now()); err != nil {
		return err
	}

	note := "paid"
	if !result.Success {
		note = result.FailureReason
	}

	err := s.tx.Execute(ctx, func(ctx context.Context) error {
		if err := s.orders.Update(ctx, order); err != nil {
			return err
		}
		return s.events.write(ctx, domain.EventOrderPaymentRecorded, order, note, order.UpdatedAt)
	})
	if err != nil {
		return wrapOrderError("ошибка записи результата оплаты", err)
	}

	outcome := "success"
	if !result.Success {
		outcome = "failure"
	}
	metrics.PaymentResults.WithLabelValues("record", outcome).Inc()
	if from != order.OrderStatus {
		metrics.OrderTransitions.WithLabelValues(string(from), string(order.OrderStatus)).Inc()
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("order_number", order.OrderNumber).
		Str("payment_status", string(order.PaymentStatus)).
		Str("payment_id", result.PaymentID).
		Msg("Результат оплаты записан")
	return nil
}

func (s *orderService) VerifyPayment(ctx context.Context, orderNumber string, in VerifyPaymentInput, req Requester) (order *domain.Order, err error) {
	ctx, span := tracing.StartSpan(ctx, "OrderService.VerifyPayment", attribute.String("order_number", orderNumber))
	defer func() { tracing.EndSpan(span, err) }()

	log := logger.FromContext(ctx)

	if in.PaymentID == "" || in.Signature == "" {
		return nil, fmt.Errorf("%w: не переданы идентификатор платежа или подпись", domain.ErrPaymentVerificationFailed)
	}

	release, acquired, err := s.lock.Acquire(ctx, in.PaymentID)
	if err != nil {
		return nil, err
	}
	defer release()
	if !acquired {
		return nil, domain.ErrPaymentInProgress
	}

	order, err = s.Get(ctx, orderNumber, req)
	if err != nil {
		return nil, err
	}

	// повторное подтверждение того же платежа
	if order.PaymentStatus == domain.PaymentStatusPaid && order.PaymentID == in.PaymentID {
		return order, nil
	}

	gatewayRef := in.GatewayOrderID
	if gatewayRef == "" {
		gatewayRef = order.GatewayOrderID
	}
	if gatewayRef == "" {
		gatewayRef = order.OrderNumber
	}

	if !s.gateway.VerifySignature(gatewayRef, in.PaymentID, in.Signature) {
		log.Warn().
			Str("order_number", order.OrderNumber).
			Str("payment_id", in.PaymentID).
			Msg("Подпись платежа не прошла проверку")

		failure := domain.PaymentResult{
			Success:        false,
			PaymentID:      in.PaymentID,
			GatewayOrderID: in.GatewayOrderID,
			FailureReason:  "неверная подпись платежа",
		}
		if err := s.recordPayment(ctx, order, failure); err != nil && !errors.Is(err, domain.ErrInvalidStateTransition) {
			log.Error().Err(err).Str("order_number", order.OrderNumber).Msg("Не удалось записать неуспешную оплату")
		}
		return nil, domain.ErrPaymentVerificationFailed
	}

	success := domain.PaymentResult{
		Success:        true,
		PaymentID:      in.PaymentID,
		GatewayOrderID: in.GatewayOrderID,
	}
	if err := s.recordPayment(ctx, order, success); err != nil {
		return nil, err
	}
	return order, nil
}

// =============================================================================
// Возврат
// =============================================================================

func (s *orderService) Refund(ctx context.Context, orderNumber string, amount decimal.Decimal, reason string) (order *domain.Order, err error) {
	ctx, span := tracing.StartSpan(ctx, "OrderService.Refund", attribute.String("order_number", orderNumber))
	defer func() { tracing.EndSpan(span, err) }()

	log := logger.FromContext(ctx)

	order, err = s.orders.GetByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if !order.CanRefund() {
		return nil, &domain.StateTransitionError{Operation: "refund", From: string(order.PaymentStatus)}
	}
	amount, err = order.RefundAmountFor(amount)
	if err != nil {
		return nil, err
	}

	var result *payment.RefundResult
	err = saga.Run(ctx, "refund",
		saga.Step{
			Name: "mark_refund_pending",
			Execute: func(ctx context.Context) error {
				if err := order.StartRefund(amount); err != nil {
					return err
				}
				return s.orders.Update(ctx, order)
			},
			Compensate: func(ctx context.Context) error {
				order.FailRefund(reason, domain.ActorAdmin, s.now())
				return s.orders.Update(ctx, order)
			},
		},
		saga.Step{
			Name: "gateway_refund",
			Execute: func(ctx context.Context) error {
				var err error
				result, err = s.gateway.Refund(ctx, payment.RefundRequest{
					OrderNumber:   order.OrderNumber,
					PaymentID:     order.PaymentID,
					PaymentMethod: order.PaymentMethod,
					Amount:        amount,
					Currency:      s.events.currency,
					Reason:        reason,
				})
				return err
			},
		},
	)
	if err != nil {
		metrics.PaymentResults.WithLabelValues("refund", "failure").Inc()
		event := log.Error().
			Err(err).
			Str("order_number", order.OrderNumber).
			Str("amount", amount.StringFixed(2))
		if step, ok := saga.FailedStep(err); ok {
			event = event.Str("failed_step", step)
		}
		var sagaErr *saga.Error
		if errors.As(err, &sagaErr) && !sagaErr.Compensated() {
			// статус возврата мог остаться pending: нужна ручная сверка
			event = event.Bool("compensated", false)
		}
		event.Msg("Возврат не выполнен")
		return nil, wrapOrderError("ошибка возврата", err)
	}

	note := result.Provider + ":" + result.RefundID
	if reason != "" {
		note = reason + " (" + note + ")"
	}
	order.CompleteRefund(amount, note, domain.ActorAdmin, s.now())

	err = s.tx.Execute(ctx, func(ctx context.Context) error {
		if err := s.orders.Update(ctx, order); err != nil {
			return err
		}
		return s.events.write(ctx, domain.EventOrderRefunded, order, note, order.UpdatedAt)
	})
	if err != nil {
		// деньги уже вернулись у провайдера: нужна ручная сверка
		log.Error().
			Err(err).
			Str("order_number", order.OrderNumber).
			Str("refund_id", result.RefundID).
			Msg("Возврат выполнен, но заказ не обновлён")
		return nil, wrapOrderError("ошибка сохранения возврата", err)
	}

	metrics.PaymentResults.WithLabelValues("refund", "success").Inc()
	log.Info().
		Str("order_number", order.OrderNumber).
		Str("amount", amount.StringFixed(2)).
		Str("refund_id", result.RefundID).
		Str("payment_status", string(order.PaymentStatus)).
		Msg("Возврат выполнен")
	return order, nil
}

// =============================================================================
// Просроченные заказы
// =============================================================================

func (s *orderService) ExpireStale(ctx context.Context, ttl time.Duration, limit int) (int, error) {
	log := logger.FromContext(ctx)

	before := s.now().Add(-ttl)
	orders, err := s.orders.ListStalePending(ctx, before, limit)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, order := range orders {
		if err := s.cancel(ctx, order, "Заказ не оплачен вовремя", domain.ActorSystem); err != nil {
			log.Warn().
				Err(err).
				Str("order_number", order.OrderNumber).
				Msg("Не удалось отменить просроченный заказ")
			continue
		}
		expired++
	}
	return expired, nil
}

// wrapOrderError оставляет доменные ошибки как есть, чтобы обработчик мог
// выбрать код ответа, остальные оборачивает.
func wrapOrderError(msg string, err error) error {
	var sagaErr *saga.Error
	if errors.As(err, &sagaErr) {
		err = sagaErr.Cause
	}
	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrProductUnavailable),
		errors.Is(err, domain.ErrInsufficientInventory),
		errors.Is(err, domain.ErrInvalidCoupon),
		errors.Is(err, domain.ErrInvalidStateTransition),
		errors.Is(err, domain.ErrOrderConflict):
		return err
	}
	return fmt.Errorf("%s: %w", msg, err)
}
