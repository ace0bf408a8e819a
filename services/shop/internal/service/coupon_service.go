package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"example.com/shop-backend/pkg/logger"
	"example.com/shop-backend/services/shop/internal/domain"
	"example.com/shop-backend/services/shop/internal/repository"
)

// CouponService — движок купонов.
type CouponService interface {
	// Evaluate применяет купон при оформлении. Пустой код даёт пустой результат,
	// неприменимый купон — InvalidCouponError. Состояние не меняется: учёт
	// использования делает OrderService в транзакции заказа.
	Evaluate(ctx context.Context, code, userID string, orderAmount decimal.Decimal) (domain.CouponEvaluation, error)

	// ValidateForDisplay проверяет купон для показа в корзине. Причина отказа
	// возвращается в CouponCheck, ошибка — только при сбое хранилища.
	ValidateForDisplay(ctx context.Context, code, userID string, orderAmount decimal.Decimal) (*domain.CouponCheck, error)

	Create(ctx context.Context, c *domain.Coupon) error
	List(ctx context.Context, page, pageSize int) ([]*domain.Coupon, int64, error)
	Deactivate(ctx context.Context, code string) error
}

type couponService struct {
	coupons repository.CouponRepository
	now     Clock
}

// NewCouponService создаёт сервис купонов. clock может быть nil.
func NewCouponService(coupons repository.CouponRepository, clock Clock) CouponService {
	if clock == nil {
		clock = systemClock
	}
	return &couponService{coupons: coupons, now: clock}
}

func (s *couponService) Evaluate(ctx context.Context, code, userID string, orderAmount decimal.Decimal) (domain.CouponEvaluation, error) {
	code = domain.NormalizeCouponCode(code)
	if code == "" {
		return domain.CouponEvaluation{}, nil
	}

	coupon, rejection, err := s.check(ctx, code, userID, orderAmount)
	if err != nil {
		return domain.CouponEvaluation{}, err
	}
	if rejection != "" {
		log := logger.FromContext(ctx)
		log.Info().
			Str("coupon_code", code).
			Str("user_id", userID).
			Str("reason", string(rejection)).
			Msg("Купон отклонён при оформлении заказа")
		return domain.CouponEvaluation{}, &domain.InvalidCouponError{Code: code, Reason: rejection}
	}

	return domain.CouponEvaluation{
		Coupon:       coupon,
		Discount:     coupon.Discount(orderAmount),
		FreeShipping: coupon.Type == domain.CouponTypeFreeShipping,
	}, nil
}

func (s *couponService) ValidateForDisplay(ctx context.Context, code, userID string, orderAmount decimal.Decimal) (*domain.CouponCheck, error) {
	code = domain.NormalizeCouponCode(code)
	result := &domain.CouponCheck{Code: code, Discount: decimal.Zero}

	if code == "" {
		result.Reason = domain.CouponNotFound
		result.Message = domain.CouponNotFound.Message()
		return result, nil
	}

	coupon, rejection, err := s.check(ctx, code, userID, orderAmount)
	if err != nil {
		return nil, err
	}
	if rejection != "" {
		result.Reason = rejection
		result.Message = rejection.Message()
		if coupon != nil {
			result.Type = coupon.Type
		}
		return result, nil
	}

	result.Valid = true
	result.Type = coupon.Type
	result.Discount = coupon.Discount(orderAmount)
	result.FreeShipping = coupon.Type == domain.CouponTypeFreeShipping
	result.Message = "Купон применён"
	return result, nil
}

// check находит купон и возвращает первую причину отказа в порядке: срок и
// активность, общий лимит, лимит пользователя, минимальная сумма.
func (s *couponService) check(ctx context.Context, code, userID string, orderAmount decimal.Decimal) (*domain.Coupon, domain.CouponRejection, error) {
	coupon, err := s.coupons.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.CouponNotFound, nil
		}
		return nil, "", fmt.Errorf("ошибка поиска купона: %w", err)
	}

	now := s.now()
	if r := coupon.CheckValidity(now); r != "" {
		return coupon, r, nil
	}

	usages, err := s.coupons.CountUserUsages(ctx, coupon.Code, userID)
	if err != nil {
		return nil, "", fmt.Errorf("ошибка подсчёта использований купона: %w", err)
	}

	return coupon, coupon.CheckUsable(now, usages, orderAmount), nil
}

func (s *couponService) Create(ctx context.Context, c *domain.Coupon) error {
	c.Code = domain.NormalizeCouponCode(c.Code)
	if err := c.Validate(); err != nil {
		return err
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.UsedCount = 0

	if err := s.coupons.Create(ctx, c); err != nil {
		return err
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("coupon_code", c.Code).
		Str("type", string(c.Type)).
		Msg("Купон создан")
	return nil
}

func (s *couponService) List(ctx context.Context, page, pageSize int) ([]*domain.Coupon, int64, error) {
	offset, limit := normalizePage(page, pageSize)
	return s.coupons.List(ctx, offset, limit)
}

func (s *couponService) Deactivate(ctx context.Context, code string) error {
	code = domain.NormalizeCouponCode(code)
	if err := s.coupons.Deactivate(ctx, code); err != nil {
		return err
	}

	log := logger.FromContext(ctx)
	log.Info().Str("coupon_code", code).Msg("Купон отключён")
	return nil
}
