package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// CouponType — способ расчёта скидки.
type CouponType string

const (
	CouponTypePercentage   CouponType = "percentage"
	CouponTypeFixed        CouponType = "fixed"
	CouponTypeFreeShipping CouponType = "free_shipping"
)

// Valid сообщает, известен ли тип купона.
func (t CouponType) Valid() bool {
	switch t {
	case CouponTypePercentage, CouponTypeFixed, CouponTypeFreeShipping:
		return true
	}
	return false
}

// CouponRejection — причина, по которой купон нельзя применить.
type CouponRejection string

const (
	CouponNotFound          CouponRejection = "not_found"
	CouponInactive          CouponRejection = "inactive"
	CouponNotYetValid       CouponRejection = "not_yet_valid"
	CouponExpired           CouponRejection = "expired"
	CouponUsageLimitReached CouponRejection = "usage_limit_reached"
	CouponAlreadyUsed       CouponRejection = "already_used"
	CouponBelowMinimum      CouponRejection = "below_minimum"
)

var couponRejectionMessages = map[CouponRejection]string{
	CouponNotFound:          "Купон не найден",
	CouponInactive:          "Купон отключён",
	CouponNotYetValid:       "Купон ещё не действует",
	CouponExpired:           "Срок действия купона истёк",
	CouponUsageLimitReached: "Лимит использований купона исчерпан",
	CouponAlreadyUsed:       "Вы уже использовали этот купон",
	CouponBelowMinimum:      "Сумма заказа меньше минимальной для купона",
}

// Message возвращает текст причины для пользователя.
func (r CouponRejection) Message() string {
	if msg, ok := couponRejectionMessages[r]; ok {
		return msg
	}
	return "Купон недействителен"
}

// NormalizeCouponCode приводит код к каноничному виду: NFKC, без пробелов по
// краям, в верхнем регистре. Коды сравниваются только в этом виде.
func NormalizeCouponCode(code string) string {
	// Caser хранит состояние, поэтому создаётся на каждый вызов.
	return cases.Upper(language.Und).String(strings.TrimSpace(norm.NFKC.String(code)))
}

// Coupon — промокод.
type Coupon struct {
	ID                    string
	Code                  string
	Description           string
	Type                  CouponType
	Value                 decimal.Decimal
	MinimumOrderAmount    decimal.Decimal
	MaximumDiscountAmount *decimal.Decimal // только для percentage
	UsageLimit            *int             // nil — без общего лимита
	UsedCount             int
	UserUsageLimit        int
	ValidFrom             time.Time
	ValidUntil            time.Time
	IsActive              bool
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// CouponUsage — факт использования купона пользователем в заказе.
type CouponUsage struct {
	CouponID string
	UserID   string
	OrderID  string
	UsedAt   time.Time
}

// CheckValidity возвращает причину отказа или пустую строку, если купон
// действует в момент now независимо от пользователя.
func (c *Coupon) CheckValidity(now time.Time) CouponRejection {
	switch {
	case !c.IsActive:
		return CouponInactive
	case now.Before(c.ValidFrom):
		return CouponNotYetValid
	case now.After(c.ValidUntil):
		return CouponExpired
	case c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit:
		return CouponUsageLimitReached
	}
	return ""
}

// IsValid — купон активен, в сроке и общий лимит не исчерпан.
func (c *Coupon) IsValid(now time.Time) bool {
	return c.CheckValidity(now) == ""
}

// CheckUsable дополняет CheckValidity пользовательским лимитом и минимальной
// суммой заказа.
func (c *Coupon) CheckUsable(now time.Time, userUsages int, orderAmount decimal.Decimal) CouponRejection {
	if r := c.CheckValidity(now); r != "" {
		return r
	}
	if userUsages >= c.UserUsageLimit {
		return CouponAlreadyUsed
	}
	if orderAmount.LessThan(c.MinimumOrderAmount) {
		return CouponBelowMinimum
	}
	return ""
}

// IsUsableBy — купон действует и пользователь не исчерпал свой лимит.
func (c *Coupon) IsUsableBy(now time.Time, userUsages int) bool {
	return c.IsValid(now) && userUsages < c.UserUsageLimit
}

// Discount считает денежную скидку для суммы заказа. Результат округлён до
// копеек, не отрицателен и не превышает orderAmount. free_shipping даёт 0:
// бесплатная доставка решается в PricingPolicy.
func (c *Coupon) Discount(orderAmount decimal.Decimal) decimal.Decimal {
	if !orderAmount.IsPositive() {
		return decimal.Zero
	}

	var discount decimal.Decimal
	switch c.Type {
	case CouponTypePercentage:
		discount = orderAmount.Mul(c.Value).Div(decimal.NewFromInt(100))
		if c.MaximumDiscountAmount != nil && discount.GreaterThan(*c.MaximumDiscountAmount) {
			discount = *c.MaximumDiscountAmount
		}
	case CouponTypeFixed:
		discount = c.Value
	default:
		return decimal.Zero
	}

	if discount.GreaterThan(orderAmount) {
		discount = orderAmount
	}
	return RoundMoney(maxDecimal(discount, decimal.Zero))
}

// Validate проверяет описание купона при создании администратором.
func (c *Coupon) Validate() error {
	switch {
	case c.Code == "":
		return fmt.Errorf("%w: пустой код", ErrInvalidCouponDefinition)
	case !c.Type.Valid():
		return fmt.Errorf("%w: неизвестный тип %q", ErrInvalidCouponDefinition, c.Type)
	case c.Type != CouponTypeFreeShipping && !c.Value.IsPositive():
		return fmt.Errorf("%w: значение должно быть больше нуля", ErrInvalidCouponDefinition)
	case c.Type == CouponTypePercentage && c.Value.GreaterThan(decimal.NewFromInt(100)):
		return fmt.Errorf("%w: процент больше 100", ErrInvalidCouponDefinition)
	case c.MaximumDiscountAmount != nil && c.Type != CouponTypePercentage:
		return fmt.Errorf("%w: максимальная скидка задаётся только для процентных купонов", ErrInvalidCouponDefinition)
	case c.MaximumDiscountAmount != nil && !c.MaximumDiscountAmount.IsPositive():
		return fmt.Errorf("%w: максимальная скидка должна быть больше нуля", ErrInvalidCouponDefinition)
	case c.MinimumOrderAmount.IsNegative():
		return fmt.Errorf("%w: отрицательная минимальная сумма", ErrInvalidCouponDefinition)
	case c.UsageLimit != nil && *c.UsageLimit <= 0:
		return fmt.Errorf("%w: общий лимит должен быть больше нуля", ErrInvalidCouponDefinition)
	case c.UserUsageLimit <= 0:
		return fmt.Errorf("%w: лимит на пользователя должен быть больше нуля", ErrInvalidCouponDefinition)
	case !c.ValidUntil.After(c.ValidFrom):
		return fmt.Errorf("%w: срок окончания раньше начала", ErrInvalidCouponDefinition)
	}
	return nil
}

// CouponEvaluation — результат применения купона к заказу.
type CouponEvaluation struct {
	Coupon       *Coupon
	Discount     decimal.Decimal
	FreeShipping bool
}

// Applied сообщает, что купон был указан и принят.
func (e CouponEvaluation) Applied() bool {
	return e.Coupon != nil
}

// Code возвращает код купона или пустую строку.
func (e CouponEvaluation) Code() string {
	if e.Coupon == nil {
		return ""
	}
	return e.Coupon.Code
}

// CouponCheck — ответ проверки купона до оформления заказа.
type CouponCheck struct {
	Code         string
	Valid        bool
	Reason       CouponRejection
	Message      string
	Type         CouponType
	Discount     decimal.Decimal
	FreeShipping bool
}
