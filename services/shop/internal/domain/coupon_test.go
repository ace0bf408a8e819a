package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

var couponNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func ptrDec(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func ptrInt(n int) *int {
	return &n
}

func newCoupon(typ CouponType, value string) *Coupon {
	return &Coupon{
		Code:           "SAVE",
		Type:           typ,
		Value:          dec(value),
		UserUsageLimit: 1,
		ValidFrom:      couponNow.Add(-24 * time.Hour),
		ValidUntil:     couponNow.Add(24 * time.Hour),
		IsActive:       true,
	}
}

func TestCoupon_Discount(t *testing.T) {
	tests := []struct {
		name   string
		coupon *Coupon
		amount string
		want   string
	}{
		{
			name: "процент с ограничением",
			coupon: func() *Coupon {
				c := newCoupon(CouponTypePercentage, "10")
				c.MaximumDiscountAmount = ptrDec("80")
				return c
			}(),
			amount: "1000",
			want:   "80.00",
		},
		{name: "процент без ограничения", coupon: newCoupon(CouponTypePercentage, "10"), amount: "1000", want: "100.00"},
		{name: "процент с округлением", coupon: newCoupon(CouponTypePercentage, "15"), amount: "33.33", want: "5.00"},
		{name: "фиксированная скидка", coupon: newCoupon(CouponTypeFixed, "200"), amount: "1000", want: "200.00"},
		{name: "фиксированная больше суммы", coupon: newCoupon(CouponTypeFixed, "200"), amount: "150", want: "150.00"},
		{name: "бесплатная доставка", coupon: newCoupon(CouponTypeFreeShipping, "0"), amount: "1000", want: "0.00"},
		{name: "нулевая сумма", coupon: newCoupon(CouponTypeFixed, "50"), amount: "0", want: "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.coupon.Discount(dec(tt.amount))

			assertMoney(t, tt.want, got)
			assert.True(t, got.LessThanOrEqual(dec(tt.amount)))
			assert.False(t, got.IsNegative())
			if tt.coupon.MaximumDiscountAmount != nil {
				assert.True(t, got.LessThanOrEqual(*tt.coupon.MaximumDiscountAmount))
			}
		})
	}
}

func TestCoupon_CheckValidity(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Coupon)
		want   CouponRejection
	}{
		{name: "действует", modify: func(*Coupon) {}, want: ""},
		{name: "отключён", modify: func(c *Coupon) { c.IsActive = false }, want: CouponInactive},
		{name: "ещё не начался", modify: func(c *Coupon) { c.ValidFrom = couponNow.Add(time.Hour) }, want: CouponNotYetValid},
		{name: "истёк", modify: func(c *Coupon) { c.ValidUntil = couponNow.Add(-time.Second) }, want: CouponExpired},
		{name: "граница начала", modify: func(c *Coupon) { c.ValidFrom = couponNow }, want: ""},
		{name: "граница окончания", modify: func(c *Coupon) { c.ValidUntil = couponNow }, want: ""},
		{
			name:   "лимит исчерпан",
			modify: func(c *Coupon) { c.UsageLimit = ptrInt(5); c.UsedCount = 5 },
			want:   CouponUsageLimitReached,
		},
		{
			name:   "лимит не исчерпан",
			modify: func(c *Coupon) { c.UsageLimit = ptrInt(5); c.UsedCount = 4 },
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCoupon(CouponTypeFixed, "10")
			tt.modify(c)

			assert.Equal(t, tt.want, c.CheckValidity(couponNow))
			assert.Equal(t, tt.want == "", c.IsValid(couponNow))
		})
	}
}

func TestCoupon_CheckUsable(t *testing.T) {
	c := newCoupon(CouponTypeFixed, "10")
	c.UserUsageLimit = 2
	c.MinimumOrderAmount = dec("100")

	assert.Equal(t, CouponRejection(""), c.CheckUsable(couponNow, 1, dec("100")))
	assert.True(t, c.IsUsableBy(couponNow, 1))

	assert.Equal(t, CouponAlreadyUsed, c.CheckUsable(couponNow, 2, dec("100")))
	assert.False(t, c.IsUsableBy(couponNow, 2))

	assert.Equal(t, CouponBelowMinimum, c.CheckUsable(couponNow, 0, dec("99.99")))

	// общий лимит отклоняет даже тех, кто купон ещё не использовал
	c.UsageLimit = ptrInt(3)
	c.UsedCount = 3
	assert.Equal(t, CouponUsageLimitReached, c.CheckUsable(couponNow, 0, dec("500")))
	assert.False(t, c.IsUsableBy(couponNow, 0))
}

func TestCoupon_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(c *Coupon)
		wantErr bool
	}{
		{name: "корректный", modify: func(*Coupon) {}},
		{name: "пустой код", modify: func(c *Coupon) { c.Code = "" }, wantErr: true},
		{name: "неизвестный тип", modify: func(c *Coupon) { c.Type = "bogo" }, wantErr: true},
		{name: "нулевое значение", modify: func(c *Coupon) { c.Value = decimal.Zero }, wantErr: true},
		{name: "процент больше 100", modify: func(c *Coupon) { c.Value = dec("101") }, wantErr: true},
		{name: "отрицательный минимум", modify: func(c *Coupon) { c.MinimumOrderAmount = dec("-1") }, wantErr: true},
		{name: "нулевой общий лимит", modify: func(c *Coupon) { c.UsageLimit = ptrInt(0) }, wantErr: true},
		{name: "нулевой лимит пользователя", modify: func(c *Coupon) { c.UserUsageLimit = 0 }, wantErr: true},
		{name: "перепутаны даты", modify: func(c *Coupon) { c.ValidUntil = c.ValidFrom.Add(-time.Hour) }, wantErr: true},
		{
			name:    "ограничение у фиксированного",
			modify:  func(c *Coupon) { c.Type = CouponTypeFixed; c.MaximumDiscountAmount = ptrDec("10") },
			wantErr: true,
		},
		{name: "бесплатная доставка без значения", modify: func(c *Coupon) { c.Type = CouponTypeFreeShipping; c.Value = decimal.Zero }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCoupon(CouponTypePercentage, "10")
			tt.modify(c)

			err := c.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidCouponDefinition)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNormalizeCouponCode(t *testing.T) {
	assert.Equal(t, "SAVE10", NormalizeCouponCode("  save10 "))
	assert.Equal(t, "SAVE10", NormalizeCouponCode("ＳＡＶＥ１０"))
	assert.Equal(t, "", NormalizeCouponCode("   "))
}

func TestCouponRejection_Message(t *testing.T) {
	reasons := []CouponRejection{
		CouponNotFound, CouponInactive, CouponNotYetValid, CouponExpired,
		CouponUsageLimitReached, CouponAlreadyUsed, CouponBelowMinimum,
	}

	seen := map[string]bool{}
	for _, r := range reasons {
		msg := r.Message()
		assert.NotEmpty(t, msg)
		assert.False(t, seen[msg], "сообщение повторяется: %s", msg)
		seen[msg] = true
	}
}
