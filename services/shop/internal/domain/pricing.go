package domain

import "github.com/shopspring/decimal"

// PricingPolicy — правила доставки и налога.
type PricingPolicy struct {
	FreeShippingThreshold decimal.Decimal
	ShippingCharge        decimal.Decimal
	TaxRate               decimal.Decimal
	// FreeShippingCouponWaivesShipping включает отмену платы за доставку купоном
	// free_shipping. По умолчанию выключено: купон такого типа доставку не снимает.
	FreeShippingCouponWaivesShipping bool
}

// DefaultPricingPolicy: бесплатная доставка от 500, иначе 50, налог 5%.
func DefaultPricingPolicy() PricingPolicy {
	return PricingPolicy{
		FreeShippingThreshold: decimal.NewFromInt(500),
		ShippingCharge:        decimal.NewFromInt(50),
		TaxRate:               decimal.RequireFromString("0.05"),
	}
}

// Pricing — итоговые суммы заказа.
type Pricing struct {
	Subtotal        decimal.Decimal
	Discount        decimal.Decimal
	ShippingCharges decimal.Decimal
	TaxAmount       decimal.Decimal
	TotalAmount     decimal.Decimal
	// FreeShippingIgnored — купон free_shipping был применён, но политика
	// доставку не снимает.
	FreeShippingIgnored bool
}

// Price считает доставку, налог и итог. Налог берётся с суммы после скидки
// до доставки и не бывает отрицательным.
func (p PricingPolicy) Price(subtotal, discount decimal.Decimal, freeShipping bool) Pricing {
	subtotal = RoundMoney(subtotal)
	discount = RoundMoney(maxDecimal(discount, decimal.Zero))

	shipping := p.ShippingCharge
	if subtotal.GreaterThanOrEqual(p.FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	ignored := false
	if freeShipping && shipping.IsPositive() {
		if p.FreeShippingCouponWaivesShipping {
			shipping = decimal.Zero
		} else {
			ignored = true
		}
	}

	taxable := maxDecimal(subtotal.Sub(discount), decimal.Zero)
	tax := RoundMoney(taxable.Mul(p.TaxRate))

	return Pricing{
		Subtotal:            subtotal,
		Discount:            discount,
		ShippingCharges:     RoundMoney(shipping),
		TaxAmount:           tax,
		TotalAmount:         RoundMoney(subtotal.Sub(discount).Add(shipping).Add(tax)),
		FreeShippingIgnored: ignored,
	}
}
