package domain

import "github.com/shopspring/decimal"

// RoundMoney округляет сумму до копеек (2 знака, half away from zero).
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// EffectivePrice — цена со скидкой, если она задана и ниже обычной.
func EffectivePrice(price decimal.Decimal, discountPrice *decimal.Decimal) decimal.Decimal {
	if discountPrice != nil && discountPrice.IsPositive() && discountPrice.LessThan(price) {
		return *discountPrice
	}
	return price
}

// LineTotal — стоимость позиции: эффективная цена, умноженная на количество.
func LineTotal(price decimal.Decimal, discountPrice *decimal.Decimal, quantity int) decimal.Decimal {
	return RoundMoney(EffectivePrice(price, discountPrice).Mul(decimal.NewFromInt(int64(quantity))))
}

func maxDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}
