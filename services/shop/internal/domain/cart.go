package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart — корзина пользователя. У пользователя не больше одной корзины,
// порядок позиций совпадает с порядком добавления.
type Cart struct {
	UserID    string
	Items     []CartItem
	UpdatedAt time.Time
}

// CartItem хранит цены на момент добавления в корзину.
type CartItem struct {
	ProductID     string
	Quantity      int
	Price         decimal.Decimal
	DiscountPrice *decimal.Decimal
}

// IsEmpty сообщает, что в корзине нет позиций.
func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}

// Total — сумма корзины по ценам из снимка.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	if c == nil {
		return total
	}
	for _, item := range c.Items {
		total = total.Add(LineTotal(item.Price, item.DiscountPrice, item.Quantity))
	}
	return total
}
