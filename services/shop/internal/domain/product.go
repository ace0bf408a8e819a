package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Product — товар каталога. Ядро заказа меняет только Inventory и TotalSales.
type Product struct {
	ID            string
	Name          string
	SKU           string
	Description   string
	Category      string
	Price         decimal.Decimal
	DiscountPrice *decimal.Decimal
	Inventory     int
	TotalSales    int
	IsActive      bool
	AverageRating decimal.Decimal
	ReviewCount   int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// EffectivePrice возвращает цену, по которой товар продаётся сейчас.
func (p *Product) EffectivePrice() decimal.Decimal {
	return EffectivePrice(p.Price, p.DiscountPrice)
}

// HasInventory сообщает, хватает ли остатка на quantity единиц.
func (p *Product) HasInventory(quantity int) bool {
	return p.Inventory >= quantity
}

// Validate проверяет поля товара перед сохранением.
func (p *Product) Validate() error {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return fmt.Errorf("%w: пустое название", ErrInvalidProduct)
	case strings.TrimSpace(p.SKU) == "":
		return fmt.Errorf("%w: пустой артикул", ErrInvalidProduct)
	case !p.Price.IsPositive():
		return fmt.Errorf("%w: цена должна быть больше нуля", ErrInvalidProduct)
	case p.DiscountPrice != nil && (p.DiscountPrice.IsNegative() || !p.DiscountPrice.LessThan(p.Price)):
		return fmt.Errorf("%w: цена со скидкой должна быть меньше обычной", ErrInvalidProduct)
	case p.Inventory < 0:
		return fmt.Errorf("%w: отрицательный остаток", ErrInvalidProduct)
	}
	return nil
}

// ProductFilter — параметры выборки каталога.
type ProductFilter struct {
	Category   string
	Search     string
	OnlyActive bool
	Offset     int
	Limit      int
}
