package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"example.com/shop-backend/services/shop/internal/domain"
	"example.com/shop-backend/services/shop/internal/repository"
)

// AssembledOrder — проверенные позиции заказа и их сумма.
type AssembledOrder struct {
	Items    []domain.OrderItem
	Subtotal decimal.Decimal
	Source   string
}

// OrderAssembler превращает корзину или список из запроса в позиции заказа.
// Только читает каталог, ничего не списывает.
type OrderAssembler struct {
	products repository.ProductRepository
}

// NewOrderAssembler создаёт OrderAssembler.
func NewOrderAssembler(products repository.ProductRepository) *OrderAssembler {
	return &OrderAssembler{products: products}
}

type sourceLine struct {
	productID     string
	quantity      int
	snapshot      bool
	price         decimal.Decimal
	discountPrice *decimal.Decimal
}

// Assemble проверяет каждую позицию одним и тем же способом для обоих
// источников. Позиции корзины сохраняют цены снимка, позиции запроса берут
// текущие цены каталога.
func (a *OrderAssembler) Assemble(ctx context.Context, src domain.OrderSource) (*AssembledOrder, error) {
	lines, err := linesOf(src)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, domain.ErrEmptyOrder
	}

	result := &AssembledOrder{
		Items:    make([]domain.OrderItem, 0, len(lines)),
		Subtotal: decimal.Zero,
		Source:   src.Kind(),
	}

	for _, line := range lines {
		product, err := a.products.FindActive(ctx, line.productID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, &domain.ProductUnavailableError{ProductID: line.productID}
			}
			return nil, fmt.Errorf("ошибка получения товара %s: %w", line.productID, err)
		}

		quantity := max(line.quantity, 1)
		if !product.HasInventory(quantity) {
			return nil, &domain.InsufficientInventoryError{
				ProductID: product.ID,
				Name:      product.Name,
				Requested: quantity,
				Available: product.Inventory,
			}
		}

		price, discountPrice := product.Price, product.DiscountPrice
		if line.snapshot {
			price, discountPrice = line.price, line.discountPrice
		}

		item := domain.OrderItem{
			ProductID:     product.ID,
			Name:          product.Name,
			SKU:           product.SKU,
			Quantity:      quantity,
			Price:         price,
			DiscountPrice: discountPrice,
			TotalPrice:    domain.LineTotal(price, discountPrice, quantity),
		}
		result.Items = append(result.Items, item)
		result.Subtotal = result.Subtotal.Add(item.TotalPrice)
	}

	result.Subtotal = domain.RoundMoney(result.Subtotal)
	return result, nil
}

func linesOf(src domain.OrderSource) ([]sourceLine, error) {
	switch s := src.(type) {
	case domain.FromCart:
		if s.Cart.IsEmpty() {
			return nil, domain.ErrEmptyOrder
		}
		lines := make([]sourceLine, len(s.Cart.Items))
		for i, item := range s.Cart.Items {
			lines[i] = sourceLine{
				productID:     item.ProductID,
				quantity:      item.Quantity,
				snapshot:      true,
				price:         item.Price,
				discountPrice: item.DiscountPrice,
			}
		}
		return lines, nil
	case domain.FromExplicitItems:
		lines := make([]sourceLine, len(s.Items))
		for i, item := range s.Items {
			lines[i] = sourceLine{productID: item.ProductID, quantity: item.Quantity}
		}
		return lines, nil
	case nil:
		return nil, domain.ErrEmptyOrder
	}
	return nil, fmt.Errorf("неизвестный источник заказа %T", src)
}
