package service

import (
	"context"
	"errors"

	"example.com/shop-backend/pkg/logger"
	"example.com/shop-backend/services/shop/internal/domain"
	"example.com/shop-backend/services/shop/internal/repository"
)

// CartService — корзина пользователя.
type CartService interface {
	Get(ctx context.Context, userID string) (*domain.Cart, error)
	// AddItem добавляет товар; если он уже в корзине, количество суммируется.
	AddItem(ctx context.Context, userID, productID string, quantity int) (*domain.Cart, error)
	UpdateItem(ctx context.Context, userID, productID string, quantity int) (*domain.Cart, error)
	RemoveItem(ctx context.Context, userID, productID string) (*domain.Cart, error)
	Clear(ctx context.Context, userID string) error
}

type cartService struct {
	carts    repository.CartRepository
	products repository.ProductRepository
}

// NewCartService создаёт сервис корзины.
func NewCartService(carts repository.CartRepository, products repository.ProductRepository) CartService {
	return &cartService{carts: carts, products: products}
}

func (s *cartService) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	return s.carts.FindByUser(ctx, userID)
}

func (s *cartService) AddItem(ctx context.Context, userID, productID string, quantity int) (*domain.Cart, error) {
	if quantity < 1 {
		return nil, domain.ErrInvalidQuantity
	}

	cart, err := s.carts.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	total := quantity
	for _, item := range cart.Items {
		if item.ProductID == productID {
			total += item.Quantity
			break
		}
	}

	product, err := s.availableProduct(ctx, productID, total)
	if err != nil {
		return nil, err
	}

	// цены фиксируются на момент добавления
	item := domain.CartItem{
		ProductID:     product.ID,
		Quantity:      total,
		Price:         product.Price,
		DiscountPrice: product.DiscountPrice,
	}
	if err := s.carts.UpsertItem(ctx, userID, item); err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx)
	log.Debug().
		Str("user_id", userID).
		Str("product_id", productID).
		Int("quantity", total).
		Msg("Товар добавлен в корзину")

	return s.carts.FindByUser(ctx, userID)
}

func (s *cartService) UpdateItem(ctx context.Context, userID, productID string, quantity int) (*domain.Cart, error) {
	if quantity < 1 {
		return nil, domain.ErrInvalidQuantity
	}
	if _, err := s.availableProduct(ctx, productID, quantity); err != nil {
		return nil, err
	}
	if err := s.carts.UpdateQuantity(ctx, userID, productID, quantity); err != nil {
		return nil, err
	}
	return s.carts.FindByUser(ctx, userID)
}

func (s *cartService) RemoveItem(ctx context.Context, userID, productID string) (*domain.Cart, error) {
	if err := s.carts.RemoveItem(ctx, userID, productID); err != nil {
		return nil, err
	}
	return s.carts.FindByUser(ctx, userID)
}

func (s *cartService) Clear(ctx context.Context, userID string) error {
	return s.carts.Clear(ctx, userID)
}

func (s *cartService) availableProduct(ctx context.Context, productID string, quantity int) (*domain.Product, error) {
	product, err := s.products.FindActive(ctx, productID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, &domain.ProductUnavailableError{ProductID: productID}
		}
		return nil, err
	}
	if !product.HasInventory(quantity) {
		return nil, &domain.InsufficientInventoryError{
			ProductID: product.ID,
			Name:      product.Name,
			Requested: quantity,
			Available: product.Inventory,
		}
	}
	return product, nil
}
