package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"example.com/shop-backend/pkg/logger"
	"example.com/shop-backend/services/shop/internal/domain"
	"example.com/shop-backend/services/shop/internal/repository"
)

// CatalogService — просмотр каталога и администрирование товаров.
type CatalogService interface {
	// List возвращает страницу активных товаров.
	List(ctx context.Context, filter domain.ProductFilter, page, pageSize int) ([]*domain.Product, int64, error)
	// Get возвращает активный товар. Снятый с продажи товар не виден покупателю.
	Get(ctx context.Context, id string) (*domain.Product, error)
	Create(ctx context.Context, p *domain.Product) error
	Update(ctx context.Context, p *domain.Product) error
}

type catalogService struct {
	products repository.ProductRepository
}

// NewCatalogService создаёт сервис каталога.
func NewCatalogService(products repository.ProductRepository) CatalogService {
	return &catalogService{products: products}
}

func (s *catalogService) List(ctx context.Context, filter domain.ProductFilter, page, pageSize int) ([]*domain.Product, int64, error) {
	filter.Offset, filter.Limit = normalizePage(page, pageSize)
	filter.OnlyActive = true
	filter.Search = strings.TrimSpace(filter.Search)
	return s.products.List(ctx, filter)
}

func (s *catalogService) Get(ctx context.Context, id string) (*domain.Product, error) {
	return s.products.FindActive(ctx, id)
}

func (s *catalogService) Create(ctx context.Context, p *domain.Product) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	if err := s.products.Create(ctx, p); err != nil {
		return err
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("product_id", p.ID).
		Str("sku", p.SKU).
		Msg("Товар создан")
	return nil
}

func (s *catalogService) Update(ctx context.Context, p *domain.Product) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return s.products.Update(ctx, p)
}
