package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"example.com/shop-backend/pkg/txscope"
	"example.com/shop-backend/services/shop/internal/domain"
)

// ProductRepository — каталог товаров и атомарные счётчики склада.
type ProductRepository interface {
	// FindActive возвращает активный товар или ErrProductNotFound.
	FindActive(ctx context.Context, id string) (*domain.Product, error)
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, int64, error)
	Create(ctx context.Context, p *domain.Product) error
	Update(ctx context.Context, p *domain.Product) error

	// DecrementInventory списывает quantity единиц, только если их хватает.
	// Иначе возвращает InsufficientInventoryError с текущим остатком.
	DecrementInventory(ctx context.Context, id string, quantity int) error

	// RestoreInventory возвращает товар на склад. false — товара уже нет в БД.
	RestoreInventory(ctx context.Context, id string, quantity int) (bool, error)

	// RefreshRating пересчитывает среднюю оценку и число отзывов.
	RefreshRating(ctx context.Context, id string) error
}

// ProductModel — GORM модель таблицы products.
type ProductModel struct {
	ID            string           `gorm:"column:id;type:varchar(36);primaryKey"`
	Name          string           `gorm:"column:name;type:varchar(255);not null"`
	SKU           string           `gorm:"column:sku;type:varchar(64);not null;uniqueIndex:idx_products_sku"`
	Description   string           `gorm:"column:description;type:text"`
	Category      string           `gorm:"column:category;type:varchar(64);index"`
	Price         decimal.Decimal  `gorm:"column:price;type:decimal(12,2);not null"`
	DiscountPrice *decimal.Decimal `gorm:"column:discount_price;type:decimal(12,2)"`
	Inventory     int              `gorm:"column:inventory;not null;default:0"`
	TotalSales    int              `gorm:"column:total_sales;not null;default:0"`
	IsActive      bool             `gorm:"column:is_active;not null;default:true;index"`
	AverageRating decimal.Decimal  `gorm:"column:average_rating;type:decimal(3,2);not null;default:0"`
	ReviewCount   int              `gorm:"column:review_count;not null;default:0"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName возвращает имя таблицы в БД.
func (ProductModel) TableName() string {
	return "products"
}

func (m *ProductModel) toDomain() *domain.Product {
	return &domain.Product{
		ID:            m.ID,
		Name:          m.Name,
		SKU:           m.SKU,
		Description:   m.Description,
		Category:      m.Category,
		Price:         m.Price,
		DiscountPrice: m.DiscountPrice,
		Inventory:     m.Inventory,
		TotalSales:    m.TotalSales,
		IsActive:      m.IsActive,
		AverageRating: m.AverageRating,
		ReviewCount:   m.ReviewCount,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func productModelFromDomain(p *domain.Product) *ProductModel {
	return &ProductModel{
		ID:            p.ID,
		Name:          p.Name,
		SKU:           p.SKU,
		Description:   p.Description,
		Category:      p.Category,
		Price:         p.Price,
		DiscountPrice: p.DiscountPrice,
		Inventory:     p.Inventory,
		TotalSales:    p.TotalSales,
		IsActive:      p.IsActive,
		AverageRating: p.AverageRating,
		ReviewCount:   p.ReviewCount,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

type productRepository struct {
	db *gorm.DB
}

// NewProductRepository создаёт репозиторий товаров.
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) FindActive(ctx context.Context, id string) (*domain.Product, error) {
	var model ProductModel
	err := txscope.DB(ctx, r.db).
		Where("id = ? AND is_active = ?", id, true).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка поиска товара %s: %w", id, err)
	}
	return model.toDomain(), nil
}

func (r *productRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	var model ProductModel
	err := txscope.DB(ctx, r.db).Where("id = ?", id).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка получения товара %s: %w", id, err)
	}
	return model.toDomain(), nil
}

func (r *productRepository) List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, int64, error) {
	offset, limit := normalizePage(filter.Offset, filter.Limit)

	query := txscope.DB(ctx, r.db).Model(&ProductModel{})
	if filter.OnlyActive {
		query = query.Where("is_active = ?", true)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + s + "%"
		query = query.Where("(name LIKE ? OR sku LIKE ?)", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчёта товаров: %w", err)
	}

	var models []ProductModel
	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("ошибка получения списка товаров: %w", err)
	}

	products := make([]*domain.Product, len(models))
	for i := range models {
		products[i] = models[i].toDomain()
	}
	return products, total, nil
}

func (r *productRepository) Create(ctx context.Context, p *domain.Product) error {
	model := productModelFromDomain(p)
	if err := txscope.DB(ctx, r.db).Create(model).Error; err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("%w: артикул %s уже существует", domain.ErrInvalidProduct, p.SKU)
		}
		return fmt.Errorf("ошибка создания товара: %w", err)
	}
	p.CreatedAt = model.CreatedAt
	p.UpdatedAt = model.UpdatedAt
	return nil
}

// Update меняет карточку товара. Остаток перезаписывается значением
// администратора, счётчики продаж и рейтинга не трогаются.
func (r *productRepository) Update(ctx context.Context, p *domain.Product) error {
	result := txscope.DB(ctx, r.db).
		Model(&ProductModel{}).
		Where("id = ?", p.ID).
		Updates(map[string]any{
			"name":           p.Name,
			"sku":            p.SKU,
			"description":    p.Description,
			"category":       p.Category,
			"price":          p.Price,
			"discount_price": p.DiscountPrice,
			"inventory":      p.Inventory,
			"is_active":      p.IsActive,
			"updated_at":     time.Now().UTC(),
		})
	if result.Error != nil {
		if isDuplicateKeyError(result.Error) {
			return fmt.Errorf("%w: артикул %s уже существует", domain.ErrInvalidProduct, p.SKU)
		}
		return fmt.Errorf("ошибка обновления товара %s: %w", p.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (r *productRepository) DecrementInventory(ctx context.Context, id string, quantity int) error {
	db := txscope.DB(ctx, r.db)

	result := db.Model(&ProductModel{}).
		Where("id = ? AND is_active = ? AND inventory >= ?", id, true, quantity).
		Updates(map[string]any{
			"inventory":   gorm.Expr("inventory - ?", quantity),
			"total_sales": gorm.Expr("total_sales + ?", quantity),
		})
	if result.Error != nil {
		return fmt.Errorf("ошибка списания товара %s: %w", id, result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	// Условие не выполнилось: выясняем причину для ответа клиенту.
	var current ProductModel
	err := db.Select("id", "name", "inventory", "is_active").Where("id = ?", id).First(&current).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &domain.ProductUnavailableError{ProductID: id}
	}
	if err != nil {
		return fmt.Errorf("ошибка чтения остатка товара %s: %w", id, err)
	}
	if !current.IsActive {
		return &domain.ProductUnavailableError{ProductID: id}
	}
	return &domain.InsufficientInventoryError{
		ProductID: id,
		Name:      current.Name,
		Requested: quantity,
		Available: current.Inventory,
	}
}

func (r *productRepository) RestoreInventory(ctx context.Context, id string, quantity int) (bool, error) {
	result := txscope.DB(ctx, r.db).
		Model(&ProductModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"inventory":   gorm.Expr("inventory + ?", quantity),
			"total_sales": gorm.Expr("GREATEST(total_sales - ?, 0)", quantity),
		})
	if result.Error != nil {
		return false, fmt.Errorf("ошибка возврата товара %s на склад: %w", id, result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *productRepository) RefreshRating(ctx context.Context, id string) error {
	err := txscope.DB(ctx, r.db).Exec(
		"UPDATE products SET "+
			"average_rating = (SELECT COALESCE(ROUND(AVG(rating), 2), 0) FROM reviews WHERE product_id = ?), "+
			"review_count = (SELECT COUNT(*) FROM reviews WHERE product_id = ?) "+
			"WHERE id = ?",
		id, id, id,
	).Error
	if err != nil {
		return fmt.Errorf("ошибка пересчёта рейтинга товара %s: %w", id, err)
	}
	return nil
}
