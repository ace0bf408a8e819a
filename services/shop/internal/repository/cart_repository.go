package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"example.com/shop-backend/pkg/txscope"
	"example.com/shop-backend/services/shop/internal/domain"
)

// CartRepository — корзины пользователей. Корзина существует неявно: это
// набор строк cart_items пользователя.
type CartRepository interface {
	// FindByUser возвращает корзину; у пользователя без корзины она пустая.
	FindByUser(ctx context.Context, userID string) (*domain.Cart, error)
	// UpsertItem добавляет товар или заменяет количество и цены существующей позиции.
	UpsertItem(ctx context.Context, userID string, item domain.CartItem) error
	UpdateQuantity(ctx context.Context, userID, productID string, quantity int) error
	RemoveItem(ctx context.Context, userID, productID string) error
	Clear(ctx context.Context, userID string) error
}

// CartItemModel — GORM модель таблицы cart_items.
type CartItemModel struct {
	ID            uint64           `gorm:"column:id;primaryKey;autoIncrement"`
	UserID        string           `gorm:"column:user_id;type:varchar(36);not null;uniqueIndex:idx_cart_user_product,priority:1"`
	ProductID     string           `gorm:"column:product_id;type:varchar(36);not null;uniqueIndex:idx_cart_user_product,priority:2"`
	Quantity      int              `gorm:"column:quantity;not null"`
	Price         decimal.Decimal  `gorm:"column:price;type:decimal(12,2);not null"`
	DiscountPrice *decimal.Decimal `gorm:"column:discount_price;type:decimal(12,2)"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName возвращает имя таблицы в БД.
func (CartItemModel) TableName() string {
	return "cart_items"
}

func (m *CartItemModel) toDomain() domain.CartItem {
	return domain.CartItem{
		ProductID:     m.ProductID,
		Quantity:      m.Quantity,
		Price:         m.Price,
		DiscountPrice: m.DiscountPrice,
	}
}

type cartRepository struct {
	db *gorm.DB
}

// NewCartRepository создаёт репозиторий корзин.
func NewCartRepository(db *gorm.DB) CartRepository {
	return &cartRepository{db: db}
}

func (r *cartRepository) FindByUser(ctx context.Context, userID string) (*domain.Cart, error) {
	var models []CartItemModel
	if err := txscope.DB(ctx, r.db).
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("ошибка получения корзины: %w", err)
	}

	cart := &domain.Cart{UserID: userID, Items: make([]domain.CartItem, 0, len(models))}
	for i := range models {
		cart.Items = append(cart.Items, models[i].toDomain())
		if models[i].UpdatedAt.After(cart.UpdatedAt) {
			cart.UpdatedAt = models[i].UpdatedAt
		}
	}
	return cart, nil
}

func (r *cartRepository) UpsertItem(ctx context.Context, userID string, item domain.CartItem) error {
	model := &CartItemModel{
		UserID:        userID,
		ProductID:     item.ProductID,
		Quantity:      item.Quantity,
		Price:         item.Price,
		DiscountPrice: item.DiscountPrice,
	}

	err := txscope.DB(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"quantity", "price", "discount_price", "updated_at"}),
	}).Create(model).Error
	if err != nil {
		return fmt.Errorf("ошибка добавления товара в корзину: %w", err)
	}
	return nil
}

func (r *cartRepository) UpdateQuantity(ctx context.Context, userID, productID string, quantity int) error {
	result := txscope.DB(ctx, r.db).
		Model(&CartItemModel{}).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Update("quantity", quantity)
	if result.Error != nil {
		return fmt.Errorf("ошибка изменения количества в корзине: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrCartItemNotFound
	}
	return nil
}

func (r *cartRepository) RemoveItem(ctx context.Context, userID, productID string) error {
	result := txscope.DB(ctx, r.db).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&CartItemModel{})
	if result.Error != nil {
		return fmt.Errorf("ошибка удаления товара из корзины: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrCartItemNotFound
	}
	return nil
}

func (r *cartRepository) Clear(ctx context.Context, userID string) error {
	if err := txscope.DB(ctx, r.db).
		Where("user_id = ?", userID).
		Delete(&CartItemModel{}).Error; err != nil {
		return fmt.Errorf("ошибка очистки корзины: %w", err)
	}
	return nil
}
