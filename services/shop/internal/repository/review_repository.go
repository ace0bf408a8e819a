package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"example.com/shop-backend/pkg/txscope"
	"example.com/shop-backend/services/shop/internal/domain"
)

// ReviewRepository — отзывы на товары.
type ReviewRepository interface {
	// Create сохраняет отзыв. Повторный отзыв того же пользователя даёт ErrDuplicateReview.
	Create(ctx context.Context, review *domain.Review) error
	ListByProduct(ctx context.Context, productID string, offset, limit int) ([]*domain.Review, int64, error)
}

// ReviewModel — GORM модель таблицы reviews.
type ReviewModel struct {
	ID               string    `gorm:"column:id;type:varchar(36);primaryKey"`
	ProductID        string    `gorm:"column:product_id;type:varchar(36);not null;uniqueIndex:idx_reviews_product_user,priority:1"`
	UserID           string    `gorm:"column:user_id;type:varchar(36);not null;uniqueIndex:idx_reviews_product_user,priority:2"`
	UserName         string    `gorm:"column:user_name;type:varchar(255)"`
	Rating           int       `gorm:"column:rating;not null"`
	Title            string    `gorm:"column:title;type:varchar(255)"`
	Comment          string    `gorm:"column:comment;type:text"`
	VerifiedPurchase bool      `gorm:"column:verified_purchase;not null;default:false"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName возвращает имя таблицы в БД.
func (ReviewModel) TableName() string {
	return "reviews"
}

func (m *ReviewModel) toDomain() *domain.Review {
	return &domain.Review{
		ID:               m.ID,
		ProductID:        m.ProductID,
		UserID:           m.UserID,
		UserName:         m.UserName,
		Rating:           m.Rating,
		Title:            m.Title,
		Comment:          m.Comment,
		VerifiedPurchase: m.VerifiedPurchase,
		CreatedAt:        m.CreatedAt,
	}
}

type reviewRepository struct {
	db *gorm.DB
}

// NewReviewRepository создаёт репозиторий отзывов.
func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) Create(ctx context.Context, review *domain.Review) error {
	model := &ReviewModel{
		ID:               review.ID,
		ProductID:        review.ProductID,
		UserID:           review.UserID,
		UserName:         review.UserName,
		Rating:           review.Rating,
		Title:            review.Title,
		Comment:          review.Comment,
		VerifiedPurchase: review.VerifiedPurchase,
	}
	if err := txscope.DB(ctx, r.db).Create(model).Error; err != nil {
		if isDuplicateKeyError(err) {
			return domain.ErrDuplicateReview
		}
		return fmt.Errorf("ошибка создания отзыва: %w", err)
	}
	review.CreatedAt = model.CreatedAt
	return nil
}

func (r *reviewRepository) ListByProduct(ctx context.Context, productID string, offset, limit int) ([]*domain.Review, int64, error) {
	offset, limit = normalizePage(offset, limit)
	query := txscope.DB(ctx, r.db).Model(&ReviewModel{}).Where("product_id = ?", productID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчёта отзывов: %w", err)
	}

	var models []ReviewModel
	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("ошибка получения отзывов: %w", err)
	}

	reviews := make([]*domain.Review, len(models))
	for i := range models {
		reviews[i] = models[i].toDomain()
	}
	return reviews, total, nil
}
