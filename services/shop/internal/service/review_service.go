package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"example.com/shop-backend/pkg/logger"
	"example.com/shop-backend/pkg/txscope"
	"example.com/shop-backend/services/shop/internal/domain"
	"example.com/shop-backend/services/shop/internal/repository"
)

// CreateReviewInput — данные нового отзыва.
type CreateReviewInput struct {
	ProductID string
	UserID    string
	UserName  string
	Rating    int
	Title     string
	Comment   string
}

// ReviewService — отзывы о товарах.
type ReviewService interface {
	// Create сохраняет отзыв и пересчитывает рейтинг товара в той же транзакции.
	Create(ctx context.Context, in CreateReviewInput) (*domain.Review, error)
	List(ctx context.Context, productID string, page, pageSize int) ([]*domain.Review, int64, error)
}

type reviewService struct {
	reviews  repository.ReviewRepository
	products repository.ProductRepository
	orders   repository.OrderRepository
	tx       txscope.Scope
	policy   *bluemonday.Policy
	now      Clock
}

// NewReviewService создаёт сервис отзывов. HTML из текста отзыва вырезается полностью.
func NewReviewService(
	reviews repository.ReviewRepository,
	products repository.ProductRepository,
	orders repository.OrderRepository,
	tx txscope.Scope,
	clock Clock,
) ReviewService {
	if clock == nil {
		clock = systemClock
	}
	return &reviewService{
		reviews:  reviews,
		products: products,
		orders:   orders,
		tx:       tx,
		policy:   bluemonday.StrictPolicy(),
		now:      clock,
	}
}

func (s *reviewService) Create(ctx context.Context, in CreateReviewInput) (*domain.Review, error) {
	if _, err := s.products.FindActive(ctx, in.ProductID); err != nil {
		return nil, err
	}

	review := &domain.Review{
		ID:        uuid.NewString(),
		ProductID: in.ProductID,
		UserID:    in.UserID,
		UserName:  s.policy.Sanitize(in.UserName),
		Rating:    in.Rating,
		Title:     s.policy.Sanitize(in.Title),
		Comment:   s.policy.Sanitize(in.Comment),
		CreatedAt: s.now(),
	}
	if err := review.Validate(); err != nil {
		return nil, err
	}

	verified, err := s.orders.HasDeliveredProduct(ctx, in.UserID, in.ProductID)
	if err != nil {
		return nil, err
	}
	review.VerifiedPurchase = verified

	err = s.tx.Execute(ctx, func(ctx context.Context) error {
		if err := s.reviews.Create(ctx, review); err != nil {
			return err
		}
		return s.products.RefreshRating(ctx, in.ProductID)
	})
	if err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("product_id", in.ProductID).
		Str("user_id", in.UserID).
		Int("rating", review.Rating).
		Bool("verified_purchase", verified).
		Msg("Отзыв добавлен")
	return review, nil
}

func (s *reviewService) List(ctx context.Context, productID string, page, pageSize int) ([]*domain.Review, int64, error) {
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, 0, domain.ErrProductNotFound
		}
		return nil, 0, err
	}
	offset, limit := normalizePage(page, pageSize)
	return s.reviews.ListByProduct(ctx, productID, offset, limit)
}
