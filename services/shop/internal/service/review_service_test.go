package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"example.com/shop-backend/services/shop/internal/domain"
	"example.com/shop-backend/services/shop/internal/testutil"
)

func TestReviewService_Create(t *testing.T) {
	t.Run("HTML вырезается, покупка подтверждена", func(t *testing.T) {
		reviews := new(testutil.MockReviewRepository)
		products := new(testutil.MockProductRepository)
		orders := new(testutil.MockOrderRepository)

		products.On("FindActive", mock.Anything, "p1").Return(testProduct("p1", "100", 1), nil)
		orders.On("HasDeliveredProduct", mock.Anything, "u1", "p1").Return(true, nil)
		reviews.On("Create", mock.Anything, mock.AnythingOfType("*domain.Review")).Return(nil)
		products.On("RefreshRating", mock.Anything, "p1").Return(nil)

		svc := NewReviewService(reviews, products, orders, testutil.NoopScope{}, fixedClock)
		review, err := svc.Create(context.Background(), CreateReviewInput{
			ProductID: "p1",
			UserID:    "u1",
			UserName:  "Иван",
			Rating:    5,
			Title:     "<b>Отлично</b>",
			Comment:   "Работает<script>alert(1)</script>",
		})
		require.NoError(t, err)

		assert.Equal(t, "Отлично", review.Title)
		assert.Equal(t, "Работает", review.Comment)
		assert.True(t, review.VerifiedPurchase)
		assert.NotEmpty(t, review.ID)
		products.AssertExpectations(t)
	})

	t.Run("оценка вне диапазона", func(t *testing.T) {
		reviews := new(testutil.MockReviewRepository)
		products := new(testutil.MockProductRepository)
		products.On("FindActive", mock.Anything, "p1").Return(testProduct("p1", "100", 1), nil)

		svc := NewReviewService(reviews, products, new(testutil.MockOrderRepository), testutil.NoopScope{}, fixedClock)
		_, err := svc.Create(context.Background(), CreateReviewInput{ProductID: "p1", UserID: "u1", Rating: 6})
		require.ErrorIs(t, err, domain.ErrInvalidRating)
		reviews.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("повторный отзыв", func(t *testing.T) {
		reviews := new(testutil.MockReviewRepository)
		products := new(testutil.MockProductRepository)
		orders := new(testutil.MockOrderRepository)
		products.On("FindActive", mock.Anything, "p1").Return(testProduct("p1", "100", 1), nil)
		orders.On("HasDeliveredProduct", mock.Anything, "u1", "p1").Return(false, nil)
		reviews.On("Create", mock.Anything, mock.Anything).Return(domain.ErrDuplicateReview)

		svc := NewReviewService(reviews, products, orders, testutil.NoopScope{}, fixedClock)
		_, err := svc.Create(context.Background(), CreateReviewInput{ProductID: "p1", UserID: "u1", Rating: 4})
		require.ErrorIs(t, err, domain.ErrDuplicateReview)
		products.AssertNotCalled(t, "RefreshRating", mock.Anything, mock.Anything)
	})
}

func TestReviewService_List(t *testing.T) {
	reviews := new(testutil.MockReviewRepository)
	products := new(testutil.MockProductRepository)
	products.On("GetByID", mock.Anything, "p1").Return(testProduct("p1", "100", 1), nil)
	products.On("GetByID", mock.Anything, "ghost").Return(nil, domain.ErrProductNotFound)
	reviews.On("ListByProduct", mock.Anything, "p1", 10, 10).Return([]*domain.Review{{ID: "r1"}}, int64(11), nil)

	svc := NewReviewService(reviews, products, new(testutil.MockOrderRepository), testutil.NoopScope{}, fixedClock)

	list, total, err := svc.List(context.Background(), "p1", 2, 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, int64(11), total)

	_, _, err = svc.List(context.Background(), "ghost", 1, 10)
	require.ErrorIs(t, err, domain.ErrNotFound)
}
