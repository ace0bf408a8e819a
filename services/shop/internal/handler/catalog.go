package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"example.com/shop-backend/services/shop/internal/domain"
	"example.com/shop-backend/services/shop/internal/service"
)

// CatalogHandler — товары и отзывы.
type CatalogHandler struct {
	catalog service.CatalogService
	reviews service.ReviewService
}

// NewCatalogHandler создаёт обработчик каталога.
func NewCatalogHandler(catalog service.CatalogService, reviews service.ReviewService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, reviews: reviews}
}

// ListProducts — GET /api/v1/products?category=&search=&page=&page_size=
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	p := parsePage(c)
	filter := domain.ProductFilter{
		Category: c.Query("category"),
		Search:   c.Query("search"),
	}

	products, total, err := h.catalog.List(c.Request.Context(), filter, p.page, p.size)
	if err != nil {
		HandleError(c, err, "ListProducts")
		return
	}

	items := make([]ProductResponse, len(products))
	for i, product := range products {
		items[i] = productToResponse(product)
	}
	c.JSON(http.StatusOK, gin.H{
		"products":   items,
		"pagination": newPagination(p, total),
	})
}

// GetProduct — GET /api/v1/products/:id
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	product, err := h.catalog.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err, "GetProduct")
		return
	}
	c.JSON(http.StatusOK, productToResponse(product))
}

// ListReviews — GET /api/v1/products/:id/reviews
func (h *CatalogHandler) ListReviews(c *gin.Context) {
	p := parsePage(c)
	reviews, total, err := h.reviews.List(c.Request.Context(), c.Param("id"), p.page, p.size)
	if err != nil {
		HandleError(c, err, "ListReviews")
		return
	}

	items := make([]ReviewResponse, len(reviews))
	for i, r := range reviews {
		items[i] = reviewToResponse(r)
	}
	c.JSON(http.StatusOK, gin.H{
		"reviews":    items,
		"pagination": newPagination(p, total),
	})
}

// CreateReview — POST /api/v1/products/:id/reviews
func (h *CatalogHandler) CreateReview(c *gin.Context) {
	claims, ok := currentUser(c)
	if !ok {
		return
	}

	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Оценка должна быть от 1 до 5")
		return
	}

	name := claims.Name
	if name == "" {
		name = claims.Email
	}
	review, err := h.reviews.Create(c.Request.Context(), service.CreateReviewInput{
		ProductID: c.Param("id"),
		UserID:    claims.UserID,
		UserName:  name,
		Rating:    req.Rating,
		Title:     req.Title,
		Comment:   req.Comment,
	})
	if err != nil {
		HandleError(c, err, "CreateReview")
		return
	}
	c.JSON(http.StatusCreated, reviewToResponse(review))
}

// CreateProduct — POST /api/v1/admin/products
func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Невалидные данные товара")
		return
	}

	product := req.toDomain("")
	if err := h.catalog.Create(c.Request.Context(), product); err != nil {
		HandleError(c, err, "CreateProduct")
		return
	}
	c.JSON(http.StatusCreated, productToResponse(product))
}

// UpdateProduct — PUT /api/v1/admin/products/:id
func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Невалидные данные товара")
		return
	}

	product := req.toDomain(c.Param("id"))
	if err := h.catalog.Update(c.Request.Context(), product); err != nil {
		HandleError(c, err, "UpdateProduct")
		return
	}
	c.JSON(http.StatusOK, productToResponse(product))
}
