// Package handler содержит REST API магазина на gin.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"example.com/shop-backend/pkg/metrics"
	"example.com/shop-backend/services/shop/internal/middleware"
	"example.com/shop-backend/services/shop/internal/service"
)

// ReadinessChecker проверяет зависимости сервиса для /ready.
type ReadinessChecker func(ctx context.Context) error

// RouterConfig — зависимости роутера.
type RouterConfig struct {
	ServiceName string
	Currency    string
	CORSOrigins []string

	Catalog service.CatalogService
	Carts   service.CartService
	Coupons service.CouponService
	Orders  service.OrderService
	Reviews service.ReviewService

	AuthMW      *middleware.AuthMiddleware
	RateLimitMW *middleware.RateLimitMiddleware // nil — без ограничения

	ReadinessCheck ReadinessChecker
	Debug          bool
}

// Router — HTTP роутер магазина.
type Router struct {
	engine    *gin.Engine
	cfg       RouterConfig
	readiness ReadinessChecker
}

// NewRouter собирает gin engine со всеми маршрутами.
func NewRouter(cfg RouterConfig) *Router {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "shop"
	}

	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		middleware.CORS(middleware.NewCORSConfig(cfg.CORSOrigins)),
		middleware.SecurityHeaders(),
		otelgin.Middleware(cfg.ServiceName),
		middleware.RequestLogger(),
		metrics.GinMiddleware(),
	)

	r := &Router{engine: engine, cfg: cfg, readiness: cfg.ReadinessCheck}
	r.setupRoutes()
	return r
}

func (r *Router) setupRoutes() {
	r.engine.GET("/health", r.liveness)
	r.engine.GET("/ready", r.readinessHandler)

	v1 := r.engine.Group("/api/v1")
	if r.cfg.RateLimitMW != nil {
		v1.Use(r.cfg.RateLimitMW.Handle())
	}

	auth := r.cfg.AuthMW.Handle()

	catalog := NewCatalogHandler(r.cfg.Catalog, r.cfg.Reviews)
	products := v1.Group("/products")
	{
		products.GET("", catalog.ListProducts)
		products.GET("/:id", catalog.GetProduct)
		products.GET("/:id/reviews", catalog.ListReviews)
		products.POST("/:id/reviews", auth, catalog.CreateReview)
	}

	carts := NewCartHandler(r.cfg.Carts, r.cfg.Currency)
	cart := v1.Group("/cart", auth)
	{
		cart.GET("", carts.GetCart)
		cart.DELETE("", carts.ClearCart)
		cart.POST("/items", carts.AddItem)
		cart.PUT("/items/:productId", carts.UpdateItem)
		cart.DELETE("/items/:productId", carts.RemoveItem)
	}

	coupons := NewCouponHandler(r.cfg.Coupons)
	v1.POST("/coupons/validate", auth, coupons.Validate)

	orders := NewOrderHandler(r.cfg.Orders, r.cfg.Currency)
	own := v1.Group("/orders", auth)
	{
		own.POST("", orders.CreateOrder)
		own.GET("", orders.ListOrders)
		own.GET("/:orderNumber", orders.GetOrder)
		own.POST("/:orderNumber/cancel", orders.CancelOrder)
		own.POST("/:orderNumber/payment/verify", orders.VerifyPayment)
	}

	admin := v1.Group("/admin", auth, r.cfg.AuthMW.RequireAdmin())
	{
		admin.GET("/orders", orders.ListAllOrders)
		admin.PATCH("/orders/:orderNumber/status", orders.UpdateStatus)
		admin.POST("/orders/:orderNumber/payment", orders.RecordPayment)
		admin.POST("/orders/:orderNumber/refund", orders.Refund)

		admin.GET("/coupons", coupons.List)
		admin.POST("/coupons", coupons.Create)
		admin.POST("/coupons/:code/deactivate", coupons.Deactivate)

		admin.POST("/products", catalog.CreateProduct)
		admin.PUT("/products/:id", catalog.UpdateProduct)
	}
}

// Engine возвращает gin engine для http.Server.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func (r *Router) liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": r.cfg.ServiceName})
}

func (r *Router) readinessHandler(c *gin.Context) {
	if r.readiness == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := r.readiness(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
