// Package metrics содержит Prometheus метрики магазина и HTTP сервер для /metrics.
package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "shop"

var (
	// RequestsTotal: shop_http_requests_total{route, method, code_class}.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Количество HTTP запросов по маршруту, методу и классу ответа",
		},
		[]string{"route", "method", "code_class"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Время обработки HTTP запроса в секундах",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"route", "method"},
	)

	OrdersCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Созданные заказы по источнику позиций (cart, items)",
		},
		[]string{"source"},
	)

	// OrderValue — распределение итоговой суммы заказа в валюте магазина.
	OrderValue = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_total_amount",
			Help:      "Итоговая сумма созданных заказов",
			Buckets:   []float64{100, 250, 500, 1000, 2500, 5000, 10000, 50000},
		},
	)

	OrderTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_status_transitions_total",
			Help:      "Переходы статуса заказа",
		},
		[]string{"from", "to"},
	)

	OrderRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_rejections_total",
			Help:      "Отказы в создании заказа по причине",
		},
		[]string{"reason"},
	)

	CouponRedemptions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coupon_redemptions_total",
			Help:      "Применённые купоны по типу",
		},
		[]string{"type"},
	)

	PaymentResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_results_total",
			Help:      "Результаты верификации платежей и возвратов",
		},
		[]string{"operation", "result"},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Уведомления о заказах по каналу и результату",
		},
		[]string{"channel", "result"},
	)

	OutboxPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_events_total",
			Help:      "Публикация событий outbox в Kafka",
		},
		[]string{"result"},
	)
)

// RecordRequest записывает метрики HTTP запроса.
func RecordRequest(route, method string, status int, duration time.Duration) {
	RequestsTotal.WithLabelValues(route, method, codeClass(status)).Inc()
	RequestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

func codeClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

// GinMiddleware собирает HTTP метрики. Маршрут берётся из шаблона (c.FullPath),
// чтобы номера заказов не раздували кардинальность.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		RecordRequest(route, c.Request.Method, c.Writer.Status(), time.Since(start))
	}
}
