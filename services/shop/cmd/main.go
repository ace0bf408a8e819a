// Shop Service — backend интернет-магазина: каталог, корзина, купоны, заказы,
// оплата и возвраты. REST API на gin, события заказов через outbox в Kafka,
// уведомления читаются из того же топика.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"example.com/shop-backend/pkg/circuitbreaker"
	"example.com/shop-backend/pkg/config"
	"example.com/shop-backend/pkg/db"
	"example.com/shop-backend/pkg/healthcheck"
	"example.com/shop-backend/pkg/jwt"
	"example.com/shop-backend/pkg/kafka"
	"example.com/shop-backend/pkg/logger"
	"example.com/shop-backend/pkg/metrics"
	grpcmw "example.com/shop-backend/pkg/middleware"
	"example.com/shop-backend/pkg/outbox"
	"example.com/shop-backend/pkg/tracing"
	"example.com/shop-backend/pkg/txscope"
	"example.com/shop-backend/services/shop/internal/domain"
	"example.com/shop-backend/services/shop/internal/handler"
	"example.com/shop-backend/services/shop/internal/middleware"
	"example.com/shop-backend/services/shop/internal/notification"
	"example.com/shop-backend/services/shop/internal/payment"
	"example.com/shop-backend/services/shop/internal/repository"
	"example.com/shop-backend/services/shop/internal/service"
	"example.com/shop-backend/services/shop/internal/worker"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка загрузки конфигурации: %v\n", err)
		os.Exit(1)
	}

	logger.Init(logger.Config{
		Level:   cfg.App.LogLevel,
		Pretty:  cfg.App.LogPretty,
		Service: cfg.App.Name,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Error().Err(err).Msg("Shop Service завершился с ошибкой")
		os.Exit(1)
	}
	logger.Info().Msg("Shop Service остановлен")
}

func run(ctx context.Context, cfg *config.Config) error {
	log := logger.With().Str("env", cfg.App.Env).Logger()
	log.Info().Int("http_port", cfg.HTTP.Port).Msg("Запуск Shop Service")

	shutdownTracer, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    cfg.App.Name,
		Environment:    cfg.App.Env,
		JaegerEndpoint: cfg.Jaeger.OTLPEndpoint(),
		Enabled:        cfg.Jaeger.Enabled,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Ошибка остановки tracer")
		}
	}()

	// === Хранилища ===

	gdb, err := db.ConnectMySQL(ctx, cfg.MySQL, cfg.IsDevelopment())
	if err != nil {
		return err
	}
	defer db.CloseMySQL(gdb)
	log.Info().Msg("Подключение к MySQL установлено")

	if cfg.MySQL.AutoMigrate {
		models := append(repository.Models(), outbox.Models()...)
		if err := db.Migrate(ctx, gdb, models...); err != nil {
			return err
		}
	}

	rdb, err := db.ConnectRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer func() { _ = rdb.Close() }()
	log.Info().Msg("Подключение к Redis установлено")

	producer, err := kafka.NewProducer(kafka.Config{Brokers: cfg.Kafka.Brokers})
	if err != nil {
		return err
	}
	defer func() { _ = producer.Close() }()

	// === Доменные сервисы ===

	products := repository.NewProductRepository(gdb)
	carts := repository.NewCartRepository(gdb)
	coupons := repository.NewCouponRepository(gdb)
	orders := repository.NewOrderRepository(gdb)
	reviews := repository.NewReviewRepository(gdb)
	events := outbox.NewRepository(gdb, domain.AggregateOrder)
	tx := txscope.New(gdb)

	gateway, err := newPaymentGateway(cfg.Payment)
	if err != nil {
		return err
	}

	couponService := service.NewCouponService(coupons, nil)
	orderService := service.NewOrderService(service.OrderServiceDeps{
		Orders:    orders,
		Products:  products,
		Carts:     carts,
		Coupons:   coupons,
		Outbox:    events,
		Tx:        tx,
		Evaluator: couponService,
		Gateway:   gateway,
		Lock:      payment.NewLock(rdb, cfg.Payment.VerifyLockTTL),
		Policy: domain.PricingPolicy{
			FreeShippingThreshold:            cfg.Shop.FreeShippingThreshold,
			ShippingCharge:                   cfg.Shop.ShippingCharge,
			TaxRate:                          cfg.Shop.TaxRate,
			FreeShippingCouponWaivesShipping: cfg.Shop.FreeShippingCouponWaivesShipping,
		},
		Topic:    cfg.Kafka.OrderTopic,
		Currency: cfg.Shop.Currency,
	})

	verifier, err := jwt.NewVerifier(jwt.Config{
		PublicKeyPath: cfg.JWT.PublicKeyPath,
		Issuer:        cfg.JWT.Issuer,
	}, jwt.NewBlacklist(rdb))
	if err != nil {
		return fmt.Errorf("ошибка загрузки ключа JWT: %w", err)
	}

	readiness := healthcheck.Composite(
		healthcheck.MySQL(gdb),
		healthcheck.Redis(rdb),
		healthcheck.Kafka(cfg.Kafka.Brokers),
	)

	var rateLimit *middleware.RateLimitMiddleware
	if cfg.RateLimit.Enabled {
		rateLimit = middleware.NewRateLimitMiddleware(middleware.RateLimitConfig{
			Redis:  rdb,
			Limit:  cfg.RateLimit.RequestsLimit,
			Window: cfg.RateLimit.Window,
		})
	}

	router := handler.NewRouter(handler.RouterConfig{
		ServiceName:    cfg.App.Name,
		Currency:       cfg.Shop.Currency,
		CORSOrigins:    cfg.HTTP.CORSOrigins,
		Catalog:        service.NewCatalogService(products),
		Carts:          service.NewCartService(carts, products),
		Coupons:        couponService,
		Orders:         orderService,
		Reviews:        service.NewReviewService(reviews, products, orders, tx, nil),
		AuthMW:         middleware.NewAuthMiddleware(verifier),
		RateLimitMW:    rateLimit,
		ReadinessCheck: handler.ReadinessChecker(readiness),
		Debug:          cfg.IsDevelopment(),
	})

	httpServer := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      router.Engine(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	// === Фоновые процессы ===

	outboxCfg := outbox.DefaultWorkerConfig()
	outboxCfg.PollInterval = cfg.Workers.OutboxInterval
	outboxCfg.BatchSize = cfg.Workers.OutboxBatchSize
	outboxCfg.MaxAttempts = cfg.Workers.OutboxMaxAttempts
	outboxCfg.Retention = cfg.Workers.OutboxRetention
	outboxWorker := outbox.NewWorker(events, producer, outboxCfg)

	expiryCfg := worker.DefaultExpiryWorkerConfig()
	expiryCfg.PollInterval = cfg.Workers.PendingOrderInterval
	expiryCfg.OrderTTL = cfg.Workers.PendingOrderTTL
	expiryWorker := worker.NewExpiryWorker(orderService, expiryCfg)

	var consumer *kafka.Consumer
	if cfg.Notification.Enabled {
		consumer, err = kafka.NewConsumer(kafka.Config{Brokers: cfg.Kafka.Brokers}, cfg.Kafka.OrderTopic, cfg.Kafka.ConsumerGroup)
		if err != nil {
			return err
		}
		defer func() { _ = consumer.Close() }()
		consumer.SetDLQProducer(producer)
	}

	var (
		grpcListener net.Listener
		grpcServer   *grpc.Server
	)
	if cfg.GRPC.Enabled {
		grpcListener, err = net.Listen("tcp", cfg.GRPC.Addr())
		if err != nil {
			return fmt.Errorf("ошибка создания gRPC listener: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", httpServer.Addr).Msg("HTTP сервер запущен")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("ошибка HTTP сервера: %w", err)
		}
		return nil
	})

	if grpcListener != nil {
		grpcServer = newHealthServer(gctx, readiness)
		g.Go(func() error {
			log.Info().Str("addr", cfg.GRPC.Addr()).Msg("gRPC health сервер запущен")
			if err := grpcServer.Serve(grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return fmt.Errorf("ошибка gRPC сервера: %w", err)
			}
			return nil
		})
	}

	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(cfg.Metrics.Addr(), metrics.WithReadinessCheck(readiness))
		g.Go(metricsServer.Start)
	}

	g.Go(func() error {
		outboxWorker.Run(gctx)
		return nil
	})

	g.Go(func() error {
		expiryWorker.Run(gctx)
		return nil
	})

	if consumer != nil {
		dispatcher := notification.NewDispatcher(notificationSenders(cfg.Notification)...)
		g.Go(func() error {
			return consumer.Consume(gctx, dispatcher.HandleMessage)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Остановка серверов")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()

		var errs []error
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("ошибка остановки HTTP сервера: %w", err))
		}
		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("ошибка остановки Metrics сервера: %w", err))
			}
		}
		if grpcServer != nil {
			grpcServer.GracefulStop()
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}

// newPaymentGateway выбирает способ возврата онлайн-платежей. Наложенный
// платёж всегда возвращается вручную.
func newPaymentGateway(cfg config.PaymentConfig) (payment.Gateway, error) {
	var online payment.Refunder
	if cfg.Provider == "stripe" {
		stripeRefunder, err := payment.NewStripeRefunder(cfg.StripeSecretKey, nil)
		if err != nil {
			return nil, err
		}
		online = stripeRefunder
	}

	settings := circuitbreaker.DefaultSettings()
	settings.Timeout = cfg.BreakerTimeout
	settings.MinRequests = cfg.BreakerThreshold

	return payment.NewGateway(
		payment.NewSignatureVerifier(cfg.SignatureSecret),
		online,
		payment.NewManualRefunder(),
		circuitbreaker.NewWithSettings("payment-refund", settings),
	), nil
}

func notificationSenders(cfg config.NotificationConfig) []notification.Sender {
	var senders []notification.Sender
	if cfg.EmailSender {
		senders = append(senders, notification.NewLogSender(notification.ChannelEmail))
	}
	if cfg.SMSSender {
		senders = append(senders, notification.NewLogSender(notification.ChannelSMS))
	}
	return senders
}

// newHealthServer поднимает внутренний gRPC сервер со стандартным health
// сервисом. Статус обновляется по тем же проверкам, что и /ready.
func newHealthServer(ctx context.Context, readiness func(context.Context) error) *grpc.Server {
	server := grpc.NewServer(grpcmw.ServerOptions()...)
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(server, healthServer)
	reflection.Register(server)

	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			status := healthpb.HealthCheckResponse_SERVING
			checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			if err := readiness(checkCtx); err != nil {
				status = healthpb.HealthCheckResponse_NOT_SERVING
			}
			cancel()
			healthServer.SetServingStatus("", status)

			select {
			case <-ctx.Done():
				healthServer.Shutdown()
				return
			case <-ticker.C:
			}
		}
	}()

	return server
}
