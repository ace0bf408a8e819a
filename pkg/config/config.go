// Package config предоставляет загрузку конфигурации из переменных окружения.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config содержит полную конфигурацию магазина.
type Config struct {
	App          AppConfig
	HTTP         HTTPConfig
	GRPC         GRPCConfig
	MySQL        MySQLConfig
	Redis        RedisConfig
	Kafka        KafkaConfig
	JWT          JWTConfig
	Jaeger       JaegerConfig
	Metrics      MetricsConfig
	RateLimit    RateLimitConfig
	Shop         ShopConfig
	Payment      PaymentConfig
	Notification NotificationConfig
	Workers      WorkersConfig
}

// AppConfig содержит общие настройки приложения.
type AppConfig struct {
	Name      string `env:"APP_NAME" envDefault:"shop-backend"`
	Env       string `env:"APP_ENV" envDefault:"development"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty bool   `env:"LOG_PRETTY" envDefault:"false"`
}

// MySQLConfig содержит настройки подключения к MySQL.
type MySQLConfig struct {
	Host            string        `env:"MYSQL_HOST" envDefault:"localhost"`
	Port            int           `env:"MYSQL_PORT" envDefault:"3306"`
	User            string        `env:"MYSQL_USER" envDefault:"root"`
	Password        string        `env:"MYSQL_PASSWORD" envDefault:"root"`
	Database        string        `env:"MYSQL_DATABASE" envDefault:"shop"`
	MaxOpenConns    int           `env:"MYSQL_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"MYSQL_MAX_IDLE_CONNS" envDefault:"10"`
	ConnMaxLifetime time.Duration `env:"MYSQL_CONN_MAX_LIFETIME" envDefault:"5m"`
	AutoMigrate     bool          `env:"MYSQL_AUTO_MIGRATE" envDefault:"true"`
}

// DSN возвращает строку подключения к MySQL.
func (c MySQLConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		c.User, c.Password, c.Host, c.Port, c.Database)
}

// RedisConfig содержит настройки подключения к Redis.
type RedisConfig struct {
	Host     string `env:"REDIS_HOST" envDefault:"localhost"`
	Port     int    `env:"REDIS_PORT" envDefault:"6379"`
	Password string `env:"REDIS_PASSWORD" envDefault:""`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

// Addr возвращает адрес Redis сервера.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// KafkaConfig содержит настройки подключения к Kafka.
type KafkaConfig struct {
	Brokers       []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	ConsumerGroup string   `env:"KAFKA_CONSUMER_GROUP" envDefault:"shop-notifications"`
	OrderTopic    string   `env:"KAFKA_ORDER_TOPIC" envDefault:"shop.order-events"`
}

// JWTConfig содержит настройки валидации JWT токенов (RS256).
// Токены выпускает внешний сервис авторизации, здесь нужен только публичный ключ.
type JWTConfig struct {
	PublicKeyPath string `env:"JWT_PUBLIC_KEY_PATH,required"`
	Issuer        string `env:"JWT_ISSUER" envDefault:"shop-auth"`
}

// JaegerConfig содержит настройки трассировки Jaeger.
type JaegerConfig struct {
	Enabled  bool   `env:"JAEGER_ENABLED" envDefault:"true"`
	Host     string `env:"JAEGER_HOST" envDefault:"localhost"`
	OTLPPort int    `env:"JAEGER_OTLP_PORT" envDefault:"4317"`
}

// OTLPEndpoint возвращает OTLP gRPC endpoint для Jaeger.
func (c JaegerConfig) OTLPEndpoint() string {
	return fmt.Sprintf("%s:%d", c.Host, c.OTLPPort)
}

// RateLimitConfig — настройки ограничения запросов.
type RateLimitConfig struct {
	Enabled       bool          `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RequestsLimit int           `env:"RATE_LIMIT_REQUESTS" envDefault:"100"`
	Window        time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
}

// ShopConfig содержит правила ценообразования.
type ShopConfig struct {
	Currency              string          `env:"SHOP_CURRENCY" envDefault:"INR"`
	FreeShippingThreshold decimal.Decimal `env:"SHOP_FREE_SHIPPING_THRESHOLD" envDefault:"500"`
	ShippingCharge        decimal.Decimal `env:"SHOP_SHIPPING_CHARGE" envDefault:"50"`
	TaxRate               decimal.Decimal `env:"SHOP_TAX_RATE" envDefault:"0.05"`

	// Купон free_shipping по умолчанию не обнуляет доставку.
	FreeShippingCouponWaivesShipping bool `env:"SHOP_FREE_SHIPPING_COUPON_WAIVES_SHIPPING" envDefault:"false"`
}

// PaymentConfig содержит настройки платёжного шлюза.
type PaymentConfig struct {
	// Provider: stripe или manual (возвраты без внешнего шлюза).
	Provider         string        `env:"PAYMENT_PROVIDER" envDefault:"manual"`
	SignatureSecret  string        `env:"PAYMENT_SIGNATURE_SECRET"`
	StripeSecretKey  string        `env:"STRIPE_SECRET_KEY"`
	VerifyLockTTL    time.Duration `env:"PAYMENT_VERIFY_LOCK_TTL" envDefault:"30s"`
	BreakerTimeout   time.Duration `env:"PAYMENT_BREAKER_TIMEOUT" envDefault:"30s"`
	BreakerThreshold uint32        `env:"PAYMENT_BREAKER_THRESHOLD" envDefault:"5"`
}

// NotificationConfig — настройки уведомлений о заказах.
type NotificationConfig struct {
	Enabled     bool `env:"NOTIFICATION_ENABLED" envDefault:"true"`
	EmailSender bool `env:"NOTIFICATION_EMAIL" envDefault:"true"`
	SMSSender   bool `env:"NOTIFICATION_SMS" envDefault:"true"`
}

// WorkersConfig — настройки фоновых воркеров.
type WorkersConfig struct {
	OutboxInterval       time.Duration `env:"WORKER_OUTBOX_INTERVAL" envDefault:"1s"`
	OutboxBatchSize      int           `env:"WORKER_OUTBOX_BATCH_SIZE" envDefault:"100"`
	OutboxMaxAttempts    int           `env:"WORKER_OUTBOX_MAX_ATTEMPTS" envDefault:"8"`
	OutboxRetention      time.Duration `env:"WORKER_OUTBOX_RETENTION" envDefault:"168h"`
	PendingOrderTTL      time.Duration `env:"WORKER_PENDING_ORDER_TTL" envDefault:"24h"`
	PendingOrderInterval time.Duration `env:"WORKER_PENDING_ORDER_INTERVAL" envDefault:"5m"`
}

// Load загружает конфигурацию из переменных окружения.
// Опционально загружает .env файл, если он существует.
func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файл не найден)
	_ = godotenv.Load()

	return parse()
}

// LoadFromFile загружает конфигурацию из указанного .env файла.
func LoadFromFile(path string) (*Config, error) {
	if err := godotenv.Load(path); err != nil {
		return nil, fmt.Errorf("ошибка загрузки .env файла %s: %w", path, err)
	}

	return parse()
}

func parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("ошибка парсинга конфигурации: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate проверяет согласованность настроек ценообразования и оплаты.
func (c *Config) Validate() error {
	if c.Shop.TaxRate.IsNegative() || c.Shop.TaxRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return errors.New("SHOP_TAX_RATE должен быть в диапазоне [0, 1)")
	}
	if c.Shop.ShippingCharge.IsNegative() || c.Shop.FreeShippingThreshold.IsNegative() {
		return errors.New("стоимость доставки и порог бесплатной доставки не могут быть отрицательными")
	}

	switch c.Payment.Provider {
	case "manual":
	case "stripe":
		if c.Payment.StripeSecretKey == "" {
			return errors.New("для PAYMENT_PROVIDER=stripe требуется STRIPE_SECRET_KEY")
		}
	default:
		return fmt.Errorf("неизвестный PAYMENT_PROVIDER: %s", c.Payment.Provider)
	}

	return nil
}

// IsDevelopment возвращает true, если приложение запущено в development режиме.
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}
