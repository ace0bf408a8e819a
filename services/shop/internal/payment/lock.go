package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"example.com/shop-backend/pkg/logger"
)

const lockPrefix = "shop:payment:lock:"

// releaseScript удаляет ключ, только если он всё ещё наш.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lock — короткая блокировка в Redis (SET NX PX), защищает подтверждение
// одного платежа от параллельной обработки.
type Lock struct {
	redis redis.UniversalClient
	ttl   time.Duration
}

// NewLock создаёт Lock.
func NewLock(client redis.UniversalClient, ttl time.Duration) *Lock {
	return &Lock{redis: client, ttl: ttl}
}

// Acquire пытается захватить ключ. Если ключ занят, возвращает acquired=false.
// release безопасно вызывать всегда.
func (l *Lock) Acquire(ctx context.Context, key string) (release func(), acquired bool, err error) {
	token := uuid.NewString()
	fullKey := lockPrefix + key

	ok, err := l.redis.SetNX(ctx, fullKey, token, l.ttl).Result()
	if err != nil {
		return func() {}, false, fmt.Errorf("ошибка захвата блокировки платежа: %w", err)
	}
	if !ok {
		return func() {}, false, nil
	}

	release = func() {
		// снимаем блокировку даже если запрос уже отменён
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		if err := releaseScript.Run(rctx, l.redis, []string{fullKey}, token).Err(); err != nil {
			log := logger.FromContext(ctx)
			log.Warn().Err(err).Str("key", key).Msg("Не удалось снять блокировку платежа")
		}
	}
	return release, true, nil
}
