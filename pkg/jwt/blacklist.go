package jwt

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Ключи Redis, которые заполняет сервис авторизации при logout и блокировке.
const (
	prefixToken = "jwt:blacklist:"   // jwt:blacklist:{jti}
	prefixUser  = "jwt:invalidated:" // jwt:invalidated:{userID} = unix-время отзыва
)

// Blacklist читает отозванные токены из общего Redis.
type Blacklist struct {
	redis redis.UniversalClient
}

// NewBlacklist создаёт Blacklist.
func NewBlacklist(client redis.UniversalClient) *Blacklist {
	return &Blacklist{redis: client}
}

// Check сообщает, отозван ли токен с данным jti.
func (b *Blacklist) Check(ctx context.Context, jti string) (bool, error) {
	n, err := b.redis.Exists(ctx, prefixToken+jti).Result()
	if err != nil {
		return false, fmt.Errorf("ошибка проверки blacklist: %w", err)
	}
	return n > 0, nil
}

// IsUserInvalidated возвращает true, если токен выдан раньше массового отзыва
// токенов пользователя.
func (b *Blacklist) IsUserInvalidated(ctx context.Context, userID string, issuedAt time.Time) (bool, error) {
	val, err := b.redis.Get(ctx, prefixUser+userID).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("ошибка проверки отзыва токенов пользователя: %w", err)
	}

	invalidatedAt, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return false, fmt.Errorf("некорректное время отзыва %q: %w", val, err)
	}

	return issuedAt.Unix() < invalidatedAt, nil
}
