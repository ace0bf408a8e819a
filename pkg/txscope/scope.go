// Package txscope хранит транзакцию GORM в context.Context, чтобы несколько
// репозиториев могли писать в одной транзакции, не зная друг о друге.
package txscope

import (
	"context"

	"gorm.io/gorm"
)

type txKey struct{}

// Scope выполняет fn в транзакции: commit при nil, rollback при ошибке или панике.
type Scope interface {
	Execute(ctx context.Context, fn func(ctx context.Context) error) error
}

type gormScope struct {
	db *gorm.DB
}

// New создаёт Scope поверх пула GORM.
func New(db *gorm.DB) Scope {
	return &gormScope{db: db}
}

// Execute открывает транзакцию. Если ctx уже содержит транзакцию, fn выполняется
// в ней же: вложенный Execute не создаёт независимую транзакцию.
func (s *gormScope) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// DB возвращает транзакцию из ctx или fallback, привязанный к ctx.
// Репозитории вызывают его в начале каждого метода.
func DB(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return fallback.WithContext(ctx)
}
