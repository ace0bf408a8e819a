// Package repository содержит GORM реализации хранилищ магазина. Все методы
// берут соединение через txscope.DB, поэтому работают и внутри транзакции
// сервиса, и без неё.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// mysqlDuplicateEntry — код ошибки MySQL ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// isDuplicateKeyError — нарушение уникального индекса.
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlDuplicateEntry
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// violatesIndex — дубликат по конкретному индексу.
func violatesIndex(err error, index string) bool {
	return isDuplicateKeyError(err) && strings.Contains(err.Error(), index)
}

func normalizePage(offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return offset, limit
}
