package domain

import (
	"crypto/rand"
	"fmt"
	"io"
	"regexp"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	orderNumberPrefix     = "HH"
	orderNumberSuffixSize = 6
)

var orderNumberPattern = regexp.MustCompile(`^HH[0-9]{6}[0-9A-Z]{6}$`)

// NewOrderNumber формирует номер заказа: "HH", последние 6 цифр unix-времени в
// миллисекундах и 6 случайных символов Crockford base32 из ULID.
func NewOrderNumber(now time.Time) (string, error) {
	return newOrderNumber(now, rand.Reader)
}

func newOrderNumber(now time.Time, entropy io.Reader) (string, error) {
	id, err := ulid.New(ulid.Timestamp(now), entropy)
	if err != nil {
		return "", fmt.Errorf("ошибка генерации номера заказа: %w", err)
	}
	s := id.String()
	suffix := s[len(s)-orderNumberSuffixSize:]
	return fmt.Sprintf("%s%06d%s", orderNumberPrefix, now.UnixMilli()%1_000_000, suffix), nil
}

// IsOrderNumber проверяет формат номера заказа.
func IsOrderNumber(s string) bool {
	return orderNumberPattern.MatchString(s)
}
