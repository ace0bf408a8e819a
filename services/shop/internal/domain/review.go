package domain

import (
	"strings"
	"time"
)

// Review — отзыв на товар. Один пользователь оставляет не больше одного отзыва
// на товар.
type Review struct {
	ID               string
	ProductID        string
	UserID           string
	UserName         string
	Rating           int
	Title            string
	Comment          string
	VerifiedPurchase bool
	CreatedAt        time.Time
}

// Validate проверяет оценку и обрезает пробелы.
func (r *Review) Validate() error {
	if r.Rating < 1 || r.Rating > 5 {
		return ErrInvalidRating
	}
	r.Title = strings.TrimSpace(r.Title)
	r.Comment = strings.TrimSpace(r.Comment)
	return nil
}
