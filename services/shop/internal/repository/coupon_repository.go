package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"example.com/shop-backend/pkg/txscope"
	"example.com/shop-backend/services/shop/internal/domain"
)

// CouponRepository — купоны и журнал их использования. Коды передаются уже
// нормализованными (domain.NormalizeCouponCode).
type CouponRepository interface {
	FindByCode(ctx context.Context, code string) (*domain.Coupon, error)
	CountUserUsages(ctx context.Context, code, userID string) (int, error)
	// IncrementUsage под блокировкой строки купона перепроверяет лимит
	// пользователя, атомарно увеличивает used_count с учётом usage_limit и
	// записывает использование. Вызывается внутри транзакции заказа.
	// Исчерпанный лимит даёт InvalidCouponError.
	IncrementUsage(ctx context.Context, code, userID, orderID string, usedAt time.Time) error
	Create(ctx context.Context, c *domain.Coupon) error
	List(ctx context.Context, offset, limit int) ([]*domain.Coupon, int64, error)
	Deactivate(ctx context.Context, code string) error
}

// CouponModel — GORM модель таблицы coupons.
type CouponModel struct {
	ID                    string           `gorm:"column:id;type:varchar(36);primaryKey"`
	Code                  string           `gorm:"column:code;type:varchar(64);not null;uniqueIndex:idx_coupons_code"`
	Description           string           `gorm:"column:description;type:varchar(255)"`
	Type                  string           `gorm:"column:type;type:varchar(20);not null"`
	Value                 decimal.Decimal  `gorm:"column:value;type:decimal(12,2);not null"`
	MinimumOrderAmount    decimal.Decimal  `gorm:"column:minimum_order_amount;type:decimal(12,2);not null;default:0"`
	MaximumDiscountAmount *decimal.Decimal `gorm:"column:maximum_discount_amount;type:decimal(12,2)"`
	UsageLimit            *int             `gorm:"column:usage_limit"`
	UsedCount             int              `gorm:"column:used_count;not null;default:0"`
	UserUsageLimit        int              `gorm:"column:user_usage_limit;not null;default:1"`
	ValidFrom             time.Time        `gorm:"column:valid_from;not null"`
	ValidUntil            time.Time        `gorm:"column:valid_until;not null"`
	IsActive              bool             `gorm:"column:is_active;not null;default:true"`
	CreatedAt             time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName возвращает имя таблицы в БД.
func (CouponModel) TableName() string {
	return "coupons"
}

// CouponUsageModel — GORM модель таблицы coupon_usages.
type CouponUsageModel struct {
	ID         string    `gorm:"column:id;type:varchar(36);primaryKey"`
	CouponCode string    `gorm:"column:coupon_code;type:varchar(64);not null;index:idx_coupon_usages_code_user,priority:1"`
	UserID     string    `gorm:"column:user_id;type:varchar(36);not null;index:idx_coupon_usages_code_user,priority:2"`
	OrderID    string    `gorm:"column:order_id;type:varchar(36);not null"`
	UsedAt     time.Time `gorm:"column:used_at;not null"`
}

// TableName возвращает имя таблицы в БД.
func (CouponUsageModel) TableName() string {
	return "coupon_usages"
}

func (m *CouponModel) toDomain() *domain.Coupon {
	return &domain.Coupon{
		ID:                    m.ID,
		Code:                  m.Code,
		Description:           m.Description,
		Type:                  domain.CouponType(m.Type),
		Value:                 m.Value,
		MinimumOrderAmount:    m.MinimumOrderAmount,
		MaximumDiscountAmount: m.MaximumDiscountAmount,
		UsageLimit:            m.UsageLimit,
		UsedCount:             m.UsedCount,
		UserUsageLimit:        m.UserUsageLimit,
		ValidFrom:             m.ValidFrom,
		ValidUntil:            m.ValidUntil,
		IsActive:              m.IsActive,
		CreatedAt:             m.CreatedAt,
		UpdatedAt:             m.UpdatedAt,
	}
}

func couponModelFromDomain(c *domain.Coupon) *CouponModel {
	return &CouponModel{
		ID:                    c.ID,
		Code:                  c.Code,
		Description:           c.Description,
		Type:                  string(c.Type),
		Value:                 c.Value,
		MinimumOrderAmount:    c.MinimumOrderAmount,
		MaximumDiscountAmount: c.MaximumDiscountAmount,
		UsageLimit:            c.UsageLimit,
		UsedCount:             c.UsedCount,
		UserUsageLimit:        c.UserUsageLimit,
		ValidFrom:             c.ValidFrom,
		ValidUntil:            c.ValidUntil,
		IsActive:              c.IsActive,
	}
}

type couponRepository struct {
	db *gorm.DB
}

// NewCouponRepository создаёт репозиторий купонов.
func NewCouponRepository(db *gorm.DB) CouponRepository {
	return &couponRepository{db: db}
}

func (r *couponRepository) FindByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	var model CouponModel
	err := txscope.DB(ctx, r.db).Where("code = ?", code).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrCouponNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка поиска купона: %w", err)
	}
	return model.toDomain(), nil
}

func (r *couponRepository) CountUserUsages(ctx context.Context, code, userID string) (int, error) {
	var n int64
	if err := txscope.DB(ctx, r.db).
		Model(&CouponUsageModel{}).
		Where("coupon_code = ? AND user_id = ?", code, userID).
		Count(&n).Error; err != nil {
		return 0, fmt.Errorf("ошибка подсчёта использований купона: %w", err)
	}
	return int(n), nil
}

func (r *couponRepository) IncrementUsage(ctx context.Context, code, userID, orderID string, usedAt time.Time) error {
	// внутри транзакции заказа Execute не открывает новую
	return txscope.New(r.db).Execute(ctx, func(ctx context.Context) error {
		return r.incrementUsage(ctx, code, userID, orderID, usedAt)
	})
}

func (r *couponRepository) incrementUsage(ctx context.Context, code, userID, orderID string, usedAt time.Time) error {
	db := txscope.DB(ctx, r.db)

	// Блокировка строки купона сериализует оформления с одним купоном до
	// конца транзакции, поэтому подсчёт ниже видит все закоммиченные использования.
	var model CouponModel
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).Where("code = ?", code).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &domain.InvalidCouponError{Code: code, Reason: domain.CouponNotFound}
	}
	if err != nil {
		return fmt.Errorf("ошибка блокировки купона: %w", err)
	}

	var used int64
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Model(&CouponUsageModel{}).
		Where("coupon_code = ? AND user_id = ?", code, userID).
		Count(&used).Error; err != nil {
		return fmt.Errorf("ошибка подсчёта использований купона: %w", err)
	}
	if int(used) >= model.UserUsageLimit {
		return &domain.InvalidCouponError{Code: code, Reason: domain.CouponAlreadyUsed}
	}

	result := db.Model(&CouponModel{}).
		Where("id = ? AND is_active = ? AND (usage_limit IS NULL OR used_count < usage_limit)", model.ID, true).
		Update("used_count", gorm.Expr("used_count + 1"))
	if result.Error != nil {
		return fmt.Errorf("ошибка учёта использования купона: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return &domain.InvalidCouponError{Code: code, Reason: domain.CouponUsageLimitReached}
	}

	usage := &CouponUsageModel{
		ID:         uuid.NewString(),
		CouponCode: code,
		UserID:     userID,
		OrderID:    orderID,
		UsedAt:     usedAt,
	}
	if err := db.Create(usage).Error; err != nil {
		return fmt.Errorf("ошибка записи использования купона: %w", err)
	}
	return nil
}

func (r *couponRepository) Create(ctx context.Context, c *domain.Coupon) error {
	model := couponModelFromDomain(c)
	if err := txscope.DB(ctx, r.db).Create(model).Error; err != nil {
		if isDuplicateKeyError(err) {
			return domain.ErrCouponExists
		}
		return fmt.Errorf("ошибка создания купона: %w", err)
	}
	c.CreatedAt = model.CreatedAt
	c.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *couponRepository) List(ctx context.Context, offset, limit int) ([]*domain.Coupon, int64, error) {
	offset, limit = normalizePage(offset, limit)
	query := txscope.DB(ctx, r.db).Model(&CouponModel{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчёта купонов: %w", err)
	}

	var models []CouponModel
	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("ошибка получения списка купонов: %w", err)
	}

	coupons := make([]*domain.Coupon, len(models))
	for i := range models {
		coupons[i] = models[i].toDomain()
	}
	return coupons, total, nil
}

func (r *couponRepository) Deactivate(ctx context.Context, code string) error {
	result := txscope.DB(ctx, r.db).
		Model(&CouponModel{}).
		Where("code = ?", code).
		Update("is_active", false)
	if result.Error != nil {
		return fmt.Errorf("ошибка отключения купона: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrCouponNotFound
	}
	return nil
}
