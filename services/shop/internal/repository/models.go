package repository

// Models — все GORM модели сервиса для автомиграции.
func Models() []any {
	return []any{
		&ProductModel{},
		&CartItemModel{},
		&CouponModel{},
		&CouponUsageModel{},
		&OrderModel{},
		&OrderItemModel{},
		&ReviewModel{},
	}
}
