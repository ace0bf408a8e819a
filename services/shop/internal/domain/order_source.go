package domain

// OrderSource — откуда берутся позиции заказа: из корзины или из запроса.
// Реализации только FromCart и FromExplicitItems.
type OrderSource interface {
	isOrderSource()
	Kind() string
}

// FromCart — позиции из сохранённой корзины пользователя.
type FromCart struct {
	Cart *Cart
}

// FromExplicitItems — позиции, переданные в запросе.
type FromExplicitItems struct {
	Items []RequestedItem
}

// RequestedItem — товар и количество из запроса.
type RequestedItem struct {
	ProductID string
	Quantity  int
}

func (FromCart) isOrderSource()          {}
func (FromExplicitItems) isOrderSource() {}

func (FromCart) Kind() string          { return "cart" }
func (FromExplicitItems) Kind() string { return "items" }

// ResolveOrderSource выбирает источник: непустая корзина важнее списка из
// запроса. Если нет ни того, ни другого, возвращает ErrEmptyOrder.
func ResolveOrderSource(cart *Cart, items []RequestedItem) (OrderSource, error) {
	if !cart.IsEmpty() {
		return FromCart{Cart: cart}, nil
	}
	if len(items) > 0 {
		return FromExplicitItems{Items: items}, nil
	}
	return nil, ErrEmptyOrder
}
