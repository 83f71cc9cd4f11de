package enums

// OrderStatus tracks the delivery lifecycle of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pendiente"
	OrderStatusConfirmed OrderStatus = "confirmado"
	OrderStatusInTransit OrderStatus = "en_camino"
	OrderStatusDelivered OrderStatus = "entregado"
	OrderStatusCanceled  OrderStatus = "cancelado"
	OrderStatusExpired   OrderStatus = "expirado"
)

var orderStatuses = set[OrderStatus]{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusInTransit,
	OrderStatusDelivered,
	OrderStatusCanceled,
	OrderStatusExpired,
}

// Statuses missing from the map are terminal.
var orderTransitions = map[OrderStatus]set[OrderStatus]{
	OrderStatusPending:   {OrderStatusConfirmed, OrderStatusCanceled, OrderStatusExpired},
	OrderStatusConfirmed: {OrderStatusInTransit, OrderStatusCanceled},
	OrderStatusInTransit: {OrderStatusDelivered},
}

func (s OrderStatus) String() string { return string(s) }

func (s OrderStatus) IsValid() bool { return orderStatuses.has(s) }

func (s OrderStatus) IsTerminal() bool { return len(orderTransitions[s]) == 0 }

// CanTransitionTo reports whether next is a legal successor of s.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	return orderTransitions[s].has(next)
}

func ParseOrderStatus(value string) (OrderStatus, error) {
	return orderStatuses.parse("order status", value)
}
