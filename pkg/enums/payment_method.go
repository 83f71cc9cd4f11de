package enums

import "strings"

// PaymentMethod is how a customer settles an order.
type PaymentMethod string

const (
	PaymentMethodYape          PaymentMethod = "yape"
	PaymentMethodPlin          PaymentMethod = "plin"
	PaymentMethodCash          PaymentMethod = "efectivo"
	PaymentMethodCashOnDeliver PaymentMethod = "contraentrega"
	PaymentMethodVoucher       PaymentMethod = "vale"
	PaymentMethodSubscription  PaymentMethod = "suscripcion"
	PaymentMethodTransfer      PaymentMethod = "transferencia"
)

var paymentMethods = set[PaymentMethod]{
	PaymentMethodYape,
	PaymentMethodPlin,
	PaymentMethodCash,
	PaymentMethodCashOnDeliver,
	PaymentMethodVoucher,
	PaymentMethodSubscription,
	PaymentMethodTransfer,
}

func (p PaymentMethod) String() string { return string(p) }

func (p PaymentMethod) IsValid() bool { return paymentMethods.has(p) }

// RequiresCustomer reports whether guests are barred from the method.
func (p PaymentMethod) RequiresCustomer() bool {
	return p == PaymentMethodVoucher || p == PaymentMethodSubscription
}

// ParsePaymentMethod is case and whitespace insensitive.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	return paymentMethods.parse("payment method", strings.ToLower(strings.TrimSpace(value)))
}
