package enums

// SubscriptionStatus tracks a monthly water plan.
type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "activa"
	SubscriptionStatusPaused   SubscriptionStatus = "pausada"
	SubscriptionStatusCanceled SubscriptionStatus = "cancelada"
)

var subscriptionStatuses = set[SubscriptionStatus]{
	SubscriptionStatusActive,
	SubscriptionStatusPaused,
	SubscriptionStatusCanceled,
}

func (s SubscriptionStatus) String() string { return string(s) }

func (s SubscriptionStatus) IsValid() bool { return subscriptionStatuses.has(s) }

func ParseSubscriptionStatus(value string) (SubscriptionStatus, error) {
	return subscriptionStatuses.parse("subscription status", value)
}

// VoucherStatus tracks whether a vale has been paid.
type VoucherStatus string

const (
	VoucherStatusPending VoucherStatus = "pendiente"
	VoucherStatusPaid    VoucherStatus = "pagado"
	VoucherStatusVoided  VoucherStatus = "anulado"
)

var voucherStatuses = set[VoucherStatus]{VoucherStatusPending, VoucherStatusPaid, VoucherStatusVoided}

func (v VoucherStatus) String() string { return string(v) }

func (v VoucherStatus) IsValid() bool { return voucherStatuses.has(v) }

func ParseVoucherStatus(value string) (VoucherStatus, error) {
	return voucherStatuses.parse("voucher status", value)
}
