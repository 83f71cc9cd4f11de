package enums

import "slices"

// OutboxAggregateType is the aggregate_type column of outbox_events.
type OutboxAggregateType string

const (
	AggregateOrder        OutboxAggregateType = "order"
	AggregateSubscription OutboxAggregateType = "subscription"
	AggregateVoucher      OutboxAggregateType = "voucher"
)

var aggregateTypes = set[OutboxAggregateType]{AggregateOrder, AggregateSubscription, AggregateVoucher}

func (a OutboxAggregateType) IsValid() bool { return aggregateTypes.has(a) }

// OutboxEventType is the event_type column of outbox_events and the
// event_type attribute on published messages.
type OutboxEventType string

const (
	EventOrderCreated        OutboxEventType = "order_created"
	EventOrderStatusChanged  OutboxEventType = "order_status_changed"
	EventOrderExpired        OutboxEventType = "order_expired"
	EventSubscriptionRenewed OutboxEventType = "subscription_renewed"
	EventVouchersSettled     OutboxEventType = "vouchers_settled"
)

var eventTypes = set[OutboxEventType]{
	EventOrderCreated,
	EventOrderStatusChanged,
	EventOrderExpired,
	EventSubscriptionRenewed,
	EventVouchersSettled,
}

func (e OutboxEventType) IsValid() bool { return eventTypes.has(e) }

// OutboxEventTypes lists every event type the outbox accepts.
func OutboxEventTypes() []OutboxEventType { return slices.Clone(eventTypes) }

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return eventTypes.parse("event type", value)
}

// OutboxDLQErrorReason explains why an event was dead-lettered.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)
