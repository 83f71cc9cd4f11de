package enums

// NotificationType is the notification_type column.
type NotificationType string

const (
	NotificationTypeOrderCreated        NotificationType = "order_created"
	NotificationTypeOrderStatus         NotificationType = "order_status"
	NotificationTypeSubscriptionRenewed NotificationType = "subscription_renewed"
	NotificationTypeVouchersSettled     NotificationType = "vouchers_settled"
)

// NotificationAudience separates the shared admin inbox from customer inboxes.
type NotificationAudience string

const (
	AudienceCustomer NotificationAudience = "customer"
	AudienceAdmin    NotificationAudience = "admin"
)
