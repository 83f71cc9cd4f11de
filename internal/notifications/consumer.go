package notifications

import (
	"context"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/aguasol/aguasol-backend/internal/orders"
	"github.com/aguasol/aguasol-backend/pkg/db/models"
	"github.com/aguasol/aguasol-backend/pkg/document"
	"github.com/aguasol/aguasol-backend/pkg/enums"
	"github.com/aguasol/aguasol-backend/pkg/logger"
	"github.com/aguasol/aguasol-backend/pkg/outbox"
	"github.com/aguasol/aguasol-backend/pkg/outbox/idempotency"
	"github.com/aguasol/aguasol-backend/pkg/outbox/payloads"
	"github.com/aguasol/aguasol-backend/pkg/outbox/registry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const notificationConsumer = "order-notifications"

type repository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

type receiver interface {
	Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error
}

// ConsumerParams wires the notification consumer.
type ConsumerParams struct {
	Repo           repository
	Subscription   receiver
	Idempotency    *idempotency.Manager
	Logger         *logger.Logger
	OrderPrefix    string
	CurrencySymbol string
}

// Consumer watches domain events and turns them into inbox notifications.
type Consumer struct {
	repo         repository
	subscription receiver
	idempotency  *idempotency.Manager
	decoders     *registry.DecoderRegistry
	logg         *logger.Logger
	prefix       string
	currency     string
}

// NewConsumer builds the notification consumer.
func NewConsumer(params ConsumerParams) (*Consumer, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if params.Subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if params.Idempotency == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	currency := params.CurrencySymbol
	if currency == "" {
		currency = "S/"
	}
	return &Consumer{
		repo:         params.Repo,
		subscription: params.Subscription,
		idempotency:  params.Idempotency,
		decoders:     registry.PayloadDecoders(),
		logg:         params.Logger,
		prefix:       params.OrderPrefix,
		currency:     currency,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	rawType := msg.Attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": rawType,
	})

	eventType, err := enums.ParseOutboxEventType(rawType)
	if err != nil {
		c.logg.Info(logCtx, "skipping unknown event")
		return processResult{ack: true}
	}

	envelope, eventID, err := outbox.ParseEnvelope(msg.Data)
	if err != nil {
		c.logg.Error(logCtx, "dropping malformed envelope", err)
		return processResult{ack: true}
	}
	logCtx = c.logg.WithField(logCtx, "event_id", eventID.String())

	claim, err := c.idempotency.Claim(ctx, notificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if claim == nil {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	// A payload that cannot be decoded never will be, so it is acked rather
	// than redelivered forever.
	payload, err := c.decoders.Decode(eventType, envelope.Version, envelope.Data)
	if err != nil {
		c.logg.Error(c.logg.WithField(logCtx, "version", envelope.Version), "dropping undecodable payload", err)
		return processResult{ack: true}
	}

	for _, notification := range c.build(payload) {
		n := notification
		if err := c.repo.Create(ctx, &n); err != nil {
			c.logg.Error(logCtx, "notification insert failed", err)
			if rerr := claim.Release(ctx); rerr != nil {
				c.logg.Warn(c.logg.WithField(logCtx, "error", rerr.Error()), "idempotency release failed")
			}
			return processResult{nack: true}
		}
		c.logg.Info(c.logg.WithField(logCtx, "audience", n.Audience), "notification created")
	}
	return processResult{ack: true}
}

// build maps a decoded payload to the notifications it produces. Events with
// no audience yield nothing.
func (c *Consumer) build(payload any) []models.Notification {
	switch p := payload.(type) {
	case *payloads.OrderCreatedEvent:
		code := orders.FormatCode(c.prefix, p.OrderNumber)
		out := []models.Notification{{
			Audience: enums.AudienceAdmin,
			OrderID:  &p.OrderID,
			Type:     enums.NotificationTypeOrderCreated,
			Title:    "Nuevo pedido " + code,
			Message: fmt.Sprintf("%s pidió %d producto(s) por %s (%s).",
				p.ContactName, p.ItemCount, c.money(p.Total), document.PaymentLabel(string(p.PaymentMethod))),
			Link: link("/admin/pedidos/%s", p.OrderID),
		}}
		if p.CustomerID != nil {
			out = append(out, models.Notification{
				Audience:   enums.AudienceCustomer,
				CustomerID: p.CustomerID,
				OrderID:    &p.OrderID,
				Type:       enums.NotificationTypeOrderCreated,
				Title:      "Pedido recibido",
				Message:    fmt.Sprintf("Recibimos tu pedido %s. Te avisaremos cuando sea confirmado.", code),
				Link:       link("/pedidos/%s", p.OrderID),
			})
		}
		return out

	case *payloads.OrderStatusChangedEvent:
		if p.CustomerID == nil {
			return nil
		}
		code := orders.FormatCode(c.prefix, p.OrderNumber)
		title, message := statusCopy(code, p.To, p.Reason)
		return []models.Notification{{
			Audience:   enums.AudienceCustomer,
			CustomerID: p.CustomerID,
			OrderID:    &p.OrderID,
			Type:       enums.NotificationTypeOrderStatus,
			Title:      title,
			Message:    message,
			Link:       link("/pedidos/%s", p.OrderID),
		}}

	case *payloads.OrderExpiredEvent:
		code := orders.FormatCode(c.prefix, p.OrderNumber)
		return []models.Notification{{
			Audience: enums.AudienceAdmin,
			OrderID:  &p.OrderID,
			Type:     enums.NotificationTypeOrderStatus,
			Title:    "Pedido " + code + " expirado",
			Message:  fmt.Sprintf("El pedido de invitado %s no fue confirmado en %d horas.", code, p.TTLHours),
			Link:     link("/admin/pedidos/%s", p.OrderID),
		}}

	case *payloads.SubscriptionRenewedEvent:
		return []models.Notification{{
			Audience:   enums.AudienceCustomer,
			CustomerID: &p.CustomerID,
			Type:       enums.NotificationTypeSubscriptionRenewed,
			Title:      "Suscripción renovada",
			Message: fmt.Sprintf("Tu plan de %d unidad(es) de %s se renovó hasta el %s por %s.",
				p.Units, p.ProductName, p.PeriodEnd.Format("02/01/2006"), c.money(p.PricePerPeriod)),
			Link: link("/suscripciones/%s", p.SubscriptionID),
		}}

	case *payloads.VouchersSettledEvent:
		return []models.Notification{{
			Audience:   enums.AudienceCustomer,
			CustomerID: &p.CustomerID,
			Type:       enums.NotificationTypeVouchersSettled,
			Title:      "Vales pagados",
			Message: fmt.Sprintf("Registramos el pago de %d vale(s) de %s por %s.",
				p.VoucherCount, p.BillingMonth, c.money(p.Total)),
			Link: stringPtr("/vales?mes=" + p.BillingMonth),
		}}
	}
	return nil
}

func statusCopy(code string, status enums.OrderStatus, reason string) (string, string) {
	switch status {
	case enums.OrderStatusConfirmed:
		return "Pedido confirmado", fmt.Sprintf("Tu pedido %s fue confirmado.", code)
	case enums.OrderStatusInTransit:
		return "Pedido en camino", fmt.Sprintf("Tu pedido %s está en camino.", code)
	case enums.OrderStatusDelivered:
		return "Pedido entregado", fmt.Sprintf("Tu pedido %s fue entregado. ¡Gracias por tu compra!", code)
	case enums.OrderStatusCanceled:
		msg := fmt.Sprintf("Tu pedido %s fue cancelado.", code)
		if reason = strings.TrimSpace(reason); reason != "" {
			msg += " Motivo: " + reason
		}
		return "Pedido cancelado", msg
	case enums.OrderStatusExpired:
		return "Pedido expirado", fmt.Sprintf("Tu pedido %s expiró sin confirmarse.", code)
	}
	return "Pedido actualizado", fmt.Sprintf("Tu pedido %s cambió a %s.", code, status)
}

func (c *Consumer) money(v decimal.Decimal) string {
	return c.currency + " " + v.StringFixed(2)
}

func link(format string, id uuid.UUID) *string {
	return stringPtr(fmt.Sprintf(format, id))
}

func stringPtr(value string) *string {
	return &value
}
