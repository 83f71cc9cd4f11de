package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/aguasol/aguasol-backend/pkg/db/models"
	"github.com/aguasol/aguasol-backend/pkg/enums"
	"github.com/aguasol/aguasol-backend/pkg/logger"
	"github.com/aguasol/aguasol-backend/pkg/outbox"
	"github.com/aguasol/aguasol-backend/pkg/outbox/idempotency"
	"github.com/aguasol/aguasol-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type memoryMarkers struct {
	keys map[string]bool
}

func (m *memoryMarkers) Get(context.Context, string) (string, error) { return "", nil }

func (m *memoryMarkers) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func (m *memoryMarkers) IdempotencyKey(scope, id string) string {
	return "aguasol:idempotency:" + scope + ":" + id
}

func (m *memoryMarkers) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.keys, k)
	}
	return nil
}

type recordingRepo struct {
	created []models.Notification
	err     error
}

func (r *recordingRepo) Create(_ context.Context, n *models.Notification) error {
	if r.err != nil {
		return r.err
	}
	r.created = append(r.created, *n)
	return nil
}

func newTestConsumer(t *testing.T, repo *recordingRepo) *Consumer {
	t.Helper()
	manager, err := idempotency.NewManager(&memoryMarkers{keys: map[string]bool{}}, time.Hour)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	consumer, err := NewConsumer(ConsumerParams{
		Repo:         repo,
		Subscription: &pubsub.Subscriber{},
		Idempotency:  manager,
		Logger:       logger.New(logger.Options{ServiceName: "test"}),
		OrderPrefix:  "AS",
	})
	if err != nil {
		t.Fatalf("NewConsumer: %v", err)
	}
	return consumer
}

func buildMessage(t *testing.T, eventType enums.OutboxEventType, eventID uuid.UUID, data any) *pubsub.Message {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	envelope, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID.String(),
		OccurredAt: time.Now().UTC(),
		Data:       raw,
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return &pubsub.Message{
		ID:         "msg-" + eventID.String(),
		Attributes: map[string]string{"event_type": string(eventType)},
		Data:       envelope,
	}
}

func TestConsumerOrderCreatedNotifiesAdminAndCustomer(t *testing.T) {
	repo := &recordingRepo{}
	consumer := newTestConsumer(t, repo)
	customerID := uuid.New()
	eventID := uuid.New()
	msg := buildMessage(t, enums.EventOrderCreated, eventID, payloads.OrderCreatedEvent{
		OrderID:       uuid.New(),
		OrderNumber:   1042,
		CustomerID:    &customerID,
		ContactName:   "Rosa",
		PaymentMethod: enums.PaymentMethodYape,
		Total:         decimal.RequireFromString("57"),
		ItemCount:     1,
	})

	result := consumer.process(context.Background(), msg)
	if !result.ack || result.nack {
		t.Fatalf("expected ack, got %+v", result)
	}
	if len(repo.created) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(repo.created))
	}
	admin := repo.created[0]
	if admin.Audience != enums.AudienceAdmin || !strings.Contains(admin.Title, "AS-001042") {
		t.Fatalf("unexpected admin notification %+v", admin)
	}
	if !strings.Contains(admin.Message, "S/ 57.00") || !strings.Contains(admin.Message, "Yape") {
		t.Fatalf("unexpected admin message %q", admin.Message)
	}
	if repo.created[1].CustomerID == nil || *repo.created[1].CustomerID != customerID {
		t.Fatalf("customer notification missing customer id")
	}

	again := consumer.process(context.Background(), msg)
	if !again.ack || len(repo.created) != 2 {
		t.Fatalf("expected duplicate delivery to be skipped")
	}
}

func TestConsumerStatusChangeForGuestIsSilent(t *testing.T) {
	repo := &recordingRepo{}
	consumer := newTestConsumer(t, repo)
	msg := buildMessage(t, enums.EventOrderStatusChanged, uuid.New(), payloads.OrderStatusChangedEvent{
		OrderID:     uuid.New(),
		OrderNumber: 1000,
		From:        enums.OrderStatusPending,
		To:          enums.OrderStatusConfirmed,
	})
	if result := consumer.process(context.Background(), msg); !result.ack {
		t.Fatalf("expected ack")
	}
	if len(repo.created) != 0 {
		t.Fatalf("guest status change should not notify, got %d", len(repo.created))
	}
}

func TestConsumerCancelIncludesReason(t *testing.T) {
	repo := &recordingRepo{}
	consumer := newTestConsumer(t, repo)
	customerID := uuid.New()
	msg := buildMessage(t, enums.EventOrderStatusChanged, uuid.New(), payloads.OrderStatusChangedEvent{
		OrderID:     uuid.New(),
		OrderNumber: 1001,
		CustomerID:  &customerID,
		From:        enums.OrderStatusPending,
		To:          enums.OrderStatusCanceled,
		Reason:      "sin stock",
	})
	consumer.process(context.Background(), msg)
	if len(repo.created) != 1 || !strings.Contains(repo.created[0].Message, "Motivo: sin stock") {
		t.Fatalf("unexpected notifications %+v", repo.created)
	}
}

func TestConsumerNacksAndUnmarksOnInsertError(t *testing.T) {
	repo := &recordingRepo{err: errors.New("db down")}
	consumer := newTestConsumer(t, repo)
	msg := buildMessage(t, enums.EventVouchersSettled, uuid.New(), payloads.VouchersSettledEvent{
		SettlementID: uuid.New(),
		CustomerID:   uuid.New(),
		BillingMonth: "2026-03",
		VoucherCount: 2,
		Total:        decimal.RequireFromString("35.5"),
	})

	if result := consumer.process(context.Background(), msg); !result.nack {
		t.Fatalf("expected nack on insert error")
	}
	repo.err = nil
	if result := consumer.process(context.Background(), msg); !result.ack {
		t.Fatalf("expected redelivery to be processed")
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected notification after retry, got %d", len(repo.created))
	}
}

func TestConsumerSkipsUnknownEvents(t *testing.T) {
	repo := &recordingRepo{}
	consumer := newTestConsumer(t, repo)
	msg := &pubsub.Message{Attributes: map[string]string{"event_type": "product_updated"}, Data: []byte(`{}`)}
	if result := consumer.process(context.Background(), msg); !result.ack {
		t.Fatalf("expected ack for unknown event")
	}
}

func TestConsumerAcksUndecodablePayloads(t *testing.T) {
	repo := &recordingRepo{}
	consumer := newTestConsumer(t, repo)

	msg := buildMessage(t, enums.EventOrderCreated, uuid.New(), "not an object")
	if result := consumer.process(context.Background(), msg); !result.ack || result.nack {
		t.Fatalf("expected ack for malformed payload, got %+v", result)
	}

	future := buildMessage(t, enums.EventOrderCreated, uuid.New(), map[string]string{})
	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(future.Data, &envelope); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	envelope.Version = 9
	future.Data, _ = json.Marshal(envelope)
	if result := consumer.process(context.Background(), future); !result.ack {
		t.Fatalf("expected ack for unknown version")
	}
	if len(repo.created) != 0 {
		t.Fatalf("expected no notifications, got %d", len(repo.created))
	}
}
