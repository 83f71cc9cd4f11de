package orders

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aguasol/aguasol-backend/api/middleware"
	internalorders "github.com/aguasol/aguasol-backend/internal/orders"
	"github.com/aguasol/aguasol-backend/pkg/enums"
	pkgerrors "github.com/aguasol/aguasol-backend/pkg/errors"
	"github.com/aguasol/aguasol-backend/pkg/outbox"
	"github.com/aguasol/aguasol-backend/pkg/pagination"
)

type stubOrdersService struct {
	created      *internalorders.CreateOrderInput
	listed       *internalorders.ListOrdersInput
	customerGet  uuid.UUID
	statusActor  *outbox.ActorRef
	summaryRange [2]time.Time
	trackErr     error
}

func (s *stubOrdersService) Create(_ context.Context, input internalorders.CreateOrderInput) (*internalorders.OrderDTO, error) {
	s.created = &input
	return &internalorders.OrderDTO{ID: uuid.New(), OrderNumber: 1000, Code: "AS-001000", Total: decimal.RequireFromString("57")}, nil
}

func (s *stubOrdersService) Get(_ context.Context, orderID uuid.UUID) (*internalorders.OrderDTO, error) {
	return &internalorders.OrderDTO{ID: orderID}, nil
}

func (s *stubOrdersService) GetForCustomer(_ context.Context, customerID, orderID uuid.UUID) (*internalorders.OrderDTO, error) {
	s.customerGet = customerID
	return &internalorders.OrderDTO{ID: orderID, CustomerID: &customerID}, nil
}

func (s *stubOrdersService) Track(_ context.Context, code, phone string) (*internalorders.TrackingDTO, error) {
	if s.trackErr != nil {
		return nil, s.trackErr
	}
	return &internalorders.TrackingDTO{Code: code, Status: enums.OrderStatusPending}, nil
}

func (s *stubOrdersService) List(_ context.Context, input internalorders.ListOrdersInput) (*pagination.Page[internalorders.OrderDTO], error) {
	s.listed = &input
	return &pagination.Page[internalorders.OrderDTO]{Items: []internalorders.OrderDTO{}}, nil
}

func (s *stubOrdersService) ChangeStatus(_ context.Context, orderID uuid.UUID, input internalorders.StatusChangeInput, actor *outbox.ActorRef) (*internalorders.OrderDTO, error) {
	s.statusActor = actor
	status, err := enums.ParseOrderStatus(input.Status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
	}
	return &internalorders.OrderDTO{ID: orderID, Status: status}, nil
}

func (s *stubOrdersService) ExpireGuestOrders(context.Context, time.Time, int) (int, error) {
	return 0, nil
}

func (s *stubOrdersService) Summary(_ context.Context, from, to time.Time) (*internalorders.SummaryDTO, error) {
	s.summaryRange = [2]time.Time{from, to}
	return &internalorders.SummaryDTO{From: from, To: to}, nil
}

func withCaller(r *http.Request, id uuid.UUID, role enums.Role) *http.Request {
	return r.WithContext(middleware.WithCaller(r.Context(), middleware.Caller{ID: id, Role: role}))
}

func withParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

const orderBody = `{"contact_name":"Rosa","contact_phone":"987654321","delivery_address":"Av. Grau 123","payment_method":"yape","items":[{"product_id":"%s","quantity":6}]}`

func TestCreateGuestOrderIgnoresBodyCustomer(t *testing.T) {
	svc := &stubOrdersService{}
	body := strings.Replace(orderBody, "%s", uuid.NewString(), 1)
	req := httptest.NewRequest(http.MethodPost, "/api/public/v1/orders", strings.NewReader(body))
	rec := httptest.NewRecorder()

	Create(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.created == nil || svc.created.CustomerID != nil {
		t.Fatalf("guest order must not carry a customer id: %+v", svc.created)
	}
	var envelope struct {
		Data internalorders.OrderDTO `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.Code != "AS-001000" {
		t.Fatalf("unexpected code %q", envelope.Data.Code)
	}
}

func TestCreateCustomerOrderUsesTokenSubject(t *testing.T) {
	svc := &stubOrdersService{}
	customerID := uuid.New()
	body := strings.Replace(orderBody, "%s", uuid.NewString(), 1)
	req := withCaller(httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body)), customerID, enums.RoleCustomer)
	rec := httptest.NewRecorder()

	Create(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if svc.created.CustomerID == nil || *svc.created.CustomerID != customerID {
		t.Fatalf("expected customer id from token")
	}
}

func TestCreateRejectsEmptyItems(t *testing.T) {
	svc := &stubOrdersService{}
	req := httptest.NewRequest(http.MethodPost, "/api/public/v1/orders", strings.NewReader(`{"payment_method":"yape","items":[]}`))
	rec := httptest.NewRecorder()

	Create(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if svc.created != nil {
		t.Fatal("service must not be called for invalid bodies")
	}
}

func TestTrackRequiresBothParameters(t *testing.T) {
	svc := &stubOrdersService{}
	rec := httptest.NewRecorder()
	Track(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/public/v1/orders/track?order_number=AS-001000", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	svc.trackErr = pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	rec = httptest.NewRecorder()
	Track(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/public/v1/orders/track?order_number=AS-001000&phone=987654321", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestListScopesCustomers(t *testing.T) {
	svc := &stubOrdersService{}
	customerID := uuid.New()
	other := uuid.New()
	req := withCaller(httptest.NewRequest(http.MethodGet, "/api/v1/orders?customer_id="+other.String()+"&phone=999", nil), customerID, enums.RoleCustomer)
	rec := httptest.NewRecorder()

	List(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.listed.CustomerID == nil || *svc.listed.CustomerID != customerID || svc.listed.Phone != "" {
		t.Fatalf("customer listing must be scoped to the caller: %+v", svc.listed)
	}
}

func TestListAdminFilters(t *testing.T) {
	svc := &stubOrdersService{}
	customerID := uuid.New()
	req := withCaller(httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders?status=pendiente&from=2026-03-01&to=2026-03-31&customer_id="+customerID.String(), nil), uuid.New(), enums.RoleAdmin)
	rec := httptest.NewRecorder()

	List(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.listed.Status != "pendiente" || *svc.listed.CustomerID != customerID {
		t.Fatalf("unexpected filters %+v", svc.listed)
	}
	if svc.listed.To.Day() != 1 || svc.listed.To.Month() != time.April {
		t.Fatalf("expected inclusive end date, got %s", svc.listed.To)
	}

	rec = httptest.NewRecorder()
	bad := withCaller(httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders?status=shipped", nil), uuid.New(), enums.RoleAdmin)
	List(svc, nil).ServeHTTP(rec, bad)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", rec.Code)
	}
}

func TestDetailForCustomerUsesOwnership(t *testing.T) {
	svc := &stubOrdersService{}
	customerID := uuid.New()
	orderID := uuid.New()
	req := withCaller(httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+orderID.String(), nil), customerID, enums.RoleCustomer)
	req = withParam(req, "orderId", orderID.String())
	rec := httptest.NewRecorder()

	Detail(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || svc.customerGet != customerID {
		t.Fatalf("expected ownership-checked lookup, got %d", rec.Code)
	}
}

func TestChangeStatusRecordsAdminActor(t *testing.T) {
	svc := &stubOrdersService{}
	adminID := uuid.New()
	orderID := uuid.New()
	req := withCaller(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"status":"confirmado"}`)), adminID, enums.RoleAdmin)
	req = withParam(req, "orderId", orderID.String())
	rec := httptest.NewRecorder()

	ChangeStatus(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.statusActor == nil || svc.statusActor.UserID != adminID || svc.statusActor.Role != enums.RoleAdmin {
		t.Fatalf("unexpected actor %+v", svc.statusActor)
	}
}

func TestSummaryDefaultsAndInclusiveEnd(t *testing.T) {
	svc := &stubOrdersService{}
	rec := httptest.NewRecorder()
	Summary(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?from=2026-03-01&to=2026-03-01", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := svc.summaryRange[1].Sub(svc.summaryRange[0]); got != 24*time.Hour {
		t.Fatalf("expected a one day window, got %s", got)
	}

	rec = httptest.NewRecorder()
	Summary(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if got := svc.summaryRange[1].Sub(svc.summaryRange[0]); got != defaultSummaryWindow {
		t.Fatalf("expected default window, got %s", got)
	}
}
