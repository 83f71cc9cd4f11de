package routes

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/aguasol/aguasol-backend/api/controllers"
	"github.com/aguasol/aguasol-backend/internal/products"
	pkgAuth "github.com/aguasol/aguasol-backend/pkg/auth"
	"github.com/aguasol/aguasol-backend/pkg/config"
	"github.com/aguasol/aguasol-backend/pkg/enums"
	"github.com/aguasol/aguasol-backend/pkg/metrics"
	"github.com/aguasol/aguasol-backend/pkg/pagination"
)

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(context.Context) error {
	return s.err
}

type stubProducts struct {
	products.Service
	lastInput products.ListProductsInput
}

func (s *stubProducts) List(_ context.Context, input products.ListProductsInput) (*pagination.Page[products.ProductDTO], error) {
	s.lastInput = input
	return &pagination.Page[products.ProductDTO]{Items: []products.ProductDTO{{ID: uuid.New(), Name: "Bidón 20L", IsActive: true}}}, nil
}

type memoryStore struct {
	data map[string]string
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key], _ = value.(string)
	return true, nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "dev"},
		JWT: config.JWTConfig{Secret: "test-secret", Issuer: "aguasol", ExpirationMinutes: 60},
	}
}

func newTestRouter(t *testing.T, mutate func(*Deps)) http.Handler {
	t.Helper()
	deps := Deps{
		Config:    testConfig(),
		Readiness: []controllers.Dependency{{Name: "db", Pinger: stubPinger{}}},
	}
	if mutate != nil {
		mutate(&deps)
	}
	return NewRouter(deps)
}

func bearer(t *testing.T, role enums.Role) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(testConfig().JWT, time.Now(), pkgAuth.AccessTokenPayload{
		SubjectID: uuid.New(),
		Role:      role,
		Name:      "Prueba",
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return "Bearer " + token
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthRoutes(t *testing.T) {
	router := newTestRouter(t, nil)

	if rec := serve(router, httptest.NewRequest(http.MethodGet, "/health/live", nil)); rec.Code != http.StatusOK {
		t.Fatalf("expected live 200, got %d", rec.Code)
	}
	if rec := serve(router, httptest.NewRequest(http.MethodGet, "/health/ready", nil)); rec.Code != http.StatusOK {
		t.Fatalf("expected ready 200, got %d", rec.Code)
	}

	failing := newTestRouter(t, func(d *Deps) {
		d.Readiness = append(d.Readiness, controllers.Dependency{Name: "redis", Pinger: stubPinger{err: errors.New("down")}})
	})
	if rec := serve(failing, httptest.NewRequest(http.MethodGet, "/health/ready", nil)); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected ready 503, got %d", rec.Code)
	}
}

func TestPublicCatalogDoesNotRequireJWT(t *testing.T) {
	svc := &stubProducts{}
	router := newTestRouter(t, func(d *Deps) { d.Products = svc })

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/api/public/v1/products?include_inactive=true", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.lastInput.IncludeInactive {
		t.Fatal("anonymous callers must not see inactive products")
	}
	if !strings.Contains(rec.Body.String(), "Bidón 20L") {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestCustomerGroupRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(t, nil)
	for _, path := range []string{"/api/v1/orders", "/api/v1/vouchers", "/api/v1/notifications"} {
		rec := serve(router, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", path, rec.Code)
		}
	}
}

func TestCustomerGroupRejectsAdminToken(t *testing.T) {
	router := newTestRouter(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.Header.Set("Authorization", bearer(t, enums.RoleAdmin))

	if rec := serve(router, req); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestAdminGroupRequiresAdminRole(t *testing.T) {
	router := newTestRouter(t, nil)

	customer := httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders/summary", nil)
	customer.Header.Set("Authorization", bearer(t, enums.RoleCustomer))
	if rec := serve(router, customer); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for customer, got %d", rec.Code)
	}

	admin := httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders/summary", nil)
	admin.Header.Set("Authorization", bearer(t, enums.RoleAdmin))
	rec := serve(router, admin)
	if rec.Code == http.StatusForbidden || rec.Code == http.StatusUnauthorized || rec.Code == http.StatusNotFound {
		t.Fatalf("expected admin to reach the summary handler, got %d", rec.Code)
	}
}

func TestAdminLoginIsPublic(t *testing.T) {
	router := newTestRouter(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/auth/login", strings.NewReader(`{"email":"ops@aguasol.pe","password":"secret"}`))

	rec := serve(router, req)
	if rec.Code == http.StatusUnauthorized || rec.Code == http.StatusNotFound || rec.Code == http.StatusMethodNotAllowed {
		t.Fatalf("expected admin login to be routed without a token, got %d", rec.Code)
	}
}

func TestOrderCreationRequiresIdempotencyKey(t *testing.T) {
	store := &memoryStore{data: map[string]string{}}
	router := newTestRouter(t, func(d *Deps) { d.Idempotency = store })

	guest := httptest.NewRequest(http.MethodPost, "/api/public/v1/orders", strings.NewReader(`{}`))
	if rec := serve(router, guest); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected guest order without key to fail with 400, got %d", rec.Code)
	}

	customer := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{}`))
	customer.Header.Set("Authorization", bearer(t, enums.RoleCustomer))
	if rec := serve(router, customer); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected customer order without key to fail with 400, got %d", rec.Code)
	}
}

func TestMetricsEndpointRecordsRoutes(t *testing.T) {
	reg := prometheus.NewRegistry()
	httpMetrics := metrics.NewHTTPMetrics(reg)
	router := newTestRouter(t, func(d *Deps) { d.Metrics = httpMetrics })

	serve(router, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	rec := serve(router, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `aguasol_http_requests_total{method="GET",route="/health/live",status="200"} 1`) {
		t.Fatalf("missing request counter in %s", rec.Body.String())
	}
}
