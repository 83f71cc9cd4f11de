package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	pkgerrors "github.com/aguasol/aguasol-backend/pkg/errors"
	"github.com/aguasol/aguasol-backend/pkg/logger"
	"github.com/aguasol/aguasol-backend/pkg/pricing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestClientCalculate(t *testing.T) {
	productID := uuid.New()
	var gotAuth string
	var gotBody calculateRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != calculatePath {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"data":{"unit_price":"5","total_price":"10","original_price":"7","discount_applied":"2","price_level":"mayoreo1","savings":"4"}}`)
	}))
	defer srv.Close()

	client, err := New(srv.URL, WithBearerToken("tok-123"))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	result, err := client.Calculate(context.Background(), productID, 2)
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if gotAuth != "Bearer tok-123" {
		t.Fatalf("expected bearer header, got %q", gotAuth)
	}
	if gotBody.ProductID != productID || gotBody.Quantity != 2 {
		t.Fatalf("unexpected body %+v", gotBody)
	}
	if result.PriceLevel != pricing.LevelMayoreo1 || !result.TotalPrice.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestClientWithoutTokenSendsNoAuthorization(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Errorf("unexpected authorization header")
		}
		_, _ = io.WriteString(w, `{"data":{"price_level":"normal"}}`)
	}))
	defer srv.Close()

	client, err := New(srv.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.Calculate(context.Background(), uuid.New(), 1); err != nil {
		t.Fatalf("calculate: %v", err)
	}
}

func TestClientCalculateNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, `{"error":{"code":"DEPENDENCY_ERROR"}}`)
	}))
	defer srv.Close()

	client, err := New(srv.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = client.Calculate(context.Background(), uuid.New(), 1)
	if err == nil {
		t.Fatal("expected error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestClientProduct(t *testing.T) {
	productID := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != productPathPrefix+productID.String() {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = io.WriteString(w, `{"data":{"id":"`+productID.String()+`","name":"Bidón 20L","pricing":{"unit_price":"7.00","tier1":{"price":"5.00","min_quantity":2}}}}`)
	}))
	defer srv.Close()

	client, err := New(srv.URL + "/")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	product, err := client.Product(context.Background(), productID)
	if err != nil {
		t.Fatalf("product: %v", err)
	}
	if product.Name != "Bidón 20L" || product.Pricing.Tier1.MinQuantity != 2 {
		t.Fatalf("unexpected product %+v", product)
	}
}

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := New("  "); err == nil {
		t.Fatal("expected error for empty base url")
	}
}

type calculatorFunc func(ctx context.Context, productID uuid.UUID, quantity int) (pricing.Result, error)

func (f calculatorFunc) Calculate(ctx context.Context, productID uuid.UUID, quantity int) (pricing.Result, error) {
	return f(ctx, productID, quantity)
}

func sampleProduct() Product {
	return Product{
		ID:   uuid.New(),
		Name: "Bidón 20L",
		Pricing: pricing.Record{
			UnitPrice: decimal.RequireFromString("7.00"),
			Tier1:     pricing.Tier{Price: decimal.RequireFromString("5.00"), MinQuantity: 2},
		},
	}
}

func TestQuoterUsesRemoteResult(t *testing.T) {
	remote := calculatorFunc(func(ctx context.Context, productID uuid.UUID, quantity int) (pricing.Result, error) {
		return pricing.Result{PriceLevel: pricing.LevelMayoreo3, TotalPrice: decimal.NewFromInt(1)}, nil
	})
	quote := NewQuoter(remote, nil).Quote(context.Background(), sampleProduct(), 2)
	if quote.Source != SourceRemote {
		t.Fatalf("expected remote source, got %s", quote.Source)
	}
	if quote.PriceLevel != pricing.LevelMayoreo3 {
		t.Fatalf("expected remote result, got %+v", quote.Result)
	}
}

func TestQuoterFallsBackOnRemoteError(t *testing.T) {
	remoteErr := errors.New("connection refused")
	remote := calculatorFunc(func(ctx context.Context, productID uuid.UUID, quantity int) (pricing.Result, error) {
		return pricing.Result{}, remoteErr
	})
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})

	quote := NewQuoter(remote, logg).Quote(context.Background(), sampleProduct(), 2)
	if quote.Source != SourceLocal {
		t.Fatalf("expected local source, got %s", quote.Source)
	}
	if !errors.Is(quote.RemoteErr, remoteErr) {
		t.Fatalf("expected remote error to be kept, got %v", quote.RemoteErr)
	}
	if quote.PriceLevel != pricing.LevelMayoreo1 || !quote.TotalPrice.Equal(decimal.RequireFromString("10.00")) {
		t.Fatalf("unexpected local result %+v", quote.Result)
	}
}

func TestQuoterWithoutRemote(t *testing.T) {
	quote := NewQuoter(nil, nil).Quote(context.Background(), sampleProduct(), 1)
	if quote.Source != SourceLocal || quote.PriceLevel != pricing.LevelNormal {
		t.Fatalf("unexpected quote %+v", quote)
	}
}
