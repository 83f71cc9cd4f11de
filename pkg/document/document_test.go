package document

import (
	"testing"

	"github.com/shopspring/decimal"
)

func mustNormalize(t *testing.T, payload string) Document {
	t.Helper()
	doc, err := Normalize([]byte(payload))
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	return doc
}

func TestNormalizeEmptyItemsEmitsFallbackLine(t *testing.T) {
	doc := mustNormalize(t, `{"items": [], "subtotal": 42.5}`)
	if doc.Source != SourceFallback {
		t.Fatalf("expected fallback source, got %s", doc.Source)
	}
	if len(doc.Lines) != 1 {
		t.Fatalf("expected one line, got %d", len(doc.Lines))
	}
	line := doc.Lines[0]
	if line.ProductName != FallbackProductName || line.Quantity != 1 {
		t.Fatalf("unexpected fallback line %+v", line)
	}
	want := decimal.RequireFromString("42.5")
	if !line.Price.Equal(want) || !line.Subtotal.Equal(want) {
		t.Fatalf("expected price and subtotal 42.5, got %s / %s", line.Price, line.Subtotal)
	}
}

func TestNormalizeFallbackWithoutSubtotal(t *testing.T) {
	doc := mustNormalize(t, `{"orderNumber": "A-1"}`)
	if len(doc.Lines) != 1 {
		t.Fatalf("expected one line, got %d", len(doc.Lines))
	}
	if !doc.Lines[0].Price.IsZero() || !doc.Lines[0].Subtotal.IsZero() {
		t.Fatalf("expected zero fallback amounts, got %+v", doc.Lines[0])
	}
	if got := doc.Lines[0].Subtotal.StringFixed(2); got != "0.00" {
		t.Fatalf("expected 0.00, got %s", got)
	}
}

func TestNormalizeUsesExplicitSubtotalVerbatim(t *testing.T) {
	doc := mustNormalize(t, `{"items": [{"productName": "Bidón 20L", "quantity": 3, "price": "7.00", "subtotal": "19.99"}]}`)
	if doc.Source != SourceItems {
		t.Fatalf("expected items source, got %s", doc.Source)
	}
	line := doc.Lines[0]
	if !line.Subtotal.Equal(decimal.RequireFromString("19.99")) {
		t.Fatalf("expected verbatim subtotal 19.99, got %s", line.Subtotal)
	}
}

func TestNormalizeComputesMissingSubtotal(t *testing.T) {
	doc := mustNormalize(t, `{"products": [{"nombre": "Agua 7L", "cantidad": "4", "precio": 5.5}]}`)
	if doc.Source != SourceProducts {
		t.Fatalf("expected products source, got %s", doc.Source)
	}
	line := doc.Lines[0]
	if line.ProductName != "Agua 7L" || line.Quantity != 4 {
		t.Fatalf("unexpected line %+v", line)
	}
	if !line.Subtotal.Equal(decimal.RequireFromString("22")) {
		t.Fatalf("expected 22, got %s", line.Subtotal)
	}
	if !doc.Subtotal.Equal(decimal.RequireFromString("22")) {
		t.Fatalf("expected document subtotal 22, got %s", doc.Subtotal)
	}
}

func TestNormalizeDefaultsQuantityAndPrice(t *testing.T) {
	doc := mustNormalize(t, `{"orderDetails": [{"name": "Dispensador"}]}`)
	line := doc.Lines[0]
	if line.Quantity != 1 {
		t.Fatalf("expected default quantity 1, got %d", line.Quantity)
	}
	if !line.Price.IsZero() || !line.Subtotal.IsZero() {
		t.Fatalf("expected zero price and subtotal, got %+v", line)
	}
}

func TestNormalizeJoinTableWithNestedProduct(t *testing.T) {
	cases := map[string]string{
		"pascal": `{"OrderProducts": [{"Product": {"nombre": "Bidón"}, "qty": 2, "unit_price": "8.00"}]}`,
		"snake":  `{"order_products": [{"product": {"name": "Bidón"}, "qty": 2, "unitPrice": 8}]}`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			doc := mustNormalize(t, payload)
			if doc.Source != SourceOrderProducts {
				t.Fatalf("expected join table source, got %s", doc.Source)
			}
			line := doc.Lines[0]
			if line.ProductName != "Bidón" {
				t.Fatalf("expected nested product name, got %q", line.ProductName)
			}
			if !line.Subtotal.Equal(decimal.RequireFromString("16")) {
				t.Fatalf("expected 16, got %s", line.Subtotal)
			}
		})
	}
}

func TestNormalizePrefersFirstCollection(t *testing.T) {
	doc := mustNormalize(t, `{
		"items": [{"productName": "from items", "price": 1}],
		"products": [{"productName": "from products", "price": 2}]
	}`)
	if len(doc.Lines) != 1 || doc.Lines[0].ProductName != "from items" {
		t.Fatalf("expected items to win, got %+v", doc.Lines)
	}
}

func TestNormalizeSkipsEmptyHigherPriorityCollection(t *testing.T) {
	doc := mustNormalize(t, `{"items": [], "orderDetails": [{"productName": "Recarga"}]}`)
	if doc.Source != SourceOrderDetails {
		t.Fatalf("expected orderDetails source, got %s", doc.Source)
	}
}

func TestNormalizeHeaderFields(t *testing.T) {
	doc := mustNormalize(t, `{
		"order_number": "AS-000123",
		"customer": {"nombre": "Rosa"},
		"telefono": "999888777",
		"payment_method": " YAPE ",
		"subtotal": "20.00",
		"delivery_fee": "3.00",
		"items": [{"productName": "Bidón", "quantity": 2, "price": "10.00"}]
	}`)
	if doc.OrderNumber != "AS-000123" || doc.CustomerName != "Rosa" || doc.Phone != "999888777" {
		t.Fatalf("unexpected header %+v", doc)
	}
	if doc.PaymentLabel != "Yape" {
		t.Fatalf("expected Yape label, got %q", doc.PaymentLabel)
	}
	if !doc.Total.Equal(decimal.RequireFromString("23")) {
		t.Fatalf("expected total 23, got %s", doc.Total)
	}
}

func TestNormalizeRejectsNonObject(t *testing.T) {
	for _, payload := range []string{`not json`, `[1,2]`, `null`} {
		if _, err := Normalize([]byte(payload)); err == nil {
			t.Fatalf("expected error for %q", payload)
		}
	}
}

func TestNormalizeToleratesMalformedLine(t *testing.T) {
	doc := mustNormalize(t, `{"items": ["oops"]}`)
	if len(doc.Lines) != 1 || doc.Lines[0].Quantity != 1 {
		t.Fatalf("expected defaulted line, got %+v", doc.Lines)
	}
}

func TestPaymentLabel(t *testing.T) {
	cases := map[string]string{
		"yape":           "Yape",
		"PLIN":           "Plin",
		" efectivo ":     "Efectivo",
		"contraentrega":  "Contra entrega",
		"vale":           "Vale",
		"suscripcion":    "Suscripción",
		"transferencia":  "Transferencia bancaria",
		"desconocido123": "desconocido123",
		"":               "",
	}
	for code, want := range cases {
		if got := PaymentLabel(code); got != want {
			t.Fatalf("PaymentLabel(%q) = %q, want %q", code, got, want)
		}
	}
}
