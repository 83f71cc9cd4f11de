// Package document flattens order payloads of several historical shapes into
// the single layout used for invoice rendering.
package document

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// FallbackProductName labels the synthetic line emitted when an order carries
// no line-item collection.
const FallbackProductName = "Producto"

// Source identifies which payload shape produced the lines of a Document.
type Source string

const (
	SourceItems         Source = "items"
	SourceProducts      Source = "products"
	SourceOrderDetails  Source = "orderDetails"
	SourceOrderProducts Source = "order_products"
	SourceFallback      Source = "fallback"
)

// Line is one normalized line item.
type Line struct {
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// Document is the flat view of an order handed to the renderer.
type Document struct {
	OrderNumber   string          `json:"orderNumber"`
	CreatedAt     string          `json:"createdAt"`
	CustomerName  string          `json:"customerName"`
	Phone         string          `json:"phone"`
	Address       string          `json:"address"`
	PaymentMethod string          `json:"paymentMethod"`
	PaymentLabel  string          `json:"paymentLabel"`
	Source        Source          `json:"source"`
	Lines         []Line          `json:"lines"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	DeliveryFee   decimal.Decimal `json:"deliveryFee"`
	Total         decimal.Decimal `json:"total"`
}

// lineSource is the adapter for one known payload shape.
type lineSource struct {
	source Source
	probe  func(record) ([]json.RawMessage, bool)
}

func arrayAt(keys ...string) func(record) ([]json.RawMessage, bool) {
	return func(r record) ([]json.RawMessage, bool) {
		for _, key := range keys {
			if items, ok := r.array(key); ok {
				return items, true
			}
		}
		return nil, false
	}
}

// lineSources is ordered by priority; the first shape with a non-empty
// collection wins and later ones are ignored.
var lineSources = []lineSource{
	{source: SourceItems, probe: arrayAt("items")},
	{source: SourceProducts, probe: arrayAt("products")},
	{source: SourceOrderDetails, probe: arrayAt("orderDetails")},
	{source: SourceOrderProducts, probe: arrayAt("OrderProducts", "order_products")},
}

var (
	nameKeys        = []string{"productName", "product_name", "name", "nombre"}
	nestedKeys      = []string{"product", "Product"}
	nestedNameKeys  = []string{"name", "nombre"}
	quantityKeys    = []string{"quantity", "cantidad", "qty"}
	priceKeys       = []string{"price", "unitPrice", "unit_price", "precio"}
	lineSubtotalKey = []string{"subtotal", "lineTotal", "line_total"}
)

// Normalize decodes an order payload and maps it onto a Document. Missing
// fields fall back to defaults; only malformed JSON is an error.
func Normalize(raw []byte) (Document, error) {
	order, ok := decodeRecord(raw)
	if !ok {
		return Document{}, fmt.Errorf("order payload must be a JSON object")
	}
	return fromRecord(order), nil
}

func fromRecord(order record) Document {
	doc := Document{
		Source: SourceFallback,
	}
	doc.OrderNumber, _ = order.firstString("orderNumber", "order_number", "numero", "id")
	doc.CreatedAt, _ = order.firstString("createdAt", "created_at", "fecha")
	doc.CustomerName = customerName(order)
	doc.Phone, _ = order.firstString("phone", "contactPhone", "contact_phone", "telefono")
	doc.Address, _ = order.firstString("address", "deliveryAddress", "delivery_address", "direccion")
	doc.PaymentMethod, _ = order.firstString("paymentMethod", "payment_method", "metodoPago")
	doc.PaymentLabel = PaymentLabel(doc.PaymentMethod)

	subtotal, hasSubtotal := order.firstDecimal("subtotal")
	doc.DeliveryFee, _ = order.firstDecimal("deliveryFee", "delivery_fee", "costoEnvio")

	for _, src := range lineSources {
		items, ok := src.probe(order)
		if !ok {
			continue
		}
		doc.Source = src.source
		doc.Lines = make([]Line, 0, len(items))
		for _, item := range items {
			doc.Lines = append(doc.Lines, lineFrom(item))
		}
		break
	}

	if doc.Source == SourceFallback {
		doc.Lines = []Line{{
			ProductName: FallbackProductName,
			Quantity:    1,
			Price:       subtotal,
			Subtotal:    subtotal,
		}}
	}

	if hasSubtotal {
		doc.Subtotal = subtotal
	} else {
		for _, line := range doc.Lines {
			doc.Subtotal = doc.Subtotal.Add(line.Subtotal)
		}
	}

	if total, ok := order.firstDecimal("total", "totalPrice", "total_price"); ok {
		doc.Total = total
	} else {
		doc.Total = doc.Subtotal.Add(doc.DeliveryFee)
	}
	return doc
}

func customerName(order record) string {
	if name, ok := order.firstString("customerName", "customer_name", "contactName", "contact_name", "guestName"); ok {
		return name
	}
	if customer, ok := order.firstRecord("customer", "Customer"); ok {
		name, _ := customer.firstString("name", "nombre", "fullName")
		return name
	}
	return ""
}

func lineFrom(raw json.RawMessage) Line {
	item, ok := decodeRecord(raw)
	if !ok {
		item = record{}
	}

	line := Line{Quantity: 1}
	if name, ok := item.firstString(nameKeys...); ok {
		line.ProductName = name
	} else if product, ok := item.firstRecord(nestedKeys...); ok {
		line.ProductName, _ = product.firstString(nestedNameKeys...)
	}

	if qty, ok := item.firstDecimal(quantityKeys...); ok {
		line.Quantity = int(qty.IntPart())
	}
	line.Price, _ = item.firstDecimal(priceKeys...)

	if subtotal, ok := item.firstDecimal(lineSubtotalKey...); ok {
		line.Subtotal = subtotal
	} else {
		line.Subtotal = line.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
	}
	return line
}
