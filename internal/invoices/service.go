package invoices

import (
	"context"
	"fmt"
	"strings"

	"github.com/aguasol/aguasol-backend/internal/orders"
	"github.com/aguasol/aguasol-backend/pkg/document"
	pkgerrors "github.com/aguasol/aguasol-backend/pkg/errors"
	"github.com/google/uuid"
)

type orderReader interface {
	Get(ctx context.Context, orderID uuid.UUID) (*orders.OrderDTO, error)
	GetForCustomer(ctx context.Context, customerID, orderID uuid.UUID) (*orders.OrderDTO, error)
}

// Invoice is a rendered PDF plus the download name.
type Invoice struct {
	Filename string
	Content  []byte
}

type Service interface {
	ForOrder(ctx context.Context, orderID uuid.UUID) (*Invoice, error)
	ForCustomerOrder(ctx context.Context, customerID, orderID uuid.UUID) (*Invoice, error)
	RenderPayload(ctx context.Context, raw []byte) (*Invoice, error)
}

type service struct {
	orders   orderReader
	renderer *Renderer
}

func NewService(orders orderReader, renderer *Renderer) (Service, error) {
	if orders == nil {
		return nil, fmt.Errorf("order reader required")
	}
	if renderer == nil {
		return nil, fmt.Errorf("renderer required")
	}
	return &service{orders: orders, renderer: renderer}, nil
}

func (s *service) ForOrder(ctx context.Context, orderID uuid.UUID) (*Invoice, error) {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.render(FromOrder(*order))
}

func (s *service) ForCustomerOrder(ctx context.Context, customerID, orderID uuid.UUID) (*Invoice, error) {
	order, err := s.orders.GetForCustomer(ctx, customerID, orderID)
	if err != nil {
		return nil, err
	}
	return s.render(FromOrder(*order))
}

// RenderPayload renders an order in any of the legacy payload shapes.
func (s *service) RenderPayload(_ context.Context, raw []byte) (*Invoice, error) {
	doc, err := document.Normalize(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	return s.render(doc)
}

func (s *service) render(doc document.Document) (*Invoice, error) {
	content, err := s.renderer.Render(doc)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render invoice")
	}
	return &Invoice{Filename: filename(doc.OrderNumber), Content: content}, nil
}

// FromOrder maps a stored order onto the renderer layout.
func FromOrder(order orders.OrderDTO) document.Document {
	doc := document.Document{
		OrderNumber:   order.Code,
		CreatedAt:     order.CreatedAt.Format("02/01/2006 15:04"),
		CustomerName:  order.ContactName,
		Phone:         order.ContactPhone,
		Address:       order.DeliveryAddress,
		PaymentMethod: string(order.PaymentMethod),
		PaymentLabel:  order.PaymentLabel,
		Source:        document.SourceItems,
		Subtotal:      order.Subtotal,
		DeliveryFee:   order.DeliveryFee,
		Total:         order.Total,
	}
	for _, item := range order.Items {
		doc.Lines = append(doc.Lines, document.Line{
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Price:       item.UnitPrice,
			Subtotal:    item.Subtotal,
		})
	}
	return doc
}

func filename(orderNumber string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return -1
	}, orderNumber)
	if name == "" {
		name = "pedido"
	}
	return "comprobante-" + name + ".pdf"
}
