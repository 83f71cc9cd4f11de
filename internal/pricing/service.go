// Package pricing serves tier evaluations for catalog products.
package pricing

import (
	"context"
	"errors"
	"fmt"

	"github.com/aguasol/aguasol-backend/pkg/db/models"
	pkgerrors "github.com/aguasol/aguasol-backend/pkg/errors"
	"github.com/aguasol/aguasol-backend/pkg/pricing"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type productReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// Service prices a quantity of one stored product.
type Service interface {
	Calculate(ctx context.Context, productID uuid.UUID, quantity int) (*Quote, error)
}

// Quote is the priced quantity returned to clients. It embeds the evaluator
// result so the wire shape matches pricing.Result plus identifying fields.
type Quote struct {
	pricing.Result
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Quantity    int       `json:"quantity"`
}

type service struct {
	products productReader
}

// NewService builds the pricing service.
func NewService(products productReader) (Service, error) {
	if products == nil {
		return nil, fmt.Errorf("product reader required")
	}
	return &service{products: products}, nil
}

func (s *service) Calculate(ctx context.Context, productID uuid.UUID, quantity int) (*Quote, error) {
	if err := ValidateQuantity(quantity); err != nil {
		return nil, err
	}
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return &Quote{
		Result:      pricing.Evaluate(product.PricingRecord(), quantity),
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    quantity,
	}, nil
}

// ValidateQuantity rejects quantities the evaluator would otherwise price
// as zero or negative totals.
func ValidateQuantity(quantity int) error {
	if quantity < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1").
			WithDetails(map[string]any{"quantity": quantity})
	}
	return nil
}
