package products

import (
	"time"

	"github.com/aguasol/aguasol-backend/pkg/db/models"
	"github.com/aguasol/aguasol-backend/pkg/pricing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductDTO is the catalog payload returned to clients. Its shape matches
// what the remote pricing client decodes.
type ProductDTO struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	ImageURL    string          `json:"image_url,omitempty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Pricing     pricing.Record  `json:"pricing"`
	Stock       int             `json:"stock"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// FromModel maps a product row onto its DTO.
func FromModel(p models.Product) ProductDTO {
	dto := ProductDTO{
		ID:        p.ID,
		Name:      p.Name,
		UnitPrice: p.UnitPrice,
		Pricing:   p.PricingRecord(),
		Stock:     p.Stock,
		IsActive:  p.IsActive,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	if p.Description != nil {
		dto.Description = *p.Description
	}
	if p.ImageURL != nil {
		dto.ImageURL = *p.ImageURL
	}
	return dto
}

// TierInput is one wholesale bracket in a write request.
type TierInput struct {
	Price       decimal.Decimal `json:"price"`
	MinQuantity int             `json:"min_quantity" validate:"gte=0"`
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	Name        string          `json:"name" validate:"required,min=2,max=120"`
	Description *string         `json:"description,omitempty" validate:"omitempty,max=1000"`
	ImageURL    *string         `json:"image_url,omitempty" validate:"omitempty,url"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Tier1       TierInput       `json:"tier1"`
	Tier2       TierInput       `json:"tier2"`
	Tier3       TierInput       `json:"tier3"`
	Stock       int             `json:"stock" validate:"gte=0"`
	IsActive    *bool           `json:"is_active,omitempty"`
}

func (in CreateProductInput) record() pricing.Record {
	return pricing.Record{
		UnitPrice: in.UnitPrice,
		Tier1:     pricing.Tier{Price: in.Tier1.Price, MinQuantity: in.Tier1.MinQuantity},
		Tier2:     pricing.Tier{Price: in.Tier2.Price, MinQuantity: in.Tier2.MinQuantity},
		Tier3:     pricing.Tier{Price: in.Tier3.Price, MinQuantity: in.Tier3.MinQuantity},
	}
}

// UpdateProductInput holds optional mutation values. Tiers are replaced as a
// whole when present.
type UpdateProductInput struct {
	Name        *string          `json:"name,omitempty" validate:"omitempty,min=2,max=120"`
	Description *string          `json:"description,omitempty" validate:"omitempty,max=1000"`
	ImageURL    *string          `json:"image_url,omitempty" validate:"omitempty,url"`
	UnitPrice   *decimal.Decimal `json:"unit_price,omitempty"`
	Tier1       *TierInput       `json:"tier1,omitempty"`
	Tier2       *TierInput       `json:"tier2,omitempty"`
	Tier3       *TierInput       `json:"tier3,omitempty"`
	Stock       *int             `json:"stock,omitempty" validate:"omitempty,gte=0"`
	IsActive    *bool            `json:"is_active,omitempty"`
}

// ListProductsInput captures the catalog filters.
type ListProductsInput struct {
	IncludeInactive bool
	Query           string
	Limit           int
	Cursor          string
}
