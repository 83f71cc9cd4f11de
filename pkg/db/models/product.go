package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aguasol/aguasol-backend/pkg/pricing"
)

// Product is a sellable item of the catalog (bidones, packs, dispensers).
// A zero wholesale price or minimum quantity leaves that tier unconfigured.
type Product struct {
	ID                    uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name                  string          `gorm:"column:name;not null"`
	Description           *string         `gorm:"column:description"`
	ImageURL              *string         `gorm:"column:image_url"`
	UnitPrice             decimal.Decimal `gorm:"column:unit_price;type:numeric(10,2);not null"`
	WholesalePrice        decimal.Decimal `gorm:"column:wholesale_price;type:numeric(10,2);not null;default:0"`
	WholesaleMinQuantity  int             `gorm:"column:wholesale_min_quantity;not null;default:0"`
	WholesalePrice2       decimal.Decimal `gorm:"column:wholesale_price_2;type:numeric(10,2);not null;default:0"`
	WholesaleMinQuantity2 int             `gorm:"column:wholesale_min_quantity_2;not null;default:0"`
	WholesalePrice3       decimal.Decimal `gorm:"column:wholesale_price_3;type:numeric(10,2);not null;default:0"`
	WholesaleMinQuantity3 int             `gorm:"column:wholesale_min_quantity_3;not null;default:0"`
	Stock                 int             `gorm:"column:stock;not null;default:0"`
	IsActive              bool            `gorm:"column:is_active;not null"`
	CreatedAt             time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// PricingRecord projects the tier columns onto the evaluator input.
func (p Product) PricingRecord() pricing.Record {
	return pricing.Record{
		UnitPrice: p.UnitPrice,
		Tier1:     pricing.Tier{Price: p.WholesalePrice, MinQuantity: p.WholesaleMinQuantity},
		Tier2:     pricing.Tier{Price: p.WholesalePrice2, MinQuantity: p.WholesaleMinQuantity2},
		Tier3:     pricing.Tier{Price: p.WholesalePrice3, MinQuantity: p.WholesaleMinQuantity3},
	}
}

// ApplyPricingRecord copies record onto the tier columns.
func (p *Product) ApplyPricingRecord(record pricing.Record) {
	p.UnitPrice = record.UnitPrice
	p.WholesalePrice, p.WholesaleMinQuantity = record.Tier1.Price, record.Tier1.MinQuantity
	p.WholesalePrice2, p.WholesaleMinQuantity2 = record.Tier2.Price, record.Tier2.MinQuantity
	p.WholesalePrice3, p.WholesaleMinQuantity3 = record.Tier3.Price, record.Tier3.MinQuantity
}
