package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Level names the price bracket a quantity landed in.
type Level string

const (
	LevelNormal   Level = "normal"
	LevelMayoreo1 Level = "mayoreo1"
	LevelMayoreo2 Level = "mayoreo2"
	LevelMayoreo3 Level = "mayoreo3"
)

var validLevels = []Level{
	LevelNormal,
	LevelMayoreo1,
	LevelMayoreo2,
	LevelMayoreo3,
}

// String implements fmt.Stringer.
func (l Level) String() string {
	return string(l)
}

// IsValid reports whether the value is a known Level.
func (l Level) IsValid() bool {
	for _, candidate := range validLevels {
		if candidate == l {
			return true
		}
	}
	return false
}

// ParseLevel converts raw input into a Level.
func ParseLevel(value string) (Level, error) {
	for _, candidate := range validLevels {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid price level %q", value)
}

// Tier is a wholesale bracket. A zero price or zero minimum quantity means
// the tier is not configured.
type Tier struct {
	Price       decimal.Decimal `json:"price"`
	MinQuantity int             `json:"min_quantity"`
}

func (t Tier) configured() bool {
	return !t.Price.IsZero() && t.MinQuantity != 0
}

func (t Tier) appliesTo(quantity int) bool {
	return t.configured() && quantity >= t.MinQuantity
}

// Record holds the pricing attributes of a product.
type Record struct {
	UnitPrice decimal.Decimal `json:"unit_price"`
	Tier1     Tier            `json:"tier1"`
	Tier2     Tier            `json:"tier2"`
	Tier3     Tier            `json:"tier3"`
}

// Result is the outcome of pricing a quantity of one product.
type Result struct {
	UnitPrice       decimal.Decimal  `json:"unit_price"`
	TotalPrice      decimal.Decimal  `json:"total_price"`
	OriginalPrice   decimal.Decimal  `json:"original_price"`
	DiscountApplied *decimal.Decimal `json:"discount_applied"`
	PriceLevel      Level            `json:"price_level"`
	Savings         decimal.Decimal  `json:"savings"`
}

// Discounted reports whether a wholesale tier matched.
func (r Result) Discounted() bool {
	return r.PriceLevel != LevelNormal && r.DiscountApplied != nil
}

// Evaluate prices quantity units of the record. Tiers are checked deepest
// first (tier 3, tier 2, tier 1) and the first match wins. Quantity is not
// validated here; callers that accept user input reject quantity < 1.
func Evaluate(record Record, quantity int) Result {
	qty := decimal.NewFromInt(int64(quantity))

	unitPrice := record.UnitPrice
	level := LevelNormal
	switch {
	case record.Tier3.appliesTo(quantity):
		unitPrice, level = record.Tier3.Price, LevelMayoreo3
	case record.Tier2.appliesTo(quantity):
		unitPrice, level = record.Tier2.Price, LevelMayoreo2
	case record.Tier1.appliesTo(quantity):
		unitPrice, level = record.Tier1.Price, LevelMayoreo1
	}

	result := Result{
		UnitPrice:     unitPrice,
		TotalPrice:    unitPrice.Mul(qty),
		OriginalPrice: record.UnitPrice,
		PriceLevel:    level,
		Savings:       decimal.Zero,
	}
	if level != LevelNormal {
		discount := record.UnitPrice.Sub(unitPrice)
		result.DiscountApplied = &discount
		result.Savings = discount.Mul(qty)
	}
	return result
}

// PriceScale is the number of decimal places a stored price may carry.
const PriceScale = 2

// Validate checks the record invariants that Evaluate trusts: a positive
// unit price, tier minimums that grow with the tier number and tier prices
// that never exceed the previous bracket. Prices must fit in PriceScale
// decimal places.
func (r Record) Validate() error {
	if !r.UnitPrice.IsPositive() {
		return fmt.Errorf("unit price must be greater than zero")
	}
	if !fitsScale(r.UnitPrice) {
		return fmt.Errorf("unit price allows at most %d decimal places", PriceScale)
	}

	prevPrice := r.UnitPrice
	prevMin := 0
	prevName := "unit price"
	for i, tier := range []Tier{r.Tier1, r.Tier2, r.Tier3} {
		name := fmt.Sprintf("tier %d", i+1)
		if tier.Price.IsZero() != (tier.MinQuantity == 0) {
			return fmt.Errorf("%s requires both price and minimum quantity", name)
		}
		if !tier.configured() {
			continue
		}
		if tier.Price.IsNegative() {
			return fmt.Errorf("%s price must be positive", name)
		}
		if !fitsScale(tier.Price) {
			return fmt.Errorf("%s price allows at most %d decimal places", name, PriceScale)
		}
		if tier.MinQuantity < 1 {
			return fmt.Errorf("%s minimum quantity must be at least 1", name)
		}
		if tier.MinQuantity <= prevMin {
			return fmt.Errorf("%s minimum quantity must exceed %d", name, prevMin)
		}
		if tier.Price.GreaterThan(prevPrice) {
			return fmt.Errorf("%s price %s exceeds %s %s", name, tier.Price.StringFixed(2), prevName, prevPrice.StringFixed(2))
		}
		prevPrice = tier.Price
		prevMin = tier.MinQuantity
		prevName = name
	}
	return nil
}

func fitsScale(d decimal.Decimal) bool {
	return d.Equal(d.Round(PriceScale))
}
