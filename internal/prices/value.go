package prices

import (
	"github.com/angelmondragon/pricebook-backend/pkg/db/models"
	"github.com/shopspring/decimal"
)

// Type names a price dimension stored per record.
type Type string

const (
	MinimumPrice Type = "minimum_price"
	MaximumPrice Type = "maximum_price"
)

// Types lists every known price type in storage order.
var Types = []Type{MinimumPrice, MaximumPrice}

// Valid reports whether t is a known price type.
func (t Type) Valid() bool {
	for _, known := range Types {
		if t == known {
			return true
		}
	}
	return false
}

// Amount holds the regular and final magnitudes of one price type. Either may be null.
type Amount struct {
	Regular decimal.NullDecimal `json:"regular"`
	Final   decimal.NullDecimal `json:"final"`
}

func (a Amount) IsEmpty() bool {
	return !a.Regular.Valid && !a.Final.Valid
}

// Equal compares both magnitudes numerically; null only equals null.
func (a Amount) Equal(b Amount) bool {
	return nullEqual(a.Regular, b.Regular) && nullEqual(a.Final, b.Final)
}

// Value is a set of amounts keyed by price type. Types with no magnitude are omitted.
type Value map[Type]Amount

// IsEmpty reports whether no type carries a magnitude.
func (v Value) IsEmpty() bool {
	for _, amount := range v {
		if !amount.IsEmpty() {
			return false
		}
	}
	return true
}

// Equal reports whether both values agree on every known type, absent matching absent.
func (v Value) Equal(other Value) bool {
	for _, t := range Types {
		if !v[t].Equal(other[t]) {
			return false
		}
	}
	return true
}

// Normalize drops unknown types and types whose amount is empty.
func (v Value) Normalize() Value {
	out := Value{}
	for _, t := range Types {
		if amount, ok := v[t]; ok && !amount.IsEmpty() {
			out[t] = amount
		}
	}
	return out
}

// Pair is the value stored at a price book alongside the value stored at its parent.
type Pair struct {
	Self   Value
	Parent Value
}

// Nearest returns the self value when present, else the parent value.
func (p *Pair) Nearest() Value {
	if p == nil {
		return nil
	}
	if !p.Self.IsEmpty() {
		return p.Self
	}
	if !p.Parent.IsEmpty() {
		return p.Parent
	}
	return nil
}

// FromRecord extracts the value stored on a price row.
func FromRecord(rec *models.Price) Value {
	if rec == nil {
		return Value{}
	}
	return Value{
		MinimumPrice: {Regular: rec.MinimumPriceRegular, Final: rec.MinimumPriceFinal},
		MaximumPrice: {Regular: rec.MaximumPriceRegular, Final: rec.MaximumPriceFinal},
	}.Normalize()
}

// NewRecord builds the price row that materializes v for a product at a book and quantity.
func NewRecord(priceBookID, productID string, qty decimal.Decimal, v Value) *models.Price {
	minimum := v[MinimumPrice]
	maximum := v[MaximumPrice]
	return &models.Price{
		PriceBookID:         priceBookID,
		EntityID:            productID,
		Qty:                 NormalizeQty(qty),
		MinimumPriceRegular: minimum.Regular,
		MinimumPriceFinal:   minimum.Final,
		MaximumPriceRegular: maximum.Regular,
		MaximumPriceFinal:   maximum.Final,
	}
}

// NormalizeQty rounds a quantity to the four decimal places used by the record key.
func NormalizeQty(qty decimal.Decimal) decimal.Decimal {
	return qty.Round(4)
}

// QtyKey renders a quantity the way it is bound in record lookups.
func QtyKey(qty decimal.Decimal) string {
	return qty.Round(4).StringFixed(4)
}

func nullEqual(a, b decimal.NullDecimal) bool {
	if a.Valid != b.Valid {
		return false
	}
	if !a.Valid {
		return true
	}
	return a.Decimal.Equal(b.Decimal)
}
