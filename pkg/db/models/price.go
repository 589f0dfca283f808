package models

import "github.com/shopspring/decimal"

// Price is an explicit override of a product's price magnitudes at one price book and quantity.
type Price struct {
	PriceBookID         string              `gorm:"column:pricebook_id;primaryKey"`
	EntityID            string              `gorm:"column:entity_id;primaryKey;index:prices_entity_id_idx"`
	Qty                 decimal.Decimal     `gorm:"column:qty;type:numeric(12,4);primaryKey"`
	MinimumPriceRegular decimal.NullDecimal `gorm:"column:minimum_price_regular;type:numeric(20,6)"`
	MinimumPriceFinal   decimal.NullDecimal `gorm:"column:minimum_price_final;type:numeric(20,6)"`
	MaximumPriceRegular decimal.NullDecimal `gorm:"column:maximum_price_regular;type:numeric(20,6)"`
	MaximumPriceFinal   decimal.NullDecimal `gorm:"column:maximum_price_final;type:numeric(20,6)"`
}

func (Price) TableName() string { return "prices" }
