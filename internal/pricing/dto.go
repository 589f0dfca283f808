package pricing

import (
	"time"

	"github.com/angelmondragon/pricebook-backend/internal/prices"
	"github.com/angelmondragon/pricebook-backend/internal/scope"
	"github.com/angelmondragon/pricebook-backend/pkg/db/models"
	"github.com/shopspring/decimal"
)

// BatchStatus summarizes a batch price operation.
type BatchStatus string

const (
	StatusSuccess        BatchStatus = "success"
	StatusPartialSuccess BatchStatus = "partial_success"
	StatusFailure        BatchStatus = "failure"
)

// PriceBookDTO exposes a price book in API responses.
type PriceBookDTO struct {
	ID        string      `json:"id"`
	ParentID  *string     `json:"parent_id,omitempty"`
	Name      string      `json:"name"`
	Scope     scope.Scope `json:"scope"`
	CreatedAt time.Time   `json:"created_at"`
}

// FromModel maps the persisted price book into a DTO.
func FromModel(m *models.PriceBook) *PriceBookDTO {
	if m == nil {
		return nil
	}
	dto := &PriceBookDTO{
		ID:   m.ID,
		Name: m.Name,
		Scope: scope.Scope{
			Websites:       append([]int{}, m.WebsiteIDs...),
			CustomerGroups: append([]int{}, m.CustomerGroupIDs...),
		},
		CreatedAt: m.CreatedAt,
	}
	if m.ParentID != nil {
		parent := *m.ParentID
		dto.ParentID = &parent
	}
	return dto
}

// PriceInput is one product price to assign. Qty defaults to the configured
// quantity when omitted.
type PriceInput struct {
	ProductID    string              `json:"product_id" validate:"required"`
	Qty          decimal.NullDecimal `json:"qty"`
	MinimumPrice *prices.Amount      `json:"minimum_price,omitempty"`
	MaximumPrice *prices.Amount      `json:"maximum_price,omitempty"`
}

// Value collects the amounts carried by the input.
func (p PriceInput) Value() prices.Value {
	v := prices.Value{}
	if p.MinimumPrice != nil {
		v[prices.MinimumPrice] = *p.MinimumPrice
	}
	if p.MaximumPrice != nil {
		v[prices.MaximumPrice] = *p.MaximumPrice
	}
	return v
}

// ItemError reports the failure of one product inside a batch.
type ItemError struct {
	ProductID string `json:"product_id"`
	Error     string `json:"error"`
}

// AssignResult is the outcome of an assign batch.
type AssignResult struct {
	Status  BatchStatus `json:"status"`
	Message string      `json:"message"`
	Written int         `json:"written"`
	Elided  int         `json:"elided"`
	Removed int         `json:"removed"`
	Errors  []ItemError `json:"errors,omitempty"`
}

// ProductPrice is the effective price of one product, or the reason it could not be resolved.
type ProductPrice struct {
	ProductID string       `json:"product_id"`
	Prices    prices.Value `json:"prices,omitempty"`
	Error     string       `json:"error,omitempty"`
}
