package pricing

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/pricebook-backend/internal/prices"
	"github.com/angelmondragon/pricebook-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/pricebook-backend/pkg/errors"
	"github.com/angelmondragon/pricebook-backend/pkg/logger"
	"github.com/angelmondragon/pricebook-backend/pkg/metrics"
	"github.com/shopspring/decimal"
)

const defaultMaxChainDepth = 32

// Outcome describes what an assignment did to the override table.
type Outcome string

const (
	OutcomeWritten Outcome = "written"
	OutcomeElided  Outcome = "elided"
	OutcomeRemoved Outcome = "removed"
)

type bookReader interface {
	GetByID(ctx context.Context, id string) (*models.PriceBook, error)
}

type priceStore interface {
	Get(ctx context.Context, priceBookID, productID string, qty decimal.Decimal, parentID string) (*prices.Pair, error)
	Save(ctx context.Context, rec *models.Price) (*models.Price, error)
	DeleteAt(ctx context.Context, priceBookID, productID string, qty decimal.Decimal) (int64, error)
}

// EngineParams wires the engine's collaborators.
type EngineParams struct {
	Books         bookReader
	Prices        priceStore
	DefaultBookID string
	MaxChainDepth int
	DefaultQty    decimal.Decimal
	Metrics       *metrics.PricingMetrics
	Logger        *logger.Logger
}

// Engine resolves effective prices over the price book tree and decides whether
// an assigned price needs its own override.
type Engine struct {
	books      bookReader
	prices     priceStore
	defaultID  string
	maxDepth   int
	defaultQty decimal.Decimal
	metrics    *metrics.PricingMetrics
	logg       *logger.Logger
}

// Assignment is the result of a single price assignment.
type Assignment struct {
	Outcome Outcome
	Record  *models.Price
}

// NewEngine validates the params and builds an Engine.
func NewEngine(p EngineParams) (*Engine, error) {
	if p.Books == nil {
		return nil, fmt.Errorf("price book reader required")
	}
	if p.Prices == nil {
		return nil, fmt.Errorf("price store required")
	}
	if strings.TrimSpace(p.DefaultBookID) == "" {
		return nil, fmt.Errorf("default price book id required")
	}
	depth := p.MaxChainDepth
	if depth <= 0 {
		depth = defaultMaxChainDepth
	}
	qty := p.DefaultQty
	if qty.IsZero() {
		qty = decimal.NewFromInt(1)
	}
	return &Engine{
		books:      p.Books,
		prices:     p.Prices,
		defaultID:  p.DefaultBookID,
		maxDepth:   depth,
		defaultQty: qty,
		metrics:    p.Metrics,
		logg:       p.Logger,
	}, nil
}

// DefaultBookID returns the id of the root price book.
func (e *Engine) DefaultBookID() string {
	return e.defaultID
}

// QtyOrDefault returns qty when set, else the configured default quantity.
func (e *Engine) QtyOrDefault(qty decimal.NullDecimal) decimal.Decimal {
	if qty.Valid {
		return qty.Decimal
	}
	return e.defaultQty
}

// checkQty rejects quantities that are not positive at the stored precision.
func checkQty(qty decimal.Decimal) error {
	if !qty.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("qty must be greater than zero, got %s", qty.StringFixed(4)))
	}
	return nil
}

// FetchPrice returns the effective price of a product at a book, climbing the
// parent chain until a level stores a value. Chain exhaustion is NotFound.
func (e *Engine) FetchPrice(ctx context.Context, productID, priceBookID string, qty decimal.Decimal) (prices.Value, error) {
	book, err := e.books.GetByID(ctx, priceBookID)
	if err != nil {
		e.metrics.ObserveFetch(metrics.FetchError, 0)
		return nil, err
	}

	value, depth, err := e.walk(ctx, productID, book.ID, e.parentOf(book), qty)
	switch {
	case err == nil:
		e.metrics.ObserveFetch(metrics.FetchFound, depth)
	case pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
		e.metrics.ObserveFetch(metrics.FetchNotFound, depth)
	default:
		e.metrics.ObserveFetch(metrics.FetchError, depth)
	}
	return value, err
}

// AssignPrice stores input at bookID unless the value it would inherit through
// parentID already equals it. A nil assignment means there was nothing to store.
func (e *Engine) AssignPrice(ctx context.Context, bookID string, input PriceInput, parentID string) (*Assignment, error) {
	update := input.Value().Normalize()
	productID := strings.TrimSpace(input.ProductID)
	if productID == "" || update.IsEmpty() {
		e.metrics.IncAssign(metrics.AssignSkipped)
		return nil, nil
	}
	qty := prices.NormalizeQty(e.QtyOrDefault(input.Qty))
	if err := checkQty(qty); err != nil {
		e.metrics.IncAssign(metrics.AssignError)
		return nil, err
	}

	if parentID != "" {
		inherited, hasOverride, err := e.inherited(ctx, productID, bookID, parentID, qty)
		if err != nil {
			e.metrics.IncAssign(metrics.AssignError)
			return nil, err
		}
		if inherited != nil && inherited.Equal(update) {
			if !hasOverride {
				e.metrics.IncAssign(metrics.AssignElided)
				return &Assignment{Outcome: OutcomeElided}, nil
			}
			if _, err := e.prices.DeleteAt(ctx, bookID, productID, qty); err != nil {
				e.metrics.IncAssign(metrics.AssignError)
				return nil, err
			}
			e.metrics.IncAssign(metrics.AssignRemoved)
			return &Assignment{Outcome: OutcomeRemoved}, nil
		}
	}

	rec, err := e.prices.Save(ctx, prices.NewRecord(bookID, productID, qty, update))
	if err != nil {
		e.metrics.IncAssign(metrics.AssignError)
		return nil, err
	}
	e.metrics.IncAssign(metrics.AssignWritten)
	return &Assignment{Outcome: OutcomeWritten, Record: rec}, nil
}

// inherited returns the nearest value stored above bookID and whether bookID
// itself holds an override for the key.
func (e *Engine) inherited(ctx context.Context, productID, bookID, parentID string, qty decimal.Decimal) (prices.Value, bool, error) {
	pair := e.read(ctx, bookID, productID, qty, parentID)
	hasOverride := pair != nil && !pair.Self.IsEmpty()
	if pair != nil && !pair.Parent.IsEmpty() {
		return pair.Parent, hasOverride, nil
	}
	if parentID == bookID {
		return nil, hasOverride, nil
	}

	value, _, err := e.walk(ctx, productID, parentID, e.loadParent(ctx, parentID), qty)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return nil, hasOverride, nil
		}
		return nil, hasOverride, err
	}
	return value, hasOverride, nil
}

// walk reads (self, parent) pairs from current upwards and returns the first
// value found along with the number of levels read.
func (e *Engine) walk(ctx context.Context, productID, current, parentID string, qty decimal.Decimal) (prices.Value, int, error) {
	for depth := 1; ; depth++ {
		if depth > e.maxDepth {
			return nil, depth - 1, pkgerrors.New(pkgerrors.CodeDataCorruption,
				fmt.Sprintf("price book chain above %q exceeds %d levels", current, e.maxDepth)).
				WithDetails(map[string]any{"price_book_id": current, "max_depth": e.maxDepth})
		}

		if value := e.read(ctx, current, productID, qty, parentID).Nearest(); value != nil {
			return value, depth, nil
		}
		if current == parentID {
			return nil, depth, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("price for product %q not found", productID))
		}

		current = parentID
		parentID = e.loadParent(ctx, current)
	}
}

// read loads one level. Any failure counts as absence at that level.
func (e *Engine) read(ctx context.Context, bookID, productID string, qty decimal.Decimal, parentID string) *prices.Pair {
	pair, err := e.prices.Get(ctx, bookID, productID, qty, parentID)
	if err != nil {
		if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) && e.logg != nil {
			ctx = e.logg.WithFields(ctx, map[string]any{
				"price_book_id": bookID,
				"product_id":    productID,
			})
			e.logg.Warn(ctx, fmt.Sprintf("price read failed, treating level as empty: %v", err))
		}
		return nil
	}
	return pair
}

// loadParent returns the parent of id, falling back to the default book when the
// book has no parent or cannot be loaded.
func (e *Engine) loadParent(ctx context.Context, id string) string {
	book, err := e.books.GetByID(ctx, id)
	if err != nil {
		if e.logg != nil {
			e.logg.Warn(e.logg.WithPriceBookID(ctx, id), fmt.Sprintf("ancestor load failed, continuing from default price book: %v", err))
		}
		return e.defaultID
	}
	return e.parentOf(book)
}

func (e *Engine) parentOf(book *models.PriceBook) string {
	if book == nil || book.ParentID == nil || strings.TrimSpace(*book.ParentID) == "" {
		return e.defaultID
	}
	return *book.ParentID
}
