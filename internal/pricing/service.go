package pricing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/pricebook-backend/internal/prices"
	"github.com/angelmondragon/pricebook-backend/internal/scope"
	"github.com/angelmondragon/pricebook-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/pricebook-backend/pkg/errors"
	"github.com/angelmondragon/pricebook-backend/pkg/logger"
	"github.com/angelmondragon/pricebook-backend/pkg/metrics"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
)

type bookRepository interface {
	GetByID(ctx context.Context, id string) (*models.PriceBook, error)
	GetByScope(ctx context.Context, s scope.Scope) (*models.PriceBook, error)
	Create(ctx context.Context, name, parentID string, s scope.Scope) (string, error)
	Delete(ctx context.Context, id string) (int64, error)
	CountChildren(ctx context.Context, id string) (int64, error)
}

type priceRepository interface {
	Get(ctx context.Context, priceBookID, productID string, qty decimal.Decimal, parentID string) (*prices.Pair, error)
	Delete(ctx context.Context, priceBookID string, productIDs []string) (int64, error)
}

type resolver interface {
	DefaultBookID() string
	QtyOrDefault(qty decimal.NullDecimal) decimal.Decimal
	FetchPrice(ctx context.Context, productID, priceBookID string, qty decimal.Decimal) (prices.Value, error)
	AssignPrice(ctx context.Context, bookID string, input PriceInput, parentID string) (*Assignment, error)
}

// Service exposes price book and price operations to transports.
type Service interface {
	FindPriceBook(ctx context.Context, s scope.Scope) (*PriceBookDTO, error)
	GetPriceBook(ctx context.Context, id string) (*PriceBookDTO, error)
	CreatePriceBook(ctx context.Context, name, parentID string, s scope.Scope) (*PriceBookDTO, error)
	DeletePriceBook(ctx context.Context, id string) error
	AssignPrices(ctx context.Context, bookID string, items []PriceInput) (*AssignResult, error)
	UnassignPrices(ctx context.Context, bookID string, productIDs []string) (int64, error)
	GetPrices(ctx context.Context, bookID string, productIDs []string, qty decimal.NullDecimal) ([]ProductPrice, error)
}

type service struct {
	books   bookRepository
	prices  priceRepository
	engine  resolver
	metrics *metrics.PricingMetrics
	logg    *logger.Logger
}

// NewService builds the pricing service with the provided repositories and engine.
func NewService(books bookRepository, priceRepo priceRepository, engine resolver, m *metrics.PricingMetrics, logg *logger.Logger) (Service, error) {
	if books == nil {
		return nil, fmt.Errorf("price book repository required")
	}
	if priceRepo == nil {
		return nil, fmt.Errorf("price repository required")
	}
	if engine == nil {
		return nil, fmt.Errorf("pricing engine required")
	}
	return &service{
		books:   books,
		prices:  priceRepo,
		engine:  engine,
		metrics: m,
		logg:    logg,
	}, nil
}

func (s *service) FindPriceBook(ctx context.Context, sc scope.Scope) (*PriceBookDTO, error) {
	if err := validateScope(sc); err != nil {
		return nil, err
	}
	book, err := s.books.GetByScope(ctx, sc)
	if err != nil {
		return nil, err
	}
	return FromModel(book), nil
}

// GetPriceBook loads a book by id; an empty id selects the default book.
func (s *service) GetPriceBook(ctx context.Context, id string) (*PriceBookDTO, error) {
	book, err := s.books.GetByID(ctx, s.bookIDOrDefault(id))
	if err != nil {
		return nil, err
	}
	return FromModel(book), nil
}

func (s *service) CreatePriceBook(ctx context.Context, name, parentID string, sc scope.Scope) (*PriceBookDTO, error) {
	name = strings.TrimSpace(name)
	parentID = strings.TrimSpace(parentID)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price book name is missing in the request")
	}
	if parentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price book parent id is missing in the request")
	}
	if err := validateScope(sc); err != nil {
		return nil, err
	}

	if _, err := s.books.GetByID(ctx, parentID); err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, fmt.Sprintf("parent price book %q doesn't exist", parentID))
		}
		return nil, err
	}

	id, err := s.books.Create(ctx, name, parentID, sc)
	if err != nil {
		return nil, err
	}
	book, err := s.books.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithPriceBookID(ctx, id), "price book created")
	}
	return FromModel(book), nil
}

// DeletePriceBook removes a leaf book and its overrides. The default book and
// books with children cannot be deleted.
func (s *service) DeletePriceBook(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "price book id is missing in the request")
	}
	if id == s.engine.DefaultBookID() {
		return pkgerrors.New(pkgerrors.CodeConflict, "the default price book cannot be deleted")
	}
	if _, err := s.books.GetByID(ctx, id); err != nil {
		return err
	}

	children, err := s.books.CountChildren(ctx, id)
	if err != nil {
		return err
	}
	if children > 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("price book %q still has %d child price books", id, children)).
			WithDetails(map[string]any{"children": children})
	}

	if _, err := s.books.Delete(ctx, id); err != nil {
		return err
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithPriceBookID(ctx, id), "price book deleted")
	}
	return nil
}

// AssignPrices applies each item in order. Item failures are collected and never
// stop the remaining items.
func (s *service) AssignPrices(ctx context.Context, bookID string, items []PriceInput) (*AssignResult, error) {
	bookID = strings.TrimSpace(bookID)
	if bookID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price book id is missing in the request")
	}
	if len(items) == 0 {
		return &AssignResult{Status: StatusSuccess, Message: "prices not present in request, nothing to process"}, nil
	}

	start := time.Now()
	defer func() { s.metrics.ObserveBatch("assign", time.Since(start)) }()

	book, err := s.books.GetByID(ctx, bookID)
	if err != nil {
		return nil, err
	}

	defaultID := s.engine.DefaultBookID()
	target := book.ID
	parentID := defaultID
	if book.ParentID != nil && *book.ParentID != "" {
		parentID = *book.ParentID
	}
	toDefault := book.ID == defaultID || (len(book.WebsiteIDs) == 0 && len(book.CustomerGroupIDs) == 0)
	if toDefault {
		target = defaultID
		parentID = ""
	}

	result := &AssignResult{}
	var combined error
	for _, item := range items {
		assignment, err := s.assignOne(ctx, target, parentID, toDefault, item)
		if err != nil {
			result.Errors = append(result.Errors, ItemError{ProductID: item.ProductID, Error: err.Error()})
			combined = multierr.Append(combined, fmt.Errorf("product %s: %w", item.ProductID, err))
			continue
		}
		if assignment == nil {
			continue
		}
		switch assignment.Outcome {
		case OutcomeWritten:
			result.Written++
		case OutcomeElided:
			result.Elided++
		case OutcomeRemoved:
			result.Removed++
		}
	}

	switch {
	case len(result.Errors) == 0:
		result.Status = StatusSuccess
		result.Message = "prices were successfully assigned to price book"
	case len(result.Errors) == len(items):
		result.Status = StatusFailure
		result.Message = "no price could be assigned to price book"
	default:
		result.Status = StatusPartialSuccess
		result.Message = "some prices could not be assigned to price book"
	}

	if combined != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithPriceBookID(ctx, target), fmt.Sprintf("assign prices finished with %d item errors: %v", len(result.Errors), combined))
	}
	return result, nil
}

func (s *service) assignOne(ctx context.Context, target, parentID string, toDefault bool, item PriceInput) (*Assignment, error) {
	productID := strings.TrimSpace(item.ProductID)
	if !toDefault && productID != "" {
		qty := prices.NormalizeQty(s.engine.QtyOrDefault(item.Qty))
		if err := checkQty(qty); err != nil {
			return nil, err
		}
		if _, err := s.prices.Get(ctx, s.engine.DefaultBookID(), productID, qty, ""); err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
				return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err,
					fmt.Sprintf("product %q has no price in the default price book", productID))
			}
			return nil, err
		}
	}
	return s.engine.AssignPrice(ctx, target, item, parentID)
}

func (s *service) UnassignPrices(ctx context.Context, bookID string, productIDs []string) (int64, error) {
	bookID = strings.TrimSpace(bookID)
	if bookID == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "price book id is missing in the request")
	}
	ids := compactIDs(productIDs)
	if len(ids) == 0 {
		return 0, nil
	}
	removed, err := s.prices.Delete(ctx, bookID, ids)
	if err != nil {
		if s.logg != nil {
			s.logg.Error(s.logg.WithPriceBookID(ctx, bookID), "unable to unassign prices from price book", err)
		}
		return 0, err
	}
	return removed, nil
}

// GetPrices resolves each product independently; failures are reported inline.
func (s *service) GetPrices(ctx context.Context, bookID string, productIDs []string, qty decimal.NullDecimal) ([]ProductPrice, error) {
	ids := compactIDs(productIDs)
	if len(ids) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one product id is required")
	}

	start := time.Now()
	defer func() { s.metrics.ObserveBatch("get", time.Since(start)) }()

	book, err := s.books.GetByID(ctx, s.bookIDOrDefault(bookID))
	if err != nil {
		return nil, err
	}

	resolvedQty := s.engine.QtyOrDefault(qty)
	out := make([]ProductPrice, 0, len(ids))
	for _, id := range ids {
		value, err := s.engine.FetchPrice(ctx, id, book.ID, resolvedQty)
		if err != nil {
			out = append(out, ProductPrice{ProductID: id, Error: err.Error()})
			continue
		}
		out = append(out, ProductPrice{ProductID: id, Prices: value})
	}
	return out, nil
}

func (s *service) bookIDOrDefault(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return s.engine.DefaultBookID()
	}
	return id
}

func validateScope(sc scope.Scope) error {
	if !sc.HasWebsites() || !sc.HasCustomerGroups() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price book scope is missing in the request or has empty data")
	}
	return nil
}

func compactIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
