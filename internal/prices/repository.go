package prices

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/pricebook-backend/internal/repo"
	"github.com/angelmondragon/pricebook-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/pricebook-backend/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var magnitudeColumns = []string{
	"minimum_price_regular",
	"minimum_price_final",
	"maximum_price_regular",
	"maximum_price_final",
}

// Repository persists explicit price overrides keyed by (price book, product, qty).
type Repository struct {
	repo.Base
}

// NewRepository binds a GORM DB to price record operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

type pairRow struct {
	CurMinimumPriceRegular decimal.NullDecimal `gorm:"column:cur_minimum_price_regular"`
	CurMinimumPriceFinal   decimal.NullDecimal `gorm:"column:cur_minimum_price_final"`
	CurMaximumPriceRegular decimal.NullDecimal `gorm:"column:cur_maximum_price_regular"`
	CurMaximumPriceFinal   decimal.NullDecimal `gorm:"column:cur_maximum_price_final"`
	ParMinimumPriceRegular decimal.NullDecimal `gorm:"column:par_minimum_price_regular"`
	ParMinimumPriceFinal   decimal.NullDecimal `gorm:"column:par_minimum_price_final"`
	ParMaximumPriceRegular decimal.NullDecimal `gorm:"column:par_maximum_price_regular"`
	ParMaximumPriceFinal   decimal.NullDecimal `gorm:"column:par_maximum_price_final"`
}

func (r pairRow) toPair() *Pair {
	return &Pair{
		Self: FromRecord(&models.Price{
			MinimumPriceRegular: r.CurMinimumPriceRegular,
			MinimumPriceFinal:   r.CurMinimumPriceFinal,
			MaximumPriceRegular: r.CurMaximumPriceRegular,
			MaximumPriceFinal:   r.CurMaximumPriceFinal,
		}),
		Parent: FromRecord(&models.Price{
			MinimumPriceRegular: r.ParMinimumPriceRegular,
			MinimumPriceFinal:   r.ParMinimumPriceFinal,
			MaximumPriceRegular: r.ParMaximumPriceRegular,
			MaximumPriceFinal:   r.ParMaximumPriceFinal,
		}),
	}
}

// pairQuery selects the row stored at a book together with the row stored at its
// parent. The anchor row keeps the parent side readable when the self row is absent.
func pairQuery(withParent bool) string {
	selectColumns := make([]string, 0, len(magnitudeColumns)*2)
	for _, col := range magnitudeColumns {
		selectColumns = append(selectColumns, "cur."+col+" AS cur_"+col)
	}
	for _, col := range magnitudeColumns {
		if withParent {
			selectColumns = append(selectColumns, "par."+col+" AS par_"+col)
		} else {
			selectColumns = append(selectColumns, "NULL AS par_"+col)
		}
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(selectColumns, ", "))
	b.WriteString(" FROM (SELECT 1 AS anchor) k")
	b.WriteString(" LEFT JOIN prices cur ON cur.pricebook_id = ? AND cur.entity_id = ? AND cur.qty = ?")
	if withParent {
		b.WriteString(" LEFT JOIN prices par ON par.pricebook_id = ? AND par.entity_id = ? AND par.qty = ?")
	}
	return b.String()
}

// Get reads the value at priceBookID and, when parentID is set, the value at the
// parent in the same statement. NotFound is returned only when both sides are absent.
func (r *Repository) Get(ctx context.Context, priceBookID, productID string, qty decimal.Decimal, parentID string) (*Pair, error) {
	key := QtyKey(qty)
	args := []any{priceBookID, productID, key}
	if parentID != "" {
		args = append(args, parentID, productID, key)
	}

	var row pairRow
	if err := r.DB(ctx).Raw(pairQuery(parentID != ""), args...).Scan(&row).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load price")
	}

	pair := row.toPair()
	if pair.Self.IsEmpty() && pair.Parent.IsEmpty() {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound,
			fmt.Sprintf("price for product %q at qty %s not found in price book %q", productID, key, priceBookID))
	}
	return pair, nil
}

// Save upserts a price row, replacing only the four magnitudes on conflict.
func (r *Repository) Save(ctx context.Context, rec *models.Price) (*models.Price, error) {
	if rec == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price record is required")
	}
	rec.Qty = NormalizeQty(rec.Qty)

	res := r.DB(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "pricebook_id"},
			{Name: "entity_id"},
			{Name: "qty"},
		},
		DoUpdates: clause.AssignmentColumns(magnitudeColumns),
	}).Create(rec)
	if res.Error != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, res.Error, "save price")
	}
	if res.RowsAffected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStorage, "price was not saved")
	}
	return rec, nil
}

// Delete removes every override of the given products in a price book.
func (r *Repository) Delete(ctx context.Context, priceBookID string, productIDs []string) (int64, error) {
	if len(productIDs) == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "at least one product id is required")
	}
	res := r.DB(ctx).
		Where("pricebook_id = ? AND entity_id IN ?", priceBookID, productIDs).
		Delete(&models.Price{})
	if res.Error != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "delete prices")
	}
	return res.RowsAffected, nil
}

// DeleteAt removes the single override keyed by (price book, product, qty).
func (r *Repository) DeleteAt(ctx context.Context, priceBookID, productID string, qty decimal.Decimal) (int64, error) {
	res := r.DB(ctx).
		Where("pricebook_id = ? AND entity_id = ? AND qty = ?", priceBookID, productID, QtyKey(qty)).
		Delete(&models.Price{})
	if res.Error != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "delete price")
	}
	return res.RowsAffected, nil
}

// DeleteByBook removes all overrides stored at a price book.
func (r *Repository) DeleteByBook(ctx context.Context, priceBookID string) (int64, error) {
	res := r.DB(ctx).Where("pricebook_id = ?", priceBookID).Delete(&models.Price{})
	if res.Error != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "delete price book prices")
	}
	return res.RowsAffected, nil
}
