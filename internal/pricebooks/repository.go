package pricebooks

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/pricebook-backend/internal/prices"
	"github.com/angelmondragon/pricebook-backend/internal/repo"
	"github.com/angelmondragon/pricebook-backend/internal/scope"
	"github.com/angelmondragon/pricebook-backend/pkg/db"
	"github.com/angelmondragon/pricebook-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/pricebook-backend/pkg/db/types"
	pkgerrors "github.com/angelmondragon/pricebook-backend/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository handles price book persistence.
type Repository struct {
	repo.Base
}

// NewRepository binds a GORM DB to price book operations.
func NewRepository(conn *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(conn)}
}

// GetByID loads a price book by id.
func (r *Repository) GetByID(ctx context.Context, id string) (*models.PriceBook, error) {
	var book models.PriceBook
	if err := r.DB(ctx).Where("id = ?", id).First(&book).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("price book with id %q doesn't exist", id))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load price book")
	}
	return &book, nil
}

// GetByScope loads the price book whose id is derived from s.
func (r *Repository) GetByScope(ctx context.Context, s scope.Scope) (*models.PriceBook, error) {
	return r.GetByID(ctx, scope.Build(s))
}

// Create inserts a price book and its membership rows, returning the derived id.
func (r *Repository) Create(ctx context.Context, name, parentID string, s scope.Scope) (string, error) {
	normalized := s.Normalize()
	id := scope.Build(normalized)

	book := &models.PriceBook{
		ID:               id,
		Name:             name,
		WebsiteIDs:       dbtypes.IDList(normalized.Websites),
		CustomerGroupIDs: dbtypes.IDList(normalized.CustomerGroups),
	}
	if parentID != "" {
		book.ParentID = &parentID
	}

	err := r.Transaction(ctx, func(tx *gorm.DB) error {
		if err := validateUnique(tx, normalized); err != nil {
			return err
		}

		res := tx.Omit("Websites", "CustomerGroups").Create(book)
		if res.Error != nil {
			if db.IsUniqueViolation(res.Error, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, res.Error, fmt.Sprintf("price book with id %q already exists", id))
			}
			return pkgerrors.Wrap(pkgerrors.CodeStorage, res.Error, "create price book")
		}
		if res.RowsAffected == 0 {
			return pkgerrors.New(pkgerrors.CodeStorage, "price book wasn't created")
		}

		return insertMembership(tx, id, normalized)
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

type membershipHit struct {
	PriceBookID     string `gorm:"column:price_book_id"`
	CustomerGroupID int    `gorm:"column:customer_group_id"`
}

// validateUnique rejects a scope when any book sharing one of its websites
// already claims one of its customer groups.
func validateUnique(tx *gorm.DB, s scope.Scope) error {
	if !s.HasWebsites() || !s.HasCustomerGroups() {
		return nil
	}

	var hit membershipHit
	res := tx.Table("price_book_websites w").
		Select("w.price_book_id, g.customer_group_id").
		Joins("JOIN price_book_customer_groups g ON g.price_book_id = w.price_book_id").
		Where("w.website_id IN ?", s.Websites).
		Where("g.customer_group_id IN ?", s.CustomerGroups).
		Order("w.price_book_id").
		Order("g.customer_group_id").
		Limit(1).
		Scan(&hit)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "check price book scope")
	}
	if res.RowsAffected == 0 {
		return nil
	}

	return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf(
		"can't create price book with scope provided: customer group %d is already present in price book with id %s",
		hit.CustomerGroupID, hit.PriceBookID,
	)).WithDetails(map[string]any{
		"customer_group_id": hit.CustomerGroupID,
		"price_book_id":     hit.PriceBookID,
	})
}

func insertMembership(tx *gorm.DB, id string, s scope.Scope) error {
	if s.HasWebsites() {
		rows := make([]models.PriceBookWebsite, 0, len(s.Websites))
		for _, websiteID := range s.Websites {
			rows = append(rows, models.PriceBookWebsite{PriceBookID: id, WebsiteID: websiteID})
		}
		if err := tx.Create(&rows).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "create price book websites")
		}
	}
	if s.HasCustomerGroups() {
		rows := make([]models.PriceBookCustomerGroup, 0, len(s.CustomerGroups))
		for _, groupID := range s.CustomerGroups {
			rows = append(rows, models.PriceBookCustomerGroup{PriceBookID: id, CustomerGroupID: groupID})
		}
		if err := tx.Create(&rows).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "create price book customer groups")
		}
	}
	return nil
}

// Delete removes a price book together with its membership rows and price
// overrides. It returns the number of book rows removed.
func (r *Repository) Delete(ctx context.Context, id string) (int64, error) {
	var removed int64
	err := r.Transaction(ctx, func(tx *gorm.DB) error {
		if _, err := prices.NewRepository(tx).DeleteByBook(ctx, id); err != nil {
			return err
		}
		if err := tx.Where("price_book_id = ?", id).Delete(&models.PriceBookWebsite{}).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete price book websites")
		}
		if err := tx.Where("price_book_id = ?", id).Delete(&models.PriceBookCustomerGroup{}).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete price book customer groups")
		}
		res := tx.Where("id = ?", id).Delete(&models.PriceBook{})
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "delete price book")
		}
		removed = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// CountChildren returns how many books name id as their parent.
func (r *Repository) CountChildren(ctx context.Context, id string) (int64, error) {
	var count int64
	if err := r.DB(ctx).Model(&models.PriceBook{}).Where("parent_id = ?", id).Count(&count).Error; err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count child price books")
	}
	return count, nil
}

// EnsureDefault inserts the root price book when it is missing and reports
// whether a row was created.
func (r *Repository) EnsureDefault(ctx context.Context, id, name string) (bool, error) {
	if id == "" {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "default price book id is required")
	}
	book := &models.PriceBook{
		ID:               id,
		Name:             name,
		WebsiteIDs:       dbtypes.IDList{},
		CustomerGroupIDs: dbtypes.IDList{},
	}
	res := r.DB(ctx).
		Omit("Websites", "CustomerGroups").
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(book)
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeStorage, res.Error, "create default price book")
	}
	return res.RowsAffected > 0, nil
}
