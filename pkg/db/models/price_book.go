package models

import (
	"time"

	dbtypes "github.com/angelmondragon/pricebook-backend/pkg/db/types"
)

// PriceBook is one node of the price book tree; a nil ParentID marks the root.
type PriceBook struct {
	ID               string                   `gorm:"column:id;primaryKey"`
	ParentID         *string                  `gorm:"column:parent_id;index:price_books_parent_id_idx"`
	Name             string                   `gorm:"column:name;not null"`
	WebsiteIDs       dbtypes.IDList           `gorm:"column:website_ids;type:text;not null"`
	CustomerGroupIDs dbtypes.IDList           `gorm:"column:customer_group_ids;type:text;not null"`
	CreatedAt        time.Time                `gorm:"column:created_at;autoCreateTime"`
	Websites         []PriceBookWebsite       `gorm:"foreignKey:PriceBookID;references:ID"`
	CustomerGroups   []PriceBookCustomerGroup `gorm:"foreignKey:PriceBookID;references:ID"`
}

// TableName pins the table used by the price book repository.
func (PriceBook) TableName() string { return "price_books" }

// PriceBookWebsite records that a price book applies to a website.
type PriceBookWebsite struct {
	PriceBookID string `gorm:"column:price_book_id;primaryKey"`
	WebsiteID   int    `gorm:"column:website_id;primaryKey;index:price_book_websites_website_id_idx"`
}

func (PriceBookWebsite) TableName() string { return "price_book_websites" }

// PriceBookCustomerGroup records that a price book applies to a customer group.
type PriceBookCustomerGroup struct {
	PriceBookID     string `gorm:"column:price_book_id;primaryKey"`
	CustomerGroupID int    `gorm:"column:customer_group_id;primaryKey;index:price_book_customer_groups_group_id_idx"`
}

func (PriceBookCustomerGroup) TableName() string { return "price_book_customer_groups" }
