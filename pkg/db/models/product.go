package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a sellable catalog entry. Variations point at their parent and may leave
// PriceIncludesTax unset to inherit it.
type Product struct {
	ID                          uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	ParentID                    *uuid.UUID          `gorm:"column:parent_id;type:uuid"`
	IsVariation                 bool                `gorm:"column:is_variation;not null;default:false"`
	Name                        string              `gorm:"column:name;not null"`
	SKU                         string              `gorm:"column:sku"`
	Image                       string              `gorm:"column:image"`
	Price                       decimal.Decimal     `gorm:"column:price;type:numeric(15,4);not null"`
	SalePrice                   decimal.NullDecimal `gorm:"column:sale_price;type:numeric(15,4)"`
	PriceIncludesTax            *bool               `gorm:"column:price_includes_tax"`
	TaxID                       *uuid.UUID          `gorm:"column:tax_id;type:uuid"`
	Quantity                    int                 `gorm:"column:quantity;not null;default:0"`
	WithStorehouseManagement    bool                `gorm:"column:with_storehouse_management;not null;default:false"`
	AllowCheckoutWhenOutOfStock bool                `gorm:"column:allow_checkout_when_out_of_stock;not null;default:false"`
	CreatedAt                   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt                   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (Product) TableName() string { return "pos_products" }

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
