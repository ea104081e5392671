// Package catalog serves products, coupons and tax rates to the cart engine from Postgres.
package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/packfinderz-pos/internal/cart"
	"github.com/angelmondragon/packfinderz-pos/internal/repo"
	"github.com/angelmondragon/packfinderz-pos/pkg/db/models"
	"github.com/angelmondragon/packfinderz-pos/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Repository implements cart.ProductCatalog, cart.DiscountCatalog and cart.TaxRateResolver.
type Repository struct {
	repo.Base
}

var (
	_ cart.ProductCatalog  = (*Repository)(nil)
	_ cart.DiscountCatalog = (*Repository)(nil)
	_ cart.TaxRateResolver = (*Repository)(nil)
)

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// FindProduct loads a product. Variations inherit the tax class and tax-inclusive flag
// of their parent when they do not set their own.
func (r *Repository) FindProduct(ctx context.Context, id uuid.UUID) (*cart.Product, error) {
	var row models.Product
	found, err := r.First(ctx, &row, "id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("find product %s: %w", id, err)
	}
	if !found {
		return nil, nil
	}

	includesTax := row.PriceIncludesTax
	taxID := row.TaxID
	if row.IsVariation && row.ParentID != nil && (includesTax == nil || taxID == nil) {
		var parent models.Product
		found, err := r.First(ctx, &parent, "id = ?", *row.ParentID)
		if err != nil {
			return nil, fmt.Errorf("find parent product %s: %w", *row.ParentID, err)
		}
		if found {
			if includesTax == nil {
				includesTax = parent.PriceIncludesTax
			}
			if taxID == nil {
				taxID = parent.TaxID
			}
		}
	}

	product := &cart.Product{
		ID:                          row.ID,
		Name:                        row.Name,
		SKU:                         row.SKU,
		Image:                       row.Image,
		Price:                       row.Price,
		IsVariation:                 row.IsVariation,
		PriceIncludesTax:            includesTax != nil && *includesTax,
		TaxID:                       taxID,
		Quantity:                    row.Quantity,
		WithStorehouseManagement:    row.WithStorehouseManagement,
		AllowCheckoutWhenOutOfStock: row.AllowCheckoutWhenOutOfStock,
	}
	if row.SalePrice.Valid {
		sale := row.SalePrice.Decimal
		product.SalePrice = &sale
	}
	return product, nil
}

// FindCoupon matches the code exactly among coupon-type discounts.
func (r *Repository) FindCoupon(ctx context.Context, code string) (*cart.Discount, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}
	var row models.Discount
	found, err := r.First(ctx, &row, "code = ? AND type = ?", code, enums.DiscountKindCoupon)
	if err != nil {
		return nil, fmt.Errorf("find coupon: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &cart.Discount{
		ID:        row.ID,
		Code:      row.Code,
		Title:     row.Title,
		Kind:      row.Type,
		Type:      row.TypeOption,
		Value:     row.Value,
		StartDate: row.StartDate,
		EndDate:   row.EndDate,
		Quantity:  row.Quantity,
		TotalUsed: row.TotalUsed,
	}, nil
}

// Resolve returns the product's tax percentage. Products without a tax class use the
// default tax. A country rule on the tax class wins when a country is given.
func (r *Repository) Resolve(ctx context.Context, product *cart.Product, taxCtx cart.TaxContext) (decimal.Decimal, error) {
	if product == nil {
		return decimal.Zero, nil
	}

	var tax models.Tax
	var found bool
	var err error
	if product.TaxID != nil {
		found, err = r.First(ctx, &tax, "id = ?", *product.TaxID)
	} else {
		found, err = r.First(ctx, &tax, "is_default = ?", true)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("find tax: %w", err)
	}
	if !found {
		return decimal.Zero, nil
	}

	country := strings.ToUpper(strings.TrimSpace(taxCtx.Country))
	if country != "" {
		var rule models.TaxRule
		found, err := r.First(ctx, &rule, "tax_id = ? AND country = ?", tax.ID, country)
		if err != nil {
			return decimal.Zero, fmt.Errorf("find tax rule: %w", err)
		}
		if found {
			return rule.Percentage, nil
		}
	}
	return tax.Percentage, nil
}
