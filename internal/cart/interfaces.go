package cart

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductCatalog resolves sellable products. FindProduct returns nil, nil when the id is unknown.
type ProductCatalog interface {
	FindProduct(ctx context.Context, id uuid.UUID) (*Product, error)
}

// DiscountCatalog resolves coupon codes. FindCoupon returns nil, nil when no coupon matches.
type DiscountCatalog interface {
	FindCoupon(ctx context.Context, code string) (*Discount, error)
}

// TaxRateResolver returns the tax percentage applicable to a product.
type TaxRateResolver interface {
	Resolve(ctx context.Context, product *Product, taxCtx TaxContext) (decimal.Decimal, error)
}

// CurrencyFormatter renders amounts for display fields only.
type CurrencyFormatter interface {
	Format(amount decimal.Decimal) string
}

// Rounder rounds an amount to the active currency's minor unit.
type Rounder interface {
	Round(amount decimal.Decimal) decimal.Decimal
}
