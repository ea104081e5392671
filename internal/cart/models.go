package cart

import (
	"strings"
	"time"

	"github.com/angelmondragon/packfinderz-pos/pkg/enums"
	pkgerrors "github.com/angelmondragon/packfinderz-pos/pkg/errors"
	"github.com/angelmondragon/packfinderz-pos/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the catalog view the engine prices and stock-checks against.
type Product struct {
	ID                          uuid.UUID
	Name                        string
	SKU                         string
	Image                       string
	Price                       decimal.Decimal
	SalePrice                   *decimal.Decimal
	IsVariation                 bool
	PriceIncludesTax            bool
	TaxID                       *uuid.UUID
	Quantity                    int
	WithStorehouseManagement    bool
	AllowCheckoutWhenOutOfStock bool
}

// MaxLineQuantity bounds the quantity of a single cart line.
const MaxLineQuantity = 99999

// UnitPrice is the sale price when one is set, otherwise the list price.
func (p Product) UnitPrice() decimal.Decimal {
	if p.SalePrice != nil {
		return *p.SalePrice
	}
	return p.Price
}

// checkStock applies only to stock-tracked products that do not accept backorders.
func (p Product) checkStock(quantity int) error {
	if p.AllowCheckoutWhenOutOfStock || !p.WithStorehouseManagement {
		return nil
	}
	if p.Quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeOutOfStock, "product is out of stock").
			WithDetails(map[string]any{"product_id": p.ID})
	}
	if quantity > p.Quantity {
		return pkgerrors.New(pkgerrors.CodeInsufficientStock, "not enough stock available").
			WithDetails(map[string]any{"product_id": p.ID, "available": p.Quantity, "requested": quantity})
	}
	return nil
}

// Discount is a coupon definition. Quantity caps redemptions when positive.
type Discount struct {
	ID        uuid.UUID
	Code      string
	Title     string
	Kind      enums.DiscountKind
	Type      enums.DiscountType
	Value     decimal.Decimal
	StartDate time.Time
	EndDate   *time.Time
	Quantity  int
	TotalUsed int
}

func (d Discount) started(now time.Time) bool {
	return !d.StartDate.After(now)
}

func (d Discount) expired(now time.Time) bool {
	return d.EndDate != nil && d.EndDate.Before(now)
}

func (d Discount) exhausted() bool {
	return d.Quantity > 0 && d.TotalUsed >= d.Quantity
}

// activeAt reports whether the coupon may discount a cart read at now.
// Redemption caps are enforced when the code is applied, not on every read.
func (d Discount) activeAt(now time.Time) bool {
	return d.Kind == enums.DiscountKindCoupon && d.started(now) && !d.expired(now)
}

// Attribute is one selected variation descriptor, e.g. Size: Large.
type Attribute struct {
	Set   string `json:"set"`
	Value string `json:"value"`
}

// NewAttribute trims and validates a variation descriptor.
func NewAttribute(set, value string) (Attribute, error) {
	set, value = strings.TrimSpace(set), strings.TrimSpace(value)
	if set == "" || value == "" {
		return Attribute{}, pkgerrors.New(pkgerrors.CodeValidation, "attribute set and value labels are required")
	}
	return Attribute{Set: set, Value: value}, nil
}

// CartLine is one distinct product in the cart. Price, tax rate and tax mode are
// fixed when the line is first added.
type CartLine struct {
	ProductID        uuid.UUID       `json:"product_id"`
	Name             string          `json:"name"`
	SKU              string          `json:"sku,omitempty"`
	Image            string          `json:"image,omitempty"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	Quantity         int             `json:"quantity"`
	TaxRate          decimal.Decimal `json:"tax_rate"`
	PriceIncludesTax bool            `json:"price_includes_tax"`
	Attributes       []Attribute     `json:"attributes,omitempty"`
}

// LineTotal is unit price times quantity before discounts.
func (l CartLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// AddItemInput describes a product being rung up. A zero Quantity means one.
type AddItemInput struct {
	ProductID  uuid.UUID
	Quantity   int
	Attributes []Attribute
}

// TaxContext carries the location used to pick a country-specific tax rule.
type TaxContext struct {
	Country string
}

// TaxLine is the per-line tax audit entry.
type TaxLine struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Rate      decimal.Decimal `json:"rate"`
	Amount    decimal.Decimal `json:"amount"`
	Inclusive bool            `json:"inclusive"`
}

// Snapshot is the fully computed cart. It is rebuilt from session inputs on every read.
type Snapshot struct {
	Items                     []CartLine          `json:"items"`
	ItemCount                 int                 `json:"item_count"`
	Subtotal                  decimal.Decimal     `json:"subtotal"`
	CouponCode                string              `json:"coupon_code,omitempty"`
	CouponDiscountType        enums.DiscountType  `json:"coupon_discount_type,omitempty"`
	CouponDiscount            decimal.Decimal     `json:"coupon_discount"`
	ManualDiscountValue       decimal.Decimal     `json:"manual_discount_value"`
	ManualDiscountType        enums.DiscountType  `json:"manual_discount_type,omitempty"`
	ManualDiscountDescription string              `json:"manual_discount_description,omitempty"`
	ManualDiscount            decimal.Decimal     `json:"manual_discount"`
	SubtotalAfterDiscount     decimal.Decimal     `json:"subtotal_after_discount"`
	Tax                       decimal.Decimal     `json:"tax"`
	TaxDetails                []TaxLine           `json:"tax_details"`
	ShippingAmount            decimal.Decimal     `json:"shipping_amount"`
	Total                     decimal.Decimal     `json:"total"`
	CustomerID                *uuid.UUID          `json:"customer_id,omitempty"`
	PaymentMethod             enums.PaymentMethod `json:"payment_method"`

	SubtotalLabel       string `json:"subtotal_label"`
	CouponDiscountLabel string `json:"coupon_discount_label"`
	ManualDiscountLabel string `json:"manual_discount_label"`
	TaxLabel            string `json:"tax_label"`
	ShippingLabel       string `json:"shipping_label"`
	TotalLabel          string `json:"total_label"`
}

// Result pairs a soft-failure outcome with the cart as it stands afterwards.
type Result struct {
	types.Outcome
	Cart *Snapshot `json:"cart"`
}
