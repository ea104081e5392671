package cart

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/packfinderz-pos/pkg/config"
	"github.com/angelmondragon/packfinderz-pos/pkg/enums"
	pkgerrors "github.com/angelmondragon/packfinderz-pos/pkg/errors"
	"github.com/angelmondragon/packfinderz-pos/pkg/logger"
	"github.com/angelmondragon/packfinderz-pos/pkg/metrics"
	"github.com/angelmondragon/packfinderz-pos/pkg/money"
	"github.com/angelmondragon/packfinderz-pos/pkg/session"
	"github.com/angelmondragon/packfinderz-pos/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Engine prices and mutates POS carts. Every call names the session store of the acting
// terminal and the prefix of the cart inside it.
type Engine interface {
	GetCart(ctx context.Context, store session.Store, prefix string) (*Snapshot, error)
	AddToCart(ctx context.Context, store session.Store, prefix string, input AddItemInput) (*Snapshot, error)
	UpdateQuantity(ctx context.Context, store session.Store, prefix string, productID uuid.UUID, quantity int) (*Snapshot, error)
	RemoveFromCart(ctx context.Context, store session.Store, prefix string, productID uuid.UUID) (*Snapshot, error)
	ClearCart(ctx context.Context, store session.Store, prefix string) error

	ApplyCoupon(ctx context.Context, store session.Store, prefix string, code string) (*Result, error)
	RemoveCoupon(ctx context.Context, store session.Store, prefix string) (*Result, error)
	UpdateShippingAmount(ctx context.Context, store session.Store, prefix string, amount decimal.Decimal) (*Result, error)
	UpdateManualDiscount(ctx context.Context, store session.Store, prefix string, input ManualDiscountInput) (*Result, error)
	RemoveManualDiscount(ctx context.Context, store session.Store, prefix string) (*Snapshot, error)

	UpdateCustomer(ctx context.Context, store session.Store, prefix string, customerID *uuid.UUID) (*Snapshot, error)
	UpdatePaymentMethod(ctx context.Context, store session.Store, prefix string, method enums.PaymentMethod) (*Snapshot, error)
	ResetCustomerAndPayment(ctx context.Context, store session.Store, prefix string) (*Snapshot, error)
}

// ManualDiscountInput is a cashier-entered ad hoc discount.
type ManualDiscountInput struct {
	Amount      decimal.Decimal
	Type        enums.DiscountType
	Description string
}

// Settings are the pricing toggles read from POS configuration.
type Settings struct {
	TaxEnabled     bool
	MultiCountry   bool
	DefaultCountry string
	Currency       money.Currency
}

// SettingsFromConfig maps POS configuration onto engine settings.
func SettingsFromConfig(cfg config.POSConfig) Settings {
	return Settings{
		TaxEnabled:     cfg.TaxEnabled,
		MultiCountry:   cfg.MultiCountry,
		DefaultCountry: cfg.DefaultCountry,
		Currency:       money.FromConfig(cfg),
	}
}

type engine struct {
	products  ProductCatalog
	discounts DiscountCatalog
	taxes     TaxRateResolver
	settings  Settings
	logg      *logger.Logger
	metrics   *metrics.OperationMetrics
	now       func() time.Time
}

// NewEngine builds a cart engine over the provided catalogs.
func NewEngine(products ProductCatalog, discounts DiscountCatalog, taxes TaxRateResolver, settings Settings, logg *logger.Logger, m *metrics.OperationMetrics) (Engine, error) {
	if products == nil {
		return nil, fmt.Errorf("product catalog required")
	}
	if discounts == nil {
		return nil, fmt.Errorf("discount catalog required")
	}
	if taxes == nil {
		return nil, fmt.Errorf("tax rate resolver required")
	}
	if settings.Currency.Decimals < 0 {
		return nil, fmt.Errorf("currency decimals must be non-negative")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &engine{
		products:  products,
		discounts: discounts,
		taxes:     taxes,
		settings:  settings,
		logg:      logg,
		metrics:   m,
		now:       time.Now,
	}, nil
}

func (e *engine) observe(operation string, start time.Time, rejected bool, err error) {
	e.metrics.Observe(operation, metrics.Outcome(rejected, err), time.Since(start))
}

func (e *engine) reject(ctx context.Context, operation string, reason enums.RejectionReason, message string) types.Outcome {
	ctx = e.logg.WithFields(ctx, map[string]any{"operation": operation, "reason": reason})
	e.logg.Info(ctx, "cart.rejected")
	return types.Reject(reason, message)
}

func (e *engine) taxContext() TaxContext {
	if !e.settings.MultiCountry {
		return TaxContext{}
	}
	return TaxContext{Country: e.settings.DefaultCountry}
}

// GetCart recomputes the cart. The stored coupon is looked up again on every read so a
// coupon that expires mid-session stops discounting.
func (e *engine) GetCart(ctx context.Context, store session.Store, prefix string) (*Snapshot, error) {
	st, err := loadState(ctx, store, prefix)
	if err != nil {
		return nil, err
	}
	return e.snapshot(ctx, st)
}

func (e *engine) snapshot(ctx context.Context, st *cartState) (*Snapshot, error) {
	var coupon *Discount
	if st.CouponCode != "" {
		found, err := e.discounts.FindCoupon(ctx, st.CouponCode)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup coupon")
		}
		if found != nil && found.activeAt(e.now()) {
			coupon = found
		}
	}
	return price(pricingInput{
		state:      st,
		coupon:     coupon,
		taxEnabled: e.settings.TaxEnabled,
		rounder:    e.settings.Currency,
		formatter:  e.settings.Currency,
	}), nil
}

func (e *engine) findProduct(ctx context.Context, id uuid.UUID) (*Product, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	product, err := e.products.FindProduct(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup product")
	}
	if product == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return product, nil
}

// AddToCart appends a line, or grows the existing line for the same product.
func (e *engine) AddToCart(ctx context.Context, store session.Store, prefix string, input AddItemInput) (snap *Snapshot, err error) {
	defer func(start time.Time) { e.observe("add_to_cart", start, false, err) }(time.Now())

	quantity := input.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if err := checkQuantity(quantity); err != nil {
		return nil, err
	}
	attributes, err := normalizeAttributes(input.Attributes)
	if err != nil {
		return nil, err
	}

	st, err := loadState(ctx, store, prefix)
	if err != nil {
		return nil, err
	}
	product, err := e.findProduct(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}

	idx, exists := st.line(product.ID)
	cumulative := quantity
	if exists {
		if quantity > MaxLineQuantity-st.Items[idx].Quantity {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidQuantity, fmt.Sprintf("line quantity cannot exceed %d", MaxLineQuantity))
		}
		cumulative += st.Items[idx].Quantity
	}
	if err := product.checkStock(cumulative); err != nil {
		return nil, err
	}

	if exists {
		st.Items[idx].Quantity = cumulative
		if len(attributes) > 0 {
			st.Items[idx].Attributes = attributes
		}
	} else {
		rate, err := e.taxes.Resolve(ctx, product, e.taxContext())
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve tax rate")
		}
		st.Items = append(st.Items, CartLine{
			ProductID:        product.ID,
			Name:             product.Name,
			SKU:              product.SKU,
			Image:            product.Image,
			UnitPrice:        product.UnitPrice(),
			Quantity:         quantity,
			TaxRate:          rate,
			PriceIncludesTax: product.PriceIncludesTax,
			Attributes:       attributes,
		})
	}

	if err := put(ctx, store, sessionKeys{prefix}.key(keyItems), st.Items); err != nil {
		return nil, err
	}
	return e.snapshot(ctx, st)
}

func checkQuantity(quantity int) error {
	if quantity < 1 {
		return pkgerrors.New(pkgerrors.CodeInvalidQuantity, "quantity must be at least 1")
	}
	if quantity > MaxLineQuantity {
		return pkgerrors.New(pkgerrors.CodeInvalidQuantity, fmt.Sprintf("quantity cannot exceed %d", MaxLineQuantity))
	}
	return nil
}

func normalizeAttributes(in []Attribute) ([]Attribute, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make([]Attribute, 0, len(in))
	for _, attr := range in {
		normalized, err := NewAttribute(attr.Set, attr.Value)
		if err != nil {
			return nil, err
		}
		out = append(out, normalized)
	}
	return out, nil
}

// UpdateQuantity sets a line's quantity. Unknown products are ignored.
func (e *engine) UpdateQuantity(ctx context.Context, store session.Store, prefix string, productID uuid.UUID, quantity int) (snap *Snapshot, err error) {
	defer func(start time.Time) { e.observe("update_quantity", start, false, err) }(time.Now())

	if err := checkQuantity(quantity); err != nil {
		return nil, err
	}
	st, err := loadState(ctx, store, prefix)
	if err != nil {
		return nil, err
	}
	idx, exists := st.line(productID)
	if !exists {
		return e.snapshot(ctx, st)
	}

	product, err := e.findProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if err := product.checkStock(quantity); err != nil {
		return nil, err
	}

	st.Items[idx].Quantity = quantity
	if err := put(ctx, store, sessionKeys{prefix}.key(keyItems), st.Items); err != nil {
		return nil, err
	}
	return e.snapshot(ctx, st)
}

// RemoveFromCart drops a line. Removing an absent product is not an error.
func (e *engine) RemoveFromCart(ctx context.Context, store session.Store, prefix string, productID uuid.UUID) (snap *Snapshot, err error) {
	defer func(start time.Time) { e.observe("remove_from_cart", start, false, err) }(time.Now())

	st, err := loadState(ctx, store, prefix)
	if err != nil {
		return nil, err
	}
	idx, exists := st.line(productID)
	if !exists {
		return e.snapshot(ctx, st)
	}
	st.Items = append(st.Items[:idx], st.Items[idx+1:]...)
	if err := put(ctx, store, sessionKeys{prefix}.key(keyItems), st.Items); err != nil {
		return nil, err
	}
	return e.snapshot(ctx, st)
}

// ClearCart empties items, coupon, manual discount and shipping. Customer and payment
// method are kept.
func (e *engine) ClearCart(ctx context.Context, store session.Store, prefix string) (err error) {
	defer func(start time.Time) { e.observe("clear_cart", start, false, err) }(time.Now())

	if store == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "session store required")
	}
	return forget(ctx, store, sessionKeys{prefix}.cartKeys()...)
}

// ApplyCoupon validates and stores a coupon code. Only the code is stored.
func (e *engine) ApplyCoupon(ctx context.Context, store session.Store, prefix string, code string) (res *Result, err error) {
	rejected := false
	defer func(start time.Time) { e.observe("apply_coupon", start, rejected, err) }(time.Now())

	st, err := loadState(ctx, store, prefix)
	if err != nil {
		return nil, err
	}

	code = strings.TrimSpace(code)
	var outcome types.Outcome
	var coupon *Discount
	if code != "" {
		coupon, err = e.discounts.FindCoupon(ctx, code)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup coupon")
		}
	}

	now := e.now()
	switch {
	case coupon == nil || coupon.Kind != enums.DiscountKindCoupon:
		outcome = e.reject(ctx, "apply_coupon", enums.RejectionCouponNotFound, "coupon code is invalid")
	case !coupon.started(now):
		outcome = e.reject(ctx, "apply_coupon", enums.RejectionCouponNotStarted, "coupon is not active yet")
	case coupon.expired(now):
		outcome = e.reject(ctx, "apply_coupon", enums.RejectionCouponExpired, "coupon has expired")
	case coupon.exhausted():
		outcome = e.reject(ctx, "apply_coupon", enums.RejectionCouponUsageLimit, "coupon usage limit has been reached")
	default:
		if err := put(ctx, store, sessionKeys{prefix}.key(keyCouponCode), coupon.Code); err != nil {
			return nil, err
		}
		st.CouponCode = coupon.Code
		outcome = types.Accept("coupon applied")
	}
	rejected = outcome.Error

	snap, err := e.snapshot(ctx, st)
	if err != nil {
		return nil, err
	}
	return &Result{Outcome: outcome, Cart: snap}, nil
}

// RemoveCoupon clears the stored coupon code.
func (e *engine) RemoveCoupon(ctx context.Context, store session.Store, prefix string) (res *Result, err error) {
	rejected := false
	defer func(start time.Time) { e.observe("remove_coupon", start, rejected, err) }(time.Now())

	st, err := loadState(ctx, store, prefix)
	if err != nil {
		return nil, err
	}

	outcome := types.Accept("coupon removed")
	if st.CouponCode == "" {
		outcome = e.reject(ctx, "remove_coupon", enums.RejectionNoCoupon, "no coupon is applied")
		rejected = true
	} else {
		if err := forget(ctx, store, sessionKeys{prefix}.key(keyCouponCode)); err != nil {
			return nil, err
		}
		st.CouponCode = ""
	}

	snap, err := e.snapshot(ctx, st)
	if err != nil {
		return nil, err
	}
	return &Result{Outcome: outcome, Cart: snap}, nil
}

// UpdateShippingAmount stores a non-negative shipping charge.
func (e *engine) UpdateShippingAmount(ctx context.Context, store session.Store, prefix string, amount decimal.Decimal) (res *Result, err error) {
	rejected := false
	defer func(start time.Time) { e.observe("update_shipping", start, rejected, err) }(time.Now())

	st, err := loadState(ctx, store, prefix)
	if err != nil {
		return nil, err
	}

	outcome := types.Accept("shipping updated")
	if amount.IsNegative() {
		outcome = e.reject(ctx, "update_shipping", enums.RejectionNegativeAmount, "shipping amount cannot be negative")
		rejected = true
	} else {
		if err := put(ctx, store, sessionKeys{prefix}.key(keyShippingAmount), amount); err != nil {
			return nil, err
		}
		st.ShippingAmount = amount
	}

	snap, err := e.snapshot(ctx, st)
	if err != nil {
		return nil, err
	}
	return &Result{Outcome: outcome, Cart: snap}, nil
}

// UpdateManualDiscount stores a cashier discount after checking it fits in what the
// coupon left of the subtotal. Nothing is stored when it does not.
func (e *engine) UpdateManualDiscount(ctx context.Context, store session.Store, prefix string, input ManualDiscountInput) (res *Result, err error) {
	rejected := false
	defer func(start time.Time) { e.observe("update_manual_discount", start, rejected, err) }(time.Now())

	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount type must be fixed or percentage")
	}

	st, err := loadState(ctx, store, prefix)
	if err != nil {
		return nil, err
	}
	current, err := e.snapshot(ctx, st)
	if err != nil {
		return nil, err
	}

	var outcome types.Outcome
	remaining := current.Subtotal.Sub(current.CouponDiscount)
	switch {
	case input.Amount.IsNegative():
		outcome = e.reject(ctx, "update_manual_discount", enums.RejectionNegativeAmount, "discount amount cannot be negative")
	case input.Type == enums.DiscountTypePercentage && input.Amount.GreaterThan(decimal.NewFromInt(100)):
		outcome = e.reject(ctx, "update_manual_discount", enums.RejectionPercentageExceeds100, "percentage discount cannot exceed 100")
	case discountAmount(input.Type, input.Amount, current.Subtotal).GreaterThan(remaining):
		outcome = e.reject(ctx, "update_manual_discount", enums.RejectionDiscountExceedsSubtotal, "discount cannot exceed the cart subtotal")
	}
	if outcome.Error {
		rejected = true
		return &Result{Outcome: outcome, Cart: current}, nil
	}

	keys := sessionKeys{prefix}
	description := strings.TrimSpace(input.Description)
	if err := put(ctx, store, keys.key(keyManualDiscount), input.Amount); err != nil {
		return nil, err
	}
	if err := put(ctx, store, keys.key(keyManualDiscountType), input.Type); err != nil {
		return nil, err
	}
	if err := put(ctx, store, keys.key(keyManualDiscountDescription), description); err != nil {
		return nil, err
	}
	st.ManualDiscount = input.Amount
	st.ManualDiscountType = input.Type
	st.ManualDiscountDescription = description

	snap, err := e.snapshot(ctx, st)
	if err != nil {
		return nil, err
	}
	return &Result{Outcome: types.Accept("discount applied"), Cart: snap}, nil
}

// RemoveManualDiscount clears the cashier discount.
func (e *engine) RemoveManualDiscount(ctx context.Context, store session.Store, prefix string) (snap *Snapshot, err error) {
	defer func(start time.Time) { e.observe("remove_manual_discount", start, false, err) }(time.Now())

	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "session store required")
	}
	if err := forget(ctx, store, sessionKeys{prefix}.manualDiscountKeys()...); err != nil {
		return nil, err
	}
	return e.GetCart(ctx, store, prefix)
}

// UpdateCustomer attaches a customer to the cart; nil detaches.
func (e *engine) UpdateCustomer(ctx context.Context, store session.Store, prefix string, customerID *uuid.UUID) (snap *Snapshot, err error) {
	defer func(start time.Time) { e.observe("update_customer", start, false, err) }(time.Now())

	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "session store required")
	}
	key := sessionKeys{prefix}.key(keyCustomerID)
	if customerID == nil || *customerID == uuid.Nil {
		err = forget(ctx, store, key)
	} else {
		err = put(ctx, store, key, customerID)
	}
	if err != nil {
		return nil, err
	}
	return e.GetCart(ctx, store, prefix)
}

func (e *engine) UpdatePaymentMethod(ctx context.Context, store session.Store, prefix string, method enums.PaymentMethod) (snap *Snapshot, err error) {
	defer func(start time.Time) { e.observe("update_payment_method", start, false, err) }(time.Now())

	if !method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment method must be cash, card or other")
	}
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "session store required")
	}
	if err := put(ctx, store, sessionKeys{prefix}.key(keyPaymentMethod), method); err != nil {
		return nil, err
	}
	return e.GetCart(ctx, store, prefix)
}

func (e *engine) ResetCustomerAndPayment(ctx context.Context, store session.Store, prefix string) (snap *Snapshot, err error) {
	defer func(start time.Time) { e.observe("reset_customer_payment", start, false, err) }(time.Now())

	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "session store required")
	}
	keys := sessionKeys{prefix}
	if err := forget(ctx, store, keys.key(keyCustomerID), keys.key(keyPaymentMethod)); err != nil {
		return nil, err
	}
	return e.GetCart(ctx, store, prefix)
}
