package cart

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/angelmondragon/packfinderz-pos/pkg/enums"
	pkgerrors "github.com/angelmondragon/packfinderz-pos/pkg/errors"
	"github.com/angelmondragon/packfinderz-pos/pkg/metrics"
	"github.com/angelmondragon/packfinderz-pos/pkg/money"
	"github.com/angelmondragon/packfinderz-pos/pkg/session"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

var (
	usd = money.Currency{Code: "USD", Symbol: "$", Decimals: 2}
	jpy = money.Currency{Code: "JPY", Symbol: "¥", Decimals: 0}

	testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
)

const prefix = "order_1_"

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func decPtr(value string) *decimal.Decimal {
	d := dec(value)
	return &d
}

func assertAmount(t *testing.T, field string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Fatalf("%s: expected %s, got %s", field, want, got.String())
	}
}

type stubProducts map[uuid.UUID]*Product

func (s stubProducts) FindProduct(ctx context.Context, id uuid.UUID) (*Product, error) {
	p, ok := s[id]
	if !ok {
		return nil, nil
	}
	copied := *p
	return &copied, nil
}

type stubDiscounts map[string]*Discount

func (s stubDiscounts) FindCoupon(ctx context.Context, code string) (*Discount, error) {
	d, ok := s[code]
	if !ok {
		return nil, nil
	}
	copied := *d
	return &copied, nil
}

type stubTaxes struct {
	rates *map[uuid.UUID]decimal.Decimal
	calls int
	ctxs  []TaxContext
	err   error
}

func (s *stubTaxes) Resolve(ctx context.Context, product *Product, taxCtx TaxContext) (decimal.Decimal, error) {
	s.calls++
	s.ctxs = append(s.ctxs, taxCtx)
	if s.err != nil {
		return decimal.Zero, s.err
	}
	if s.rates == nil {
		return decimal.Zero, nil
	}
	return (*s.rates)[product.ID], nil
}

type fixture struct {
	engine    *engine
	store     *session.MemoryStore
	products  stubProducts
	discounts stubDiscounts
	rates     map[uuid.UUID]decimal.Decimal
	taxes     *stubTaxes
}

func newFixture(t *testing.T, settings Settings) *fixture {
	t.Helper()
	f := &fixture{
		store:     session.NewMemoryStore(),
		products:  stubProducts{},
		discounts: stubDiscounts{},
		rates:     map[uuid.UUID]decimal.Decimal{},
	}
	f.taxes = &stubTaxes{rates: &f.rates}
	eng, err := NewEngine(f.products, f.discounts, f.taxes, settings, nil, nil)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	f.engine = eng.(*engine)
	f.engine.now = func() time.Time { return testNow }
	return f
}

func defaultSettings() Settings {
	return Settings{TaxEnabled: true, DefaultCountry: "US", Currency: usd}
}

func (f *fixture) addProduct(price string, inclusive bool, rate string) *Product {
	p := &Product{
		ID:               uuid.New(),
		Name:             "Product " + price,
		SKU:              "SKU-" + price,
		Price:            dec(price),
		PriceIncludesTax: inclusive,
	}
	f.products[p.ID] = p
	f.rates[p.ID] = dec(rate)
	return p
}

func (f *fixture) addCoupon(code string, kind enums.DiscountType, value string) *Discount {
	d := &Discount{
		ID:        uuid.New(),
		Code:      code,
		Kind:      enums.DiscountKindCoupon,
		Type:      kind,
		Value:     dec(value),
		StartDate: testNow.Add(-24 * time.Hour),
	}
	f.discounts[code] = d
	return d
}

func (f *fixture) add(t *testing.T, p *Product, qty int) *Snapshot {
	t.Helper()
	snap, err := f.engine.AddToCart(context.Background(), f.store, prefix, AddItemInput{ProductID: p.ID, Quantity: qty})
	if err != nil {
		t.Fatalf("add to cart: %v", err)
	}
	return snap
}

func TestNewEngineRequiresCollaborators(t *testing.T) {
	t.Parallel()

	taxes := &stubTaxes{}
	if _, err := NewEngine(nil, stubDiscounts{}, taxes, defaultSettings(), nil, nil); err == nil {
		t.Fatal("expected error without product catalog")
	}
	if _, err := NewEngine(stubProducts{}, nil, taxes, defaultSettings(), nil, nil); err == nil {
		t.Fatal("expected error without discount catalog")
	}
	if _, err := NewEngine(stubProducts{}, stubDiscounts{}, nil, defaultSettings(), nil, nil); err == nil {
		t.Fatal("expected error without tax resolver")
	}
}

func TestGetCartEmpty(t *testing.T) {
	t.Parallel()
	f := newFixture(t, defaultSettings())

	snap, err := f.engine.GetCart(context.Background(), f.store, prefix)
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if len(snap.Items) != 0 || snap.ItemCount != 0 {
		t.Fatalf("expected empty cart, got %+v", snap.Items)
	}
	assertAmount(t, "subtotal", snap.Subtotal, "0")
	assertAmount(t, "total", snap.Total, "0")
	if snap.PaymentMethod != enums.PaymentMethodCash {
		t.Fatalf("expected default payment method cash, got %s", snap.PaymentMethod)
	}
	if snap.TotalLabel != "$0.00" {
		t.Fatalf("unexpected total label %q", snap.TotalLabel)
	}
}

func TestInclusiveProductCouponAndManualDiscountScenario(t *testing.T) {
	t.Parallel()
	f := newFixture(t, defaultSettings())
	ctx := context.Background()
	a := f.addProduct("110", true, "10")
	f.addCoupon("SAVE20", enums.DiscountTypeFixed, "20")

	snap := f.add(t, a, 1)
	assertAmount(t, "subtotal", snap.Subtotal, "110")
	assertAmount(t, "tax", snap.Tax, "10")
	assertAmount(t, "total", snap.Total, "110")

	res, err := f.engine.ApplyCoupon(ctx, f.store, prefix, "SAVE20")
	if err != nil {
		t.Fatalf("apply coupon: %v", err)
	}
	if res.Error {
		t.Fatalf("expected coupon to apply, got %+v", res.Outcome)
	}
	assertAmount(t, "coupon discount", res.Cart.CouponDiscount, "20")
	assertAmount(t, "after discount", res.Cart.SubtotalAfterDiscount, "90")
	assertAmount(t, "tax", res.Cart.Tax, "8.18")
	assertAmount(t, "total", res.Cart.Total, "90")

	res, err = f.engine.UpdateManualDiscount(ctx, f.store, prefix, ManualDiscountInput{Amount: dec("90"), Type: enums.DiscountTypeFixed})
	if err != nil {
		t.Fatalf("manual discount: %v", err)
	}
	if res.Error {
		t.Fatalf("discount equal to the remaining subtotal must be accepted, got %+v", res.Outcome)
	}
	assertAmount(t, "manual discount", res.Cart.ManualDiscount, "90")
	assertAmount(t, "after discount", res.Cart.SubtotalAfterDiscount, "0")
	assertAmount(t, "tax", res.Cart.Tax, "0")
	assertAmount(t, "total", res.Cart.Total, "0")
}

func TestExclusiveProductScenario(t *testing.T) {
	t.Parallel()
	f := newFixture(t, defaultSettings())
	b := f.addProduct("100", false, "10")

	snap := f.add(t, b, 2)
	assertAmount(t, "subtotal", snap.Subtotal, "200")
	assertAmount(t, "tax", snap.Tax, "20")
	assertAmount(t, "total", snap.Total, "220")
	if snap.ItemCount != 2 {
		t.Fatalf("expected item count 2, got %d", snap.ItemCount)
	}
	if len(snap.TaxDetails) != 1 || snap.TaxDetails[0].Inclusive {
		t.Fatalf("unexpected tax details %+v", snap.TaxDetails)
	}
	assertAmount(t, "line tax", snap.TaxDetails[0].Amount, "20")
	if snap.TotalLabel != "$220.00" || snap.TaxLabel != "$20.00" {
		t.Fatalf("unexpected labels total=%q tax=%q", snap.TotalLabel, snap.TaxLabel)
	}
}

func TestMixedTaxModesShareDiscountRatio(t *testing.T) {
	t.Parallel()
	f := newFixture(t, defaultSettings())
	a := f.addProduct("110", true, "10")
	b := f.addProduct("100", false, "10")
	f.addCoupon("TEN", enums.DiscountTypePercentage, "10")

	f.add(t, a, 1)
	f.add(t, b, 1)
	res, err := f.engine.ApplyCoupon(context.Background(), f.store, prefix, "TEN")
	if err != nil || res.Error {
		t.Fatalf("apply coupon: %v %+v", err, res)
	}
	snap := res.Cart
	assertAmount(t, "subtotal", snap.Subtotal, "210")
	assertAmount(t, "coupon", snap.CouponDiscount, "21")
	assertAmount(t, "after discount", snap.SubtotalAfterDiscount, "189")
	assertAmount(t, "inclusive line tax", snap.TaxDetails[0].Amount, "9")
	assertAmount(t, "exclusive line tax", snap.TaxDetails[1].Amount, "9")
	assertAmount(t, "tax", snap.Tax, "18")
	assertAmount(t, "total", snap.Total, "198")
}

func TestFullPercentageDiscountZeroesInclusiveTax(t *testing.T) {
	t.Parallel()
	f := newFixture(t, defaultSettings())
	a := f.addProduct("110", true, "10")
	f.add(t, a, 1)

	res, err := f.engine.UpdateManualDiscount(context.Background(), f.store, prefix, ManualDiscountInput{
		Amount:      dec("100"),
		Type:        enums.DiscountTypePercentage,
		Description: "  staff meal ",
	})
	if err != nil || res.Error {
		t.Fatalf("manual discount: %v %+v", err, res)
	}
	assertAmount(t, "manual discount", res.Cart.ManualDiscount, "110")
	assertAmount(t, "tax", res.Cart.Tax, "0")
	assertAmount(t, "total", res.Cart.Total, "0")
	if res.Cart.ManualDiscountDescription != "staff meal" {
		t.Fatalf("expected trimmed description, got %q", res.Cart.ManualDiscountDescription)
	}
}

func TestCouponLargerThanSubtotalIsClamped(t *testing.T) {
	t.Parallel()
	f := newFixture(t, defaultSettings())
	a := f.addProduct("110", true, "10")
	f.addCoupon("HUGE", enums.DiscountTypeFixed, "500")
	f.add(t, a, 1)

	res, err := f.engine.ApplyCoupon(context.Background(), f.store, prefix, "HUGE")
	if err != nil || res.Error {
		t.Fatalf("apply coupon: %v %+v", err, res)
	}
	assertAmount(t, "coupon", res.Cart.CouponDiscount, "110")
	assertAmount(t, "total", res.Cart.Total, "0")
	if res.Cart.CouponDiscount.Add(res.Cart.ManualDiscount).GreaterThan(res.Cart.Subtotal) {
		t.Fatal("discounts exceed subtotal")
	}
}

func TestStoredManualDiscountIsClampedWhenCartShrinks(t *testing.T) {
	t.Parallel()
	f := newFixture(t, defaultSettings())
	ctx := context.Background()
	a := f.addProduct("50", false, "0")
	f.add(t, a, 2)

	res, err := f.engine.UpdateManualDiscount(ctx, f.store, prefix, ManualDiscountInput{Amount: dec("80"), Type: enums.DiscountTypeFixed})
	if err != nil || res.Error {
		t.Fatalf("manual discount: %v %+v", err, res)
	}
	snap, err := f.engine.UpdateQuantity(ctx, f.store, prefix, a.ID, 1)
	if err != nil {
		t.Fatalf("update quantity: %v", err)
	}
	assertAmount(t, "manual discount", snap.ManualDiscount, "50")
	assertAmount(t, "stored value", snap.ManualDiscountValue, "80")
	assertAmount(t, "total", snap.Total, "0")
}

func TestManualDiscountRejections(t *testing.T) {
	t.Parallel()
	f := newFixture(t, defaultSettings())
	ctx := context.Background()
	a := f.addProduct("110", true, "10")
	f.addCoupon("SAVE20", enums.DiscountTypeFixed, "20")
	f.add(t, a, 1)
	if _, err := f.engine.ApplyCoupon(ctx, f.store, prefix, "SAVE20"); err != nil {
		t.Fatalf("apply coupon: %v", err)
	}

	cases := []struct {
		name  string
		input ManualDiscountInput
		want  enums.RejectionReason
	}{
		{"negative", ManualDiscountInput{Amount: dec("-1"), Type: enums.DiscountTypeFixed}, enums.RejectionNegativeAmount},
		{"over 100 percent", ManualDiscountInput{Amount: dec("101"), Type: enums.DiscountTypePercentage}, enums.RejectionPercentageExceeds100},
		{"exceeds remaining", ManualDiscountInput{Amount: dec("90.01"), Type: enums.DiscountTypeFixed}, enums.RejectionDiscountExceedsSubtotal},
		{"percentage exceeds remaining", ManualDiscountInput{Amount: dec("90"), Type: enums.DiscountTypePercentage}, enums.RejectionDiscountExceedsSubtotal},
	}
	for _, tc := range cases {
		res, err := f.engine.UpdateManualDiscount(ctx, f.store, prefix, tc.input)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if !res.Rejected(tc.want) {
			t.Fatalf("%s: expected %s, got %+v", tc.name, tc.want, res.Outcome)
		}
		if !res.Cart.ManualDiscount.IsZero() {
			t.Fatalf("%s: rejected discount must not be stored", tc.name)
		}
	}

	var stored decimal.Decimal
	if ok, _ := f.store.Get(ctx, prefix+keyManualDiscount, &stored); ok {
		t.Fatalf("rejected discount persisted: %s", stored)
	}

	if _, err := f.engine.UpdateManualDiscount(ctx, f.store, prefix, ManualDiscountInput{Amount: dec("1"), Type: "bogus"}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for unknown type, got %v", err)
	}
}

func TestRemoveManualDiscount(t *testing.T) {
	t.Parallel()
	f := newFixture(t, defaultSettings())
	ctx := context.Background()
	f.add(t, f.addProduct("40", false, "0"), 1)

	if _, err := f.engine.UpdateManualDiscount(ctx, f.store, prefix, ManualDiscountInput{Amount: dec("5"), Type: enums.DiscountTypeFixed, Description: "loyal"}); err != nil {
		t.Fatalf("manual discount: %v", err)
	}
	snap, err := f.engine.RemoveManualDiscount(ctx, f.store, prefix)
	if err != nil {
		t.Fatalf("remove manual discount: %v", err)
	}
	assertAmount(t, "manual discount", snap.ManualDiscount, "0")
	if snap.ManualDiscountDescription != "" || snap.ManualDiscountType != "" {
		t.Fatalf("expected manual discount fields cleared, got %+v", snap)
	}
	assertAmount(t, "total", snap.Total, "40")
}

func TestApplyCouponRejections(t *testing.T) {
	t.Parallel()
	f := newFixture(t, defaultSettings())
	ctx := context.Background()
	f.add(t, f.addProduct("30", false, "0"), 1)

	future := f.addCoupon("SOON", enums.DiscountTypeFixed, "5")
	future.StartDate = testNow.Add(time.Hour)

	expired := f.addCoupon("OLD", enums.DiscountTypeFixed, "5")
	end := testNow.Add(-time.Minute)
	expired.EndDate = &end

	capped := f.addCoupon("ONCE", enums.DiscountTypeFixed, "5")
	capped.Quantity = 1
	capped.TotalUsed = 1

	promo := f.addCoupon("PROMO", enums.DiscountTypeFixed, "5")
	promo.Kind = enums.DiscountKindPromotion

	cases := []struct {
		code string
		want enums.RejectionReason
	}{
		{"NOPE", enums.RejectionCouponNotFound},
		{"", enums.RejectionCouponNotFound},
		{"PROMO", enums.RejectionCouponNotFound},
		{"SOON", enums.RejectionCouponNotStarted},
		{"OLD", enums.RejectionCouponExpired},
		{"ONCE", enums.RejectionCouponUsageLimit},
	}
	for _, tc := range cases {
		res, err := f.engine.ApplyCoupon(ctx, f.store, prefix, tc.code)
		if err != nil {
			t.Fatalf("%q: unexpected error %v", tc.code, err)
		}
		if !res.Rejected(tc.want) {
			t.Fatalf("%q: expected %s, got %+v", tc.code, tc.want, res.Outcome)
		}
		if res.Cart.CouponCode != "" {
			t.Fatalf("%q: rejected coupon stored", tc.code)
		}
	}
}

func TestCouponRevalidatedOnEveryRead(t *testing.T) {
	t.Parallel()
	f := newFixture(t, defaultSettings())
	ctx := context.Background()
	f.add(t, f.addProduct("100", false, "0"), 1)
	coupon := f.addCoupon("HOUR", enums.DiscountTypePercentage, "50")
	end := testNow.Add(time.Hour)
	coupon.EndDate = &end

	res, err := f.engine.ApplyCoupon(ctx, f.store, prefix, "HOUR")
	if err != nil || res.Error {
		t.Fatalf("apply coupon: %v %+v", err, res)
	}
	assertAmount(t, "total", res.Cart.Total, "50")

	f.engine.now = func() time.Time { return testNow.Add(2 * time.Hour) }
	snap, err := f.engine.GetCart(ctx, f.store, prefix)
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	assertAmount(t, "coupon discount", snap.CouponDiscount, "0")
	assertAmount(t, "total", snap.Total, "100")
	if snap.CouponCode != "HOUR" {
		t.Fatalf("coupon code should stay stored, got %q", snap.CouponCode)
	}
}

func TestRemoveCoupon(t *testing.T) {
	t.Parallel()
	f := newFixture(t, defaultSettings())
	ctx := context.Background()
	f.add(t, f.addProduct("100", false, "0"), 1)
	f.addCoupon("FIVE", enums.DiscountTypeFixed, "5")

	res, err := f.engine.RemoveCoupon(ctx, f.store, prefix)
	if err != nil {
		t.Fatalf("remove coupon: %v", err)
	}
	if !res.Rejected(enums.RejectionNoCoupon) {
		t.Fatalf("expected no coupon rejection, got %+v", res.Outcome)
	}

	if _, err := f.engine.ApplyCoupon(ctx, f.store, prefix, "FIVE"); err != nil {
		t.Fatalf("apply coupon: %v", err)
	}
	res, err = f.engine.RemoveCoupon(ctx, f.store, prefix)
	if err != nil || res.Error {
		t.Fatalf("remove coupon: %v %+v", err, res)
	}
	assertAmount(t, "total", res.Cart.Total, "100")
}

func TestShippingAmount(t *testing.T) {
	t.Parallel()
	f := newFixture(t, defaultSettings())
	ctx := context.Background()
	f.add(t, f.addProduct("100", false, "10"), 1)

	res, err := f.engine.UpdateShippingAmount(ctx, f.store, prefix, dec("-0.01"))
	if err != nil {
		t.Fatalf("shipping: %v", err)
	}
	if !res.Rejected(enums.RejectionNegativeAmount) {
		t.Fatalf("expected negative amount rejection, got %+v", res.Outcome)
	}

	res, err = f.engine.UpdateShippingAmount(ctx, f.store, prefix, dec("7.50"))
	if err != nil || res.Error {
		t.Fatalf("shipping: %v %+v", err, res)
	}
	assertAmount(t, "shipping", res.Cart.ShippingAmount, "7.5")
	assertAmount(t, "total", res.Cart.Total, "117.5")
	if res.Cart.ShippingLabel != "$7.50" {
		t.Fatalf("unexpected shipping label %q", res.Cart.ShippingLabel)
	}
}

func TestAddToCartMergesLinesAndSnapshotsTax(t *testing.T) {
	t.Parallel()
	f := newFixture(t, defaultSettings())
	ctx := context.Background()
	p := f.addProduct("12.50", false, "8")
	p.SalePrice = decPtr("10")

	f.add(t, p, 0)
	f.rates[p.ID] = dec("20")
	snap, err := f.engine.AddToCart(ctx, f.store, prefix, AddItemInput{
		ProductID:  p.ID,
		Quantity:   2,
		Attributes: []Attribute{{Set: " Size ", Value: "Large"}},
	})
	if err != nil {
		t.Fatalf("add to cart: %v", err)
	}
	if len(snap.Items) != 1 {
		t.Fatalf("expected one merged line, got %d", len(snap.Items))
	}
	line := snap.Items[0]
	if line.Quantity != 3 {
		t.Fatalf("expected quantity 3, got %d", line.Quantity)
	}
	assertAmount(t, "unit price", line.UnitPrice, "10")
	assertAmount(t, "tax rate", line.TaxRate, "8")
	if f.taxes.calls != 1 {
		t.Fatalf("tax rate should be resolved once per line, got %d calls", f.taxes.calls)
	}
	if len(line.Attributes) != 1 || line.Attributes[0].Set != "Size" {
		t.Fatalf("expected attributes overwritten, got %+v", line.Attributes)
	}
	assertAmount(t, "tax", snap.Tax, "2.4")
}

func TestAddToCartValidation(t *testing.T) {
	t.Parallel()
	f := newFixture(t, defaultSettings())
	ctx := context.Background()
	p := f.addProduct("10", false, "0")

	if _, err := f.engine.AddToCart(ctx, f.store, prefix, AddItemInput{ProductID: p.ID, Quantity: -1}); !pkgerrors.IsCode(err, pkgerrors.CodeInvalidQuantity) {
		t.Fatalf("expected invalid quantity, got %v", err)
	}
	if _, err := f.engine.AddToCart(ctx, f.store, prefix, AddItemInput{ProductID: uuid.New(), Quantity: 1}); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := f.engine.AddToCart(ctx, f.store, prefix, AddItemInput{ProductID: p.ID, Attributes: []Attribute{{Set: "Color"}}}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for empty attribute value, got %v", err)
	}
	if f.store.Len() != 0 {
		t.Fatalf("failed adds must not write to the session, got %d keys", f.store.Len())
	}
}

func TestAddToCartRejectsOversizedLines(t *testing.T) {
	t.Parallel()
	f := newFixture(t, defaultSettings())
	ctx := context.Background()
	p := f.addProduct("10", false, "0")
	f.add(t, p, 1)

	for _, qty := range []int{math.MaxInt, MaxLineQuantity} {
		if _, err := f.engine.AddToCart(ctx, f.store, prefix, AddItemInput{ProductID: p.ID, Quantity: qty}); !pkgerrors.IsCode(err, pkgerrors.CodeInvalidQuantity) {
			t.Fatalf("quantity %d: expected invalid quantity, got %v", qty, err)
		}
	}
	if _, err := f.engine.UpdateQuantity(ctx, f.store, prefix, p.ID, MaxLineQuantity+1); !pkgerrors.IsCode(err, pkgerrors.CodeInvalidQuantity) {
		t.Fatalf("expected invalid quantity on update, got %v", err)
	}

	snap, err := f.engine.AddToCart(ctx, f.store, prefix, AddItemInput{ProductID: p.ID, Quantity: MaxLineQuantity - 1})
	if err != nil {
		t.Fatalf("add up to the line cap: %v", err)
	}
	if snap.Items[0].Quantity != MaxLineQuantity {
		t.Fatalf("expected quantity %d, got %d", MaxLineQuantity, snap.Items[0].Quantity)
	}
	assertAmount(t, "subtotal", snap.Subtotal, "999990")
}

func TestStockRules(t *testing.T) {
	t.Parallel()
	f := newFixture(t, defaultSettings())
	ctx := context.Background()

	soldOut := f.addProduct("10", false, "0")
	soldOut.WithStorehouseManagement = true

	limited := f.addProduct("20", false, "0")
	limited.WithStorehouseManagement = true
	limited.Quantity = 3

	backorder := f.addProduct("30", false, "0")
	backorder.WithStorehouseManagement = true
	backorder.AllowCheckoutWhenOutOfStock = true

	if _, err := f.engine.AddToCart(ctx, f.store, prefix, AddItemInput{ProductID: soldOut.ID, Quantity: 1}); !pkgerrors.IsCode(err, pkgerrors.CodeOutOfStock) {
		t.Fatalf("expected out of stock, got %v", err)
	}

	f.add(t, limited, 2)
	if _, err := f.engine.AddToCart(ctx, f.store, prefix, AddItemInput{ProductID: limited.ID, Quantity: 2}); !pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock) {
		t.Fatalf("expected insufficient stock on cumulative quantity, got %v", err)
	}
	if _, err := f.engine.UpdateQuantity(ctx, f.store, prefix, limited.ID, 4); !pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock) {
		t.Fatalf("expected insufficient stock on update, got %v", err)
	}
	snap, err := f.engine.UpdateQuantity(ctx, f.store, prefix, limited.ID, 3)
	if err != nil {
		t.Fatalf("update within stock: %v", err)
	}
	if snap.Items[0].Quantity != 3 {
		t.Fatalf("expected quantity 3, got %d", snap.Items[0].Quantity)
	}

	snap = f.add(t, backorder, 5)
	if len(snap.Items) != 2 {
		t.Fatalf("expected backorder product added, got %d lines", len(snap.Items))
	}
}

func TestUpdateQuantityAndRemove(t *testing.T) {
	t.Parallel()
	f := newFixture(t, defaultSettings())
	ctx := context.Background()
	a := f.addProduct("10", false, "0")
	b := f.addProduct("5", false, "0")
	f.add(t, a, 1)
	f.add(t, b, 1)

	if _, err := f.engine.UpdateQuantity(ctx, f.store, prefix, a.ID, 0); !pkgerrors.IsCode(err, pkgerrors.CodeInvalidQuantity) {
		t.Fatalf("expected invalid quantity, got %v", err)
	}
	snap, err := f.engine.UpdateQuantity(ctx, f.store, prefix, uuid.New(), 4)
	if err != nil {
		t.Fatalf("update absent product should be a no-op: %v", err)
	}
	assertAmount(t, "subtotal", snap.Subtotal, "15")

	snap, err = f.engine.UpdateQuantity(ctx, f.store, prefix, b.ID, 4)
	if err != nil {
		t.Fatalf("update quantity: %v", err)
	}
	assertAmount(t, "subtotal", snap.Subtotal, "30")

	for i := 0; i < 2; i++ {
		snap, err = f.engine.RemoveFromCart(ctx, f.store, prefix, a.ID)
		if err != nil {
			t.Fatalf("remove #%d: %v", i, err)
		}
	}
	if len(snap.Items) != 1 || snap.Items[0].ProductID != b.ID {
		t.Fatalf("expected only product b to remain, got %+v", snap.Items)
	}
	assertAmount(t, "subtotal", snap.Subtotal, "20")
}

func TestClearCartKeepsCustomerAndPayment(t *testing.T) {
	t.Parallel()
	f := newFixture(t, defaultSettings())
	ctx := context.Background()
	f.add(t, f.addProduct("10", false, "0"), 2)
	f.addCoupon("ONE", enums.DiscountTypeFixed, "1")
	customer := uuid.New()

	if _, err := f.engine.ApplyCoupon(ctx, f.store, prefix, "ONE"); err != nil {
		t.Fatalf("apply coupon: %v", err)
	}
	if _, err := f.engine.UpdateShippingAmount(ctx, f.store, prefix, dec("3")); err != nil {
		t.Fatalf("shipping: %v", err)
	}
	if _, err := f.engine.UpdateCustomer(ctx, f.store, prefix, &customer); err != nil {
		t.Fatalf("customer: %v", err)
	}
	if _, err := f.engine.UpdatePaymentMethod(ctx, f.store, prefix, enums.PaymentMethodCard); err != nil {
		t.Fatalf("payment method: %v", err)
	}

	if err := f.engine.ClearCart(ctx, f.store, prefix); err != nil {
		t.Fatalf("clear cart: %v", err)
	}
	snap, err := f.engine.GetCart(ctx, f.store, prefix)
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if len(snap.Items) != 0 || snap.CouponCode != "" {
		t.Fatalf("expected items and coupon cleared, got %+v", snap)
	}
	assertAmount(t, "shipping", snap.ShippingAmount, "0")
	if snap.CustomerID == nil || *snap.CustomerID != customer {
		t.Fatalf("customer should survive clear, got %v", snap.CustomerID)
	}
	if snap.PaymentMethod != enums.PaymentMethodCard {
		t.Fatalf("payment method should survive clear, got %s", snap.PaymentMethod)
	}

	snap, err = f.engine.ResetCustomerAndPayment(ctx, f.store, prefix)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if snap.CustomerID != nil || snap.PaymentMethod != enums.PaymentMethodCash {
		t.Fatalf("expected customer cleared and cash default, got %v %s", snap.CustomerID, snap.PaymentMethod)
	}
	if f.store.Len() != 0 {
		t.Fatalf("expected no keys left, got %d", f.store.Len())
	}
}

func TestUpdateCustomerAndPaymentValidation(t *testing.T) {
	t.Parallel()
	f := newFixture(t, defaultSettings())
	ctx := context.Background()
	customer := uuid.New()

	if _, err := f.engine.UpdatePaymentMethod(ctx, f.store, prefix, "crypto"); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := f.engine.UpdateCustomer(ctx, f.store, prefix, &customer); err != nil {
		t.Fatalf("update customer: %v", err)
	}
	snap, err := f.engine.UpdateCustomer(ctx, f.store, prefix, nil)
	if err != nil {
		t.Fatalf("detach customer: %v", err)
	}
	if snap.CustomerID != nil {
		t.Fatalf("expected customer detached, got %v", snap.CustomerID)
	}
}

func TestSessionPrefixIsolation(t *testing.T) {
	t.Parallel()
	f := newFixture(t, defaultSettings())
	ctx := context.Background()
	p := f.addProduct("10", false, "0")
	f.addCoupon("ONE", enums.DiscountTypeFixed, "1")

	other := VendorPrefix(uuid.New())
	if _, err := f.engine.AddToCart(ctx, f.store, other, AddItemInput{ProductID: p.ID, Quantity: 5}); err != nil {
		t.Fatalf("add to other cart: %v", err)
	}
	if _, err := f.engine.ApplyCoupon(ctx, f.store, other, "ONE"); err != nil {
		t.Fatalf("apply coupon: %v", err)
	}
	f.add(t, p, 1)

	if err := f.engine.ClearCart(ctx, f.store, prefix); err != nil {
		t.Fatalf("clear: %v", err)
	}
	snap, err := f.engine.GetCart(ctx, f.store, other)
	if err != nil {
		t.Fatalf("get other cart: %v", err)
	}
	if snap.ItemCount != 5 || snap.CouponCode != "ONE" {
		t.Fatalf("other prefix affected: %+v", snap)
	}
	assertAmount(t, "total", snap.Total, "49")
}

func TestTaxDisabled(t *testing.T) {
	t.Parallel()
	settings := defaultSettings()
	settings.TaxEnabled = false
	f := newFixture(t, settings)

	snap := f.add(t, f.addProduct("100", false, "10"), 1)
	assertAmount(t, "tax", snap.Tax, "0")
	assertAmount(t, "total", snap.Total, "100")
	if len(snap.TaxDetails) != 0 {
		t.Fatalf("expected no tax breakdown, got %+v", snap.TaxDetails)
	}
}

func TestTaxRoundsToCurrencyMinorUnit(t *testing.T) {
	t.Parallel()
	settings := defaultSettings()
	settings.Currency = jpy
	f := newFixture(t, settings)
	ctx := context.Background()
	f.add(t, f.addProduct("110", true, "10"), 1)
	f.addCoupon("SAVE20", enums.DiscountTypeFixed, "20")

	res, err := f.engine.ApplyCoupon(ctx, f.store, prefix, "SAVE20")
	if err != nil || res.Error {
		t.Fatalf("apply coupon: %v %+v", err, res)
	}
	assertAmount(t, "tax", res.Cart.Tax, "8")
	if res.Cart.TotalLabel != "¥90" {
		t.Fatalf("unexpected total label %q", res.Cart.TotalLabel)
	}
}

func TestTaxContextFollowsMultiCountry(t *testing.T) {
	t.Parallel()
	settings := defaultSettings()
	settings.MultiCountry = true
	settings.DefaultCountry = "CA"
	f := newFixture(t, settings)
	f.add(t, f.addProduct("10", false, "5"), 1)

	single := newFixture(t, defaultSettings())
	single.add(t, single.addProduct("10", false, "5"), 1)

	if f.taxes.ctxs[0].Country != "CA" {
		t.Fatalf("expected multi-country context CA, got %q", f.taxes.ctxs[0].Country)
	}
	if single.taxes.ctxs[0].Country != "" {
		t.Fatalf("expected empty country without multi-country, got %q", single.taxes.ctxs[0].Country)
	}
}

func TestDependencyFailuresAreHardErrors(t *testing.T) {
	t.Parallel()
	f := newFixture(t, defaultSettings())
	f.taxes.err = errors.New("tax service down")
	p := f.addProduct("10", false, "0")

	_, err := f.engine.AddToCart(context.Background(), f.store, prefix, AddItemInput{ProductID: p.ID, Quantity: 1})
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestSubtotalInvariantAcrossMutations(t *testing.T) {
	t.Parallel()
	f := newFixture(t, defaultSettings())
	ctx := context.Background()
	products := []*Product{
		f.addProduct("3.33", false, "7"),
		f.addProduct("19.99", true, "21"),
		f.addProduct("0.5", false, "0"),
	}

	add := func(p *Product, qty int) func() (*Snapshot, error) {
		return func() (*Snapshot, error) {
			return f.engine.AddToCart(ctx, f.store, prefix, AddItemInput{ProductID: p.ID, Quantity: qty})
		}
	}
	steps := []func() (*Snapshot, error){
		add(products[0], 3),
		add(products[1], 2),
		add(products[0], 1),
		func() (*Snapshot, error) {
			return f.engine.UpdateQuantity(ctx, f.store, prefix, products[1].ID, 5)
		},
		add(products[2], 9),
		func() (*Snapshot, error) {
			return f.engine.RemoveFromCart(ctx, f.store, prefix, products[0].ID)
		},
	}
	for i, step := range steps {
		snap, err := step()
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		want := decimal.Zero
		for _, line := range snap.Items {
			want = want.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
		}
		if !snap.Subtotal.Equal(want) {
			t.Fatalf("step %d: subtotal %s != %s", i, snap.Subtotal, want)
		}
	}
}

func TestEngineRecordsOperationMetrics(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	eng, err := NewEngine(stubProducts{}, stubDiscounts{}, &stubTaxes{}, defaultSettings(), nil, metrics.NewOperationMetrics(reg, "cart"))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	store := session.NewMemoryStore()
	if _, err := eng.ApplyCoupon(context.Background(), store, prefix, "MISSING"); err != nil {
		t.Fatalf("apply coupon: %v", err)
	}

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != "pos_cart_operations_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			if labels["operation"] == "apply_coupon" && labels["outcome"] == metrics.OutcomeRejected && m.GetCounter().GetValue() == 1 {
				return
			}
		}
	}
	t.Fatal("expected rejected apply_coupon to be counted")
}
