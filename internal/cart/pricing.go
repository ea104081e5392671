package cart

import (
	"github.com/angelmondragon/packfinderz-pos/pkg/enums"
	"github.com/angelmondragon/packfinderz-pos/pkg/money"
	"github.com/shopspring/decimal"
)

var one = decimal.NewFromInt(1)

// pricingInput is what a snapshot is computed from: persisted state plus the coupon
// re-resolved for this read (nil when absent or no longer valid).
type pricingInput struct {
	state      *cartState
	coupon     *Discount
	taxEnabled bool
	rounder    Rounder
	formatter  CurrencyFormatter
}

func discountAmount(kind enums.DiscountType, value, base decimal.Decimal) decimal.Decimal {
	if kind == enums.DiscountTypePercentage {
		return money.Percent(base, value)
	}
	return value
}

func clamp(amount, limit decimal.Decimal) decimal.Decimal {
	if limit.IsNegative() {
		limit = decimal.Zero
	}
	if amount.IsNegative() {
		return decimal.Zero
	}
	return decimal.Min(amount, limit)
}

func subtotalOf(items []CartLine) decimal.Decimal {
	subtotal := decimal.Zero
	for _, line := range items {
		subtotal = subtotal.Add(line.LineTotal())
	}
	return subtotal
}

func couponDiscountOf(coupon *Discount, subtotal decimal.Decimal) decimal.Decimal {
	if coupon == nil {
		return decimal.Zero
	}
	return clamp(discountAmount(coupon.Type, coupon.Value, subtotal), subtotal)
}

// lineTax is the tax of one line on its discounted base, rounded to the minor unit.
func lineTax(line CartLine, ratio decimal.Decimal, rounder Rounder) decimal.Decimal {
	effective := line.LineTotal().Mul(ratio)
	if line.TaxRate.IsZero() || effective.IsZero() {
		return decimal.Zero
	}
	if line.PriceIncludesTax {
		net := effective.Div(one.Add(money.Percent(one, line.TaxRate)))
		return rounder.Round(effective.Sub(net))
	}
	return rounder.Round(money.Percent(effective, line.TaxRate))
}

func price(in pricingInput) *Snapshot {
	st := in.state
	items := st.Items
	if items == nil {
		items = []CartLine{}
	}

	snap := &Snapshot{
		Items:                     items,
		CouponCode:                st.CouponCode,
		ManualDiscountValue:       st.ManualDiscount,
		ManualDiscountDescription: st.ManualDiscountDescription,
		ShippingAmount:            st.ShippingAmount,
		CustomerID:                st.CustomerID,
		PaymentMethod:             st.PaymentMethod,
		TaxDetails:                []TaxLine{},
	}
	if !st.ManualDiscount.IsZero() {
		snap.ManualDiscountType = st.ManualDiscountType
	}
	for _, line := range items {
		snap.ItemCount += line.Quantity
	}

	subtotal := subtotalOf(items)
	snap.Subtotal = subtotal

	snap.CouponDiscount = couponDiscountOf(in.coupon, subtotal)
	if in.coupon != nil {
		snap.CouponDiscountType = in.coupon.Type
	}

	remaining := subtotal.Sub(snap.CouponDiscount)
	manual := discountAmount(st.ManualDiscountType, st.ManualDiscount, subtotal)
	snap.ManualDiscount = clamp(manual, remaining)

	afterDiscount := remaining.Sub(snap.ManualDiscount)
	snap.SubtotalAfterDiscount = afterDiscount

	ratio := decimal.Zero
	if !subtotal.IsZero() {
		ratio = afterDiscount.Div(subtotal)
	}

	totalTax := decimal.Zero
	taxToAdd := decimal.Zero
	if in.taxEnabled {
		for _, line := range items {
			amount := lineTax(line, ratio, in.rounder)
			totalTax = totalTax.Add(amount)
			if !line.PriceIncludesTax {
				taxToAdd = taxToAdd.Add(amount)
			}
			snap.TaxDetails = append(snap.TaxDetails, TaxLine{
				ProductID: line.ProductID,
				Name:      line.Name,
				Rate:      line.TaxRate,
				Amount:    amount,
				Inclusive: line.PriceIncludesTax,
			})
		}
	}
	snap.Tax = totalTax
	snap.Total = afterDiscount.Add(taxToAdd).Add(st.ShippingAmount)

	if in.formatter != nil {
		snap.SubtotalLabel = in.formatter.Format(snap.Subtotal)
		snap.CouponDiscountLabel = in.formatter.Format(snap.CouponDiscount)
		snap.ManualDiscountLabel = in.formatter.Format(snap.ManualDiscount)
		snap.TaxLabel = in.formatter.Format(snap.Tax)
		snap.ShippingLabel = in.formatter.Format(snap.ShippingAmount)
		snap.TotalLabel = in.formatter.Format(snap.Total)
	}
	return snap
}
