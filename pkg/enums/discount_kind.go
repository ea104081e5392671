package enums

// DiscountKind maps to the pos_discounts.type column. Only coupons are redeemable by code.
type DiscountKind string

const (
	DiscountKindCoupon    DiscountKind = "coupon"
	DiscountKindPromotion DiscountKind = "promotion"
)

func (k DiscountKind) IsValid() bool {
	return k == DiscountKindCoupon || k == DiscountKindPromotion
}
