package enums

// RejectionReason labels a business-rule rejection returned as a soft failure.
type RejectionReason string

const (
	RejectionCouponNotFound          RejectionReason = "COUPON_NOT_FOUND"
	RejectionCouponNotStarted        RejectionReason = "COUPON_NOT_STARTED"
	RejectionCouponExpired           RejectionReason = "COUPON_EXPIRED"
	RejectionCouponUsageLimit        RejectionReason = "COUPON_USAGE_LIMIT_REACHED"
	RejectionNoCoupon                RejectionReason = "NO_COUPON_APPLIED"
	RejectionNegativeAmount          RejectionReason = "NEGATIVE_AMOUNT"
	RejectionPercentageExceeds100    RejectionReason = "PERCENTAGE_EXCEEDS_100"
	RejectionDiscountExceedsSubtotal RejectionReason = "DISCOUNT_EXCEEDS_SUBTOTAL"

	RejectionMaxSlotsReached     RejectionReason = "MAX_SLOTS_REACHED"
	RejectionSlotNotFound        RejectionReason = "SLOT_NOT_FOUND"
	RejectionCannotCloseLastSlot RejectionReason = "CANNOT_CLOSE_LAST_SLOT"

	RejectionAlreadyOpen        RejectionReason = "ALREADY_OPEN"
	RejectionNoOpenSession      RejectionReason = "NO_OPEN_SESSION"
	RejectionRegisterMustBeOpen RejectionReason = "REGISTER_MUST_BE_OPEN"
	RejectionInvalidAmount      RejectionReason = "INVALID_AMOUNT"
)
