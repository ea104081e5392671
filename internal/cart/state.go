package cart

import (
	"context"
	"fmt"

	"github.com/angelmondragon/packfinderz-pos/pkg/enums"
	pkgerrors "github.com/angelmondragon/packfinderz-pos/pkg/errors"
	"github.com/angelmondragon/packfinderz-pos/pkg/session"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	keyItems                     = "cart_items"
	keyCouponCode                = "coupon_code"
	keyManualDiscount            = "manual_discount"
	keyManualDiscountType        = "manual_discount_type"
	keyManualDiscountDescription = "manual_discount_description"
	keyShippingAmount            = "shipping_amount"
	keyCustomerID                = "customer_id"
	keyPaymentMethod             = "payment_method"
)

// VendorPrefix scopes a cart to a vendor store.
func VendorPrefix(storeID uuid.UUID) string {
	return fmt.Sprintf("vendor_%s_", storeID)
}

// cartState is everything persisted for one cart. Derived amounts are never stored.
type cartState struct {
	Items                     []CartLine
	CouponCode                string
	ManualDiscount            decimal.Decimal
	ManualDiscountType        enums.DiscountType
	ManualDiscountDescription string
	ShippingAmount            decimal.Decimal
	CustomerID                *uuid.UUID
	PaymentMethod             enums.PaymentMethod
}

func (s *cartState) line(productID uuid.UUID) (int, bool) {
	for i := range s.Items {
		if s.Items[i].ProductID == productID {
			return i, true
		}
	}
	return -1, false
}

type sessionKeys struct {
	prefix string
}

func (k sessionKeys) key(name string) string {
	return k.prefix + name
}

func (k sessionKeys) cartKeys() []string {
	return []string{
		k.key(keyItems),
		k.key(keyCouponCode),
		k.key(keyManualDiscount),
		k.key(keyManualDiscountType),
		k.key(keyManualDiscountDescription),
		k.key(keyShippingAmount),
	}
}

func (k sessionKeys) manualDiscountKeys() []string {
	return []string{
		k.key(keyManualDiscount),
		k.key(keyManualDiscountType),
		k.key(keyManualDiscountDescription),
	}
}

func loadState(ctx context.Context, store session.Store, prefix string) (*cartState, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "session store required")
	}
	keys := sessionKeys{prefix: prefix}
	st := &cartState{PaymentMethod: enums.PaymentMethodCash}

	fields := []struct {
		name string
		dest any
	}{
		{keyItems, &st.Items},
		{keyCouponCode, &st.CouponCode},
		{keyManualDiscount, &st.ManualDiscount},
		{keyManualDiscountType, &st.ManualDiscountType},
		{keyManualDiscountDescription, &st.ManualDiscountDescription},
		{keyShippingAmount, &st.ShippingAmount},
		{keyCustomerID, &st.CustomerID},
		{keyPaymentMethod, &st.PaymentMethod},
	}
	for _, f := range fields {
		if _, err := store.Get(ctx, keys.key(f.name), f.dest); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read cart session")
		}
	}
	if !st.ManualDiscountType.IsValid() {
		st.ManualDiscountType = enums.DiscountTypeFixed
	}
	if !st.PaymentMethod.IsValid() {
		st.PaymentMethod = enums.PaymentMethodCash
	}
	return st, nil
}

func put(ctx context.Context, store session.Store, key string, value any) error {
	if err := store.Put(ctx, key, value); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write cart session")
	}
	return nil
}

func forget(ctx context.Context, store session.Store, keys ...string) error {
	if err := store.Forget(ctx, keys...); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write cart session")
	}
	return nil
}
