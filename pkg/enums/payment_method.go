package enums

import (
	"fmt"
	"strings"
)

// PaymentMethod describes how the customer at the till intends to pay.
// Only cash settles through the register drawer.
type PaymentMethod string

const (
	PaymentMethodCash  PaymentMethod = "cash"
	PaymentMethodCard  PaymentMethod = "card"
	PaymentMethodOther PaymentMethod = "other"
)

func (p PaymentMethod) String() string {
	return string(p)
}

func (p PaymentMethod) IsValid() bool {
	switch p {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodOther:
		return true
	}
	return false
}

// ParsePaymentMethod accepts the lowercase wire value only.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	if p := PaymentMethod(value); p.IsValid() {
		return p, nil
	}
	return "", fmt.Errorf("invalid payment method %q (want one of cash, card, other)", strings.TrimSpace(value))
}
