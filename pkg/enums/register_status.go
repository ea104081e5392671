package enums

import "fmt"

// RegisterStatus tracks the cash drawer session lifecycle. open is the only non-terminal state.
type RegisterStatus string

const (
	RegisterStatusOpen   RegisterStatus = "open"
	RegisterStatusClosed RegisterStatus = "closed"
)

var validRegisterStatuses = []RegisterStatus{
	RegisterStatusOpen,
	RegisterStatusClosed,
}

// IsValid reports whether the value matches a known register status.
func (s RegisterStatus) IsValid() bool {
	for _, candidate := range validRegisterStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseRegisterStatus converts raw input into RegisterStatus.
func ParseRegisterStatus(value string) (RegisterStatus, error) {
	for _, candidate := range validRegisterStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid register status %q", value)
}
