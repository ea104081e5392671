package types

import "github.com/angelmondragon/packfinderz-pos/pkg/enums"

type SuccessEnvelope struct {
	Data any `json:"data"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// Outcome is the soft-failure result of a user-correctable operation.
// A rejected outcome leaves the underlying state untouched.
type Outcome struct {
	Error   bool                  `json:"error"`
	Reason  enums.RejectionReason `json:"reason,omitempty"`
	Message string                `json:"message,omitempty"`
}

// Reject builds a failed outcome.
func Reject(reason enums.RejectionReason, message string) Outcome {
	return Outcome{Error: true, Reason: reason, Message: message}
}

// Accept builds a successful outcome with an optional confirmation message.
func Accept(message string) Outcome {
	return Outcome{Message: message}
}

// Rejected reports whether the outcome carries the given reason.
func (o Outcome) Rejected(reason enums.RejectionReason) bool {
	return o.Error && o.Reason == reason
}
