package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a cashier token.
type AccessTokenPayload struct {
	UserID     uuid.UUID
	TerminalID string
	JTI        string
}

// AccessTokenClaims is the typed JWT presented by POS terminals.
type AccessTokenClaims struct {
	UserID     uuid.UUID `json:"user_id"`
	TerminalID string    `json:"terminal_id,omitempty"`
	jwt.RegisteredClaims
}
