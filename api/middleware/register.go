package middleware

import (
	"context"
	"net/http"

	"github.com/angelmondragon/packfinderz-pos/api/responses"
	pkgerrors "github.com/angelmondragon/packfinderz-pos/pkg/errors"
	"github.com/angelmondragon/packfinderz-pos/pkg/logger"
	"github.com/google/uuid"
)

// RegisterGate reports whether the cashier may ring up sales.
type RegisterGate interface {
	RequireOpenRegister(ctx context.Context, userID uuid.UUID) error
}

// RequireOpenRegister blocks selling routes until the cashier's drawer is open.
func RequireOpenRegister(gate RegisterGate, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if gate == nil {
				next.ServeHTTP(w, r)
				return
			}
			userID, ok := UserIDFromContext(r.Context())
			if !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
				return
			}
			if err := gate.RequireOpenRegister(r.Context(), userID); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
