package middleware

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/angelmondragon/packfinderz-pos/api/responses"
	pkgerrors "github.com/angelmondragon/packfinderz-pos/pkg/errors"
	"github.com/angelmondragon/packfinderz-pos/pkg/logger"
	"github.com/angelmondragon/packfinderz-pos/pkg/session"
)

const (
	terminalIDHeader  = "X-Terminal-Id"
	defaultTerminalID = "default"
)

var terminalIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// TerminalSession scopes a session store to the authenticated cashier and terminal.
// The X-Terminal-Id header wins over the terminal carried in the token.
func TerminalSession(factory session.Factory, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := UserIDFromContext(r.Context())
			if !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
				return
			}
			if factory == nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session store unavailable"))
				return
			}

			terminalID := strings.TrimSpace(r.Header.Get(terminalIDHeader))
			if terminalID == "" {
				terminalID = TerminalIDFromContext(r.Context())
			}
			if terminalID == "" {
				terminalID = defaultTerminalID
			}
			if !terminalIDPattern.MatchString(terminalID) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid terminal id").
					WithDetails(map[string]any{"header": terminalIDHeader}))
				return
			}

			ctx := WithTerminalID(r.Context(), terminalID)
			ctx = WithSession(ctx, factory.ForActor(userID.String()+":"+terminalID))
			if logg != nil {
				ctx = logg.WithTerminalID(ctx, terminalID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
