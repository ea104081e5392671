package controllers

import (
	"net/http"

	"github.com/angelmondragon/packfinderz-pos/api/middleware"
	"github.com/angelmondragon/packfinderz-pos/api/responses"
)

// PrivatePing echoes the resolved cashier identity.
func PrivatePing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]string{"scope": "pos", "status": "ok"}
		if userID, ok := middleware.UserIDFromContext(r.Context()); ok {
			payload["user_id"] = userID.String()
		}
		if terminal := middleware.TerminalIDFromContext(r.Context()); terminal != "" {
			payload["terminal_id"] = terminal
		}
		responses.WriteSuccess(w, payload)
	}
}
