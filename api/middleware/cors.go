package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"

	"github.com/angelmondragon/packfinderz-pos/pkg/config"
)

// Local till front ends (Next.js and Vite dev servers).
var devOrigins = []string{"http://localhost:3000", "http://localhost:5173"}

// CORS applies the till front end origin policy. Without configured origins dev
// falls back to the local dev servers and every other env disables cross-origin access.
func CORS(app config.AppConfig) func(http.Handler) http.Handler {
	origins := make([]string, 0, len(app.CORSOrigins))
	for _, origin := range app.CORSOrigins {
		if origin = strings.TrimRight(strings.TrimSpace(origin), "/"); origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		if !app.IsDev() {
			return func(next http.Handler) http.Handler { return next }
		}
		origins = devOrigins
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", requestIDHeader, terminalIDHeader},
		ExposedHeaders:   []string{requestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
