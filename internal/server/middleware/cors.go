package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
)

const (
	corsAllowMethods = "GET, POST, OPTIONS"
	corsAllowHeaders = "Authorization, Content-Type"
	corsMaxAge       = 600
)

// CORSMiddleware создает middleware для CORS
// origins со значением "*" разрешает любой origin без credentials,
// иначе origin должен совпасть точно и ответ разрешает credentials
func CORSMiddleware(origins []string) func(http.Handler) http.Handler {
	wildcard := slices.Contains(origins, "*")

	allowed := func(origin string) bool {
		return wildcard || slices.Contains(origins, origin)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Add("Vary", "Origin")

			preflight := r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""

			if !allowed(origin) {
				if preflight {
					http.Error(w, "Disallowed CORS origin", http.StatusBadRequest)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			if wildcard {
				h.Set("Access-Control-Allow-Origin", "*")
			} else {
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
			}

			if !preflight {
				next.ServeHTTP(w, r)
				return
			}

			requested := r.Header.Get("Access-Control-Request-Headers")
			if requested == "" {
				requested = corsAllowHeaders
			}
			h.Set("Access-Control-Allow-Methods", corsAllowMethods)
			h.Set("Access-Control-Allow-Headers", strings.TrimSpace(requested))
			h.Set("Access-Control-Max-Age", strconv.Itoa(corsMaxAge))
			w.WriteHeader(http.StatusNoContent)
		})
	}
}
