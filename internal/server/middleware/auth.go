package middleware

import (
	"log/slog"
	"net/http"

	"github.com/aification/authsvc/internal/server/auth"
	"github.com/aification/authsvc/internal/server/handlers"
)

// Introspector проверяет значение заголовка Authorization
type Introspector interface {
	Introspect(header string) (*auth.Principal, error)
}

// AuthMiddleware создает middleware для проверки bearer access token
// При успехе кладет auth.Principal в контекст запроса
func AuthMiddleware(logger *slog.Logger, introspector Introspector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := introspector.Introspect(r.Header.Get("Authorization"))
			if err != nil {
				// токен не логируем
				logger.WarnContext(r.Context(), "unauthorized request",
					slog.String("path", r.URL.Path),
					slog.Any("error", err))

				status, message := handlers.StatusFor(err)
				if status == http.StatusUnauthorized {
					w.Header().Set("WWW-Authenticate", "Bearer")
				}
				handlers.WriteError(logger, w, message, status)
				return
			}

			logger.DebugContext(r.Context(), "user authenticated", slog.String("auth", principal.AuthMethod))

			next.ServeHTTP(w, r.WithContext(handlers.WithPrincipal(r.Context(), principal)))
		})
	}
}
