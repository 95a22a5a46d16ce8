package handlers

import (
	"context"

	"github.com/aification/authsvc/internal/server/auth"
)

// contextKey тип для ключей контекста
type contextKey string

// PrincipalKey ключ для хранения auth.Principal в контексте
const PrincipalKey contextKey = "principal"

// WithPrincipal кладет principal в контекст запроса
func WithPrincipal(ctx context.Context, p *auth.Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, p)
}

// GetPrincipal извлекает principal из контекста запроса
func GetPrincipal(ctx context.Context) (*auth.Principal, bool) {
	p, ok := ctx.Value(PrincipalKey).(*auth.Principal)
	return p, ok && p != nil
}
