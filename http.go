package yoga

import (
	"strconv"

	"github.com/goliatone/go-router"

	"github.com/goliatone/go-yoga/auth"
	"github.com/goliatone/go-yoga/middleware/jwtware"
)

// NewAuthFilter builds the fail-open authentication filter from cfg.
// Failures other than a missing token are logged and handed to listener.
func NewAuthFilter(cfg Config, verifier auth.TokenVerifier, loader auth.PrincipalLoader, logger Logger, listener jwtware.ErrorListener) router.MiddlewareFunc {
	return jwtware.New(jwtware.Config{
		ContextKey:    cfg.GetContextKey(),
		TokenLookup:   cfg.GetTokenLookup(),
		AuthScheme:    cfg.GetAuthScheme(),
		Verifier:      verifier,
		Loader:        loader,
		ErrorListener: listener,
		Logger:        logger,
	})
}

// RequireAuthenticated rejects requests that reached it without a
// principal attached by the authentication filter
func RequireAuthenticated(contextKey string) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if _, ok := auth.GetPrincipal(ctx, contextKey); !ok {
				return auth.ErrUnauthenticated
			}
			return ctx.Next()
		}
	}
}

// parseID reads a positive integer path parameter
func parseID(ctx router.Context, name string) (int64, error) {
	raw := ctx.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, withMetadata(ErrInvalidID, map[string]any{
			"param": name,
			"value": raw,
		})
	}
	return id, nil
}

func sendOK(ctx router.Context) error {
	return ctx.Status(router.StatusOK).SendString("")
}
