package jwtware

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-router"

	"github.com/goliatone/go-yoga/auth"
)

var (
	defaultTokenLookup       = "header:" + router.HeaderAuthorization
	ErrJWTMissingOrMalformed = errors.New("missing or malformed JWT")
	ErrTokenRejected         = errors.New("token rejected by verifier")
)

// ErrorListener is notified of every failure the middleware swallows
type ErrorListener func(ctx router.Context, err error)

type Config struct {
	// Filter skips the middleware when it returns true
	Filter func(router.Context) bool
	// ContextKey is the Locals key for the principal, "user" by default
	ContextKey  string
	TokenLookup string
	AuthScheme  string
	// Verifier is required
	Verifier auth.TokenVerifier
	// Loader is required
	Loader auth.PrincipalLoader

	// ContextEnricher is an optional function to propagate the principal
	// to the standard Go context after the default enrichment.
	ContextEnricher func(ctx context.Context, principal *auth.Principal) context.Context

	// ErrorListener receives errors that did not stop the request:
	// missing tokens are not reported, everything else is.
	ErrorListener ErrorListener

	Logger auth.Logger
}

// New returns a fail-open authentication filter. It attaches a principal
// when the bearer token verifies and resolves to a known user, and
// always hands the request to the next handler.
func New(config ...Config) router.MiddlewareFunc {
	cfg := GetDefaultConfig(config...)
	extractors := cfg.getExtractors()

	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if cfg.Filter != nil && cfg.Filter(ctx) {
				return ctx.Next()
			}

			if err := authenticate(ctx, cfg, extractors); err != nil {
				cfg.report(ctx, err)
			}

			return ctx.Next()
		}
	}
}

func authenticate(ctx router.Context, cfg Config, extractors []JWTExtractor) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("authentication filter panic: %v", r)
		}
	}()

	raw, err := ExtractRawTokenFromContext(ctx, extractors)
	if err != nil {
		return err
	}

	if !cfg.Verifier.Verify(raw) {
		return ErrTokenRejected
	}

	username, err := cfg.Verifier.Subject(raw)
	if err != nil {
		return err
	}

	principal, err := cfg.Loader.LoadPrincipal(ctx.Context(), username)
	if err != nil {
		return err
	}

	if principal == nil {
		return auth.ErrIdentityNotFound
	}

	ctx.Locals(cfg.ContextKey, principal)

	stdCtx := auth.WithPrincipal(ctx.Context(), principal)
	if cfg.ContextEnricher != nil {
		stdCtx = cfg.ContextEnricher(stdCtx, principal)
	}
	ctx.SetContext(stdCtx)

	return nil
}

func (cfg Config) report(ctx router.Context, err error) {
	if errors.Is(err, ErrJWTMissingOrMalformed) {
		return
	}

	if errors.Is(err, ErrTokenRejected) || errors.Is(err, auth.ErrIdentityNotFound) || auth.HasTextCode(err, auth.TextCodeIdentityNotFound) {
		cfg.Logger.Debug("request continues unauthenticated: %v", err)
	} else {
		cfg.Logger.Error("authentication filter swallowed error on %s: %v", ctx.Path(), err)
	}

	if cfg.ErrorListener != nil {
		cfg.ErrorListener(ctx, err)
	}
}

func ExtractRawTokenFromContext(ctx router.Context, extractors []JWTExtractor) (string, error) {
	var raw string
	err := ErrJWTMissingOrMalformed

	for _, extractor := range extractors {
		raw, err = extractor(ctx)
		if raw != "" && err == nil {
			break
		}
	}

	return raw, err
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Verifier == nil {
		panic("AUTH: JWT middleware configuration: Verifier is required.")
	}

	if cfg.Loader == nil {
		panic("AUTH: JWT middleware configuration: Loader is required.")
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = auth.DefaultContextKey
	}

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = defaultTokenLookup
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	if cfg.Logger == nil {
		cfg.Logger = auth.DefaultLogger()
	}

	return cfg
}

func (cfg *Config) getExtractors() []JWTExtractor {
	return GetExtractors(cfg.TokenLookup, cfg.AuthScheme)
}

func GetExtractors(tokenLookup string, authSchemes ...string) []JWTExtractor {
	extractors := make([]JWTExtractor, 0)

	authScheme := "Bearer"
	if len(authSchemes) > 0 && authSchemes[0] != "" {
		authScheme = authSchemes[0]
	}

	// header:Authorization,cookie:jwt,query:auth_token,param:token
	rootParts := strings.Split(tokenLookup, ",")
	for _, rootPart := range rootParts {
		parts := strings.Split(strings.TrimSpace(rootPart), ":")
		if len(parts) != 2 {
			continue
		}

		for i, el := range parts {
			parts[i] = strings.TrimSpace(el)
		}

		switch parts[0] {
		case "header":
			extractors = append(extractors, jwtFromHeader(parts[1], authScheme))
		case "query":
			extractors = append(extractors, jwtFromQuery(parts[1]))
		case "param":
			extractors = append(extractors, jwtFromParam(parts[1]))
		case "cookie":
			extractors = append(extractors, jwtFromCookie(parts[1]))
		}
	}

	return extractors
}

type JWTExtractor func(c router.Context) (string, error)

// jwtFromHeader returns a function that extracts token from the request header.
// The value must be "<scheme> <token>".
func jwtFromHeader(header string, authScheme string) JWTExtractor {
	prefix := strings.TrimSpace(authScheme) + " "
	return func(c router.Context) (string, error) {
		a := c.Header(header)
		l := len(prefix)
		if len(a) > l && strings.EqualFold(a[:l], prefix) {
			if token := strings.TrimSpace(a[l:]); token != "" {
				return token, nil
			}
		}
		return "", ErrJWTMissingOrMalformed
	}
}

// jwtFromQuery returns a function that extracts token from the query string.
func jwtFromQuery(param string) JWTExtractor {
	return func(c router.Context) (string, error) {
		token := c.Query(param, "")
		if token == "" {
			return "", ErrJWTMissingOrMalformed
		}
		return token, nil
	}
}

// jwtFromParam returns a function that extracts token from the url param string.
func jwtFromParam(param string) JWTExtractor {
	return func(c router.Context) (string, error) {
		token := c.Param(param)
		if token == "" {
			return "", ErrJWTMissingOrMalformed
		}
		return token, nil
	}
}

// jwtFromCookie returns a function that extracts token from the named cookie.
func jwtFromCookie(name string) JWTExtractor {
	return func(c router.Context) (string, error) {
		token := c.Cookies(name)
		if token == "" {
			return "", ErrJWTMissingOrMalformed
		}
		return token, nil
	}
}
