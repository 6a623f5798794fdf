package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

const (
	// DefaultSigningMethod is used when TokenConfig.SigningMethod is empty
	DefaultSigningMethod = "HS512"
	// DefaultTokenTTL is used when TokenConfig.TTL is zero
	DefaultTokenTTL = 24 * time.Hour
)

// TokenConfig holds the settings of a TokenService
type TokenConfig struct {
	SigningKey    []byte
	SigningMethod string
	TTL           time.Duration
	Issuer        string
}

// Claims are the registered claims we put in every token
type Claims struct {
	jwt.RegisteredClaims
}

// TokenServiceOption customizes a TokenService
type TokenServiceOption func(*TokenService)

// WithClock injects the time source used to stamp and check tokens
func WithClock(clock func() time.Time) TokenServiceOption {
	return func(ts *TokenService) {
		if clock != nil {
			ts.now = clock
		}
	}
}

// WithTokenLogger sets the logger
func WithTokenLogger(logger Logger) TokenServiceOption {
	return func(ts *TokenService) {
		if logger != nil {
			ts.logger = logger
		}
	}
}

// TokenService issues and verifies HMAC signed bearer tokens.
// It holds no mutable state after construction.
type TokenService struct {
	signingKey []byte
	method     *jwt.SigningMethodHMAC
	ttl        time.Duration
	issuer     string
	now        func() time.Time
	logger     Logger
}

var (
	_ TokenIssuer   = (*TokenService)(nil)
	_ TokenVerifier = (*TokenService)(nil)
)

// NewTokenService creates a new TokenService instance
func NewTokenService(cfg TokenConfig, opts ...TokenServiceOption) (*TokenService, error) {
	if len(cfg.SigningKey) == 0 {
		return nil, errors.New("token signing key must not be empty", errors.CategoryInternal)
	}

	name := cfg.SigningMethod
	if name == "" {
		name = DefaultSigningMethod
	}

	method, ok := jwt.GetSigningMethod(name).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, errors.New("token signing method must be HMAC", errors.CategoryInternal).
			WithMetadata(map[string]any{"alg": name})
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	ts := &TokenService{
		signingKey: cfg.SigningKey,
		method:     method,
		ttl:        ttl,
		issuer:     cfg.Issuer,
		now:        time.Now,
		logger:     defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(ts)
		}
	}

	return ts, nil
}

// TTL returns the configured token lifetime
func (ts *TokenService) TTL() time.Duration {
	return ts.ttl
}

// Issue creates a signed token for the given username
func (ts *TokenService) Issue(username string) (string, error) {
	if username == "" {
		return "", ErrInvalidUsername
	}

	now := ts.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    ts.issuer,
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.ttl)),
		},
	}

	token := jwt.NewWithClaims(ts.method, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Verify reports whether the token is well formed, correctly signed
// and not expired. It never panics on bad input.
func (ts *TokenService) Verify(token string) bool {
	if _, err := ts.parse(token); err != nil {
		ts.logger.Debug("token verification failed: %v", err)
		return false
	}
	return true
}

// Subject returns the username embedded in the token
func (ts *TokenService) Subject(token string) (string, error) {
	claims, err := ts.parse(token)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

func (ts *TokenService) parse(tokenString string) (*Claims, error) {
	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{ts.method.Alg()}),
		jwt.WithTimeFunc(ts.now),
		jwt.WithExpirationRequired(),
	}
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode).
			WithCode(ErrTokenMalformed.Code)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenMalformed
	}

	return claims, nil
}
