package yoga

import (
	"time"

	"github.com/goliatone/go-yoga/auth"
)

// Logger is the logging contract shared with the auth package
type Logger = auth.Logger

// Config holds application options
type Config interface {
	GetAddr() string
	GetDatabaseURL() string
	GetSigningKey() string
	GetSigningMethod() string
	GetTokenTTL() time.Duration
	GetIssuer() string
	GetContextKey() string
	GetTokenLookup() string
	GetAuthScheme() string
	GetBcryptCost() int
	GetLogLevel() string
	GetDebug() bool
	GetRequestLogging() bool
}
