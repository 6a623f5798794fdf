package auth

import (
	"context"
	"fmt"
)

// Logger is the logging contract used across the auth package
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Principal is the authenticated identity attached to a request
type Principal struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	PasswordHash string `json:"-"`
	Admin        bool   `json:"admin"`
}

// CredentialStore is the persistence collaborator for principals.
// GetByEmail must return an error for which errors.IsNotFound
// is true when no record matches.
type CredentialStore interface {
	GetByEmail(ctx context.Context, email string) (*Principal, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	CreatePrincipal(ctx context.Context, principal *Principal) (*Principal, error)
}

// PrincipalLoader resolves a token subject into a principal
type PrincipalLoader interface {
	LoadPrincipal(ctx context.Context, username string) (*Principal, error)
}

// TokenIssuer mints tokens for a username
type TokenIssuer interface {
	Issue(username string) (string, error)
}

// TokenVerifier checks tokens and extracts their subject
type TokenVerifier interface {
	Verify(token string) bool
	Subject(token string) (string, error)
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

// NopLogger discards everything, handy in tests
type NopLogger struct{}

func (NopLogger) Debug(format string, args ...any) {}
func (NopLogger) Info(format string, args ...any) {}
func (NopLogger) Warn(format string, args ...any) {}
func (NopLogger) Error(format string, args ...any) {}

// DefaultLogger returns the stdout logger used when none is provided
func DefaultLogger() Logger {
	return defLogger{}
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
