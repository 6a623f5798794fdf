package auth

import (
	"context"
	"strings"

	"github.com/goliatone/go-errors"
)

// UserProvider loads principals from a CredentialStore and
// checks their credentials
type UserProvider struct {
	store  CredentialStore
	logger Logger
}

var _ PrincipalLoader = (*UserProvider)(nil)

// NewUserProvider will create a new UserProvider
func NewUserProvider(store CredentialStore) *UserProvider {
	return &UserProvider{
		store:  store,
		logger: defLogger{},
	}
}

// WithLogger sets the logger
func (u *UserProvider) WithLogger(l Logger) *UserProvider {
	if l != nil {
		u.logger = l
	}
	return u
}

// LoadPrincipal finds the principal whose username matches the token subject
func (u *UserProvider) LoadPrincipal(ctx context.Context, username string) (*Principal, error) {
	principal, err := u.store.GetByEmail(ctx, normalizeEmail(username))
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrIdentityNotFound.Clone().WithMetadata(map[string]any{
				"username": username,
			})
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load principal")
	}
	return principal, nil
}

// VerifyIdentity will find the user, compare to the password, and return the principal
func (u *UserProvider) VerifyIdentity(ctx context.Context, email, password string) (*Principal, error) {
	principal, err := u.store.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrMismatchedHashAndPassword
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user during verification")
	}

	if err := ComparePasswordAndHash(password, principal.PasswordHash); err != nil {
		u.logger.Debug("password mismatch for %s", email)
		if errors.Is(err, ErrMismatchedHashAndPassword) {
			return nil, ErrMismatchedHashAndPassword
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to compare password hash")
	}

	return principal, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
