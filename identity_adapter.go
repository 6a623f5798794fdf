package yoga

import (
	"context"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-yoga/auth"
)

// credentialStore adapts the Users repository to auth.CredentialStore
type credentialStore struct {
	users Users
}

var _ auth.CredentialStore = (*credentialStore)(nil)

// NewCredentialStore returns an auth.CredentialStore backed by users
func NewCredentialStore(users Users) auth.CredentialStore {
	return &credentialStore{users: users}
}

func (s *credentialStore) GetByEmail(ctx context.Context, email string) (*auth.Principal, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return PrincipalFromUser(user), nil
}

func (s *credentialStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return s.users.ExistsByEmail(ctx, email)
}

func (s *credentialStore) CreatePrincipal(ctx context.Context, principal *auth.Principal) (*auth.Principal, error) {
	if principal == nil {
		return nil, goerrors.New("principal is required", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest)
	}

	user, err := s.users.Create(ctx, &User{
		Email:     principal.Username,
		FirstName: principal.FirstName,
		LastName:  principal.LastName,
		Password:  principal.PasswordHash,
		Admin:     principal.Admin,
	})
	if err != nil {
		return nil, err
	}

	return PrincipalFromUser(user), nil
}

// PrincipalFromUser maps a stored user into the authenticated identity
func PrincipalFromUser(user *User) *auth.Principal {
	if user == nil {
		return nil
	}
	return &auth.Principal{
		ID:           user.ID,
		Username:     user.Email,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		PasswordHash: user.Password,
		Admin:        user.Admin,
	}
}
