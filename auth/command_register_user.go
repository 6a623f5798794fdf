package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// RegisterUserMessage carries a signup request
type RegisterUserMessage struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Password  string `json:"password"`
}

func (e RegisterUserMessage) Type() string { return "user.register" }

// RegisterUserHandler creates principals for new accounts
type RegisterUserHandler struct {
	store CredentialStore
	cost  int
}

// NewRegisterUserHandler returns a handler bound to the store
func NewRegisterUserHandler(store CredentialStore) *RegisterUserHandler {
	return &RegisterUserHandler{store: store}
}

// WithPasswordCost sets the bcrypt cost for new passwords
func (h *RegisterUserHandler) WithPasswordCost(cost int) *RegisterUserHandler {
	h.cost = cost
	return h
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) (*Principal, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) (*Principal, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	email := normalizeEmail(event.Email)

	taken, err := h.store.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check email availability")
	}

	if taken {
		return nil, ErrEmailTaken
	}

	hash, err := HashPasswordWithCost(event.Password, h.cost)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	principal, err := h.store.CreatePrincipal(ctx, &Principal{
		Username:     email,
		FirstName:    event.FirstName,
		LastName:     event.LastName,
		PasswordHash: hash,
		Admin:        false,
	})
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) && richErr.Category == goerrors.CategoryConflict {
			return nil, ErrEmailTaken
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "could not create user")
	}

	return principal, nil
}
