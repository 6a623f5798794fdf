package auth

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// MessageUserRegistered is the body message after a successful signup
const MessageUserRegistered = "User registered successfully!"

// Controller serves the login and register endpoints
type Controller struct {
	Debug        bool
	provider     *UserProvider
	tokens       TokenIssuer
	register     *RegisterUserHandler
	passwordCost int
	logger       Logger
}

// ControllerOption configures a Controller
type ControllerOption func(*Controller)

// WithControllerLogger sets the logger
func WithControllerLogger(logger Logger) ControllerOption {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithDebug dumps payloads to stdout
func WithDebug(debug bool) ControllerOption {
	return func(c *Controller) {
		c.Debug = debug
	}
}

// WithPasswordCost sets the bcrypt cost used at registration
func WithPasswordCost(cost int) ControllerOption {
	return func(c *Controller) {
		c.passwordCost = cost
	}
}

// NewController wires the controller. It panics if a dependency is missing.
func NewController(store CredentialStore, tokens TokenIssuer, opts ...ControllerOption) *Controller {
	if store == nil {
		panic("auth controller: credential store is required")
	}
	if tokens == nil {
		panic("auth controller: token issuer is required")
	}

	c := &Controller{
		provider: NewUserProvider(store),
		tokens:   tokens,
		register: NewRegisterUserHandler(store),
		logger:   defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	c.provider.WithLogger(c.logger)
	c.register.WithPasswordCost(c.passwordCost)

	return c
}

// RegisterAuthRoutes mounts POST /login and POST /register on app
func RegisterAuthRoutes[T any](app router.Router[T], controller *Controller) {
	app.Post("/login", controller.Login).SetName("auth.login")
	app.Post("/register", controller.Register).SetName("auth.register")
}

// LoginRequest is the login payload
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() *errors.Error {
	return errors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&r,
			validation.Field(&r.Email, validation.Required),
			validation.Field(&r.Password, validation.Required),
		)
	}, "Invalid login request payload")
}

// LoginResponse is returned on successful login
type LoginResponse struct {
	Token     string `json:"token"`
	Type      string `json:"type"`
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Admin     bool   `json:"admin"`
}

// Login verifies the credentials and returns a bearer token
func (a *Controller) Login(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		return errors.Wrap(err, errors.CategoryBadInput, "failed to parse login payload").
			WithCode(errors.CodeBadRequest)
	}

	if err := payload.Validate(); err != nil {
		return err
	}

	principal, err := a.provider.VerifyIdentity(ctx.Context(), payload.Email, payload.Password)
	if err != nil {
		a.logger.Info("login failed for %s", payload.Email)
		return err
	}

	token, err := a.tokens.Issue(principal.Username)
	if err != nil {
		return err
	}

	return ctx.JSON(router.StatusOK, LoginResponse{
		Token:     token,
		Type:      "Bearer",
		ID:        principal.ID,
		Username:  principal.Username,
		FirstName: principal.FirstName,
		LastName:  principal.LastName,
		Admin:     principal.Admin,
	})
}

// SignupRequest is the register payload
type SignupRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Password  string `json:"password"`
}

// Validate will run validation rules
func (r SignupRequest) Validate() *errors.Error {
	return errors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&r,
			validation.Field(&r.Email, validation.Required, validation.Length(1, 50), is.Email),
			validation.Field(&r.FirstName, validation.Required, validation.Length(3, 20)),
			validation.Field(&r.LastName, validation.Required, validation.Length(3, 20)),
			validation.Field(&r.Password, validation.Required, validation.Length(3, 40)),
		)
	}, "Invalid registration payload")
}

// MessageResponse is a plain message body
type MessageResponse struct {
	Message string `json:"message"`
}

// Register creates a new account
func (a *Controller) Register(ctx router.Context) error {
	payload := new(SignupRequest)

	if err := ctx.Bind(payload); err != nil {
		return errors.Wrap(err, errors.CategoryBadInput, "failed to parse registration payload").
			WithCode(errors.CodeBadRequest)
	}

	if err := payload.Validate(); err != nil {
		return err
	}

	if a.Debug {
		fmt.Println("======= AUTH REGISTER ======")
		fmt.Println(print.MaybePrettyJSON(map[string]any{
			"email":     payload.Email,
			"firstName": payload.FirstName,
			"lastName":  payload.LastName,
		}))
		fmt.Println("============================")
	}

	_, err := a.register.Execute(ctx.Context(), RegisterUserMessage{
		Email:     payload.Email,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Password:  payload.Password,
	})
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return ctx.JSON(router.StatusBadRequest, MessageResponse{Message: ErrEmailTaken.Message})
		}
		return err
	}

	return ctx.JSON(router.StatusOK, MessageResponse{Message: MessageUserRegistered})
}
