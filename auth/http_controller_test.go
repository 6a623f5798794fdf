package auth_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/goliatone/go-router"
	"github.com/steinfletcher/apitest"
	jsonpath "github.com/steinfletcher/apitest-jsonpath"
	"github.com/stretchr/testify/mock"

	"github.com/goliatone/go-yoga/auth"
)

func newAuthHandler(store auth.CredentialStore, tokens auth.TokenIssuer) http.HandlerFunc {
	var app *fiber.App
	srv := router.NewFiberAdapter(func(_ *fiber.App) *fiber.App {
		app = fiber.New(fiber.Config{
			DisableStartupMessage: true,
			ErrorHandler:          auth.NewErrorHandler(auth.NopLogger{}),
		})
		return app
	})

	controller := auth.NewController(store, tokens, auth.WithControllerLogger(auth.NopLogger{}))
	auth.RegisterAuthRoutes(srv.Router().Group("/api/auth"), controller)

	return fiberHandler(app)
}

// fiberHandler exposes app as a net/http handler. The adaptor routes on
// RequestURI, which requests built in tests leave empty.
func fiberHandler(app *fiber.App) http.HandlerFunc {
	h := adaptor.FiberApp(app)
	return func(w http.ResponseWriter, r *http.Request) {
		r.RequestURI = r.URL.RequestURI()
		h(w, r)
	}
}

func TestController_Login(t *testing.T) {
	principal := &auth.Principal{
		ID:           1,
		Username:     "yoga@studio.com",
		FirstName:    "Admin",
		LastName:     "Admin",
		PasswordHash: mustHash("test!1234"),
		Admin:        true,
	}

	t.Run("valid credentials", func(t *testing.T) {
		store := &MockCredentialStore{}
		store.On("GetByEmail", mock.Anything, "yoga@studio.com").Return(principal, nil)
		tokens := &MockTokenIssuer{}
		tokens.On("Issue", "yoga@studio.com").Return("signed.jwt.token", nil)

		apitest.New().
			Handler(newAuthHandler(store, tokens)).
			Post("/api/auth/login").
			JSON(`{"email":"yoga@studio.com","password":"test!1234"}`).
			Expect(t).
			Status(http.StatusOK).
			Assert(jsonpath.Equal("$.token", "signed.jwt.token")).
			Assert(jsonpath.Equal("$.type", "Bearer")).
			Assert(jsonpath.Equal("$.id", float64(1))).
			Assert(jsonpath.Equal("$.username", "yoga@studio.com")).
			Assert(jsonpath.Equal("$.firstName", "Admin")).
			Assert(jsonpath.Equal("$.lastName", "Admin")).
			Assert(jsonpath.Equal("$.admin", true)).
			End()
	})

	t.Run("wrong password", func(t *testing.T) {
		store := &MockCredentialStore{}
		store.On("GetByEmail", mock.Anything, "yoga@studio.com").Return(principal, nil)

		apitest.New().
			Handler(newAuthHandler(store, &MockTokenIssuer{})).
			Post("/api/auth/login").
			JSON(`{"email":"yoga@studio.com","password":"wrong"}`).
			Expect(t).
			Status(http.StatusUnauthorized).
			Assert(jsonpath.Equal("$.error.text_code", auth.TextCodeInvalidCredentials)).
			End()
	})

	t.Run("unknown user", func(t *testing.T) {
		store := &MockCredentialStore{}
		store.On("GetByEmail", mock.Anything, "ghost@studio.com").Return(nil, notFound())

		apitest.New().
			Handler(newAuthHandler(store, &MockTokenIssuer{})).
			Post("/api/auth/login").
			JSON(`{"email":"ghost@studio.com","password":"test!1234"}`).
			Expect(t).
			Status(http.StatusUnauthorized).
			End()
	})

	t.Run("missing fields", func(t *testing.T) {
		apitest.New().
			Handler(newAuthHandler(&MockCredentialStore{}, &MockTokenIssuer{})).
			Post("/api/auth/login").
			JSON(`{"email":""}`).
			Expect(t).
			Status(http.StatusBadRequest).
			End()
	})

	t.Run("malformed json", func(t *testing.T) {
		apitest.New().
			Handler(newAuthHandler(&MockCredentialStore{}, &MockTokenIssuer{})).
			Post("/api/auth/login").
			Header("Content-Type", "application/json").
			Body(`{malformed json`).
			Expect(t).
			Status(http.StatusBadRequest).
			End()
	})
}

func TestController_Register(t *testing.T) {
	body := `{"email":"new@studio.com","firstName":"New","lastName":"Student","password":"test!1234"}`

	t.Run("creates account", func(t *testing.T) {
		store := &MockCredentialStore{}
		store.On("ExistsByEmail", mock.Anything, "new@studio.com").Return(false, nil)
		store.On("CreatePrincipal", mock.Anything, mock.Anything).Return(&auth.Principal{ID: 2}, nil)

		apitest.New().
			Handler(newAuthHandler(store, &MockTokenIssuer{})).
			Post("/api/auth/register").
			JSON(body).
			Expect(t).
			Status(http.StatusOK).
			Assert(jsonpath.Equal("$.message", auth.MessageUserRegistered)).
			End()

		store.AssertExpectations(t)
	})

	t.Run("email taken", func(t *testing.T) {
		store := &MockCredentialStore{}
		store.On("ExistsByEmail", mock.Anything, "new@studio.com").Return(true, nil)

		apitest.New().
			Handler(newAuthHandler(store, &MockTokenIssuer{})).
			Post("/api/auth/register").
			JSON(body).
			Expect(t).
			Status(http.StatusBadRequest).
			Assert(jsonpath.Equal("$.message", "Error: Email is already taken!")).
			End()
	})

	t.Run("invalid email", func(t *testing.T) {
		apitest.New().
			Handler(newAuthHandler(&MockCredentialStore{}, &MockTokenIssuer{})).
			Post("/api/auth/register").
			JSON(`{"email":"not-an-email","firstName":"New","lastName":"Student","password":"test!1234"}`).
			Expect(t).
			Status(http.StatusBadRequest).
			End()
	})

	t.Run("store failure", func(t *testing.T) {
		store := &MockCredentialStore{}
		store.On("ExistsByEmail", mock.Anything, "new@studio.com").Return(false, errors.New("db down"))

		apitest.New().
			Handler(newAuthHandler(store, &MockTokenIssuer{})).
			Post("/api/auth/register").
			JSON(body).
			Expect(t).
			Status(http.StatusInternalServerError).
			End()
	})
}
