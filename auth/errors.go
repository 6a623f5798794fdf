package auth

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidUsername    = "INVALID_USERNAME"
	TextCodeTokenMalformed     = "TOKEN_MALFORMED"
	TextCodeTokenExpired       = "TOKEN_EXPIRED"
	TextCodeIdentityNotFound   = "IDENTITY_NOT_FOUND"
	TextCodeInvalidCredentials = "INVALID_CREDENTIALS"
	TextCodeEmptyPassword      = "EMPTY_PASSWORD"
	TextCodeEmailTaken         = "EMAIL_TAKEN"
	TextCodeUnauthenticated    = "UNAUTHENTICATED"
)

// ErrInvalidUsername is returned when a token is requested for an empty username
var ErrInvalidUsername = goerrors.New("username must not be empty", goerrors.CategoryBadInput).
	WithTextCode(TextCodeInvalidUsername).
	WithCode(goerrors.CodeBadRequest)

// ErrTokenMalformed is returned when a token can not be parsed or its signature does not match
var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenExpired is returned when the token expiry is in the past
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrIdentityNotFound is returned when no principal matches a username
var ErrIdentityNotFound = goerrors.New("identity not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeIdentityNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrMismatchedHashAndPassword is returned on bad credentials
var ErrMismatchedHashAndPassword = goerrors.New("Bad credentials", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrNoEmptyString is returned when hashing an empty password
var ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(goerrors.CodeBadRequest)

// ErrEmailTaken is returned on registration with an existing email
var ErrEmailTaken = goerrors.New("Error: Email is already taken!", goerrors.CategoryConflict).
	WithTextCode(TextCodeEmailTaken).
	WithCode(goerrors.CodeBadRequest)

// ErrUnauthenticated is returned when a protected operation runs without a principal
var ErrUnauthenticated = goerrors.New("Full authentication is required to access this resource", goerrors.CategoryAuth).
	WithTextCode(TextCodeUnauthenticated).
	WithCode(goerrors.CodeUnauthorized)

// HasTextCode reports whether err is a rich error carrying the given text code
func HasTextCode(err error, code string) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == code
}
