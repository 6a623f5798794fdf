package yoga

import (
	"errors"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/lib/pq"
)

const (
	TextCodeSessionNotFound        = "SESSION_NOT_FOUND"
	TextCodeUserNotFound           = "USER_NOT_FOUND"
	TextCodeTeacherNotFound        = "TEACHER_NOT_FOUND"
	TextCodeAlreadyParticipating   = "ALREADY_PARTICIPATING"
	TextCodeNotParticipating       = "NOT_PARTICIPATING"
	TextCodeInvalidTransition      = "INVALID_PARTICIPATION_TRANSITION"
	TextCodeInvalidID              = "INVALID_ID"
	TextCodeForbiddenUserOperation = "FORBIDDEN_USER_OPERATION"
)

// ErrSessionNotFound is returned when the referenced session does not exist
var ErrSessionNotFound = goerrors.New("session not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeSessionNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrUserNotFound is returned when the referenced user does not exist
var ErrUserNotFound = goerrors.New("user not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeUserNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrTeacherNotFound is returned when the referenced teacher does not exist
var ErrTeacherNotFound = goerrors.New("teacher not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeTeacherNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrAlreadyParticipating is returned on a duplicate join
var ErrAlreadyParticipating = goerrors.New("user already participates in session", goerrors.CategoryValidation).
	WithTextCode(TextCodeAlreadyParticipating).
	WithCode(goerrors.CodeBadRequest)

// ErrNotParticipating is returned when leaving a session the user never joined
var ErrNotParticipating = goerrors.New("user does not participate in session", goerrors.CategoryValidation).
	WithTextCode(TextCodeNotParticipating).
	WithCode(goerrors.CodeBadRequest)

// ErrInvalidTransition is returned for unknown participation events
var ErrInvalidTransition = goerrors.New("invalid participation transition", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidTransition).
	WithCode(goerrors.CodeBadRequest)

// ErrInvalidID is returned when a path id is not a positive integer
var ErrInvalidID = goerrors.New("invalid identifier", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidID).
	WithCode(goerrors.CodeBadRequest)

// ErrForbiddenUserOperation is returned when a principal acts on another account
var ErrForbiddenUserOperation = goerrors.New("not allowed to operate on this user", goerrors.CategoryAuth).
	WithTextCode(TextCodeForbiddenUserOperation).
	WithCode(goerrors.CodeUnauthorized)

// HasTextCode reports whether err is a rich error carrying the given text code
func HasTextCode(err error, code string) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == code
}

func withMetadata(base *goerrors.Error, meta map[string]any) *goerrors.Error {
	return base.Clone().WithMetadata(meta)
}

// isUniqueViolation detects unique constraint failures on postgres and sqlite
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}

	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}
