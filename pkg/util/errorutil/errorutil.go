package errorutil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// Stable machine-readable error codes.
const (
	CodeValidationFailed          = "VALIDATION_FAILED"
	CodeNotFound                  = "NOT_FOUND"
	CodeUnauthorized              = "UNAUTHORIZED"
	CodeForbidden                 = "FORBIDDEN"
	CodeInternal                  = "INTERNAL_ERROR"
	CodeDuplicateSubject          = "DUPLICATE_SUBJECT"
	CodeMissingDefaultAuthority   = "MISSING_DEFAULT_AUTHORITY"
	CodeInvalidCredentials        = "INVALID_CREDENTIALS"
	CodeBadToken                  = "BAD_TOKEN"
	CodeAccessTokenExpired        = "ACCESS_TOKEN_EXPIRED"
	CodeRefreshTokenExpired       = "REFRESH_TOKEN_EXPIRED"
	CodeLoggedOut                 = "LOGGED_OUT"
	CodeSubjectNotFound           = "SUBJECT_NOT_FOUND"
	CodeSessionLookupInconsistent = "SESSION_LOOKUP_INCONSISTENT"
	CodeSessionConflict           = "SESSION_CONFLICT"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func NewDuplicateSubject(email string) error {
	return NewDomainError(CodeDuplicateSubject, "email already registered", http.StatusConflict,
		map[string]any{"email": email})
}

// NewMissingDefaultAuthority reports a provisioning failure, not a caller mistake.
func NewMissingDefaultAuthority(name string, err error) error {
	return &DomainError{
		Code:       CodeMissingDefaultAuthority,
		Message:    "default authority is not configured",
		HTTPStatus: http.StatusInternalServerError,
		Details:    map[string]any{"authority": name},
		Err:        err,
	}
}

// NewInvalidCredentials never carries the cause into the message so callers cannot
// learn whether the email exists.
func NewInvalidCredentials(err error) error {
	return &DomainError{
		Code:       CodeInvalidCredentials,
		Message:    "invalid email or password",
		HTTPStatus: http.StatusUnauthorized,
		Err:        err,
	}
}

func NewBadToken(message string) error {
	return NewDomainError(CodeBadToken, message, http.StatusUnauthorized, nil)
}

func NewAccessTokenExpired() error {
	return NewDomainError(CodeAccessTokenExpired, "access token expired", http.StatusUnauthorized, nil)
}

func NewRefreshTokenExpired() error {
	return NewDomainError(CodeRefreshTokenExpired, "refresh token expired", http.StatusUnauthorized, nil)
}

func NewLoggedOut() error {
	return NewDomainError(CodeLoggedOut, "no active session; please log in again", http.StatusUnauthorized, nil)
}

func NewSubjectNotFound() error {
	return NewDomainError(CodeSubjectNotFound, "member not found", http.StatusNotFound, nil)
}

// NewSessionLookupInconsistent hides store diagnostics behind a generic message.
func NewSessionLookupInconsistent(err error) error {
	return &DomainError{
		Code:       CodeSessionLookupInconsistent,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func NewSessionConflict(err error) error {
	return &DomainError{
		Code:       CodeSessionConflict,
		Message:    "concurrent session change; retry login",
		HTTPStatus: http.StatusConflict,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		if de, ok := NewNotFound("resource", nil).(*DomainError); ok {
			return de
		}
	}
	if de, ok := NewInternalError(err).(*DomainError); ok {
		return de
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}

// HasCode reports whether err is a DomainError carrying code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		return false
	}
	return domainErr.Code == code
}
