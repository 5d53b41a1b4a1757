package api

import "fmt"

// Code identifies the category of a gateway error. Codes are stable:
// clients branch on them, so renaming one is a breaking change.
type Code string

const (
	// CodeAuthRequired is returned when no principal is present and
	// anonymous access is disabled.
	CodeAuthRequired Code = "AUTH_REQUIRED"

	// CodeAppAccessDenied is returned when a principal lacks the grant
	// for a specific chat application.
	CodeAppAccessDenied Code = "APP_ACCESS_DENIED"

	// CodeModelAccessDenied is returned when a principal lacks the grant
	// for a specific model.
	CodeModelAccessDenied Code = "MODEL_ACCESS_DENIED"

	// CodeInvalidCredentials is returned by login endpoints when the
	// submitted secret is rejected.
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"

	// CodeCallbackFailed is returned when an OIDC or NTLM callback did
	// not yield an authenticated status.
	CodeCallbackFailed Code = "CALLBACK_VERIFICATION_FAILED"

	// CodeLastAdmin is returned when a mutation would remove the last
	// reachable administrator.
	CodeLastAdmin Code = "LAST_ADMIN"

	// CodeMethodDisabled is returned when a login endpoint for a
	// disabled authentication method is invoked.
	CodeMethodDisabled Code = "METHOD_DISABLED"

	// CodeTooManyRequests is returned when the login rate limiter
	// rejects an attempt.
	CodeTooManyRequests Code = "TOO_MANY_REQUESTS"

	// CodeAdminRequired is returned when a user-management endpoint is
	// invoked by a non-administrator.
	CodeAdminRequired Code = "ADMIN_REQUIRED"

	// CodeConflict is returned when a mutation collides with existing
	// state, e.g. creating a user whose username is taken.
	CodeConflict Code = "CONFLICT"

	CodeNotFound       Code = "NOT_FOUND"
	CodeInvalidRequest Code = "INVALID_REQUEST"
	CodeServerError    Code = "SERVER_ERROR"
)

// Error is a structured gateway error with a stable code.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ErrorResponse wraps an Error for JSON serialization as the top-level
// error response body.
type ErrorResponse struct {
	Error *Error `json:"error"`
}

// NewError creates an Error with the given code and message.
func NewError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewErrorf creates an Error with a formatted message.
func NewErrorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}
