package apperr

import "net/http"

// Error is the single error shape that crosses the API boundary. Code is a
// stable machine-readable identifier; Message and Hint are for humans.
// Internal causes are logged where they occur and never serialized.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
	Status  int    `json:"-"`
}

func (e *Error) Error() string { return e.Message }

var (
	ErrInvalidCredentials = &Error{
		Code:    "invalid_credentials",
		Message: "invalid email or password",
		Status:  http.StatusForbidden,
	}
	ErrInvalidToken = &Error{
		Code:    "invalid_token",
		Message: "token is invalid or expired",
		Hint:    "please get a new token",
		Status:  http.StatusUnauthorized,
	}
	ErrRevokedToken = &Error{
		Code:    "revoked_token",
		Message: "token is invalid or has been revoked",
		Hint:    "please get a new token",
		Status:  http.StatusUnauthorized,
	}
	ErrAccessTokenRequired = &Error{
		Code:    "access_token_required",
		Message: "please provide a valid access token",
		Status:  http.StatusUnauthorized,
	}
	ErrRefreshTokenRequired = &Error{
		Code:    "refresh_token_required",
		Message: "please provide a valid refresh token",
		Status:  http.StatusForbidden,
	}
	ErrAccountNotVerified = &Error{
		Code:    "account_not_verified",
		Message: "account not verified",
		Hint:    "please check your email for verification details",
		Status:  http.StatusForbidden,
	}
	ErrInsufficientPermission = &Error{
		Code:    "insufficient_permission",
		Message: "you do not have enough permissions to perform this action",
		Status:  http.StatusForbidden,
	}
	ErrUserExists = &Error{
		Code:    "user_exists",
		Message: "user with this email already exists",
		Status:  http.StatusForbidden,
	}
	ErrUserNotFound = &Error{
		Code:    "user_not_found",
		Message: "user not found",
		Status:  http.StatusForbidden,
	}
	ErrBookNotFound = &Error{
		Code:    "book_not_found",
		Message: "book not found",
		Status:  http.StatusNotFound,
	}
	ErrReviewNotFound = &Error{
		Code:    "review_not_found",
		Message: "review not found",
		Status:  http.StatusNotFound,
	}
	ErrTagNotFound = &Error{
		Code:    "tag_not_found",
		Message: "tag not found",
		Status:  http.StatusNotFound,
	}
	ErrBadRequest = &Error{
		Code:    "bad_request",
		Message: "invalid request body",
		Status:  http.StatusBadRequest,
	}
	ErrInternal = &Error{
		Code:    "internal_error",
		Message: "oops! something went wrong",
		Status:  http.StatusInternalServerError,
	}
)
