package auth

import (
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/bookly-project/bookly/internal/apperr"
	"github.com/bookly-project/bookly/internal/logging"
	"github.com/bookly-project/bookly/internal/users"
)

// LoadUser resolves the live principal for validated access-token claims.
// The account may legitimately be gone (deleted after the token was
// issued), which surfaces as user_not_found rather than invalid_token.
func LoadUser(directory *users.Directory) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims := ClaimsFrom(c)
			if claims == nil {
				return apperr.ErrAccessTokenRequired
			}

			user, err := directory.FindByEmail(c.Request().Context(), claims.User.Email)
			if errors.Is(err, apperr.ErrUserNotFound) {
				return apperr.ErrUserNotFound
			}
			if err != nil {
				logging.FromContext(c.Request().Context()).
					Error("current user lookup failed", "error", err)
				return apperr.ErrInternal
			}

			c.Set(userContextKey, user)
			return next(c)
		}
	}
}

// RequireRoles gates a route to a fixed allowed-role set. Verification is
// checked before role: an unverified admin is still blocked as unverified.
func RequireRoles(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := UserFrom(c)
			if user == nil {
				return apperr.ErrAccessTokenRequired
			}
			if !user.IsVerified {
				return apperr.ErrAccountNotVerified
			}
			if _, ok := allowed[user.Role]; !ok {
				return apperr.ErrInsufficientPermission
			}
			return next(c)
		}
	}
}
