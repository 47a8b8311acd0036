package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/bookly-project/bookly/internal/apperr"
	"github.com/bookly-project/bookly/internal/logging"
	"github.com/bookly-project/bookly/internal/models"
	"github.com/bookly-project/bookly/internal/token"
)

const (
	claimsContextKey = "token_claims"
	userContextKey   = "current_user"
)

// TokenGuard runs the bearer validation pipeline:
// extract -> decode -> revocation check -> kind check. The first failing
// stage is terminal; nothing is retried.
type TokenGuard struct {
	Codec     *token.Codec
	Blocklist *token.Blocklist
}

func NewTokenGuard(codec *token.Codec, blocklist *token.Blocklist) *TokenGuard {
	return &TokenGuard{Codec: codec, Blocklist: blocklist}
}

func (g *TokenGuard) RequireAccess(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, err := g.validate(c, false)
		if err != nil {
			return err
		}
		c.Set(claimsContextKey, claims)
		return next(c)
	}
}

func (g *TokenGuard) RequireRefresh(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, err := g.validate(c, true)
		if err != nil {
			return err
		}
		c.Set(claimsContextKey, claims)
		return next(c)
	}
}

func (g *TokenGuard) validate(c echo.Context, wantRefresh bool) (*token.Claims, error) {
	l := logging.FromContext(c.Request().Context()).With("middleware", "token_guard")

	raw, ok := bearerToken(c.Request())
	if !ok {
		return nil, kindRequired(wantRefresh)
	}

	claims, err := g.Codec.Decode(raw)
	if err != nil {
		// The cause (malformed vs bad signature vs expired) stays in the
		// logs; the client sees one uniform rejection.
		l.Warn("token rejected", "reason", "decode", "error", err)
		return nil, apperr.ErrInvalidToken
	}

	revoked, err := g.Blocklist.IsRevoked(c.Request().Context(), claims.JTI())
	if err != nil {
		// Fail closed: an unreachable store never reads as "not revoked".
		l.Error("token rejected", "reason", "blocklist unavailable", "error", err)
		return nil, apperr.ErrInvalidToken
	}
	if revoked {
		l.Warn("token rejected", "reason", "revoked", "jti", claims.JTI())
		return nil, apperr.ErrRevokedToken
	}

	if claims.Scope != "" {
		// Single-purpose tokens (email verification) are not bearer
		// credentials for the API.
		l.Warn("token rejected", "reason", "scoped token used as bearer", "scope", claims.Scope)
		return nil, apperr.ErrInvalidToken
	}

	if claims.Refresh != wantRefresh {
		return nil, kindRequired(wantRefresh)
	}

	return claims, nil
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get(echo.HeaderAuthorization)
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}

func kindRequired(wantRefresh bool) *apperr.Error {
	if wantRefresh {
		return apperr.ErrRefreshTokenRequired
	}
	return apperr.ErrAccessTokenRequired
}

// ClaimsFrom returns the validated claims placed by RequireAccess or
// RequireRefresh, or nil when the route is not guarded.
func ClaimsFrom(c echo.Context) *token.Claims {
	claims, _ := c.Get(claimsContextKey).(*token.Claims)
	return claims
}

// UserFrom returns the live principal placed by LoadUser, or nil.
func UserFrom(c echo.Context) *models.User {
	user, _ := c.Get(userContextKey).(*models.User)
	return user
}
