package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const ScopeEmailVerification = "email_verification"

// UserClaims is the snapshot of the principal embedded in every token.
// Role is intentionally absent: authorization always re-reads the live
// user record, so a role change takes effect without reissuing tokens.
type UserClaims struct {
	Email   string `json:"email"`
	UserUID string `json:"user_uid"`
}

type Claims struct {
	User    UserClaims `json:"user"`
	Refresh bool       `json:"refresh"`
	Scope   string     `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

// JTI returns the unique per-token id used for revocation.
func (c *Claims) JTI() string { return c.ID }

type Codec struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewCodec(secret []byte, accessTTL, refreshTTL time.Duration) (*Codec, error) {
	if len(secret) == 0 {
		return nil, errors.New("token: empty signing secret")
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, errors.New("token: token lifetimes must be positive")
	}
	return &Codec{secret: secret, accessTTL: accessTTL, refreshTTL: refreshTTL}, nil
}

func (c *Codec) IssueAccess(u UserClaims) (string, error) {
	return c.issue(u, c.accessTTL, false, "")
}

func (c *Codec) IssueRefresh(u UserClaims) (string, error) {
	return c.issue(u, c.refreshTTL, true, "")
}

// IssueVerification mints a short single-purpose token redeemed once to flip
// is_verified. It shares the codec so the same secret and parser apply.
func (c *Codec) IssueVerification(u UserClaims, ttl time.Duration) (string, error) {
	return c.issue(u, ttl, false, ScopeEmailVerification)
}

func (c *Codec) issue(u UserClaims, ttl time.Duration, refresh bool, scope string) (string, error) {
	now := time.Now()
	claims := Claims{
		User:    u,
		Refresh: refresh,
		Scope:   scope,
		RegisteredClaims: jwt.RegisteredClaims{
			// A fresh jti per call keeps every issued token independently
			// revocable, even two tokens minted for the same login.
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, nil
}

// Decode verifies the signature and expiry and returns the embedded claims.
// Expiry is enforced here and only here; callers must not re-check exp with
// their own clocks. The returned error carries the parse diagnostics for
// logging; the API boundary collapses all of them into one invalid-token
// response.
func (c *Codec) Decode(raw string) (*Claims, error) {
	claims := &Claims{}
	t, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("token: decode: %w", err)
	}
	if !t.Valid {
		return nil, errors.New("token: decode: token is not valid")
	}
	return claims, nil
}
