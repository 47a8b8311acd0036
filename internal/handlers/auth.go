package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/bookly-project/bookly/internal/apperr"
	"github.com/bookly-project/bookly/internal/hash"
	"github.com/bookly-project/bookly/internal/logging"
	authmw "github.com/bookly-project/bookly/internal/middleware/auth"
	"github.com/bookly-project/bookly/internal/models"
	"github.com/bookly-project/bookly/internal/mykafka"
	"github.com/bookly-project/bookly/internal/token"
	"github.com/bookly-project/bookly/internal/users"
)

const verificationTokenTTL = 24 * time.Hour

type AuthHandler struct {
	Directory *users.Directory
	Codec     *token.Codec
	Blocklist *token.Blocklist
	Producer  EventPublisher
}

type signupRequest struct {
	Email     string `json:"email"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (h *AuthHandler) Signup(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_signup")

	var req signupRequest
	if err := c.Bind(&req); err != nil {
		return apperr.ErrBadRequest
	}
	if req.Email == "" || req.Username == "" || req.Password == "" {
		return apperr.ErrBadRequest
	}

	exists, err := h.Directory.Exists(ctx, req.Email)
	if err != nil {
		l.Error("signup failed", "error", err)
		return apperr.ErrInternal
	}
	if exists {
		return apperr.ErrUserExists
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		l.Error("signup failed", "reason", "cannot hash password", "error", err)
		return apperr.ErrInternal
	}

	user := &models.User{
		Email:        req.Email,
		Username:     req.Username,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: pwHash,
		Role:         models.RoleUser,
		IsVerified:   false,
	}
	if err := h.Directory.Create(ctx, user); err != nil {
		l.Error("signup failed", "error", err)
		return apperr.ErrInternal
	}

	verifyToken, err := h.Codec.IssueVerification(
		token.UserClaims{Email: user.Email, UserUID: user.UID},
		verificationTokenTTL,
	)
	if err != nil {
		l.Error("signup failed", "reason", "cannot issue verification token", "error", err)
		return apperr.ErrInternal
	}

	// The mailer service consumes this event and sends the verification
	// link; the API itself never talks SMTP.
	publish(c, h.Producer, mykafka.TopicUserEvents, user.UID, map[string]interface{}{
		"type":               "user_created",
		"user_uid":           user.UID,
		"email":              user.Email,
		"verification_token": verifyToken,
	})

	l.Info("user created", "user_uid", user.UID)
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "account created, check email to verify your account",
		"user":    user,
	})
}

func (h *AuthHandler) Verify(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_verify")

	claims, err := h.Codec.Decode(c.Param("token"))
	if err != nil {
		l.Warn("verification rejected", "error", err)
		return apperr.ErrInvalidToken
	}
	if claims.Scope != token.ScopeEmailVerification {
		l.Warn("verification rejected", "reason", "wrong token scope")
		return apperr.ErrInvalidToken
	}

	if _, err := h.Directory.FindByUID(ctx, claims.User.UserUID); err != nil {
		if errors.Is(err, apperr.ErrUserNotFound) {
			return apperr.ErrUserNotFound
		}
		l.Error("verification failed", "error", err)
		return apperr.ErrInternal
	}

	if err := h.Directory.MarkVerified(ctx, claims.User.UserUID); err != nil {
		l.Error("verification failed", "error", err)
		return apperr.ErrInternal
	}

	l.Info("account verified", "user_uid", claims.User.UserUID)
	return c.JSON(http.StatusOK, echo.Map{"message": "account verified successfully"})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return apperr.ErrBadRequest
	}

	// Unknown email and wrong password produce the same response so the
	// endpoint cannot be used to enumerate accounts.
	user, err := h.Directory.FindByEmail(ctx, req.Email)
	if errors.Is(err, apperr.ErrUserNotFound) {
		return apperr.ErrInvalidCredentials
	}
	if err != nil {
		l.Error("login failed", "error", err)
		return apperr.ErrInternal
	}
	if !hash.CheckPassword(user.PasswordHash, req.Password) {
		return apperr.ErrInvalidCredentials
	}

	uc := token.UserClaims{Email: user.Email, UserUID: user.UID}
	accessToken, err := h.Codec.IssueAccess(uc)
	if err != nil {
		l.Error("login failed", "reason", "cannot issue access token", "error", err)
		return apperr.ErrInternal
	}
	refreshToken, err := h.Codec.IssueRefresh(uc)
	if err != nil {
		l.Error("login failed", "reason", "cannot issue refresh token", "error", err)
		return apperr.ErrInternal
	}

	publish(c, h.Producer, mykafka.TopicUserEvents, user.UID, map[string]interface{}{
		"type":     "user_logged_in",
		"user_uid": user.UID,
	})

	l.Info("login successful", "user_uid", user.UID)
	return c.JSON(http.StatusOK, echo.Map{
		"message":       "login successful",
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"user": echo.Map{
			"uid":      user.UID,
			"email":    user.Email,
			"username": user.Username,
		},
	})
}

// Refresh issues a new access token against a valid refresh token. The
// refresh token itself is not rotated. Expiry was already enforced by the
// codec inside the refresh guard; there is no second clock here.
func (h *AuthHandler) Refresh(c echo.Context) error {
	claims := authmw.ClaimsFrom(c)
	if claims == nil {
		return apperr.ErrRefreshTokenRequired
	}

	accessToken, err := h.Codec.IssueAccess(claims.User)
	if err != nil {
		logging.FromContext(c.Request().Context()).
			Error("refresh failed", "error", err)
		return apperr.ErrInternal
	}

	return c.JSON(http.StatusOK, echo.Map{"access_token": accessToken})
}

// Logout revokes the presented access token only. The paired refresh token
// and any other live access tokens for the same user stay valid.
func (h *AuthHandler) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_logout")

	claims := authmw.ClaimsFrom(c)
	if claims == nil {
		return apperr.ErrAccessTokenRequired
	}

	if err := h.Blocklist.Revoke(ctx, claims.JTI()); err != nil {
		l.Error("logout failed", "reason", "cannot revoke token", "error", err)
		return apperr.ErrInternal
	}

	l.Info("logout successful", "jti", claims.JTI())
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out successfully"})
}

func (h *AuthHandler) Me(c echo.Context) error {
	ctx := c.Request().Context()

	user := authmw.UserFrom(c)
	if user == nil {
		return apperr.ErrAccessTokenRequired
	}

	resp := echo.Map{"user": user}

	if user.Role == models.RoleAdmin {
		counts, err := h.Directory.CountByRole(ctx)
		if err != nil {
			logging.FromContext(ctx).Error("account counts failed", "error", err)
			return apperr.ErrInternal
		}
		resp["account_counts"] = counts
	}

	return c.JSON(http.StatusOK, resp)
}
