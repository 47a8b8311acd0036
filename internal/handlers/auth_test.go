package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/bookly-project/bookly/internal/handlers"
	authmw "github.com/bookly-project/bookly/internal/middleware/auth"
	"github.com/bookly-project/bookly/internal/models"
	"github.com/bookly-project/bookly/internal/token"
	httpserver "github.com/bookly-project/bookly/internal/transport/http"
	"github.com/bookly-project/bookly/internal/users"
)

type recordedEvent struct {
	Topic string
	Key   string
	Event map[string]interface{}
}

type stubProducer struct {
	events []recordedEvent
}

func (p *stubProducer) PublishEvent(_ context.Context, topic, key string, event interface{}) error {
	p.events = append(p.events, recordedEvent{Topic: topic, Key: key, Event: event.(map[string]interface{})})
	return nil
}

type testEnv struct {
	E         *echo.Echo
	DB        *gorm.DB
	Codec     *token.Codec
	Directory *users.Directory
	Producer  *stubProducer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Book{}, &models.Review{}, &models.Tag{}))

	codec, err := token.NewCodec([]byte("test-secret"), time.Hour, 48*time.Hour)
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	blocklist := token.NewBlocklistWithClient(rdb, time.Hour)

	directory := users.NewDirectory(db)
	producer := &stubProducer{}

	deps := &httpserver.Deps{
		Guard:     authmw.NewTokenGuard(codec, blocklist),
		Directory: directory,
		AuthHandler: &handlers.AuthHandler{
			Directory: directory,
			Codec:     codec,
			Blocklist: blocklist,
			Producer:  producer,
		},
		BookHandler:   &handlers.BookHandler{DB: db, Producer: producer},
		ReviewHandler: &handlers.ReviewHandler{DB: db, Producer: producer},
		TagHandler:    &handlers.TagHandler{DB: db},
	}

	e := echo.New()
	httpserver.Register(e, deps)

	return &testEnv{E: e, DB: db, Codec: codec, Directory: directory, Producer: producer}
}

func (env *testEnv) request(t *testing.T, method, path, bearer string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	env.E.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) signup(t *testing.T, email, password string) {
	t.Helper()
	rec := env.request(t, http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"email":    email,
		"username": "test_user",
		"password": password,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func (env *testEnv) login(t *testing.T, email, password string) (access, refresh string) {
	t.Helper()
	rec := env.request(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp["access_token"])
	require.NotEmpty(t, resp["refresh_token"])
	return resp["access_token"].(string), resp["refresh_token"].(string)
}

func (env *testEnv) verify(t *testing.T, email string) {
	t.Helper()
	var verifyToken string
	for _, ev := range env.Producer.events {
		if ev.Event["type"] == "user_created" && ev.Event["email"] == email {
			verifyToken = ev.Event["verification_token"].(string)
		}
	}
	require.NotEmpty(t, verifyToken, "signup must publish a verification token")

	rec := env.request(t, http.MethodGet, "/api/v1/auth/verify/"+verifyToken, "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Code
}

func TestSignup(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"email":    "a@x.com",
		"username": "a",
		"password": "secret1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		User models.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "a@x.com", resp.User.Email)
	require.Equal(t, models.RoleUser, resp.User.Role)
	require.False(t, resp.User.IsVerified)
	require.NotEmpty(t, resp.User.UID)
	require.NotContains(t, rec.Body.String(), "password_hash")

	rec = env.request(t, http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"email":    "a@x.com",
		"username": "a2",
		"password": "secret2",
	})
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "user_exists", errorCode(t, rec))
}

func TestLoginIssuesTokenPair(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "a@x.com", "secret1")

	access, refresh := env.login(t, "a@x.com", "secret1")

	accessClaims, err := env.Codec.Decode(access)
	require.NoError(t, err)
	require.False(t, accessClaims.Refresh)
	require.Equal(t, "a@x.com", accessClaims.User.Email)

	refreshClaims, err := env.Codec.Decode(refresh)
	require.NoError(t, err)
	require.True(t, refreshClaims.Refresh)
	require.NotEqual(t, accessClaims.JTI(), refreshClaims.JTI())
}

func TestLoginEnumerationResistance(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "a@x.com", "secret1")

	unknown := env.request(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "nobody@x.com",
		"password": "secret1",
	})
	wrongPassword := env.request(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "a@x.com",
		"password": "wrong",
	})

	require.Equal(t, http.StatusForbidden, unknown.Code)
	require.Equal(t, unknown.Code, wrongPassword.Code)
	require.Equal(t, unknown.Body.String(), wrongPassword.Body.String(),
		"unknown email and wrong password must be indistinguishable")
}

func TestMeRequiresVerification(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "a@x.com", "secret1")
	access, _ := env.login(t, "a@x.com", "secret1")

	rec := env.request(t, http.MethodGet, "/api/v1/auth/me", access, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "account_not_verified", errorCode(t, rec),
		"verification is checked before role")

	env.verify(t, "a@x.com")

	rec = env.request(t, http.MethodGet, "/api/v1/auth/me", access, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		User models.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.User.IsVerified)
}

func TestMeAdminExtra(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "admin@x.com", "secret1")
	env.verify(t, "admin@x.com")
	require.NoError(t, env.DB.Model(&models.User{}).
		Where("email = ?", "admin@x.com").
		Update("role", models.RoleAdmin).Error)

	access, _ := env.login(t, "admin@x.com", "secret1")

	rec := env.request(t, http.MethodGet, "/api/v1/auth/me", access, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "account_counts")
}

func TestLogoutRevokesToken(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "a@x.com", "secret1")
	env.verify(t, "a@x.com")
	access, _ := env.login(t, "a@x.com", "secret1")

	rec := env.request(t, http.MethodGet, "/api/v1/auth/logout", access, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.request(t, http.MethodGet, "/api/v1/auth/me", access, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "revoked_token", errorCode(t, rec))
}

func TestLogoutIsPerToken(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "a@x.com", "secret1")
	env.verify(t, "a@x.com")
	access1, refresh := env.login(t, "a@x.com", "secret1")
	access2, _ := env.login(t, "a@x.com", "secret1")

	rec := env.request(t, http.MethodGet, "/api/v1/auth/logout", access1, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Other live credentials for the same user are untouched.
	rec = env.request(t, http.MethodGet, "/api/v1/auth/me", access2, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.request(t, http.MethodGet, "/api/v1/auth/refresh_token", refresh, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRefreshIssuesNewAccessToken(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "a@x.com", "secret1")
	access, refresh := env.login(t, "a@x.com", "secret1")

	rec := env.request(t, http.MethodGet, "/api/v1/auth/refresh_token", refresh, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AccessToken)

	oldClaims, err := env.Codec.Decode(access)
	require.NoError(t, err)
	newClaims, err := env.Codec.Decode(resp.AccessToken)
	require.NoError(t, err)
	require.NotEqual(t, oldClaims.JTI(), newClaims.JTI())
	require.False(t, newClaims.Refresh)
	require.Equal(t, oldClaims.User, newClaims.User)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "a@x.com", "secret1")
	access, _ := env.login(t, "a@x.com", "secret1")

	rec := env.request(t, http.MethodGet, "/api/v1/auth/refresh_token", access, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "refresh_token_required", errorCode(t, rec))
}

func TestProtectedRouteRejectsRefreshToken(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "a@x.com", "secret1")
	env.verify(t, "a@x.com")
	_, refresh := env.login(t, "a@x.com", "secret1")

	rec := env.request(t, http.MethodGet, "/api/v1/auth/me", refresh, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "access_token_required", errorCode(t, rec))
}

func TestVerifyRejectsGarbageToken(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodGet, "/api/v1/auth/verify/not-a-token", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "invalid_token", errorCode(t, rec))
}

func TestVerifyRejectsAccessToken(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "a@x.com", "secret1")
	access, _ := env.login(t, "a@x.com", "secret1")

	rec := env.request(t, http.MethodGet, "/api/v1/auth/verify/"+access, "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "invalid_token", errorCode(t, rec))
}
