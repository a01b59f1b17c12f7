package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bhumit267/CodeXi/internal/core/domain"
	"github.com/Bhumit267/CodeXi/internal/core/service"
	"github.com/Bhumit267/CodeXi/internal/infrastructure/http/handlers"
	"github.com/Bhumit267/CodeXi/internal/infrastructure/memory"
	"github.com/Bhumit267/CodeXi/internal/pkg/clock"
)

type routerFixture struct {
	e     *echo.Echo
	clock *clock.Mock
	repo  *memory.UserRepository
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	return newRouterFixtureWith(t, nil)
}

func newRouterFixtureWith(t *testing.T, configure func(*RouterConfig)) *routerFixture {
	t.Helper()
	clk := clock.NewMock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	tokens, err := service.NewTokenService(service.TokenConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    240 * time.Hour,
	}, clk)
	require.NoError(t, err)

	repo := memory.NewUserRepository()
	log := zerolog.Nop()

	cfg := RouterConfig{
		Log:             log,
		AuthService:     service.NewAuthService(repo, tokens, memory.NewRotationGuard(clk), log),
		UserService:     service.NewUserService(repo, log),
		Tokens:          tokens,
		Limiter:         memory.NewRateLimiter(domain.DefaultRateLimitPolicy, clk),
		RateLimitPolicy: domain.DefaultRateLimitPolicy,
		ReadinessChecks: map[string]handlers.Check{
			"store": func(context.Context) error { return nil },
		},
	}
	if configure != nil {
		configure(&cfg)
	}
	e := NewRouter(cfg)
	return &routerFixture{e: e, clock: clk, repo: repo}
}

func (f *routerFixture) do(t *testing.T, method, path, body, token string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	req.RemoteAddr = "198.51.100.4:40000"

	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)

	var resp map[string]any
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	}
	return rec, resp
}

const aliceSignup = `{"username":"alice","email":"alice@example.com","password":"Str0ng!pass","fullname":"Alice Liddell"}`

func (f *routerFixture) signup(t *testing.T) map[string]any {
	t.Helper()
	rec, resp := f.do(t, http.MethodPost, "/auth/signup", aliceSignup, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return resp
}

func TestRouter_SignupTwice(t *testing.T) {
	f := newRouterFixture(t)

	resp := f.signup(t)
	assert.NotEmpty(t, resp["accessToken"])
	assert.NotEmpty(t, resp["refreshToken"])

	rec, resp := f.do(t, http.MethodPost, "/auth/signup", aliceSignup, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "username or email already exists", resp["message"])
}

func TestRouter_SignupValidation(t *testing.T) {
	f := newRouterFixture(t)

	rec, resp := f.do(t, http.MethodPost, "/auth/signup",
		`{"username":"alice","email":"alice@example.com","password":"weakpass","fullname":"Alice Liddell"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, resp["message"], "password")
	assert.Nil(t, resp["code"])
}

func TestRouter_WrongPassword(t *testing.T) {
	f := newRouterFixture(t)
	f.signup(t)

	rec, resp := f.do(t, http.MethodPost, "/auth/login", `{"username":"alice","password":"Wr0ng!pass"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid credentials", resp["message"])
	assert.Nil(t, resp["accessToken"])
}

func TestRouter_LoginRateLimit(t *testing.T) {
	f := newRouterFixture(t)
	f.signup(t)
	login := `{"username":"alice","password":"Str0ng!pass"}`

	for i := 1; i <= 5; i++ {
		rec, _ := f.do(t, http.MethodPost, "/auth/login", login, "")
		require.Equal(t, http.StatusOK, rec.Code, "attempt %d", i)
		f.clock.Advance(15 * time.Second)
	}

	// Sixth attempt, 75s after the first.
	rec, resp := f.do(t, http.MethodPost, "/auth/login", login, "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "Too many requests from this IP, please try again after 2 minutes", resp["message"])
	assert.Equal(t, CodeRateLimited, resp["code"])
	assert.Equal(t, "45", rec.Header().Get("Retry-After"))

	f.clock.Set(time.Date(2026, 3, 1, 12, 2, 10, 0, time.UTC))
	rec, _ = f.do(t, http.MethodPost, "/auth/login", login, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_SignupPasswordLength(t *testing.T) {
	f := newRouterFixture(t)
	body := func(username, password string) string {
		return fmt.Sprintf(`{"username":%q,"email":"%s@example.com","password":%q,"fullname":"Alice Liddell"}`, username, username, password)
	}

	tooLong := "Str0ng!" + strings.Repeat("p", 66)
	rec, resp := f.do(t, http.MethodPost, "/auth/signup", body("alice", tooLong), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, resp["message"], "8-72")

	longest := "Str0ng!" + strings.Repeat("p", 65)
	rec, _ = f.do(t, http.MethodPost, "/auth/signup", body("alice", longest), "")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, resp = f.do(t, http.MethodPost, "/auth/login", fmt.Sprintf(`{"username":"alice","password":%q}`, longest), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, resp["accessToken"])
}

func TestRouter_SignupIsNotRateLimited(t *testing.T) {
	f := newRouterFixture(t)

	for i := 0; i < 7; i++ {
		rec, _ := f.do(t, http.MethodPost, "/auth/signup", `{"username":"al","email":"x","password":"x","fullname":"x"}`, "")
		require.Equal(t, http.StatusBadRequest, rec.Code)
	}
}

func TestRouter_ProtectedRoutes(t *testing.T) {
	f := newRouterFixture(t)
	resp := f.signup(t)
	access := resp["accessToken"].(string)
	refresh := resp["refreshToken"].(string)

	rec, _ := f.do(t, http.MethodGet, "/user/profile", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, body := f.do(t, http.MethodGet, "/user/profile", "", "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, CodeInvalidToken, body["code"])

	rec, body = f.do(t, http.MethodGet, "/user/profile", "", access)
	require.Equal(t, http.StatusOK, rec.Code)
	user := body["user"].(map[string]any)
	assert.Equal(t, "alice", user["username"])

	// A refresh token is not an access token.
	rec, body = f.do(t, http.MethodGet, "/user/profile", "", refresh)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, CodeInvalidToken, body["code"])

	f.clock.Advance(16 * time.Minute)
	rec, body = f.do(t, http.MethodGet, "/user/profile", "", access)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, CodeTokenExpired, body["code"])

	rec, body = f.do(t, http.MethodPost, "/auth/new-access-token", `{"refreshToken":"`+refresh+`"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	fresh := body["accessToken"].(string)

	rec, _ = f.do(t, http.MethodGet, "/user/profile", "", fresh)
	assert.Equal(t, http.StatusOK, rec.Code)

	// The rotated-out refresh token is single use.
	rec, body = f.do(t, http.MethodPost, "/auth/new-access-token", `{"refreshToken":"`+refresh+`"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, CodeInvalidToken, body["code"])

	rec, _ = f.do(t, http.MethodPost, "/auth/logout", "", fresh)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_UserOperations(t *testing.T) {
	f := newRouterFixture(t)
	access := f.signup(t)["accessToken"].(string)

	rec, body := f.do(t, http.MethodPost, "/user/solve-problem", `{"slug":"two-sum"}`, access)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"two-sum"}, body["solvedProblems"])

	rec, body = f.do(t, http.MethodPatch, "/user/update-profile", `{"fullname":"Alice P. Liddell"}`, access)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Alice P. Liddell", body["user"].(map[string]any)["fullname"])

	rec, _ = f.do(t, http.MethodPatch, "/user/update-password", `{"oldPassword":"Str0ng!pass","newPassword":"N3wer!pass"}`, access)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = f.do(t, http.MethodPost, "/auth/login", `{"username":"alice","password":"N3wer!pass"}`, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = f.do(t, http.MethodDelete, "/user/delete-profile", "", access)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = f.do(t, http.MethodGet, "/user/profile", "", access)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_UpdatePasswordRateLimit(t *testing.T) {
	f := newRouterFixture(t)
	access := f.signup(t)["accessToken"].(string)

	for i := 0; i < 5; i++ {
		rec, _ := f.do(t, http.MethodPatch, "/user/update-password", `{"oldPassword":"Wr0ng!pass","newPassword":"N3wer!pass"}`, access)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec, _ := f.do(t, http.MethodPatch, "/user/update-password", `{"oldPassword":"Wr0ng!pass","newPassword":"N3wer!pass"}`, access)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Login keeps its own counter.
	rec, _ = f.do(t, http.MethodPost, "/auth/login", `{"username":"alice","password":"Str0ng!pass"}`, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_GoogleSignIn(t *testing.T) {
	f := newRouterFixture(t)

	body := `{"token":"google-token","userInfo":{"email":"carol@gmail.com","name":"Carol Danvers","picture":"https://img/c.png"}}`
	rec, resp := f.do(t, http.MethodPost, "/auth/google-signin", body, "")
	require.Equal(t, http.StatusOK, rec.Code)
	user := resp["user"].(map[string]any)
	assert.Equal(t, "carol", user["username"])
	assert.Equal(t, "google", user["provider"])

	rec, _ = f.do(t, http.MethodPost, "/auth/google-signin", body, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	stored, err := f.repo.FindByEmail(context.Background(), "carol@gmail.com")
	require.NoError(t, err)
	assert.False(t, stored.HasPassword())
}

func TestRouter_Health(t *testing.T) {
	f := newRouterFixture(t)

	rec, body := f.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])

	rec, body = f.do(t, http.MethodGet, "/health/ready", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestRouter_ReadinessDegraded(t *testing.T) {
	e := NewRouter(RouterConfig{
		Log: zerolog.Nop(),
		ReadinessChecks: map[string]handlers.Check{
			"mongodb": func(context.Context) error { return errors.New("no reachable servers") },
			"redis":   func(context.Context) error { return nil },
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body struct {
		Status       string `json:"status"`
		Dependencies map[string]struct {
			Status string `json:"status"`
			Error  string `json:"error"`
		} `json:"dependencies"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "unhealthy", body.Dependencies["mongodb"].Status)
	assert.Equal(t, "ok", body.Dependencies["redis"].Status)
}

func (f *routerFixture) loginFrom(t *testing.T, remoteAddr, forwardedFor string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username":"alice","password":"Wr0ng!pass"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.RemoteAddr = remoteAddr
	if forwardedFor != "" {
		req.Header.Set(echo.HeaderXForwardedFor, forwardedFor)
		req.Header.Set(echo.HeaderXRealIP, forwardedFor)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec.Code
}

func TestRouter_LoginRateLimitIgnoresForwardingHeaders(t *testing.T) {
	f := newRouterFixture(t)
	f.signup(t)

	for i := 1; i <= 5; i++ {
		code := f.loginFrom(t, "198.51.100.4:40000", fmt.Sprintf("10.0.0.%d", i))
		require.Equal(t, http.StatusUnauthorized, code, "attempt %d", i)
	}
	code := f.loginFrom(t, "198.51.100.4:40000", "10.0.0.6")
	assert.Equal(t, http.StatusTooManyRequests, code)

	// Another socket address has its own window.
	code = f.loginFrom(t, "198.51.100.5:40000", "")
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestRouter_LoginRateLimitBehindTrustedProxy(t *testing.T) {
	_, proxies, err := net.ParseCIDR("192.0.2.0/24")
	require.NoError(t, err)
	f := newRouterFixtureWith(t, func(cfg *RouterConfig) {
		cfg.TrustedProxies = []*net.IPNet{proxies}
	})
	f.signup(t)

	for i := 1; i <= 5; i++ {
		code := f.loginFrom(t, "192.0.2.1:40000", "203.0.113.9")
		require.Equal(t, http.StatusUnauthorized, code, "attempt %d", i)
	}
	assert.Equal(t, http.StatusTooManyRequests, f.loginFrom(t, "192.0.2.1:40000", "203.0.113.9"))

	// A different client behind the same proxy is counted separately.
	assert.Equal(t, http.StatusUnauthorized, f.loginFrom(t, "192.0.2.1:40000", "203.0.113.10"))

	// An untrusted peer cannot choose its address.
	for i := 1; i <= 5; i++ {
		require.Equal(t, http.StatusUnauthorized, f.loginFrom(t, "198.51.100.7:40000", fmt.Sprintf("203.0.113.%d", 20+i)))
	}
	assert.Equal(t, http.StatusTooManyRequests, f.loginFrom(t, "198.51.100.7:40000", "203.0.113.99"))
}
