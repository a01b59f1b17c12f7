package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/Bhumit267/CodeXi/internal/core/domain"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultRetries   = 2
	defaultRetryBase = 200 * time.Millisecond
)

var (
	// ErrUnauthorized means the server rejected the session's tokens.
	ErrUnauthorized = errors.New("session: unauthorized")
	// ErrUnavailable means the server could not be reached or failed.
	ErrUnavailable = errors.New("session: server unavailable")
)

// Error codes the server attaches to token failures.
var tokenCodes = map[string]bool{
	"missing_token": true,
	"token_expired": true,
	"invalid_token": true,
}

// APIError is a non-2xx response decoded from the server's error envelope.
type APIError struct {
	Status     int
	Code       string
	Message    string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// Is lets callers match token rejections and server failures with the
// package sentinels. A 401 for bad credentials is not ErrUnauthorized.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized && tokenCodes[e.Code]
	case ErrUnavailable:
		return e.Status >= http.StatusInternalServerError
	}
	return false
}

// AuthResult is the identity and token pair returned by a credential exchange.
type AuthResult struct {
	User   *domain.User
	Tokens domain.TokenPair
}

// SignupParams is the body of POST /auth/signup.
type SignupParams struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullname"`
}

// GoogleProfile is the provider profile the client obtained before calling
// the federated sign-in endpoint.
type GoogleProfile struct {
	Sub     string `json:"sub,omitempty"`
	Email   string `json:"email"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
}

// ProfileUpdate is the body of PATCH /user/update-profile.
type ProfileUpdate struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	FullName string `json:"fullname,omitempty"`
}

type APIOption func(*API)

// WithHTTPClient replaces the default client, including its timeout.
func WithHTTPClient(c *http.Client) APIOption {
	return func(a *API) { a.http = c }
}

// WithRetries sets how many times idempotent reads are retried on
// transient failures, and the base of the exponential backoff.
func WithRetries(n uint64, base time.Duration) APIOption {
	return func(a *API) {
		a.retries = n
		a.retryBase = base
	}
}

// API talks to the CodeXi HTTP endpoints.
type API struct {
	baseURL   string
	http      *http.Client
	retries   uint64
	retryBase time.Duration
}

func NewAPI(baseURL string, opts ...APIOption) *API {
	a := &API{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Timeout: defaultTimeout},
		retries:   defaultRetries,
		retryBase: defaultRetryBase,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *API) Signup(ctx context.Context, p SignupParams) (AuthResult, error) {
	var resp struct {
		domain.TokenPair
		CreatedUser *domain.User `json:"createdUser"`
	}
	if err := a.call(ctx, http.MethodPost, "/auth/signup", "", p, &resp); err != nil {
		return AuthResult{}, err
	}
	return AuthResult{User: resp.CreatedUser, Tokens: resp.TokenPair}, nil
}

func (a *API) Login(ctx context.Context, username, password string) (AuthResult, error) {
	body := map[string]string{"username": username, "password": password}
	var resp struct {
		domain.TokenPair
		LoggedInUser *domain.User `json:"loggedInUser"`
	}
	if err := a.call(ctx, http.MethodPost, "/auth/login", "", body, &resp); err != nil {
		return AuthResult{}, err
	}
	return AuthResult{User: resp.LoggedInUser, Tokens: resp.TokenPair}, nil
}

func (a *API) GoogleSignIn(ctx context.Context, providerToken string, profile GoogleProfile) (AuthResult, error) {
	body := struct {
		Token    string        `json:"token"`
		UserInfo GoogleProfile `json:"userInfo"`
	}{providerToken, profile}
	var resp struct {
		domain.TokenPair
		User *domain.User `json:"user"`
	}
	if err := a.call(ctx, http.MethodPost, "/auth/google-signin", "", body, &resp); err != nil {
		return AuthResult{}, err
	}
	return AuthResult{User: resp.User, Tokens: resp.TokenPair}, nil
}

// Refresh exchanges a refresh token for a new pair. It is never retried: a
// refresh token the server already consumed would be rejected on replay.
func (a *API) Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	var pair domain.TokenPair
	body := map[string]string{"refreshToken": refreshToken}
	if err := a.call(ctx, http.MethodPost, "/auth/new-access-token", "", body, &pair); err != nil {
		return domain.TokenPair{}, err
	}
	return pair, nil
}

func (a *API) Logout(ctx context.Context, accessToken string) error {
	return a.call(ctx, http.MethodPost, "/auth/logout", accessToken, nil, nil)
}

func (a *API) Profile(ctx context.Context, accessToken string) (*domain.User, error) {
	var resp struct {
		User *domain.User `json:"user"`
	}
	if err := a.call(ctx, http.MethodGet, "/user/profile", accessToken, nil, &resp); err != nil {
		return nil, err
	}
	return resp.User, nil
}

func (a *API) UpdateProfile(ctx context.Context, accessToken string, update ProfileUpdate) (*domain.User, error) {
	var resp struct {
		User *domain.User `json:"user"`
	}
	if err := a.call(ctx, http.MethodPatch, "/user/update-profile", accessToken, update, &resp); err != nil {
		return nil, err
	}
	return resp.User, nil
}

func (a *API) UpdatePassword(ctx context.Context, accessToken, oldPassword, newPassword string) error {
	body := map[string]string{"oldPassword": oldPassword, "newPassword": newPassword}
	return a.call(ctx, http.MethodPatch, "/user/update-password", accessToken, body, nil)
}

func (a *API) SolveProblem(ctx context.Context, accessToken, slug string) ([]string, error) {
	var resp struct {
		SolvedProblems []string `json:"solvedProblems"`
	}
	body := map[string]string{"slug": slug}
	if err := a.call(ctx, http.MethodPost, "/user/solve-problem", accessToken, body, &resp); err != nil {
		return nil, err
	}
	return resp.SolvedProblems, nil
}

// call sends one request. GET requests are retried with backoff on
// transient failures; everything else is attempted once.
func (a *API) call(ctx context.Context, method, path, accessToken string, in, out any) error {
	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
	}

	attempt := func(ctx context.Context) error {
		err := a.send(ctx, method, path, accessToken, payload, out)
		if err != nil && errors.Is(err, ErrUnavailable) && ctx.Err() == nil {
			return retry.RetryableError(err)
		}
		return err
	}

	if method != http.MethodGet || a.retries == 0 {
		return a.send(ctx, method, path, accessToken, payload, out)
	}
	backoff := retry.WithMaxRetries(a.retries, retry.NewExponential(a.retryBase))
	return retry.Do(ctx, backoff, attempt)
}

func (a *API) send(ctx context.Context, method, path, accessToken string, payload []byte, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %s %s: %v", ErrUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeAPIError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}

	var envelope struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(data, &envelope) == nil {
		apiErr.Message = envelope.Message
		apiErr.Code = envelope.Code
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	if secs := resp.Header.Get("Retry-After"); secs != "" {
		if d, err := time.ParseDuration(secs + "s"); err == nil {
			apiErr.RetryAfter = d
		}
	}
	return apiErr
}
