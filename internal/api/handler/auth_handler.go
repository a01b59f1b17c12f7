package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Bhumit267/CodeXi/internal/api/metrics"
	"github.com/Bhumit267/CodeXi/internal/core/domain"
	"github.com/Bhumit267/CodeXi/internal/core/ports"
)

// EventRecorder is the interface handlers use to enqueue audit events.
type EventRecorder interface {
	Enqueue(event domain.AuthEvent)
}

type discardEvents struct{}

func (discardEvents) Enqueue(domain.AuthEvent) {}

type AuthHandler struct {
	authService ports.AuthService
	events      EventRecorder
}

// NewAuthHandler creates an AuthHandler. A nil recorder discards audit events.
func NewAuthHandler(authService ports.AuthService, events EventRecorder) *AuthHandler {
	if events == nil {
		events = discardEvents{}
	}
	return &AuthHandler{authService: authService, events: events}
}

// Signup creates a new local account and signs it in.
//
// @Summary      Sign up
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signupRequest  true  "Account details"
// @Success      201   {object}  signupResponse
// @Failure      400   {object}  messageResponse
// @Failure      409   {object}  messageResponse
// @Router       /auth/signup [post]
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupRequest
	if err := c.Bind(&req); err != nil {
		return domain.ValidationError("invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	session, err := h.authService.Signup(c.Request().Context(), ports.SignupInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	})
	metrics.AuthAttemptsTotal.WithLabelValues("signup", outcome(err)).Inc()
	if err != nil {
		return err
	}

	h.record(c, domain.EventSignup, session.User.ID, session.User.Username)
	return c.JSON(http.StatusCreated, signupResponse{
		TokenPair:   session.Tokens,
		CreatedUser: session.User,
		Message:     "User registered successfully",
	})
}

// Login exchanges a username and password for a token pair.
//
// @Summary      Log in
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  loginResponse
// @Failure      400   {object}  messageResponse
// @Failure      401   {object}  messageResponse
// @Failure      429   {object}  messageResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return domain.ValidationError("invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	session, err := h.authService.Exchange(c.Request().Context(), domain.Credential{
		Method:   domain.CredentialPassword,
		Username: req.Username,
		Password: req.Password,
	})
	metrics.AuthAttemptsTotal.WithLabelValues("login", outcome(err)).Inc()
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			h.record(c, domain.EventLoginFailed, "", domain.NormalizeUsername(req.Username))
		}
		return err
	}

	h.record(c, domain.EventLogin, session.User.ID, session.User.Username)
	return c.JSON(http.StatusOK, loginResponse{
		TokenPair:    session.Tokens,
		LoggedInUser: session.User,
		Message:      "Logged in successfully",
	})
}

// GoogleSignIn exchanges a provider-verified Google profile for a local
// session. The Google token is checked for presence only and never stored.
//
// @Summary      Sign in with Google
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      googleSignInRequest  true  "Provider token and profile"
// @Success      200   {object}  federatedResponse
// @Failure      400   {object}  messageResponse
// @Router       /auth/google-signin [post]
func (h *AuthHandler) GoogleSignIn(c echo.Context) error {
	var req googleSignInRequest
	if err := c.Bind(&req); err != nil {
		return domain.ValidationError("invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if req.UserInfo.EmailVerified != nil && !*req.UserInfo.EmailVerified {
		return domain.ValidationError("google account email is not verified")
	}

	session, err := h.authService.Exchange(c.Request().Context(), domain.Credential{
		Method:        domain.CredentialFederated,
		Provider:      domain.ProviderGoogle,
		ProviderToken: req.Token,
		Email:         req.UserInfo.Email,
		FullName:      req.UserInfo.Name,
		Picture:       req.UserInfo.Picture,
	})
	metrics.AuthAttemptsTotal.WithLabelValues("federated", outcome(err)).Inc()
	if err != nil {
		return err
	}

	h.record(c, domain.EventFederatedSignIn, session.User.ID, session.User.Username)
	return c.JSON(http.StatusOK, federatedResponse{
		TokenPair: session.Tokens,
		User:      session.User,
		Message:   "Signed in with Google successfully",
	})
}

// Refresh rotates a refresh token into a new token pair.
//
// @Summary      Refresh tokens
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      refreshRequest  true  "Refresh token"
// @Success      200   {object}  tokenResponse
// @Failure      400   {object}  messageResponse
// @Failure      401   {object}  messageResponse
// @Router       /auth/new-access-token [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return domain.ValidationError("invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	pair, userID, err := h.authService.Refresh(c.Request().Context(), req.RefreshToken)
	metrics.AuthAttemptsTotal.WithLabelValues("refresh", outcome(err)).Inc()
	if err != nil {
		if errors.Is(err, domain.ErrInvalidToken) || errors.Is(err, domain.ErrTokenExpired) {
			h.record(c, domain.EventRefreshRejected, userID, "")
		}
		return err
	}

	h.record(c, domain.EventRefresh, userID, "")
	return c.JSON(http.StatusOK, tokenResponse{TokenPair: pair, Message: "Access token refreshed"})
}

// Logout acknowledges a logout. Tokens are stateless; the client discards them.
//
// @Summary      Log out
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  messageResponse
// @Failure      401  {object}  messageResponse
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}
	if err := h.authService.Logout(c.Request().Context(), userID); err != nil {
		return err
	}

	h.record(c, domain.EventLogout, userID, "")
	return c.JSON(http.StatusOK, messageResponse{Message: "Logged out successfully"})
}

func (h *AuthHandler) record(c echo.Context, kind domain.AuthEventKind, userID, username string) {
	h.events.Enqueue(domain.AuthEvent{
		Kind:      kind,
		UserID:    userID,
		Username:  username,
		IP:        c.RealIP(),
		UserAgent: c.Request().UserAgent(),
		At:        time.Now().UTC(),
	})
}

// outcome labels an auth attempt for metrics.
func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrInvalidToken),
		errors.Is(err, domain.ErrTokenExpired),
		errors.Is(err, domain.ErrValidation):
		return "invalid"
	case errors.Is(err, domain.ErrUserExists):
		return "conflict"
	default:
		return "error"
	}
}
