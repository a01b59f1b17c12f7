package handler

import "github.com/Bhumit267/CodeXi/internal/core/domain"

type signupRequest struct {
	Username string `json:"username" validate:"required,username"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,password"`
	FullName string `json:"fullname" validate:"required,min=3,max=30"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// googleUserInfo mirrors the provider's userinfo payload, already fetched and
// verified by the client.
type googleUserInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"   validate:"required,email"`
	EmailVerified *bool  `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

type googleSignInRequest struct {
	Token    string         `json:"token"    validate:"required"`
	UserInfo googleUserInfo `json:"userInfo"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type signupResponse struct {
	domain.TokenPair
	CreatedUser *domain.User `json:"createdUser"`
	Message     string       `json:"message"`
}

type loginResponse struct {
	domain.TokenPair
	LoggedInUser *domain.User `json:"loggedInUser"`
	Message      string       `json:"message"`
}

type federatedResponse struct {
	domain.TokenPair
	User    *domain.User `json:"user"`
	Message string       `json:"message"`
}

type tokenResponse struct {
	domain.TokenPair
	Message string `json:"message"`
}

type messageResponse struct {
	Message string `json:"message"`
}
