package domain

import "time"

// TokenClass distinguishes access tokens from refresh tokens.
type TokenClass string

const (
	TokenAccess  TokenClass = "access"
	TokenRefresh TokenClass = "refresh"
)

// TokenPair is what every successful credential exchange returns.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Empty reports whether either token is missing.
func (p TokenPair) Empty() bool {
	return p.AccessToken == "" || p.RefreshToken == ""
}

// TokenClaims is the verified content of a token.
type TokenClaims struct {
	Subject   string
	ID        string
	Class     TokenClass
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// CredentialMethod tags the variants of a credential exchange.
type CredentialMethod string

const (
	CredentialPassword  CredentialMethod = "password"
	CredentialFederated CredentialMethod = "federated"
)

// Credential is the input of a credential exchange. Username and Password are
// used by CredentialPassword; the Federated* fields by CredentialFederated.
type Credential struct {
	Method   CredentialMethod
	Username string
	Password string

	Provider      string
	ProviderToken string
	Email         string
	FullName      string
	Picture       string
}

// Session is an authenticated identity together with its freshly minted tokens.
type Session struct {
	User   *User
	Tokens TokenPair
}
