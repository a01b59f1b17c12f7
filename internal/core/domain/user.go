package domain

import (
	"strings"
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"

	ProviderGoogle = "google"
)

// User is the stored identity record. A user has either a PasswordHash
// (local sign-up) or a Provider (federated sign-in), never neither.
type User struct {
	ID             string    `json:"_id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	FullName       string    `json:"fullname"`
	PasswordHash   string    `json:"-"`
	Provider       string    `json:"provider,omitempty"`
	Role           string    `json:"role"`
	ProfileImage   string    `json:"profileImage,omitempty"`
	SolvedProblems []string  `json:"solvedProblems"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// HasPassword reports whether the user can authenticate with a local password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// IsFederated reports whether the identity was created through an external
// identity provider and has no local password.
func (u *User) IsFederated() bool {
	return u.Provider != "" && u.PasswordHash == ""
}

// HasSolved reports whether slug is in the user's solved set.
func (u *User) HasSolved(slug string) bool {
	for _, s := range u.SolvedProblems {
		if s == slug {
			return true
		}
	}
	return false
}

// NormalizeUsername lowercases and trims a username.
func NormalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// UserPatch carries a partial identity update. Nil fields are left unchanged.
type UserPatch struct {
	Username       *string
	Email          *string
	FullName       *string
	ProfileImage   *string
	SolvedProblems []string
}

// Apply merges the patch into u in place.
func (p UserPatch) Apply(u *User) {
	if p.Username != nil {
		u.Username = *p.Username
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.FullName != nil {
		u.FullName = *p.FullName
	}
	if p.ProfileImage != nil {
		u.ProfileImage = *p.ProfileImage
	}
	if p.SolvedProblems != nil {
		u.SolvedProblems = append([]string(nil), p.SolvedProblems...)
	}
}
