package domain

import "time"

// AuthEventKind names an auditable authentication event.
type AuthEventKind string

const (
	EventSignup          AuthEventKind = "signup"
	EventLogin           AuthEventKind = "login"
	EventLoginFailed     AuthEventKind = "login_failed"
	EventFederatedSignIn AuthEventKind = "federated_signin"
	EventRefresh         AuthEventKind = "refresh"
	EventRefreshRejected AuthEventKind = "refresh_rejected"
	EventLogout          AuthEventKind = "logout"
	EventPasswordChanged AuthEventKind = "password_changed"
)

// AuthEvent is an entry in the authentication audit trail.
type AuthEvent struct {
	Kind      AuthEventKind
	UserID    string // empty when the identity is unknown
	Username  string
	IP        string
	UserAgent string
	At        time.Time
}
