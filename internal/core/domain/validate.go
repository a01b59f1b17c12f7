package domain

import (
	"net/mail"
	"strings"
	"unicode/utf8"
)

const (
	UsernameMinLen = 3
	UsernameMaxLen = 20
	PasswordMinLen = 8
	PasswordMaxLen = 72 // bcrypt input limit, in bytes
	FullNameMinLen = 3
	FullNameMaxLen = 30

	passwordSpecials = "@$!%*?&"
)

// ValidUsername reports whether s (already normalized) is 3–20 characters of
// lowercase letters, digits and underscores.
func ValidUsername(s string) bool {
	if len(s) < UsernameMinLen || len(s) > UsernameMaxLen {
		return false
	}
	for _, r := range s {
		if !isUsernameRune(r) {
			return false
		}
	}
	return true
}

func isUsernameRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_'
}

// ValidEmail reports whether s is a bare address such as a@b.c.
func ValidEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s && strings.Contains(s[strings.LastIndexByte(s, '@'):], ".")
}

// ValidPassword enforces the sign-up password policy: 8-72 bytes drawn
// from letters, digits and @$!%*?&, with at least one of each class.
func ValidPassword(s string) bool {
	if len(s) < PasswordMinLen || len(s) > PasswordMaxLen {
		return false
	}
	var lower, upper, digit, special bool
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		default:
			return false
		}
	}
	return lower && upper && digit && special
}

// ValidFullName reports whether the trimmed name is 3–30 characters long.
func ValidFullName(s string) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(s))
	return n >= FullNameMinLen && n <= FullNameMaxLen
}
