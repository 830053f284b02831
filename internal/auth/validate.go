package auth

import (
	"regexp"
	"slices"
	"strings"

	"github.com/desertthunder/readx/internal/shared"
)

// MinPasswordLength applies to trimmed passwords.
const MinPasswordLength = 6

const minNameLength = 2

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Form field names.
const (
	FieldName            = "username"
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldConfirmPassword = "confirmPassword"
)

var fieldOrder = []string{FieldName, FieldEmail, FieldPassword, FieldConfirmPassword}

// FieldErrors maps a form field to its message. Validation runs locally and is never sent to a backend.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	parts := make([]string, 0, len(f))
	for _, k := range f.keys() {
		parts = append(parts, k+": "+f[k])
	}
	return strings.Join(parts, "; ")
}

func (f FieldErrors) Unwrap() error { return shared.ErrValidation }

// First returns the message of the first invalid field in form order.
func (f FieldErrors) First() string {
	if keys := f.keys(); len(keys) > 0 {
		return f[keys[0]]
	}
	return ""
}

func (f FieldErrors) keys() []string {
	keys := make([]string, 0, len(f))
	for _, k := range fieldOrder {
		if _, ok := f[k]; ok {
			keys = append(keys, k)
		}
	}
	for k := range f {
		if !slices.Contains(fieldOrder, k) {
			keys = append(keys, k)
		}
	}
	return keys
}

func (f FieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return f
}

// ValidEmail reports whether email looks like an address.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(strings.TrimSpace(email))
}

func validateEmail(f FieldErrors, email string) {
	switch {
	case email == "":
		f[FieldEmail] = "Email is required"
	case !ValidEmail(email):
		f[FieldEmail] = "Please enter a valid email address"
	}
}

func validatePassword(f FieldErrors, password string) {
	if len(strings.TrimSpace(password)) < MinPasswordLength {
		f[FieldPassword] = "Password should contain at least 6 characters"
	}
}

// ValidateLogin checks the sign-in form. The returned error is a [FieldErrors] or nil.
func ValidateLogin(email, password string) error {
	f := FieldErrors{}
	validateEmail(f, email)
	validatePassword(f, password)
	return f.err()
}

// ValidateSignup checks the registration form. The returned error is a [FieldErrors] or nil.
func ValidateSignup(name, email, password, confirm string) error {
	f := FieldErrors{}
	if len(strings.TrimSpace(name)) < minNameLength {
		f[FieldName] = "Name should contain at least 2 characters"
	}
	validateEmail(f, email)
	validatePassword(f, password)

	switch {
	case strings.TrimSpace(confirm) == "":
		f[FieldConfirmPassword] = "Please confirm your password"
	case strings.TrimSpace(password) != strings.TrimSpace(confirm):
		f[FieldConfirmPassword] = "Passwords do not match"
	}
	return f.err()
}
