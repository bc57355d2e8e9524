// Package account implements login, registration, silent
// re-authentication, logout and profile synchronization.
package account

import (
	"strings"

	"github.com/ngtracker/ngt-desktop/common"
)

// Status is the authentication state of the UI context.
type Status int

const (
	StatusLoggedOut Status = iota
	StatusAuthenticating
	StatusLoggedIn
)

// String returns a human-readable representation of the status.
func (s Status) String() string {
	switch s {
	case StatusLoggedOut:
		return "Logged out"
	case StatusAuthenticating:
		return "Authenticating..."
	case StatusLoggedIn:
		return "Logged in"
	default:
		return "Unknown"
	}
}

// LoginForm holds the login form fields.
type LoginForm struct {
	Identifier string
	Password   string
	RememberMe bool
}

// RegisterForm holds the registration form fields.
type RegisterForm struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
}

// Validate returns a validation error listing every missing field, or nil.
func (f LoginForm) Validate() error {
	var problems []string
	if f.Identifier == "" {
		problems = append(problems, common.MsgMissingIdentifier)
	}
	if f.Password == "" {
		problems = append(problems, common.MsgMissingPassword)
	}
	return validationError(problems)
}

// Validate returns a validation error listing every problem, or nil.
func (f RegisterForm) Validate() error {
	var problems []string
	if f.Username == "" {
		problems = append(problems, common.MsgMissingUsername)
	}
	if f.Email == "" {
		problems = append(problems, common.MsgMissingEmail)
	}
	if f.Password == "" {
		problems = append(problems, common.MsgMissingPassword)
	}
	if f.Password != f.ConfirmPassword {
		problems = append(problems, common.MsgPasswordMismatch)
	}
	return validationError(problems)
}

func validationError(problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	return common.NewError(common.KindValidation, strings.Join(problems, "\n"), nil)
}
