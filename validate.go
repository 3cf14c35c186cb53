package blogsync

import (
	"net/mail"
	"strings"
)

// Auth field validation mirrors the sign-in/sign-up schemas: checked before
// submission, rendered per field, never sent to the network.

// ValidateLogin checks the sign-in fields. An empty result means valid.
func ValidateLogin(email, password string) FieldErrors {
	fe := FieldErrors{}
	if !validEmail(email) {
		fe["email"] = "enter a valid email"
	}
	if len(password) < 8 {
		fe["password"] = "password must be at least 8 characters"
	}
	return fe
}

// ValidateRegister checks the sign-up fields. An empty result means valid.
func ValidateRegister(name, email, password string) FieldErrors {
	fe := ValidateLogin(email, password)
	if len(strings.TrimSpace(name)) < 4 {
		fe["name"] = "name must be at least 4 characters"
	}
	return fe
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
