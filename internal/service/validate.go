package service

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// NormalizeEmail lower-cases and trims email and checks its shape. The result
// is the key used for OTP challenges and verification tokens.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validate.Var(email, "required,email,max=254"); err != nil {
		return "", invalid("email", "must be a valid address")
	}
	return email, nil
}

func validateUsername(username string) error {
	if err := validate.Var(username, "required,min=3,max=64,printascii"); err != nil {
		return invalid("username", "must be 3 to 64 printable characters")
	}
	if strings.ContainsAny(username, " \t@") {
		return invalid("username", "must not contain spaces or @")
	}
	return nil
}

func validatePassword(password string, minLength int) error {
	if minLength < 1 {
		minLength = 8
	}
	if err := validate.Var(password, fmt.Sprintf("required,min=%d,max=128", minLength)); err != nil {
		return invalid("password", fmt.Sprintf("must be %d to 128 characters", minLength))
	}
	return nil
}
