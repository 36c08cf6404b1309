package userservice

import (
	"regexp"

	"github.com/sushihentaime/bloglist/internal/common"
)

var (
	EmailRX    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	UsernameRX = regexp.MustCompile("^[a-zA-Z0-9]+$")
)

func validateUsername(v *common.Validator, username string) {
	v.Check(username != "", "username", "must be provided")
	v.Check(v.CheckStringLength(username, 3, 25), "username", "must be between 3 and 25 characters long")
	v.Check(v.Matches(username, UsernameRX), "username", "must only contain letters and numbers")
}

func validateName(v *common.Validator, name string) {
	v.Check(v.CheckStringLength(name, 0, 100), "name", "must not be more than 100 characters long")
}

// validateEmail accepts an empty address; email is optional.
func validateEmail(v *common.Validator, email string) {
	if email == "" {
		return
	}
	v.Check(v.Matches(email, EmailRX), "email", "must be a valid email address")
}

func validatePassword(v *common.Validator, password string) {
	v.Check(password != "", "password", "must be provided")
	v.Check(v.CheckStringLength(password, 3, 72), "password", "must be between 3 and 72 characters long")
	v.Check(len(password) <= 72, "password", "must not be more than 72 bytes long")
}

func validateLogin(v *common.Validator, username, password string) {
	v.Check(username != "", "username", "must be provided")
	v.Check(password != "", "password", "must be provided")
}
