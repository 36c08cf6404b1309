package userservice

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

func (p *Password) set(plain string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcryptCost)
	if err != nil {
		return err
	}

	p.hash = hash

	return nil
}

// matches reports whether plain hashes to the stored value. An unset hash
// never matches.
func (p *Password) matches(plain string) (bool, error) {
	if len(p.hash) == 0 {
		return false, nil
	}

	err := bcrypt.CompareHashAndPassword(p.hash, []byte(plain))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, err
	}
}
