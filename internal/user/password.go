package user

import (
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"booktracker/internal/apperr"
)

func hashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", apperr.Validation("password must be at most 72 bytes")
	}
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// dummyHash is compared against when no user matches a login, so unknown
// usernames cost the same time as wrong passwords.
var dummyHash = sync.OnceValue(func() string {
	h, _ := bcrypt.GenerateFromPassword([]byte("booktracker-dummy-password"), bcrypt.DefaultCost)
	return string(h)
})
