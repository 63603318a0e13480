package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrEmptyPassword rejects hashing an empty string.
	ErrEmptyPassword = errors.New("auth: password must not be empty")
	// ErrPasswordMismatch indicates the password does not match the stored hash.
	ErrPasswordMismatch = errors.New("auth: password does not match")
)

// HashPassword produces a salted one-way hash of the password. Each call
// salts independently, so equal passwords never share a hash.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePasswordAndHash checks the cleartext password against a stored hash.
func ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return err
	}
	return nil
}
