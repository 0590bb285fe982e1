package security

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/Vishalkumjan/realtime-code-collab/internal/domain"
)

const minPasswordLength = 6

func HashPassword(plain string) (string, error) {
	if len(plain) < minPasswordLength {
		return "", domain.ErrPasswordTooShort
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	return string(hash), nil
}

func ComparePassword(hash, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}
