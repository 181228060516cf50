package dashboard

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/frahmantamala/paylink/internal/core/common/random"
)

// GeneratePassword draws a temporary password from the human-typeable
// alphabet.
func GeneratePassword(length int) (string, error) {
	password, err := random.String(random.HumanAlphabet, length)
	if err != nil {
		return "", fmt.Errorf("failed to generate temporary password: %w", err)
	}
	return password, nil
}

func hashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash temporary password: %w", err)
	}
	return string(hash), nil
}

func passwordMatches(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
