package password

import (
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/bcrypt"
)

const (
	// BcryptCost is the work factor for stored credentials
	BcryptCost = 12

	// MinLength is the minimum accepted password length
	MinLength = 8
)

// Hash hashes a plaintext password with bcrypt
func Hash(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// Verify reports whether password matches the stored bcrypt hash
func Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// HashToken returns the hex SHA256 digest of a refresh token.
// Tokens are stored hashed so a leaked table holds no usable tokens.
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// ValidatePassword reports whether a candidate password is acceptable
func ValidatePassword(password string) bool {
	return len(password) >= MinLength
}
