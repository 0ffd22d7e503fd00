package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	// AdminPasswordCost is used for the admin credentials hash.
	AdminPasswordCost = 14
	// PostPasswordCost is lower, protected posts check it on every read.
	PostPasswordCost = bcrypt.DefaultCost
)

func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword accepts hashes of any cost. An empty hash never matches.
func CheckPassword(password, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// HashPostPassword is the default password hasher of protected posts.
func HashPostPassword(password string) (string, error) {
	return HashPassword(password, PostPasswordCost)
}
