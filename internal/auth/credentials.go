package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// maxPasswordBytes — предел bcrypt: более длинные пароли молча обрезаются.
const maxPasswordBytes = 72

var (
	ErrPasswordTooLong = errors.New("password is too long")
	// ErrNoPassword возвращается для гостевых игроков, у которых нет пароля.
	ErrNoPassword = errors.New("player has no password")
)

// HashPassword хэширует пароль с использованием bcrypt.
func HashPassword(password string) (string, error) {
	if len(password) > maxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// VerifyPassword сверяет пароль с хэшем игрока.
func VerifyPassword(hash *string, password string) error {
	if hash == nil || *hash == "" {
		return ErrNoPassword
	}
	return bcrypt.CompareHashAndPassword([]byte(*hash), []byte(password))
}

// HashToken возвращает SHA-256 хэш refresh-токена в hex-представлении.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// CompareTokenHash сравнивает хэш с токеном в константное время.
func CompareTokenHash(hash, token string) bool {
	computed := HashToken(token)
	return subtle.ConstantTimeCompare([]byte(hash), []byte(computed)) == 1
}
