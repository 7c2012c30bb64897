package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

// TestTokenPairRoundTrip проверяет выпуск и разбор пары токенов.
func TestTokenPairRoundTrip(t *testing.T) {
	manager := NewTokenManager("secret", "ecopulse", time.Minute, time.Hour)
	playerID := uuid.New()
	refreshID := uuid.New()

	pair, err := manager.NewTokenPair(playerID, true, refreshID)
	if err != nil {
		t.Fatalf("new token pair: %v", err)
	}

	access, err := manager.ParseAccessToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("parse access: %v", err)
	}
	if access.Subject != playerID.String() {
		t.Fatalf("expected subject %s, got %s", playerID, access.Subject)
	}
	if !access.Guest {
		t.Fatal("expected guest claim")
	}

	refresh, err := manager.ParseRefreshToken(pair.RefreshToken)
	if err != nil {
		t.Fatalf("parse refresh: %v", err)
	}
	if refresh.ID != refreshID.String() {
		t.Fatalf("expected refresh id %s, got %s", refreshID, refresh.ID)
	}
}

// TestTokenTypeMismatch проверяет, что refresh-токен не принимается как access.
func TestTokenTypeMismatch(t *testing.T) {
	manager := NewTokenManager("secret", "ecopulse", time.Minute, time.Hour)

	pair, err := manager.NewTokenPair(uuid.New(), false, uuid.New())
	if err != nil {
		t.Fatalf("new token pair: %v", err)
	}

	if _, err := manager.ParseAccessToken(pair.RefreshToken); err == nil {
		t.Fatal("expected type mismatch error")
	}
}

// TestTokenWrongIssuer проверяет проверку издателя.
func TestTokenWrongIssuer(t *testing.T) {
	issuer := NewTokenManager("secret", "other", time.Minute, time.Hour)
	verifier := NewTokenManager("secret", "ecopulse", time.Minute, time.Hour)

	pair, err := issuer.NewTokenPair(uuid.New(), false, uuid.New())
	if err != nil {
		t.Fatalf("new token pair: %v", err)
	}

	if _, err := verifier.ParseAccessToken(pair.AccessToken); err == nil {
		t.Fatal("expected issuer error")
	}
}

// TestHashToken проверяет сравнение хэшей refresh-токенов.
func TestHashToken(t *testing.T) {
	hash := HashToken("token")
	if !CompareTokenHash(hash, "token") {
		t.Fatal("expected hash to match")
	}
	if CompareTokenHash(hash, "other") {
		t.Fatal("expected mismatch")
	}
}

// TestVerifyPassword проверяет bcrypt-хэширование пароля и гостевых игроков без пароля.
func TestVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := VerifyPassword(&hash, "correct horse"); err != nil {
		t.Fatalf("expected match: %v", err)
	}
	if err := VerifyPassword(&hash, "wrong"); err == nil {
		t.Fatal("expected mismatch")
	}
	if err := VerifyPassword(nil, "correct horse"); !errors.Is(err, ErrNoPassword) {
		t.Fatalf("expected ErrNoPassword, got %v", err)
	}
}

// TestHashPasswordTooLong проверяет предел длины bcrypt.
func TestHashPasswordTooLong(t *testing.T) {
	if _, err := HashPassword(strings.Repeat("x", 73)); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
}
