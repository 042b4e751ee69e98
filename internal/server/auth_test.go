package server

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

func TestAuthRoundTrip(t *testing.T) {
	a := NewAuth("s3cret")
	tok, err := a.Issue("user-1", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	got, err := a.UserIDFromAuthHeader("Bearer " + tok)
	if err != nil || got != "user-1" {
		t.Fatalf("user = %q, err = %v", got, err)
	}
}

func TestAuthRejects(t *testing.T) {
	a := NewAuth("s3cret")
	other, _ := NewAuth("different").Issue("user-1", time.Hour)

	expired := NewAuth("s3cret")
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _ := expired.Issue("user-1", time.Hour)

	noSub, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"iat": time.Now().Unix()}).
		SignedString([]byte("s3cret"))

	tests := map[string]string{
		"empty":        "",
		"no bearer":    "Token abc",
		"wrong secret": "Bearer " + other,
		"expired":      "Bearer " + old,
		"missing sub":  "Bearer " + noSub,
	}
	for name, header := range tests {
		if _, err := a.UserIDFromAuthHeader(header); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestDevModeUsesTokenAsUser(t *testing.T) {
	a := NewAuth("")
	if !a.DevMode() {
		t.Fatal("empty secret should enable dev mode")
	}
	got, err := a.UserIDFromAuthHeader("Bearer alice")
	if err != nil || got != "alice" {
		t.Fatalf("user = %q, err = %v", got, err)
	}
	if _, err := a.UserIDFromAuthHeader("Bearer a.b.c"); err == nil {
		t.Fatal("dev mode should reject JWT-shaped values")
	}
	if tok, _ := a.Issue("bob", time.Hour); tok != "bob" {
		t.Fatalf("dev token = %q", tok)
	}
}
