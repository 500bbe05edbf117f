package jwt

import (
	"testing"
	"time"
)

func TestGenerateAndParse(t *testing.T) {
	token, expireAt, err := GenerateToken("secret", 42, "user@example.com", true, 72)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !expireAt.After(time.Now().Add(71 * time.Hour)) {
		t.Fatalf("expireAt = %v, want ~72h out", expireAt)
	}

	claims, err := ParseToken("secret", token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != 42 || claims.Email != "user@example.com" || !claims.IsAdmin {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestParseWrongSecret(t *testing.T) {
	token, _, err := GenerateToken("secret", 1, "a@example.com", false, 1)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := ParseToken("other", token); err == nil {
		t.Fatal("expected signature error")
	}
}

func TestParseGarbage(t *testing.T) {
	if _, err := ParseToken("secret", "not.a.token"); err == nil {
		t.Fatal("expected parse error")
	}
}
