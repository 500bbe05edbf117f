package service

import (
	"testing"

	jwtpkg "github.com/taskMaster/backend/pkg/jwt"
)

const testSecret = "test-secret"

func TestRegisterAndLogin(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuthService(db, testSecret, 72)

	user, token, _, err := svc.Register("new@example.com", "s3cret", "New")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.PasswordHash == "s3cret" {
		t.Fatal("password must be hashed")
	}

	claims, err := jwtpkg.ParseToken(testSecret, token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.UserID != user.ID || claims.Email != "new@example.com" {
		t.Fatalf("claims = %+v", claims)
	}

	logged, _, _, err := svc.Login("new@example.com", "s3cret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if logged.LastLoginAt == nil {
		t.Fatal("login must stamp last_login_at")
	}

	if _, _, _, err := svc.Login("new@example.com", "wrong"); errorCode(t, err) != 40105 {
		t.Fatalf("wrong password: %v, want 40105", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuthService(db, testSecret, 72)

	if _, _, _, err := svc.Register("dup@example.com", "pw", "One"); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, _, _, err := svc.Register("dup@example.com", "pw", "Two")
	if code := errorCode(t, err); code != 40901 {
		t.Fatalf("code = %d, want 40901", code)
	}
}

func TestLoginDisabledUser(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuthService(db, testSecret, 72)

	user, _, _, err := svc.Register("gone@example.com", "pw", "Gone")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	db.Model(user).Update("status", 0)

	_, _, _, err = svc.Login("gone@example.com", "pw")
	if code := errorCode(t, err); code != 40104 {
		t.Fatalf("code = %d, want 40104", code)
	}
}
