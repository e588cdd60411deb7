package api

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, secret string, permissions []string) string {
	claims := &Claims{
		Permissions: permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "operator-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

func TestVerifyAcceptsAnyRequiredPermission(t *testing.T) {
	auth := NewAuthenticator("secret")
	token := signToken(t, "secret", []string{PermissionMonitorSystem})

	claims, err := auth.Verify(token, PermissionControlDevice, PermissionMonitorSystem)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.Subject != "operator-1" {
		t.Fatalf("unexpected subject: %s", claims.Subject)
	}
}

func TestVerifyRejectsMissingPermission(t *testing.T) {
	auth := NewAuthenticator("secret")
	token := signToken(t, "secret", []string{"REPORT"})

	_, err := auth.Verify(token, PermissionControlDevice, PermissionMonitorSystem)
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	auth := NewAuthenticator("secret")
	token := signToken(t, "other-secret", []string{PermissionMonitorSystem})

	if _, err := auth.Verify(token, PermissionMonitorSystem); err == nil {
		t.Fatalf("expected signature verification failure")
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	auth := NewAuthenticator("secret")
	claims := &Claims{
		Permissions: []string{PermissionMonitorSystem},
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	if _, err := auth.Verify(token, PermissionMonitorSystem); err == nil {
		t.Fatalf("expected expiry rejection")
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	auth := NewAuthenticator("secret")
	if _, err := auth.Verify("not-a-token"); err == nil {
		t.Fatalf("expected parse failure")
	}
}
