package api

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Permissions carried in viewer tokens. The notification socket requires at
// least one of them.
const (
	PermissionControlDevice = "CONTROL_DEVICE"
	PermissionMonitorSystem = "MONITOR_SYSTEM"
)

var ErrPermissionDenied = errors.New("permission denied")

// Claims is the token payload issued by the auth service.
type Claims struct {
	Permissions []string `json:"permissions"`
	jwt.RegisteredClaims
}

// Authenticator verifies viewer tokens. Token issuance belongs to the auth
// service; the gateway only checks them once at connection time.
type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// Verify parses the token and checks that it carries at least one of the
// required permissions. An empty required list only validates the token.
func (a *Authenticator) Verify(tokenString string, required ...string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	if len(required) == 0 {
		return claims, nil
	}
	for _, have := range claims.Permissions {
		for _, want := range required {
			if have == want {
				return claims, nil
			}
		}
	}
	return nil, ErrPermissionDenied
}
