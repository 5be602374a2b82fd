package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

var ErrSecretNotConfigured = errors.New("JWT secret not configured")

// Verifier validates HMAC-signed access tokens issued by the identity service.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return &Verifier{}
	}
	return &Verifier{secret: []byte(secret)}
}

// ParseAndValidateToken parses a JWT and returns its claims. If expectedType
// is non-empty, the "typ" claim must match it.
func (v *Verifier) ParseAndValidateToken(tokenStr, expectedType string) (jwt.MapClaims, error) {
	if v == nil || v.secret == nil {
		return nil, ErrSecretNotConfigured
	}

	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || token == nil || !token.Valid {
		return nil, fmt.Errorf("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}
	if expectedType != "" {
		if typ, ok := claims["typ"].(string); !ok || typ != expectedType {
			return nil, fmt.Errorf("invalid token type")
		}
	}
	return claims, nil
}

// Identity extracts the user id ("sub", falling back to "userId") and role.
func Identity(claims jwt.MapClaims) (uuid.UUID, string, error) {
	raw, _ := claims["sub"].(string)
	if raw == "" {
		raw, _ = claims["userId"].(string)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("token has no valid subject")
	}
	role, _ := claims["role"].(string)
	return id, role, nil
}
