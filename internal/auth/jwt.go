package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JWTStore accepts HS256 tokens signed with a shared secret. The username is
// the subject claim, falling back to the token ID for API-key style tokens.
type JWTStore struct {
	secret []byte
}

func NewJWTStore(secret string) (*JWTStore, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("jwt secret is required")
	}
	return &JWTStore{secret: []byte(secret)}, nil
}

func (s *JWTStore) Lookup(_ context.Context, raw string) (string, bool, error) {
	raw = normalize(raw)
	if raw == "" {
		return "", false, nil
	}
	token, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", false, nil
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok {
		return "", false, nil
	}
	username := strings.TrimSpace(claims.Subject)
	if username == "" {
		username = strings.TrimSpace(claims.ID)
	}
	return username, username != "", nil
}

// Issue signs a token for username valid for ttl.
func (s *JWTStore) Issue(username string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strings.TrimSpace(username),
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}
