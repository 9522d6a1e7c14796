// Package auth issues and validates the admin bearer tokens guarding the
// permission-assignment surface. A single shared admin credential is
// checked against a bcrypt hash; successful checks yield short-lived HS256
// tokens.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials is returned when the admin password does not match.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrInvalidToken is returned when a JWT cannot be parsed or has expired.
	ErrInvalidToken = errors.New("auth: invalid or expired token")
)

// Claims holds the JWT token payload.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

type Service struct {
	secret       string
	passwordHash string
	ttl          time.Duration
}

// NewService creates a Service. passwordHash is the bcrypt hash of the
// admin credential, supplied via configuration.
func NewService(secret, passwordHash string, ttl time.Duration) *Service {
	return &Service{secret: secret, passwordHash: passwordHash, ttl: ttl}
}

// IssueToken checks the admin password and returns a signed admin token.
func (s *Service) IssueToken(password string) (string, error) {
	if err := bcrypt.CompareHashAndPassword([]byte(s.passwordHash), []byte(password)); err != nil {
		return "", fmt.Errorf("auth.Service.IssueToken: %w", ErrInvalidCredentials)
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			Issuer:    "metis",
		},
		Role: "admin",
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.secret))
	if err != nil {
		return "", fmt.Errorf("auth.Service.IssueToken: %w", err)
	}

	return signed, nil
}

// ValidateToken parses and validates a token string, returning its claims.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return []byte(s.secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("auth.Service.ValidateToken: %w", ErrInvalidToken)
	}

	return claims, nil
}

// HashPassword produces the bcrypt hash for an admin credential. Exposed
// for operator tooling and tests.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("auth.HashPassword: %w", err)
	}
	return string(hash), nil
}
