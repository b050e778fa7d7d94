package services

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"ordercast/internal/core/domain"
)

// Identity is what a validated token says about its bearer.
type Identity struct {
	Subject string
	Role    domain.Role
}

type TokenService struct {
	secretKey []byte
	issuer    string
	ttl       time.Duration
	log       *slog.Logger
}

func NewTokenService(log *slog.Logger, secret string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenService{
		secretKey: []byte(secret),
		issuer:    "ordercast",
		ttl:       ttl,
		log:       log,
	}
}

// Enabled reports whether a signing secret is configured.
func (s *TokenService) Enabled() bool {
	return s != nil && len(s.secretKey) > 0
}

func (s *TokenService) GenerateToken(subject string, role domain.Role) (string, error) {
	if !s.Enabled() {
		return "", fmt.Errorf("%w: no signing secret", domain.ErrUnauthorized)
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": string(role),
		"iat":  now.Unix(),
		"exp":  now.Add(s.ttl).Unix(),
		"iss":  s.issuer,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secretKey)
}

// ValidateToken parses and validates the JWT string
func (s *TokenService) ValidateToken(tokenStr string) (Identity, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		// Ensure signing method is HMAC
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secretKey, nil
	}, jwt.WithIssuer(s.issuer))
	if err != nil || !token.Valid {
		return Identity{}, fmt.Errorf("%w: invalid token", domain.ErrUnauthorized)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, fmt.Errorf("%w: invalid claims", domain.ErrUnauthorized)
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return Identity{}, fmt.Errorf("%w: subject not found in token", domain.ErrUnauthorized)
	}
	role, _ := claims["role"].(string)
	return Identity{Subject: sub, Role: domain.Role(role)}, nil
}
