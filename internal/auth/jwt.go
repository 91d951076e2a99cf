package auth

import (
	"errors"
	"fmt"
	"time"

	"shoestore/config"
	"shoestore/internal/policy"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims holds the typed JWT payload. Subject carries the login.
type Claims struct {
	UserID   int64       `json:"user_id"`
	FullName string      `json:"name"`
	Role     policy.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256 access tokens.
type TokenManager struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

func NewTokenManager(cfg config.AuthConfig) *TokenManager {
	return &TokenManager{
		secret:   []byte(cfg.JWTSecret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		ttl:      cfg.TokenExpiry,
		now:      time.Now,
	}
}

// Issue creates a signed token for the principal and returns it with its expiry.
func (m *TokenManager) Issue(p policy.Principal) (string, time.Time, error) {
	now := m.now()
	expires := now.Add(m.ttl)

	claims := Claims{
		UserID:   p.UserID,
		FullName: p.FullName,
		Role:     p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Login,
			ID:        uuid.New().String(),
			Issuer:    m.issuer,
			Audience:  jwt.ClaimStrings{m.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}

// Verify parses a token and returns the principal it carries.
func (m *TokenManager) Verify(raw string) (policy.Principal, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(tok *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithAudience(m.audience),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return policy.Principal{}, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return policy.Principal{}, jwt.ErrTokenInvalidClaims
	}
	if claims.Subject == "" {
		return policy.Principal{}, errors.New("token has no subject")
	}

	return policy.Principal{
		UserID:   claims.UserID,
		Login:    claims.Subject,
		FullName: claims.FullName,
		Role:     claims.Role,
	}, nil
}
