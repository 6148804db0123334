package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iho/boxoffice/internal/domain"
)

// Claims are the identity provider's token claims. Only the subject, email and role are trusted.
type Claims struct {
	UserID string      `json:"user_id,omitempty"`
	Email  string      `json:"email"`
	Name   string      `json:"name,omitempty"`
	Role   domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// User returns the identity carried by the claims. user_id wins over sub when both are set.
func (c *Claims) User() *domain.User {
	id := c.UserID
	if id == "" {
		id = c.Subject
	}

	role := c.Role
	if !role.IsValid() {
		role = domain.RoleCustomer
	}

	return &domain.User{
		ID:    id,
		Email: strings.ToLower(strings.TrimSpace(c.Email)),
		Name:  c.Name,
		Role:  role,
	}
}

// JWTManager verifies HS256 tokens issued by the identity provider.
type JWTManager struct {
	secretKey     []byte
	issuer        string
	tokenDuration time.Duration
}

// NewJWTManager creates a new JWT manager. An empty issuer accepts any iss claim.
func NewJWTManager(secretKey, issuer string, tokenDuration time.Duration) *JWTManager {
	return &JWTManager{
		secretKey:     []byte(secretKey),
		issuer:        issuer,
		tokenDuration: tokenDuration,
	}
}

// Generate signs a token for user. Production tokens come from the identity provider;
// this serves local tooling and tests.
func (m *JWTManager) Generate(user *domain.User) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    m.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secretKey)
}

// Verify verifies a JWT token and returns the claims
func (m *JWTManager) Verify(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			// Validate signing method
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return m.secretKey, nil
		},
		opts...,
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrExpiredToken
		}
		return nil, domain.ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, domain.ErrInvalidToken
	}

	if claims.UserID == "" && claims.Subject == "" {
		return nil, domain.ErrInvalidToken
	}

	return claims, nil
}
