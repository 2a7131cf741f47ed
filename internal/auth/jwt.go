// Package auth verifies the bearer tokens that guard the trigger surface.
// Tokens are minted by the platform's login flow; this package only shares
// its secret and claim layout.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Chirantan-Dey/quiz-master/internal/domain"
	"github.com/Chirantan-Dey/quiz-master/pkg/ctxutil"
)

// JWTManager generates and validates HS256 access tokens.
type JWTManager struct {
	secret    []byte
	issuer    string
	accessTTL time.Duration
	now       func() time.Time
}

// NewJWTManager creates a new JWT manager.
// secret must be at least 32 characters for HS256 security.
func NewJWTManager(secret string, issuer string, accessTTL time.Duration) *JWTManager {
	return &JWTManager{
		secret:    []byte(secret),
		issuer:    issuer,
		accessTTL: accessTTL,
		now:       time.Now,
	}
}

// accessClaims extends standard JWT claims with the account's email and roles.
type accessClaims struct {
	jwt.RegisteredClaims
	Email string   `json:"email,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

// GenerateAccessToken creates a signed token with the account id as subject.
func (m *JWTManager) GenerateAccessToken(accountID int64, email string, roles []domain.Role) (string, error) {
	if accountID <= 0 {
		return "", fmt.Errorf("sign token: invalid account id %d", accountID)
	}

	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = r.String()
	}

	now := m.now()
	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(accountID, 10),
			Issuer:    m.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Email: domain.NormalizeEmail(email),
		Roles: names,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// ValidateAccessToken parses and validates an access token and returns the
// caller it names.
func (m *JWTManager) ValidateAccessToken(tokenString string) (ctxutil.Identity, error) {
	if tokenString == "" {
		return ctxutil.Identity{}, errors.New("token is empty")
	}

	token, err := jwt.ParseWithClaims(tokenString, &accessClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithIssuer(m.issuer), jwt.WithTimeFunc(m.now))
	if err != nil {
		return ctxutil.Identity{}, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*accessClaims)
	if !ok || !token.Valid {
		return ctxutil.Identity{}, errors.New("invalid token claims")
	}

	accountID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || accountID <= 0 {
		return ctxutil.Identity{}, fmt.Errorf("invalid subject %q", claims.Subject)
	}

	return ctxutil.Identity{AccountID: accountID, Email: claims.Email, Roles: claims.Roles}, nil
}

// ValidateToken adapts ValidateAccessToken to the HTTP auth middleware.
func (m *JWTManager) ValidateToken(_ context.Context, token string) (ctxutil.Identity, error) {
	id, err := m.ValidateAccessToken(token)
	if err != nil {
		return ctxutil.Identity{}, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	return id, nil
}
