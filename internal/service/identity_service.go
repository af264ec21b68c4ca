package service

import (
	"fmt"
	"time"

	"fuel-wallet/internal/core/domain"
	"fuel-wallet/internal/core/ports"

	"github.com/golang-jwt/jwt/v5"
)

// JWTIdentityService implements ports.IdentityService using HS256 JWT.
// Tokens carry the account id in "sub" and the caller role in "role".
type JWTIdentityService struct {
	secret []byte
	expiry time.Duration
	issuer string
}

// NewJWTIdentityService creates a new JWT identity service.
func NewJWTIdentityService(secret string, expiry time.Duration, issuer string) *JWTIdentityService {
	return &JWTIdentityService{
		secret: []byte(secret),
		expiry: expiry,
		issuer: issuer,
	}
}

// Generate creates a signed JWT for the given account and role.
func (s *JWTIdentityService) Generate(accountID string, role domain.Role) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.expiry)

	claims := jwt.MapClaims{
		"sub":  accountID,
		"role": string(role),
		"iat":  now.Unix(),
		"exp":  expiresAt.Unix(),
		"iss":  s.issuer,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// Validate parses and validates a JWT, returning the caller identity.
func (s *JWTIdentityService) Validate(tokenString string) (*ports.TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(s.issuer))
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return nil, fmt.Errorf("missing subject claim")
	}

	role, _ := claims["role"].(string)
	switch domain.Role(role) {
	case domain.RolePayer, domain.RolePayee:
	default:
		return nil, fmt.Errorf("invalid role claim %q", role)
	}

	return &ports.TokenClaims{
		AccountID: sub,
		Role:      domain.Role(role),
	}, nil
}
