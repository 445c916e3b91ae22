// Package auth mints and verifies the HS256 access tokens the API accepts.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/auctionhouse-backend/pkg/config"
	"github.com/angelmondragon/auctionhouse-backend/pkg/enums"
)

var (
	ErrMisconfigured = errors.New("jwt config incomplete")
	ErrInvalidClaims = errors.New("invalid token claims")
)

// leeway absorbs clock drift between the minting service and this one.
const leeway = 30 * time.Second

var method = jwt.SigningMethodHS256

type AccessTokenPayload struct {
	UserID uuid.UUID
	Role   enums.UserRole
	JTI    string
}

type AccessTokenClaims struct {
	UserID uuid.UUID      `json:"user_id"`
	Role   enums.UserRole `json:"role"`
	jwt.RegisteredClaims
}

func checkConfig(cfg config.JWTConfig, minting bool) error {
	switch {
	case cfg.Secret == "":
		return fmt.Errorf("%w: secret is empty", ErrMisconfigured)
	case minting && cfg.Issuer == "":
		return fmt.Errorf("%w: issuer is empty", ErrMisconfigured)
	case minting && cfg.ExpirationMinutes <= 0:
		return fmt.Errorf("%w: expiration must be positive", ErrMisconfigured)
	}
	return nil
}

// MintAccessToken signs a token valid for cfg.ExpirationMinutes from now. A
// blank JTI gets a random one.
func MintAccessToken(cfg config.JWTConfig, now time.Time, payload AccessTokenPayload) (string, error) {
	if err := checkConfig(cfg, true); err != nil {
		return "", err
	}
	if payload.UserID == uuid.Nil {
		return "", fmt.Errorf("%w: user id is required", ErrInvalidClaims)
	}
	if !payload.Role.IsValid() {
		return "", fmt.Errorf("%w: role %q", ErrInvalidClaims, payload.Role)
	}

	jti := strings.TrimSpace(payload.JTI)
	if jti == "" {
		jti = uuid.NewString()
	}
	ttl := time.Duration(cfg.ExpirationMinutes) * time.Minute
	claims := AccessTokenClaims{
		UserID: payload.UserID,
		Role:   payload.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        jti,
		},
	}
	signed, err := jwt.NewWithClaims(method, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return signed, nil
}

// ParseAccessToken verifies signature, issuer and expiry. Tokens without an
// exp claim are rejected.
func ParseAccessToken(cfg config.JWTConfig, raw string) (*AccessTokenClaims, error) {
	if err := checkConfig(cfg, false); err != nil {
		return nil, err
	}
	claims := &AccessTokenClaims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return []byte(cfg.Secret), nil },
		jwt.WithValidMethods([]string{method.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(leeway),
	)
	if err != nil {
		return nil, err
	}
	if claims.UserID == uuid.Nil {
		return nil, fmt.Errorf("%w: user id missing", ErrInvalidClaims)
	}
	if !claims.Role.IsValid() {
		return nil, fmt.Errorf("%w: role %q", ErrInvalidClaims, claims.Role)
	}
	return claims, nil
}
