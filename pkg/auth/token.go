package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/digitos-team/masala-software/pkg/config"
)

// Access tokens are HS256 only; anything else in the header is rejected
// before the key is consulted.
var signingMethod = jwt.SigningMethodHS256

// clockSkew tolerated on exp, nbf and iat between issuer and API hosts.
const clockSkew = 30 * time.Second

var (
	errNoSecret = errors.New("jwt secret is required")
	errNoIssuer = errors.New("jwt issuer is required")
)

// MintAccessToken signs payload for cfg.Expiration() starting at now. A blank
// JTI gets a random one.
func MintAccessToken(cfg config.JWTConfig, now time.Time, payload AccessTokenPayload) (string, error) {
	switch {
	case cfg.Secret == "":
		return "", errNoSecret
	case cfg.Issuer == "":
		return "", errNoIssuer
	}
	if err := checkIdentity(payload); err != nil {
		return "", err
	}

	jti := strings.TrimSpace(payload.JTI)
	if jti == "" {
		jti = uuid.NewString()
	}
	claims := AccessTokenClaims{
		UserID: payload.UserID,
		Role:   payload.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    cfg.Issuer,
			Subject:   payload.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.Expiration())),
		},
	}
	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// ParseAccessToken verifies signature, issuer and lifetime, then checks the
// identity the token carries. Use IsExpired to tell a stale token from a
// forged one.
func ParseAccessToken(cfg config.JWTConfig, raw string) (*AccessTokenClaims, error) {
	if cfg.Secret == "" {
		return nil, errNoSecret
	}
	claims := new(AccessTokenClaims)
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(clockSkew),
	)
	if _, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte(cfg.Secret), nil
	}); err != nil {
		return nil, err
	}
	if err := checkIdentity(AccessTokenPayload{UserID: claims.UserID, Role: claims.Role}); err != nil {
		return nil, fmt.Errorf("%w: %v", jwt.ErrTokenInvalidClaims, err)
	}
	return claims, nil
}

// IsExpired reports whether err came from an otherwise valid token whose
// lifetime has ended.
func IsExpired(err error) bool {
	return errors.Is(err, jwt.ErrTokenExpired)
}

func checkIdentity(payload AccessTokenPayload) error {
	if payload.UserID == uuid.Nil {
		return errors.New("user id is required")
	}
	if !payload.Role.IsValid() {
		return fmt.Errorf("unknown role %q", payload.Role)
	}
	return nil
}
