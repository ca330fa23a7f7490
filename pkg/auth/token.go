package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/gestion-ambientes/ambientes-backend/pkg/config"
)

const clockSkew = 30 * time.Second

var signingMethod = jwt.SigningMethodHS256

// Verifier checks HS256 access tokens issued by the identity provider.
// Build one per process; it is safe for concurrent use.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewVerifier(cfg config.JWTConfig) (*Verifier, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if cfg.Issuer == "" {
		return nil, errors.New("jwt issuer is required")
	}
	return &Verifier{
		secret: []byte(cfg.Secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{signingMethod.Alg()}),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
			jwt.WithLeeway(clockSkew),
		),
	}, nil
}

// Verify returns the claims of a valid token. The subject must be a user id
// and the role one the workflow knows.
func (v *Verifier) Verify(raw string) (*AccessTokenClaims, error) {
	claims := &AccessTokenClaims{}
	if _, err := v.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}); err != nil {
		return nil, err
	}
	switch {
	case claims.UserID == uuid.Nil:
		return nil, errors.New("token missing user id")
	case claims.Subject != "" && claims.Subject != claims.UserID.String():
		return nil, errors.New("token subject does not match user id")
	case !claims.Role.IsValid():
		return nil, fmt.Errorf("token carries unknown role %q", claims.Role)
	}
	return claims, nil
}

// ParseAccessToken is a one-shot Verify for callers without a Verifier.
func ParseAccessToken(cfg config.JWTConfig, raw string) (*AccessTokenClaims, error) {
	v, err := NewVerifier(cfg)
	if err != nil {
		return nil, err
	}
	return v.Verify(raw)
}

// MintAccessToken signs a token the way the identity provider does. Local
// tooling and tests use it.
func MintAccessToken(cfg config.JWTConfig, now time.Time, payload AccessTokenPayload) (string, error) {
	switch {
	case cfg.Secret == "" || cfg.Issuer == "":
		return "", errors.New("jwt secret and issuer are required")
	case cfg.ExpirationMinutes <= 0:
		return "", errors.New("jwt expiration minutes must be positive")
	case payload.UserID == uuid.Nil:
		return "", errors.New("user id is required")
	case !payload.Role.IsValid():
		return "", fmt.Errorf("invalid user role %q", payload.Role)
	}
	jti := strings.TrimSpace(payload.JTI)
	if jti == "" {
		jti = uuid.NewString()
	}
	ttl := time.Duration(cfg.ExpirationMinutes) * time.Minute
	signed, err := jwt.NewWithClaims(signingMethod, AccessTokenClaims{
		UserID: payload.UserID,
		Role:   payload.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    cfg.Issuer,
			Subject:   payload.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return signed, nil
}
