// Package auth mints and verifies the HS256 access tokens carried by API callers.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/casamarket/casa-backend/pkg/config"
	"github.com/casamarket/casa-backend/pkg/enums"
)

var (
	ErrNoSecret      = errors.New("jwt secret is required")
	ErrNoIssuer      = errors.New("jwt issuer is required")
	ErrBadTTL        = errors.New("jwt expiration minutes must be positive")
	ErrMissingActor  = errors.New("token carries no actor id")
	ErrMissingSessID = errors.New("token carries no session id")
)

var signingMethod = jwt.SigningMethodHS256

// AccessTokenPayload is what a caller knows about the actor at login time.
// JTI is generated when empty.
type AccessTokenPayload struct {
	ActorID uuid.UUID
	Role    enums.ActorRole
	JTI     string
}

// AccessTokenClaims is the body of a Casa access token. The registered ID
// doubles as the session id used for revocation.
type AccessTokenClaims struct {
	ActorID uuid.UUID       `json:"actor_id"`
	Role    enums.ActorRole `json:"role"`
	jwt.RegisteredClaims
}

func (c *AccessTokenClaims) SessionID() string { return c.ID }

// Expiry is the zero time when the token has no exp claim.
func (c *AccessTokenClaims) Expiry() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

func MintAccessToken(cfg config.JWTConfig, now time.Time, p AccessTokenPayload) (string, error) {
	if err := checkMintConfig(cfg); err != nil {
		return "", err
	}
	if p.ActorID == uuid.Nil {
		return "", ErrMissingActor
	}
	role, err := enums.ParseActorRole(string(p.Role))
	if err != nil {
		return "", err
	}
	sessionID := strings.TrimSpace(p.JTI)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	body := AccessTokenClaims{ActorID: p.ActorID, Role: role}
	body.Issuer = cfg.Issuer
	body.Subject = p.ActorID.String()
	body.ID = sessionID
	body.IssuedAt = jwt.NewNumericDate(now)
	body.ExpiresAt = jwt.NewNumericDate(now.Add(cfg.AccessTTL()))

	signed, err := jwt.NewWithClaims(signingMethod, body).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// ParseAccessToken verifies signature, issuer and expiry, then checks the
// Casa-specific claims.
func ParseAccessToken(cfg config.JWTConfig, raw string) (*AccessTokenClaims, error) {
	if cfg.Secret == "" {
		return nil, ErrNoSecret
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)

	var claims AccessTokenClaims
	if _, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return []byte(cfg.Secret), nil
	}); err != nil {
		return nil, err
	}

	switch {
	case claims.ActorID == uuid.Nil:
		return nil, ErrMissingActor
	case claims.ID == "":
		return nil, ErrMissingSessID
	}
	role, err := enums.ParseActorRole(string(claims.Role))
	if err != nil {
		return nil, err
	}
	claims.Role = role
	return &claims, nil
}

func checkMintConfig(cfg config.JWTConfig) error {
	switch {
	case cfg.Secret == "":
		return ErrNoSecret
	case cfg.Issuer == "":
		return ErrNoIssuer
	case cfg.ExpirationMinutes <= 0:
		return ErrBadTTL
	}
	return nil
}
