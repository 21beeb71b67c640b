// Package session keeps the server-side half of logout: a denylist of access
// token ids that outlives nothing but the tokens themselves.
package session

import (
	"context"
	"errors"
	"strings"
	"time"

	redisclient "github.com/casamarket/casa-backend/pkg/redis"
)

var ErrNoTokenID = errors.New("session: token id is required")

type kv interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Exists(ctx context.Context, key string) (bool, error)
}

// RevocationChecker is the read side used by the auth middleware.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type Manager struct {
	kv    kv
	keyOf func(jti string) string
	now   func() time.Time
}

func NewManager(client *redisclient.Client) (*Manager, error) {
	if client == nil {
		return nil, errors.New("session: redis client is required")
	}
	return &Manager{kv: client, keyOf: client.RevokedTokenKey, now: time.Now}, nil
}

// Revoke denies jti until expiresAt. The entry stores when the revocation
// happened; a token that has already expired is left alone.
func (m *Manager) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	key, err := m.key(jti)
	if err != nil {
		return err
	}
	now := m.now()
	remaining := expiresAt.Sub(now)
	if remaining <= 0 {
		return nil
	}
	return m.kv.Set(ctx, key, now.UTC().Unix(), remaining)
}

func (m *Manager) IsRevoked(ctx context.Context, jti string) (bool, error) {
	key, err := m.key(jti)
	if err != nil {
		return false, err
	}
	return m.kv.Exists(ctx, key)
}

func (m *Manager) key(jti string) (string, error) {
	jti = strings.TrimSpace(jti)
	if jti == "" {
		return "", ErrNoTokenID
	}
	return m.keyOf(jti), nil
}
