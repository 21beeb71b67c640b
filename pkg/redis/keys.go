package redis

import (
	"strconv"
	"strings"
)

const defaultNamespace = "casa"

// keyspace joins non-empty parts under a namespace with ':'.
type keyspace string

func (k keyspace) join(parts ...string) string {
	var b strings.Builder
	b.WriteString(string(k))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			b.WriteByte(':')
			b.WriteString(p)
		}
	}
	return b.String()
}

func (c *Client) IdempotencyKey(scope, id string) string {
	return c.keys.join("idempotency", scope, id)
}

// RateLimitKey names the counter for one window bucket of scope.
func (c *Client) RateLimitKey(scope string, bucket int64) string {
	return c.keys.join("rate_limit", scope, strconv.FormatInt(bucket, 10))
}

func (c *Client) RevokedTokenKey(jti string) string {
	return c.keys.join("revoked", jti)
}
