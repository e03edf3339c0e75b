package redis

import "strings"

const defaultNamespace = "nexusshop"

const (
	storagePrefix     = "storage"
	rateLimitPrefix   = "rate_limit"
	sessionPrefix     = "session"
	idempotencyPrefix = "idempotency"
)

// Keyspace builds colon separated keys under one namespace. The zero value
// uses "nexusshop".
type Keyspace struct {
	Namespace string
}

// StorageKey namespaces a persistence key such as "nexusshop-cart".
func (k Keyspace) StorageKey(key string) string {
	return k.join(storagePrefix, key)
}

// RateLimitKey is the counter key for a rate limit scope.
func (k Keyspace) RateLimitKey(scope string) string {
	return k.join(rateLimitPrefix, scope)
}

// RefreshTokenKey is where the refresh token for an access id lives.
func (k Keyspace) RefreshTokenKey(accessID string) string {
	return k.join(sessionPrefix, accessID)
}

// IdempotencyKey namespaces an Idempotency-Key header value by request scope.
func (k Keyspace) IdempotencyKey(scope, key string) string {
	return k.join(idempotencyPrefix, scope, key)
}

func (k Keyspace) join(parts ...string) string {
	ns := strings.TrimSpace(k.Namespace)
	if ns == "" {
		ns = defaultNamespace
	}
	var b strings.Builder
	b.WriteString(ns)
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			b.WriteByte(':')
			b.WriteString(part)
		}
	}
	return b.String()
}
