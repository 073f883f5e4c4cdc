// Package cache is the shared key-value surface of the engine: request
// identities, per-request masking secrets, and the per-node result store
// all live here under namespaced keys. Redis backs it in production; the
// in-memory variant serves tests and the CLI.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iamkelllly/fidesops/masking"
)

// ErrNotFound is returned when a key has no value.
var ErrNotFound = errors.New("cache: key not found")

// DefaultTTL bounds how long request-scoped entries outlive their request.
const DefaultTTL = 7 * 24 * time.Hour

// Cache is a string key-value store with prefix listing.
type Cache interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Keys(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, keys ...string) error
}

// AccessRequestAction names the result-store namespace for retrieval rows.
const AccessRequestAction = "access_request"

// ResultKey builds the result-store key for one collection's rows:
// EN_{request_id}__access_request__{dataset}:{collection}.
func ResultKey(requestID, action, collectionAddress string) string {
	return fmt.Sprintf("EN_%s__%s__%s", requestID, action, collectionAddress)
}

// resultKeyPrefix covers every result entry of one request.
func resultKeyPrefix(requestID, action string) string {
	return fmt.Sprintf("EN_%s__%s__", requestID, action)
}

// IdentityKey builds the cache key for one identity attribute of a request.
func IdentityKey(requestID, attribute string) string {
	return fmt.Sprintf("id-%s-identity-%s", requestID, attribute)
}

// MaskingSecretKey builds the cache key for one strategy secret of a
// request.
func MaskingSecretKey(requestID, strategy string, typ masking.SecretType) string {
	return fmt.Sprintf("id-%s-masking-secret-%s-%s", requestID, strategy, typ)
}
