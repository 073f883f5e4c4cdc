package cache

import (
	"context"

	"github.com/iamkelllly/fidesops/masking"
	"github.com/iamkelllly/fidesops/request"
)

// SecretStore adapts a Cache into the masking.SecretSource the strategies
// fetch their per-request secrets from.
type SecretStore struct {
	C Cache
}

// MaskingSecret implements masking.SecretSource.
func (s SecretStore) MaskingSecret(ctx context.Context, requestID, strategy string, typ masking.SecretType) (string, error) {
	return s.C.Get(ctx, MaskingSecretKey(requestID, strategy, typ))
}

// CacheMaskingSecrets writes pre-generated strategy secrets for a request.
// Secrets are written once, before masking begins.
func CacheMaskingSecrets(ctx context.Context, c Cache, requestID string, secrets []masking.SecretCache) error {
	for _, s := range secrets {
		key := MaskingSecretKey(requestID, s.Strategy, s.Type)
		if err := c.Set(ctx, key, s.Secret, DefaultTTL); err != nil {
			return err
		}
	}
	return nil
}

// CacheIdentity stores each populated identity attribute of a request.
func CacheIdentity(ctx context.Context, c Cache, requestID string, identity request.Identity) error {
	for attr, val := range identity.Map() {
		if err := c.Set(ctx, IdentityKey(requestID, attr), val, DefaultTTL); err != nil {
			return err
		}
	}
	return nil
}

// GetIdentityValue fetches one cached identity attribute, or "" when the
// request never supplied it.
func GetIdentityValue(ctx context.Context, c Cache, requestID, attribute string) (string, error) {
	val, err := c.Get(ctx, IdentityKey(requestID, attribute))
	if err == ErrNotFound {
		return "", nil
	}
	return val, err
}
