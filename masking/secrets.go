package masking

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const defaultSecretLength = 32

// SecretCache is one generated secret headed for the cache, keyed under
// (request id, strategy, secret type).
type SecretCache struct {
	Secret   string
	Strategy string
	Type     SecretType
}

// GenerateSecretString returns a URL-safe random string built from n random
// bytes.
func GenerateSecretString(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// BuildSecrets generates every secret the given strategies require. The
// runner caches the result before any masking runs so repeated Mask calls
// within one request see identical secrets.
func BuildSecrets(strategies []Strategy) ([]SecretCache, error) {
	var out []SecretCache
	for _, s := range strategies {
		for _, meta := range s.SecretMetas() {
			secret, err := meta.Generate()
			if err != nil {
				return nil, err
			}
			out = append(out, SecretCache{
				Secret:   secret,
				Strategy: s.Name(),
				Type:     meta.Type,
			})
		}
	}
	return out, nil
}

// fetchSecret resolves a strategy secret. With a request id the secret must
// already be cached; an empty request id means standalone masking, where a
// fresh secret is generated on the spot.
func fetchSecret(ctx context.Context, secrets SecretSource, requestID, strategy string, typ SecretType) (string, error) {
	if requestID == "" {
		return GenerateSecretString(defaultSecretLength)
	}
	if secrets == nil {
		return "", fmt.Errorf("%w: no secret source configured (strategy %s, type %s)",
			ErrSecretMissing, strategy, typ)
	}
	s, err := secrets.MaskingSecret(ctx, requestID, strategy, typ)
	if err != nil {
		return "", fmt.Errorf("%w: strategy %s, type %s: %v", ErrSecretMissing, strategy, typ, err)
	}
	return s, nil
}
