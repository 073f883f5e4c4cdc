package masking

import (
	"context"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"

	"github.com/spf13/cast"
)

// HashStrategy is the registry name of the salted-digest strategy.
const HashStrategy = "hash"

func init() {
	Register(HashStrategy, newHash)
}

// hashMasker replaces a value with the hex digest of the value concatenated
// with a per-request salt.
type hashMasker struct {
	algorithm string
	secrets   SecretSource
}

func newHash(cfg map[string]interface{}, secrets SecretSource) (Strategy, error) {
	algorithm := "SHA-256"
	if raw, ok := cfg["algorithm"]; ok {
		s, err := cast.ToStringE(raw)
		if err != nil {
			return nil, fmt.Errorf("hash: invalid algorithm: %v", raw)
		}
		algorithm = s
	}
	switch algorithm {
	case "SHA-256", "SHA-512":
	default:
		return nil, fmt.Errorf("hash: unsupported algorithm %q", algorithm)
	}
	return &hashMasker{algorithm: algorithm, secrets: secrets}, nil
}

func (m *hashMasker) Name() string { return HashStrategy }

func (m *hashMasker) newDigest() hash.Hash {
	if m.algorithm == "SHA-512" {
		return sha512.New()
	}
	return sha256.New()
}

func (m *hashMasker) Mask(ctx context.Context, val interface{}, requestID string) (interface{}, error) {
	if val == nil {
		return nil, nil
	}
	salt, err := fetchSecret(ctx, m.secrets, requestID, HashStrategy, SecretSalt)
	if err != nil {
		return nil, err
	}
	h := m.newDigest()
	h.Write([]byte(fmt.Sprintf("%v", val)))
	h.Write([]byte(salt))
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (m *hashMasker) DataTypeSupported(dataType string) bool {
	return dataType == "string" || dataType == "integer"
}

func (m *hashMasker) SecretMetas() []SecretMeta {
	return []SecretMeta{{
		Type:     SecretSalt,
		Generate: func() (string, error) { return GenerateSecretString(defaultSecretLength) },
	}}
}
