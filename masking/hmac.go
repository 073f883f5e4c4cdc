package masking

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"

	"github.com/spf13/cast"
)

// HMACStrategy is the registry name of the keyed-digest strategy.
const HMACStrategy = "hmac"

func init() {
	Register(HMACStrategy, newHMAC)
}

// hmacMasker replaces a value with the hex HMAC of the salted value under a
// per-request key.
type hmacMasker struct {
	algorithm string
	secrets   SecretSource
}

func newHMAC(cfg map[string]interface{}, secrets SecretSource) (Strategy, error) {
	algorithm := "SHA-256"
	if raw, ok := cfg["algorithm"]; ok {
		s, err := cast.ToStringE(raw)
		if err != nil {
			return nil, fmt.Errorf("hmac: invalid algorithm: %v", raw)
		}
		algorithm = s
	}
	switch algorithm {
	case "SHA-256", "SHA-512":
	default:
		return nil, fmt.Errorf("hmac: unsupported algorithm %q", algorithm)
	}
	return &hmacMasker{algorithm: algorithm, secrets: secrets}, nil
}

func (m *hmacMasker) Name() string { return HMACStrategy }

func (m *hmacMasker) Mask(ctx context.Context, val interface{}, requestID string) (interface{}, error) {
	if val == nil {
		return nil, nil
	}
	key, err := fetchSecret(ctx, m.secrets, requestID, HMACStrategy, SecretKey)
	if err != nil {
		return nil, err
	}
	salt, err := fetchSecret(ctx, m.secrets, requestID, HMACStrategy, SecretSalt)
	if err != nil {
		return nil, err
	}
	var digest func() hash.Hash = sha256.New
	if m.algorithm == "SHA-512" {
		digest = sha512.New
	}
	mac := hmac.New(digest, []byte(key))
	mac.Write([]byte(fmt.Sprintf("%v", val)))
	mac.Write([]byte(salt))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

func (m *hmacMasker) DataTypeSupported(dataType string) bool {
	return dataType == "string"
}

func (m *hmacMasker) SecretMetas() []SecretMeta {
	gen := func() (string, error) { return GenerateSecretString(defaultSecretLength) }
	return []SecretMeta{
		{Type: SecretKey, Generate: gen},
		{Type: SecretSalt, Generate: gen},
	}
}
