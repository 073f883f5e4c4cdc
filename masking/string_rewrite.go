package masking

import (
	"context"
	"fmt"

	"github.com/spf13/cast"
)

// StringRewriteStrategy is the registry name of the fixed-string strategy.
const StringRewriteStrategy = "string_rewrite"

// RandomStringRewriteStrategy is the registry name of the random-string
// strategy.
const RandomStringRewriteStrategy = "random_string_rewrite"

func init() {
	Register(StringRewriteStrategy, newStringRewrite)
	Register(RandomStringRewriteStrategy, newRandomStringRewrite)
}

// stringRewriteMasker replaces every targeted value with one configured
// string.
type stringRewriteMasker struct {
	rewriteValue string
}

func newStringRewrite(cfg map[string]interface{}, secrets SecretSource) (Strategy, error) {
	raw, ok := cfg["rewrite_value"]
	if !ok {
		return nil, fmt.Errorf("string_rewrite: rewrite_value is required")
	}
	val, err := cast.ToStringE(raw)
	if err != nil {
		return nil, fmt.Errorf("string_rewrite: invalid rewrite_value: %v", raw)
	}
	return &stringRewriteMasker{rewriteValue: val}, nil
}

func (m *stringRewriteMasker) Name() string { return StringRewriteStrategy }

func (m *stringRewriteMasker) Mask(ctx context.Context, val interface{}, requestID string) (interface{}, error) {
	if val == nil {
		return nil, nil
	}
	return m.rewriteValue, nil
}

func (m *stringRewriteMasker) DataTypeSupported(dataType string) bool {
	return dataType == "string"
}

func (m *stringRewriteMasker) SecretMetas() []SecretMeta { return nil }

// randomStringMasker replaces each targeted value with a fresh random
// string of a configured length.
type randomStringMasker struct {
	length int
}

func newRandomStringRewrite(cfg map[string]interface{}, secrets SecretSource) (Strategy, error) {
	length := 30
	if raw, ok := cfg["length"]; ok {
		n, err := cast.ToIntE(raw)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("random_string_rewrite: invalid length: %v", raw)
		}
		length = n
	}
	return &randomStringMasker{length: length}, nil
}

func (m *randomStringMasker) Name() string { return RandomStringRewriteStrategy }

func (m *randomStringMasker) Mask(ctx context.Context, val interface{}, requestID string) (interface{}, error) {
	if val == nil {
		return nil, nil
	}
	s, err := GenerateSecretString(m.length)
	if err != nil {
		return nil, err
	}
	if len(s) > m.length {
		s = s[:m.length]
	}
	return s, nil
}

func (m *randomStringMasker) DataTypeSupported(dataType string) bool {
	return dataType == "string"
}

func (m *randomStringMasker) SecretMetas() []SecretMeta { return nil }
