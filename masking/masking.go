// Package masking implements the pluggable value transforms an erasure rule
// applies before writing back to a datastore. Strategies are registered by
// name at startup and instantiated per rule from their configuration.
package masking

import (
	"context"
	"fmt"
	"sort"
)

var (
	ErrStrategyNotRegistered = fmt.Errorf("this masking strategy is not registered")
	// ErrSecretMissing is returned when a strategy expects a pre-generated
	// secret in the cache and it is absent. The affected node fails rather
	// than masking with degraded inputs.
	ErrSecretMissing = fmt.Errorf("masking secret expected in cache but not present")
)

// SecretType classifies the secrets a strategy needs.
type SecretType string

const (
	SecretSalt SecretType = "salt"
	SecretKey  SecretType = "key"
)

// SecretSource fetches per-request secrets, keyed by (request, strategy,
// secret type). The cache package provides the production implementation.
type SecretSource interface {
	MaskingSecret(ctx context.Context, requestID, strategy string, typ SecretType) (string, error)
}

// SecretMeta describes one secret kind a strategy requires and how to
// generate it ahead of execution.
type SecretMeta struct {
	Type     SecretType
	Generate func() (string, error)
}

// Strategy transforms a single value, with access to per-request secrets.
type Strategy interface {
	Name() string
	// Mask produces the replacement for val. A nil return value means the
	// backend column is set to null.
	Mask(ctx context.Context, val interface{}, requestID string) (interface{}, error)
	// DataTypeSupported reports whether the strategy can mask values of
	// the named data type.
	DataTypeSupported(dataType string) bool
	// SecretMetas lists the secrets the runner must generate and cache
	// before masking begins.
	SecretMetas() []SecretMeta
}

// InitFunc builds a strategy from its rule configuration.
type InitFunc func(cfg map[string]interface{}, secrets SecretSource) (Strategy, error)

var registry = make(map[string]InitFunc)

// Register adds a strategy under a unique name. It is called from init()
// and panics on duplicates.
func Register(name string, f InitFunc) {
	if f == nil {
		panic("masking: nil InitFunc")
	}
	if _, found := registry[name]; found {
		panic(fmt.Sprintf("masking: already registered strategy %q", name))
	}
	registry[name] = f
}

// Get instantiates a registered strategy from a rule configuration.
func Get(name string, cfg map[string]interface{}, secrets SecretSource) (Strategy, error) {
	f, ok := registry[name]
	if !ok {
		return nil, ErrStrategyNotRegistered
	}
	return f(cfg, secrets)
}

// IsRegistered reports whether a strategy name is known.
func IsRegistered(name string) bool {
	_, ok := registry[name]
	return ok
}

// Strategies lists the registered strategy names.
func Strategies() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
