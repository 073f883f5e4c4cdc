package masking

import "context"

// NullRewriteStrategy is the registry name of the null-rewrite strategy.
const NullRewriteStrategy = "null_rewrite"

func init() {
	Register(NullRewriteStrategy, func(cfg map[string]interface{}, secrets SecretSource) (Strategy, error) {
		return nullMasker{}, nil
	})
}

// nullMasker erases by writing null. It supports every data type and its
// output is exempt from length truncation.
type nullMasker struct{}

func (nullMasker) Name() string { return NullRewriteStrategy }

func (nullMasker) Mask(ctx context.Context, val interface{}, requestID string) (interface{}, error) {
	return nil, nil
}

func (nullMasker) DataTypeSupported(dataType string) bool { return true }

func (nullMasker) SecretMetas() []SecretMeta { return nil }
