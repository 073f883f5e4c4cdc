package connector

import (
	"context"

	"github.com/iamkelllly/fidesops/flog"
	"github.com/iamkelllly/fidesops/graph"
	"github.com/iamkelllly/fidesops/masking"
	"github.com/iamkelllly/fidesops/policy"
	"github.com/iamkelllly/fidesops/request"
)

// QueryConfig holds the dialect-independent half of statement generation:
// which fields may be filtered, how input values are typed and narrowed,
// and which fields each erasure rule masks.
type QueryConfig struct {
	Node *graph.TraversalNode
	Env  *Env
}

// NewQueryConfig wraps a traversal node for statement generation.
func NewQueryConfig(node *graph.TraversalNode, env *Env) *QueryConfig {
	return &QueryConfig{Node: node, Env: env}
}

// FieldMap returns the collection's fields keyed by dotted string path.
func (qc *QueryConfig) FieldMap() map[string]*graph.Field {
	return qc.Node.Node.Collection.FieldDict()
}

// TypedFilteredValues narrows raw input data down to what a retrieval
// query can use: keys must be targets of incoming edges, values are cast
// to the field's declared type, failed casts are dropped, and keys left
// with no values disappear.
func (qc *QueryConfig) TypedFilteredValues(inputs map[string][]interface{}) map[string][]interface{} {
	queryPaths := qc.Node.QueryFieldPaths()
	out := make(map[string][]interface{})
	for key, values := range inputs {
		if !queryPaths[key] {
			continue
		}
		field := qc.Node.Node.Collection.Field(graph.ParseFieldPath(key))
		if field == nil {
			continue
		}
		var cast []interface{}
		for _, v := range values {
			// dry-run placeholders carry no castable value
			if _, isToken := v.(QueryToken); isToken {
				cast = append(cast, v)
				continue
			}
			if cv := field.Cast(v); cv != nil {
				cast = append(cast, cv)
			}
		}
		if len(cast) > 0 {
			out[key] = cast
		}
	}
	return out
}

// RuleTargets pairs an erasure rule with the collection field paths its
// target categories cover.
type RuleTargets struct {
	Rule  *policy.Rule
	Paths []graph.FieldPath
}

// RuleTargetFieldPaths maps each erasure rule to the updatable field paths
// on this collection, matching rule categories by dot-segmented prefix.
func (qc *QueryConfig) RuleTargetFieldPaths(p *policy.Policy) []RuleTargets {
	var out []RuleTargets
	for _, rule := range p.ErasureRules() {
		if len(rule.TargetCategories) == 0 {
			continue
		}
		targets := RuleTargets{Rule: rule}
		for _, ruleCat := range rule.TargetCategories {
			for _, f := range qc.Node.Node.Collection.Fields {
				for _, fieldCat := range f.DataCategories {
					if policy.MatchesCategory(fieldCat, ruleCat) {
						targets.Paths = append(targets.Paths, f.Path())
						break
					}
				}
			}
		}
		out = append(out, targets)
	}
	return out
}

// UpdateValueMap maps dotted field paths to their masked replacements for
// one row. Fields whose data type the strategy cannot mask are skipped
// with a warning; a missing pre-generated secret fails the whole node.
func (qc *QueryConfig) UpdateValueMap(ctx context.Context, row graph.Row, p *policy.Policy, req *request.PrivacyRequest) (map[string]interface{}, error) {
	fieldMap := qc.FieldMap()
	values := make(map[string]interface{})
	for _, targets := range qc.RuleTargetFieldPaths(p) {
		cfg := targets.Rule.MaskingStrategy
		if cfg == nil {
			continue
		}
		strategy, err := masking.Get(cfg.Strategy, cfg.Configuration, qc.envSecrets())
		if err != nil {
			return nil, err
		}
		nullMasking := cfg.Strategy == masking.NullRewriteStrategy
		for _, path := range targets.Paths {
			field := fieldMap[path.String()]
			if field == nil {
				continue
			}
			if !supportedDataType(field, nullMasking, strategy) {
				flog.Warningf("unable to generate an update for field %s: data type is either "+
					"not present on the field or not supported for the %s masking strategy",
					path, cfg.Strategy)
				continue
			}
			masked, err := strategy.Mask(ctx, row[path.String()], req.ID)
			if err != nil {
				return nil, err
			}
			if !nullMasking && field.Length > 0 {
				flog.Warningf("masked value for field %s will be truncated to declared length %d",
					path, field.Length)
				masked = field.DataType.Truncate(field.Length, masked)
			}
			values[path.String()] = masked
		}
	}
	return values, nil
}

// NonEmptyPrimaryKeys returns the primary-key predicates present on a row
// with non-nil cast values, keyed by dotted path.
func (qc *QueryConfig) NonEmptyPrimaryKeys(row graph.Row) map[string]interface{} {
	out := make(map[string]interface{})
	for path, field := range qc.Node.Node.Collection.PrimaryKeyFieldPaths() {
		raw, present := row[path]
		if !present {
			continue
		}
		if cv := field.Cast(raw); cv != nil {
			out[path] = cv
		}
	}
	return out
}

// DisplayQueryData fabricates placeholder inputs for dry-run rendering:
// identity-sourced keys get a single placeholder, everything else a pair
// so the rendered clause shows the IN form.
func (qc *QueryConfig) DisplayQueryData() map[string][]interface{} {
	data := make(map[string][]interface{})
	for _, e := range qc.Node.Incoming {
		if e.From.CollectionAddress() == graph.RootAddress {
			data[e.To.Field] = []interface{}{QueryToken{}}
		} else {
			data[e.To.Field] = []interface{}{QueryToken{}, QueryToken{}}
		}
	}
	return data
}

// QueryToken is the "?" placeholder used when rendering dry-run queries.
type QueryToken struct{}

func (QueryToken) String() string { return "?" }

func (QueryToken) MarshalJSON() ([]byte, error) { return []byte(`"?"`), nil }

func (qc *QueryConfig) envSecrets() masking.SecretSource {
	if qc.Env == nil {
		return nil
	}
	return qc.Env.Secrets
}

func supportedDataType(field *graph.Field, nullMasking bool, strategy masking.Strategy) bool {
	if nullMasking {
		return true
	}
	if field.DataType == nil {
		return false
	}
	return strategy.DataTypeSupported(field.DataType.Name)
}
