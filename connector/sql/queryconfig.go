package sql

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/iamkelllly/fidesops/connector"
	"github.com/iamkelllly/fidesops/flog"
	"github.com/iamkelllly/fidesops/graph"
	"github.com/iamkelllly/fidesops/policy"
	"github.com/iamkelllly/fidesops/request"
)

// Statement is a SQL string with named parameters. Parameter values are
// scalars, or []interface{} for tuple binding behind IN.
type Statement struct {
	Text   string
	Params map[string]interface{}
}

// SQLQueryConfig renders retrieval and update statements for one traversal
// node in a specific dialect.
type SQLQueryConfig struct {
	*connector.QueryConfig
	Dialect QueryDialect
}

// NewQueryConfig pairs a node with a dialect.
func NewQueryConfig(node *graph.TraversalNode, env *connector.Env, d QueryDialect) *SQLQueryConfig {
	return &SQLQueryConfig{QueryConfig: connector.NewQueryConfig(node, env), Dialect: d}
}

// formatFields renders the select list. Only the last level of each field
// path is used; nested SQL projection is not supported.
func (qc *SQLQueryConfig) formatFields() string {
	fields := make([]string, 0, len(qc.Node.Node.Collection.Fields))
	for _, p := range qc.Node.Node.Collection.FieldPaths() {
		fields = append(fields, qc.Dialect.fieldQuote(p.Last()))
	}
	return strings.Join(fields, ",")
}

func (qc *SQLQueryConfig) formatClause(path, op, operand string) string {
	if qc.Dialect.ClauseOperandParens {
		return fmt.Sprintf("%s %s (:%s)", qc.Dialect.fieldQuote(path), op, operand)
	}
	return fmt.Sprintf("%s %s :%s", path, op, operand)
}

func (qc *SQLQueryConfig) tableName(quoted bool) string {
	name := qc.Node.Node.Collection.Name
	if quoted {
		return `"` + name + `"`
	}
	return name
}

// GenerateQuery builds the node's retrieval statement, or nil when no
// usable filter values survive.
func (qc *SQLQueryConfig) GenerateQuery(inputs map[string][]interface{}) *Statement {
	filtered := qc.TypedFilteredValues(inputs)
	if len(filtered) > 0 {
		keys := sortedKeys(filtered)
		var clauses []string
		params := make(map[string]interface{})
		for _, key := range keys {
			data := dedupe(filtered[key])
			switch {
			case len(data) == 1:
				clauses = append(clauses, qc.formatClause(key, "=", key))
				params[key] = data[0]
			case qc.Dialect.ExpandInParams:
				names := make([]string, len(data))
				for i, v := range data {
					// suffix disambiguates the generated names from real
					// column names
					name := fmt.Sprintf("%s_in_stmt_generated_%d", key, i)
					params[name] = v
					names[i] = ":" + name
				}
				clauses = append(clauses, fmt.Sprintf("%s IN (%s)", key, strings.Join(names, ", ")))
			default:
				clauses = append(clauses, qc.formatClause(key, "IN", key))
				params[key] = data
			}
		}
		if len(clauses) > 0 {
			return &Statement{
				Text: fmt.Sprintf("SELECT %s FROM %s WHERE %s",
					qc.formatFields(),
					qc.tableName(qc.Dialect.QuoteTableSelect),
					strings.Join(clauses, " OR ")),
				Params: params,
			}
		}
	}
	flog.Warningf("there is not enough data to generate a valid query for %s", qc.Node.Address())
	return nil
}

// GenerateUpdateStmt builds the masked write-back for one row, or nil when
// the policy yields no update values or the row carries no usable primary
// keys.
func (qc *SQLQueryConfig) GenerateUpdateStmt(ctx context.Context, row graph.Row, p *policy.Policy, req *request.PrivacyRequest) (*Statement, error) {
	updateValues, err := qc.UpdateValueMap(ctx, row, p, req)
	if err != nil {
		return nil, err
	}
	pks := qc.NonEmptyPrimaryKeys(row)

	if len(updateValues) == 0 || len(pks) == 0 {
		flog.Warningf("there is not enough data to generate a valid update statement for %s", qc.Node.Address())
		return nil, nil
	}

	params := make(map[string]interface{}, len(updateValues)+len(pks))
	for k, v := range updateValues {
		params[k] = v
	}
	for k, v := range pks {
		params[k] = v
	}

	return &Statement{
		Text: fmt.Sprintf("UPDATE %s SET %s WHERE %s",
			qc.tableName(qc.Dialect.QuoteTableUpdate),
			strings.Join(qc.formatKeyMap(sortedKeys(updateValues)), ","),
			strings.Join(qc.formatKeyMap(sortedKeys(pks)), " AND ")),
		Params: params,
	}, nil
}

// formatKeyMap renders "k = :k" assignments/predicates with dialect
// quoting.
func (qc *SQLQueryConfig) formatKeyMap(keys []string) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = fmt.Sprintf("%s = :%s", qc.Dialect.fieldQuote(k), k)
	}
	return out
}

// QueryToString renders a statement with its parameters inlined, for
// logging and dry runs.
func (qc *SQLQueryConfig) QueryToString(stmt *Statement) string {
	text := stmt.Text
	for _, key := range longestFirst(stmt.Params) {
		text = strings.Replace(text, ":"+key, renderParam(stmt.Params[key]), 1)
	}
	return text
}

// DryRunQuery renders the retrieval query with placeholder inputs.
func (qc *SQLQueryConfig) DryRunQuery() string {
	stmt := qc.GenerateQuery(qc.DisplayQueryData())
	if stmt == nil {
		return ""
	}
	return qc.QueryToString(stmt)
}

func renderParam(v interface{}) string {
	switch t := v.(type) {
	case []interface{}:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = renderParam(e)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case string:
		return "'" + t + "'"
	case connector.QueryToken:
		return "?"
	default:
		return fmt.Sprintf("%v", t)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// longestFirst orders parameter names longest-first so substitution never
// clobbers a longer name sharing a prefix.
func longestFirst(m map[string]interface{}) []string {
	keys := sortedKeys(m)
	sort.SliceStable(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })
	return keys
}

// dedupe drops repeated values, preserving first-seen order. Dry-run
// placeholders stay distinct so a placeholder pair renders as an IN pair.
func dedupe(values []interface{}) []interface{} {
	seen := make(map[string]bool, len(values))
	out := make([]interface{}, 0, len(values))
	for _, v := range values {
		if _, isToken := v.(connector.QueryToken); isToken {
			out = append(out, v)
			continue
		}
		key := fmt.Sprintf("%v", v)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	return out
}
