package sql

import (
	"context"
	gosql "database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/iamkelllly/fidesops/connector"
	"github.com/iamkelllly/fidesops/flog"
	"github.com/iamkelllly/fidesops/graph"
	"github.com/iamkelllly/fidesops/policy"
	"github.com/iamkelllly/fidesops/request"
)

// SQLConnector executes generated statements against one relational
// backend through database/sql.
type SQLConnector struct {
	cfg *connector.Config
	env *connector.Env
	reg Registration
	db  *gosql.DB
}

func newSQLConnector(cfg *connector.Config, env *connector.Env, reg Registration) (connector.Connector, error) {
	db, err := gosql.Open(reg.Driver, reg.DSN(cfg.Secrets))
	if err != nil {
		return nil, fmt.Errorf("opening %s connection %s: %w", cfg.Type, cfg.Key, err)
	}
	return &SQLConnector{cfg: cfg, env: env, reg: reg, db: db}, nil
}

// QueryConfig exposes statement generation for this connection's dialect,
// used by dry-run tooling as well as execution.
func (c *SQLConnector) QueryConfig(node *graph.TraversalNode) *SQLQueryConfig {
	return NewQueryConfig(node, c.env, c.reg.QueryDialect)
}

func (c *SQLConnector) TestConnection(ctx context.Context) (connector.TestStatus, error) {
	if err := c.db.PingContext(ctx); err != nil {
		return connector.TestFailed, err
	}
	return connector.TestSucceeded, nil
}

func (c *SQLConnector) Retrieve(ctx context.Context, node *graph.TraversalNode, inputs map[string][]interface{}, p *policy.Policy) ([]graph.Row, error) {
	qc := c.QueryConfig(node)
	stmt := qc.GenerateQuery(inputs)
	if stmt == nil {
		return nil, nil
	}
	if flog.V(2) {
		flog.Infof("%s: %s", node.Address(), qc.QueryToString(stmt))
	}
	text, args, err := Compile(stmt, c.reg.Placeholder)
	if err != nil {
		return nil, err
	}
	rows, err := c.db.QueryContext(ctx, text, args...)
	if err != nil {
		return nil, fmt.Errorf("retrieving %s: %w", node.Address(), err)
	}
	defer rows.Close()
	return scanRows(rows)
}

func (c *SQLConnector) Mask(ctx context.Context, node *graph.TraversalNode, rows []graph.Row, p *policy.Policy, req *request.PrivacyRequest) (int, error) {
	if err := connector.CheckWriteAccess(c.cfg); err != nil {
		return 0, err
	}
	qc := c.QueryConfig(node)
	count := 0
	for _, row := range rows {
		stmt, err := qc.GenerateUpdateStmt(ctx, row, p, req)
		if err != nil {
			return count, err
		}
		if stmt == nil {
			continue
		}
		text, args, err := Compile(stmt, c.reg.Placeholder)
		if err != nil {
			return count, err
		}
		res, err := c.db.ExecContext(ctx, text, args...)
		if err != nil {
			return count, fmt.Errorf("masking %s: %w", node.Address(), err)
		}
		if n, err := res.RowsAffected(); err == nil {
			count += int(n)
		}
	}
	return count, nil
}

func (c *SQLConnector) Close() error {
	return c.db.Close()
}

var namedParamRE = regexp.MustCompile(`:([A-Za-z_][A-Za-z0-9_.]*)`)

// Compile lowers a named-parameter statement to the driver's positional
// placeholders, expanding tuple parameters behind IN into one placeholder
// per value.
func Compile(stmt *Statement, placeholder func(n int) string) (string, []interface{}, error) {
	if placeholder == nil {
		placeholder = func(n int) string { return "?" }
	}
	var (
		args []interface{}
		out  strings.Builder
		last int
		errs []string
	)
	n := 0
	for _, loc := range namedParamRE.FindAllStringSubmatchIndex(stmt.Text, -1) {
		start, end := loc[0], loc[1]
		name := stmt.Text[loc[2]:loc[3]]
		val, ok := stmt.Params[name]
		if !ok {
			errs = append(errs, name)
			continue
		}
		out.WriteString(stmt.Text[last:start])
		if tuple, isTuple := val.([]interface{}); isTuple {
			// generic dialects render "IN :k" without parens; add them
			// unless the statement already did
			parens := start == 0 || stmt.Text[start-1] != '('
			if parens {
				out.WriteString("(")
			}
			for i, v := range tuple {
				if i > 0 {
					out.WriteString(", ")
				}
				n++
				out.WriteString(placeholder(n))
				args = append(args, v)
			}
			if parens {
				out.WriteString(")")
			}
		} else {
			n++
			out.WriteString(placeholder(n))
			args = append(args, val)
		}
		last = end
	}
	if len(errs) > 0 {
		return "", nil, fmt.Errorf("statement references unbound parameters: %s", strings.Join(errs, ", "))
	}
	out.WriteString(stmt.Text[last:])
	return out.String(), args, nil
}

func scanRows(rows *gosql.Rows) ([]graph.Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []graph.Row
	for rows.Next() {
		values := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(graph.Row, len(cols))
		for i, col := range cols {
			v := values[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[col] = v
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
