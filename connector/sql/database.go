// Package sql implements the connector contract for relational backends.
// Concrete dialects register themselves from subpackages, each contributing
// a driver name, a DSN builder and quoting/parameter rules; everything else
// is shared.
package sql

import (
	"fmt"

	"github.com/iamkelllly/fidesops/connector"
)

// QueryDialect captures how one SQL dialect renders identifiers and bind
// parameters.
type QueryDialect struct {
	// FieldQuote quotes a column identifier; nil leaves identifiers bare.
	FieldQuote func(string) string
	// QuoteTableSelect and QuoteTableUpdate double-quote the table name in
	// the respective statements.
	QuoteTableSelect bool
	QuoteTableUpdate bool
	// ClauseOperandParens wraps clause operands as "(:name)".
	ClauseOperandParens bool
	// ExpandInParams renders IN as per-value named parameters for drivers
	// that cannot bind a tuple.
	ExpandInParams bool
	// Placeholder renders the driver's positional placeholder for the
	// n-th parameter (1-based) when a statement is compiled for execution.
	Placeholder func(n int) string
}

func (d QueryDialect) fieldQuote(name string) string {
	if d.FieldQuote == nil {
		return name
	}
	return d.FieldQuote(name)
}

// Registration describes one SQL dialect and how to reach its backend.
type Registration struct {
	// Driver is the database/sql driver name used on dial. Dialects whose
	// driver is not linked into the binary still generate statements but
	// cannot open connections.
	Driver string
	// DSN builds the driver's connection string from connection secrets.
	DSN func(s connector.Secrets) string
	QueryDialect
}

var types = make(map[connector.Type]Registration)

// Register wires a dialect into the connector registry. Called from
// subpackage init().
func Register(t connector.Type, r Registration) {
	if r.Driver == "" {
		panic("sql: no driver in dialect registration")
	}
	if _, found := types[t]; found {
		panic(fmt.Sprintf("sql: already registered dialect %q", t))
	}
	types[t] = r

	connector.Register(t, connector.Registration{
		NewFunc: func(cfg *connector.Config, env *connector.Env) (connector.Connector, error) {
			return newSQLConnector(cfg, env, r)
		},
	})
}

// DialectFor returns the registered dialect for a connection type.
func DialectFor(t connector.Type) (Registration, bool) {
	r, ok := types[t]
	return r, ok
}
