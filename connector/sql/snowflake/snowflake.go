// Package snowflake registers the Snowflake dialect. Snowflake folds
// unquoted identifiers to upper case, so every identifier is emitted
// double-quoted and clause operands are parenthesized the way the
// Snowflake client expects.
package snowflake

import (
	"github.com/iamkelllly/fidesops/connector"
	"github.com/iamkelllly/fidesops/connector/sql"
)

func init() {
	sql.Register(connector.TypeSnowflake, sql.Registration{
		Driver: "snowflake",
		DSN:    DSN,
		QueryDialect: sql.QueryDialect{
			FieldQuote:          func(name string) string { return `"` + name + `"` },
			QuoteTableSelect:    true,
			QuoteTableUpdate:    true,
			ClauseOperandParens: true,
			Placeholder:         func(n int) string { return "?" },
		},
	})
}

// DSN passes the account URL through; Snowflake connections are configured
// with a full connection string.
func DSN(s connector.Secrets) string {
	return s.URL
}
