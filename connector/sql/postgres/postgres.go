// Package postgres registers the PostgreSQL backend.
package postgres

import (
	"fmt"

	"github.com/lib/pq"

	"github.com/iamkelllly/fidesops/connector"
	"github.com/iamkelllly/fidesops/connector/sql"
)

func init() {
	sql.Register(connector.TypePostgres, sql.Registration{
		Driver: "postgres",
		DSN:    DSN,
		QueryDialect: sql.QueryDialect{
			Placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
		},
	})
}

// DSN builds a libpq connection string. An explicit URL wins over the
// component fields.
func DSN(s connector.Secrets) string {
	if s.URL != "" {
		return s.URL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		s.Username, s.Password, s.Host, s.Port, s.DBName)
}

// QuoteIdentifier is exported for callers that embed identifiers in DDL.
func QuoteIdentifier(name string) string {
	return pq.QuoteIdentifier(name)
}
