// Package redshift registers the Amazon Redshift backend. Redshift speaks
// the postgres wire protocol, so it reuses the lib/pq driver; only the
// statement shape differs.
package redshift

import (
	"fmt"

	_ "github.com/lib/pq"

	"github.com/iamkelllly/fidesops/connector"
	"github.com/iamkelllly/fidesops/connector/sql"
)

func init() {
	sql.Register(connector.TypeRedshift, sql.Registration{
		Driver: "postgres",
		DSN:    DSN,
		QueryDialect: sql.QueryDialect{
			// the table name is quoted in SELECT only
			QuoteTableSelect: true,
			Placeholder:      func(n int) string { return fmt.Sprintf("$%d", n) },
		},
	})
}

// DSN builds the connection string for Redshift's postgres endpoint.
func DSN(s connector.Secrets) string {
	if s.URL != "" {
		return s.URL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		s.Username, s.Password, s.Host, s.Port, s.DBName)
}
