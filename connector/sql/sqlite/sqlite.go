// Package sqlite registers the SQLite backend, mostly useful for local
// development and tests.
package sqlite

import (
	_ "github.com/mattn/go-sqlite3"

	"github.com/iamkelllly/fidesops/connector"
	"github.com/iamkelllly/fidesops/connector/sql"
)

func init() {
	sql.Register(connector.TypeSQLite, sql.Registration{
		Driver: "sqlite3",
		DSN:    DSN,
		QueryDialect: sql.QueryDialect{
			Placeholder: func(n int) string { return "?" },
		},
	})
}

// DSN returns the database file path. URL doubles as the path here; an
// empty config opens an in-memory database.
func DSN(s connector.Secrets) string {
	if s.URL != "" {
		return s.URL
	}
	if s.DBName != "" {
		return s.DBName
	}
	return ":memory:"
}
