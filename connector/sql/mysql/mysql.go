// Package mysql registers the MySQL backend.
package mysql

import (
	"fmt"

	_ "github.com/go-sql-driver/mysql"

	"github.com/iamkelllly/fidesops/connector"
	"github.com/iamkelllly/fidesops/connector/sql"
)

func init() {
	sql.Register(connector.TypeMySQL, sql.Registration{
		Driver: "mysql",
		DSN:    DSN,
		QueryDialect: sql.QueryDialect{
			Placeholder: func(n int) string { return "?" },
		},
	})
}

// DSN builds a go-sql-driver connection string.
func DSN(s connector.Secrets) string {
	if s.URL != "" {
		return s.URL
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s",
		s.Username, s.Password, s.Host, s.Port, s.DBName)
}
