// Package mssql registers the SQL Server dialect. SQL Server cannot bind a
// tuple behind IN, so multi-value clauses expand to one generated parameter
// per value.
package mssql

import (
	"fmt"

	"github.com/iamkelllly/fidesops/connector"
	"github.com/iamkelllly/fidesops/connector/sql"
)

func init() {
	sql.Register(connector.TypeMSSQL, sql.Registration{
		Driver: "sqlserver",
		DSN:    DSN,
		QueryDialect: sql.QueryDialect{
			ExpandInParams: true,
			Placeholder:    func(n int) string { return fmt.Sprintf("@p%d", n) },
		},
	})
}

// DSN builds a sqlserver URL from connection secrets.
func DSN(s connector.Secrets) string {
	if s.URL != "" {
		return s.URL
	}
	return fmt.Sprintf("sqlserver://%s:%s@%s:%d?database=%s",
		s.Username, s.Password, s.Host, s.Port, s.DBName)
}
