package sql_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iamkelllly/fidesops/connector"
	"github.com/iamkelllly/fidesops/connector/sql"

	_ "github.com/iamkelllly/fidesops/connector/sql/mssql"
	_ "github.com/iamkelllly/fidesops/connector/sql/mysql"
	_ "github.com/iamkelllly/fidesops/connector/sql/postgres"
	_ "github.com/iamkelllly/fidesops/connector/sql/redshift"
	_ "github.com/iamkelllly/fidesops/connector/sql/snowflake"
	_ "github.com/iamkelllly/fidesops/connector/sql/sqlite"
)

func TestDialectRegistrations(t *testing.T) {
	for _, typ := range []connector.Type{
		connector.TypePostgres,
		connector.TypeMySQL,
		connector.TypeSQLite,
		connector.TypeRedshift,
		connector.TypeSnowflake,
		connector.TypeMSSQL,
	} {
		reg, ok := sql.DialectFor(typ)
		assert.True(t, ok, string(typ))
		assert.NotEmpty(t, reg.Driver, string(typ))
		assert.True(t, connector.IsRegistered(typ), string(typ))
	}
}
