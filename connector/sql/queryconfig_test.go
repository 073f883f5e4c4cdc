package sql

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamkelllly/fidesops/graph"
	"github.com/iamkelllly/fidesops/masking"
	"github.com/iamkelllly/fidesops/policy"
	"github.com/iamkelllly/fidesops/request"
)

var genericDialect = QueryDialect{}

var snowflakeDialect = QueryDialect{
	FieldQuote:          func(name string) string { return `"` + name + `"` },
	QuoteTableSelect:    true,
	QuoteTableUpdate:    true,
	ClauseOperandParens: true,
}

var mssqlDialect = QueryDialect{ExpandInParams: true}

var redshiftDialect = QueryDialect{QuoteTableSelect: true}

func customerNode(t *testing.T) *graph.TraversalNode {
	t.Helper()
	str, _ := graph.DataTypeByName("string")
	integer, _ := graph.DataTypeByName("integer")

	col := graph.MustNewCollection("customer",
		&graph.Field{Name: "id", DataType: integer, PrimaryKey: true},
		&graph.Field{Name: "email", DataType: str, Identity: "email",
			DataCategories: []string{"user.provided.identifiable.contact.email"}},
		&graph.Field{Name: "name", DataType: str,
			DataCategories: []string{"user.provided.identifiable.name"}},
	)
	addr := graph.CollectionAddress{Dataset: "shop", Collection: "customer"}
	return &graph.TraversalNode{
		Node: &graph.Node{Address: addr, Collection: col},
		Incoming: []graph.Edge{{
			From: graph.NewFieldAddress(graph.RootAddress, graph.ParseFieldPath("email")),
			To:   graph.NewFieldAddress(addr, graph.ParseFieldPath("email")),
		}},
	}
}

func TestGenerateQuerySingleValue(t *testing.T) {
	qc := NewQueryConfig(customerNode(t), nil, genericDialect)

	stmt := qc.GenerateQuery(map[string][]interface{}{
		"email": {"customer-1@example.com"},
	})
	require.NotNil(t, stmt)
	assert.Equal(t, "SELECT id,email,name FROM customer WHERE email = :email", stmt.Text)
	assert.Equal(t, map[string]interface{}{"email": "customer-1@example.com"}, stmt.Params)
}

func TestGenerateQueryMultiValue(t *testing.T) {
	qc := NewQueryConfig(customerNode(t), nil, genericDialect)

	stmt := qc.GenerateQuery(map[string][]interface{}{
		"email": {"a@example.com", "b@example.com", "a@example.com"},
	})
	require.NotNil(t, stmt)
	assert.Equal(t, "SELECT id,email,name FROM customer WHERE email IN :email", stmt.Text)
	// duplicates collapse, first-seen order kept
	assert.Equal(t, []interface{}{"a@example.com", "b@example.com"}, stmt.Params["email"])
}

func TestGenerateQueryNoUsableInputs(t *testing.T) {
	qc := NewQueryConfig(customerNode(t), nil, genericDialect)
	assert.Nil(t, qc.GenerateQuery(nil))
	assert.Nil(t, qc.GenerateQuery(map[string][]interface{}{"name": {"not a query field"}}))
}

func TestGenerateQuerySnowflake(t *testing.T) {
	qc := NewQueryConfig(customerNode(t), nil, snowflakeDialect)

	stmt := qc.GenerateQuery(map[string][]interface{}{
		"email": {"customer-1@example.com"},
	})
	require.NotNil(t, stmt)
	assert.Equal(t, `SELECT "id","email","name" FROM "customer" WHERE "email" = (:email)`, stmt.Text)
}

func TestGenerateQueryMSSQLExpandsIn(t *testing.T) {
	qc := NewQueryConfig(customerNode(t), nil, mssqlDialect)

	stmt := qc.GenerateQuery(map[string][]interface{}{
		"email": {"a@example.com", "b@example.com"},
	})
	require.NotNil(t, stmt)
	assert.Equal(t,
		"SELECT id,email,name FROM customer WHERE email IN (:email_in_stmt_generated_0, :email_in_stmt_generated_1)",
		stmt.Text)
	assert.Equal(t, "a@example.com", stmt.Params["email_in_stmt_generated_0"])
	assert.Equal(t, "b@example.com", stmt.Params["email_in_stmt_generated_1"])
}

func TestGenerateQueryRedshiftQuotesTable(t *testing.T) {
	qc := NewQueryConfig(customerNode(t), nil, redshiftDialect)

	stmt := qc.GenerateQuery(map[string][]interface{}{
		"email": {"customer-1@example.com"},
	})
	require.NotNil(t, stmt)
	assert.Equal(t, `SELECT id,email,name FROM "customer" WHERE email = :email`, stmt.Text)
}

func erasurePolicy(strategy string, cfg map[string]interface{}, categories ...string) *policy.Policy {
	return &policy.Policy{
		Key: "erasure_policy",
		Rules: []*policy.Rule{{
			Key:              "erasure_rule",
			ActionType:       policy.ActionErasure,
			TargetCategories: categories,
			MaskingStrategy:  &policy.MaskingConfiguration{Strategy: strategy, Configuration: cfg},
		}},
	}
}

func TestGenerateUpdateStmt(t *testing.T) {
	qc := NewQueryConfig(customerNode(t), nil, genericDialect)
	p := erasurePolicy(masking.NullRewriteStrategy, nil, "user.provided.identifiable")
	req := &request.PrivacyRequest{ID: "req-1"}

	row := graph.Row{"id": 1, "email": "customer-1@example.com", "name": "John"}
	stmt, err := qc.GenerateUpdateStmt(context.TODO(), row, p, req)
	require.NoError(t, err)
	require.NotNil(t, stmt)
	assert.Equal(t, "UPDATE customer SET email = :email,name = :name WHERE id = :id", stmt.Text)
	assert.Equal(t, map[string]interface{}{"email": nil, "name": nil, "id": int64(1)}, stmt.Params)
}

func TestGenerateUpdateStmtSnowflake(t *testing.T) {
	qc := NewQueryConfig(customerNode(t), nil, snowflakeDialect)
	p := erasurePolicy(masking.NullRewriteStrategy, nil, "user.provided.identifiable.name")
	req := &request.PrivacyRequest{ID: "req-1"}

	stmt, err := qc.GenerateUpdateStmt(context.TODO(), graph.Row{"id": 1, "name": "John"}, p, req)
	require.NoError(t, err)
	require.NotNil(t, stmt)
	assert.Equal(t, `UPDATE "customer" SET "name" = :name WHERE "id" = :id`, stmt.Text)
}

func TestGenerateUpdateStmtNoPrimaryKey(t *testing.T) {
	qc := NewQueryConfig(customerNode(t), nil, genericDialect)
	p := erasurePolicy(masking.NullRewriteStrategy, nil, "user.provided.identifiable")
	req := &request.PrivacyRequest{ID: "req-1"}

	stmt, err := qc.GenerateUpdateStmt(context.TODO(), graph.Row{"email": "x@example.com"}, p, req)
	require.NoError(t, err)
	assert.Nil(t, stmt)
}

func TestQueryToString(t *testing.T) {
	qc := NewQueryConfig(customerNode(t), nil, genericDialect)

	stmt := &Statement{
		Text: "SELECT id FROM customer WHERE email = :email OR id IN :id",
		Params: map[string]interface{}{
			"email": "x@example.com",
			"id":    []interface{}{1, 2},
		},
	}
	assert.Equal(t,
		"SELECT id FROM customer WHERE email = 'x@example.com' OR id IN (1, 2)",
		qc.QueryToString(stmt))
}

func TestDryRunQuery(t *testing.T) {
	qc := NewQueryConfig(customerNode(t), nil, genericDialect)
	assert.Equal(t, "SELECT id,email,name FROM customer WHERE email = ?", qc.DryRunQuery())
}

func TestDryRunQueryUpstreamEdge(t *testing.T) {
	str, _ := graph.DataTypeByName("string")
	integer, _ := graph.DataTypeByName("integer")
	col := graph.MustNewCollection("orders",
		&graph.Field{Name: "id", DataType: integer, PrimaryKey: true},
		&graph.Field{Name: "customer_id", DataType: integer},
		&graph.Field{Name: "shipping_address", DataType: str},
	)
	addr := graph.CollectionAddress{Dataset: "shop", Collection: "orders"}
	node := &graph.TraversalNode{
		Node: &graph.Node{Address: addr, Collection: col},
		Incoming: []graph.Edge{{
			From: graph.NewFieldAddress(graph.CollectionAddress{Dataset: "shop", Collection: "customer"},
				graph.ParseFieldPath("id")),
			To: graph.NewFieldAddress(addr, graph.ParseFieldPath("customer_id")),
		}},
	}

	// collection-fed fields render the IN form with a placeholder pair,
	// typed integer keys included
	qc := NewQueryConfig(node, nil, genericDialect)
	assert.Equal(t, "SELECT id,customer_id,shipping_address FROM orders WHERE customer_id IN (?, ?)",
		qc.DryRunQuery())
}

func TestCompilePositionalPlaceholders(t *testing.T) {
	stmt := &Statement{
		Text: "SELECT id FROM customer WHERE email = :email OR id IN :id",
		Params: map[string]interface{}{
			"email": "x@example.com",
			"id":    []interface{}{1, 2},
		},
	}
	text, args, err := Compile(stmt, func(n int) string { return "?" })
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM customer WHERE email = ? OR id IN (?, ?)", text)
	assert.Equal(t, []interface{}{"x@example.com", 1, 2}, args)
}

func TestCompileKeepsExistingParens(t *testing.T) {
	stmt := &Statement{
		Text:   `SELECT "id" FROM "customer" WHERE "email" IN (:email)`,
		Params: map[string]interface{}{"email": []interface{}{"a", "b"}},
	}
	text, args, err := Compile(stmt, func(n int) string { return "?" })
	require.NoError(t, err)
	assert.Equal(t, `SELECT "id" FROM "customer" WHERE "email" IN (?, ?)`, text)
	assert.Len(t, args, 2)
}

func TestCompileUnboundParam(t *testing.T) {
	stmt := &Statement{Text: "SELECT id FROM customer WHERE email = :email"}
	_, _, err := Compile(stmt, nil)
	require.Error(t, err)
}
