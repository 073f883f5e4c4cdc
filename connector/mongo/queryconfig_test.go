package mongo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/iamkelllly/fidesops/graph"
	"github.com/iamkelllly/fidesops/masking"
	"github.com/iamkelllly/fidesops/policy"
	"github.com/iamkelllly/fidesops/request"
)

func detailsNode(t *testing.T) *graph.TraversalNode {
	t.Helper()
	str, _ := graph.DataTypeByName("string")
	oid, _ := graph.DataTypeByName("object_id")

	col := graph.MustNewCollection("customer_details",
		&graph.Field{Name: "_id", DataType: oid, PrimaryKey: true},
		&graph.Field{Name: "customer_email", DataType: str},
		&graph.Field{Name: "workplace_info.employer", DataType: str,
			DataCategories: []string{"user.provided.identifiable.workplace"}},
	)
	addr := graph.CollectionAddress{Dataset: "mongo_test", Collection: "customer_details"}
	return &graph.TraversalNode{
		Node: &graph.Node{Address: addr, Collection: col},
		Incoming: []graph.Edge{{
			From: graph.NewFieldAddress(graph.RootAddress, graph.ParseFieldPath("email")),
			To:   graph.NewFieldAddress(addr, graph.ParseFieldPath("customer_email")),
		}},
	}
}

func TestMongoGenerateQuerySingleField(t *testing.T) {
	qc := NewQueryConfig(detailsNode(t), nil)

	q := qc.GenerateQuery(map[string][]interface{}{
		"customer_email": {"customer-1@example.com"},
	})
	require.NotNil(t, q)
	assert.Equal(t, bson.M{"customer_email": "customer-1@example.com"}, q.Filter)
	assert.Equal(t, bson.M{
		"_id":                     1,
		"customer_email":          1,
		"workplace_info.employer": 1,
	}, q.Projection)
}

func TestMongoGenerateQueryMultiValue(t *testing.T) {
	qc := NewQueryConfig(detailsNode(t), nil)

	q := qc.GenerateQuery(map[string][]interface{}{
		"customer_email": {"a@example.com", "b@example.com"},
	})
	require.NotNil(t, q)
	assert.Equal(t, bson.M{
		"customer_email": bson.M{"$in": []interface{}{"a@example.com", "b@example.com"}},
	}, q.Filter)
}

func TestMongoGenerateQueryMultiFieldOr(t *testing.T) {
	node := detailsNode(t)
	node.Incoming = append(node.Incoming, graph.Edge{
		From: graph.NewFieldAddress(graph.CollectionAddress{"mongo_test", "customer"}, graph.ParseFieldPath("id")),
		To:   graph.NewFieldAddress(node.Address(), graph.ParseFieldPath("_id")),
	})
	qc := NewQueryConfig(node, nil)

	q := qc.GenerateQuery(map[string][]interface{}{
		"customer_email": {"a@example.com"},
		"_id":            {"5d9c2dcd6d1e1f1f1f1f1f1f"},
	})
	require.NotNil(t, q)
	assert.Equal(t, bson.M{"$or": []bson.M{
		{"_id": "5d9c2dcd6d1e1f1f1f1f1f1f"},
		{"customer_email": "a@example.com"},
	}}, q.Filter)
}

func TestMongoGenerateQueryNoInputs(t *testing.T) {
	qc := NewQueryConfig(detailsNode(t), nil)
	assert.Nil(t, qc.GenerateQuery(nil))
}

func TestMongoGenerateUpdate(t *testing.T) {
	qc := NewQueryConfig(detailsNode(t), nil)
	p := &policy.Policy{
		Key: "erasure_policy",
		Rules: []*policy.Rule{{
			Key:              "erasure_rule",
			ActionType:       policy.ActionErasure,
			TargetCategories: []string{"user.provided.identifiable.workplace"},
			MaskingStrategy:  &policy.MaskingConfiguration{Strategy: masking.NullRewriteStrategy},
		}},
	}
	req := &request.PrivacyRequest{ID: "req-1"}

	row := graph.Row{
		"_id":                     "5d9c2dcd6d1e1f1f1f1f1f1f",
		"workplace_info.employer": "Acme",
	}
	u, err := qc.GenerateUpdate(context.TODO(), row, p, req)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, bson.M{"_id": "5d9c2dcd6d1e1f1f1f1f1f1f"}, u.Filter)
	assert.Equal(t, bson.M{"$set": bson.M{"workplace_info.employer": nil}}, u.Update)
}

func TestMongoGenerateUpdateNoPrimaryKey(t *testing.T) {
	qc := NewQueryConfig(detailsNode(t), nil)
	p := &policy.Policy{
		Key: "erasure_policy",
		Rules: []*policy.Rule{{
			Key:              "erasure_rule",
			ActionType:       policy.ActionErasure,
			TargetCategories: []string{"user.provided.identifiable.workplace"},
			MaskingStrategy:  &policy.MaskingConfiguration{Strategy: masking.NullRewriteStrategy},
		}},
	}
	u, err := qc.GenerateUpdate(context.TODO(), graph.Row{"workplace_info.employer": "Acme"}, p, &request.PrivacyRequest{ID: "req-1"})
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestMongoDryRunQuery(t *testing.T) {
	qc := NewQueryConfig(detailsNode(t), nil)
	out := qc.DryRunQuery()
	assert.Contains(t, out, "db.customer_details.find(")
	assert.Contains(t, out, `"customer_email":"?"`)
}

func TestFlattenDoc(t *testing.T) {
	row := flattenDoc(bson.M{
		"_id": "x",
		"workplace_info": bson.M{
			"employer": "Acme",
			"position": "analyst",
		},
	})
	assert.Equal(t, graph.Row{
		"_id":                     "x",
		"workplace_info.employer": "Acme",
		"workplace_info.position": "analyst",
	}, row)
}
