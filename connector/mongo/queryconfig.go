package mongo

import (
	"context"
	"encoding/json"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/iamkelllly/fidesops/connector"
	"github.com/iamkelllly/fidesops/flog"
	"github.com/iamkelllly/fidesops/graph"
	"github.com/iamkelllly/fidesops/policy"
	"github.com/iamkelllly/fidesops/request"
)

// MongoQuery is a find filter plus field projection for one collection.
type MongoQuery struct {
	Filter     bson.M
	Projection bson.M
}

// MongoUpdate selects one document by primary key and $sets its masked
// values.
type MongoUpdate struct {
	Filter bson.M
	Update bson.M
}

// MongoQueryConfig renders document queries for one traversal node.
type MongoQueryConfig struct {
	*connector.QueryConfig
}

func NewQueryConfig(node *graph.TraversalNode, env *connector.Env) *MongoQueryConfig {
	return &MongoQueryConfig{QueryConfig: connector.NewQueryConfig(node, env)}
}

// fieldClause narrows one dotted field path to its filter values. A single
// value matches by equality, several with $in.
func fieldClause(key string, values []interface{}) interface{} {
	if len(values) == 1 {
		return values[0]
	}
	return bson.M{"$in": values}
}

// GenerateQuery builds the node's find filter and projection, or nil when
// no usable filter values survive. Multiple filterable fields are joined
// with $or.
func (qc *MongoQueryConfig) GenerateQuery(inputs map[string][]interface{}) *MongoQuery {
	filtered := qc.TypedFilteredValues(inputs)
	if len(filtered) == 0 {
		flog.Warningf("there is not enough data to generate a valid query for %s", qc.Node.Address())
		return nil
	}

	filter := bson.M{}
	if len(filtered) == 1 {
		for key, values := range filtered {
			filter[key] = fieldClause(key, values)
		}
	} else {
		var or []bson.M
		for _, key := range sortedKeys(filtered) {
			or = append(or, bson.M{key: fieldClause(key, filtered[key])})
		}
		filter["$or"] = or
	}

	projection := bson.M{}
	for _, p := range qc.Node.Node.Collection.FieldPaths() {
		projection[p.String()] = 1
	}
	return &MongoQuery{Filter: filter, Projection: projection}
}

// GenerateUpdate builds the masked write-back for one document, or nil
// when the policy yields no update values or the document carries no
// usable primary keys.
func (qc *MongoQueryConfig) GenerateUpdate(ctx context.Context, row graph.Row, p *policy.Policy, req *request.PrivacyRequest) (*MongoUpdate, error) {
	updateValues, err := qc.UpdateValueMap(ctx, row, p, req)
	if err != nil {
		return nil, err
	}
	pks := qc.NonEmptyPrimaryKeys(row)

	if len(updateValues) == 0 || len(pks) == 0 {
		flog.Warningf("there is not enough data to generate a valid update statement for %s", qc.Node.Address())
		return nil, nil
	}

	filter := bson.M{}
	for k, v := range pks {
		filter[k] = v
	}
	set := bson.M{}
	for k, v := range updateValues {
		set[k] = v
	}
	return &MongoUpdate{Filter: filter, Update: bson.M{"$set": set}}, nil
}

// DryRunQuery renders the find call with placeholder inputs the way the
// mongo shell would show it.
func (qc *MongoQueryConfig) DryRunQuery() string {
	q := qc.GenerateQuery(qc.DisplayQueryData())
	if q == nil {
		return ""
	}
	return fmt.Sprintf("db.%s.find(%s, %s)",
		qc.Node.Node.Collection.Name, renderDoc(q.Filter), renderDoc(q.Projection))
}

func renderDoc(doc bson.M) string {
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Sprintf("%v", doc)
	}
	return string(b)
}
