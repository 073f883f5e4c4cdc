// Package mongo implements the connector contract over MongoDB documents.
package mongo

import (
	"context"
	"fmt"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/iamkelllly/fidesops/connector"
	"github.com/iamkelllly/fidesops/flog"
	"github.com/iamkelllly/fidesops/graph"
	"github.com/iamkelllly/fidesops/policy"
	"github.com/iamkelllly/fidesops/request"
)

func init() {
	connector.Register(connector.TypeMongoDB, connector.Registration{
		NewFunc: func(cfg *connector.Config, env *connector.Env) (connector.Connector, error) {
			return NewConnector(cfg, env)
		},
	})
}

// Connector talks to one MongoDB database.
type Connector struct {
	cfg    *connector.Config
	env    *connector.Env
	client *mongo.Client
}

func NewConnector(cfg *connector.Config, env *connector.Env) (*Connector, error) {
	client, err := mongo.NewClient(options.Client().ApplyURI(URI(cfg.Secrets)))
	if err != nil {
		return nil, fmt.Errorf("opening mongodb connection %s: %w", cfg.Key, err)
	}
	return &Connector{cfg: cfg, env: env, client: client}, nil
}

// URI builds the connection string. An explicit URL wins over the
// component fields.
func URI(s connector.Secrets) string {
	if s.URL != "" {
		return s.URL
	}
	return fmt.Sprintf("mongodb://%s:%s@%s:%d/%s",
		s.Username, s.Password, s.Host, s.Port, s.DBName)
}

func (c *Connector) connect(ctx context.Context) error {
	// Connect is a no-op after the first call
	return c.client.Connect(ctx)
}

func (c *Connector) collection(node *graph.TraversalNode) *mongo.Collection {
	return c.client.Database(c.cfg.Secrets.DBName).Collection(node.Node.Collection.Name)
}

// QueryConfig exposes document query generation for dry-run tooling as
// well as execution.
func (c *Connector) QueryConfig(node *graph.TraversalNode) *MongoQueryConfig {
	return NewQueryConfig(node, c.env)
}

func (c *Connector) TestConnection(ctx context.Context) (connector.TestStatus, error) {
	if err := c.connect(ctx); err != nil {
		return connector.TestFailed, err
	}
	if err := c.client.Ping(ctx, readpref.Primary()); err != nil {
		return connector.TestFailed, err
	}
	return connector.TestSucceeded, nil
}

func (c *Connector) Retrieve(ctx context.Context, node *graph.TraversalNode, inputs map[string][]interface{}, p *policy.Policy) ([]graph.Row, error) {
	qc := c.QueryConfig(node)
	q := qc.GenerateQuery(inputs)
	if q == nil {
		return nil, nil
	}
	if flog.V(2) {
		flog.Infof("%s: %s", node.Address(), qc.DryRunQuery())
	}
	if err := c.connect(ctx); err != nil {
		return nil, err
	}
	cursor, err := c.collection(node).Find(ctx, q.Filter, options.Find().SetProjection(q.Projection))
	if err != nil {
		return nil, fmt.Errorf("retrieving %s: %w", node.Address(), err)
	}
	defer cursor.Close(ctx)

	var out []graph.Row
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, flattenDoc(doc))
	}
	return out, cursor.Err()
}

func (c *Connector) Mask(ctx context.Context, node *graph.TraversalNode, rows []graph.Row, p *policy.Policy, req *request.PrivacyRequest) (int, error) {
	if err := connector.CheckWriteAccess(c.cfg); err != nil {
		return 0, err
	}
	if err := c.connect(ctx); err != nil {
		return 0, err
	}
	qc := c.QueryConfig(node)
	count := 0
	for _, row := range rows {
		u, err := qc.GenerateUpdate(ctx, row, p, req)
		if err != nil {
			return count, err
		}
		if u == nil {
			continue
		}
		res, err := c.collection(node).UpdateOne(ctx, u.Filter, u.Update)
		if err != nil {
			return count, fmt.Errorf("masking %s: %w", node.Address(), err)
		}
		count += int(res.ModifiedCount)
	}
	return count, nil
}

func (c *Connector) Close() error {
	return c.client.Disconnect(context.Background())
}

// flattenDoc maps nested documents onto dotted row keys so fields address
// the same way they do in the dataset graph. Scalar and array values pass
// through unchanged.
func flattenDoc(doc bson.M) graph.Row {
	row := make(graph.Row, len(doc))
	var walk func(prefix string, m bson.M)
	walk = func(prefix string, m bson.M) {
		for k, v := range m {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			if sub, ok := v.(bson.M); ok {
				walk(key, sub)
				continue
			}
			row[key] = v
		}
	}
	walk("", doc)
	return row
}

func sortedKeys(m map[string][]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
