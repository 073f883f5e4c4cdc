// Package connector defines the uniform execute/mask contract over backend
// datastores and the registry concrete backends plug into at startup.
package connector

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/iamkelllly/fidesops/graph"
	"github.com/iamkelllly/fidesops/masking"
	"github.com/iamkelllly/fidesops/policy"
	"github.com/iamkelllly/fidesops/request"
)

var ErrConnectorNotRegistered = fmt.Errorf("this connector type is not registered")

// Type names a supported backend kind.
type Type string

const (
	TypePostgres  Type = "postgres"
	TypeMySQL     Type = "mysql"
	TypeSQLite    Type = "sqlite"
	TypeMongoDB   Type = "mongodb"
	TypeHTTPS     Type = "https"
	TypeRedshift  Type = "redshift"
	TypeSnowflake Type = "snowflake"
	TypeMSSQL     Type = "mssql"
)

// AccessLevel is the permission granted on a connection. With read access
// the engine promises never to modify the connected datastore.
type AccessLevel string

const (
	AccessRead  AccessLevel = "read"
	AccessWrite AccessLevel = "write"
)

// TestStatus is the outcome of a connection test.
type TestStatus string

const (
	TestSucceeded TestStatus = "succeeded"
	TestFailed    TestStatus = "failed"
	TestSkipped   TestStatus = "skipped"
)

// Secrets carries the credentials a connector dials with.
type Secrets struct {
	Host     string
	Port     int
	Username string
	Password string
	DBName   string
	// URL overrides the component fields when set.
	URL string
}

// Config describes one configured connection to a backend.
type Config struct {
	Name    string
	Key     string
	Type    Type
	Access  AccessLevel
	Secrets Secrets

	LastTestTimestamp *time.Time
	LastTestSucceeded *bool
}

// UpdateTestStatus records the outcome of a connection test. Skipped tests
// leave the bookkeeping untouched.
func (c *Config) UpdateTestStatus(status TestStatus) {
	if status == TestSkipped {
		return
	}
	now := time.Now().UTC()
	ok := status == TestSucceeded
	c.LastTestTimestamp = &now
	c.LastTestSucceeded = &ok
}

// WriteAccessError is returned when an erasure reaches a read-only
// connection. Its message is surfaced verbatim in the ExecutionLog.
type WriteAccessError struct {
	ConnectionKey string
}

func (e *WriteAccessError) Error() string {
	return fmt.Sprintf("No values were erased since this connection %s has not been given write access",
		e.ConnectionKey)
}

// Connector is the capability set every backend implements.
type Connector interface {
	// TestConnection verifies credentials without touching user data.
	TestConnection(ctx context.Context) (TestStatus, error)
	// Retrieve runs the node's retrieval query with the given input values
	// and returns matching rows. A node with no usable inputs yields no
	// rows and no error.
	Retrieve(ctx context.Context, node *graph.TraversalNode, inputs map[string][]interface{}, p *policy.Policy) ([]graph.Row, error)
	// Mask writes masked values back for each row, returning the number of
	// affected records. Read-only connections return a *WriteAccessError
	// without touching the backend.
	Mask(ctx context.Context, node *graph.TraversalNode, rows []graph.Row, p *policy.Policy, req *request.PrivacyRequest) (int, error)
	Close() error
}

// Env is the context record threaded through connector constructors in
// place of process-wide state.
type Env struct {
	// Secrets resolves per-request masking secrets.
	Secrets masking.SecretSource
}

// NewConnectorFunc builds a connector for one configured connection.
type NewConnectorFunc func(cfg *Config, env *Env) (Connector, error)

// Registration describes a pluggable backend.
type Registration struct {
	NewFunc NewConnectorFunc
}

var registry = make(map[Type]Registration)

// Register adds a backend under its connection type. It is called from
// init() and panics on duplicates.
func Register(t Type, r Registration) {
	if r.NewFunc == nil {
		panic("connector: NewFunc must not be nil")
	}
	if _, found := registry[t]; found {
		panic(fmt.Sprintf("connector: already registered type %q", t))
	}
	registry[t] = r
}

// New builds a connector for the given connection config.
func New(cfg *Config, env *Env) (Connector, error) {
	r, registered := registry[cfg.Type]
	if !registered {
		return nil, ErrConnectorNotRegistered
	}
	return r.NewFunc(cfg, env)
}

// IsRegistered reports whether a connection type has a backend loaded.
func IsRegistered(t Type) bool {
	_, ok := registry[t]
	return ok
}

// Types lists the loaded backend types.
func Types() []string {
	out := make([]string, 0, len(registry))
	for t := range registry {
		out = append(out, string(t))
	}
	sort.Strings(out)
	return out
}

// CheckWriteAccess guards mask paths on every connector.
func CheckWriteAccess(cfg *Config) error {
	if cfg.Access != AccessWrite {
		return &WriteAccessError{ConnectionKey: cfg.Key}
	}
	return nil
}
