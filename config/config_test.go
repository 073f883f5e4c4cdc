package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamkelllly/fidesops/connector"
	"github.com/iamkelllly/fidesops/policy"
)

const connectionsYAML = `
connections:
  - name: App Postgres
    key: postgres_db
    type: postgres
    access: write
    secrets:
      host: localhost
      port: 5432
      username: fidesops
      password: secret
      dbname: app
  - name: Webhook endpoint
    key: webhook_conn
    type: https
    access: read
    secrets:
      url: https://example.com/hook
      password: token-123
`

func TestLoadConnections(t *testing.T) {
	conns, err := LoadConnections(strings.NewReader(connectionsYAML))
	require.NoError(t, err)
	require.Len(t, conns, 2)

	pg := conns["postgres_db"]
	require.NotNil(t, pg)
	assert.Equal(t, connector.TypePostgres, pg.Type)
	assert.Equal(t, connector.AccessWrite, pg.Access)
	assert.Equal(t, "localhost", pg.Secrets.Host)
	assert.Equal(t, 5432, pg.Secrets.Port)
	assert.Equal(t, "app", pg.Secrets.DBName)

	hook := conns["webhook_conn"]
	require.NotNil(t, hook)
	assert.Equal(t, connector.AccessRead, hook.Access)
	assert.Equal(t, "https://example.com/hook", hook.Secrets.URL)
}

func TestLoadConnectionsRejectsDuplicateKey(t *testing.T) {
	_, err := LoadConnections(strings.NewReader(`
connections:
  - key: db
    access: read
  - key: db
    access: read
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate connection key "db"`)
}

func TestLoadConnectionsRejectsBadAccess(t *testing.T) {
	_, err := LoadConnections(strings.NewReader(`
connections:
  - key: db
    access: admin
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown access level "admin"`)
}

func TestLoadConnectionsRejectsMissingKey(t *testing.T) {
	_, err := LoadConnections(strings.NewReader(`
connections:
  - name: unnamed
    access: read
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing a key")
}

func TestLoadConnectionsRejectsUnknownFields(t *testing.T) {
	_, err := LoadConnections(strings.NewReader(`
connections:
  - key: db
    access: read
    no_such_field: true
`))
	require.Error(t, err)
}

const policyYAML = `
policy:
  key: dsar_policy
  rules:
    - key: access_rule
      action_type: access
      target_categories: [user.provided.identifiable]
    - key: erasure_rule
      action_type: erasure
      target_categories: [user.provided.identifiable.contact]
      masking_strategy:
        strategy: hash
        configuration:
          algorithm: SHA-512
  webhooks:
    - key: notify_start
      connection_key: webhook_conn
      direction: one_way
      kind: pre_execution
    - key: confirm_identity
      connection_key: webhook_conn
      direction: two_way
      kind: pre_execution
    - key: notify_done
      connection_key: webhook_conn
      direction: one_way
      kind: post_execution
`

func TestLoadPolicy(t *testing.T) {
	p, err := LoadPolicy(strings.NewReader(policyYAML))
	require.NoError(t, err)
	assert.Equal(t, "dsar_policy", p.Key)
	require.Len(t, p.Rules, 2)

	erasure := p.ErasureRules()
	require.Len(t, erasure, 1)
	require.NotNil(t, erasure[0].MaskingStrategy)
	assert.Equal(t, "hash", erasure[0].MaskingStrategy.Strategy)
	assert.Equal(t, "SHA-512", erasure[0].MaskingStrategy.Configuration["algorithm"])

	pre := p.Webhooks(policy.PreExecutionWebhook)
	require.Len(t, pre, 2)
	assert.Equal(t, "notify_start", pre[0].Key)
	assert.Equal(t, policy.DirectionTwoWay, pre[1].Direction)
	assert.Len(t, p.Webhooks(policy.PostExecutionWebhook), 1)
}

func TestLoadPolicyRejectsUnknownAction(t *testing.T) {
	_, err := LoadPolicy(strings.NewReader(`
policy:
  key: p
  rules:
    - key: r
      action_type: purge
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown action type "purge"`)
}

func TestLoadPolicyRejectsUnknownWebhookKind(t *testing.T) {
	_, err := LoadPolicy(strings.NewReader(`
policy:
  key: p
  webhooks:
    - key: w
      kind: mid_execution
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown kind "mid_execution"`)
}

func TestLoadPolicyRequiresKey(t *testing.T) {
	_, err := LoadPolicy(strings.NewReader(`
policy:
  rules: []
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing a keyed policy")
}
