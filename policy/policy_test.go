package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchesCategory(t *testing.T) {
	cases := []struct {
		field, target string
		want          bool
	}{
		{"user.provided.identifiable.contact.email", "user.provided.identifiable.contact", true},
		{"user.provided.identifiable.contact", "user.provided.identifiable.contact", true},
		{"user.provided.identifiable.contacts", "user.provided.identifiable.contact", false},
		{"user.provided.identifiable.contact", "user.provided.identifiable.contact.email", false},
		{"user.derived", "user.provided", false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, MatchesCategory(c.field, c.target), "%s vs %s", c.field, c.target)
	}
}

func TestRulesFor(t *testing.T) {
	p := &Policy{
		Key: "p",
		Rules: []*Rule{
			{Key: "a", ActionType: ActionAccess},
			{Key: "e1", ActionType: ActionErasure},
			{Key: "e2", ActionType: ActionErasure},
		},
	}
	assert.Len(t, p.RulesFor(ActionAccess), 1)

	erasure := p.ErasureRules()
	require.Len(t, erasure, 2)
	assert.Equal(t, "e1", erasure[0].Key)
	assert.Equal(t, "e2", erasure[1].Key)
}

func TestAddWebhookOrdering(t *testing.T) {
	p := &Policy{Key: "p"}
	require.NoError(t, p.AddWebhook(PreExecutionWebhook, &Webhook{Key: "w1"}))
	require.NoError(t, p.AddWebhook(PreExecutionWebhook, &Webhook{Key: "w2"}))
	require.NoError(t, p.AddWebhook(PreExecutionWebhook, &Webhook{Key: "w3"}))

	hooks := p.Webhooks(PreExecutionWebhook)
	require.Len(t, hooks, 3)
	for i, h := range hooks {
		assert.Equal(t, i, h.Order)
	}

	err := p.AddWebhook(PreExecutionWebhook, &Webhook{Key: "w2"})
	assert.Error(t, err)
}

func TestReorderWebhook(t *testing.T) {
	p := &Policy{Key: "p"}
	for _, key := range []string{"w1", "w2", "w3", "w4"} {
		require.NoError(t, p.AddWebhook(PreExecutionWebhook, &Webhook{Key: key}))
	}

	require.NoError(t, p.ReorderWebhook(PreExecutionWebhook, "w4", 0))

	var keys []string
	for _, h := range p.Webhooks(PreExecutionWebhook) {
		keys = append(keys, h.Key)
		assert.Equal(t, len(keys)-1, h.Order)
	}
	assert.Equal(t, []string{"w4", "w1", "w2", "w3"}, keys)

	assert.Error(t, p.ReorderWebhook(PreExecutionWebhook, "missing", 0))
	assert.Error(t, p.ReorderWebhook(PreExecutionWebhook, "w1", 9))
}

func TestWebhookListsAreIndependent(t *testing.T) {
	p := &Policy{Key: "p"}
	require.NoError(t, p.AddWebhook(PreExecutionWebhook, &Webhook{Key: "pre"}))
	require.NoError(t, p.AddWebhook(PostExecutionWebhook, &Webhook{Key: "post"}))

	assert.Len(t, p.Webhooks(PreExecutionWebhook), 1)
	assert.Len(t, p.Webhooks(PostExecutionWebhook), 1)
	assert.Equal(t, "pre", p.Webhooks(PreExecutionWebhook)[0].Key)
	assert.Equal(t, "post", p.Webhooks(PostExecutionWebhook)[0].Key)
}
