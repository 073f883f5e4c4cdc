package policy

import (
	"fmt"
	"sort"
)

// WebhookDirection controls whether the runner consumes a webhook's reply.
type WebhookDirection string

const (
	// DirectionOneWay fires the webhook and ignores the response payload.
	DirectionOneWay WebhookDirection = "one_way"
	// DirectionTwoWay awaits a structured reply that may halt the request
	// or contribute derived identities.
	DirectionTwoWay WebhookDirection = "two_way"
)

// WebhookKind distinguishes the two ordered webhook lists on a policy.
type WebhookKind string

const (
	PreExecutionWebhook  WebhookKind = "pre_execution"
	PostExecutionWebhook WebhookKind = "post_execution"
)

// Webhook is a single external callout bound to a connection.
type Webhook struct {
	Key           string
	Name          string
	ConnectionKey string
	Direction     WebhookDirection
	// Order is dense and zero-based within its list; the policy reassigns
	// it on every create or update.
	Order int
}

// Webhooks returns the ordered list of the given kind.
func (p *Policy) Webhooks(kind WebhookKind) []*Webhook {
	if kind == PreExecutionWebhook {
		return p.PreWebhooks
	}
	return p.PostWebhooks
}

// AddWebhook appends a webhook to the list of the given kind, rejecting
// duplicate keys and renumbering the list densely.
func (p *Policy) AddWebhook(kind WebhookKind, hook *Webhook) error {
	for _, h := range p.Webhooks(kind) {
		if h.Key == hook.Key {
			return fmt.Errorf("webhook key %q already exists on policy %q", hook.Key, p.Key)
		}
	}
	if kind == PreExecutionWebhook {
		p.PreWebhooks = append(p.PreWebhooks, hook)
		normalizeOrder(p.PreWebhooks)
	} else {
		p.PostWebhooks = append(p.PostWebhooks, hook)
		normalizeOrder(p.PostWebhooks)
	}
	return nil
}

// ReorderWebhook moves the webhook with the given key to a new position and
// renumbers the rest of the list densely around it.
func (p *Policy) ReorderWebhook(kind WebhookKind, key string, newOrder int) error {
	hooks := p.Webhooks(kind)
	idx := -1
	for i, h := range hooks {
		if h.Key == key {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("no webhook %q on policy %q", key, p.Key)
	}
	if newOrder < 0 || newOrder >= len(hooks) {
		return fmt.Errorf("invalid order %d for a list of %d webhooks", newOrder, len(hooks))
	}
	moved := hooks[idx]
	rest := append(append([]*Webhook{}, hooks[:idx]...), hooks[idx+1:]...)
	reordered := append(append(append([]*Webhook{}, rest[:newOrder]...), moved), rest[newOrder:]...)
	for i, h := range reordered {
		h.Order = i
	}
	if kind == PreExecutionWebhook {
		p.PreWebhooks = reordered
	} else {
		p.PostWebhooks = reordered
	}
	return nil
}

// normalizeOrder sorts by the stored order and reassigns dense zero-based
// values, so gaps left by deletions disappear.
func normalizeOrder(hooks []*Webhook) {
	sort.SliceStable(hooks, func(i, j int) bool { return hooks[i].Order < hooks[j].Order })
	for i, h := range hooks {
		h.Order = i
	}
}
