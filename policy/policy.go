// Package policy models what a privacy request is allowed to retrieve and
// erase: ordered rules targeting data categories, each optionally paired
// with a masking strategy, plus the webhooks that bracket execution.
package policy

import (
	"strings"
)

// ActionType is what a rule does with matched data.
type ActionType string

const (
	ActionAccess  ActionType = "access"
	ActionErasure ActionType = "erasure"
)

// MaskingConfiguration selects a registered masking strategy by name.
type MaskingConfiguration struct {
	Strategy      string
	Configuration map[string]interface{}
}

// Rule targets a set of data categories with an action.
type Rule struct {
	Key              string
	ActionType       ActionType
	TargetCategories []string
	MaskingStrategy  *MaskingConfiguration
}

// Policy is a keyed list of rules with pre- and post-execution webhooks.
type Policy struct {
	Key          string
	Rules        []*Rule
	PreWebhooks  []*Webhook
	PostWebhooks []*Webhook
}

// RulesFor filters rules by action type, preserving order.
func (p *Policy) RulesFor(action ActionType) []*Rule {
	var out []*Rule
	for _, r := range p.Rules {
		if r.ActionType == action {
			out = append(out, r)
		}
	}
	return out
}

// ErasureRules returns the rules that demand write-back of masked values.
func (p *Policy) ErasureRules() []*Rule {
	return p.RulesFor(ActionErasure)
}

// MatchesCategory reports whether a field's data category falls under a
// rule target. Matching is a prefix match on dot-separated segments:
// "user.provided.identifiable.contact" covers
// "user.provided.identifiable.contact.email" but not
// "user.provided.identifiable.contacts".
func MatchesCategory(fieldCategory, target string) bool {
	if fieldCategory == target {
		return true
	}
	return strings.HasPrefix(fieldCategory, target+".")
}
