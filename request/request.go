// Package request models privacy requests: the durable state machine a
// runner drives, the identity the request was filed for, and the per-node
// execution logs it leaves behind. Persistence lives behind the Store
// interface; the relational backing store is an external collaborator.
package request

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the durable state of a privacy request.
type Status string

const (
	StatusPending      Status = "pending"
	StatusInProcessing Status = "in_processing"
	StatusPaused       Status = "paused"
	StatusComplete     Status = "complete"
	StatusError        Status = "error"
)

// allowed transitions; terminal states have no exits.
var transitions = map[Status][]Status{
	StatusPending:      {StatusInProcessing},
	StatusInProcessing: {StatusComplete, StatusError, StatusPaused},
	StatusPaused:       {StatusInProcessing},
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Identity is the PII grouping a privacy request is filed for. Only email
// and phone number are recognized kinds.
type Identity struct {
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

// Map returns the populated identity kinds keyed by kind name.
func (i Identity) Map() map[string]string {
	out := make(map[string]string, 2)
	if i.Email != "" {
		out["email"] = i.Email
	}
	if i.PhoneNumber != "" {
		out["phone_number"] = i.PhoneNumber
	}
	return out
}

// Kinds lists the populated identity kinds.
func (i Identity) Kinds() []string {
	kinds := make([]string, 0, 2)
	if i.Email != "" {
		kinds = append(kinds, "email")
	}
	if i.PhoneNumber != "" {
		kinds = append(kinds, "phone_number")
	}
	return kinds
}

// Merge overlays non-empty values from other, returning the result. Used
// when a two-way webhook derives additional identities.
func (i Identity) Merge(other Identity) Identity {
	if other.Email != "" {
		i.Email = other.Email
	}
	if other.PhoneNumber != "" {
		i.PhoneNumber = other.PhoneNumber
	}
	return i
}

// PrivacyRequest is one data subject request moving through execution.
type PrivacyRequest struct {
	ID                   string
	PolicyKey            string
	RequestedAt          time.Time
	Identity             Identity
	Status               Status
	StartedProcessingAt  *time.Time
	FinishedProcessingAt *time.Time
	// EncryptionKey, when set, is applied by the result-store boundary to
	// everything cached for this request.
	EncryptionKey []byte
}

// New creates a pending privacy request with a fresh id.
func New(policyKey string, identity Identity) *PrivacyRequest {
	return &PrivacyRequest{
		ID:          uuid.NewString(),
		PolicyKey:   policyKey,
		RequestedAt: time.Now().UTC(),
		Identity:    identity,
		Status:      StatusPending,
	}
}

// SetStatus transitions the request, rejecting illegal moves.
func (r *PrivacyRequest) SetStatus(s Status) error {
	if !CanTransition(r.Status, s) {
		return fmt.Errorf("privacy request %s: illegal status transition %s -> %s", r.ID, r.Status, s)
	}
	r.Status = s
	return nil
}

// StartProcessing marks the processing start time exactly once, so retries
// keep the original timestamp.
func (r *PrivacyRequest) StartProcessing() {
	if r.StartedProcessingAt == nil {
		now := time.Now().UTC()
		r.StartedProcessingAt = &now
	}
}

// FinishProcessing stamps the completion time.
func (r *PrivacyRequest) FinishProcessing() {
	now := time.Now().UTC()
	r.FinishedProcessingAt = &now
}
