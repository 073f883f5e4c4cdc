// Package https implements the client side of policy webhooks. Unlike the
// datastore backends it never joins a traversal; it only delivers request
// state to an external endpoint and interprets the reply.
package https

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/iamkelllly/fidesops/connector"
	"github.com/iamkelllly/fidesops/graph"
	"github.com/iamkelllly/fidesops/policy"
	"github.com/iamkelllly/fidesops/request"
)

func init() {
	connector.Register(connector.TypeHTTPS, connector.Registration{
		NewFunc: func(cfg *connector.Config, env *connector.Env) (connector.Connector, error) {
			return NewClient(cfg), nil
		},
	})
}

const defaultTimeout = 30 * time.Second

// RequestBody is what the engine POSTs to a webhook endpoint.
type RequestBody struct {
	PrivacyRequestID string            `json:"privacy_request_id"`
	Direction        string            `json:"direction"`
	CallbackType     string            `json:"callback_type"`
	Identity         map[string]string `json:"identity"`
}

// ResponseBody is what a two-way webhook may answer with. DerivedIdentity
// replaces cached identity values when present; Halt pauses the request
// until it is resumed.
type ResponseBody struct {
	DerivedIdentity *request.Identity `json:"derived_identity,omitempty"`
	Halt            bool              `json:"halt"`
}

// Client delivers webhook payloads over HTTPS.
type Client struct {
	cfg  *connector.Config
	http *http.Client
}

func NewClient(cfg *connector.Config) *Client {
	return &Client{cfg: cfg, http: &http.Client{Timeout: defaultTimeout}}
}

// TestConnection is skipped: there is no side-effect-free way to probe an
// arbitrary webhook endpoint.
func (c *Client) TestConnection(ctx context.Context) (connector.TestStatus, error) {
	return connector.TestSkipped, nil
}

func (c *Client) Retrieve(ctx context.Context, node *graph.TraversalNode, inputs map[string][]interface{}, p *policy.Policy) ([]graph.Row, error) {
	return nil, fmt.Errorf("https connection %s cannot participate in a traversal", c.cfg.Key)
}

func (c *Client) Mask(ctx context.Context, node *graph.TraversalNode, rows []graph.Row, p *policy.Policy, req *request.PrivacyRequest) (int, error) {
	return 0, fmt.Errorf("https connection %s cannot participate in a traversal", c.cfg.Key)
}

func (c *Client) Close() error { return nil }

// Execute POSTs one webhook payload and, for two-way webhooks, decodes the
// reply. Replies with fields outside the response schema are rejected so a
// misconfigured endpoint cannot silently alter request state.
func (c *Client) Execute(ctx context.Context, body *RequestBody, expectReply bool) (*ResponseBody, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Secrets.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.Secrets.Password != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.Secrets.Password)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("executing webhook %s: %w", c.cfg.Key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("webhook %s returned status %d", c.cfg.Key, resp.StatusCode)
	}
	if !expectReply {
		return nil, nil
	}

	var reply ResponseBody
	dec := json.NewDecoder(resp.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&reply); err != nil {
		return nil, fmt.Errorf("invalid webhook reply from %s: %w", c.cfg.Key, err)
	}
	return &reply, nil
}
