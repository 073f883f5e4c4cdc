// Package runner drives a privacy request end to end: webhooks, traversal
// planning, per-collection retrieval and masking, result assembly and the
// final status transition.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/iamkelllly/fidesops/cache"
	"github.com/iamkelllly/fidesops/connector"
	"github.com/iamkelllly/fidesops/connector/https"
	"github.com/iamkelllly/fidesops/flog"
	"github.com/iamkelllly/fidesops/graph"
	"github.com/iamkelllly/fidesops/masking"
	"github.com/iamkelllly/fidesops/policy"
	"github.com/iamkelllly/fidesops/request"
)

const defaultWebhookTimeout = 30 * time.Second

// Uploader delivers the assembled access package once execution completes.
type Uploader interface {
	Upload(ctx context.Context, req *request.PrivacyRequest, results map[string][]graph.Row) error
}

// Runner executes privacy requests against a fixed set of datasets and
// configured connections. It is not safe for concurrent use on the same
// request.
type Runner struct {
	Store    request.Store
	Cache    cache.Cache
	Policy   *policy.Policy
	Datasets []*graph.Dataset
	// Connections maps connection keys, as referenced by datasets and
	// webhooks, to their configuration.
	Connections map[string]*connector.Config
	Uploader    Uploader
	// AllowPartial proceeds over the reachable subset when some collections
	// cannot be visited, instead of failing the request.
	AllowPartial   bool
	WebhookTimeout time.Duration

	connectors map[string]connector.Connector
}

// Submit runs a pending privacy request to a terminal state, or pauses it
// when a pre-execution webhook halts processing.
func (r *Runner) Submit(ctx context.Context, req *request.PrivacyRequest) error {
	if err := r.Store.SaveRequest(ctx, req); err != nil {
		return err
	}
	if err := cache.CacheIdentity(ctx, r.Cache, req.ID, req.Identity); err != nil {
		return err
	}
	if err := req.SetStatus(request.StatusInProcessing); err != nil {
		return err
	}
	req.StartProcessing()
	if err := r.Store.SaveRequest(ctx, req); err != nil {
		return err
	}

	haltKey, err := r.runWebhooks(ctx, req, policy.PreExecutionWebhook, "")
	if err != nil {
		return r.fail(ctx, req, err)
	}
	if haltKey != "" {
		return r.pause(ctx, req, haltKey)
	}
	return r.execute(ctx, req)
}

// Resume continues a paused request from the webhook that halted it.
func (r *Runner) Resume(ctx context.Context, requestID string) error {
	req, err := r.Store.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if req.Status != request.StatusPaused {
		return fmt.Errorf("privacy request %s is %s, not paused", req.ID, req.Status)
	}
	haltKey, err := r.Cache.Get(ctx, pausedWebhookKey(req.ID))
	if err != nil && !errors.Is(err, cache.ErrNotFound) {
		return err
	}
	if err := req.SetStatus(request.StatusInProcessing); err != nil {
		return err
	}
	if err := r.Store.SaveRequest(ctx, req); err != nil {
		return err
	}

	next, err := r.runWebhooks(ctx, req, policy.PreExecutionWebhook, haltKey)
	if err != nil {
		return r.fail(ctx, req, err)
	}
	if next != "" {
		return r.pause(ctx, req, next)
	}
	if err := r.Cache.Delete(ctx, pausedWebhookKey(req.ID)); err != nil {
		flog.Warningf("clearing paused marker for %s: %v", req.ID, err)
	}
	return r.execute(ctx, req)
}

func pausedWebhookKey(requestID string) string {
	return fmt.Sprintf("id-%s-paused-webhook", requestID)
}

// runWebhooks fires the policy's webhooks of one kind in order, skipping
// past afterKey when resuming. It returns the key of the webhook that
// halted the request, or "".
func (r *Runner) runWebhooks(ctx context.Context, req *request.PrivacyRequest, kind policy.WebhookKind, afterKey string) (string, error) {
	skipping := afterKey != ""
	for _, hook := range r.Policy.Webhooks(kind) {
		if skipping {
			if hook.Key == afterKey {
				skipping = false
			}
			continue
		}
		cfg, ok := r.Connections[hook.ConnectionKey]
		if !ok {
			return "", fmt.Errorf("webhook %s references unknown connection %q", hook.Key, hook.ConnectionKey)
		}
		client := https.NewClient(cfg)

		timeout := r.WebhookTimeout
		if timeout <= 0 {
			timeout = defaultWebhookTimeout
		}
		hctx, cancel := context.WithTimeout(ctx, timeout)
		reply, err := client.Execute(hctx, &https.RequestBody{
			PrivacyRequestID: req.ID,
			Direction:        string(hook.Direction),
			CallbackType:     string(kind),
			Identity:         req.Identity.Map(),
		}, hook.Direction == policy.DirectionTwoWay)
		cancel()
		if err != nil {
			webhooksExecuted.WithLabelValues(string(kind), "error").Inc()
			return "", err
		}
		webhooksExecuted.WithLabelValues(string(kind), "complete").Inc()
		if reply == nil {
			continue
		}
		if reply.DerivedIdentity != nil {
			req.Identity = req.Identity.Merge(*reply.DerivedIdentity)
			if err := cache.CacheIdentity(ctx, r.Cache, req.ID, req.Identity); err != nil {
				return "", err
			}
		}
		if reply.Halt {
			if kind != policy.PreExecutionWebhook {
				flog.Warningf("webhook %s requested a halt after execution; ignored", hook.Key)
				continue
			}
			return hook.Key, nil
		}
	}
	return "", nil
}

// execute plans and runs the traversal, then finishes the request.
func (r *Runner) execute(ctx context.Context, req *request.PrivacyRequest) error {
	started := time.Now()
	defer r.closeConnectors()

	g, err := graph.New(r.Datasets, req.Identity.Kinds())
	if err != nil {
		return r.fail(ctx, req, err)
	}
	plan, err := graph.NewTraversal(g)
	if err != nil {
		var incomplete *graph.IncompleteTraversalError
		if !errors.As(err, &incomplete) || !r.AllowPartial {
			return r.fail(ctx, req, err)
		}
		flog.Warningf("privacy request %s: %v; continuing over the reachable subset", req.ID, err)
	}

	erasure := len(r.Policy.ErasureRules()) > 0
	if erasure {
		if err := r.generateMaskingSecrets(ctx, req); err != nil {
			return r.fail(ctx, req, err)
		}
	}

	failed, err := r.accessPhase(ctx, req, plan)
	if err != nil {
		return r.fail(ctx, req, err)
	}
	if erasure {
		if err := r.erasurePhase(ctx, req, plan, failed); err != nil {
			return r.fail(ctx, req, err)
		}
	}
	if len(failed) > 0 && !r.AllowPartial {
		names := make([]string, 0, len(failed))
		for addr := range failed {
			names = append(names, addr.String())
		}
		sort.Strings(names)
		return r.fail(ctx, req, fmt.Errorf("execution failed for collections: %s", strings.Join(names, ", ")))
	}

	// post-execution halts are ignored inside runWebhooks
	if _, err := r.runWebhooks(ctx, req, policy.PostExecutionWebhook, ""); err != nil {
		return r.fail(ctx, req, err)
	}

	if r.Uploader != nil {
		results, err := cache.AllAccessResults(ctx, r.Cache, req.ID, req.EncryptionKey)
		if err != nil {
			return r.fail(ctx, req, err)
		}
		if err := r.Uploader.Upload(ctx, req, results); err != nil {
			return r.fail(ctx, req, err)
		}
	}

	if err := req.SetStatus(request.StatusComplete); err != nil {
		return r.fail(ctx, req, err)
	}
	req.FinishProcessing()
	if err := r.Store.SaveRequest(ctx, req); err != nil {
		return err
	}
	requestsFinished.WithLabelValues(string(request.StatusComplete)).Inc()
	requestDuration.Observe(time.Since(started).Seconds())
	flog.Infof("privacy request %s complete", req.ID)
	return nil
}

// accessPhase retrieves every reachable collection in plan order, caching
// each node's rows. Collections whose retrieval fails join the failed set,
// as do downstream collections left with no surviving input source.
func (r *Runner) accessPhase(ctx context.Context, req *request.PrivacyRequest, plan *graph.Traversal) (map[graph.CollectionAddress]bool, error) {
	failed := make(map[graph.CollectionAddress]bool)
	for _, node := range plan.Nodes {
		addr := node.Address()
		if up := failedUpstream(node, failed); up != nil {
			failed[addr] = true
			r.log(ctx, req, addr, "access", request.LogError,
				fmt.Sprintf("skipped: upstream collection %s failed", up))
			continue
		}
		r.log(ctx, req, addr, "access", request.LogInProcessing, "")

		inputs, err := r.assembleInputs(ctx, req, node)
		if err != nil {
			return nil, err
		}
		conn, err := r.connectorFor(node)
		if err != nil {
			failed[addr] = true
			r.log(ctx, req, addr, "access", request.LogError, err.Error())
			continue
		}
		rows, err := conn.Retrieve(ctx, node, inputs, r.Policy)
		if err != nil {
			failed[addr] = true
			r.log(ctx, req, addr, "access", request.LogError, err.Error())
			nodesExecuted.WithLabelValues("access", "error").Inc()
			continue
		}
		if err := cache.StoreAccessResult(ctx, r.Cache, req.ID, addr, rows, req.EncryptionKey); err != nil {
			return nil, err
		}
		r.log(ctx, req, addr, "access", request.LogComplete, fmt.Sprintf("retrieved %d rows", len(rows)))
		nodesExecuted.WithLabelValues("access", "complete").Inc()
	}
	return failed, nil
}

// erasurePhase masks each node's retrieved rows in place. Nodes that failed
// during access are skipped; a read-only connection fails its node with the
// connector's message but does not abort the request.
func (r *Runner) erasurePhase(ctx context.Context, req *request.PrivacyRequest, plan *graph.Traversal, failed map[graph.CollectionAddress]bool) error {
	for _, node := range plan.Nodes {
		addr := node.Address()
		if failed[addr] {
			continue
		}
		r.log(ctx, req, addr, "erasure", request.LogInProcessing, "")

		rows, err := cache.AccessResult(ctx, r.Cache, req.ID, addr, req.EncryptionKey)
		if err != nil {
			return err
		}
		conn, err := r.connectorFor(node)
		if err != nil {
			failed[addr] = true
			r.log(ctx, req, addr, "erasure", request.LogError, err.Error())
			continue
		}
		count, err := conn.Mask(ctx, node, rows, r.Policy, req)
		if err != nil {
			var writeErr *connector.WriteAccessError
			if errors.As(err, &writeErr) {
				failed[addr] = true
				r.log(ctx, req, addr, "erasure", request.LogError, err.Error())
				nodesExecuted.WithLabelValues("erasure", "error").Inc()
				continue
			}
			return err
		}
		r.log(ctx, req, addr, "erasure", request.LogComplete, fmt.Sprintf("masked %d records", count))
		nodesExecuted.WithLabelValues("erasure", "complete").Inc()
		valuesMasked.Add(float64(count))
	}
	return nil
}

// generateMaskingSecrets instantiates each erasure rule's strategy, creates
// the secrets it declares and caches them under the request, so masking can
// run against a stable secret set.
func (r *Runner) generateMaskingSecrets(ctx context.Context, req *request.PrivacyRequest) error {
	var strategies []masking.Strategy
	seen := make(map[string]bool)
	for _, rule := range r.Policy.ErasureRules() {
		cfg := rule.MaskingStrategy
		if cfg == nil || seen[cfg.Strategy] {
			continue
		}
		seen[cfg.Strategy] = true
		s, err := masking.Get(cfg.Strategy, cfg.Configuration, cache.SecretStore{C: r.Cache})
		if err != nil {
			return err
		}
		strategies = append(strategies, s)
	}
	secrets, err := masking.BuildSecrets(strategies)
	if err != nil {
		return err
	}
	return cache.CacheMaskingSecrets(ctx, r.Cache, req.ID, secrets)
}

// assembleInputs gathers a node's filter values: identity attributes for
// root edges, upstream cached rows for the rest. Array-valued upstream
// fields fan out into individual values.
func (r *Runner) assembleInputs(ctx context.Context, req *request.PrivacyRequest, node *graph.TraversalNode) (map[string][]interface{}, error) {
	inputs := make(map[string][]interface{})
	for _, e := range node.Incoming {
		from := e.From.CollectionAddress()
		if from == graph.RootAddress {
			v, err := cache.GetIdentityValue(ctx, r.Cache, req.ID, e.From.Field)
			if err != nil {
				return nil, err
			}
			if v != "" {
				inputs[e.To.Field] = append(inputs[e.To.Field], v)
			}
			continue
		}
		rows, err := cache.AccessResult(ctx, r.Cache, req.ID, from, req.EncryptionKey)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			v, ok := row[e.From.Field]
			if !ok || v == nil {
				continue
			}
			if arr, isArr := v.([]interface{}); isArr {
				inputs[e.To.Field] = append(inputs[e.To.Field], arr...)
			} else {
				inputs[e.To.Field] = append(inputs[e.To.Field], v)
			}
		}
	}
	return inputs, nil
}

// connectorFor resolves and memoizes the connector behind a node's dataset.
func (r *Runner) connectorFor(node *graph.TraversalNode) (connector.Connector, error) {
	key := node.Node.Dataset.ConnectionKey
	if c, ok := r.connectors[key]; ok {
		return c, nil
	}
	cfg, ok := r.Connections[key]
	if !ok {
		return nil, fmt.Errorf("dataset %s references unknown connection %q", node.Node.Dataset.FidesKey, key)
	}
	c, err := connector.New(cfg, &connector.Env{Secrets: cache.SecretStore{C: r.Cache}})
	if err != nil {
		return nil, err
	}
	if r.connectors == nil {
		r.connectors = make(map[string]connector.Connector)
	}
	r.connectors[key] = c
	return c, nil
}

func (r *Runner) closeConnectors() {
	for key, c := range r.connectors {
		if err := c.Close(); err != nil {
			flog.Warningf("closing connection %s: %v", key, err)
		}
	}
	r.connectors = nil
}

func (r *Runner) pause(ctx context.Context, req *request.PrivacyRequest, haltKey string) error {
	if err := req.SetStatus(request.StatusPaused); err != nil {
		return err
	}
	if err := r.Cache.Set(ctx, pausedWebhookKey(req.ID), haltKey, cache.DefaultTTL); err != nil {
		return err
	}
	flog.Infof("privacy request %s paused by webhook %s", req.ID, haltKey)
	return r.Store.SaveRequest(ctx, req)
}

// fail moves the request to its error state, preserving the original cause
// for the caller.
func (r *Runner) fail(ctx context.Context, req *request.PrivacyRequest, cause error) error {
	flog.Errorf("privacy request %s failed: %v", req.ID, cause)
	if err := req.SetStatus(request.StatusError); err != nil {
		flog.Warningf("privacy request %s: %v", req.ID, err)
	}
	req.FinishProcessing()
	if err := r.Store.SaveRequest(ctx, req); err != nil {
		flog.Warningf("saving failed request %s: %v", req.ID, err)
	}
	requestsFinished.WithLabelValues(string(request.StatusError)).Inc()
	return cause
}

func (r *Runner) log(ctx context.Context, req *request.PrivacyRequest, addr graph.CollectionAddress, action string, status request.LogStatus, message string) {
	l := request.NewExecutionLog(req.ID, addr.Dataset, addr.Collection, action, status, message)
	if err := r.Store.AppendLog(ctx, l); err != nil {
		flog.Warningf("appending execution log for %s: %v", req.ID, err)
	}
}

// failedUpstream returns the address of a failed collection feeding this
// node when no input source survives, or nil. A node keeping any healthy
// source, root edges included, still executes on what remains.
func failedUpstream(node *graph.TraversalNode, failed map[graph.CollectionAddress]bool) *graph.CollectionAddress {
	var last *graph.CollectionAddress
	for _, e := range node.Incoming {
		from := e.From.CollectionAddress()
		if from == graph.RootAddress || !failed[from] {
			return nil
		}
		last = &from
	}
	return last
}
