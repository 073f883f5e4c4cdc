// Package config loads engine configuration through viper and the YAML
// declarations for connections and policies that the CLI operates on.
package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/iamkelllly/fidesops/connector"
	"github.com/iamkelllly/fidesops/policy"
)

// viper keys understood by the engine.
const (
	KeyRedisAddress   = "redis.address"
	KeyRedisPassword  = "redis.password"
	KeyRedisDB        = "redis.db"
	KeyAllowPartial   = "execution.allow_partial"
	KeyWebhookTimeout = "execution.webhook_timeout"
	KeyMetricsAddress = "metrics.address"
)

// Config is the resolved engine configuration.
type Config struct {
	RedisAddress  string
	RedisPassword string
	RedisDB       int
	// AllowPartial lets requests complete over the reachable subset of a
	// dataset graph.
	AllowPartial   bool
	WebhookTimeout time.Duration
	MetricsAddress string
}

func init() {
	viper.SetDefault(KeyWebhookTimeout, 30*time.Second)
}

// FromViper materializes the configuration from the loaded viper state.
func FromViper() *Config {
	return &Config{
		RedisAddress:   viper.GetString(KeyRedisAddress),
		RedisPassword:  viper.GetString(KeyRedisPassword),
		RedisDB:        viper.GetInt(KeyRedisDB),
		AllowPartial:   viper.GetBool(KeyAllowPartial),
		WebhookTimeout: viper.GetDuration(KeyWebhookTimeout),
		MetricsAddress: viper.GetString(KeyMetricsAddress),
	}
}

// ConnectionsDocument is the root of a connections YAML file.
type ConnectionsDocument struct {
	Connections []*ConnectionDeclaration `yaml:"connections"`
}

// ConnectionDeclaration is one configured connection as written in YAML.
type ConnectionDeclaration struct {
	Name    string `yaml:"name"`
	Key     string `yaml:"key"`
	Type    string `yaml:"type"`
	Access  string `yaml:"access"`
	Secrets struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		DBName   string `yaml:"dbname"`
		URL      string `yaml:"url"`
	} `yaml:"secrets"`
}

// LoadConnections parses connection declarations and indexes them by key.
func LoadConnections(r io.Reader) (map[string]*connector.Config, error) {
	var doc ConnectionsDocument
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parsing connections yaml: %w", err)
	}
	out := make(map[string]*connector.Config, len(doc.Connections))
	for _, d := range doc.Connections {
		if d.Key == "" {
			return nil, fmt.Errorf("connection %q is missing a key", d.Name)
		}
		if _, dup := out[d.Key]; dup {
			return nil, fmt.Errorf("duplicate connection key %q", d.Key)
		}
		access := connector.AccessLevel(d.Access)
		if access != connector.AccessRead && access != connector.AccessWrite {
			return nil, fmt.Errorf("connection %q: unknown access level %q", d.Key, d.Access)
		}
		out[d.Key] = &connector.Config{
			Name:   d.Name,
			Key:    d.Key,
			Type:   connector.Type(d.Type),
			Access: access,
			Secrets: connector.Secrets{
				Host:     d.Secrets.Host,
				Port:     d.Secrets.Port,
				Username: d.Secrets.Username,
				Password: d.Secrets.Password,
				DBName:   d.Secrets.DBName,
				URL:      d.Secrets.URL,
			},
		}
	}
	return out, nil
}

// LoadConnectionsFile reads and parses a connections YAML file.
func LoadConnectionsFile(path string) (map[string]*connector.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadConnections(f)
}

// PolicyDocument is the root of a policy YAML file.
type PolicyDocument struct {
	Policy *PolicyDeclaration `yaml:"policy"`
}

type PolicyDeclaration struct {
	Key   string `yaml:"key"`
	Rules []struct {
		Key              string   `yaml:"key"`
		ActionType       string   `yaml:"action_type"`
		TargetCategories []string `yaml:"target_categories"`
		MaskingStrategy  *struct {
			Strategy      string                 `yaml:"strategy"`
			Configuration map[string]interface{} `yaml:"configuration"`
		} `yaml:"masking_strategy"`
	} `yaml:"rules"`
	Webhooks []struct {
		Key           string `yaml:"key"`
		Name          string `yaml:"name"`
		ConnectionKey string `yaml:"connection_key"`
		Direction     string `yaml:"direction"`
		Kind          string `yaml:"kind"`
		Order         int    `yaml:"order"`
	} `yaml:"webhooks"`
}

// LoadPolicy parses one policy declaration.
func LoadPolicy(r io.Reader) (*policy.Policy, error) {
	var doc PolicyDocument
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parsing policy yaml: %w", err)
	}
	if doc.Policy == nil || doc.Policy.Key == "" {
		return nil, fmt.Errorf("policy yaml is missing a keyed policy")
	}
	p := &policy.Policy{Key: doc.Policy.Key}
	for _, r := range doc.Policy.Rules {
		rule := &policy.Rule{
			Key:              r.Key,
			ActionType:       policy.ActionType(r.ActionType),
			TargetCategories: r.TargetCategories,
		}
		if rule.ActionType != policy.ActionAccess && rule.ActionType != policy.ActionErasure {
			return nil, fmt.Errorf("rule %q: unknown action type %q", r.Key, r.ActionType)
		}
		if r.MaskingStrategy != nil {
			rule.MaskingStrategy = &policy.MaskingConfiguration{
				Strategy:      r.MaskingStrategy.Strategy,
				Configuration: r.MaskingStrategy.Configuration,
			}
		}
		p.Rules = append(p.Rules, rule)
	}
	for _, w := range doc.Policy.Webhooks {
		kind := policy.WebhookKind(w.Kind)
		if kind != policy.PreExecutionWebhook && kind != policy.PostExecutionWebhook {
			return nil, fmt.Errorf("webhook %q: unknown kind %q", w.Key, w.Kind)
		}
		hook := &policy.Webhook{
			Key:           w.Key,
			Name:          w.Name,
			ConnectionKey: w.ConnectionKey,
			Direction:     policy.WebhookDirection(w.Direction),
			Order:         w.Order,
		}
		if err := p.AddWebhook(kind, hook); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// LoadPolicyFile reads and parses a policy YAML file.
func LoadPolicyFile(path string) (*policy.Policy, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadPolicy(f)
}
