package command

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/iamkelllly/fidesops/cache"
	"github.com/iamkelllly/fidesops/config"
	"github.com/iamkelllly/fidesops/flog"
	"github.com/iamkelllly/fidesops/graph"
	"github.com/iamkelllly/fidesops/request"
	"github.com/iamkelllly/fidesops/runner"
)

func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a privacy request against the configured datasets",
		RunE: func(cmd *cobra.Command, args []string) error {
			datasets, connections, err := loadGraphInputs(cmd)
			if err != nil {
				return err
			}
			policyPath, _ := cmd.Flags().GetString(flagPolicy)
			p, err := config.LoadPolicyFile(policyPath)
			if err != nil {
				return err
			}
			email, _ := cmd.Flags().GetString(flagEmail)
			phone, _ := cmd.Flags().GetString(flagPhoneNumber)
			if email == "" && phone == "" {
				return fmt.Errorf("at least one of --%s or --%s is required", flagEmail, flagPhoneNumber)
			}

			cfg := config.FromViper()
			c, closeCache, err := openCache(cfg)
			if err != nil {
				return err
			}
			defer closeCache()

			store := request.NewMemoryStore()
			r := &runner.Runner{
				Store:          store,
				Cache:          c,
				Policy:         p,
				Datasets:       datasets,
				Connections:    connections,
				Uploader:       stdoutUploader{},
				AllowPartial:   cfg.AllowPartial,
				WebhookTimeout: cfg.WebhookTimeout,
			}

			req := request.New(p.Key, request.Identity{Email: email, PhoneNumber: phone})
			ctx := cmd.Context()
			if err := r.Submit(ctx, req); err != nil {
				return err
			}
			return printLogs(ctx, store, req.ID)
		},
	}
	registerGraphFlags(cmd)
	cmd.Flags().String(flagPolicy, "", "policy declaration to execute (yaml)")
	cmd.Flags().String(flagEmail, "", "email identity of the data subject")
	cmd.Flags().String(flagPhoneNumber, "", "phone number identity of the data subject")
	cmd.MarkFlagRequired(flagPolicy)
	return cmd
}

// openCache connects to redis when an address is configured and falls back
// to process memory otherwise.
func openCache(cfg *config.Config) (cache.Cache, func(), error) {
	if cfg.RedisAddress == "" {
		return cache.NewMemoryCache(), func() {}, nil
	}
	rc := cache.NewRedisCache(cfg.RedisAddress, cfg.RedisPassword, cfg.RedisDB)
	if err := rc.Ping(context.Background()); err != nil {
		return nil, nil, fmt.Errorf("connecting to redis at %s: %w", cfg.RedisAddress, err)
	}
	return rc, func() {
		if err := rc.Close(); err != nil {
			flog.Warningf("closing redis: %v", err)
		}
	}, nil
}

// stdoutUploader writes the assembled access package to stdout as JSON.
type stdoutUploader struct{}

func (stdoutUploader) Upload(ctx context.Context, req *request.PrivacyRequest, results map[string][]graph.Row) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

func printLogs(ctx context.Context, store request.Store, requestID string) error {
	logs, err := store.Logs(ctx, requestID)
	if err != nil {
		return err
	}
	for _, l := range logs {
		fmt.Printf("%s %s:%s %s %s %s\n",
			l.Timestamp.Format("15:04:05.000"), l.Dataset, l.Collection, l.Action, l.Status, l.Message)
	}
	return nil
}
