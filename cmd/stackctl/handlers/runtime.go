// Package handlers implements the business logic for CLI commands.
//
// Each handler loads the configuration, wires the cloud adapters into an
// orchestrator, runs one operation, and prints the outcome. Constructors
// are package variables so tests can substitute the fake provider.
package handlers

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/imamik/stackctl/internal/appdef"
	"github.com/imamik/stackctl/internal/config"
	"github.com/imamik/stackctl/internal/logging"
	"github.com/imamik/stackctl/internal/orchestration"
	"github.com/imamik/stackctl/internal/platform/aws"
	"github.com/imamik/stackctl/internal/platform/cloudflare"
	"github.com/imamik/stackctl/internal/platform/s3"
	"github.com/imamik/stackctl/internal/provisioning"
	"github.com/imamik/stackctl/internal/provisioning/compute"
)

// Globals are the flags shared by every command.
type Globals struct {
	ConfigPath string
	LogLevel   string
}

// Factory function variables - can be replaced in tests.
var (
	loadConfig = config.Resolve

	newProvider = func(ctx context.Context, cfg *config.Config) (provisioning.Provider, error) {
		client, err := aws.NewClient(ctx, cfg.Region, aws.SettingsFromConfig(cfg))
		if err != nil {
			return nil, err
		}
		return client, nil
	}

	// newDNS returns nil when the provider's own DNS should be used.
	newDNS = func(_ context.Context, cfg *config.Config) (provisioning.DNSAPI, error) {
		if cfg.DNS.Provider != config.DNSProviderCloudflare {
			return nil, nil
		}
		token := os.Getenv(cfg.DNS.APITokenEnv)
		if token == "" {
			return nil, fmt.Errorf("cloudflare DNS requires an API token in $%s", cfg.DNS.APITokenEnv)
		}
		return cloudflare.NewDNS(cloudflare.NewClient(token), cfg.DNS.ZoneID, cfg.DNS.Domain), nil
	}

	newDescriptorStore = func(ctx context.Context, cfg *config.Config) (appdef.Fetcher, error) {
		region := cfg.Descriptors.Region
		if region == "" {
			region = cfg.Region
		}
		client, err := s3.NewClient(ctx, s3.Options{
			Region:       region,
			Endpoint:     cfg.Descriptors.Endpoint,
			UsePathStyle: cfg.Descriptors.UsePathStyle,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	}

	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// runtime is everything a handler needs for one invocation.
type runtime struct {
	cfg          *config.Config
	logger       *slog.Logger
	observer     provisioning.Observer
	provider     provisioning.Provider
	orchestrator *orchestration.Orchestrator
}

// setup loads the configuration and builds the orchestrator.
func setup(ctx context.Context, g Globals) (*runtime, error) {
	cfg, err := loadConfig(g.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	level, err := logging.ParseLevel(logLevel(g, cfg))
	if err != nil {
		return nil, err
	}
	logger := logging.NewLogger(stderr, level)
	observer := provisioning.NewConsoleObserver(logger)

	provider, err := newProvider(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}
	dnsAPI, err := newDNS(ctx, cfg)
	if err != nil {
		return nil, err
	}

	bootstrap := orchestration.NewBootstrap(provider, dnsAPI, orchestration.Options{
		SubnetBits: cfg.Network.SubnetBits,
		DNSTTL:     cfg.DNS.TTL,
		Compute: compute.Config{
			InstanceCount: cfg.Compute.InstanceCount,
			IngressPorts:  cfg.Compute.IngressPorts,
		},
	}, observer)

	return &runtime{
		cfg:      cfg,
		logger:   logger,
		observer: observer,
		provider: provider,
		orchestrator: orchestration.New(bootstrap,
			orchestration.WithPRTTL(cfg.PRTTL),
			orchestration.WithObserver(observer)),
	}, nil
}

// logLevel picks the flag, then STACKCTL_LOG_LEVEL, then the config file.
func logLevel(g Globals, cfg *config.Config) string {
	if g.LogLevel != "" {
		return g.LogLevel
	}
	if env := os.Getenv("STACKCTL_LOG_LEVEL"); env != "" {
		return env
	}
	return cfg.LogLevel
}

// loadApp reads the application descriptor at ref. The object store
// client is only built for s3:// references.
func (r *runtime) loadApp(ctx context.Context, ref string) (provisioning.AppDescriptor, error) {
	var fetcher appdef.Fetcher
	if strings.HasPrefix(ref, appdef.S3Scheme) {
		store, err := newDescriptorStore(ctx, r.cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create descriptor store: %w", err)
		}
		fetcher = store
	}
	return appdef.Load(ctx, ref, fetcher)
}

// readSSHKeys reads one public key per file.
func readSSHKeys(paths []string) ([]string, error) {
	keys := make([]string, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read SSH key: %w", err)
		}
		key := strings.TrimSpace(string(data))
		if key == "" {
			return nil, fmt.Errorf("SSH key file %s is empty", p)
		}
		keys = append(keys, key)
	}
	return keys, nil
}
