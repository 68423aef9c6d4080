package orchestration

import (
	"context"
	"sync"

	"github.com/imamik/stackctl/internal/provisioning"
	"github.com/imamik/stackctl/internal/provisioning/compute"
	"github.com/imamik/stackctl/internal/provisioning/dns"
	"github.com/imamik/stackctl/internal/provisioning/infrastructure"
	"github.com/imamik/stackctl/internal/util/async"
)

// Options configures the managers built by Bootstrap.
type Options struct {
	// SubnetBits sizes project subnets relative to the account network.
	SubnetBits int
	// DNSTTL is the TTL of environment records in seconds.
	DNSTTL int64
	// Compute shapes the provisioned stacks.
	Compute compute.Config
}

// Managers holds the account context and the managers bound to it.
type Managers struct {
	NetworkID string
	ZoneID    string
	Scaffolds *infrastructure.ScaffoldManager
	Compute   *compute.Provisioner
	DNS       *dns.Binder
}

// Bootstrap discovers account-wide context once and caches the managers
// built from it. A failed discovery is not cached.
type Bootstrap struct {
	provider provisioning.Provider
	dns      provisioning.DNSAPI
	opts     Options
	observer provisioning.Observer

	mu       sync.Mutex
	managers *Managers
}

// NewBootstrap returns a cache over provider. dnsAPI overrides the
// provider's own DNS implementation when non-nil.
func NewBootstrap(provider provisioning.Provider, dnsAPI provisioning.DNSAPI, opts Options, observer provisioning.Observer) *Bootstrap {
	if dnsAPI == nil {
		dnsAPI = provider
	}
	if observer == nil {
		observer = provisioning.NopObserver{}
	}
	return &Bootstrap{provider: provider, dns: dnsAPI, opts: opts, observer: withMetrics(observer)}
}

// Provider returns the provider the bootstrap discovers through.
func (b *Bootstrap) Provider() provisioning.Provider {
	return b.provider
}

// State returns the cached managers, discovering the network and zone
// concurrently on first use.
func (b *Bootstrap) State(ctx context.Context) (*Managers, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.managers != nil {
		return b.managers, nil
	}

	var (
		network *provisioning.Network
		zoneID  string
	)
	err := async.RunParallel(ctx, []async.Task{
		{Name: "network", Func: func(ctx context.Context) error {
			var err error
			network, err = b.provider.FindNetwork(ctx)
			return err
		}},
		{Name: "zone", Func: func(ctx context.Context) error {
			var err error
			zoneID, err = b.dns.FindZone(ctx)
			return err
		}},
	})
	if err != nil {
		return nil, &provisioning.BootstrapError{Err: err}
	}

	scaffolds := infrastructure.NewScaffoldManager(b.provider, b.provider, *network, b.opts.SubnetBits, b.observer)
	b.managers = &Managers{
		NetworkID: network.ID,
		ZoneID:    zoneID,
		Scaffolds: scaffolds,
		Compute:   compute.NewProvisioner(b.provider, scaffolds, network.ID, b.opts.Compute, b.observer),
		DNS:       dns.NewBinder(b.dns, zoneID, b.opts.DNSTTL, b.observer),
	}
	b.observer.Event(provisioning.Event{
		Type:    provisioning.EventResourceExists,
		Phase:   "bootstrap",
		Message: "account context discovered",
		Fields:  map[string]string{"network": network.ID, "zone": zoneID},
	})
	return b.managers, nil
}
