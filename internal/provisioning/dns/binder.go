package dns

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/imamik/stackctl/internal/provisioning"
)

const (
	phase = "dns"

	// DefaultTTL is used when no TTL is configured.
	DefaultTTL int64 = 300

	recordTypeCNAME = "CNAME"
)

// Binder manages the CNAME record of each environment in one hosted zone.
type Binder struct {
	dns      provisioning.DNSAPI
	zoneID   string
	ttl      int64
	observer provisioning.Observer

	mu  sync.Mutex
	tld string
}

// NewBinder returns a binder for zoneID.
func NewBinder(dns provisioning.DNSAPI, zoneID string, ttl int64, observer provisioning.Observer) *Binder {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if observer == nil {
		observer = provisioning.NopObserver{}
	}
	return &Binder{dns: dns, zoneID: zoneID, ttl: ttl, observer: observer}
}

// ZoneID returns the hosted zone the binder writes to.
func (b *Binder) ZoneID() string {
	return b.zoneID
}

// TLD returns the zone's apex domain without a trailing dot. It is looked
// up once per binder.
func (b *Binder) TLD(ctx context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.tld != "" {
		return b.tld, nil
	}
	domain, err := b.dns.ZoneDomain(ctx, b.zoneID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve domain of zone %s: %w", b.zoneID, err)
	}
	domain = strings.TrimSuffix(domain, ".")
	if domain == "" {
		return "", fmt.Errorf("zone %s has an empty domain", b.zoneID)
	}
	b.tld = domain
	return domain, nil
}

// Domain returns the fully qualified domain of env without changing any
// record.
func (b *Binder) Domain(ctx context.Context, env provisioning.Environment) (string, error) {
	tld, err := b.TLD(ctx)
	if err != nil {
		return "", err
	}
	return env.Subdomain() + "." + tld, nil
}

// Bound reports whether env's record already points at target. It returns
// the domain either way.
func (b *Binder) Bound(ctx context.Context, env provisioning.Environment, target string) (string, bool, error) {
	domain, err := b.Domain(ctx, env)
	if err != nil {
		return "", false, err
	}
	record, err := b.dns.FindRecord(ctx, b.zoneID, domain)
	if errors.Is(err, provisioning.ErrNotFound) {
		return domain, false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to look up %s: %w", domain, err)
	}
	return domain, sameHost(record.Value, target), nil
}

func sameHost(a, b string) bool {
	return strings.EqualFold(strings.TrimSuffix(a, "."), strings.TrimSuffix(b, "."))
}

// Bind points env's domain at target with a single upsert and returns the
// domain.
func (b *Binder) Bind(ctx context.Context, env provisioning.Environment, target string) (string, error) {
	if target == "" {
		return "", &provisioning.ValidationError{Field: "target", Message: "must not be empty"}
	}
	domain, err := b.Domain(ctx, env)
	if err != nil {
		return "", err
	}

	provisioning.LogResourceCreating(b.observer, phase, "record", domain)
	err = b.dns.UpsertRecord(ctx, b.zoneID, provisioning.Record{
		Name:  domain,
		Type:  recordTypeCNAME,
		Value: target,
		TTL:   b.ttl,
	})
	if err != nil {
		return "", fmt.Errorf("failed to bind %s to %s: %w", domain, target, err)
	}
	provisioning.LogResourceCreated(b.observer, phase, "record", domain, target)
	return domain, nil
}

// Unbind removes env's record. A missing record counts as removed.
func (b *Binder) Unbind(ctx context.Context, env provisioning.Environment) error {
	domain, err := b.Domain(ctx, env)
	if err != nil {
		return err
	}

	provisioning.LogResourceDeleting(b.observer, phase, "record", domain)
	err = b.dns.DeleteRecord(ctx, b.zoneID, domain)
	if errors.Is(err, provisioning.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to unbind %s: %w", domain, err)
	}
	provisioning.LogResourceDeleted(b.observer, phase, "record", domain)
	return nil
}
