package config

import (
	"errors"
	"fmt"

	"github.com/imamik/stackctl/internal/logging"
)

// Validate checks the configuration for missing or inconsistent settings
// and reports all of them at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Region == "" {
		errs = append(errs, errors.New("region is required"))
	}
	if c.AccountTag == "" {
		errs = append(errs, errors.New("account_tag is required"))
	}
	if c.Compute.AMI == "" {
		errs = append(errs, errors.New("compute.ami is required"))
	}
	if c.Compute.InstanceCount < 0 {
		errs = append(errs, fmt.Errorf("compute.instance_count must not be negative, got %d", c.Compute.InstanceCount))
	}
	for _, p := range c.Compute.IngressPorts {
		if p < 1 || p > 65535 {
			errs = append(errs, fmt.Errorf("compute.ingress_ports: invalid port %d", p))
		}
	}

	switch c.DNS.Provider {
	case DNSProviderRoute53, "":
	case DNSProviderCloudflare:
		if c.DNS.ZoneID == "" && c.DNS.Domain == "" {
			errs = append(errs, errors.New("dns: cloudflare requires zone_id or domain"))
		}
	default:
		errs = append(errs, fmt.Errorf("dns.provider %q: must be %s or %s", c.DNS.Provider, DNSProviderRoute53, DNSProviderCloudflare))
	}
	if c.DNS.TTL < 0 {
		errs = append(errs, fmt.Errorf("dns.ttl must not be negative, got %d", c.DNS.TTL))
	}

	if c.Network.SubnetBits < 1 || c.Network.SubnetBits > 16 {
		errs = append(errs, fmt.Errorf("network.subnet_bits must be between 1 and 16, got %d", c.Network.SubnetBits))
	}
	if c.PRTTL < 0 {
		errs = append(errs, fmt.Errorf("pr_ttl must not be negative, got %s", c.PRTTL))
	}
	if c.Reaper.Interval < 0 {
		errs = append(errs, fmt.Errorf("reaper.interval must not be negative, got %s", c.Reaper.Interval))
	}
	if c.Reaper.Concurrency < 0 {
		errs = append(errs, fmt.Errorf("reaper.concurrency must not be negative, got %d", c.Reaper.Concurrency))
	}
	if c.LogLevel != "" {
		if _, err := logging.ParseLevel(c.LogLevel); err != nil {
			errs = append(errs, fmt.Errorf("log_level: %w", err))
		}
	}

	return errors.Join(errs...)
}
