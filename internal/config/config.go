package config

import "time"

// DNS providers.
const (
	DNSProviderRoute53    = "route53"
	DNSProviderCloudflare = "cloudflare"
)

// Config is the tool configuration.
type Config struct {
	// Region is the cloud region all resources live in.
	Region string `yaml:"region"`
	// AccountTag selects the account network and hosted zone: both must
	// carry the tag stackctl.io/account with this value.
	AccountTag string `yaml:"account_tag"`

	DNS          DNSConfig          `yaml:"dns"`
	Compute      ComputeConfig      `yaml:"compute"`
	LoadBalancer LoadBalancerConfig `yaml:"load_balancer"`
	Network      NetworkConfig      `yaml:"network"`

	// PRTTL is how long pull request environments live.
	PRTTL time.Duration `yaml:"pr_ttl"`

	Reaper      ReaperConfig      `yaml:"reaper"`
	Descriptors DescriptorsConfig `yaml:"descriptors"`

	// MetricsAddr is where `stackctl reap` serves /metrics. Empty disables it.
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// DNSConfig selects the DNS backend.
type DNSConfig struct {
	Provider string `yaml:"provider"`
	// ZoneID and Domain identify the Cloudflare zone. Route 53 zones are
	// discovered by AccountTag.
	ZoneID string `yaml:"zone_id"`
	Domain string `yaml:"domain"`
	// APITokenEnv names the environment variable holding the Cloudflare
	// API token.
	APITokenEnv string `yaml:"api_token_env"`
	TTL         int64  `yaml:"ttl"`
}

// ComputeConfig shapes backing instances.
type ComputeConfig struct {
	AMI             string  `yaml:"ami"`
	InstanceType    string  `yaml:"instance_type"`
	InstanceCount   int     `yaml:"instance_count"`
	InstanceProfile string  `yaml:"instance_profile"`
	KeyName         string  `yaml:"key_name"`
	IngressPorts    []int32 `yaml:"ingress_ports"`
}

// LoadBalancerConfig shapes environment load balancers.
type LoadBalancerConfig struct {
	// SSLCertificateID adds a TLS listener on 443 when set.
	SSLCertificateID string `yaml:"ssl_certificate_id"`
	HealthCheckPath  string `yaml:"health_check_path"`
}

// NetworkConfig sizes project subnets.
type NetworkConfig struct {
	// SubnetBits is added to the account network's prefix length to size
	// each project subnet.
	SubnetBits int `yaml:"subnet_bits"`
}

// ReaperConfig tunes the expiry sweep.
type ReaperConfig struct {
	Interval    time.Duration `yaml:"interval"`
	Concurrency int           `yaml:"concurrency"`
}

// DescriptorsConfig locates the object store for s3:// app descriptors.
type DescriptorsConfig struct {
	Region       string `yaml:"region"`
	Endpoint     string `yaml:"endpoint"`
	UsePathStyle bool   `yaml:"use_path_style"`
}

// Defaults.
const (
	DefaultInstanceType    = "t3.small"
	DefaultInstanceCount   = 1
	DefaultSubnetBits      = 8
	DefaultDNSTTL          = 300
	DefaultHealthCheckPath = "/"
	DefaultPRTTL           = 72 * time.Hour
	DefaultReaperInterval  = 15 * time.Minute
	DefaultReaperWorkers   = 4
	DefaultAPITokenEnv     = "CLOUDFLARE_API_TOKEN"
	DefaultLogLevel        = "info"
)

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.DNS.Provider == "" {
		c.DNS.Provider = DNSProviderRoute53
	}
	if c.DNS.TTL == 0 {
		c.DNS.TTL = DefaultDNSTTL
	}
	if c.DNS.APITokenEnv == "" {
		c.DNS.APITokenEnv = DefaultAPITokenEnv
	}
	if c.Compute.InstanceType == "" {
		c.Compute.InstanceType = DefaultInstanceType
	}
	if c.Compute.InstanceCount == 0 {
		c.Compute.InstanceCount = DefaultInstanceCount
	}
	if c.LoadBalancer.HealthCheckPath == "" {
		c.LoadBalancer.HealthCheckPath = DefaultHealthCheckPath
	}
	if c.Network.SubnetBits == 0 {
		c.Network.SubnetBits = DefaultSubnetBits
	}
	if c.PRTTL == 0 {
		c.PRTTL = DefaultPRTTL
	}
	if c.Reaper.Interval == 0 {
		c.Reaper.Interval = DefaultReaperInterval
	}
	if c.Reaper.Concurrency == 0 {
		c.Reaper.Concurrency = DefaultReaperWorkers
	}
	if c.Descriptors.Region == "" {
		c.Descriptors.Region = c.Region
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
}
