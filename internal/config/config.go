package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where webfleet looks for its configuration when no
// --config flag is given.
const DefaultPath = "webfleet.yaml"

// Config is the provisioning configuration: everything that varies
// between deployments of the same fixed topology.
type Config struct {
	// AppName and Stage become the fleet's identity tags and, through
	// them, the deployment group's target selector.
	AppName string `yaml:"appName"`
	Stage   string `yaml:"stage"`
	Region  string `yaml:"region"`

	Network  Network  `yaml:"network"`
	Instance Instance `yaml:"instance"`
	Source   Source   `yaml:"source"`

	// BootstrapScript is the relative path of the startup script read at
	// provisioning time and injected as instance user data.
	BootstrapScript string `yaml:"bootstrapScript"`

	// Manifest is where the record of created resources is written.
	// Either a local file path or an s3://bucket/key URI.
	Manifest string `yaml:"manifest"`
}

// Network lays out the VPC address space. Zones are availability zone
// letters appended to the region, one per subnet.
type Network struct {
	CIDR        string   `yaml:"cidr"`
	SubnetCIDRs []string `yaml:"subnets"`
	Zones       []string `yaml:"zones"`
}

type Instance struct {
	Type  string `yaml:"type"`
	Count int    `yaml:"count"`
	// ImageParameter is the public SSM parameter that resolves to the
	// current stable machine image.
	ImageParameter string `yaml:"imageParameter"`
}

// Source identifies the repository the pipeline watches and the
// pre-provisioned Secrets Manager secret holding its access token.
type Source struct {
	Owner       string `yaml:"owner"`
	Repo        string `yaml:"repo"`
	Branch      string `yaml:"branch"`
	TokenSecret string `yaml:"tokenSecret"`
}

// Default returns the built-in configuration for the demo web stack.
func Default() *Config {
	return &Config{
		AppName: "java-web",
		Stage:   "prod",
		Region:  "us-east-1",
		Network: Network{
			CIDR:        "10.0.0.0/16",
			SubnetCIDRs: []string{"10.0.0.0/24", "10.0.1.0/24", "10.0.2.0/24"},
			Zones:       []string{"a", "b", "c"},
		},
		Instance: Instance{
			Type:           "t3.micro",
			Count:          2,
			ImageParameter: "/aws/service/ami-amazon-linux-latest/al2023-ami-kernel-default-x86_64",
		},
		Source: Source{
			Branch:      "main",
			TokenSecret: "github-token",
		},
		BootstrapScript: "scripts/configure.sh",
		Manifest:        ".webfleet/manifest.json",
	}
}

// Load reads a YAML configuration file over the defaults. A missing
// file at the default path is not an error; an explicitly named file
// must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && path == DefaultPath {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the fields that must be present before provisioning.
// Topology invariants are checked separately on the built stack.
func (c *Config) Validate() error {
	if c.AppName == "" {
		return fmt.Errorf("appName must be set")
	}
	if c.Stage == "" {
		return fmt.Errorf("stage must be set")
	}
	if c.Region == "" {
		return fmt.Errorf("region must be set")
	}
	if len(c.Network.SubnetCIDRs) != len(c.Network.Zones) {
		return fmt.Errorf("network: %d subnets but %d zones", len(c.Network.SubnetCIDRs), len(c.Network.Zones))
	}
	if c.Instance.Count < 1 {
		return fmt.Errorf("instance count must be at least 1")
	}
	if c.Source.Owner == "" || c.Source.Repo == "" {
		return fmt.Errorf("source.owner and source.repo must be set")
	}
	if c.Source.TokenSecret == "" {
		return fmt.Errorf("source.tokenSecret must be set")
	}
	return nil
}
