package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/webfleet-io/webfleet/internal/config"
	"github.com/webfleet-io/webfleet/internal/manifest"
	"github.com/webfleet-io/webfleet/internal/provision/aws"
	"github.com/webfleet-io/webfleet/internal/stack"
)

// loadConfig reads the configuration named by --config, or the default
// path when the flag is unset.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultPath
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// buildStack turns the configuration into a validated stack
// declaration, reading the bootstrap script up front so a missing file
// fails before anything is created.
func buildStack(cfg *config.Config) (*stack.Stack, error) {
	script, err := stack.LoadBootstrapScript(cfg.BootstrapScript)
	if err != nil {
		return nil, err
	}
	s := stack.Definition(cfg, script)
	if err := stack.Validate(s); err != nil {
		return nil, fmt.Errorf("invalid stack: %w", err)
	}
	return s, nil
}

// collectOutputs derives the stack outputs from the manifest. Instance
// IPs are joined in fleet member order.
func collectOutputs(s *stack.Stack, m *manifest.Manifest) {
	var ips []string
	for i := 0; i < s.Fleet.Count; i++ {
		name := fmt.Sprintf("%s-%d", s.Fleet.Name, i+1)
		if inst := m.Lookup(aws.TypeInstance, name); inst != nil {
			ips = append(ips, inst.Attrs["publicIp"])
		}
	}
	m.SetOutput("instancePublicIps", strings.Join(ips, ","))

	if vpc := m.Lookup(aws.TypeVPC, s.Network.Name); vpc != nil {
		m.SetOutput("vpcId", vpc.ID)
	}
	if pipe := m.Lookup(aws.TypePipeline, s.Pipeline.Name); pipe != nil {
		m.SetOutput("pipelineName", pipe.ID)
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
