package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "java-web", cfg.AppName)
	assert.Equal(t, "prod", cfg.Stage)
	assert.Equal(t, "us-east-1", cfg.Region)
	assert.Equal(t, 2, cfg.Instance.Count)
	assert.Len(t, cfg.Network.SubnetCIDRs, 3)
	assert.Len(t, cfg.Network.Zones, 3)
}

func TestLoad_OverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "webfleet.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
appName: shop
source:
  owner: acme
  repo: shop
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "shop", cfg.AppName)
	assert.Equal(t, "acme", cfg.Source.Owner)
	// Untouched fields keep their defaults.
	assert.Equal(t, "prod", cfg.Stage)
	assert.Equal(t, "t3.micro", cfg.Instance.Type)
	assert.Equal(t, "github-token", cfg.Source.TokenSecret)
}

func TestLoad_MissingDefaultPathIsOK(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(DefaultPath)
	require.NoError(t, err)
	assert.Equal(t, "java-web", cfg.AppName)
}

func TestLoad_MissingExplicitPathFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("appName: [unclosed"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.Source.Owner = "acme"
		cfg.Source.Repo = "shop"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "no app name", mutate: func(c *Config) { c.AppName = "" }, wantErr: "appName"},
		{name: "no stage", mutate: func(c *Config) { c.Stage = "" }, wantErr: "stage"},
		{name: "no region", mutate: func(c *Config) { c.Region = "" }, wantErr: "region"},
		{name: "zone mismatch", mutate: func(c *Config) { c.Network.Zones = []string{"a"} }, wantErr: "zones"},
		{name: "zero instances", mutate: func(c *Config) { c.Instance.Count = 0 }, wantErr: "at least 1"},
		{name: "no source owner", mutate: func(c *Config) { c.Source.Owner = "" }, wantErr: "source.owner"},
		{name: "no token secret", mutate: func(c *Config) { c.Source.TokenSecret = "" }, wantErr: "tokenSecret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
