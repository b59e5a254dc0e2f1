package config

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fleetxds/control-plane/internal/loader"
)

func validConfig() *Config {
	return &Config{
		SourceConfig: IngestionConfig{CacheStrategy: "content"},
		Matching:     MatchingConfig{Enabled: true, SourceKey: "service_clusters", NodeKey: "cluster"},
		Templates: map[string]map[string]loader.Location{
			"default": {"clusters": {Protocol: "file", Serialization: "template", Path: "clusters.tmpl"}},
		},
		DiscoveryCache: DiscoveryCacheConfig{Enabled: true, LocalMaxEntries: 100},
		Server:         ServerConfig{Host: "0.0.0.0", Port: 8080},
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidateAcceptsTemplatesWithoutDefaultVersion(t *testing.T) {
	// A deployment may configure only specific proxy versions; requests for
	// anything else get a NotConfigured response at discover time rather
	// than failing startup.
	cfg := validConfig()
	cfg.Templates = map[string]map[string]loader.Location{
		"1.13": {"clusters": {Protocol: "file", Serialization: "template", Path: "clusters.tmpl"}},
	}
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"empty host", func(c *Config) { c.Server.Host = "" }},
		{"bad cache strategy", func(c *Config) { c.SourceConfig.CacheStrategy = "chaos" }},
		{"matching without source key", func(c *Config) { c.Matching.SourceKey = "" }},
		{"matching without node key", func(c *Config) { c.Matching.NodeKey = "" }},
		{"no templates", func(c *Config) { c.Templates = nil }},
		{"auth without passwords", func(c *Config) { c.Authentication.Enabled = true }},
		{"non-positive cache size", func(c *Config) { c.DiscoveryCache.LocalMaxEntries = 0 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSanitizeMasksSecrets(t *testing.T) {
	cfg := validConfig()
	cfg.Authentication = AuthenticationConfig{
		Enabled:       true,
		EncryptionKey: EncryptionKeySpec{Single: "super-secret", Multi: []CipherKeyConfig{{Scheme: "aead", Key: "k"}}},
		AuthPasswords: []string{"p1", "p2"},
	}
	cfg.DiscoveryCache.Remote = &RemoteCacheConfig{Kind: "redis", Host: "h", Port: 6379, Password: "redis-pass"}

	masked := cfg.Sanitize()

	assert.NotEqual(t, "super-secret", masked.Authentication.EncryptionKey.Single)
	assert.NotEqual(t, "k", masked.Authentication.EncryptionKey.Multi[0].Key)
	for _, p := range masked.Authentication.AuthPasswords {
		assert.NotContains(t, []string{"p1", "p2"}, p)
	}
	assert.NotEqual(t, "redis-pass", masked.DiscoveryCache.Remote.Password)

	// The original is untouched.
	assert.Equal(t, "super-secret", cfg.Authentication.EncryptionKey.Single)
	assert.Equal(t, "redis-pass", cfg.DiscoveryCache.Remote.Password)

	// Non-secret fields survive.
	assert.Equal(t, cfg.Server.Port, masked.Server.Port)
	assert.Equal(t, "redis", masked.DiscoveryCache.Remote.Kind)
}

func TestSanitizeLeavesEmptySecretsEmpty(t *testing.T) {
	masked := validConfig().Sanitize()
	assert.Empty(t, masked.Authentication.EncryptionKey.Single)
	assert.Nil(t, masked.DiscoveryCache.Remote)
}
