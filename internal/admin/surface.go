// Package admin implements the read-only admin/introspection surface.
// Every operation here is a thin wrapper around either the
// same discovery.Engine used to serve proxies, or the store/registry it was
// built from — never a second, divergent pipeline.
package admin

import (
	"context"
	"fmt"

	"github.com/fleetxds/control-plane/internal/cipher"
	"github.com/fleetxds/control-plane/internal/config"
	"github.com/fleetxds/control-plane/internal/discovery"
	"github.com/fleetxds/control-plane/internal/instance"
	"github.com/fleetxds/control-plane/internal/template"
)

// Surface bundles the dependencies every admin operation reads from.
type Surface struct {
	Engine    *discovery.Engine
	Poller    *instance.Poller
	Templates *template.Registry
	Config    *config.Config
	Cipher    *cipher.Suite // nil if authentication is disabled
}

// ListResourceTypes lists the resource types configured for version.
func (s *Surface) ListResourceTypes(version string) []string {
	return s.Templates.ResourceTypes(version)
}

// ListResourceNames renders resourceType for node under version and returns
// just the resource names.
// It goes through the same discover() call a proxy would make, with an
// empty requested-names filter (so all resources come back) and an empty
// incoming version_info (so a cache hit is still possible but "unchanged"
// never short-circuits the names list away).
func (s *Surface) ListResourceNames(ctx context.Context, version, resourceType string, node discovery.Node) ([]string, error) {
	resp, err := s.discover(ctx, version, resourceType, node, nil)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(resp.Resources))
	for _, r := range resp.Resources {
		if name, ok := r["name"].(string); ok {
			names = append(names, name)
		}
	}
	return names, nil
}

// FetchResource renders resourceType for node under version and returns the
// single named resource.
func (s *Surface) FetchResource(ctx context.Context, version, resourceType, name string, node discovery.Node) (map[string]any, error) {
	resp, err := s.discover(ctx, version, resourceType, node, []string{name})
	if err != nil {
		return nil, err
	}
	if len(resp.Resources) == 0 {
		return nil, fmt.Errorf("admin: resource %q not found in %q", name, resourceType)
	}
	return resp.Resources[0], nil
}

func (s *Surface) discover(ctx context.Context, version, resourceType string, node discovery.Node, names []string) (*discovery.Response, error) {
	resp, discErr := s.Engine.Discover(ctx, discovery.Request{
		ResourceType:   resourceType,
		ProxyVersion:   version,
		Node:           node,
		RequestedNames: names,
		APIGeneration:  "v3",
	})
	if discErr != nil {
		return nil, discErr
	}
	return resp, nil
}

// InstanceDump is the "raw and post-transform variants" admin instance
// listing.
type InstanceDump struct {
	Raw           map[string][]instance.Instance
	PostTransform map[string][]instance.Instance
}

// DumpInstances reports both the pre-transform and post-transform instance
// sets the poller currently holds.
func (s *Surface) DumpInstances(scopes []string) InstanceDump {
	raw := s.Poller.RawSnapshot()
	store := s.Poller.Snapshot()

	dump := InstanceDump{Raw: make(map[string][]instance.Instance), PostTransform: make(map[string][]instance.Instance)}
	for _, scope := range scopes {
		dump.Raw[scope] = raw[scope]
		dump.PostTransform[scope] = store.Get(scope)
	}
	return dump
}

// TemplateMeta reports one artifact's static metadata.
type TemplateMeta struct {
	ProxyVersion string   `json:"proxy_version"`
	ResourceType string   `json:"resource_type"`
	Checksum     string   `json:"checksum"`
	SourceLength int      `json:"source_length"`
	FreeIdents   []string `json:"free_identifiers"`
}

// TemplatesMetadata dumps every registered artifact's metadata.
func (s *Surface) TemplatesMetadata() []TemplateMeta {
	artifacts := s.Templates.All()
	out := make([]TemplateMeta, 0, len(artifacts))
	for _, a := range artifacts {
		idents := make([]string, 0, len(a.FreeIdents))
		for name := range a.FreeIdents {
			idents = append(idents, name)
		}
		out = append(out, TemplateMeta{
			ProxyVersion: a.ProxyVersion,
			ResourceType: a.ResourceType,
			Checksum:     a.Checksum,
			SourceLength: len(a.Source),
			FreeIdents:   idents,
		})
	}
	return out
}

// EffectiveConfig returns the running configuration with secrets masked.
func (s *Surface) EffectiveConfig() *config.Config {
	return s.Config.Sanitize()
}

// Crypto helper endpoints.

func (s *Surface) Encrypt(plaintext string) (string, error) {
	if s.Cipher == nil {
		return "", fmt.Errorf("admin: no cipher suite configured")
	}
	return s.Cipher.Encrypt([]byte(plaintext))
}

func (s *Surface) Decrypt(ciphertext string) (string, error) {
	if s.Cipher == nil {
		return "", fmt.Errorf("admin: no cipher suite configured")
	}
	plaintext, err := s.Cipher.Decrypt(ciphertext)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

func (s *Surface) Decryptable(ciphertext string) bool {
	if s.Cipher == nil {
		return false
	}
	return s.Cipher.Decryptable(ciphertext)
}

func (s *Surface) GenerateKey(scheme string) (string, error) {
	return cipher.GenerateKey(scheme)
}
