package admin

import (
	"context"

	"github.com/fleetxds/control-plane/internal/discovery"
)

// DeepCheckResult is one (proxy_version, resource_type) pair's outcome
// against a synthesized node descriptor.
type DeepCheckResult struct {
	ProxyVersion string `json:"proxy_version"`
	ResourceType string `json:"resource_type"`
	OK           bool   `json:"ok"`
	Error        string `json:"error,omitempty"`
}

// DefaultSyntheticNode is used by DeepCheck when the caller doesn't supply
// its own node descriptor. It deliberately sets no cluster/match value so
// deep-check exercises the "default scope only" path regardless of the
// deployment's node-matching configuration.
var DefaultSyntheticNode = discovery.Node{
	"id":      "admin-deep-check",
	"cluster": "*",
}

// DeepCheck renders every configured (proxy_version, resource_type) pair
// against node, reporting per-pair success or failure. It shares the exact
// discover() call path a proxy uses — there is no separate "does this
// compile" check.
func (s *Surface) DeepCheck(ctx context.Context, node discovery.Node) []DeepCheckResult {
	if node == nil {
		node = DefaultSyntheticNode
	}

	results := make([]DeepCheckResult, 0, len(s.Templates.All()))
	for _, artifact := range s.Templates.All() {
		_, discErr := s.Engine.Discover(ctx, discovery.Request{
			ResourceType:  artifact.ResourceType,
			ProxyVersion:  artifact.ProxyVersion,
			Node:          node,
			APIGeneration: "v3",
		})
		result := DeepCheckResult{ProxyVersion: artifact.ProxyVersion, ResourceType: artifact.ResourceType, OK: discErr == nil}
		if discErr != nil {
			result.Error = discErr.Error()
		}
		results = append(results, result)
	}
	return results
}
