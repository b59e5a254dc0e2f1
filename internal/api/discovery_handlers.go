package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/fleetxds/control-plane/internal/discovery"
)

// discoveryRequestBody is the POST body for a discovery endpoint.
type discoveryRequestBody struct {
	Node          discovery.Node `json:"node"`
	ResourceNames []string       `json:"resource_names"`
	VersionInfo   string         `json:"version_info"`
}

const (
	headerClientBuildVersion = "X-Client-Build-Version"
	headerResourceType       = "X-Resource-Type"
	headerRequestedNames     = "X-Requested-Names"
	headerServerVersion      = "X-Server-Version"
)

// discoveryHandler serves one (api generation, resource type) discovery
// endpoint, delegating entirely to the shared Engine.
func (s *Server) discoveryHandler(apiGeneration, resourceType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body discoveryRequestBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeBadRequest(w, r, err, s.Debug)
			return
		}

		buildVersion := buildVersionOf(body.Node)

		resp, discErr := s.Engine.Discover(r.Context(), discovery.Request{
			ResourceType:   resourceType,
			ProxyVersion:   parseProxyVersion(buildVersion),
			Node:           body.Node,
			RequestedNames: body.ResourceNames,
			VersionInfoIn:  body.VersionInfo,
			HostHeader:     r.Host,
			APIGeneration:  apiGeneration,
		})

		w.Header().Set(headerClientBuildVersion, buildVersion)
		w.Header().Set(headerResourceType, resourceType)
		w.Header().Set(headerRequestedNames, strings.Join(body.ResourceNames, ","))
		w.Header().Set(headerServerVersion, s.Version)

		if discErr != nil {
			writeError(w, r, discErr, s.Debug)
			return
		}

		if resp.Unchanged {
			w.WriteHeader(s.UnchangedStatus)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(resp)
	}
}

// buildVersionOf extracts the proxy's build-version string from the node
// descriptor's build_version field, falling back to the user_agent_version
// and user_agent_build_version fields some proxies send instead.
func buildVersionOf(node discovery.Node) string {
	if node == nil {
		return ""
	}
	for _, field := range []string{"build_version", "user_agent_version", "user_agent_build_version"} {
		if v, ok := node[field].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// parseProxyVersion pulls the dotted release version out of a build-version
// string. Older proxies send "<commit-hash>/<version>/Clean/RELEASE/..."
// while newer ones send the bare version; both reduce to the slash-separated
// segment that is entirely dotted digits.
func parseProxyVersion(buildVersion string) string {
	for _, segment := range strings.Split(buildVersion, "/") {
		if segment == "" {
			continue
		}
		if isDottedVersion(segment) {
			return segment
		}
	}
	return buildVersion
}

func isDottedVersion(s string) bool {
	digits := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits = true
		case r == '.':
		default:
			return false
		}
	}
	return digits
}

// setupDiscoveryRoutes registers the discovery endpoints for both path
// families, one route per configured resource type.
func (s *Server) setupDiscoveryRoutes(router *mux.Router) {
	seen := make(map[string]bool)
	var resourceTypes []string
	for _, artifact := range s.Admin.Templates.All() {
		if !seen[artifact.ResourceType] {
			seen[artifact.ResourceType] = true
			resourceTypes = append(resourceTypes, artifact.ResourceType)
		}
	}

	for _, generation := range []string{"v2", "v3"} {
		sub := router.PathPrefix("/" + generation + "/discovery").Subrouter()
		for _, resourceType := range resourceTypes {
			sub.HandleFunc("/"+resourceType, s.discoveryHandler(generation, resourceType)).Methods(http.MethodPost)
		}
	}
}
