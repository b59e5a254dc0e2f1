package discovery

// TypeURLs maps (api_generation, resource_type) to the "@type" discriminator
// injected into a rendered resource when the template omitted one. Exported so cmd/control-plane can extend or override it
// per deployment without a second copy of the engine.
var TypeURLs = map[string]map[string]string{
	"v3": {
		"clusters":  "type.googleapis.com/envoy.config.cluster.v3.Cluster",
		"listeners": "type.googleapis.com/envoy.config.listener.v3.Listener",
		"routes":    "type.googleapis.com/envoy.config.route.v3.RouteConfiguration",
		"endpoints": "type.googleapis.com/envoy.config.endpoint.v3.ClusterLoadAssignment",
		"secrets":   "type.googleapis.com/envoy.extensions.transport_sockets.tls.v3.Secret",
	},
	"v2": {
		"clusters":  "type.googleapis.com/envoy.api.v2.Cluster",
		"listeners": "type.googleapis.com/envoy.api.v2.Listener",
		"routes":    "type.googleapis.com/envoy.api.v2.RouteConfiguration",
		"endpoints": "type.googleapis.com/envoy.api.v2.ClusterLoadAssignment",
		"secrets":   "type.googleapis.com/envoy.api.v2.auth.Secret",
	},
}

const typeURLField = "@type"

// injectTypeURL sets resource["@type"] from TypeURLs[apiGeneration][resourceType]
// when the field is absent, leaving an already-present value untouched.
func injectTypeURL(resource map[string]any, resourceType, apiGeneration string) {
	if _, ok := resource[typeURLField]; ok {
		return
	}
	byType, ok := TypeURLs[apiGeneration]
	if !ok {
		return
	}
	if url, ok := byType[resourceType]; ok {
		resource[typeURLField] = url
	}
}
