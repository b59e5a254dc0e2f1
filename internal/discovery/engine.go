package discovery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fleetxds/control-plane/internal/cipher"
	"github.com/fleetxds/control-plane/internal/instance"
	"github.com/fleetxds/control-plane/internal/matcher"
	"github.com/fleetxds/control-plane/internal/metrics"
	"github.com/fleetxds/control-plane/internal/template"
)

// Engine implements the discover() pipeline: the sole
// request-serving entry point. internal/admin calls the same Engine rather
// than duplicating any of this.
type Engine struct {
	Store     *instance.Store
	Templates *template.Registry
	Context   *template.Context
	Matcher   matcher.Config
	Cipher    *cipher.Suite // nil: no cipher-backed context helper or auth
	Auth      Authenticator // nil: authentication disabled
	Cache     Cache         // nil: caching disabled
	ExtraKeys []string      // dotted node-descriptor paths folded into the fingerprint

	Logger  *slog.Logger
	Metrics *metrics.DiscoveryMetrics
}

// Discover runs the full pipeline for one request. It never panics and
// never returns a bare error: failures are a *Error whose Kind the HTTP
// layer maps to a status code.
func (e *Engine) Discover(ctx context.Context, req Request) (*Response, *Error) {
	start := time.Now()
	logger := e.logger()

	resp, discErr := e.discover(ctx, req)

	if e.Metrics != nil {
		e.Metrics.RequestDuration.WithLabelValues(req.ResourceType).Observe(time.Since(start).Seconds())
		e.Metrics.RequestsTotal.WithLabelValues(req.ResourceType, req.ProxyVersion).Inc()
		if discErr != nil {
			e.Metrics.ErrorsTotal.WithLabelValues(req.ResourceType, discErr.Kind.String()).Inc()
		} else if resp.Unchanged {
			e.Metrics.UnchangedTotal.WithLabelValues(req.ResourceType).Inc()
		}
	}
	if discErr != nil {
		logger.Warn("discover_failed", "resource_type", req.ResourceType, "proxy_version", req.ProxyVersion, "kind", discErr.Kind.String(), "error", discErr.Cause)
	}
	return resp, discErr
}

func (e *Engine) discover(ctx context.Context, req Request) (*Response, *Error) {
	if err := checkDeadline(ctx); err != nil {
		return nil, err.(*Error)
	}

	// Step 1: authenticate.
	if e.Auth != nil {
		if err := e.Auth.Authenticate(req.Node); err != nil {
			return nil, wrapErr(Unauthorized, req.ResourceType, err)
		}
	}

	// Step 2: resolve the template artifact.
	artifact, err := e.Templates.For(req.ProxyVersion, req.ResourceType)
	if err != nil {
		if errors.Is(err, template.ErrNotFound) {
			return nil, wrapErr(NotConfigured, req.ResourceType, err)
		}
		return nil, wrapErr(InternalError, req.ResourceType, err)
	}

	// Step 3: select instances via the node matcher.
	instances := matcher.Select(e.Store, req.Node, req.ResourceType, e.Matcher)

	var nodeMatchValue string
	if e.Matcher.Enabled {
		nodeMatchValue = stringify(extract(req.Node, e.Matcher.NodeKey))
	}

	// Step 4: build the context.
	snapshot := e.contextSnapshot()
	full := make(map[string]any, len(snapshot)+8)
	for k, v := range snapshot {
		full[k] = v
	}
	full["instances"] = instances
	full["node"] = map[string]any(req.Node)
	full["requested_names"] = req.RequestedNames
	full["host_header"] = req.HostHeader
	if e.Cipher != nil {
		full["cipher"] = e.Cipher
	}

	pruned := template.Prune(full, artifact.FreeIdents)
	contextChecksum, err := template.Checksum(pruned)
	if err != nil {
		return nil, wrapErr(InternalError, req.ResourceType, fmt.Errorf("checksum context: %w", err))
	}

	// Step 5: compute the fingerprint.
	extraValues := make(map[string]string, len(e.ExtraKeys))
	for _, k := range e.ExtraKeys {
		extraValues[k] = stringify(extract(req.Node, k))
	}
	cipherIdentity := ""
	if e.Cipher != nil {
		cipherIdentity = e.Cipher.Identity()
	}
	fp := fingerprint(fingerprintInputs{
		instancesGeneration: e.Store.Generation(),
		templateChecksum:    artifact.Checksum,
		contextChecksum:     contextChecksum,
		resourceType:        req.ResourceType,
		apiGeneration:       req.APIGeneration,
		nodeMatchValue:      nodeMatchValue,
		requestedNames:      req.RequestedNames,
		hostHeader:          req.HostHeader,
		cipherIdentity:      cipherIdentity,
		extraKeys:           extraValues,
	})

	// Step 6: unchanged.
	if req.VersionInfoIn != "" && req.VersionInfoIn == fp {
		return &Response{VersionInfo: fp, Unchanged: true}, nil
	}

	// Step 7: cache lookup.
	if e.Cache != nil {
		if cached, ok := e.Cache.Get(fp); ok {
			return cached, nil
		}
	}

	if err := checkDeadline(ctx); err != nil {
		return nil, err.(*Error)
	}

	renderStart := time.Now()
	resources, renderErr := e.render(artifact, pruned)
	if e.Metrics != nil {
		e.Metrics.RenderDuration.WithLabelValues(req.ResourceType).Observe(time.Since(renderStart).Seconds())
	}
	if renderErr != nil {
		return nil, wrapErr(TemplateError, req.ResourceType, renderErr)
	}

	// Step 9: filter by requested names.
	resources = filterByName(resources, req.RequestedNames)

	// Step 10: type-URL injection.
	for _, r := range resources {
		injectTypeURL(r, req.ResourceType, req.APIGeneration)
	}

	if err := checkDeadline(ctx); err != nil {
		return nil, err.(*Error)
	}

	// Step 11: version stamp.
	resp := &Response{VersionInfo: fp, Resources: resources}

	// Insert into cache. Best-effort: Cache.Put itself swallows and logs
	// remote-tier failures.
	if e.Cache != nil {
		e.Cache.Put(fp, resp)
	}

	return resp, nil
}

// render executes artifact against context, parsing the result into a
// resource list.
func (e *Engine) render(artifact *template.Artifact, ctxMap map[string]any) ([]map[string]any, error) {
	if artifact.Kind == template.KindCallable {
		result, err := artifact.Call(ctxMap)
		if err != nil {
			return nil, fmt.Errorf("invoke callable template: %w", err)
		}
		return toResourceList(result)
	}

	var buf bytes.Buffer
	if err := artifact.Tmpl.Execute(&buf, ctxMap); err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	var parsed any
	if err := yaml.Unmarshal(buf.Bytes(), &parsed); err != nil {
		return nil, fmt.Errorf("parse rendered document: %w", err)
	}
	return toResourceList(parsed)
}

func (e *Engine) contextSnapshot() map[string]any {
	if e.Context == nil {
		return nil
	}
	return e.Context.Snapshot()
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}
