// Package discovery implements the discovery engine: the
// per-request pipeline from fingerprint through cache lookup, render,
// parse, resource filter, version stamp, to response.
package discovery

import "context"

// Node is a discovery request's node descriptor, decoded straight from the
// request body's "node" field. Keeping it as a generic map
// lets internal/matcher's dotted-path extraction and the auth gate reach
// into "metadata", "locality", etc. without a fixed schema.
type Node map[string]any

// Request is one discover() invocation's inputs.
type Request struct {
	ResourceType   string
	ProxyVersion   string // parsed major.minor.patch, e.g. from build_version
	Node           Node
	RequestedNames []string
	VersionInfoIn  string
	HostHeader     string
	APIGeneration  string // "v2" or "v3"
}

// Response is the rendered, filtered, versioned discovery response.
type Response struct {
	VersionInfo string           `json:"version_info"`
	Resources   []map[string]any `json:"resources"`
	// Unchanged is true when the request's incoming version_info already
	// matched the current fingerprint; callers render this as the
	// configured no-change status with an empty body.
	Unchanged bool `json:"-"`
}

// ctxKey namespaces context values this package attaches to a request's
// context (the deadline itself uses context.WithDeadline directly).
type ctxKey string

const deadlineExceededKey ctxKey = "discovery_deadline_exceeded"

// checkDeadline returns Timeout if ctx's deadline has already passed,
// letting discover() bail out before any of the remaining, possibly
// expensive pipeline steps.
func checkDeadline(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return &Error{Kind: Timeout, Cause: ctx.Err()}
	default:
		return nil
	}
}
