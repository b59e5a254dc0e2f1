// Package auth implements the auth gate: validating the
// opaque encrypted credential a node descriptor carries against a
// configured allowlist.
package auth

import (
	"fmt"
	"strings"

	"github.com/fleetxds/control-plane/internal/cipher"
	"github.com/fleetxds/control-plane/internal/discovery"
)

// Gate implements discovery.Authenticator. It is stateless beyond its
// configured Suite and allowlist, and safe for concurrent use.
type Gate struct {
	Suite     *cipher.Suite
	NodeKey   string // dotted path into the node descriptor, e.g. "metadata.auth"
	Allowlist map[string]bool
}

// NewGate builds a Gate from a password allowlist.
func NewGate(suite *cipher.Suite, nodeKey string, passwords []string) *Gate {
	allow := make(map[string]bool, len(passwords))
	for _, p := range passwords {
		allow[p] = true
	}
	return &Gate{Suite: suite, NodeKey: nodeKey, Allowlist: allow}
}

// Authenticate extracts the credential at g.NodeKey from node, decrypts it,
// and requires the plaintext to be a configured password. Any failure along the way — missing
// credential, undecryptable ciphertext, plaintext not on the allowlist —
// is reported uniformly so the caller can't distinguish "wrong password"
// from "malformed token".
func (g *Gate) Authenticate(node discovery.Node) error {
	raw := extract(node, g.NodeKey)
	credential, ok := raw.(string)
	if !ok || credential == "" {
		return fmt.Errorf("auth: node descriptor has no credential at %q", g.NodeKey)
	}

	plaintext, err := g.Suite.Decrypt(credential)
	if err != nil {
		return fmt.Errorf("auth: %w", err)
	}

	if !g.Allowlist[string(plaintext)] {
		return fmt.Errorf("auth: credential not in allowlist")
	}
	return nil
}

// extract follows a dotted path into a nested map[string]any, mirroring
// internal/matcher's and internal/discovery's dotted-path support so the
// credential can live anywhere in the node descriptor (typically under
// metadata).
func extract(data map[string]any, path string) any {
	if path == "" {
		return nil
	}
	segments := strings.Split(path, ".")
	var cur any = data
	for _, seg := range segments {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur, ok = m[seg]
		if !ok {
			return nil
		}
	}
	return cur
}
