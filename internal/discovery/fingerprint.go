package discovery

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// fingerprintInputs holds every input that can influence the rendered
// response bytes. Two inputs with byte-equal serializations of every field
// here produce the same fingerprint, and nothing outside this struct may
// influence the rendered bytes.
type fingerprintInputs struct {
	instancesGeneration string
	templateChecksum    string
	contextChecksum     string
	resourceType        string
	apiGeneration       string
	nodeMatchValue      string
	requestedNames      []string // unordered set: sorted before hashing
	hostHeader          string
	cipherIdentity      string
	extraKeys           map[string]string // configured extra discriminators
}

// fingerprint computes the deterministic, non-cryptographic hash used as
// both the discovery cache key and the response's version_info.
func fingerprint(in fingerprintInputs) string {
	h := xxhash.New()

	write := func(s string) {
		h.WriteString(s)
		h.Write([]byte{0}) // separator: avoids "ab"+"c" colliding with "a"+"bc"
	}

	write(in.instancesGeneration)
	write(in.templateChecksum)
	write(in.contextChecksum)
	write(in.resourceType)
	write(in.apiGeneration)
	write(in.nodeMatchValue)

	names := append([]string(nil), in.requestedNames...)
	sort.Strings(names)
	write(strings.Join(names, ","))

	write(in.hostHeader)
	write(in.cipherIdentity)

	extraNames := make([]string, 0, len(in.extraKeys))
	for k := range in.extraKeys {
		extraNames = append(extraNames, k)
	}
	sort.Strings(extraNames)
	for _, k := range extraNames {
		write(k)
		write(in.extraKeys[k])
	}

	return fmt.Sprintf("%x", h.Sum64())
}

// extract follows a dotted path into a nested map, mirroring
// internal/matcher's dotted-path support so extra fingerprint
// keys and the node-match value can be pulled from the same node descriptor
// shape. Kept local: it's a three-line traversal, not worth sharing a
// package boundary over.
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

func stringify(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
