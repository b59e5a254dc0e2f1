// Package cache implements the two-tier discovery cache: an
// in-process LRU tier and an optional shared Redis tier, keyed by request
// fingerprint, holding fully-serialized responses with TTL.
package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/fleetxds/control-plane/internal/discovery"
)

// Local is the in-process LRU tier, bounded by entry count and safe for
// concurrent use.
type Local struct {
	cache *lru.Cache[string, *discovery.Response]
}

// NewLocal builds a Local tier bounded to maxEntries.
func NewLocal(maxEntries int) (*Local, error) {
	c, err := lru.New[string, *discovery.Response](maxEntries)
	if err != nil {
		return nil, err
	}
	return &Local{cache: c}, nil
}

// Get returns the cached response for fingerprint, if present.
func (l *Local) Get(fingerprint string) (*discovery.Response, bool) {
	return l.cache.Get(fingerprint)
}

// Put inserts or overwrites fingerprint's entry.
func (l *Local) Put(fingerprint string, resp *discovery.Response) {
	l.cache.Add(fingerprint, resp)
}
