package template

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// Loadable materializes one named context-entry's value. Eager entries
// simply return a fixed value; refreshable entries re-invoke this on their
// own schedule.
type Loadable func(ctx context.Context) (any, error)

// entry holds one named context value behind an atomic pointer so readers
// never observe a torn write mid-refresh.
type entry struct {
	name   string
	load   Loadable
	value  atomic.Pointer[any]
	hasRun bool
}

// Context is the named-value mapping supplied to every template
// invocation. Entries are populated at
// startup and, for refreshable entries, kept current by a Refresher.
type Context struct {
	entries map[string]*entry
	static  map[string]any
}

// NewContext builds a Context. static entries never change; call Add for
// entries a Refresher will keep current.
func NewContext(static map[string]any) *Context {
	c := &Context{entries: make(map[string]*entry), static: static}
	if c.static == nil {
		c.static = make(map[string]any)
	}
	return c
}

// Add registers a loadable entry and materializes its initial value. An
// entry with no prior value whose load fails must fail startup, so Add
// returns the error rather than silently defaulting to nil.
func (c *Context) Add(ctx context.Context, name string, load Loadable) error {
	value, err := load(ctx)
	if err != nil {
		return fmt.Errorf("template context entry %q: initial load: %w", name, err)
	}
	e := &entry{name: name, load: load, hasRun: true}
	e.value.Store(&value)
	c.entries[name] = e
	return nil
}

// Refresh re-materializes one named entry. On failure, if a prior value
// exists it is retained and the caller is expected to emit a
// context_refresh_failed signal; Refresh itself just returns the error.
func (c *Context) Refresh(ctx context.Context, name string) error {
	e, ok := c.entries[name]
	if !ok {
		return fmt.Errorf("template context entry %q is not registered", name)
	}
	value, err := e.load(ctx)
	if err != nil {
		return fmt.Errorf("template context entry %q: refresh: %w", name, err)
	}
	e.value.Store(&value)
	return nil
}

// Names returns every refreshable entry's name, for a Refresher to
// schedule against.
func (c *Context) Names() []string {
	out := make([]string, 0, len(c.entries))
	for name := range c.entries {
		out = append(out, name)
	}
	return out
}

// Snapshot returns the full context map for a request: every refreshable
// entry's current value, plus the static entries, each captured once so a
// single request observes one consistent value per entry.
func (c *Context) Snapshot() map[string]any {
	out := make(map[string]any, len(c.entries)+len(c.static))
	for k, v := range c.static {
		out[k] = v
	}
	for name, e := range c.entries {
		if v := e.value.Load(); v != nil {
			out[name] = *v
		}
	}
	return out
}

// Prune filters a context snapshot down to the entries an artifact's free
// identifiers reference:
// this keeps the fingerprint stable when context unrelated to a given
// template changes. An artifact with a nil/empty FreeIdents set (e.g. a
// callable artifact that was never parsed as text) is not pruned.
func Prune(full map[string]any, freeIdents map[string]bool) map[string]any {
	if len(freeIdents) == 0 {
		return full
	}
	out := make(map[string]any, len(freeIdents))
	for name := range freeIdents {
		if v, ok := full[name]; ok {
			out[name] = v
		}
	}
	return out
}

// Checksum derives the deterministic hash of a (pruned) context map, folded
// into the request fingerprint.
func Checksum(ctx map[string]any) (string, error) {
	names := make([]string, 0, len(ctx))
	for name := range ctx {
		names = append(names, name)
	}
	sort.Strings(names)

	h := xxhash.New()
	for _, name := range names {
		if _, err := h.WriteString(name); err != nil {
			return "", fmt.Errorf("hash context key: %w", err)
		}
		data, err := json.Marshal(ctx[name])
		if err != nil {
			return "", fmt.Errorf("marshal context value %q: %w", name, err)
		}
		if _, err := h.Write(data); err != nil {
			return "", fmt.Errorf("hash context value: %w", err)
		}
	}
	return fmt.Sprintf("%x", h.Sum64()), nil
}
