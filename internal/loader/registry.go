// Package loader implements the config loader registry: it
// resolves a Location reference into a typed in-memory value by dispatching
// to a registered protocol (how to fetch bytes, or a value directly) and a
// registered serializer (how to decode fetched bytes).
//
// Additional protocols and serializers are plugged in by calling
// RegisterProtocol / RegisterSerializer once at startup, an explicit
// registration API rather than reflective or build-tag discovery.
package loader

import (
	"context"
	"fmt"
	"sync"
)

// ByteProtocol fetches the raw bytes a location refers to. Most protocols
// (file, http, env, inline, s3) implement this; a Serializer then decodes
// the result.
type ByteProtocol interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
}

// ValueProtocol resolves a location directly to a typed value, bypassing
// serialization entirely. This exists for the sandboxed "exec" protocol,
// whose resolved value is a fixed namespace of helper functions rather than
// bytes to decode.
type ValueProtocol interface {
	Resolve(ctx context.Context, path string) (any, error)
}

// Serializer decodes bytes fetched by a ByteProtocol into a typed value.
type Serializer interface {
	Decode(data []byte) (any, error)
}

// Registry holds the protocol/serializer plugin tables and performs Load.
type Registry struct {
	mu          sync.RWMutex
	byteProtos  map[string]ByteProtocol
	valueProtos map[string]ValueProtocol
	serializers map[string]Serializer
	// defaultSerialization is used when a Location omits Serialization.
	defaultSerialization string
}

// NewRegistry returns an empty Registry. Register protocols/serializers
// before calling Load.
func NewRegistry() *Registry {
	return &Registry{
		byteProtos:           make(map[string]ByteProtocol),
		valueProtos:          make(map[string]ValueProtocol),
		serializers:          make(map[string]Serializer),
		defaultSerialization: "raw",
	}
}

// RegisterProtocol registers a byte-fetching protocol under name. Names
// must be unique; duplicate registration panics, and only ever happens at
// process startup.
func (r *Registry) RegisterProtocol(name string, p ByteProtocol) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byteProtos[name]; exists {
		panic(fmt.Sprintf("loader: protocol %q already registered", name))
	}
	r.byteProtos[name] = p
}

// RegisterValueProtocol registers a value-resolving protocol under name.
func (r *Registry) RegisterValueProtocol(name string, p ValueProtocol) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.valueProtos[name]; exists {
		panic(fmt.Sprintf("loader: protocol %q already registered", name))
	}
	r.valueProtos[name] = p
}

// RegisterSerializer registers a serializer under name.
func (r *Registry) RegisterSerializer(name string, s Serializer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.serializers[name]; exists {
		panic(fmt.Sprintf("loader: serializer %q already registered", name))
	}
	r.serializers[name] = s
}

// Load resolves loc to a value: for ValueProtocol protocols, the resolved
// value is returned directly; otherwise the protocol's bytes are passed to
// the matching Serializer.
func (r *Registry) Load(ctx context.Context, loc Location) (any, error) {
	r.mu.RLock()
	valueProto, isValue := r.valueProtos[loc.Protocol]
	byteProto, isByte := r.byteProtos[loc.Protocol]
	r.mu.RUnlock()

	if isValue {
		v, err := valueProto.Resolve(ctx, loc.Path)
		if err != nil {
			return nil, fmt.Errorf("%w: protocol %q: %w", ErrIO, loc.Protocol, err)
		}
		return v, nil
	}
	if !isByte {
		return nil, fmt.Errorf("%w: protocol %q", ErrBadLocation, loc.Protocol)
	}

	serialization := loc.Serialization
	if serialization == "" {
		serialization = r.defaultSerialization
	}
	r.mu.RLock()
	ser, ok := r.serializers[serialization]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: serialization %q", ErrBadLocation, serialization)
	}

	data, err := byteProto.Fetch(ctx, loc.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: protocol %q path %q: %w", ErrIO, loc.Protocol, loc.Path, err)
	}

	value, err := ser.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: serialization %q path %q: %v", ErrDecode, serialization, loc.Path, err)
	}
	return value, nil
}

// LoadBytes resolves loc via its ByteProtocol only, skipping serialization.
// Callers that need the compiled-template shape (internal/template) use
// this to get source bytes and compile themselves alongside a checksum.
func (r *Registry) LoadBytes(ctx context.Context, loc Location) ([]byte, error) {
	r.mu.RLock()
	byteProto, ok := r.byteProtos[loc.Protocol]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: protocol %q has no byte form", ErrBadLocation, loc.Protocol)
	}
	data, err := byteProto.Fetch(ctx, loc.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: protocol %q path %q: %w", ErrIO, loc.Protocol, loc.Path, err)
	}
	return data, nil
}
