package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fleetxds/control-plane/internal/discovery"
)

// Remote is the optional shared Redis tier: JSON serialization, a
// server-configured TTL, and every failure logged and treated as a miss
// rather than propagated.
type Remote struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRemote dials addr. Call Ping to verify connectivity before relying on
// the tier; a dial failure here is not itself fatal since the remote tier
// is always optional.
func NewRemote(addr, password string, db int, ttl time.Duration, logger *slog.Logger) *Remote {
	if logger == nil {
		logger = slog.Default()
	}
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		MaxRetries:   3,
	})
	return &Remote{client: client, ttl: ttl, logger: logger}
}

// Ping verifies connectivity, surfacing a real error the caller can decide
// whether to treat as fatal at startup.
func (r *Remote) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Get fetches and deserializes fingerprint's entry. found is false either
// because the key genuinely isn't present (no err) or because the tier
// failed (err set, already logged) — both downgrade identically to "ask
// the next tier", but the caller can still tell them apart for metrics.
func (r *Remote) Get(ctx context.Context, fingerprint string) (resp *discovery.Response, found bool, err error) {
	data, getErr := r.client.Get(ctx, fingerprint).Bytes()
	if getErr == redis.Nil {
		return nil, false, nil
	}
	if getErr != nil {
		r.logger.Warn("discovery_cache_remote_get_failed", "fingerprint", fingerprint, "error", getErr)
		return nil, false, getErr
	}

	var v discovery.Response
	if err := json.Unmarshal(data, &v); err != nil {
		r.logger.Warn("discovery_cache_remote_decode_failed", "fingerprint", fingerprint, "error", err)
		return nil, false, err
	}
	return &v, true, nil
}

// Put writes fingerprint's entry with the configured TTL. Best-effort:
// failures are logged and reported back only so the caller can count them;
// never treated as fatal.
func (r *Remote) Put(ctx context.Context, fingerprint string, resp *discovery.Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		r.logger.Warn("discovery_cache_remote_encode_failed", "fingerprint", fingerprint, "error", err)
		return err
	}
	if err := r.client.Set(ctx, fingerprint, data, r.ttl).Err(); err != nil {
		r.logger.Warn("discovery_cache_remote_put_failed", "fingerprint", fingerprint, "error", err)
		return err
	}
	return nil
}

// Close releases the underlying connection pool.
func (r *Remote) Close() error {
	return r.client.Close()
}
