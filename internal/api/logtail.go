package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// logHub fans out formatted log lines to every live admin websocket
// subscriber.
type logHub struct {
	mu   sync.Mutex
	subs map[chan []byte]struct{}
}

func newLogHub() *logHub {
	return &logHub{subs: make(map[chan []byte]struct{})}
}

func (h *logHub) subscribe() (chan []byte, func()) {
	ch := make(chan []byte, 64)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	unsubscribe := func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
	}
	return ch, unsubscribe
}

func (h *logHub) broadcast(line []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- line:
		default:
			// Slow subscriber: drop the line rather than block ingestion.
		}
	}
}

// broadcastHandler wraps an existing slog.Handler, publishing every record
// to hub in addition to the normal sink.
type broadcastHandler struct {
	next slog.Handler
	hub  *logHub
}

// NewBroadcastHandler returns a handler that behaves exactly like next but
// also feeds the returned hub, which an admin websocket can tail. Assign
// the hub to Server.LogHub to enable /admin/logs/tail.
func NewBroadcastHandler(next slog.Handler) (slog.Handler, *logHub) {
	hub := newLogHub()
	return &broadcastHandler{next: next, hub: hub}, hub
}

func (b *broadcastHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return b.next.Enabled(ctx, level)
}

func (b *broadcastHandler) Handle(ctx context.Context, r slog.Record) error {
	line := fmt.Sprintf("%s %s %s\n", r.Time.UTC().Format(time.RFC3339), r.Level, r.Message)
	b.hub.broadcast([]byte(line))
	return b.next.Handle(ctx, r)
}

func (b *broadcastHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &broadcastHandler{next: b.next.WithAttrs(attrs), hub: b.hub}
}

func (b *broadcastHandler) WithGroup(name string) slog.Handler {
	return &broadcastHandler{next: b.next.WithGroup(name), hub: b.hub}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Admin endpoints sit behind the operator's own network boundary, not a
	// browser-facing origin policy; accept any origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleLogTail upgrades to a websocket and streams log lines as they're
// emitted until the client disconnects.
func (s *Server) handleLogTail(w http.ResponseWriter, r *http.Request) {
	if s.LogHub == nil {
		writeError(w, r, fmt.Errorf("admin: log tail not configured"), s.Debug)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	lines, unsubscribe := s.LogHub.subscribe()
	defer unsubscribe()

	for {
		select {
		case <-r.Context().Done():
			return
		case line := <-lines:
			if err := conn.WriteMessage(websocket.TextMessage, line); err != nil {
				return
			}
		}
	}
}
