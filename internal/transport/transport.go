// Package transport connects gateview to the grokgates server.
//
// Two independent snapshot sources feed the same reconciliation entry point:
// a persistent websocket push channel and a fixed-interval poll of the
// conversations endpoint. Every snapshot is stamped from one shared monotonic
// sequence counter; poll requests take their stamp before the request is
// issued, so a response that completes late carries the older stamp and the
// reconciler's gate can reject it.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/grokgates/gateview/internal/snapshot"
)

const (
	// pollInterval is the conversations poll cadence.
	pollInterval = 3 * time.Second
	// reconnectDelay is the fixed wait between push reconnect attempts.
	reconnectDelay = 3 * time.Second
)

// Event is a connectivity change on the push channel.
type Event struct {
	Online bool
}

// Adapter owns both snapshot sources and the shared sequence counter.
type Adapter struct {
	baseURL string
	http    *http.Client
	seq     atomic.Uint64

	refresh time.Duration
	snaps   chan *snapshot.Snapshot
	events  chan Event

	push *pushClient
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithPollInterval overrides the 3s conversations poll cadence.
func WithPollInterval(d time.Duration) Option {
	return func(a *Adapter) {
		if d > 0 {
			a.refresh = d
		}
	}
}

// WithHTTPClient overrides the HTTP client (tests).
func WithHTTPClient(c *http.Client) Option {
	return func(a *Adapter) { a.http = c }
}

// New creates an adapter for the server at baseURL (no trailing slash).
func New(baseURL string, opts ...Option) *Adapter {
	a := &Adapter{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		refresh: pollInterval,
		snaps:   make(chan *snapshot.Snapshot, 8),
		events:  make(chan Event, 4),
	}
	for _, o := range opts {
		o(a)
	}
	a.push = newPushClient(a)
	return a
}

// Snapshots returns the merged snapshot stream from both channels.
func (a *Adapter) Snapshots() <-chan *snapshot.Snapshot { return a.snaps }

// Events returns online/offline transitions of the push channel.
func (a *Adapter) Events() <-chan Event { return a.events }

// Run drives the poll loop and the push channel until ctx is cancelled.
func (a *Adapter) Run(ctx context.Context) {
	go a.push.run(ctx)
	a.pollLoop(ctx)
}

// SendTyping reports the reveal-queue state to the server, best effort.
func (a *Adapter) SendTyping(isTyping bool) {
	a.push.sendTyping(isTyping)
}

// FetchConversations performs one conversations fetch outside the poll loop.
func (a *Adapter) FetchConversations(ctx context.Context) (*snapshot.ConversationsPayload, error) {
	var payload snapshot.ConversationsPayload
	if err := a.getJSON(ctx, "/api/conversations", &payload); err != nil {
		return nil, fmt.Errorf("fetch conversations: %w", err)
	}
	return &payload, nil
}

// FetchArt retrieves the mascot art source once at startup.
func (a *Adapter) FetchArt(ctx context.Context) (string, error) {
	var payload snapshot.ArtPayload
	if err := a.getJSON(ctx, "/api/ascii-art", &payload); err != nil {
		return "", fmt.Errorf("fetch art: %w", err)
	}
	return payload.ASCIIArt, nil
}

// pollLoop fetches the conversations endpoint on a fixed interval. A fetch
// failure is logged; the next cycle retries naturally.
func (a *Adapter) pollLoop(ctx context.Context) {
	// First poll immediately so the UI is not empty for a full interval.
	a.pollOnce(ctx)

	ticker := time.NewTicker(a.refresh)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.pollOnce(ctx)
		}
	}
}

func (a *Adapter) pollOnce(ctx context.Context) {
	// Stamp before the request: a response that completes after a newer
	// push update must lose at the reconciler's gate.
	seq := a.seq.Add(1)

	var payload snapshot.ConversationsPayload
	if err := a.getJSON(ctx, "/api/conversations", &payload); err != nil {
		slog.Warn("conversations poll failed", "error", err)
		return
	}

	a.deliver(ctx, &snapshot.Snapshot{
		Seq:              seq,
		Origin:           snapshot.OriginPoll,
		Current:          payload.Current,
		History:          payload.History,
		HasConversations: true,
		ReceivedAt:       time.Now(),
	})
}

// deliver hands a snapshot to the consumer, giving up on cancellation.
func (a *Adapter) deliver(ctx context.Context, snap *snapshot.Snapshot) {
	select {
	case a.snaps <- snap:
	case <-ctx.Done():
	}
}

// notify emits a connectivity event without blocking.
func (a *Adapter) notify(online bool) {
	select {
	case a.events <- Event{Online: online}:
	default:
	}
}

func (a *Adapter) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := a.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("GET %s: %s", path, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("GET %s: decode: %w", path, err)
	}
	return nil
}
