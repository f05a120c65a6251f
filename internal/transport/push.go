package transport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/grokgates/gateview/internal/snapshot"
)

// Frame event types on the push channel.
const (
	frameUpdate = "update"
	frameTyping = "typing_status"
)

// wsFrame is one JSON frame on the push channel.
type wsFrame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// typingPayload is the client-emitted typing_status body.
type typingPayload struct {
	IsTyping bool `json:"isTyping"`
}

// pushClient maintains the websocket connection to the server, reconnecting
// with a fixed delay. Connection establishment and loss map to the online /
// offline indicator events.
type pushClient struct {
	adapter *Adapter
	wsURL   string
	dial    *http.Client

	mu   sync.Mutex
	conn *websocket.Conn
}

func newPushClient(a *Adapter) *pushClient {
	return &pushClient{
		adapter: a,
		wsURL:   wsURL(a.baseURL),
		// Dial rejects clients with a Timeout set; share the transport only.
		dial: &http.Client{Transport: a.http.Transport},
	}
}

// wsURL converts the HTTP base URL to the websocket endpoint.
func wsURL(base string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base + "/ws"
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String()
}

func (p *pushClient) run(ctx context.Context) {
	for {
		if err := p.session(ctx); err != nil && ctx.Err() == nil {
			slog.Warn("push channel lost", "error", err)
		}
		p.adapter.notify(false)

		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

// session dials once and reads frames until the connection drops.
func (p *pushClient) session(ctx context.Context) error {
	conn, _, err := websocket.Dial(ctx, p.wsURL, &websocket.DialOptions{
		HTTPClient: p.dial,
	})
	if err != nil {
		return err
	}
	// Update frames can be large (full beacon feed plus plan).
	conn.SetReadLimit(1 << 20)

	p.setConn(conn)
	defer func() {
		p.setConn(nil)
		conn.Close(websocket.StatusNormalClosure, "session ended")
	}()

	p.adapter.notify(true)
	slog.Info("push channel connected", "url", p.wsURL)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		p.handleFrame(ctx, data)
	}
}

func (p *pushClient) handleFrame(ctx context.Context, data []byte) {
	var frame wsFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		slog.Warn("malformed push frame", "error", err)
		return
	}
	if frame.Type != frameUpdate {
		slog.Debug("ignoring push frame", "type", frame.Type)
		return
	}

	var update snapshot.UpdatePayload
	if err := json.Unmarshal(frame.Payload, &update); err != nil {
		slog.Warn("malformed update payload", "error", err)
		return
	}

	snap := &snapshot.Snapshot{
		Seq:        p.adapter.seq.Add(1),
		Origin:     snapshot.OriginPush,
		Beacon:     update.Beacon,
		Plan:       update.DominancePlan,
		Stats:      update.Stats,
		Status:     update.SystemStatus,
		ReceivedAt: time.Now(),
	}
	if update.Conversations != nil {
		snap.Current = update.Conversations.Current
		snap.History = update.Conversations.History
		snap.HasConversations = true
	}
	p.adapter.deliver(ctx, snap)
}

func (p *pushClient) setConn(conn *websocket.Conn) {
	p.mu.Lock()
	p.conn = conn
	p.mu.Unlock()
}

// sendTyping writes a typing_status frame if the channel is up. Failures are
// cosmetic and only logged.
func (p *pushClient) sendTyping(isTyping bool) {
	p.mu.Lock()
	conn := p.conn
	p.mu.Unlock()
	if conn == nil {
		return
	}

	payload, _ := json.Marshal(typingPayload{IsTyping: isTyping})
	frame, _ := json.Marshal(wsFrame{Type: frameTyping, Payload: payload})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, frame); err != nil {
		slog.Debug("typing_status write failed", "error", err)
	}
}
