// Package snapshot defines the wire and render data model for gateview.
//
// A Snapshot is one complete state payload delivered by a transport channel:
// the current conversation, conversation history, beacon feed, dominance
// plan, stats, and system status. Beacon entries and plans arrive from the
// server in several historical shapes; both are decoded into explicit tagged
// unions here so downstream code switches on a single discriminant instead of
// sniffing field presence.
package snapshot

import (
	"encoding/json"
	"strconv"
	"time"
)

// Origin identifies which transport channel delivered a snapshot.
type Origin string

const (
	OriginPush Origin = "push"
	OriginPoll Origin = "poll"
)

// Snapshot is one state payload from either transport channel. Seq is
// assigned at receive time by the transport and increases monotonically
// across both channels.
type Snapshot struct {
	Seq    uint64
	Origin Origin

	Current *Conversation
	History []HistoryEntry
	Beacon  []BeaconEntry
	Plan    Plan
	Stats   *Stats
	Status  *SystemStatus

	// HasConversations marks whether the payload carried conversation data
	// at all. Push updates may omit it; such snapshots must not clear the
	// message feed.
	HasConversations bool

	ReceivedAt time.Time
}

// Message is one conversation message. Timestamp is Unix milliseconds.
type Message struct {
	Agent     string `json:"agent"`
	Timestamp int64  `json:"timestamp"`
	Content   string `json:"content"`
}

// Key returns the message's composite key, unique within a conversation.
func (m Message) Key() string {
	return m.Agent + ":" + strconv.FormatInt(m.Timestamp, 10)
}

// Conversation is the currently running dialogue.
type Conversation struct {
	ID           string    `json:"id"`
	Status       string    `json:"status"`
	Topic        string    `json:"starter_topic"`
	ThreadName   string    `json:"thread_name"`
	StartedAt    string    `json:"started_at"`
	MessageCount int       `json:"message_count"`
	Messages     []Message `json:"messages"`
}

// Title prefers the generated thread name over the starter topic.
func (c *Conversation) Title() string {
	if c.ThreadName != "" {
		return c.ThreadName
	}
	if c.Topic != "" {
		return c.Topic
	}
	return "Untitled Thread"
}

// HistoryEntry summarizes one past conversation. The list is stateless:
// fully replaced on every snapshot.
type HistoryEntry struct {
	ID           string
	Topic        string
	Status       string
	MessageCount int
	StartedAt    string
}

// UnmarshalJSON accepts the full conversation shape the server sends for
// history entries, keeping only the summary fields.
func (h *HistoryEntry) UnmarshalJSON(data []byte) error {
	var c Conversation
	if err := json.Unmarshal(data, &c); err != nil {
		return err
	}
	n := c.MessageCount
	if n == 0 {
		n = len(c.Messages)
	}
	*h = HistoryEntry{
		ID:           c.ID,
		Topic:        c.Title(),
		Status:       c.Status,
		MessageCount: n,
		StartedAt:    c.StartedAt,
	}
	return nil
}

// Stats carries the cosmetic counters shown in the status line.
type Stats struct {
	BoardCount  int    `json:"board_count"`
	BeaconCount int    `json:"beacon_count"`
	Timestamp   string `json:"timestamp"`
}

// UrgeMetrics mirrors the urge engine's monitoring payload.
type UrgeMetrics struct {
	FomoIndex        float64 `json:"fomo_index"`
	EuphoriaMode     bool    `json:"euphoria_mode"`
	EuphoriaCycles   int     `json:"euphoria_cycles"`
	FrustrationLevel string  `json:"frustration_level"`
}

// SystemStatus is the beacon phase plus optional urge metrics.
type SystemStatus struct {
	Phase string       `json:"phase"`
	Urge  *UrgeMetrics `json:"urge"`
}

// ConversationsPayload is the GET /api/conversations response body and the
// optional conversations field of a push update.
type ConversationsPayload struct {
	Current *Conversation  `json:"current"`
	History []HistoryEntry `json:"history"`
}

// UpdatePayload is the body of a push-channel "update" event.
type UpdatePayload struct {
	Beacon        []BeaconEntry         `json:"beacon"`
	DominancePlan Plan                  `json:"dominance_plan"`
	Conversations *ConversationsPayload `json:"conversations"`
	Stats         *Stats                `json:"stats"`
	SystemStatus  *SystemStatus         `json:"system_status"`
}

// ArtPayload is the GET /api/ascii-art response body.
type ArtPayload struct {
	ASCIIArt string `json:"ascii_art"`
}
