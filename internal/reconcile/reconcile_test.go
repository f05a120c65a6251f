package reconcile

import (
	"testing"

	"github.com/grokgates/gateview/internal/cache"
	"github.com/grokgates/gateview/internal/snapshot"
)

// newTestReconciler builds a reconciler over an in-memory cache.
func newTestReconciler(t *testing.T) (*Reconciler, *cache.MemoryKV) {
	t.Helper()
	kv := cache.NewMemoryKV()
	c, err := cache.Load(kv)
	if err != nil {
		t.Fatalf("cache.Load: %v", err)
	}
	return New(c), kv
}

// convSnap builds a poll-style snapshot carrying only conversation data.
func convSnap(seq uint64, id string, msgs ...snapshot.Message) *snapshot.Snapshot {
	var cur *snapshot.Conversation
	if id != "" {
		cur = &snapshot.Conversation{ID: id, Status: "active", Messages: msgs}
	}
	return &snapshot.Snapshot{
		Seq:              seq,
		Origin:           snapshot.OriginPoll,
		Current:          cur,
		HasConversations: true,
	}
}

func msg(agent string, ts int64, content string) snapshot.Message {
	return snapshot.Message{Agent: agent, Timestamp: ts, Content: content}
}

func TestApplyCreatesNodes(t *testing.T) {
	r, _ := newTestReconciler(t)

	res := r.Apply(convSnap(1, "c1", msg("OBSERVER", 1000, "Hi")))
	if !res.Reset {
		t.Error("first snapshot with a conversation should reset")
	}
	if len(res.Appended) != 1 || res.Appended[0] != "OBSERVER:1000" {
		t.Fatalf("appended = %v", res.Appended)
	}
	n, ok := r.Store().Get("OBSERVER:1000")
	if !ok || n.Content != "Hi" {
		t.Fatalf("node = %+v ok=%v", n, ok)
	}
}

func TestMonotonicContentGrowth(t *testing.T) {
	r, _ := newTestReconciler(t)

	r.Apply(convSnap(1, "c1", msg("OBSERVER", 1000, "Hi")))
	res := r.Apply(convSnap(2, "c1", msg("OBSERVER", 1000, "Hi there")))
	if len(res.Updated) != 1 {
		t.Fatalf("updated = %v", res.Updated)
	}
	n, _ := r.Store().Get("OBSERVER:1000")
	if n.Content != "Hi there" {
		t.Errorf("content = %q, want %q", n.Content, "Hi there")
	}

	// A shrinking redelivery must not regress the rendered content.
	res = r.Apply(convSnap(3, "c1", msg("OBSERVER", 1000, "Hi")))
	if len(res.Updated) != 0 {
		t.Errorf("shrinking content should not update, got %v", res.Updated)
	}
	n, _ = r.Store().Get("OBSERVER:1000")
	if n.Content != "Hi there" {
		t.Errorf("content regressed to %q", n.Content)
	}
}

func TestEqualLengthReplaces(t *testing.T) {
	r, _ := newTestReconciler(t)
	r.Apply(convSnap(1, "c1", msg("EGO", 1, "abc")))
	r.Apply(convSnap(2, "c1", msg("EGO", 1, "xyz")))
	n, _ := r.Store().Get("EGO:1")
	if n.Content != "xyz" {
		t.Errorf("equal-length redelivery should replace, got %q", n.Content)
	}
}

func TestConversationChangeResets(t *testing.T) {
	r, _ := newTestReconciler(t)

	r.Apply(convSnap(1, "c1", msg("A", 1, "x"), msg("B", 2, "y")))
	if r.Store().Len() != 2 {
		t.Fatalf("store len = %d", r.Store().Len())
	}

	res := r.Apply(convSnap(2, "c2", msg("C", 3, "z")))
	if !res.Reset {
		t.Error("id change should reset")
	}
	if r.Store().Len() != 1 {
		t.Errorf("store should hold exactly the incoming messages, len = %d", r.Store().Len())
	}
	if _, ok := r.Store().Get("A:1"); ok {
		t.Error("old conversation message carried over after reset")
	}
}

func TestGarbageCollection(t *testing.T) {
	r, _ := newTestReconciler(t)

	r.Apply(convSnap(1, "c1", msg("A", 1, "x"), msg("B", 2, "y")))
	res := r.Apply(convSnap(2, "c1", msg("B", 2, "y")))
	if len(res.Removed) != 1 || res.Removed[0] != "A:1" {
		t.Fatalf("removed = %v", res.Removed)
	}
	if _, ok := r.Store().Get("A:1"); ok {
		t.Error("A:1 should be gone immediately after Apply")
	}
	if r.Store().Len() != 1 {
		t.Errorf("store len = %d, want 1", r.Store().Len())
	}
}

func TestIdempotentApply(t *testing.T) {
	r, _ := newTestReconciler(t)

	snap := convSnap(1, "c1", msg("A", 1, "x"), msg("B", 2, "y"))
	r.Apply(snap)
	res := r.Apply(snap)
	if res.Changed() {
		t.Errorf("second identical apply should not mutate: %+v", res)
	}
}

func TestEmptyCurrentClearsStore(t *testing.T) {
	r, _ := newTestReconciler(t)

	r.Apply(convSnap(1, "c1", msg("A", 1, "x")))
	res := r.Apply(convSnap(2, ""))
	if !res.Reset {
		t.Error("losing the current conversation should reset")
	}
	if r.Store().Len() != 0 {
		t.Errorf("store len = %d, want 0", r.Store().Len())
	}
	if r.Current() != nil {
		t.Error("current should be nil")
	}

	// And again: applying empty twice is a no-op.
	res = r.Apply(convSnap(3, ""))
	if res.Reset {
		t.Error("second empty apply should not reset again")
	}
}

func TestArrivalOrderPreserved(t *testing.T) {
	r, _ := newTestReconciler(t)

	r.Apply(convSnap(1, "c1", msg("B", 2, "y"), msg("A", 1, "x")))
	nodes := r.Store().Nodes()
	if len(nodes) != 2 || nodes[0].Key != "B:2" || nodes[1].Key != "A:1" {
		t.Errorf("order = %v, want snapshot array order", nodes)
	}

	// New message appends at the end regardless of timestamp.
	r.Apply(convSnap(2, "c1", msg("B", 2, "y"), msg("A", 1, "x"), msg("C", 0, "z")))
	nodes = r.Store().Nodes()
	if nodes[2].Key != "C:0" {
		t.Errorf("expected C:0 appended last, got %v", nodes)
	}
}

func TestRevealedSkipsPersistedKeys(t *testing.T) {
	kv := cache.NewMemoryKV()
	c, err := cache.Load(kv)
	if err != nil {
		t.Fatal(err)
	}
	// Simulate a previous session that already saw OBSERVER:1000 in c1.
	if err := c.Reset("c1"); err != nil {
		t.Fatal(err)
	}
	if err := c.Mark("OBSERVER:1000"); err != nil {
		t.Fatal(err)
	}

	r := New(c)
	res := r.Apply(convSnap(1, "c1", msg("OBSERVER", 1000, "Hi"), msg("EGO", 2000, "new")))
	if res.Reset {
		t.Error("same conversation id should not reset")
	}
	if len(res.Appended) != 2 {
		t.Fatalf("appended = %v", res.Appended)
	}
	if len(res.Revealed) != 1 || res.Revealed[0] != "EGO:2000" {
		t.Errorf("revealed = %v, want only the unseen key", res.Revealed)
	}
}

func TestPushUpdateReplacesBoardRegions(t *testing.T) {
	r, _ := newTestReconciler(t)

	snap := &snapshot.Snapshot{
		Seq:    1,
		Origin: snapshot.OriginPush,
		Beacon: []snapshot.BeaconEntry{
			{Kind: snapshot.BeaconFormatted, Text: "line"},
			{Kind: snapshot.BeaconError, Text: "api down"},
		},
		Plan:   snapshot.Plan{Kind: snapshot.PlanProtocol, Protocol: &snapshot.ProtocolPlan{Mission: "m"}},
		Stats:  &snapshot.Stats{BoardCount: 3},
		Status: &snapshot.SystemStatus{Phase: "WORLD_SCAN"},
	}
	r.Apply(snap)

	if got := r.Beacon(); len(got) != 1 || got[0].Text != "line" {
		t.Errorf("beacon should suppress error entries, got %v", got)
	}
	if r.Plan().Kind != snapshot.PlanProtocol {
		t.Errorf("plan kind = %v", r.Plan().Kind)
	}
	if r.Stats().BoardCount != 3 || r.Status().Phase != "WORLD_SCAN" {
		t.Error("stats/status not applied")
	}
}

func TestStalePushRejectedForBoard(t *testing.T) {
	r, _ := newTestReconciler(t)

	r.Apply(&snapshot.Snapshot{
		Seq:    5,
		Origin: snapshot.OriginPush,
		Status: &snapshot.SystemStatus{Phase: "SELF_DIRECTED"},
	})
	res := r.Apply(&snapshot.Snapshot{
		Seq:    3,
		Origin: snapshot.OriginPush,
		Status: &snapshot.SystemStatus{Phase: "WORLD_SCAN"},
	})
	if !res.Stale {
		t.Error("older snapshot should be flagged stale")
	}
	if r.Status().Phase != "SELF_DIRECTED" {
		t.Errorf("stale snapshot overwrote status: %q", r.Status().Phase)
	}
}

func TestStaleHistoryRejectedButMessagesMerged(t *testing.T) {
	r, _ := newTestReconciler(t)

	newer := convSnap(10, "c1", msg("A", 1, "x"))
	newer.History = []snapshot.HistoryEntry{{ID: "h2", Topic: "newer"}}
	r.Apply(newer)

	// A poll response that started earlier and finished late: message merge
	// still applies (per-key monotonic rule protects it), history does not.
	older := convSnap(4, "c1", msg("A", 1, "x"), msg("B", 2, "y"))
	older.History = []snapshot.HistoryEntry{{ID: "h1", Topic: "older"}}
	res := r.Apply(older)

	if !res.Stale {
		t.Error("expected stale flag for the history region")
	}
	if _, ok := r.Store().Get("B:2"); !ok {
		t.Error("message merge should apply regardless of the gate")
	}
	if len(r.History()) != 1 || r.History()[0].ID != "h2" {
		t.Errorf("history = %v, want the newer list kept", r.History())
	}
}

func TestPushWithoutConversationsKeepsFeed(t *testing.T) {
	r, _ := newTestReconciler(t)

	r.Apply(convSnap(1, "c1", msg("A", 1, "x")))
	r.Apply(&snapshot.Snapshot{
		Seq:    2,
		Origin: snapshot.OriginPush,
		Stats:  &snapshot.Stats{BoardCount: 1},
	})
	if r.Store().Len() != 1 {
		t.Error("an update without conversation data must not clear the feed")
	}
}

func TestPersistedSetTracksStore(t *testing.T) {
	r, _ := newTestReconciler(t)
	c := rCache(r)

	r.Apply(convSnap(1, "c1", msg("A", 1, "x"), msg("B", 2, "y")))
	if !c.Seen("A:1") || !c.Seen("B:2") {
		t.Error("appended keys should be persisted as processed")
	}

	r.Apply(convSnap(2, "c1", msg("B", 2, "y")))
	if c.Seen("A:1") {
		t.Error("garbage-collected key should be dropped from the processed set")
	}
}

// rCache reaches the reconciler's cache for assertions.
func rCache(r *Reconciler) *cache.Cache { return r.cache }
