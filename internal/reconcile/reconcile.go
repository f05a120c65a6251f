// Package reconcile merges transport snapshots into a stable local render
// model.
//
// Two independent channels (push and poll) feed the same Apply entry point;
// Apply must therefore be safe to call redundantly and out of order. The
// message feed is protected per key by a monotonic-growth rule, and the
// stateless regions (history, beacon, plan, stats, status) by a receive-order
// sequence gate so a slow poll response cannot overwrite newer push data.
package reconcile

import (
	"log/slog"

	"github.com/grokgates/gateview/internal/cache"
	"github.com/grokgates/gateview/internal/snapshot"
)

// Result reports what one Apply call changed, for the UI to react to
// (reveal animations, stick-to-bottom scrolling).
type Result struct {
	// Reset is true when the conversation identity changed and the store
	// was rebuilt from scratch.
	Reset bool
	// Appended lists keys added to the feed, in arrival order.
	Appended []string
	// Revealed lists the subset of Appended never seen before (not in the
	// persisted processed set), i.e. candidates for the reveal animation.
	Revealed []string
	// Updated lists keys whose content grew.
	Updated []string
	// Removed lists keys garbage-collected from the feed.
	Removed []string
	// Stale is true when the snapshot's stateless regions were rejected by
	// the sequence gate.
	Stale bool
}

// Changed reports whether the apply mutated the message feed at all.
func (r Result) Changed() bool {
	return r.Reset || len(r.Appended) > 0 || len(r.Updated) > 0 || len(r.Removed) > 0
}

// Reconciler owns the message store and the stateless render regions.
type Reconciler struct {
	cache *cache.Cache
	store *MessageStore

	current *snapshot.Conversation
	history []snapshot.HistoryEntry
	beacon  []snapshot.BeaconEntry
	plan    snapshot.Plan
	stats   *snapshot.Stats
	status  *snapshot.SystemStatus

	// Sequence gates, one per region group (push updates carry the board
	// regions, either channel may carry conversations).
	boardSeq    uint64
	haveBoard   bool
	historySeq  uint64
	haveHistory bool
}

// New creates a reconciler over the given persisted cache.
func New(c *cache.Cache) *Reconciler {
	return &Reconciler{cache: c, store: NewMessageStore()}
}

// Store exposes the message store for rendering.
func (r *Reconciler) Store() *MessageStore { return r.store }

// Current returns the metadata of the current conversation, if any.
func (r *Reconciler) Current() *snapshot.Conversation { return r.current }

// History returns the latest history list.
func (r *Reconciler) History() []snapshot.HistoryEntry { return r.history }

// Beacon returns the render-visible beacon entries. Error entries are
// suppressed here; they were logged when the snapshot was applied.
func (r *Reconciler) Beacon() []snapshot.BeaconEntry {
	out := make([]snapshot.BeaconEntry, 0, len(r.beacon))
	for _, e := range r.beacon {
		if e.Kind == snapshot.BeaconError {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Plan returns the latest dominance plan union.
func (r *Reconciler) Plan() snapshot.Plan { return r.plan }

// Stats returns the latest stats, or nil.
func (r *Reconciler) Stats() *snapshot.Stats { return r.stats }

// Status returns the latest system status, or nil.
func (r *Reconciler) Status() *snapshot.SystemStatus { return r.status }

// Apply merges one snapshot into the local render model.
func (r *Reconciler) Apply(snap *snapshot.Snapshot) Result {
	var res Result
	if snap == nil {
		return res
	}

	if snap.HasConversations {
		r.applyConversations(snap, &res)
	}
	if snap.Origin == snapshot.OriginPush {
		r.applyBoard(snap, &res)
	}
	return res
}

// applyConversations runs the identity check, incremental merge, and garbage
// collection over the snapshot's current conversation, then replaces the
// history region.
func (r *Reconciler) applyConversations(snap *snapshot.Snapshot, res *Result) {
	cur := snap.Current

	// Identity check. A nil current conversation clears everything; a new id
	// (or a first id where none was remembered) is a full reset.
	switch {
	case cur == nil:
		if r.store.Len() > 0 || r.cache.ConversationID() != "" {
			r.store.clear()
			if err := r.cache.Reset(""); err != nil {
				slog.Warn("cache reset failed", "error", err)
			}
			res.Reset = true
		}
		r.current = nil
	case cur.ID != r.cache.ConversationID():
		r.store.clear()
		if err := r.cache.Reset(cur.ID); err != nil {
			slog.Warn("cache reset failed", "error", err)
		}
		res.Reset = true
	}

	if cur != nil {
		r.current = cur
		live := make(map[string]struct{}, len(cur.Messages))

		// Incremental merge in snapshot array order.
		for _, m := range cur.Messages {
			key := m.Key()
			live[key] = struct{}{}

			existing, ok := r.store.Get(key)
			if !ok {
				r.store.append(m)
				res.Appended = append(res.Appended, key)
				if !r.cache.Seen(key) {
					res.Revealed = append(res.Revealed, key)
					if err := r.cache.Mark(key); err != nil {
						slog.Warn("cache mark failed", "key", key, "error", err)
					}
				}
				continue
			}
			// Monotonic-growth rule: a shorter redelivery never shrinks
			// rendered content.
			if len(m.Content) >= len(existing.Content) && m.Content != existing.Content {
				r.store.nodes[key].Content = m.Content
				res.Updated = append(res.Updated, key)
			}
		}

		// Garbage collection: drop keys absent from this snapshot.
		for _, n := range r.store.Nodes() {
			if _, ok := live[n.Key]; ok {
				continue
			}
			r.store.remove(n.Key)
			if err := r.cache.Forget(n.Key); err != nil {
				slog.Warn("cache forget failed", "key", n.Key, "error", err)
			}
			res.Removed = append(res.Removed, n.Key)
		}
	}

	// History is stateless: replaced wholesale, gated on receive order.
	if r.haveHistory && snap.Seq < r.historySeq {
		res.Stale = true
		slog.Debug("stale history snapshot rejected",
			"seq", snap.Seq, "applied", r.historySeq, "origin", snap.Origin)
		return
	}
	r.history = snap.History
	r.historySeq = snap.Seq
	r.haveHistory = true
}

// applyBoard replaces the beacon, plan, stats, and status regions from a push
// update, subject to the sequence gate.
func (r *Reconciler) applyBoard(snap *snapshot.Snapshot, res *Result) {
	if r.haveBoard && snap.Seq < r.boardSeq {
		res.Stale = true
		slog.Debug("stale board snapshot rejected",
			"seq", snap.Seq, "applied", r.boardSeq)
		return
	}
	r.boardSeq = snap.Seq
	r.haveBoard = true

	for _, e := range snap.Beacon {
		if e.Kind == snapshot.BeaconError {
			slog.Warn("beacon error entry suppressed", "error", e.Text)
		}
	}
	r.beacon = snap.Beacon
	r.plan = snap.Plan
	r.stats = snap.Stats
	r.status = snap.Status
}
