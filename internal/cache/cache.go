// Package cache persists the viewer's local state: the set of processed
// message keys, the current conversation id, and the theme preference.
//
// State is read once at startup and written through on every mutation. The
// storage itself sits behind the KV port so the reconciler stays
// storage-agnostic; production uses the SQLite store, tests the in-memory
// one.
package cache

import (
	"encoding/json"
	"fmt"
	"sort"
)

// KV is the minimal key-value port the cache persists through.
type KV interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Close() error
}

// Storage keys.
const (
	keyProcessed      = "processed_message_ids"
	keyConversationID = "current_conversation_id"
	keyTheme          = "theme_preference"
)

// Theme preference values. Absent preference means inverted.
const (
	ThemeNormal   = "normal"
	ThemeInverted = "inverted"
)

// Cache is the in-memory view of the persisted state.
type Cache struct {
	kv             KV
	processed      map[string]struct{}
	conversationID string
	theme          string
}

// Load reads the persisted state once. Missing keys start empty; a corrupt
// processed set is discarded rather than failing startup.
func Load(kv KV) (*Cache, error) {
	c := &Cache{
		kv:        kv,
		processed: make(map[string]struct{}),
		theme:     ThemeInverted,
	}

	raw, ok, err := kv.Get(keyProcessed)
	if err != nil {
		return nil, fmt.Errorf("read processed set: %w", err)
	}
	if ok {
		var keys []string
		if err := json.Unmarshal([]byte(raw), &keys); err == nil {
			for _, k := range keys {
				c.processed[k] = struct{}{}
			}
		}
	}

	if id, ok, err := kv.Get(keyConversationID); err != nil {
		return nil, fmt.Errorf("read conversation id: %w", err)
	} else if ok {
		c.conversationID = id
	}

	if theme, ok, err := kv.Get(keyTheme); err != nil {
		return nil, fmt.Errorf("read theme: %w", err)
	} else if ok && theme == ThemeNormal {
		c.theme = ThemeNormal
	}

	return c, nil
}

// Seen reports whether a composite key has been processed.
func (c *Cache) Seen(key string) bool {
	_, ok := c.processed[key]
	return ok
}

// ProcessedCount returns the size of the processed set.
func (c *Cache) ProcessedCount() int { return len(c.processed) }

// Mark adds a composite key to the processed set and persists it.
func (c *Cache) Mark(key string) error {
	if _, ok := c.processed[key]; ok {
		return nil
	}
	c.processed[key] = struct{}{}
	return c.writeProcessed()
}

// Forget drops a composite key from the processed set and persists it.
func (c *Cache) Forget(key string) error {
	if _, ok := c.processed[key]; !ok {
		return nil
	}
	delete(c.processed, key)
	return c.writeProcessed()
}

// Reset clears the processed set and records a new current conversation.
func (c *Cache) Reset(conversationID string) error {
	c.processed = make(map[string]struct{})
	c.conversationID = conversationID
	if err := c.writeProcessed(); err != nil {
		return err
	}
	return c.kv.Set(keyConversationID, conversationID)
}

// ConversationID returns the remembered current conversation id ("" if none).
func (c *Cache) ConversationID() string { return c.conversationID }

// Theme returns the persisted theme preference.
func (c *Cache) Theme() string { return c.theme }

// SetTheme persists a theme preference.
func (c *Cache) SetTheme(theme string) error {
	if theme != ThemeNormal && theme != ThemeInverted {
		return fmt.Errorf("unknown theme %q", theme)
	}
	c.theme = theme
	return c.kv.Set(keyTheme, theme)
}

// writeProcessed serializes the set as a sorted JSON array. Sorting keeps the
// stored value stable for equal sets.
func (c *Cache) writeProcessed() error {
	keys := make([]string, 0, len(c.processed))
	for k := range c.processed {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	raw, err := json.Marshal(keys)
	if err != nil {
		return err
	}
	return c.kv.Set(keyProcessed, string(raw))
}
