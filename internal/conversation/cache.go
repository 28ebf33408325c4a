// Package conversation keeps Gilbert's short-term memory: the last few
// turns of each (user, channel) conversation, capped and in order.
package conversation

import "sync"

// Turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is a single message in a conversation.
type Turn struct {
	Role    string
	Content string
}

// Key identifies one conversation: a user talking in a channel.
type Key struct {
	UserID    string
	ChannelID string
}

// DefaultMaxTurns is the cap used when none is configured.
const DefaultMaxTurns = 10

// Cache holds a bounded turn history per conversation key. Appends on the
// same key are serialized; eviction is strictly FIFO so the sequence never
// exceeds the cap and always keeps the most recent turns in original order.
//
// Contention is low (one append per inbound message), so a single mutex
// covers all keys.
type Cache struct {
	mu       sync.Mutex
	maxTurns int
	turns    map[Key][]Turn
}

// NewCache creates a cache with the given capacity per key.
// Non-positive caps fall back to DefaultMaxTurns.
func NewCache(maxTurns int) *Cache {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &Cache{
		maxTurns: maxTurns,
		turns:    make(map[Key][]Turn),
	}
}

// Append records a turn for the key, creating the sequence if absent and
// dropping the oldest turns beyond the cap.
func (c *Cache) Append(key Key, role, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	seq := append(c.turns[key], Turn{Role: role, Content: content})
	if len(seq) > c.maxTurns {
		// Copy instead of re-slicing so evicted turns don't pin the
		// backing array forever.
		trimmed := make([]Turn, c.maxTurns)
		copy(trimmed, seq[len(seq)-c.maxTurns:])
		seq = trimmed
	}
	c.turns[key] = seq
}

// Get returns a copy of the current sequence for the key, oldest first.
// A missing key yields an empty slice.
func (c *Cache) Get(key Key) []Turn {
	c.mu.Lock()
	defer c.mu.Unlock()

	seq := c.turns[key]
	out := make([]Turn, len(seq))
	copy(out, seq)
	return out
}

// Len returns the number of turns currently held for the key.
func (c *Cache) Len(key Key) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.turns[key])
}

// MaxTurns returns the configured cap.
func (c *Cache) MaxTurns() int {
	return c.maxTurns
}
