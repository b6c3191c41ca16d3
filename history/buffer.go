// Package history holds the per-session conversation log supplied to
// the language model for context.
package history

import "personakit/core"

// Buffer is an append-only, capacity-bounded log of conversation turns.
// When the cap is exceeded the oldest turns are evicted first; eviction
// is silent and expected, not an error. Buffer itself is not
// synchronized: each buffer is owned by one Session whose turn lock
// serializes access.
type Buffer struct {
	capacity int
	seq      uint64
	turns    []core.Turn
}

// DefaultCapacity bounds prompt size when no cap is configured.
const DefaultCapacity = 20

// NewBuffer creates a buffer holding at most capacity turns.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{capacity: capacity}
}

// Append adds a turn with the next monotonic sequence index, evicting
// the oldest turn(s) if the cap is exceeded.
func (b *Buffer) Append(role core.Role, text string) core.Turn {
	turn := core.Turn{Role: role, Text: text, Seq: b.seq}
	b.seq++
	b.turns = append(b.turns, turn)
	if excess := len(b.turns) - b.capacity; excess > 0 {
		b.turns = append(b.turns[:0], b.turns[excess:]...)
	}
	return turn
}

// Snapshot returns a copy of the ordered turns for inclusion in the
// next prompt. Mutating the returned slice does not affect the buffer.
func (b *Buffer) Snapshot() []core.Turn {
	out := make([]core.Turn, len(b.turns))
	copy(out, b.turns)
	return out
}

// Len returns the number of turns currently held.
func (b *Buffer) Len() int {
	return len(b.turns)
}

// Capacity returns the configured cap.
func (b *Buffer) Capacity() int {
	return b.capacity
}
