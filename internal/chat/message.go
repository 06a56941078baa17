package chat

import (
	"sync"
	"time"
)

// Origin tells who wrote a message.
type Origin string

const (
	OriginAssistant Origin = "assistant"
	OriginUser      Origin = "user"
)

type Message struct {
	ID        int64
	Origin    Origin
	Text      string
	Timestamp time.Time
}

// FromAssistant reports whether the assistant wrote the message.
func (m Message) FromAssistant() bool {
	return m.Origin == OriginAssistant
}

// Transcript is an append-only list of messages safe for concurrent use.
type Transcript struct {
	mu       sync.RWMutex
	messages []Message
}

func (t *Transcript) append(msgs ...Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append(t.messages, msgs...)
}

// Messages returns a snapshot of the transcript.
func (t *Transcript) Messages() []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

// CountFrom counts the messages written by origin.
func (t *Transcript) CountFrom(origin Origin) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for _, m := range t.messages {
		if m.Origin == origin {
			n++
		}
	}
	return n
}
