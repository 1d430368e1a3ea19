package chat

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Role identifies the author of a transcript message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	// RoleError marks a failed generation turn; the transcript itself is the
	// user-visible error channel.
	RoleError Role = "error"
)

// Valid reports whether the role belongs to the closed tag set.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleError:
		return true
	}
	return false
}

// Message is one turn in a session's log. Timestamp is epoch milliseconds
// and doubles as the unique key within the log; insertion order equals
// timestamp order.
type Message struct {
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

// Session is the index entry for one conversation. ID is opaque and
// immutable after creation; MessageCount tracks the log length.
type Session struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	UpdatedAt    int64  `json:"updatedAt"`
	MessageCount int    `json:"messageCount"`
}

const (
	titleRuneLimit = 30
	titleEllipsis  = "..."
	sessionIDWord  = "chat"
)

// DeriveTitle builds the default session title from the first message:
// the first 30 characters of the content plus an ellipsis marker.
func DeriveTitle(content string) string {
	runes := []rune(content)
	if len(runes) > titleRuneLimit {
		runes = runes[:titleRuneLimit]
	}
	return string(runes) + titleEllipsis
}

var lastSessionMilli atomic.Int64

// NewSessionID mints a timestamp-derived session id. Same-millisecond mints
// are bumped forward so ids stay unique within one process.
func NewSessionID() string {
	ms := time.Now().UnixMilli()
	for {
		prev := lastSessionMilli.Load()
		if ms <= prev {
			ms = prev + 1
		}
		if lastSessionMilli.CompareAndSwap(prev, ms) {
			return fmt.Sprintf("%s_%d", sessionIDWord, ms)
		}
	}
}
