// Package controller mediates user actions over the session store and the
// generation collaborator. One controller instance backs one view: it holds
// the active session's in-memory transcript and allows at most one
// outstanding generation call.
package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rayan4-dot/kudoai/kernel/chat"
	"github.com/rayan4-dot/kudoai/kernel/model"
	"github.com/rayan4-dot/kudoai/kernel/store"
)

// Validation rejections: the action is ignored, nothing is recorded.
var (
	// ErrBusy rejects a submit while a reply is still pending.
	ErrBusy = errors.New("controller: a reply is already pending")
	// ErrEmptyInput rejects whitespace-only submit text.
	ErrEmptyInput = errors.New("controller: input is empty")
	// ErrEmptyTitle rejects whitespace-only rename titles.
	ErrEmptyTitle = errors.New("controller: title is empty")
)

// MissingCredentialNotice is the transcript content for a generation
// attempt without a configured API key.
const MissingCredentialNotice = "API key not found. Add your Gemini API key to the .env file as GEMINI_API_KEY, or configure a provider with /connect."

// Config configures Controller.
type Config struct {
	Store *store.Store
	// Generator may be nil when no model is configured; submits then record
	// the missing-credential notice.
	Generator model.Generator
	Logger    zerolog.Logger
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// Controller is the session lifecycle state machine. Zero active id with an
// empty transcript is the idle state; a bound id makes the session active;
// awaiting marks an outstanding generation call.
type Controller struct {
	store *store.Store
	gen   model.Generator
	log   zerolog.Logger
	now   func() time.Time

	mu        sync.Mutex
	activeID  string
	messages  []chat.Message
	awaiting  bool
	lastStamp int64
}

func New(cfg Config) (*Controller, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("controller: store is nil")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Controller{
		store: cfg.Store,
		gen:   cfg.Generator,
		log:   cfg.Logger.With().Str("component", "controller").Logger(),
		now:   now,
	}, nil
}

// SetGenerator swaps the generation collaborator (for example after
// /connect configures a provider). Safe while idle or awaiting; an
// in-flight submit keeps using the generator it started with.
func (c *Controller) SetGenerator(gen model.Generator) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen = gen
}

// NewChat clears the active session binding. Persisted sessions are not
// touched; a pending reply keeps its originating session.
func (c *Controller) NewChat() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.activeID = ""
	c.messages = nil
}

// SelectChat binds id as the active session and loads its log. An unknown
// id yields an empty transcript but still binds the id.
func (c *Controller) SelectChat(id string) []chat.Message {
	loaded := c.store.LoadMessages(id)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.activeID = id
	c.messages = append([]chat.Message(nil), loaded...)
	return append([]chat.Message(nil), c.messages...)
}

// Submit records one user turn and blocks until the assistant reply (or an
// error-role message) has been appended and persisted. The user message is
// persisted before the generation call starts; the awaiting flag always
// clears on return. Generation failures are recorded in the transcript,
// never returned.
func (c *Controller) Submit(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyInput
	}

	c.mu.Lock()
	if c.awaiting {
		c.mu.Unlock()
		return ErrBusy
	}
	c.awaiting = true
	title := ""
	if c.activeID == "" {
		c.activeID = chat.NewSessionID()
		c.messages = nil
		title = chat.DeriveTitle(text)
	}
	sessionID := c.activeID
	gen := c.gen
	c.messages = append(c.messages, chat.Message{
		Role:      chat.RoleUser,
		Content:   text,
		Timestamp: c.stampLocked(),
	})
	transcript := append([]chat.Message(nil), c.messages...)
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.awaiting = false
		c.mu.Unlock()
	}()

	c.store.SaveSession(sessionID, title, transcript)

	reply := c.generate(ctx, gen, text)
	c.recordReply(sessionID, reply)
	return nil
}

func (c *Controller) generate(ctx context.Context, gen model.Generator, prompt string) chat.Message {
	if gen == nil {
		return chat.Message{Role: chat.RoleError, Content: MissingCredentialNotice}
	}
	text, err := gen.Generate(ctx, prompt)
	if err == nil {
		return chat.Message{Role: chat.RoleAssistant, Content: text}
	}
	if model.IsMissingCredential(err) {
		return chat.Message{Role: chat.RoleError, Content: MissingCredentialNotice}
	}
	return chat.Message{Role: chat.RoleError, Content: fmt.Sprintf("Error: generation failed: %v", err)}
}

// recordReply appends the reply to the originating session and persists
// it. When the user has switched sessions meanwhile, the reply still goes
// to the session that requested it; a session deleted mid-flight drops the
// reply instead of resurrecting the log.
func (c *Controller) recordReply(sessionID string, reply chat.Message) {
	c.mu.Lock()
	reply.Timestamp = c.stampLocked()
	if c.activeID == sessionID {
		c.messages = append(c.messages, reply)
		transcript := append([]chat.Message(nil), c.messages...)
		c.mu.Unlock()
		c.store.SaveSession(sessionID, "", transcript)
		return
	}
	c.mu.Unlock()

	if _, ok := c.store.ListSessions()[sessionID]; !ok {
		c.log.Warn().
			Str("session_id", sessionID).
			Msg("dropping reply for deleted session")
		return
	}
	transcript := append(c.store.LoadMessages(sessionID), reply)
	c.store.SaveSession(sessionID, "", transcript)
}

// RenameChat re-persists the session with a new title. Unknown ids and
// empty titles are ignored; the message log is untouched.
func (c *Controller) RenameChat(id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrEmptyTitle
	}
	if _, ok := c.store.ListSessions()[id]; !ok {
		return nil
	}
	c.store.SaveSession(id, title, c.store.LoadMessages(id))
	return nil
}

// DeleteChat removes the session's index entry and message log. Deleting
// the active session also resets the controller to idle.
func (c *Controller) DeleteChat(id string) {
	c.store.DeleteSession(id)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.activeID == id {
		c.activeID = ""
		c.messages = nil
	}
}

// Sessions returns the persisted session index.
func (c *Controller) Sessions() map[string]chat.Session {
	return c.store.ListSessions()
}

// ActiveID returns the bound session id, empty when idle.
func (c *Controller) ActiveID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeID
}

// Messages returns a copy of the in-memory transcript.
func (c *Controller) Messages() []chat.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]chat.Message(nil), c.messages...)
}

// Awaiting reports whether a generation call is outstanding.
func (c *Controller) Awaiting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.awaiting
}

// stampLocked returns the current epoch-millisecond timestamp, bumped
// forward when needed so transcript timestamps stay strictly increasing.
// Callers must hold c.mu.
func (c *Controller) stampLocked() int64 {
	ts := c.now().UnixMilli()
	if ts <= c.lastStamp {
		ts = c.lastStamp + 1
	}
	c.lastStamp = ts
	return ts
}
