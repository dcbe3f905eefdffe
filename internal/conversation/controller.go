// Package conversation holds the transcript of a single chat session and
// drives the request/response exchange with the chat backend.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"gemini-chat/internal/domain"
)

const (
	// Greeting seeds every new transcript.
	Greeting = "Hello! The chatbot is ready. Open the deploy guide (ctrl+g) to see how to publish it as your own bot."

	// FallbackReply is appended whenever the backend does not answer successfully.
	FallbackReply = "The chat backend could not be reached. Make sure API_KEY is set in your deployment's environment variables, then redeploy."
)

// Backend sends a single user message and returns the reply text.
type Backend interface {
	Send(ctx context.Context, message string) (string, error)
}

// State of a submit cycle.
type State int

const (
	StateIdle State = iota
	StateAwaitingReply
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingReply:
		return "awaiting_reply"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Controller owns the transcript, the pending input buffer and the busy flag.
// At most one backend call is outstanding at a time; submissions made while
// busy are dropped rather than queued.
type Controller struct {
	backend  Backend
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
	onChange func()

	mu           sync.Mutex
	messages     []domain.Message
	input        string
	busy         bool
	guideVisible bool
}

type Option func(*Controller)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithOnChange registers fn to run after every transcript or busy change,
// from the goroutine running Submit. fn is called without the lock held.
func WithOnChange(fn func()) Option {
	return func(c *Controller) {
		c.onChange = fn
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(c *Controller) {
		if newID != nil {
			c.newID = newID
		}
	}
}

// NewController returns a Controller whose transcript holds the greeting.
func NewController(backend Backend, opts ...Option) (*Controller, error) {
	if backend == nil {
		return nil, errors.New("conversation: backend must not be nil")
	}
	c := &Controller{
		backend: backend,
		logger:  slog.Default(),
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.messages = []domain.Message{c.newMessage(domain.RoleAssistant, Greeting)}
	return c, nil
}

// Messages returns a copy of the transcript in display order.
func (c *Controller) Messages() []domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *Controller) Input() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.input
}

// SetInput replaces the pending input buffer. It is allowed while busy.
func (c *Controller) SetInput(text string) {
	c.mu.Lock()
	c.input = text
	c.mu.Unlock()
}

func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

func (c *Controller) State() State {
	if c.Busy() {
		return StateAwaitingReply
	}
	return StateIdle
}

// CanSubmit reports whether Submit would start a new exchange.
func (c *Controller) CanSubmit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.busy && strings.TrimSpace(c.input) != ""
}

// ToggleGuide flips the guide panel visibility and returns the new value.
func (c *Controller) ToggleGuide() bool {
	c.mu.Lock()
	c.guideVisible = !c.guideVisible
	visible := c.guideVisible
	c.mu.Unlock()
	return visible
}

func (c *Controller) GuideVisible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.guideVisible
}

// Send submits text as if it had been typed. When it is rejected the input
// buffer is left untouched.
func (c *Controller) Send(ctx context.Context, text string) bool {
	c.mu.Lock()
	if !c.begin(text) {
		c.mu.Unlock()
		return false
	}
	c.mu.Unlock()
	c.exchange(ctx, text)
	return true
}

// Submit sends the pending input to the backend and blocks until the call
// settles. It returns false without side effects when the input is blank or
// another exchange is outstanding; in the latter case the input is kept.
func (c *Controller) Submit(ctx context.Context) bool {
	c.mu.Lock()
	text := c.input
	if !c.begin(text) {
		c.mu.Unlock()
		return false
	}
	c.mu.Unlock()
	c.exchange(ctx, text)
	return true
}

// begin appends the user message and marks the controller busy. It must be
// called with c.mu held.
func (c *Controller) begin(text string) bool {
	if c.busy || strings.TrimSpace(text) == "" {
		return false
	}
	c.messages = append(c.messages, c.newMessage(domain.RoleUser, text))
	c.input = ""
	c.busy = true
	return true
}

func (c *Controller) exchange(ctx context.Context, text string) {
	c.notify()

	reply, err := c.call(ctx, text)
	if err != nil {
		c.logger.Error("chat backend call failed", "err", err)
		reply = FallbackReply
	}

	c.mu.Lock()
	c.messages = append(c.messages, c.newMessage(domain.RoleAssistant, reply))
	c.busy = false
	c.mu.Unlock()
	c.notify()
}

// call turns a panicking backend into an ordinary failure so the busy flag
// is always released.
func (c *Controller) call(ctx context.Context, text string) (reply string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("conversation: backend panic: %v", r)
		}
	}()
	return c.backend.Send(ctx, text)
}

func (c *Controller) newMessage(role domain.Role, content string) domain.Message {
	return domain.Message{
		ID:        c.newID(),
		Role:      role,
		Content:   content,
		Timestamp: c.now(),
	}
}

func (c *Controller) notify() {
	if c.onChange != nil {
		c.onChange()
	}
}
