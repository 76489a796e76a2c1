package chat

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// State is a point-in-time copy of a Conversation.
type State struct {
	Transcript    []Message
	Pending       bool
	LatestTrace   []ReasoningStep
	TraceExpanded bool
	// TraceIndex is the transcript index LatestTrace is shown against, -1 if none.
	TraceIndex int
}

// Conversation is the only owner of the transcript, the pending flag and the
// latest trace. At most one turn is in flight at a time.
type Conversation struct {
	mu sync.Mutex

	id        string
	transport Transport
	logger    *slog.Logger

	transcript    []Message
	pending       bool
	latestTrace   []ReasoningStep
	traceExpanded bool
	traceIndex    int
	current       *Turn
}

type Option func(*Conversation)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Conversation) {
		c.logger = logger
	}
}

// WithID overrides the generated session id.
func WithID(id string) Option {
	return func(c *Conversation) {
		c.id = id
	}
}

// New returns an empty conversation that sends turns through transport.
func New(transport Transport, opts ...Option) *Conversation {
	c := &Conversation{
		id:            uuid.NewString(),
		transport:     transport,
		logger:        slog.Default(),
		traceExpanded: true,
		traceIndex:    -1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ID returns the session id used in logs.
func (c *Conversation) ID() string {
	return c.id
}

// Turn is one submitted user message waiting for its reply.
type Turn struct {
	ID      string
	Message string
	// History is the transcript as it stood before Message was appended.
	History []Message

	baseLen   int
	startedAt time.Time
	transport Transport
}

// Run performs the exchange. It does not touch conversation state, so it is
// safe to call from a background goroutine.
func (t *Turn) Run(ctx context.Context) (Result, error) {
	return t.transport.Send(ctx, t.Message, t.History)
}

// Validate rejects blank input.
func Validate(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}
	return nil
}

// Submit runs a whole turn and blocks until it resolves. It returns false
// without changing anything when text is blank or a turn is already pending.
func (c *Conversation) Submit(ctx context.Context, text string) bool {
	turn, ok := c.Begin(text)
	if !ok {
		return false
	}
	res, err := turn.Run(ctx)
	c.Complete(turn, res, err)
	return true
}

// Begin appends the user message and marks the conversation pending.
func (c *Conversation) Begin(text string) (*Turn, bool) {
	if Validate(text) != nil {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending {
		return nil, false
	}

	history := cloneMessages(c.transcript)
	c.transcript = append(c.transcript, Message{Role: RoleUser, Content: text})
	c.pending = true
	// the previous trace stays until a new one arrives
	c.traceExpanded = true

	turn := &Turn{
		ID:        uuid.NewString(),
		Message:   text,
		History:   history,
		baseLen:   len(c.transcript),
		startedAt: time.Now(),
		transport: c.transport,
	}
	c.current = turn
	c.checkInvariants()

	c.logger.LogAttrs(context.Background(), slog.LevelInfo, "chat turn started",
		slog.String("session_id", c.id),
		slog.String("turn_id", turn.ID),
		slog.Int("history_len", len(history)))
	return turn, true
}

// Complete folds the outcome of turn into the transcript. It reports false if
// turn is not the conversation's in-flight turn.
func (c *Conversation) Complete(turn *Turn, res Result, err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if turn == nil || turn != c.current {
		return false
	}

	attrs := []slog.Attr{
		slog.String("session_id", c.id),
		slog.String("turn_id", turn.ID),
		slog.Int64("duration_ms", time.Since(turn.startedAt).Milliseconds()),
	}

	if err != nil {
		c.transcript = append(c.transcript, Message{Role: RoleAssistant, Content: ErrorPrefix + err.Error()})
		c.logger.LogAttrs(context.Background(), slog.LevelWarn, "chat turn failed",
			append(attrs, slog.String("error", err.Error()))...)
	} else {
		added := c.mergeLocked(turn.baseLen, res)
		if len(res.Trace) > 0 {
			c.latestTrace = cloneSteps(res.Trace)
			c.traceExpanded = true
		}
		c.traceIndex = len(c.transcript) - 1
		c.logger.LogAttrs(context.Background(), slog.LevelInfo, "chat turn completed",
			append(attrs,
				slog.Int("appended", added),
				slog.Int("trace_steps", len(res.Trace)))...)
	}

	c.pending = false
	c.current = nil
	c.checkInvariants()
	return true
}

// mergeLocked appends the part of the returned history beyond what the
// transcript held when the turn was sent. Positions, not contents, decide what
// is new, so identical message texts are never collapsed.
func (c *Conversation) mergeLocked(baseLen int, res Result) int {
	if len(res.History) > baseLen {
		suffix := res.History[baseLen:]
		c.transcript = append(c.transcript, suffix...)
		return len(suffix)
	}
	// history did not grow past what we hold; fall back to the reply text
	c.transcript = append(c.transcript, Message{Role: RoleAssistant, Content: res.Reply})
	return 1
}

// ToggleTrace flips whether the trace step list is shown.
func (c *Conversation) ToggleTrace() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.traceExpanded = !c.traceExpanded
}

// Pending reports whether a turn is in flight.
func (c *Conversation) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// Len returns the number of transcript entries.
func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.transcript)
}

// Snapshot returns a copy that callers may keep and read freely.
func (c *Conversation) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Transcript:    cloneMessages(c.transcript),
		Pending:       c.pending,
		LatestTrace:   cloneSteps(c.latestTrace),
		TraceExpanded: c.traceExpanded,
		TraceIndex:    c.traceIndex,
	}
}

func cloneMessages(msgs []Message) []Message {
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}

func cloneSteps(steps []ReasoningStep) []ReasoningStep {
	if len(steps) == 0 {
		return nil
	}
	out := make([]ReasoningStep, len(steps))
	copy(out, steps)
	return out
}
