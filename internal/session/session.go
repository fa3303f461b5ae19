// Package session ties one session's short-term containers, promotion
// scheduler, and context builder behind a single-owner actor, plus a
// registry for looking sessions up by id.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/rcliao/agent-recall/internal/builder"
	"github.com/rcliao/agent-recall/internal/promotion"
	"github.com/rcliao/agent-recall/internal/scoring"
	"github.com/rcliao/agent-recall/internal/shortterm"
	"github.com/rcliao/agent-recall/internal/store"
)

var (
	// ErrSessionNotFound is returned by the Manager for unknown session ids.
	ErrSessionNotFound = errors.New("session: not found")

	// ErrSessionClosed is returned when an operation reaches a closed session.
	ErrSessionClosed = errors.New("session: closed")
)

// cmdBuffer sizes the actor's command queue. Fire-and-forget access logging
// drops updates rather than block when the queue is full.
const cmdBuffer = 64

// Options configures a new session's containers and promotion policy.
type Options struct {
	WorkingBudget      int
	PendingCap         int
	AccessLogCap       int
	PromotionThreshold float64
	PromotionMaxPerRun int
	PromotionInterval  time.Duration
	PromotionEnabled   bool
	Scorer             *scoring.Scorer // nil means scoring.NewDefault()
	Logger             *slog.Logger
}

// DefaultOptions enables periodic promotion with the standard thresholds
// and container bounds.
func DefaultOptions() Options {
	return Options{
		WorkingBudget:      shortterm.DefaultWorkingBudget,
		PendingCap:         shortterm.DefaultPendingCap,
		AccessLogCap:       shortterm.DefaultAccessLogCap,
		PromotionThreshold: promotion.DefaultThreshold,
		PromotionMaxPerRun: promotion.DefaultMaxPerRun,
		PromotionInterval:  promotion.DefaultInterval,
		PromotionEnabled:   true,
	}
}

// Session is the single owner of one session's short-term state. All
// compound operations are funneled through a command channel serviced by
// one goroutine, so callers never race on the conversation log or on
// multi-container sequences. Promotion passes run on scheduler goroutines
// but are serialized against each other per session.
type Session struct {
	id        string
	working   *shortterm.WorkingContext
	pending   *shortterm.PendingMemories
	accesses  *shortterm.AccessLog
	scheduler *promotion.Scheduler
	builder   *builder.Builder
	logger    *slog.Logger

	cmds    chan func()
	closeMu sync.RWMutex // guards closed and the cmds send
	closed  bool

	// owned by the actor goroutine
	conversation []builder.Message
	lastSummary  string
}

// New creates and starts a session actor.
func New(id string, st store.Store, b *builder.Builder, opts Options) (*Session, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	scorer := opts.Scorer
	if scorer == nil {
		scorer = scoring.NewDefault()
	}

	engine, err := promotion.NewEngine(st, scorer, promotion.Options{
		Threshold: opts.PromotionThreshold,
		MaxPerRun: opts.PromotionMaxPerRun,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	s := &Session{
		id:       id,
		working:  shortterm.NewWorkingContext(opts.WorkingBudget),
		pending:  shortterm.NewPendingMemories(opts.PendingCap),
		accesses: shortterm.NewAccessLog(opts.AccessLogCap),
		builder:  b,
		logger:   logger,
		cmds:     make(chan func(), cmdBuffer),
	}
	s.scheduler = promotion.NewScheduler(engine, id, promotion.Containers{
		Working:  s.working,
		Pending:  s.pending,
		Accesses: s.accesses,
	}, opts.PromotionInterval, logger)

	// staging overflow kicks off a background pass to free space
	s.pending.OnCapacity(func(occupancy int) {
		go func() {
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("capacity promotion panicked", "session", s.id, "panic", r)
				}
			}()
			if _, err := s.scheduler.OnMemoryLimitReached(context.Background(), occupancy); err != nil {
				s.logger.Warn("capacity promotion failed", "session", s.id, "error", err)
			}
		}()
	})

	if opts.PromotionEnabled {
		s.scheduler.Enable()
	}

	go s.run()
	return s, nil
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

func (s *Session) run() {
	for fn := range s.cmds {
		s.dispatch(fn)
	}
}

// dispatch executes one command with panic recovery; a panicking command
// must never take the actor down.
func (s *Session) dispatch(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("session command panicked", "session", s.id, "panic", r)
		}
	}()
	fn()
}

// do enqueues fn and waits for it to run. The read lock excludes stop(), so
// a command accepted here is guaranteed to execute before the channel closes.
func (s *Session) do(fn func()) error {
	s.closeMu.RLock()
	if s.closed {
		s.closeMu.RUnlock()
		return ErrSessionClosed
	}
	done := make(chan struct{})
	s.cmds <- func() {
		defer close(done)
		fn()
	}
	s.closeMu.RUnlock()
	<-done
	return nil
}

// stop closes the command channel; queued commands still drain.
func (s *Session) stop() {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.cmds)
}

// AppendMessage records one conversational turn.
func (s *Session) AppendMessage(role, content string) error {
	return s.do(func() {
		s.conversation = append(s.conversation, builder.Message{Role: role, Content: content})
	})
}

// Conversation returns a copy of the conversation log.
func (s *Session) Conversation() ([]builder.Message, error) {
	var out []builder.Message
	err := s.do(func() {
		out = append(out, s.conversation...)
	})
	return out, err
}

// PutWorking stores a working-context entry.
func (s *Session) PutWorking(key, value string, opts shortterm.PutOptions) error {
	return s.do(func() {
		s.working.Put(key, value, opts)
	})
}

// GetWorking retrieves a working-context entry, bumping its access metadata
// and logging the access fire-and-forget.
func (s *Session) GetWorking(key string) (shortterm.Item, bool, error) {
	var (
		item shortterm.Item
		ok   bool
	)
	err := s.do(func() {
		item, ok = s.working.Get(key)
		if ok {
			s.accesses.Record(key)
		}
	})
	return item, ok, err
}

// DeleteWorking removes a working-context entry.
func (s *Session) DeleteWorking(key string) error {
	return s.do(func() { s.working.Delete(key) })
}

// WorkingSnapshot returns all working-context entries in insertion order.
func (s *Session) WorkingSnapshot() ([]shortterm.Item, error) {
	var items []shortterm.Item
	err := s.do(func() { items = s.working.Snapshot() })
	return items, err
}

// Stage adds a promotion candidate to the pending queue. Hitting the bound
// triggers a background promotion pass via the capacity hook.
func (s *Session) Stage(item shortterm.PendingItem) (string, error) {
	var id string
	err := s.do(func() { id, _ = s.pending.Add(item) })
	return id, err
}

// Pending returns copies of the staged candidates.
func (s *Session) Pending() ([]shortterm.PendingItem, error) {
	var items []shortterm.PendingItem
	err := s.do(func() { items = s.pending.Snapshot() })
	return items, err
}

// RememberNow persists an agent-decision memory immediately, bypassing
// scoring and thresholds. Serialized against promotion passes by the
// scheduler, not the actor, so a slow persist does not stall the session.
func (s *Session) RememberNow(ctx context.Context, item shortterm.PendingItem) (string, error) {
	s.closeMu.RLock()
	closed := s.closed
	s.closeMu.RUnlock()
	if closed {
		return "", ErrSessionClosed
	}
	item.SuggestedBy = shortterm.OriginAgent
	return s.scheduler.OnAgentDecision(ctx, item)
}

// BuildContext assembles the context bundle for the next turn and stashes
// the conversation summary, when one was produced, in the working context
// under builder.SummaryWorkingKey. Only the short-term snapshots go through
// the actor; the long-term store call and summarization run outside it, so
// a slow store never stalls other session operations.
func (s *Session) BuildContext(ctx context.Context, opts builder.Options) (*builder.Result, error) {
	var (
		conversation []builder.Message
		working      map[string]string
	)
	if err := s.do(func() {
		conversation = append(conversation, s.conversation...)
		working = s.working.Map()
	}); err != nil {
		return nil, err
	}

	res, err := s.builder.Build(ctx, s.id, conversation, working, opts)
	if err != nil {
		return nil, err
	}

	if res.Summary != "" {
		// best effort: a session closed mid-build just loses the stash
		_ = s.do(func() {
			if res.Summary != s.lastSummary {
				s.lastSummary = res.Summary
				s.working.Put(builder.SummaryWorkingKey, res.Summary, shortterm.PutOptions{
					Source: shortterm.SourceTool,
				})
			}
		})
	}
	return res, nil
}

// Promote runs one manual promotion pass at the configured threshold.
func (s *Session) Promote(ctx context.Context) (int, error) {
	s.closeMu.RLock()
	closed := s.closed
	s.closeMu.RUnlock()
	if closed {
		return 0, ErrSessionClosed
	}
	return s.scheduler.OnSessionPause(ctx)
}

// Pause disables periodic promotion and runs a synchronous pass so the
// session's accumulated memories are durable before it goes idle.
func (s *Session) Pause(ctx context.Context) (int, error) {
	s.closeMu.RLock()
	closed := s.closed
	s.closeMu.RUnlock()
	if closed {
		return 0, ErrSessionClosed
	}
	s.scheduler.Disable()
	return s.scheduler.OnSessionPause(ctx)
}

// Resume restarts periodic promotion after a pause.
func (s *Session) Resume() {
	s.closeMu.RLock()
	defer s.closeMu.RUnlock()
	if s.closed {
		return
	}
	s.scheduler.Enable()
}

// Close runs the permissive close-threshold pass, stops the scheduler, and
// shuts the actor down. Idempotent; later calls return ErrSessionClosed.
func (s *Session) Close(ctx context.Context) (int, error) {
	s.closeMu.RLock()
	closed := s.closed
	s.closeMu.RUnlock()
	if closed {
		return 0, ErrSessionClosed
	}

	s.scheduler.Disable()
	promoted, err := s.scheduler.OnSessionClose(ctx)
	s.stop()
	return promoted, err
}

// Stats returns the session's promotion stats.
func (s *Session) Stats() promotion.Stats {
	return s.scheduler.Stats()
}
