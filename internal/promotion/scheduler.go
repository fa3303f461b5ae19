package promotion

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rcliao/agent-recall/internal/model"
	"github.com/rcliao/agent-recall/internal/shortterm"
)

// DefaultInterval is the periodic promotion interval.
const DefaultInterval = 30 * time.Second

// Stats tracks scheduler activity for one session.
type Stats struct {
	LastRun       time.Time `json:"last_run"`
	Runs          int       `json:"runs"`
	TotalPromoted int       `json:"total_promoted"`
}

// Scheduler layers the invocation policies over the Engine for one session:
// a cancellable periodic timer plus the pause/close/capacity/agent-decision
// triggers. Promotion passes are serialized per session so two passes can
// never double-promote the same pending item.
type Scheduler struct {
	engine         *Engine
	sessionID      string
	containers     Containers
	interval       time.Duration
	closeThreshold float64
	logger         *slog.Logger

	mu      sync.Mutex // guards timer, gen, enabled, stats
	timer   *time.Timer
	gen     int // bumped on every enable/disable; stale timers check it and stop
	enabled bool
	stats   Stats

	runMu sync.Mutex // serializes passes within this session
}

// NewScheduler builds a Scheduler. The timer starts disabled; call Enable.
// An interval <= 0 falls back to DefaultInterval.
func NewScheduler(engine *Engine, sessionID string, c Containers, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		engine:         engine,
		sessionID:      sessionID,
		containers:     c,
		interval:       interval,
		closeThreshold: DefaultCloseThreshold,
		logger:         logger,
	}
}

// SetInterval changes the periodic interval. Takes effect on the next
// reschedule; must be > 0.
func (s *Scheduler) SetInterval(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("promotion: interval must be > 0, got %v", d)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interval = d
	return nil
}

// Enable starts (or restarts) the periodic timer. Idempotent.
func (s *Scheduler) Enable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.enabled {
		return
	}
	s.enabled = true
	s.gen++
	s.scheduleLocked(s.gen)
}

// Disable cancels the periodic timer, including any in-flight handle.
// Idempotent.
func (s *Scheduler) Disable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = false
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// Enabled reports whether the periodic timer is running.
func (s *Scheduler) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// Stats returns a copy of the running stats.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *Scheduler) scheduleLocked(gen int) {
	s.timer = time.AfterFunc(s.interval, func() { s.tick(gen) })
}

// tick runs one periodic pass and reschedules regardless of the outcome; a
// failed or panicking run must never stop future runs.
func (s *Scheduler) tick(gen int) {
	s.mu.Lock()
	current := s.enabled && gen == s.gen
	s.mu.Unlock()
	if !current {
		return
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("periodic promotion panicked", "session", s.sessionID, "panic", r)
			}
		}()
		if _, err := s.runPass(context.Background(), -1); err != nil {
			s.logger.Warn("periodic promotion failed", "session", s.sessionID, "error", err)
		}
	}()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.enabled && gen == s.gen {
		s.scheduleLocked(gen)
	}
}

// runPass executes one serialized promotion pass, clears promoted staging
// items, and updates stats.
func (s *Scheduler) runPass(ctx context.Context, threshold float64) (int, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	res := s.engine.Run(ctx, s.sessionID, s.containers, threshold)
	if s.containers.Pending != nil {
		s.containers.Pending.ClearPromoted(res.PromotedPendingIDs)
	}

	s.mu.Lock()
	s.stats.LastRun = time.Now()
	s.stats.Runs++
	s.stats.TotalPromoted += res.Promoted
	s.mu.Unlock()

	return res.Promoted, nil
}

// OnSessionPause runs a synchronous pass so accumulated memories are
// durable before the session goes idle.
func (s *Scheduler) OnSessionPause(ctx context.Context) (int, error) {
	return s.runPass(ctx, -1)
}

// OnSessionClose runs a synchronous pass at the permissive close threshold.
func (s *Scheduler) OnSessionClose(ctx context.Context) (int, error) {
	return s.runPass(ctx, s.closeThreshold)
}

// OnMemoryLimitReached runs a normal-threshold pass to free staging space.
// The caller supplies the occupancy for diagnostics.
func (s *Scheduler) OnMemoryLimitReached(ctx context.Context, occupancy int) (int, error) {
	s.logger.Debug("pending capacity reached", "session", s.sessionID, "occupancy", occupancy)
	return s.runPass(ctx, -1)
}

// OnAgentDecision persists the supplied item immediately, bypassing scoring
// and thresholds, and removes it from staging when it carries a staging id.
// It does not wait for the periodic timer but is serialized against other
// passes so a concurrent run cannot promote the same item twice.
func (s *Scheduler) OnAgentDecision(ctx context.Context, item shortterm.PendingItem) (string, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	source := item.Source
	if source == "" {
		source = model.SourceAgent
	}
	id, err := s.persistOne(ctx, model.MemoryInput{
		Content:    item.Content,
		Type:       item.Type,
		Confidence: model.ClampConfidence(item.Confidence),
		Source:     source,
		SessionID:  s.sessionID,
		Rationale:  item.Rationale,
		Evidence:   item.Evidence,
	})
	if err != nil {
		return "", err
	}

	if item.ID != "" && s.containers.Pending != nil {
		s.containers.Pending.Remove(item.ID)
	}
	s.mu.Lock()
	s.stats.TotalPromoted++
	s.mu.Unlock()
	return id, nil
}

func (s *Scheduler) persistOne(ctx context.Context, in model.MemoryInput) (string, error) {
	id, err := s.engine.store.Persist(ctx, in)
	if err != nil {
		return "", fmt.Errorf("agent decision persist: %w", err)
	}
	return id, nil
}
