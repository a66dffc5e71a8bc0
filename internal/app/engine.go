package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"flags-challenge/internal/clock"
	"flags-challenge/internal/domain"
	"go.uber.org/zap"
)

const tick = time.Second

// SnapshotStore persists the flat snapshot record (in-memory, Redis, file).
// LoadRecord returns an empty map when nothing has been saved.
type SnapshotStore interface {
	LoadRecord(ctx context.Context) (map[string]string, error)
	SaveRecord(ctx context.Context, record map[string]string) error
}

// QuestionLoader supplies the question list; *QuestionSource implements it.
type QuestionLoader interface {
	Load(ctx context.Context) ([]domain.Question, error)
	Reload(ctx context.Context) ([]domain.Question, error)
}

// Timings holds the phase durations. Values are truncated to whole seconds.
type Timings struct {
	CountdownWindow time.Duration
	Question        time.Duration
	Interval        time.Duration
	Feedback        time.Duration
}

// DefaultTimings returns the standard quiz pacing.
func DefaultTimings() Timings {
	return Timings{
		CountdownWindow: 20 * time.Second,
		Question:        30 * time.Second,
		Interval:        10 * time.Second,
		Feedback:        2 * time.Second,
	}
}

// EngineConfig wires the engine's collaborators. Clock, Logger and Timings default when zero.
type EngineConfig struct {
	Source  QuestionLoader
	Store   SnapshotStore
	Clock   clock.Clock
	Logger  *zap.Logger
	Timings Timings
}

// Engine runs the scheduled quiz: phase transitions, timers, scoring and
// suspend/resume. All state is guarded by mu; timer callbacks carry the
// generation they were started under and are dropped once it changes.
type Engine struct {
	source  QuestionLoader
	store   SnapshotStore
	clock   clock.Clock
	logger  *zap.Logger
	timings Timings

	mu          sync.Mutex
	questions   []domain.Question
	phase       domain.Phase
	index       int
	selected    *int
	resultShown bool
	score       int

	questionTimer  int
	intervalTimer  int
	countdown      int
	countingDown   bool
	hours          int
	minutes        int
	seconds        int
	scheduledAt    time.Time
	feedbackUntil  time.Time
	tickAnchor     time.Time
	generation     uint64
	cancelTick     clock.CancelFunc
	cancelDeferred clock.CancelFunc

	subscribers map[chan domain.State]struct{}
}

// NewEngine loads questions, then restores the persisted snapshot if one exists.
// A catalog failure leaves the engine with no questions; it is logged, not returned.
func NewEngine(ctx context.Context, cfg EngineConfig) *Engine {
	if cfg.Clock == nil {
		cfg.Clock = clock.Real{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Timings == (Timings{}) {
		cfg.Timings = DefaultTimings()
	}

	e := &Engine{
		source:      cfg.Source,
		store:       cfg.Store,
		clock:       cfg.Clock,
		logger:      cfg.Logger,
		timings:     cfg.Timings,
		subscribers: make(map[chan domain.State]struct{}),
	}
	e.resetLocked()

	questions, err := e.source.Load(ctx)
	if err != nil {
		e.logger.Error("load questions", zap.Error(err))
	}
	e.questions = questions

	e.restore(ctx)
	return e
}

// State returns the current observable state.
func (e *Engine) State() domain.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked()
}

// Questions returns a copy of the loaded questions.
func (e *Engine) Questions() []domain.Question {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.Question, len(e.questions))
	copy(out, e.questions)
	return out
}

// Subscribe returns a channel that receives the state after every change.
// The caller must invoke the returned cancel function to avoid leaks.
func (e *Engine) Subscribe() (<-chan domain.State, func()) {
	ch := make(chan domain.State, 8)

	e.mu.Lock()
	e.subscribers[ch] = struct{}{}
	// Queued under the lock so no broadcast can overtake it.
	ch <- e.stateLocked()
	e.mu.Unlock()

	cancel := func() {
		e.mu.Lock()
		if _, ok := e.subscribers[ch]; ok {
			delete(e.subscribers, ch)
			close(ch)
		}
		e.mu.Unlock()
	}
	return ch, cancel
}

// ScheduleAt schedules the quiz start hours/minutes/seconds from now. Inputs are
// clamped to a clock face; a non-positive total is ignored. It reports whether
// the schedule was accepted.
func (e *Engine) ScheduleAt(hours, minutes, seconds int) bool {
	hours = clamp(hours, 0, 23)
	minutes = clamp(minutes, 0, 59)
	seconds = clamp(seconds, 0, 59)
	total := time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute + time.Duration(seconds)*time.Second
	if total <= 0 {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.canScheduleLocked() {
		return false
	}
	e.hours, e.minutes, e.seconds = hours, minutes, seconds
	e.armScheduleLocked(e.clock.Now().Add(total))
	e.broadcastLocked()
	return true
}

// ScheduleAfter schedules the quiz start d from now; d <= 0 starts immediately.
func (e *Engine) ScheduleAfter(d time.Duration) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.canScheduleLocked() {
		return false
	}
	e.armScheduleLocked(e.clock.Now().Add(d))
	e.broadcastLocked()
	return true
}

// SelectOption answers the current question. Ignored outside the question
// phase, after the result is shown, or for an index the question does not have.
func (e *Engine) SelectOption(index int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase != domain.PhaseQuestion || e.resultShown {
		return
	}
	if e.index >= len(e.questions) || index < 0 || index >= len(e.questions[e.index].Options) {
		return
	}
	e.selected = &index
	e.evaluateLocked(true)
	e.broadcastLocked()
}

// Reset stops all timers and returns to waitingForSchedule with default inputs.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetLocked()
	e.broadcastLocked()
}

// ResetAndReloadQuestions re-seeds the catalog from the fallback, then resets.
// On failure the engine continues with no questions and the error is returned.
func (e *Engine) ResetAndReloadQuestions(ctx context.Context) error {
	questions, err := e.source.Reload(ctx)
	if err != nil {
		e.logger.Error("reload questions", zap.Error(err))
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.questions = questions
	e.resetLocked()
	e.broadcastLocked()
	return err
}

// Suspend writes a snapshot of the current state. It is meant to be called
// from the host's suspend/shutdown hook; failures are logged and returned.
func (e *Engine) Suspend(ctx context.Context) error {
	e.mu.Lock()
	snap := e.snapshotLocked(e.clock.Now())
	e.mu.Unlock()

	if err := e.store.SaveRecord(ctx, snap.Record()); err != nil {
		e.logger.Error("save snapshot", zap.Error(err))
		return fmt.Errorf("save snapshot: %w", err)
	}
	e.logger.Info("snapshot saved",
		zap.String("phase", string(snap.Phase)),
		zap.Int("timerRemaining", snap.TimerRemaining),
		zap.Int("score", snap.Score),
	)
	return nil
}

// Snapshot returns what Suspend would persist right now.
func (e *Engine) Snapshot() domain.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked(e.clock.Now())
}

// Close stops timers and closes subscriber channels.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopTimersLocked()
	for ch := range e.subscribers {
		delete(e.subscribers, ch)
		close(ch)
	}
}

func (e *Engine) restore(ctx context.Context) {
	rec, err := e.store.LoadRecord(ctx)
	if err != nil {
		e.logger.Warn("load snapshot, starting fresh", zap.Error(err))
		return
	}
	snap, err := domain.SnapshotFromRecord(rec)
	if err != nil {
		if !errors.Is(err, domain.ErrSnapshotNotFound) {
			e.logger.Warn("discarding snapshot", zap.Error(err))
		}
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.restoreLocked(snap, e.clock.Now())
	e.logger.Info("snapshot restored",
		zap.String("savedPhase", string(snap.Phase)),
		zap.String("phase", string(e.phase)),
		zap.Int("score", e.score),
	)
}

func (e *Engine) restoreLocked(snap domain.Snapshot, now time.Time) {
	elapsed := now.Sub(fromEpoch(snap.SavedAt)).Round(time.Microsecond)
	if elapsed < 0 {
		elapsed = 0
	}

	e.phase = snap.Phase
	e.index = clamp(snap.CurrentQuestionIndex, 0, len(e.questions))
	e.selected = snap.SelectedIndex
	e.resultShown = snap.IsResultShown
	e.score = snap.Score
	e.hours, e.minutes, e.seconds = snap.Hours, snap.Minutes, snap.Seconds
	e.countingDown = snap.IsCountingDown
	e.questionTimer, e.intervalTimer, e.countdown = 0, 0, 0
	if snap.ScheduledAt > 0 {
		e.scheduledAt = fromEpoch(snap.ScheduledAt)
	}

	// The running timer ends nextTick + (timerRemaining-1) ticks after the save.
	nextTick := secondsToDuration(snap.NextTickIn)
	if nextTick <= 0 || nextTick > tick {
		nextTick = tick
	}
	left := nextTick + time.Duration(snap.TimerRemaining-1)*tick - elapsed

	switch snap.Phase {
	case domain.PhaseQuestion:
		if e.index >= len(e.questions) {
			e.finishLocked()
			return
		}
		if snap.IsResultShown {
			// Already scored; only the feedback delay is outstanding.
			e.questionTimer = snap.TimerRemaining
			feedbackLeft := secondsToDuration(snap.FeedbackRemaining) - elapsed
			if feedbackLeft > 0 {
				e.feedbackUntil = now.Add(feedbackLeft)
				e.deferLocked(feedbackLeft, e.enterIntervalLocked)
			} else {
				e.enterIntervalLocked()
			}
			return
		}
		if left > 0 {
			n, first := splitTicks(left)
			e.questionTimer = n
			e.startTickingLocked(first, e.questionTickLocked)
			return
		}
		e.evaluateLocked(false)
	case domain.PhaseInterval:
		if left > 0 {
			n, first := splitTicks(left)
			e.intervalTimer = n
			e.startTickingLocked(first, e.intervalTickLocked)
			return
		}
		e.advanceLocked()
	case domain.PhaseCountdownToStart:
		if e.countingDown {
			if left > 0 {
				e.enterCountdownLocked(splitTicks(left))
				return
			}
			e.countingDown = false
			e.startFirstQuestionLocked()
			return
		}
		if !e.scheduledAt.IsZero() {
			e.armScheduleLocked(e.scheduledAt)
		}
	case domain.PhaseWaitingForSchedule:
		if !e.scheduledAt.IsZero() {
			e.armScheduleLocked(e.scheduledAt)
		}
	}
}

func (e *Engine) canScheduleLocked() bool {
	return e.phase == domain.PhaseWaitingForSchedule || e.phase == domain.PhaseCountdownToStart
}

// armScheduleLocked aims the quiz start at target, entering the countdown
// directly when target is inside the countdown window.
func (e *Engine) armScheduleLocked(target time.Time) {
	e.stopTimersLocked()
	e.scheduledAt = target
	window := seconds(e.timings.CountdownWindow)
	diff := target.Sub(e.clock.Now())

	switch {
	case diff > time.Duration(window)*time.Second:
		e.setPhaseLocked(domain.PhaseWaitingForSchedule)
		e.countingDown = false
		e.countdown = window
		e.deferLocked(diff-time.Duration(window)*time.Second, func() {
			e.enterCountdownLocked(window, tick)
		})
	case diff > 0:
		e.enterCountdownLocked(splitTicks(diff))
	default:
		e.countingDown = false
		e.startFirstQuestionLocked()
	}
}

func (e *Engine) enterCountdownLocked(secs int, first time.Duration) {
	e.setPhaseLocked(domain.PhaseCountdownToStart)
	e.countingDown = true
	e.countdown = secs
	e.startTickingLocked(first, e.countdownTickLocked)
}

func (e *Engine) countdownTickLocked() {
	e.countdown--
	if e.countdown > 0 {
		return
	}
	e.countdown = 0
	e.countingDown = false
	e.startFirstQuestionLocked()
}

func (e *Engine) startFirstQuestionLocked() {
	e.scheduledAt = time.Time{}
	e.score = 0
	e.index = 0
	e.startQuestionLocked()
}

func (e *Engine) startQuestionLocked() {
	e.stopTimersLocked()
	if e.index >= len(e.questions) {
		e.finishLocked()
		return
	}
	e.setPhaseLocked(domain.PhaseQuestion)
	e.questionTimer = seconds(e.timings.Question)
	e.intervalTimer = 0
	e.selected = nil
	e.resultShown = false
	e.startTickingLocked(tick, e.questionTickLocked)
}

func (e *Engine) questionTickLocked() {
	e.questionTimer--
	if e.questionTimer > 0 {
		return
	}
	e.questionTimer = 0
	e.evaluateLocked(true)
}

// evaluateLocked scores the current question once and moves towards the
// interval, after the feedback delay when withFeedback is set.
func (e *Engine) evaluateLocked(withFeedback bool) {
	e.stopTimersLocked()
	if e.index >= len(e.questions) {
		e.finishLocked()
		return
	}

	e.resultShown = true
	correct := e.selected != nil && *e.selected == e.questions[e.index].CorrectOptionIndex
	if correct {
		e.score++
	}
	e.logger.Debug("answer evaluated",
		zap.Int("index", e.index),
		zap.Bool("answered", e.selected != nil),
		zap.Bool("correct", correct),
		zap.Int("score", e.score),
	)

	if !withFeedback || e.timings.Feedback <= 0 {
		e.enterIntervalLocked()
		return
	}
	e.feedbackUntil = e.clock.Now().Add(e.timings.Feedback)
	e.deferLocked(e.timings.Feedback, e.enterIntervalLocked)
}

func (e *Engine) enterIntervalLocked() {
	e.feedbackUntil = time.Time{}
	e.setPhaseLocked(domain.PhaseInterval)
	e.intervalTimer = seconds(e.timings.Interval)
	e.startTickingLocked(tick, e.intervalTickLocked)
}

func (e *Engine) intervalTickLocked() {
	e.intervalTimer--
	if e.intervalTimer > 0 {
		return
	}
	e.intervalTimer = 0
	e.advanceLocked()
}

func (e *Engine) advanceLocked() {
	if e.index < len(e.questions) {
		e.index++
	}
	e.startQuestionLocked()
}

func (e *Engine) finishLocked() {
	e.stopTimersLocked()
	e.setPhaseLocked(domain.PhaseFinished)
	e.questionTimer, e.intervalTimer, e.countdown = 0, 0, 0
	e.countingDown = false
	e.scheduledAt = time.Time{}
	e.feedbackUntil = time.Time{}
}

func (e *Engine) resetLocked() {
	e.stopTimersLocked()
	e.phase = domain.PhaseWaitingForSchedule
	e.index = 0
	e.selected = nil
	e.resultShown = false
	e.score = 0
	e.questionTimer, e.intervalTimer, e.countdown = 0, 0, 0
	e.countingDown = false
	e.hours, e.minutes, e.seconds = 0, 0, 10
	e.scheduledAt = time.Time{}
	e.feedbackUntil = time.Time{}
}

func (e *Engine) setPhaseLocked(p domain.Phase) {
	if e.phase != p {
		e.logger.Info("phase changed", zap.String("from", string(e.phase)), zap.String("to", string(p)), zap.Int("index", e.index))
	}
	e.phase = p
}

// startTickingLocked replaces any running timer with a 1s tick running fn.
// The first tick fires after first, which lets a resumed timer keep its phase.
func (e *Engine) startTickingLocked(first time.Duration, fn func()) {
	e.stopTimersLocked()
	gen := e.generation
	now := e.clock.Now()
	if first <= 0 || first >= tick {
		e.tickAnchor = now
		e.cancelTick = e.clock.ScheduleRepeating(tick, e.guard(gen, fn))
		return
	}
	e.tickAnchor = now.Add(first - tick)
	e.cancelTick = e.clock.AfterFunc(first, e.guard(gen, func() {
		fn()
		if e.generation == gen {
			e.cancelTick = e.clock.ScheduleRepeating(tick, e.guard(gen, fn))
		}
	}))
}

// nextTickLocked is the time from now until the running timer ticks again.
func (e *Engine) nextTickLocked(now time.Time) time.Duration {
	since := now.Sub(e.tickAnchor) % tick
	if since < 0 {
		since += tick
	}
	return tick - since
}

// deferLocked replaces any pending one-shot with fn after d. A running tick is left alone.
func (e *Engine) deferLocked(d time.Duration, fn func()) {
	if e.cancelDeferred != nil {
		e.cancelDeferred()
	}
	gen := e.generation
	e.cancelDeferred = e.clock.AfterFunc(d, e.guard(gen, fn))
}

func (e *Engine) guard(gen uint64, fn func()) func() {
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.generation != gen {
			return
		}
		fn()
		e.broadcastLocked()
	}
}

func (e *Engine) stopTimersLocked() {
	e.generation++
	if e.cancelTick != nil {
		e.cancelTick()
		e.cancelTick = nil
	}
	if e.cancelDeferred != nil {
		e.cancelDeferred()
		e.cancelDeferred = nil
	}
	e.feedbackUntil = time.Time{}
	e.tickAnchor = time.Time{}
}

func (e *Engine) snapshotLocked(now time.Time) domain.Snapshot {
	snap := domain.Snapshot{
		CurrentQuestionIndex: e.index,
		IsResultShown:        e.resultShown,
		Score:                e.score,
		Phase:                e.phase,
		SavedAt:              toEpoch(now),
		Hours:                e.hours,
		Minutes:              e.minutes,
		Seconds:              e.seconds,
		IsCountingDown:       e.countingDown,
	}
	if e.selected != nil {
		idx := *e.selected
		snap.SelectedIndex = &idx
	}
	switch e.phase {
	case domain.PhaseQuestion:
		snap.TimerRemaining = e.questionTimer
	case domain.PhaseInterval:
		snap.TimerRemaining = e.intervalTimer
	case domain.PhaseCountdownToStart:
		snap.TimerRemaining = e.countdown
	}
	if e.cancelTick != nil {
		snap.NextTickIn = e.nextTickLocked(now).Seconds()
	}
	if !e.scheduledAt.IsZero() {
		snap.ScheduledAt = toEpoch(e.scheduledAt)
	}
	if !e.feedbackUntil.IsZero() {
		if left := e.feedbackUntil.Sub(now); left > 0 {
			snap.FeedbackRemaining = left.Seconds()
		}
	}
	return snap
}

func (e *Engine) stateLocked() domain.State {
	st := domain.State{
		Phase:                  e.phase,
		CurrentQuestionIndex:   e.index,
		QuestionCount:          len(e.questions),
		IsResultShown:          e.resultShown,
		Score:                  e.score,
		QuestionTimerRemaining: e.questionTimer,
		IntervalTimerRemaining: e.intervalTimer,
		CountdownRemaining:     e.countdown,
		IsCountingDown:         e.countingDown,
		Hours:                  e.hours,
		Minutes:                e.minutes,
		Seconds:                e.seconds,
	}
	if e.selected != nil {
		idx := *e.selected
		st.SelectedIndex = &idx
	}
	if e.index < len(e.questions) {
		q := e.questions[e.index]
		st.CurrentQuestion = &q
	}
	return st
}

func (e *Engine) broadcastLocked() {
	st := e.stateLocked()
	for ch := range e.subscribers {
		select {
		case ch <- st:
		default:
			// Drop the stale update so a slow subscriber never blocks a tick.
			select {
			case <-ch:
			default:
			}
			ch <- st
		}
	}
}

func seconds(d time.Duration) int {
	return int(d / time.Second)
}

// splitTicks turns a span into whole ticks and the delay before the first one,
// so the last tick lands exactly at the end of the span.
func splitTicks(span time.Duration) (int, time.Duration) {
	n := int((span + tick - 1) / tick)
	return n, span - time.Duration(n-1)*tick
}

func secondsToDuration(secs float64) time.Duration {
	return time.Duration(secs * float64(time.Second)).Round(time.Microsecond)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func toEpoch(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

func fromEpoch(secs float64) time.Time {
	return time.Unix(0, int64(math.Round(secs*float64(time.Second))))
}
