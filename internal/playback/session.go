// Package playback implements the per-viewer session state machine that
// drives sequential story display: auto-advance on a timer, press-and-hold
// pause, backward navigation, and chaining into adjacent author groups.
// Sessions are transient and never persisted.
package playback

import (
	"context"
	"sync"
	"time"

	"snapgram/internal/middleware"
	"snapgram/internal/models"
	"snapgram/internal/stories"
)

// State is the playback lifecycle state.
type State int

const (
	StateIdle State = iota
	StatePlaying
	StatePaused
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// ViewMarker records a story view. *service.ViewLedger satisfies this.
type ViewMarker interface {
	MarkViewed(ctx context.Context, storyID, viewerID uint) (bool, error)
}

// Options tune the auto-advance cadence. The defaults fill a story in
// roughly fifteen seconds: 100 / 0.6 ticks at 90ms each.
type Options struct {
	ProgressStep float64
	TickInterval time.Duration
}

const (
	defaultProgressStep = 0.6
	defaultTickInterval = 90 * time.Millisecond
	progressComplete    = 100
)

func (o Options) withDefaults() Options {
	if o.ProgressStep <= 0 {
		o.ProgressStep = defaultProgressStep
	}
	if o.TickInterval <= 0 {
		o.TickInterval = defaultTickInterval
	}
	return o
}

// Session is a single viewer's pass through one author group, with
// references to the adjacent groups for cross-author navigation. All methods
// are safe for concurrent use; the tick timer is the only autonomous source
// of transitions and runs only while the session is Playing.
type Session struct {
	mu sync.Mutex

	state    State
	group    *stories.AuthorGroup
	prev     *stories.AuthorGroup
	next     *stories.AuthorGroup
	index    int
	progress float64

	viewerID uint
	marker   ViewMarker
	opts     Options

	// baseCtx outlives individual tick timers so fire-and-forget ledger
	// writes are not cancelled by pause or close.
	baseCtx    context.Context
	cancelTick context.CancelFunc

	// marked dedupes ledger writes within this session; the ledger itself
	// is idempotent, this just avoids redundant round trips on revisits.
	marked map[uint]struct{}
}

func NewSession(ctx context.Context, viewerID uint, marker ViewMarker, opts Options) *Session {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Session{
		state:    StateIdle,
		viewerID: viewerID,
		marker:   marker,
		opts:     opts.withDefaults(),
		baseCtx:  ctx,
		marked:   make(map[uint]struct{}),
	}
}

// Open starts (or restarts) playback on group at startIndex. prev and next
// are the adjacent author groups in feed order; nil means no neighbor on
// that side. The item at startIndex is marked viewed immediately.
func (s *Session) Open(group *stories.AuthorGroup, prev, next *stories.AuthorGroup, startIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if group == nil || len(group.Stories) == 0 {
		return models.NewValidationError("Cannot open playback on an empty group")
	}
	if startIndex < 0 || startIndex >= len(group.Stories) {
		startIndex = 0
	}

	s.stopTickLocked()
	s.group = group
	s.prev = prev
	s.next = next
	s.index = startIndex
	s.progress = 0
	s.state = StatePlaying
	s.markViewedLocked()
	s.startTickLocked()
	return nil
}

// Pause freezes progress and cancels the tick timer. No-op unless Playing.
func (s *Session) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StatePlaying {
		return
	}
	s.stopTickLocked()
	s.state = StatePaused
}

// Resume continues from the frozen progress. No-op unless Paused.
func (s *Session) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StatePaused {
		return
	}
	s.state = StatePlaying
	s.startTickLocked()
}

// Advance moves to the next item in the group, or closes the session at the
// end of the group. The caller chains into the next group via NextGroup.
func (s *Session) Advance() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StatePlaying && s.state != StatePaused {
		return
	}
	s.advanceLocked()
}

// GoPrevious steps back one item within the group, resuming play from the
// start of that item. At index zero it is a no-op; use PreviousGroup to
// cross the group boundary.
func (s *Session) GoPrevious() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StatePlaying && s.state != StatePaused {
		return
	}
	if s.index == 0 {
		return
	}
	s.index--
	s.progress = 0
	if s.state == StatePaused {
		s.state = StatePlaying
		s.startTickLocked()
	}
	s.markViewedLocked()
}

// NextGroup opens the following author group from its first item. Returns
// false (and closes the session) when there is no next group.
func (s *Session) NextGroup() bool {
	s.mu.Lock()
	next := s.next
	cur := s.group
	prevOfNext := cur
	s.mu.Unlock()

	if next == nil {
		s.Close()
		return false
	}
	if err := s.Open(next, prevOfNext, nil, 0); err != nil {
		s.Close()
		return false
	}
	return true
}

// PreviousGroup opens the preceding author group, entering at its last item.
// Returns false when there is no previous group.
func (s *Session) PreviousGroup() bool {
	s.mu.Lock()
	prev := s.prev
	cur := s.group
	s.mu.Unlock()

	if prev == nil {
		return false
	}
	if err := s.Open(prev, nil, cur, len(prev.Stories)-1); err != nil {
		return false
	}
	return true
}

// SetNeighbors updates the adjacent groups, for callers that resolve
// neighbors lazily after Open.
func (s *Session) SetNeighbors(prev, next *stories.AuthorGroup) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prev = prev
	s.next = next
}

// Close terminates the session and cancels the tick timer. Terminal: a
// closed session never transitions again; start a new one with Open on a
// fresh Session.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTickLocked()
	s.state = StateClosed
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Index() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

func (s *Session) Progress() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

// Current returns the story under the playhead, or nil when the session has
// no open group.
func (s *Session) Current() *models.Story {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.group == nil || s.index >= len(s.group.Stories) {
		return nil
	}
	return s.group.Stories[s.index]
}

// tick advances progress by one step. Only the Playing state accumulates
// progress; a tick that lands after a pause or close is discarded.
func (s *Session) tick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StatePlaying {
		return
	}
	s.progress += s.opts.ProgressStep
	if s.progress >= progressComplete {
		s.advanceLocked()
	}
}

func (s *Session) advanceLocked() {
	if s.index < len(s.group.Stories)-1 {
		s.index++
		s.progress = 0
		if s.state == StatePaused {
			s.state = StatePlaying
			s.startTickLocked()
		}
		s.markViewedLocked()
		return
	}
	s.stopTickLocked()
	s.state = StateClosed
}

func (s *Session) startTickLocked() {
	ctx, cancel := context.WithCancel(s.baseCtx)
	s.cancelTick = cancel
	go s.runTicker(ctx)
}

// stopTickLocked cancels the running timer. Cancellation, not a flag: a
// stale timer must never fire a transition against a defunct session.
func (s *Session) stopTickLocked() {
	if s.cancelTick != nil {
		s.cancelTick()
		s.cancelTick = nil
	}
}

func (s *Session) runTicker(ctx context.Context) {
	ticker := time.NewTicker(s.opts.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

// markViewedLocked records a view of the current item, fire and forget. The
// write never blocks a transition; failures count toward telemetry only.
func (s *Session) markViewedLocked() {
	story := s.group.Stories[s.index]
	if story.UserID == s.viewerID || s.marker == nil {
		return
	}
	if _, done := s.marked[story.ID]; done {
		return
	}
	s.marked[story.ID] = struct{}{}

	go func(storyID uint) {
		if _, err := s.marker.MarkViewed(s.baseCtx, storyID, s.viewerID); err != nil {
			middleware.ViewWriteFailures.Inc()
			middleware.Logger.WarnContext(s.baseCtx, "view ledger write failed",
				"story_id", storyID, "viewer_id", s.viewerID, "error", err)
		}
	}(story.ID)
}
