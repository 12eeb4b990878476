package timeline

import (
	"cmp"
	"errors"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrInvalidCoordinates is returned by Ingest when a report carries a
// non-finite latitude or longitude. The report is dropped and no engine
// state changes.
var ErrInvalidCoordinates = errors.New("timeline: report has non-finite coordinates")

const (
	// DefaultClockTick is the wall-clock period of the playback clock.
	DefaultClockTick = 100 * time.Millisecond

	// clockStepMS is how much synthetic time one tick advances at speed 1.
	clockStepMS = 1000
)

// Engine owns the full report history of one dispatcher session and the two
// derived maps built from it. A nil cutoff means live mode: the maps reflect
// the entire history and are updated incrementally on ingest. A non-nil
// cutoff means playback mode: the maps reflect only events at or before the
// cutoff and are rebuilt from history on every step.
//
// All methods are safe for concurrent use; the playback clock runs on its
// own goroutine and reads the authoritative state under the same lock as
// user-initiated calls, so a scrub or toggle that lands between two ticks
// always wins over the next tick.
type Engine struct {
	log  zerolog.Logger
	tick time.Duration

	mu      sync.Mutex
	history []storedEvent
	seq     uint64
	minTime int64
	maxTime int64

	cutoff  *int64
	playing bool
	speed   float64

	callers   map[string]callerState
	incidents map[string]*incidentState

	// stopClock is non-nil exactly while a clock goroutine is running.
	// Closing it is the only way a transition out of Playing releases the
	// clock; the goroutine compares channel identity before acting so a
	// stale tick can never touch fresh state.
	stopClock chan struct{}

	subs    map[int]chan View
	nextSub int
}

// New returns an empty engine in live mode. A non-positive tick falls back
// to DefaultClockTick.
func New(log zerolog.Logger, tick time.Duration) *Engine {
	if tick <= 0 {
		tick = DefaultClockTick
	}
	return &Engine{
		log:       log,
		tick:      tick,
		speed:     1,
		callers:   make(map[string]callerState),
		incidents: make(map[string]*incidentState),
		subs:      make(map[int]chan View),
	}
}

// Ingest validates and appends one report. Reports with non-finite
// coordinates are rejected and leave every read model untouched. In live
// mode the derived maps are updated in place; in playback mode the report is
// appended for a later GoLive or scrub to pick up, but the currently
// displayed maps do not move.
func (e *Engine) Ingest(ev ReportEvent) error {
	if !ev.Coords.Finite() {
		e.log.Warn().
			Str("caller_id", ev.CallerID).
			Str("incident_id", ev.IncidentID).
			Int64("timestamp", ev.Timestamp).
			Msg("report rejected, non-finite coordinates")
		return ErrInvalidCoordinates
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.seq++
	se := storedEvent{ReportEvent: ev, seq: e.seq}
	e.history = append(e.history, se)
	if len(e.history) == 1 {
		e.minTime, e.maxTime = ev.Timestamp, ev.Timestamp
	} else {
		e.minTime = min(e.minTime, ev.Timestamp)
		e.maxTime = max(e.maxTime, ev.Timestamp)
	}

	if e.cutoff == nil {
		applyEvent(e.callers, e.incidents, se)
	}
	e.notifyLocked()
	return nil
}

// ReconstructAsOf derives both maps for an arbitrary cutoff without touching
// engine state. It filters the history to events at or before target, sorts
// the subset by timestamp with arrival order as tie-break, and folds it with
// the same update rule live ingestion uses. Out-of-range targets simply
// yield an empty or a full reconstruction.
func (e *Engine) ReconstructAsOf(target int64) (map[string]CallerSnapshot, map[string]IncidentSnapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()
	callers, incidents := e.reconstructLocked(target)
	return exportCallers(callers), exportIncidents(incidents)
}

func (e *Engine) reconstructLocked(target int64) (map[string]callerState, map[string]*incidentState) {
	filtered := make([]storedEvent, 0, len(e.history))
	for _, se := range e.history {
		if se.Timestamp <= target {
			filtered = append(filtered, se)
		}
	}
	// The history is kept in arrival order, which is not necessarily
	// chronological. Sort explicitly before folding.
	slices.SortFunc(filtered, func(a, b storedEvent) int {
		if c := cmp.Compare(a.Timestamp, b.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})

	callers := make(map[string]callerState)
	incidents := make(map[string]*incidentState)
	for _, se := range filtered {
		applyEvent(callers, incidents, se)
	}
	return callers, incidents
}

// GoLive leaves playback: the cutoff clears, any running clock stops, and
// both maps are rebuilt over the full history so reports that arrived during
// playback become visible.
func (e *Engine) GoLive() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopClockLocked()
	e.cutoff = nil
	e.playing = false
	e.callers, e.incidents = e.reconstructLocked(math.MaxInt64)
	e.notifyLocked()
}

// TogglePlayback moves between the Live, Paused and Playing states. From
// live it jumps to the earliest event and starts the clock (a no-op while
// the history is empty); from paused it resumes in place; from playing it
// pauses in place. Returning to live is only possible through GoLive.
func (e *Engine) TogglePlayback() {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch {
	case e.cutoff == nil:
		if len(e.history) == 0 {
			return
		}
		e.setCutoffLocked(e.minTime)
		e.playing = true
		e.startClockLocked()
	case e.playing:
		e.playing = false
		e.stopClockLocked()
	default:
		e.playing = true
		e.startClockLocked()
	}
	e.notifyLocked()
}

// Scrub jumps playback to target and always pauses. The engine does not
// clamp; callers are expected to keep target within [MinTime, MaxTime], and
// anything outside just reconstructs an empty or full view.
func (e *Engine) Scrub(target int64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopClockLocked()
	e.playing = false
	e.setCutoffLocked(target)
	e.notifyLocked()
}

// SetSpeed updates the clock multiplier for the next tick. Non-positive
// values are ignored; restricting to the 1/2/4 presets is the UI's concern,
// not the engine's.
func (e *Engine) SetSpeed(multiplier float64) {
	if multiplier <= 0 || math.IsNaN(multiplier) || math.IsInf(multiplier, 0) {
		e.log.Warn().Float64("speed", multiplier).Msg("ignoring non-positive speed")
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.speed = multiplier
	e.notifyLocked()
}

// Reset clears the session: history, derived maps, playback clock and cutoff
// all return to their initial live-mode state.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopClockLocked()
	e.history = nil
	e.seq = 0
	e.minTime, e.maxTime = 0, 0
	e.cutoff = nil
	e.playing = false
	e.speed = 1
	e.callers = make(map[string]callerState)
	e.incidents = make(map[string]*incidentState)
	e.notifyLocked()
}

// Close stops the clock and closes every subscriber channel. The engine must
// not be used afterwards.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopClockLocked()
	e.playing = false
	for id, ch := range e.subs {
		close(ch)
		delete(e.subs, id)
	}
}

// View returns a copy of the current read model.
func (e *Engine) View() View {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.viewLocked()
}

// Subscribe registers a push consumer that receives the View after every
// state change. Slow consumers miss intermediate views rather than block the
// engine. The returned cancel func must be called exactly once.
func (e *Engine) Subscribe() (<-chan View, func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.nextSub
	e.nextSub++
	ch := make(chan View, 8)
	e.subs[id] = ch

	cancel := func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if ch, ok := e.subs[id]; ok {
			close(ch)
			delete(e.subs, id)
		}
	}
	return ch, cancel
}

// setCutoffLocked moves the cutoff and rebuilds both maps for it.
func (e *Engine) setCutoffLocked(target int64) {
	t := target
	e.cutoff = &t
	e.callers, e.incidents = e.reconstructLocked(target)
}

func (e *Engine) viewLocked() View {
	v := View{
		Callers:   exportCallers(e.callers),
		Incidents: exportIncidents(e.incidents),
		Playing:   e.playing,
		Speed:     e.speed,
		MinTime:   e.minTime,
		MaxTime:   e.maxTime,
	}
	if e.cutoff != nil {
		t := *e.cutoff
		v.Cutoff = &t
	}
	return v
}

func (e *Engine) notifyLocked() {
	if len(e.subs) == 0 {
		return
	}
	v := e.viewLocked()
	for _, ch := range e.subs {
		select {
		case ch <- v:
		default:
		}
	}
}

// startClockLocked spawns the playback clock. Any previous clock is stopped
// first so at most one is ever running.
func (e *Engine) startClockLocked() {
	e.stopClockLocked()
	stop := make(chan struct{})
	e.stopClock = stop
	go e.runClock(stop)
}

// stopClockLocked releases the active clock handle, if any. Safe to call on
// every exit path out of Playing; the handle is only released once.
func (e *Engine) stopClockLocked() {
	if e.stopClock != nil {
		close(e.stopClock)
		e.stopClock = nil
	}
}

func (e *Engine) runClock(stop chan struct{}) {
	ticker := time.NewTicker(e.tick)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if e.step(stop) {
				return
			}
		}
	}
}

// step advances the cutoff by one clock increment, reading the authoritative
// state at fire time. It reports true when this clock should terminate:
// either it has been superseded or playback reached the end of history and
// auto-paused there.
func (e *Engine) step(stop chan struct{}) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	// A scrub, pause or goLive between ticks replaces the handle; a tick
	// from the old clock must not act on the new state.
	if e.stopClock != stop || !e.playing || e.cutoff == nil {
		return true
	}

	next := *e.cutoff + int64(clockStepMS*e.speed)
	if next >= e.maxTime {
		// Terminal state of playback: pause at the last event, do not
		// overshoot and do not fall back to live.
		e.setCutoffLocked(e.maxTime)
		e.playing = false
		e.stopClock = nil
		e.notifyLocked()
		return true
	}
	e.setCutoffLocked(next)
	e.notifyLocked()
	return false
}
