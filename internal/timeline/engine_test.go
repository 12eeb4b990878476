package timeline

import (
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e := New(zerolog.Nop(), DefaultClockTick)
	t.Cleanup(e.Close)
	return e
}

func report(caller, incident string, ts int64) ReportEvent {
	return ReportEvent{
		CallerID:   caller,
		IncidentID: incident,
		Timestamp:  ts,
		Coords:     Coords{Lat: 48.85, Lng: 2.35},
		Scenario:   ScenarioFire,
	}
}

func mustIngest(t *testing.T, e *Engine, events ...ReportEvent) {
	t.Helper()
	for _, ev := range events {
		require.NoError(t, e.Ingest(ev))
	}
}

func TestIngestRejectsNonFiniteCoordinates(t *testing.T) {
	cases := []struct {
		name string
		lat  float64
		lng  float64
	}{
		{"nan latitude", math.NaN(), 0},
		{"nan longitude", 0, math.NaN()},
		{"positive inf latitude", math.Inf(1), 0},
		{"negative inf longitude", 0, math.Inf(-1)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newTestEngine(t)
			mustIngest(t, e, report("c1", "i1", 100))
			before := e.View()

			err := e.Ingest(ReportEvent{
				CallerID:   "c9",
				IncidentID: "i9",
				Timestamp:  500,
				Coords:     Coords{Lat: tc.lat, Lng: tc.lng},
				Scenario:   ScenarioUnknown,
			})
			require.ErrorIs(t, err, ErrInvalidCoordinates)

			after := e.View()
			assert.Equal(t, before, after, "rejected report must not change any read model")
			assert.NotContains(t, after.Callers, "c9")
			assert.NotContains(t, after.Incidents, "i9")
		})
	}
}

func TestBasicFold(t *testing.T) {
	e := newTestEngine(t)
	mustIngest(t, e,
		report("c1", "i1", 100),
		report("c2", "i1", 200),
		report("c1", "i1", 300),
	)

	v := e.View()
	require.Contains(t, v.Incidents, "i1")
	assert.Equal(t, []string{"c1", "c2"}, v.Incidents["i1"].Callers, "first-seen order")
	assert.Equal(t, int64(300), v.Incidents["i1"].UpdatedAt)
	require.Contains(t, v.Callers, "c1")
	assert.Equal(t, int64(300), v.Callers["c1"].Timestamp, "caller snapshot must reflect the latest report")
	assert.Equal(t, int64(100), v.MinTime)
	assert.Equal(t, int64(300), v.MaxTime)
	assert.Nil(t, v.Cutoff)
}

func TestScrubBackInTime(t *testing.T) {
	e := newTestEngine(t)
	mustIngest(t, e,
		report("c1", "i1", 100),
		report("c2", "i1", 200),
		report("c1", "i1", 300),
	)

	e.Scrub(150)

	v := e.View()
	require.NotNil(t, v.Cutoff)
	assert.Equal(t, int64(150), *v.Cutoff)
	assert.False(t, v.Playing, "manual scrub always pauses")
	assert.Equal(t, int64(100), v.Callers["c1"].Timestamp)
	assert.NotContains(t, v.Callers, "c2")
	assert.Equal(t, []string{"c1"}, v.Incidents["i1"].Callers)
	assert.Equal(t, int64(100), v.Incidents["i1"].UpdatedAt)
}

func TestReconstructOutOfOrderTimestamps(t *testing.T) {
	e := newTestEngine(t)
	mustIngest(t, e,
		report("c1", "i1", 300),
		report("c2", "i1", 100),
		report("c3", "i1", 200),
	)

	callers, incidents := e.ReconstructAsOf(250)
	assert.Contains(t, callers, "c2")
	assert.Contains(t, callers, "c3")
	assert.NotContains(t, callers, "c1", "t=300 is past the cutoff")
	require.Contains(t, incidents, "i1")
	assert.Equal(t, []string{"c2", "c3"}, incidents["i1"].Callers, "fold order is chronological, not arrival")
	assert.Equal(t, int64(200), incidents["i1"].UpdatedAt)
}

func TestLiveReplayEquivalence(t *testing.T) {
	// Arrival order deliberately disagrees with chronological order.
	history := []ReportEvent{
		report("c1", "i1", 500),
		report("c2", "i1", 100),
		report("c3", "i2", 300),
		report("c1", "i1", 200),
		report("c2", "i2", 400),
		report("c4", "i2", 600),
	}

	full := newTestEngine(t)
	mustIngest(t, full, history...)

	sorted := make([]ReportEvent, len(history))
	copy(sorted, history)
	for i := range sorted {
		for j := i + 1; j < len(sorted); j++ {
			if sorted[j].Timestamp < sorted[i].Timestamp {
				sorted[i], sorted[j] = sorted[j], sorted[i]
			}
		}
	}

	for k := range sorted {
		cutoff := sorted[k].Timestamp

		live := newTestEngine(t)
		mustIngest(t, live, sorted[:k+1]...)
		liveView := live.View()

		callers, incidents := full.ReconstructAsOf(cutoff)
		assert.Equal(t, liveView.Callers, callers, "cutoff=%d", cutoff)
		assert.Equal(t, liveView.Incidents, incidents, "cutoff=%d", cutoff)
	}
}

func TestReconstructIsIdempotent(t *testing.T) {
	e := newTestEngine(t)
	mustIngest(t, e,
		report("c1", "i1", 300),
		report("c2", "i1", 100),
		report("c3", "i2", 200),
	)

	c1, i1 := e.ReconstructAsOf(250)
	c2, i2 := e.ReconstructAsOf(250)
	assert.Equal(t, c1, c2)
	assert.Equal(t, i1, i2)

	// Reconstruction must not have disturbed the live view either.
	v := e.View()
	assert.Len(t, v.Callers, 3)
	assert.Nil(t, v.Cutoff)
}

func TestUpdatedAtAndCallerSetAreMonotonic(t *testing.T) {
	e := newTestEngine(t)
	mustIngest(t, e,
		report("c1", "i1", 100),
		report("c2", "i1", 400),
		report("c3", "i1", 200),
		report("c1", "i1", 300),
		report("c4", "i1", 500),
	)

	var lastUpdated int64
	var lastCallers []string
	for _, target := range []int64{50, 100, 200, 300, 400, 500, 600} {
		_, incidents := e.ReconstructAsOf(target)
		inc, ok := incidents["i1"]
		if !ok {
			continue
		}
		assert.GreaterOrEqual(t, inc.UpdatedAt, lastUpdated, "target=%d", target)
		lastUpdated = inc.UpdatedAt

		for i, caller := range lastCallers {
			require.Less(t, i, len(inc.Callers))
			assert.Equal(t, caller, inc.Callers[i], "caller set may only grow, in stable order")
		}
		lastCallers = inc.Callers
	}
}

func TestTimestampTieLaterArrivalWins(t *testing.T) {
	e := newTestEngine(t)
	first := report("c1", "i1", 100)
	first.BystanderReport = "first arrival"
	second := report("c1", "i1", 100)
	second.BystanderReport = "second arrival"
	mustIngest(t, e, first, second)

	v := e.View()
	assert.Equal(t, "second arrival", v.Callers["c1"].BystanderReport)

	callers, _ := e.ReconstructAsOf(100)
	assert.Equal(t, "second arrival", callers["c1"].BystanderReport)
}

func TestTogglePlaybackStateMachine(t *testing.T) {
	e := newTestEngine(t)

	// Live with empty history: no-op.
	e.TogglePlayback()
	v := e.View()
	assert.Nil(t, v.Cutoff)
	assert.False(t, v.Playing)

	mustIngest(t, e, report("c1", "i1", 100), report("c2", "i1", 300))

	// Live -> Playing@minTime.
	e.TogglePlayback()
	v = e.View()
	require.NotNil(t, v.Cutoff)
	assert.Equal(t, int64(100), *v.Cutoff)
	assert.True(t, v.Playing)

	// Playing -> Paused in place.
	e.TogglePlayback()
	v = e.View()
	require.NotNil(t, v.Cutoff)
	assert.False(t, v.Playing)
	pausedAt := *v.Cutoff

	// Paused -> Playing resumes from the same position.
	e.TogglePlayback()
	v = e.View()
	require.NotNil(t, v.Cutoff)
	assert.Equal(t, pausedAt, *v.Cutoff)
	assert.True(t, v.Playing)

	// Only GoLive returns to live.
	e.GoLive()
	v = e.View()
	assert.Nil(t, v.Cutoff)
	assert.False(t, v.Playing)
}

func TestIngestDuringPlaybackIsDeferred(t *testing.T) {
	e := newTestEngine(t)
	mustIngest(t, e, report("c1", "i1", 100), report("c2", "i1", 200))

	e.Scrub(250)
	mustIngest(t, e, report("c3", "i1", 50))

	v := e.View()
	assert.NotContains(t, v.Callers, "c3", "playback view must not move on ingest")
	assert.Equal(t, int64(50), v.MinTime, "history bounds still track the append")

	// A fresh reconstruction at the same cutoff does see it.
	callers, _ := e.ReconstructAsOf(250)
	assert.Contains(t, callers, "c3")

	e.GoLive()
	v = e.View()
	assert.Contains(t, v.Callers, "c3")
	assert.Equal(t, []string{"c3", "c1", "c2"}, v.Incidents["i1"].Callers, "go-live recomputes chronological first-seen order")
}

func TestClockAutoPausesAtEnd(t *testing.T) {
	e := New(zerolog.Nop(), time.Millisecond)
	t.Cleanup(e.Close)
	mustIngest(t, e,
		report("c1", "i1", 0),
		report("c2", "i1", 2500),
	)
	e.SetSpeed(4)

	e.TogglePlayback()

	deadline := time.After(2 * time.Second)
	for {
		v := e.View()
		if !v.Playing {
			require.NotNil(t, v.Cutoff)
			assert.Equal(t, int64(2500), *v.Cutoff, "clock clamps at maxTime, never overshoots")
			assert.Contains(t, v.Callers, "c2")
			return
		}
		if v.Cutoff != nil {
			assert.LessOrEqual(t, *v.Cutoff, int64(2500))
		}
		select {
		case <-deadline:
			t.Fatal("playback never auto-paused at the end of history")
		case <-time.After(time.Millisecond):
		}
	}
}

func TestScrubStopsRunningClock(t *testing.T) {
	e := New(zerolog.Nop(), time.Millisecond)
	t.Cleanup(e.Close)
	mustIngest(t, e, report("c1", "i1", 0), report("c2", "i1", 60_000))

	e.TogglePlayback()
	e.Scrub(30_000)

	v := e.View()
	assert.False(t, v.Playing)
	require.NotNil(t, v.Cutoff)
	assert.Equal(t, int64(30_000), *v.Cutoff)

	// Give any stale tick a chance to fire; the cutoff must not move.
	time.Sleep(20 * time.Millisecond)
	v = e.View()
	require.NotNil(t, v.Cutoff)
	assert.Equal(t, int64(30_000), *v.Cutoff, "a scrub between ticks wins over the stale clock")
}

func TestSetSpeedIgnoresNonPositive(t *testing.T) {
	e := newTestEngine(t)
	e.SetSpeed(4)
	assert.Equal(t, float64(4), e.View().Speed)

	e.SetSpeed(0)
	e.SetSpeed(-2)
	e.SetSpeed(math.NaN())
	assert.Equal(t, float64(4), e.View().Speed)
}

func TestResetClearsSession(t *testing.T) {
	e := newTestEngine(t)
	mustIngest(t, e, report("c1", "i1", 100))
	e.Scrub(100)

	e.Reset()

	v := e.View()
	assert.Empty(t, v.Callers)
	assert.Empty(t, v.Incidents)
	assert.Nil(t, v.Cutoff)
	assert.False(t, v.Playing)
	assert.Equal(t, float64(1), v.Speed)
	assert.Zero(t, v.MinTime)
	assert.Zero(t, v.MaxTime)
}

func TestSubscribeReceivesViews(t *testing.T) {
	e := newTestEngine(t)
	ch, cancel := e.Subscribe()
	defer cancel()

	mustIngest(t, e, report("c1", "i1", 100))

	select {
	case v := <-ch:
		assert.Contains(t, v.Callers, "c1")
	case <-time.After(time.Second):
		t.Fatal("no view pushed after ingest")
	}
}

func TestViewIsACopy(t *testing.T) {
	e := newTestEngine(t)
	mustIngest(t, e, report("c1", "i1", 100), report("c2", "i1", 200))

	v := e.View()
	v.Incidents["i1"].Callers[0] = "mutated"
	delete(v.Callers, "c1")

	fresh := e.View()
	assert.Equal(t, []string{"c1", "c2"}, fresh.Incidents["i1"].Callers)
	assert.Contains(t, fresh.Callers, "c1")
}
