package timeline

import "slices"

// CallerSnapshot is the most recent accepted report for one caller at or
// before a cutoff. Timestamp decides recency; on a tie the later arrival
// wins.
type CallerSnapshot struct {
	ReportEvent
}

// IncidentSnapshot is the derived state of one incident at or before a
// cutoff: which callers have reported under it, in first-seen order, and the
// largest contributing timestamp.
type IncidentSnapshot struct {
	IncidentID string   `json:"incident_id"`
	Callers    []string `json:"callers"`
	UpdatedAt  int64    `json:"updated_at"`
}

// View is the read model handed to display consumers after every mutating
// call. Maps and slices are copies; callers may hold a View across further
// engine activity.
type View struct {
	Callers   map[string]CallerSnapshot   `json:"callers"`
	Incidents map[string]IncidentSnapshot `json:"incidents"`
	// Cutoff is nil in live mode, otherwise the playback position.
	Cutoff  *int64  `json:"cutoff,omitempty"`
	Playing bool    `json:"playing"`
	Speed   float64 `json:"speed"`
	// MinTime and MaxTime bound the known history; both are zero while the
	// history is empty.
	MinTime int64 `json:"min_time"`
	MaxTime int64 `json:"max_time"`
}

// callerState and incidentState are the engine's internal fold accumulators.
// They carry bookkeeping (arrival ordinal, membership set) that the exported
// snapshots do not.
type callerState struct {
	snap CallerSnapshot
	seq  uint64
}

type incidentState struct {
	snap IncidentSnapshot
	seen map[string]struct{}
}

// applyEvent folds one event into the accumulators. This single update rule
// is shared by live incremental ingestion and by full reconstruction, which
// is what keeps the two paths equivalent.
func applyEvent(callers map[string]callerState, incidents map[string]*incidentState, se storedEvent) {
	cur, ok := callers[se.CallerID]
	if !ok || se.Timestamp > cur.snap.Timestamp ||
		(se.Timestamp == cur.snap.Timestamp && se.seq >= cur.seq) {
		callers[se.CallerID] = callerState{
			snap: CallerSnapshot{ReportEvent: se.ReportEvent},
			seq:  se.seq,
		}
	}

	inc, ok := incidents[se.IncidentID]
	if !ok {
		inc = &incidentState{
			snap: IncidentSnapshot{IncidentID: se.IncidentID, UpdatedAt: se.Timestamp},
			seen: make(map[string]struct{}),
		}
		incidents[se.IncidentID] = inc
	}
	if se.Timestamp > inc.snap.UpdatedAt {
		inc.snap.UpdatedAt = se.Timestamp
	}
	if _, dup := inc.seen[se.CallerID]; !dup {
		inc.seen[se.CallerID] = struct{}{}
		inc.snap.Callers = append(inc.snap.Callers, se.CallerID)
	}
}

func exportCallers(callers map[string]callerState) map[string]CallerSnapshot {
	out := make(map[string]CallerSnapshot, len(callers))
	for id, st := range callers {
		out[id] = st.snap
	}
	return out
}

func exportIncidents(incidents map[string]*incidentState) map[string]IncidentSnapshot {
	out := make(map[string]IncidentSnapshot, len(incidents))
	for id, st := range incidents {
		snap := st.snap
		snap.Callers = slices.Clone(st.snap.Callers)
		out[id] = snap
	}
	return out
}
