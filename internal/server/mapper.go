package server

import "vantage/dispatch/internal/timeline"

// mapView flattens an engine view into the wire representation served to
// display consumers, both on snapshot reads and on the SSE stream.
func mapView(sessionID string, v timeline.View) SnapshotResponse {
	callers := make(map[string]CallerSnapshotResponse, len(v.Callers))
	for id, c := range v.Callers {
		callers[id] = CallerSnapshotResponse{
			CallerID:        c.CallerID,
			IncidentID:      c.IncidentID,
			Timestamp:       c.Timestamp,
			Coords:          CoordsPayload{Lat: c.Coords.Lat, Lng: c.Coords.Lng},
			Scenario:        string(c.Scenario),
			Data:            c.Data,
			BystanderReport: c.BystanderReport,
		}
	}

	incidents := make(map[string]IncidentSnapshotResponse, len(v.Incidents))
	for id, inc := range v.Incidents {
		incidents[id] = IncidentSnapshotResponse{
			IncidentID: inc.IncidentID,
			Callers:    inc.Callers,
			UpdatedAt:  inc.UpdatedAt,
		}
	}

	return SnapshotResponse{
		SessionID: sessionID,
		Callers:   callers,
		Incidents: incidents,
		Cutoff:    v.Cutoff,
		Playing:   v.Playing,
		Speed:     v.Speed,
		MinTime:   v.MinTime,
		MaxTime:   v.MaxTime,
	}
}

// mapReportEvent converts an accepted API payload into the engine's event
// shape. Unrecognised scenario tags collapse to unknown; the vision model's
// raw output is preserved verbatim in the data payload either way.
func mapReportEvent(req ReportEventRequest) timeline.ReportEvent {
	scenario := timeline.Scenario(req.Scenario)
	if !scenario.Known() {
		scenario = timeline.ScenarioUnknown
	}

	ev := timeline.ReportEvent{
		CallerID:   req.CallerID,
		IncidentID: req.IncidentID,
		Timestamp:  req.Timestamp,
		Coords:     timeline.Coords{Lat: req.Coords.Lat, Lng: req.Coords.Lng},
		Scenario:   scenario,
		Data:       req.Data,
	}
	if req.BystanderReport != nil {
		ev.BystanderReport = *req.BystanderReport
	}
	return ev
}
