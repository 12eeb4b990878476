// Package timeline implements the event-sourced playback engine behind the
// dispatcher console. It owns an append-only history of caller reports and
// derives two read models from it on demand: the latest state per caller and
// the callers grouped into incidents, either live or as of an arbitrary
// historical cutoff.
package timeline

import "math"

// Scenario is the closed set of anomaly categories attached to a report by
// the vision pipeline before it reaches the engine.
type Scenario string

const (
	ScenarioVehicleCollision Scenario = "vehicle_collision"
	ScenarioFire             Scenario = "fire"
	ScenarioMedical          Scenario = "medical"
	ScenarioStructural       Scenario = "structural"
	ScenarioHazmat           Scenario = "hazmat"
	ScenarioUnknown          Scenario = "unknown"
)

// Scenarios lists every recognised category tag.
func Scenarios() []Scenario {
	return []Scenario{
		ScenarioVehicleCollision,
		ScenarioFire,
		ScenarioMedical,
		ScenarioStructural,
		ScenarioHazmat,
		ScenarioUnknown,
	}
}

// Known reports whether s is a member of the closed scenario set.
func (s Scenario) Known() bool {
	switch s {
	case ScenarioVehicleCollision, ScenarioFire, ScenarioMedical,
		ScenarioStructural, ScenarioHazmat, ScenarioUnknown:
		return true
	}
	return false
}

// Coords is a WGS84 position. Both components must be finite for a report to
// be accepted.
type Coords struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Finite reports whether both components are finite IEEE-754 doubles.
func (c Coords) Finite() bool {
	return !math.IsNaN(c.Lat) && !math.IsInf(c.Lat, 0) &&
		!math.IsNaN(c.Lng) && !math.IsInf(c.Lng, 0)
}

// ReportEvent is one caller observation. Events are immutable once accepted;
// the engine only ever appends them. Timestamp is milliseconds since epoch
// and is the sole ordering key for playback; arrival order is preserved but
// never assumed sorted.
type ReportEvent struct {
	CallerID        string         `json:"caller_id"`
	IncidentID      string         `json:"incident_id"`
	Timestamp       int64          `json:"timestamp"`
	Coords          Coords         `json:"coords"`
	Scenario        Scenario       `json:"scenario"`
	Data            map[string]any `json:"data,omitempty"`
	BystanderReport string         `json:"bystander_report,omitempty"`
}

// storedEvent pairs an accepted report with its arrival ordinal. The ordinal
// breaks timestamp ties: the later arrival wins.
type storedEvent struct {
	ReportEvent
	seq uint64
}
