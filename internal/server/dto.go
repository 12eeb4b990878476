package server

import "time"

type CoordsPayload struct {
	Lat float64 `json:"lat" validate:"latitude"`
	Lng float64 `json:"lng" validate:"longitude"`
}

type ReportEventRequest struct {
	CallerID        string         `json:"caller_id" validate:"required"`
	IncidentID      string         `json:"incident_id" validate:"required"`
	Timestamp       int64          `json:"timestamp" validate:"required,gt=0"`
	Coords          CoordsPayload  `json:"coords" validate:"required"`
	Scenario        string         `json:"scenario" validate:"required"`
	Data            map[string]any `json:"data"`
	BystanderReport *string        `json:"bystander_report"`
}

type IngestAck struct {
	Accepted bool   `json:"accepted"`
	Error    string `json:"error,omitempty"`
}

type ScrubRequest struct {
	TargetTime int64 `json:"target_time" validate:"required"`
}

type SpeedRequest struct {
	Speed float64 `json:"speed" validate:"required,gt=0"`
}

type RoomTokenRequest struct {
	Room     string `json:"room" validate:"required"`
	Identity string `json:"identity" validate:"required"`
	Role     string `json:"role" validate:"required,oneof=publisher viewer"`
}

type RoomTokenResponse struct {
	URL       string    `json:"url"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type SessionResponse struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

type CallerSnapshotResponse struct {
	CallerID        string         `json:"caller_id"`
	IncidentID      string         `json:"incident_id"`
	Timestamp       int64          `json:"timestamp"`
	Coords          CoordsPayload  `json:"coords"`
	Scenario        string         `json:"scenario"`
	Data            map[string]any `json:"data,omitempty"`
	BystanderReport string         `json:"bystander_report,omitempty"`
}

type IncidentSnapshotResponse struct {
	IncidentID string   `json:"incident_id"`
	Callers    []string `json:"callers"`
	UpdatedAt  int64    `json:"updated_at"`
}

type SnapshotResponse struct {
	SessionID string                              `json:"session_id"`
	Callers   map[string]CallerSnapshotResponse   `json:"callers"`
	Incidents map[string]IncidentSnapshotResponse `json:"incidents"`
	Cutoff    *int64                              `json:"cutoff,omitempty"`
	Playing   bool                                `json:"playing"`
	Speed     float64                             `json:"speed"`
	MinTime   int64                               `json:"min_time"`
	MaxTime   int64                               `json:"max_time"`
}

type HealthResponse struct {
	Status   string `json:"status"`
	Env      string `json:"env"`
	Uptime   string `json:"uptime"`
	Sessions int    `json:"sessions"`
}
