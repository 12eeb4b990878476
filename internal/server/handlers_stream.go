package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"

	"vantage/dispatch/internal/timeline"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin filtering is handled by the router's CORS policy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleStreamSession godoc
// @Title Stream session views
// @Description Server-sent events: pushes the full snapshot after every state
// @Description change (ingest, scrub, playback tick). The first message is the
// @Description current snapshot.
// @Resource Streaming
// @Produce text/event-stream
// @Success 200
// @Failure 404 {object} APIError
// @Route /v1/sessions/{sessionID}/stream [get]
func (s *Server) handleStreamSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming unsupported", nil)
		return
	}

	views, cancel := sess.Engine.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	writeView := func(v timeline.View) bool {
		payload, err := json.Marshal(mapView(sess.ID, v))
		if err != nil {
			s.log.Error().Err(err).Str("session_id", sess.ID).Msg("marshal view for sse")
			return false
		}
		if _, err := fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", payload); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	if !writeView(sess.Engine.View()) {
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case v, open := <-views:
			if !open {
				// Session closed underneath us.
				return
			}
			if !writeView(v) {
				return
			}
		}
	}
}

// handleIngestSocket godoc
// @Title Ingestion push channel
// @Description Websocket upgrade. Each text message is one report event payload;
// @Description every message is answered with an accept/reject acknowledgement.
// @Resource Streaming
// @Success 101
// @Failure 404 {object} APIError
// @Route /v1/sessions/{sessionID}/ingest [get]
func (s *Server) handleIngestSocket(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug().Err(err).Str("session_id", sess.ID).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	for {
		var req ReportEventRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug().Err(err).Str("session_id", sess.ID).Msg("ingest socket closed")
			}
			return
		}

		ack := IngestAck{Accepted: true}
		if err := s.validate.Struct(req); err != nil {
			reportsRejected.WithLabelValues("invalid_payload").Inc()
			ack = IngestAck{Error: errInvalidPayload}
		} else if err := sess.Engine.Ingest(mapReportEvent(req)); err != nil {
			reason := "ingest_failed"
			if errors.Is(err, timeline.ErrInvalidCoordinates) {
				reason = "invalid_coordinates"
			}
			reportsRejected.WithLabelValues(reason).Inc()
			ack = IngestAck{Error: err.Error()}
		} else {
			reportsIngested.Inc()
		}

		if err := conn.WriteJSON(ack); err != nil {
			return
		}
	}
}
