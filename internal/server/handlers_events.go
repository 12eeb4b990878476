package server

import (
	"errors"
	"net/http"

	"vantage/dispatch/internal/timeline"
)

// handleIngestEvent godoc
// @Title Ingest report event
// @Description Appends one caller report to the session history. Reports with
// @Description out-of-range or non-finite coordinates are rejected and change nothing.
// @Resource Events
// @Accept json
// @Produce json
// @Success 202 {object} IngestAck
// @Failure 400 {object} APIError
// @Failure 404 {object} APIError
// @Failure 422 {object} APIError
// @Route /v1/sessions/{sessionID}/events [post]
func (s *Server) handleIngestEvent(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}

	var req ReportEventRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		reportsRejected.WithLabelValues("invalid_payload").Inc()
		s.writeError(w, http.StatusBadRequest, errInvalidPayload, err.Error())
		return
	}

	if err := sess.Engine.Ingest(mapReportEvent(req)); err != nil {
		if errors.Is(err, timeline.ErrInvalidCoordinates) {
			reportsRejected.WithLabelValues("invalid_coordinates").Inc()
			s.writeError(w, http.StatusUnprocessableEntity, "invalid coordinates", nil)
			return
		}
		s.writeError(w, http.StatusInternalServerError, "failed to ingest report", err.Error())
		return
	}

	reportsIngested.Inc()
	s.writeJSON(w, http.StatusAccepted, IngestAck{Accepted: true})
}
