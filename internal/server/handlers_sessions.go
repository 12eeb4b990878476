package server

import "net/http"

// handleOpenSession godoc
// @Title Open dispatcher session
// @Description Creates a session with a fresh timeline engine in live mode.
// @Resource Sessions
// @Produce json
// @Success 201 {object} SessionResponse
// @Route /v1/sessions [post]
func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Open()
	activeSessions.Set(float64(s.sessions.Count()))
	s.writeJSON(w, http.StatusCreated, SessionResponse{ID: sess.ID, CreatedAt: sess.CreatedAt})
}

// handleCloseSession godoc
// @Title Close dispatcher session
// @Description Ends the session, releasing its history and playback clock.
// @Resource Sessions
// @Success 204
// @Failure 404 {object} APIError
// @Route /v1/sessions/{sessionID} [delete]
func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}
	s.sessions.Close(sess.ID)
	activeSessions.Set(float64(s.sessions.Count()))
	w.WriteHeader(http.StatusNoContent)
}

// handleGetSnapshot godoc
// @Title Read session snapshot
// @Description Returns the current read model: caller map, incident map and playback state.
// @Resource Sessions
// @Produce json
// @Success 200 {object} SnapshotResponse
// @Failure 404 {object} APIError
// @Route /v1/sessions/{sessionID}/snapshot [get]
func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, mapView(sess.ID, sess.Engine.View()))
}
