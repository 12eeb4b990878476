package server

import "net/http"

// handleTogglePlayback godoc
// @Title Toggle playback
// @Description From live, jumps to the earliest report and starts playing; while
// @Description in playback, alternates between playing and paused. Returns the
// @Description resulting snapshot.
// @Resource Playback
// @Produce json
// @Success 200 {object} SnapshotResponse
// @Failure 404 {object} APIError
// @Route /v1/sessions/{sessionID}/playback/toggle [post]
func (s *Server) handleTogglePlayback(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}
	sess.Engine.TogglePlayback()
	s.writeJSON(w, http.StatusOK, mapView(sess.ID, sess.Engine.View()))
}

// handleGoLive godoc
// @Title Return to live
// @Description Leaves playback and rebuilds the view over the full history,
// @Description including reports that arrived while scrubbing.
// @Resource Playback
// @Produce json
// @Success 200 {object} SnapshotResponse
// @Failure 404 {object} APIError
// @Route /v1/sessions/{sessionID}/playback/live [post]
func (s *Server) handleGoLive(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}
	sess.Engine.GoLive()
	s.writeJSON(w, http.StatusOK, mapView(sess.ID, sess.Engine.View()))
}

// handleScrub godoc
// @Title Scrub playback position
// @Description Pauses playback at the requested time. Targets outside the known
// @Description history are clamped to its bounds rather than rejected.
// @Resource Playback
// @Accept json
// @Produce json
// @Success 200 {object} SnapshotResponse
// @Failure 400 {object} APIError
// @Failure 404 {object} APIError
// @Route /v1/sessions/{sessionID}/playback/scrub [post]
func (s *Server) handleScrub(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}

	var req ScrubRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, errInvalidPayload, err.Error())
		return
	}

	// Clamping happens here, not in the engine: slider bounds already
	// constrain dispatcher input, so an out-of-range target is harmless.
	target := req.TargetTime
	if v := sess.Engine.View(); v.MaxTime > 0 || v.MinTime > 0 {
		if target < v.MinTime {
			target = v.MinTime
		}
		if target > v.MaxTime {
			target = v.MaxTime
		}
	}

	sess.Engine.Scrub(target)
	playbackScrubs.Inc()
	s.writeJSON(w, http.StatusOK, mapView(sess.ID, sess.Engine.View()))
}

// handleSetSpeed godoc
// @Title Set playback speed
// @Description Updates the clock multiplier used on the next playback tick.
// @Resource Playback
// @Accept json
// @Produce json
// @Success 200 {object} SnapshotResponse
// @Failure 400 {object} APIError
// @Failure 404 {object} APIError
// @Route /v1/sessions/{sessionID}/playback/speed [put]
func (s *Server) handleSetSpeed(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}

	var req SpeedRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, errInvalidPayload, err.Error())
		return
	}

	sess.Engine.SetSpeed(req.Speed)
	s.writeJSON(w, http.StatusOK, mapView(sess.ID, sess.Engine.View()))
}
