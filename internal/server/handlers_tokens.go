package server

import (
	"errors"
	"net/http"

	"vantage/dispatch/internal/token"
)

// handleMintRoomToken godoc
// @Title Mint video room token
// @Description Issues a connection URL and signed credential for the external
// @Description video room service. Publishers stream video in; viewers subscribe.
// @Resource Tokens
// @Accept json
// @Produce json
// @Success 200 {object} RoomTokenResponse
// @Failure 400 {object} APIError
// @Failure 500 {object} APIError
// @Route /v1/room-tokens [post]
func (s *Server) handleMintRoomToken(w http.ResponseWriter, r *http.Request) {
	var req RoomTokenRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, errInvalidPayload, err.Error())
		return
	}

	grant, err := s.minter.Mint(req.Room, req.Identity, token.Role(req.Role))
	if err != nil {
		if errors.Is(err, token.ErrUnknownRole) {
			s.writeError(w, http.StatusBadRequest, "unknown room role", nil)
			return
		}
		s.log.Error().Err(err).Str("room", req.Room).Msg("failed to mint room token")
		s.writeError(w, http.StatusInternalServerError, "failed to mint token", nil)
		return
	}

	s.writeJSON(w, http.StatusOK, RoomTokenResponse{
		URL:       grant.URL,
		Token:     grant.Token,
		ExpiresAt: grant.ExpiresAt,
	})
}
