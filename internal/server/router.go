package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.metricsMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(v1 chi.Router) {
		v1.Post("/sessions", s.handleOpenSession)
		v1.Delete("/sessions/{sessionID}", s.handleCloseSession)
		v1.Get("/sessions/{sessionID}/snapshot", s.handleGetSnapshot)

		v1.Post("/sessions/{sessionID}/events", s.handleIngestEvent)
		v1.Get("/sessions/{sessionID}/ingest", s.handleIngestSocket)
		v1.Get("/sessions/{sessionID}/stream", s.handleStreamSession)

		v1.Post("/sessions/{sessionID}/playback/toggle", s.handleTogglePlayback)
		v1.Post("/sessions/{sessionID}/playback/live", s.handleGoLive)
		v1.Post("/sessions/{sessionID}/playback/scrub", s.handleScrub)
		v1.Put("/sessions/{sessionID}/playback/speed", s.handleSetSpeed)

		v1.Post("/room-tokens", s.handleMintRoomToken)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		duration := time.Since(start)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", duration).
			Msg("http request")
	})
}
