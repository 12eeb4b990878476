package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"vantage/dispatch/internal/config"
	"vantage/dispatch/internal/session"
	"vantage/dispatch/internal/token"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// Server wires configuration, dependencies and HTTP routing together.
type Server struct {
	cfg       config.Config
	log       zerolog.Logger
	validate  *validator.Validate
	sessions  *session.Manager
	minter    *token.Minter
	startedAt time.Time
}

// New instantiates the HTTP server and prepares shared dependencies.
func New(cfg config.Config, log zerolog.Logger) *Server {
	return &Server{
		cfg:       cfg,
		log:       log,
		validate:  newValidator(),
		sessions:  session.NewManager(log, cfg.Timeline.ClockTick),
		minter:    token.NewMinter(cfg.RoomToken),
		startedAt: time.Now().UTC(),
	}
}

// Close tears down every open session and its playback clock.
func (s *Server) Close() {
	s.sessions.CloseAll()
}

// Run starts the HTTP server and blocks until the context is cancelled or an unrecoverable error occurs.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:         s.cfg.HTTP.Address,
		Handler:      s.routes(),
		ReadTimeout:  s.cfg.HTTP.ReadTimeout,
		WriteTimeout: s.cfg.HTTP.WriteTimeout,
		IdleTimeout:  s.cfg.HTTP.IdleTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.log.Error().Err(err).Msg("graceful shutdown failed")
		}
	}()

	s.log.Info().Str("addr", s.cfg.HTTP.Address).Msg("http server listening")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("latitude", func(fl validator.FieldLevel) bool {
		val, ok := fl.Field().Interface().(float64)
		if !ok {
			return false
		}
		return val >= -90 && val <= 90
	})
	_ = v.RegisterValidation("longitude", func(fl validator.FieldLevel) bool {
		val, ok := fl.Field().Interface().(float64)
		if !ok {
			return false
		}
		return val >= -180 && val <= 180
	})
	return v
}
