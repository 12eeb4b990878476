package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

// Config centralises every runtime setting so the rest of the codebase can remain deterministic
// and easy to test. All fields can be overridden using environment variables.
type Config struct {
	AppName   string          `env:"APP_NAME" envDefault:"dispatch-timeline-api"`
	Env       string          `env:"APP_ENV" envDefault:"development"`
	LogLevel  string          `env:"LOG_LEVEL" envDefault:"info"`
	HTTP      HTTPConfig      `envPrefix:"HTTP_"`
	Timeline  TimelineConfig  `envPrefix:"TIMELINE_"`
	RoomToken RoomTokenConfig `envPrefix:"ROOM_TOKEN_"`
}

// HTTPConfig controls the HTTP server behaviour.
type HTTPConfig struct {
	Address      string        `env:"ADDRESS" envDefault:":8080"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout  time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
}

// TimelineConfig tunes the playback clock of session engines.
type TimelineConfig struct {
	// ClockTick is the wall-clock period between playback advances. Each
	// tick moves the cutoff by one synthetic second times the speed
	// multiplier.
	ClockTick time.Duration `env:"CLOCK_TICK" envDefault:"100ms"`
}

// RoomTokenConfig shapes the credentials minted for the external video room
// service. The service itself is not part of this repository; we only issue
// the connection grants its SDK expects.
type RoomTokenConfig struct {
	SigningSecret string        `env:"SIGNING_SECRET" envDefault:"dev-secret-change-me"`
	Issuer        string        `env:"ISSUER" envDefault:"dispatch-timeline"`
	TTL           time.Duration `env:"TTL" envDefault:"1h"`
	RoomBaseURL   string        `env:"ROOM_BASE_URL" envDefault:"wss://rooms.localhost"`
}

// Load reads configuration from the environment, applying defaults defined above.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
