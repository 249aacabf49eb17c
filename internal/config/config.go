// internal/config/config.go
//
// Process configuration for the Semantic Signal server.
// Values come from the environment, optionally seeded from a `.env` file in
// development. Every key has a default so the server starts with no setup.

package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the full server configuration.
type Config struct {
	Port         string        `env:"PORT"              envDefault:"5175"`
	LogLevel     string        `env:"LOG_LEVEL"         envDefault:"info"`
	DatabasePath string        `env:"DATABASE_PATH"     envDefault:"./data/signal.db"`
	VocabFile    string        `env:"WORDS_VOCAB_FILE"`
	JWTSecret    string        `env:"JWT_SECRET"        envDefault:"dev_secret_change_me"`
	TokenTTL     time.Duration `env:"SESSION_TOKEN_TTL" envDefault:"12h"`
	IdleTTL      time.Duration `env:"SESSION_IDLE_TTL"  envDefault:"30m"`
	ClientOrigin string        `env:"CLIENT_ORIGIN"     envDefault:"http://localhost:5173"`
	DailySalt    string        `env:"DAILY_SALT"        envDefault:"semantic-signal"`

	Field Field `envPrefix:"FIELD_"`
	Game  Game  `envPrefix:"GAME_"`
}

// Field holds play-area geometry and population tunables.
type Field struct {
	Width           float64 `env:"WIDTH"            envDefault:"1280"`
	Height          float64 `env:"HEIGHT"           envDefault:"800"`
	MaxWords        int     `env:"MAX_WORDS"        envDefault:"25"`
	KeepObstacles   int     `env:"KEEP_OBSTACLES"   envDefault:"8"`
	ExclusionRadius float64 `env:"EXCLUSION_RADIUS" envDefault:"220"`
}

// Game holds session pacing tunables.
type Game struct {
	SpawnCount      int           `env:"SPAWN_COUNT"      envDefault:"20"`
	RefillThreshold int           `env:"REFILL_THRESHOLD" envDefault:"3"`
	HitRadius       float64       `env:"HIT_RADIUS"       envDefault:"150"`
	AdvanceDelay    time.Duration `env:"ADVANCE_DELAY"    envDefault:"500ms"`
	TransitionDelay time.Duration `env:"TRANSITION_DELAY" envDefault:"2s"`
	TickInterval    time.Duration `env:"TICK_INTERVAL"    envDefault:"1s"`
}

// Load reads an optional .env file and parses the environment.
// A missing .env file is not an error.
func Load() (Config, error) {
	_ = godotenv.Load()
	return Parse()
}

// Parse parses the current environment without touching .env files.
func Parse() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) validate() error {
	if c.Field.Width <= 0 || c.Field.Height <= 0 {
		return fmt.Errorf("config: play area %gx%g must be positive", c.Field.Width, c.Field.Height)
	}
	if c.Game.SpawnCount <= 0 {
		return fmt.Errorf("config: GAME_SPAWN_COUNT must be positive, got %d", c.Game.SpawnCount)
	}
	if c.Game.TickInterval <= 0 {
		return fmt.Errorf("config: GAME_TICK_INTERVAL must be positive, got %s", c.Game.TickInterval)
	}
	return nil
}
