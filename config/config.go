// config/config.go - Application configuration (defaults, YAML game file, environment)
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration of the API server.
type Config struct {
	Port        string
	AppEnv      string
	CORSOrigins string
	JWTSecret   string
	LogLevel    string

	Database  DatabaseConfig
	Ledger    LedgerConfig
	RateLimit RateLimitConfig
	Game      GameConfig
}

type DatabaseConfig struct {
	URL      string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN returns DATABASE_URL when set, otherwise a keyword/value DSN built from the parts.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

const (
	LedgerDriverDB   = "db"
	LedgerDriverNATS = "nats"
)

type LedgerConfig struct {
	Driver      string
	NATSURL     string
	NATSToken   string
	NATSSubject string
}

type RateLimitConfig struct {
	MaxRequests int
	Window      time.Duration
}

// GameConfig holds the game tunables. It can be overridden by the YAML file named in GAME_CONFIG.
type GameConfig struct {
	ExpertRounds       int `yaml:"expert_rounds"`
	ExpertRoundSeconds int `yaml:"expert_round_seconds"`
	ClueBandMin        int `yaml:"clue_band_min"`
	ClueBandMax        int `yaml:"clue_band_max"`
	TimedSeconds       int `yaml:"timed_seconds"`
	MaxLives           int `yaml:"max_lives"`
	Points             int `yaml:"points"`
	CluePenalty        int `yaml:"clue_penalty"`
	ResyncToleranceMs  int `yaml:"resync_tolerance_ms"`
	DefaultMaxPlayers  int `yaml:"default_max_players"`
	MinPlayers         int `yaml:"min_players"`
	MaxPlayers         int `yaml:"max_players"`
}

type fileConfig struct {
	Game *GameConfig `yaml:"game"`
}

func DefaultGameConfig() GameConfig {
	return GameConfig{
		ExpertRounds:       10,
		ExpertRoundSeconds: 60,
		ClueBandMin:        6,
		ClueBandMax:        10,
		TimedSeconds:       180,
		MaxLives:           10,
		Points:             100,
		CluePenalty:        10,
		ResyncToleranceMs:  1000,
		DefaultMaxPlayers:  4,
		MinPlayers:         2,
		MaxPlayers:         10,
	}
}

func (g GameConfig) ExpertRoundDuration() time.Duration {
	return time.Duration(g.ExpertRoundSeconds) * time.Second
}

func (g GameConfig) TimedDuration() time.Duration {
	return time.Duration(g.TimedSeconds) * time.Second
}

// Validate rejects tunables the engine cannot run with.
func (g GameConfig) Validate() error {
	switch {
	case g.ExpertRounds < 1:
		return errors.New("expert_rounds must be at least 1")
	case g.ExpertRoundSeconds < 1 || g.TimedSeconds < 1:
		return errors.New("round durations must be positive")
	case g.ClueBandMin < 1 || g.ClueBandMax < g.ClueBandMin:
		return fmt.Errorf("invalid clue band %d..%d", g.ClueBandMin, g.ClueBandMax)
	case g.MaxLives < 1:
		return errors.New("max_lives must be at least 1")
	case g.MinPlayers < 1 || g.MaxPlayers < g.MinPlayers:
		return fmt.Errorf("invalid player bounds %d..%d", g.MinPlayers, g.MaxPlayers)
	case g.DefaultMaxPlayers < g.MinPlayers || g.DefaultMaxPlayers > g.MaxPlayers:
		return fmt.Errorf("default_max_players %d outside %d..%d", g.DefaultMaxPlayers, g.MinPlayers, g.MaxPlayers)
	}
	return nil
}

// Load reads .env (if present), the optional GAME_CONFIG YAML file and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Warn("No .env file found, using environment variables")
	}

	cfg := &Config{
		Port:        getEnv("PORT", "3000"),
		AppEnv:      getEnv("APP_ENV", "development"),
		CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:5173"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Database: DatabaseConfig{
			URL:      os.Getenv("DATABASE_URL"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     getEnv("DB_NAME", "decantry"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Ledger: LedgerConfig{
			Driver:      strings.ToLower(getEnv("LEDGER_DRIVER", LedgerDriverDB)),
			NATSURL:     getEnv("NATS_URL", "nats://localhost:4222"),
			NATSToken:   os.Getenv("NATS_TOKEN"),
			NATSSubject: getEnv("NATS_SUBJECT", "decantry.scores"),
		},
		RateLimit: RateLimitConfig{
			MaxRequests: getEnvAsInt("RATE_LIMIT_MAX_REQUESTS", 300),
			Window:      time.Duration(getEnvAsInt("RATE_LIMIT_WINDOW_MS", 60000)) * time.Millisecond,
		},
		Game: DefaultGameConfig(),
	}

	if path := os.Getenv("GAME_CONFIG"); path != "" {
		game, err := loadGameConfig(path, cfg.Game)
		if err != nil {
			return nil, err
		}
		cfg.Game = game
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings the server refuses to start without.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET environment variable is required")
	}
	if len(c.JWTSecret) < 32 {
		return errors.New("JWT_SECRET must be at least 32 characters long")
	}
	if c.Ledger.Driver != LedgerDriverDB && c.Ledger.Driver != LedgerDriverNATS {
		return fmt.Errorf("unknown LEDGER_DRIVER %q", c.Ledger.Driver)
	}
	if c.RateLimit.MaxRequests < 1 || c.RateLimit.Window <= 0 {
		return errors.New("rate limit settings must be positive")
	}
	return c.Game.Validate()
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// loadGameConfig overlays the file's game section on top of base.
func loadGameConfig(path string, base GameConfig) (GameConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("failed to read game config: %w", err)
	}
	return parseGameConfig(data, base)
}

func parseGameConfig(data []byte, base GameConfig) (GameConfig, error) {
	fc := fileConfig{Game: &base}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return base, fmt.Errorf("failed to parse game config: %w", err)
	}
	return base, nil
}

// SetupLogging configures the global logrus logger.
func SetupLogging(level string, production bool) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		log.Warnf("unknown LOG_LEVEL %q, using info", level)
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
	if production {
		log.SetFormatter(&log.JSONFormatter{})
		return
	}
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
