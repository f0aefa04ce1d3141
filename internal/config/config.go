// Package config provides application configuration loaded from environment variables.
// Use the package-level Get() function to obtain the singleton Config instance.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ──────────────────────────────────────────────────────────────────────────────
// Sub-config structs
// ──────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        // e.g. "8080"
	Env          string        // "development" | "production"
	ReadTimeout  time.Duration // default 10s
	WriteTimeout time.Duration // default 10s
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	DSN             string        // full postgres DSN
	MaxOpenConns    int           // default 25
	MaxIdleConns    int           // default 10
	ConnMaxLifetime time.Duration // default 5m
}

// JWTConfig holds settings for the bearer-token identity boundary.
// Tokens are issued by the external auth collaborator; this service only
// verifies them.
type JWTConfig struct {
	AccessSecret string // must be set
}

// OracleConfig holds truth-feed API settings.
type OracleConfig struct {
	BaseURL      string        // default "http://localhost:9090"
	FetchTimeout time.Duration // default 2s
	CacheTTL     time.Duration // default 1s
	RetryBase    time.Duration // first backoff step, default 2s
	RetryMax     time.Duration // backoff cap, default 30s
}

// BettingConfig holds round and fee settings.
type BettingConfig struct {
	FeeRate          float64       // platform fee on winnings, e.g. 0.05 = 5%
	MinStake         float64       // minimum stake per wager
	StartingBalance  float64       // balance granted on first wallet contact
	QuestionDuration time.Duration // countdown per round, must be 30–36s
	Streams          []string      // stream refs this instance runs rounds for
}

// ──────────────────────────────────────────────────────────────────────────────
// Top-level Config
// ──────────────────────────────────────────────────────────────────────────────

// Config is the root configuration object for the entire application.
type Config struct {
	Server  ServerConfig
	DB      DBConfig
	JWT     JWTConfig
	Oracle  OracleConfig
	Betting BettingConfig
}

// IsProd returns true when running in the production environment.
func (c *Config) IsProd() bool {
	return c.Server.Env == "production"
}

// Validate checks that all required configuration values are present and valid.
// Returns the first validation error encountered.
func (c *Config) Validate() error {
	var errs []error

	if c.JWT.AccessSecret == "" {
		errs = append(errs, errors.New("JWT_ACCESS_SECRET must be set"))
	}

	// In production, DB DSN must be explicit
	if c.IsProd() && c.DB.DSN == "" {
		errs = append(errs, errors.New("DATABASE_DSN must be set in production"))
	}

	if c.Betting.FeeRate <= 0 || c.Betting.FeeRate >= 1 {
		errs = append(errs, fmt.Errorf(
			"FEE_RATE must be between 0 and 1 (exclusive), got %.4f",
			c.Betting.FeeRate,
		))
	}

	// Countdown must land inside the product's 30–36 second band
	if c.Betting.QuestionDuration < 30*time.Second || c.Betting.QuestionDuration > 36*time.Second {
		errs = append(errs, fmt.Errorf(
			"QUESTION_DURATION must be between 30s and 36s, got %s",
			c.Betting.QuestionDuration,
		))
	}

	if len(c.Betting.Streams) == 0 {
		errs = append(errs, errors.New("BETTING_STREAMS must name at least one stream ref"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Singleton
// ──────────────────────────────────────────────────────────────────────────────

var (
	instance *Config
	once     sync.Once
	loadErr  error
)

// Get returns the singleton Config, loading it once from environment variables.
// Panics if loading fails — call this early in main() to catch misconfigurations
// at startup.
func Get() *Config {
	once.Do(func() {
		instance, loadErr = load()
	})
	if loadErr != nil {
		panic(fmt.Sprintf("config: failed to load: %v", loadErr))
	}
	return instance
}

// MustLoad loads and validates configuration. Intended for use in main().
// Panics on any error so misconfiguration is caught immediately at boot.
func MustLoad() *Config {
	cfg := Get()
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("config: validation failed: %v", err))
	}
	return cfg
}

// ──────────────────────────────────────────────────────────────────────────────
// Internal loader
// ──────────────────────────────────────────────────────────────────────────────

func load() (*Config, error) {
	cfg := &Config{}

	// ── Server ────────────────────────────────────────────────────────────────
	cfg.Server = ServerConfig{
		Port:         getEnv("SERVER_PORT", "8080"),
		Env:          getEnv("ENVIRONMENT", "development"),
		ReadTimeout:  getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
		WriteTimeout: getDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
	}

	// ── Database ──────────────────────────────────────────────────────────────
	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		// Build DSN from individual components for convenience in dev
		dsn = fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			getEnv("DB_HOST", "localhost"),
			getEnv("DB_PORT", "5432"),
			getEnv("DB_USER", "postgres"),
			getEnv("DB_PASSWORD", ""),
			getEnv("DB_NAME", "streambet"),
			getEnv("DB_SSLMODE", "disable"),
		)
	}

	maxOpen, err := getInt("DB_MAX_OPEN_CONNS", 25)
	if err != nil {
		return nil, fmt.Errorf("DB_MAX_OPEN_CONNS: %w", err)
	}
	maxIdle, err := getInt("DB_MAX_IDLE_CONNS", 10)
	if err != nil {
		return nil, fmt.Errorf("DB_MAX_IDLE_CONNS: %w", err)
	}

	cfg.DB = DBConfig{
		DSN:             dsn,
		MaxOpenConns:    maxOpen,
		MaxIdleConns:    maxIdle,
		ConnMaxLifetime: getDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}

	// ── JWT ───────────────────────────────────────────────────────────────────
	cfg.JWT = JWTConfig{
		AccessSecret: getEnv("JWT_ACCESS_SECRET", ""),
	}

	// ── Oracle ────────────────────────────────────────────────────────────────
	cfg.Oracle = OracleConfig{
		BaseURL:      getEnv("ORACLE_BASE_URL", "http://localhost:9090"),
		FetchTimeout: getDuration("ORACLE_FETCH_TIMEOUT", 2*time.Second),
		CacheTTL:     getDuration("ORACLE_CACHE_TTL", 1*time.Second),
		RetryBase:    getDuration("ORACLE_RETRY_BASE", 2*time.Second),
		RetryMax:     getDuration("ORACLE_RETRY_MAX", 30*time.Second),
	}

	// ── Betting ───────────────────────────────────────────────────────────────
	feeRate, err := getFloat("FEE_RATE", 0.05)
	if err != nil {
		return nil, fmt.Errorf("FEE_RATE: %w", err)
	}
	minStake, err := getFloat("MIN_STAKE", 1)
	if err != nil {
		return nil, fmt.Errorf("MIN_STAKE: %w", err)
	}
	startingBalance, err := getFloat("STARTING_BALANCE", 1000)
	if err != nil {
		return nil, fmt.Errorf("STARTING_BALANCE: %w", err)
	}

	var streams []string
	for _, s := range strings.Split(getEnv("BETTING_STREAMS", "main"), ",") {
		if s = strings.TrimSpace(s); s != "" {
			streams = append(streams, s)
		}
	}

	cfg.Betting = BettingConfig{
		FeeRate:          feeRate,
		MinStake:         minStake,
		StartingBalance:  startingBalance,
		QuestionDuration: getDuration("QUESTION_DURATION", 33*time.Second),
		Streams:          streams,
	}

	return cfg, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Helper functions
// ──────────────────────────────────────────────────────────────────────────────

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", v)
	}
	return n, nil
}

func getFloat(key string, defaultVal float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float %q", v)
	}
	return f, nil
}

// getDuration parses an env var as a Go duration string (e.g. "33s", "2s").
// Falls back to defaultVal if the variable is unset or empty.
func getDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
