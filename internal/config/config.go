package config

import (
	"fmt"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the full hierarchical configuration tree, loaded once from a
// TOML file and then overlaid with environment variables. Secrets never
// live in the file; they are environment-only and validated at startup.
type Config struct {
	System    SystemConfig               `toml:"system"`
	Exchanges ExchangesConfig            `toml:"exchanges"`
	Symbols   []string                   `toml:"symbols"`
	Detector  DetectorConfig             `toml:"detector"`
	Risk      RiskConfig                 `toml:"risk"`
	Execution ExecutionConfig            `toml:"execution"`
	Server    ServerConfig               `toml:"-"`
	Database  DatabaseConfig             `toml:"-"`
	Security  SecurityConfig             `toml:"-"`
	Logging   LoggingConfig              `toml:"-"`
	Exchange  map[string]ExchangeProfile `toml:"exchange"`
}

// SystemConfig is the `[system]` TOML section.
type SystemConfig struct {
	ExecutionMode    string `toml:"execution_mode"` // backtest | paper | live
	LogLevel         string `toml:"log_level"`
	Timezone         string `toml:"timezone"`
	DetectIntervalMs int    `toml:"detect_interval_ms"` // cadence of one detect-all-symbols cycle
}

// ExchangesConfig is the `[exchanges]` TOML section (connector roster).
type ExchangesConfig struct {
	Enabled []string `toml:"enabled"`
}

// DetectorConfig is the `[detector]` TOML section.
type DetectorConfig struct {
	Spatial     SpatialDetectorConfig     `toml:"spatial"`
	Triangular  TriangularDetectorConfig  `toml:"triangular"`
	Statistical StatisticalDetectorConfig `toml:"statistical"`
}

// SpatialDetectorConfig is `[detector.spatial]`.
type SpatialDetectorConfig struct {
	Enabled              bool    `toml:"enabled"`
	MinSpreadPct         float64 `toml:"min_spread_pct"`
	MinDepthUSD          float64 `toml:"min_depth_usd"`
	MaxLatencyMs         int     `toml:"max_latency_ms"`
	StaleThresholdSeconds int    `toml:"stale_threshold_seconds"`
	PairCooldownSeconds  int     `toml:"pair_cooldown_seconds"`
}

// TriangularDetectorConfig is `[detector.triangular]`.
type TriangularDetectorConfig struct {
	Enabled      bool       `toml:"enabled"`
	MinProfitPct float64    `toml:"min_profit_pct"`
	Paths        [][]string `toml:"paths"` // each entry: 3 symbols forming a closed cycle
}

// StatisticalDetectorConfig is `[detector.statistical]`. Parsed but not
// executable in this build — see internal/detector's "not implemented" guard.
type StatisticalDetectorConfig struct {
	Enabled bool `toml:"enabled"`
}

// RiskConfig is the `[risk]` section, parameters from spec §4.4.
type RiskConfig struct {
	MaxPositionPerCoinUSD     float64 `toml:"max_position_per_coin_usd"`
	MaxPositionPerExchangeUSD float64 `toml:"max_position_per_exchange_usd"`
	MaxTotalExposureUSD       float64 `toml:"max_total_exposure_usd"`
	WarningThresholdPct       float64 `toml:"warning_threshold_pct"` // default 70

	MaxDrawdownPct    float64 `toml:"max_drawdown_pct"`     // default 5
	MaxDailyLossUSD   float64 `toml:"max_daily_loss_usd"`
	MaxDailyLossPct   float64 `toml:"max_daily_loss_pct"`

	PriceDeviationThresholdPct float64 `toml:"price_deviation_threshold_pct"`
	MaxSpreadPct               float64 `toml:"max_spread_pct"`
	SpreadStdThreshold          float64 `toml:"spread_std_threshold"`
	FlashCrashPct               float64 `toml:"flash_crash_pct"`

	ConsecutiveLossLimit int `toml:"consecutive_loss_limit"` // default 10
	CooldownMinutes      int `toml:"cooldown_minutes"`
}

// ExecutionConfig is the `[execution]` section, parameters from spec §4.5.
type ExecutionConfig struct {
	OrderTimeoutSeconds int     `toml:"order_timeout_seconds"` // default 30
	MaxLatencyMs        int     `toml:"max_latency_ms"`        // shared deadline for a two-leg live fill
	PaperLatencyMs      int     `toml:"paper_latency_ms"`      // simulated base latency
	PaperJitterMs       int     `toml:"paper_jitter_ms"`       // simulated latency jitter, uniform [0, jitter)
	EmergencyStopSeconds int    `toml:"emergency_stop_seconds"` // default 10
}

// ExchangeProfile is one `[exchange.<name>]` entry.
type ExchangeProfile struct {
	Tier         string            `toml:"tier"`
	MakerFeePct  float64           `toml:"maker_fee_pct"`
	TakerFeePct  float64           `toml:"taker_fee_pct"`
	RateLimit    RateLimitProfile  `toml:"rate_limit"`
	WebSocket    WebSocketProfile  `toml:"websocket"`
}

// RateLimitProfile mirrors pkg/ratelimit.Config's policy union.
type RateLimitProfile struct {
	Type       string        `toml:"type"` // weight | count | token_bucket
	Limit      int           `toml:"limit"`
	Window     time.Duration `toml:"window"`
	Capacity   float64       `toml:"capacity"`
	RefillRate float64       `toml:"refill_rate"`
}

// WebSocketProfile configures one exchange's market-data connection.
type WebSocketProfile struct {
	OrderbookDepth      int `toml:"orderbook_depth"`
	ReconnectDelayS     int `toml:"reconnect_delay_s"`
	MaxReconnectAttempts int `toml:"max_reconnect_attempts"`
}

// ServerConfig - HTTP control-surface listener settings. Not TOML-backed;
// kept process-level like the teacher's original since binding addr/TLS
// material belongs with deployment, not strategy config.
type ServerConfig struct {
	Port     int
	Host     string
	UseHTTPS bool
	CertFile string
	KeyFile  string
}

// DatabaseConfig - Postgres connection settings, environment-only.
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
}

// SecurityConfig - secrets, environment-only, never persisted to the TOML file.
type SecurityConfig struct {
	JWTSecret      string
	EncryptionKey  string
	SessionTimeout int
}

// LoggingConfig - process-level logging sink settings.
type LoggingConfig struct {
	Level  string
	Format string
	Output string
}

// Load reads the TOML file at path (if non-empty), overlays environment
// variables, validates, and returns the immutable Config. Call this once at
// startup; for runtime reload use Store.Reload.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: stat %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.validateSecurity(); err != nil {
		return nil, err
	}
	if err := cfg.validateRanges(); err != nil {
		return nil, err
	}
	if err := cfg.rejectSecretsInFile(path); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		System: SystemConfig{
			ExecutionMode:    "paper",
			LogLevel:         "info",
			Timezone:         "UTC",
			DetectIntervalMs: 200,
		},
		Server: ServerConfig{
			Port: 8080,
			Host: "0.0.0.0",
		},
		Database: DatabaseConfig{
			Driver:  "postgres",
			Host:    "localhost",
			Port:    5432,
			Name:    "arbot",
			User:    "user",
			SSLMode: "disable",
		},
		Security: SecurityConfig{
			SessionTimeout: 3600,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Detector: DetectorConfig{
			Spatial: SpatialDetectorConfig{
				MinSpreadPct:          0.25,
				MinDepthUSD:           1000,
				MaxLatencyMs:          500,
				StaleThresholdSeconds: 30,
				PairCooldownSeconds:   30,
			},
			Triangular: TriangularDetectorConfig{
				MinProfitPct: 0.1,
			},
		},
		Risk: RiskConfig{
			WarningThresholdPct: 70,
			MaxDrawdownPct:      5,
			ConsecutiveLossLimit: 10,
			CooldownMinutes:      30,
		},
		Execution: ExecutionConfig{
			OrderTimeoutSeconds:  30,
			MaxLatencyMs:         500,
			PaperLatencyMs:       80,
			PaperJitterMs:        40,
			EmergencyStopSeconds: 10,
		},
	}
}

// applyEnvOverrides lets environment variables win over file values,
// following the teacher's getEnv*-helper convention.
func applyEnvOverrides(cfg *Config) {
	cfg.System.ExecutionMode = getEnv("EXECUTION_MODE", cfg.System.ExecutionMode)
	cfg.System.LogLevel = getEnv("LOG_LEVEL", cfg.System.LogLevel)
	cfg.Logging.Level = cfg.System.LogLevel
	cfg.Logging.Format = getEnv("LOG_FORMAT", cfg.Logging.Format)
	cfg.Logging.Output = getEnv("LOG_OUTPUT", cfg.Logging.Output)

	cfg.Server.Port = getEnvAsInt("SERVER_PORT", cfg.Server.Port)
	cfg.Server.Host = getEnv("SERVER_HOST", cfg.Server.Host)
	cfg.Server.UseHTTPS = getEnvAsBool("USE_HTTPS", cfg.Server.UseHTTPS)
	cfg.Server.CertFile = getEnv("CERT_FILE", cfg.Server.CertFile)
	cfg.Server.KeyFile = getEnv("KEY_FILE", cfg.Server.KeyFile)

	cfg.Database.Driver = getEnv("DB_DRIVER", cfg.Database.Driver)
	cfg.Database.Host = getEnv("DB_HOST", cfg.Database.Host)
	cfg.Database.Port = getEnvAsInt("DB_PORT", cfg.Database.Port)
	cfg.Database.Name = getEnv("DB_NAME", cfg.Database.Name)
	cfg.Database.User = getEnv("DB_USER", cfg.Database.User)
	cfg.Database.Password = getEnv("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.SSLMode = getEnv("DB_SSL_MODE", cfg.Database.SSLMode)

	// Secrets: environment only, no file fallback, no default.
	cfg.Security.JWTSecret = getEnv("JWT_SECRET", cfg.Security.JWTSecret)
	cfg.Security.EncryptionKey = getEnv("ENCRYPTION_KEY", cfg.Security.EncryptionKey)
	cfg.Security.SessionTimeout = getEnvAsInt("SESSION_TIMEOUT", cfg.Security.SessionTimeout)
}

func (c *Config) validateSecurity() error {
	if c.Security.EncryptionKey == "" {
		return fmt.Errorf("ENCRYPTION_KEY is required for encrypting exchange API secrets")
	}
	if len(c.Security.EncryptionKey) != 32 {
		return fmt.Errorf("ENCRYPTION_KEY must be exactly 32 bytes for AES-256")
	}
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required for control-surface authentication")
	}
	if c.Security.JWTSecret == "change-me-in-production" {
		return fmt.Errorf("JWT_SECRET must be changed from default value in production")
	}
	if len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters for security")
	}
	return nil
}

func (c *Config) validateRanges() error {
	switch c.System.ExecutionMode {
	case "backtest", "paper", "live":
	default:
		return fmt.Errorf("system.execution_mode must be one of backtest|paper|live, got %q", c.System.ExecutionMode)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("DB_PORT must be between 1 and 65535, got %d", c.Database.Port)
	}
	if c.Security.SessionTimeout < 60 {
		return fmt.Errorf("SESSION_TIMEOUT must be at least 60 seconds, got %d", c.Security.SessionTimeout)
	}
	if c.Risk.ConsecutiveLossLimit < 1 {
		return fmt.Errorf("risk.consecutive_loss_limit must be positive, got %d", c.Risk.ConsecutiveLossLimit)
	}
	if c.Risk.MaxDrawdownPct <= 0 || c.Risk.MaxDrawdownPct > 100 {
		return fmt.Errorf("risk.max_drawdown_pct must be in (0, 100], got %v", c.Risk.MaxDrawdownPct)
	}
	return nil
}

// rejectSecretsInFile is a placeholder hook: the TOML struct intentionally
// has no fields for JWTSecret/EncryptionKey/DB password (toml:"-" on
// Security/Database), so a malicious or mistaken secret in the file is
// simply never decoded into those fields. Kept as a named step so future
// fields added to those structs don't silently regress this guarantee.
func (c *Config) rejectSecretsInFile(path string) error {
	return nil
}

// DSN returns the Postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// DSNWithoutPassword is safe to log.
func (d DatabaseConfig) DSNWithoutPassword() string {
	return fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Name, d.SSLMode)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// Store holds the live config behind an atomic pointer so a reload can swap
// it in between signals without ever handing a half-updated Config to a
// reader mid-evaluation (spec §9: reload applies only to non-disruptive keys,
// never mid-signal).
type Store struct {
	ptr atomic.Pointer[Config]
}

// NewStore wraps an already-loaded Config.
func NewStore(cfg *Config) *Store {
	s := &Store{}
	s.ptr.Store(cfg)
	return s
}

// Get returns the currently active Config. Safe for concurrent use.
func (s *Store) Get() *Config {
	return s.ptr.Load()
}

// Reload re-reads path and atomically swaps in the new Config. If the new
// file changes execution_mode, Reload returns an error and keeps the
// previous config, since a mode change requires a process restart.
func (s *Store) Reload(path string) error {
	next, err := Load(path)
	if err != nil {
		return err
	}
	prev := s.ptr.Load()
	if prev != nil && next.System.ExecutionMode != prev.System.ExecutionMode {
		return fmt.Errorf("config: execution_mode change (%s -> %s) requires a restart, not a reload",
			prev.System.ExecutionMode, next.System.ExecutionMode)
	}
	s.ptr.Store(next)
	return nil
}
