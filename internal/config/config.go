// Package config defines the sportsedge configuration, its defaults and
// validation.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration. Fields come from a TOML, JSON or YAML
// file and are then overridden from the environment.
type Config struct {
	OddsAPI    OddsAPIConfig    `toml:"odds_api" json:"odds_api" yaml:"odds_api"`
	Polymarket PolymarketConfig `toml:"polymarket" json:"polymarket" yaml:"polymarket"`
	Lambda     LambdaConfig     `toml:"lambda" json:"lambda" yaml:"lambda"`
	Database   DatabaseConfig   `toml:"database" json:"database" yaml:"database"`
	Redis      RedisConfig      `toml:"redis" json:"redis" yaml:"redis"`
	S3         S3Config         `toml:"s3" json:"s3" yaml:"s3"`
	Trading    TradingConfig    `toml:"trading" json:"trading" yaml:"trading"`
	Risk       RiskConfig       `toml:"risk" json:"risk" yaml:"risk"`
	Matching   MatchingConfig   `toml:"matching" json:"matching" yaml:"matching"`
	Scan       ScanConfig       `toml:"scan" json:"scan" yaml:"scan"`
	Server     ServerConfig     `toml:"server" json:"server" yaml:"server"`
	Notify     NotifyConfig     `toml:"notify" json:"notify" yaml:"notify"`
	Mode       string           `toml:"mode" json:"mode" yaml:"mode"`
	LogLevel   string           `toml:"log_level" json:"log_level" yaml:"log_level"`
}

// OddsAPIConfig configures The Odds API client.
type OddsAPIConfig struct {
	BaseURL            string   `toml:"base_url" json:"base_url" yaml:"base_url"`
	APIKey             string   `toml:"api_key" json:"api_key" yaml:"api_key"`
	Regions            string   `toml:"regions" json:"regions" yaml:"regions"`
	OddsFormat         string   `toml:"odds_format" json:"odds_format" yaml:"odds_format"`
	RateLimitPerMinute int      `toml:"rate_limit_per_minute" json:"rate_limit_per_minute" yaml:"rate_limit_per_minute"`
	WindowDays         int      `toml:"window_days" json:"window_days" yaml:"window_days"`
	Timeout            Duration `toml:"timeout" json:"timeout" yaml:"timeout"`
}

// PolymarketConfig holds API hosts and account credentials. Signature and
// Timestamp carry a pre-computed L1 signature; PrivateKey or an encrypted
// key file derive one instead.
type PolymarketConfig struct {
	GammaHost        string `toml:"gamma_host" json:"gamma_host" yaml:"gamma_host"`
	DataHost         string `toml:"data_host" json:"data_host" yaml:"data_host"`
	ClobHost         string `toml:"clob_host" json:"clob_host" yaml:"clob_host"`
	ChainID          int    `toml:"chain_id" json:"chain_id" yaml:"chain_id"`
	Address          string `toml:"address" json:"address" yaml:"address"`
	Signature        string `toml:"signature" json:"signature" yaml:"signature"`
	Timestamp        string `toml:"timestamp" json:"timestamp" yaml:"timestamp"`
	APIKey           string `toml:"api_key" json:"api_key" yaml:"api_key"`
	APISecret        string `toml:"api_secret" json:"api_secret" yaml:"api_secret"`
	Passphrase       string `toml:"passphrase" json:"passphrase" yaml:"passphrase"`
	PrivateKey       string `toml:"private_key" json:"private_key" yaml:"private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path" json:"encrypted_key_path" yaml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password" json:"key_password" yaml:"key_password"`
}

// LambdaConfig points at the external order executor.
type LambdaConfig struct {
	URL     string   `toml:"url" json:"url" yaml:"url"`
	APIKey  string   `toml:"api_key" json:"api_key" yaml:"api_key"`
	Timeout Duration `toml:"timeout" json:"timeout" yaml:"timeout"`
}

// DatabaseConfig holds PostgreSQL connection and retention settings.
type DatabaseConfig struct {
	DSN            string   `toml:"dsn" json:"dsn" yaml:"dsn"`
	Host           string   `toml:"host" json:"host" yaml:"host"`
	Port           int      `toml:"port" json:"port" yaml:"port"`
	Database       string   `toml:"database" json:"database" yaml:"database"`
	User           string   `toml:"user" json:"user" yaml:"user"`
	Password       string   `toml:"password" json:"password" yaml:"password"`
	SSLMode        string   `toml:"ssl_mode" json:"ssl_mode" yaml:"ssl_mode"`
	PoolMaxConns   int      `toml:"pool_max_conns" json:"pool_max_conns" yaml:"pool_max_conns"`
	PoolMinConns   int      `toml:"pool_min_conns" json:"pool_min_conns" yaml:"pool_min_conns"`
	RunMigrations  bool     `toml:"run_migrations" json:"run_migrations" yaml:"run_migrations"`
	RetentionDays  int      `toml:"retention_days" json:"retention_days" yaml:"retention_days"`
	BackupEnabled  bool     `toml:"backup_enabled" json:"backup_enabled" yaml:"backup_enabled"`
	BackupInterval Duration `toml:"backup_interval" json:"backup_interval" yaml:"backup_interval"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled    bool     `toml:"enabled" json:"enabled" yaml:"enabled"`
	Addr       string   `toml:"addr" json:"addr" yaml:"addr"`
	Password   string   `toml:"password" json:"password" yaml:"password"`
	DB         int      `toml:"db" json:"db" yaml:"db"`
	PoolSize   int      `toml:"pool_size" json:"pool_size" yaml:"pool_size"`
	MaxRetries int      `toml:"max_retries" json:"max_retries" yaml:"max_retries"`
	TLSEnabled bool     `toml:"tls_enabled" json:"tls_enabled" yaml:"tls_enabled"`
	MarketTTL  Duration `toml:"market_ttl" json:"market_ttl" yaml:"market_ttl"`
}

// S3Config holds the trade archive bucket.
type S3Config struct {
	Enabled        bool   `toml:"enabled" json:"enabled" yaml:"enabled"`
	Endpoint       string `toml:"endpoint" json:"endpoint" yaml:"endpoint"`
	Region         string `toml:"region" json:"region" yaml:"region"`
	Bucket         string `toml:"bucket" json:"bucket" yaml:"bucket"`
	AccessKey      string `toml:"access_key" json:"access_key" yaml:"access_key"`
	SecretKey      string `toml:"secret_key" json:"secret_key" yaml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl" json:"use_ssl" yaml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style" json:"force_path_style" yaml:"force_path_style"`
}

// TradingConfig holds bankroll, edge thresholds and stake limits.
type TradingConfig struct {
	Bankroll            float64  `toml:"bankroll" json:"bankroll" yaml:"bankroll"`
	MinEdge             float64  `toml:"min_edge" json:"min_edge" yaml:"min_edge"`
	ScanMinEdge         float64  `toml:"scan_min_edge" json:"scan_min_edge" yaml:"scan_min_edge"`
	MaxStakePerTradePct float64  `toml:"max_stake_per_trade_pct" json:"max_stake_per_trade_pct" yaml:"max_stake_per_trade_pct"`
	MaxDailyStakePct    float64  `toml:"max_daily_stake_pct" json:"max_daily_stake_pct" yaml:"max_daily_stake_pct"`
	RecentTradeWindow   Duration `toml:"recent_trade_window" json:"recent_trade_window" yaml:"recent_trade_window"`
	BatchDelay          Duration `toml:"batch_delay" json:"batch_delay" yaml:"batch_delay"`
	DryRun              bool     `toml:"dry_run" json:"dry_run" yaml:"dry_run"`
}

// RiskConfig holds account-level limits.
type RiskConfig struct {
	MaxDailyTrades        int     `toml:"max_daily_trades" json:"max_daily_trades" yaml:"max_daily_trades"`
	MaxDrawdown           float64 `toml:"max_drawdown" json:"max_drawdown" yaml:"max_drawdown"`
	CircuitBreakerEnabled bool    `toml:"circuit_breaker_enabled" json:"circuit_breaker_enabled" yaml:"circuit_breaker_enabled"`
}

// MatchingConfig controls which games are fetched and how they are matched.
type MatchingConfig struct {
	Concurrency int      `toml:"concurrency" json:"concurrency" yaml:"concurrency"`
	SharpBooks  []string `toml:"sharp_books" json:"sharp_books" yaml:"sharp_books"`
	Sports      []string `toml:"sports" json:"sports" yaml:"sports"`
}

// ScanConfig controls the scan loop.
type ScanConfig struct {
	Interval Duration `toml:"interval" json:"interval" yaml:"interval"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled" json:"enabled" yaml:"enabled"`
	Port        int      `toml:"port" json:"port" yaml:"port"`
	CORSOrigins []string `toml:"cors_origins" json:"cors_origins" yaml:"cors_origins"`
	APIKey      string   `toml:"api_key" json:"api_key" yaml:"api_key"`
	RateLimit   int      `toml:"rate_limit" json:"rate_limit" yaml:"rate_limit"`
}

// NotifyConfig configures alert senders and which events they receive.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token" json:"telegram_token" yaml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id" json:"telegram_chat_id" yaml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url" json:"discord_webhook_url" yaml:"discord_webhook_url"`
	Events            []string `toml:"events" json:"events" yaml:"events"`
}

// Duration is a time.Duration written as "300s" or "5m" in config files.
// A bare integer is read as seconds.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for TOML and JSON.
func (d *Duration) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	if n, err := strconv.Atoi(s); err == nil {
		d.Duration = time.Duration(n) * time.Second
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// UnmarshalYAML reads a scalar duration.
func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	return d.UnmarshalText([]byte(n.Value))
}

// Defaults returns the configuration used before any file or environment
// is applied.
func Defaults() Config {
	return Config{
		OddsAPI: OddsAPIConfig{
			BaseURL:            "https://api.the-odds-api.com",
			Regions:            "us,uk",
			OddsFormat:         "decimal",
			RateLimitPerMinute: 30,
			WindowDays:         7,
			Timeout:            Duration{30 * time.Second},
		},
		Polymarket: PolymarketConfig{
			GammaHost: "https://gamma-api.polymarket.com",
			DataHost:  "https://data-api.polymarket.com",
			ClobHost:  "https://clob.polymarket.com",
			ChainID:   137,
		},
		Lambda: LambdaConfig{
			Timeout: Duration{30 * time.Second},
		},
		Database: DatabaseConfig{
			Host:           "localhost",
			Port:           5432,
			Database:       "sportsedge",
			User:           "postgres",
			SSLMode:        "disable",
			PoolMaxConns:   10,
			PoolMinConns:   2,
			RunMigrations:  true,
			RetentionDays:  90,
			BackupEnabled:  false,
			BackupInterval: Duration{24 * time.Hour},
		},
		Redis: RedisConfig{
			Enabled:    true,
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
			MarketTTL:  Duration{2 * time.Minute},
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "sportsedge-archive",
			ForcePathStyle: true,
		},
		Trading: TradingConfig{
			Bankroll:            10000,
			MinEdge:             0.03,
			ScanMinEdge:         0.02,
			MaxStakePerTradePct: 0.05,
			MaxDailyStakePct:    0.20,
			RecentTradeWindow:   Duration{24 * time.Hour},
			BatchDelay:          Duration{200 * time.Millisecond},
		},
		Risk: RiskConfig{
			MaxDrawdown: 0.10,
		},
		Matching: MatchingConfig{
			Concurrency: 8,
			SharpBooks:  []string{"pinnacle"},
			Sports:      []string{"basketball_nba", "icehockey_nhl", "baseball_mlb"},
		},
		Scan: ScanConfig{
			Interval: Duration{300 * time.Second},
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:   120,
		},
		Notify: NotifyConfig{
			Events: []string{"opportunity_detected", "trade_executed", "trade_failed", "error"},
		},
		Mode:     "scan",
		LogLevel: "info",
	}
}

// Modes lists the valid run modes.
var Modes = []string{"scan", "dashboard", "report", "server", "full"}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validOddsFormats = map[string]bool{
	"decimal":  true,
	"american": true,
}

func validMode(m string) bool {
	for _, v := range Modes {
		if v == m {
			return true
		}
	}
	return false
}

func validFraction(v float64) bool {
	return v > 0 && v <= 1
}

// NeedsExecutor reports whether the configured mode places orders.
func (c *Config) NeedsExecutor() bool {
	return !c.Trading.DryRun && (c.Mode == "scan" || c.Mode == "full")
}

// Validate checks the configuration and returns every problem found in a
// single error.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	mode := strings.ToLower(c.Mode)
	if !validMode(mode) {
		add("unknown mode %q (valid: %s)", c.Mode, strings.Join(Modes, ", "))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		add("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel)
	}

	if mode == "scan" || mode == "full" {
		if c.OddsAPI.APIKey == "" {
			add("odds_api.api_key is required in %s mode (or set ODDS_API_KEY)", mode)
		}
		if len(c.Matching.Sports) == 0 {
			add("matching.sports must not be empty")
		}
	}
	if !validOddsFormats[c.OddsAPI.OddsFormat] {
		add("odds_api.odds_format must be decimal or american, got %q", c.OddsAPI.OddsFormat)
	}
	if c.OddsAPI.RateLimitPerMinute <= 0 {
		add("odds_api.rate_limit_per_minute must be positive")
	}
	if c.OddsAPI.WindowDays <= 0 {
		add("odds_api.window_days must be positive")
	}

	if c.Trading.Bankroll <= 0 {
		add("trading.bankroll must be positive, got %v", c.Trading.Bankroll)
	}
	if !validFraction(c.Trading.MinEdge) {
		add("trading.min_edge must be in (0, 1], got %v", c.Trading.MinEdge)
	}
	if !validFraction(c.Trading.ScanMinEdge) {
		add("trading.scan_min_edge must be in (0, 1], got %v", c.Trading.ScanMinEdge)
	}
	if !validFraction(c.Trading.MaxStakePerTradePct) {
		add("trading.max_stake_per_trade_pct must be in (0, 1], got %v", c.Trading.MaxStakePerTradePct)
	}
	if !validFraction(c.Trading.MaxDailyStakePct) {
		add("trading.max_daily_stake_pct must be in (0, 1], got %v", c.Trading.MaxDailyStakePct)
	}
	if c.Trading.MaxStakePerTradePct > c.Trading.MaxDailyStakePct {
		add("trading.max_stake_per_trade_pct exceeds max_daily_stake_pct")
	}
	if c.Trading.BatchDelay.Duration < 0 {
		add("trading.batch_delay must not be negative")
	}
	if c.NeedsExecutor() && c.Lambda.URL == "" {
		add("lambda.url is required to place orders (or set trading.dry_run)")
	}

	if c.Risk.MaxDailyTrades < 0 {
		add("risk.max_daily_trades must not be negative")
	}
	if c.Risk.CircuitBreakerEnabled && !validFraction(c.Risk.MaxDrawdown) {
		add("risk.max_drawdown must be in (0, 1] when the circuit breaker is enabled")
	}

	if c.Matching.Concurrency <= 0 {
		add("matching.concurrency must be positive")
	}
	if c.Scan.Interval.Duration <= 0 {
		add("scan.interval must be positive")
	}

	if c.Database.DSN == "" && c.Database.Host == "" {
		add("database.dsn or database.host is required")
	}
	if c.Database.PoolMaxConns < c.Database.PoolMinConns {
		add("database.pool_max_conns is below pool_min_conns")
	}
	if c.Database.RetentionDays < 0 {
		add("database.retention_days must not be negative")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		add("redis.addr is required when redis is enabled")
	}
	if c.S3.Enabled && c.S3.Bucket == "" {
		add("s3.bucket is required when s3 is enabled")
	}

	if (mode == "server" || mode == "full") && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		add("server.port must be 1-65535, got %d", c.Server.Port)
	}
	if (c.Notify.TelegramToken == "") != (c.Notify.TelegramChatID == "") {
		add("notify.telegram_token and notify.telegram_chat_id must be set together")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
