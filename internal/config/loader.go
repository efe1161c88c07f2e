package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load reads the configuration file at path, merges it on top of the
// built-in defaults, loads .env when present and applies environment
// overrides. The file format follows the extension: .json, .yaml/.yml,
// anything else is TOML. An empty path skips the file. The returned Config
// has not been validated.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if err := decodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: load %s: %w", path, err)
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)
	applyLegacyEnv(&cfg)
	cfg.Mode = strings.ToLower(cfg.Mode)

	return &cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		return dec.Decode(cfg)
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	default:
		_, err := toml.Decode(string(data), cfg)
		return err
	}
}

// applyEnvOverrides reads SPORTSEDGE_* environment variables and overwrites
// the corresponding fields when a variable is set.
func applyEnvOverrides(cfg *Config) {
	// ── Odds API ──
	setStr(&cfg.OddsAPI.BaseURL, "SPORTSEDGE_ODDS_API_BASE_URL")
	setStr(&cfg.OddsAPI.APIKey, "SPORTSEDGE_ODDS_API_KEY")
	setStr(&cfg.OddsAPI.Regions, "SPORTSEDGE_ODDS_API_REGIONS")
	setStr(&cfg.OddsAPI.OddsFormat, "SPORTSEDGE_ODDS_API_ODDS_FORMAT")
	setInt(&cfg.OddsAPI.RateLimitPerMinute, "SPORTSEDGE_ODDS_API_RATE_LIMIT_PER_MINUTE")
	setInt(&cfg.OddsAPI.WindowDays, "SPORTSEDGE_ODDS_API_WINDOW_DAYS")
	setDuration(&cfg.OddsAPI.Timeout, "SPORTSEDGE_ODDS_API_TIMEOUT")

	// ── Polymarket ──
	setStr(&cfg.Polymarket.GammaHost, "SPORTSEDGE_POLYMARKET_GAMMA_HOST")
	setStr(&cfg.Polymarket.DataHost, "SPORTSEDGE_POLYMARKET_DATA_HOST")
	setStr(&cfg.Polymarket.ClobHost, "SPORTSEDGE_POLYMARKET_CLOB_HOST")
	setInt(&cfg.Polymarket.ChainID, "SPORTSEDGE_POLYMARKET_CHAIN_ID")
	setStr(&cfg.Polymarket.Address, "SPORTSEDGE_POLYMARKET_ADDRESS")
	setStr(&cfg.Polymarket.Signature, "SPORTSEDGE_POLYMARKET_SIGNATURE")
	setStr(&cfg.Polymarket.Timestamp, "SPORTSEDGE_POLYMARKET_TIMESTAMP")
	setStr(&cfg.Polymarket.APIKey, "SPORTSEDGE_POLYMARKET_API_KEY")
	setStr(&cfg.Polymarket.APISecret, "SPORTSEDGE_POLYMARKET_API_SECRET")
	setStr(&cfg.Polymarket.Passphrase, "SPORTSEDGE_POLYMARKET_PASSPHRASE")
	setStr(&cfg.Polymarket.PrivateKey, "SPORTSEDGE_POLYMARKET_PRIVATE_KEY")
	setStr(&cfg.Polymarket.EncryptedKeyPath, "SPORTSEDGE_POLYMARKET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Polymarket.KeyPassword, "SPORTSEDGE_POLYMARKET_KEY_PASSWORD")

	// ── Lambda ──
	setStr(&cfg.Lambda.URL, "SPORTSEDGE_LAMBDA_URL")
	setStr(&cfg.Lambda.APIKey, "SPORTSEDGE_LAMBDA_API_KEY")
	setDuration(&cfg.Lambda.Timeout, "SPORTSEDGE_LAMBDA_TIMEOUT")

	// ── Database ──
	setStr(&cfg.Database.DSN, "SPORTSEDGE_DATABASE_DSN")
	setStr(&cfg.Database.DSN, "DATABASE_URL") // compatibility alias
	setStr(&cfg.Database.Host, "SPORTSEDGE_DATABASE_HOST")
	setInt(&cfg.Database.Port, "SPORTSEDGE_DATABASE_PORT")
	setStr(&cfg.Database.Database, "SPORTSEDGE_DATABASE_NAME")
	setStr(&cfg.Database.User, "SPORTSEDGE_DATABASE_USER")
	setStr(&cfg.Database.Password, "SPORTSEDGE_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "SPORTSEDGE_DATABASE_SSL_MODE")
	setInt(&cfg.Database.PoolMaxConns, "SPORTSEDGE_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "SPORTSEDGE_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "SPORTSEDGE_DATABASE_RUN_MIGRATIONS")
	setInt(&cfg.Database.RetentionDays, "SPORTSEDGE_DATABASE_RETENTION_DAYS")
	setBool(&cfg.Database.BackupEnabled, "SPORTSEDGE_DATABASE_BACKUP_ENABLED")
	setDuration(&cfg.Database.BackupInterval, "SPORTSEDGE_DATABASE_BACKUP_INTERVAL")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "SPORTSEDGE_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "SPORTSEDGE_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "SPORTSEDGE_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "SPORTSEDGE_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "SPORTSEDGE_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "SPORTSEDGE_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "SPORTSEDGE_REDIS_TLS_ENABLED")
	setDuration(&cfg.Redis.MarketTTL, "SPORTSEDGE_REDIS_MARKET_TTL")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "SPORTSEDGE_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "SPORTSEDGE_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "SPORTSEDGE_S3_REGION")
	setStr(&cfg.S3.Bucket, "SPORTSEDGE_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "SPORTSEDGE_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "SPORTSEDGE_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "SPORTSEDGE_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "SPORTSEDGE_S3_FORCE_PATH_STYLE")

	// ── Trading ──
	setFloat64(&cfg.Trading.Bankroll, "SPORTSEDGE_TRADING_BANKROLL")
	setFloat64(&cfg.Trading.MinEdge, "SPORTSEDGE_TRADING_MIN_EDGE")
	setFloat64(&cfg.Trading.ScanMinEdge, "SPORTSEDGE_TRADING_SCAN_MIN_EDGE")
	setFloat64(&cfg.Trading.MaxStakePerTradePct, "SPORTSEDGE_TRADING_MAX_STAKE_PER_TRADE_PCT")
	setFloat64(&cfg.Trading.MaxDailyStakePct, "SPORTSEDGE_TRADING_MAX_DAILY_STAKE_PCT")
	setDuration(&cfg.Trading.RecentTradeWindow, "SPORTSEDGE_TRADING_RECENT_TRADE_WINDOW")
	setDuration(&cfg.Trading.BatchDelay, "SPORTSEDGE_TRADING_BATCH_DELAY")
	setBool(&cfg.Trading.DryRun, "SPORTSEDGE_TRADING_DRY_RUN")

	// ── Risk ──
	setInt(&cfg.Risk.MaxDailyTrades, "SPORTSEDGE_RISK_MAX_DAILY_TRADES")
	setFloat64(&cfg.Risk.MaxDrawdown, "SPORTSEDGE_RISK_MAX_DRAWDOWN")
	setBool(&cfg.Risk.CircuitBreakerEnabled, "SPORTSEDGE_RISK_CIRCUIT_BREAKER_ENABLED")

	// ── Matching ──
	setInt(&cfg.Matching.Concurrency, "SPORTSEDGE_MATCHING_CONCURRENCY")
	setStringSlice(&cfg.Matching.SharpBooks, "SPORTSEDGE_MATCHING_SHARP_BOOKS")
	setStringSlice(&cfg.Matching.Sports, "SPORTSEDGE_MATCHING_SPORTS")

	// ── Scan ──
	setDuration(&cfg.Scan.Interval, "SPORTSEDGE_SCAN_INTERVAL")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "SPORTSEDGE_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "SPORTSEDGE_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "SPORTSEDGE_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "SPORTSEDGE_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "SPORTSEDGE_SERVER_RATE_LIMIT")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "SPORTSEDGE_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "SPORTSEDGE_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "SPORTSEDGE_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "SPORTSEDGE_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "SPORTSEDGE_MODE")
	setStr(&cfg.LogLevel, "SPORTSEDGE_LOG_LEVEL")
}

// applyLegacyEnv reads the unprefixed variable names used by existing
// deployments. They are applied last and win over prefixed values.
func applyLegacyEnv(cfg *Config) {
	setStr(&cfg.OddsAPI.APIKey, "ODDS_API_KEY")
	setFloat64(&cfg.Trading.Bankroll, "BANKROLL")
	setStr(&cfg.Polymarket.Address, "POLY_ADDRESS")
	setStr(&cfg.Polymarket.Signature, "POLY_SIGNATURE")
	setStr(&cfg.Polymarket.Timestamp, "POLY_TIMESTAMP")
	setStr(&cfg.Polymarket.APIKey, "POLY_API_KEY")
	setStr(&cfg.Polymarket.Passphrase, "POLY_PASSPHRASE")
	setStr(&cfg.Polymarket.APISecret, "POLY_SECRET")
	setStr(&cfg.Lambda.URL, "LAMBDA_URL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *Duration, key string) {
	if v := os.Getenv(key); v != "" {
		var d Duration
		if err := d.UnmarshalText([]byte(v)); err == nil {
			*dst = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
