package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	s3blob "github.com/alanyoungcy/sportsedge/internal/blob/s3"
	"github.com/alanyoungcy/sportsedge/internal/cache/redis"
	"github.com/alanyoungcy/sportsedge/internal/config"
	"github.com/alanyoungcy/sportsedge/internal/crypto"
	"github.com/alanyoungcy/sportsedge/internal/domain"
	"github.com/alanyoungcy/sportsedge/internal/metrics"
	"github.com/alanyoungcy/sportsedge/internal/notify"
	"github.com/alanyoungcy/sportsedge/internal/platform/oddsapi"
	"github.com/alanyoungcy/sportsedge/internal/platform/polymarket"
	"github.com/alanyoungcy/sportsedge/internal/server/handler"
	"github.com/alanyoungcy/sportsedge/internal/service"
	"github.com/alanyoungcy/sportsedge/internal/store/postgres"
)

const defaultHTTPTimeout = 30 * time.Second

// Dependencies bundles every concrete dependency the modes need. It is
// constructed by Wire and torn down by the returned cleanup function.
// Optional dependencies stay nil when their backend is disabled.
type Dependencies struct {
	// Stores
	TradeStore       domain.TradeStore
	OpportunityStore domain.OpportunityStore
	AuditStore       domain.AuditStore
	PoolStats        func() service.PoolStats

	// Probes are the readiness checks reported by /api/health.
	Probes map[string]handler.Probe

	// Caches
	MarketCache domain.MarketCache
	RateLimiter domain.RateLimiter
	LockManager domain.LockManager
	SignalBus   domain.SignalBus

	// Blob storage
	Archiver domain.Archiver

	// External APIs
	Odds      *oddsapi.Client
	Markets   domain.MarketSource
	Orders    domain.OrderExecutor
	Positions domain.PositionSource
	Account   crypto.Credentials

	Notifier *notify.Notifier
	Metrics  *metrics.Metrics
}

// Wire constructs the concrete dependencies for cfg and returns them with a
// cleanup function that releases them in reverse order.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{
		Metrics: metrics.New(),
		Probes:  make(map[string]handler.Probe),
	}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Database.DSN,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.Database,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: cfg.Database.PoolMaxConns,
		MinConns: cfg.Database.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Database.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.Probes["postgres"] = pool.Ping
	tradeStore := postgres.NewTradeStore(pool)
	auditStore := postgres.NewAuditStore(pool)
	deps.TradeStore = tradeStore
	deps.OpportunityStore = postgres.NewOpportunityStore(pool)
	deps.AuditStore = auditStore
	deps.PoolStats = func() service.PoolStats {
		st := pool.Stat()
		return service.PoolStats{
			TotalConns:    st.TotalConns(),
			IdleConns:     st.IdleConns(),
			AcquiredConns: st.AcquiredConns(),
			MaxConns:      st.MaxConns(),
		}
	}

	// --- Redis (optional) ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })
		deps.Probes["redis"] = redisClient.Ping

		deps.MarketCache = redis.NewMarketCache(redisClient, cfg.Redis.MarketTTL.Duration)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
		deps.LockManager = redis.NewLockManager(redisClient)
		deps.SignalBus = redis.NewSignalBus(redisClient)
	}

	// --- S3 trade archive (optional) ---
	if cfg.S3.Enabled {
		bucket, err := s3blob.Open(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.Archiver = s3blob.NewArchiver(bucket, tradeStore, auditStore)
	}

	// --- Odds feed ---
	oddsOpts := []oddsapi.ClientOption{
		oddsapi.WithBaseURL(cfg.OddsAPI.BaseURL),
		oddsapi.WithRegions(cfg.OddsAPI.Regions),
		oddsapi.WithOddsFormat(cfg.OddsAPI.OddsFormat),
		oddsapi.WithWindow(time.Duration(cfg.OddsAPI.WindowDays) * 24 * time.Hour),
		oddsapi.WithRateLimit(cfg.OddsAPI.RateLimitPerMinute),
		oddsapi.WithQuotaHook(func(q oddsapi.Quota) {
			deps.Metrics.SetOddsQuota(float64(q.Remaining))
		}),
		oddsapi.WithLogger(logger),
	}
	if cfg.OddsAPI.Timeout.Duration > 0 {
		oddsOpts = append(oddsOpts, oddsapi.WithHTTPClient(&http.Client{Timeout: cfg.OddsAPI.Timeout.Duration}))
	}
	if deps.RateLimiter != nil {
		oddsOpts = append(oddsOpts, oddsapi.WithSharedLimiter(deps.RateLimiter))
	}
	deps.Odds = oddsapi.NewClient(cfg.OddsAPI.APIKey, oddsOpts...)

	// --- Polymarket ---
	deps.Markets = polymarket.NewGammaClient(cfg.Polymarket.GammaHost, defaultHTTPTimeout)

	account, err := resolveAccount(ctx, cfg, logger)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: polymarket account: %w", err)
	}
	deps.Account = account
	if account.Address != "" {
		deps.Positions = polymarket.NewDataClient(cfg.Polymarket.DataHost, account)
	}

	if cfg.Lambda.URL != "" && !cfg.Trading.DryRun {
		timeout := cfg.Lambda.Timeout.Duration
		if timeout <= 0 {
			timeout = defaultHTTPTimeout
		}
		deps.Orders = polymarket.NewLambdaClient(cfg.Lambda.URL, cfg.Lambda.APIKey, timeout)
	} else {
		deps.Orders = polymarket.NewDryRunExecutor(logger)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		tg, err := notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID)
		if err != nil {
			logger.WarnContext(ctx, "wire: telegram sender disabled", slog.String("error", err.Error()))
		} else {
			senders = append(senders, tg)
		}
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)
	if !deps.Notifier.Enabled() {
		logger.InfoContext(ctx, "wire: notifications disabled")
	}

	return deps, cleanup, nil
}

// resolveAccount returns the Polymarket credentials from config. When the
// HMAC credentials are incomplete they are derived from the CLOB with an L1
// signature, made by the wallet key or supplied pre-computed in config.
func resolveAccount(ctx context.Context, cfg *config.Config, logger *slog.Logger) (crypto.Credentials, error) {
	creds := crypto.Credentials{
		Address:    cfg.Polymarket.Address,
		APIKey:     cfg.Polymarket.APIKey,
		Secret:     cfg.Polymarket.APISecret,
		Passphrase: cfg.Polymarket.Passphrase,
		Signature:  cfg.Polymarket.Signature,
		Timestamp:  cfg.Polymarket.Timestamp,
	}
	src := crypto.KeySource{
		RawPrivateKey:    cfg.Polymarket.PrivateKey,
		EncryptedKeyPath: cfg.Polymarket.EncryptedKeyPath,
		KeyPassword:      cfg.Polymarket.KeyPassword,
	}
	if creds.HasL2() {
		return creds, nil
	}

	var clob *polymarket.ClobClient
	switch {
	case src.Configured():
		key, err := crypto.LoadKey(src)
		if err != nil {
			if errors.Is(err, crypto.ErrNoKey) {
				return creds, nil
			}
			return creds, err
		}
		signer, err := crypto.NewSigner(key, cfg.Polymarket.ChainID)
		if err != nil {
			return creds, err
		}
		if creds.Address == "" {
			creds.Address = signer.Address()
		}
		clob = polymarket.NewClobClient(cfg.Polymarket.ClobHost, signer)
	case creds.StaticL1Headers() != nil:
		clob = polymarket.NewStaticClobClient(cfg.Polymarket.ClobHost, creds)
	default:
		return creds, nil
	}

	derived, err := clob.DeriveAPIKey(ctx)
	if err != nil {
		// Positions stay readable by address without L2 headers.
		logger.WarnContext(ctx, "wire: derive api key failed",
			slog.String("address", creds.Address),
			slog.String("error", err.Error()),
		)
		return creds, nil
	}
	derived.Address = creds.Address
	logger.InfoContext(ctx, "wire: derived polymarket api key", slog.String("address", creds.Address))
	return derived, nil
}
