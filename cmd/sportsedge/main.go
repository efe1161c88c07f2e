// Command sportsedge compares sportsbook odds with Polymarket prices, sizes
// the mispriced outcomes and optionally trades them.
//
//	sportsedge -config config.toml              # scan loop (mode from config)
//	sportsedge -config config.toml -interactive # dashboard
//	sportsedge -dry-run -interval 120s          # scan without placing orders
//	sportsedge -encrypt-key wallet.key          # encrypt private_key with key_password
package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alanyoungcy/sportsedge/internal/app"
	"github.com/alanyoungcy/sportsedge/internal/config"
	"github.com/alanyoungcy/sportsedge/internal/crypto"
)

type flags struct {
	configPath  string
	dryRun      bool
	interactive bool
	interval    time.Duration
	encryptKey  string
}

func parseFlags(args []string) (flags, error) {
	var f flags
	fs := flag.NewFlagSet("sportsedge", flag.ContinueOnError)
	fs.StringVar(&f.configPath, "config", "", "configuration file (.toml, .json, .yaml); env and .env apply on top")
	fs.BoolVar(&f.dryRun, "dry-run", false, "scan and report without placing orders")
	fs.BoolVar(&f.interactive, "interactive", false, "run the interactive dashboard")
	fs.DurationVar(&f.interval, "interval", 0, "override the scan interval, e.g. 120s")
	fs.StringVar(&f.encryptKey, "encrypt-key", "", "write the configured private key, encrypted with key_password, to this file and exit")
	return f, fs.Parse(args)
}

// apply layers the command line over the loaded configuration.
func (f flags) apply(cfg *config.Config) {
	if f.dryRun {
		cfg.Trading.DryRun = true
	}
	if f.interactive {
		cfg.Mode = "dashboard"
	}
	if f.interval > 0 {
		cfg.Scan.Interval = config.Duration{Duration: f.interval}
	}
}

func newLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// writeKeyFile seals the configured private key for later use through
// encrypted_key_path.
func writeKeyFile(cfg *config.Config, path string) error {
	if cfg.Polymarket.PrivateKey == "" {
		return errors.New("private_key is not set")
	}
	return crypto.WriteEncryptedKey(path, cfg.Polymarket.PrivateKey, cfg.Polymarket.KeyPassword)
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	f, err := parseFlags(args)
	if err != nil {
		return 2
	}

	logger := newLogger(os.Stdout, "info")
	cfg, err := config.Load(f.configPath)
	if err != nil {
		logger.Error("load config", slog.String("path", f.configPath), slog.String("error", err.Error()))
		return 1
	}
	f.apply(cfg)

	if f.encryptKey != "" {
		if err := writeKeyFile(cfg, f.encryptKey); err != nil {
			logger.Error("encrypt key", slog.String("path", f.encryptKey), slog.String("error", err.Error()))
			return 1
		}
		logger.Info("encrypted key written", slog.String("path", f.encryptKey))
		return 0
	}

	// The dashboard and report draw on stdout; logs go to stderr there.
	logOut := io.Writer(os.Stdout)
	if cfg.Mode == "dashboard" || cfg.Mode == "report" {
		logOut = os.Stderr
	}
	logger = newLogger(logOut, cfg.LogLevel)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		return 1
	}
	logger.Info("sportsedge starting",
		slog.String("mode", cfg.Mode),
		slog.Bool("dry_run", cfg.Trading.DryRun),
		slog.Any("settings", config.RedactedConfig(cfg)),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application := app.New(cfg, logger)
	defer application.Close()

	began := time.Now()
	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("sportsedge exited", slog.String("error", err.Error()))
		return 1
	}
	logger.Info("sportsedge stopped", slog.Duration("uptime", time.Since(began)))
	return 0
}
