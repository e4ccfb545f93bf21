package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"nftlend/config"
	"nftlend/core"
	"nftlend/core/events"
	"nftlend/core/state"
	"nftlend/indexer"
	"nftlend/native/listings"
	"nftlend/observability/logging"
	telemetry "nftlend/observability/otel"
	"nftlend/rpc"
	"nftlend/storage"
)

func main() {
	var (
		cfgPath      string
		seedPath     string
		allowMigrate bool
	)
	flag.StringVar(&cfgPath, "config", "./nftlend.toml", "path to nftlendd config")
	flag.StringVar(&seedPath, "seed", "", "optional YAML seed file applied on first start")
	flag.BoolVar(&allowMigrate, "allow-migrate", false, "tolerate a state version mismatch")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := logging.SetupWithOptions("nftlendd", cfg.Environment, logging.Options{
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	logger.Info("config loaded",
		slog.String("path", cfgPath),
		slog.String("backend", cfg.StorageBackend),
		slog.String("driver", cfg.Indexer.Driver),
		slog.String("dsn", logging.MaskDSN(cfg.Indexer.DSN)),
		logging.MaskField("issuer", cfg.Auth.Issuer),
		logging.MaskField("authSecret", cfg.Auth.Secret))

	telemetryCfg := telemetry.ConfigFromEnv("nftlendd", cfg.Environment)
	telemetryCfg.Attributes = map[string]string{"nftlend.program": cfg.ProgramID}
	shutdownTelemetry, err := telemetry.Init(context.Background(), telemetryCfg)
	if err != nil {
		log.Fatalf("init telemetry: %v", err)
	}
	defer func() {
		if shutdownTelemetry != nil {
			_ = shutdownTelemetry(context.Background())
		}
	}()

	db, err := storage.Open(cfg.StorageBackend, cfg.DataDir)
	if err != nil {
		log.Fatalf("open state database: %v", err)
	}
	defer db.Close()
	if err := state.EnsureStateVersion(db, allowMigrate); err != nil {
		log.Fatalf("state version: %v", err)
	}

	programID, err := cfg.Program()
	if err != nil {
		log.Fatalf("program id: %v", err)
	}
	metadataProgram, err := cfg.MetadataProgram()
	if err != nil {
		log.Fatalf("metadata program: %v", err)
	}

	stream := rpc.NewEventStream()
	var (
		history *indexer.Store
		lister  rpc.EventLister
		emitter events.Emitter = stream
	)
	if !strings.EqualFold(cfg.Indexer.Driver, config.IndexerDisabled) {
		history, err = indexer.Open(cfg.Indexer.Driver, cfg.Indexer.DSN, logger)
		if err != nil {
			log.Fatalf("open event index: %v", err)
		}
		defer func() {
			if cerr := history.Close(); cerr != nil {
				logger.Warn("close event index", slog.Any("error", cerr))
			}
		}()
		lister = history
		emitter = events.Multi{history, stream}
	}

	protocol, err := core.NewProtocol(db, core.Options{
		ProgramID:       programID,
		MetadataProgram: metadataProgram,
		Admin:           cfg.Admin(),
		Policy: listings.Policy{
			AllowLateRepayment: cfg.Policy.AllowLateRepayment,
			ClampHireExtension: cfg.Policy.ClampHireExtension,
		},
		Pauses:  cfg.Pauses,
		Emitter: emitter,
		Logger:  logger,
	})
	if err != nil {
		log.Fatalf("init protocol: %v", err)
	}

	if seedPath == "" {
		seedPath = cfg.SeedFile
	}
	if seedPath != "" {
		seed, err := config.LoadSeed(seedPath)
		if err != nil {
			log.Fatalf("load seed: %v", err)
		}
		switch err := protocol.ApplySeed(seed); {
		case errors.Is(err, core.ErrSeedApplied):
			logger.Info("seed already applied", slog.String("path", seedPath))
		case err != nil:
			log.Fatalf("apply seed: %v", err)
		default:
			logger.Info("seed applied",
				slog.String("path", seedPath),
				slog.Int("balances", len(seed.Balances)),
				slog.Int("tokens", len(seed.Tokens)),
				slog.Int("collections", len(seed.Collections)))
		}
	}

	server := rpc.NewServer(protocol, lister, rpc.ServerConfig{
		Auth: rpc.AuthConfig{
			HMACSecret: cfg.Auth.Secret,
			Issuer:     cfg.Auth.Issuer,
		},
		RateLimit: rpc.RateLimit{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		},
		Service: "nftlendd",
		Stream:  stream,
	}, logger)

	httpServer := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("nftlendd listening",
			slog.String("addr", cfg.ListenAddress),
			slog.String("program", programID.String()))
		serverErr <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("forcing server stop", slog.Any("error", err))
			_ = httpServer.Close()
		}
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("serve rpc", slog.Any("error", err))
		}
	}
}
