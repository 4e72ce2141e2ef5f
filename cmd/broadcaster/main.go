package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/appmancer/foxy-backend/internal/app"
	"github.com/appmancer/foxy-backend/internal/broadcaster"
	"github.com/appmancer/foxy-backend/internal/chain/ratelimit"
	"github.com/appmancer/foxy-backend/internal/chain/rpc"
	"github.com/appmancer/foxy-backend/internal/config"
	"github.com/appmancer/foxy-backend/internal/eventstore"
	"github.com/appmancer/foxy-backend/internal/projection"
	"github.com/appmancer/foxy-backend/internal/queue/redisq"
	"github.com/appmancer/foxy-backend/internal/store/postgres"
	"github.com/appmancer/foxy-backend/internal/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := app.NewLogger(cfg.Log.Level)
	slog.SetDefault(logger)

	logger.Info("starting broadcaster",
		"network", cfg.Chain.Network,
		"chain_id", cfg.Chain.ChainID,
		"rpc_url", cfg.Chain.RPCURL,
		"stream", cfg.Redis.Stream,
		"poll_interval", cfg.Broadcaster.PollInterval.String(),
	)

	shutdownTracing, err := tracing.Init(context.Background(), "broadcaster", cfg.Chain.Network, cfg.Tracing.OTLPEndpoint, cfg.Tracing.Insecure)
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("tracing shutdown error", "error", err)
		}
	}()

	db, err := postgres.New(postgres.Config{
		URL:             cfg.DB.URL,
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
	})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("connected to database")

	items := postgres.NewItemStore(db)
	if err := app.EnsureTables(context.Background(), items); err != nil {
		logger.Error("failed to ensure tables", "error", err)
		os.Exit(1)
	}

	q, err := redisq.New(cfg.Redis.URL, cfg.Redis.Stream)
	if err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer q.Close()
	logger.Info("connected to broadcast stream", "stream", cfg.Redis.Stream)

	alerter := app.BuildAlerter(cfg, logger)

	statusView := projection.NewStatusView(items, cfg.Chain.Network, logger)
	historyView := projection.NewHistoryView(items, cfg.Chain.Network, logger)
	events := eventstore.New(items, cfg.Chain.Network, logger, statusView, historyView)

	client := rpc.NewClient(cfg.Chain.RPCURL, logger)
	client.SetRateLimiter(ratelimit.NewLimiter(cfg.Chain.RPCRate, cfg.Chain.RPCBurst, cfg.Chain.Network))
	b := broadcaster.New(q, events, client, alerter, cfg.Chain.Network, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return app.RunHealthServer(gCtx, cfg.Server.HealthPort, logger)
	})

	g.Go(func() error {
		ticker := time.NewTicker(cfg.Broadcaster.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gCtx.Done():
				return nil
			case <-ticker.C:
				if _, err := b.ProcessBatch(gCtx); err != nil {
					logger.Error("broadcast batch failed", "error", err)
				}
			}
		}
	})

	app.StartDBPoolStatsPump(gCtx, db.DB, cfg.Chain.Network)

	g.Go(func() error {
		select {
		case sig := <-sigCh:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
			return nil
		case <-gCtx.Done():
			return nil
		}
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error("broadcaster exited with error", "error", err)
		os.Exit(1)
	}

	logger.Info("broadcaster shut down gracefully")
}
