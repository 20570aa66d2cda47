package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cristianortiz/bidEngine/internal/auction/application"
	"github.com/cristianortiz/bidEngine/internal/auction/domain"
	"github.com/cristianortiz/bidEngine/internal/auction/infra/events"
	auctionhttp "github.com/cristianortiz/bidEngine/internal/auction/infra/http"
	"github.com/cristianortiz/bidEngine/internal/auction/infra/repository/memory"
	"github.com/cristianortiz/bidEngine/internal/auction/infra/repository/postgres"
	auctionws "github.com/cristianortiz/bidEngine/internal/auction/infra/websocket"
	"github.com/cristianortiz/bidEngine/internal/shared/clock"
	"github.com/cristianortiz/bidEngine/internal/shared/config"
	"github.com/cristianortiz/bidEngine/internal/shared/db"
	"github.com/cristianortiz/bidEngine/internal/shared/db/migrations"
	"github.com/cristianortiz/bidEngine/internal/shared/httpserver"
	"github.com/cristianortiz/bidEngine/internal/shared/logger"
	"github.com/cristianortiz/bidEngine/internal/shared/websocket"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	logger := logger.GetLogger()
	defer logger.Sync()

	logger.Info("Starting BidEngine server...")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// auction store
	var repo domain.AuctionRepository
	switch cfg.StoreDriver {
	case "postgres":
		pool, err := db.NewPostgresPool(ctx, db.PoolConfig{
			DSN:            cfg.PostgresDSN(),
			MaxConns:       int32(cfg.DBMaxConns),
			MinConns:       int32(cfg.DBMinConns),
			ConnectTimeout: cfg.DBConnectTimeout,
		})
		if err != nil {
			logger.Fatal("Database connection failed", zap.Error(err))
		}
		defer pool.Close()

		logger.Info("Running database migrations...")
		if err := migrations.RunMigrations(cfg.MigrationsPath, cfg.PostgresDSN()); err != nil {
			logger.Fatal("Database migration failed", zap.Error(err))
		}
		logger.Info("Database migrations completed successfully.")
		repo = postgres.NewAuctionRepository(pool)
	default:
		logger.Warn("Using in-memory auction store, state is lost on restart")
		repo = memory.NewAuctionRepository()
	}

	// event fan-out: local websocket hub always, redis and jetstream when configured
	hub := websocket.NewHub()
	publishers := events.Multi{events.NewHubPublisher(hub)}

	if cfg.RedisAddr != "" {
		redisPub, err := events.NewRedisPublisher(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Fatal("Redis connection failed", zap.Error(err))
		}
		defer redisPub.Close()
		publishers = append(publishers, redisPub)
	}

	if cfg.NatsURL != "" {
		nc, err := nats.Connect(cfg.NatsURL,
			nats.Name("bidEngine"),
			nats.MaxReconnects(-1),
			nats.ReconnectWait(2*time.Second),
		)
		if err != nil {
			logger.Fatal("NATS connection failed", zap.Error(err))
		}
		defer nc.Drain()
		jsPub, err := events.NewJetStreamPublisher(ctx, nc)
		if err != nil {
			logger.Fatal("JetStream setup failed", zap.Error(err))
		}
		publishers = append(publishers, jsPub)
	}

	// application layer
	clk := clock.System()
	policy := domain.BlindPolicy{Mode: domain.MaskMode(cfg.BlindMask), RevealPrice: cfg.BlindRevealPrice}
	lanes := application.NewCoordinator(cfg.LaneQueueDepth)
	committer := application.NewCommitter(repo, lanes, clk, publishers, cfg.PersistMaxRetries)

	auctionService := application.NewAuctionService(
		application.NewCreateAuctionUseCase(repo, clk),
		application.NewPlaceBidUseCase(committer, policy),
		application.NewPlaceAutoBidUseCase(committer, policy),
		application.NewBuyNowUseCase(committer, policy),
		application.NewForceEndUseCase(committer),
		application.NewGetAuctionViewUseCase(repo, clk, policy),
	)
	closer := application.NewCloser(repo, committer, clk, application.CloserConfig{
		Interval:    cfg.CloserInterval,
		BatchSize:   cfg.CloserBatch,
		Concurrency: cfg.CloserConcurrency,
	})

	// infra layer
	wsHandler := auctionws.NewAuctionWSHandler(auctionService, hub)
	auctionHandler := auctionhttp.NewAuctionHandler(ctx, auctionService, hub, wsHandler)
	server := httpserver.NewServer(auctionHandler)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		wsHandler.ListenForMessages(gctx)
		return nil
	})
	g.Go(func() error {
		return closer.Run(gctx)
	})
	g.Go(func() error {
		return server.Start(gctx, cfg.HTTPAddr)
	})

	if err := g.Wait(); err != nil {
		logger.Error("BidEngine stopped with error", zap.Error(err))
	}

	// let accepted mutations finish committing before the store closes
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := lanes.Shutdown(shutdownCtx); err != nil {
		logger.Error("Coordinator shutdown timed out", zap.Error(err))
	}
	logger.Info("BidEngine stopped")
}
