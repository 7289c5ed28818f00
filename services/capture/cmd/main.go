package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"jobsnap/common/cache"
	rediscache "jobsnap/common/cache/redis"
	"jobsnap/common/database"
	"jobsnap/common/telemetry"
	"jobsnap/services/capture/internal/api"
	"jobsnap/services/capture/internal/classifier"
	"jobsnap/services/capture/internal/config"
	"jobsnap/services/capture/internal/events"
	"jobsnap/services/capture/internal/extractor"
	"jobsnap/services/capture/internal/ledger"
	"jobsnap/services/capture/internal/messaging"
	"jobsnap/services/capture/internal/page"
	"jobsnap/services/capture/internal/pipeline"
	"jobsnap/services/capture/internal/settings"
	"jobsnap/services/capture/internal/webhook"

	"github.com/nats-io/nats.go"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const serviceVersion = "0.1.0"

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.LogLevel == "debug" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func newNATSConnection(cfg *config.Config, lc fx.Lifecycle) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Timeout(cfg.NATSConnTimeout),
		nats.Name(cfg.ServiceName),
		nats.RetryOnFailedConnect(true),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
	}
	nc, err := nats.Connect(cfg.NATSURL, opts...)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return nc.Drain()
		},
	})
	return nc, nil
}

func newCache(cfg *config.Config, lc fx.Lifecycle) cache.Cache {
	opts := cache.DefaultOptions()
	opts.RedisURL = cfg.RedisAddr
	opts.RedisPassword = cfg.RedisPassword
	opts.RedisDB = cfg.RedisDB

	c := rediscache.New(opts)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return c.Ping(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return c.Close()
		},
	})
	return c
}

func newLedger(cfg *config.Config, lc fx.Lifecycle, logger *zap.Logger) (pipeline.Ledger, error) {
	if !cfg.LedgerEnabled {
		return ledger.Noop{}, nil
	}

	db, err := database.New(context.Background(), database.Options{
		DSN:             cfg.ClickHouseDSN,
		MaxOpenConns:    cfg.ClickHouseMaxOpenConns,
		MaxIdleConns:    cfg.ClickHouseMaxIdleConns,
		ConnMaxLifetime: cfg.ClickHouseConnMaxLife,
		Username:        cfg.ClickHouseUsername,
		Password:        cfg.ClickHousePassword,
		Database:        cfg.ClickHouseDatabase,
	}, logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return db.Close()
		},
	})
	return ledger.NewClickHouse(db.Conn(), logger), nil
}

func newTracing(cfg *config.Config, lc fx.Lifecycle, logger *zap.Logger) error {
	shutdown, err := telemetry.InitTracer(context.Background(), cfg.ServiceName, serviceVersion, cfg.OTELCollectorURL, logger)
	if err != nil {
		return err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			shutdown(ctx)
			return nil
		},
	})
	return nil
}

func newExtractor(cfg *config.Config) *extractor.Extractor {
	return extractor.New(cfg.MaxBodyChars)
}

func newFetcher(cfg *config.Config, logger *zap.Logger) page.Fetcher {
	return page.NewHTTPFetcher(cfg.HTTPClientTimeout, logger)
}

func newWebhookClient(cfg *config.Config, logger *zap.Logger) *webhook.Client {
	return webhook.NewClient(cfg.HTTPClientTimeout, logger)
}

func newPipeline(
	store *settings.Store,
	client *extractor.Client,
	host *extractor.Host,
	gemini *classifier.Client,
	sheet *webhook.Client,
	mirror pipeline.Ledger,
	publisher *events.Publisher,
	logger *zap.Logger,
) *pipeline.Pipeline {
	return pipeline.New(store, client, host, gemini, sheet, mirror, publisher, logger)
}

func newRunner(p *pipeline.Pipeline, cfg *config.Config, lc fx.Lifecycle, logger *zap.Logger) *pipeline.Runner {
	r := pipeline.NewRunner(p, cfg.CaptureWorkers, cfg.CaptureQueueSize, logger)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			r.Start(context.Background())
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return r.Stop(ctx)
		},
	})
	return r
}

func newProcessor(p *pipeline.Pipeline) events.Processor {
	return p
}

func newAPIServer(
	cfg *config.Config,
	store *settings.Store,
	gemini *classifier.Client,
	sheet *webhook.Client,
	registry *page.Registry,
	host *extractor.Host,
	p *pipeline.Pipeline,
	runner *pipeline.Runner,
	logger *zap.Logger,
) *api.Server {
	return api.NewServer(api.Deps{
		Settings: store,
		Pinger:   gemini,
		Prober:   sheet,
		Pages:    registry,
		Agents:   host,
		Pipeline: p,
		Runner:   runner,
		Preload:  cfg.ExtractorPreload,
	}, logger)
}

func registerHTTPServer(lc fx.Lifecycle, cfg *config.Config, handler *api.Server, logger *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", cfg.HTTPAddr)
			if err != nil {
				return err
			}
			logger.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

func registerExtractorHost(lc fx.Lifecycle, host *extractor.Host) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return host.Close()
		},
	})
}

func main() {
	app := fx.New(
		fx.Provide(
			config.LoadConfig,
			newLogger,
			newNATSConnection,
			newCache,
			newLedger,
			newExtractor,
			newFetcher,
			newWebhookClient,
			newPipeline,
			newRunner,
			newProcessor,
			newAPIServer,
			messaging.NewBus,
			page.NewRegistry,
			extractor.NewHost,
			extractor.NewClient,
			classifier.NewClient,
			settings.NewStore,
			events.NewPublisher,
			events.NewHandler,
		),
		fx.Invoke(
			newTracing,
			registerExtractorHost,
			func(handler *events.Handler, lc fx.Lifecycle) error {
				return handler.RegisterSubscriptions(lc)
			},
			registerHTTPServer,
		),
	)

	startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		log.Fatal(err)
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil {
		log.Fatal(err)
	}
}
