// Command iamd serves the goIAM HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goIAM "github.com/MrEthical07/goIAM"
	"github.com/MrEthical07/goIAM/internal/config"
	"github.com/MrEthical07/goIAM/internal/logging"
	otelexport "github.com/MrEthical07/goIAM/metrics/export/otel"
	"github.com/MrEthical07/goIAM/store/gormstore"
	"github.com/MrEthical07/goIAM/store/pgstore"
	"github.com/MrEthical07/goIAM/transport/httpapi"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

type accountStore interface {
	goIAM.AccountStore
	Close() error
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "iamd: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load(args)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	store, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()
	logger.Info("account store ready", zap.String("driver", cfg.Store.Driver))

	sinks := goIAM.MultiSink{goIAM.NewZapSink(logger)}
	var kafka *goIAM.KafkaSink
	if len(cfg.Kafka.Brokers) > 0 {
		kafka, err = goIAM.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		if err != nil {
			return fmt.Errorf("kafka audit sink: %w", err)
		}
		sinks = append(sinks, kafka)
		logger.Info("kafka audit sink enabled", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	engine, err := goIAM.New().
		WithConfig(cfg.Engine()).
		WithRedis(rdb).
		WithAccountStore(store).
		WithAuditSink(sinks).
		WithLogger(logger).
		Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}

	report := engine.SecurityReport()
	logger.Info("engine ready",
		zap.String("signing_algorithm", report.SigningAlgorithm),
		zap.Duration("access_ttl", report.AccessTTL),
		zap.Duration("refresh_ttl", report.RefreshTTL),
		zap.String("password_algorithm", report.Password.Algorithm),
		zap.Bool("replay_tracking", report.ReplayTrackingEnabled),
		zap.Bool("audit", report.AuditEnabled),
	)

	if cfg.Metrics.OTel {
		shutdown, err := startOTel(engine)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httpapi.New(engine, httpapi.Options{Logger: logger, CORSOrigins: cfg.CORSOrigins}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-serveErr:
		if err != nil {
			logger.Error("http server error", zap.Error(err))
		}
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}

	// Close drains queued audit events before the Kafka writer goes away.
	engine.Close()
	if kafka != nil {
		if err := kafka.Close(); err != nil {
			logger.Warn("kafka close", zap.Error(err))
		}
	}
	logger.Info("shutdown complete", zap.Uint64("audit_dropped", engine.AuditDropped()))
	return nil
}

func openStore(ctx context.Context, cfg config.StoreConfig) (accountStore, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		return gormstore.OpenSQLite(cfg.DSN)
	case config.DriverPostgres:
		return gormstore.OpenPostgres(cfg.DSN)
	case config.DriverPgx:
		return pgstore.Open(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
}

// startOTel installs a global meter provider that periodically writes the
// Engine's instruments to stdout.
func startOTel(engine *goIAM.Engine) (func(), error) {
	exp, err := stdoutmetric.New()
	if err != nil {
		return nil, fmt.Errorf("otel stdout exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(time.Minute))),
	)
	otel.SetMeterProvider(provider)

	bridge, err := otelexport.NewExporter(otel.Meter("github.com/MrEthical07/goIAM"), engine)
	if err != nil {
		_ = provider.Shutdown(context.Background())
		return nil, fmt.Errorf("otel exporter: %w", err)
	}

	return func() {
		_ = bridge.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = provider.Shutdown(ctx)
	}, nil
}
