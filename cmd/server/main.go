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

	"github.com/spf13/cobra"

	httpRouter "exchange-rate-facade/internal/adapter/http"
	"exchange-rate-facade/internal/adapter/events"
	"exchange-rate-facade/internal/adapter/repository"
	"exchange-rate-facade/internal/adapter/store"
	"exchange-rate-facade/internal/config"
	"exchange-rate-facade/internal/domain/model"
	"exchange-rate-facade/internal/domain/ports"
	"exchange-rate-facade/internal/metrics"
	"exchange-rate-facade/internal/service"
	"exchange-rate-facade/internal/tracing"
	"exchange-rate-facade/pkg/logger"
)

type options struct {
	configPath string
	envFile    string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "exchange-rate-facade",
		Short:         "HTTP facade for currency exchange rates with caching and overrides",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := run(cmd.Context(), opts)
			if err != nil {
				fmt.Fprintln(os.Stderr, "error:", err)
			}
			return err
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", "", "path to a YAML config file (overrides $CONFIG_PATH)")
	cmd.Flags().StringVar(&opts.envFile, "env-file", ".env", "env file loaded before reading configuration")

	return cmd
}

func run(ctx context.Context, opts *options) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := config.LoadDotEnv(opts.envFile); err != nil {
		return err
	}

	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.NewLoggerWithFormat(cfg.Log.Level, cfg.Log.Format)
	log.Info("Starting exchange rate service")

	tracerCloser, err := tracing.Init(cfg.Tracing, log)
	if err != nil {
		return err
	}
	defer tracerCloser.Close()

	currencies, err := model.LoadAllowlist(cfg.Currencies.File)
	if err != nil {
		return err
	}

	appMetrics := metrics.NewMetrics()

	rateCache, closeCache, err := newRateCache(ctx, cfg.Cache, log.Named("cache"))
	if err != nil {
		return err
	}
	defer closeCache()

	publisher := newOverridePublisher(cfg.Kafka, log.Named("events"))
	defer publisher.Close()

	provider := repository.NewExchangeAPI(
		cfg.ExchangeAPI.BaseURL,
		cfg.ExchangeAPI.APIKey,
		model.Currency(cfg.ExchangeAPI.BaseCurrency),
		cfg.ExchangeAPI.Timeout,
		log.Named("provider"),
	)

	exchangeService := service.NewExchangeService(
		provider,
		rateCache,
		store.NewOverrideStore(log.Named("overrides")),
		log.Named("service"),
		service.WithPublisher(publisher),
		service.WithMetrics(appMetrics),
	)

	handler := httpRouter.NewHandler(exchangeService, currencies, log, appMetrics)

	var limiter *httpRouter.IPRateLimiter
	if cfg.RateLimit.Enabled {
		limiter = httpRouter.NewIPRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window, cfg.RateLimit.TrustProxy)
	}

	router := httpRouter.NewRouter(handler, limiter, httpRouter.CORSConfig{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedHeaders: cfg.Server.AllowedHeaders,
		AllowedMethods: cfg.Server.AllowedMethods,
	}, log.Named("http"), appMetrics)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router.SetupRoutes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go evictExpired(ctx, rateCache, cfg.Cache.CleanupInterval, log)

	serverErr := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			log.Error("HTTP server error", "error", err)
			return err
		}
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
		return err
	}

	log.Info("Server exited")
	return nil
}

// evictExpired periodically sweeps expired entries out of the rate cache.
func evictExpired(ctx context.Context, cache ports.RateCache, interval time.Duration, log *logger.Logger) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := cache.ClearExpired(ctx); err != nil {
				log.Error("Failed to clear expired cache entries", "error", err)
			}
		case <-ctx.Done():
			log.Info("Stopping cache eviction goroutine")
			return
		}
	}
}

func newOverridePublisher(cfg config.KafkaConfig, log *logger.Logger) ports.OverridePublisher {
	if len(cfg.Brokers) == 0 {
		return events.NoopPublisher{}
	}

	log.Info("Publishing override events", "brokers", cfg.Brokers, "topic", cfg.Topic)
	return events.NewKafkaPublisher(cfg.Brokers, cfg.Topic, log)
}
