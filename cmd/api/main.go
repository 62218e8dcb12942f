package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"calculator-api/internal/calculator"
	"calculator-api/internal/config"
	"calculator-api/internal/gateway"
	"calculator-api/internal/observability"
	"calculator-api/internal/server"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func main() {

	configPath := flag.String("config", "", "path to a YAML config file (defaults to config.yaml or config/config.yaml)")
	envPath := flag.String("env", "", "path to a dotenv file (defaults to .env when present)")
	flag.Parse()

	ctx := context.Background()

	// Environment
	if err := loadDotEnv(*envPath); err != nil {
		panic(err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	// Logger
	err = observability.InitLogger(cfg.Telemetry.LogLevel)
	if err != nil {
		panic(err)
	}
	defer observability.SyncLogger()

	if cfg.Telemetry.OTLPLogs {
		logShutdown, err := observability.InitLogging(ctx)
		if err != nil {
			panic(err)
		}
		defer logShutdown(ctx)
	}

	// Tracing
	traceShutdown, err := observability.InitTracing(ctx)
	if err != nil {
		panic(err)
	}
	defer traceShutdown(ctx)

	// Metrics
	metricShutdown, err := initMetrics(ctx)
	if err != nil {
		panic(err)
	}
	defer metricShutdown(ctx)

	// Sessions
	evaluator := gateway.New(gateway.Config{
		URL:     cfg.Evaluator.URL,
		Timeout: cfg.Evaluator.Timeout,
	})
	store := calculator.NewStore(evaluator, calculator.StoreConfig{
		IdleTTL:             cfg.Sessions.IdleTTL,
		EqualsRPS:           cfg.Sessions.EqualsRPS,
		EqualsBurst:         cfg.Sessions.EqualsBurst,
		UnknownErrorMessage: cfg.Sessions.UnknownErrorMessage,
	})
	if err := calculator.RegisterSessionGauge(prometheus.DefaultRegisterer, store); err != nil {
		panic(err)
	}

	// Router
	router := server.NewRouter(calculator.NewHandler(store), nil)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		observability.Logger.Info("server started",
			zap.String("addr", srv.Addr),
			zap.String("evaluator_url", cfg.Evaluator.URL),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			panic(err)
		}
	}()

	waitForShutdown(srv)
}

func waitForShutdown(srv *http.Server) {

	stop := make(chan os.Signal, 1)

	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		observability.Logger.Warn("server shutdown", zap.Error(err))
	}
	observability.Logger.Info("server stopped")
}
