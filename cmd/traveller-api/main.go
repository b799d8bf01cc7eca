package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/joujou-angel/Traveller2-sub000/internal/config"
	"github.com/joujou-angel/Traveller2-sub000/internal/events"
	apphttp "github.com/joujou-angel/Traveller2-sub000/internal/http"
	applog "github.com/joujou-angel/Traveller2-sub000/internal/log"
	"github.com/joujou-angel/Traveller2-sub000/internal/services"
	"github.com/joujou-angel/Traveller2-sub000/internal/storage"
	"github.com/joujou-angel/Traveller2-sub000/internal/weather"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logConfig := applog.DefaultConfig()
	logConfig.Component = "api"
	logger := applog.New(logConfig)
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// AMQP is optional: without it, expenses save fine and the activity
	// feed just stays empty.
	var publisher services.ActivityPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, activity events disabled", "error", err)
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange)
		}
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	expenseService := services.NewExpenseService(repo, publisher)

	meteo := weather.NewClient(weather.WithEndpoints(cfg.ForecastURL, cfg.ArchiveURL))
	aggregator := weather.NewAggregator(meteo.Forecast(), meteo.Archive()).WithHorizon(cfg.ForecastHorizonDays)
	geocoder := weather.NewGeocoder(weather.WithGeocodeEndpoint(cfg.GeocodeURL))

	srv := apphttp.NewServer(":"+cfg.Port, repo, expenseService, aggregator, geocoder, apphttp.Options{
		JWTSecret:       cfg.JWTSecret,
		TokenTTL:        cfg.TokenTTL,
		WeatherCacheTTL: cfg.WeatherCacheTTL,
		GeocodeCacheTTL: cfg.GeocodeCacheTTL,
	})

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 15 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting traveller API", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
