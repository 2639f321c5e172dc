package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	httpapi "github.com/i474232898/zukan/internal/api/http"
	"github.com/i474232898/zukan/internal/config"
	"github.com/i474232898/zukan/internal/describe"
	"github.com/i474232898/zukan/internal/geocode"
	"github.com/i474232898/zukan/internal/logging"
	"github.com/i474232898/zukan/internal/species"
	"github.com/i474232898/zukan/internal/store"
	"github.com/i474232898/zukan/internal/translate"
	"github.com/i474232898/zukan/internal/upstream"
	"github.com/i474232898/zukan/internal/weather"
	"github.com/i474232898/zukan/internal/weather/providers"
	"github.com/i474232898/zukan/internal/zukan"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	// One outbound client per external service, each with its own breaker.
	newUpstream := func(name, baseURL string) *upstream.Client {
		return upstream.New(upstream.Settings{
			Name:       name,
			BaseURL:    baseURL,
			Timeout:    cfg.HTTPTimeout,
			MaxRetries: cfg.HTTPMaxRetries,
		})
	}
	var clients []*upstream.Client
	track := func(c *upstream.Client) *upstream.Client {
		clients = append(clients, c)
		return c
	}
	defer func() {
		for _, c := range clients {
			_ = c.Close()
		}
	}()

	translator := translate.NewClient(track(newUpstream("google-translate", cfg.TranslateBaseURL)), cfg.TranslateAPIKey)
	resolver := species.NewResolver(translator, track(newUpstream("gbif", cfg.GBIFBaseURL)), cfg.Language)
	describer := describe.NewClient(track(newUpstream("openai", cfg.OpenAIBaseURL)), cfg.OpenAIAPIKey, cfg.OpenAIModel)
	geocoder := geocode.NewClient(cfg.MapsAPIKey, cfg.Language)

	// Weather providers in the configured fallback order.
	var provs []weather.Provider
	for _, name := range cfg.WeatherProviders {
		switch name {
		case config.ProviderOpenWeather:
			provs = append(provs, providers.NewOpenWeatherProvider(
				track(newUpstream(name, cfg.OpenWeatherBaseURL)), cfg.OpenWeatherAPIKey, cfg.Language))
		case config.ProviderWeatherAPI:
			if cfg.WeatherAPIKey == "" {
				logger.Info("weather provider skipped: no API key", zap.String("provider", name))
				continue
			}
			provs = append(provs, providers.NewWeatherAPIProvider(
				track(newUpstream(name, cfg.WeatherAPIBaseURL)), cfg.WeatherAPIKey, cfg.Language))
		case config.ProviderOpenMeteo:
			provs = append(provs, providers.NewOpenMeteoProvider(track(newUpstream(name, cfg.OpenMeteoBaseURL))))
		}
	}
	lookup := weather.NewLookup(provs, logger.Named("weather"))

	service := zukan.NewService(zukan.Deps{
		Describer:    describer,
		Species:      resolver,
		Weather:      lookup,
		Geocoder:     geocoder,
		Store:        store.NewMemoryStore(),
		Logger:       logger.Named("zukan"),
		DefaultStyle: cfg.DefaultStyle,
	})

	// Building an entry calls several services in a row, so writes get a
	// budget of a few upstream timeouts.
	app := fiber.New(fiber.Config{
		AppName:               "zukan",
		DisableStartupMessage: true,
		BodyLimit:             16 * 1024 * 1024,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          5*cfg.HTTPTimeout + 10*time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(fiberlogger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "zukan",
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, service)

	go func() {
		logger.Info("http server listening", zap.String("port", cfg.Port))
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Error("fiber server stopped", zap.Error(err))
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("error during shutdown", zap.Error(err))
	}
}
